// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rolegate Contributors

//go:build integration

package postgres_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
	"github.com/testcontainers/testcontainers-go"
	pgmodule "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/rolegate/rolegate/internal/access"
	"github.com/rolegate/rolegate/internal/roles/postgres"
)

// setupPostgresContainer starts a PostgreSQL container, migrates the
// schema and returns a connected store.
func setupPostgresContainer() (*postgres.Store, func(), error) {
	ctx := context.Background()

	container, err := pgmodule.Run(ctx,
		"postgres:16-alpine",
		pgmodule.WithDatabase("rolegate_test"),
		pgmodule.WithUsername("rolegate"),
		pgmodule.WithPassword("rolegate"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		return nil, nil, err
	}

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		return nil, nil, err
	}

	migrator, err := postgres.NewMigrator(connStr)
	if err != nil {
		return nil, nil, err
	}
	if err := migrator.Up(); err != nil {
		return nil, nil, err
	}
	_ = migrator.Close()

	store, err := postgres.Connect(ctx, connStr)
	if err != nil {
		return nil, nil, err
	}

	cleanup := func() {
		store.Close()
		_ = container.Terminate(ctx)
	}
	return store, cleanup, nil
}

var _ = Describe("Store", func() {
	var store *postgres.Store
	var cleanup func()

	BeforeEach(func() {
		var err error
		store, cleanup, err = setupPostgresContainer()
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		cleanup()
	})

	Describe("Replace and read back", func() {
		It("round-trips roles in declaration order", func() {
			ctx := context.Background()

			in := []access.Role{
				{Name: "viewer", Description: "read only", Permissions: []string{"app.home.get"}},
				{Name: "editor", Permissions: []string{"app.*"}, PermissionSets: []string{"reporting"}},
			}
			sets := map[string][]string{
				"reporting": {"reports.view", "reports.export"},
			}

			Expect(store.Replace(ctx, in, sets)).To(Succeed())

			got, err := store.Roles(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(Equal(in))

			gotSets, err := store.PermissionSets(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(gotSets).To(Equal(sets))
		})

		It("replaces previous definitions entirely", func() {
			ctx := context.Background()

			Expect(store.Replace(ctx,
				[]access.Role{{Name: "old", Permissions: []string{"x.y"}}},
				nil)).To(Succeed())
			Expect(store.Replace(ctx,
				[]access.Role{{Name: "new", Permissions: []string{"a.b"}}},
				nil)).To(Succeed())

			got, err := store.Roles(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(HaveLen(1))
			Expect(got[0].Name).To(Equal("new"))
		})

		It("returns no roles on a fresh schema", func() {
			got, err := store.Roles(context.Background())
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(BeEmpty())
		})
	})
})
