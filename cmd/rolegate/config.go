// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rolegate Contributors

package main

import (
	"context"
	"os"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/rolegate/rolegate/internal/access"
	"github.com/rolegate/rolegate/internal/logging"
	"github.com/rolegate/rolegate/internal/roles"
	"github.com/rolegate/rolegate/internal/roles/postgres"
)

// Config holds the merged CLI configuration. Precedence is flag defaults,
// then the config file, then explicitly set flags.
type Config struct {
	LogFormat   string `koanf:"log-format"`
	Source      string `koanf:"source"`
	RolesDir    string `koanf:"roles-dir"`
	SetsFile    string `koanf:"sets-file"`
	DatabaseURL string `koanf:"database-url"`
	Addr        string `koanf:"addr"`
}

// loadConfig merges the optional config file with the command's flags.
func loadConfig(cmd *cobra.Command) (Config, error) {
	k := koanf.New(".")

	configFile, _ := cmd.Flags().GetString("config") //nolint:errcheck // flag is always registered
	if configFile != "" {
		if err := k.Load(file.Provider(configFile), yaml.Parser()); err != nil {
			return Config{}, oops.
				Code("CONFIG_INVALID").
				With("file", configFile).
				Wrap(err)
		}
	}

	if err := k.Load(posflag.Provider(cmd.Flags(), ".", k), nil); err != nil {
		return Config{}, oops.Code("CONFIG_INVALID").Wrap(err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, oops.Code("CONFIG_INVALID").Wrap(err)
	}

	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	}

	logging.SetDefault("rolegate", version, cfg.LogFormat)
	return cfg, nil
}

// newEvaluator builds an evaluator populated from the configured source.
// The returned cleanup releases any source resources and is never nil.
func newEvaluator(ctx context.Context, cfg Config) (*access.Evaluator, func(), error) {
	e := access.NewEvaluator()

	switch cfg.Source {
	case "yaml", "":
		src := roles.NewYAMLSource(cfg.RolesDir, cfg.SetsFile)
		if err := roles.Load(ctx, src, e); err != nil {
			return nil, func() {}, err
		}
		return e, func() {}, nil

	case "postgres":
		if cfg.DatabaseURL == "" {
			return nil, func() {}, oops.
				Code("CONFIG_INVALID").
				Errorf("database-url is required for the postgres source")
		}
		store, err := postgres.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, func() {}, err
		}
		if err := roles.Load(ctx, store, e); err != nil {
			store.Close()
			return nil, func() {}, err
		}
		return e, store.Close, nil

	default:
		return nil, func() {}, oops.
			Code("CONFIG_INVALID").
			With("source", cfg.Source).
			Errorf("unknown role source %q", cfg.Source)
	}
}
