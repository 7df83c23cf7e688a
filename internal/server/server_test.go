// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rolegate Contributors

package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/rolegate/rolegate/internal/access"
	"github.com/rolegate/rolegate/internal/access/accesstest"
)

func startServer(t *testing.T, e *access.Evaluator, ready ReadinessChecker) *Server {
	t.Helper()
	server := NewServer("127.0.0.1:0", e, ready)
	if _, err := server.Start(); err != nil {
		t.Fatalf("failed to start server: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Stop(ctx)
	})
	if server.Addr() == "" {
		t.Fatal("server address is empty")
	}
	return server
}

func postCheck(t *testing.T, addr, body string) *http.Response {
	t.Helper()
	resp, err := http.Post("http://"+addr+"/v1/check", "application/json",
		bytes.NewBufferString(body))
	if err != nil {
		t.Fatalf("failed to POST /v1/check: %v", err)
	}
	return resp
}

func TestServer_CheckAllowed(t *testing.T) {
	server := startServer(t, accesstest.Fixture(), nil)

	resp := postCheck(t, server.Addr(), `{"role":"editor","permission":"app.home.get"}`)
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.StatusCode)
	}

	var out struct {
		Allowed bool `json:"allowed"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !out.Allowed {
		t.Error("expected editor to be allowed app.home.get")
	}
	if resp.Header.Get("X-Request-Id") == "" {
		t.Error("expected X-Request-Id header")
	}
}

func TestServer_CheckDenied(t *testing.T) {
	server := startServer(t, accesstest.Fixture(), nil)

	for _, body := range []string{
		`{"role":"viewer","permission":"app.users.delete"}`,
		`{"role":"ghost","permission":"app.home.get"}`,
	} {
		resp := postCheck(t, server.Addr(), body)
		var out struct {
			Allowed bool `json:"allowed"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		_ = resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			t.Errorf("expected status 200, got %d", resp.StatusCode)
		}
		if out.Allowed {
			t.Errorf("expected denial for %s", body)
		}
	}
}

func TestServer_CheckResolverPath(t *testing.T) {
	e := accesstest.Fixture()
	e.SetRoleResolver(accesstest.StaticResolver("editor"))
	server := startServer(t, e, nil)

	resp := postCheck(t, server.Addr(), `{"permission":"app.home.get"}`)
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.StatusCode)
	}
	var out struct {
		Allowed bool `json:"allowed"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !out.Allowed {
		t.Error("expected resolver-path check to be allowed")
	}
}

func TestServer_CheckNoRoleNoResolver(t *testing.T) {
	server := startServer(t, accesstest.Fixture(), nil)

	resp := postCheck(t, server.Addr(), `{"permission":"app.home.get"}`)
	defer func() { _ = resp.Body.Close() }()

	var out struct {
		Allowed bool `json:"allowed"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if out.Allowed {
		t.Error("expected denial when no role and no resolver")
	}
}

func TestServer_CheckBadRequest(t *testing.T) {
	server := startServer(t, accesstest.Fixture(), nil)

	for _, body := range []string{
		`not json`,
		`{"role":"viewer","permission":""}`,
	} {
		resp := postCheck(t, server.Addr(), body)
		_ = resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("body %q: expected status 400, got %d", body, resp.StatusCode)
		}
	}
}

func TestServer_Roles(t *testing.T) {
	server := startServer(t, accesstest.Fixture(), nil)

	resp, err := http.Get("http://" + server.Addr() + "/v1/roles")
	if err != nil {
		t.Fatalf("failed to GET /v1/roles: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	var out []struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(out) != 3 {
		t.Fatalf("expected 3 roles, got %d", len(out))
	}
	// Declaration order is preserved
	if out[0].Name != "viewer" || out[1].Name != "editor" || out[2].Name != "admin" {
		t.Errorf("unexpected role order: %+v", out)
	}
}

func TestServer_RolePermissions(t *testing.T) {
	server := startServer(t, accesstest.Fixture(), nil)

	resp, err := http.Get("http://" + server.Addr() + "/v1/roles/editor/permissions")
	if err != nil {
		t.Fatalf("failed to GET role permissions: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.StatusCode)
	}

	var out struct {
		Role        string   `json:"role"`
		Permissions []string `json:"permissions"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if out.Role != "editor" {
		t.Errorf("expected role editor, got %q", out.Role)
	}
	// Direct grants first, then set expansion
	want := []string{"app.*", "reports.view", "reports.export"}
	if len(out.Permissions) != len(want) {
		t.Fatalf("expected %d permissions, got %v", len(want), out.Permissions)
	}
	for i, p := range want {
		if out.Permissions[i] != p {
			t.Errorf("permission %d: expected %q, got %q", i, p, out.Permissions[i])
		}
	}
}

func TestServer_RolePermissionsUnknownRole(t *testing.T) {
	server := startServer(t, accesstest.Fixture(), nil)

	resp, err := http.Get("http://" + server.Addr() + "/v1/roles/ghost/permissions")
	if err != nil {
		t.Fatalf("failed to GET role permissions: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", resp.StatusCode)
	}
}

func TestServer_Metrics(t *testing.T) {
	server := startServer(t, accesstest.Fixture(), func() bool { return true })

	// Generate a request so the request metrics have samples
	resp := postCheck(t, server.Addr(), `{"role":"admin","permission":"anything.at.all"}`)
	_ = resp.Body.Close()

	mresp, err := http.Get("http://" + server.Addr() + "/metrics")
	if err != nil {
		t.Fatalf("failed to GET /metrics: %v", err)
	}
	defer func() { _ = mresp.Body.Close() }()

	if mresp.StatusCode != http.StatusOK {
		t.Errorf("expected status 200, got %d", mresp.StatusCode)
	}

	body, err := io.ReadAll(mresp.Body)
	if err != nil {
		t.Fatalf("failed to read response body: %v", err)
	}
	bodyStr := string(body)

	if !strings.Contains(bodyStr, "# HELP") {
		t.Error("expected Prometheus format with HELP comments")
	}
	if !strings.Contains(bodyStr, "go_") {
		t.Error("expected go_* metrics")
	}
	if !strings.Contains(bodyStr, "process_") {
		t.Error("expected process_* metrics")
	}
	if !strings.Contains(bodyStr, "rolegate_http_requests_total") {
		t.Error("expected rolegate_http_requests_total metric")
	}
}

func TestServer_Liveness(t *testing.T) {
	server := startServer(t, accesstest.Fixture(), nil)

	resp, err := http.Get("http://" + server.Addr() + "/healthz/liveness")
	if err != nil {
		t.Fatalf("failed to GET /healthz/liveness: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected status 200, got %d", resp.StatusCode)
	}
}

func TestServer_Readiness(t *testing.T) {
	tests := []struct {
		name    string
		checker ReadinessChecker
		want    int
	}{
		{"ready", func() bool { return true }, http.StatusOK},
		{"not ready", func() bool { return false }, http.StatusServiceUnavailable},
		{"nil checker defaults to ready", nil, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := startServer(t, accesstest.Fixture(), tt.checker)

			resp, err := http.Get("http://" + server.Addr() + "/healthz/readiness")
			if err != nil {
				t.Fatalf("failed to GET /healthz/readiness: %v", err)
			}
			defer func() { _ = resp.Body.Close() }()

			if resp.StatusCode != tt.want {
				t.Errorf("expected status %d, got %d", tt.want, resp.StatusCode)
			}
		})
	}
}

func TestServer_DoubleStartFails(t *testing.T) {
	server := startServer(t, accesstest.Fixture(), nil)

	if _, err := server.Start(); err == nil {
		t.Error("expected error on double start, got nil")
	}
}

func TestServer_StopIdempotent(t *testing.T) {
	server := NewServer("127.0.0.1:0", accesstest.Fixture(), nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Stop(ctx); err != nil {
		t.Errorf("stop without start should not error: %v", err)
	}
}

func TestServer_StopLeavesNoGoroutines(t *testing.T) {
	defer goleak.VerifyNone(t,
		goleak.IgnoreTopFunction("net/http.(*persistConn).readLoop"),
		goleak.IgnoreTopFunction("net/http.(*persistConn).writeLoop"),
		goleak.IgnoreTopFunction("internal/poll.runtime_pollWait"))

	server := NewServer("127.0.0.1:0", accesstest.Fixture(), nil)
	errCh, err := server.Start()
	if err != nil {
		t.Fatalf("failed to start server: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Stop(ctx); err != nil {
		t.Fatalf("failed to stop server: %v", err)
	}

	select {
	case _, open := <-errCh:
		if open {
			t.Error("expected error channel to close without errors")
		}
	case <-time.After(2 * time.Second):
		t.Error("error channel not closed after stop")
	}
}
