// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: MPL-2.0

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hashicorp/cap-pkce/callback"
	"github.com/hashicorp/cap-pkce/config"
	"github.com/hashicorp/cap-pkce/pkce"
	"github.com/hashicorp/cap-pkce/storage"
)

func TestBuildRouter(t *testing.T) {
	t.Parallel()
	var calls int
	cb := func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusTeapot)
	}
	var buf bytes.Buffer
	logger := hclog.New(&hclog.LoggerOptions{Level: hclog.Debug, Output: &buf})
	r := buildRouter(cb, logger)

	tests := []struct {
		method string
		path   string
		want   int
	}{
		{http.MethodGet, "/health", http.StatusOK},
		{http.MethodGet, "/callback?code=secret-code", http.StatusTeapot},
		{http.MethodHead, "/callback", http.StatusTeapot},
		{http.MethodPost, "/callback", http.StatusMethodNotAllowed},
		{http.MethodGet, "/unknown", http.StatusNotFound},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))
		assert.Equal(t, tt.want, rec.Code, "%s %s", tt.method, tt.path)
	}
	assert.Equal(t, 2, calls)
	assert.Contains(t, buf.String(), "path=/callback")
	assert.NotContains(t, buf.String(), "secret-code")
}

func TestRun(t *testing.T) {
	t.Parallel()
	assert, require := assert.New(t), require.New(t)

	verifiers := make(chan string, 1)
	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err == nil {
			verifiers <- body["code_verifier"]
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"refresh_token":"r1","access_token":"a1","user_id":"u1"}`)
	}))
	defer tokenSrv.Close()

	cfg := config.Default()
	cfg.AuthEndpoint = tokenSrv.URL
	cfg.DashboardURL = "https://app.example.com/dashboard"
	cfg.ListenAddr = "127.0.0.1:0"
	cfg.StorePath = filepath.Join(t.TempDir(), "store.json")
	require.NoError(cfg.Validate())

	ctx, cancel := context.WithCancel(context.Background())
	ready := make(chan string, 1)
	done := make(chan error, 1)
	go func() { done <- run(ctx, cfg, hclog.NewNullLogger(), ready) }()

	var base string
	select {
	case base = <-ready:
	case err := <-done:
		t.Fatalf("run returned early: %s", err)
	case <-time.After(5 * time.Second):
		t.Fatal("server never became ready")
	}

	resp, err := http.Get(base + "/health")
	require.NoError(err)
	resp.Body.Close()
	assert.Equal(http.StatusOK, resp.StatusCode)

	resp, err = http.Get(base + "/callback?code=c1")
	require.NoError(err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(err)
	assert.Equal(http.StatusOK, resp.StatusCode)
	assert.True(strings.Contains(string(body), "url=https://app.example.com/dashboard"))

	names := map[string]string{}
	for _, c := range resp.Cookies() {
		names[c.Name] = c.Value
	}
	assert.Equal("r1", names[callback.CookieRefreshToken])
	assert.Equal("true", names[callback.CookieHasRefreshToken])
	assert.Equal("u1", names[callback.CookieUsername])
	assert.NotEmpty(names[storage.DefaultSessionCookie])
	require.NotEmpty(names[storage.DefaultBrowserCookie])

	cancel()
	select {
	case err := <-done:
		require.NoError(err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}

	// the verifier survived in the persistent tier
	file, err := storage.NewFile(cfg.StorePath)
	require.NoError(err)
	assert.Equal(2, file.Len())
	persistent, err := storage.NewNamespace(file, names[storage.DefaultBrowserCookie])
	require.NoError(err)
	v, ok, err := persistent.Get(context.Background(), callback.KeyCodeVerifier)
	require.NoError(err)
	require.True(ok)
	assert.Equal(<-verifiers, v)
	c, _, err := persistent.Get(context.Background(), callback.KeyCodeChallenge)
	require.NoError(err)
	assert.Equal(pkce.Challenge(v), c)
}

func TestRun_badConfig(t *testing.T) {
	t.Parallel()
	cfg := config.Default()
	cfg.AuthEndpoint = "https://auth.example.com/token"
	cfg.DashboardURL = "/dashboard"
	cfg.ListenAddr = "127.0.0.1:0"
	cfg.StorePath = filepath.Join(t.TempDir(), "store.json")
	cfg.ProviderCA = filepath.Join(t.TempDir(), "missing.pem")
	err := run(context.Background(), cfg, hclog.NewNullLogger(), nil)
	require.Error(t, err)
}
