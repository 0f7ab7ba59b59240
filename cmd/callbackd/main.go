// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: MPL-2.0

// callbackd serves the authorization code callback page.  It exchanges the
// code with the configured token endpoint, sets the token cookies and sends
// the browser on to the dashboard.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hashicorp/go-hclog"

	"github.com/hashicorp/cap-pkce/callback"
	"github.com/hashicorp/cap-pkce/config"
	"github.com/hashicorp/cap-pkce/exchange"
	"github.com/hashicorp/cap-pkce/storage"
)

const shutdownTimeout = 30 * time.Second

func main() {
	configPath := flag.String("config", "", "path to an optional YAML config file")
	envFile := flag.String("env-file", ".env", "path to an optional .env file")
	flag.Parse()

	cfg, err := config.Load(*configPath, config.WithEnvFile(*envFile))
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
	logger := cfg.Logger("callbackd", os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger, nil); err != nil {
		logger.Error("fatal", "error", err)
		os.Exit(1)
	}
}

// run serves until ctx is done, then shuts the server down gracefully.  If
// ready is non-nil the server's base url is sent on it once the listener is
// bound.
func run(ctx context.Context, cfg *config.Config, logger hclog.Logger, ready chan<- string) error {
	const op = "main.run"
	ca, err := cfg.ProviderCAPEM()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	exOpts := []exchange.Option{exchange.WithLogger(logger), exchange.WithProviderCA(ca)}
	if cfg.StrictStatus {
		exOpts = append(exOpts, exchange.WithStrictStatus())
	}
	client, err := exchange.NewClient(cfg.AuthEndpoint, exOpts...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	persistent, err := storage.NewFile(cfg.StorePath, storage.WithTTL(cfg.StoreTTL))
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	h, err := callback.NewHandler(client, cfg.DashboardURL,
		callback.WithPersistentStorage(persistent),
		callback.WithLogger(logger),
		callback.WithRedirectDelay(cfg.RedirectDelay),
		callback.WithVerifierLength(cfg.VerifierLength),
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	sessions := storage.NewSessions(cfg.SessionCookie, storage.WithTTL(cfg.SessionTTL))
	cb, err := callback.Callback(h, storage.NewBrowsers(""), sessions, nil, nil)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	ln, err := net.Listen("tcp", cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("%s: listen: %w", op, err)
	}
	server := &http.Server{
		Handler:           buildRouter(cb, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", ln.Addr().String(), "token_endpoint", client.Endpoint())
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	if ready != nil {
		ready <- "http://" + ln.Addr().String()
	}

	select {
	case err := <-errCh:
		return fmt.Errorf("%s: server error: %w", op, err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("%s: shutdown: %w", op, err)
	}
	logger.Info("stopped")
	return nil
}

// buildRouter wires the routes and middleware.
func buildRouter(cb http.HandlerFunc, logger hclog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(logger.Named("http")))
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/callback", cb)
	r.Head("/callback", cb)
	return r
}

// requestLogger logs one line per request.  The query is left out since it
// carries the authorization code.
func requestLogger(logger hclog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				logger.Debug("request",
					"request_id", middleware.GetReqID(r.Context()),
					"method", r.Method,
					"path", r.URL.Path,
					"status", ww.Status(),
					"bytes", ww.BytesWritten(),
					"remote", r.RemoteAddr,
					"duration", time.Since(start),
				)
			}()
			next.ServeHTTP(ww, r)
		})
	}
}
