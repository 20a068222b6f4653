// Package relay is the main orchestrator that ties all relay components
// together.
package relay

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/a2a-net/relay/internal/api"
	"github.com/a2a-net/relay/internal/auth"
	"github.com/a2a-net/relay/internal/config"
	"github.com/a2a-net/relay/internal/registry"
	"github.com/a2a-net/relay/internal/router"
)

// Relay is the main relay process.
type Relay struct {
	cfg      *config.Config
	registry *registry.Registry
	router   *router.Router
	api      *api.Server
	logger   *slog.Logger
}

// New creates a new relay from configuration.
func New(cfg *config.Config, logger *slog.Logger) (*Relay, error) {
	authSvc := auth.NewService(cfg.Auth.SecretKey)
	reg := registry.New()

	rt := router.New(authSvc, reg, logger, router.Options{
		MaxPerWindow:    cfg.Limits.MaxPerWindow,
		RateWindow:      cfg.Limits.RateWindow.Duration,
		AllowedOrigins:  cfg.Server.AllowedOrigins,
		MaxMessageBytes: cfg.Limits.MaxMessageBytes,
	})

	apiSrv := api.NewServer(reg, rt, cfg, logger)

	r := &Relay{
		cfg:      cfg,
		registry: reg,
		router:   rt,
		api:      apiSrv,
		logger:   logger.With("component", "relay"),
	}

	// Startup validation warnings.
	if len(cfg.Auth.SecretKey) < 32 {
		logger.Warn("secret key is shorter than 32 characters — use a stronger secret in production")
	}
	for _, origin := range cfg.Server.AllowedOrigins {
		if origin == "*" {
			logger.Warn("CORS allowed_origins contains wildcard '*' — restrict to specific origins in production")
			break
		}
	}

	return r, nil
}

// Run starts the relay HTTP server and blocks until the context is canceled.
func (r *Relay) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    r.cfg.Server.Addr,
		Handler: r.api.Handler(),
	}

	// Start rate limiter cleanup tasks.
	r.api.StartBackgroundTasks(ctx)

	errCh := make(chan error, 1)
	go func() {
		r.logger.Info("relay listening", "addr", r.cfg.Server.Addr)
		if r.cfg.Server.TLSCert != "" && r.cfg.Server.TLSKey != "" {
			errCh <- srv.ListenAndServeTLS(r.cfg.Server.TLSCert, r.cfg.Server.TLSKey)
		} else {
			r.logger.Warn("TLS not configured, running without encryption (development only)")
			errCh <- srv.ListenAndServe()
		}
	}()

	select {
	case <-ctx.Done():
		r.logger.Info("shutting down relay gracefully")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			r.logger.Warn("graceful shutdown failed, forcing close", "error", err)
			_ = srv.Close()
		} else {
			r.logger.Info("http server stopped gracefully")
		}

		r.logger.Info("shutdown complete")
		return ctx.Err()

	case err := <-errCh:
		return err
	}
}
