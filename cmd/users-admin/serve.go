package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/aanand-mishra/users-admin/internal/api"
	"github.com/aanand-mishra/users-admin/internal/http/handlers/admin"
	"github.com/aanand-mishra/users-admin/internal/metrics"
	"github.com/aanand-mishra/users-admin/internal/middleware"
	"github.com/aanand-mishra/users-admin/internal/session"
	"github.com/aanand-mishra/users-admin/internal/storage/sqlite"
	"github.com/aanand-mishra/users-admin/internal/view"
)

// evictInterval is how often idle sessions are swept.
const evictInterval = time.Minute

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the browser admin screen",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

// runServe starts the server and blocks until ctx is cancelled or the
// process gets SIGINT/SIGTERM, then shuts down gracefully.
func runServe(ctx context.Context) error {
	log := appLogger
	log.Info("starting users-admin",
		slog.String("env", cfg.Env),
		slog.String("version", version),
		slog.String("backend", cfg.API.BaseURL))

	store, err := sqlite.New(cfg.StoragePath)
	if err != nil {
		return fmt.Errorf("failed to initialise storage: %w", err)
	}
	defer store.Close()
	log.Info("storage initialised", slog.String("path", cfg.StoragePath))

	views, err := view.New()
	if err != nil {
		return err
	}

	sessions := session.NewRegistry(session.Options{
		Service:  api.New(cfg.API),
		Store:    store,
		Logger:   log,
		PageSize: cfg.API.PageSize,
		TTL:      cfg.SessionTTL,
		Secure:   cfg.SecureCookies,
	})

	router := http.NewServeMux()
	admin.Register(router, admin.Deps{
		Sessions: sessions,
		Views:    views,
		Logger:   log,
	})
	router.Handle("GET /metrics", promhttp.Handler())

	server := &http.Server{
		Addr: cfg.Addr,
		Handler: middleware.Chain(router,
			metrics.Middleware,
			middleware.RequestLogging(log),
			middleware.SecurityHeaders(cfg.SecureCookies),
		),
		ReadTimeout: 10 * time.Second,
		// A render may wait on the backend twice (write, then refetch).
		WriteTimeout: 2*cfg.API.Timeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	go sessions.Run(ctx, evictInterval)

	serverErr := make(chan error, 1)
	go func() {
		log.Info("server started", slog.String("address", cfg.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return fmt.Errorf("server encountered an error: %w", err)
	case <-ctx.Done():
	}

	log.Info("shutdown signal received, stopping server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shutdown server gracefully: %w", err)
	}

	log.Info("server stopped gracefully")
	return nil
}
