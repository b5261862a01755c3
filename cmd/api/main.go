package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"medscan-backend/internal/bootstrap"
	"medscan-backend/internal/reports"
	"medscan-backend/internal/shared/config"
	"medscan-backend/internal/shared/server"
	"medscan-backend/internal/shared/telemetry"
)

const (
	shutdownTimeout = 30 * time.Second
	purgeInterval   = 10 * time.Minute
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.Build(ctx, cfg)
	if err != nil {
		log.Fatalf("bootstrap build: %v", err)
	}
	defer app.Close()

	go purgeIdleSessions(ctx, app.ReportsService, cfg.SessionTTL)

	srv := &http.Server{
		Addr:              server.Addr(cfg.Port),
		Handler:           app.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Starting API server on %s", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	case <-ctx.Done():
		log.Printf("shutdown requested, waiting up to %s for in-flight requests", shutdownTimeout)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("server shutdown: %v", err)
		}
	}
}

// purgeIdleSessions drops histories of sessions with no request for longer than ttl.
func purgeIdleSessions(ctx context.Context, svc *reports.Service, ttl time.Duration) {
	ticker := time.NewTicker(purgeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := svc.PurgeIdle(ctx, ttl)
			if err != nil {
				telemetry.Error("session.purge_failed", map[string]any{"error": err.Error()})
				continue
			}
			if n > 0 {
				telemetry.Info("session.purged", map[string]any{"reports_removed": n})
			}
		}
	}
}
