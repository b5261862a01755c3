package main

// Apply the reports and sessions schema:
//   DATABASE_URL=postgres://... go run ./cmd/migrate

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"medscan-backend/internal/shared/storage/db"
	"medscan-backend/internal/shared/telemetry"
)

var errNoDatabase = errors.New("DATABASE_URL is empty")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := run(ctx, strings.TrimSpace(os.Getenv("DATABASE_URL")))
	switch {
	case errors.Is(err, errNoDatabase):
		// In-memory history has no schema.
		telemetry.Info("migrate.skipped", map[string]any{"reason": err.Error()})
	case err != nil:
		telemetry.Error("migrate.failed", map[string]any{"error": err.Error()})
		stop()
		os.Exit(1)
	}
}

// run reads only DATABASE_URL so migrations work without model credentials.
func run(ctx context.Context, databaseURL string) error {
	if databaseURL == "" {
		return errNoDatabase
	}
	sqlDB, err := db.Connect(ctx, databaseURL, db.OptionsFromEnv(db.DefaultMigrateOptions()))
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	return db.RunMigrations(ctx, sqlDB)
}
