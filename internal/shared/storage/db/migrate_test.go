package db

import (
	"bytes"
	"context"
	"io/fs"
	"strings"
	"testing"

	"medscan-backend/internal/shared/telemetry"
)

func TestEmbeddedMigrationsAreGooseFiles(t *testing.T) {
	entries, err := fs.ReadDir(migrationFiles, "migrations")
	if err != nil {
		t.Fatalf("read embedded migrations: %v", err)
	}
	if len(entries) == 0 {
		t.Fatalf("expected at least one migration")
	}
	for _, e := range entries {
		data, err := fs.ReadFile(migrationFiles, "migrations/"+e.Name())
		if err != nil {
			t.Fatalf("read %s: %v", e.Name(), err)
		}
		body := string(data)
		if !strings.Contains(body, "-- +goose Up") || !strings.Contains(body, "-- +goose Down") {
			t.Fatalf("%s missing goose annotations", e.Name())
		}
	}
}

func TestRunMigrationsNilDatabase(t *testing.T) {
	if err := RunMigrations(context.Background(), nil); err != nil {
		t.Fatalf("expected no-op for nil database, got %v", err)
	}
}

func TestGooseLoggerWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	prev := telemetry.SetOutput(&buf)
	defer telemetry.SetOutput(prev)

	gooseLogger{}.Printf("OK   %s (%s)", "00001_create_reports.sql", "1.2ms")

	if !strings.Contains(buf.String(), `"msg":"db.migration"`) ||
		!strings.Contains(buf.String(), "00001_create_reports.sql") {
		t.Fatalf("unexpected log line: %s", buf.String())
	}
}
