package db

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

// withMockDB routes openDB to a sqlmock connection that expects one ping.
func withMockDB(t *testing.T) (sqlmock.Sqlmock, *string) {
	t.Helper()
	mockDB, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	mock.ExpectPing()

	var gotDSN string
	prev := openDB
	openDB = func(name, dsn string) (*sql.DB, error) {
		if name != "pgx" {
			t.Fatalf("expected pgx driver, got %s", name)
		}
		gotDSN = dsn
		return mockDB, nil
	}
	t.Cleanup(func() { openDB = prev })
	return mock, &gotDSN
}

func TestOptionsFromEnvAppliesOverrides(t *testing.T) {
	mock, dsn := withMockDB(t)

	t.Setenv("DB_MAX_OPEN_CONNS", "7")
	t.Setenv("DB_MAX_IDLE_CONNS", "3")
	t.Setenv("DB_CONN_MAX_LIFETIME", "20m")
	t.Setenv("DB_CONN_MAX_IDLE_TIME", "45s")
	t.Setenv("DB_PING_TIMEOUT", "1s")
	t.Setenv("DB_APPLICATION_NAME", "medscan-worker")

	opts := OptionsFromEnv(DefaultServerOptions())
	db, err := Connect(context.Background(), "postgres://scan@localhost:5432/medscan", opts)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer db.Close()

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expected ping: %v", err)
	}
	if *dsn == "" || *dsn == "postgres://scan@localhost:5432/medscan" {
		t.Fatalf("expected a registered conn config name, got %q", *dsn)
	}
	stats := db.Stats()
	if stats.MaxOpenConnections != 7 {
		t.Fatalf("expected MaxOpenConnections=7, got %d", stats.MaxOpenConnections)
	}
	if opts.MaxIdleConns != 3 {
		t.Fatalf("expected MaxIdleConns=3, got %d", opts.MaxIdleConns)
	}
	if opts.ConnMaxLifetime != 20*time.Minute {
		t.Fatalf("expected ConnMaxLifetime=20m, got %s", opts.ConnMaxLifetime)
	}
	if opts.ConnMaxIdleTime != 45*time.Second {
		t.Fatalf("expected ConnMaxIdleTime=45s, got %s", opts.ConnMaxIdleTime)
	}
	if opts.PingTimeout != time.Second {
		t.Fatalf("expected PingTimeout=1s, got %s", opts.PingTimeout)
	}
	if opts.ApplicationName != "medscan-worker" {
		t.Fatalf("expected ApplicationName=medscan-worker, got %s", opts.ApplicationName)
	}
}

func TestParseURLSetsApplicationName(t *testing.T) {
	cases := []struct {
		name string
		url  string
		opts Options
		want string
	}{
		{"default", "postgres://scan@localhost/medscan", Options{}, "medscan"},
		{"from options", "postgres://scan@localhost/medscan", DefaultMigrateOptions(), "medscan-migrate"},
		{"url wins", "postgres://scan@localhost/medscan?application_name=psql", DefaultServerOptions(), "psql"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg, err := parseURL(tc.url, tc.opts)
			if err != nil {
				t.Fatalf("parseURL: %v", err)
			}
			if got := cfg.RuntimeParams["application_name"]; got != tc.want {
				t.Fatalf("expected application_name %q, got %q", tc.want, got)
			}
			if cfg.Database != "medscan" {
				t.Fatalf("unexpected database: %s", cfg.Database)
			}
		})
	}
}

func TestConnectRejectsMalformedURL(t *testing.T) {
	called := false
	prev := openDB
	openDB = func(name, dsn string) (*sql.DB, error) {
		called = true
		return nil, driver.ErrBadConn
	}
	defer func() {
		openDB = prev
	}()

	_, err := Connect(context.Background(), "postgres://scan@localhost:notaport/medscan", DefaultServerOptions())
	if err == nil {
		t.Fatalf("expected parse error")
	}
	if called {
		t.Fatalf("expected no open attempt for a malformed url")
	}
}

func TestConnectRejectsEmptyURL(t *testing.T) {
	if _, err := Connect(context.Background(), "  ", DefaultServerOptions()); err == nil {
		t.Fatalf("expected error for empty DATABASE_URL")
	}
}

func TestConnectPropagatesOpenError(t *testing.T) {
	prev := openDB
	openDB = func(name, dsn string) (*sql.DB, error) {
		return nil, driver.ErrBadConn
	}
	defer func() {
		openDB = prev
	}()

	_, err := Connect(context.Background(), "postgres://ignored", DefaultMigrateOptions())
	if !errors.Is(err, driver.ErrBadConn) {
		t.Fatalf("expected wrapped open error, got %v", err)
	}
}
