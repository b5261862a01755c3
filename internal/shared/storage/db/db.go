package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"

	"medscan-backend/internal/shared/telemetry"
)

// Options controls database pool and connectivity behavior.
type Options struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	PingTimeout     time.Duration
	ApplicationName string
}

func (o Options) applicationName() string {
	if o.ApplicationName == "" {
		return "medscan"
	}
	return o.ApplicationName
}

var openDB = sql.Open

// DefaultServerOptions returns defaults for the long-running API process.
// History writes are one row per analysed image, so the pool stays small.
func DefaultServerOptions() Options {
	return Options{
		MaxOpenConns:    5,
		MaxIdleConns:    2,
		ConnMaxIdleTime: 2 * time.Minute,
		ConnMaxLifetime: time.Hour,
		PingTimeout:     5 * time.Second,
		ApplicationName: "medscan-api",
	}
}

// DefaultMigrateOptions returns defaults for short-lived CLI migrations.
func DefaultMigrateOptions() Options {
	return Options{
		MaxOpenConns:    1,
		MaxIdleConns:    1,
		ConnMaxIdleTime: 2 * time.Minute,
		ConnMaxLifetime: time.Hour,
		PingTimeout:     10 * time.Second,
		ApplicationName: "medscan-migrate",
	}
}

// OptionsFromEnv overrides defaults with DB_* env vars if present.
// Unparseable values are logged and ignored.
func OptionsFromEnv(defaults Options) Options {
	opts := defaults
	envOverride(&opts.MaxOpenConns, "DB_MAX_OPEN_CONNS", strconv.Atoi)
	envOverride(&opts.MaxIdleConns, "DB_MAX_IDLE_CONNS", strconv.Atoi)
	envOverride(&opts.ConnMaxLifetime, "DB_CONN_MAX_LIFETIME", time.ParseDuration)
	envOverride(&opts.ConnMaxIdleTime, "DB_CONN_MAX_IDLE_TIME", time.ParseDuration)
	envOverride(&opts.PingTimeout, "DB_PING_TIMEOUT", time.ParseDuration)
	envOverride(&opts.ApplicationName, "DB_APPLICATION_NAME", func(v string) (string, error) { return v, nil })
	return opts
}

func envOverride[T any](dst *T, key string, parse func(string) (T, error)) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return
	}
	val, err := parse(raw)
	if err != nil {
		telemetry.Warn("db.env_invalid", map[string]any{"key": key, "error": err.Error()})
		return
	}
	*dst = val
}

// Connect opens a *sql.DB for databaseURL and verifies connectivity.
// The URL is parsed by pgx first so malformed values fail before any dial.
func Connect(ctx context.Context, databaseURL string, opts Options) (*sql.DB, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("DATABASE_URL is empty")
	}

	connCfg, err := parseURL(databaseURL, opts)
	if err != nil {
		return nil, err
	}

	db, err := openDB("pgx", stdlib.RegisterConnConfig(connCfg))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	applyOptions(db, opts)

	pingCtx, cancel := context.WithTimeout(ctx, positiveOr(opts.PingTimeout, 5*time.Second))
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	stats := db.Stats()
	telemetry.Info("db.connected", map[string]any{
		"host":     connCfg.Host,
		"database": connCfg.Database,
		"app":      connCfg.RuntimeParams["application_name"],
		"max_open": stats.MaxOpenConnections,
	})
	return db, nil
}

// parseURL keeps an application_name given in the URL and fills in ours otherwise.
func parseURL(databaseURL string, opts Options) (*pgx.ConnConfig, error) {
	connCfg, err := pgx.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse DATABASE_URL: %w", err)
	}
	if _, ok := connCfg.RuntimeParams["application_name"]; !ok {
		connCfg.RuntimeParams["application_name"] = opts.applicationName()
	}
	return connCfg, nil
}

// applyOptions sizes the pool; zero values fall back to the server defaults.
func applyOptions(db *sql.DB, opts Options) {
	def := DefaultServerOptions()
	db.SetMaxOpenConns(positiveOr(opts.MaxOpenConns, def.MaxOpenConns))
	db.SetMaxIdleConns(positiveOr(opts.MaxIdleConns, def.MaxIdleConns))
	db.SetConnMaxLifetime(positiveOr(opts.ConnMaxLifetime, def.ConnMaxLifetime))
	db.SetConnMaxIdleTime(positiveOr(opts.ConnMaxIdleTime, def.ConnMaxIdleTime))
}

func positiveOr[T int | time.Duration](v, fallback T) T {
	if v > 0 {
		return v
	}
	return fallback
}
