package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"

	"medscan-backend/internal/llm"
	"medscan-backend/internal/llm/gemini"
	"medscan-backend/internal/llm/openai"
	"medscan-backend/internal/reports"
	"medscan-backend/internal/search"
	"medscan-backend/internal/search/duckduckgo"
	"medscan-backend/internal/services/health"
	"medscan-backend/internal/shared/config"
	"medscan-backend/internal/shared/server"
	"medscan-backend/internal/shared/server/middleware"
	"medscan-backend/internal/shared/storage/db"
	"medscan-backend/internal/shared/storage/object"
	localstore "medscan-backend/internal/shared/storage/object/local"
	s3store "medscan-backend/internal/shared/storage/object/s3"
	"medscan-backend/internal/shared/telemetry"
	"medscan-backend/internal/web"
)

// App holds shared dependencies.
type App struct {
	Config         config.Config
	Router         *gin.Engine
	DB             *sql.DB
	Store          object.ObjectStore
	Searcher       search.Searcher
	LLM            llm.Client
	ReportsRepo    reports.Repo
	ReportsService *reports.Service
	HealthService  *health.Service
	ReportHandler  *reports.Handler
	WebHandler     *web.Handler
}

// Build wires storage, the model client, services and the router.
func Build(ctx context.Context, cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config:   cfg,
		DB:       sqlDB,
		Searcher: buildSearcher(cfg),
	}
	if err := wire(ctx, app); err != nil {
		_ = app.Close()
		return nil, err
	}

	app.Router = server.NewRouter(server.RouterDeps{
		Config:        app.Config,
		Health:        app.HealthService,
		ReportHandler: app.ReportHandler,
		WebHandler:    app.WebHandler,
		Limiter:       middleware.NewRateLimiter(nil),

		SessionActivity: app.ReportsService.Touch,
	})

	return app, nil
}

func wire(ctx context.Context, app *App) error {
	store, err := buildStore(ctx, app.Config)
	if err != nil {
		return err
	}
	app.Store = store

	llmClient, err := buildLLM(app.Config, app.Searcher)
	if err != nil {
		return err
	}
	app.LLM = llmClient

	return buildServices(app)
}

// Close releases the database handle if one was opened.
func (a *App) Close() error {
	if a == nil || a.DB == nil {
		return nil
	}
	return a.DB.Close()
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		telemetry.Info("bootstrap.storage", map[string]any{"storage": "memory"})
		return nil, nil
	}

	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, db.OptionsFromEnv(db.DefaultServerOptions()))
	if err == nil {
		err = db.RunMigrations(ctx, sqlDB)
		if err != nil {
			_ = sqlDB.Close()
		}
	}
	if err != nil {
		if isDevLike(cfg.Env) {
			telemetry.Warn("bootstrap.storage", map[string]any{
				"storage": "memory",
				"error":   err.Error(),
			})
			return nil, nil
		}
		return nil, err
	}

	telemetry.Info("bootstrap.storage", map[string]any{"storage": "postgres"})
	return sqlDB, nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case config.StoreS3:
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

func buildSearcher(cfg config.Config) search.Searcher {
	if !cfg.SearchEnabled {
		return search.Disabled{}
	}
	return duckduckgo.New()
}

func buildLLM(cfg config.Config, searcher search.Searcher) (llm.Client, error) {
	switch cfg.LLMProvider {
	case config.ProviderOpenAI:
		return openai.NewClient(openai.Options{
			APIKey:   cfg.OpenAIAPIKey,
			Model:    cfg.LLMModel,
			Timeout:  cfg.LLMTimeout,
			Searcher: searcher,
		})
	case config.ProviderGemini:
		return gemini.NewClient(cfg.GeminiAPIKey, cfg.LLMModel, cfg.LLMTimeout, searcher)
	default:
		return nil, fmt.Errorf("unsupported LLM_PROVIDER %q", cfg.LLMProvider)
	}
}

func buildServices(app *App) error {
	var repo reports.Repo
	var pinger health.Pinger
	if app.DB != nil {
		repo = &reports.PGRepo{DB: app.DB}
		pinger = app.DB
	} else {
		repo = reports.NewMemoryRepo()
	}

	svc := &reports.Service{
		Repo:  repo,
		Store: app.Store,
		LLM:   app.LLM,
	}

	app.ReportsRepo = repo
	app.ReportsService = svc
	app.HealthService = health.NewService(pinger, app.Config.LLMProvider, app.Config.LLMModel)
	app.ReportHandler = reports.NewHandler(svc, app.Config.MaxUploadBytes)
	app.ReportHandler.SecureCookies = app.Config.Env == "production"
	app.WebHandler = web.NewHandler(svc, app.Config.MaxUploadBytes)
	app.WebHandler.SecureCookies = app.ReportHandler.SecureCookies

	if app.ReportHandler == nil || app.WebHandler == nil {
		return errors.New("failed to initialize handlers")
	}
	return nil
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}
