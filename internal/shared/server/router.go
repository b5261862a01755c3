package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"medscan-backend/internal/reports"
	"medscan-backend/internal/services/health"
	"medscan-backend/internal/shared/config"
	"medscan-backend/internal/shared/metrics"
	"medscan-backend/internal/shared/server/middleware"
	"medscan-backend/internal/web"
)

const (
	rateGroupDefault  = "DEFAULT"
	rateGroupAnalysis = "ANALYSIS"
)

// RouterDeps carries the handlers the router mounts.
type RouterDeps struct {
	Config        config.Config
	Health        *health.Service
	ReportHandler *reports.Handler
	WebHandler    *web.Handler
	Limiter       *middleware.RateLimiter

	// SessionActivity is told about every request from a returning session.
	SessionActivity func(ctx context.Context, sessionID string)
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	if deps.Config.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	r.Use(
		middleware.Recovery(),
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Session(middleware.SessionOptions{
			TTL:        deps.Config.SessionTTL,
			Secure:     deps.Config.Env == "production",
			OnActivity: deps.SessionActivity,
		}),
		cors.New(corsConfig(deps.Config.CORSAllowOrigin)),
		middleware.RateLimit(middleware.RateLimitConfig{
			DefaultGroup: rateGroupDefault,
			GroupFor:     rateGroupFor,
			Limiter:      deps.Limiter,
			Rules: map[string]middleware.RateLimitRule{
				rateGroupDefault:  {Rate: 10, Burst: 40},
				rateGroupAnalysis: {Rate: 0.2, Burst: 5},
			},
		}),
	)

	r.GET("/metrics", metrics.Handler())

	if deps.WebHandler != nil {
		deps.WebHandler.RegisterRoutes(r)
	}

	api := r.Group("/api/v1")
	if deps.Health != nil {
		api.GET("/health", health.Handler(deps.Health))
	}
	if deps.ReportHandler != nil {
		deps.ReportHandler.RegisterRoutes(api)
	}

	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "X-Request-Id"},
		ExposeHeaders:    []string{"X-Request-Id", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           10 * time.Minute,
	}
	if len(origins) == 0 {
		cfg.AllowOrigins = []string{"http://localhost:8080"}
	}
	return cfg
}

func rateGroupFor(c *gin.Context) string {
	if c.Request.Method != http.MethodPost {
		return rateGroupDefault
	}
	switch c.FullPath() {
	case "/analyze", "/api/v1/analyses":
		return rateGroupAnalysis
	}
	return rateGroupDefault
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
