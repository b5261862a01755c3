package health

import (
	"context"
	"time"
)

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Service encapsulates health-related checks.
type Service struct {
	DB       Pinger
	Provider string
	Model    string
	Timeout  time.Duration
}

// NewService constructs a new health service. db may be nil when history is kept in memory.
func NewService(db Pinger, provider, model string) *Service {
	return &Service{DB: db, Provider: provider, Model: model, Timeout: 2 * time.Second}
}

// Status reports liveness and the history backend state.
func (s *Service) Status(ctx context.Context) (map[string]any, bool) {
	out := map[string]any{
		"ok":       true,
		"provider": s.Provider,
		"model":    s.Model,
		"storage":  "memory",
	}
	if s.DB == nil {
		return out, true
	}

	timeout := s.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := s.DB.PingContext(pingCtx); err != nil {
		out["ok"] = false
		out["storage"] = "postgres"
		out["database"] = "down"
		return out, false
	}
	out["storage"] = "postgres"
	out["database"] = "up"
	return out, true
}
