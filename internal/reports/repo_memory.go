package reports

import (
	"context"
	"sync"
	"time"
)

// MemoryRepo stores report history in memory and is safe for concurrent use.
type MemoryRepo struct {
	mu        sync.RWMutex
	bySession map[string][]Report
	lastSeen  map[string]time.Time
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		bySession: make(map[string][]Report),
		lastSeen:  make(map[string]time.Time),
	}
}

// Append stores the report at the end of its session history.
func (r *MemoryRepo) Append(ctx context.Context, report Report) (Report, error) {
	if err := ctx.Err(); err != nil {
		return Report{}, err
	}
	if report.SessionID == "" || report.ID == "" {
		return Report{}, ErrInvalidInput
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	history := r.bySession[report.SessionID]
	report.Seq = len(history) + 1
	r.bySession[report.SessionID] = append(history, report)
	if report.CreatedAt.After(r.lastSeen[report.SessionID]) {
		r.lastSeen[report.SessionID] = report.CreatedAt
	}
	return report, nil
}

// ListBySession returns a copy of the session history in insertion order.
func (r *MemoryRepo) ListBySession(ctx context.Context, sessionID string) ([]Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	history := r.bySession[sessionID]
	out := make([]Report, len(history))
	copy(out, history)
	return out, nil
}

// GetByID returns a report from the given session.
func (r *MemoryRepo) GetByID(ctx context.Context, sessionID, reportID string) (Report, error) {
	if err := ctx.Err(); err != nil {
		return Report{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, rep := range r.bySession[sessionID] {
		if rep.ID == reportID {
			return rep, nil
		}
	}
	return Report{}, ErrNotFound
}

// DeleteSession drops the session history.
func (r *MemoryRepo) DeleteSession(ctx context.Context, sessionID string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	n := len(r.bySession[sessionID])
	delete(r.bySession, sessionID)
	delete(r.lastSeen, sessionID)
	return n, nil
}

// Touch moves the session's last activity forward.
func (r *MemoryRepo) Touch(ctx context.Context, sessionID string, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.bySession[sessionID]; !ok {
		return nil
	}
	if at.After(r.lastSeen[sessionID]) {
		r.lastSeen[sessionID] = at
	}
	return nil
}

// DeleteIdleSessions drops every session last active before cutoff.
func (r *MemoryRepo) DeleteIdleSessions(ctx context.Context, cutoff time.Time) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for sessionID, history := range r.bySession {
		if r.lastSeen[sessionID].Before(cutoff) {
			delete(r.bySession, sessionID)
			delete(r.lastSeen, sessionID)
			removed += len(history)
		}
	}
	return removed, nil
}

var _ Repo = (*MemoryRepo)(nil)
