package reports

import (
	"context"
	"time"
)

// Repo defines persistence operations for session report history.
type Repo interface {
	// Append stores the report as the next entry of its session and returns it with Seq set.
	Append(ctx context.Context, report Report) (Report, error)
	// ListBySession returns a session's reports in insertion order.
	ListBySession(ctx context.Context, sessionID string) ([]Report, error)
	GetByID(ctx context.Context, sessionID, reportID string) (Report, error)
	// DeleteSession removes all reports of a session and returns how many were removed.
	DeleteSession(ctx context.Context, sessionID string) (int, error)
	// Touch records activity at time at for a session that has history. Sessions
	// without reports are ignored.
	Touch(ctx context.Context, sessionID string, at time.Time) error
	// DeleteIdleSessions removes sessions whose last activity (a report or a Touch)
	// is older than cutoff and returns how many reports were removed.
	DeleteIdleSessions(ctx context.Context, cutoff time.Time) (int, error)
}
