package reports

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

// Append inserts the report with the next sequence number for its session.
// The session row is upserted first; its row lock makes concurrent appends to
// one session take turns, so MAX(seq)+1 never collides.
func (r *PGRepo) Append(ctx context.Context, report Report) (Report, error) {
	if report.SessionID == "" || report.ID == "" {
		return Report{}, ErrInvalidInput
	}
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return Report{}, err
	}
	defer func() { _ = tx.Rollback() }()

	const upsertSession = `
INSERT INTO sessions (session_id, last_seen_at)
VALUES ($1, $2)
ON CONFLICT (session_id) DO UPDATE SET last_seen_at = GREATEST(sessions.last_seen_at, EXCLUDED.last_seen_at)`
	if _, err := tx.ExecContext(ctx, upsertSession, report.SessionID, report.CreatedAt); err != nil {
		return Report{}, fmt.Errorf("upsert session: %w", err)
	}

	const insertReport = `
INSERT INTO reports (id, session_id, seq, file_name, body, failed, created_at)
VALUES ($1, $2, (SELECT COALESCE(MAX(seq), 0) + 1 FROM reports WHERE session_id = $2), $3, $4, $5, $6)
RETURNING seq`
	err = tx.QueryRowContext(ctx, insertReport,
		report.ID,
		report.SessionID,
		report.FileName,
		report.Body,
		report.Failed,
		report.CreatedAt,
	).Scan(&report.Seq)
	if err != nil {
		return Report{}, err
	}
	if err := tx.Commit(); err != nil {
		return Report{}, err
	}
	return report, nil
}

// ListBySession returns a session's reports ordered by sequence.
func (r *PGRepo) ListBySession(ctx context.Context, sessionID string) ([]Report, error) {
	const query = `
SELECT id, session_id, seq, file_name, body, failed, created_at
FROM reports
WHERE session_id = $1
ORDER BY seq ASC`
	rows, err := r.DB.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Report{}
	for rows.Next() {
		rep, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rep)
	}
	return out, rows.Err()
}

// GetByID returns a report scoped to its session.
func (r *PGRepo) GetByID(ctx context.Context, sessionID, reportID string) (Report, error) {
	const query = `
SELECT id, session_id, seq, file_name, body, failed, created_at
FROM reports
WHERE id = $1 AND session_id = $2
LIMIT 1`
	rep, err := scanReport(r.DB.QueryRowContext(ctx, query, reportID, sessionID))
	if errors.Is(err, sql.ErrNoRows) {
		return Report{}, ErrNotFound
	}
	return rep, err
}

// DeleteSession removes every report of the session along with its activity row.
func (r *PGRepo) DeleteSession(ctx context.Context, sessionID string) (int, error) {
	const query = `
WITH gone AS (DELETE FROM sessions WHERE session_id = $1)
DELETE FROM reports WHERE session_id = $1`
	res, err := r.DB.ExecContext(ctx, query, sessionID)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

// Touch moves last_seen_at forward for a session that has history.
func (r *PGRepo) Touch(ctx context.Context, sessionID string, at time.Time) error {
	const query = `UPDATE sessions SET last_seen_at = $2 WHERE session_id = $1 AND last_seen_at < $2`
	_, err := r.DB.ExecContext(ctx, query, sessionID, at)
	return err
}

// DeleteIdleSessions removes sessions last active before cutoff, reports included.
func (r *PGRepo) DeleteIdleSessions(ctx context.Context, cutoff time.Time) (int, error) {
	const query = `
WITH idle AS (
	DELETE FROM sessions WHERE last_seen_at < $1 RETURNING session_id
)
DELETE FROM reports WHERE session_id IN (SELECT session_id FROM idle)`
	res, err := r.DB.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReport(row rowScanner) (Report, error) {
	var rep Report
	if err := row.Scan(&rep.ID, &rep.SessionID, &rep.Seq, &rep.FileName, &rep.Body, &rep.Failed, &rep.CreatedAt); err != nil {
		return Report{}, err
	}
	rep.CreatedAt = rep.CreatedAt.UTC()
	return rep, nil
}

var _ Repo = (*PGRepo)(nil)
