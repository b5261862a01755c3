package reports

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"medscan-backend/internal/imaging"
	"medscan-backend/internal/llm"
	"medscan-backend/internal/shared/metrics"
	"medscan-backend/internal/shared/storage/object"
	"medscan-backend/internal/shared/telemetry"
)

// Upload is one file of a submission. Open is called once, when the file's turn comes.
type Upload struct {
	FileName string
	Open     func() (io.ReadCloser, error)
}

// Service contains business logic for session report history.
type Service struct {
	Repo  Repo
	Store object.ObjectStore
	LLM   llm.Client
	Now   func() time.Time
}

// AnalyzeBatch analyzes uploads one after another, in order, appending a report for each.
// It stops early only when the history itself cannot be written.
func (s *Service) AnalyzeBatch(ctx context.Context, sessionID string, uploads []Upload) ([]Report, error) {
	if len(uploads) == 0 {
		return nil, fmt.Errorf("%w: no files", ErrInvalidInput)
	}
	out := make([]Report, 0, len(uploads))
	for _, up := range uploads {
		rep, err := s.analyzeUpload(ctx, sessionID, up)
		if err != nil {
			return out, err
		}
		out = append(out, rep)
	}
	return out, nil
}

// AnalyzeUpload runs the image pipeline for one file and appends the outcome to the session history.
// Pipeline failures become an error report; only invalid input or a repo failure is returned as an error.
func (s *Service) AnalyzeUpload(ctx context.Context, sessionID, fileName string, r io.Reader) (Report, error) {
	return s.analyzeUpload(ctx, sessionID, Upload{
		FileName: fileName,
		Open:     func() (io.ReadCloser, error) { return io.NopCloser(r), nil },
	})
}

func (s *Service) analyzeUpload(ctx context.Context, sessionID string, up Upload) (Report, error) {
	if strings.TrimSpace(sessionID) == "" {
		return Report{}, fmt.Errorf("%w: session id is required", ErrInvalidInput)
	}
	if strings.TrimSpace(up.FileName) == "" {
		return Report{}, fmt.Errorf("%w: file name is required", ErrInvalidInput)
	}

	metrics.IncAnalysisStarted()
	start := time.Now()

	rep := Report{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		FileName:  up.FileName,
	}
	body, err := s.analyze(ctx, sessionID, up)
	durationMs := float64(time.Since(start).Microseconds()) / 1000.0
	metrics.ObserveAnalysisDurationMs(durationMs)

	if err != nil {
		rep.Body = ErrorMarker + err.Error()
		rep.Failed = true
		metrics.IncAnalysisFailed()
		telemetry.Error("analysis.failed", map[string]any{
			"report_id":   rep.ID,
			"session_id":  sessionID,
			"file_name":   up.FileName,
			"duration_ms": durationMs,
			"error":       err.Error(),
		})
	} else {
		rep.Body = body
		metrics.IncAnalysisCompleted()
		telemetry.Info("analysis.complete", map[string]any{
			"report_id":   rep.ID,
			"session_id":  sessionID,
			"file_name":   up.FileName,
			"duration_ms": durationMs,
			"report_len":  len(body),
		})
	}

	rep.CreatedAt = s.now()
	// The history write must happen even if the request was cancelled mid-analysis.
	stored, err := s.Repo.Append(context.WithoutCancel(ctx), rep)
	if err != nil {
		return Report{}, fmt.Errorf("append report: %w", err)
	}
	return stored, nil
}

// analyze stores the upload in scratch storage, normalizes it and asks the model for a report.
// The scratch file is removed on every return path.
func (s *Service) analyze(ctx context.Context, sessionID string, up Upload) (report string, err error) {
	if s.Store == nil || s.LLM == nil {
		return "", errors.New("analysis pipeline not configured")
	}

	src, err := up.Open()
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	key, _, _, err := s.Store.Save(ctx, sessionID, up.FileName, src)
	src.Close()
	if err != nil {
		return "", scratchFailure("save", sessionID, err)
	}
	defer func() {
		if delErr := s.Store.Delete(context.WithoutCancel(ctx), key); delErr != nil {
			telemetry.Warn("analysis.cleanup_failed", map[string]any{
				"session_id": sessionID,
				"key":        key,
				"error":      delErr.Error(),
			})
		}
	}()

	rc, err := s.Store.Open(ctx, key)
	if err != nil {
		return "", scratchFailure("open", sessionID, err)
	}
	data, err := io.ReadAll(rc)
	rc.Close()
	if err != nil {
		return "", scratchFailure("read", sessionID, err)
	}

	norm, err := imaging.Normalize(data)
	if err != nil {
		return "", err
	}

	return s.callModel(ctx, llm.ImageInput{
		FileName: up.FileName,
		MIMEType: norm.MIMEType(),
		Data:     norm.PNG,
	})
}

// scratchFailure logs the storage error and returns one that is safe to show in a report.
// Store errors can carry filesystem paths or bucket names.
func scratchFailure(op, sessionID string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	telemetry.Error("analysis.scratch_failed", map[string]any{
		"op":         op,
		"session_id": sessionID,
		"error":      err.Error(),
	})
	return fmt.Errorf("%w (%s)", ErrScratchStorage, op)
}

func (s *Service) callModel(ctx context.Context, input llm.ImageInput) (text string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("model client panicked: %v", rec)
		}
	}()
	text, err = s.LLM.AnalyzeImage(ctx, input)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return "", llm.ErrEmptyResponse
	}
	return text, nil
}

// History returns the session's reports in submission order.
func (s *Service) History(ctx context.Context, sessionID string) ([]Report, error) {
	if sessionID == "" {
		return []Report{}, nil
	}
	return s.Repo.ListBySession(ctx, sessionID)
}

// State reports whether the session has any history yet.
func (s *Service) State(ctx context.Context, sessionID string) (State, error) {
	history, err := s.History(ctx, sessionID)
	if err != nil {
		return "", err
	}
	return StateOf(history), nil
}

// Get returns one report from the session.
func (s *Service) Get(ctx context.Context, sessionID, reportID string) (Report, error) {
	if sessionID == "" || reportID == "" {
		return Report{}, ErrNotFound
	}
	return s.Repo.GetByID(ctx, sessionID, reportID)
}

// Compare builds the side-by-side view for two filenames of the session.
func (s *Service) Compare(ctx context.Context, sessionID, first, second string) (Comparison, error) {
	history, err := s.History(ctx, sessionID)
	if err != nil {
		return Comparison{}, err
	}
	return Compare(history, first, second)
}

// EndSession destroys the session's history.
func (s *Service) EndSession(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	n, err := s.Repo.DeleteSession(ctx, sessionID)
	if err != nil {
		return err
	}
	metrics.IncSessionEnded()
	telemetry.Info("session.ended", map[string]any{
		"session_id": sessionID,
		"reports":    n,
	})
	return nil
}

// Touch records that the session is still in use, so PurgeIdle keeps its history.
// Failures are logged; activity tracking never fails a request.
func (s *Service) Touch(ctx context.Context, sessionID string) {
	if sessionID == "" {
		return
	}
	if err := s.Repo.Touch(ctx, sessionID, s.now()); err != nil {
		telemetry.Warn("session.touch_failed", map[string]any{
			"session_id": sessionID,
			"error":      err.Error(),
		})
	}
}

// PurgeIdle destroys histories of sessions with no activity for longer than ttl.
func (s *Service) PurgeIdle(ctx context.Context, ttl time.Duration) (int, error) {
	if ttl <= 0 {
		return 0, nil
	}
	n, err := s.Repo.DeleteIdleSessions(ctx, s.now().Add(-ttl))
	if err != nil {
		return 0, err
	}
	if n > 0 {
		telemetry.Info("session.purged", map[string]any{"reports": n, "ttl": ttl.String()})
	}
	return n, nil
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}
