package reports

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"medscan-backend/internal/shared/server/middleware"
	"medscan-backend/internal/shared/server/respond"
)

const defaultMaxUploadBytes = 20 << 20

// Handler wires the JSON API to the reports service.
type Handler struct {
	Svc            *Service
	MaxUploadBytes int64
	SecureCookies  bool
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service, maxUploadBytes int64) *Handler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = defaultMaxUploadBytes
	}
	return &Handler{Svc: svc, MaxUploadBytes: maxUploadBytes}
}

// RegisterRoutes attaches report routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/session", h.getSession)
	rg.DELETE("/session", h.endSession)
	rg.POST("/analyses", h.analyze)
	rg.GET("/reports/:id", h.getReport)
	rg.GET("/reports/:id/download", h.download)
	rg.GET("/compare", h.compare)
}

type reportResponse struct {
	ID        string    `json:"id"`
	Seq       int       `json:"seq"`
	FileName  string    `json:"fileName"`
	Report    string    `json:"report"`
	Failed    bool      `json:"failed"`
	CreatedAt time.Time `json:"createdAt"`
}

func toResponse(rep Report) reportResponse {
	return reportResponse{
		ID:        rep.ID,
		Seq:       rep.Seq,
		FileName:  rep.FileName,
		Report:    rep.Body,
		Failed:    rep.Failed,
		CreatedAt: rep.CreatedAt,
	}
}

func toResponses(history []Report) []reportResponse {
	out := make([]reportResponse, 0, len(history))
	for _, rep := range history {
		out = append(out, toResponse(rep))
	}
	return out
}

func (h *Handler) getSession(c *gin.Context) {
	sessionID := middleware.SessionIDFromContext(c)
	history, err := h.Svc.History(c.Request.Context(), sessionID)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to load history", nil)
		return
	}

	resp := gin.H{
		"sessionId":  sessionID,
		"state":      StateOf(history),
		"reports":    toResponses(history),
		"fileNames":  FileNames(history),
		"canCompare": CanCompare(history),
	}
	if sel, ok := DefaultSelection(history); ok {
		resp["defaultSelection"] = gin.H{"first": sel.First, "second": sel.Second}
	}
	respond.OK(c, resp)
}

func (h *Handler) endSession(c *gin.Context) {
	sessionID := middleware.SessionIDFromContext(c)
	if err := h.Svc.EndSession(c.Request.Context(), sessionID); err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to end session", nil)
		return
	}
	middleware.ClearSession(c, h.SecureCookies)
	respond.NoContent(c)
}

func (h *Handler) analyze(c *gin.Context) {
	sessionID := middleware.SessionIDFromContext(c)
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.MaxUploadBytes)

	form, err := c.MultipartForm()
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			respond.Error(c, http.StatusRequestEntityTooLarge, "validation_error", "upload too large", nil)
			return
		}
		respond.Error(c, http.StatusBadRequest, "validation_error", "multipart form with files is required", nil)
		return
	}
	uploads, err := UploadsFromForm(form.File["files"])
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		return
	}
	c.Set(middleware.FileCountKey, len(uploads))

	created, err := h.Svc.AnalyzeBatch(c.Request.Context(), sessionID, uploads)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidInput):
			respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to record analysis", nil)
		}
		return
	}

	respond.Created(c, gin.H{"reports": toResponses(created)})
}

func (h *Handler) getReport(c *gin.Context) {
	rep, ok := h.lookup(c)
	if !ok {
		return
	}
	respond.OK(c, toResponse(rep))
}

func (h *Handler) download(c *gin.Context) {
	rep, ok := h.lookup(c)
	if !ok {
		return
	}
	format := strings.ToLower(c.DefaultQuery("format", FormatText))
	d, err := Render(rep, format)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidInput):
			respond.Error(c, http.StatusBadRequest, "validation_error", "format must be txt or pdf", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to render report", nil)
		}
		return
	}
	WriteDownload(c, d, format)
}

func (h *Handler) compare(c *gin.Context) {
	sessionID := middleware.SessionIDFromContext(c)
	first := c.Query("first")
	second := c.Query("second")
	if first == "" || second == "" {
		history, err := h.Svc.History(c.Request.Context(), sessionID)
		if err != nil {
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to load history", nil)
			return
		}
		if sel, ok := DefaultSelection(history); ok {
			if first == "" {
				first = sel.First
			}
			if second == "" {
				second = sel.Second
			}
		}
	}

	cmp, err := h.Svc.Compare(c.Request.Context(), sessionID, first, second)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotEnoughReports):
			respond.Error(c, http.StatusConflict, "comparison_unavailable", "at least two reports are needed to compare", nil)
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "report not found for file name", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to compare reports", nil)
		}
		return
	}

	resp := gin.H{
		"first":      cmp.First,
		"second":     cmp.Second,
		"suppressed": cmp.Suppressed,
	}
	if !cmp.Suppressed {
		resp["left"] = toResponse(*cmp.Left)
		resp["right"] = toResponse(*cmp.Right)
	}
	respond.OK(c, resp)
}

func (h *Handler) lookup(c *gin.Context) (Report, bool) {
	reportID := c.Param("id")
	if reportID == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "report id is required", nil)
		return Report{}, false
	}
	c.Set(middleware.ReportIDKey, reportID)
	rep, err := h.Svc.Get(c.Request.Context(), middleware.SessionIDFromContext(c), reportID)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "report not found", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch report", nil)
		}
		return Report{}, false
	}
	return rep, true
}
