// Package web serves the browser UI: upload form, report history, downloads and comparison.
package web

import (
	"embed"
	"errors"
	"html/template"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	ginrender "github.com/gin-gonic/gin/render"

	"medscan-backend/internal/render"
	"medscan-backend/internal/reports"
	"medscan-backend/internal/shared/server/middleware"
	"medscan-backend/internal/shared/server/respond"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageTemplate = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// Handler wires the HTML pages to the reports service.
type Handler struct {
	Svc            *reports.Service
	MaxUploadBytes int64
	SecureCookies  bool
}

// NewHandler constructs a Handler.
func NewHandler(svc *reports.Service, maxUploadBytes int64) *Handler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = 20 << 20
	}
	return &Handler{Svc: svc, MaxUploadBytes: maxUploadBytes}
}

// RegisterRoutes attaches the UI routes.
func (h *Handler) RegisterRoutes(r gin.IRoutes) {
	r.GET("/", h.index)
	r.POST("/analyze", h.analyze)
	r.GET("/compare", h.compare)
	r.GET("/reports/:id/txt", h.downloadText)
	r.GET("/reports/:id/pdf", h.downloadPDF)
	r.POST("/session/end", h.endSession)
}

type reportView struct {
	ID       string
	Seq      int
	FileName string
	Failed   bool
	HTML     template.HTML
}

type comparisonView struct {
	Left  reportView
	Right reportView
}

type pageData struct {
	Accept     string
	Error      string
	HasHistory bool
	Reports    []reportView
	CanCompare bool
	FileNames  []string
	First      string
	Second     string
	Comparison *comparisonView
}

func toView(rep reports.Report) reportView {
	return reportView{
		ID:       rep.ID,
		Seq:      rep.Seq,
		FileName: rep.FileName,
		Failed:   rep.Failed,
		HTML:     render.MarkdownOrText(rep.Body),
	}
}

func (h *Handler) index(c *gin.Context) {
	h.page(c, http.StatusOK, "", "", "")
}

func (h *Handler) compare(c *gin.Context) {
	h.page(c, http.StatusOK, "", c.Query("first"), c.Query("second"))
}

// page renders the single UI page. Empty first/second fall back to the default selection.
func (h *Handler) page(c *gin.Context, status int, errMsg, first, second string) {
	history, err := h.Svc.History(c.Request.Context(), middleware.SessionIDFromContext(c))
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to load history", nil)
		return
	}

	data := pageData{
		Accept:     acceptList(),
		Error:      errMsg,
		HasHistory: reports.StateOf(history) == reports.StateHasHistory,
		Reports:    make([]reportView, 0, len(history)),
		CanCompare: reports.CanCompare(history),
		FileNames:  reports.FileNames(history),
	}
	for _, rep := range history {
		data.Reports = append(data.Reports, toView(rep))
	}

	if sel, ok := reports.DefaultSelection(history); ok {
		if first == "" {
			first = sel.First
		}
		if second == "" {
			second = sel.Second
		}
		data.First, data.Second = first, second

		cmp, err := reports.Compare(history, first, second)
		switch {
		case err == nil && !cmp.Suppressed:
			data.Comparison = &comparisonView{Left: toView(*cmp.Left), Right: toView(*cmp.Right)}
		case errors.Is(err, reports.ErrNotFound):
			data.Error = "No report found for the selected file name."
			status = http.StatusNotFound
		}
	}

	c.Render(status, ginrender.HTML{Template: pageTemplate, Name: "index.html", Data: data})
}

func (h *Handler) analyze(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.MaxUploadBytes)

	form, err := c.MultipartForm()
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			h.page(c, http.StatusRequestEntityTooLarge, "Upload rejected: the selected files are larger than "+sizeLabel(maxErr.Limit)+" in total.", "", "")
			return
		}
		h.page(c, http.StatusBadRequest, "Please choose one or more images to upload.", "", "")
		return
	}
	uploads, err := reports.UploadsFromForm(form.File["files"])
	if err != nil {
		h.page(c, http.StatusBadRequest, uploadMessage(err), "", "")
		return
	}
	c.Set(middleware.FileCountKey, len(uploads))

	if _, err := h.Svc.AnalyzeBatch(c.Request.Context(), middleware.SessionIDFromContext(c), uploads); err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to record analysis", nil)
		return
	}
	c.Redirect(http.StatusSeeOther, "/")
}

func (h *Handler) downloadText(c *gin.Context) {
	h.download(c, reports.FormatText)
}

func (h *Handler) downloadPDF(c *gin.Context) {
	h.download(c, reports.FormatPDF)
}

func (h *Handler) download(c *gin.Context, format string) {
	reportID := c.Param("id")
	c.Set(middleware.ReportIDKey, reportID)
	rep, err := h.Svc.Get(c.Request.Context(), middleware.SessionIDFromContext(c), reportID)
	if err != nil {
		switch {
		case errors.Is(err, reports.ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "report not found", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch report", nil)
		}
		return
	}
	d, err := reports.Render(rep, format)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to render report", nil)
		return
	}
	reports.WriteDownload(c, d, format)
}

func (h *Handler) endSession(c *gin.Context) {
	if err := h.Svc.EndSession(c.Request.Context(), middleware.SessionIDFromContext(c)); err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to end session", nil)
		return
	}
	middleware.ClearSession(c, h.SecureCookies)
	c.Redirect(http.StatusSeeOther, "/")
}

func acceptList() string {
	exts := make([]string, 0, len(reports.AllowedExtensions))
	for _, ext := range reports.AllowedExtensions {
		exts = append(exts, "."+ext)
	}
	return strings.Join(exts, ",")
}

func sizeLabel(n int64) string {
	switch {
	case n >= 1<<20 && n%(1<<20) == 0:
		return strconv.FormatInt(n>>20, 10) + " MB"
	case n >= 1<<10:
		return strconv.FormatInt(n>>10, 10) + " KB"
	default:
		return strconv.FormatInt(n, 10) + " bytes"
	}
}

func uploadMessage(err error) string {
	msg := err.Error()
	msg = strings.TrimPrefix(msg, reports.ErrInvalidInput.Error()+": ")
	return "Upload rejected: " + msg
}
