package reports

import (
	"fmt"
	"mime"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"medscan-backend/internal/export"
	"medscan-backend/internal/shared/metrics"
)

const (
	FormatText = "txt"
	FormatPDF  = "pdf"
)

// Download is a rendered export ready to be sent as an attachment.
type Download struct {
	FileName    string
	ContentType string
	Data        []byte
}

// Render produces the export of rep in the given format ("txt" or "pdf").
func Render(rep Report, format string) (Download, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", FormatText:
		return Download{
			FileName:    export.TextFileName(rep.FileName),
			ContentType: export.ContentTypeText,
			Data:        export.Text(rep.Body),
		}, nil
	case FormatPDF:
		data, err := export.PDF(rep.Body)
		if err != nil {
			return Download{}, err
		}
		return Download{
			FileName:    export.PDFFileName(rep.FileName),
			ContentType: export.ContentTypePDF,
			Data:        data,
		}, nil
	default:
		return Download{}, fmt.Errorf("%w: unknown format %q", ErrInvalidInput, format)
	}
}

// WriteDownload sends d as an attachment.
func WriteDownload(c *gin.Context, d Download, format string) {
	metrics.IncExport(format)
	c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": d.FileName}))
	c.Data(http.StatusOK, d.ContentType, d.Data)
}
