package metrics

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestHistogramBucketsAreCumulative(t *testing.T) {
	h := newHistogram("h", "test", []float64{10, 100})
	h.observe(5)
	h.observe(10)
	h.observe(50)
	h.observe(500)

	var out bytes.Buffer
	h.writeTo(&out)
	for _, want := range []string{
		"# TYPE h histogram",
		`h_bucket{le="10"} 2`,
		`h_bucket{le="100"} 3`,
		`h_bucket{le="+Inf"} 4`,
		"h_sum 565",
		"h_count 4",
	} {
		if !strings.Contains(out.String(), want) {
			t.Fatalf("expected %q in:\n%s", want, out.String())
		}
	}
}

func TestLabeledCounterIgnoresUnknownValues(t *testing.T) {
	lc := newLabeledCounter("x_total", "test", "format", "txt", "pdf")
	lc.inc("pdf")
	lc.inc("docx")

	var out bytes.Buffer
	lc.writeTo(&out)
	got := out.String()
	if !strings.Contains(got, `x_total{format="pdf"} 1`) || !strings.Contains(got, `x_total{format="txt"} 0`) {
		t.Fatalf("unexpected series:\n%s", got)
	}
	if strings.Contains(got, "docx") {
		t.Fatalf("unexpected docx series:\n%s", got)
	}
}

func TestHandlerServesPrometheusText(t *testing.T) {
	gin.SetMode(gin.TestMode)
	IncAnalysisStarted()
	IncAnalysisFailed()
	IncExport("pdf")

	r := gin.New()
	r.GET("/metrics", Handler())

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if ct := resp.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Fatalf("unexpected content type: %s", ct)
	}
	body := resp.Body.String()
	for _, want := range []string{
		"# TYPE medscan_analysis_started_total counter",
		"medscan_analysis_failed_total",
		`medscan_report_exports_total{format="pdf"}`,
		"# TYPE medscan_analysis_duration_ms histogram",
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected %q in metrics output", want)
		}
	}
}
