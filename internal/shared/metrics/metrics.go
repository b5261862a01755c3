package metrics

import (
	"bytes"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/gin-gonic/gin"
)

var durationBoundsMs = []float64{500, 1000, 2500, 5000, 10000, 30000, 60000, 120000}

type collector interface {
	writeTo(buf *bytes.Buffer)
}

var (
	analysisStarted   = newCounter("medscan_analysis_started_total", "Total image analyses started")
	analysisCompleted = newCounter("medscan_analysis_completed_total", "Total image analyses that produced a report")
	analysisFailed    = newCounter("medscan_analysis_failed_total", "Total image analyses that produced an error report")
	sessionsEnded     = newCounter("medscan_sessions_ended_total", "Total sessions ended")
	reportExports     = newLabeledCounter("medscan_report_exports_total", "Report downloads by format", "format", "txt", "pdf")
	analysisDuration  = newHistogram("medscan_analysis_duration_ms", "Image analysis duration in milliseconds", durationBoundsMs)

	registry = []collector{analysisStarted, analysisCompleted, analysisFailed, sessionsEnded, reportExports, analysisDuration}
)

func IncAnalysisStarted()   { analysisStarted.inc() }
func IncAnalysisCompleted() { analysisCompleted.inc() }
func IncAnalysisFailed()    { analysisFailed.inc() }

// IncSessionEnded counts sessions whose history was destroyed.
func IncSessionEnded() { sessionsEnded.inc() }

// IncExport counts a report download. Unknown formats are counted as txt.
func IncExport(format string) {
	if format != "pdf" {
		format = "txt"
	}
	reportExports.inc(format)
}

// ObserveAnalysisDurationMs records one analysis; negative values clamp to zero.
func ObserveAnalysisDurationMs(value float64) {
	analysisDuration.observe(max(value, 0))
}

// Handler serves the registry in Prometheus text exposition format.
func Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Data(http.StatusOK, "text/plain; version=0.0.4; charset=utf-8", []byte(Render()))
	}
}

// Render writes every registered collector in registration order.
func Render() string {
	var buf bytes.Buffer
	for _, col := range registry {
		col.writeTo(&buf)
	}
	return buf.String()
}

type counter struct {
	name, help string
	value      atomic.Uint64
}

func newCounter(name, help string) *counter {
	return &counter{name: name, help: help}
}

func (c *counter) inc() { c.value.Add(1) }

func (c *counter) writeTo(buf *bytes.Buffer) {
	writeHeader(buf, c.name, c.help, "counter")
	fmt.Fprintf(buf, "%s %d\n", c.name, c.value.Load())
}

// labeledCounter has one series per label value. Values are fixed at construction.
type labeledCounter struct {
	name, help, label string
	series            map[string]*atomic.Uint64
}

func newLabeledCounter(name, help, label string, values ...string) *labeledCounter {
	lc := &labeledCounter{name: name, help: help, label: label, series: make(map[string]*atomic.Uint64, len(values))}
	for _, v := range values {
		lc.series[v] = new(atomic.Uint64)
	}
	return lc
}

func (lc *labeledCounter) inc(value string) {
	if s, ok := lc.series[value]; ok {
		s.Add(1)
	}
}

func (lc *labeledCounter) writeTo(buf *bytes.Buffer) {
	writeHeader(buf, lc.name, lc.help, "counter")
	keys := make([]string, 0, len(lc.series))
	for k := range lc.series {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(buf, "%s{%s=%q} %d\n", lc.name, lc.label, k, lc.series[k].Load())
	}
}

type histogram struct {
	name, help string
	bounds     []float64

	mu     sync.Mutex
	counts []uint64 // per bucket, not cumulative; the last slot is +Inf
	sum    float64
}

func newHistogram(name, help string, bounds []float64) *histogram {
	return &histogram{name: name, help: help, bounds: bounds, counts: make([]uint64, len(bounds)+1)}
}

func (h *histogram) observe(value float64) {
	i := sort.SearchFloat64s(h.bounds, value)
	h.mu.Lock()
	h.counts[i]++
	h.sum += value
	h.mu.Unlock()
}

func (h *histogram) writeTo(buf *bytes.Buffer) {
	h.mu.Lock()
	counts := append([]uint64(nil), h.counts...)
	sum := h.sum
	h.mu.Unlock()

	writeHeader(buf, h.name, h.help, "histogram")
	var cumulative uint64
	for i, c := range counts {
		cumulative += c
		le := "+Inf"
		if i < len(h.bounds) {
			le = strconv.FormatFloat(h.bounds[i], 'f', -1, 64)
		}
		fmt.Fprintf(buf, "%s_bucket{le=%q} %d\n", h.name, le, cumulative)
	}
	fmt.Fprintf(buf, "%s_sum %s\n", h.name, strconv.FormatFloat(sum, 'f', -1, 64))
	fmt.Fprintf(buf, "%s_count %d\n", h.name, cumulative)
}

func writeHeader(buf *bytes.Buffer, name, help, kind string) {
	fmt.Fprintf(buf, "# HELP %s %s\n# TYPE %s %s\n", name, help, name, kind)
}
