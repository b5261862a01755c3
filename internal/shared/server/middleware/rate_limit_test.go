package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

// limitedRouter serves /scans (ANALYSIS) and /history (DEFAULT) for one fixed session.
func limitedRouter(rules map[string]RateLimitRule) *gin.Engine {
	gin.SetMode(gin.TestMode)
	frozen := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(sessionIDKey, "session-1")
		c.Next()
	})
	r.Use(RateLimit(RateLimitConfig{
		Limiter: NewRateLimiter(func() time.Time { return frozen }),
		Rules:   rules,
		GroupFor: func(c *gin.Context) string {
			if c.FullPath() == "/scans" {
				return "ANALYSIS"
			}
			return ""
		},
	}))
	ok := func(c *gin.Context) { c.Status(http.StatusNoContent) }
	r.POST("/scans", ok)
	r.GET("/history", ok)
	return r
}

func hit(r http.Handler, method, path string) *httptest.ResponseRecorder {
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(method, path, nil))
	return resp
}

func TestRateLimitGroupsHaveSeparateBuckets(t *testing.T) {
	r := limitedRouter(map[string]RateLimitRule{
		"DEFAULT":  {Rate: 5, Burst: 10},
		"ANALYSIS": {Rate: 0.2, Burst: 2},
	})

	steps := []struct {
		method string
		path   string
		want   int
	}{
		{http.MethodPost, "/scans", http.StatusNoContent},
		{http.MethodPost, "/scans", http.StatusNoContent},
		{http.MethodPost, "/scans", http.StatusTooManyRequests},
		{http.MethodGet, "/history", http.StatusNoContent},
		{http.MethodGet, "/history", http.StatusNoContent},
		{http.MethodPost, "/scans", http.StatusTooManyRequests},
	}
	for i, st := range steps {
		if got := hit(r, st.method, st.path).Code; got != st.want {
			t.Fatalf("step %d %s %s: expected %d, got %d", i+1, st.method, st.path, st.want, got)
		}
	}
}

func TestRateLimitUnknownGroupIsUnlimited(t *testing.T) {
	r := limitedRouter(map[string]RateLimitRule{"ANALYSIS": {Rate: 1, Burst: 1}})
	for i := 0; i < 50; i++ {
		if got := hit(r, http.MethodGet, "/history").Code; got != http.StatusNoContent {
			t.Fatalf("request %d: expected 204, got %d", i+1, got)
		}
	}
}

func TestRateLimit429IncludesRetryAfter(t *testing.T) {
	r := limitedRouter(map[string]RateLimitRule{"ANALYSIS": {Rate: 0.2, Burst: 1}})

	if got := hit(r, http.MethodPost, "/scans").Code; got != http.StatusNoContent {
		t.Fatalf("expected first request 204, got %d", got)
	}
	resp := hit(r, http.MethodPost, "/scans")
	if resp.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", resp.Code)
	}
	if got := resp.Header().Get("Retry-After"); got != "5" {
		t.Fatalf("expected Retry-After 5, got %q", got)
	}

	var payload struct {
		Error struct {
			Code    string         `json:"code"`
			Details map[string]any `json:"details"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.Error.Code != "rate_limited" {
		t.Fatalf("expected code rate_limited, got %q", payload.Error.Code)
	}
	if payload.Error.Details["group"] != "ANALYSIS" || payload.Error.Details["retryAfterMs"] != float64(5000) {
		t.Fatalf("unexpected details: %v", payload.Error.Details)
	}
}

func TestRateLimiterRefillsAndSweepsIdleBuckets(t *testing.T) {
	now := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	limiter := NewRateLimiter(func() time.Time { return now })
	rule := RateLimitRule{Rate: 1, Burst: 1}

	if ok, _ := limiter.Allow("a|DEFAULT", rule); !ok {
		t.Fatalf("expected first token")
	}
	ok, wait := limiter.Allow("a|DEFAULT", rule)
	if ok || wait != time.Second {
		t.Fatalf("expected 1s wait, got ok=%v wait=%s", ok, wait)
	}

	now = now.Add(time.Second)
	if ok, _ := limiter.Allow("a|DEFAULT", rule); !ok {
		t.Fatalf("expected refill after one second")
	}

	now = now.Add(bucketIdleTTL)
	if ok, _ := limiter.Allow("b|DEFAULT", rule); !ok {
		t.Fatalf("expected token for new key")
	}
	if got := limiter.Len(); got != 1 {
		t.Fatalf("expected idle bucket swept, got %d buckets", got)
	}
}
