package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// SessionCookie carries the browser session identifier.
	SessionCookie = "medscan_session"

	sessionIDKey = "sessionId"
)

// SessionOptions configures the session cookie.
type SessionOptions struct {
	TTL    time.Duration
	Secure bool

	// OnActivity, when set, is called for every request that presents an existing session.
	OnActivity func(ctx context.Context, sessionID string)
}

// Session ensures every request carries a session id, issuing a cookie on first visit.
// Malformed cookie values are replaced with a fresh id.
func Session(opts SessionOptions) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		id := ""
		if raw, err := c.Cookie(SessionCookie); err == nil {
			if parsed, err := uuid.Parse(strings.TrimSpace(raw)); err == nil {
				id = parsed.String()
			}
		}
		if id == "" {
			id = uuid.NewString()
		} else if opts.OnActivity != nil {
			opts.OnActivity(c.Request.Context(), id)
		}
		// Refresh on every request so TTL counts from the last activity.
		setSessionCookie(c, id, opts)
		c.Set(sessionIDKey, id)
		c.Next()
	}
}

// ClearSession expires the session cookie on the client.
func ClearSession(c *gin.Context, secure bool) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookie, "", -1, "/", "", secure, true)
}

// SessionIDFromContext fetches the session ID set by the session middleware.
func SessionIDFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	val, _ := c.Get(sessionIDKey)
	if id, ok := val.(string); ok {
		return id
	}
	return ""
}

func setSessionCookie(c *gin.Context, id string, opts SessionOptions) {
	maxAge := int(opts.TTL / time.Second)
	if maxAge <= 0 {
		maxAge = int((24 * time.Hour) / time.Second)
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookie, id, maxAge, "/", "", opts.Secure, true)
}
