package health

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"medscan-backend/internal/shared/server/respond"
)

// Handler exposes the health endpoint.
func Handler(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		status, ok := svc.Status(c.Request.Context())
		if !ok {
			respond.JSON(c, http.StatusServiceUnavailable, status)
			return
		}
		respond.OK(c, status)
	}
}
