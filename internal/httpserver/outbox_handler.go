package httpserver

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"authcore/internal/outbox"
	"authcore/internal/service"
)

type OutboxHandler struct {
	engine *outbox.Engine
	audit  *service.AuditRecorder
}

func NewOutboxHandler(engine *outbox.Engine, audit *service.AuditRecorder) *OutboxHandler {
	return &OutboxHandler{engine: engine, audit: audit}
}

// Stats handles GET /admin/outbox/stats
func (h *OutboxHandler) Stats(c *gin.Context) {
	stats, err := h.engine.Stats(c.Request.Context())
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": "failed to read outbox stats"})
		return
	}
	c.JSON(http.StatusOK, stats)
}

// Drain handles POST /admin/outbox/drain. The atomic claim in the engine
// makes this safe to trigger while the background sweep is running.
func (h *OutboxHandler) Drain(c *gin.Context) {
	processed, err := h.engine.DrainDue(c.Request.Context(), time.Now())
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": "drain failed"})
		return
	}

	if claims, ok := claimsFrom(c); ok {
		ip := c.ClientIP()
		details := strconv.Itoa(processed) + " items processed"
		h.audit.Record(c.Request.Context(), service.AuditEvent{
			Action:    "outbox.drained",
			Resource:  "email_outbox",
			Details:   &details,
			IPAddress: &ip,
			UserID:    &claims.UserID,
			TenantID:  claims.TenantID,
		})
	}

	c.JSON(http.StatusOK, gin.H{"processed": processed})
}
