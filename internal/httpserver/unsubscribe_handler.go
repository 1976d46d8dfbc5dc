package httpserver

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"authcore/internal/service"
)

// UnsubscribeHandler consumes purpose tokens from one-click unsubscribe
// links. The token alone authorizes the change; no session is involved.
type UnsubscribeHandler struct {
	auth  *service.AuthService
	audit *service.AuditRecorder
}

func NewUnsubscribeHandler(auth *service.AuthService, audit *service.AuditRecorder) *UnsubscribeHandler {
	return &UnsubscribeHandler{auth: auth, audit: audit}
}

// Unsubscribe handles GET /unsubscribe?token=...
func (h *UnsubscribeHandler) Unsubscribe(c *gin.Context) {
	claims, err := h.auth.VerifyPurposeToken(c.Request.Context(), c.Query("token"))
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": "not authorized"})
		return
	}

	ip := c.ClientIP()
	details := claims.Category + "/" + claims.Channel
	h.audit.Record(c.Request.Context(), service.AuditEvent{
		Action:    "notification.unsubscribed",
		Resource:  "notification_preference",
		Details:   &details,
		IPAddress: &ip,
		UserID:    &claims.UserID,
		TenantID:  claims.TenantID,
	})

	c.JSON(http.StatusOK, gin.H{
		"unsubscribed": true,
		"category":     claims.Category,
		"channel":      claims.Channel,
	})
}
