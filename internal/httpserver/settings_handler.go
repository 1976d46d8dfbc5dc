package httpserver

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"authcore/internal/service"
)

// SettingsStore is the slice of the settings repository the admin surface
// needs. Reads resolve tenant values with a fallback to the global row.
type SettingsStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	GetForTenant(ctx context.Context, key string, tenantID int) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

type SettingsHandler struct {
	settings SettingsStore
	audit    *service.AuditRecorder
}

func NewSettingsHandler(settings SettingsStore, audit *service.AuditRecorder) *SettingsHandler {
	return &SettingsHandler{settings: settings, audit: audit}
}

// Get handles GET /admin/settings/:key. An optional tenant_id query param
// resolves the tenant-scoped value, falling back to the global one.
func (h *SettingsHandler) Get(c *gin.Context) {
	key := c.Param("key")

	var (
		value string
		found bool
		err   error
	)
	if raw := c.Query("tenant_id"); raw != "" {
		tenantID, convErr := strconv.Atoi(raw)
		if convErr != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid tenant_id"})
			return
		}
		value, found, err = h.settings.GetForTenant(c.Request.Context(), key, tenantID)
	} else {
		value, found, err = h.settings.Get(c.Request.Context(), key)
	}
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "failed to read setting"})
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "setting not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"key": key, "value": value})
}

// Set handles PUT /admin/settings/:key, upserting the global value.
func (h *SettingsHandler) Set(c *gin.Context) {
	key := c.Param("key")

	var req struct {
		Value string `json:"value"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	if err := h.settings.Set(c.Request.Context(), key, req.Value); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "failed to write setting"})
		return
	}

	if claims, ok := claimsFrom(c); ok {
		ip := c.ClientIP()
		h.audit.Record(c.Request.Context(), service.AuditEvent{
			Action:     "setting.updated",
			Resource:   "setting",
			ResourceID: &key,
			IPAddress:  &ip,
			UserID:     &claims.UserID,
			TenantID:   claims.TenantID,
		})
	}

	c.JSON(http.StatusOK, gin.H{"key": key, "updated": true})
}
