package httpserver

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"authcore/internal/service"
)

type AuthHandler struct {
	auth  *service.AuthService
	trust *service.DeviceTrustService
}

func NewAuthHandler(auth *service.AuthService, trust *service.DeviceTrustService) *AuthHandler {
	return &AuthHandler{auth: auth, trust: trust}
}

// Login handles POST /login
func (h *AuthHandler) Login(c *gin.Context) {
	var req struct {
		Email             string `json:"email"`
		Password          string `json:"password"`
		DeviceFingerprint string `json:"device_fingerprint"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	ip := c.ClientIP()
	ua := c.Request.UserAgent()
	res, err := h.auth.Login(c.Request.Context(), service.LoginRequest{
		Email:             req.Email,
		Password:          req.Password,
		DeviceFingerprint: req.DeviceFingerprint,
		IPAddress:         &ip,
		UserAgent:         &ua,
	})
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	if res.SecondFactorRequired {
		c.JSON(http.StatusOK, gin.H{
			"second_factor_required": true,
			"pending_token":          res.PendingToken,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": res.Token})
}

// LoginSecondFactor handles POST /login/2fa. It redeems the pending token
// from Login against a TOTP code and returns the real session token.
func (h *AuthHandler) LoginSecondFactor(c *gin.Context) {
	var req struct {
		PendingToken      string `json:"pending_token"`
		Code              string `json:"code"`
		DeviceFingerprint string `json:"device_fingerprint"`
		RememberDevice    bool   `json:"remember_device"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	ip := c.ClientIP()
	ua := c.Request.UserAgent()
	res, err := h.auth.CompleteSecondFactor(c.Request.Context(), service.SecondFactorRequest{
		PendingToken:      req.PendingToken,
		Code:              req.Code,
		DeviceFingerprint: req.DeviceFingerprint,
		RememberDevice:    req.RememberDevice,
		IPAddress:         &ip,
		UserAgent:         &ua,
	})
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": res.Token})
}

// Session handles GET /session
func (h *AuthHandler) Session(c *gin.Context) {
	claims, ok := claimsFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authorized"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user_id":     claims.UserID,
		"tenant_id":   claims.TenantID,
		"super_admin": claims.IsSuperAdmin,
		"expires_at":  claims.ExpiresAt,
	})
}

// TrustDevice handles POST /devices/trust. Called after the second factor
// succeeded; the grant exempts this device from it for a while.
func (h *AuthHandler) TrustDevice(c *gin.Context) {
	claims, ok := claimsFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authorized"})
		return
	}

	var req struct {
		DeviceFingerprint string `json:"device_fingerprint"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	ip := c.ClientIP()
	ua := c.Request.UserAgent()
	rec, err := h.trust.Grant(c.Request.Context(), claims.UserID, req.DeviceFingerprint, &ip, &ua, 0)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"trusted":    true,
		"expires_at": rec.ExpiresAt,
	})
}
