package httpserver

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"authcore/internal/apperr"
	"authcore/internal/authz"
	"authcore/internal/model"
	"authcore/internal/service"
	"authcore/pkg/metrics"
)

const claimsKey = "claims"

func extractBearer(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return ""
	}

	parts := strings.Split(auth, " ")
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return ""
	}

	return parts[1]
}

// AuthMiddleware validates the bearer token and stores the claim set on the
// request context. Why the token was rejected is never surfaced.
func AuthMiddleware(auth *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := auth.ValidateToken(c.Request.Context(), extractBearer(c.Request))
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "not authorized"})
			c.Abort()
			return
		}
		c.Set(claimsKey, claims)
		c.Next()
	}
}

func claimsFrom(c *gin.Context) (model.ClaimSet, bool) {
	v, ok := c.Get(claimsKey)
	if !ok {
		return model.ClaimSet{}, false
	}
	claims, ok := v.(model.ClaimSet)
	return claims, ok
}

// RequireSuperAdmin gates the global admin surface. The denial is generic;
// which rule failed is not leaked.
func RequireSuperAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := claimsFrom(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "not authorized"})
			c.Abort()
			return
		}

		allowed := authz.CanAccessGlobalUserManagement(claims.IsSuperAdmin)
		metrics.RecordAccessDecision(allowed)
		if !allowed {
			c.JSON(http.StatusForbidden, gin.H{"error": "not authorized"})
			c.Abort()
			return
		}
		c.Next()
	}
}

// statusFor maps the error taxonomy onto HTTP statuses.
func statusFor(err error) int {
	switch apperr.KindOf(err) {
	case apperr.KindUnauthorized:
		return http.StatusUnauthorized
	case apperr.KindForbidden:
		return http.StatusForbidden
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindStorage:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
