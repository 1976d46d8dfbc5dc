package httpserver

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"authcore/internal/service"
)

type Router struct {
	Engine *gin.Engine
}

func NewRouter(
	auth *service.AuthService,
	authHandler *AuthHandler,
	unsubscribeHandler *UnsubscribeHandler,
	outboxHandler *OutboxHandler,
	settingsHandler *SettingsHandler,
) *Router {
	r := gin.Default()

	// Public
	r.POST("/login", authHandler.Login)
	r.POST("/login/2fa", authHandler.LoginSecondFactor)
	r.GET("/unsubscribe", unsubscribeHandler.Unsubscribe)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Protected
	authed := r.Group("/")
	authed.Use(AuthMiddleware(auth))
	{
		authed.GET("/session", authHandler.Session)
		authed.POST("/devices/trust", authHandler.TrustDevice)
	}

	// Super-admin only
	admin := r.Group("/admin")
	admin.Use(AuthMiddleware(auth), RequireSuperAdmin())
	{
		admin.GET("/outbox/stats", outboxHandler.Stats)
		admin.POST("/outbox/drain", outboxHandler.Drain)
		admin.GET("/settings/:key", settingsHandler.Get)
		admin.PUT("/settings/:key", settingsHandler.Set)
	}

	return &Router{Engine: r}
}

func (r *Router) Run(port string) error {
	return r.Engine.Run(port)
}
