package main

import (
	"go.uber.org/zap"

	"authcore/config"
	"authcore/internal/db"
	"authcore/internal/httpserver"
	"authcore/internal/outbox"
	redisclient "authcore/internal/redis"
	"authcore/internal/repository"
	"authcore/internal/service"
	"authcore/internal/token"
	"authcore/internal/transport"
	pkglogger "authcore/pkg/logger"
)

func main() {
	// 1. Load config
	cfg := config.Load()

	logger := pkglogger.NewLogger()
	defer logger.Sync()

	// 2. Init DB
	dbConn, err := db.NewConnection(cfg.DB, logger)
	if err != nil {
		logger.Fatal("DB initialization failed", zap.Error(err))
	}
	defer dbConn.Close()

	// 3. Init Redis
	rdb := redisclient.NewClient(cfg.Redis)
	defer rdb.Close()

	// 4. Init repositories
	settingsRepo := repository.NewSettingsRepository(dbConn)
	userRepo := repository.NewUserRepository(dbConn)
	trustRepo := repository.NewDeviceTrustRepository(dbConn)
	auditRepo := repository.NewAuditRepository(dbConn)
	outboxRepo := repository.NewOutboxRepository(dbConn)

	// 5. Init services
	secrets := token.NewSecretProvider(settingsRepo, token.Posture(cfg.Token.Posture))
	codec := token.NewCodec(secrets, logger)
	audit := service.NewAuditRecorder(auditRepo, logger)
	trust := service.NewDeviceTrustService(trustRepo, audit, logger, cfg.DeviceTrust.TTL())
	limiter := service.NewLoginLimiter(rdb, logger, cfg.Login.FailureWindow(), cfg.Login.MaxFailures)
	authService := service.NewAuthService(
		codec, userRepo, trust, limiter, audit, logger,
		cfg.Token.SessionTTL(), cfg.Token.PurposeTTLDays,
	)

	// 6. Init outbox engine (drained by the worker; the server only
	//    enqueues, reports stats and serves manual drains)
	tr, err := newTransport(cfg, logger)
	if err != nil {
		logger.Fatal("transport initialization failed", zap.Error(err))
	}
	engine := outbox.NewEngine(outboxRepo, tr, logger, outbox.Config{
		BaseDelay:          cfg.Outbox.BaseDelay(),
		MaxDelay:           cfg.Outbox.MaxDelay(),
		SendTimeout:        cfg.Outbox.SendTimeout(),
		DefaultMaxAttempts: cfg.Outbox.MaxAttempts,
		BatchSize:          cfg.Outbox.BatchSize,
		Interval:           cfg.Outbox.Interval(),
	})

	// 7. Init handlers and router
	authHandler := httpserver.NewAuthHandler(authService, trust)
	unsubscribeHandler := httpserver.NewUnsubscribeHandler(authService, audit)
	outboxHandler := httpserver.NewOutboxHandler(engine, audit)
	settingsHandler := httpserver.NewSettingsHandler(settingsRepo, audit)
	router := httpserver.NewRouter(authService, authHandler, unsubscribeHandler, outboxHandler, settingsHandler)

	// 8. Run server
	if err := router.Run(cfg.Server.Port); err != nil {
		logger.Fatal("server start failed", zap.Error(err))
	}
}

func newTransport(cfg *config.Config, logger *zap.Logger) (outbox.Transport, error) {
	if cfg.Transport.Kind == "amqp" {
		return transport.NewAMQPTransport(cfg.Transport.AMQPURL, cfg.Transport.RoutingKey)
	}
	return transport.NewLogTransport(logger), nil
}
