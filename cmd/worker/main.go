package main

import (
	"context"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"authcore/config"
	"authcore/internal/db"
	"authcore/internal/outbox"
	"authcore/internal/repository"
	"authcore/internal/transport"
	pkglogger "authcore/pkg/logger"
)

func main() {
	// Load config
	cfg := config.Load()

	logger := pkglogger.NewLogger()
	defer logger.Sync()

	logger.Info("Starting outbox worker...")

	// Init DB
	dbConn, err := db.NewConnection(cfg.DB, logger)
	if err != nil {
		logger.Fatal("DB initialization failed", zap.Error(err))
	}
	defer dbConn.Close()

	// Init transport
	var tr outbox.Transport
	if cfg.Transport.Kind == "amqp" {
		amqpTr, err := transport.NewAMQPTransport(cfg.Transport.AMQPURL, cfg.Transport.RoutingKey)
		if err != nil {
			logger.Fatal("transport initialization failed", zap.Error(err))
		}
		defer amqpTr.Close()
		tr = amqpTr
	} else {
		tr = transport.NewLogTransport(logger)
	}

	// Init engine
	outboxRepo := repository.NewOutboxRepository(dbConn)
	engine := outbox.NewEngine(outboxRepo, tr, logger, outbox.Config{
		BaseDelay:          cfg.Outbox.BaseDelay(),
		MaxDelay:           cfg.Outbox.MaxDelay(),
		SendTimeout:        cfg.Outbox.SendTimeout(),
		DefaultMaxAttempts: cfg.Outbox.MaxAttempts,
		BatchSize:          cfg.Outbox.BatchSize,
		Interval:           cfg.Outbox.Interval(),
	})

	// Sweep until shutdown. Items the claim already committed stay in
	// 'sending'; everything else is picked up by the next drain.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	engine.Start(ctx)
}
