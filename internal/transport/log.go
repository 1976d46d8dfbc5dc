package transport

import (
	"context"

	"go.uber.org/zap"
)

// LogTransport prints messages instead of delivering them. Development only.
type LogTransport struct {
	logger *zap.Logger
}

func NewLogTransport(logger *zap.Logger) *LogTransport {
	return &LogTransport{logger: logger}
}

func (t *LogTransport) Send(_ context.Context, to, subject, _ string, _ *string) error {
	t.logger.Info("email delivery (log transport)",
		zap.String("to", to),
		zap.String("subject", subject),
	)
	return nil
}
