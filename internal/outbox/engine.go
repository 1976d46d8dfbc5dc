package outbox

import (
	"context"
	"time"

	"go.uber.org/zap"

	"authcore/internal/apperr"
	"authcore/internal/model"
	"authcore/pkg/metrics"
)

// Store is the persistence behind the outbox queue. ClaimDue must flip
// status queued->sending atomically with the selection; that single
// property is what keeps overlapping drains exclusive.
type Store interface {
	Insert(ctx context.Context, item *model.EmailOutboxItem) error
	ClaimDue(ctx context.Context, now time.Time, limit int) ([]*model.EmailOutboxItem, error)
	MarkSent(ctx context.Context, id int, at time.Time) error
	MarkRetry(ctx context.Context, id, attempts int, lastError string, nextAt time.Time) error
	MarkFailed(ctx context.Context, id, attempts int, lastError string) error
	Stats(ctx context.Context) (Stats, error)
}

// Transport actually delivers one message. The engine treats a timeout the
// same as any other transport failure.
type Transport interface {
	Send(ctx context.Context, to, subject, body string, bodyHTML *string) error
}

type Stats struct {
	All     int `json:"all"`
	Queued  int `json:"queued"`
	Sending int `json:"sending"`
	Sent    int `json:"sent"`
	Failed  int `json:"failed"`
}

// Config carries the retry policy. Backoff is BaseDelay * 2^attempts,
// capped at MaxDelay.
type Config struct {
	BaseDelay          time.Duration
	MaxDelay           time.Duration
	SendTimeout        time.Duration
	DefaultMaxAttempts int
	BatchSize          int
	Interval           time.Duration
}

type Engine struct {
	store     Store
	transport Transport
	logger    *zap.Logger
	cfg       Config
	now       func() time.Time
}

func NewEngine(store Store, transport Transport, logger *zap.Logger, cfg Config) *Engine {
	if cfg.DefaultMaxAttempts <= 0 {
		cfg.DefaultMaxAttempts = 5
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	return &Engine{
		store:     store,
		transport: transport,
		logger:    logger,
		cfg:       cfg,
		now:       time.Now,
	}
}

// WithNow overrides the clock, for tests.
func (e *Engine) WithNow(now func() time.Time) *Engine {
	e.now = now
	return e
}

// Enqueue creates a new queued item. Enqueue is fire-and-forget for the
// caller; delivery failures surface only through item state and stats.
func (e *Engine) Enqueue(ctx context.Context, toEmail, subject, body string, bodyHTML *string, tenantID *int, maxAttempts int) (*model.EmailOutboxItem, error) {
	if toEmail == "" {
		return nil, apperr.Validation("recipient address is required")
	}
	if maxAttempts <= 0 {
		maxAttempts = e.cfg.DefaultMaxAttempts
	}

	now := e.now()
	item := &model.EmailOutboxItem{
		TenantID:    tenantID,
		ToEmail:     toEmail,
		Subject:     subject,
		Body:        body,
		BodyHTML:    bodyHTML,
		Status:      model.OutboxStatusQueued,
		Attempts:    0,
		MaxAttempts: maxAttempts,
		ScheduledAt: now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := e.store.Insert(ctx, item); err != nil {
		return nil, apperr.Storage("failed to enqueue outbox item", err)
	}

	metrics.IncrementOutboxEnqueued()
	e.logger.Debug("outbox item enqueued",
		zap.Int("item_id", item.ID),
		zap.String("to", toEmail),
	)
	return item, nil
}

// DrainDue claims every due queued item and attempts delivery, applying the
// state machine: sent on success, queued with backoff while attempts remain,
// failed on exhaustion. Returns the number of items processed.
func (e *Engine) DrainDue(ctx context.Context, now time.Time) (int, error) {
	start := time.Now()

	items, err := e.store.ClaimDue(ctx, now, e.cfg.BatchSize)
	if err != nil {
		return 0, apperr.Storage("failed to claim due outbox items", err)
	}

	for _, item := range items {
		e.deliver(ctx, item)
	}

	if len(items) > 0 {
		metrics.RecordOutboxDrain(len(items), time.Since(start))
		e.logger.Info("outbox drain finished",
			zap.Int("processed", len(items)),
			zap.Duration("elapsed", time.Since(start)),
		)
	}
	return len(items), nil
}

func (e *Engine) deliver(ctx context.Context, item *model.EmailOutboxItem) {
	sendCtx := ctx
	if e.cfg.SendTimeout > 0 {
		var cancel context.CancelFunc
		sendCtx, cancel = context.WithTimeout(ctx, e.cfg.SendTimeout)
		defer cancel()
	}

	err := e.transport.Send(sendCtx, item.ToEmail, item.Subject, item.Body, item.BodyHTML)
	if err == nil {
		if markErr := e.store.MarkSent(ctx, item.ID, e.now()); markErr != nil {
			e.logger.Error("failed to mark outbox item sent",
				zap.Int("item_id", item.ID),
				zap.Error(markErr),
			)
			return
		}
		metrics.IncrementOutboxDelivery("sent")
		e.logger.Debug("outbox item delivered", zap.Int("item_id", item.ID))
		return
	}

	attempts := item.Attempts + 1
	if attempts >= item.MaxAttempts {
		if markErr := e.store.MarkFailed(ctx, item.ID, attempts, err.Error()); markErr != nil {
			e.logger.Error("failed to mark outbox item failed",
				zap.Int("item_id", item.ID),
				zap.Error(markErr),
			)
			return
		}
		metrics.IncrementOutboxDelivery("failed")
		e.logger.Warn("outbox item exhausted its attempts",
			zap.Int("item_id", item.ID),
			zap.Int("attempts", attempts),
			zap.Error(err),
		)
		return
	}

	nextAt := e.now().Add(e.backoff(attempts))
	if markErr := e.store.MarkRetry(ctx, item.ID, attempts, err.Error(), nextAt); markErr != nil {
		e.logger.Error("failed to requeue outbox item",
			zap.Int("item_id", item.ID),
			zap.Error(markErr),
		)
		return
	}
	metrics.IncrementOutboxDelivery("retried")
	e.logger.Info("outbox delivery failed, requeued",
		zap.Int("item_id", item.ID),
		zap.Int("attempts", attempts),
		zap.Time("next_attempt_at", nextAt),
		zap.Error(err),
	)
}

// backoff returns BaseDelay * 2^attempts capped at MaxDelay.
func (e *Engine) backoff(attempts int) time.Duration {
	delay := e.cfg.BaseDelay
	for i := 0; i < attempts; i++ {
		delay *= 2
		if e.cfg.MaxDelay > 0 && delay >= e.cfg.MaxDelay {
			return e.cfg.MaxDelay
		}
	}
	return delay
}

// Stats reports item counts per status.
func (e *Engine) Stats(ctx context.Context) (Stats, error) {
	stats, err := e.store.Stats(ctx)
	if err != nil {
		return Stats{}, apperr.Storage("failed to read outbox stats", err)
	}
	return stats, nil
}

// Start runs the periodic sweep until ctx is cancelled.
func (e *Engine) Start(ctx context.Context) {
	interval := e.cfg.Interval
	if interval <= 0 {
		interval = 10 * time.Second
	}

	e.logger.Info("starting outbox engine",
		zap.Duration("interval", interval),
		zap.Int("batch_size", e.cfg.BatchSize),
		zap.Int("default_max_attempts", e.cfg.DefaultMaxAttempts),
	)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			e.logger.Info("outbox engine stopped")
			return
		case <-ticker.C:
			if _, err := e.DrainDue(ctx, e.now()); err != nil {
				e.logger.Error("outbox drain failed", zap.Error(err))
			}
		}
	}
}
