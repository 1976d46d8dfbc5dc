package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"authcore/internal/model"
)

type AuditStore interface {
	Insert(ctx context.Context, entry *model.AuditLog) error
}

// AuditEvent describes one privileged decision or credential event.
type AuditEvent struct {
	Action     string
	Resource   string
	ResourceID *string
	Details    *string
	IPAddress  *string
	UserID     *int
	TenantID   *int
}

// AuditRecorder appends audit entries. Recording is best effort: a storage
// failure is logged and swallowed so the audited operation itself never
// fails because of its audit trail.
type AuditRecorder struct {
	store  AuditStore
	logger *zap.Logger
	now    func() time.Time
}

func NewAuditRecorder(store AuditStore, logger *zap.Logger) *AuditRecorder {
	return &AuditRecorder{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

// WithNow overrides the clock, for tests.
func (r *AuditRecorder) WithNow(now func() time.Time) *AuditRecorder {
	r.now = now
	return r
}

func (r *AuditRecorder) Record(ctx context.Context, event AuditEvent) {
	entry := &model.AuditLog{
		UserID:     event.UserID,
		TenantID:   event.TenantID,
		Action:     event.Action,
		Resource:   event.Resource,
		ResourceID: event.ResourceID,
		Details:    event.Details,
		IPAddress:  event.IPAddress,
		CreatedAt:  r.now(),
	}
	if err := r.store.Insert(ctx, entry); err != nil {
		r.logger.Error("failed to record audit entry",
			zap.String("action", event.Action),
			zap.String("resource", event.Resource),
			zap.Error(err),
		)
	}
}
