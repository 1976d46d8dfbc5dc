package model

import "time"

// Outbox item statuses. Transitions are owned by the outbox engine.
const (
	OutboxStatusQueued  = "queued"
	OutboxStatusSending = "sending"
	OutboxStatusSent    = "sent"
	OutboxStatusFailed  = "failed"
)

type EmailOutboxItem struct {
	ID          int
	TenantID    *int
	ToEmail     string
	Subject     string
	Body        string
	BodyHTML    *string
	Status      string
	Attempts    int
	MaxAttempts int
	ScheduledAt time.Time
	LastError   *string
	SentAt      *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
