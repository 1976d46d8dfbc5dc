package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"authcore/internal/model"
	"authcore/internal/outbox"
)

type OutboxRepository struct {
	db *pgxpool.Pool
}

func NewOutboxRepository(db *pgxpool.Pool) *OutboxRepository {
	return &OutboxRepository{db: db}
}

// Insert queues a new item.
func (r *OutboxRepository) Insert(ctx context.Context, item *model.EmailOutboxItem) error {
	query := `
        INSERT INTO email_outbox (tenant_id, to_email, subject, body, body_html, status, attempts, max_attempts, scheduled_at, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)
        RETURNING id
    `
	return r.db.QueryRow(ctx, query,
		item.TenantID,
		item.ToEmail,
		item.Subject,
		item.Body,
		item.BodyHTML,
		item.Status,
		item.Attempts,
		item.MaxAttempts,
		item.ScheduledAt,
		item.CreatedAt,
	).Scan(&item.ID)
}

// ClaimDue atomically flips due queued items to sending and returns them.
// The claim happens in the same statement as the selection, so overlapping
// drains can never pick up the same item; SKIP LOCKED keeps concurrent
// claimers from blocking on each other's rows.
func (r *OutboxRepository) ClaimDue(ctx context.Context, now time.Time, limit int) ([]*model.EmailOutboxItem, error) {
	query := `
        UPDATE email_outbox
        SET status = 'sending', updated_at = $1
        WHERE id IN (
            SELECT id FROM email_outbox
            WHERE status = 'queued' AND scheduled_at <= $1
            ORDER BY scheduled_at ASC
            LIMIT $2
            FOR UPDATE SKIP LOCKED
        )
        RETURNING id, tenant_id, to_email, subject, body, body_html, status, attempts, max_attempts, scheduled_at, last_error, sent_at, created_at, updated_at
    `
	rows, err := r.db.Query(ctx, query, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*model.EmailOutboxItem
	for rows.Next() {
		var it model.EmailOutboxItem
		if err := rows.Scan(
			&it.ID,
			&it.TenantID,
			&it.ToEmail,
			&it.Subject,
			&it.Body,
			&it.BodyHTML,
			&it.Status,
			&it.Attempts,
			&it.MaxAttempts,
			&it.ScheduledAt,
			&it.LastError,
			&it.SentAt,
			&it.CreatedAt,
			&it.UpdatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, &it)
	}
	return items, rows.Err()
}

// MarkSent finalizes a delivered item.
func (r *OutboxRepository) MarkSent(ctx context.Context, id int, at time.Time) error {
	query := `
        UPDATE email_outbox
        SET status = 'sent', sent_at = $2, updated_at = $2
        WHERE id = $1
    `
	_, err := r.db.Exec(ctx, query, id, at)
	return err
}

// MarkRetry puts a failed attempt back in the queue with its next schedule.
func (r *OutboxRepository) MarkRetry(ctx context.Context, id, attempts int, lastError string, nextAt time.Time) error {
	query := `
        UPDATE email_outbox
        SET status = 'queued', attempts = $2, last_error = $3, scheduled_at = $4, updated_at = NOW()
        WHERE id = $1
    `
	_, err := r.db.Exec(ctx, query, id, attempts, lastError, nextAt)
	return err
}

// MarkFailed finalizes an item whose attempts are exhausted.
func (r *OutboxRepository) MarkFailed(ctx context.Context, id, attempts int, lastError string) error {
	query := `
        UPDATE email_outbox
        SET status = 'failed', attempts = $2, last_error = $3, updated_at = NOW()
        WHERE id = $1
    `
	_, err := r.db.Exec(ctx, query, id, attempts, lastError)
	return err
}

// Stats counts items per status.
func (r *OutboxRepository) Stats(ctx context.Context) (outbox.Stats, error) {
	query := `
        SELECT
            COUNT(*),
            COUNT(*) FILTER (WHERE status = 'queued'),
            COUNT(*) FILTER (WHERE status = 'sending'),
            COUNT(*) FILTER (WHERE status = 'sent'),
            COUNT(*) FILTER (WHERE status = 'failed')
        FROM email_outbox
    `
	var s outbox.Stats
	err := r.db.QueryRow(ctx, query).Scan(&s.All, &s.Queued, &s.Sending, &s.Sent, &s.Failed)
	return s, err
}
