package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"authcore/internal/model"
)

type AuditRepository struct {
	db *pgxpool.Pool
}

func NewAuditRepository(db *pgxpool.Pool) *AuditRepository {
	return &AuditRepository{db: db}
}

// Insert appends an audit entry. The table is append-only; nothing in this
// core updates or deletes rows.
func (r *AuditRepository) Insert(ctx context.Context, entry *model.AuditLog) error {
	query := `
        INSERT INTO audit_log (user_id, tenant_id, action, resource, resource_id, details, ip_address, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        RETURNING id
    `
	return r.db.QueryRow(ctx, query,
		entry.UserID,
		entry.TenantID,
		entry.Action,
		entry.Resource,
		entry.ResourceID,
		entry.Details,
		entry.IPAddress,
		entry.CreatedAt,
	).Scan(&entry.ID)
}
