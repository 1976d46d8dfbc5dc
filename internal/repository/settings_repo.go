package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SettingsRepository reads the key-value settings table. Values may be
// global (tenant_id NULL) or tenant-scoped.
type SettingsRepository struct {
	db *pgxpool.Pool
}

func NewSettingsRepository(db *pgxpool.Pool) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// Get returns the global value for key, reporting whether it exists.
func (r *SettingsRepository) Get(ctx context.Context, key string) (string, bool, error) {
	query := `
        SELECT value
        FROM settings
        WHERE key = $1 AND tenant_id IS NULL
    `
	var value string
	err := r.db.QueryRow(ctx, query, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

// GetForTenant returns the tenant-scoped value for key, falling back to the
// global value when the tenant has none.
func (r *SettingsRepository) GetForTenant(ctx context.Context, key string, tenantID int) (string, bool, error) {
	query := `
        SELECT value
        FROM settings
        WHERE key = $1 AND tenant_id = $2
    `
	var value string
	err := r.db.QueryRow(ctx, query, key, tenantID).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return r.Get(ctx, key)
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

// Set upserts a global setting.
func (r *SettingsRepository) Set(ctx context.Context, key, value string) error {
	query := `
        INSERT INTO settings (key, tenant_id, value, updated_at)
        VALUES ($1, NULL, $2, NOW())
        ON CONFLICT (key) WHERE tenant_id IS NULL
        DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()
    `
	_, err := r.db.Exec(ctx, query, key, value)
	return err
}
