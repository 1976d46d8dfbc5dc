package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"authcore/internal/model"
)

type DeviceTrustRepository struct {
	db *pgxpool.Pool
}

func NewDeviceTrustRepository(db *pgxpool.Pool) *DeviceTrustRepository {
	return &DeviceTrustRepository{db: db}
}

// Upsert inserts a trust record, or extends the expiry of an existing grant
// for the same (user, fingerprint). The storage-level upsert is what makes
// concurrent grants safe without in-process locking.
func (r *DeviceTrustRepository) Upsert(ctx context.Context, rec *model.DeviceTrustRecord) error {
	query := `
        INSERT INTO device_trust (user_id, device_fingerprint, ip_address, user_agent, trusted_at, expires_at)
        VALUES ($1, $2, $3, $4, $5, $6)
        ON CONFLICT (user_id, device_fingerprint)
        DO UPDATE SET
            ip_address = EXCLUDED.ip_address,
            user_agent = EXCLUDED.user_agent,
            trusted_at = EXCLUDED.trusted_at,
            expires_at = EXCLUDED.expires_at
        RETURNING id
    `
	return r.db.QueryRow(ctx, query,
		rec.UserID,
		rec.DeviceFingerprint,
		rec.IPAddress,
		rec.UserAgent,
		rec.TrustedAt,
		rec.ExpiresAt,
	).Scan(&rec.ID)
}

// FindActive returns the unexpired record for (user, fingerprint), or nil
// when none exists. Absence is not an error.
func (r *DeviceTrustRepository) FindActive(ctx context.Context, userID int, fingerprint string, now time.Time) (*model.DeviceTrustRecord, error) {
	query := `
        SELECT id, user_id, device_fingerprint, ip_address, user_agent, trusted_at, expires_at, last_used_at
        FROM device_trust
        WHERE user_id = $1 AND device_fingerprint = $2 AND expires_at > $3
    `
	var rec model.DeviceTrustRecord
	err := r.db.QueryRow(ctx, query, userID, fingerprint, now).Scan(
		&rec.ID,
		&rec.UserID,
		&rec.DeviceFingerprint,
		&rec.IPAddress,
		&rec.UserAgent,
		&rec.TrustedAt,
		&rec.ExpiresAt,
		&rec.LastUsedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// Touch records a successful use. Last-writer-wins is fine here.
func (r *DeviceTrustRepository) Touch(ctx context.Context, id int, at time.Time) error {
	query := `
        UPDATE device_trust
        SET last_used_at = $2
        WHERE id = $1
    `
	_, err := r.db.Exec(ctx, query, id, at)
	return err
}
