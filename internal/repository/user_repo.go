package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"authcore/internal/model"
)

type UserRepository struct {
	db *pgxpool.Pool
}

func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{db: db}
}

// FindByEmail returns the user with the given email, or nil when none exists.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	query := `
        SELECT id, tenant_id, email, password_hash, role, is_super_admin, is_active, totp_enabled, totp_secret, created_at
        FROM users
        WHERE email = $1
    `
	return r.scanOne(r.db.QueryRow(ctx, query, email))
}

// FindByID returns the user with the given id, or nil when none exists.
func (r *UserRepository) FindByID(ctx context.Context, id int) (*model.User, error) {
	query := `
        SELECT id, tenant_id, email, password_hash, role, is_super_admin, is_active, totp_enabled, totp_secret, created_at
        FROM users
        WHERE id = $1
    `
	return r.scanOne(r.db.QueryRow(ctx, query, id))
}

func (r *UserRepository) scanOne(row pgx.Row) (*model.User, error) {
	var u model.User
	err := row.Scan(
		&u.ID,
		&u.TenantID,
		&u.Email,
		&u.PasswordHash,
		&u.Role,
		&u.IsSuperAdmin,
		&u.IsActive,
		&u.TOTPEnabled,
		&u.TOTPSecret,
		&u.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}
