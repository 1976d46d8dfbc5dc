package model

import "time"

type User struct {
	ID           int
	TenantID     *int
	Email        string
	PasswordHash string
	Role         string
	IsSuperAdmin bool
	IsActive     bool
	TOTPEnabled  bool
	TOTPSecret   string
	CreatedAt    time.Time
}
