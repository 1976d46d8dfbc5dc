package model

import "time"

type AuditLog struct {
	ID         int
	UserID     *int
	TenantID   *int
	Action     string
	Resource   string
	ResourceID *string
	Details    *string
	IPAddress  *string
	CreatedAt  time.Time
}
