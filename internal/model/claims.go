package model

import "time"

// ClaimSet is the verified identity carried by a session token. It is
// rebuilt from the token on every request and never persisted.
type ClaimSet struct {
	UserID       int
	TenantID     *int
	IsSuperAdmin bool
	ExpiresAt    time.Time
}

// PurposeClaims is the narrow claim set carried by a single-purpose token
// (e.g. an unsubscribe link). It cannot act as a session.
type PurposeClaims struct {
	UserID    int
	TenantID  *int
	Category  string
	Channel   string
	ExpiresAt time.Time
}
