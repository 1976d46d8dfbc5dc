package model

import "time"

type DeviceTrustRecord struct {
	ID                int
	UserID            int
	DeviceFingerprint string
	IPAddress         *string
	UserAgent         *string
	TrustedAt         time.Time
	ExpiresAt         time.Time
	LastUsedAt        *time.Time
}
