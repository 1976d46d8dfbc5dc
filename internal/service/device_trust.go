package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"authcore/internal/apperr"
	"authcore/internal/model"
)

// DeviceTrustStore is the persistence behind device trust grants. Upsert
// must be atomic per (user, fingerprint); FindActive returns nil for both
// missing and expired records.
type DeviceTrustStore interface {
	Upsert(ctx context.Context, rec *model.DeviceTrustRecord) error
	FindActive(ctx context.Context, userID int, fingerprint string, now time.Time) (*model.DeviceTrustRecord, error)
	Touch(ctx context.Context, id int, at time.Time) error
}

// DeviceTrustService manages the time-limited second-factor exemption for
// previously verified devices.
type DeviceTrustService struct {
	store  DeviceTrustStore
	audit  *AuditRecorder
	logger *zap.Logger
	ttl    time.Duration
	now    func() time.Time
}

func NewDeviceTrustService(store DeviceTrustStore, audit *AuditRecorder, logger *zap.Logger, ttl time.Duration) *DeviceTrustService {
	return &DeviceTrustService{
		store:  store,
		audit:  audit,
		logger: logger,
		ttl:    ttl,
		now:    time.Now,
	}
}

// WithNow overrides the clock, for tests.
func (s *DeviceTrustService) WithNow(now func() time.Time) *DeviceTrustService {
	s.now = now
	return s
}

// DeviceFingerprint derives the opaque fingerprint from client-identifying
// attributes. Only the hash is ever stored or compared.
func DeviceFingerprint(parts ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(parts, "\x00")))
	return hex.EncodeToString(sum[:])
}

// IsTrusted reports whether an unexpired grant exists for the device. A
// missing record is the "not trusted" answer, not an error. A hit also
// stamps last_used_at; that write is best effort.
func (s *DeviceTrustService) IsTrusted(ctx context.Context, userID int, fingerprint string) (bool, error) {
	if fingerprint == "" {
		return false, nil
	}

	rec, err := s.store.FindActive(ctx, userID, fingerprint, s.now())
	if err != nil {
		return false, apperr.Storage("failed to check device trust", err)
	}
	if rec == nil {
		return false, nil
	}

	if err := s.store.Touch(ctx, rec.ID, s.now()); err != nil {
		s.logger.Warn("failed to touch device trust record",
			zap.Int("record_id", rec.ID),
			zap.Error(err),
		)
	}
	return true, nil
}

// Grant records trust for a device, extending the expiry when a grant for
// the same fingerprint already exists. ttl <= 0 falls back to the
// configured default.
func (s *DeviceTrustService) Grant(ctx context.Context, userID int, fingerprint string, ip, userAgent *string, ttl time.Duration) (*model.DeviceTrustRecord, error) {
	if fingerprint == "" {
		return nil, apperr.Validation("device fingerprint is required")
	}
	if ttl == 0 {
		ttl = s.ttl
	}

	now := s.now()
	rec := &model.DeviceTrustRecord{
		UserID:            userID,
		DeviceFingerprint: fingerprint,
		IPAddress:         ip,
		UserAgent:         userAgent,
		TrustedAt:         now,
		ExpiresAt:         now.Add(ttl),
	}
	if err := s.store.Upsert(ctx, rec); err != nil {
		return nil, apperr.Storage("failed to grant device trust", err)
	}

	s.logger.Info("device trust granted",
		zap.Int("user_id", userID),
		zap.Time("expires_at", rec.ExpiresAt),
	)
	if s.audit != nil {
		recordID := strconv.Itoa(rec.ID)
		details := "expires " + rec.ExpiresAt.UTC().Format(time.RFC3339)
		s.audit.Record(ctx, AuditEvent{
			Action:     "device_trust.granted",
			Resource:   "device_trust",
			ResourceID: &recordID,
			Details:    &details,
			IPAddress:  ip,
			UserID:     &userID,
		})
	}
	return rec, nil
}

// Touch stamps last_used_at on a record. It never changes trust status.
func (s *DeviceTrustService) Touch(ctx context.Context, recordID int) error {
	if err := s.store.Touch(ctx, recordID, s.now()); err != nil {
		return apperr.Storage("failed to touch device trust record", err)
	}
	return nil
}
