package service

import (
	"context"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	"go.uber.org/zap"

	"authcore/internal/apperr"
	"authcore/internal/model"
	"authcore/internal/token"
	"authcore/internal/util"
	"authcore/pkg/metrics"
)

type UserStore interface {
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	FindByID(ctx context.Context, id int) (*model.User, error)
}

// FailureLimiter throttles repeated failed logins per account.
type FailureLimiter interface {
	TooMany(ctx context.Context, email string) (bool, error)
	RecordFailure(ctx context.Context, email string) (int64, error)
	Reset(ctx context.Context, email string) error
}

// AuthService orchestrates token issuance/validation, the login flow and
// its device-trust second-factor bypass.
type AuthService struct {
	codec      *token.Codec
	users      UserStore
	trust      *DeviceTrustService
	limiter    FailureLimiter
	audit      *AuditRecorder
	logger     *zap.Logger
	sessionTTL time.Duration
	purposeTTL time.Duration
	now        func() time.Time
}

func NewAuthService(
	codec *token.Codec,
	users UserStore,
	trust *DeviceTrustService,
	limiter FailureLimiter,
	audit *AuditRecorder,
	logger *zap.Logger,
	sessionTTL time.Duration,
	purposeTTLDays int,
) *AuthService {
	return &AuthService{
		codec:      codec,
		users:      users,
		trust:      trust,
		limiter:    limiter,
		audit:      audit,
		logger:     logger,
		sessionTTL: sessionTTL,
		purposeTTL: time.Duration(purposeTTLDays) * 24 * time.Hour,
		now:        time.Now,
	}
}

// WithNow overrides the clock, for tests.
func (s *AuthService) WithNow(now func() time.Time) *AuthService {
	s.now = now
	return s
}

// ValidateToken verifies a bearer token and returns its claim set. Every
// codec failure collapses to a generic unauthorized error.
func (s *AuthService) ValidateToken(ctx context.Context, tokenStr string) (model.ClaimSet, error) {
	if tokenStr == "" {
		metrics.RecordTokenVerification("session", "rejected")
		return model.ClaimSet{}, apperr.Unauthorized("missing token")
	}

	claims, err := s.codec.VerifySession(ctx, tokenStr)
	if err != nil {
		metrics.RecordTokenVerification("session", "rejected")
		if apperr.KindOf(err) == apperr.KindUnauthorized {
			return model.ClaimSet{}, err
		}
		return model.ClaimSet{}, apperr.Unauthorized("invalid token")
	}

	// Expiry is re-checked at call time; the codec already validated it
	// against its own clock, this guards the window between the two.
	if !claims.ExpiresAt.After(s.now()) {
		metrics.RecordTokenVerification("session", "rejected")
		return model.ClaimSet{}, apperr.Unauthorized("invalid token")
	}

	metrics.RecordTokenVerification("session", "ok")
	return claims, nil
}

// IssueSessionToken mints a session token. ttl = 0 uses the configured
// default.
func (s *AuthService) IssueSessionToken(ctx context.Context, userID int, tenantID *int, isSuperAdmin bool, ttl time.Duration) (string, error) {
	if ttl == 0 {
		ttl = s.sessionTTL
	}
	return s.codec.IssueSession(ctx, userID, tenantID, isSuperAdmin, ttl)
}

// IssuePurposeToken mints a narrow single-purpose token, e.g. for an
// unsubscribe link. ttlDays = 0 uses the configured default.
func (s *AuthService) IssuePurposeToken(ctx context.Context, userID int, tenantID *int, category, channel string, ttlDays int) (string, error) {
	ttl := time.Duration(ttlDays) * 24 * time.Hour
	if ttlDays == 0 {
		ttl = s.purposeTTL
	}
	return s.codec.IssuePurpose(ctx, userID, tenantID, category, channel, ttl)
}

// VerifyPurposeToken verifies a purpose token and returns its claims. The
// result can never be elevated to a session claim set.
func (s *AuthService) VerifyPurposeToken(ctx context.Context, tokenStr string) (model.PurposeClaims, error) {
	claims, err := s.codec.VerifyPurpose(ctx, tokenStr)
	if err != nil {
		metrics.RecordTokenVerification("purpose", "rejected")
		if apperr.KindOf(err) == apperr.KindUnauthorized {
			return model.PurposeClaims{}, err
		}
		return model.PurposeClaims{}, apperr.Unauthorized("invalid token")
	}
	metrics.RecordTokenVerification("purpose", "ok")
	return claims, nil
}

type LoginRequest struct {
	Email             string
	Password          string
	DeviceFingerprint string
	IPAddress         *string
	UserAgent         *string
}

type LoginResult struct {
	Token                string
	SecondFactorRequired bool
	// PendingToken is set only when SecondFactorRequired; it authorizes one
	// call to CompleteSecondFactor and nothing else.
	PendingToken string
	User         *model.User
}

// How long the password step stays valid while the user types their code.
const twoFactorPendingTTL = 5 * time.Minute

// Login checks credentials and, when the account has a second factor
// enabled, consults device trust to decide whether it may be skipped.
// Every failure mode surfaces the same generic unauthorized error.
func (s *AuthService) Login(ctx context.Context, req LoginRequest) (LoginResult, error) {
	if s.limiter != nil {
		throttled, err := s.limiter.TooMany(ctx, req.Email)
		if err != nil {
			// Limiter unavailability must not lock everyone out.
			s.logger.Warn("login limiter unavailable", zap.Error(err))
		} else if throttled {
			metrics.RecordLoginAttempt("throttled")
			s.recordLoginAudit(ctx, nil, req, "login.throttled")
			return LoginResult{}, apperr.Unauthorized("too many failed attempts, try again later")
		}
	}

	user, err := s.users.FindByEmail(ctx, req.Email)
	if err != nil {
		return LoginResult{}, apperr.Storage("failed to load user", err)
	}
	if user == nil || !user.IsActive || !util.CheckPassword(req.Password, user.PasswordHash) {
		s.noteFailure(ctx, req)
		metrics.RecordLoginAttempt("rejected")
		s.recordLoginAudit(ctx, user, req, "login.failed")
		return LoginResult{}, apperr.Unauthorized("invalid email or password")
	}

	if user.TOTPEnabled {
		trusted, err := s.trust.IsTrusted(ctx, user.ID, req.DeviceFingerprint)
		if err != nil {
			return LoginResult{}, err
		}
		if !trusted {
			pending, err := s.codec.IssueTwoFactor(ctx, user.ID, twoFactorPendingTTL)
			if err != nil {
				return LoginResult{}, err
			}
			metrics.RecordLoginAttempt("second_factor")
			return LoginResult{SecondFactorRequired: true, PendingToken: pending, User: user}, nil
		}
	}

	signed, err := s.IssueSessionToken(ctx, user.ID, user.TenantID, user.IsSuperAdmin, 0)
	if err != nil {
		return LoginResult{}, err
	}

	if s.limiter != nil {
		if err := s.limiter.Reset(ctx, req.Email); err != nil {
			s.logger.Warn("failed to reset login limiter", zap.Error(err))
		}
	}
	metrics.RecordLoginAttempt("ok")
	s.recordLoginAudit(ctx, user, req, "login.success")

	return LoginResult{Token: signed, User: user}, nil
}

type SecondFactorRequest struct {
	PendingToken      string
	Code              string
	DeviceFingerprint string
	RememberDevice    bool
	IPAddress         *string
	UserAgent         *string
}

// CompleteSecondFactor redeems a pending token from Login against a TOTP
// code. On success it mints the session and, when asked, grants device
// trust so the next login skips the code.
func (s *AuthService) CompleteSecondFactor(ctx context.Context, req SecondFactorRequest) (LoginResult, error) {
	userID, err := s.codec.VerifyTwoFactor(ctx, req.PendingToken)
	if err != nil {
		metrics.RecordLoginAttempt("rejected")
		return LoginResult{}, apperr.Unauthorized("invalid token")
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return LoginResult{}, apperr.Storage("failed to load user", err)
	}
	if user == nil || !user.IsActive || !user.TOTPEnabled || user.TOTPSecret == "" {
		metrics.RecordLoginAttempt("rejected")
		return LoginResult{}, apperr.Unauthorized("invalid token")
	}

	ok, err := totp.ValidateCustom(req.Code, user.TOTPSecret, s.now().UTC(), totp.ValidateOpts{
		Period:    30,
		Skew:      1,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	if err != nil || !ok {
		s.noteFailure(ctx, LoginRequest{Email: user.Email})
		metrics.RecordLoginAttempt("rejected")
		s.recordLoginAudit(ctx, user, LoginRequest{IPAddress: req.IPAddress}, "login.2fa_failed")
		return LoginResult{}, apperr.Unauthorized("invalid verification code")
	}

	if req.RememberDevice && req.DeviceFingerprint != "" {
		if _, err := s.trust.Grant(ctx, user.ID, req.DeviceFingerprint, req.IPAddress, req.UserAgent, 0); err != nil {
			// The login still succeeds; only the exemption is lost.
			s.logger.Warn("failed to grant device trust after second factor", zap.Error(err))
		}
	}

	signed, err := s.IssueSessionToken(ctx, user.ID, user.TenantID, user.IsSuperAdmin, 0)
	if err != nil {
		return LoginResult{}, err
	}

	if s.limiter != nil {
		if err := s.limiter.Reset(ctx, user.Email); err != nil {
			s.logger.Warn("failed to reset login limiter", zap.Error(err))
		}
	}
	metrics.RecordLoginAttempt("ok")
	s.recordLoginAudit(ctx, user, LoginRequest{IPAddress: req.IPAddress}, "login.2fa_success")

	return LoginResult{Token: signed, User: user}, nil
}

func (s *AuthService) noteFailure(ctx context.Context, req LoginRequest) {
	if s.limiter == nil {
		return
	}
	if _, err := s.limiter.RecordFailure(ctx, req.Email); err != nil {
		s.logger.Warn("failed to record login failure", zap.Error(err))
	}
}

func (s *AuthService) recordLoginAudit(ctx context.Context, user *model.User, req LoginRequest, action string) {
	if s.audit == nil {
		return
	}
	event := AuditEvent{
		Action:    action,
		Resource:  "session",
		IPAddress: req.IPAddress,
	}
	if user != nil {
		event.UserID = &user.ID
		event.TenantID = user.TenantID
	}
	s.audit.Record(ctx, event)
}
