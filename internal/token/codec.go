package token

import (
	"context"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"authcore/internal/apperr"
	"authcore/internal/model"
)

// Token uses. Each use signs in its own HMAC domain, so a purpose token can
// never verify as a session token even if the claim shapes were confused.
const (
	useSession   = "session"
	usePurpose   = "purpose"
	useTwoFactor = "2fa"
)

type sessionClaims struct {
	TenantID     *int   `json:"tenant_id,omitempty"`
	IsSuperAdmin bool   `json:"super_admin"`
	TokenUse     string `json:"token_use"`
	jwt.RegisteredClaims
}

type purposeClaims struct {
	TenantID *int   `json:"tenant_id,omitempty"`
	Category string `json:"category"`
	Channel  string `json:"channel"`
	TokenUse string `json:"token_use"`
	jwt.RegisteredClaims
}

type twoFactorClaims struct {
	TokenUse string `json:"token_use"`
	jwt.RegisteredClaims
}

// Codec signs and verifies session and purpose tokens with HS256.
type Codec struct {
	secrets *SecretProvider
	logger  *zap.Logger
	now     func() time.Time
}

func NewCodec(secrets *SecretProvider, logger *zap.Logger) *Codec {
	return &Codec{
		secrets: secrets,
		logger:  logger,
		now:     time.Now,
	}
}

// WithNow overrides the clock, for tests.
func (c *Codec) WithNow(now func() time.Time) *Codec {
	c.now = now
	return c
}

func (c *Codec) signingKey(ctx context.Context, use string) ([]byte, error) {
	secret, err := c.secrets.Secret(ctx)
	if err != nil {
		return nil, err
	}
	return []byte(secret + ":" + use), nil
}

// IssueSession returns a signed session token for the given claims.
func (c *Codec) IssueSession(ctx context.Context, userID int, tenantID *int, isSuperAdmin bool, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		return "", apperr.Validation("token ttl must be positive")
	}

	now := c.now()
	claims := sessionClaims{
		TenantID:     tenantID,
		IsSuperAdmin: isSuperAdmin,
		TokenUse:     useSession,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.Itoa(userID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	key, err := c.signingKey(ctx, useSession)
	if err != nil {
		return "", err
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
	if err != nil {
		return "", apperr.Internal("failed to sign session token", err)
	}
	return signed, nil
}

// IssuePurpose returns a signed single-purpose token scoped to one
// (user, category, channel) tuple.
func (c *Codec) IssuePurpose(ctx context.Context, userID int, tenantID *int, category, channel string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		return "", apperr.Validation("token ttl must be positive")
	}
	if category == "" || channel == "" {
		return "", apperr.Validation("category and channel are required")
	}

	now := c.now()
	claims := purposeClaims{
		TenantID: tenantID,
		Category: category,
		Channel:  channel,
		TokenUse: usePurpose,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.Itoa(userID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	key, err := c.signingKey(ctx, usePurpose)
	if err != nil {
		return "", err
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
	if err != nil {
		return "", apperr.Internal("failed to sign purpose token", err)
	}
	return signed, nil
}

// IssueTwoFactor returns a short-lived token that only proves the password
// step of a login succeeded. It carries no tenant or role claims and signs
// in its own domain, so it can never pass as a session or purpose token.
func (c *Codec) IssueTwoFactor(ctx context.Context, userID int, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		return "", apperr.Validation("token ttl must be positive")
	}

	now := c.now()
	claims := twoFactorClaims{
		TokenUse: useTwoFactor,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.Itoa(userID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	key, err := c.signingKey(ctx, useTwoFactor)
	if err != nil {
		return "", err
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
	if err != nil {
		return "", apperr.Internal("failed to sign two-factor token", err)
	}
	return signed, nil
}

// VerifyTwoFactor validates a pending two-factor token and returns the user
// it was issued for.
func (c *Codec) VerifyTwoFactor(ctx context.Context, tokenStr string) (int, error) {
	key, err := c.signingKey(ctx, useTwoFactor)
	if err != nil {
		return 0, err
	}

	var claims twoFactorClaims
	if err := c.parse(tokenStr, key, &claims); err != nil {
		c.logger.Debug("two-factor token rejected", zap.Error(err))
		return 0, apperr.Unauthorized("invalid token")
	}
	if claims.TokenUse != useTwoFactor {
		c.logger.Debug("two-factor token rejected", zap.String("token_use", claims.TokenUse))
		return 0, apperr.Unauthorized("invalid token")
	}

	userID, err := strconv.Atoi(claims.Subject)
	if err != nil {
		c.logger.Debug("two-factor token rejected: bad subject", zap.Error(err))
		return 0, apperr.Unauthorized("invalid token")
	}
	return userID, nil
}

// VerifySession validates signature and expiry and returns the claim set.
// The caller only ever sees a generic unauthorized error; the concrete
// reason goes to the log.
func (c *Codec) VerifySession(ctx context.Context, tokenStr string) (model.ClaimSet, error) {
	key, err := c.signingKey(ctx, useSession)
	if err != nil {
		return model.ClaimSet{}, err
	}

	var claims sessionClaims
	if err := c.parse(tokenStr, key, &claims); err != nil {
		c.logger.Debug("session token rejected", zap.Error(err))
		return model.ClaimSet{}, apperr.Unauthorized("invalid token")
	}
	if claims.TokenUse != useSession {
		c.logger.Debug("session token rejected", zap.String("token_use", claims.TokenUse))
		return model.ClaimSet{}, apperr.Unauthorized("invalid token")
	}

	userID, err := strconv.Atoi(claims.Subject)
	if err != nil {
		c.logger.Debug("session token rejected: bad subject", zap.Error(err))
		return model.ClaimSet{}, apperr.Unauthorized("invalid token")
	}

	return model.ClaimSet{
		UserID:       userID,
		TenantID:     claims.TenantID,
		IsSuperAdmin: claims.IsSuperAdmin,
		ExpiresAt:    claims.ExpiresAt.Time,
	}, nil
}

// VerifyPurpose validates a purpose token. The result is never a session
// claim set; a leaked unsubscribe link cannot become a credential.
func (c *Codec) VerifyPurpose(ctx context.Context, tokenStr string) (model.PurposeClaims, error) {
	key, err := c.signingKey(ctx, usePurpose)
	if err != nil {
		return model.PurposeClaims{}, err
	}

	var claims purposeClaims
	if err := c.parse(tokenStr, key, &claims); err != nil {
		c.logger.Debug("purpose token rejected", zap.Error(err))
		return model.PurposeClaims{}, apperr.Unauthorized("invalid token")
	}
	if claims.TokenUse != usePurpose {
		c.logger.Debug("purpose token rejected", zap.String("token_use", claims.TokenUse))
		return model.PurposeClaims{}, apperr.Unauthorized("invalid token")
	}

	userID, err := strconv.Atoi(claims.Subject)
	if err != nil {
		c.logger.Debug("purpose token rejected: bad subject", zap.Error(err))
		return model.PurposeClaims{}, apperr.Unauthorized("invalid token")
	}

	return model.PurposeClaims{
		UserID:    userID,
		TenantID:  claims.TenantID,
		Category:  claims.Category,
		Channel:   claims.Channel,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

func (c *Codec) parse(tokenStr string, key []byte, claims jwt.Claims) error {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(c.now),
		jwt.WithExpirationRequired(),
	)
	token, err := parser.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		return key, nil
	})
	if err != nil {
		return err
	}
	if !token.Valid {
		return jwt.ErrTokenInvalidClaims
	}
	return nil
}
