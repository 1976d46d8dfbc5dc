package service

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// LoginLimiter tracks consecutive failed logins per email in Redis. It
// fails open: if Redis is unreachable the login flow proceeds and the
// caller logs the limiter error.
type LoginLimiter struct {
	rdb    *redis.Client
	logger *zap.Logger
	window time.Duration
	max    int64
}

func NewLoginLimiter(rdb *redis.Client, logger *zap.Logger, window time.Duration, max int) *LoginLimiter {
	return &LoginLimiter{rdb: rdb, logger: logger, window: window, max: int64(max)}
}

func loginFailureKey(email string) string {
	return fmt.Sprintf("login:fail:%s", email)
}

// TooMany reports whether the account has exhausted its failure budget.
func (l *LoginLimiter) TooMany(ctx context.Context, email string) (bool, error) {
	count, err := l.rdb.Get(ctx, loginFailureKey(email)).Int64()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return count >= l.max, nil
}

// RecordFailure increments the failure count and returns the new value.
func (l *LoginLimiter) RecordFailure(ctx context.Context, email string) (int64, error) {
	key := loginFailureKey(email)
	count, err := l.rdb.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}

	// Set expiration on first increment. A failure here means the counter
	// would never decay, so it is worth surfacing in the log.
	if count == 1 {
		if err := l.rdb.Expire(ctx, key, l.window).Err(); err != nil {
			l.logger.Warn("failed to set login failure window",
				zap.String("email", email),
				zap.Error(err),
			)
		}
	}

	return count, nil
}

// Reset clears the failure count after a successful login.
func (l *LoginLimiter) Reset(ctx context.Context, email string) error {
	return l.rdb.Del(ctx, loginFailureKey(email)).Err()
}
