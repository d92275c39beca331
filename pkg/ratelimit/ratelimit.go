// Package ratelimit locks out a key after repeated failed attempts.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"loan-report-dashboard/pkg/errors"
	"loan-report-dashboard/pkg/logger"
)

// Config holds limiter settings.
type Config struct {
	MaxAttempts int           `json:"max_attempts" mapstructure:"max_attempts"`
	Lockout     time.Duration `json:"lockout" mapstructure:"lockout"`
}

// DefaultConfig allows five failures before a 15 minute lockout.
func DefaultConfig() Config {
	return Config{MaxAttempts: 5, Lockout: 15 * time.Minute}
}

// Validate checks the limiter settings.
func (c Config) Validate() error {
	if c.MaxAttempts <= 0 {
		return fmt.Errorf("max attempts must be positive, got %d", c.MaxAttempts)
	}
	if c.Lockout <= 0 {
		return fmt.Errorf("lockout must be positive, got %s", c.Lockout)
	}
	return nil
}

// Limiter counts failures per key. Every failure pushes the counter's expiry
// to now+Lockout, so a key is locked for Lockout after its last failure once
// it reaches MaxAttempts, and idle counters clear themselves.
type Limiter struct {
	store  Store
	config Config
	logger logger.Logger
}

// New creates a limiter over store.
func New(store Store, config Config) (*Limiter, error) {
	if err := config.Validate(); err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "ratelimit", config, err)
	}
	return &Limiter{store: store, config: config, logger: logger.WithComponent("ratelimit")}, nil
}

// Allow returns a locked-out error when key has used up its attempts.
func (l *Limiter) Allow(ctx context.Context, key string) error {
	count, ttl, err := l.store.Get(ctx, key)
	if err != nil {
		return errors.StorageError(errors.CodeLockFailed, key, err)
	}
	if count >= int64(l.config.MaxAttempts) && ttl > 0 {
		return errors.LockedOutError(key, ttl.Round(time.Second))
	}
	return nil
}

// Fail records a failed attempt.
func (l *Limiter) Fail(ctx context.Context, key string) error {
	count, err := l.store.Increment(ctx, key)
	if err != nil {
		return errors.StorageError(errors.CodeLockFailed, key, err)
	}
	if err := l.store.Expire(ctx, key, l.config.Lockout); err != nil {
		return errors.StorageError(errors.CodeLockFailed, key, err)
	}

	if count >= int64(l.config.MaxAttempts) {
		l.logger.WithFields(logger.Fields{
			"key":      key,
			"attempts": count,
			"lockout":  l.config.Lockout.String(),
		}).Warn("Locked out after repeated failures")
	}
	return nil
}

// Succeed clears the failure history of key.
func (l *Limiter) Succeed(ctx context.Context, key string) error {
	if err := l.store.Reset(ctx, key); err != nil {
		return errors.StorageError(errors.CodeLockFailed, key, err)
	}
	return nil
}
