// Package locking serializes check-and-persist sequences over overlapping
// dedupe keys with per-key advisory locks.
package locking

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/thistle/pkg/fingerprint"
	"github.com/Ramsey-B/thistle/pkg/metrics"
	"github.com/Ramsey-B/thistle/pkg/redis"
	"github.com/Ramsey-B/thistle/pkg/tracing"
)

// Lease is one held key lock
type Lease interface {
	Release(ctx context.Context) error
}

// Acquirer takes a single key lock, waiting up to wait for it
type Acquirer interface {
	TryAcquire(ctx context.Context, key string, ttl time.Duration, wait time.Duration) (Lease, error)
}

// Config bounds how long locks are held and waited for
type Config struct {
	TTL  time.Duration // Lock expiry if the holder dies (default: 30s)
	Wait time.Duration // Longest wait for one key (default: 10s)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		TTL:  30 * time.Second,
		Wait: 10 * time.Second,
	}
}

// Locker takes every lock of a key set, in sorted order so two callers with
// overlapping sets never deadlock.
type Locker struct {
	acquirer Acquirer
	cfg      Config
	logger   ectologger.Logger
}

// NewLocker creates a new multi-key locker
func NewLocker(acquirer Acquirer, cfg Config, logger ectologger.Logger) *Locker {
	return &Locker{
		acquirer: acquirer,
		cfg:      cfg,
		logger:   logger,
	}
}

// Lock acquires every key or none. The returned func releases them in
// reverse order.
func (l *Locker) Lock(ctx context.Context, keys []string) (func(context.Context) error, error) {
	ctx, span := tracing.StartSpan(ctx, "locking.Locker.Lock")
	defer span.End()

	ordered := normalize(keys)
	if len(ordered) == 0 {
		return func(context.Context) error { return nil }, nil
	}

	start := time.Now()
	held := make([]Lease, 0, len(ordered))
	for _, key := range ordered {
		lease, err := l.acquirer.TryAcquire(ctx, key, l.cfg.TTL, l.cfg.Wait)
		if err != nil {
			metrics.RecordLockWait("failed", time.Since(start).Seconds())
			l.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
				"key":  key,
				"keys": len(ordered),
			}).Warn("Failed to acquire key lock")

			if releaseErr := releaseAll(context.WithoutCancel(ctx), held); releaseErr != nil {
				l.logger.WithContext(ctx).WithError(releaseErr).Warn("Failed to release partially acquired key locks")
			}
			return nil, fmt.Errorf("locking %s: %w", key, err)
		}
		held = append(held, lease)
	}
	metrics.RecordLockWait("acquired", time.Since(start).Seconds())

	return func(ctx context.Context) error {
		return releaseAll(ctx, held)
	}, nil
}

func releaseAll(ctx context.Context, held []Lease) error {
	var errs []error
	for i := len(held) - 1; i >= 0; i-- {
		if err := held[i].Release(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func normalize(keys []string) []string {
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if k != "" {
			out = append(out, k)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

type redisAcquirer struct {
	locker *redis.Locker
}

// NewRedisAcquirer adapts a redis Locker to Acquirer. Keys are stored as
// fingerprints so raw emails and phone numbers never reach redis.
func NewRedisAcquirer(locker *redis.Locker) Acquirer {
	return redisAcquirer{locker: locker}
}

func (a redisAcquirer) TryAcquire(ctx context.Context, key string, ttl time.Duration, wait time.Duration) (Lease, error) {
	lock, err := a.locker.TryAcquire(ctx, fingerprint.Key(key), ttl, wait)
	if err != nil {
		return nil, err
	}
	return lock, nil
}
