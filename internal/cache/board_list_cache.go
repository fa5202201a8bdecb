package cache

import (
	"context"
	"errors"
	"time"

	"github.com/gofrs/uuid"
)

const (
	boardListKeyPrefix     = "boards:list:"
	boardListVersionPrefix = "boards:version:"
)

// BoardListCache keeps each user's board list in Redis behind a circuit
// breaker.
type BoardListCache struct {
	redis   *RedisCache
	breaker *CircuitBreaker
	metrics *CacheMetrics
	ttl     time.Duration
}

func NewBoardListCache(redis *RedisCache, breaker *CircuitBreaker, ttl time.Duration) *BoardListCache {
	if breaker == nil {
		breaker = NewCircuitBreaker(nil)
	}
	return &BoardListCache{
		redis:   redis,
		breaker: breaker,
		metrics: NewCacheMetrics(),
		ttl:     ttl,
	}
}

func boardListKey(userID uuid.UUID) string {
	return boardListKeyPrefix + userID.String()
}

func boardListVersionKey(userID uuid.UUID) string {
	return boardListVersionPrefix + userID.String()
}

// Get reports a hit and fills dest, or reports a miss. A miss is not a
// failure and does not count against the breaker.
func (c *BoardListCache) Get(ctx context.Context, userID uuid.UUID, dest interface{}) (bool, error) {
	hit := false
	err := c.breaker.Execute(ctx, func(ctx context.Context) error {
		err := c.redis.Get(ctx, boardListKey(userID), dest)
		if errors.Is(err, ErrCacheMiss) {
			return nil
		}
		if err == nil {
			hit = true
		}
		return err
	})

	switch {
	case errors.Is(err, ErrCircuitBreakerOpen):
		c.metrics.RecordRejected()
		return false, err
	case err != nil:
		c.metrics.RecordError()
		return false, err
	case hit:
		c.metrics.RecordHit()
	default:
		c.metrics.RecordMiss()
	}
	return hit, nil
}

// Version returns the user's list version. Every Invalidate bumps it.
func (c *BoardListCache) Version(ctx context.Context, userID uuid.UUID) (int64, error) {
	var version int64
	err := c.breaker.Execute(ctx, func(ctx context.Context) error {
		var err error
		version, err = c.redis.Counter(ctx, boardListVersionKey(userID))
		return err
	})
	if err != nil {
		c.record(err, nil)
		return 0, err
	}
	return version, nil
}

// SetIfVersion stores a list loaded at version. A list loaded before an
// invalidation is dropped, so it can not outlive the change that
// invalidated it.
func (c *BoardListCache) SetIfVersion(ctx context.Context, userID uuid.UUID, version int64, value interface{}) (bool, error) {
	stored := false
	err := c.breaker.Execute(ctx, func(ctx context.Context) error {
		var err error
		stored, err = c.redis.SetIfCounter(ctx, boardListVersionKey(userID), version, boardListKey(userID), value, c.ttl)
		return err
	})
	switch {
	case err != nil:
		c.record(err, nil)
	case stored:
		c.metrics.RecordSet()
	default:
		c.metrics.RecordStale()
	}
	return stored, err
}

func (c *BoardListCache) Invalidate(ctx context.Context, userIDs ...uuid.UUID) error {
	if len(userIDs) == 0 {
		return nil
	}

	keys := make([]string, 0, len(userIDs))
	versions := make([]string, 0, len(userIDs))
	seen := make(map[uuid.UUID]struct{}, len(userIDs))
	for _, id := range userIDs {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		keys = append(keys, boardListKey(id))
		versions = append(versions, boardListVersionKey(id))
	}

	err := c.breaker.Execute(ctx, func(ctx context.Context) error {
		return c.redis.DeleteAndIncr(ctx, keys, versions)
	})
	c.record(err, c.metrics.RecordInvalidation)
	return err
}

func (c *BoardListCache) record(err error, onSuccess func()) {
	switch {
	case err == nil:
		if onSuccess != nil {
			onSuccess()
		}
	case errors.Is(err, ErrCircuitBreakerOpen):
		c.metrics.RecordRejected()
	default:
		c.metrics.RecordError()
	}
}

func (c *BoardListCache) Metrics() MetricsSnapshot {
	return c.metrics.Snapshot()
}

// Stats is the payload published on /metrics.
func (c *BoardListCache) Stats() map[string]interface{} {
	return map[string]interface{}{
		"board_list": c.metrics.Snapshot(),
		"breaker":    c.breaker.GetStats(),
		"redis":      c.redis.Stats(),
	}
}
