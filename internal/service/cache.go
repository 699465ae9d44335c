package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/anc-caregap-server/internal/domain"
	"github.com/anc-caregap-server/internal/metrics"
)

// Cache tiers, used as metric labels.
const (
	TierMemory = "memory"
	TierRedis  = "redis"
)

// AssessmentCache stores scored assessments keyed by profile and scorer version.
type AssessmentCache interface {
	Get(ctx context.Context, key string) (*domain.RiskAssessment, bool)
	Set(ctx context.Context, key string, a *domain.RiskAssessment)
	Health(ctx context.Context) error
	Close() error
}

// CacheKey combines the profile identity with the scorer that produced the score.
func CacheKey(p domain.PatientProfile, scorer domain.RiskScorer) string {
	return scorer.Name() + ":" + scorer.Version() + "|" + p.Key()
}

// MemoryCache is the tier 1 expirable LRU.
type MemoryCache struct {
	lru *expirable.LRU[string, domain.RiskAssessment]
}

// NewMemoryCache creates an LRU holding at most size entries for ttl each.
func NewMemoryCache(size int, ttl time.Duration) *MemoryCache {
	return &MemoryCache{lru: expirable.NewLRU[string, domain.RiskAssessment](size, nil, ttl)}
}

func (m *MemoryCache) Get(key string) (*domain.RiskAssessment, bool) {
	a, ok := m.lru.Get(key)
	if !ok {
		return nil, false
	}
	return &a, true
}

func (m *MemoryCache) Set(key string, a *domain.RiskAssessment) {
	m.lru.Add(key, *a)
}

func (m *MemoryCache) Len() int {
	return m.lru.Len()
}

// redisClient is the subset of *redis.Client the cache uses.
type redisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Ping(ctx context.Context) *redis.StatusCmd
	Close() error
}

// RedisCache is the optional tier 2. Every call goes through a circuit breaker;
// while it is open the tier is skipped.
type RedisCache struct {
	client  redisClient
	breaker *gobreaker.CircuitBreaker
	ttl     time.Duration
	prefix  string
	logger  *logrus.Logger
}

// NewRedisCache connects to cfg.RedisURL and pings it once.
func NewRedisCache(cfg domain.CacheConfig, logger *logrus.Logger) (*RedisCache, error) {
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return newRedisCache(client, cfg, logger), nil
}

func newRedisCache(client redisClient, cfg domain.CacheConfig, logger *logrus.Logger) *RedisCache {
	threshold := cfg.Breaker.FailureThreshold
	if threshold == 0 {
		threshold = 3
	}
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "assessment-cache-redis",
		MaxRequests: cfg.Breaker.MaxRequests,
		Interval:    cfg.Breaker.Interval,
		Timeout:     cfg.Breaker.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("Circuit breaker changed state")
		},
	})
	return &RedisCache{
		client:  client,
		breaker: breaker,
		ttl:     cfg.TTL,
		prefix:  cfg.Prefix,
		logger:  logger,
	}
}

// Get returns (nil, false, nil) on a miss.
func (r *RedisCache) Get(ctx context.Context, key string) (*domain.RiskAssessment, bool, error) {
	v, err := r.breaker.Execute(func() (interface{}, error) {
		val, err := r.client.Get(ctx, r.prefix+key).Result()
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		return val, nil
	})
	if err != nil {
		return nil, false, err
	}
	if v == nil {
		return nil, false, nil
	}
	var a domain.RiskAssessment
	if err := json.Unmarshal([]byte(v.(string)), &a); err != nil {
		return nil, false, fmt.Errorf("failed to decode cached assessment: %w", err)
	}
	return &a, true, nil
}

func (r *RedisCache) Set(ctx context.Context, key string, a *domain.RiskAssessment) error {
	data, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("failed to encode assessment: %w", err)
	}
	_, err = r.breaker.Execute(func() (interface{}, error) {
		return nil, r.client.Set(ctx, r.prefix+key, data, r.ttl).Err()
	})
	return err
}

func (r *RedisCache) Ping(ctx context.Context) error {
	_, err := r.breaker.Execute(func() (interface{}, error) {
		return nil, r.client.Ping(ctx).Err()
	})
	return err
}

func (r *RedisCache) State() gobreaker.State {
	return r.breaker.State()
}

func (r *RedisCache) Close() error {
	return r.client.Close()
}

// TieredCache reads memory first, then Redis, and back-fills memory on a Redis
// hit. Redis failures are logged and never surface to the caller.
type TieredCache struct {
	memory  *MemoryCache
	remote  *RedisCache
	metrics *metrics.Metrics
	logger  *logrus.Logger
}

// NewTieredCache combines the tiers; remote may be nil.
func NewTieredCache(memory *MemoryCache, remote *RedisCache, m *metrics.Metrics, logger *logrus.Logger) *TieredCache {
	return &TieredCache{memory: memory, remote: remote, metrics: m, logger: logger}
}

// NewCacheFromConfig builds the cache described by cfg, or returns nil when caching
// is disabled. An unreachable Redis degrades to memory only.
func NewCacheFromConfig(cfg domain.CacheConfig, m *metrics.Metrics, logger *logrus.Logger) AssessmentCache {
	if !cfg.Enabled {
		return nil
	}
	memory := NewMemoryCache(cfg.MaxItems, cfg.TTL)
	var remote *RedisCache
	if cfg.RedisURL != "" {
		rc, err := NewRedisCache(cfg, logger)
		if err != nil {
			logger.WithError(err).Warn("Redis cache unavailable, using in-memory cache only")
		} else {
			remote = rc
		}
	}
	return NewTieredCache(memory, remote, m, logger)
}

func (t *TieredCache) Get(ctx context.Context, key string) (*domain.RiskAssessment, bool) {
	if a, ok := t.memory.Get(key); ok {
		t.metrics.ObserveCacheLookup(TierMemory, "hit")
		return a, true
	}
	t.metrics.ObserveCacheLookup(TierMemory, "miss")

	if t.remote == nil {
		return nil, false
	}
	a, ok, err := t.remote.Get(ctx, key)
	switch {
	case err != nil:
		t.metrics.ObserveCacheLookup(TierRedis, "error")
		t.logger.WithError(err).WithField("key", key).Warn("Redis cache lookup failed")
		return nil, false
	case !ok:
		t.metrics.ObserveCacheLookup(TierRedis, "miss")
		return nil, false
	}
	t.metrics.ObserveCacheLookup(TierRedis, "hit")
	t.memory.Set(key, a)
	return a, true
}

func (t *TieredCache) Set(ctx context.Context, key string, a *domain.RiskAssessment) {
	t.memory.Set(key, a)
	if t.remote == nil {
		return
	}
	if err := t.remote.Set(ctx, key, a); err != nil {
		t.logger.WithError(err).WithField("key", key).Warn("Redis cache write failed")
	}
}

// Health reports Redis reachability; the memory tier is always healthy.
func (t *TieredCache) Health(ctx context.Context) error {
	if t.remote == nil {
		return nil
	}
	return t.remote.Ping(ctx)
}

func (t *TieredCache) Close() error {
	if t.remote == nil {
		return nil
	}
	return t.remote.Close()
}
