package domain

import (
	"context"
	"time"
)

// Cache defines the interface for caching operations.
// Supports two-phase caching: local LRU + Redis.
// All keys are namespaced by scope (normally the user id).
type Cache interface {
	// Get retrieves a value from cache.
	// Returns nil, nil if key not found.
	Get(ctx context.Context, scope string, key string) ([]byte, error)

	// Set stores a value in cache with expiration.
	Set(ctx context.Context, scope string, key string, value []byte, ttl time.Duration) error

	// Delete removes a value from cache.
	Delete(ctx context.Context, scope string, key string) error

	// GetAssessment retrieves the cached tracker assessment for a domain.
	// Returns nil, nil on miss.
	GetAssessment(ctx context.Context, userID string, domainID DomainID) (*Assessment, error)

	// SetAssessment caches the tracker assessment for a domain.
	SetAssessment(ctx context.Context, userID string, a *Assessment, ttl time.Duration) error

	// IncrementCounter atomically increments a counter and returns new value.
	// The counter expires after window; used for request rate limiting.
	IncrementCounter(ctx context.Context, scope string, key string, window time.Duration) (int64, error)

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// AssessmentCacheKey is the cache key for a domain's tracker assessment.
func AssessmentCacheKey(domainID DomainID) string {
	return "assessment:" + string(domainID)
}

// CacheConfig holds configuration for cache initialization.
type CacheConfig struct {
	// Type is the cache type: "memory" or "redis"
	Type string `json:"type"`

	// Local LRU cache settings
	LocalMaxSize int           `json:"localMaxSize"`
	LocalTTL     time.Duration `json:"localTtl"`

	// Redis settings
	RedisAddr     string `json:"redisAddr"`
	RedisPassword string `json:"-"`
	RedisDB       int    `json:"redisDb"`

	// Two-phase settings
	EnableTwoPhase bool `json:"enableTwoPhase"` // If true, check local first, then Redis

	// AssessmentTTL bounds how long a tracker assessment is served from cache.
	AssessmentTTL time.Duration `json:"assessmentTtl"`
}
