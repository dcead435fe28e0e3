package repository

import (
	"time"
)

// RankedMember is one member of a sorted-set range read.
type RankedMember struct {
	Member string
	Score  float64
}

// CacheRepository defines methods for working with the cache
type CacheRepository interface {
	Set(key string, value interface{}, expiration time.Duration) error
	Get(key string) (string, error)
	Delete(key string) error
	Increment(key string) (int64, error)
	SetJSON(key string, value interface{}, expiration time.Duration) error
	GetJSON(key string, dest interface{}) error
	Exists(key string) (bool, error)
	SetNX(key string, value interface{}, expiration time.Duration) (bool, error)

	// Sorted-set operations backing the leaderboard read path.
	ZAdd(key, member string, score float64) error
	ZIncrBy(key, member string, delta float64) (float64, error)
	ZRevRangeWithScores(key string, start, stop int64) ([]RankedMember, error)
	// ZRevRank returns the zero-based descending rank, or ErrCacheMiss when
	// the member is not in the set.
	ZRevRank(key, member string) (int64, error)
	ZCard(key string) (int64, error)
}
