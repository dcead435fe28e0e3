package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/yourusername/idoneo-api/internal/domain/repository"
)

// CacheRepo implements repository.CacheRepository
type CacheRepo struct {
	client redis.UniversalClient
	ctx    context.Context
}

// NewCacheRepo creates a new cache repository
func NewCacheRepo(client redis.UniversalClient) (*CacheRepo, error) {
	if client == nil {
		return nil, fmt.Errorf("Redis client cannot be nil for CacheRepo")
	}
	return &CacheRepo{
		client: client,
		ctx:    context.Background(),
	}, nil
}

// Set stores a value in the cache
func (r *CacheRepo) Set(key string, value interface{}, expiration time.Duration) error {
	return r.client.Set(r.ctx, key, value, expiration).Err()
}

// Get reads a value from the cache
func (r *CacheRepo) Get(key string) (string, error) {
	val, err := r.client.Get(r.ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", repository.ErrCacheMiss
		}
		return "", err
	}
	return val, nil
}

// Delete removes a key from the cache
func (r *CacheRepo) Delete(key string) error {
	return r.client.Del(r.ctx, key).Err()
}

// Increment increases the value by 1
func (r *CacheRepo) Increment(key string) (int64, error) {
	return r.client.Incr(r.ctx, key).Result()
}

// SetJSON stores a JSON-encoded structure in the cache
func (r *CacheRepo) SetJSON(key string, value interface{}, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return r.client.Set(r.ctx, key, data, expiration).Err()
}

// GetJSON reads a JSON-encoded structure from the cache
func (r *CacheRepo) GetJSON(key string, dest interface{}) error {
	data, err := r.client.Get(r.ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return repository.ErrCacheMiss
		}
		return err
	}
	return json.Unmarshal(data, dest)
}

// Exists checks whether a key is present
func (r *CacheRepo) Exists(key string) (bool, error) {
	result, err := r.client.Exists(r.ctx, key).Result()
	if err != nil {
		return false, err
	}
	return result > 0, nil
}

// SetNX sets a key only if it does not exist yet. Returns true when the key
// was set, false when it already existed.
func (r *CacheRepo) SetNX(key string, value interface{}, expiration time.Duration) (bool, error) {
	return r.client.SetNX(r.ctx, key, value, expiration).Result()
}

// ZAdd sets a member's score in a sorted set
func (r *CacheRepo) ZAdd(key, member string, score float64) error {
	return r.client.ZAdd(r.ctx, key, &redis.Z{Score: score, Member: member}).Err()
}

// ZIncrBy adds delta to a member's score and returns the new value
func (r *CacheRepo) ZIncrBy(key, member string, delta float64) (float64, error) {
	return r.client.ZIncrBy(r.ctx, key, delta, member).Result()
}

// ZRevRangeWithScores reads a descending page of a sorted set
func (r *CacheRepo) ZRevRangeWithScores(key string, start, stop int64) ([]repository.RankedMember, error) {
	zs, err := r.client.ZRevRangeWithScores(r.ctx, key, start, stop).Result()
	if err != nil {
		return nil, err
	}
	members := make([]repository.RankedMember, 0, len(zs))
	for _, z := range zs {
		member, ok := z.Member.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected member type %T in sorted set %s", z.Member, key)
		}
		members = append(members, repository.RankedMember{Member: member, Score: z.Score})
	}
	return members, nil
}

// ZRevRank returns the zero-based descending rank of a member
func (r *CacheRepo) ZRevRank(key, member string) (int64, error) {
	rank, err := r.client.ZRevRank(r.ctx, key, member).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, repository.ErrCacheMiss
		}
		return 0, err
	}
	return rank, nil
}

// ZCard returns the number of members in a sorted set
func (r *CacheRepo) ZCard(key string) (int64, error) {
	return r.client.ZCard(r.ctx, key).Result()
}
