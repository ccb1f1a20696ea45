package config

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
)

// RedisStore wraps the redis client and lock client.
// A nil *RedisStore is valid and behaves as an always-empty cache.
type RedisStore struct {
	client *redis.Client
	locker *redislock.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	if client == nil {
		return nil
	}
	return &RedisStore{client: client, locker: redislock.New(client)}
}

// ConnectRedisWithRetry tries up to maxAttempts times (0 = forever).
// Call this from main() AFTER the HTTP server is listening.
func ConnectRedisWithRetry(ctx context.Context, cfg *Config, maxAttempts int) *RedisStore {
	var attempt int
	for {
		attempt++
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: 100,
		})
		err := rdb.Ping(ctx).Err()
		if err == nil {
			log.Printf("connected to redis (attempt=%d addr=%s)", attempt, cfg.Redis.Address)
			return NewRedisStore(rdb)
		}
		_ = rdb.Close()
		if maxAttempts > 0 && attempt >= maxAttempts {
			log.Printf("redis unavailable after %d attempts (addr=%s): %v; running without cache", attempt, cfg.Redis.Address, err)
			return nil
		}
		sleep := time.Second * time.Duration(1<<min(attempt, 5))
		if sleep > 30*time.Second {
			sleep = 30 * time.Second
		}
		log.Printf("failed to connect redis (attempt=%d addr=%s): %v; retrying in %s", attempt, cfg.Redis.Address, err, sleep)
		time.Sleep(sleep)
	}
}

func (s *RedisStore) Client() *redis.Client {
	if s == nil {
		return nil
	}
	return s.client
}

func (s *RedisStore) GetObject(ctx context.Context, key string, dest interface{}) (bool, error) {
	if s == nil {
		return false, nil
	}
	val, err := s.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal([]byte(val), dest); err != nil {
		return false, err
	}
	return true, nil
}

func (s *RedisStore) SetObject(ctx context.Context, key string, obj interface{}, exp time.Duration) error {
	if s == nil {
		return nil
	}
	objInByte, err := json.Marshal(obj)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, key, objInByte, exp).Err()
}

func (s *RedisStore) RemoveKey(ctx context.Context, keys ...string) error {
	if s == nil || len(keys) == 0 {
		return nil
	}
	return s.client.Del(ctx, keys...).Err()
}

// ObtainLock returns (nil, nil) when redis is not configured or the lock is held elsewhere.
// Callers treat the redis lock as best-effort; the database lock is authoritative.
func (s *RedisStore) ObtainLock(ctx context.Context, key string, ttl time.Duration) (*redislock.Lock, error) {
	if s == nil {
		return nil, nil
	}
	lock, err := s.locker.Obtain(ctx, key, ttl, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, nil
	}
	return lock, err
}

func (s *RedisStore) Close() error {
	if s == nil {
		return nil
	}
	return s.client.Close()
}

// RemovePattern deletes every key matching pattern using SCAN.
func (s *RedisStore) RemovePattern(ctx context.Context, pattern string) error {
	if s == nil {
		return nil
	}
	iter := s.client.Scan(ctx, 0, pattern, 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	return s.RemoveKey(ctx, keys...)
}
