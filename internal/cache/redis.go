package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// redisStore backs the Store interface with Redis. Keys are flattened to
// "<namespace>:<logical key>".
type redisStore struct {
	client *redis.Client
}

// NewRedisStore returns a Redis-backed Store for the given connection URL
// (e.g. redis://localhost:6379/0). The connection is verified eagerly so a
// bad URL fails at startup instead of degrading every request.
func NewRedisStore(url string) (Store, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return &redisStore{client: client}, nil
}

func redisKey(namespace, key string) string {
	return namespace + ":" + key
}

func (s *redisStore) Get(ctx context.Context, namespace, key string, dest any) bool {
	data, err := s.client.Get(ctx, redisKey(namespace, key)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Printf("[cache] redis get %s:%s: %v", namespace, key, err)
		}
		return false
	}
	if err := json.Unmarshal(data, dest); err != nil {
		log.Printf("[cache] decode %s:%s: %v", namespace, key, err)
		return false
	}
	return true
}

func (s *redisStore) Set(ctx context.Context, namespace, key string, value any, ttl time.Duration) bool {
	data, err := json.Marshal(value)
	if err != nil {
		log.Printf("[cache] encode %s:%s: %v", namespace, key, err)
		return false
	}
	if ttl < 0 {
		ttl = 0
	}
	if err := s.client.Set(ctx, redisKey(namespace, key), data, ttl).Err(); err != nil {
		log.Printf("[cache] redis set %s:%s: %v", namespace, key, err)
		return false
	}
	return true
}

func (s *redisStore) Delete(ctx context.Context, namespace, key string) bool {
	if err := s.client.Del(ctx, redisKey(namespace, key)).Err(); err != nil {
		log.Printf("[cache] redis del %s:%s: %v", namespace, key, err)
		return false
	}
	return true
}

func (s *redisStore) Exists(ctx context.Context, namespace, key string) bool {
	n, err := s.client.Exists(ctx, redisKey(namespace, key)).Result()
	if err != nil {
		log.Printf("[cache] redis exists %s:%s: %v", namespace, key, err)
		return false
	}
	return n > 0
}

func (s *redisStore) Keys(ctx context.Context, namespace string) ([]string, error) {
	prefix := namespace + ":"
	var keys []string
	iter := s.client.Scan(ctx, 0, prefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val()[len(prefix):])
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return keys, nil
}

func (s *redisStore) TTL(ctx context.Context, namespace, key string) (time.Duration, error) {
	ttl, err := s.client.TTL(ctx, redisKey(namespace, key)).Result()
	if err != nil {
		return TTLMissing, err
	}
	// go-redis reports the Redis sentinels -1/-2 as raw durations.
	switch ttl {
	case -1:
		return TTLPersistent, nil
	case -2:
		return TTLMissing, nil
	}
	return ttl, nil
}

func (s *redisStore) Expire(ctx context.Context, namespace, key string, ttl time.Duration) bool {
	ok, err := s.client.Expire(ctx, redisKey(namespace, key), ttl).Result()
	if err != nil {
		log.Printf("[cache] redis expire %s:%s: %v", namespace, key, err)
		return false
	}
	return ok
}

func (s *redisStore) Close() error {
	return s.client.Close()
}
