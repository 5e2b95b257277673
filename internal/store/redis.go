package store

import (
	"context"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/sweeney/inkdash/internal/errcode"
)

// DefaultRedisKey is the key the retained block is stored under.
const DefaultRedisKey = "inkdash:retained"

// redisClient is the subset of *redis.Client the store uses.
type redisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// RedisStore keeps the retained block on a Redis server, for panels whose
// local storage does not survive power-off.
type RedisStore struct {
	client redisClient
	key    string
	period int
}

// NewRedisClient creates a client for addr.
func NewRedisClient(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:        addr,
		DialTimeout: 3 * time.Second,
		ReadTimeout: 3 * time.Second,
	})
}

// NewRedisStore creates a store using client under key.
func NewRedisStore(client redisClient, key string, period int) *RedisStore {
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisStore{client: client, key: key, period: period}
}

// Load implements Store.
func (s *RedisStore) Load(ctx context.Context) (Retained, error) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return Retained{}, &errcode.E{C: errcode.StorageUnavailable, Op: "store", Msg: "no retained block"}
	}
	if err != nil {
		return Retained{}, errcode.New(errcode.StorageUnavailable, "store", err)
	}
	return Decode(data, s.period)
}

// Save implements Store. The block never expires.
func (s *RedisStore) Save(ctx context.Context, r Retained) error {
	data, err := Encode(r)
	if err != nil {
		return errcode.New(errcode.StorageUnavailable, "store", err)
	}
	if err := s.client.Set(ctx, s.key, data, 0).Err(); err != nil {
		return errcode.New(errcode.StorageUnavailable, "store", err)
	}
	return nil
}
