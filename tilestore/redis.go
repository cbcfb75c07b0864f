package tilestore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gomodule/redigo/redis"
	log "github.com/sirupsen/logrus"

	"github.com/pdok/gridmap/tile"
)

// RedisStore shares tiles between processes. Keys are Prefix followed by the block.
type RedisStore struct {
	pool   *redis.Pool
	prefix string
	ttl    time.Duration
}

// NewRedisPool dials addr lazily, keeping at most maxIdle idle connections.
func NewRedisPool(addr string, maxIdle int) *redis.Pool {
	return &redis.Pool{
		MaxIdle:     maxIdle,
		IdleTimeout: 240 * time.Second,
		DialContext: func(ctx context.Context) (redis.Conn, error) {
			return redis.DialContext(ctx, "tcp", addr)
		},
	}
}

// NewRedisStore stores tiles in pool. A ttl of 0 keeps them forever.
func NewRedisStore(pool *redis.Pool, prefix string, ttl time.Duration) *RedisStore {
	return &RedisStore{pool: pool, prefix: prefix, ttl: ttl}
}

func (s *RedisStore) key(b tile.Block) string {
	return s.prefix + "tile:" + b.String()
}

func (s *RedisStore) Load(ctx context.Context, b tile.Block) ([]byte, error) {
	conn, err := s.pool.GetContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("redis connection: %w", err)
	}
	defer closeConn(conn)
	data, err := redis.Bytes(conn.Do("GET", s.key(b)))
	if errors.Is(err, redis.ErrNil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading tile %v: %w", b, err)
	}
	return data, nil
}

func (s *RedisStore) Save(ctx context.Context, b tile.Block, data []byte) error {
	conn, err := s.pool.GetContext(ctx)
	if err != nil {
		return fmt.Errorf("redis connection: %w", err)
	}
	defer closeConn(conn)
	args := redis.Args{}.Add(s.key(b), data)
	if s.ttl > 0 {
		args = args.Add("EX", int64(s.ttl/time.Second))
	}
	if _, err = redis.String(conn.Do("SET", args...)); err != nil {
		return fmt.Errorf("saving tile %v: %w", b, err)
	}
	return nil
}

func closeConn(conn redis.Conn) {
	if err := conn.Close(); err != nil {
		log.WithError(err).Error("redis connection close failure")
	}
}
