package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"hashpaste/internal/model"
	"hashpaste/internal/util"
)

const defaultRedisPrefix = "paste:"

// redisRecord is the JSON value stored per key. Text is gzip'd.
type redisRecord struct {
	ZText     []byte    `json:"z"`
	Lang      string    `json:"lang"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at,omitempty"`
}

// Redis stores pastes as "<prefix><id>" keys. Expiry is delegated to key TTLs.
type Redis struct {
	client *redis.Client
	prefix string
}

// NewRedis wraps client. Prefix may be empty.
func NewRedis(client *redis.Client, prefix string) *Redis {
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	return &Redis{client: client, prefix: prefix}
}

// DialRedis connects to addr and verifies connectivity.
func DialRedis(ctx context.Context, addr, password string, db int) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return NewRedis(client, ""), nil
}

// Client exposes the underlying connection for components sharing it.
func (s *Redis) Client() *redis.Client { return s.client }

func (s *Redis) key(id string) string { return s.prefix + id }

// Create uses SETNX so concurrent writers never overwrite each other.
func (s *Redis) Create(ctx context.Context, p model.Paste) (bool, error) {
	z, err := util.GzipEncode(p.Text)
	if err != nil {
		return false, err
	}
	b, err := json.Marshal(redisRecord{
		ZText:     z,
		Lang:      p.Lang,
		CreatedAt: p.CreatedAt,
		ExpiresAt: p.ExpiresAt,
	})
	if err != nil {
		return false, err
	}
	var ttl time.Duration
	if !p.ExpiresAt.IsZero() {
		ttl = time.Until(p.ExpiresAt)
		if ttl <= 0 {
			ttl = time.Second
		}
	}
	ok, err := s.client.SetNX(ctx, s.key(p.ID), b, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis setnx: %w", err)
	}
	return ok, nil
}

func (s *Redis) Get(ctx context.Context, id string) (model.Paste, error) {
	b, err := s.client.Get(ctx, s.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return model.Paste{}, ErrNotFound
	}
	if err != nil {
		return model.Paste{}, fmt.Errorf("redis get: %w", err)
	}
	var rec redisRecord
	if err := json.Unmarshal(b, &rec); err != nil {
		return model.Paste{}, fmt.Errorf("decode paste %s: %w", id, err)
	}
	text, err := util.GzipDecode(rec.ZText)
	if err != nil {
		return model.Paste{}, fmt.Errorf("decode paste %s: %w", id, err)
	}
	return model.Paste{
		ID:        id,
		Text:      text,
		Lang:      rec.Lang,
		CreatedAt: rec.CreatedAt,
		ExpiresAt: rec.ExpiresAt,
	}, nil
}

// Count scans the key space; fine for the sizes a single instance holds.
func (s *Redis) Count(ctx context.Context) (int, error) {
	n := 0
	iter := s.client.Scan(ctx, 0, s.prefix+"*", 256).Iterator()
	for iter.Next(ctx) {
		n++
	}
	if err := iter.Err(); err != nil {
		return 0, fmt.Errorf("redis scan: %w", err)
	}
	return n, nil
}

func (s *Redis) Close() error { return s.client.Close() }
