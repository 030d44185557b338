// Package cache stores recent departure lists per origin airport so that
// repeated searches inside the TTL do not spend API quota.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/derickschaefer/departures/internal/model"
)

// Cache is the departures response cache.
type Cache interface {
	Get(ctx context.Context, origin string) (*model.DeparturesResponse, bool)
	Set(ctx context.Context, origin string, resp *model.DeparturesResponse) error
	Close() error
}

type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Addr: "localhost:6379",
		DB:   0,
		TTL:  5 * time.Minute,
	}
}

// NewRedisCache connects to Redis and verifies the connection with PING.
func NewRedisCache(cfg RedisConfig) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}

	return &RedisCache{
		client: client,
		ttl:    cfg.TTL,
	}, nil
}

func (c *RedisCache) Get(ctx context.Context, origin string) (*model.DeparturesResponse, bool) {
	data, err := c.client.Get(ctx, Key(origin)).Bytes()
	if err != nil {
		return nil, false
	}

	var resp model.DeparturesResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, false
	}

	return &resp, true
}

func (c *RedisCache) Set(ctx context.Context, origin string, resp *model.DeparturesResponse) error {
	data, err := json.Marshal(resp)
	if err != nil {
		return err
	}

	return c.client.Set(ctx, Key(origin), data, c.ttl).Err()
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

type NoOpCache struct{}

func NewNoOpCache() *NoOpCache {
	return &NoOpCache{}
}

func (c *NoOpCache) Get(ctx context.Context, origin string) (*model.DeparturesResponse, bool) {
	return nil, false
}

func (c *NoOpCache) Set(ctx context.Context, origin string, resp *model.DeparturesResponse) error {
	return nil
}

func (c *NoOpCache) Close() error {
	return nil
}

// Key returns the Redis key for an origin. Departure lists are "today's"
// schedule, so the UTC date is part of the key.
func Key(origin string) string {
	return keyAt(origin, time.Now().UTC())
}

func keyAt(origin string, now time.Time) string {
	keyData := struct {
		Origin string
		Day    string
	}{
		Origin: strings.ToUpper(strings.TrimSpace(origin)),
		Day:    now.Format("2006-01-02"),
	}

	data, _ := json.Marshal(keyData)
	hash := sha256.Sum256(data)
	return "departures:" + hex.EncodeToString(hash[:])
}
