package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dfryer1193/gomovies/movie/domain"
	"github.com/go-redis/redis/v8"
)

var (
	_ domain.MovieCache = (*RedisMovieCache)(nil)
	_ domain.MovieCache = NoOpMovieCache{}
)

// RedisMovieCache implements domain.MovieCache using Redis
type RedisMovieCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisMovieCache connects to address and pings it before returning.
func NewRedisMovieCache(ctx context.Context, address string, ttl time.Duration) (*RedisMovieCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:        address,
		DialTimeout: 2 * time.Second,
		ReadTimeout: 2 * time.Second,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return newRedisMovieCache(client, ttl), nil
}

func newRedisMovieCache(client *redis.Client, ttl time.Duration) *RedisMovieCache {
	return &RedisMovieCache{
		client: client,
		ttl:    ttl,
	}
}

// Close closes the Redis client
func (c *RedisMovieCache) Close() error {
	return c.client.Close()
}

func movieKey(id string) string {
	return fmt.Sprintf("movie:%s", id)
}

// cachedMovie is the JSON layout of a movie inside Redis.
type cachedMovie struct {
	ID      string           `json:"id"`
	Name    string           `json:"name"`
	Summary *string          `json:"summary"`
	Image   *domain.ImageRef `json:"img"`
}

func (c *RedisMovieCache) GetMovie(ctx context.Context, id string) (*domain.Movie, error) {
	data, err := c.client.Get(ctx, movieKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	var cm cachedMovie
	if err := json.Unmarshal(data, &cm); err != nil {
		return nil, fmt.Errorf("failed to decode cached movie: %w", err)
	}

	return &domain.Movie{
		ID:      cm.ID,
		Name:    cm.Name,
		Summary: cm.Summary,
		Image:   cm.Image,
	}, nil
}

func (c *RedisMovieCache) SetMovie(ctx context.Context, m *domain.Movie) error {
	data, err := json.Marshal(cachedMovie{
		ID:      m.ID,
		Name:    m.Name,
		Summary: m.Summary,
		Image:   m.Image,
	})
	if err != nil {
		return err
	}

	return c.client.Set(ctx, movieKey(m.ID), data, c.ttl).Err()
}

func (c *RedisMovieCache) DeleteMovie(ctx context.Context, id string) error {
	return c.client.Del(ctx, movieKey(id)).Err()
}

// NoOpMovieCache always misses.
type NoOpMovieCache struct{}

func (NoOpMovieCache) GetMovie(context.Context, string) (*domain.Movie, error) {
	return nil, domain.ErrNotFound
}

func (NoOpMovieCache) SetMovie(context.Context, *domain.Movie) error {
	return nil
}

func (NoOpMovieCache) DeleteMovie(context.Context, string) error {
	return nil
}
