package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"quotes_service/internal/models"

	"github.com/redis/go-redis/v9"
)

const quotesKey = "quotes:all"

// QuoteCache caches the unfiltered quote list. Filtered queries always go
// to postgres; any quote mutation invalidates the key.
type QuoteCache struct {
	client *redis.Client
	ttl    time.Duration
}

func New(ctx context.Context, addr, pass string, db int, ttl time.Duration) (*QuoteCache, error) {
	const op = "storage.redis.New"

	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     pass,
		DB:           db,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &QuoteCache{
		client: client,
		ttl:    ttl,
	}, nil
}

// GetQuotes returns the cached list and whether the key was present.
func (c *QuoteCache) GetQuotes(ctx context.Context) ([]models.Quote, bool, error) {
	const op = "storage.redis.GetQuotes"

	raw, err := c.client.Get(ctx, quotesKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}

		return nil, false, fmt.Errorf("%s: %w", op, err)
	}

	var quotes []models.Quote
	if err := json.Unmarshal(raw, &quotes); err != nil {
		return nil, false, fmt.Errorf("%s: %w", op, err)
	}

	return quotes, true, nil
}

func (c *QuoteCache) SetQuotes(ctx context.Context, quotes []models.Quote) error {
	const op = "storage.redis.SetQuotes"

	raw, err := json.Marshal(quotes)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := c.client.Set(ctx, quotesKey, raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (c *QuoteCache) Invalidate(ctx context.Context) error {
	const op = "storage.redis.Invalidate"

	if err := c.client.Del(ctx, quotesKey).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (c *QuoteCache) Close() {
	c.client.Close()
}
