package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/andresuchdata/smart-replenishment/internal/domain"
	"github.com/redis/go-redis/v9"
)

const (
	summaryKeyPrefix = keyPrefix + "summary:"
	latestSummaryKey = summaryKeyPrefix + "latest"
)

// SummaryCache keeps full run summaries, including per-product results, which
// the run ledger does not store.
type SummaryCache interface {
	GetLatest(ctx context.Context) (*domain.RunSummary, bool, error)
	GetRun(ctx context.Context, runID string) (*domain.RunSummary, bool, error)
	Set(ctx context.Context, summary *domain.RunSummary) error
	InvalidateAll(ctx context.Context) error
}

type redisSummaryCache struct {
	client *redis.Client
	ttl    time.Duration
}

type noopSummaryCache struct{}

// NewSummaryCache returns a redis-backed summary cache.
func NewSummaryCache(client *redis.Client, ttl time.Duration) SummaryCache {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &redisSummaryCache{client: client, ttl: ttl}
}

func NewNoopSummaryCache() SummaryCache {
	return &noopSummaryCache{}
}

func runSummaryKey(runID string) string {
	return summaryKeyPrefix + "run:" + runID
}

func (c *redisSummaryCache) GetLatest(ctx context.Context) (*domain.RunSummary, bool, error) {
	return c.get(ctx, latestSummaryKey)
}

func (c *redisSummaryCache) GetRun(ctx context.Context, runID string) (*domain.RunSummary, bool, error) {
	return c.get(ctx, runSummaryKey(runID))
}

func (c *redisSummaryCache) get(ctx context.Context, key string) (*domain.RunSummary, bool, error) {
	payload, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get failed: %w", err)
	}

	var summary domain.RunSummary
	if err := json.Unmarshal(payload, &summary); err != nil {
		return nil, false, fmt.Errorf("decode run summary cache: %w", err)
	}

	return &summary, true, nil
}

func (c *redisSummaryCache) Set(ctx context.Context, summary *domain.RunSummary) error {
	payload, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("encode run summary cache: %w", err)
	}

	_, err = c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, runSummaryKey(summary.RunID), payload, c.ttl)
		pipe.Set(ctx, latestSummaryKey, payload, c.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (c *redisSummaryCache) InvalidateAll(ctx context.Context) error {
	return deleteKeysWithPrefix(ctx, c.client, summaryKeyPrefix, scanBatchSize)
}

func (n *noopSummaryCache) GetLatest(ctx context.Context) (*domain.RunSummary, bool, error) {
	return nil, false, nil
}

func (n *noopSummaryCache) GetRun(ctx context.Context, runID string) (*domain.RunSummary, bool, error) {
	return nil, false, nil
}

func (n *noopSummaryCache) Set(ctx context.Context, summary *domain.RunSummary) error {
	return nil
}

func (n *noopSummaryCache) InvalidateAll(ctx context.Context) error {
	return nil
}
