package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/promptlabs/promptlab/internal/types"
	"github.com/redis/go-redis/v9"
)

// usageCounterID keys the singleton counter row.
const usageCounterID = "global_usage"

const usageCacheKey = "promptlab:usage"
const usageCacheTTL = 30 * time.Second

// UsageStore maintains the global usage counter with atomic increment
// semantics at the storage layer.
type UsageStore interface {
	Increment(ctx context.Context, delta types.UsageDelta) error
	Touch(ctx context.Context) error
	Get(ctx context.Context) (types.UsageStats, error)
	Reset(ctx context.Context) error
}

// PGUsageStore implements UsageStore on PostgreSQL. Every mutation is a
// single upsert statement, so concurrent experiments never lose increments.
type PGUsageStore struct {
	db *pgxpool.Pool
}

func NewPGUsageStore(db *pgxpool.Pool) *PGUsageStore {
	return &PGUsageStore{db: db}
}

func (s *PGUsageStore) Increment(ctx context.Context, delta types.UsageDelta) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO usage_counters
			(id, total_experiments, total_samples, total_tokens, total_cost, last_updated)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (id) DO UPDATE SET
			total_experiments = usage_counters.total_experiments + EXCLUDED.total_experiments,
			total_samples     = usage_counters.total_samples + EXCLUDED.total_samples,
			total_tokens      = usage_counters.total_tokens + EXCLUDED.total_tokens,
			total_cost        = usage_counters.total_cost + EXCLUDED.total_cost,
			last_updated      = NOW()
	`, usageCounterID, delta.Experiments, delta.Samples, delta.Tokens, delta.Cost)
	if err != nil {
		return fmt.Errorf("increment usage counter: %w", err)
	}
	return nil
}

// Touch updates only the counter timestamp; totals are unchanged. Used when
// an experiment produced no successful samples.
func (s *PGUsageStore) Touch(ctx context.Context) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO usage_counters
			(id, total_experiments, total_samples, total_tokens, total_cost, last_updated)
		VALUES ($1, 0, 0, 0, 0, NOW())
		ON CONFLICT (id) DO UPDATE SET last_updated = NOW()
	`, usageCounterID)
	if err != nil {
		return fmt.Errorf("touch usage counter: %w", err)
	}
	return nil
}

// Get returns the current totals, or all zeros when the counter row has not
// been created yet.
func (s *PGUsageStore) Get(ctx context.Context) (types.UsageStats, error) {
	var stats types.UsageStats
	err := s.db.QueryRow(ctx, `
		SELECT total_experiments, total_samples, total_tokens, total_cost, last_updated
		FROM usage_counters
		WHERE id = $1
	`, usageCounterID).Scan(
		&stats.TotalExperiments,
		&stats.TotalSamples,
		&stats.TotalTokens,
		&stats.TotalCost,
		&stats.LastUpdated,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return types.UsageStats{}, nil
	}
	if err != nil {
		return types.UsageStats{}, fmt.Errorf("query usage counter: %w", err)
	}
	return stats, nil
}

func (s *PGUsageStore) Reset(ctx context.Context) error {
	_, err := s.db.Exec(ctx, `DELETE FROM usage_counters WHERE id = $1`, usageCounterID)
	if err != nil {
		return fmt.Errorf("delete usage counter: %w", err)
	}
	return nil
}

// CachedUsageStore wraps a UsageStore with a short-TTL Redis cache for reads.
// A nil Redis client disables caching; Redis errors never fail the call.
type CachedUsageStore struct {
	inner UsageStore
	redis *redis.Client
}

func NewCachedUsageStore(inner UsageStore, rdb *redis.Client) *CachedUsageStore {
	return &CachedUsageStore{inner: inner, redis: rdb}
}

func (s *CachedUsageStore) Get(ctx context.Context) (types.UsageStats, error) {
	if s.redis != nil {
		cached, err := s.redis.Get(ctx, usageCacheKey).Bytes()
		if err == nil {
			var stats types.UsageStats
			if err := json.Unmarshal(cached, &stats); err == nil {
				return stats, nil
			}
		}
	}

	stats, err := s.inner.Get(ctx)
	if err != nil {
		return types.UsageStats{}, err
	}

	if s.redis != nil {
		if data, err := json.Marshal(stats); err == nil {
			s.redis.Set(ctx, usageCacheKey, data, usageCacheTTL)
		}
	}
	return stats, nil
}

func (s *CachedUsageStore) Increment(ctx context.Context, delta types.UsageDelta) error {
	if err := s.inner.Increment(ctx, delta); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

func (s *CachedUsageStore) Touch(ctx context.Context) error {
	if err := s.inner.Touch(ctx); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

func (s *CachedUsageStore) Reset(ctx context.Context) error {
	if err := s.inner.Reset(ctx); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

func (s *CachedUsageStore) invalidate(ctx context.Context) {
	if s.redis != nil {
		s.redis.Del(ctx, usageCacheKey)
	}
}
