// README: Settings store backed by PostgreSQL with a Redis read-through cache.
package settings

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

const (
	cacheKey      = "settings:values"
	generationKey = "settings:generation"
)

type Store struct {
	db    *pgxpool.Pool
	redis *redis.Client
	ttl   time.Duration
	log   *slog.Logger
	query func(context.Context) (Values, error)
}

// NewStore builds a store; a nil redis client disables caching.
func NewStore(db *pgxpool.Pool, redis *redis.Client, ttl time.Duration, log *slog.Logger) *Store {
	if log == nil {
		log = slog.Default()
	}
	s := &Store{db: db, redis: redis, ttl: ttl, log: log}
	s.query = s.load
	return s
}

func (s *Store) All(ctx context.Context) (Values, error) {
	if s.redis == nil {
		return s.query(ctx)
	}
	cached, err := s.redis.HGetAll(ctx, cacheKey).Result()
	if err == nil && len(cached) > 0 {
		return Values(cached), nil
	}

	// The database is read under WATCH on the generation key. A Put that
	// commits meanwhile bumps the generation and the refill is dropped.
	var (
		values  Values
		loadErr error
	)
	err = s.redis.Watch(ctx, func(tx *redis.Tx) error {
		values, loadErr = s.query(ctx)
		if loadErr != nil || len(values) == 0 {
			return loadErr
		}
		_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, cacheKey, map[string]string(values))
			pipe.Expire(ctx, cacheKey, s.ttl)
			return nil
		})
		return err
	}, generationKey)
	switch {
	case loadErr != nil:
		return nil, loadErr
	case values == nil:
		// Redis failed before the database was read.
		s.log.Warn("settings cache unavailable", slog.Any("err", err))
		return s.query(ctx)
	case errors.Is(err, redis.TxFailedErr):
		s.log.Debug("settings cache refill skipped after concurrent update")
	case err != nil:
		s.log.Warn("settings cache refill failed", slog.Any("err", err))
	}
	return values, nil
}

func (s *Store) load(ctx context.Context) (Values, error) {
	rows, err := s.db.Query(ctx, `SELECT key, value FROM settings`)
	if err != nil {
		return nil, fmt.Errorf("query settings: %w", err)
	}
	defer rows.Close()

	values := Values{}
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		values[k] = v
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return values, nil
}

// Put upserts the given keys in one transaction, then bumps the cache
// generation and drops the cached hash.
func (s *Store) Put(ctx context.Context, values Values) error {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for k, v := range values {
		if _, err := tx.Exec(ctx, `
			INSERT INTO settings (key, value, updated_at) VALUES ($1, $2, NOW())
			ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()`,
			k, v,
		); err != nil {
			return fmt.Errorf("upsert setting %s: %w", k, err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return err
	}

	if s.redis != nil {
		if _, err := s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Incr(ctx, generationKey)
			pipe.Del(ctx, cacheKey)
			return nil
		}); err != nil {
			s.log.Error("settings cache invalidation failed", slog.Any("err", err))
		}
	}
	return nil
}
