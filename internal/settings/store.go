package settings

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/redis/go-redis/v9"

	"github.com/mmmarc2025/sparkling-service/pkg/logging"
)

// SystemPromptKey names the persisted base instruction for the assistant.
const SystemPromptKey = "SYSTEM_PROMPT"

type db interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Store reads and writes system_settings rows. Reads go through a short-TTL
// redis snapshot; writes invalidate it so the admin console takes effect on
// the next message.
type Store struct {
	db       db
	redis    *redis.Client
	cacheTTL time.Duration
	logger   *logging.Logger
}

// NewStore creates a settings store. The redis client is optional; without
// it every read hits Postgres, which is fine at catalog scale.
func NewStore(db db, redisClient *redis.Client, cacheTTL time.Duration, logger *logging.Logger) *Store {
	if db == nil {
		panic("settings: db handle required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Store{db: db, redis: redisClient, cacheTTL: cacheTTL, logger: logger}
}

// Get returns the value for key and whether it was set.
func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	if cached, ok := s.cacheGet(ctx, key); ok {
		return cached, true, nil
	}

	var value string
	err := s.db.QueryRow(ctx, `SELECT value FROM system_settings WHERE key = $1`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("settings: load %s: %w", key, err)
	}

	s.cacheSet(ctx, key, value)
	return value, true, nil
}

// GetOrDefault returns the value for key, or fallback when unset or when
// the settings table is unreachable.
func (s *Store) GetOrDefault(ctx context.Context, key, fallback string) string {
	value, ok, err := s.Get(ctx, key)
	if err != nil {
		s.logger.Error("settings lookup failed, using default", "key", key, "error", err)
		return fallback
	}
	if !ok || value == "" {
		return fallback
	}
	return value
}

// Set upserts a setting and drops the cached snapshot.
func (s *Store) Set(ctx context.Context, key, value string) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO system_settings (key, value, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()
	`, key, value)
	if err != nil {
		return fmt.Errorf("settings: upsert %s: %w", key, err)
	}
	s.cacheInvalidate(ctx, key)
	return nil
}

func (s *Store) cacheGet(ctx context.Context, key string) (string, bool) {
	if s.redis == nil || s.cacheTTL <= 0 {
		return "", false
	}
	value, err := s.redis.Get(ctx, cacheKey(key)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logger.Warn("settings cache read failed", "key", key, "error", err)
		}
		return "", false
	}
	return value, true
}

func (s *Store) cacheSet(ctx context.Context, key, value string) {
	if s.redis == nil || s.cacheTTL <= 0 {
		return
	}
	if err := s.redis.Set(ctx, cacheKey(key), value, s.cacheTTL).Err(); err != nil {
		s.logger.Warn("settings cache write failed", "key", key, "error", err)
	}
}

func (s *Store) cacheInvalidate(ctx context.Context, key string) {
	if s.redis == nil {
		return
	}
	if err := s.redis.Del(ctx, cacheKey(key)).Err(); err != nil {
		s.logger.Warn("settings cache invalidation failed", "key", key, "error", err)
	}
}

func cacheKey(key string) string {
	return fmt.Sprintf("settings:%s", key)
}
