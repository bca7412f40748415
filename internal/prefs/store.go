// Package prefs stores operator preferences, such as the LLM credential and
// model choice, as key-value pairs in Postgres with a Redis read-through
// cache.
package prefs

import (
	"context"
	"errors"
	"time"

	"github.com/assessly/assessly-backend/internal/config"
	"github.com/assessly/assessly-backend/internal/model"
	"github.com/assessly/assessly-backend/internal/repository"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// ErrNotSet is returned when a preference has no stored value.
var ErrNotSet = errors.New("preference not set")

const cacheTTL = 5 * time.Minute

// Store reads and writes preferences. Reads hit Redis first and fall back to
// Postgres; writes go to Postgres and invalidate the cache entry.
type Store struct {
	repo *repository.SettingRepository
	rdb  *redis.Client
	log  zerolog.Logger
}

// NewStore creates a preference Store.
func NewStore(repo *repository.SettingRepository, rdb *redis.Client, log zerolog.Logger) *Store {
	return &Store{
		repo: repo,
		rdb:  rdb,
		log:  log.With().Str("component", "prefs").Logger(),
	}
}

// Get returns the value for key, or ErrNotSet if it has never been stored.
func (s *Store) Get(ctx context.Context, key string) (string, error) {
	cacheKey := config.CacheKey.SettingKey(key)

	cached, err := s.rdb.Get(ctx, cacheKey).Result()
	if err == nil {
		return cached, nil
	}
	if !errors.Is(err, redis.Nil) {
		// Cache trouble should not block reads, fall through to Postgres.
		s.log.Warn().Err(err).Str("key", key).Msg("prefs cache read failed")
	}

	setting, err := s.repo.GetByKey(ctx, key)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrNotSet
		}
		return "", err
	}

	if err := s.rdb.Set(ctx, cacheKey, setting.Value, cacheTTL).Err(); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("prefs cache write failed")
	}
	return setting.Value, nil
}

// GetOrDefault returns the stored value for key, or def when unset.
func (s *Store) GetOrDefault(ctx context.Context, key, def string) (string, error) {
	val, err := s.Get(ctx, key)
	if errors.Is(err, ErrNotSet) {
		return def, nil
	}
	if err != nil {
		return "", err
	}
	return val, nil
}

// Set stores a preference and drops the stale cache entry.
func (s *Store) Set(ctx context.Context, key, value string) error {
	if err := s.repo.Upsert(ctx, key, value); err != nil {
		return err
	}
	if err := s.rdb.Del(ctx, config.CacheKey.SettingKey(key)).Err(); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("prefs cache invalidation failed")
	}
	return nil
}

// All returns every stored preference with secrets masked. The credential
// value is reduced to a set/unset marker so it never leaves the server.
func (s *Store) All(ctx context.Context) (map[string]string, error) {
	settings, err := s.repo.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	out := make(map[string]string, len(settings))
	for _, setting := range settings {
		if setting.Key == model.SettingGroqAPIKey {
			out[setting.Key] = maskSecret(setting.Value)
			continue
		}
		out[setting.Key] = setting.Value
	}
	return out, nil
}

func maskSecret(v string) string {
	if v == "" {
		return ""
	}
	if len(v) <= 8 {
		return "********"
	}
	return v[:4] + "****" + v[len(v)-4:]
}
