package rules

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"caseguard/internal/guardian/models"
	id "caseguard/pkg/domain"
)

// CachedStore is a read-through Redis cache in front of another rule
// store. Caching is a performance optimization only: every cache failure
// falls through to the inner store, and the admin write path invalidates
// on rule edits. Correctness never depends on the cache.
type CachedStore struct {
	inner  interface {
		ListActive(ctx context.Context, tenantID id.TenantID, eventType string) ([]models.PolicyRule, error)
	}
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

func NewCachedStore(inner *PostgresStore, client *redis.Client, ttl time.Duration, logger *slog.Logger) *CachedStore {
	return &CachedStore{inner: inner, client: client, ttl: ttl, logger: logger}
}

func cacheKey(tenantID id.TenantID, eventType string) string {
	return fmt.Sprintf("caseguard:rules:%s:%s", tenantID, eventType)
}

func (s *CachedStore) ListActive(ctx context.Context, tenantID id.TenantID, eventType string) ([]models.PolicyRule, error) {
	key := cacheKey(tenantID, eventType)

	cached, err := s.client.Get(ctx, key).Bytes()
	if err == nil {
		var rules []models.PolicyRule
		if err := json.Unmarshal(cached, &rules); err == nil {
			return rules, nil
		}
		// Corrupt entry: drop it and fall through.
		s.client.Del(ctx, key)
	} else if err != redis.Nil {
		s.logger.WarnContext(ctx, "rule cache read failed, falling through",
			"tenant_id", tenantID,
			"error", err,
		)
	}

	rules, err := s.inner.ListActive(ctx, tenantID, eventType)
	if err != nil {
		return nil, err
	}

	if encoded, err := json.Marshal(rules); err == nil {
		if err := s.client.Set(ctx, key, encoded, s.ttl).Err(); err != nil {
			s.logger.WarnContext(ctx, "rule cache write failed",
				"tenant_id", tenantID,
				"error", err,
			)
		}
	}
	return rules, nil
}

// Invalidate drops the cached rule set for one tenant+event. The admin
// collaborator calls this after every rule edit.
func (s *CachedStore) Invalidate(ctx context.Context, tenantID id.TenantID, eventType string) error {
	return s.client.Del(ctx, cacheKey(tenantID, eventType)).Err()
}
