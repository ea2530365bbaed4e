package rules

import (
	"context"
	"sync"

	"caseguard/internal/guardian/models"
	id "caseguard/pkg/domain"
)

// InMemoryStore holds policy rules keyed by tenant. Used by unit tests and
// dev mode; the admin tool writes the Postgres collection in production.
type InMemoryStore struct {
	mu    sync.RWMutex
	rules map[id.TenantID][]models.PolicyRule
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{rules: make(map[id.TenantID][]models.PolicyRule)}
}

// Put inserts or replaces a rule.
func (s *InMemoryStore) Put(_ context.Context, rule models.PolicyRule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing := s.rules[rule.TenantID]
	for i, r := range existing {
		if r.ID == rule.ID {
			existing[i] = rule
			return nil
		}
	}
	s.rules[rule.TenantID] = append(existing, rule)
	return nil
}

// ListActive returns enabled, active rules matching the event type.
func (s *InMemoryStore) ListActive(_ context.Context, tenantID id.TenantID, eventType string) ([]models.PolicyRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var matched []models.PolicyRule
	for _, rule := range s.rules[tenantID] {
		if rule.Evaluable() && rule.TriggerEvent == eventType {
			matched = append(matched, rule)
		}
	}
	return matched, nil
}
