package findings

import (
	"context"
	"sync"

	"caseguard/internal/guardian/models"
	id "caseguard/pkg/domain"
)

// InMemoryStore is the append-only finding record used by unit tests and
// dev mode. There is deliberately no update or delete: findings are audit
// entries, and resolution transitions belong to the external review flow.
type InMemoryStore struct {
	mu       sync.RWMutex
	findings map[id.TenantID][]models.Finding
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{findings: make(map[id.TenantID][]models.Finding)}
}

func (s *InMemoryStore) Append(_ context.Context, finding models.Finding) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.findings[finding.TenantID] = append(s.findings[finding.TenantID], finding)
	return nil
}

func (s *InMemoryStore) ListBySubject(_ context.Context, tenantID id.TenantID, subjectID string) ([]models.Finding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var matched []models.Finding
	for _, f := range s.findings[tenantID] {
		if f.SubjectID == subjectID {
			matched = append(matched, f)
		}
	}
	return matched, nil
}

func (s *InMemoryStore) ListByTenant(_ context.Context, tenantID id.TenantID, limit int) ([]models.Finding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := s.findings[tenantID]
	if limit > 0 && len(all) > limit {
		all = all[len(all)-limit:]
	}
	return append([]models.Finding{}, all...), nil
}
