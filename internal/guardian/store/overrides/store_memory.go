package overrides

import (
	"context"
	"sync"

	"caseguard/internal/guardian/models"
	id "caseguard/pkg/domain"
)

type subjectKey struct {
	tenantID  id.TenantID
	subjectID string
}

// InMemoryStore holds override requests keyed by tenant+subject.
// The review workflow owns the lifecycle; this core only reads.
type InMemoryStore struct {
	mu        sync.RWMutex
	overrides map[subjectKey][]models.OverrideRequest
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{overrides: make(map[subjectKey][]models.OverrideRequest)}
}

// Put records an override request, replacing none; requests accumulate the
// way the external collection does.
func (s *InMemoryStore) Put(_ context.Context, req models.OverrideRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := subjectKey{tenantID: req.TenantID, subjectID: req.SubjectID}
	s.overrides[key] = append(s.overrides[key], req)
	return nil
}

func (s *InMemoryStore) ListBySubject(_ context.Context, tenantID id.TenantID, subjectID string) ([]models.OverrideRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	key := subjectKey{tenantID: tenantID, subjectID: subjectID}
	return append([]models.OverrideRequest{}, s.overrides[key]...), nil
}
