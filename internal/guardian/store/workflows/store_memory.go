package workflows

import (
	"context"
	"sync"

	"caseguard/internal/guardian/models"
	id "caseguard/pkg/domain"
	"caseguard/pkg/platform/sentinel"
)

// InMemoryStore holds compliance workflows keyed by tenant.
type InMemoryStore struct {
	mu        sync.RWMutex
	workflows map[id.TenantID][]models.ComplianceWorkflow
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{workflows: make(map[id.TenantID][]models.ComplianceWorkflow)}
}

// Put inserts or replaces a workflow. Invalid workflows are rejected here,
// mirroring the config-load validation the Postgres store performs.
func (s *InMemoryStore) Put(_ context.Context, wf models.ComplianceWorkflow) error {
	if err := wf.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	existing := s.workflows[wf.TenantID]
	for i, w := range existing {
		if w.ID == wf.ID {
			existing[i] = wf
			return nil
		}
	}
	s.workflows[wf.TenantID] = append(existing, wf)
	return nil
}

func (s *InMemoryStore) ListByTrigger(_ context.Context, tenantID id.TenantID, trigger string) ([]models.ComplianceWorkflow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var matched []models.ComplianceWorkflow
	for _, wf := range s.workflows[tenantID] {
		if wf.Trigger == trigger {
			matched = append(matched, wf)
		}
	}
	return matched, nil
}

func (s *InMemoryStore) Get(_ context.Context, workflowID id.WorkflowID) (*models.ComplianceWorkflow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, tenantWorkflows := range s.workflows {
		for _, wf := range tenantWorkflows {
			if wf.ID == workflowID {
				copied := wf
				return &copied, nil
			}
		}
	}
	return nil, sentinel.ErrNotFound
}
