package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"caseguard/internal/guardian/models"
	id "caseguard/pkg/domain"
	"caseguard/pkg/platform/sentinel"
)

// InMemoryStore holds scheduled jobs for unit tests and dev mode.
// It enforces the same status transitions as the Postgres store:
// pending -> fired and pending -> cancelled only.
type InMemoryStore struct {
	mu   sync.RWMutex
	jobs map[id.JobID]models.ScheduledJob
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{jobs: make(map[id.JobID]models.ScheduledJob)}
}

func (s *InMemoryStore) Create(_ context.Context, job models.ScheduledJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.jobs[job.ID]; exists {
		return sentinel.ErrConflict
	}
	s.jobs[job.ID] = job
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, jobID id.JobID) (*models.ScheduledJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := job
	return &copied, nil
}

func (s *InMemoryStore) ListDue(_ context.Context, now time.Time) ([]models.ScheduledJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var due []models.ScheduledJob
	for _, job := range s.jobs {
		if job.Status == models.JobPending && !job.ExecuteAt.After(now) {
			due = append(due, job)
		}
	}
	return due, nil
}

func (s *InMemoryStore) MarkFired(_ context.Context, jobID id.JobID, outcome models.JobOutcome, firedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if job.Status != models.JobPending {
		return fmt.Errorf("job %s is %s: %w", jobID, job.Status, sentinel.ErrInvalidState)
	}
	job.Status = models.JobFired
	job.Outcome = outcome
	job.FiredAt = &firedAt
	s.jobs[jobID] = job
	return nil
}

func (s *InMemoryStore) Cancel(_ context.Context, jobID id.JobID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if job.Status != models.JobPending {
		return fmt.Errorf("job %s is %s: %w", jobID, job.Status, sentinel.ErrInvalidState)
	}
	job.Status = models.JobCancelled
	s.jobs[jobID] = job
	return nil
}
