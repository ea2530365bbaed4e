package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"caseguard/internal/guardian/models"
	"caseguard/internal/guardian/ports"
	"caseguard/internal/guardian/state"
	jobstore "caseguard/internal/guardian/store/jobs"
	workflowstore "caseguard/internal/guardian/store/workflows"
	id "caseguard/pkg/domain"
)

type captureExecutor struct {
	mu      sync.Mutex
	intents []models.ActionIntent
	err     error
}

func (c *captureExecutor) Execute(_ context.Context, intent models.ActionIntent) (*models.ActionResult, error) {
	if c.err != nil {
		return nil, c.err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.intents = append(c.intents, intent)
	return &models.ActionResult{Status: "completed"}, nil
}

func (c *captureExecutor) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.intents)
}

type failingStateProvider struct{}

func (failingStateProvider) CurrentState(context.Context, id.TenantID, string, string) (map[string]any, error) {
	return nil, errors.New("state service down")
}

type fixture struct {
	tenantID  id.TenantID
	workflow  models.ComplianceWorkflow
	jobs      *jobstore.InMemoryStore
	workflows *workflowstore.InMemoryStore
	executor  *captureExecutor
	now       time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		tenantID:  id.NewTenantID(),
		jobs:      jobstore.NewInMemoryStore(),
		workflows: workflowstore.NewInMemoryStore(),
		executor:  &captureExecutor{},
		now:       time.Date(2026, 8, 31, 9, 0, 0, 0, time.UTC),
	}
	f.workflow = models.ComplianceWorkflow{
		ID:       id.NewWorkflowID(),
		TenantID: f.tenantID,
		Trigger:  "absence.recorded",
		Condition: models.Condition{
			Field:    "absence.status",
			Operator: models.OpEq,
			Value:    "unexplained",
		},
		Action:   models.IntentCreateCase,
		SLAHours: 48,
	}
	require.NoError(t, f.workflows.Put(context.Background(), f.workflow))
	return f
}

func (f *fixture) scheduler(provider ports.StateProvider, opts ...Option) *Scheduler {
	base := []Option{WithClock(func() time.Time { return f.now })}
	return New(f.jobs, f.workflows, provider, f.executor, append(base, opts...)...)
}

func (f *fixture) scheduleIntent() models.ActionIntent {
	return models.ActionIntent{
		Type:       models.IntentScheduleJob,
		WorkflowID: f.workflow.ID,
		TenantID:   f.tenantID,
		ExecuteAt:  f.now.Add(-time.Minute),
		Event: models.GuardianEvent{
			TenantID:    f.tenantID,
			EventType:   "absence.recorded",
			SubjectType: "student",
			SubjectID:   "stu-7",
			Context: map[string]any{
				"absence": map[string]any{"status": "unexplained"},
			},
		},
	}
}

func waitForStatus(t *testing.T, jobs *jobstore.InMemoryStore, jobID id.JobID, want models.JobStatus) models.ScheduledJob {
	t.Helper()
	var got models.ScheduledJob
	require.Eventually(t, func() bool {
		job, err := jobs.Get(context.Background(), jobID)
		if err != nil {
			return false
		}
		got = *job
		return job.Status == want
	}, 2*time.Second, 10*time.Millisecond)
	return got
}

func TestSchedule(t *testing.T) {
	t.Run("persists a pending job", func(t *testing.T) {
		f := newFixture(t)
		s := f.scheduler(nil)

		job, err := s.Schedule(context.Background(), f.scheduleIntent())
		require.NoError(t, err)

		stored, err := f.jobs.Get(context.Background(), job.ID)
		require.NoError(t, err)
		assert.Equal(t, models.JobPending, stored.Status)
		assert.Equal(t, f.workflow.ID, stored.WorkflowID)
		assert.Equal(t, "stu-7", stored.Event.SubjectID)
	})

	t.Run("rejects non-schedule intents", func(t *testing.T) {
		f := newFixture(t)
		s := f.scheduler(nil)

		intent := f.scheduleIntent()
		intent.Type = models.IntentCreateCase
		_, err := s.Schedule(context.Background(), intent)
		assert.Error(t, err)
	})
}

func TestSweepRecheck(t *testing.T) {
	t.Run("condition still holds, action executes", func(t *testing.T) {
		f := newFixture(t)
		provider := &state.Static{States: map[string]map[string]any{
			"stu-7": {"absence": map[string]any{"status": "unexplained"}},
		}}
		s := f.scheduler(provider)

		job, err := s.Schedule(context.Background(), f.scheduleIntent())
		require.NoError(t, err)

		s.Sweep(context.Background())
		fired := waitForStatus(t, f.jobs, job.ID, models.JobFired)

		assert.Equal(t, models.OutcomeExecuted, fired.Outcome)
		require.Equal(t, 1, f.executor.count())
		assert.Equal(t, models.IntentCreateCase, f.executor.intents[0].Type)
	})

	t.Run("condition cleared, nothing executes", func(t *testing.T) {
		f := newFixture(t)
		provider := &state.Static{States: map[string]map[string]any{
			"stu-7": {"absence": map[string]any{"status": "explained"}},
		}}
		s := f.scheduler(provider)

		job, err := s.Schedule(context.Background(), f.scheduleIntent())
		require.NoError(t, err)

		s.Sweep(context.Background())
		fired := waitForStatus(t, f.jobs, job.ID, models.JobFired)

		assert.Equal(t, models.OutcomeConditionCleared, fired.Outcome)
		assert.Equal(t, 0, f.executor.count())
	})

	t.Run("re-check uses current state, not the snapshot", func(t *testing.T) {
		f := newFixture(t)
		// Snapshot says unexplained; live state says explained. The live
		// state wins and the case is never opened.
		provider := &state.Static{States: map[string]map[string]any{
			"stu-7": {"absence": map[string]any{"status": "explained"}},
		}}
		s := f.scheduler(provider)

		job, err := s.Schedule(context.Background(), f.scheduleIntent())
		require.NoError(t, err)

		s.Sweep(context.Background())
		fired := waitForStatus(t, f.jobs, job.ID, models.JobFired)
		assert.Equal(t, models.OutcomeConditionCleared, fired.Outcome)
	})
}

func TestSweepDurability(t *testing.T) {
	t.Run("picks up jobs persisted before a restart", func(t *testing.T) {
		f := newFixture(t)
		// Simulate a job written by a previous process: it exists in the
		// store but was never scheduled through this instance.
		job := models.ScheduledJob{
			ID:         id.NewJobID(),
			WorkflowID: f.workflow.ID,
			TenantID:   f.tenantID,
			Event:      f.scheduleIntent().Event,
			ExecuteAt:  f.now.Add(-time.Hour),
			Status:     models.JobPending,
			CreatedAt:  f.now.Add(-49 * time.Hour),
		}
		require.NoError(t, f.jobs.Create(context.Background(), job))

		provider := &state.Static{States: map[string]map[string]any{
			"stu-7": {"absence": map[string]any{"status": "unexplained"}},
		}}
		s := f.scheduler(provider)

		s.Sweep(context.Background())
		fired := waitForStatus(t, f.jobs, job.ID, models.JobFired)
		assert.Equal(t, models.OutcomeExecuted, fired.Outcome)
	})

	t.Run("future jobs are not touched", func(t *testing.T) {
		f := newFixture(t)
		s := f.scheduler(nil)

		intent := f.scheduleIntent()
		intent.ExecuteAt = f.now.Add(48 * time.Hour)
		job, err := s.Schedule(context.Background(), intent)
		require.NoError(t, err)

		s.Sweep(context.Background())
		time.Sleep(50 * time.Millisecond)

		stored, err := f.jobs.Get(context.Background(), job.ID)
		require.NoError(t, err)
		assert.Equal(t, models.JobPending, stored.Status)
		assert.Equal(t, 0, f.executor.count())
	})

	t.Run("state fetch failure leaves the job pending", func(t *testing.T) {
		f := newFixture(t)
		s := New(f.jobs, f.workflows, failingStateProvider{}, f.executor,
			WithClock(func() time.Time { return f.now }))

		job, err := s.Schedule(context.Background(), f.scheduleIntent())
		require.NoError(t, err)

		s.Sweep(context.Background())
		time.Sleep(50 * time.Millisecond)

		stored, err := f.jobs.Get(context.Background(), job.ID)
		require.NoError(t, err)
		assert.Equal(t, models.JobPending, stored.Status, "retried on the next sweep instead")
		assert.Equal(t, 0, f.executor.count())
	})

	t.Run("deleted subject cancels the job", func(t *testing.T) {
		f := newFixture(t)
		// The provider is healthy but the subject no longer exists. Unlike
		// a provider outage, this never resolves on retry.
		s := f.scheduler(&state.Static{States: map[string]map[string]any{}})

		job, err := s.Schedule(context.Background(), f.scheduleIntent())
		require.NoError(t, err)

		s.Sweep(context.Background())
		cancelled := waitForStatus(t, f.jobs, job.ID, models.JobCancelled)
		assert.Empty(t, cancelled.Outcome)
		assert.Equal(t, 0, f.executor.count())
	})

	t.Run("missing workflow cancels the job", func(t *testing.T) {
		f := newFixture(t)
		s := f.scheduler(&state.Static{States: map[string]map[string]any{}})

		intent := f.scheduleIntent()
		intent.WorkflowID = id.NewWorkflowID() // never stored
		job, err := s.Schedule(context.Background(), intent)
		require.NoError(t, err)

		s.Sweep(context.Background())
		cancelled := waitForStatus(t, f.jobs, job.ID, models.JobCancelled)
		assert.Empty(t, cancelled.Outcome)
		assert.Equal(t, 0, f.executor.count())
	})
}

func TestCancel(t *testing.T) {
	f := newFixture(t)
	s := f.scheduler(nil)

	job, err := s.Schedule(context.Background(), f.scheduleIntent())
	require.NoError(t, err)
	require.NoError(t, s.Cancel(context.Background(), job.ID))

	s.Sweep(context.Background())
	time.Sleep(50 * time.Millisecond)

	stored, err := f.jobs.Get(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobCancelled, stored.Status)
	assert.Equal(t, 0, f.executor.count())
}
