// Package scheduler durably defers workflow actions and re-checks live
// state before committing them. A job that fires after its SLA delay
// re-evaluates the workflow's condition against the subject's current
// state, not the snapshot captured at scheduling time: a transient
// condition corrected during the delay must not be escalated. Jobs whose
// re-check no longer holds are marked fired with outcome
// condition_cleared, which is distinguishable from executed.
package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"caseguard/internal/guardian/metrics"
	"caseguard/internal/guardian/models"
	"caseguard/internal/guardian/ports"
	"caseguard/internal/guardian/workflow"
	id "caseguard/pkg/domain"
	dErrors "caseguard/pkg/domain-errors"
	"caseguard/pkg/platform/audit"
	"caseguard/pkg/platform/sentinel"
)

type Scheduler struct {
	jobs      ports.JobStore
	workflows ports.WorkflowStore
	state     ports.StateProvider
	executor  ports.ActionExecutor

	logger        *slog.Logger
	metrics       *metrics.Metrics
	auditor       ports.AuditPublisher
	lookupTimeout time.Duration
	sweepEvery    time.Duration
	now           func() time.Time

	cron *cron.Cron

	// inFlight guards against re-firing a job whose goroutine is still
	// running when the next sweep lists it as due.
	mu       sync.Mutex
	inFlight map[id.JobID]struct{}
}

type Option func(*Scheduler)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Scheduler) { s.metrics = m }
}

func WithAuditPublisher(auditor ports.AuditPublisher) Option {
	return func(s *Scheduler) { s.auditor = auditor }
}

func WithLookupTimeout(d time.Duration) Option {
	return func(s *Scheduler) { s.lookupTimeout = d }
}

func WithSweepInterval(d time.Duration) Option {
	return func(s *Scheduler) { s.sweepEvery = d }
}

func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

func New(jobs ports.JobStore, workflows ports.WorkflowStore, state ports.StateProvider, executor ports.ActionExecutor, opts ...Option) *Scheduler {
	s := &Scheduler{
		jobs:          jobs,
		workflows:     workflows,
		state:         state,
		executor:      executor,
		logger:        slog.Default(),
		lookupTimeout: 2 * time.Second,
		sweepEvery:    30 * time.Second,
		now:           time.Now,
		inFlight:      make(map[id.JobID]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Schedule persists a pending job from a schedule_job intent.
func (s *Scheduler) Schedule(ctx context.Context, intent models.ActionIntent) (*models.ScheduledJob, error) {
	if intent.Type != models.IntentScheduleJob {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "intent is not a schedule_job")
	}
	job := models.ScheduledJob{
		ID:         id.NewJobID(),
		WorkflowID: intent.WorkflowID,
		TenantID:   intent.TenantID,
		Event:      intent.Event,
		ExecuteAt:  intent.ExecuteAt,
		Status:     models.JobPending,
		CreatedAt:  s.now(),
	}
	if err := s.jobs.Create(ctx, job); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to persist scheduled job")
	}
	if s.metrics != nil {
		s.metrics.JobsScheduled.Inc()
	}
	s.emitAudit(ctx, job, audit.ActionWorkflowScheduled, "")
	s.logger.InfoContext(ctx, "workflow action scheduled",
		"job_id", job.ID,
		"workflow_id", job.WorkflowID,
		"execute_at", job.ExecuteAt,
	)
	return &job, nil
}

// Cancel withdraws a pending job.
func (s *Scheduler) Cancel(ctx context.Context, jobID id.JobID) error {
	if err := s.jobs.Cancel(ctx, jobID); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "scheduled job cancelled", "job_id", jobID)
	if s.auditor != nil {
		_ = s.auditor.Emit(ctx, audit.Event{
			Subject:  jobID.String(),
			Action:   audit.ActionJobCancelled,
			Severity: audit.SeverityInfo,
		})
	}
	return nil
}

// Start begins sweeping for due jobs. The first sweep runs immediately so
// jobs persisted before a restart are picked up as soon as the process is
// back.
func (s *Scheduler) Start(ctx context.Context) error {
	s.Sweep(ctx)

	s.cron = cron.New()
	s.cron.Schedule(cron.Every(s.sweepEvery), cron.FuncJob(func() {
		s.Sweep(ctx)
	}))
	s.cron.Start()
	return nil
}

// Stop halts sweeping. In-flight jobs finish.
func (s *Scheduler) Stop() {
	if s.cron != nil {
		<-s.cron.Stop().Done()
	}
}

// Sweep fires every due pending job. Jobs fire independently: one slow
// re-check must not delay the rest.
func (s *Scheduler) Sweep(ctx context.Context) {
	due, err := s.jobs.ListDue(ctx, s.now())
	if err != nil {
		s.logger.ErrorContext(ctx, "due job listing failed", "error", err)
		return
	}
	for _, job := range due {
		if !s.claim(job.ID) {
			continue
		}
		go func() {
			defer s.release(job.ID)
			s.fire(ctx, job)
		}()
	}
}

func (s *Scheduler) claim(jobID id.JobID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inFlight[jobID]; busy {
		return false
	}
	s.inFlight[jobID] = struct{}{}
	return true
}

func (s *Scheduler) release(jobID id.JobID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inFlight, jobID)
}

// fire re-checks the workflow condition against current subject state and
// executes only if it still holds.
func (s *Scheduler) fire(ctx context.Context, job models.ScheduledJob) {
	wf, err := s.loadWorkflow(ctx, job)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) || errors.Is(err, sentinel.ErrInvalidState) {
			// Workflow deleted or broken since scheduling: nothing to run.
			s.logger.WarnContext(ctx, "workflow gone, cancelling job",
				"job_id", job.ID,
				"workflow_id", job.WorkflowID,
			)
			if err := s.jobs.Cancel(ctx, job.ID); err != nil {
				s.logger.ErrorContext(ctx, "job cancel failed", "job_id", job.ID, "error", err)
			}
			return
		}
		// Transient: leave pending, the next sweep retries.
		s.logger.ErrorContext(ctx, "workflow load failed, job stays pending",
			"job_id", job.ID,
			"error", err,
		)
		return
	}

	currentState, err := s.currentState(ctx, job)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeNotFound) {
			// The subject itself is gone, not the provider: there is
			// nothing left to remediate.
			s.logger.WarnContext(ctx, "subject gone, cancelling job",
				"job_id", job.ID,
				"subject_id", job.Event.SubjectID,
			)
			if err := s.jobs.Cancel(ctx, job.ID); err != nil {
				s.logger.ErrorContext(ctx, "job cancel failed", "job_id", job.ID, "error", err)
			}
			return
		}
		s.logger.ErrorContext(ctx, "state fetch failed, job stays pending",
			"job_id", job.ID,
			"subject_id", job.Event.SubjectID,
			"error", err,
		)
		return
	}

	stillHolds, err := wf.Condition.Evaluate(currentState)
	if err != nil {
		s.logger.WarnContext(ctx, "workflow condition not evaluable at fire time, treating as cleared",
			"job_id", job.ID,
			"workflow_id", wf.ID,
			"error", err,
		)
		stillHolds = false
	}

	if !stillHolds {
		s.settle(ctx, job, models.OutcomeConditionCleared)
		return
	}

	intent := workflow.BuildActionIntent(*wf, job.Event)
	if _, err := s.executor.Execute(ctx, intent); err != nil {
		// Leave pending so the next sweep retries the action.
		s.logger.ErrorContext(ctx, "scheduled action failed, job stays pending",
			"job_id", job.ID,
			"intent_type", intent.Type,
			"error", err,
		)
		return
	}
	s.settle(ctx, job, models.OutcomeExecuted)
}

func (s *Scheduler) loadWorkflow(ctx context.Context, job models.ScheduledJob) (*models.ComplianceWorkflow, error) {
	lookupCtx, cancel := context.WithTimeout(ctx, s.lookupTimeout)
	defer cancel()
	return s.workflows.Get(lookupCtx, job.WorkflowID)
}

// currentState asks the StateProvider for the subject's live state. With
// no provider wired (dev mode) the job's snapshot is used, which disables
// the recheck semantics; log loudly so nobody mistakes it for production.
func (s *Scheduler) currentState(ctx context.Context, job models.ScheduledJob) (map[string]any, error) {
	if s.state == nil {
		s.logger.WarnContext(ctx, "no state provider wired, re-checking against snapshot",
			"job_id", job.ID,
		)
		return job.Event.Context, nil
	}
	lookupCtx, cancel := context.WithTimeout(ctx, s.lookupTimeout)
	defer cancel()
	return s.state.CurrentState(lookupCtx, job.TenantID, job.Event.SubjectType, job.Event.SubjectID)
}

func (s *Scheduler) settle(ctx context.Context, job models.ScheduledJob, outcome models.JobOutcome) {
	if err := s.jobs.MarkFired(ctx, job.ID, outcome, s.now()); err != nil {
		s.logger.ErrorContext(ctx, "job settle failed",
			"job_id", job.ID,
			"outcome", outcome,
			"error", err,
		)
		return
	}
	if s.metrics != nil {
		s.metrics.JobsFired.WithLabelValues(string(outcome)).Inc()
	}
	action := audit.ActionJobFired
	if outcome == models.OutcomeConditionCleared {
		action = audit.ActionJobSkipped
	}
	s.emitAudit(ctx, job, action, string(outcome))
	s.logger.InfoContext(ctx, "scheduled job settled",
		"job_id", job.ID,
		"outcome", outcome,
	)
}

func (s *Scheduler) emitAudit(ctx context.Context, job models.ScheduledJob, action audit.Action, reason string) {
	if s.auditor == nil {
		return
	}
	_ = s.auditor.Emit(ctx, audit.Event{
		TenantID: job.TenantID.String(),
		Subject:  job.Event.SubjectID,
		Action:   action,
		Reason:   reason,
		Severity: audit.SeverityInfo,
	})
}
