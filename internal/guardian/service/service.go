// Package service is the guardian module's orchestration layer. It owns
// no policy logic itself: evaluation belongs to the engine, matching to
// the workflow engine, and side effects to the executor and scheduler.
package service

import (
	"context"
	"log/slog"
	"time"

	"caseguard/internal/guardian/engine"
	"caseguard/internal/guardian/models"
	"caseguard/internal/guardian/ports"
	"caseguard/internal/guardian/scheduler"
	"caseguard/internal/guardian/workflow"
	id "caseguard/pkg/domain"
	dErrors "caseguard/pkg/domain-errors"
	"caseguard/pkg/platform/audit"
)

// TriggerResult reports what the workflow pass did with one event.
type TriggerResult struct {
	Matched   int                   `json:"matched"`
	Scheduled []models.ScheduledJob `json:"scheduled,omitempty"`
	Executed  []models.ActionResult `json:"executed,omitempty"`
}

type Service struct {
	engine    *engine.Engine
	workflows *workflow.Engine
	scheduler *scheduler.Scheduler
	executor  ports.ActionExecutor
	findings  ports.FindingStore

	logger  *slog.Logger
	auditor ports.AuditPublisher
	now     func() time.Time
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithAuditPublisher(auditor ports.AuditPublisher) Option {
	return func(s *Service) { s.auditor = auditor }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func New(eng *engine.Engine, workflows *workflow.Engine, sched *scheduler.Scheduler, executor ports.ActionExecutor, findings ports.FindingStore, opts ...Option) *Service {
	s := &Service{
		engine:    eng,
		workflows: workflows,
		scheduler: sched,
		executor:  executor,
		findings:  findings,
		logger:    slog.Default(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Evaluate classifies the event and returns the blocking decision. The
// caller holds the guarded action until this returns.
func (s *Service) Evaluate(ctx context.Context, event models.GuardianEvent) (*models.EvaluationResult, error) {
	if err := validateEvent(event); err != nil {
		return nil, err
	}
	event.Timestamp = s.eventTime(event)
	return s.engine.Evaluate(ctx, event)
}

// Trigger runs the workflow pass for an already-permitted event and
// dispatches the resulting intents. Delayed actions are persisted as
// jobs; immediate ones execute before this returns. One failing intent
// does not stop the others.
func (s *Service) Trigger(ctx context.Context, event models.GuardianEvent) (*TriggerResult, error) {
	if err := validateEvent(event); err != nil {
		return nil, err
	}
	event.Timestamp = s.eventTime(event)

	intents, err := s.workflows.EvaluateTrigger(ctx, event)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "workflow evaluation failed")
	}

	result := &TriggerResult{Matched: len(intents)}
	for _, intent := range intents {
		if intent.Type == models.IntentScheduleJob {
			job, err := s.scheduler.Schedule(ctx, intent)
			if err != nil {
				s.logger.ErrorContext(ctx, "intent scheduling failed",
					"workflow_id", intent.WorkflowID,
					"error", err,
				)
				continue
			}
			result.Scheduled = append(result.Scheduled, *job)
			continue
		}

		actionResult, err := s.executor.Execute(ctx, intent)
		if err != nil {
			// Already logged by the executor; the event trigger succeeds
			// for the remaining intents.
			continue
		}
		result.Executed = append(result.Executed, *actionResult)
		s.emitTriggered(ctx, event, intent)
	}
	return result, nil
}

// ListFindings returns recorded findings for a subject, or the tenant's
// most recent ones when no subject is given.
func (s *Service) ListFindings(ctx context.Context, tenantID id.TenantID, subjectID string, limit int) ([]models.Finding, error) {
	if tenantID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "tenant id is required")
	}
	if subjectID != "" {
		return s.findings.ListBySubject(ctx, tenantID, subjectID)
	}
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return s.findings.ListByTenant(ctx, tenantID, limit)
}

func (s *Service) eventTime(event models.GuardianEvent) time.Time {
	if event.Timestamp.IsZero() {
		return s.now()
	}
	return event.Timestamp
}

func (s *Service) emitTriggered(ctx context.Context, event models.GuardianEvent, intent models.ActionIntent) {
	if s.auditor == nil {
		return
	}
	_ = s.auditor.Emit(ctx, audit.Event{
		TenantID: event.TenantID.String(),
		Subject:  event.SubjectID,
		Action:   audit.ActionWorkflowTriggered,
		Reason:   string(intent.Type),
		Severity: audit.SeverityInfo,
	})
}

func validateEvent(event models.GuardianEvent) error {
	switch {
	case event.TenantID.IsNil():
		return dErrors.New(dErrors.CodeInvalidInput, "tenant id is required")
	case event.EventType == "":
		return dErrors.New(dErrors.CodeInvalidInput, "event type is required")
	case event.SubjectType == "":
		return dErrors.New(dErrors.CodeInvalidInput, "subject type is required")
	case event.SubjectID == "":
		return dErrors.New(dErrors.CodeInvalidInput, "subject id is required")
	}
	return nil
}
