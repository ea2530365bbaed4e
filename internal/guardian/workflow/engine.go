// Package workflow matches events against tenant compliance workflows and
// emits action intents. The engine itself performs no side effects: the
// immediate path hands intents to the executor and the delayed path hands
// a schedule intent to the scheduler, so both paths stay independently
// testable and the delayed path can be re-validated before acting.
package workflow

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"caseguard/internal/guardian/metrics"
	"caseguard/internal/guardian/models"
	"caseguard/internal/guardian/ports"
	"caseguard/pkg/platform/audit"
)

var tracer = otel.Tracer("caseguard/workflow")

type Engine struct {
	workflows ports.WorkflowStore

	logger        *slog.Logger
	metrics       *metrics.Metrics
	auditor       ports.AuditPublisher
	lookupTimeout time.Duration
	now           func() time.Time
}

type Option func(*Engine)

func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

func WithAuditPublisher(auditor ports.AuditPublisher) Option {
	return func(e *Engine) { e.auditor = auditor }
}

func WithLookupTimeout(d time.Duration) Option {
	return func(e *Engine) { e.lookupTimeout = d }
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func New(workflows ports.WorkflowStore, opts ...Option) *Engine {
	e := &Engine{
		workflows:     workflows,
		logger:        slog.Default(),
		lookupTimeout: 2 * time.Second,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// EvaluateTrigger returns one intent per workflow whose condition holds
// for the event: a schedule_job intent when an SLA delay is configured,
// otherwise the workflow's own action intent. A condition referencing
// unsupported operators or fields makes that workflow non-matching and is
// surfaced as a tenant configuration warning.
func (e *Engine) EvaluateTrigger(ctx context.Context, event models.GuardianEvent) ([]models.ActionIntent, error) {
	ctx, span := tracer.Start(ctx, "workflow.evaluate_trigger")
	defer span.End()
	span.SetAttributes(
		attribute.String("tenant_id", event.TenantID.String()),
		attribute.String("event_type", event.EventType),
	)

	lookupCtx, cancel := context.WithTimeout(ctx, e.lookupTimeout)
	defer cancel()
	workflows, err := e.workflows.ListByTrigger(lookupCtx, event.TenantID, event.EventType)
	if err != nil {
		return nil, err
	}

	var intents []models.ActionIntent
	for _, wf := range workflows {
		matched, err := wf.Condition.Evaluate(event.Context)
		if err != nil {
			e.warnBadCondition(ctx, wf, err)
			continue
		}
		if !matched {
			continue
		}

		if e.metrics != nil {
			e.metrics.WorkflowsTriggered.Inc()
		}

		if wf.SLAHours > 0 {
			intents = append(intents, models.ActionIntent{
				Type:       models.IntentScheduleJob,
				WorkflowID: wf.ID,
				TenantID:   wf.TenantID,
				ExecuteAt:  e.now().Add(wf.Delay()),
				Event:      event,
			})
			continue
		}

		intents = append(intents, BuildActionIntent(wf, event))
	}
	return intents, nil
}

// BuildActionIntent shapes the executable intent for a workflow's action.
// The scheduler uses the same constructor after its re-check so both
// paths produce identical intents.
func BuildActionIntent(wf models.ComplianceWorkflow, event models.GuardianEvent) models.ActionIntent {
	return models.ActionIntent{
		Type:       wf.Action,
		WorkflowID: wf.ID,
		TenantID:   wf.TenantID,
		Event:      event,
		Payload: map[string]any{
			"subject_type": event.SubjectType,
			"subject_id":   event.SubjectID,
			"event_type":   event.EventType,
		},
	}
}

func (e *Engine) warnBadCondition(ctx context.Context, wf models.ComplianceWorkflow, err error) {
	e.logger.WarnContext(ctx, "workflow condition not evaluable, treating as non-matching",
		"workflow_id", wf.ID,
		"tenant_id", wf.TenantID,
		"error", err,
	)
	if e.auditor == nil {
		return
	}
	_ = e.auditor.Emit(ctx, audit.Event{
		TenantID: wf.TenantID.String(),
		Subject:  wf.ID.String(),
		Action:   audit.ActionConfigWarning,
		Reason:   err.Error(),
		Severity: audit.SeverityWarning,
	})
}
