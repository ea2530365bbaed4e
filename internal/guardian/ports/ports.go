// Package ports defines shared interfaces for the guardian module.
// Interfaces are placed here when consumed by multiple services to avoid
// duplication; each has a Postgres and an in-memory implementation.
package ports

import (
	"context"
	"time"

	"caseguard/internal/guardian/models"
	id "caseguard/pkg/domain"
	"caseguard/pkg/platform/audit"
)

// AuditPublisher emits audit events for compliance-relevant operations.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// RuleStore loads tenant policy rules. ListActive returns only rules that
// are enabled and active; dormant rules never reach the engine.
type RuleStore interface {
	ListActive(ctx context.Context, tenantID id.TenantID, eventType string) ([]models.PolicyRule, error)
}

// RuleCacheInvalidator is implemented by cached rule stores; the admin
// write path calls it after rule edits.
type RuleCacheInvalidator interface {
	Invalidate(ctx context.Context, tenantID id.TenantID, eventType string) error
}

// WorkflowStore loads tenant compliance workflows for a trigger.
// Implementations validate each workflow at load time and drop (with a
// tenant configuration warning) any naming unknown actions.
type WorkflowStore interface {
	ListByTrigger(ctx context.Context, tenantID id.TenantID, trigger string) ([]models.ComplianceWorkflow, error)
	Get(ctx context.Context, workflowID id.WorkflowID) (*models.ComplianceWorkflow, error)
}

// OverrideStore reads override requests owned by the external review flow.
type OverrideStore interface {
	ListBySubject(ctx context.Context, tenantID id.TenantID, subjectID string) ([]models.OverrideRequest, error)
}

// OverrideResolver answers whether an approved exception suppresses
// blocking for a subject+rule pair.
type OverrideResolver interface {
	IsOverridden(ctx context.Context, tenantID id.TenantID, subjectID string, ruleID id.RuleID) (bool, error)
}

// FindingStore is the append-only violation record. The engine only
// appends; resolution transitions happen in an external review workflow.
type FindingStore interface {
	Append(ctx context.Context, finding models.Finding) error
	ListBySubject(ctx context.Context, tenantID id.TenantID, subjectID string) ([]models.Finding, error)
	ListByTenant(ctx context.Context, tenantID id.TenantID, limit int) ([]models.Finding, error)
}

// JobStore durably persists scheduled jobs so delays survive restarts.
type JobStore interface {
	Create(ctx context.Context, job models.ScheduledJob) error
	Get(ctx context.Context, jobID id.JobID) (*models.ScheduledJob, error)
	// ListDue returns pending jobs whose ExecuteAt is at or before now.
	ListDue(ctx context.Context, now time.Time) ([]models.ScheduledJob, error)
	// MarkFired transitions pending -> fired with the given outcome.
	MarkFired(ctx context.Context, jobID id.JobID, outcome models.JobOutcome, firedAt time.Time) error
	// Cancel transitions pending -> cancelled.
	Cancel(ctx context.Context, jobID id.JobID) error
}

// StateProvider fetches the current state of a subject from the
// case-management collaborator. The scheduler re-evaluates workflow
// conditions against this, never against the stale snapshot.
type StateProvider interface {
	CurrentState(ctx context.Context, tenantID id.TenantID, subjectType, subjectID string) (map[string]any, error)
}

// ActionExecutor performs the side effect an intent describes. It is the
// single place external state changes happen.
type ActionExecutor interface {
	Execute(ctx context.Context, intent models.ActionIntent) (*models.ActionResult, error)
}
