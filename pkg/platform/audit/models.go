// Package audit captures the compliance core's own operational trail:
// every decision, scheduled job, and configuration warning is recorded so
// reviewers can reconstruct why an action was or was not blocked.
package audit

import (
	"context"
	"time"
)

// Action names a recorded audit event.
type Action string

const (
	// Evaluation events
	ActionEvaluationCompleted Action = "evaluation_completed"
	ActionActionBlocked       Action = "action_blocked"
	ActionFindingRecorded     Action = "finding_recorded"
	ActionEvaluationFailed    Action = "evaluation_failed"

	// Workflow events
	ActionWorkflowTriggered Action = "workflow_triggered"
	ActionWorkflowScheduled Action = "workflow_scheduled"
	ActionConfigWarning     Action = "tenant_config_warning"

	// Scheduler events
	ActionJobFired     Action = "job_fired"
	ActionJobSkipped   Action = "job_skipped"
	ActionJobCancelled Action = "job_cancelled"
)

// Severity routes events in the SIEM consumer.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	TenantID  string    `json:"tenant_id"`
	Subject   string    `json:"subject"`
	Action    Action    `json:"action"`
	Decision  string    `json:"decision,omitempty"`
	Reason    string    `json:"reason,omitempty"`
	Severity  Severity  `json:"severity"`
	RequestID string    `json:"request_id,omitempty"`
}

// Store persists audit events. Append-only.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListRecent(ctx context.Context, limit int) ([]Event, error)
}
