package models

import (
	"fmt"
	"time"

	id "caseguard/pkg/domain"
	dErrors "caseguard/pkg/domain-errors"
)

// IntentType names an action in the executor registry. The set is closed
// and versioned: unknown types are rejected when workflow configuration
// loads, never at execution time.
type IntentType string

const (
	// IntentScheduleJob is the deferred path: the intent is handed to the
	// scheduler, which re-checks live state before acting.
	IntentScheduleJob IntentType = "schedule_job"

	IntentCreateCase       IntentType = "create_case"
	IntentNotifyDSL        IntentType = "notify_dsl"
	IntentEscalateIncident IntentType = "escalate_incident"
)

// ExecutableIntentTypes is the whitelist of actions a workflow may name.
// schedule_job is engine-internal and not configurable by tenants.
var ExecutableIntentTypes = map[IntentType]struct{}{
	IntentCreateCase:       {},
	IntentNotifyDSL:        {},
	IntentEscalateIncident: {},
}

// ComplianceWorkflow is a tenant-configured reaction to an event:
// when Trigger fires and Condition holds, Action runs, either immediately
// or after SLAHours.
type ComplianceWorkflow struct {
	ID        id.WorkflowID `json:"id"`
	TenantID  id.TenantID   `json:"tenant_id"`
	Trigger   string        `json:"trigger"`
	Condition Condition     `json:"condition"`
	Action    IntentType    `json:"action"`
	SLAHours  float64       `json:"sla_hours"`
	CreatedAt time.Time     `json:"created_at"`
}

// Validate rejects workflows naming unknown actions or malformed
// conditions. Repositories call this at load time so broken tenant
// configuration never reaches the engine.
func (w ComplianceWorkflow) Validate() error {
	if _, ok := ExecutableIntentTypes[w.Action]; !ok {
		return dErrors.New(dErrors.CodeInvalidCondition, fmt.Sprintf("unknown action type %q", w.Action))
	}
	if w.Trigger == "" {
		return dErrors.New(dErrors.CodeInvalidCondition, "workflow trigger is required")
	}
	if w.SLAHours < 0 {
		return dErrors.New(dErrors.CodeInvalidCondition, "sla_hours must not be negative")
	}
	return w.Condition.Validate()
}

// Delay converts the SLA into a wall-clock delay. Zero means immediate.
func (w ComplianceWorkflow) Delay() time.Duration {
	return time.Duration(w.SLAHours * float64(time.Hour))
}

// ActionIntent is the engine's output: a description of a side effect,
// not the side effect itself. Both the immediate path and the scheduler's
// post-recheck path hand intents to the same executor.
type ActionIntent struct {
	Type       IntentType     `json:"type"`
	WorkflowID id.WorkflowID  `json:"workflow_id"`
	TenantID   id.TenantID    `json:"tenant_id"`
	ExecuteAt  time.Time      `json:"execute_at,omitempty"`
	Event      GuardianEvent  `json:"event"`
	Payload    map[string]any `json:"payload,omitempty"`
}

// ActionResult reports what an executed intent did, for audit and for
// the trigger endpoint's response.
type ActionResult struct {
	Status string         `json:"status"`
	Detail map[string]any `json:"detail,omitempty"`
}

// JobStatus is the durable lifecycle of a scheduled job.
type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobFired     JobStatus = "fired"
	JobCancelled JobStatus = "cancelled"
)

// JobOutcome distinguishes what happened when a job fired: the action ran,
// or the re-check found the condition no longer holds and nothing ran.
type JobOutcome string

const (
	OutcomeExecuted         JobOutcome = "executed"
	OutcomeConditionCleared JobOutcome = "condition_cleared"
)

// ScheduledJob is the durable record of a deferred workflow action.
// Event is a full snapshot, not a reference: delays span hours and the
// originating request is long gone by the time the job fires.
type ScheduledJob struct {
	ID         id.JobID      `json:"id"`
	WorkflowID id.WorkflowID `json:"workflow_id"`
	TenantID   id.TenantID   `json:"tenant_id"`
	Event      GuardianEvent `json:"event"`
	ExecuteAt  time.Time     `json:"execute_at"`
	Status     JobStatus     `json:"status"`
	Outcome    JobOutcome    `json:"outcome,omitempty"`
	CreatedAt  time.Time     `json:"created_at"`
	FiredAt    *time.Time    `json:"fired_at,omitempty"`
}
