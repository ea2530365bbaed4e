// Package models defines the guardian core's domain types: events flowing
// in, tenant-owned rule and workflow configuration, and the finding and
// job records this core owns.
package models

import (
	"time"

	id "caseguard/pkg/domain"
)

// GuardianEvent is the ephemeral record a guarded feature submits before
// performing a sensitive action. It is never persisted by this core;
// findings and job snapshots carry copies of the fields they need.
type GuardianEvent struct {
	TenantID    id.TenantID    `json:"tenant_id"`
	EventType   string         `json:"event_type"`
	SubjectType string         `json:"subject_type"`
	SubjectID   string         `json:"subject_id"`
	ActorID     string         `json:"actor_id"`
	Timestamp   time.Time      `json:"timestamp"`
	Context     map[string]any `json:"context"`
}

// ConditionKind selects which trigger evaluator a rule runs.
// The set is extensible: evaluators register by kind, and adding one
// never touches the engine.
type ConditionKind string

const (
	ConditionMissingConsent          ConditionKind = "missing_consent"
	ConditionMissingMetadata         ConditionKind = "missing_metadata"
	ConditionPIILeak                 ConditionKind = "pii_leak"
	ConditionSafeguardingRecommended ConditionKind = "safeguarding_recommended"
)

// Severity classifies how serious a rule violation is.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

func (s Severity) IsValid() bool {
	switch s {
	case SeverityInfo, SeverityWarning, SeverityCritical:
		return true
	}
	return false
}

// Mode controls whether a rule can ever block the guarded action.
type Mode string

const (
	ModeAdvisory Mode = "advisory"
	ModeEnforce  Mode = "enforce"
)

// RolloutMode lets tenants dry-run a rule before enforcement.
// Simulated rules record findings but never block.
type RolloutMode string

const (
	RolloutLive     RolloutMode = "live"
	RolloutSimulate RolloutMode = "simulate"
)

// RuleStatus is the rule's configuration lifecycle state.
type RuleStatus string

const (
	RuleStatusDraft    RuleStatus = "draft"
	RuleStatusActive   RuleStatus = "active"
	RuleStatusArchived RuleStatus = "archived"
)

// PolicyRule is tenant-owned compliance configuration. Only rules with
// Enabled && Status==active are ever evaluated; everything else is dormant.
type PolicyRule struct {
	ID               id.RuleID     `json:"id"`
	TenantID         id.TenantID   `json:"tenant_id"`
	TriggerEvent     string        `json:"trigger_event"`
	TriggerCondition ConditionKind `json:"trigger_condition"`
	Severity         Severity      `json:"severity"`
	Mode             Mode          `json:"mode"`
	RolloutMode      RolloutMode   `json:"rollout_mode"`
	BlockActions     bool          `json:"block_actions"`
	Status           RuleStatus    `json:"status"`
	Enabled          bool          `json:"enabled"`
	Remediation      string        `json:"remediation"`
	CreatedAt        time.Time     `json:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at"`
}

// Evaluable reports whether the engine should consider this rule at all.
func (r PolicyRule) Evaluable() bool {
	return r.Enabled && r.Status == RuleStatusActive
}

// FindingStatus tracks the review lifecycle of a finding. The engine only
// ever writes open or overridden; resolution is an external review flow.
type FindingStatus string

const (
	FindingOpen       FindingStatus = "open"
	FindingResolved   FindingStatus = "resolved"
	FindingOverridden FindingStatus = "overridden"
)

// Finding is the append-only audit record of one detected violation.
// The engine never mutates a finding after creation.
type Finding struct {
	ID          id.FindingID  `json:"id"`
	TenantID    id.TenantID   `json:"tenant_id"`
	RuleID      id.RuleID     `json:"rule_id"`
	EventType   string        `json:"event_type"`
	SubjectType string        `json:"subject_type"`
	SubjectID   string        `json:"subject_id"`
	Severity    Severity      `json:"severity"`
	Message     string        `json:"message"`
	Remediation string        `json:"remediation"`
	Status      FindingStatus `json:"status"`
	Blocking    bool          `json:"blocking"`
	Simulated   bool          `json:"simulated"`
	CreatedAt   time.Time     `json:"created_at"`
}

// OverrideStatus is the lifecycle state of an override request,
// owned by the external review workflow.
type OverrideStatus string

const (
	OverrideApproved OverrideStatus = "approved"
	OverridePending  OverrideStatus = "pending"
	OverrideDenied   OverrideStatus = "denied"
)

// OverrideRequest is an exception a reviewer grants for a subject across
// one or more rules. Read-only to this core.
type OverrideRequest struct {
	TenantID  id.TenantID    `json:"tenant_id"`
	SubjectID string         `json:"subject_id"`
	RuleIDs   []id.RuleID    `json:"rule_ids"`
	Status    OverrideStatus `json:"status"`
	CreatedAt time.Time      `json:"created_at"`
}

// Covers reports whether this request suppresses blocking for the rule.
func (o OverrideRequest) Covers(ruleID id.RuleID) bool {
	if o.Status != OverrideApproved {
		return false
	}
	for _, rid := range o.RuleIDs {
		if rid == ruleID {
			return true
		}
	}
	return false
}

// EvaluationResult is what the engine hands back to the guarded caller.
// CanProceed is always exactly len(BlockingFindings) == 0.
type EvaluationResult struct {
	Findings         []Finding `json:"findings"`
	CanProceed       bool      `json:"can_proceed"`
	BlockingFindings []Finding `json:"blocking_findings"`
}
