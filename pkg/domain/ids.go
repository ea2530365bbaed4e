// Package domain defines typed identifiers shared across modules.
// Distinct UUID types keep tenant, rule, and finding identifiers from
// being swapped at call sites; the compiler enforces the distinction.
package domain

import (
	"github.com/google/uuid"

	dErrors "caseguard/pkg/domain-errors"
)

type (
	// TenantID identifies an organization (school, clinic, district).
	TenantID uuid.UUID
	// RuleID identifies a tenant-configured policy rule.
	RuleID uuid.UUID
	// FindingID identifies one recorded violation.
	FindingID uuid.UUID
	// WorkflowID identifies a tenant-configured compliance workflow.
	WorkflowID uuid.UUID
	// JobID identifies a scheduled workflow job.
	JobID uuid.UUID
)

func NewTenantID() TenantID     { return TenantID(uuid.New()) }
func NewRuleID() RuleID         { return RuleID(uuid.New()) }
func NewFindingID() FindingID   { return FindingID(uuid.New()) }
func NewWorkflowID() WorkflowID { return WorkflowID(uuid.New()) }
func NewJobID() JobID           { return JobID(uuid.New()) }

func (id TenantID) String() string   { return uuid.UUID(id).String() }
func (id RuleID) String() string     { return uuid.UUID(id).String() }
func (id FindingID) String() string  { return uuid.UUID(id).String() }
func (id WorkflowID) String() string { return uuid.UUID(id).String() }
func (id JobID) String() string      { return uuid.UUID(id).String() }

func (id TenantID) IsNil() bool   { return uuid.UUID(id) == uuid.Nil }
func (id RuleID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }
func (id FindingID) IsNil() bool  { return uuid.UUID(id) == uuid.Nil }
func (id WorkflowID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id JobID) IsNil() bool      { return uuid.UUID(id) == uuid.Nil }

// The text marshallers keep IDs as canonical UUID strings in JSON and
// cache payloads. Defined per type because methods do not carry across
// named-type definitions.

func (id TenantID) MarshalText() ([]byte, error)   { return []byte(id.String()), nil }
func (id RuleID) MarshalText() ([]byte, error)     { return []byte(id.String()), nil }
func (id FindingID) MarshalText() ([]byte, error)  { return []byte(id.String()), nil }
func (id WorkflowID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }
func (id JobID) MarshalText() ([]byte, error)      { return []byte(id.String()), nil }

func (id *TenantID) UnmarshalText(text []byte) error {
	parsed, err := uuid.Parse(string(text))
	if err != nil {
		return err
	}
	*id = TenantID(parsed)
	return nil
}

func (id *RuleID) UnmarshalText(text []byte) error {
	parsed, err := uuid.Parse(string(text))
	if err != nil {
		return err
	}
	*id = RuleID(parsed)
	return nil
}

func (id *FindingID) UnmarshalText(text []byte) error {
	parsed, err := uuid.Parse(string(text))
	if err != nil {
		return err
	}
	*id = FindingID(parsed)
	return nil
}

func (id *WorkflowID) UnmarshalText(text []byte) error {
	parsed, err := uuid.Parse(string(text))
	if err != nil {
		return err
	}
	*id = WorkflowID(parsed)
	return nil
}

func (id *JobID) UnmarshalText(text []byte) error {
	parsed, err := uuid.Parse(string(text))
	if err != nil {
		return err
	}
	*id = JobID(parsed)
	return nil
}

// parseUUID enforces the shared invariant: IDs must be valid, non-nil UUIDs.
func parseUUID(raw, kind string) (uuid.UUID, error) {
	if raw == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" is required")
	}
	parsed, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid "+kind)
	}
	if parsed == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" must not be nil")
	}
	return parsed, nil
}

func ParseTenantID(raw string) (TenantID, error) {
	parsed, err := parseUUID(raw, "tenant_id")
	return TenantID(parsed), err
}

func ParseRuleID(raw string) (RuleID, error) {
	parsed, err := parseUUID(raw, "rule_id")
	return RuleID(parsed), err
}

func ParseFindingID(raw string) (FindingID, error) {
	parsed, err := parseUUID(raw, "finding_id")
	return FindingID(parsed), err
}

func ParseWorkflowID(raw string) (WorkflowID, error) {
	parsed, err := parseUUID(raw, "workflow_id")
	return WorkflowID(parsed), err
}

func ParseJobID(raw string) (JobID, error) {
	parsed, err := parseUUID(raw, "job_id")
	return JobID(parsed), err
}
