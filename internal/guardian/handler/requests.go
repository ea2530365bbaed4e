package handler

import (
	"strings"
	"time"

	"caseguard/internal/guardian/models"
	id "caseguard/pkg/domain"
	dErrors "caseguard/pkg/domain-errors"
)

// EventRequest is the HTTP request body for the evaluate and trigger
// endpoints. Both take the same event shape.
type EventRequest struct {
	TenantID    string         `json:"tenant_id"`
	EventType   string         `json:"event_type"`
	SubjectType string         `json:"subject_type"`
	SubjectID   string         `json:"subject_id"`
	ActorID     string         `json:"actor_id"`
	Timestamp   time.Time      `json:"timestamp"`
	Context     map[string]any `json:"context"`

	parsedTenantID id.TenantID
}

// Validate validates and parses the request.
func (r *EventRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeInvalidInput, "request body is required")
	}

	r.TenantID = strings.TrimSpace(r.TenantID)
	if r.TenantID == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "tenant_id is required")
	}
	tenantID, err := id.ParseTenantID(r.TenantID)
	if err != nil {
		return err
	}
	r.parsedTenantID = tenantID

	r.EventType = strings.TrimSpace(r.EventType)
	if r.EventType == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "event_type is required")
	}
	r.SubjectType = strings.TrimSpace(r.SubjectType)
	if r.SubjectType == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "subject_type is required")
	}
	r.SubjectID = strings.TrimSpace(r.SubjectID)
	if r.SubjectID == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "subject_id is required")
	}
	return nil
}

// ToEvent converts the validated request to a domain event.
func (r *EventRequest) ToEvent() models.GuardianEvent {
	return models.GuardianEvent{
		TenantID:    r.parsedTenantID,
		EventType:   r.EventType,
		SubjectType: r.SubjectType,
		SubjectID:   r.SubjectID,
		ActorID:     r.ActorID,
		Timestamp:   r.Timestamp,
		Context:     r.Context,
	}
}
