package actions

import (
	"context"

	"caseguard/internal/guardian/models"
)

// Collaborator interfaces for the built-in actions. The real
// implementations live in the case-management product; this core only
// describes the calls. Nil collaborators get a logging no-op so dev mode
// works without the product running.

// CaseOpener opens a safeguarding case for a subject.
type CaseOpener interface {
	OpenCase(ctx context.Context, tenantID, subjectType, subjectID, reason string) (caseID string, err error)
}

// Notifier alerts the tenant's designated safeguarding lead.
type Notifier interface {
	NotifyLead(ctx context.Context, tenantID, subjectID, message string) error
}

// Escalator raises a formal incident with the tenant's escalation chain.
type Escalator interface {
	Escalate(ctx context.Context, tenantID, subjectID, reason string) (incidentID string, err error)
}

// Collaborators bundles the external services the built-ins call.
type Collaborators struct {
	Cases     CaseOpener
	Notifier  Notifier
	Escalator Escalator
}

// RegisterBuiltins wires the whitelisted action handlers onto the executor.
func RegisterBuiltins(executor *Executor, c Collaborators) error {
	if err := executor.Register(models.IntentCreateCase, createCase(c.Cases)); err != nil {
		return err
	}
	if err := executor.Register(models.IntentNotifyDSL, notifyDSL(c.Notifier)); err != nil {
		return err
	}
	return executor.Register(models.IntentEscalateIncident, escalateIncident(c.Escalator))
}

func createCase(cases CaseOpener) HandlerFunc {
	return func(ctx context.Context, intent models.ActionIntent) (*models.ActionResult, error) {
		event := intent.Event
		caseID, err := cases.OpenCase(ctx, event.TenantID.String(), event.SubjectType, event.SubjectID,
			"compliance workflow "+intent.WorkflowID.String())
		if err != nil {
			return nil, err
		}
		return &models.ActionResult{
			Status: "completed",
			Detail: map[string]any{"case_id": caseID},
		}, nil
	}
}

func notifyDSL(notifier Notifier) HandlerFunc {
	return func(ctx context.Context, intent models.ActionIntent) (*models.ActionResult, error) {
		event := intent.Event
		message := "Compliance workflow triggered for subject " + event.SubjectID
		if err := notifier.NotifyLead(ctx, event.TenantID.String(), event.SubjectID, message); err != nil {
			return nil, err
		}
		return &models.ActionResult{Status: "completed"}, nil
	}
}

func escalateIncident(escalator Escalator) HandlerFunc {
	return func(ctx context.Context, intent models.ActionIntent) (*models.ActionResult, error) {
		event := intent.Event
		incidentID, err := escalator.Escalate(ctx, event.TenantID.String(), event.SubjectID,
			"compliance workflow "+intent.WorkflowID.String())
		if err != nil {
			return nil, err
		}
		return &models.ActionResult{
			Status: "completed",
			Detail: map[string]any{"incident_id": incidentID},
		}, nil
	}
}
