package actions

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// logCollaborators records what would have happened instead of calling
// the product. Used in dev mode and anywhere a collaborator is not wired.
type logCollaborators struct {
	logger *slog.Logger
}

// LogCollaborators returns Collaborators that only log.
func LogCollaborators(logger *slog.Logger) Collaborators {
	l := logCollaborators{logger: logger}
	return Collaborators{Cases: l, Notifier: l, Escalator: l}
}

func (l logCollaborators) OpenCase(ctx context.Context, tenantID, subjectType, subjectID, reason string) (string, error) {
	caseID := uuid.NewString()
	l.logger.InfoContext(ctx, "case opened (log-only collaborator)",
		"tenant_id", tenantID,
		"subject_type", subjectType,
		"subject_id", subjectID,
		"reason", reason,
		"case_id", caseID,
	)
	return caseID, nil
}

func (l logCollaborators) NotifyLead(ctx context.Context, tenantID, subjectID, message string) error {
	l.logger.InfoContext(ctx, "safeguarding lead notified (log-only collaborator)",
		"tenant_id", tenantID,
		"subject_id", subjectID,
		"message", message,
	)
	return nil
}

func (l logCollaborators) Escalate(ctx context.Context, tenantID, subjectID, reason string) (string, error) {
	incidentID := uuid.NewString()
	l.logger.InfoContext(ctx, "incident escalated (log-only collaborator)",
		"tenant_id", tenantID,
		"subject_id", subjectID,
		"reason", reason,
		"incident_id", incidentID,
	)
	return incidentID, nil
}
