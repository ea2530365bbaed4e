package workflows

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"caseguard/internal/guardian/models"
	id "caseguard/pkg/domain"
	"caseguard/pkg/platform/sentinel"
)

// PostgresStore reads the compliance_workflows collection. Conditions are
// stored as JSONB. Each row is validated on read: workflows naming
// unknown action types or malformed conditions are dropped here with a
// tenant configuration warning, so they are rejected at config-load time
// rather than at execution time.
type PostgresStore struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewPostgresStore(db *sql.DB, logger *slog.Logger) *PostgresStore {
	return &PostgresStore{db: db, logger: logger}
}

func (s *PostgresStore) ListByTrigger(ctx context.Context, tenantID id.TenantID, trigger string) ([]models.ComplianceWorkflow, error) {
	query := `
		SELECT id, tenant_id, trigger, condition, action, sla_hours, created_at
		FROM compliance_workflows
		WHERE tenant_id = $1 AND trigger = $2
	`

	rows, err := s.db.QueryContext(ctx, query, uuid.UUID(tenantID), trigger)
	if err != nil {
		return nil, fmt.Errorf("query workflows: %w", err)
	}
	defer rows.Close()

	var workflows []models.ComplianceWorkflow
	for rows.Next() {
		wf, err := s.scanWorkflow(rows)
		if err != nil {
			return nil, err
		}
		if err := wf.Validate(); err != nil {
			s.logger.WarnContext(ctx, "dropping invalid workflow configuration",
				"workflow_id", wf.ID,
				"tenant_id", wf.TenantID,
				"error", err,
			)
			continue
		}
		workflows = append(workflows, *wf)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate workflows: %w", err)
	}
	return workflows, nil
}

func (s *PostgresStore) Get(ctx context.Context, workflowID id.WorkflowID) (*models.ComplianceWorkflow, error) {
	query := `
		SELECT id, tenant_id, trigger, condition, action, sla_hours, created_at
		FROM compliance_workflows
		WHERE id = $1
	`

	row := s.db.QueryRowContext(ctx, query, uuid.UUID(workflowID))
	wf, err := s.scanWorkflow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, err
	}
	if err := wf.Validate(); err != nil {
		s.logger.Warn("workflow configuration invalid",
			"workflow_id", wf.ID,
			"error", err,
		)
		return nil, sentinel.ErrInvalidState
	}
	return wf, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *PostgresStore) scanWorkflow(row rowScanner) (*models.ComplianceWorkflow, error) {
	var (
		wf               models.ComplianceWorkflow
		wfID, tenantUUID uuid.UUID
		conditionJSON    []byte
	)
	err := row.Scan(
		&wfID,
		&tenantUUID,
		&wf.Trigger,
		&conditionJSON,
		&wf.Action,
		&wf.SLAHours,
		&wf.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan workflow: %w", err)
	}
	if err := json.Unmarshal(conditionJSON, &wf.Condition); err != nil {
		return nil, fmt.Errorf("decode workflow condition: %w", err)
	}
	wf.ID = id.WorkflowID(wfID)
	wf.TenantID = id.TenantID(tenantUUID)
	return &wf, nil
}
