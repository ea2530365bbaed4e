package findings

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"caseguard/internal/guardian/models"
	id "caseguard/pkg/domain"
)

// PostgresStore persists findings. Inserts only; the table carries no
// update path in this service.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Append(ctx context.Context, finding models.Finding) error {
	query := `
		INSERT INTO findings (
			id, tenant_id, rule_id, event_type, subject_type, subject_id,
			severity, message, remediation, status, blocking, simulated, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	_, err := s.db.ExecContext(ctx, query,
		uuid.UUID(finding.ID),
		uuid.UUID(finding.TenantID),
		uuid.UUID(finding.RuleID),
		finding.EventType,
		finding.SubjectType,
		finding.SubjectID,
		string(finding.Severity),
		finding.Message,
		finding.Remediation,
		string(finding.Status),
		finding.Blocking,
		finding.Simulated,
		finding.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert finding: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListBySubject(ctx context.Context, tenantID id.TenantID, subjectID string) ([]models.Finding, error) {
	query := selectFindings + `
		WHERE tenant_id = $1 AND subject_id = $2
		ORDER BY created_at DESC
	`
	rows, err := s.db.QueryContext(ctx, query, uuid.UUID(tenantID), subjectID)
	if err != nil {
		return nil, fmt.Errorf("query findings: %w", err)
	}
	defer rows.Close()
	return scanFindings(rows)
}

func (s *PostgresStore) ListByTenant(ctx context.Context, tenantID id.TenantID, limit int) ([]models.Finding, error) {
	query := selectFindings + `
		WHERE tenant_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := s.db.QueryContext(ctx, query, uuid.UUID(tenantID), limit)
	if err != nil {
		return nil, fmt.Errorf("query findings: %w", err)
	}
	defer rows.Close()
	return scanFindings(rows)
}

const selectFindings = `
	SELECT id, tenant_id, rule_id, event_type, subject_type, subject_id,
	       severity, message, remediation, status, blocking, simulated, created_at
	FROM findings
`

func scanFindings(rows *sql.Rows) ([]models.Finding, error) {
	var findings []models.Finding
	for rows.Next() {
		var (
			f                           models.Finding
			findingID, tenantID, ruleID uuid.UUID
		)
		err := rows.Scan(
			&findingID,
			&tenantID,
			&ruleID,
			&f.EventType,
			&f.SubjectType,
			&f.SubjectID,
			&f.Severity,
			&f.Message,
			&f.Remediation,
			&f.Status,
			&f.Blocking,
			&f.Simulated,
			&f.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan finding: %w", err)
		}
		f.ID = id.FindingID(findingID)
		f.TenantID = id.TenantID(tenantID)
		f.RuleID = id.RuleID(ruleID)
		findings = append(findings, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate findings: %w", err)
	}
	return findings, nil
}
