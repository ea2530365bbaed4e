package rules

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"caseguard/internal/guardian/models"
	id "caseguard/pkg/domain"
)

// PostgresStore reads the policy_rules collection the admin tool writes.
// The enabled/status filter lives in SQL so dormant rules never leave the
// database.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) ListActive(ctx context.Context, tenantID id.TenantID, eventType string) ([]models.PolicyRule, error) {
	query := `
		SELECT id, tenant_id, trigger_event, trigger_condition, severity,
		       mode, rollout_mode, block_actions, status, enabled,
		       remediation, created_at, updated_at
		FROM policy_rules
		WHERE tenant_id = $1
		  AND trigger_event = $2
		  AND enabled = TRUE
		  AND status = 'active'
	`

	rows, err := s.db.QueryContext(ctx, query, uuid.UUID(tenantID), eventType)
	if err != nil {
		return nil, fmt.Errorf("query policy rules: %w", err)
	}
	defer rows.Close()

	var rules []models.PolicyRule
	for rows.Next() {
		var (
			rule               models.PolicyRule
			ruleID, tenantUUID uuid.UUID
		)
		err := rows.Scan(
			&ruleID,
			&tenantUUID,
			&rule.TriggerEvent,
			&rule.TriggerCondition,
			&rule.Severity,
			&rule.Mode,
			&rule.RolloutMode,
			&rule.BlockActions,
			&rule.Status,
			&rule.Enabled,
			&rule.Remediation,
			&rule.CreatedAt,
			&rule.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan policy rule: %w", err)
		}
		rule.ID = id.RuleID(ruleID)
		rule.TenantID = id.TenantID(tenantUUID)
		rules = append(rules, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate policy rules: %w", err)
	}
	return rules, nil
}
