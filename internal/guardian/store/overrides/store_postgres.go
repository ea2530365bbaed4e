package overrides

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"caseguard/internal/guardian/models"
	id "caseguard/pkg/domain"
)

// PostgresStore reads the override_requests collection the review tool
// writes. Rule IDs are stored as a UUID array.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) ListBySubject(ctx context.Context, tenantID id.TenantID, subjectID string) ([]models.OverrideRequest, error) {
	query := `
		SELECT tenant_id, subject_id, rule_ids, status, created_at
		FROM override_requests
		WHERE tenant_id = $1 AND subject_id = $2
	`

	rows, err := s.db.QueryContext(ctx, query, uuid.UUID(tenantID), subjectID)
	if err != nil {
		return nil, fmt.Errorf("query override requests: %w", err)
	}
	defer rows.Close()

	var requests []models.OverrideRequest
	for rows.Next() {
		var (
			req        models.OverrideRequest
			tenantUUID uuid.UUID
			ruleIDsRaw []byte
		)
		if err := rows.Scan(&tenantUUID, &req.SubjectID, &ruleIDsRaw, &req.Status, &req.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan override request: %w", err)
		}
		req.TenantID = id.TenantID(tenantUUID)
		ruleIDs, err := parseUUIDArray(ruleIDsRaw)
		if err != nil {
			return nil, fmt.Errorf("decode override rule ids: %w", err)
		}
		req.RuleIDs = ruleIDs
		requests = append(requests, req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate override requests: %w", err)
	}
	return requests, nil
}

// parseUUIDArray decodes Postgres's {a,b,c} array text representation.
func parseUUIDArray(raw []byte) ([]id.RuleID, error) {
	s := string(raw)
	if len(s) < 2 || s[0] != '{' || s[len(s)-1] != '}' {
		return nil, fmt.Errorf("malformed uuid array %q", s)
	}
	body := s[1 : len(s)-1]
	if body == "" {
		return nil, nil
	}
	var ids []id.RuleID
	start := 0
	for i := 0; i <= len(body); i++ {
		if i == len(body) || body[i] == ',' {
			parsed, err := uuid.Parse(body[start:i])
			if err != nil {
				return nil, err
			}
			ids = append(ids, id.RuleID(parsed))
			start = i + 1
		}
	}
	return ids, nil
}
