package jobs

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"caseguard/internal/guardian/models"
	id "caseguard/pkg/domain"
	"caseguard/pkg/platform/sentinel"
)

// PostgresStore durably persists scheduled jobs. Delays span hours, so
// jobs must survive process restarts; the event snapshot is stored as
// JSONB alongside the schedule.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, job models.ScheduledJob) error {
	snapshot, err := json.Marshal(job.Event)
	if err != nil {
		return fmt.Errorf("marshal event snapshot: %w", err)
	}

	query := `
		INSERT INTO scheduled_jobs (
			id, workflow_id, tenant_id, event_snapshot, execute_at, status, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err = s.db.ExecContext(ctx, query,
		uuid.UUID(job.ID),
		uuid.UUID(job.WorkflowID),
		uuid.UUID(job.TenantID),
		snapshot,
		job.ExecuteAt,
		string(job.Status),
		job.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert scheduled job: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, jobID id.JobID) (*models.ScheduledJob, error) {
	query := selectJobs + ` WHERE id = $1`
	rows, err := s.db.QueryContext(ctx, query, uuid.UUID(jobID))
	if err != nil {
		return nil, fmt.Errorf("query scheduled job: %w", err)
	}
	defer rows.Close()

	jobs, err := scanJobs(rows)
	if err != nil {
		return nil, err
	}
	if len(jobs) == 0 {
		return nil, sentinel.ErrNotFound
	}
	return &jobs[0], nil
}

func (s *PostgresStore) ListDue(ctx context.Context, now time.Time) ([]models.ScheduledJob, error) {
	query := selectJobs + `
		WHERE status = 'pending' AND execute_at <= $1
		ORDER BY execute_at
	`
	rows, err := s.db.QueryContext(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("query due jobs: %w", err)
	}
	defer rows.Close()
	return scanJobs(rows)
}

// MarkFired transitions pending -> fired. The status guard in the WHERE
// clause makes the transition atomic even with competing sweepers.
func (s *PostgresStore) MarkFired(ctx context.Context, jobID id.JobID, outcome models.JobOutcome, firedAt time.Time) error {
	query := `
		UPDATE scheduled_jobs
		SET status = 'fired', outcome = $2, fired_at = $3
		WHERE id = $1 AND status = 'pending'
	`
	result, err := s.db.ExecContext(ctx, query, uuid.UUID(jobID), string(outcome), firedAt)
	if err != nil {
		return fmt.Errorf("mark job fired: %w", err)
	}
	return requireOneRow(result, jobID)
}

func (s *PostgresStore) Cancel(ctx context.Context, jobID id.JobID) error {
	query := `
		UPDATE scheduled_jobs
		SET status = 'cancelled'
		WHERE id = $1 AND status = 'pending'
	`
	result, err := s.db.ExecContext(ctx, query, uuid.UUID(jobID))
	if err != nil {
		return fmt.Errorf("cancel job: %w", err)
	}
	return requireOneRow(result, jobID)
}

func requireOneRow(result sql.Result, jobID id.JobID) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("job %s not pending: %w", jobID, sentinel.ErrInvalidState)
	}
	return nil
}

const selectJobs = `
	SELECT id, workflow_id, tenant_id, event_snapshot, execute_at,
	       status, outcome, created_at, fired_at
	FROM scheduled_jobs
`

func scanJobs(rows *sql.Rows) ([]models.ScheduledJob, error) {
	var jobs []models.ScheduledJob
	for rows.Next() {
		var (
			job                       models.ScheduledJob
			jobID, workflowID, tenant uuid.UUID
			snapshot                  []byte
			outcome                   sql.NullString
			firedAt                   sql.NullTime
		)
		err := rows.Scan(
			&jobID,
			&workflowID,
			&tenant,
			&snapshot,
			&job.ExecuteAt,
			&job.Status,
			&outcome,
			&job.CreatedAt,
			&firedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan scheduled job: %w", err)
		}
		if err := json.Unmarshal(snapshot, &job.Event); err != nil {
			return nil, fmt.Errorf("decode event snapshot: %w", err)
		}
		job.ID = id.JobID(jobID)
		job.WorkflowID = id.WorkflowID(workflowID)
		job.TenantID = id.TenantID(tenant)
		if outcome.Valid {
			job.Outcome = models.JobOutcome(outcome.String)
		}
		if firedAt.Valid {
			t := firedAt.Time
			job.FiredAt = &t
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate scheduled jobs: %w", err)
	}
	return jobs, nil
}
