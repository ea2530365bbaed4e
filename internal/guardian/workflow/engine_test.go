package workflow

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"caseguard/internal/guardian/models"
	id "caseguard/pkg/domain"
	"caseguard/pkg/platform/audit"
	"caseguard/pkg/platform/sentinel"
)

type fakeWorkflowStore struct {
	workflows []models.ComplianceWorkflow
	err       error
}

func (f *fakeWorkflowStore) ListByTrigger(_ context.Context, _ id.TenantID, _ string) ([]models.ComplianceWorkflow, error) {
	return f.workflows, f.err
}

func (f *fakeWorkflowStore) Get(_ context.Context, workflowID id.WorkflowID) (*models.ComplianceWorkflow, error) {
	for _, wf := range f.workflows {
		if wf.ID == workflowID {
			return &wf, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

type captureAuditor struct {
	mu     sync.Mutex
	events []audit.Event
}

func (c *captureAuditor) Emit(_ context.Context, event audit.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
	return nil
}

func (c *captureAuditor) actions() []audit.Action {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]audit.Action, 0, len(c.events))
	for _, e := range c.events {
		out = append(out, e.Action)
	}
	return out
}

func absenceWorkflow(tenantID id.TenantID, slaHours float64) models.ComplianceWorkflow {
	return models.ComplianceWorkflow{
		ID:       id.NewWorkflowID(),
		TenantID: tenantID,
		Trigger:  "absence.recorded",
		Condition: models.Condition{
			Field:    "absence.status",
			Operator: models.OpEq,
			Value:    "unexplained",
		},
		Action:   models.IntentCreateCase,
		SLAHours: slaHours,
	}
}

func absenceEvent(tenantID id.TenantID, status string) models.GuardianEvent {
	return models.GuardianEvent{
		TenantID:    tenantID,
		EventType:   "absence.recorded",
		SubjectType: "student",
		SubjectID:   "stu-7",
		Context: map[string]any{
			"absence": map[string]any{"status": status},
		},
	}
}

func TestEvaluateTrigger(t *testing.T) {
	tenantID := id.NewTenantID()

	t.Run("immediate workflow yields its action intent", func(t *testing.T) {
		wf := absenceWorkflow(tenantID, 0)
		eng := New(&fakeWorkflowStore{workflows: []models.ComplianceWorkflow{wf}})

		intents, err := eng.EvaluateTrigger(context.Background(), absenceEvent(tenantID, "unexplained"))
		require.NoError(t, err)

		require.Len(t, intents, 1)
		assert.Equal(t, models.IntentCreateCase, intents[0].Type)
		assert.Equal(t, wf.ID, intents[0].WorkflowID)
		assert.Equal(t, "stu-7", intents[0].Payload["subject_id"])
	})

	t.Run("sla delay yields a schedule intent", func(t *testing.T) {
		now := time.Date(2026, 8, 31, 9, 0, 0, 0, time.UTC)
		wf := absenceWorkflow(tenantID, 0.5)
		eng := New(
			&fakeWorkflowStore{workflows: []models.ComplianceWorkflow{wf}},
			WithClock(func() time.Time { return now }),
		)

		intents, err := eng.EvaluateTrigger(context.Background(), absenceEvent(tenantID, "unexplained"))
		require.NoError(t, err)

		require.Len(t, intents, 1)
		assert.Equal(t, models.IntentScheduleJob, intents[0].Type)
		assert.Equal(t, now.Add(30*time.Minute), intents[0].ExecuteAt)
		assert.Equal(t, "unexplained", intents[0].Event.Context["absence"].(map[string]any)["status"])
	})

	t.Run("non-matching condition yields nothing", func(t *testing.T) {
		eng := New(&fakeWorkflowStore{workflows: []models.ComplianceWorkflow{absenceWorkflow(tenantID, 0)}})

		intents, err := eng.EvaluateTrigger(context.Background(), absenceEvent(tenantID, "explained"))
		require.NoError(t, err)
		assert.Empty(t, intents)
	})

	t.Run("bad condition is non-matching with a config warning", func(t *testing.T) {
		bad := absenceWorkflow(tenantID, 0)
		bad.Condition = models.Condition{Field: "absence.status", Operator: "regex", Value: ".*"}
		good := absenceWorkflow(tenantID, 0)
		auditor := &captureAuditor{}
		eng := New(
			&fakeWorkflowStore{workflows: []models.ComplianceWorkflow{bad, good}},
			WithAuditPublisher(auditor),
		)

		intents, err := eng.EvaluateTrigger(context.Background(), absenceEvent(tenantID, "unexplained"))
		require.NoError(t, err)

		require.Len(t, intents, 1, "healthy workflow still matched")
		assert.Equal(t, good.ID, intents[0].WorkflowID)
		assert.Contains(t, auditor.actions(), audit.ActionConfigWarning)
	})

	t.Run("store failure propagates", func(t *testing.T) {
		eng := New(&fakeWorkflowStore{err: errors.New("postgres down")})

		_, err := eng.EvaluateTrigger(context.Background(), absenceEvent(tenantID, "unexplained"))
		assert.Error(t, err)
	})
}

func TestBuildActionIntent(t *testing.T) {
	tenantID := id.NewTenantID()
	wf := absenceWorkflow(tenantID, 0)
	event := absenceEvent(tenantID, "unexplained")

	intent := BuildActionIntent(wf, event)

	assert.Equal(t, wf.Action, intent.Type)
	assert.Equal(t, wf.ID, intent.WorkflowID)
	assert.Equal(t, tenantID, intent.TenantID)
	assert.Equal(t, map[string]any{
		"subject_type": "student",
		"subject_id":   "stu-7",
		"event_type":   "absence.recorded",
	}, intent.Payload)
}
