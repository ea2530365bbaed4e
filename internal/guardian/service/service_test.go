package service

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"caseguard/internal/guardian/actions"
	"caseguard/internal/guardian/engine"
	"caseguard/internal/guardian/evaluators"
	"caseguard/internal/guardian/models"
	"caseguard/internal/guardian/override"
	"caseguard/internal/guardian/scheduler"
	findingstore "caseguard/internal/guardian/store/findings"
	jobstore "caseguard/internal/guardian/store/jobs"
	overridestore "caseguard/internal/guardian/store/overrides"
	rulestore "caseguard/internal/guardian/store/rules"
	workflowstore "caseguard/internal/guardian/store/workflows"
	"caseguard/internal/guardian/workflow"
	id "caseguard/pkg/domain"
)

// harness wires the full guardian stack on in-memory stores.
type harness struct {
	tenantID  id.TenantID
	rules     *rulestore.InMemoryStore
	workflows *workflowstore.InMemoryStore
	findings  *findingstore.InMemoryStore
	jobs      *jobstore.InMemoryStore
	service   *Service
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	logger := slog.Default()
	h := &harness{
		tenantID:  id.NewTenantID(),
		rules:     rulestore.NewInMemoryStore(),
		workflows: workflowstore.NewInMemoryStore(),
		findings:  findingstore.NewInMemoryStore(),
		jobs:      jobstore.NewInMemoryStore(),
	}

	eng := engine.New(h.rules, h.findings,
		override.NewResolver(overridestore.NewInMemoryStore(), logger),
		evaluators.NewRegistry(),
		engine.WithMaxRetries(0),
	)

	executor := actions.NewExecutor(logger)
	require.NoError(t, actions.RegisterBuiltins(executor, actions.LogCollaborators(logger)))

	sched := scheduler.New(h.jobs, h.workflows, nil, executor)
	wfEngine := workflow.New(h.workflows)

	h.service = New(eng, wfEngine, sched, executor, h.findings)
	return h
}

func (h *harness) addRule(t *testing.T, kind models.ConditionKind) models.PolicyRule {
	t.Helper()
	rule := models.PolicyRule{
		ID:               id.NewRuleID(),
		TenantID:         h.tenantID,
		TriggerEvent:     "document.publish",
		TriggerCondition: kind,
		Severity:         models.SeverityCritical,
		Mode:             models.ModeEnforce,
		RolloutMode:      models.RolloutLive,
		BlockActions:     true,
		Status:           models.RuleStatusActive,
		Enabled:          true,
	}
	require.NoError(t, h.rules.Put(context.Background(), rule))
	return rule
}

func (h *harness) addWorkflow(t *testing.T, slaHours float64) models.ComplianceWorkflow {
	t.Helper()
	wf := models.ComplianceWorkflow{
		ID:       id.NewWorkflowID(),
		TenantID: h.tenantID,
		Trigger:  "absence.recorded",
		Condition: models.Condition{
			Field:    "absence.status",
			Operator: models.OpEq,
			Value:    "unexplained",
		},
		Action:   models.IntentCreateCase,
		SLAHours: slaHours,
	}
	require.NoError(t, h.workflows.Put(context.Background(), wf))
	return wf
}

func (h *harness) event(eventType string, context map[string]any) models.GuardianEvent {
	return models.GuardianEvent{
		TenantID:    h.tenantID,
		EventType:   eventType,
		SubjectType: "document",
		SubjectID:   "doc-42",
		Context:     context,
	}
}

func TestServiceEvaluate(t *testing.T) {
	t.Run("blocks through the full stack", func(t *testing.T) {
		h := newHarness(t)
		h.addRule(t, models.ConditionPIILeak)

		result, err := h.service.Evaluate(context.Background(), h.event("document.publish",
			map[string]any{"containsPII": true, "visibility": "public"}))
		require.NoError(t, err)

		assert.False(t, result.CanProceed)
		listed, err := h.findings.ListBySubject(context.Background(), h.tenantID, "doc-42")
		require.NoError(t, err)
		assert.Len(t, listed, 1)
	})

	t.Run("rejects incomplete events", func(t *testing.T) {
		h := newHarness(t)
		event := h.event("", nil)
		_, err := h.service.Evaluate(context.Background(), event)
		assert.Error(t, err)

		event = h.event("document.publish", nil)
		event.TenantID = id.TenantID{}
		_, err = h.service.Evaluate(context.Background(), event)
		assert.Error(t, err)
	})

	t.Run("stamps a missing timestamp", func(t *testing.T) {
		h := newHarness(t)
		result, err := h.service.Evaluate(context.Background(), h.event("document.publish", nil))
		require.NoError(t, err)
		assert.True(t, result.CanProceed)
	})
}

func TestServiceTrigger(t *testing.T) {
	t.Run("immediate workflow executes", func(t *testing.T) {
		h := newHarness(t)
		h.addWorkflow(t, 0)

		event := h.event("absence.recorded", map[string]any{
			"absence": map[string]any{"status": "unexplained"},
		})
		event.SubjectType = "student"
		event.SubjectID = "stu-7"

		result, err := h.service.Trigger(context.Background(), event)
		require.NoError(t, err)

		assert.Equal(t, 1, result.Matched)
		assert.Len(t, result.Executed, 1)
		assert.Empty(t, result.Scheduled)
	})

	t.Run("sla workflow schedules a durable job", func(t *testing.T) {
		h := newHarness(t)
		wf := h.addWorkflow(t, 48)

		event := h.event("absence.recorded", map[string]any{
			"absence": map[string]any{"status": "unexplained"},
		})
		result, err := h.service.Trigger(context.Background(), event)
		require.NoError(t, err)

		assert.Equal(t, 1, result.Matched)
		require.Len(t, result.Scheduled, 1)
		assert.Empty(t, result.Executed)

		job, err := h.jobs.Get(context.Background(), result.Scheduled[0].ID)
		require.NoError(t, err)
		assert.Equal(t, wf.ID, job.WorkflowID)
		assert.Equal(t, models.JobPending, job.Status)
		assert.WithinDuration(t, time.Now().Add(48*time.Hour), job.ExecuteAt, time.Minute)
	})

	t.Run("no match means nothing happens", func(t *testing.T) {
		h := newHarness(t)
		h.addWorkflow(t, 0)

		result, err := h.service.Trigger(context.Background(), h.event("absence.recorded", map[string]any{
			"absence": map[string]any{"status": "explained"},
		}))
		require.NoError(t, err)
		assert.Equal(t, 0, result.Matched)
	})
}

func TestServiceListFindings(t *testing.T) {
	h := newHarness(t)
	h.addRule(t, models.ConditionMissingConsent)

	for i := 0; i < 3; i++ {
		_, err := h.service.Evaluate(context.Background(), h.event("document.publish", map[string]any{}))
		require.NoError(t, err)
	}

	t.Run("by subject", func(t *testing.T) {
		listed, err := h.service.ListFindings(context.Background(), h.tenantID, "doc-42", 0)
		require.NoError(t, err)
		assert.Len(t, listed, 3)
	})

	t.Run("by tenant with limit", func(t *testing.T) {
		listed, err := h.service.ListFindings(context.Background(), h.tenantID, "", 2)
		require.NoError(t, err)
		assert.Len(t, listed, 2)
	})

	t.Run("requires a tenant", func(t *testing.T) {
		_, err := h.service.ListFindings(context.Background(), id.TenantID{}, "", 0)
		assert.Error(t, err)
	})
}
