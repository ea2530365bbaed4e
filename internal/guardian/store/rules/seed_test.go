package rules

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"caseguard/internal/guardian/models"
	workflowstore "caseguard/internal/guardian/store/workflows"
	id "caseguard/pkg/domain"
	"caseguard/pkg/testutil"
)

func writeSeed(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestSeedFromFile(t *testing.T) {
	ctx := context.Background()
	tenantID := id.NewTenantID()

	testutil.Given(t, "a seed file with one rule and one workflow", func(t *testing.T) {
		path := writeSeed(t, `
rules:
  - tenant_id: `+tenantID.String()+`
    trigger_event: document.publish
    trigger_condition: pii_leak
    severity: critical
    mode: enforce
    rollout_mode: live
    block_actions: true
    status: active
    enabled: true
    remediation: Restrict visibility before publishing.
workflows:
  - tenant_id: `+tenantID.String()+`
    trigger: absence.recorded
    condition:
      field: absence.status
      operator: eq
      value: unexplained
    action: create_case
    sla_hours: 48
`)
		ruleStore := NewInMemoryStore()
		wfStore := workflowstore.NewInMemoryStore()

		testutil.When(t, "the seed loads", func(t *testing.T) {
			require.NoError(t, SeedFromFile(ctx, path, ruleStore, wfStore))

			testutil.Then(t, "the rule is active for its trigger", func(t *testing.T) {
				rules, err := ruleStore.ListActive(ctx, tenantID, "document.publish")
				require.NoError(t, err)
				require.Len(t, rules, 1)
				assert.Equal(t, models.ConditionPIILeak, rules[0].TriggerCondition)
				assert.True(t, rules[0].BlockActions)
			})

			testutil.Then(t, "the workflow matches its trigger", func(t *testing.T) {
				workflows, err := wfStore.ListByTrigger(ctx, tenantID, "absence.recorded")
				require.NoError(t, err)
				require.Len(t, workflows, 1)
				assert.Equal(t, models.IntentCreateCase, workflows[0].Action)
				assert.InDelta(t, 48.0, workflows[0].SLAHours, 0.0001)
			})
		})
	})

	testutil.Given(t, "a seed file naming an unknown action", func(t *testing.T) {
		path := writeSeed(t, `
workflows:
  - tenant_id: `+tenantID.String()+`
    trigger: absence.recorded
    condition:
      field: absence.status
      operator: eq
      value: unexplained
    action: send_webhook
`)
		testutil.Then(t, "loading fails", func(t *testing.T) {
			err := SeedFromFile(ctx, path, NewInMemoryStore(), workflowstore.NewInMemoryStore())
			assert.Error(t, err)
		})
	})

	t.Run("missing file errors", func(t *testing.T) {
		err := SeedFromFile(ctx, "/nonexistent/seed.yaml", NewInMemoryStore(), workflowstore.NewInMemoryStore())
		assert.Error(t, err)
	})
}
