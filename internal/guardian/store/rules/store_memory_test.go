package rules

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"caseguard/internal/guardian/models"
	id "caseguard/pkg/domain"
)

func activeRule(tenantID id.TenantID, trigger string) models.PolicyRule {
	return models.PolicyRule{
		ID:               id.NewRuleID(),
		TenantID:         tenantID,
		TriggerEvent:     trigger,
		TriggerCondition: models.ConditionPIILeak,
		Severity:         models.SeverityCritical,
		Mode:             models.ModeEnforce,
		RolloutMode:      models.RolloutLive,
		BlockActions:     true,
		Status:           models.RuleStatusActive,
		Enabled:          true,
	}
}

func TestInMemoryStoreListActive(t *testing.T) {
	ctx := context.Background()
	tenantID := id.NewTenantID()

	t.Run("filters dormant rules", func(t *testing.T) {
		s := NewInMemoryStore()

		active := activeRule(tenantID, "document.publish")
		disabled := activeRule(tenantID, "document.publish")
		disabled.Enabled = false
		draft := activeRule(tenantID, "document.publish")
		draft.Status = models.RuleStatusDraft
		archived := activeRule(tenantID, "document.publish")
		archived.Status = models.RuleStatusArchived

		for _, r := range []models.PolicyRule{active, disabled, draft, archived} {
			require.NoError(t, s.Put(ctx, r))
		}

		listed, err := s.ListActive(ctx, tenantID, "document.publish")
		require.NoError(t, err)
		require.Len(t, listed, 1)
		assert.Equal(t, active.ID, listed[0].ID)
	})

	t.Run("filters by event type", func(t *testing.T) {
		s := NewInMemoryStore()
		require.NoError(t, s.Put(ctx, activeRule(tenantID, "document.publish")))
		require.NoError(t, s.Put(ctx, activeRule(tenantID, "absence.recorded")))

		listed, err := s.ListActive(ctx, tenantID, "absence.recorded")
		require.NoError(t, err)
		assert.Len(t, listed, 1)
	})

	t.Run("isolates tenants", func(t *testing.T) {
		s := NewInMemoryStore()
		require.NoError(t, s.Put(ctx, activeRule(tenantID, "document.publish")))

		listed, err := s.ListActive(ctx, id.NewTenantID(), "document.publish")
		require.NoError(t, err)
		assert.Empty(t, listed)
	})

	t.Run("put replaces by id", func(t *testing.T) {
		s := NewInMemoryStore()
		rule := activeRule(tenantID, "document.publish")
		require.NoError(t, s.Put(ctx, rule))

		rule.Severity = models.SeverityWarning
		require.NoError(t, s.Put(ctx, rule))

		listed, err := s.ListActive(ctx, tenantID, "document.publish")
		require.NoError(t, err)
		require.Len(t, listed, 1)
		assert.Equal(t, models.SeverityWarning, listed[0].Severity)
	})
}
