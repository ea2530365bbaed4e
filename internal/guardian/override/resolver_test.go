package override

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"caseguard/internal/guardian/models"
	id "caseguard/pkg/domain"
)

type fakeOverrideStore struct {
	requests []models.OverrideRequest
	err      error
}

func (f *fakeOverrideStore) ListBySubject(context.Context, id.TenantID, string) ([]models.OverrideRequest, error) {
	return f.requests, f.err
}

func TestIsOverridden(t *testing.T) {
	tenantID := id.NewTenantID()
	ruleID := id.NewRuleID()
	otherRuleID := id.NewRuleID()

	t.Run("approved request covering the rule", func(t *testing.T) {
		r := NewResolver(&fakeOverrideStore{requests: []models.OverrideRequest{{
			TenantID:  tenantID,
			SubjectID: "doc-1",
			RuleIDs:   []id.RuleID{otherRuleID, ruleID},
			Status:    models.OverrideApproved,
		}}}, slog.Default())

		overridden, err := r.IsOverridden(context.Background(), tenantID, "doc-1", ruleID)
		require.NoError(t, err)
		assert.True(t, overridden)
	})

	t.Run("pending request does not count", func(t *testing.T) {
		r := NewResolver(&fakeOverrideStore{requests: []models.OverrideRequest{{
			TenantID:  tenantID,
			SubjectID: "doc-1",
			RuleIDs:   []id.RuleID{ruleID},
			Status:    models.OverridePending,
		}}}, slog.Default())

		overridden, err := r.IsOverridden(context.Background(), tenantID, "doc-1", ruleID)
		require.NoError(t, err)
		assert.False(t, overridden)
	})

	t.Run("approved request for another rule does not count", func(t *testing.T) {
		r := NewResolver(&fakeOverrideStore{requests: []models.OverrideRequest{{
			TenantID:  tenantID,
			SubjectID: "doc-1",
			RuleIDs:   []id.RuleID{otherRuleID},
			Status:    models.OverrideApproved,
		}}}, slog.Default())

		overridden, err := r.IsOverridden(context.Background(), tenantID, "doc-1", ruleID)
		require.NoError(t, err)
		assert.False(t, overridden)
	})

	t.Run("no requests means not overridden", func(t *testing.T) {
		r := NewResolver(&fakeOverrideStore{}, slog.Default())

		overridden, err := r.IsOverridden(context.Background(), tenantID, "doc-1", ruleID)
		require.NoError(t, err)
		assert.False(t, overridden)
	})

	t.Run("store failure propagates", func(t *testing.T) {
		r := NewResolver(&fakeOverrideStore{err: errors.New("redis down")}, slog.Default())

		_, err := r.IsOverridden(context.Background(), tenantID, "doc-1", ruleID)
		assert.Error(t, err)
	})
}
