package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTenantID(t *testing.T) {
	t.Run("round trips", func(t *testing.T) {
		original := NewTenantID()
		parsed, err := ParseTenantID(original.String())
		require.NoError(t, err)
		assert.Equal(t, original, parsed)
	})

	t.Run("rejects empty", func(t *testing.T) {
		_, err := ParseTenantID("")
		assert.Error(t, err)
	})

	t.Run("rejects garbage", func(t *testing.T) {
		_, err := ParseTenantID("not-a-uuid")
		assert.Error(t, err)
	})

	t.Run("rejects the nil uuid", func(t *testing.T) {
		_, err := ParseTenantID("00000000-0000-0000-0000-000000000000")
		assert.Error(t, err)
	})
}

func TestIDJSON(t *testing.T) {
	type record struct {
		Rule RuleID `json:"rule"`
		Job  JobID  `json:"job"`
	}

	original := record{Rule: NewRuleID(), Job: NewJobID()}
	raw, err := json.Marshal(original)
	require.NoError(t, err)
	assert.Contains(t, string(raw), original.Rule.String())

	var decoded record
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, original, decoded)
}

func TestIsNil(t *testing.T) {
	assert.True(t, TenantID{}.IsNil())
	assert.False(t, NewTenantID().IsNil())
}
