package strings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDedupeAndTrim(t *testing.T) {
	tests := []struct {
		name     string
		input    []string
		expected []string
	}{
		{
			name:     "nil slice",
			input:    nil,
			expected: nil,
		},
		{
			name:     "empty slice",
			input:    []string{},
			expected: []string{},
		},
		{
			name:     "single field",
			input:    []string{"consentForm"},
			expected: []string{"consentForm"},
		},
		{
			name:     "trims padded field names",
			input:    []string{"  age  ", "consentForm  ", "  guardianName"},
			expected: []string{"age", "consentForm", "guardianName"},
		},
		{
			name:     "removes duplicates preserving order",
			input:    []string{"age", "consentForm", "age", "guardianName", "consentForm"},
			expected: []string{"age", "consentForm", "guardianName"},
		},
		{
			name:     "removes blank entries",
			input:    []string{"age", "", "  ", "consentForm"},
			expected: []string{"age", "consentForm"},
		},
		{
			name:     "combined: trim, dedupe, remove blanks",
			input:    []string{"  age ", "consentForm", "age", "", "  ", "consentForm"},
			expected: []string{"age", "consentForm"},
		},
		{
			name:     "preserves case",
			input:    []string{"ConsentForm", "consentForm", "CONSENTFORM"},
			expected: []string{"ConsentForm", "consentForm", "CONSENTFORM"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := DedupeAndTrim(tt.input)
			assert.Equal(t, tt.expected, result)
		})
	}
}
