// Package strings provides string manipulation utilities.
package strings

import (
	"strings"
)

// DedupeAndTrim removes duplicates and empty strings from a slice,
// trimming whitespace from each element. Order is preserved.
//
// Tenant configuration lists (required metadata fields, keyword sets)
// arrive hand-typed; this normalizes them before evaluation so a
// duplicated or padded entry never changes a rule's behavior.
//
// Example:
//
//	DedupeAndTrim([]string{" consentForm ", "age", "consentForm", ""})
//	// Returns: []string{"consentForm", "age"}
func DedupeAndTrim(values []string) []string {
	if len(values) == 0 {
		return values
	}

	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))

	for _, v := range values {
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; !ok {
			seen[trimmed] = struct{}{}
			result = append(result, trimmed)
		}
	}

	return result
}
