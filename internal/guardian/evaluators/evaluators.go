// Package evaluators holds the pluggable trigger predicates the engine
// runs per rule. Evaluators are pure and side-effect free; a malformed
// context means "no violation", never a crash. Adding a condition kind is
// a registry entry, not an engine change.
package evaluators

import (
	"fmt"
	"strings"
	"sync"

	"caseguard/internal/guardian/models"
	strutil "caseguard/pkg/platform/strings"
)

// Func inspects an event context and reports a violation message.
// ok=false means the rule is satisfied (or the context lacks the keys the
// evaluator needs, which is treated the same way).
type Func func(context map[string]any) (message string, violated bool)

// Registry maps condition kinds to evaluator functions.
type Registry struct {
	mu    sync.RWMutex
	funcs map[models.ConditionKind]Func
}

// NewRegistry returns a registry with the built-in evaluators installed.
func NewRegistry() *Registry {
	r := &Registry{funcs: make(map[models.ConditionKind]Func)}
	r.Register(models.ConditionMissingConsent, MissingConsent)
	r.Register(models.ConditionMissingMetadata, MissingMetadata)
	r.Register(models.ConditionPIILeak, PIILeak)
	r.Register(models.ConditionSafeguardingRecommended, SafeguardingRecommended)
	return r
}

// Register installs or replaces the evaluator for a condition kind.
func (r *Registry) Register(kind models.ConditionKind, fn Func) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.funcs[kind] = fn
}

// Evaluate runs the evaluator for a kind. An unregistered kind is an
// error so the engine can log it as a per-rule failure.
func (r *Registry) Evaluate(kind models.ConditionKind, context map[string]any) (string, bool, error) {
	r.mu.RLock()
	fn, ok := r.funcs[kind]
	r.mu.RUnlock()
	if !ok {
		return "", false, fmt.Errorf("no evaluator registered for condition %q", kind)
	}
	message, violated := fn(context)
	return message, violated, nil
}

// MissingConsent fails when context.consentObtained is absent or falsy.
func MissingConsent(context map[string]any) (string, bool) {
	if truthy(context["consentObtained"]) {
		return "", false
	}
	return "Consent has not been obtained for this action.", true
}

// MissingMetadata fails when any field named in context.requiredMetadata
// is absent from the context. The message lists all missing fields in the
// order given; duplicate or blank entries in the requirement are ignored.
func MissingMetadata(context map[string]any) (string, bool) {
	required := strutil.DedupeAndTrim(stringSlice(context["requiredMetadata"]))
	if len(required) == 0 {
		return "", false
	}
	var missing []string
	for _, field := range required {
		if _, present := context[field]; !present {
			missing = append(missing, field)
		}
	}
	if len(missing) == 0 {
		return "", false
	}
	return "Missing required metadata: " + strings.Join(missing, ", ") + ".", true
}

// PIILeak fails iff the content is flagged as containing PII and its
// visibility is public.
func PIILeak(context map[string]any) (string, bool) {
	containsPII, _ := context["containsPII"].(bool)
	visibility, _ := context["visibility"].(string)
	if containsPII && visibility == "public" {
		return "Public document contains PII flags.", true
	}
	return "", false
}

// riskLexicon is the fixed safeguarding keyword list. This is a simple
// lexicon scan; a future classifier can replace the evaluator without
// touching the engine.
var riskLexicon = []string{
	"suicide",
	"self-harm",
	"abuse",
	"violence",
	"neglect",
	"trafficking",
}

// SafeguardingRecommended scans context.text case-insensitively against
// the risk lexicon and lists every matched keyword.
func SafeguardingRecommended(context map[string]any) (string, bool) {
	text, _ := context["text"].(string)
	if text == "" {
		return "", false
	}
	lowered := strings.ToLower(text)
	var matched []string
	for _, keyword := range riskLexicon {
		if strings.Contains(lowered, keyword) {
			matched = append(matched, keyword)
		}
	}
	if len(matched) == 0 {
		return "", false
	}
	return "Safeguarding risk keywords detected: " + strings.Join(matched, ", ") + ".", true
}

// truthy mirrors how guarded features submit the consent flag: booleans
// directly, or "true" when the value crossed a form boundary.
func truthy(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		return t == "true"
	}
	return false
}

// stringSlice tolerates both []string and the []any that JSON decoding
// produces.
func stringSlice(v any) []string {
	switch s := v.(type) {
	case []string:
		return s
	case []any:
		out := make([]string, 0, len(s))
		for _, item := range s {
			if str, ok := item.(string); ok {
				out = append(out, str)
			}
		}
		return out
	}
	return nil
}
