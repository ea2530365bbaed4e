package models

import (
	"fmt"
	"strings"

	dErrors "caseguard/pkg/domain-errors"
)

// Operator is one of the fixed comparison operators a workflow condition
// may use. Tenant configuration never carries executable text; conditions
// are data interpreted by this evaluator and nothing else.
type Operator string

const (
	OpEq       Operator = "eq"
	OpNeq      Operator = "neq"
	OpGt       Operator = "gt"
	OpGte      Operator = "gte"
	OpLt       Operator = "lt"
	OpLte      Operator = "lte"
	OpContains Operator = "contains"
	OpExists   Operator = "exists"
)

func (o Operator) IsValid() bool {
	switch o {
	case OpEq, OpNeq, OpGt, OpGte, OpLt, OpLte, OpContains, OpExists:
		return true
	}
	return false
}

// Condition is a declarative predicate over an event's context map.
// A node is either a leaf (Field+Operator, optionally Value) or a
// combinator (exactly one of All/Any set).
type Condition struct {
	Field    string      `json:"field,omitempty" yaml:"field,omitempty"`
	Operator Operator    `json:"operator,omitempty" yaml:"operator,omitempty"`
	Value    any         `json:"value,omitempty" yaml:"value,omitempty"`
	All      []Condition `json:"all,omitempty" yaml:"all,omitempty"`
	Any      []Condition `json:"any,omitempty" yaml:"any,omitempty"`
}

// Validate rejects malformed conditions at config-load time so a broken
// workflow never reaches evaluation.
func (c Condition) Validate() error {
	switch {
	case len(c.All) > 0 && len(c.Any) > 0:
		return dErrors.New(dErrors.CodeInvalidCondition, "condition cannot combine all and any")
	case len(c.All) > 0 || len(c.Any) > 0:
		if c.Field != "" || c.Operator != "" {
			return dErrors.New(dErrors.CodeInvalidCondition, "combinator condition cannot also be a leaf")
		}
		for _, child := range append(c.All, c.Any...) {
			if err := child.Validate(); err != nil {
				return err
			}
		}
		return nil
	case c.Field == "":
		return dErrors.New(dErrors.CodeInvalidCondition, "condition field is required")
	case !c.Operator.IsValid():
		return dErrors.New(dErrors.CodeInvalidCondition, fmt.Sprintf("unsupported operator %q", c.Operator))
	case c.Operator != OpExists && c.Value == nil:
		return dErrors.New(dErrors.CodeInvalidCondition, fmt.Sprintf("operator %q requires a value", c.Operator))
	}
	return nil
}

// Evaluate interprets the predicate against an event context. Errors mean
// the condition references operators or value types the evaluator does not
// support; callers treat that as non-matching plus a tenant config warning.
func (c Condition) Evaluate(context map[string]any) (bool, error) {
	if len(c.All) > 0 {
		for _, child := range c.All {
			ok, err := child.Evaluate(context)
			if err != nil {
				return false, err
			}
			if !ok {
				return false, nil
			}
		}
		return true, nil
	}
	if len(c.Any) > 0 {
		for _, child := range c.Any {
			ok, err := child.Evaluate(context)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil
	}

	if !c.Operator.IsValid() {
		return false, dErrors.New(dErrors.CodeInvalidCondition, fmt.Sprintf("unsupported operator %q", c.Operator))
	}

	value, present := lookupField(context, c.Field)
	if c.Operator == OpExists {
		want := true
		if b, ok := c.Value.(bool); ok {
			want = b
		}
		return present == want, nil
	}
	// A missing field never matches a comparison.
	if !present {
		return false, nil
	}

	switch c.Operator {
	case OpEq:
		return equal(value, c.Value), nil
	case OpNeq:
		return !equal(value, c.Value), nil
	case OpGt, OpGte, OpLt, OpLte:
		return compareNumeric(c.Operator, value, c.Value)
	case OpContains:
		return contains(value, c.Value)
	}
	return false, dErrors.New(dErrors.CodeInvalidCondition, fmt.Sprintf("unsupported operator %q", c.Operator))
}

// lookupField resolves dotted paths ("absence.status") through nested maps.
func lookupField(context map[string]any, field string) (any, bool) {
	parts := strings.Split(field, ".")
	var current any = context
	for _, part := range parts {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

func equal(a, b any) bool {
	// Numbers compare by value regardless of the decoded Go type.
	if fa, ok := toFloat(a); ok {
		if fb, ok := toFloat(b); ok {
			return fa == fb
		}
	}
	return a == b
}

func compareNumeric(op Operator, a, b any) (bool, error) {
	fa, okA := toFloat(a)
	fb, okB := toFloat(b)
	if !okA || !okB {
		return false, dErrors.New(dErrors.CodeInvalidCondition,
			fmt.Sprintf("operator %q requires numeric operands", op))
	}
	switch op {
	case OpGt:
		return fa > fb, nil
	case OpGte:
		return fa >= fb, nil
	case OpLt:
		return fa < fb, nil
	case OpLte:
		return fa <= fb, nil
	}
	return false, dErrors.New(dErrors.CodeInvalidCondition, fmt.Sprintf("unsupported operator %q", op))
}

func contains(haystack, needle any) (bool, error) {
	switch h := haystack.(type) {
	case string:
		n, ok := needle.(string)
		if !ok {
			return false, dErrors.New(dErrors.CodeInvalidCondition, "contains on a string requires a string value")
		}
		return strings.Contains(h, n), nil
	case []any:
		for _, item := range h {
			if equal(item, needle) {
				return true, nil
			}
		}
		return false, nil
	case []string:
		n, ok := needle.(string)
		if !ok {
			return false, dErrors.New(dErrors.CodeInvalidCondition, "contains on a string slice requires a string value")
		}
		for _, item := range h {
			if item == n {
				return true, nil
			}
		}
		return false, nil
	}
	return false, dErrors.New(dErrors.CodeInvalidCondition, "contains requires a string or list field")
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}
