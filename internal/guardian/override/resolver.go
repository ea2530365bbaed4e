// Package override answers whether an approved exception exists for a
// subject+rule pair. Override state is read only at the moment a finding
// is created; an approval granted later never retroactively changes an
// existing finding.
package override

import (
	"context"
	"log/slog"

	"caseguard/internal/guardian/ports"
	id "caseguard/pkg/domain"
)

type Resolver struct {
	store  ports.OverrideStore
	logger *slog.Logger
}

func NewResolver(store ports.OverrideStore, logger *slog.Logger) *Resolver {
	return &Resolver{store: store, logger: logger}
}

// IsOverridden reports whether an approved OverrideRequest covers the
// rule for this subject. Absence of any match is false, never an error;
// a store failure is an error so the engine can fail closed.
func (r *Resolver) IsOverridden(ctx context.Context, tenantID id.TenantID, subjectID string, ruleID id.RuleID) (bool, error) {
	requests, err := r.store.ListBySubject(ctx, tenantID, subjectID)
	if err != nil {
		return false, err
	}
	for _, req := range requests {
		if req.Covers(ruleID) {
			return true, nil
		}
	}
	return false, nil
}
