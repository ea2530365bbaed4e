package worker

import (
	"context"
	"encoding/json"
	"log/slog"

	audit "caseguard/pkg/platform/audit"
)

// Mirror is an optional secondary sink (Kafka) for SIEM consumption.
type Mirror interface {
	Publish(ctx context.Context, key string, payload []byte) error
}

// Worker consumes audit events from the publisher and persists them.
// Store failures are logged, never propagated: audit persistence problems
// must not stall the consumer loop.
type Worker struct {
	store  audit.Store
	inbox  <-chan audit.Event
	mirror Mirror
	logger *slog.Logger
}

func New(store audit.Store, inbox <-chan audit.Event, mirror Mirror, logger *slog.Logger) *Worker {
	return &Worker{store: store, inbox: inbox, mirror: mirror, logger: logger}
}

func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-w.inbox:
			if err := w.store.Append(ctx, event); err != nil {
				w.logger.ErrorContext(ctx, "audit append failed",
					"action", event.Action,
					"error", err,
				)
			}
			w.publishMirror(ctx, event)
		}
	}
}

func (w *Worker) publishMirror(ctx context.Context, event audit.Event) {
	if w.mirror == nil {
		return
	}
	payload, err := json.Marshal(event)
	if err != nil {
		w.logger.ErrorContext(ctx, "audit event marshal failed", "error", err)
		return
	}
	if err := w.mirror.Publish(ctx, event.TenantID, payload); err != nil {
		w.logger.WarnContext(ctx, "audit mirror publish failed",
			"action", event.Action,
			"error", err,
		)
	}
}
