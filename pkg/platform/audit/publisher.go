package audit

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
)

// Publisher accepts audit events from domain code without blocking it.
// Events flow through a bounded channel to the Worker; when the buffer is
// full the event is dropped and counted, because the guarded action's
// latency must never depend on the audit sink.
type Publisher struct {
	inbox   chan Event
	dropped atomic.Int64
	logger  *slog.Logger
}

func NewPublisher(buffer int, logger *slog.Logger) *Publisher {
	if buffer <= 0 {
		buffer = 256
	}
	return &Publisher{inbox: make(chan Event, buffer), logger: logger}
}

// Emit queues an event, stamping the time if unset.
func (p *Publisher) Emit(ctx context.Context, event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	select {
	case p.inbox <- event:
	default:
		dropped := p.dropped.Add(1)
		p.logger.WarnContext(ctx, "audit buffer full, event dropped",
			"action", event.Action,
			"tenant_id", event.TenantID,
			"dropped_total", dropped,
		)
	}
	return nil
}

// Events exposes the inbox for the worker.
func (p *Publisher) Events() <-chan Event { return p.inbox }

// Dropped reports how many events were lost to backpressure.
func (p *Publisher) Dropped() int64 { return p.dropped.Load() }
