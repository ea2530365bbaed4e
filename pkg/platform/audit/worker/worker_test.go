package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	audit "caseguard/pkg/platform/audit"
	auditmemory "caseguard/pkg/platform/audit/store/memory"
)

type captureMirror struct {
	mu       sync.Mutex
	payloads [][]byte
	err      error
}

func (c *captureMirror) Publish(_ context.Context, _ string, payload []byte) error {
	if c.err != nil {
		return c.err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.payloads = append(c.payloads, payload)
	return nil
}

func (c *captureMirror) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.payloads)
}

func TestWorkerRun(t *testing.T) {
	t.Run("drains events into the store and mirror", func(t *testing.T) {
		store := auditmemory.NewInMemoryStore()
		mirror := &captureMirror{}
		publisher := audit.NewPublisher(8, slog.Default())
		w := New(store, publisher.Events(), mirror, slog.Default())

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})
		go func() {
			_ = w.Run(ctx)
			close(done)
		}()

		require.NoError(t, publisher.Emit(ctx, audit.Event{
			TenantID: "t-1",
			Action:   audit.ActionActionBlocked,
			Severity: audit.SeverityCritical,
		}))

		require.Eventually(t, func() bool {
			events, err := store.ListRecent(context.Background(), 10)
			return err == nil && len(events) == 1
		}, time.Second, 10*time.Millisecond)
		assert.Equal(t, 1, mirror.count())

		cancel()
		<-done
	})

	t.Run("mirror failure does not stall the loop", func(t *testing.T) {
		store := auditmemory.NewInMemoryStore()
		mirror := &captureMirror{err: errors.New("kafka down")}
		publisher := audit.NewPublisher(8, slog.Default())
		w := New(store, publisher.Events(), mirror, slog.Default())

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go func() { _ = w.Run(ctx) }()

		for i := 0; i < 3; i++ {
			require.NoError(t, publisher.Emit(ctx, audit.Event{Action: audit.ActionJobFired}))
		}

		require.Eventually(t, func() bool {
			events, err := store.ListRecent(context.Background(), 10)
			return err == nil && len(events) == 3
		}, time.Second, 10*time.Millisecond)
	})

	t.Run("runs without a mirror", func(t *testing.T) {
		store := auditmemory.NewInMemoryStore()
		publisher := audit.NewPublisher(8, slog.Default())
		w := New(store, publisher.Events(), nil, slog.Default())

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go func() { _ = w.Run(ctx) }()

		require.NoError(t, publisher.Emit(ctx, audit.Event{Action: audit.ActionEvaluationCompleted}))
		require.Eventually(t, func() bool {
			events, err := store.ListRecent(context.Background(), 10)
			return err == nil && len(events) == 1
		}, time.Second, 10*time.Millisecond)
	})
}
