// Package actions executes action intents. This is the single place the
// compliance core touches external state: both the immediate workflow
// path and the scheduler's post-recheck path hand their intents here.
package actions

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"caseguard/internal/guardian/models"
	dErrors "caseguard/pkg/domain-errors"
)

// HandlerFunc performs the side effect for one intent type.
type HandlerFunc func(ctx context.Context, intent models.ActionIntent) (*models.ActionResult, error)

// Executor dispatches intents to registered handlers. The registry is
// bounded by the models.ExecutableIntentTypes whitelist: tenants choose
// among these types, they cannot add new ones.
type Executor struct {
	mu       sync.RWMutex
	handlers map[models.IntentType]HandlerFunc
	logger   *slog.Logger
}

func NewExecutor(logger *slog.Logger) *Executor {
	return &Executor{
		handlers: make(map[models.IntentType]HandlerFunc),
		logger:   logger,
	}
}

// Register installs a handler for a whitelisted intent type.
func (e *Executor) Register(intentType models.IntentType, handler HandlerFunc) error {
	if _, ok := models.ExecutableIntentTypes[intentType]; !ok {
		return dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("intent type %q is not whitelisted", intentType))
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handlers[intentType] = handler
	return nil
}

// Execute runs the intent's handler. Unknown types are an internal error:
// workflow validation rejects them at config-load time, so reaching here
// with one means a registration gap.
func (e *Executor) Execute(ctx context.Context, intent models.ActionIntent) (*models.ActionResult, error) {
	e.mu.RLock()
	handler, ok := e.handlers[intent.Type]
	e.mu.RUnlock()
	if !ok {
		return nil, dErrors.New(dErrors.CodeInternal, fmt.Sprintf("no handler registered for intent type %q", intent.Type))
	}

	result, err := handler(ctx, intent)
	if err != nil {
		e.logger.ErrorContext(ctx, "action execution failed",
			"intent_type", intent.Type,
			"workflow_id", intent.WorkflowID,
			"error", err,
		)
		return nil, err
	}
	e.logger.InfoContext(ctx, "action executed",
		"intent_type", intent.Type,
		"workflow_id", intent.WorkflowID,
		"subject_id", intent.Event.SubjectID,
	)
	return result, nil
}
