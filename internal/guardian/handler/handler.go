// Package handler wires the guardian HTTP endpoints to the service.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"caseguard/internal/guardian/models"
	"caseguard/internal/guardian/service"
	"caseguard/internal/platform/middleware"
	id "caseguard/pkg/domain"
	"caseguard/pkg/platform/httputil"
)

// Service defines the guardian operations the handler exposes.
type Service interface {
	Evaluate(ctx context.Context, event models.GuardianEvent) (*models.EvaluationResult, error)
	Trigger(ctx context.Context, event models.GuardianEvent) (*service.TriggerResult, error)
	ListFindings(ctx context.Context, tenantID id.TenantID, subjectID string, limit int) ([]models.Finding, error)
}

// Handler wires guardian endpoints to the guardian service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a guardian handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Register mounts guardian endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/events/evaluate", h.HandleEvaluate)
	r.Post("/events/trigger", h.HandleTrigger)
	r.Get("/findings", h.HandleListFindings)
}

// HandleEvaluate handles POST /v1/events/evaluate. The caller holds the
// guarded action until this responds.
func (h *Handler) HandleEvaluate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.RequestIDFromContext(ctx)
	start := time.Now()

	req, ok := httputil.Decode[EventRequest](w, r, h.logger)
	if !ok {
		return
	}
	if err := req.Validate(); err != nil {
		httputil.WriteError(w, err)
		return
	}

	result, err := h.service.Evaluate(ctx, req.ToEvent())
	if err != nil {
		h.logger.ErrorContext(ctx, "event evaluation failed",
			"request_id", requestID,
			"tenant_id", req.TenantID,
			"event_type", req.EventType,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "event evaluated",
		"request_id", requestID,
		"tenant_id", req.TenantID,
		"event_type", req.EventType,
		"can_proceed", result.CanProceed,
		"findings", len(result.Findings),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	httputil.WriteJSON(w, http.StatusOK, FromEvaluation(result))
}

// HandleTrigger handles POST /v1/events/trigger. Runs the workflow pass
// for an event whose guarded action already went through.
func (h *Handler) HandleTrigger(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.RequestIDFromContext(ctx)

	req, ok := httputil.Decode[EventRequest](w, r, h.logger)
	if !ok {
		return
	}
	if err := req.Validate(); err != nil {
		httputil.WriteError(w, err)
		return
	}

	result, err := h.service.Trigger(ctx, req.ToEvent())
	if err != nil {
		h.logger.ErrorContext(ctx, "event trigger failed",
			"request_id", requestID,
			"tenant_id", req.TenantID,
			"event_type", req.EventType,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "event triggered",
		"request_id", requestID,
		"tenant_id", req.TenantID,
		"event_type", req.EventType,
		"matched", result.Matched,
		"scheduled", len(result.Scheduled),
	)

	httputil.WriteJSON(w, http.StatusOK, FromTrigger(result))
}

// HandleListFindings handles GET /v1/findings.
func (h *Handler) HandleListFindings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	tenantID, err := id.ParseTenantID(r.URL.Query().Get("tenant_id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	subjectID := r.URL.Query().Get("subject_id")
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	findings, err := h.service.ListFindings(ctx, tenantID, subjectID, limit)
	if err != nil {
		h.logger.ErrorContext(ctx, "finding listing failed",
			"tenant_id", tenantID,
			"subject_id", subjectID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, FindingsResponse{Findings: fromFindings(findings)})
}
