// Package engine classifies incoming guardian events against tenant
// policy rules and decides whether the guarded action may proceed.
//
// The decision is computed purely in memory: finding persistence runs
// concurrently and the engine waits for the writes to settle, but a write
// failure can never revoke a decision already computed. Blocking semantics
// are fail-closed: if rule or override configuration cannot be loaded, the
// evaluation returns as if one critical blocking finding existed.
package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"caseguard/internal/guardian/evaluators"
	"caseguard/internal/guardian/metrics"
	"caseguard/internal/guardian/models"
	"caseguard/internal/guardian/ports"
	id "caseguard/pkg/domain"
	"caseguard/pkg/platform/audit"
)

var tracer = otel.Tracer("caseguard/engine")

// Engine orchestrates trigger evaluators, the override resolver, and the
// finding store to classify one event.
type Engine struct {
	rules      ports.RuleStore
	findings   ports.FindingStore
	overrides  ports.OverrideResolver
	evaluators *evaluators.Registry

	logger        *slog.Logger
	metrics       *metrics.Metrics
	auditor       ports.AuditPublisher
	lookupTimeout time.Duration
	maxRetries    uint64
	now           func() time.Time
}

type Option func(*Engine)

func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

func WithAuditPublisher(auditor ports.AuditPublisher) Option {
	return func(e *Engine) { e.auditor = auditor }
}

// WithLookupTimeout bounds each external config read (rules, overrides).
func WithLookupTimeout(d time.Duration) Option {
	return func(e *Engine) { e.lookupTimeout = d }
}

// WithMaxRetries bounds the persistence retry budget per finding.
func WithMaxRetries(n uint64) Option {
	return func(e *Engine) { e.maxRetries = n }
}

// WithClock overrides time for tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func New(rules ports.RuleStore, findings ports.FindingStore, overrides ports.OverrideResolver, registry *evaluators.Registry, opts ...Option) *Engine {
	e := &Engine{
		rules:         rules,
		findings:      findings,
		overrides:     overrides,
		evaluators:    registry,
		logger:        slog.Default(),
		lookupTimeout: 2 * time.Second,
		maxRetries:    3,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Evaluate classifies the event against every enabled, active rule for
// its tenant and event type. Rules are independent and evaluated
// concurrently; every violation yields exactly one finding. The returned
// CanProceed is always len(BlockingFindings) == 0.
func (e *Engine) Evaluate(ctx context.Context, event models.GuardianEvent) (*models.EvaluationResult, error) {
	start := e.now()
	ctx, span := tracer.Start(ctx, "engine.evaluate")
	defer span.End()
	span.SetAttributes(
		attribute.String("tenant_id", event.TenantID.String()),
		attribute.String("event_type", event.EventType),
	)

	rules, err := e.loadRules(ctx, event)
	if err != nil {
		e.logger.ErrorContext(ctx, "rule load failed, failing closed",
			"tenant_id", event.TenantID,
			"event_type", event.EventType,
			"error", err,
		)
		e.emitAudit(ctx, event, audit.ActionEvaluationFailed, "blocked", "configuration unavailable")
		return e.failClosed(event), nil
	}

	findings, configFailure := e.evaluateRules(ctx, event, rules)
	if configFailure {
		e.emitAudit(ctx, event, audit.ActionEvaluationFailed, "blocked", "override lookup unavailable")
		return e.failClosed(event), nil
	}

	result := buildResult(findings)

	// Decision is final from here; persistence cannot change it.
	e.persistFindings(ctx, findings)

	if e.metrics != nil {
		e.metrics.ObserveEvaluation(result.CanProceed, e.now().Sub(start))
		for _, f := range findings {
			e.metrics.Findings.WithLabelValues(string(f.Severity)).Inc()
			if f.Simulated {
				e.metrics.SimulatedFindings.Inc()
			}
		}
	}

	decision := "proceed"
	if !result.CanProceed {
		decision = "blocked"
		e.emitAudit(ctx, event, audit.ActionActionBlocked, decision, result.BlockingFindings[0].Message)
	}
	e.emitAudit(ctx, event, audit.ActionEvaluationCompleted, decision, "")

	return result, nil
}

func (e *Engine) loadRules(ctx context.Context, event models.GuardianEvent) ([]models.PolicyRule, error) {
	lookupCtx, cancel := context.WithTimeout(ctx, e.lookupTimeout)
	defer cancel()
	return e.rules.ListActive(lookupCtx, event.TenantID, event.EventType)
}

// evaluateRules runs every rule concurrently. One rule's failure is
// contained to that rule; an override lookup failure flips configFailure
// because blocking semantics cannot be computed without override state.
func (e *Engine) evaluateRules(ctx context.Context, event models.GuardianEvent, rules []models.PolicyRule) (findings []models.Finding, configFailure bool) {
	var (
		mu         sync.Mutex
		configErrs int
	)
	g, gctx := errgroup.WithContext(ctx)

	for _, rule := range rules {
		g.Go(func() error {
			finding, configErr := e.evaluateRule(gctx, event, rule)
			if finding == nil && !configErr {
				return nil
			}
			mu.Lock()
			defer mu.Unlock()
			if configErr {
				configErrs++
				return nil
			}
			findings = append(findings, *finding)
			return nil
		})
	}
	_ = g.Wait() // per-rule errors never propagate

	return findings, configErrs > 0
}

// evaluateRule runs one rule's evaluator and, on violation, resolves the
// override and builds the finding. A panicking or unregistered evaluator
// makes this rule non-violating for this event only.
func (e *Engine) evaluateRule(ctx context.Context, event models.GuardianEvent, rule models.PolicyRule) (finding *models.Finding, configFailure bool) {
	defer func() {
		if rec := recover(); rec != nil {
			e.logger.ErrorContext(ctx, "evaluator panicked, treating rule as non-violating",
				"rule_id", rule.ID,
				"condition", rule.TriggerCondition,
				"panic", rec,
			)
			finding = nil
			configFailure = false
		}
	}()

	message, violated, err := e.evaluators.Evaluate(rule.TriggerCondition, event.Context)
	if err != nil {
		e.logger.WarnContext(ctx, "evaluator failed, treating rule as non-violating",
			"rule_id", rule.ID,
			"condition", rule.TriggerCondition,
			"error", err,
		)
		return nil, false
	}
	if !violated {
		return nil, false
	}

	lookupCtx, cancel := context.WithTimeout(ctx, e.lookupTimeout)
	defer cancel()
	overridden, err := e.overrides.IsOverridden(lookupCtx, event.TenantID, event.SubjectID, rule.ID)
	if err != nil {
		e.logger.ErrorContext(ctx, "override lookup failed",
			"rule_id", rule.ID,
			"subject_id", event.SubjectID,
			"error", err,
		)
		return nil, true
	}

	f := e.buildFinding(event, rule, message, overridden)
	return &f, false
}

func (e *Engine) buildFinding(event models.GuardianEvent, rule models.PolicyRule, message string, overridden bool) models.Finding {
	simulated := rule.RolloutMode == models.RolloutSimulate
	blocking := !simulated &&
		rule.Mode == models.ModeEnforce &&
		rule.Severity == models.SeverityCritical &&
		rule.BlockActions &&
		!overridden

	status := models.FindingOpen
	if overridden {
		status = models.FindingOverridden
	}

	return models.Finding{
		ID:          id.NewFindingID(),
		TenantID:    event.TenantID,
		RuleID:      rule.ID,
		EventType:   event.EventType,
		SubjectType: event.SubjectType,
		SubjectID:   event.SubjectID,
		Severity:    rule.Severity,
		Message:     message,
		Remediation: rule.Remediation,
		Status:      status,
		Blocking:    blocking,
		Simulated:   simulated,
		CreatedAt:   e.now(),
	}
}

// persistFindings writes each finding concurrently with bounded backoff
// and waits for all writes to settle. Exhausted retries are logged as a
// data-loss risk; the already-computed decision stands regardless.
func (e *Engine) persistFindings(ctx context.Context, findings []models.Finding) {
	if len(findings) == 0 {
		return
	}
	var wg sync.WaitGroup
	for _, finding := range findings {
		wg.Add(1)
		go func() {
			defer wg.Done()

			policy := backoff.WithContext(
				backoff.WithMaxRetries(backoff.NewExponentialBackOff(), e.maxRetries), ctx)
			err := backoff.Retry(func() error {
				return e.findings.Append(ctx, finding)
			}, policy)
			if err != nil {
				if e.metrics != nil {
					e.metrics.FindingWriteFailures.Inc()
				}
				e.logger.ErrorContext(ctx, "finding write failed after retries, audit record lost",
					"finding_id", finding.ID,
					"rule_id", finding.RuleID,
					"error", err,
				)
				return
			}
			e.emitFindingAudit(ctx, finding)
		}()
	}
	wg.Wait()
}

// failClosed is the ConfigurationError path: the caller sees one critical
// blocking finding and must abort the guarded action.
func (e *Engine) failClosed(event models.GuardianEvent) *models.EvaluationResult {
	finding := models.Finding{
		ID:          id.NewFindingID(),
		TenantID:    event.TenantID,
		EventType:   event.EventType,
		SubjectType: event.SubjectType,
		SubjectID:   event.SubjectID,
		Severity:    models.SeverityCritical,
		Message:     "Compliance configuration could not be loaded; the action was blocked as a precaution.",
		Remediation: "Retry shortly. If the problem persists, contact your administrator.",
		Status:      models.FindingOpen,
		Blocking:    true,
		CreatedAt:   e.now(),
	}
	return &models.EvaluationResult{
		Findings:         []models.Finding{finding},
		CanProceed:       false,
		BlockingFindings: []models.Finding{finding},
	}
}

func buildResult(findings []models.Finding) *models.EvaluationResult {
	result := &models.EvaluationResult{
		Findings: findings,
	}
	for _, f := range findings {
		if f.Blocking {
			result.BlockingFindings = append(result.BlockingFindings, f)
		}
	}
	result.CanProceed = len(result.BlockingFindings) == 0
	return result
}

func (e *Engine) emitAudit(ctx context.Context, event models.GuardianEvent, action audit.Action, decision, reason string) {
	if e.auditor == nil {
		return
	}
	severity := audit.SeverityInfo
	if decision == "blocked" {
		severity = audit.SeverityCritical
	}
	_ = e.auditor.Emit(ctx, audit.Event{
		TenantID: event.TenantID.String(),
		Subject:  event.SubjectID,
		Action:   action,
		Decision: decision,
		Reason:   reason,
		Severity: severity,
	})
}

func (e *Engine) emitFindingAudit(ctx context.Context, finding models.Finding) {
	if e.auditor == nil {
		return
	}
	severity := audit.SeverityInfo
	if finding.Severity == models.SeverityCritical {
		severity = audit.SeverityWarning
	}
	_ = e.auditor.Emit(ctx, audit.Event{
		TenantID: finding.TenantID.String(),
		Subject:  finding.SubjectID,
		Action:   audit.ActionFindingRecorded,
		Reason:   finding.Message,
		Severity: severity,
	})
}
