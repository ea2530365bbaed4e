package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"caseguard/internal/guardian/actions"
	"caseguard/internal/guardian/engine"
	"caseguard/internal/guardian/evaluators"
	guardianhandler "caseguard/internal/guardian/handler"
	"caseguard/internal/guardian/metrics"
	"caseguard/internal/guardian/override"
	"caseguard/internal/guardian/ports"
	"caseguard/internal/guardian/scheduler"
	"caseguard/internal/guardian/service"
	"caseguard/internal/guardian/state"
	findingstore "caseguard/internal/guardian/store/findings"
	jobstore "caseguard/internal/guardian/store/jobs"
	overridestore "caseguard/internal/guardian/store/overrides"
	rulestore "caseguard/internal/guardian/store/rules"
	workflowstore "caseguard/internal/guardian/store/workflows"
	"caseguard/internal/guardian/workflow"
	"caseguard/internal/platform/config"
	"caseguard/internal/platform/httpserver"
	"caseguard/internal/platform/kafka"
	"caseguard/internal/platform/logger"
	"caseguard/internal/platform/postgres"
	platformredis "caseguard/internal/platform/redis"
	httptransport "caseguard/internal/transport/http"
	"caseguard/pkg/platform/audit"
	auditmemory "caseguard/pkg/platform/audit/store/memory"
	auditpostgres "caseguard/pkg/platform/audit/store/postgres"
	auditworker "caseguard/pkg/platform/audit/worker"
)

// main wires dependencies and owns the process lifecycle. Business logic
// lives in the internal guardian packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	checks := map[string]httptransport.HealthCheck{}

	// Storage: Postgres when configured, in-memory otherwise.
	var (
		db         *sql.DB
		rules      ports.RuleStore
		workflows  ports.WorkflowStore
		overrides  ports.OverrideStore
		findings   ports.FindingStore
		jobs       ports.JobStore
		auditStore audit.Store
	)
	if cfg.DatabaseURL != "" {
		var err error
		db, err = postgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Error("postgres connection failed", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		checks["postgres"] = db.PingContext

		pgRules := rulestore.NewPostgresStore(db)
		rules = pgRules
		workflows = workflowstore.NewPostgresStore(db, log)
		overrides = overridestore.NewPostgresStore(db)
		findings = findingstore.NewPostgresStore(db)
		jobs = jobstore.NewPostgresStore(db)
		auditStore = auditpostgres.New(db)

		// Optional read-through rule cache.
		redisClient, err := platformredis.New(ctx, cfg.RedisURL)
		if err != nil {
			log.Error("redis connection failed", "error", err)
			os.Exit(1)
		}
		if redisClient != nil {
			defer redisClient.Close()
			checks["redis"] = redisClient.Health
			rules = rulestore.NewCachedStore(pgRules, redisClient.Client, cfg.RuleCacheTTL, log)
		}
	} else {
		log.Warn("no DATABASE_URL set, using in-memory stores")
		memRules := rulestore.NewInMemoryStore()
		memWorkflows := workflowstore.NewInMemoryStore()
		rules = memRules
		workflows = memWorkflows
		overrides = overridestore.NewInMemoryStore()
		findings = findingstore.NewInMemoryStore()
		jobs = jobstore.NewInMemoryStore()
		auditStore = auditmemory.NewInMemoryStore()

		if cfg.SeedFile != "" {
			if err := rulestore.SeedFromFile(ctx, cfg.SeedFile, memRules, memWorkflows); err != nil {
				log.Error("seed load failed", "file", cfg.SeedFile, "error", err)
				os.Exit(1)
			}
			log.Info("seed fixtures loaded", "file", cfg.SeedFile)
		}
	}

	// Audit pipeline: non-blocking publisher, worker draining to the
	// store, optional Kafka mirror for the SIEM.
	auditor := audit.NewPublisher(1024, log)
	var mirror auditworker.Mirror
	if len(cfg.KafkaBrokers) > 0 {
		producer, err := kafka.NewPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, log)
		if err != nil {
			log.Error("kafka connection failed", "error", err)
			os.Exit(1)
		}
		defer producer.Close()
		mirror = producer
	}
	worker := auditworker.New(auditStore, auditor.Events(), mirror, log)
	go func() {
		if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("audit worker stopped", "error", err)
		}
	}()

	m := metrics.New()

	// Evaluation path.
	registry := evaluators.NewRegistry()
	resolver := override.NewResolver(overrides, log)
	eng := engine.New(rules, findings, resolver, registry,
		engine.WithLogger(log),
		engine.WithMetrics(m),
		engine.WithAuditPublisher(auditor),
		engine.WithLookupTimeout(cfg.LookupTimeout),
	)

	// Workflow path: executor with log-only collaborators until the
	// product wires real ones, plus the durable scheduler.
	executor := actions.NewExecutor(log)
	if err := actions.RegisterBuiltins(executor, actions.LogCollaborators(log)); err != nil {
		log.Error("action registration failed", "error", err)
		os.Exit(1)
	}

	var stateProvider ports.StateProvider
	if cfg.StateURL != "" {
		stateProvider = state.NewClient(cfg.StateURL)
	}
	sched := scheduler.New(jobs, workflows, stateProvider, executor,
		scheduler.WithLogger(log),
		scheduler.WithMetrics(m),
		scheduler.WithAuditPublisher(auditor),
		scheduler.WithLookupTimeout(cfg.LookupTimeout),
		scheduler.WithSweepInterval(cfg.SweepInterval),
	)
	if err := sched.Start(ctx); err != nil {
		log.Error("scheduler start failed", "error", err)
		os.Exit(1)
	}
	defer sched.Stop()

	wfEngine := workflow.New(workflows,
		workflow.WithLogger(log),
		workflow.WithMetrics(m),
		workflow.WithAuditPublisher(auditor),
		workflow.WithLookupTimeout(cfg.LookupTimeout),
	)

	svc := service.New(eng, wfEngine, sched, executor, findings,
		service.WithLogger(log),
		service.WithAuditPublisher(auditor),
	)

	guardian := guardianhandler.New(svc, log)
	router := httptransport.NewRouter(guardian, log, checks)
	srv := httpserver.New(cfg.Addr, router)

	log.Info("starting caseguard", "addr", cfg.Addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
}
