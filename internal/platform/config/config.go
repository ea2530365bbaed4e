package config

import (
	"os"
	"strings"
	"time"
)

// Config captures process-level configuration so main stays lean.
// Storage backends are optional: with no DATABASE_URL the service runs on
// in-memory stores, which is the mode unit tests and local dev use.
type Config struct {
	Addr string

	// DatabaseURL enables the Postgres stores when set.
	DatabaseURL string
	// RedisURL enables the rule read-through cache when set.
	RedisURL string
	// KafkaBrokers enables mirroring audit events to Kafka when set.
	KafkaBrokers []string
	KafkaTopic   string

	// StateURL points at the case-management collaborator that serves
	// current subject state for scheduler re-checks.
	StateURL string

	// SeedFile loads rule/workflow fixtures into the memory stores (dev only).
	SeedFile string

	// LookupTimeout bounds every single-round-trip config read
	// (rules, workflows, overrides, live state).
	LookupTimeout time.Duration
	// SweepInterval is how often the scheduler looks for due jobs.
	SweepInterval time.Duration
	// RuleCacheTTL bounds staleness of the optional rule cache.
	RuleCacheTTL time.Duration
}

// FromEnv builds a Config from environment variables.
func FromEnv() Config {
	cfg := Config{
		Addr:          getEnv("CASEGUARD_ADDR", ":8080"),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		RedisURL:      os.Getenv("REDIS_URL"),
		KafkaTopic:    getEnv("KAFKA_AUDIT_TOPIC", "caseguard.audit"),
		StateURL:      os.Getenv("CASEGUARD_STATE_URL"),
		SeedFile:      os.Getenv("CASEGUARD_SEED_FILE"),
		LookupTimeout: getDuration("CASEGUARD_LOOKUP_TIMEOUT", 2*time.Second),
		SweepInterval: getDuration("CASEGUARD_SWEEP_INTERVAL", 30*time.Second),
		RuleCacheTTL:  getDuration("CASEGUARD_RULE_CACHE_TTL", time.Minute),
	}
	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = strings.Split(brokers, ",")
	}
	return cfg
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
