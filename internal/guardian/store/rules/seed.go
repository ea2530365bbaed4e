package rules

import (
	"context"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"caseguard/internal/guardian/models"
	workflowstore "caseguard/internal/guardian/store/workflows"
	id "caseguard/pkg/domain"
)

// Seed fixtures load tenant configuration from YAML into the memory
// stores for local development, where no admin tool writes Postgres.

type seedFile struct {
	Rules     []seedRule     `yaml:"rules"`
	Workflows []seedWorkflow `yaml:"workflows"`
}

type seedRule struct {
	ID               string `yaml:"id"`
	TenantID         string `yaml:"tenant_id"`
	TriggerEvent     string `yaml:"trigger_event"`
	TriggerCondition string `yaml:"trigger_condition"`
	Severity         string `yaml:"severity"`
	Mode             string `yaml:"mode"`
	RolloutMode      string `yaml:"rollout_mode"`
	BlockActions     bool   `yaml:"block_actions"`
	Status           string `yaml:"status"`
	Enabled          bool   `yaml:"enabled"`
	Remediation      string `yaml:"remediation"`
}

type seedWorkflow struct {
	ID        string           `yaml:"id"`
	TenantID  string           `yaml:"tenant_id"`
	Trigger   string           `yaml:"trigger"`
	Condition models.Condition `yaml:"condition"`
	Action    string           `yaml:"action"`
	SLAHours  float64          `yaml:"sla_hours"`
}

// SeedFromFile loads rule and workflow fixtures into the given memory stores.
func SeedFromFile(ctx context.Context, path string, ruleStore *InMemoryStore, wfStore *workflowstore.InMemoryStore) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read seed file: %w", err)
	}

	var file seedFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return fmt.Errorf("parse seed file: %w", err)
	}

	now := time.Now()
	for i, sr := range file.Rules {
		rule, err := sr.toModel(now)
		if err != nil {
			return fmt.Errorf("seed rule %d: %w", i, err)
		}
		if err := ruleStore.Put(ctx, rule); err != nil {
			return fmt.Errorf("seed rule %d: %w", i, err)
		}
	}
	for i, sw := range file.Workflows {
		wf, err := sw.toModel(now)
		if err != nil {
			return fmt.Errorf("seed workflow %d: %w", i, err)
		}
		if err := wf.Validate(); err != nil {
			return fmt.Errorf("seed workflow %d: %w", i, err)
		}
		if err := wfStore.Put(ctx, wf); err != nil {
			return fmt.Errorf("seed workflow %d: %w", i, err)
		}
	}
	return nil
}

func (sr seedRule) toModel(now time.Time) (models.PolicyRule, error) {
	tenantID, err := id.ParseTenantID(sr.TenantID)
	if err != nil {
		return models.PolicyRule{}, err
	}
	ruleID := id.NewRuleID()
	if sr.ID != "" {
		if ruleID, err = id.ParseRuleID(sr.ID); err != nil {
			return models.PolicyRule{}, err
		}
	}
	return models.PolicyRule{
		ID:               ruleID,
		TenantID:         tenantID,
		TriggerEvent:     sr.TriggerEvent,
		TriggerCondition: models.ConditionKind(sr.TriggerCondition),
		Severity:         models.Severity(sr.Severity),
		Mode:             models.Mode(sr.Mode),
		RolloutMode:      models.RolloutMode(sr.RolloutMode),
		BlockActions:     sr.BlockActions,
		Status:           models.RuleStatus(sr.Status),
		Enabled:          sr.Enabled,
		Remediation:      sr.Remediation,
		CreatedAt:        now,
		UpdatedAt:        now,
	}, nil
}

func (sw seedWorkflow) toModel(now time.Time) (models.ComplianceWorkflow, error) {
	tenantID, err := id.ParseTenantID(sw.TenantID)
	if err != nil {
		return models.ComplianceWorkflow{}, err
	}
	wfID := id.NewWorkflowID()
	if sw.ID != "" {
		if wfID, err = id.ParseWorkflowID(sw.ID); err != nil {
			return models.ComplianceWorkflow{}, err
		}
	}
	return models.ComplianceWorkflow{
		ID:        wfID,
		TenantID:  tenantID,
		Trigger:   sw.Trigger,
		Condition: sw.Condition,
		Action:    models.IntentType(sw.Action),
		SLAHours:  sw.SLAHours,
		CreatedAt: now,
	}, nil
}
