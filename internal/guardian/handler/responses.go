package handler

import (
	"time"

	"caseguard/internal/guardian/models"
	"caseguard/internal/guardian/service"
)

// EvaluateResponse is the HTTP response for the evaluate endpoint.
type EvaluateResponse struct {
	CanProceed       bool              `json:"can_proceed"`
	Findings         []FindingResponse `json:"findings"`
	BlockingFindings []FindingResponse `json:"blocking_findings"`
}

// FindingResponse is one finding in API form.
type FindingResponse struct {
	ID          string    `json:"id"`
	RuleID      string    `json:"rule_id,omitempty"`
	EventType   string    `json:"event_type"`
	SubjectType string    `json:"subject_type"`
	SubjectID   string    `json:"subject_id"`
	Severity    string    `json:"severity"`
	Message     string    `json:"message"`
	Remediation string    `json:"remediation,omitempty"`
	Status      string    `json:"status"`
	Blocking    bool      `json:"blocking"`
	Simulated   bool      `json:"simulated"`
	CreatedAt   time.Time `json:"created_at"`
}

// TriggerResponse is the HTTP response for the trigger endpoint.
type TriggerResponse struct {
	Matched   int                    `json:"matched"`
	Scheduled []ScheduledJobResponse `json:"scheduled"`
	Executed  int                    `json:"executed"`
}

// ScheduledJobResponse is one persisted job in API form.
type ScheduledJobResponse struct {
	ID         string    `json:"id"`
	WorkflowID string    `json:"workflow_id"`
	ExecuteAt  time.Time `json:"execute_at"`
	Status     string    `json:"status"`
}

// FindingsResponse is the HTTP response for the findings listing.
type FindingsResponse struct {
	Findings []FindingResponse `json:"findings"`
}

func fromFinding(f models.Finding) FindingResponse {
	resp := FindingResponse{
		ID:          f.ID.String(),
		EventType:   f.EventType,
		SubjectType: f.SubjectType,
		SubjectID:   f.SubjectID,
		Severity:    string(f.Severity),
		Message:     f.Message,
		Remediation: f.Remediation,
		Status:      string(f.Status),
		Blocking:    f.Blocking,
		Simulated:   f.Simulated,
		CreatedAt:   f.CreatedAt,
	}
	if !f.RuleID.IsNil() {
		resp.RuleID = f.RuleID.String()
	}
	return resp
}

func fromFindings(findings []models.Finding) []FindingResponse {
	out := make([]FindingResponse, 0, len(findings))
	for _, f := range findings {
		out = append(out, fromFinding(f))
	}
	return out
}

// FromEvaluation converts a domain evaluation result to an HTTP response.
func FromEvaluation(result *models.EvaluationResult) *EvaluateResponse {
	return &EvaluateResponse{
		CanProceed:       result.CanProceed,
		Findings:         fromFindings(result.Findings),
		BlockingFindings: fromFindings(result.BlockingFindings),
	}
}

// FromTrigger converts a domain trigger result to an HTTP response.
func FromTrigger(result *service.TriggerResult) *TriggerResponse {
	resp := &TriggerResponse{
		Matched:   result.Matched,
		Scheduled: make([]ScheduledJobResponse, 0, len(result.Scheduled)),
		Executed:  len(result.Executed),
	}
	for _, job := range result.Scheduled {
		resp.Scheduled = append(resp.Scheduled, ScheduledJobResponse{
			ID:         job.ID.String(),
			WorkflowID: job.WorkflowID.String(),
			ExecuteAt:  job.ExecuteAt,
			Status:     string(job.Status),
		})
	}
	return resp
}
