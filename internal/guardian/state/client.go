// Package state fetches the current compliance-relevant state of a
// subject from the case-management product. The scheduler depends on this
// to re-check workflow conditions at fire time instead of trusting the
// snapshot captured when the job was scheduled.
package state

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	id "caseguard/pkg/domain"
	dErrors "caseguard/pkg/domain-errors"
	"caseguard/pkg/platform/circuit"
)

// Client fetches subject state over HTTP from the product's internal API.
// A circuit breaker guards the call: when the provider is down, due jobs
// stay pending without hammering it on every sweep.
type Client struct {
	baseURL    string
	httpClient *http.Client
	breaker    *circuit.Breaker
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
		breaker: circuit.New("state-provider", circuit.WithFailureThreshold(5), circuit.WithSuccessThreshold(2)),
	}
}

// CurrentState returns the subject's live state document. The response is
// the same shape as an event context, so workflow conditions evaluate
// against it directly.
func (c *Client) CurrentState(ctx context.Context, tenantID id.TenantID, subjectType, subjectID string) (map[string]any, error) {
	if c.breaker.IsOpen() {
		return nil, dErrors.New(dErrors.CodeUnavailable, "state provider circuit open")
	}

	endpoint := fmt.Sprintf("%s/internal/v1/tenants/%s/subjects/%s/%s/state",
		c.baseURL,
		url.PathEscape(tenantID.String()),
		url.PathEscape(subjectType),
		url.PathEscape(subjectID),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build state request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.breaker.RecordFailure()
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "state provider unreachable")
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		c.breaker.RecordSuccess()
	case http.StatusNotFound:
		// The subject is gone, not the provider.
		c.breaker.RecordSuccess()
		return nil, dErrors.New(dErrors.CodeNotFound, fmt.Sprintf("subject %s/%s not found", subjectType, subjectID))
	default:
		c.breaker.RecordFailure()
		return nil, dErrors.New(dErrors.CodeUnavailable, fmt.Sprintf("state provider returned status %d", resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read state response: %w", err)
	}
	var current map[string]any
	if err := json.Unmarshal(body, &current); err != nil {
		return nil, fmt.Errorf("decode state response: %w", err)
	}
	return current, nil
}

// Static serves a fixed state per subject. Used in tests and dev seeding.
type Static struct {
	States map[string]map[string]any
}

func (s *Static) CurrentState(_ context.Context, _ id.TenantID, _, subjectID string) (map[string]any, error) {
	current, ok := s.States[subjectID]
	if !ok {
		return nil, dErrors.New(dErrors.CodeNotFound, fmt.Sprintf("no state for subject %s", subjectID))
	}
	return current, nil
}
