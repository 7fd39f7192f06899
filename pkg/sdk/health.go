package styletelling

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Health checks the health of all server components.
// A degraded server answers 503 with a report; that report is returned
// without error so callers can inspect Checks.
func (c *Client) Health(ctx context.Context) (hs HealthStatus, err error) {
	start := time.Now()
	defer func() { c.obs.observe("health", start, err) }()

	req, err := c.newRequest(ctx, http.MethodGet, "/health", nil, nil)
	if err != nil {
		return HealthStatus{}, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return HealthStatus{}, fmt.Errorf("GET /health: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusServiceUnavailable {
		return HealthStatus{}, decodeError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(&hs); err != nil {
		return HealthStatus{}, fmt.Errorf("decode health response: %w", err)
	}
	return hs, nil
}
