// ABOUTME: Agent liveness probing via HEAD requests against the agent endpoint.
// ABOUTME: Persists online/offline transitions and last_seen_at sightings.

package agents

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/agentinbox/inbox-gateway/internal/store"
)

// Checker probes agent endpoints and records the observed status.
type Checker struct {
	store   store.Store
	client  *http.Client
	timeout time.Duration
	logger  *slog.Logger
}

// NewChecker creates a Checker with the given probe timeout.
func NewChecker(s store.Store, timeout time.Duration) *Checker {
	return &Checker{
		store:   s,
		client:  &http.Client{},
		timeout: timeout,
		logger:  slog.Default().With("component", "health"),
	}
}

// Check probes one agent with a HEAD request and persists the result.
// last_seen_at is only advanced on a successful probe, so a failing
// agent keeps its last known sighting. Returns the updated agent.
func (c *Checker) Check(ctx context.Context, agentID string) (*store.Agent, error) {
	agent, err := c.store.GetAgent(ctx, agentID)
	if err != nil {
		return nil, err
	}

	status := store.AgentStatusOffline
	var seenAt *time.Time

	probeCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(probeCtx, http.MethodHead, agent.Endpoint, nil)
	if err == nil {
		resp, probeErr := c.client.Do(req)
		if probeErr == nil {
			resp.Body.Close()
			if resp.StatusCode >= 200 && resp.StatusCode < 300 {
				status = store.AgentStatusOnline
				now := time.Now()
				seenAt = &now
			}
		} else {
			c.logger.Debug("health probe failed", "agent_id", agentID, "error", probeErr)
		}
	}

	if err := c.store.SetAgentStatus(ctx, agentID, status, seenAt); err != nil {
		return nil, err
	}

	agent.Status = status
	if seenAt != nil {
		agent.LastSeenAt = seenAt
	}
	return agent, nil
}
