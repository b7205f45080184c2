// ABOUTME: The run controller: POST /api/gateway, one run end-to-end.
// ABOUTME: Validates, persists, calls the agent, folds its event stream, re-emits SSE.

package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/agentinbox/inbox-gateway/internal/config"
	"github.com/agentinbox/inbox-gateway/internal/sse"
	"github.com/agentinbox/inbox-gateway/internal/store"
)

// Error codes surfaced to the caller in RUN_ERROR events.
const (
	codeAgentUnreachable = "AGENT_UNREACHABLE"
	codeAgentTimeout     = "AGENT_TIMEOUT"
	codeAgentError       = "AGENT_ERROR"
	codeInternalError    = "INTERNAL_ERROR"
)

// runRequest is the JSON request body for POST /api/gateway.
type runRequest struct {
	ThreadID string `json:"threadId"`
	AgentID  string `json:"agentId"`
	Message  string `json:"message"`
}

// agentMessage is one history entry in the outbound agent call.
type agentMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// agentCallBody is the JSON body for the outbound agent call.
type agentCallBody struct {
	ThreadID string         `json:"threadId"`
	RunID    string         `json:"runId"`
	Messages []agentMessage `json:"messages"`
}

// handleRun executes one run:
//
//  1. Validate the request body (400 on bad JSON or missing fields, no side effects)
//  2. Resolve the agent (404 if unknown, no side effects)
//  3. Persist the user message, before the agent is ever called
//  4. Create the run record (status: pending)
//  5. Load the full message history to send to the agent
//  6. Call the agent under the merged timeout/disconnect signal
//  7. Fold the agent's event stream into run/message state
//  8. Touch the thread and re-emit the stream to the caller
//
// Every failure past step 2 is terminal for this run and surfaced as a
// single-event RUN_ERROR stream; nothing is retried.
func (g *Gateway) handleRun(w http.ResponseWriter, r *http.Request) {
	var req runRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		g.sendJSONError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if req.ThreadID == "" || req.AgentID == "" || req.Message == "" {
		g.sendJSONError(w, http.StatusBadRequest, "Missing required fields: threadId, agentId, message")
		return
	}

	// Store writes must survive a client disconnect: the run record and
	// messages are durable state, not part of the response.
	dbCtx := context.WithoutCancel(r.Context())

	agent, err := g.store.GetAgent(dbCtx, req.AgentID)
	if errors.Is(err, store.ErrNotFound) {
		g.sendJSONError(w, http.StatusNotFound, fmt.Sprintf("Agent not found: %s", req.AgentID))
		return
	}
	if err != nil {
		g.logger.Error("agent lookup failed", "error", err)
		g.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	userMessageID := uuid.NewString()
	if err := g.store.AppendMessage(dbCtx, &store.Message{
		ID:       userMessageID,
		ThreadID: req.ThreadID,
		Role:     store.RoleUser,
		Content:  req.Message,
	}); err != nil {
		g.logger.Error("failed to persist user message", "error", err)
		g.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	runID := uuid.NewString()
	if err := g.store.CreateRun(dbCtx, &store.Run{
		ID:       runID,
		ThreadID: req.ThreadID,
		AgentID:  req.AgentID,
	}); err != nil {
		g.logger.Error("failed to create run", "error", err)
		g.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	// History is loaded from the store, not assembled in memory, so what
	// the agent sees always reflects durable state, including the user
	// message just written.
	history, err := g.store.ListMessages(dbCtx, req.ThreadID)
	if err != nil {
		g.logger.Error("failed to load history", "error", err)
		g.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	timeout := config.AgentTimeout()
	canceller := newRunCanceller(r.Context(), timeout)
	defer canceller.Stop()

	resp, err := g.callAgent(canceller.Context(), agent, req.ThreadID, runID, history)
	if err != nil {
		g.finishFailedCall(dbCtx, w, canceller, req.ThreadID, runID, timeout, err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		message := fmt.Sprintf("Agent returned status %d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
		g.failRun(dbCtx, runID, message)
		g.writeEventStream(w, runID, []sse.Event{runErrorEvent(req.ThreadID, runID, codeAgentError, message)})
		return
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		message := fmt.Sprintf("Stream interrupted: %v", err)
		g.failRun(dbCtx, runID, message)
		g.writeEventStream(w, runID, []sse.Event{runErrorEvent(req.ThreadID, runID, codeInternalError, message)})
		return
	}
	if len(body) == 0 {
		message := "Empty response from agent"
		g.failRun(dbCtx, runID, message)
		g.writeEventStream(w, runID, []sse.Event{runErrorEvent(req.ThreadID, runID, codeAgentError, message)})
		return
	}

	events := sse.DecodeString(string(body))

	if err := g.applyEvents(dbCtx, req.ThreadID, runID, events); err != nil {
		message := fmt.Sprintf("Stream interrupted: %v", err)
		g.failRun(dbCtx, runID, message)
		g.writeEventStream(w, runID, []sse.Event{runErrorEvent(req.ThreadID, runID, codeInternalError, message)})
		return
	}

	if err := g.store.TouchThread(dbCtx, req.ThreadID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			g.logger.Warn("thread vanished during run", "thread_id", req.ThreadID)
		} else {
			g.logger.Error("failed to touch thread", "thread_id", req.ThreadID, "error", err)
		}
	}

	out := make([]sse.Event, 0, len(events)+1)
	out = append(out, sse.Event{
		"type":      sse.TypeUserMessageCreated,
		"threadId":  req.ThreadID,
		"messageId": userMessageID,
	})
	out = append(out, events...)
	g.writeEventStream(w, runID, out)
}

// callAgent POSTs the run request to the agent endpoint with the full
// ordered conversation history.
func (g *Gateway) callAgent(ctx context.Context, agent *store.Agent, threadID, runID string, history []*store.Message) (*http.Response, error) {
	payload := agentCallBody{
		ThreadID: threadID,
		RunID:    runID,
		Messages: make([]agentMessage, 0, len(history)),
	}
	for _, msg := range history {
		payload.Messages = append(payload.Messages, agentMessage{Role: msg.Role, Content: msg.Content})
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding agent request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, agent.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building agent request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Run-Id", runID)

	return g.client.Do(req)
}

// finishFailedCall classifies an agent-call failure by the canceller's
// reason and writes the terminal state plus a single-event error stream.
func (g *Gateway) finishFailedCall(ctx context.Context, w http.ResponseWriter, canceller *runCanceller, threadID, runID string, timeout time.Duration, callErr error) {
	now := time.Now()

	switch canceller.Reason() {
	case reasonClientGone:
		if err := g.store.UpdateRun(ctx, runID, store.RunUpdate{
			Status:     store.RunStatusCancelled,
			Error:      "Client disconnected",
			FinishedAt: &now,
		}); err != nil {
			g.logger.Error("failed to cancel run", "run_id", runID, "error", err)
		}
		// Best effort: the caller is already gone.
		g.writeEventStream(w, runID, []sse.Event{runErrorEvent(threadID, runID, codeAgentTimeout, "Client disconnected")})

	case reasonTimeout:
		message := fmt.Sprintf("Agent call timed out after %s", timeout)
		g.failRun(ctx, runID, message)
		g.writeEventStream(w, runID, []sse.Event{runErrorEvent(threadID, runID, codeAgentTimeout, message)})

	default:
		message := callErrorMessage(callErr)
		g.failRun(ctx, runID, message)
		g.writeEventStream(w, runID, []sse.Event{runErrorEvent(threadID, runID, codeAgentUnreachable, message)})
	}
}

// callErrorMessage extracts the underlying transport error, unwrapping
// the url.Error envelope the http client adds around it.
func callErrorMessage(err error) string {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		err = urlErr.Err
	}
	if err == nil || err.Error() == "" {
		return "Unknown error"
	}
	return err.Error()
}

// failRun marks a run failed with the given error text.
func (g *Gateway) failRun(ctx context.Context, runID, message string) {
	now := time.Now()
	if err := g.store.UpdateRun(ctx, runID, store.RunUpdate{
		Status:     store.RunStatusFailed,
		Error:      message,
		FinishedAt: &now,
	}); err != nil {
		g.logger.Error("failed to mark run failed", "run_id", runID, "error", err)
	}
}

// applyEvents folds the agent's event sequence into run and message
// state, in event order. Each store write lands before the event is
// re-emitted to the caller, so a client that sees RUN_FINISHED can rely
// on the store already reading completed.
func (g *Gateway) applyEvents(ctx context.Context, threadID, runID string, events []sse.Event) error {
	var content strings.Builder
	var messageID string
	var inTurn bool
	var terminal bool

	for _, event := range events {
		switch event.Type() {
		case sse.TypeRunStarted:
			// A RUN_STARTED after the run already finished would revert
			// a terminal status; run transitions only move forward.
			if terminal {
				continue
			}
			now := time.Now()
			if err := g.store.UpdateRun(ctx, runID, store.RunUpdate{
				Status:    store.RunStatusRunning,
				StartedAt: &now,
			}); err != nil {
				return err
			}

		case sse.TypeTextMessageStart:
			messageID = event.MessageID()
			content.Reset()
			inTurn = true

		case sse.TypeTextMessageContent:
			// A delta outside an open turn has nothing to accumulate
			// into and is dropped.
			if inTurn {
				content.WriteString(event.Delta())
			}

		case sse.TypeTextMessageEnd:
			// Content-free turns are not persisted.
			if inTurn && content.Len() > 0 {
				id := messageID
				if id == "" {
					id = uuid.NewString()
				}
				if err := g.store.AppendMessage(ctx, &store.Message{
					ID:       id,
					ThreadID: threadID,
					RunID:    runID,
					Role:     store.RoleAssistant,
					Content:  content.String(),
				}); err != nil {
					return err
				}
			}
			inTurn = false

		case sse.TypeRunFinished:
			if terminal {
				continue
			}
			now := time.Now()
			if err := g.store.UpdateRun(ctx, runID, store.RunUpdate{
				Status:     store.RunStatusCompleted,
				FinishedAt: &now,
			}); err != nil {
				return err
			}
			terminal = true
		}
		// Other event types are forwarded to the caller unmodified and
		// trigger no state change.
	}

	return nil
}

// runErrorEvent builds the RUN_ERROR event surfaced to the caller.
func runErrorEvent(threadID, runID, code, message string) sse.Event {
	return sse.Event{
		"type":     sse.TypeRunError,
		"threadId": threadID,
		"runId":    runID,
		"code":     code,
		"message":  message,
	}
}

// writeEventStream sends an event sequence as one SSE response. The
// response is always 200 with a well-formed stream, even when the only
// event is a RUN_ERROR.
func (g *Gateway) writeEventStream(w http.ResponseWriter, runID string, events []sse.Event) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.Header().Set("X-Run-Id", runID)
	w.WriteHeader(http.StatusOK)

	for _, event := range events {
		frame, err := sse.Encode(event)
		if err != nil {
			g.logger.Error("failed to encode event", "error", err)
			continue
		}
		if _, err := w.Write(frame); err != nil {
			return
		}
	}
	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}
}
