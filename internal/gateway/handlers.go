// ABOUTME: Read-mostly inbox API handlers: agents, threads, messages.
// ABOUTME: Thin JSON wrappers over the store, plus on-demand health probes.

package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/agentinbox/inbox-gateway/internal/store"
)

func (g *Gateway) handleListAgents(w http.ResponseWriter, r *http.Request) {
	agentList, err := g.store.ListAgents(r.Context())
	if err != nil {
		g.logger.Error("failed to list agents", "error", err)
		g.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	g.writeJSON(w, http.StatusOK, map[string]any{"agents": agentInfos(agentList)})
}

// handleAgentHealth probes the agent endpoint right now rather than
// reporting the stored status, so the caller gets a live answer.
func (g *Gateway) handleAgentHealth(w http.ResponseWriter, r *http.Request) {
	agentID := chi.URLParam(r, "id")

	agent, err := g.checker.Check(r.Context(), agentID)
	if errors.Is(err, store.ErrNotFound) {
		g.sendJSONError(w, http.StatusNotFound, fmt.Sprintf("Agent not found: %s", agentID))
		return
	}
	if err != nil {
		g.logger.Error("health check failed", "agent_id", agentID, "error", err)
		g.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	g.writeJSON(w, http.StatusOK, AgentHealth{
		ID:         agent.ID,
		Status:     agent.Status,
		LastSeenAt: agent.LastSeenAt,
	})
}

func (g *Gateway) handleListThreads(w http.ResponseWriter, r *http.Request) {
	agentID := r.URL.Query().Get("agent")

	threads, err := g.store.ListThreads(r.Context(), agentID)
	if err != nil {
		g.logger.Error("failed to list threads", "error", err)
		g.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	g.writeJSON(w, http.StatusOK, map[string]any{"threads": threadInfos(threads)})
}

type createThreadRequest struct {
	AgentID string `json:"agentId"`
	Title   string `json:"title"`
}

func (g *Gateway) handleCreateThread(w http.ResponseWriter, r *http.Request) {
	var req createThreadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		g.sendJSONError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if req.AgentID == "" {
		g.sendJSONError(w, http.StatusBadRequest, "Missing required fields: agentId")
		return
	}

	if _, err := g.store.GetAgent(r.Context(), req.AgentID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			g.sendJSONError(w, http.StatusNotFound, fmt.Sprintf("Agent not found: %s", req.AgentID))
			return
		}
		g.logger.Error("agent lookup failed", "error", err)
		g.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	thread := &store.Thread{
		ID:      uuid.NewString(),
		AgentID: req.AgentID,
		Title:   req.Title,
	}
	if err := g.store.CreateThread(r.Context(), thread); err != nil {
		g.logger.Error("failed to create thread", "error", err)
		g.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	created, err := g.store.GetThread(r.Context(), thread.ID)
	if err != nil {
		g.logger.Error("failed to read back thread", "error", err)
		g.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	g.writeJSON(w, http.StatusCreated, threadViewInfo(created))
}

func (g *Gateway) handleGetThread(w http.ResponseWriter, r *http.Request) {
	threadID := chi.URLParam(r, "id")

	thread, err := g.store.GetThread(r.Context(), threadID)
	if errors.Is(err, store.ErrNotFound) {
		g.sendJSONError(w, http.StatusNotFound, fmt.Sprintf("Thread not found: %s", threadID))
		return
	}
	if err != nil {
		g.logger.Error("failed to get thread", "error", err)
		g.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	g.writeJSON(w, http.StatusOK, threadViewInfo(thread))
}

func (g *Gateway) handleListMessages(w http.ResponseWriter, r *http.Request) {
	threadID := chi.URLParam(r, "id")

	// An unknown thread is a 404, not an empty list.
	if _, err := g.store.GetThread(r.Context(), threadID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			g.sendJSONError(w, http.StatusNotFound, fmt.Sprintf("Thread not found: %s", threadID))
			return
		}
		g.logger.Error("failed to get thread", "error", err)
		g.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	messages, err := g.store.ListMessages(r.Context(), threadID)
	if err != nil {
		g.logger.Error("failed to list messages", "error", err)
		g.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	g.writeJSON(w, http.StatusOK, map[string]any{"messages": messageInfos(messages)})
}
