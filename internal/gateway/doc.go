// ABOUTME: Package doc for the gateway HTTP layer.
// ABOUTME: Describes the run lifecycle and the inbox API surface.

// Package gateway implements the HTTP surface of the inbox gateway.
//
// The central operation is POST /api/gateway, which executes one run:
// the user's message is persisted, a run record is created, the target
// agent is called with the full conversation history, and the agent's
// SSE event stream is folded into durable run and message state before
// being re-emitted to the caller. Around it sit read-mostly JSON APIs
// for agents, threads, messages, and a daily activity digest.
//
// A run always terminates in exactly one of the terminal statuses
// (completed, failed, cancelled), and every failure mode maps to a
// single RUN_ERROR event with a stable error code, so callers can
// treat the event stream as the authoritative account of the run.
package gateway
