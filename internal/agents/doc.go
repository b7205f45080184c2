// Package agents owns the static agent registry and agent liveness.
//
// Agents are declared in a TOML registry file:
//
//	[[agents]]
//	id = "calendar-agent"
//	name = "Calendar Agent"
//	endpoint = "http://localhost:8081/run"
//	icon = "calendar"
//	description = "Answers scheduling questions"
//
// Sync upserts the file's entries into the store at startup (or on
// demand via the sync-agents command); the gateway itself never writes
// registry-owned fields. Checker probes an agent's endpoint with a HEAD
// request and records online/offline plus last_seen_at.
package agents
