// ABOUTME: Event record type for the agent event-stream protocol.
// ABOUTME: Defines the event vocabulary and typed accessors over the raw JSON object.

package sse

// Event types emitted by agents and by the gateway itself.
const (
	TypeRunStarted         = "RUN_STARTED"
	TypeRunFinished        = "RUN_FINISHED"
	TypeRunError           = "RUN_ERROR"
	TypeTextMessageStart   = "TEXT_MESSAGE_START"
	TypeTextMessageContent = "TEXT_MESSAGE_CONTENT"
	TypeTextMessageEnd     = "TEXT_MESSAGE_END"
	TypeUserMessageCreated = "USER_MESSAGE_CREATED"
)

// Event is one decoded frame: a JSON object with a "type" discriminator
// plus arbitrary additional fields. Unknown fields survive a
// decode/encode round trip untouched, which is what lets the gateway
// forward event types it does not understand.
type Event map[string]any

func (e Event) str(key string) string {
	if v, ok := e[key].(string); ok {
		return v
	}
	return ""
}

// Type returns the event's type discriminator, or "" if absent.
func (e Event) Type() string { return e.str("type") }

// ThreadID returns the event's threadId field, or "" if absent.
func (e Event) ThreadID() string { return e.str("threadId") }

// RunID returns the event's runId field, or "" if absent.
func (e Event) RunID() string { return e.str("runId") }

// MessageID returns the event's messageId field, or "" if absent.
func (e Event) MessageID() string { return e.str("messageId") }

// Delta returns the event's delta field, treated as empty when absent.
func (e Event) Delta() string { return e.str("delta") }
