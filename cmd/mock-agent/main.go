// ABOUTME: Minimal mock agent for local development — answers runs with a streamed canned reply.
// ABOUTME: Usage: mock-agent [-addr localhost:9101] [-delay 20ms]

package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/agentinbox/inbox-gateway/internal/sse"
)

type runRequest struct {
	ThreadID string `json:"threadId"`
	RunID    string `json:"runId"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func main() {
	addr := flag.String("addr", "localhost:9101", "listen address")
	delay := flag.Duration("delay", 20*time.Millisecond, "delay between streamed words")
	flag.Parse()

	mux := http.NewServeMux()
	mux.HandleFunc("/", handleRun(*delay))

	fmt.Printf("mock-agent listening on %s\n", *addr)
	if err := http.ListenAndServe(*addr, mux); err != nil {
		log.Fatal(err)
	}
}

func handleRun(delay time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Health probes from the gateway are HEAD requests.
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusOK)
			return
		}
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var req runRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}

		runID := req.RunID
		if runID == "" {
			runID = r.Header.Get("X-Run-Id")
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")

		emit := func(event sse.Event) {
			frame, err := sse.Encode(event)
			if err != nil {
				return
			}
			w.Write(frame)
			if f, ok := w.(http.Flusher); ok {
				f.Flush()
			}
		}

		emit(sse.Event{"type": sse.TypeRunStarted, "threadId": req.ThreadID, "runId": runID})

		messageID := fmt.Sprintf("%s-reply", runID)
		emit(sse.Event{"type": sse.TypeTextMessageStart, "messageId": messageID})

		for _, word := range strings.Fields(reply(lastUserMessage(req))) {
			emit(sse.Event{"type": sse.TypeTextMessageContent, "messageId": messageID, "delta": word + " "})
			select {
			case <-r.Context().Done():
				return
			case <-time.After(delay):
			}
		}

		emit(sse.Event{"type": sse.TypeTextMessageEnd, "messageId": messageID})
		emit(sse.Event{"type": sse.TypeRunFinished, "threadId": req.ThreadID, "runId": runID})
	}
}

func lastUserMessage(req runRequest) string {
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role == "user" {
			return req.Messages[i].Content
		}
	}
	return ""
}

func reply(prompt string) string {
	lower := strings.ToLower(prompt)
	switch {
	case strings.Contains(lower, "hello"), strings.Contains(lower, "hi"):
		return "Hello! I am a mock agent. Ask me anything and I will stream back a canned answer."
	case strings.Contains(lower, "error"):
		return "I can simulate happy paths only. Point the gateway at a closed port to exercise failures."
	case prompt == "":
		return "I received an empty conversation, which is a first."
	default:
		return fmt.Sprintf("You said: %s. A real agent would do something clever with that.", prompt)
	}
}
