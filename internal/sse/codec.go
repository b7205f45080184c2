// ABOUTME: Encoder/decoder for the "data: "+JSON blank-line-delimited stream framing.
// ABOUTME: Decoding drops malformed frames instead of failing the whole stream.

package sse

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// Marker prefixes the payload line of every frame.
const Marker = "data: "

// Encode renders an event as a single wire frame: marker, JSON payload,
// blank-line terminator.
func Encode(event Event) ([]byte, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("encoding event: %w", err)
	}
	var buf bytes.Buffer
	buf.Grow(len(Marker) + len(payload) + 2)
	buf.WriteString(Marker)
	buf.Write(payload)
	buf.WriteString("\n\n")
	return buf.Bytes(), nil
}

// Decoder reads frames from a stream, reassembling them across read
// chunk boundaries. It is finite and non-restartable: once Next returns
// io.EOF the stream is exhausted.
type Decoder struct {
	scanner *bufio.Scanner
	lines   []string
	done    bool
}

// NewDecoder returns a Decoder reading frames from r.
func NewDecoder(r io.Reader) *Decoder {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	return &Decoder{scanner: scanner}
}

// Next returns the next well-formed event. Frames without the marker
// prefix or with unparseable JSON are skipped silently. Returns io.EOF
// when the stream is exhausted, or the underlying read error if the
// stream fails mid-read.
func (d *Decoder) Next() (Event, error) {
	for !d.done {
		if !d.scanner.Scan() {
			d.done = true
			if err := d.scanner.Err(); err != nil {
				return nil, err
			}
			// A trailing frame with no terminating blank line still counts.
			if event, ok := parseFrame(d.lines); ok {
				d.lines = nil
				return event, nil
			}
			break
		}

		line := d.scanner.Text()
		if line != "" {
			d.lines = append(d.lines, line)
			continue
		}

		event, ok := parseFrame(d.lines)
		d.lines = d.lines[:0]
		if ok {
			return event, nil
		}
	}
	return nil, io.EOF
}

// parseFrame decodes one frame's accumulated lines. The payload is the
// frame's first line and must carry the marker prefix.
func parseFrame(lines []string) (Event, bool) {
	if len(lines) == 0 {
		return nil, false
	}
	payload, ok := strings.CutPrefix(lines[0], Marker)
	if !ok {
		return nil, false
	}
	var event Event
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		return nil, false
	}
	return event, true
}

// DecodeAll drains the stream into an ordered event slice. Events
// decoded before a mid-stream read failure are returned alongside the
// error.
func DecodeAll(r io.Reader) ([]Event, error) {
	decoder := NewDecoder(r)
	var events []Event
	for {
		event, err := decoder.Next()
		if err == io.EOF {
			return events, nil
		}
		if err != nil {
			return events, err
		}
		events = append(events, event)
	}
}

// DecodeString decodes a fully buffered stream body.
func DecodeString(body string) []Event {
	events, _ := DecodeAll(strings.NewReader(body))
	return events
}
