// ABOUTME: Tests for the event-stream codec.
// ABOUTME: Covers round-trip encoding, malformed-frame handling, and chunked reads.

package sse

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncode_Frame(t *testing.T) {
	frame, err := Encode(Event{"type": TypeRunStarted, "threadId": "t1", "runId": "r1"})
	require.NoError(t, err)

	text := string(frame)
	assert.True(t, strings.HasPrefix(text, "data: "))
	assert.True(t, strings.HasSuffix(text, "\n\n"))
	assert.Contains(t, text, `"type":"RUN_STARTED"`)
}

func TestCodec_RoundTrip(t *testing.T) {
	original := []Event{
		{"type": TypeRunStarted, "threadId": "t1", "runId": "r1"},
		{"type": TypeTextMessageStart, "messageId": "m1", "role": "assistant"},
		{"type": TypeTextMessageContent, "messageId": "m1", "delta": "Hi "},
		{"type": TypeTextMessageContent, "messageId": "m1", "delta": "there!"},
		{"type": TypeTextMessageEnd, "messageId": "m1"},
		{"type": TypeRunFinished, "threadId": "t1", "runId": "r1"},
	}

	var body strings.Builder
	for _, event := range original {
		frame, err := Encode(event)
		require.NoError(t, err)
		body.Write(frame)
	}

	decoded := DecodeString(body.String())
	require.Len(t, decoded, len(original))
	for i, event := range original {
		assert.Equal(t, event, decoded[i])
	}
}

func TestDecode_MalformedFramesAreDropped(t *testing.T) {
	events := DecodeString("not-prefixed\n\ndata: {invalid-json\n\n")
	assert.Empty(t, events)
}

func TestDecode_TrailingFrameWithoutTerminator(t *testing.T) {
	events := DecodeString(`data: {"type":"RUN_FINISHED","threadId":"t1","runId":"r1"}`)
	require.Len(t, events, 1)
	assert.Equal(t, TypeRunFinished, events[0].Type())
	assert.Equal(t, "t1", events[0].ThreadID())
}

func TestDecode_TrailingGarbageIsIgnored(t *testing.T) {
	body := "data: {\"type\":\"RUN_STARTED\"}\n\nnot-sse-data"
	events := DecodeString(body)
	require.Len(t, events, 1)
	assert.Equal(t, TypeRunStarted, events[0].Type())
}

func TestDecode_MixedValidAndMalformed(t *testing.T) {
	body := "data: {\"type\":\"RUN_STARTED\",\"runId\":\"r1\"}\n\n" +
		"garbage line\n\n" +
		"data: {broken\n\n" +
		"data: {\"type\":\"RUN_FINISHED\",\"runId\":\"r1\"}\n\n"

	events := DecodeString(body)
	require.Len(t, events, 2)
	assert.Equal(t, TypeRunStarted, events[0].Type())
	assert.Equal(t, TypeRunFinished, events[1].Type())
}

func TestDecode_UnknownEventFieldsSurvive(t *testing.T) {
	body := "data: {\"type\":\"CUSTOM_EVENT\",\"payload\":\"opaque\"}\n\n"
	events := DecodeString(body)
	require.Len(t, events, 1)
	assert.Equal(t, "CUSTOM_EVENT", events[0].Type())
	assert.Equal(t, "opaque", events[0]["payload"])
}

// chunkedReader yields one byte per Read to force frame reassembly
// across read boundaries.
type chunkedReader struct {
	data []byte
	pos  int
}

func (r *chunkedReader) Read(p []byte) (int, error) {
	if r.pos >= len(r.data) {
		return 0, io.EOF
	}
	p[0] = r.data[r.pos]
	r.pos++
	return 1, nil
}

func TestDecoder_ReassemblesAcrossChunks(t *testing.T) {
	body := "data: {\"type\":\"TEXT_MESSAGE_CONTENT\",\"delta\":\"chunked\"}\n\n" +
		"data: {\"type\":\"RUN_FINISHED\"}\n\n"

	events, err := DecodeAll(&chunkedReader{data: []byte(body)})
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "chunked", events[0].Delta())
}

// failingReader returns some data then an error, simulating a stream
// that dies mid-read.
type failingReader struct {
	data []byte
	read bool
}

func (r *failingReader) Read(p []byte) (int, error) {
	if !r.read {
		r.read = true
		return copy(p, r.data), nil
	}
	return 0, errors.New("stream read failure")
}

func TestDecodeAll_SurfacesReadErrors(t *testing.T) {
	reader := &failingReader{data: []byte("data: {\"type\":\"RUN_STARTED\"}\n\n")}
	events, err := DecodeAll(reader)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stream read failure")
	// Events decoded before the failure are still returned.
	require.Len(t, events, 1)
	assert.Equal(t, TypeRunStarted, events[0].Type())
}

func TestEvent_Accessors(t *testing.T) {
	event := Event{
		"type":      TypeRunError,
		"threadId":  "t1",
		"runId":     "r1",
		"messageId": "m1",
		"delta":     "d",
	}
	assert.Equal(t, TypeRunError, event.Type())
	assert.Equal(t, "t1", event.ThreadID())
	assert.Equal(t, "r1", event.RunID())
	assert.Equal(t, "m1", event.MessageID())
	assert.Equal(t, "d", event.Delta())

	// Non-string and missing fields read as empty.
	odd := Event{"delta": 42}
	assert.Equal(t, "", odd.Delta())
	assert.Equal(t, "", odd.Type())
}
