// Package sse implements the line-delimited event-stream framing used
// between the gateway, its callers, and backend agents.
//
// A frame is a single line of the form
//
//	data: {"type":"RUN_STARTED",...}
//
// terminated by a blank line. The payload after the "data: " marker is a
// JSON object carrying at least a "type" discriminator. Decoding is
// defensive: segments without the marker and payloads that fail to parse
// as JSON are dropped rather than failing the stream, and a trailing
// frame with no terminating blank line is still parsed.
//
// The Decoder reassembles frames split across read chunks, so callers
// may feed it a buffered body or a live network stream.
package sse
