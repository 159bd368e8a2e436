// Package transport is the language-server dispatcher's external byte-stream
// collaborator (spec.md §6): something that can read and write whole framed
// messages. Stdio implements the Content-Length ("VS Code codec") framing a
// real language server speaks over stdin/stdout; Memory is an in-process,
// channel-backed implementation for tests.
package transport

import "context"

// Transport reads and writes whole framed messages. ReadMessage returns
// ok=false on a clean end of stream (no more messages, not an error).
type Transport interface {
	ReadMessage(ctx context.Context) (data []byte, ok bool, err error)
	WriteMessage(ctx context.Context, data []byte) error
}
