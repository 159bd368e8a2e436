package transport

import (
	"bytes"
	"context"
	"testing"
)

func TestStdioRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w := NewStdio(nil, &buf)
	ctx := context.Background()
	if err := w.WriteMessage(ctx, []byte(`{"jsonrpc":"2.0","method":"ping"}`)); err != nil {
		t.Fatalf("WriteMessage: %v", err)
	}
	if err := w.WriteMessage(ctx, []byte(`{"jsonrpc":"2.0","method":"pong"}`)); err != nil {
		t.Fatalf("WriteMessage: %v", err)
	}

	r := NewStdio(&buf, nil)
	first, ok, err := r.ReadMessage(ctx)
	if err != nil || !ok {
		t.Fatalf("ReadMessage: %v, ok=%v", err, ok)
	}
	if string(first) != `{"jsonrpc":"2.0","method":"ping"}` {
		t.Fatalf("got %q", first)
	}
	second, ok, err := r.ReadMessage(ctx)
	if err != nil || !ok {
		t.Fatalf("ReadMessage: %v, ok=%v", err, ok)
	}
	if string(second) != `{"jsonrpc":"2.0","method":"pong"}` {
		t.Fatalf("got %q", second)
	}
	if _, ok, err := r.ReadMessage(ctx); err != nil || ok {
		t.Fatalf("expected clean EOF, got ok=%v err=%v", ok, err)
	}
}

func TestMemoryPair(t *testing.T) {
	a, b := NewMemoryPair()
	ctx := context.Background()
	if err := a.WriteMessage(ctx, []byte("hello")); err != nil {
		t.Fatalf("WriteMessage: %v", err)
	}
	data, ok, err := b.ReadMessage(ctx)
	if err != nil || !ok {
		t.Fatalf("ReadMessage: %v, ok=%v", err, ok)
	}
	if string(data) != "hello" {
		t.Fatalf("got %q", data)
	}

	a.Close()
	if _, ok, err := b.ReadMessage(ctx); err != nil || ok {
		t.Fatalf("expected clean EOF after Close, got ok=%v err=%v", ok, err)
	}
}
