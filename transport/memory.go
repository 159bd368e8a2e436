package transport

import "context"

// Memory is an in-process Transport backed by channels: one end's
// WriteMessage feeds the other's ReadMessage. Used by langserver's tests in
// place of a real stdio pipe, the same role httptest.Server plays for the
// teacher's HTTP middleware tests.
type Memory struct {
	in  <-chan []byte
	out chan<- []byte
}

// NewMemoryPair returns two Memory transports wired to each other: messages
// written on one side are read on the other.
func NewMemoryPair() (a, b *Memory) {
	ab := make(chan []byte, 64)
	ba := make(chan []byte, 64)
	return &Memory{in: ba, out: ab}, &Memory{in: ab, out: ba}
}

func (m *Memory) ReadMessage(ctx context.Context) ([]byte, bool, error) {
	select {
	case data, ok := <-m.in:
		if !ok {
			return nil, false, nil
		}
		return data, true, nil
	case <-ctx.Done():
		return nil, false, ctx.Err()
	}
}

func (m *Memory) WriteMessage(ctx context.Context, data []byte) error {
	select {
	case m.out <- data:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close closes the writing side, causing the peer's ReadMessage to observe a
// clean end of stream.
func (m *Memory) Close() { close(m.out) }
