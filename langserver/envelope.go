package langserver

import (
	"bytes"
	"encoding/json"
)

// envelope is one parsed JSON-RPC 2.0 message: a request (method+id), a
// notification (method, no id), or — per spec.md's own open question — a
// malformed mix (params with no method), which is treated as intentionally
// droppable rather than an error.
type envelope struct {
	Method string          `json:"method"`
	Params json.RawMessage `json:"params"`
	ID     json.RawMessage `json:"id"`
	hasID  bool
}

// parseEnvelope decodes exactly one JSON value from data and rejects
// trailing content after it, the same over-strict parse the reference
// jsonrpc2 readLoop performs via json.Decoder.More().
func parseEnvelope(data []byte) (*envelope, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	var raw map[string]json.RawMessage
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, errTrailingContent
	}
	if err := validateEnvelopeShape(data); err != nil {
		return nil, err
	}

	env := &envelope{}
	if m, ok := raw["method"]; ok {
		if err := json.Unmarshal(m, &env.Method); err != nil {
			return nil, err
		}
	}
	if p, ok := raw["params"]; ok {
		env.Params = p
	}
	if id, ok := raw["id"]; ok {
		env.ID = id
		env.hasID = true
	}
	return env, nil
}

// isNotification reports whether env carries no id — a notification never
// gets a response.
func (e *envelope) isNotification() bool { return !e.hasID }

// hasMethod reports whether env names a method at all. An envelope with
// params but no method is spec.md's documented edge case: silently dropped,
// neither dispatched nor answered.
func (e *envelope) hasMethod() bool { return e.Method != "" }
