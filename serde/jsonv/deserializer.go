package jsonv

import (
	"bytes"
	"encoding/json"
	"strconv"

	"github.com/fogsong233/eventide-sub001/serde"
)

// Deserializer walks an any tree produced by encoding/json (a
// map[string]any/[]any/string/json.Number/bool/nil tree, decoded with
// json.Decoder.UseNumber() so integers survive the round trip exactly).
type Deserializer struct {
	value any
}

// Parse decodes JSON text into a fresh Deserializer positioned at the root
// value.
func Parse(data []byte) (*Deserializer, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, serde.NewError(serde.ErrInvalidBuffer, err.Error())
	}
	if dec.More() {
		return nil, serde.NewError(serde.ErrInvalidBuffer, "trailing content after JSON value")
	}
	return &Deserializer{value: v}, nil
}

// FromValue wraps an already-decoded any tree (e.g. json.RawMessage fields
// already unmarshaled by a caller) as a Deserializer. Numbers in the tree
// must be json.Number values; a float64 or other Go numeric type is
// reported as ErrInvalidType.
func FromValue(v any) *Deserializer { return &Deserializer{value: v} }

func (d *Deserializer) DeserializeNone() (bool, error) {
	return d.value == nil, nil
}

func (d *Deserializer) DeserializeSome(decode func(serde.Deserializer) error) error {
	return decode(d)
}

func (d *Deserializer) DeserializeBool() (bool, error) {
	b, ok := d.value.(bool)
	if !ok {
		return false, serde.NewError(serde.ErrInvalidType, "expected bool")
	}
	return b, nil
}

func (d *Deserializer) number() (json.Number, error) {
	n, ok := d.value.(json.Number)
	if !ok {
		return "", serde.NewError(serde.ErrInvalidType, "expected number")
	}
	return n, nil
}

func (d *Deserializer) DeserializeInt() (int64, error) {
	n, err := d.number()
	if err != nil {
		return 0, err
	}
	v, err := n.Int64()
	if err != nil {
		return 0, serde.NewError(serde.ErrNumberOutOfRange, err.Error())
	}
	return v, nil
}

func (d *Deserializer) DeserializeUint() (uint64, error) {
	n, err := d.number()
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseUint(n.String(), 10, 64)
	if err != nil {
		return 0, serde.NewError(serde.ErrNumberOutOfRange, "value does not fit in uint64")
	}
	return v, nil
}

func (d *Deserializer) DeserializeFloat() (float64, error) {
	if d.value == nil {
		return 0, nil
	}
	n, err := d.number()
	if err != nil {
		return 0, err
	}
	v, err := n.Float64()
	if err != nil {
		return 0, serde.NewError(serde.ErrInvalidType, err.Error())
	}
	return v, nil
}

func (d *Deserializer) DeserializeChar() (rune, error) {
	s, ok := d.value.(string)
	if !ok {
		return 0, serde.NewError(serde.ErrInvalidType, "expected a one-rune string")
	}
	runes := []rune(s)
	if len(runes) != 1 {
		return 0, serde.NewError(serde.ErrInvalidChar, "expected exactly one rune")
	}
	return runes[0], nil
}

func (d *Deserializer) DeserializeStr() (string, error) {
	s, ok := d.value.(string)
	if !ok {
		return "", serde.NewError(serde.ErrInvalidType, "expected string")
	}
	return s, nil
}

func (d *Deserializer) DeserializeBytes() ([]byte, error) {
	s, ok := d.value.(string)
	if !ok {
		return nil, serde.NewError(serde.ErrInvalidType, "expected base64 string")
	}
	var out []byte
	if err := json.Unmarshal([]byte(`"`+s+`"`), &out); err != nil {
		return nil, serde.NewError(serde.ErrInvalidBuffer, err.Error())
	}
	return out, nil
}

func (d *Deserializer) DeserializeSeq() (serde.SeqDecoder, error) {
	arr, ok := d.value.([]any)
	if !ok {
		return nil, serde.NewError(serde.ErrInvalidType, "expected array")
	}
	return &seqDecoder{items: arr}, nil
}

func (d *Deserializer) DeserializeTuple(length int) (serde.TupleDecoder, error) {
	return d.DeserializeSeq()
}

func (d *Deserializer) DeserializeMap() (serde.MapDecoder, error) {
	return d.newMapDecoder()
}

func (d *Deserializer) DeserializeStruct(name string, length int) (serde.MapDecoder, error) {
	return d.newMapDecoder()
}

func (d *Deserializer) newMapDecoder() (*mapDecoder, error) {
	obj, ok := d.value.(map[string]any)
	if !ok {
		return nil, serde.NewError(serde.ErrInvalidType, "expected object")
	}
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	return &mapDecoder{obj: obj, keys: keys}, nil
}

func (d *Deserializer) DeserializeVariant(decode func(tag string, d serde.Deserializer) error) error {
	obj, ok := d.value.(map[string]any)
	if !ok {
		return serde.NewError(serde.ErrInvalidType, "expected a {tag, value} object")
	}
	tag, ok := obj["tag"].(string)
	if !ok {
		return serde.NewError(serde.ErrInvalidType, "variant object missing string tag")
	}
	return decode(tag, FromValue(obj["value"]))
}

type seqDecoder struct {
	items []any
	pos   int
}

func (e *seqDecoder) HasNext() (bool, error) { return e.pos < len(e.items), nil }

func (e *seqDecoder) DeserializeElement(decode func(serde.Deserializer) error) error {
	if e.pos >= len(e.items) {
		return serde.NewError(serde.ErrInvalidState, "no more elements in sequence")
	}
	v := e.items[e.pos]
	e.pos++
	return decode(FromValue(v))
}

func (e *seqDecoder) SkipElement() error {
	if e.pos >= len(e.items) {
		return serde.NewError(serde.ErrInvalidState, "no more elements to skip")
	}
	e.pos++
	return nil
}

func (e *seqDecoder) End() error {
	if e.pos != len(e.items) {
		return serde.NewError(serde.ErrRootNotConsumed, "sequence has unread elements")
	}
	return nil
}

// mapDecoder iterates an object's keys in an arbitrary (Go map) order: JSON
// objects carry no ordering guarantee, unlike flex's wire-order frames.
type mapDecoder struct {
	obj     map[string]any
	keys    []string
	pos     int
	pending string
	hasKey  bool
}

func (e *mapDecoder) NextKey() (string, bool, error) {
	if e.pos >= len(e.keys) {
		return "", false, nil
	}
	k := e.keys[e.pos]
	e.pos++
	e.pending = k
	e.hasKey = true
	return k, true, nil
}

func (e *mapDecoder) DeserializeValue(decode func(serde.Deserializer) error) error {
	if !e.hasKey {
		return serde.NewError(serde.ErrInvalidState, "DeserializeValue called without a pending key")
	}
	e.hasKey = false
	return decode(FromValue(e.obj[e.pending]))
}

func (e *mapDecoder) SkipValue() error {
	if !e.hasKey {
		return serde.NewError(serde.ErrInvalidState, "SkipValue called without a pending key")
	}
	e.hasKey = false
	return nil
}

func (e *mapDecoder) End() error { return nil }
