// Package jsonv is the JSON-backed serde back-end: a Serializer/Deserializer
// pair that builds and walks an in-memory any tree via encoding/json, rather
// than streaming bytes directly the way flex does. langserver uses it to
// marshal request params and results through the same serde.Encodable/
// serde.Decodable contract the flex back-end uses, so a handler's types never
// need to know which wire format carries them.
package jsonv

import (
	"encoding/json"
	"math"

	"github.com/fogsong233/eventide-sub001/serde"
)

// Serializer builds a JSON-compatible any tree (map[string]any, []any,
// string, int64, uint64, float64, bool, nil) under a single root value. Errors are sticky,
// matching flex.Serializer (spec §7).
type Serializer struct {
	root    any
	rootSet bool
	stack   []*jsonFrame
	valid   bool
	err     error
}

type jsonFrame struct {
	kind       serde.Kind
	seq        []any
	obj        map[string]any
	pendingKey string
	hasKey     bool
	seenKeys   map[string]bool
	hasDupe    bool
}

func NewSerializer() *Serializer { return &Serializer{valid: true} }

func (s *Serializer) fail(kind serde.ErrorKind, msg string) error {
	if s.valid {
		s.valid = false
		s.err = serde.NewError(kind, msg)
	}
	return s.err
}

func (s *Serializer) guard() error {
	if !s.valid {
		return s.err
	}
	return nil
}

func (s *Serializer) Valid() bool { return s.valid }
func (s *Serializer) Err() error  { return s.err }

// place installs v as either the root, the next seq element, or the value
// for the frame's pending key, mirroring flex.Serializer.prepareValue.
func (s *Serializer) place(v any) error {
	if err := s.guard(); err != nil {
		return err
	}
	if len(s.stack) == 0 {
		if s.rootSet {
			return s.fail(serde.ErrInvalidState, "a serializer session may only emit one root value")
		}
		s.root = v
		s.rootSet = true
		return nil
	}

	top := s.stack[len(s.stack)-1]
	switch top.kind {
	case serde.KindSeq, serde.KindTuple:
		top.seq = append(top.seq, v)
		return nil
	case serde.KindMap, serde.KindStruct:
		if !top.hasKey {
			return s.fail(serde.ErrInvalidState, "map/struct entry missing a key")
		}
		if top.seenKeys == nil {
			top.seenKeys = make(map[string]bool)
		}
		if top.seenKeys[top.pendingKey] {
			top.hasDupe = true
			return s.fail(serde.ErrDuplicateKeys, "duplicate key: "+top.pendingKey)
		}
		top.seenKeys[top.pendingKey] = true
		top.obj[top.pendingKey] = v
		top.hasKey = false
		top.pendingKey = ""
		return nil
	default:
		return s.fail(serde.ErrInvalidState, "value written inside a non-container frame")
	}
}

func (s *Serializer) SerializeNone() error { return s.place(nil) }

func (s *Serializer) SerializeSome(encode func(serde.Serializer) error) error {
	return encode(s)
}

func (s *Serializer) SerializeBool(v bool) error { return s.place(v) }
func (s *Serializer) SerializeInt(v int64) error { return s.place(v) }
func (s *Serializer) SerializeUint(v uint64) error {
	return s.place(v)
}

// SerializeFloat maps non-finite values to none: JSON has no NaN/Infinity
// literal, matching flex's policy (spec §4.D).
func (s *Serializer) SerializeFloat(v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return s.SerializeNone()
	}
	return s.place(v)
}

func (s *Serializer) SerializeChar(v rune) error  { return s.place(string(v)) }
func (s *Serializer) SerializeStr(v string) error { return s.place(v) }

// SerializeBytes encodes as a JSON base64 string, via the same path
// encoding/json uses for []byte.
func (s *Serializer) SerializeBytes(v []byte) error {
	b, err := json.Marshal(v)
	if err != nil {
		return s.fail(serde.ErrInvalidBuffer, err.Error())
	}
	var str string
	if err := json.Unmarshal(b, &str); err != nil {
		return s.fail(serde.ErrInvalidBuffer, err.Error())
	}
	return s.place(str)
}

func (s *Serializer) beginContainer(kind serde.Kind) (*jsonFrame, error) {
	if err := s.guard(); err != nil {
		return nil, err
	}
	f := &jsonFrame{kind: kind}
	if kind == serde.KindSeq || kind == serde.KindTuple {
		f.seq = []any{}
	} else {
		f.obj = map[string]any{}
	}
	s.stack = append(s.stack, f)
	return f, nil
}

func (s *Serializer) endContainer(want serde.Kind) error {
	if err := s.guard(); err != nil {
		return err
	}
	if len(s.stack) == 0 {
		return s.fail(serde.ErrInvalidState, "End called with no open container")
	}
	top := s.stack[len(s.stack)-1]
	if top.kind != want {
		return s.fail(serde.ErrInvalidState, "End called on the wrong frame kind")
	}
	s.stack = s.stack[:len(s.stack)-1]
	if top.hasDupe {
		return s.fail(serde.ErrDuplicateKeys, "duplicate key detected in container")
	}
	var v any
	if top.seq != nil {
		v = top.seq
	} else {
		v = top.obj
	}
	return s.place(v)
}

func (s *Serializer) SerializeSeq(length int) (serde.SeqEncoder, error) {
	if _, err := s.beginContainer(serde.KindSeq); err != nil {
		return nil, err
	}
	return (*seqEncoder)(s), nil
}

func (s *Serializer) SerializeTuple(length int) (serde.TupleEncoder, error) {
	if _, err := s.beginContainer(serde.KindTuple); err != nil {
		return nil, err
	}
	return (*tupleEncoder)(s), nil
}

func (s *Serializer) SerializeMap(length int) (serde.MapEncoder, error) {
	if _, err := s.beginContainer(serde.KindMap); err != nil {
		return nil, err
	}
	return (*mapEncoder)(s), nil
}

func (s *Serializer) SerializeStruct(name string, length int) (serde.StructEncoder, error) {
	if _, err := s.beginContainer(serde.KindStruct); err != nil {
		return nil, err
	}
	return (*structEncoder)(s), nil
}

func (s *Serializer) SerializeVariant(tag string, encode func(serde.Serializer) error) error {
	if err := s.guard(); err != nil {
		return err
	}
	inner := NewSerializer()
	if err := encode(inner); err != nil {
		s.valid = false
		s.err = err
		return err
	}
	return s.place(map[string]any{"tag": tag, "value": inner.root})
}

type seqEncoder Serializer
type tupleEncoder Serializer
type mapEncoder Serializer
type structEncoder Serializer

func (e *seqEncoder) SerializeElement(encode func(serde.Serializer) error) error {
	return encode((*Serializer)(e))
}
func (e *seqEncoder) End() error { return (*Serializer)(e).endContainer(serde.KindSeq) }

func (e *tupleEncoder) SerializeElement(encode func(serde.Serializer) error) error {
	return encode((*Serializer)(e))
}
func (e *tupleEncoder) End() error { return (*Serializer)(e).endContainer(serde.KindTuple) }

func (e *mapEncoder) SerializeEntry(encodeKey, encodeValue func(serde.Serializer) error) error {
	s := (*Serializer)(e)
	kc := &keyCapture{}
	if err := encodeKey(kc); err != nil {
		return s.fail(serde.ErrInvalidKey, err.Error())
	}
	if !kc.set {
		return s.fail(serde.ErrInvalidKey, "map key must be a string")
	}
	top := s.stack[len(s.stack)-1]
	top.pendingKey = kc.value
	top.hasKey = true
	return encodeValue(s)
}
func (e *mapEncoder) End() error { return (*Serializer)(e).endContainer(serde.KindMap) }

func (e *structEncoder) SerializeField(name string, encode func(serde.Serializer) error) error {
	s := (*Serializer)(e)
	top := s.stack[len(s.stack)-1]
	top.pendingKey = name
	top.hasKey = true
	return encode(s)
}
func (e *structEncoder) End() error { return (*Serializer)(e).endContainer(serde.KindStruct) }

// keyCapture mirrors flex's: map keys must resolve to a plain string.
type keyCapture struct {
	value string
	set   bool
}

var errKeyMustBeString = serde.NewError(serde.ErrInvalidKey, "map key must be a string")

func (k *keyCapture) SerializeNone() error                             { return errKeyMustBeString }
func (k *keyCapture) SerializeSome(func(serde.Serializer) error) error { return errKeyMustBeString }
func (k *keyCapture) SerializeBool(bool) error                         { return errKeyMustBeString }
func (k *keyCapture) SerializeInt(int64) error                         { return errKeyMustBeString }
func (k *keyCapture) SerializeUint(uint64) error                       { return errKeyMustBeString }
func (k *keyCapture) SerializeFloat(float64) error                     { return errKeyMustBeString }
func (k *keyCapture) SerializeChar(rune) error                         { return errKeyMustBeString }
func (k *keyCapture) SerializeBytes([]byte) error                      { return errKeyMustBeString }
func (k *keyCapture) SerializeStr(v string) error {
	k.value, k.set = v, true
	return nil
}
func (k *keyCapture) SerializeSeq(int) (serde.SeqEncoder, error) { return nil, errKeyMustBeString }
func (k *keyCapture) SerializeTuple(int) (serde.TupleEncoder, error) {
	return nil, errKeyMustBeString
}
func (k *keyCapture) SerializeMap(int) (serde.MapEncoder, error) { return nil, errKeyMustBeString }
func (k *keyCapture) SerializeStruct(string, int) (serde.StructEncoder, error) {
	return nil, errKeyMustBeString
}
func (k *keyCapture) SerializeVariant(string, func(serde.Serializer) error) error {
	return errKeyMustBeString
}

// Finalize requires a root to have been written and every container closed.
func (s *Serializer) Finalize() error {
	if err := s.guard(); err != nil {
		return err
	}
	if !s.rootSet || len(s.stack) != 0 {
		return s.fail(serde.ErrInvalidState, "finalize called with an unwritten root or an open container")
	}
	return nil
}

// Value returns the finalized any tree, ready for json.Marshal.
func (s *Serializer) Value() (any, error) {
	if err := s.Finalize(); err != nil {
		return nil, err
	}
	return s.root, nil
}

// Bytes finalizes and marshals the tree to JSON text.
func (s *Serializer) Bytes() ([]byte, error) {
	v, err := s.Value()
	if err != nil {
		return nil, err
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, serde.NewError(serde.ErrInvalidBuffer, err.Error())
	}
	return b, nil
}
