package flex

import (
	"math"

	"github.com/fogsong233/eventide-sub001/serde"
)

// Serializer is the concrete FlexBuffers-style serde.Serializer. It keeps a
// stack of open container frames; the top of the stack is the active frame,
// and an empty stack means the next value is the root (spec §4.D).
//
// Errors are sticky: the first error recorded on a session is returned by
// every subsequent call, and the session is marked invalid (spec §7).
type Serializer struct {
	b           *builder
	stack       []*frame
	rootWritten bool
	rootOffset  uint32
	rootTag     uint8
	finished    bool
	valid       bool
	err         error
	out         []byte // cached result of the first Bytes() call
}

type frame struct {
	kind        serde.Kind // KindSeq, KindTuple, KindMap, or KindStruct
	pendingKey  string
	hasKey      bool
	seenKeys    map[string]bool
	hasDupe     bool
}

// NewSerializer creates an empty serializer session.
func NewSerializer() *Serializer {
	return &Serializer{b: newBuilder(), valid: true}
}

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

// Valid reports whether the session has not yet recorded an error.
func (s *Serializer) Valid() bool { return s.valid }

// Err returns the sticky error, or nil.
func (s *Serializer) Err() error { return s.err }

// before_value + key consumption, folded into one step since this port's
// StructEncoder/MapEncoder interfaces pass the key alongside the value
// rather than as a separate call (see DESIGN.md): a field or entry write
// always supplies both at once, so "two consecutive keys" is unrepresentable
// by construction, and "a value without a prior key" (a value callback that
// writes more than one value) is caught by the hasKey check below.
func (s *Serializer) prepareValue() error {
	if err := s.guard(); err != nil {
		return err
	}
	if len(s.stack) == 0 {
		if s.rootWritten {
			return s.fail(serde.ErrInvalidState, "a serializer session may only emit one root value")
		}
		s.rootWritten = true
		return nil
	}

	top := s.stack[len(s.stack)-1]
	switch top.kind {
	case serde.KindSeq, serde.KindTuple:
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
		s.b.writeStrRef(top.pendingKey)
		top.hasKey = false
		top.pendingKey = ""
		return nil
	default:
		return s.fail(serde.ErrInvalidState, "value written inside a non-container frame")
	}
}

func (s *Serializer) markRoot(tag uint8) {
	if len(s.stack) == 0 {
		s.rootOffset = uint32(len(s.b.buf))
		s.rootTag = tag
	}
}

func (s *Serializer) leaf(tag uint8, write func()) error {
	if err := s.prepareValue(); err != nil {
		return err
	}
	off := uint32(len(s.b.buf))
	s.b.writeByte(tag)
	write()
	if len(s.stack) == 0 {
		s.rootOffset = off
		s.rootTag = tag
	}
	return nil
}

func (s *Serializer) SerializeNone() error { return s.leaf(tagNone, func() {}) }

func (s *Serializer) SerializeSome(encode func(serde.Serializer) error) error {
	return encode(s)
}

func (s *Serializer) SerializeBool(v bool) error {
	tag := tagFalse
	if v {
		tag = tagTrue
	}
	return s.leaf(uint8(tag), func() {})
}

func (s *Serializer) SerializeInt(v int64) error {
	return s.leaf(tagInt, func() { s.b.writeVarint(v) })
}

func (s *Serializer) SerializeUint(v uint64) error {
	return s.leaf(tagUint, func() { s.b.writeUvarint(v) })
}

// SerializeFloat emits v, or none if v is not finite (NaN/±Inf) per spec's
// floating-point policy.
func (s *Serializer) SerializeFloat(v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return s.SerializeNone()
	}
	return s.leaf(tagFloat, func() { s.b.writeFloat(v) })
}

func (s *Serializer) SerializeChar(v rune) error {
	return s.leaf(tagChar, func() { s.b.writeUvarint(uint64(v)) })
}

func (s *Serializer) SerializeStr(v string) error {
	return s.leaf(tagStr, func() { s.b.writeStrRef(v) })
}

func (s *Serializer) SerializeBytes(v []byte) error {
	return s.leaf(tagBytes, func() { s.b.writeRawBytes(v) })
}

func (s *Serializer) beginContainer(kind serde.Kind, tag uint8) error {
	if err := s.prepareValue(); err != nil {
		return err
	}
	s.markRoot(tag)
	s.b.writeByte(tag)
	s.stack = append(s.stack, &frame{kind: kind})
	return nil
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
	s.b.writeByte(tagEnd)
	s.stack = s.stack[:len(s.stack)-1]
	if top.hasDupe {
		return s.fail(serde.ErrDuplicateKeys, "duplicate key detected in container")
	}
	return nil
}

func (s *Serializer) SerializeSeq(length int) (serde.SeqEncoder, error) {
	if err := s.beginContainer(serde.KindSeq, tagSeq); err != nil {
		return nil, err
	}
	return (*seqEncoder)(s), nil
}

func (s *Serializer) SerializeTuple(length int) (serde.TupleEncoder, error) {
	if err := s.beginContainer(serde.KindTuple, tagTuple); err != nil {
		return nil, err
	}
	return (*tupleEncoder)(s), nil
}

func (s *Serializer) SerializeMap(length int) (serde.MapEncoder, error) {
	if err := s.beginContainer(serde.KindMap, tagMap); err != nil {
		return nil, err
	}
	return (*mapEncoder)(s), nil
}

func (s *Serializer) SerializeStruct(name string, length int) (serde.StructEncoder, error) {
	if err := s.prepareValue(); err != nil {
		return nil, err
	}
	s.markRoot(tagStruct)
	s.b.writeByte(tagStruct)
	s.b.writeStrRef(name)
	s.stack = append(s.stack, &frame{kind: serde.KindStruct})
	return (*structEncoder)(s), nil
}

func (s *Serializer) SerializeVariant(tag string, encode func(serde.Serializer) error) error {
	if err := s.prepareValue(); err != nil {
		return err
	}
	s.markRoot(tagVariant)
	s.b.writeByte(tagVariant)
	s.b.writeStrRef(tag)
	return encode(s)
}

// seqEncoder, tupleEncoder, mapEncoder, structEncoder are all *Serializer in
// disguise: the container they opened is always the top of s.stack, so they
// need no state of their own.

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
	key, err := captureKey(encodeKey)
	if err != nil {
		return s.fail(serde.ErrInvalidKey, err.Error())
	}
	top := s.stack[len(s.stack)-1]
	top.pendingKey = key
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

// Finalize is legal only once a root has been written and every container is
// closed; it is idempotent once completed.
func (s *Serializer) Finalize() error {
	if err := s.guard(); err != nil {
		return err
	}
	if s.finished {
		return nil
	}
	if !s.rootWritten || len(s.stack) != 0 {
		return s.fail(serde.ErrInvalidState, "finalize called with an unwritten root or an open container")
	}
	s.finished = true
	return nil
}

// Bytes finalizes the session (if not already) and returns the owned
// encoded buffer, including the trailing root footer.
func (s *Serializer) Bytes() ([]byte, error) {
	if err := s.Finalize(); err != nil {
		return nil, err
	}
	if s.out == nil {
		s.out = s.b.finish(s.rootOffset, s.rootTag)
	}
	return s.out, nil
}

// View is an alias for Bytes: FlexBuffers back-ends conventionally expose
// both a "view" (zero-copy in C++) and an owned "bytes" accessor; in Go the
// slice returned by Bytes already shares the underlying array, so View has
// no further copy to avoid.
func (s *Serializer) View() ([]byte, error) { return s.Bytes() }

// captureKey resolves a generic key-encode callback to the string FlexBuffers
// map keys require, by handing it a Serializer that only accepts
// SerializeStr.
func captureKey(encodeKey func(serde.Serializer) error) (string, error) {
	kc := &keyCapture{}
	if err := encodeKey(kc); err != nil {
		return "", err
	}
	if !kc.set {
		return "", serde.NewError(serde.ErrInvalidKey, "map key must be a string")
	}
	return kc.value, nil
}
