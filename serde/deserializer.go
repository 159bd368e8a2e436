package serde

// Deserializer is the visitor contract a back-end implements to drive a
// parse (spec §4.C), symmetric to Serializer. A session is complete only
// once the root value has been fully consumed; a back-end that detects
// leftover input at that point must return ErrRootNotConsumed.
type Deserializer interface {
	// DeserializeNone reports whether the next value is the none marker,
	// without consuming it if false.
	DeserializeNone() (bool, error)
	DeserializeSome(decode func(Deserializer) error) error

	DeserializeBool() (bool, error)
	DeserializeInt() (int64, error)
	DeserializeUint() (uint64, error)
	DeserializeFloat() (float64, error)
	DeserializeChar() (rune, error)
	DeserializeStr() (string, error)
	DeserializeBytes() ([]byte, error)

	DeserializeSeq() (SeqDecoder, error)
	DeserializeTuple(length int) (TupleDecoder, error)
	DeserializeMap() (MapDecoder, error)
	// DeserializeStruct opens a struct frame. Unknown wire keys must be
	// silently skippable via MapDecoder.SkipValue — this is what lets a
	// struct with fewer fields than the wire payload round-trip.
	DeserializeStruct(name string, length int) (MapDecoder, error)

	DeserializeVariant(decode func(tag string, d Deserializer) error) error
}

// SeqDecoder iterates a sequence or tuple frame element by element.
type SeqDecoder interface {
	HasNext() (bool, error)
	DeserializeElement(decode func(Deserializer) error) error
	SkipElement() error
	End() error
}

// TupleDecoder has the same shape as SeqDecoder; kept as a distinct name so
// call sites read the way spec §4.C names them, even though the interface
// is identical.
type TupleDecoder = SeqDecoder

// MapDecoder iterates a map or struct frame key by key. NextKey returns
// ok=false once the frame is exhausted.
type MapDecoder interface {
	NextKey() (key string, ok bool, err error)
	DeserializeValue(decode func(Deserializer) error) error
	SkipValue() error
	End() error
}
