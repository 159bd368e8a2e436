package serde

// Serializer is the visitor contract a back-end implements to receive a
// structured value (spec §4.B). A producer drives exactly one of these
// methods per leaf, or opens a container frame and drives it to End before
// returning to the parent frame.
//
// Every back-end must emit exactly one root value per session; a second root
// value, or any operation after the session has been finalized, must return
// an *Error with Kind ErrInvalidState.
type Serializer interface {
	SerializeNone() error
	SerializeSome(encode func(Serializer) error) error

	SerializeBool(v bool) error
	SerializeInt(v int64) error
	SerializeUint(v uint64) error
	SerializeFloat(v float64) error
	SerializeChar(v rune) error
	SerializeStr(v string) error
	SerializeBytes(v []byte) error

	// SerializeSeq opens a sequence frame. length < 0 means the producer
	// does not know the element count up front.
	SerializeSeq(length int) (SeqEncoder, error)
	// SerializeTuple opens a fixed-length frame; length must match the
	// number of SerializeElement calls the caller makes before End.
	SerializeTuple(length int) (TupleEncoder, error)
	// SerializeMap opens a map frame. length < 0 means unknown length.
	SerializeMap(length int) (MapEncoder, error)
	// SerializeStruct opens a struct frame for the named record.
	SerializeStruct(name string, length int) (StructEncoder, error)

	// SerializeVariant emits a tagged union: the tag, then the inner value.
	SerializeVariant(tag string, encode func(Serializer) error) error
}

// SeqEncoder is the frame returned by SerializeSeq.
type SeqEncoder interface {
	SerializeElement(encode func(Serializer) error) error
	End() error
}

// TupleEncoder is the frame returned by SerializeTuple.
type TupleEncoder interface {
	SerializeElement(encode func(Serializer) error) error
	End() error
}

// MapEncoder is the frame returned by SerializeMap.
type MapEncoder interface {
	SerializeEntry(encodeKey, encodeValue func(Serializer) error) error
	End() error
}

// StructEncoder is the frame returned by SerializeStruct. Map keys written
// to a struct are the (possibly renamed) field names; callers must never
// call SerializeField for a field annotated Skip, and must only call it for
// a SkipEmpty field when the value is present — EncodeStruct (annotation.go)
// applies Skip and rename, and SkipEmpty omission is left to the caller that
// builds its field list; none of it happens here.
type StructEncoder interface {
	SerializeField(name string, encode func(Serializer) error) error
	End() error
}
