// Package serde defines the format-agnostic value model and the
// serializer/deserializer contracts that concrete back-ends (flex, jsonv)
// implement. Nothing in this package knows about bytes, JSON, or FlexBuffers;
// it only classifies value shapes and drives generic (de)serialization.
package serde

// Kind is the closed set of value shapes the framework understands. Every
// value a back-end is asked to serialize, or hands back while deserializing,
// belongs to exactly one Kind.
type Kind uint8

const (
	KindNone Kind = iota
	KindBool
	KindInt
	KindUint
	KindFloat
	KindChar
	KindStr
	KindBytes
	KindSeq
	KindTuple
	KindMap
	KindStruct
	KindVariant
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindUint:
		return "uint"
	case KindFloat:
		return "float"
	case KindChar:
		return "char"
	case KindStr:
		return "str"
	case KindBytes:
		return "bytes"
	case KindSeq:
		return "seq"
	case KindTuple:
		return "tuple"
	case KindMap:
		return "map"
	case KindStruct:
		return "struct"
	case KindVariant:
		return "variant"
	default:
		return "unknown"
	}
}

// Option is the present/absent value every "option" slot in the data model
// uses. A zero Option is the none-state, matching the zero-value-is-useful
// convention the rest of the module follows.
type Option[T any] struct {
	set   bool
	value T
}

// Some wraps a present value.
func Some[T any](v T) Option[T] { return Option[T]{set: true, value: v} }

// None returns the none-state for T.
func None[T any]() Option[T] { return Option[T]{} }

// IsNone reports whether the option carries no value.
func (o Option[T]) IsNone() bool { return !o.set }

// Get returns the wrapped value and whether it was present.
func (o Option[T]) Get() (T, bool) { return o.value, o.set }

// Value returns the wrapped value, or the zero value if none.
func (o Option[T]) Value() T { return o.value }
