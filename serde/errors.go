package serde

import "fmt"

// ErrorKind is the closed taxonomy of serialization failures (spec §7).
type ErrorKind uint8

const (
	ErrNone ErrorKind = iota
	ErrUnknown
	ErrInvalidState
	ErrInvalidBuffer
	ErrInvalidType
	ErrNumberOutOfRange
	ErrInvalidChar
	ErrInvalidKey
	ErrRootNotConsumed
	ErrDuplicateKeys
)

func (e ErrorKind) String() string {
	switch e {
	case ErrNone:
		return "none"
	case ErrUnknown:
		return "unknown"
	case ErrInvalidState:
		return "invalid_state"
	case ErrInvalidBuffer:
		return "invalid_buffer"
	case ErrInvalidType:
		return "invalid_type"
	case ErrNumberOutOfRange:
		return "number_out_of_range"
	case ErrInvalidChar:
		return "invalid_char"
	case ErrInvalidKey:
		return "invalid_key"
	case ErrRootNotConsumed:
		return "root_not_consumed"
	case ErrDuplicateKeys:
		return "duplicate_keys"
	default:
		return "unknown"
	}
}

// Error is a serde failure carrying one of the closed ErrorKind values plus
// optional context. Back-ends return *Error (or wrap one with fmt.Errorf's
// %w) so callers can recover the Kind with errors.As.
type Error struct {
	Kind ErrorKind
	Msg  string
}

func (e *Error) Error() string {
	if e.Msg == "" {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

// NewError builds an *Error with context.
func NewError(kind ErrorKind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// KindOf extracts the ErrorKind from err, or ErrNone if err is nil and
// ErrUnknown if err is non-nil but not a *Error.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ErrNone
	}
	var se *Error
	if ok := asError(err, &se); ok {
		return se.Kind
	}
	return ErrUnknown
}

// asError is errors.As without importing errors twice across the package;
// kept local so callers of KindOf don't need the errors package themselves.
func asError(err error, target **Error) bool {
	for err != nil {
		if se, ok := err.(*Error); ok {
			*target = se
			return true
		}
		unwrapper, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = unwrapper.Unwrap()
	}
	return false
}
