package wire

import (
	"errors"
	"fmt"
)

// MessageErrorKind classifies envelope failures.
type MessageErrorKind int

const (
	// Malformed indicates the delimiter frame is missing.
	Malformed MessageErrorKind = iota
	// Truncated indicates fewer than five frames follow the delimiter.
	Truncated
	// AuthenticationFailed indicates a signature mismatch.
	AuthenticationFailed
	// DecodeFailed indicates a part is not valid JSON for its target type.
	DecodeFailed
	// EncodeFailed indicates a part could not be serialized.
	EncodeFailed
)

// String returns the kind name used in logs.
func (k MessageErrorKind) String() string {
	switch k {
	case Malformed:
		return "malformed"
	case Truncated:
		return "truncated"
	case AuthenticationFailed:
		return "authentication_failed"
	case DecodeFailed:
		return "decode_failed"
	case EncodeFailed:
		return "encode_failed"
	default:
		return "unknown"
	}
}

// MessageError describes a rejected multi-part message.
type MessageError struct {
	Kind MessageErrorKind
	Msg  string
	Err  error
}

func (e *MessageError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *MessageError) Unwrap() error {
	return e.Err
}

// IsAuthError reports whether err is a signature mismatch.
func IsAuthError(err error) bool {
	var me *MessageError
	return errors.As(err, &me) && me.Kind == AuthenticationFailed
}

// IsMalformed reports whether err describes a structurally invalid
// message (missing delimiter or too few frames).
func IsMalformed(err error) bool {
	var me *MessageError
	if !errors.As(err, &me) {
		return false
	}
	return me.Kind == Malformed || me.Kind == Truncated
}

// KindOf returns the kind of a MessageError, or false if err is not one.
func KindOf(err error) (MessageErrorKind, bool) {
	var me *MessageError
	if errors.As(err, &me) {
		return me.Kind, true
	}
	return 0, false
}
