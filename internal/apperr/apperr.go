package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies a failure so HTTP handlers can pick a status code
// without parsing error strings.
type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindQualityRejected
	KindNoFaceDetected
	KindEncodingFailed
	KindDuplicateIdentity
	KindInsufficientSamples
	KindNotFound
	KindStorage
	KindNotification
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindQualityRejected:
		return "quality_rejected"
	case KindNoFaceDetected:
		return "no_face_detected"
	case KindEncodingFailed:
		return "encoding_failed"
	case KindDuplicateIdentity:
		return "duplicate_identity"
	case KindInsufficientSamples:
		return "insufficient_samples"
	case KindNotFound:
		return "not_found"
	case KindStorage:
		return "storage"
	case KindNotification:
		return "notification"
	default:
		return "unknown"
	}
}

// Error carries a user-facing message and an optional wrapped cause.
// The message is safe to return to clients; the cause is for logs only.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

func Newf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// KindOf extracts the Kind from err, or KindUnknown if err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Message returns the client-safe message for err. Unclassified errors get
// a generic message so internals never leak through a response payload.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Msg
	}
	return "internal server error"
}
