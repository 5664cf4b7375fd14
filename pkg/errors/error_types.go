// Package errors provides standardized error handling utilities for the feedme-client project.
// This file defines the protocol's error kinds (spec §7) as a typed error.
package errors

import "fmt"

// Kind identifies which of the protocol's canonical failure modes produced an error.
// The string values are the canonical human-readable prefixes used in messages
// surfaced to application code.
type Kind string

const (
	KindInvalidArgument     Kind = "INVALID_ARGUMENT"
	KindInvalidState        Kind = "INVALID_STATE"
	KindInvalidFeedState    Kind = "INVALID_FEED_STATE"
	KindDestroyed           Kind = "DESTROYED"
	KindDisconnected        Kind = "DISCONNECTED"
	KindTimeout             Kind = "TIMEOUT"
	KindHandshakeRejected   Kind = "HANDSHAKE_REJECTED"
	KindRejected            Kind = "REJECTED"
	KindTerminated          Kind = "TERMINATED"
	KindBadActionRevelation Kind = "BAD_ACTION_REVELATION"
	KindInvalidMessage      Kind = "INVALID_MESSAGE"
	KindUnexpectedMessage   Kind = "UNEXPECTED_MESSAGE"
	KindInvalidDelta        Kind = "INVALID_DELTA"
	KindInvalidHash         Kind = "INVALID_HASH"
	KindUnexpectedEvent     Kind = "UNEXPECTED_EVENT"
	KindBadReturn           Kind = "BAD_RETURN"
	KindThrewOnCall         Kind = "THREW_ON_CALL"
)

// TypedError is an error carrying a protocol Kind plus optional server-supplied
// detail, so application code can branch on Kind without string matching.
type TypedError struct {
	Kind            Kind
	Message         string
	ServerErrorCode string
	ServerErrorData interface{}
	Err             error
}

// Error returns the error message, formatted as "KIND: message[: cause]".
func (e *TypedError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying error, if any.
func (e *TypedError) Unwrap() error {
	return e.Err
}

// NewTyped creates a TypedError of the given kind.
func NewTyped(kind Kind, message string) error {
	return &TypedError{Kind: kind, Message: message}
}

// NewTypedWrap creates a TypedError of the given kind wrapping a cause.
func NewTypedWrap(kind Kind, message string, err error) error {
	return &TypedError{Kind: kind, Message: message, Err: err}
}

// NewRejected creates the REJECTED error an action carries when the server refuses it.
func NewRejected(serverErrorCode string, serverErrorData interface{}) error {
	return &TypedError{
		Kind:            KindRejected,
		Message:         "action rejected by server",
		ServerErrorCode: serverErrorCode,
		ServerErrorData: serverErrorData,
	}
}

// KindOf reports the Kind of err, or "" if err is not (or does not wrap) a *TypedError.
func KindOf(err error) Kind {
	var typedErr *TypedError
	if As(err, &typedErr) {
		return typedErr.Kind
	}
	return ""
}

// HasKind reports whether err is, or wraps, a *TypedError of the given kind.
func HasKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
