// Package common provides shared functionality for feedme-client command-line applications.
package common

import (
	"fmt"
	"os"

	"github.com/auriora/feedme-client/pkg/errors"
	"github.com/auriora/feedme-client/pkg/logging"
)

// ErrorCategory represents a category of errors for user-friendly presentation.
type ErrorCategory int

const (
	// ErrorCategoryGeneral represents an error with no more specific category.
	ErrorCategoryGeneral ErrorCategory = iota
	// ErrorCategoryConnection represents a transport/session-level failure.
	ErrorCategoryConnection
	// ErrorCategoryProtocol represents a server-side protocol violation
	// (malformed frame, bad delta, hash mismatch).
	ErrorCategoryProtocol
	// ErrorCategoryTransportContract represents a misbehaving Transport
	// implementation (threw, returned an error, emitted out of sequence).
	ErrorCategoryTransportContract
	// ErrorCategoryServerRejection represents a request the server itself
	// refused (action rejected, feed terminated, handshake rejected).
	ErrorCategoryServerRejection
	// ErrorCategoryMisuse represents incorrect use of the public surface.
	ErrorCategoryMisuse
)

// UserFriendlyError represents an error with user-friendly presentation.
type UserFriendlyError struct {
	Original   error
	Category   ErrorCategory
	Title      string
	Message    string
	Suggestion string
}

// CategorizeError categorizes an error for user-friendly presentation, using
// its errors.Kind when available.
func CategorizeError(err error) UserFriendlyError {
	if err == nil {
		return UserFriendlyError{
			Category:   ErrorCategoryGeneral,
			Title:      "Unknown Error",
			Message:    "An unknown error occurred.",
			Suggestion: "Please try again later.",
		}
	}

	result := UserFriendlyError{
		Original:   err,
		Category:   ErrorCategoryGeneral,
		Title:      "Error",
		Message:    err.Error(),
		Suggestion: "Please try again later.",
	}

	switch errors.KindOf(err) {
	case errors.KindDisconnected:
		result.Category = ErrorCategoryConnection
		result.Title = "Disconnected"
		result.Message = "The connection to the server was lost."
		result.Suggestion = "The client will retry automatically unless reconnect is disabled."

	case errors.KindTimeout:
		result.Category = ErrorCategoryConnection
		result.Title = "Timeout"
		result.Message = "A connect, action, or feed-open attempt did not complete in time."
		result.Suggestion = "Check network connectivity and server responsiveness, or raise the configured timeout."

	case errors.KindHandshakeRejected:
		result.Category = ErrorCategoryConnection
		result.Title = "Handshake Rejected"
		result.Message = "The server rejected the protocol handshake."
		result.Suggestion = "Verify the client is speaking a version the server supports; no automatic retry will occur."

	case errors.KindInvalidMessage, errors.KindUnexpectedMessage, errors.KindInvalidDelta, errors.KindInvalidHash:
		result.Category = ErrorCategoryProtocol
		result.Title = "Protocol Violation"
		result.Message = "The server sent a message that violates the protocol."
		result.Suggestion = "This usually indicates a server bug or version mismatch; check server-side logs."

	case errors.KindBadActionRevelation:
		result.Category = ErrorCategoryProtocol
		result.Title = "Bad Action Revelation"
		result.Message = "A feed update could not be applied or failed integrity verification."
		result.Suggestion = "The affected feed was closed and will reopen automatically, subject to the reopen throttle."

	case errors.KindUnexpectedEvent, errors.KindBadReturn, errors.KindThrewOnCall:
		result.Category = ErrorCategoryTransportContract
		result.Title = "Transport Error"
		result.Message = "The transport implementation violated its contract."
		result.Suggestion = "Check the Transport implementation for out-of-order events, returned errors, or panics."

	case errors.KindRejected:
		result.Category = ErrorCategoryServerRejection
		result.Title = "Action Rejected"
		result.Message = "The server refused the requested action."
		result.Suggestion = "Inspect the server-supplied error code and data for the reason."

	case errors.KindTerminated:
		result.Category = ErrorCategoryServerRejection
		result.Title = "Feed Terminated"
		result.Message = "The server terminated an open feed."
		result.Suggestion = "The feed will reopen automatically, subject to the reopen throttle."

	case errors.KindInvalidArgument, errors.KindInvalidState, errors.KindInvalidFeedState, errors.KindDestroyed:
		result.Category = ErrorCategoryMisuse
		result.Title = "Invalid Use"
		result.Message = "An operation was attempted at an invalid point in its lifecycle."
		result.Suggestion = "Check the call site against the object's current state."
	}

	return result
}

// PrintUserFriendlyError prints a user-friendly error message to stderr.
func PrintUserFriendlyError(err error) {
	if err == nil {
		return
	}

	errors.MonitorError(err)
	logging.Error().Err(err).Msg("error occurred")

	friendly := CategorizeError(err)
	fmt.Fprintf(os.Stderr, "\n%s: %s\n\n", friendly.Title, friendly.Message)
	fmt.Fprintf(os.Stderr, "Suggestion: %s\n\n", friendly.Suggestion)

	if os.Getenv("FEEDME_DEBUG") == "1" {
		fmt.Fprintf(os.Stderr, "Technical details: %s\n\n", err.Error())
	}
}

// HandleErrorAndExit prints a user-friendly error message and exits with the given exit code.
func HandleErrorAndExit(err error, exitCode int) {
	PrintUserFriendlyError(err)
	os.Exit(exitCode)
}
