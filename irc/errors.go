// Copyright (c) 2020 the ircclient authors
// released under the MIT license

package irc

import (
	"errors"
	"fmt"
)

// Message codec errors
var (
	// ErrorLineIsEmpty indicates that the given IRC line was empty.
	ErrorLineIsEmpty = errors.New("Line is empty")

	// ErrorLineContainsBadChar indicates that the line contained NUL, CR or LF.
	ErrorLineContainsBadChar = errors.New("Line contains invalid characters")

	// ErrorMalformedCommand indicates that the command was neither purely
	// alphabetic nor a three-digit numeric.
	ErrorMalformedCommand = errors.New("Command must be alphabetic or a three-digit numeric")

	// ErrorCommandMissing indicates that an IRC message lacked a command.
	ErrorCommandMissing = errors.New("IRC messages MUST have a command")

	// ErrorTooManyParams indicates that a message carried more than the
	// RFC limit of 15 parameters.
	ErrorTooManyParams = errors.New("IRC messages can have at most 15 parameters")

	// ErrorLineTooLong indicates that the serialized message would exceed
	// the 512-byte protocol limit, including the CR-LF terminator.
	ErrorLineTooLong = errors.New("Serialized line exceeds the 512-byte limit")

	// ErrorBadParam indicates that a non-final parameter was empty,
	// contained a space, or started with ':'.
	ErrorBadParam = errors.New("Cannot have an empty param, a param with spaces, or a param that starts with ':' before the last parameter")
)

// Session and state errors
var (
	errNotOnChannel   = errors.New("Not on that channel")
	errAlreadyClosed  = errors.New("Connection is already closed")
	errSocketClosed   = errors.New("Socket has been closed")
	errSocketWriteQ   = errors.New("Socket write queue is full")
	errNotConnected   = errors.New("Not connected to a server")
	errAlreadyStarted = errors.New("Connection attempt already in progress")
)

// String errors
var (
	errCouldNotStabilize = errors.New("Could not stabilize string while casefolding")
	errStringIsEmpty     = errors.New("String is empty")
	errInvalidCharacter  = errors.New("Invalid character")
)

// Config errors
var (
	ErrAddressMissing        = errors.New("Server address missing")
	ErrNicknameMissing       = errors.New("Nickname missing")
	ErrLoggerExcludeEmpty    = errors.New("Encountered logging type '-' with no type to exclude")
	ErrLoggerFilenameMissing = errors.New("Logging configuration specifies 'file' method but 'filename' is empty")
	ErrLoggerHasNoTypes      = errors.New("Logger has no types to log")
	ErrFloodLimitsInsane     = errors.New("Flood control limits are not sane, check lines-per-interval and interval")
)

// ConnectErrorKind classifies connection establishment failures.
type ConnectErrorKind uint

const (
	// ConnectDNSFailure means the hostname did not resolve.
	ConnectDNSFailure ConnectErrorKind = iota
	// ConnectRefused means the server actively refused the connection.
	ConnectRefused
	// ConnectTLSFailure means the TLS handshake failed.
	ConnectTLSFailure
	// ConnectTimeout means the attempt exceeded the configured deadline.
	ConnectTimeout
	// ConnectOther covers network failures with no more specific cause.
	ConnectOther
)

func (kind ConnectErrorKind) String() string {
	switch kind {
	case ConnectDNSFailure:
		return "dns-failure"
	case ConnectRefused:
		return "connection-refused"
	case ConnectTLSFailure:
		return "tls-handshake-failure"
	case ConnectTimeout:
		return "timeout"
	default:
		return "network-error"
	}
}

// ConnectError is returned by Dial and Client.Connect when a connection
// cannot be established.
type ConnectError struct {
	Kind ConnectErrorKind
	Err  error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("connect failed (%s): %s", e.Kind, e.Err.Error())
}

func (e *ConnectError) Unwrap() error {
	return e.Err
}

// ValidationError is returned synchronously when an outbound intent fails
// basic IRC constraints; nothing reaches the wire.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}
