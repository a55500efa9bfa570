package ma2protocol

import (
	"errors"
	"fmt"
)

// Sentinel errors for build-time failures. A *BuildError matches the
// sentinel of its kind with errors.Is.
var (
	ErrInvalidRange        = errors.New("invalid range")
	ErrInvalidIdentifier   = errors.New("invalid identifier")
	ErrUnsupportedOption   = errors.New("unsupported option")
	ErrInvalidLabel        = errors.New("invalid label")
	ErrUnknownType         = errors.New("unknown type")
	ErrCardinalityMismatch = errors.New("cardinality mismatch")
	ErrMissingArgument     = errors.New("missing argument")
	ErrInvalidCommand      = errors.New("invalid command")
)

// Sentinel errors for session-time failures.
var (
	// ErrSessionBusy indicates the command queue is full.
	ErrSessionBusy = errors.New("session busy")

	// ErrAlreadyConnected indicates Connect was called on a live session.
	ErrAlreadyConnected = errors.New("already connected")

	// ErrSessionClosed indicates the session was shut down.
	ErrSessionClosed = errors.New("session closed")

	// ErrLineTooLong indicates a command line exceeded MaxLineLength.
	ErrLineTooLong = errors.New("line too long")
)

// BuildErrorKind categorizes build-time errors.
type BuildErrorKind int

const (
	// ErrKindInvalidRange indicates a descending or malformed range.
	ErrKindInvalidRange BuildErrorKind = iota
	// ErrKindInvalidIdentifier indicates a negative or malformed identifier.
	ErrKindInvalidIdentifier
	// ErrKindUnsupportedOption indicates an option outside the family's set.
	ErrKindUnsupportedOption
	// ErrKindInvalidLabel indicates free text with control characters.
	ErrKindInvalidLabel
	// ErrKindUnknownType indicates an unrecognized type keyword.
	ErrKindUnknownType
	// ErrKindCardinalityMismatch indicates source and destination ranges differ in length.
	ErrKindCardinalityMismatch
	// ErrKindMissingArgument indicates a required argument was not provided.
	ErrKindMissingArgument
	// ErrKindInvalidCommand indicates a raw command line that cannot be sent.
	ErrKindInvalidCommand
)

func (k BuildErrorKind) sentinel() error {
	switch k {
	case ErrKindInvalidRange:
		return ErrInvalidRange
	case ErrKindInvalidIdentifier:
		return ErrInvalidIdentifier
	case ErrKindUnsupportedOption:
		return ErrUnsupportedOption
	case ErrKindInvalidLabel:
		return ErrInvalidLabel
	case ErrKindUnknownType:
		return ErrUnknownType
	case ErrKindCardinalityMismatch:
		return ErrCardinalityMismatch
	case ErrKindMissingArgument:
		return ErrMissingArgument
	default:
		return ErrInvalidCommand
	}
}

// BuildError represents a command that could not be rendered. Build errors
// never reach the wire and are never retried.
type BuildError struct {
	Kind    BuildErrorKind
	Value   string // The offending input
	Message string // Additional context
	Err     error  // Underlying cause, if any
}

// Error implements the error interface.
func (e *BuildError) Error() string {
	var msg string
	switch e.Kind {
	case ErrKindInvalidRange:
		msg = fmt.Sprintf("invalid range '%s'", e.Value)
	case ErrKindInvalidIdentifier:
		msg = fmt.Sprintf("invalid identifier '%s'", e.Value)
	case ErrKindUnsupportedOption:
		msg = fmt.Sprintf("unsupported option '%s'", e.Value)
	case ErrKindInvalidLabel:
		msg = fmt.Sprintf("invalid label %q", e.Value)
	case ErrKindUnknownType:
		msg = fmt.Sprintf("unknown type '%s'", e.Value)
	case ErrKindCardinalityMismatch:
		msg = fmt.Sprintf("cardinality mismatch: %s", e.Value)
	case ErrKindMissingArgument:
		return e.Message
	default:
		msg = fmt.Sprintf("invalid command %q", e.Value)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	return msg
}

// Is reports whether target is the sentinel for this error's kind.
func (e *BuildError) Is(target error) bool {
	return target == e.Kind.sentinel()
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *BuildError) Unwrap() error {
	return e.Err
}

func newInvalidRangeError(value, msg string) error {
	return &BuildError{Kind: ErrKindInvalidRange, Value: value, Message: msg}
}

func newInvalidIdentifierError(value, msg string) error {
	return &BuildError{Kind: ErrKindInvalidIdentifier, Value: value, Message: msg}
}

func newUnsupportedOptionError(name, family string) error {
	return &BuildError{Kind: ErrKindUnsupportedOption, Value: name, Message: "not allowed for " + family}
}

func newInvalidLabelError(text, msg string) error {
	return &BuildError{Kind: ErrKindInvalidLabel, Value: text, Message: msg}
}

func newUnknownTypeError(name string) error {
	return &BuildError{Kind: ErrKindUnknownType, Value: name}
}

func newCardinalityMismatchError(src, dst int) error {
	return &BuildError{
		Kind:  ErrKindCardinalityMismatch,
		Value: fmt.Sprintf("%d source elements, %d destination elements", src, dst),
	}
}

func newMissingArgumentError(msg string) error {
	return &BuildError{Kind: ErrKindMissingArgument, Message: msg}
}

func newInvalidCommandError(line, msg string) error {
	return &BuildError{Kind: ErrKindInvalidCommand, Value: line, Message: msg}
}

func newLineTooLongError(text string) error {
	head := text
	if len(head) > 32 {
		head = head[:32] + "..."
	}
	return &BuildError{
		Kind:    ErrKindInvalidCommand,
		Value:   head,
		Message: fmt.Sprintf("%d bytes exceeds the %d byte limit", len(text), MaxLineLength),
		Err:     ErrLineTooLong,
	}
}

// IsBuildError reports whether err is a build-time error.
func IsBuildError(err error) bool {
	var be *BuildError
	return errors.As(err, &be)
}

// TransportError represents a socket-level failure.
type TransportError struct {
	Op       string // "dial", "read", "write"
	Endpoint Endpoint
	Err      error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	return fmt.Sprintf("transport %s %s: %v", e.Op, e.Endpoint, e.Err)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *TransportError) Unwrap() error {
	return e.Err
}

// ConnectTimeoutError indicates Connect did not complete in time.
type ConnectTimeoutError struct {
	Endpoint Endpoint
	Stage    State // Connecting or Authenticating
	Err      error
}

// Error implements the error interface.
func (e *ConnectTimeoutError) Error() string {
	return fmt.Sprintf("connect to %s timed out while %s: %v", e.Endpoint, e.Stage, e.Err)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *ConnectTimeoutError) Unwrap() error {
	return e.Err
}

// AuthenticationError indicates the console rejected the login line.
type AuthenticationError struct {
	User  string
	Reply string // Console output that carried the rejection
}

// Error implements the error interface.
func (e *AuthenticationError) Error() string {
	if e.Reply == "" {
		return fmt.Sprintf("login rejected for user %q", e.User)
	}
	return fmt.Sprintf("login rejected for user %q: %s", e.User, e.Reply)
}

// ResponseTimeoutError indicates no prompt or idle gap was seen before the
// deadline. Buffered holds the number of bytes kept for the next read.
type ResponseTimeoutError struct {
	Buffered int
	Err      error
}

// Error implements the error interface.
func (e *ResponseTimeoutError) Error() string {
	return fmt.Sprintf("response timed out (%d bytes buffered): %v", e.Buffered, e.Err)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *ResponseTimeoutError) Unwrap() error {
	return e.Err
}

// NotReadyError indicates an operation that requires the Ready state.
type NotReadyError struct {
	State State
}

// Error implements the error interface.
func (e *NotReadyError) Error() string {
	return fmt.Sprintf("session not ready (state %s)", e.State)
}

// Retryable reports whether a failed operation may succeed if repeated
// unchanged. Build errors and rejected logins never are.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	var (
		auth *AuthenticationError
		nr   *NotReadyError
	)
	switch {
	case IsBuildError(err), errors.As(err, &auth), errors.Is(err, ErrSessionClosed):
		return false
	case errors.As(err, &nr):
		return nr.State == Reconnecting || nr.State == Connecting || nr.State == Authenticating
	}
	var (
		te  *TransportError
		cte *ConnectTimeoutError
		rte *ResponseTimeoutError
	)
	return errors.As(err, &te) || errors.As(err, &cte) || errors.As(err, &rte) ||
		errors.Is(err, ErrSessionBusy)
}
