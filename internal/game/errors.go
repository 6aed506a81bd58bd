package game

import (
	"errors"
	"fmt"
)

// Kind is a machine-readable error classification. Tool dispatch translates
// handler errors into tool results keyed by these kinds, so the generator
// can recover from recoverable failures instead of aborting the turn.
type Kind string

const (
	KindValidation           Kind = "ValidationError"
	KindConflict             Kind = "ConflictError"
	KindNotFound             Kind = "NotFoundError"
	KindUnknownTool          Kind = "UnknownToolError"
	KindGeneratorTimeout     Kind = "GeneratorTimeoutError"
	KindGeneratorUnavailable Kind = "GeneratorUnavailableError"
	KindStorage              Kind = "StorageError"
)

// Error carries a kind alongside the message. Storage and tool layers return
// these; everything else wraps with fmt.Errorf as usual.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func Validationf(format string, args ...any) error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func Conflictf(format string, args ...any) error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

func NotFoundf(format string, args ...any) error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func UnknownToolf(format string, args ...any) error {
	return &Error{Kind: KindUnknownTool, Message: fmt.Sprintf(format, args...)}
}

// Storagef wraps an underlying persistence failure.
func Storagef(err error, format string, args ...any) error {
	return &Error{Kind: KindStorage, Message: fmt.Sprintf(format, args...), Err: err}
}

func GeneratorTimeoutf(format string, args ...any) error {
	return &Error{Kind: KindGeneratorTimeout, Message: fmt.Sprintf(format, args...)}
}

func GeneratorUnavailable(err error) error {
	return &Error{Kind: KindGeneratorUnavailable, Message: "generator unavailable", Err: err}
}

// KindOf classifies an error. Unclassified errors are treated as storage
// failures, the conservative default for anything that escapes a handler.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindStorage
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}
