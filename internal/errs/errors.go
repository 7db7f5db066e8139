// Package errs defines the error taxonomy shared by the ingestion pipeline.
// Every failure that crosses a component boundary is tagged with a Kind so
// the orchestrator can decide whether to retry, skip a source, or abort.
package errs

import (
	"errors"
	"fmt"
)

// Kind classifies an error for retry and propagation decisions.
type Kind int

const (
	KindUnknown Kind = iota
	KindConfig
	KindValidation
	KindTransient
	KindClient
	KindParse
	KindStorage
	KindRetriesExhausted
)

// String returns the stable tag used in logs and run summaries.
func (k Kind) String() string {
	switch k {
	case KindConfig:
		return "config"
	case KindValidation:
		return "validation"
	case KindTransient:
		return "transient"
	case KindClient:
		return "client"
	case KindParse:
		return "parse"
	case KindStorage:
		return "storage"
	case KindRetriesExhausted:
		return "retries_exhausted"
	default:
		return "unknown"
	}
}

// Retryable reports whether the kind is eligible for bounded retry.
func (k Kind) Retryable() bool {
	return k == KindTransient
}

// Error is the tagged error carried across component boundaries.
type Error struct {
	Kind    Kind
	Op      string // operation that failed, e.g. "fred.fetch_series"
	Message string
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Err != nil && e.Message != "":
		return fmt.Sprintf("%s: %s [%s]: %v", e.Op, e.Message, e.Kind, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s [%s]: %v", e.Op, e.Kind, e.Err)
	default:
		return fmt.Sprintf("%s [%s]: %s", e.Op, e.Kind, e.Message)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a tagged error without an underlying cause.
func New(kind Kind, op, message string) *Error {
	return &Error{Kind: kind, Op: op, Message: message}
}

// Newf creates a tagged error with a formatted message.
func Newf(kind Kind, op, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Op: op, Message: fmt.Sprintf(format, args...)}
}

// Wrap tags an underlying error. Returns nil when err is nil.
func Wrap(kind Kind, op string, err error) *Error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// Wrapf tags an underlying error with additional context.
func Wrapf(kind Kind, op string, err error, format string, args ...interface{}) *Error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Message: fmt.Sprintf(format, args...), Err: err}
}

// KindOf extracts the Kind from an error chain, KindUnknown when untagged.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsTransient reports whether the error chain carries KindTransient.
func IsTransient(err error) bool { return KindOf(err) == KindTransient }

// IsConfig reports whether the error chain carries KindConfig.
func IsConfig(err error) bool { return KindOf(err) == KindConfig }

// IsValidation reports whether the error chain carries KindValidation.
func IsValidation(err error) bool { return KindOf(err) == KindValidation }

// IsStorage reports whether the error chain carries KindStorage.
func IsStorage(err error) bool { return KindOf(err) == KindStorage }

// IsRetriesExhausted reports whether the retry budget was consumed.
func IsRetriesExhausted(err error) bool { return KindOf(err) == KindRetriesExhausted }
