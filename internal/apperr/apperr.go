// Package apperr defines the error taxonomy shared by the analysis pipeline.
// Every failure crossing a component boundary is classified into one of five
// kinds so that callers can map them to transport-level responses without
// inspecting messages.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies a pipeline failure.
type Kind int

const (
	// KindConfig means required credentials or endpoints are absent.
	KindConfig Kind = iota
	// KindInput means a document is empty or could not be parsed.
	KindInput
	// KindDependency means an embedding or completion service call failed.
	KindDependency
	// KindNotFound means a query was issued against a missing index location.
	KindNotFound
	// KindSchema means the comparator output failed schema conformance.
	KindSchema
)

func (k Kind) String() string {
	switch k {
	case KindConfig:
		return "config"
	case KindInput:
		return "input"
	case KindDependency:
		return "dependency"
	case KindNotFound:
		return "not_found"
	case KindSchema:
		return "schema_validation"
	default:
		return "unknown"
	}
}

// Error is a classified pipeline error. Raw holds the offending model
// response for schema validation failures and is empty otherwise.
type Error struct {
	Kind Kind
	Raw  string

	msg   string
	cause error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.msg, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.msg)
}

func (e *Error) Unwrap() error { return e.cause }

// Configf reports missing or invalid configuration.
func Configf(format string, args ...any) *Error {
	return &Error{Kind: KindConfig, msg: fmt.Sprintf(format, args...)}
}

// Inputf reports an unusable input document.
func Inputf(format string, args ...any) *Error {
	return &Error{Kind: KindInput, msg: fmt.Sprintf(format, args...)}
}

// Input wraps a parsing failure.
func Input(cause error, msg string) *Error {
	return &Error{Kind: KindInput, msg: msg, cause: cause}
}

// Dependency wraps a failed remote service call.
func Dependency(cause error, msg string) *Error {
	return &Error{Kind: KindDependency, msg: msg, cause: cause}
}

// NotFoundf reports a missing index location.
func NotFoundf(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, msg: fmt.Sprintf(format, args...)}
}

// Schema reports a model response that failed strict validation. The raw
// response is preserved verbatim for diagnosis.
func Schema(raw, msg string) *Error {
	return &Error{Kind: KindSchema, Raw: raw, msg: msg}
}

// SchemaWrap is like Schema but keeps the underlying decode error.
func SchemaWrap(cause error, raw, msg string) *Error {
	return &Error{Kind: KindSchema, Raw: raw, msg: msg, cause: cause}
}

// IsKind reports whether err or any error it wraps is an *Error of kind k.
func IsKind(err error, k Kind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == k
}

// KindOf returns the kind of err, or ok=false when err carries no taxonomy.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if !errors.As(err, &e) {
		return 0, false
	}
	return e.Kind, true
}
