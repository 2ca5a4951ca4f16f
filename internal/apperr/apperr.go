// Package apperr defines the error kinds the ingestion and answering
// pipeline distinguishes for callers.
package apperr

import (
	"errors"
	"fmt"
)

type Kind string

const (
	UnsupportedFormat Kind = "UNSUPPORTED_FORMAT"
	ExtractionFailure Kind = "EXTRACTION_FAILURE"
	EmptyInput        Kind = "EMPTY_INPUT"
	DuplicateDocument Kind = "DUPLICATE_DOCUMENT"
	IndexNotFound     Kind = "INDEX_NOT_FOUND"
	InvalidQuestion   Kind = "INVALID_QUESTION"
	InvalidDocument   Kind = "INVALID_DOCUMENT"
	EmbeddingFailure  Kind = "EMBEDDING_SERVICE_ERROR"
	CompletionFailure Kind = "COMPLETION_SERVICE_ERROR"
	AnsweringFailure  Kind = "ANSWERING_FAILURE"
)

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

// New creates an error of the given kind
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind to an underlying cause
func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// KindOf reports the kind carried by err, or "" for untyped errors
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsKind reports whether err carries the given kind
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
