// Package errors provides the tagged error kinds raised by product operations
// and the request pipeline.
package errors

import (
	"errors"
	"fmt"
)

// Kind identifies the category of an Error. The set is closed.
type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindValidation
	KindMalformedBody
	KindMissingParameter
	KindUnauthorized
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindValidation:
		return "validation"
	case KindMalformedBody:
		return "malformed_body"
	case KindMissingParameter:
		return "missing_parameter"
	case KindUnauthorized:
		return "unauthorized"
	default:
		return "internal"
	}
}

// Error is a tagged error. Fields carries per-field rule failures for KindValidation.
type Error struct {
	Kind    Kind
	Message string
	Fields  map[string]string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error of the same kind and message, so sentinels work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Message == e.Message
}

var ErrProductNotFound = &Error{Kind: KindNotFound, Message: "Product not found"}

var ErrIDCollision = errors.New("generated product id already exists")

// NotFound returns a KindNotFound error with the given message.
func NotFound(message string) *Error {
	return &Error{Kind: KindNotFound, Message: message}
}

// Validation returns a KindValidation error. fields may be nil.
func Validation(message string, fields map[string]string) *Error {
	return &Error{Kind: KindValidation, Message: message, Fields: fields}
}

// MalformedBody returns a KindMalformedBody error wrapping the decode failure.
func MalformedBody(message string, cause error) *Error {
	return &Error{Kind: KindMalformedBody, Message: message, Err: cause}
}

// MissingParameter returns a KindMissingParameter error for the named query parameter.
func MissingParameter(name string) *Error {
	return &Error{Kind: KindMissingParameter, Message: fmt.Sprintf("Query parameter %q is required", name)}
}

// Unauthorized returns a KindUnauthorized error.
func Unauthorized(message string) *Error {
	return &Error{Kind: KindUnauthorized, Message: message}
}

// KindOf reports the kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}
