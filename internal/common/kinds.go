package common

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is the numeric, machine-readable code of a caller-facing error.
// The set is closed: handlers switch on it to build transport responses.
type Kind int

const (
	KindDuplicateBook Kind = iota + 1
	KindQuotaExceeded
	KindBookNotFound
	KindDuplicateName
	KindUnknownField
	KindUploadFailure
	KindInvalidParameter
)

// String returns the symbolic name of the kind.
func (k Kind) String() string {
	switch k {
	case KindDuplicateBook:
		return "DuplicateBook"
	case KindQuotaExceeded:
		return "QuotaExceeded"
	case KindBookNotFound:
		return "BookNotFound"
	case KindDuplicateName:
		return "DuplicateName"
	case KindUnknownField:
		return "UnknownField"
	case KindUploadFailure:
		return "UploadFailure"
	case KindInvalidParameter:
		return "InvalidParameter"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// HTTPStatus returns the status code a transport should answer with.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindDuplicateBook:
		return http.StatusConflict
	case KindQuotaExceeded:
		return http.StatusUpgradeRequired
	case KindBookNotFound:
		return http.StatusNotFound
	case KindDuplicateName, KindUnknownField, KindInvalidParameter:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// Error is a caller-facing error of the closed taxonomy above.
//
// Usage:
//
//	if errors.Is(err, common.ErrBookNotFound) { ... }
//
//	var e *common.Error
//	if errors.As(err, &e) {
//	    w.WriteHeader(e.Status)
//	}
type Error struct {
	Kind    Kind
	Status  int
	Message string
	cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

// Unwrap returns the wrapped cause, if any.
func (e *Error) Unwrap() error {
	return e.cause
}

// Is matches any *Error with the same Kind.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Kind == t.Kind
	}
	return false
}

// WithMessage returns a copy of e carrying msg.
func (e *Error) WithMessage(msg string) *Error {
	return &Error{Kind: e.Kind, Status: e.Status, Message: msg, cause: e.cause}
}

// WithCause returns a copy of e wrapping err.
func (e *Error) WithCause(err error) *Error {
	return &Error{Kind: e.Kind, Status: e.Status, Message: e.Message, cause: err}
}

func newError(k Kind, msg string) *Error {
	return &Error{Kind: k, Status: k.HTTPStatus(), Message: msg}
}

// Sentinels for errors.Is.
var (
	ErrDuplicateBook    = newError(KindDuplicateBook, "a book with this id already exists")
	ErrQuotaExceeded    = newError(KindQuotaExceeded, "book storage limit reached")
	ErrBookNotFound     = newError(KindBookNotFound, "no book with this id exists")
	ErrDuplicateName    = newError(KindDuplicateName, "a tag with this name already exists on the book")
	ErrUnknownField     = newError(KindUnknownField, "book has no such field")
	ErrUploadFailure    = newError(KindUploadFailure, "uploading the book data failed")
	ErrInvalidParameter = newError(KindInvalidParameter, "invalid parameter")
)
