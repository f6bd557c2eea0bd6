// Package errors holds the typed errors shared by the sketches and the
// services exposing them. Each type knows the HTTP status it maps to.
package errors

import (
	"fmt"
	"net/http"
)

// InvalidArgument is a caller-recoverable contract violation, such as a NaN
// value, an out of range quantile or an unknown serialization tag.
// It is always reported before any state is mutated.
type InvalidArgument string

func NewInvalidArgument(err string) InvalidArgument {
	return InvalidArgument(err)
}

func NewInvalidArgumentf(format string, a ...interface{}) InvalidArgument {
	return InvalidArgument(fmt.Sprintf(format, a...))
}

func (i InvalidArgument) HTTPStatusCode() int {
	return http.StatusBadRequest
}

func (i InvalidArgument) Error() string {
	return string(i)
}

// Internal marks a broken invariant. These are raised as panics, never returned.
type Internal string

func NewInternal(err string) Internal {
	return Internal(err)
}

func (i Internal) HTTPStatusCode() int {
	return http.StatusInternalServerError
}

func (i Internal) Error() string {
	return string(i)
}

type NotFound string

func NewNotFound(err string) NotFound {
	return NotFound(err)
}

func (n NotFound) HTTPStatusCode() int {
	return http.StatusNotFound
}

func (n NotFound) Error() string {
	return string(n)
}

// IsInvalidArgument reports whether err is an InvalidArgument.
func IsInvalidArgument(err error) bool {
	_, ok := err.(InvalidArgument)
	return ok
}
