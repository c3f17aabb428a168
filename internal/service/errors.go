package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ukydev/vehicle-rental/internal/db"
	"github.com/ukydev/vehicle-rental/internal/lock"
)

// Error kinds. Match them with errors.Is.
var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrForbidden    = errors.New("forbidden")
	ErrInvalidState = errors.New("invalid state")
)

// Error is a classified failure with a message meant for the caller.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Kind }

func newError(kind error, format string, args ...interface{}) error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func invalidInput(format string, args ...interface{}) error {
	return newError(ErrInvalidInput, format, args...)
}

func notFound(format string, args ...interface{}) error {
	return newError(ErrNotFound, format, args...)
}

func conflict(format string, args ...interface{}) error {
	return newError(ErrConflict, format, args...)
}

func forbidden(format string, args ...interface{}) error {
	return newError(ErrForbidden, format, args...)
}

func invalidState(format string, args ...interface{}) error {
	return newError(ErrInvalidState, format, args...)
}

// fromStore classifies persistence errors about one kind of document, e.g.
// "Vehicle". Unknown errors are returned unchanged.
func fromStore(err error, what string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, db.ErrNotFound):
		return notFound("%s not found", what)
	case errors.Is(err, db.ErrInvalidID):
		return invalidInput("Invalid %s ID", strings.ToLower(what))
	case errors.Is(err, db.ErrVersionConflict):
		return conflict("%s was modified concurrently, please retry", what)
	case errors.Is(err, lock.ErrTimeout):
		return conflict("%s is busy, please retry", what)
	}
	return err
}
