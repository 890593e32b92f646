package core

import "github.com/pkg/errors"

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err *ValidationError) Error() string {
	if err.Err == nil {
		return "invalid input"
	}
	return err.Err.Error()
}

// FieldErrors returns the field errors as a {field: error} map.
func (err *ValidationError) FieldErrors() map[string]string {
	flds := make(map[string]string, len(err.Fields))
	for _, fe := range err.Fields {
		flds[fe.Field] = fe.Error
	}
	return flds
}

type shutdown struct {
	message string
}

// NewShutdownError returns an error that signals the app to shut down gracefully.
func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s *shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
