package core

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

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

func (err ValidationError) Error() string {
	if err.Err == nil {
		if len(err.Fields) > 0 {
			return err.Fields[0].Field + ": " + err.Fields[0].Error
		}
		return ""
	}
	return err.Err.Error()
}

func IsValidation(err error) bool {
	_, ok := errors.Cause(err).(*ValidationError)
	return ok
}

// TransportError is returned by DocumentStore implementations when the backing store rejects a call.
type TransportError struct {
	Op  string
	Err error
}

func NewTransportError(op string, err error) error {
	return &TransportError{Op: op, Err: err}
}

func (err TransportError) Error() string {
	return fmt.Sprintf("store %s: %v", err.Op, err.Err)
}

func (err TransportError) Cause() error { return err.Err }

// IsTransport reports whether a TransportError is found anywhere in err's chain.
func IsTransport(err error) bool {
	for err != nil {
		if _, ok := err.(*TransportError); ok {
			return true
		}
		c, ok := err.(interface{ Cause() error })
		if !ok {
			return false
		}
		err = c.Cause()
	}
	return false
}

// BulkFailure is the failed write of a single document during a bulk operation.
type BulkFailure struct {
	ID  string
	Err error
}

// BulkError collects the independent failures of a multi-document operation.
// Successful writes are never rolled back.
type BulkError struct {
	Op       string
	Total    int
	Failures []BulkFailure
}

func (err BulkError) Error() string {
	ids := make([]string, 0, len(err.Failures))
	for _, f := range err.Failures {
		ids = append(ids, f.ID)
	}
	return fmt.Sprintf("%s: %d of %d writes failed (%s)", err.Op, len(err.Failures), err.Total, strings.Join(ids, ", "))
}

type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
