package main

import "github.com/pkg/errors"

var (
	errHelp          = errors.New("help provided")
	errNoPassword    = errors.New("password is required")
	errMigrateEngine = errors.New("migrate requires the postgres store engine")
)

// ArgumentError is returned when the arguments of a command are invalid.
type ArgumentError struct {
	msg string
}

func NewArgumentError(msg string) *ArgumentError {
	return &ArgumentError{msg}
}

func (err *ArgumentError) Error() string {
	return err.msg
}
