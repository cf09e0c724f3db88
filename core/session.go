package core

import "github.com/pkg/errors"

var errNoClassSelected = errors.New("no class selected")

// Session carries what the signed-in teacher is working on.
// It is built by the caller (API claims + route, CLI flags) and passed explicitly to every operation.
type Session struct {
	Email     string // teacher's employeeId
	ClassCode string
}

func NewSession(email, classCode string) Session {
	return Session{
		Email:     CleanString(email, true /* lower */),
		ClassCode: CleanString(classCode),
	}
}

func (s Session) WithClass(classCode string) Session {
	s.ClassCode = CleanString(classCode)
	return s
}

// RequireClass fails with a ValidationError when no class is selected.
func (s Session) RequireClass() error {
	if s.ClassCode == "" {
		return NewValidationError(errNoClassSelected, FieldError{Field: "classCode", Error: errNoClassSelected.Error()})
	}
	return nil
}
