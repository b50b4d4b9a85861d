package errs

import (
	"errors"
)

// Code is a stable error identifier. Human-readable text for each code is
// supplied by configuration, not hard-coded here.
type Code string

const (
	CodeBookNotFound        Code = "BookNotFound"
	CodeBookUnavailable     Code = "BookUnavailable"
	CodeUserNotFound        Code = "UserNotFound"
	CodeRentalNotFound      Code = "RentalNotFound"
	CodeBookAlreadyReturned Code = "BookAlreadyReturned"
)

var ErrDuplicate = errors.New("already exists")

type Messages map[Code]string

// New builds an error carrying code and the configured text for it.
func (m Messages) New(code Code) error {
	text, ok := m[code]
	if !ok {
		text = string(code)
	}
	return &Error{code: code, text: text}
}

type Error struct {
	code Code
	text string
}

func (e *Error) Error() string {
	return e.text
}

func (e *Error) Code() Code {
	return e.code
}

// CodeOf extracts the stable code from err, "" if it carries none.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.code
	}
	return ""
}

func IsNotFound(err error) bool {
	switch CodeOf(err) {
	case CodeBookNotFound, CodeUserNotFound, CodeRentalNotFound:
		return true
	}
	return false
}

func IsConflict(err error) bool {
	switch CodeOf(err) {
	case CodeBookUnavailable, CodeBookAlreadyReturned:
		return true
	}
	return false
}
