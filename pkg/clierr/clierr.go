package clierr

import "errors"

// Type categorizes a CLI-facing error for consistent messaging and exit codes.
type Type string

const (
	Validation Type = "validation"
	NotFound   Type = "not_found"
	Auth       Type = "auth"
	Network    Type = "network"
	Internal   Type = "internal"
)

var exitCodes = map[Type]int{
	Validation: 2,
	NotFound:   3,
	Auth:       4,
	Network:    5,
	Internal:   1,
}

// Error is a structured user-facing error.
type Error struct {
	Type    Type
	Message string
	Err     error // optional underlying error
}

func (e *Error) Error() string { return e.Message }
func (e *Error) Unwrap() error { return e.Err }

// New constructs a new CLI Error.
func New(t Type, msg string, err error) *Error { return &Error{Type: t, Message: msg, Err: err} }

// TypeOf returns the Type of the first *Error in err's chain, Internal if there is none.
func TypeOf(err error) Type {
	var e *Error
	if errors.As(err, &e) {
		return e.Type
	}
	return Internal
}

// ExitCode maps err to the process exit status. A nil error is 0.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	if code, ok := exitCodes[TypeOf(err)]; ok {
		return code
	}
	return 1
}
