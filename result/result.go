// Package result defines the result codes returned by shellgeist API calls
// and command handlers, and a coded error type carrying them.
package result

import (
	"errors"
	"fmt"
)

// Code is a result code. OK indicates success, every other value a failure.
//
// The numeric values are stable. New codes are only ever appended.
type Code int

const (
	OK                Code = iota // operation completed successfully
	InvalidArgument               // one or more arguments were empty or invalid
	NotInitialized                // engine not created or already destroyed
	AlreadyRegistered             // command name already registered
	Internal                      // invariant violation inside the engine or a handler
	Unsupported                   // capability not compiled in
	NotFound                      // unknown command or session
	NotAuthenticated              // reserved for an access-control layer
	PermissionDenied              // reserved for an access-control layer
	NotImplemented                // feature not implemented
)

var codeNames = [...]string{
	OK:                "ok",
	InvalidArgument:   "invalid argument",
	NotInitialized:    "not initialized",
	AlreadyRegistered: "already registered",
	Internal:          "internal error",
	Unsupported:       "unsupported",
	NotFound:          "not found",
	NotAuthenticated:  "not authenticated",
	PermissionDenied:  "permission denied",
	NotImplemented:    "not implemented",
}

// String returns the human readable name of the code.
func (c Code) String() string {
	if c >= 0 && int(c) < len(codeNames) {
		return codeNames[c]
	}
	return fmt.Sprintf("unknown result (%d)", int(c))
}

// Error is an error carrying a result code.
type Error struct {
	Code Code
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Msg != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Msg, e.Err)
	case e.Msg != "":
		return fmt.Sprintf("%s: %s", e.Code, e.Msg)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Code, e.Err)
	}
	return e.Code.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is a *Error with the same code, so that
// errors.Is(err, result.New(result.NotFound, "")) matches any NotFound.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// New returns an error with the given code and message.
func New(code Code, msg string) *Error {
	return &Error{Code: code, Msg: msg}
}

// Errorf returns an error with the given code and a formatted message.
func Errorf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Msg: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code to err. A nil err yields nil.
func Wrap(code Code, err error, msg string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Msg: msg, Err: err}
}

// CodeOf maps an error to its result code: nil is OK, a coded error keeps
// its code and everything else is Internal.
func CodeOf(err error) Code {
	if err == nil {
		return OK
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return Internal
}

// Sentinels for errors.Is checks.
var (
	ErrInvalidArgument   = New(InvalidArgument, "")
	ErrNotInitialized    = New(NotInitialized, "")
	ErrAlreadyRegistered = New(AlreadyRegistered, "")
	ErrInternal          = New(Internal, "")
	ErrUnsupported       = New(Unsupported, "")
	ErrNotFound          = New(NotFound, "")
	ErrNotImplemented    = New(NotImplemented, "")
)
