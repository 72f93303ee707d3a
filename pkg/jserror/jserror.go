// Package jserror defines the two error classes raised by the engine:
// user-visible language errors, which propagate as thrown exceptions, and
// internal faults, which indicate a defect in the compiler or VM itself
// and stop execution immediately.
package jserror

import (
	"errors"
	"fmt"

	pkgerrors "github.com/pkg/errors"
)

// Kind identifies the constructor of a native language error.
type Kind uint8

const (
	KindError Kind = iota
	KindTypeError
	KindReferenceError
	KindSyntaxError
	KindRangeError
)

// String returns the error constructor name.
func (k Kind) String() string {
	switch k {
	case KindError:
		return "Error"
	case KindTypeError:
		return "TypeError"
	case KindReferenceError:
		return "ReferenceError"
	case KindSyntaxError:
		return "SyntaxError"
	case KindRangeError:
		return "RangeError"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

// NativeError is a language error raised by the engine. It is visible to
// the running program and travels the normal throw path.
type NativeError struct {
	Kind    Kind
	Message string
}

func (e *NativeError) Error() string {
	if e.Message == "" {
		return e.Kind.String()
	}
	return e.Kind.String() + ": " + e.Message
}

// Typ returns a TypeError with a formatted message.
func Typ(format string, args ...any) *NativeError {
	return &NativeError{Kind: KindTypeError, Message: fmt.Sprintf(format, args...)}
}

// Reference returns a ReferenceError with a formatted message.
func Reference(format string, args ...any) *NativeError {
	return &NativeError{Kind: KindReferenceError, Message: fmt.Sprintf(format, args...)}
}

// Syntax returns a SyntaxError with a formatted message.
func Syntax(format string, args ...any) *NativeError {
	return &NativeError{Kind: KindSyntaxError, Message: fmt.Sprintf(format, args...)}
}

// Range returns a RangeError with a formatted message.
func Range(format string, args ...any) *NativeError {
	return &NativeError{Kind: KindRangeError, Message: fmt.Sprintf(format, args...)}
}

// AsNative reports whether err wraps a NativeError and returns it.
func AsNative(err error) (*NativeError, bool) {
	var ne *NativeError
	if errors.As(err, &ne) {
		return ne, true
	}
	return nil, false
}

// Fault is an internal consistency fault: an unbalanced scope pop, a
// jump-table selector that is not an integer, a locator resolved against
// the wrong environment. Faults are never reported to the running program.
type Fault struct {
	err error
}

// Faultf creates a Fault recording the caller's stack.
func Faultf(format string, args ...any) *Fault {
	return &Fault{err: pkgerrors.Errorf(format, args...)}
}

func (f *Fault) Error() string {
	return "internal fault: " + f.err.Error()
}

// Unwrap returns the underlying stack-carrying error.
func (f *Fault) Unwrap() error {
	return f.err
}

// Format prints the recorded stack trace for %+v.
func (f *Fault) Format(s fmt.State, verb rune) {
	switch verb {
	case 'v':
		if s.Flag('+') {
			fmt.Fprintf(s, "internal fault: %+v", f.err)
			return
		}
		fallthrough
	case 's':
		fmt.Fprint(s, f.Error())
	case 'q':
		fmt.Fprintf(s, "%q", f.Error())
	}
}

// IsFault reports whether err is or wraps a Fault.
func IsFault(err error) bool {
	var f *Fault
	return errors.As(err, &f)
}
