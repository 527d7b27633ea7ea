package signer

import (
	"errors"
	"fmt"
)

// Kind classifies an Error.
type Kind int

const (
	// KindKeyInvalid reports key material of the wrong size or format.
	KindKeyInvalid Kind = iota + 1
	// KindProvider reports a failure inside a backing provider.
	KindProvider
)

func (k Kind) String() string {
	switch k {
	case KindKeyInvalid:
		return "key invalid"
	case KindProvider:
		return "provider error"
	default:
		return "unknown error"
	}
}

// Sentinels for errors.Is matching against an *Error of the same kind.
var (
	ErrKeyInvalid = &Error{Kind: KindKeyInvalid}
	ErrProvider   = &Error{Kind: KindProvider}
)

// Error is the error type returned by every provider and key constructor.
// Transient and permanent failures are not distinguished.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Msg != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	case e.Msg != "":
		return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	default:
		return e.Kind.String()
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error with the same Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// KeyInvalidf builds a KindKeyInvalid error.
func KeyInvalidf(format string, args ...any) error {
	return &Error{Kind: KindKeyInvalid, Msg: fmt.Sprintf(format, args...)}
}

// ProviderError wraps a backend failure. The cause's text is preserved.
func ProviderError(msg string, err error) error {
	return &Error{Kind: KindProvider, Msg: msg, Err: err}
}

// KindOf returns the Kind of err, or 0 if err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}
