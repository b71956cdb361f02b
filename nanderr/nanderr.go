// Package nanderr defines the typed error kinds shared across the NAND
// control plane, so callers can switch on a stable kind instead of
// matching error strings.
package nanderr

import (
	"github.com/pkg/errors"
)

// Kind identifies one of the taxonomy's error categories.
type Kind string

const (
	OutOfRange            Kind = "out_of_range"
	BadBlock              Kind = "bad_block"
	Uncorrectable         Kind = "uncorrectable"
	InputTooLarge         Kind = "input_too_large"
	InvalidCompressedData Kind = "invalid_compressed_data"
	Transport             Kind = "transport"
	Timeout               Kind = "timeout"
	Cancelled             Kind = "cancelled"
	ShutDown              Kind = "shut_down"
	NoGoodBlocks          Kind = "no_good_blocks"
	Corrupt               Kind = "corrupt"
)

// Error is a typed error carrying a Kind alongside the usual message.
type Error struct {
	Kind Kind
	msg  string
}

func (e *Error) Error() string { return string(e.Kind) + ": " + e.msg }

// New creates a typed error of the given kind.
func New(kind Kind, msg string) error {
	return &Error{Kind: kind, msg: msg}
}

// Errorf creates a typed error of the given kind with a formatted message.
func Errorf(kind Kind, format string, args ...interface{}) error {
	return &Error{Kind: kind, msg: errors.Errorf(format, args...).Error()}
}

// Is reports whether err (or any error in its wrap chain) carries kind.
func Is(err error, kind Kind) bool {
	var target *Error
	for err != nil {
		if e, ok := err.(*Error); ok {
			target = e
			break
		}
		err = errors.Unwrap(err)
	}
	return target != nil && target.Kind == kind
}

// KindOf returns the Kind of err if it (or something in its wrap chain) is
// a *Error, and ok=false otherwise.
func KindOf(err error) (Kind, bool) {
	for err != nil {
		if e, ok := err.(*Error); ok {
			return e.Kind, true
		}
		err = errors.Unwrap(err)
	}
	return "", false
}
