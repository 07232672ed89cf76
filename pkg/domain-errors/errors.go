// Package domainerrors provides coded errors for the service layer.
//
// Infrastructure returns sentinel errors (pkg/platform/sentinel); services
// translate them into coded errors here so transport can map codes to HTTP
// statuses without inspecting error strings.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code classifies a domain error.
type Code string

const (
	// CodeInvalidProof covers cryptographic failures: bad signatures, bad
	// HMACs, tampered state tokens. Terminal for the request.
	CodeInvalidProof Code = "invalid_proof"
	// CodeExpiredProof covers proofs whose timestamp fell outside its
	// freshness window. Terminal for the request.
	CodeExpiredProof Code = "expired_proof"
	// CodeAlreadyLinked signals a wallet or social handle verified by a
	// different account. Surfaced distinctly so callers can say so.
	CodeAlreadyLinked Code = "already_linked"
	// CodeProviderUnavailable signals an upstream provider failure. The
	// caller may retry; the core never retries on its own.
	CodeProviderUnavailable Code = "provider_unavailable"
	// CodePartialMerge signals that a merge step failed after earlier steps
	// applied. The merge is resumable by re-invoking it.
	CodePartialMerge Code = "partial_merge"

	CodeInvalidInput Code = "invalid_input"
	CodeValidation   Code = "validation"
	CodeNotFound     Code = "not_found"
	CodeConflict     Code = "conflict"
	CodeUnauthorized Code = "unauthorized"
	CodeInternal     Code = "internal"
)

// Error is a coded error, optionally wrapping a cause.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New creates a coded error with no cause.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Newf creates a coded error with a formatted message.
func Newf(code Code, format string, args ...any) error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying error. A nil err yields
// nil so call sites can wrap unconditionally.
func Wrap(err error, code Code, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, cause: err}
}

// HasCode reports whether any error in the chain carries the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	for errors.As(err, &de) {
		if de.Code == code {
			return true
		}
		err = de.cause
		de = nil
	}
	return false
}

// CodeOf returns the outermost code in the chain, or CodeInternal if the
// error carries none.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// Is delegates to errors.Is for chains that mix coded and sentinel errors.
func Is(err, target error) bool { return errors.Is(err, target) }
