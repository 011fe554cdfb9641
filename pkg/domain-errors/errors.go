// Package domainerrors provides coded errors for the service layer.
//
// Stores return sentinel errors (pkg/platform/sentinel) for infrastructure
// facts; services translate those into coded errors so handlers can map each
// failure mode to a stable, machine-readable code. Nothing above the service
// layer should need to inspect error strings.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code identifies a class of failure. Codes are part of the API contract:
// handlers map them to HTTP statuses and clients branch on them.
type Code string

const (
	CodeBadRequest         Code = "bad_request"
	CodeInvalidInput       Code = "invalid_input"
	CodeValidation         Code = "validation_failed"
	CodeUnauthorized       Code = "unauthorized"
	CodeForbidden          Code = "forbidden"
	CodeNotFound           Code = "not_found"
	CodeConflict           Code = "conflict"
	CodeInvariantViolation Code = "invariant_violation"
	CodeInternal           Code = "internal_error"
	CodeTimeout            Code = "timeout"

	// Organization access control. Each denial reason gets its own code so
	// audit consumers and clients never see a generic "forbidden".
	CodeNotAMember       Code = "not_a_member"
	CodeInsufficientRole Code = "insufficient_role"
	CodeSelfModification Code = "self_modification_forbidden"
	CodeOwnerProtected   Code = "owner_protected"
	CodeNoActiveGrant    Code = "no_active_grant"

	// Encryption and ledger synchronization.
	CodeEncryptionKeyInvalid Code = "encryption_key_invalid"
	CodeDecryptionFailed     Code = "decryption_failed"
	CodeLedgerUnavailable    Code = "ledger_unavailable"
	CodeLedgerRejected       Code = "ledger_rejected"
	CodeBlobUnavailable      Code = "blob_store_unavailable"
)

// Error is a coded error. The message is safe to show to API callers for
// non-internal codes; internal messages stay in logs only.
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

// Is makes two coded errors equal when their code and message match, so
// errors.Is(err, New(code, msg)) works in tests and call sites.
func (e *Error) Is(target error) bool {
	var other *Error
	if !errors.As(target, &other) {
		return false
	}
	return e.Code == other.Code && e.Message == other.Message
}

// New creates a coded error with no underlying cause.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Newf creates a coded error with a formatted message.
func Newf(code Code, format string, args ...any) error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying error, preserving the
// chain for errors.Is/As.
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
		if err == nil {
			return false
		}
	}
	return false
}

// CodeOf returns the outermost code in the chain, or CodeInternal when the
// error carries no code.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// MessageOf returns the outermost coded message, or empty when uncoded.
func MessageOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Message
	}
	return ""
}
