// Package authcore provides domain types and interfaces for a
// session based multi-factor authentication core.
package authcore

import (
	stderrors "errors"
	"fmt"

	"github.com/pkg/errors"
)

const (
	// EBadRequest represents a request rejected for a caller-side reason.
	EBadRequest ErrCode = "bad_request"
	// EInvalidField represents an entity field error in a repository.
	EInvalidField ErrCode = "invalid_field"
	// EInvalidSession represents a missing, expired or unauthorized session.
	EInvalidSession ErrCode = "invalid_session"
	// EThrottle represents a rate limited or temporarily blocked request.
	EThrottle ErrCode = "throttled"
	// EInvalidCode represents an incorrect OTP code submission.
	EInvalidCode ErrCode = "invalid_code"
	// EExpiredCode represents an OTP code submitted past its expiry.
	EExpiredCode ErrCode = "expired_code"
	// EMaxAttempts represents an OTP token that used up its attempt budget.
	EMaxAttempts ErrCode = "max_attempts"
	// ENotFound represents a missing OTP token for a verification request.
	ENotFound ErrCode = "not_found"
	// EInternal represents an internal error outside of our domain.
	EInternal ErrCode = "internal"
)

// Error represents an error within the authentication domain.
type Error interface {
	Error() string
	Message() string
	Code() ErrCode
}

// ErrCode is a machine readable code representing
// an error within the authentication domain.
type ErrCode string

// ErrBadRequest represents a client request error, such as invalid
// credentials. The message is safe to surface to the caller.
type ErrBadRequest string

func (e ErrBadRequest) Code() ErrCode   { return EBadRequest }
func (e ErrBadRequest) Message() string { return string(e) }
func (e ErrBadRequest) Error() string   { return fmt.Sprintf("[%s] %s", e.Code(), string(e)) }

// ErrInvalidField represents an error related to missing or invalid
// entity fields supplied to a repository.
type ErrInvalidField string

func (e ErrInvalidField) Code() ErrCode   { return EInvalidField }
func (e ErrInvalidField) Message() string { return string(e) }
func (e ErrInvalidField) Error() string   { return fmt.Sprintf("[%s] %s", e.Code(), string(e)) }

// ErrInvalidSession represents an error related to session expiry,
// termination, or an insufficient session state for an operation.
type ErrInvalidSession string

func (e ErrInvalidSession) Code() ErrCode   { return EInvalidSession }
func (e ErrInvalidSession) Message() string { return string(e) }
func (e ErrInvalidSession) Error() string   { return fmt.Sprintf("[%s] %s", e.Code(), string(e)) }

// ErrThrottle represents a rejection by the throttle ledger, either
// from an active block or a freshly exceeded ceiling.
type ErrThrottle string

func (e ErrThrottle) Code() ErrCode   { return EThrottle }
func (e ErrThrottle) Message() string { return string(e) }
func (e ErrThrottle) Error() string   { return fmt.Sprintf("[%s] %s", e.Code(), string(e)) }

// ErrInvalidCode represents an OTP code mismatch.
type ErrInvalidCode string

func (e ErrInvalidCode) Code() ErrCode   { return EInvalidCode }
func (e ErrInvalidCode) Message() string { return string(e) }
func (e ErrInvalidCode) Error() string   { return fmt.Sprintf("[%s] %s", e.Code(), string(e)) }

// ErrExpiredCode represents an OTP code used past its expiry.
type ErrExpiredCode string

func (e ErrExpiredCode) Code() ErrCode   { return EExpiredCode }
func (e ErrExpiredCode) Message() string { return string(e) }
func (e ErrExpiredCode) Error() string   { return fmt.Sprintf("[%s] %s", e.Code(), string(e)) }

// ErrMaxAttempts represents an OTP token whose fail counter reached
// its ceiling.
type ErrMaxAttempts string

func (e ErrMaxAttempts) Code() ErrCode   { return EMaxAttempts }
func (e ErrMaxAttempts) Message() string { return string(e) }
func (e ErrMaxAttempts) Error() string   { return fmt.Sprintf("[%s] %s", e.Code(), string(e)) }

// ErrNotFound represents a verification attempt against an OTP token
// that does not exist or was already consumed.
type ErrNotFound string

func (e ErrNotFound) Code() ErrCode   { return ENotFound }
func (e ErrNotFound) Message() string { return string(e) }
func (e ErrNotFound) Error() string   { return fmt.Sprintf("[%s] %s", e.Code(), string(e)) }

// DomainError returns a domain error if available.
func DomainError(err error) Error {
	if err == nil {
		return nil
	}

	var domainErr Error
	if stderrors.As(err, &domainErr) {
		return domainErr
	}

	if e, ok := errors.Cause(err).(Error); ok {
		return e
	}

	return nil
}

// ErrorCode returns the code associated with a domain error.
// If an error is not part of the authentication domain, it
// returns Internal.
func ErrorCode(err error) ErrCode {
	if err == nil {
		return ErrCode("")
	}

	e := DomainError(err)
	if e == nil {
		return EInternal
	}

	return e.Code()
}
