package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnknownService indicates a service identifier that is not in the catalog.
	ErrUnknownService = errors.New("unknown service")
)

// Authorization error kinds. Every error returned across the authorization
// boundary matches exactly one of these with errors.Is.
var (
	// ErrInvalidScopeOrState indicates a malformed, missing or unknown CSRF state
	// (or an unknown service / rejected scope). The user must restart consent.
	ErrInvalidScopeOrState = errors.New("invalid scope or state")

	// ErrNotAuthorized indicates no authorization exists for the owner and service.
	ErrNotAuthorized = errors.New("not authorized")

	// ErrInvalidGrant indicates the provider rejected the code or refresh token.
	// Must not be retried silently; the user has to re-consent.
	ErrInvalidGrant = errors.New("invalid grant")

	// ErrTransientProvider indicates a timeout, network failure or 5xx-class response.
	// The record is unchanged and the call may be retried with backoff.
	ErrTransientProvider = errors.New("transient provider error")

	// ErrEncryption indicates a secret could not be sealed or opened.
	ErrEncryption = errors.New("encryption failure")
)

// AuthError carries one of the authorization error kinds together with the
// operation and service it occurred in.
type AuthError struct {
	// Kind is one of ErrInvalidScopeOrState, ErrNotAuthorized, ErrInvalidGrant,
	// ErrTransientProvider or ErrEncryption.
	Kind error
	// Op names the failing operation (e.g. "refresh", "exchange", "decode state").
	Op string
	// Service is the service identifier involved, if known.
	Service ServiceIdentifier
	// Detail is a short human-readable explanation.
	Detail string
	// Err is the underlying cause, if any.
	Err error
}

func (e *AuthError) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.Error())
	if e.Op != "" {
		fmt.Fprintf(&b, " (%s", e.Op)
		if e.Service != "" {
			fmt.Fprintf(&b, " %s", e.Service)
		}
		b.WriteString(")")
	}
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap exposes both the kind and the cause to errors.Is / errors.As.
func (e *AuthError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// InvalidScopeOrStateError builds an ErrInvalidScopeOrState error.
func InvalidScopeOrStateError(op string, service ServiceIdentifier, detail string, cause error) *AuthError {
	return &AuthError{Kind: ErrInvalidScopeOrState, Op: op, Service: service, Detail: detail, Err: cause}
}

// NotAuthorizedError builds an ErrNotAuthorized error.
func NotAuthorizedError(op string, service ServiceIdentifier, detail string) *AuthError {
	return &AuthError{Kind: ErrNotAuthorized, Op: op, Service: service, Detail: detail}
}

// InvalidGrantError builds an ErrInvalidGrant error.
func InvalidGrantError(op string, service ServiceIdentifier, detail string, cause error) *AuthError {
	return &AuthError{Kind: ErrInvalidGrant, Op: op, Service: service, Detail: detail, Err: cause}
}

// TransientProviderError builds an ErrTransientProvider error.
func TransientProviderError(op string, service ServiceIdentifier, detail string, cause error) *AuthError {
	return &AuthError{Kind: ErrTransientProvider, Op: op, Service: service, Detail: detail, Err: cause}
}

// EncryptionError builds an ErrEncryption error.
func EncryptionError(op string, detail string, cause error) *AuthError {
	return &AuthError{Kind: ErrEncryption, Op: op, Detail: detail, Err: cause}
}

// IsAuthError reports whether err already carries one of the authorization kinds.
func IsAuthError(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}

// IsRetryable returns true if the error is safe to retry automatically.
// Only transient provider errors qualify.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrTransientProvider)
}

// RequiresConsent returns true if the user must (re)start the consent flow.
func RequiresConsent(err error) bool {
	return errors.Is(err, ErrInvalidScopeOrState) ||
		errors.Is(err, ErrNotAuthorized) ||
		errors.Is(err, ErrInvalidGrant)
}
