package domain

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestErrors_Existence tests that all error variables exist and are not nil
func TestErrors_Existence(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"ErrNotFound", ErrNotFound},
		{"ErrInvalidInput", ErrInvalidInput},
		{"ErrUnknownService", ErrUnknownService},
		{"ErrInvalidScopeOrState", ErrInvalidScopeOrState},
		{"ErrNotAuthorized", ErrNotAuthorized},
		{"ErrInvalidGrant", ErrInvalidGrant},
		{"ErrTransientProvider", ErrTransientProvider},
		{"ErrEncryption", ErrEncryption},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotNil(t, tt.err)
			assert.NotEmpty(t, tt.err.Error())
		})
	}
}

func TestAuthError_KindsAreDistinct(t *testing.T) {
	kinds := []error{ErrInvalidScopeOrState, ErrNotAuthorized, ErrInvalidGrant, ErrTransientProvider, ErrEncryption}
	for i, a := range kinds {
		for j, b := range kinds {
			assert.Equal(t, i == j, errors.Is(a, b), "%v vs %v", a, b)
		}
	}
}

func TestAuthError_Constructors(t *testing.T) {
	cause := errors.New("boom")
	tests := []struct {
		name string
		err  error
		kind error
	}{
		{"invalid state", InvalidScopeOrStateError("decode state", "", "empty", nil), ErrInvalidScopeOrState},
		{"not authorized", NotAuthorizedError("token", ServiceCalendar, "no record"), ErrNotAuthorized},
		{"invalid grant", InvalidGrantError("refresh", ServiceMusic, "revoked", cause), ErrInvalidGrant},
		{"transient", TransientProviderError("refresh", ServiceVideo, "", cause), ErrTransientProvider},
		{"encryption", EncryptionError("seal", "bad key", cause), ErrEncryption},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.err, tt.kind)
			assert.True(t, IsAuthError(tt.err))
		})
	}
}

func TestAuthError_UnwrapsCause(t *testing.T) {
	err := TransientProviderError("refresh", ServiceCalendar, "", context.DeadlineExceeded)

	assert.ErrorIs(t, err, ErrTransientProvider)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestAuthError_SurvivesWrapping(t *testing.T) {
	err := fmt.Errorf("ensure token: %w", InvalidGrantError("refresh", ServiceMusic, "", nil))

	var authErr *AuthError
	assert.ErrorAs(t, err, &authErr)
	assert.Equal(t, ServiceMusic, authErr.Service)
	assert.ErrorIs(t, err, ErrInvalidGrant)
}

func TestAuthError_Message(t *testing.T) {
	err := InvalidGrantError("refresh", ServiceCalendar, "token revoked", errors.New("invalid_grant"))

	assert.Equal(t, "invalid grant (refresh CALENDAR): token revoked: invalid_grant", err.Error())
	assert.Equal(t, "not authorized", (&AuthError{Kind: ErrNotAuthorized}).Error())
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(TransientProviderError("refresh", ServiceCalendar, "", nil)))
	assert.False(t, IsRetryable(InvalidGrantError("refresh", ServiceCalendar, "", nil)))
	assert.False(t, IsRetryable(NotAuthorizedError("token", ServiceCalendar, "")))
	assert.False(t, IsRetryable(errors.New("plain")))
	assert.False(t, IsRetryable(nil))
}

func TestRequiresConsent(t *testing.T) {
	assert.True(t, RequiresConsent(InvalidScopeOrStateError("decode state", "", "", nil)))
	assert.True(t, RequiresConsent(NotAuthorizedError("token", ServiceCalendar, "")))
	assert.True(t, RequiresConsent(InvalidGrantError("refresh", ServiceCalendar, "", nil)))
	assert.False(t, RequiresConsent(TransientProviderError("refresh", ServiceCalendar, "", nil)))
	assert.False(t, RequiresConsent(EncryptionError("open", "", nil)))
}
