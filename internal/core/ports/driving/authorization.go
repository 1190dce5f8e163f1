package driving

import (
	"context"

	"github.com/custodia-labs/delegate/internal/core/domain"
)

// AuthorizationService runs the consent flow and hands out fresh tokens.
// All errors are *domain.AuthError values.
type AuthorizationService interface {
	// StartAuthorization returns the provider URL the user must visit.
	StartAuthorization(ctx context.Context, service domain.ServiceIdentifier) (string, error)

	// HandleCallback completes the consent flow for ownerID with the code and
	// state the provider redirected back with, and stores the credentials.
	HandleCallback(ctx context.Context, ownerID, code, state string) (*domain.AuthorizationRecord, error)

	// HandleProviderError turns an error redirect (error=access_denied, ...)
	// into a typed error.
	HandleProviderError(ctx context.Context, state, code, description string) error

	// EnsureFreshToken returns a valid access token, refreshing it if expired.
	EnsureFreshToken(ctx context.Context, ownerID string, service domain.ServiceIdentifier) (string, error)

	// Status summarises every configured service for ownerID.
	Status(ctx context.Context, ownerID string) ([]domain.AuthorizationSummary, error)
}
