package driven

import (
	"context"

	"github.com/custodia-labs/delegate/internal/core/domain"
)

// TokenExchanger talks to a provider's token endpoint.
// Every returned error is a *domain.AuthError.
type TokenExchanger interface {
	// Exchange trades an authorization code for tokens.
	Exchange(ctx context.Context, service domain.ServiceIdentifier, code string) (*domain.TokenSet, error)

	// Refresh obtains a new access token with a refresh token.
	// A nil TokenSet.RefreshToken means the provider kept the old one.
	Refresh(ctx context.Context, service domain.ServiceIdentifier, refreshToken string) (*domain.TokenSet, error)
}
