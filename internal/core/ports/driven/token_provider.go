package driven

import (
	"context"

	"github.com/custodia-labs/delegate/internal/core/domain"
)

// TokenProvider provides access tokens for authenticated API calls
// on behalf of one owner and service.
// Implementations handle token refresh transparently.
type TokenProvider interface {
	// GetToken returns a valid access token.
	// If the current token is expired, it will be refreshed automatically.
	GetToken(ctx context.Context) (string, error)

	// Service returns the service the tokens are issued for.
	Service() domain.ServiceIdentifier
}
