package google

import (
	"context"
	"time"

	"golang.org/x/oauth2"

	"github.com/custodia-labs/delegate/internal/core/ports/driven"
)

// reuseWindow is how long an oauth2 client may cache a token before asking
// the provider again. Expiry itself is tracked by the authorization service.
const reuseWindow = time.Minute

// TokenSourceAdapter adapts a TokenProvider to oauth2.TokenSource.
type TokenSourceAdapter struct {
	provider driven.TokenProvider
	ctx      context.Context
	now      func() time.Time
}

// NewTokenSource creates an oauth2.TokenSource from a TokenProvider.
// The returned TokenSource can be used with option.WithTokenSource() when
// creating Google API services.
func NewTokenSource(ctx context.Context, provider driven.TokenProvider) oauth2.TokenSource {
	return &TokenSourceAdapter{
		provider: provider,
		ctx:      ctx,
		now:      time.Now,
	}
}

// Token implements oauth2.TokenSource interface.
func (t *TokenSourceAdapter) Token() (*oauth2.Token, error) {
	accessToken, err := t.provider.GetToken(t.ctx)
	if err != nil {
		return nil, err
	}

	return &oauth2.Token{
		AccessToken: accessToken,
		TokenType:   "Bearer",
		Expiry:      t.now().Add(reuseWindow),
	}, nil
}
