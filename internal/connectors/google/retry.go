package google

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/custodia-labs/delegate/internal/core/domain"
	"github.com/custodia-labs/delegate/internal/core/ports/driven"
	"github.com/custodia-labs/delegate/internal/logger"
)

// DefaultMaxTries bounds token attempts, the first one included.
const DefaultMaxTries = 3

// Ensure RetryingTokenProvider implements the interface.
var _ driven.TokenProvider = (*RetryingTokenProvider)(nil)

// RetryingTokenProvider retries transient token failures with exponential
// backoff. Every other failure is returned at once.
type RetryingTokenProvider struct {
	inner    driven.TokenProvider
	maxTries uint
	newBack  func() backoff.BackOff
}

// RetryOption configures a RetryingTokenProvider.
type RetryOption func(*RetryingTokenProvider)

// WithMaxTries sets the number of attempts.
func WithMaxTries(n uint) RetryOption {
	return func(p *RetryingTokenProvider) { p.maxTries = n }
}

// WithBackOff sets the backoff policy. The factory is called once per GetToken.
func WithBackOff(newBack func() backoff.BackOff) RetryOption {
	return func(p *RetryingTokenProvider) { p.newBack = newBack }
}

// NewRetryingTokenProvider wraps inner.
func NewRetryingTokenProvider(inner driven.TokenProvider, opts ...RetryOption) *RetryingTokenProvider {
	p := &RetryingTokenProvider{
		inner:    inner,
		maxTries: DefaultMaxTries,
		newBack: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 200 * time.Millisecond
			b.MaxInterval = 5 * time.Second
			return b
		},
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.maxTries == 0 {
		p.maxTries = 1
	}
	return p
}

// GetToken returns a valid access token.
func (p *RetryingTokenProvider) GetToken(ctx context.Context) (string, error) {
	return backoff.Retry(ctx, func() (string, error) {
		token, err := p.inner.GetToken(ctx)
		if err != nil && !domain.IsRetryable(err) {
			return "", backoff.Permanent(err)
		}
		return token, err
	},
		backoff.WithBackOff(p.newBack()),
		backoff.WithMaxTries(p.maxTries),
		backoff.WithNotify(func(err error, next time.Duration) {
			logger.Debug("Token for %s unavailable, retrying in %s: %v", p.inner.Service(), next, err)
		}),
	)
}

// Service returns the service the tokens are issued for.
func (p *RetryingTokenProvider) Service() domain.ServiceIdentifier {
	return p.inner.Service()
}
