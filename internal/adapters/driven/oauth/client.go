// Package oauth talks to provider token endpoints: it exchanges authorization
// codes, refreshes access tokens and classifies provider failures.
package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/custodia-labs/delegate/internal/core/domain"
	"github.com/custodia-labs/delegate/internal/core/ports/driven"
	"github.com/custodia-labs/delegate/internal/logger"
)

// Ensure Client implements the interface.
var _ driven.TokenExchanger = (*Client)(nil)

const (
	// DefaultTimeout bounds a single token request.
	DefaultTimeout = 30 * time.Second

	grantAuthorizationCode = "authorization_code"
	grantRefreshToken      = "refresh_token"

	maxResponseBytes = 1 << 20

	// maxLifetime caps expires_in so absurd values cannot overflow.
	maxLifetime = 365 * 24 * time.Hour
)

// RateLimitConfig is the token request budget of one provider.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate limit.
	RequestsPerSecond float64
	// BurstSize is the maximum burst size.
	BurstSize int
}

// DefaultRateLimits are conservative token endpoint budgets per provider.
var DefaultRateLimits = map[domain.ProviderSource]RateLimitConfig{
	domain.ProviderGoogle:  {RequestsPerSecond: 5.0, BurstSize: 10},
	domain.ProviderSpotify: {RequestsPerSecond: 2.0, BurstSize: 5},
}

// fallbackRateLimit applies to providers without a default.
var fallbackRateLimit = RateLimitConfig{RequestsPerSecond: 2.0, BurstSize: 5}

var tokenRequests = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "delegate_token_requests_total",
		Help: "Total number of token endpoint requests",
	},
	[]string{"provider", "grant", "outcome"},
)

// Options configures the client. Zero values take defaults.
type Options struct {
	// Timeout bounds each request. Defaults to DefaultTimeout.
	Timeout time.Duration
	// MaxFailures is the number of consecutive transient failures that opens
	// a provider's circuit breaker. Defaults to 5.
	MaxFailures uint32
	// OpenTimeout is how long an open breaker rejects requests. Defaults to 30s.
	OpenTimeout time.Duration
	// HTTPClient overrides the HTTP client.
	HTTPClient *http.Client
	// Now overrides the time source used to compute expiry.
	Now func() time.Time
}

type providerGuard struct {
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
}

// Client implements driven.TokenExchanger with form-encoded POSTs.
type Client struct {
	catalog    *domain.ServiceCatalog
	httpClient *http.Client
	timeout    time.Duration
	now        func() time.Time
	guards     map[domain.ProviderSource]*providerGuard
}

// NewClient creates a token client for every provider in catalog.
func NewClient(catalog *domain.ServiceCatalog, opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.MaxFailures == 0 {
		opts.MaxFailures = 5
	}
	if opts.OpenTimeout <= 0 {
		opts.OpenTimeout = 30 * time.Second
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: opts.Timeout}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	c := &Client{
		catalog:    catalog,
		httpClient: opts.HTTPClient,
		timeout:    opts.Timeout,
		now:        opts.Now,
		guards:     make(map[domain.ProviderSource]*providerGuard),
	}
	for _, id := range catalog.Services() {
		entry, err := catalog.Lookup(id)
		if err != nil {
			continue
		}
		source := entry.ProviderSource()
		if _, ok := c.guards[source]; ok {
			continue
		}
		limits := rateLimitFor(entry.Provider())
		c.guards[source] = &providerGuard{
			limiter: rate.NewLimiter(rate.Limit(limits.RequestsPerSecond), limits.BurstSize),
			breaker: newBreaker(string(source), opts.MaxFailures, opts.OpenTimeout),
		}
	}
	return c
}

// rateLimitFor returns the provider's configured budget, filling unset
// values from DefaultRateLimits.
func rateLimitFor(provider domain.ProviderConfig) RateLimitConfig {
	cfg, ok := DefaultRateLimits[provider.Source]
	if !ok {
		cfg = fallbackRateLimit
	}
	if provider.RateLimit > 0 {
		cfg.RequestsPerSecond = provider.RateLimit
	}
	if provider.Burst > 0 {
		cfg.BurstSize = provider.Burst
	}
	return cfg
}

func newBreaker(name string, maxFailures uint32, openTimeout time.Duration) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "token-" + name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     openTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Circuit breaker %s changed from %s to %s", name, from, to)
		},
		// Provider rejections are answers, not outages.
		IsSuccessful: func(err error) bool {
			return err == nil || !errors.Is(err, domain.ErrTransientProvider)
		},
	})
}

// Exchange trades an authorization code for tokens.
func (c *Client) Exchange(ctx context.Context, service domain.ServiceIdentifier, code string) (*domain.TokenSet, error) {
	entry, err := c.catalog.Lookup(service)
	if err != nil {
		return nil, err
	}
	form := url.Values{}
	form.Set("grant_type", grantAuthorizationCode)
	form.Set("code", code)
	form.Set("redirect_uri", entry.Provider().RedirectURI)
	return c.request(ctx, entry, grantAuthorizationCode, form)
}

// Refresh obtains a new access token with a refresh token.
func (c *Client) Refresh(
	ctx context.Context,
	service domain.ServiceIdentifier,
	refreshToken string,
) (*domain.TokenSet, error) {
	entry, err := c.catalog.Lookup(service)
	if err != nil {
		return nil, err
	}
	form := url.Values{}
	form.Set("grant_type", grantRefreshToken)
	form.Set("refresh_token", refreshToken)
	return c.request(ctx, entry, grantRefreshToken, form)
}

func (c *Client) request(
	ctx context.Context,
	entry domain.ServiceEntry,
	grant string,
	form url.Values,
) (*domain.TokenSet, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	tokens, err := c.guarded(ctx, entry, form)
	tokenRequests.WithLabelValues(string(entry.ProviderSource()), grant, outcome(err)).Inc()
	if err != nil {
		logger.Debug("Token request %s for %s failed: %v", grant, entry.ID(), err)
		return nil, err
	}
	logger.Debug("Token request %s for %s succeeded", grant, entry.ID())
	return tokens, nil
}

func (c *Client) guarded(ctx context.Context, entry domain.ServiceEntry, form url.Values) (*domain.TokenSet, error) {
	service := entry.ID()
	guard, ok := c.guards[entry.ProviderSource()]
	if !ok {
		return c.post(ctx, entry, form)
	}

	if err := guard.limiter.Wait(ctx); err != nil {
		return nil, domain.TransientProviderError(classifyOp, service, "rate limit wait aborted", err)
	}

	result, err := guard.breaker.Execute(func() (interface{}, error) {
		return c.post(ctx, entry, form)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, domain.TransientProviderError(classifyOp, service, "provider circuit breaker is open", err)
	}
	if err != nil {
		return nil, err
	}
	return result.(*domain.TokenSet), nil
}

// tokenResponse is the RFC 6749 section 5.1 success body.
type tokenResponse struct {
	AccessToken  string      `json:"access_token"`
	RefreshToken *string     `json:"refresh_token"`
	TokenType    string      `json:"token_type"`
	Scope        string      `json:"scope"`
	ExpiresIn    json.Number `json:"expires_in"`
	Error        string      `json:"error"`
}

func (c *Client) post(ctx context.Context, entry domain.ServiceEntry, form url.Values) (*domain.TokenSet, error) {
	service := entry.ID()
	provider := entry.Provider()

	if provider.AuthStyle == domain.AuthStyleParams {
		form.Set("client_id", provider.ClientID)
		if provider.ClientSecret != "" {
			form.Set("client_secret", provider.ClientSecret)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, entry.TokenEndpoint(), strings.NewReader(form.Encode()))
	if err != nil {
		return nil, domain.TransientProviderError(classifyOp, service, "create request", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	if provider.AuthStyle == domain.AuthStyleHeader {
		req.SetBasicAuth(url.QueryEscape(provider.ClientID), url.QueryEscape(provider.ClientSecret))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, ClassifyTransport(service, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, ClassifyTransport(service, fmt.Errorf("read response: %w", err))
	}
	receivedAt := c.now()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, Classify(service, resp.StatusCode, body)
	}

	var tokenResp tokenResponse
	if err := json.Unmarshal(body, &tokenResp); err != nil {
		return nil, domain.TransientProviderError(classifyOp, service, "decode token response", err)
	}
	if tokenResp.AccessToken == "" {
		if tokenResp.Error != "" {
			return nil, Classify(service, resp.StatusCode, body)
		}
		return nil, domain.TransientProviderError(classifyOp, service, "response has no access_token", nil)
	}

	lifetime := provider.DefaultLifetime
	if tokenResp.ExpiresIn != "" {
		secs, err := tokenResp.ExpiresIn.Int64()
		if err != nil {
			return nil, domain.TransientProviderError(classifyOp, service, "invalid expires_in", err)
		}
		switch {
		case secs > int64(maxLifetime/time.Second):
			lifetime = maxLifetime
		case secs > 0:
			lifetime = time.Duration(secs) * time.Second
		}
	}

	return &domain.TokenSet{
		AccessToken:          tokenResp.AccessToken,
		RefreshToken:         tokenResp.RefreshToken,
		TokenType:            tokenResp.TokenType,
		Scope:                tokenResp.Scope,
		ExpiresAtEpochMillis: receivedAt.UnixMilli() + lifetime.Milliseconds(),
	}, nil
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, domain.ErrInvalidGrant):
		return "invalid_grant"
	case errors.Is(err, domain.ErrInvalidScopeOrState):
		return "invalid_scope"
	case errors.Is(err, gobreaker.ErrOpenState):
		return "breaker_open"
	default:
		return "transient"
	}
}
