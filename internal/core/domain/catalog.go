package domain

import (
	"fmt"
	"maps"
	"slices"
	"time"
)

// DefaultTokenLifetime is applied when a provider omits expires_in.
const DefaultTokenLifetime = time.Hour

// ProviderConfig stores the OAuth application credentials and endpoints for
// one provider. One provider can serve several services (Google serves both
// calendar and video).
type ProviderConfig struct {
	// Source identifies the provider.
	Source ProviderSource
	// ClientID is the OAuth client ID from the provider's developer console.
	ClientID string
	// ClientSecret is the OAuth client secret.
	ClientSecret string
	// AuthURL is the authorization endpoint the user is redirected to.
	AuthURL string
	// TokenURL is the token exchange and refresh endpoint.
	TokenURL string
	// RedirectURI is the callback URI registered with the provider.
	RedirectURI string
	// AuthStyle controls how client credentials reach the token endpoint.
	AuthStyle AuthStyle
	// AuthParams are extra query parameters added to the authorization URL
	// (e.g. Google's access_type=offline).
	AuthParams map[string]string
	// DefaultLifetime is used when the token response has no expires_in.
	DefaultLifetime time.Duration
	// RateLimit is the sustained token requests per second. Zero leaves the
	// choice to the token client.
	RateLimit float64
	// Burst is the limiter burst size. Zero leaves the choice to the token client.
	Burst int
}

// ServiceConfig binds a service identifier to its provider and scopes.
type ServiceConfig struct {
	// ID is the service identifier.
	ID ServiceIdentifier
	// Provider is the provider issuing tokens for this service.
	Provider ProviderSource
	// Scopes are the OAuth scopes requested for this service.
	Scopes []string
	// ScopeSeparator joins scopes in the authorization URL. Defaults to a space.
	ScopeSeparator string
}

// ServiceEntry is the resolved, read-only configuration of one service.
type ServiceEntry struct {
	service  ServiceConfig
	provider ProviderConfig
}

// ID returns the service identifier.
func (e ServiceEntry) ID() ServiceIdentifier { return e.service.ID }

// ProviderSource returns the provider issuing tokens for the service.
func (e ServiceEntry) ProviderSource() ProviderSource { return e.provider.Source }

// Scopes returns a copy of the requested scopes.
func (e ServiceEntry) Scopes() []string { return slices.Clone(e.service.Scopes) }

// ScopeSeparator returns the separator used when joining scopes.
func (e ServiceEntry) ScopeSeparator() string { return e.service.ScopeSeparator }

// TokenEndpoint returns the provider's token endpoint URL.
func (e ServiceEntry) TokenEndpoint() string { return e.provider.TokenURL }

// AuthEndpoint returns the provider's authorization endpoint URL.
func (e ServiceEntry) AuthEndpoint() string { return e.provider.AuthURL }

// Provider returns a copy of the provider configuration.
func (e ServiceEntry) Provider() ProviderConfig {
	p := e.provider
	p.AuthParams = maps.Clone(e.provider.AuthParams)
	return p
}

// ServiceCatalog is the immutable mapping from service identifier to provider,
// scopes and token endpoint. Build it once at startup and pass it by reference.
type ServiceCatalog struct {
	entries map[ServiceIdentifier]ServiceEntry
	order   []ServiceIdentifier
}

// NewServiceCatalog validates the configuration and builds a catalog.
func NewServiceCatalog(providers []ProviderConfig, services []ServiceConfig) (*ServiceCatalog, error) {
	byProvider := make(map[ProviderSource]ProviderConfig, len(providers))
	for _, p := range providers {
		if p.Source == "" {
			return nil, fmt.Errorf("%w: provider without source", ErrInvalidInput)
		}
		if _, dup := byProvider[p.Source]; dup {
			return nil, fmt.Errorf("%w: duplicate provider %s", ErrInvalidInput, p.Source)
		}
		if p.ClientID == "" || p.AuthURL == "" || p.TokenURL == "" || p.RedirectURI == "" {
			return nil, fmt.Errorf("%w: provider %s needs client id, auth url, token url and redirect uri",
				ErrInvalidInput, p.Source)
		}
		if p.AuthStyle == "" {
			p.AuthStyle = AuthStyleParams
		}
		if p.DefaultLifetime <= 0 {
			p.DefaultLifetime = DefaultTokenLifetime
		}
		if p.RateLimit < 0 || p.Burst < 0 {
			return nil, fmt.Errorf("%w: provider %s has a negative rate limit", ErrInvalidInput, p.Source)
		}
		p.AuthParams = maps.Clone(p.AuthParams)
		byProvider[p.Source] = p
	}

	c := &ServiceCatalog{entries: make(map[ServiceIdentifier]ServiceEntry, len(services))}
	for _, s := range services {
		id, err := ParseServiceIdentifier(string(s.ID))
		if err != nil {
			return nil, err
		}
		if _, dup := c.entries[id]; dup {
			return nil, fmt.Errorf("%w: duplicate service %s", ErrInvalidInput, id)
		}
		provider, ok := byProvider[s.Provider]
		if !ok {
			return nil, fmt.Errorf("%w: service %s references unknown provider %q", ErrInvalidInput, id, s.Provider)
		}
		if len(s.Scopes) == 0 {
			return nil, fmt.Errorf("%w: service %s has no scopes", ErrInvalidInput, id)
		}
		s.ID = id
		s.Scopes = slices.Clone(s.Scopes)
		if s.ScopeSeparator == "" {
			s.ScopeSeparator = " "
		}
		c.entries[id] = ServiceEntry{service: s, provider: provider}
	}

	for _, id := range KnownServices() {
		if _, ok := c.entries[id]; ok {
			c.order = append(c.order, id)
		}
	}
	return c, nil
}

// Lookup returns the configuration of a service. Unknown identifiers fail
// with an ErrInvalidScopeOrState error wrapping ErrUnknownService.
func (c *ServiceCatalog) Lookup(id ServiceIdentifier) (ServiceEntry, error) {
	if c != nil {
		if entry, ok := c.entries[id]; ok {
			return entry, nil
		}
	}
	return ServiceEntry{}, InvalidScopeOrStateError("lookup", id, "service is not configured", ErrUnknownService)
}

// Contains reports whether the service is configured.
func (c *ServiceCatalog) Contains(id ServiceIdentifier) bool {
	_, err := c.Lookup(id)
	return err == nil
}

// Services returns the configured service identifiers in display order.
func (c *ServiceCatalog) Services() []ServiceIdentifier {
	if c == nil {
		return nil
	}
	return slices.Clone(c.order)
}
