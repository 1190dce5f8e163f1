package file

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"golang.org/x/oauth2/endpoints"

	"github.com/custodia-labs/delegate/internal/core/domain"
)

// defaultProviders returns the built-in provider settings without credentials.
func defaultProviders() map[domain.ProviderSource]domain.ProviderConfig {
	return map[domain.ProviderSource]domain.ProviderConfig{
		domain.ProviderGoogle: {
			Source:    domain.ProviderGoogle,
			AuthURL:   endpoints.Google.AuthURL,
			TokenURL:  endpoints.Google.TokenURL,
			AuthStyle: domain.AuthStyleParams,
			// offline access is required for Google to issue a refresh token
			AuthParams: map[string]string{
				"access_type": "offline",
				"prompt":      "consent",
			},
		},
		domain.ProviderSpotify: {
			Source:    domain.ProviderSpotify,
			AuthURL:   endpoints.Spotify.AuthURL,
			TokenURL:  endpoints.Spotify.TokenURL,
			AuthStyle: domain.AuthStyleHeader,
		},
	}
}

// defaultServices returns the built-in service to provider and scope bindings.
func defaultServices() map[domain.ServiceIdentifier]domain.ServiceConfig {
	return map[domain.ServiceIdentifier]domain.ServiceConfig{
		domain.ServiceCalendar: {
			ID:       domain.ServiceCalendar,
			Provider: domain.ProviderGoogle,
			Scopes:   []string{"https://www.googleapis.com/auth/calendar"},
		},
		domain.ServiceVideo: {
			ID:       domain.ServiceVideo,
			Provider: domain.ProviderGoogle,
			Scopes:   []string{"https://www.googleapis.com/auth/youtube.readonly"},
		},
		domain.ServiceMusic: {
			ID:       domain.ServiceMusic,
			Provider: domain.ProviderSpotify,
			Scopes: []string{
				"user-read-private",
				"playlist-read-private",
				"user-library-read",
			},
		},
	}
}

// Catalog builds the service catalog from the defaults, the file overrides
// and the client secrets. Providers without a client id are left out along
// with their services.
func (c *Config) Catalog() (*domain.ServiceCatalog, error) {
	providers := defaultProviders()
	for name, section := range c.Providers {
		source := domain.ProviderSource(strings.ToLower(name))
		p, ok := providers[source]
		if !ok {
			p = domain.ProviderConfig{Source: source, AuthStyle: domain.AuthStyleParams}
		}
		if err := section.apply(&p); err != nil {
			return nil, fmt.Errorf("provider %s: %w", source, err)
		}
		providers[source] = p
	}

	secrets := map[domain.ProviderSource]string{
		domain.ProviderGoogle:  c.Secrets.GoogleClientSecret,
		domain.ProviderSpotify: c.Secrets.SpotifyClientSecret,
	}

	configured := make([]domain.ProviderConfig, 0, len(providers))
	enabled := make(map[domain.ProviderSource]bool, len(providers))
	for _, source := range slices.Sorted(maps.Keys(providers)) {
		p := providers[source]
		if p.ClientID == "" {
			continue
		}
		if secret := secrets[source]; secret != "" {
			p.ClientSecret = secret
		}
		p.RedirectURI = c.Callback.RedirectURI
		configured = append(configured, p)
		enabled[source] = true
	}

	services := defaultServices()
	for name, section := range c.Services {
		id, err := domain.ParseServiceIdentifier(name)
		if err != nil {
			return nil, err
		}
		s := services[id]
		s.ID = id
		section.apply(&s)
		services[id] = s
	}

	var bound []domain.ServiceConfig
	for _, id := range domain.KnownServices() {
		s, ok := services[id]
		if !ok || !enabled[s.Provider] {
			continue
		}
		bound = append(bound, s)
	}

	return domain.NewServiceCatalog(configured, bound)
}

func (s ProviderSection) apply(p *domain.ProviderConfig) error {
	if s.ClientID != "" {
		p.ClientID = s.ClientID
	}
	if s.AuthURL != "" {
		p.AuthURL = s.AuthURL
	}
	if s.TokenURL != "" {
		p.TokenURL = s.TokenURL
	}
	switch domain.AuthStyle(s.AuthStyle) {
	case "":
	case domain.AuthStyleParams, domain.AuthStyleHeader:
		p.AuthStyle = domain.AuthStyle(s.AuthStyle)
	default:
		return fmt.Errorf("unknown auth_style %q", s.AuthStyle)
	}
	if len(s.AuthParams) > 0 {
		params := maps.Clone(p.AuthParams)
		if params == nil {
			params = make(map[string]string, len(s.AuthParams))
		}
		maps.Copy(params, s.AuthParams)
		p.AuthParams = params
	}
	if s.RateLimit < 0 || s.Burst < 0 {
		return fmt.Errorf("rate_limit and burst must not be negative")
	}
	if s.RateLimit > 0 {
		p.RateLimit = s.RateLimit
	}
	if s.Burst > 0 {
		p.Burst = s.Burst
	}
	lifetime, err := parseDuration("default_lifetime", s.DefaultLifetime)
	if err != nil {
		return err
	}
	if lifetime > 0 {
		p.DefaultLifetime = lifetime
	}
	return nil
}

func (s ServiceSection) apply(svc *domain.ServiceConfig) {
	if s.Provider != "" {
		svc.Provider = domain.ProviderSource(strings.ToLower(s.Provider))
	}
	if len(s.Scopes) > 0 {
		svc.Scopes = slices.Clone(s.Scopes)
	}
	if s.ScopeSeparator != "" {
		svc.ScopeSeparator = s.ScopeSeparator
	}
}
