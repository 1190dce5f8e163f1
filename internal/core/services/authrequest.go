package services

import (
	"net/url"
	"strings"

	"github.com/custodia-labs/delegate/internal/core/domain"
)

// AuthorizationRequestBuilder builds provider consent URLs.
type AuthorizationRequestBuilder struct {
	catalog *domain.ServiceCatalog
	states  *StateCodec
}

// NewAuthorizationRequestBuilder creates a builder over catalog.
func NewAuthorizationRequestBuilder(catalog *domain.ServiceCatalog, states *StateCodec) *AuthorizationRequestBuilder {
	return &AuthorizationRequestBuilder{catalog: catalog, states: states}
}

// Build returns the authorization URL for a service.
// Unknown services fail before anything else happens.
func (b *AuthorizationRequestBuilder) Build(service domain.ServiceIdentifier) (*url.URL, error) {
	entry, err := b.catalog.Lookup(service)
	if err != nil {
		return nil, err
	}
	provider := entry.Provider()

	u, err := url.Parse(entry.AuthEndpoint())
	if err != nil {
		return nil, domain.InvalidScopeOrStateError("build authorization url", service,
			"authorization endpoint is not a valid URL", err)
	}

	params := u.Query()
	params.Set("client_id", provider.ClientID)
	params.Set("redirect_uri", provider.RedirectURI)
	params.Set("response_type", "code")
	params.Set("scope", strings.Join(entry.Scopes(), entry.ScopeSeparator()))
	params.Set("state", b.states.Encode(service))
	for k, v := range provider.AuthParams {
		params.Set(k, v)
	}
	u.RawQuery = params.Encode()

	return u, nil
}
