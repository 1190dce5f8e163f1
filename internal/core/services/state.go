package services

import (
	"crypto/rand"
	"encoding/base64"
	"net/url"

	"github.com/custodia-labs/delegate/internal/core/domain"
)

const (
	stateServiceKey = "service_type"
	stateNonceKey   = "nonce"
)

// StateCodec encodes the service identifier into the OAuth state parameter
// and decodes it again on callback.
type StateCodec struct {
	catalog *domain.ServiceCatalog
}

// NewStateCodec creates a codec that accepts only services in catalog.
func NewStateCodec(catalog *domain.ServiceCatalog) *StateCodec {
	return &StateCodec{catalog: catalog}
}

// Encode returns a query-encoded state carrying the service identifier and a
// random nonce.
func (c *StateCodec) Encode(service domain.ServiceIdentifier) string {
	return url.Values{
		stateServiceKey: {string(service)},
		stateNonceKey:   {generateNonce()},
	}.Encode()
}

// Decode extracts the service identifier from a state value.
func (c *StateCodec) Decode(state string) (domain.ServiceIdentifier, error) {
	const op = "decode state"

	if state == "" {
		return "", domain.InvalidScopeOrStateError(op, "", "state is empty", nil)
	}
	values, err := url.ParseQuery(state)
	if err != nil {
		return "", domain.InvalidScopeOrStateError(op, "", "state is malformed", err)
	}
	raw := values.Get(stateServiceKey)
	if raw == "" {
		return "", domain.InvalidScopeOrStateError(op, "", "state has no service", nil)
	}
	service, err := domain.ParseServiceIdentifier(raw)
	if err != nil {
		return "", domain.InvalidScopeOrStateError(op, "", "state names an unknown service", err)
	}
	if !c.catalog.Contains(service) {
		return "", domain.InvalidScopeOrStateError(op, service, "service is not configured", domain.ErrUnknownService)
	}
	return service, nil
}

// generateNonce creates a random value that makes every state unique.
func generateNonce() string {
	bytes := make([]byte, 32)
	// crypto/rand.Read never returns an error on supported platforms.
	_, _ = rand.Read(bytes)
	return base64.RawURLEncoding.EncodeToString(bytes)
}
