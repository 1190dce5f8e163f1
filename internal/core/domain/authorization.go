package domain

import "time"

// AuthorizationStatus is the persisted part of an authorization's lifecycle.
type AuthorizationStatus string

const (
	// StatusAuthorized marks a record that holds usable credentials.
	StatusAuthorized AuthorizationStatus = "authorized"
	// StatusRevoked marks a record whose grant was rejected by the provider.
	// Terminal until a new consent flow overwrites the record.
	StatusRevoked AuthorizationStatus = "revoked"
)

// AuthorizationState is the computed lifecycle state of an owner/service pair.
type AuthorizationState string

const (
	// StateNone means no record exists.
	StateNone AuthorizationState = "NONE"
	// StateAuthorized means the access token is valid and unexpired.
	StateAuthorized AuthorizationState = "AUTHORIZED"
	// StateExpired means the access token is past its expiry. Never stored.
	StateExpired AuthorizationState = "EXPIRED"
	// StateRevoked means the provider rejected the grant.
	StateRevoked AuthorizationState = "REVOKED"
)

// AuthorizationRecord is the stored credential state for one owner/service pair.
// There is exactly one record per (OwnerID, Service).
type AuthorizationRecord struct {
	// ID is the unique identifier (UUID), assigned on creation.
	ID string `json:"id"`
	// OwnerID references the user the credentials act for.
	OwnerID string `json:"owner_id"`
	// Service is the service identifier.
	Service ServiceIdentifier `json:"service_identifier"`
	// Provider is derived from Service through the catalog.
	Provider ProviderSource `json:"provider_source"`

	// AccessToken is the bearer token for API access. Encrypted at rest.
	AccessToken string `json:"access_token"`
	// RefreshToken obtains new access tokens. Encrypted at rest.
	RefreshToken string `json:"refresh_token,omitempty"`
	// TokenType is typically "Bearer".
	TokenType string `json:"token_type"`
	// Scope is the granted scope as reported by the provider.
	Scope string `json:"scope,omitempty"`
	// ExpiresAtEpochMillis is the absolute expiry of AccessToken.
	ExpiresAtEpochMillis int64 `json:"expires_at_epoch_millis"`

	// Status is the persisted lifecycle status.
	Status AuthorizationStatus `json:"status"`

	// CreatedAt is when the record was first created.
	CreatedAt time.Time `json:"created_at"`
	// UpdatedAt is when the record was last written.
	UpdatedAt time.Time `json:"updated_at"`
}

// IsRevoked returns true if the provider rejected the grant.
func (r *AuthorizationRecord) IsRevoked() bool {
	return r.Status == StatusRevoked
}

// ExpiresAt returns the absolute expiry as a time.Time.
func (r *AuthorizationRecord) ExpiresAt() time.Time {
	return time.UnixMilli(r.ExpiresAtEpochMillis)
}

// IsExpiredAt returns true if the access token must not be used at now.
// A token whose expiry equals now is expired. skew moves the deadline
// earlier and is zero unless configured.
func (r *AuthorizationRecord) IsExpiredAt(now time.Time, skew time.Duration) bool {
	return now.UnixMilli() >= r.ExpiresAtEpochMillis-skew.Milliseconds()
}

// StateAt computes the lifecycle state at now.
func (r *AuthorizationRecord) StateAt(now time.Time, skew time.Duration) AuthorizationState {
	switch {
	case r == nil:
		return StateNone
	case r.IsRevoked():
		return StateRevoked
	case r.IsExpiredAt(now, skew):
		return StateExpired
	default:
		return StateAuthorized
	}
}

// HasRefreshToken returns true if a refresh token is available.
func (r *AuthorizationRecord) HasRefreshToken() bool {
	return r.RefreshToken != ""
}

// ApplyTokens overwrites the token fields with a freshly issued token set.
// A missing refresh token keeps the stored one; empty token type or scope
// keep their previous values.
func (r *AuthorizationRecord) ApplyTokens(tokens TokenSet, now time.Time) {
	r.AccessToken = tokens.AccessToken
	r.ExpiresAtEpochMillis = tokens.ExpiresAtEpochMillis
	if tokens.RefreshToken != nil && *tokens.RefreshToken != "" {
		r.RefreshToken = *tokens.RefreshToken
	}
	if tokens.TokenType != "" {
		r.TokenType = tokens.TokenType
	}
	if tokens.Scope != "" {
		r.Scope = tokens.Scope
	}
	r.Status = StatusAuthorized
	r.UpdatedAt = now
}

// TokenSet is the result of a code exchange or refresh.
type TokenSet struct {
	// AccessToken is the newly issued access token.
	AccessToken string
	// RefreshToken is nil when the provider did not return one, which tells
	// the caller to keep the previously stored refresh token.
	RefreshToken *string
	// TokenType is typically "Bearer".
	TokenType string
	// Scope is the granted scope.
	Scope string
	// ExpiresAtEpochMillis is receipt time plus the reported lifetime.
	ExpiresAtEpochMillis int64
}

// HasRefreshToken returns true if the provider returned a refresh token field.
func (t TokenSet) HasRefreshToken() bool {
	return t.RefreshToken != nil
}

// AuthorizationSummary describes one configured service for an owner.
// It never carries secrets.
type AuthorizationSummary struct {
	Service              ServiceIdentifier
	Provider             ProviderSource
	State                AuthorizationState
	Scope                string
	ExpiresAtEpochMillis int64
	UpdatedAt            time.Time
}
