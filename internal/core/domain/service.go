package domain

import (
	"fmt"
	"strings"
)

// ServiceIdentifier names one of the third-party integrations whose
// credentials are managed (calendar, video, music).
type ServiceIdentifier string

const (
	// ServiceCalendar is the calendar integration.
	ServiceCalendar ServiceIdentifier = "CALENDAR"
	// ServiceVideo is the video-hosting integration.
	ServiceVideo ServiceIdentifier = "VIDEO"
	// ServiceMusic is the music integration.
	ServiceMusic ServiceIdentifier = "MUSIC"
)

// KnownServices lists every service identifier in display order.
func KnownServices() []ServiceIdentifier {
	return []ServiceIdentifier{ServiceCalendar, ServiceVideo, ServiceMusic}
}

// ParseServiceIdentifier parses a service identifier case-insensitively.
// Only the fixed identifiers are accepted; whether a service is actually
// configured is decided by the ServiceCatalog.
func ParseServiceIdentifier(s string) (ServiceIdentifier, error) {
	id := ServiceIdentifier(strings.ToUpper(strings.TrimSpace(s)))
	switch id {
	case ServiceCalendar, ServiceVideo, ServiceMusic:
		return id, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownService, s)
	}
}

// String returns the canonical identifier.
func (s ServiceIdentifier) String() string {
	return string(s)
}

// ProviderSource identifies the OAuth provider that issues tokens for a service.
type ProviderSource string

const (
	// ProviderGoogle issues tokens for the calendar and video services.
	ProviderGoogle ProviderSource = "google"
	// ProviderSpotify issues tokens for the music service.
	ProviderSpotify ProviderSource = "spotify"
)

// AuthStyle controls how client credentials are sent to the token endpoint.
type AuthStyle string

const (
	// AuthStyleParams sends client_id and client_secret in the form body.
	AuthStyleParams AuthStyle = "params"
	// AuthStyleHeader sends client credentials with HTTP basic authentication.
	AuthStyleHeader AuthStyle = "header"
)
