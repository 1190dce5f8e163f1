// Package google connects delegated credentials to Google API clients.
//
// Downstream features never see refresh tokens. They receive an
// oauth2.TokenSource that asks the authorization service for a fresh access
// token, and a client built on it:
//
//	provider := services.NewServiceTokenProvider(auth, ownerID, domain.ServiceCalendar)
//	ts := google.NewTokenSource(ctx, google.NewRetryingTokenProvider(provider))
//	svc, err := google.NewCalendarService(ctx, ts)
//
// # OAuth2 Scopes
//
//   - https://www.googleapis.com/auth/calendar (CALENDAR)
//   - https://www.googleapis.com/auth/youtube (VIDEO)
package google
