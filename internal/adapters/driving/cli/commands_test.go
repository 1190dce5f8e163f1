package cli

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/delegate/internal/core/domain"
)

func TestTokenCmd(t *testing.T) {
	provider := &mockTokenProvider{token: "T1"}
	withRuntime(t, &Runtime{Owner: "user-1", Tokens: tokensFrom(provider)})

	out, err := execute(t, "token", "calendar")
	require.NoError(t, err)
	assert.Equal(t, "T1\n", out)
	assert.Equal(t, domain.ServiceCalendar, provider.service)
}

func TestTokenCmd_RequiresConsent(t *testing.T) {
	provider := &mockTokenProvider{err: domain.NotAuthorizedError("ensure fresh token", domain.ServiceVideo, "")}
	withRuntime(t, &Runtime{Owner: "user-1", Tokens: tokensFrom(provider)})

	_, err := execute(t, "token", "video")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNotAuthorized)
	assert.Contains(t, err.Error(), "delegate authorize VIDEO")
}

func TestTokenCmd_UnknownService(t *testing.T) {
	withRuntime(t, &Runtime{Owner: "user-1", Tokens: tokensFrom(&mockTokenProvider{})})

	_, err := execute(t, "token", "chat")
	assert.ErrorIs(t, err, domain.ErrUnknownService)
}

func TestAuthorizeCmd_PrintsURL(t *testing.T) {
	auth := &mockAuthService{startURL: "https://accounts.example.com/auth?state=s1"}
	withRuntime(t, &Runtime{Auth: auth, Owner: "user-1"})

	out, err := execute(t, "authorize", "music")
	require.NoError(t, err)
	assert.Equal(t, "https://accounts.example.com/auth?state=s1\n", out)
	assert.Equal(t, domain.ServiceMusic, auth.gotService)
}

func TestAuthorizeCmd_ListenTimesOut(t *testing.T) {
	auth := &mockAuthService{startURL: "https://accounts.example.com/auth?state=s1"}
	withRuntime(t, &Runtime{Auth: auth, Owner: "user-1", Listen: "127.0.0.1:0"})
	defer func() {
		authorizeListen, authorizeNoBrowser, authorizeTimeout = false, false, 5*time.Minute
	}()

	out, err := execute(t, "authorize", "calendar", "--listen", "--no-browser", "--timeout", "50ms")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timed out")
	assert.Contains(t, out, "https://accounts.example.com/auth?state=s1")
}

func TestStatusCmd(t *testing.T) {
	auth := &mockAuthService{summaries: []domain.AuthorizationSummary{
		{
			Service:              domain.ServiceCalendar,
			Provider:             domain.ProviderGoogle,
			State:                domain.StateAuthorized,
			Scope:                "calendar",
			ExpiresAtEpochMillis: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC).UnixMilli(),
		},
		{Service: domain.ServiceMusic, Provider: domain.ProviderSpotify, State: domain.StateNone},
	}}
	withRuntime(t, &Runtime{Auth: auth, Owner: "user-1"})

	out, err := execute(t, "status")
	require.NoError(t, err)
	assert.Equal(t, "user-1", auth.gotOwner)
	assert.Contains(t, out, "Owner: user-1")
	assert.Contains(t, out, "CALENDAR")
	assert.Contains(t, out, "AUTHORIZED")
	assert.Contains(t, out, "MUSIC")
	assert.Contains(t, out, "NONE")
	assert.Contains(t, out, "spotify")
}

func TestStatusCmd_NoServices(t *testing.T) {
	withRuntime(t, &Runtime{Auth: &mockAuthService{}, Owner: "user-1"})

	out, err := execute(t, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "No services configured")
}

func TestFormatExpiry(t *testing.T) {
	assert.Equal(t, "-", formatExpiry(0))

	at := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	parsed, err := time.Parse(time.RFC3339, formatExpiry(at.UnixMilli()))
	require.NoError(t, err)
	assert.True(t, at.Equal(parsed))
}
