package cli

import (
	"bytes"
	"context"
	"testing"

	"github.com/custodia-labs/delegate/internal/core/domain"
	"github.com/custodia-labs/delegate/internal/core/ports/driven"
	"github.com/custodia-labs/delegate/internal/core/ports/driving"
)

// mockAuthService is a canned AuthorizationService.
type mockAuthService struct {
	startURL   string
	summaries  []domain.AuthorizationSummary
	statusErr  error
	gotService domain.ServiceIdentifier
	gotOwner   string
}

var _ driving.AuthorizationService = (*mockAuthService)(nil)

func (m *mockAuthService) StartAuthorization(_ context.Context, service domain.ServiceIdentifier) (string, error) {
	m.gotService = service
	return m.startURL, nil
}

func (m *mockAuthService) HandleCallback(context.Context, string, string, string) (*domain.AuthorizationRecord, error) {
	return nil, domain.InvalidScopeOrStateError("callback", "", "unexpected", nil)
}

func (m *mockAuthService) HandleProviderError(context.Context, string, string, string) error {
	return nil
}

func (m *mockAuthService) EnsureFreshToken(context.Context, string, domain.ServiceIdentifier) (string, error) {
	return "", nil
}

func (m *mockAuthService) Status(_ context.Context, ownerID string) ([]domain.AuthorizationSummary, error) {
	m.gotOwner = ownerID
	return m.summaries, m.statusErr
}

// mockTokenProvider returns a fixed token or error.
type mockTokenProvider struct {
	service domain.ServiceIdentifier
	token   string
	err     error
}

func (m *mockTokenProvider) GetToken(context.Context) (string, error) {
	return m.token, m.err
}

func (m *mockTokenProvider) Service() domain.ServiceIdentifier {
	return m.service
}

// withRuntime installs rt for the duration of the test.
func withRuntime(t *testing.T, rt *Runtime) {
	t.Helper()
	old := app
	app = rt
	t.Cleanup(func() { app = old })
}

// execute runs the root command with args and returns its output.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
	})

	err := rootCmd.Execute()
	return buf.String(), err
}

func tokensFrom(p *mockTokenProvider) func(string, domain.ServiceIdentifier) driven.TokenProvider {
	return func(_ string, service domain.ServiceIdentifier) driven.TokenProvider {
		p.service = service
		return p
	}
}
