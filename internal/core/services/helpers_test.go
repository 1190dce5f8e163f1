package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	leasememory "github.com/custodia-labs/delegate/internal/adapters/driven/lease/memory"
	"github.com/custodia-labs/delegate/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/delegate/internal/core/domain"
)

const testOwner = "user-1"

func newTestCatalog(t *testing.T, services ...domain.ServiceIdentifier) *domain.ServiceCatalog {
	t.Helper()
	providers := []domain.ProviderConfig{
		{
			Source:      domain.ProviderGoogle,
			ClientID:    "google-client",
			AuthURL:     "https://accounts.example.com/o/oauth2/auth",
			TokenURL:    "https://accounts.example.com/token",
			RedirectURI: "http://localhost:8765/callback",
			AuthParams:  map[string]string{"access_type": "offline", "prompt": "consent"},
		},
		{
			Source:      domain.ProviderSpotify,
			ClientID:    "spotify-client",
			AuthURL:     "https://music.example.com/authorize",
			TokenURL:    "https://music.example.com/api/token",
			RedirectURI: "http://localhost:8765/callback",
			AuthStyle:   domain.AuthStyleHeader,
		},
	}
	all := map[domain.ServiceIdentifier]domain.ServiceConfig{
		domain.ServiceCalendar: {
			ID: domain.ServiceCalendar, Provider: domain.ProviderGoogle,
			Scopes: []string{"https://www.googleapis.com/auth/calendar"},
		},
		domain.ServiceVideo: {
			ID: domain.ServiceVideo, Provider: domain.ProviderGoogle,
			Scopes: []string{"https://www.googleapis.com/auth/youtube.readonly"},
		},
		domain.ServiceMusic: {
			ID: domain.ServiceMusic, Provider: domain.ProviderSpotify,
			Scopes: []string{"user-read-private", "playlist-read-private"},
		},
	}
	if len(services) == 0 {
		services = domain.KnownServices()
	}
	configs := make([]domain.ServiceConfig, 0, len(services))
	for _, id := range services {
		configs = append(configs, all[id])
	}
	catalog, err := domain.NewServiceCatalog(providers, configs)
	require.NoError(t, err)
	return catalog
}

// fakeClock is a manually advanced time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.UnixMilli(1_700_000_000_000)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// fakeExchanger records calls and delegates to configurable functions.
type fakeExchanger struct {
	exchangeCalls atomic.Int32
	refreshCalls  atomic.Int32

	exchangeFn func(ctx context.Context, service domain.ServiceIdentifier, code string) (*domain.TokenSet, error)
	refreshFn  func(ctx context.Context, service domain.ServiceIdentifier, refreshToken string) (*domain.TokenSet, error)
}

func (f *fakeExchanger) Exchange(
	ctx context.Context,
	service domain.ServiceIdentifier,
	code string,
) (*domain.TokenSet, error) {
	f.exchangeCalls.Add(1)
	return f.exchangeFn(ctx, service, code)
}

func (f *fakeExchanger) Refresh(
	ctx context.Context,
	service domain.ServiceIdentifier,
	refreshToken string,
) (*domain.TokenSet, error) {
	f.refreshCalls.Add(1)
	return f.refreshFn(ctx, service, refreshToken)
}

func strPtr(s string) *string { return &s }

// failingStore fails every call with err.
type failingStore struct {
	err error
}

func (s failingStore) Get(context.Context, string, domain.ServiceIdentifier) (*domain.AuthorizationRecord, error) {
	return nil, s.err
}

func (s failingStore) Save(context.Context, domain.AuthorizationRecord) error { return s.err }

func (s failingStore) List(context.Context, string) ([]domain.AuthorizationRecord, error) {
	return nil, s.err
}

// fixture bundles a service with its collaborators.
type fixture struct {
	catalog   *domain.ServiceCatalog
	store     *memory.AuthorizationStore
	exchanger *fakeExchanger
	lease     *leasememory.Lease
	clock     *fakeClock
	service   *AuthorizationService
}

func newFixture(t *testing.T, opts ...CoordinatorOption) *fixture {
	t.Helper()
	f := &fixture{
		catalog:   newTestCatalog(t),
		store:     memory.NewAuthorizationStore(),
		exchanger: &fakeExchanger{},
		lease:     leasememory.NewLease(),
		clock:     newFakeClock(),
	}
	f.exchanger.exchangeFn = func(context.Context, domain.ServiceIdentifier, string) (*domain.TokenSet, error) {
		t.Error("unexpected exchange")
		return nil, errors.New("unexpected exchange")
	}
	f.exchanger.refreshFn = func(context.Context, domain.ServiceIdentifier, string) (*domain.TokenSet, error) {
		t.Error("unexpected refresh")
		return nil, errors.New("unexpected refresh")
	}
	opts = append([]CoordinatorOption{WithClock(f.clock.Now)}, opts...)
	f.service = NewAuthorizationService(f.catalog, f.store, f.exchanger, f.lease, opts...)
	return f
}

// seed stores an authorized record expiring after lifetime.
func (f *fixture) seed(t *testing.T, service domain.ServiceIdentifier, lifetime time.Duration) {
	t.Helper()
	now := f.clock.Now()
	require.NoError(t, f.store.Save(context.Background(), domain.AuthorizationRecord{
		ID:                   "auth-" + string(service),
		OwnerID:              testOwner,
		Service:              service,
		AccessToken:          "T1",
		RefreshToken:         "R1",
		TokenType:            "Bearer",
		ExpiresAtEpochMillis: now.Add(lifetime).UnixMilli(),
		Status:               domain.StatusAuthorized,
		CreatedAt:            now,
		UpdatedAt:            now,
	}))
}

func (f *fixture) stored(t *testing.T, service domain.ServiceIdentifier) *domain.AuthorizationRecord {
	t.Helper()
	record, err := f.store.Get(context.Background(), testOwner, service)
	require.NoError(t, err)
	return record
}
