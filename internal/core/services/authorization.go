package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/delegate/internal/core/domain"
	"github.com/custodia-labs/delegate/internal/core/ports/driven"
	"github.com/custodia-labs/delegate/internal/core/ports/driving"
	"github.com/custodia-labs/delegate/internal/logger"
)

// Ensure AuthorizationService implements the interface.
var _ driving.AuthorizationService = (*AuthorizationService)(nil)

// AuthorizationService runs the consent flow and hands out fresh tokens.
type AuthorizationService struct {
	catalog     *domain.ServiceCatalog
	store       driven.AuthorizationStore
	exchanger   driven.TokenExchanger
	lease       driven.RefreshLease
	states      *StateCodec
	requests    *AuthorizationRequestBuilder
	coordinator *RefreshCoordinator
	now         func() time.Time
	skew        time.Duration
}

// NewAuthorizationService wires the service. Options apply to the
// embedded RefreshCoordinator as well.
func NewAuthorizationService(
	catalog *domain.ServiceCatalog,
	store driven.AuthorizationStore,
	exchanger driven.TokenExchanger,
	lease driven.RefreshLease,
	opts ...CoordinatorOption,
) *AuthorizationService {
	coordinator := NewRefreshCoordinator(catalog, store, exchanger, lease, opts...)
	states := NewStateCodec(catalog)
	return &AuthorizationService{
		catalog:     catalog,
		store:       store,
		exchanger:   exchanger,
		lease:       lease,
		states:      states,
		requests:    NewAuthorizationRequestBuilder(catalog, states),
		coordinator: coordinator,
		now:         coordinator.now,
		skew:        coordinator.skew,
	}
}

// StartAuthorization returns the consent URL for a service.
func (s *AuthorizationService) StartAuthorization(_ context.Context, service domain.ServiceIdentifier) (string, error) {
	u, err := s.requests.Build(service)
	if err != nil {
		return "", err
	}
	logger.Debug("Authorization URL built for %s", service)
	return u.String(), nil
}

// HandleCallback decodes the state, exchanges the code and stores the result.
// A previous record for the same owner and service is overwritten in place.
func (s *AuthorizationService) HandleCallback(
	ctx context.Context,
	ownerID, code, state string,
) (*domain.AuthorizationRecord, error) {
	const op = "callback"

	service, err := s.states.Decode(state)
	if err != nil {
		return nil, err
	}
	if code == "" {
		return nil, domain.InvalidScopeOrStateError(op, service, "authorization code is missing", nil)
	}
	if ownerID == "" {
		return nil, domain.InvalidScopeOrStateError(op, service, "owner is missing", domain.ErrInvalidInput)
	}
	entry, err := s.catalog.Lookup(service)
	if err != nil {
		return nil, err
	}

	logger.Section("Token Exchange")
	logger.Debug("Exchanging code for %s/%s", ownerID, service)
	tokens, err := s.exchanger.Exchange(ctx, service, code)
	if err != nil {
		if !domain.IsAuthError(err) {
			err = domain.TransientProviderError(op, service, "", err)
		}
		return nil, err
	}

	release, err := s.lease.Acquire(ctx, authorizationKey(ownerID, service))
	if err != nil {
		return nil, domain.TransientProviderError(op, service, "could not acquire lease", err)
	}
	defer release()

	now := s.now()
	record, err := s.store.Get(ctx, ownerID, service)
	switch {
	case errors.Is(err, domain.ErrNotFound) || (err == nil && record == nil):
		record = &domain.AuthorizationRecord{
			ID:        uuid.New().String(),
			OwnerID:   ownerID,
			Service:   service,
			CreatedAt: now,
		}
	case err != nil:
		return nil, storageError(op, service, err)
	}
	if record.IsRevoked() {
		// The provider rejected the old refresh token; never reuse it.
		record.RefreshToken = ""
	}
	record.Provider = entry.ProviderSource()
	record.ApplyTokens(*tokens, now)

	if err := s.store.Save(ctx, *record); err != nil {
		return nil, storageError(op, service, err)
	}
	logger.Info("Authorized %s for %s", service, ownerID)
	return record, nil
}

// HandleProviderError maps an error redirect from the provider.
// The state is decoded when possible so the error names the service.
func (s *AuthorizationService) HandleProviderError(_ context.Context, state, code, description string) error {
	service, err := s.states.Decode(state)
	if err != nil {
		return err
	}
	detail := code
	if description != "" {
		detail += ": " + description
	}
	logger.Warn("Provider rejected consent for %s: %s", service, detail)
	return domain.InvalidGrantError("callback", service, "provider returned an error", errors.New(detail))
}

// EnsureFreshToken returns a valid access token, refreshing it if expired.
func (s *AuthorizationService) EnsureFreshToken(
	ctx context.Context,
	ownerID string,
	service domain.ServiceIdentifier,
) (string, error) {
	return s.coordinator.EnsureFreshToken(ctx, ownerID, service)
}

// Status summarises every configured service for ownerID.
func (s *AuthorizationService) Status(ctx context.Context, ownerID string) ([]domain.AuthorizationSummary, error) {
	records, err := s.store.List(ctx, ownerID)
	if err != nil {
		return nil, storageError("status", "", err)
	}
	byService := make(map[domain.ServiceIdentifier]*domain.AuthorizationRecord, len(records))
	for i := range records {
		byService[records[i].Service] = &records[i]
	}

	now := s.now()
	summaries := make([]domain.AuthorizationSummary, 0, len(s.catalog.Services()))
	for _, id := range s.catalog.Services() {
		entry, err := s.catalog.Lookup(id)
		if err != nil {
			return nil, err
		}
		summary := domain.AuthorizationSummary{
			Service:  id,
			Provider: entry.ProviderSource(),
		}
		record := byService[id]
		summary.State = record.StateAt(now, s.skew)
		if record != nil {
			summary.Scope = record.Scope
			summary.ExpiresAtEpochMillis = record.ExpiresAtEpochMillis
			summary.UpdatedAt = record.UpdatedAt
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

// Ensure ServiceTokenProvider implements the interface.
var _ driven.TokenProvider = (*ServiceTokenProvider)(nil)

// ServiceTokenProvider hands out tokens for one owner and service.
type ServiceTokenProvider struct {
	auth    driving.AuthorizationService
	ownerID string
	service domain.ServiceIdentifier
}

// NewServiceTokenProvider creates a token provider over any AuthorizationService.
func NewServiceTokenProvider(
	auth driving.AuthorizationService,
	ownerID string,
	service domain.ServiceIdentifier,
) *ServiceTokenProvider {
	return &ServiceTokenProvider{auth: auth, ownerID: ownerID, service: service}
}

// GetToken returns a valid access token.
func (p *ServiceTokenProvider) GetToken(ctx context.Context) (string, error) {
	return p.auth.EnsureFreshToken(ctx, p.ownerID, p.service)
}

// Service returns the service the tokens are issued for.
func (p *ServiceTokenProvider) Service() domain.ServiceIdentifier {
	return p.service
}
