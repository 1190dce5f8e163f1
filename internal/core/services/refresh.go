package services

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/custodia-labs/delegate/internal/core/domain"
	"github.com/custodia-labs/delegate/internal/core/ports/driven"
	"github.com/custodia-labs/delegate/internal/logger"
)

// DefaultRefreshTimeout bounds a refresh once it has been detached from the
// caller that started it.
const DefaultRefreshTimeout = time.Minute

// RefreshCoordinator returns valid access tokens and refreshes expired ones.
// Per owner and service at most one refresh is in flight: concurrent callers
// join the same refresh and observe the same token or failure.
type RefreshCoordinator struct {
	catalog   *domain.ServiceCatalog
	store     driven.AuthorizationStore
	exchanger driven.TokenExchanger
	lease     driven.RefreshLease

	group          singleflight.Group
	now            func() time.Time
	skew           time.Duration
	refreshTimeout time.Duration
}

// CoordinatorOption configures a RefreshCoordinator.
type CoordinatorOption func(*RefreshCoordinator)

// WithClock overrides the time source.
func WithClock(now func() time.Time) CoordinatorOption {
	return func(c *RefreshCoordinator) { c.now = now }
}

// WithExpirySkew treats tokens as expired skew before their expiry.
func WithExpirySkew(skew time.Duration) CoordinatorOption {
	return func(c *RefreshCoordinator) { c.skew = skew }
}

// WithRefreshTimeout bounds a single refresh, lease wait included.
func WithRefreshTimeout(d time.Duration) CoordinatorOption {
	return func(c *RefreshCoordinator) { c.refreshTimeout = d }
}

// NewRefreshCoordinator creates a coordinator.
func NewRefreshCoordinator(
	catalog *domain.ServiceCatalog,
	store driven.AuthorizationStore,
	exchanger driven.TokenExchanger,
	lease driven.RefreshLease,
	opts ...CoordinatorOption,
) *RefreshCoordinator {
	c := &RefreshCoordinator{
		catalog:        catalog,
		store:          store,
		exchanger:      exchanger,
		lease:          lease,
		now:            time.Now,
		refreshTimeout: DefaultRefreshTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// EnsureFreshToken returns a valid access token for ownerID and service.
func (c *RefreshCoordinator) EnsureFreshToken(
	ctx context.Context,
	ownerID string,
	service domain.ServiceIdentifier,
) (string, error) {
	if _, err := c.catalog.Lookup(service); err != nil {
		return "", err
	}

	record, err := c.load(ctx, ownerID, service)
	if err != nil {
		return "", err
	}
	switch record.StateAt(c.now(), c.skew) {
	case domain.StateRevoked:
		return "", domain.InvalidGrantError("ensure fresh token", service, "authorization was revoked", nil)
	case domain.StateAuthorized:
		return record.AccessToken, nil
	}

	return c.join(ctx, ownerID, service)
}

// join waits for the refresh epoch of the key, starting it if needed.
func (c *RefreshCoordinator) join(ctx context.Context, ownerID string, service domain.ServiceIdentifier) (string, error) {
	key := authorizationKey(ownerID, service)

	ch := c.group.DoChan(key, func() (any, error) {
		refreshCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.refreshTimeout)
		defer cancel()
		return c.refresh(refreshCtx, ownerID, service)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", domain.TransientProviderError("ensure fresh token", service,
			"stopped waiting for refresh", ctx.Err())
	}
}

// refresh runs under the key's lease and re-reads the record before calling
// the provider, so a refresh completed by another epoch or process is reused.
func (c *RefreshCoordinator) refresh(ctx context.Context, ownerID string, service domain.ServiceIdentifier) (string, error) {
	const op = "refresh"

	release, err := c.lease.Acquire(ctx, authorizationKey(ownerID, service))
	if err != nil {
		return "", domain.TransientProviderError(op, service, "could not acquire refresh lease", err)
	}
	defer release()

	record, err := c.load(ctx, ownerID, service)
	if err != nil {
		return "", err
	}
	switch record.StateAt(c.now(), c.skew) {
	case domain.StateRevoked:
		return "", domain.InvalidGrantError(op, service, "authorization was revoked", nil)
	case domain.StateAuthorized:
		logger.Debug("Token for %s/%s refreshed concurrently", ownerID, service)
		return record.AccessToken, nil
	}
	if !record.HasRefreshToken() {
		return "", domain.InvalidGrantError(op, service, "no refresh token stored", nil)
	}

	logger.Debug("Refreshing token for %s/%s", ownerID, service)
	tokens, err := c.exchanger.Refresh(ctx, service, record.RefreshToken)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidGrant) {
			c.markRevoked(ctx, record)
			return "", err
		}
		if !domain.IsAuthError(err) {
			err = domain.TransientProviderError(op, service, "", err)
		}
		logger.Warn("Refresh for %s/%s failed: %v", ownerID, service, err)
		return "", err
	}

	record.ApplyTokens(*tokens, c.now())
	if err := c.store.Save(ctx, *record); err != nil {
		return "", storageError(op, service, err)
	}
	logger.Info("Refreshed token for %s/%s", ownerID, service)
	return record.AccessToken, nil
}

// markRevoked persists the revoked status. A failed write is logged; the
// caller still receives the invalid grant.
func (c *RefreshCoordinator) markRevoked(ctx context.Context, record *domain.AuthorizationRecord) {
	record.Status = domain.StatusRevoked
	record.UpdatedAt = c.now()
	if err := c.store.Save(ctx, *record); err != nil {
		logger.Error("Could not mark %s/%s revoked: %v", record.OwnerID, record.Service, err)
		return
	}
	logger.Warn("Authorization %s/%s was revoked by the provider", record.OwnerID, record.Service)
}

func (c *RefreshCoordinator) load(
	ctx context.Context,
	ownerID string,
	service domain.ServiceIdentifier,
) (*domain.AuthorizationRecord, error) {
	record, err := c.store.Get(ctx, ownerID, service)
	if errors.Is(err, domain.ErrNotFound) || (err == nil && record == nil) {
		return nil, domain.NotAuthorizedError("ensure fresh token", service, "no authorization stored")
	}
	if err != nil {
		return nil, storageError("read authorization", service, err)
	}
	return record, nil
}

// storageError passes typed errors through and reports everything else as
// retryable.
func storageError(op string, service domain.ServiceIdentifier, err error) error {
	if domain.IsAuthError(err) {
		return err
	}
	return domain.TransientProviderError(op, service, "storage failure", err)
}

// authorizationKey identifies one owner/service pair for leases and
// singleflight.
func authorizationKey(ownerID string, service domain.ServiceIdentifier) string {
	return ownerID + "/" + string(service)
}
