// Package sealed provides an AuthorizationStore decorator that encrypts
// token secrets before they reach the underlying store.
package sealed

import (
	"context"

	"github.com/custodia-labs/delegate/internal/core/domain"
	"github.com/custodia-labs/delegate/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.AuthorizationStore = (*Store)(nil)

// Store seals AccessToken and RefreshToken on Save and opens them on
// Get and List. Other fields pass through unchanged.
type Store struct {
	inner  driven.AuthorizationStore
	sealer driven.SecretSealer
}

// NewStore wraps inner.
func NewStore(inner driven.AuthorizationStore, sealer driven.SecretSealer) *Store {
	return &Store{inner: inner, sealer: sealer}
}

// Save seals both secrets before anything is written.
func (s *Store) Save(ctx context.Context, record domain.AuthorizationRecord) error {
	access, err := s.sealer.Seal(record.AccessToken)
	if err != nil {
		return domain.EncryptionError("seal access token", "", err)
	}
	refresh, err := s.sealer.Seal(record.RefreshToken)
	if err != nil {
		return domain.EncryptionError("seal refresh token", "", err)
	}
	record.AccessToken = access
	record.RefreshToken = refresh
	return s.inner.Save(ctx, record)
}

// Get retrieves and opens a record.
func (s *Store) Get(
	ctx context.Context,
	ownerID string,
	service domain.ServiceIdentifier,
) (*domain.AuthorizationRecord, error) {
	record, err := s.inner.Get(ctx, ownerID, service)
	if err != nil {
		return nil, err
	}
	if err := s.open(record); err != nil {
		return nil, err
	}
	return record, nil
}

// List retrieves and opens every record of an owner.
func (s *Store) List(ctx context.Context, ownerID string) ([]domain.AuthorizationRecord, error) {
	records, err := s.inner.List(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	for i := range records {
		if err := s.open(&records[i]); err != nil {
			return nil, err
		}
	}
	return records, nil
}

func (s *Store) open(record *domain.AuthorizationRecord) error {
	access, err := s.sealer.Open(record.AccessToken)
	if err != nil {
		return domain.EncryptionError("open access token", "service "+string(record.Service), err)
	}
	refresh, err := s.sealer.Open(record.RefreshToken)
	if err != nil {
		return domain.EncryptionError("open refresh token", "service "+string(record.Service), err)
	}
	record.AccessToken = access
	record.RefreshToken = refresh
	return nil
}
