package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/custodia-labs/delegate/internal/core/domain"
	"github.com/custodia-labs/delegate/internal/core/ports/driven"
)

// Ensure AuthorizationStore implements the interface.
var _ driven.AuthorizationStore = (*AuthorizationStore)(nil)

type authorizationKey struct {
	ownerID string
	service domain.ServiceIdentifier
}

// AuthorizationStore is an in-memory implementation of driven.AuthorizationStore.
type AuthorizationStore struct {
	mu      sync.RWMutex
	records map[authorizationKey]domain.AuthorizationRecord
}

// NewAuthorizationStore creates a new in-memory authorization store.
func NewAuthorizationStore() *AuthorizationStore {
	return &AuthorizationStore{
		records: make(map[authorizationKey]domain.AuthorizationRecord),
	}
}

// Save upserts a record. ID and CreatedAt of an existing record are kept.
func (s *AuthorizationStore) Save(_ context.Context, record domain.AuthorizationRecord) error {
	if record.OwnerID == "" || record.Service == "" {
		return domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	key := authorizationKey{ownerID: record.OwnerID, service: record.Service}
	if existing, ok := s.records[key]; ok {
		record.ID = existing.ID
		record.CreatedAt = existing.CreatedAt
	}
	s.records[key] = record
	return nil
}

// Get retrieves the record for an owner and service.
func (s *AuthorizationStore) Get(
	_ context.Context,
	ownerID string,
	service domain.ServiceIdentifier,
) (*domain.AuthorizationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.records[authorizationKey{ownerID: ownerID, service: service}]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &record, nil
}

// List returns every record of an owner, ordered by service.
func (s *AuthorizationStore) List(_ context.Context, ownerID string) ([]domain.AuthorizationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]domain.AuthorizationRecord, 0)
	for key, record := range s.records {
		if key.ownerID == ownerID {
			result = append(result, record)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Service < result[j].Service
	})
	return result, nil
}
