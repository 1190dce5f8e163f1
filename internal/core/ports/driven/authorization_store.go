package driven

import (
	"context"

	"github.com/custodia-labs/delegate/internal/core/domain"
)

// AuthorizationStore persists one AuthorizationRecord per owner and service.
// Implementations store secrets exactly as handed to them; encryption is the
// job of a decorating store.
type AuthorizationStore interface {
	// Get retrieves the record for an owner and service.
	// Returns domain.ErrNotFound if no record exists.
	Get(ctx context.Context, ownerID string, service domain.ServiceIdentifier) (*domain.AuthorizationRecord, error)

	// Save upserts a record keyed by (OwnerID, Service). When a record
	// already exists its ID and CreatedAt are kept.
	Save(ctx context.Context, record domain.AuthorizationRecord) error

	// List returns every record of an owner.
	List(ctx context.Context, ownerID string) ([]domain.AuthorizationRecord, error)
}
