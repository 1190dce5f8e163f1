package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/delegate/internal/core/domain"
	"github.com/custodia-labs/delegate/internal/core/ports/driven"
)

// authorizationStore implements driven.AuthorizationStore.
type authorizationStore struct {
	store *Store
}

var _ driven.AuthorizationStore = (*authorizationStore)(nil)

const authorizationColumns = `id, owner_id, service_identifier, provider_source, access_token, refresh_token,
	token_type, scope, expires_at_epoch_millis, status, created_at, updated_at`

// Save upserts on (owner_id, service_identifier). The existing id and
// created_at are kept.
func (s *authorizationStore) Save(ctx context.Context, record domain.AuthorizationRecord) error {
	if record.OwnerID == "" || record.Service == "" {
		return domain.ErrInvalidInput
	}
	if record.ID == "" {
		record.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	if record.UpdatedAt.IsZero() {
		record.UpdatedAt = now
	}
	if record.Status == "" {
		record.Status = domain.StatusAuthorized
	}

	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO authorizations (`+authorizationColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(owner_id, service_identifier) DO UPDATE SET
			provider_source = excluded.provider_source,
			access_token = excluded.access_token,
			refresh_token = excluded.refresh_token,
			token_type = excluded.token_type,
			scope = excluded.scope,
			expires_at_epoch_millis = excluded.expires_at_epoch_millis,
			status = excluded.status,
			updated_at = excluded.updated_at
	`, record.ID, record.OwnerID, string(record.Service), string(record.Provider),
		record.AccessToken, record.RefreshToken, record.TokenType, record.Scope,
		record.ExpiresAtEpochMillis, string(record.Status),
		record.CreatedAt.UTC(), record.UpdatedAt.UTC())
	if err != nil {
		return fmt.Errorf("saving authorization: %w", err)
	}
	return nil
}

// Get retrieves the record for an owner and service.
func (s *authorizationStore) Get(
	ctx context.Context,
	ownerID string,
	service domain.ServiceIdentifier,
) (*domain.AuthorizationRecord, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT `+authorizationColumns+`
		FROM authorizations WHERE owner_id = ? AND service_identifier = ?
	`, ownerID, string(service))

	return scanAuthorization(row)
}

// List returns every record of an owner, ordered by service.
func (s *authorizationStore) List(ctx context.Context, ownerID string) ([]domain.AuthorizationRecord, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT `+authorizationColumns+`
		FROM authorizations WHERE owner_id = ?
		ORDER BY service_identifier
	`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("querying authorizations: %w", err)
	}
	defer rows.Close()

	records := make([]domain.AuthorizationRecord, 0)
	for rows.Next() {
		record, err := scanAuthorization(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating authorizations: %w", err)
	}
	return records, nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanAuthorization(row scanner) (*domain.AuthorizationRecord, error) {
	var record domain.AuthorizationRecord
	var service, provider, status string

	err := row.Scan(&record.ID, &record.OwnerID, &service, &provider,
		&record.AccessToken, &record.RefreshToken, &record.TokenType, &record.Scope,
		&record.ExpiresAtEpochMillis, &status, &record.CreatedAt, &record.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning authorization: %w", err)
	}

	record.Service = domain.ServiceIdentifier(service)
	record.Provider = domain.ProviderSource(provider)
	record.Status = domain.AuthorizationStatus(status)
	return &record, nil
}
