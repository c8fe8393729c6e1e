// internal/repositories/credential_repository.go
package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/strategiz-io/passkey-service/internal/models"
	"github.com/strategiz-io/passkey-service/internal/utils"
)

// CredentialRepository persists passkey auth methods. The auth_methods
// table carries one row per enrolled method; credential_id has a unique
// index, which is what makes duplicate registration an atomic failure
// instead of a read-then-write race.
type CredentialRepository interface {
	// Save inserts a new passkey. A unique violation on credential_id
	// maps to utils.ErrDuplicateCredential.
	Save(ctx context.Context, method *models.AuthMethod) error

	// FindByCredentialID fetches a passkey row (active or not) by its
	// base64url credential ID. Returns nil, nil when absent.
	FindByCredentialID(ctx context.Context, credentialID string) (*models.AuthMethod, error)

	// ListByUserID returns all passkey rows for a user, newest first.
	ListByUserID(ctx context.Context, userID string) ([]*models.AuthMethod, error)

	// UpdateCounter advances the signature counter and last_used_at, but
	// only when the stored counter is strictly below the new value. A
	// concurrent assertion that already advanced past newCounter makes
	// this a no-op and the caller gets utils.ErrNoRowsUpdated.
	UpdateCounter(ctx context.Context, credentialID string, newCounter uint32, usedAt time.Time) error

	// TouchLastUsed records a successful assertion for authenticators
	// that never increment their counter.
	TouchLastUsed(ctx context.Context, credentialID string, usedAt time.Time) error

	// Deactivate revokes a passkey by row ID, scoped to its owner.
	// Returns utils.ErrNoRowsUpdated when no matching active row exists.
	Deactivate(ctx context.Context, userID string, id uuid.UUID) error
}

type credentialRepo struct {
	db DB
}

// NewCredentialRepository creates a new repository for passkey credentials.
func NewCredentialRepository(db DB) CredentialRepository {
	return &credentialRepo{db: db}
}

func (r *credentialRepo) Save(ctx context.Context, m *models.AuthMethod) error {
	if err := m.Validate(); err != nil {
		return err
	}
	pk := m.Passkey
	q := `
        INSERT INTO auth_methods (
            id, user_id, kind, created_at, active,
            credential_id, public_key, signature_counter,
            aaguid, authenticator_name, backup_eligible, backup_state
        )
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
    `
	_, err := r.db.Exec(ctx, q,
		m.ID, m.UserID, m.Kind, m.CreatedAt, m.Active,
		pk.CredentialID, pk.PublicKey, pk.SignatureCounter,
		pk.AAGUID, pk.AuthenticatorName, pk.BackupEligible, pk.BackupState,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return utils.ErrDuplicateCredential
		}
		return err
	}
	return nil
}

const passkeyColumns = `
    id, user_id, kind, created_at, last_used_at, active,
    credential_id, public_key, signature_counter,
    aaguid, authenticator_name, backup_eligible, backup_state
`

func (r *credentialRepo) FindByCredentialID(ctx context.Context, credentialID string) (*models.AuthMethod, error) {
	q := `
        SELECT ` + passkeyColumns + `
        FROM auth_methods
        WHERE kind = $1 AND credential_id = $2
    `
	row := r.db.QueryRow(ctx, q, models.AuthMethodPasskey, credentialID)
	m, err := scanPasskey(row)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (r *credentialRepo) ListByUserID(ctx context.Context, userID string) ([]*models.AuthMethod, error) {
	q := `
        SELECT ` + passkeyColumns + `
        FROM auth_methods
        WHERE kind = $1 AND user_id = $2
        ORDER BY created_at DESC
    `
	rows, err := r.db.Query(ctx, q, models.AuthMethodPasskey, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.AuthMethod
	for rows.Next() {
		m, err := scanPasskey(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *credentialRepo) UpdateCounter(ctx context.Context, credentialID string, newCounter uint32, usedAt time.Time) error {
	q := `
        UPDATE auth_methods
        SET signature_counter = $2, last_used_at = $3
        WHERE kind = $4 AND credential_id = $1 AND signature_counter < $2
    `
	tag, err := r.db.Exec(ctx, q, credentialID, newCounter, usedAt, models.AuthMethodPasskey)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return utils.ErrNoRowsUpdated
	}
	return nil
}

func (r *credentialRepo) TouchLastUsed(ctx context.Context, credentialID string, usedAt time.Time) error {
	q := `
        UPDATE auth_methods
        SET last_used_at = $2
        WHERE kind = $3 AND credential_id = $1
    `
	_, err := r.db.Exec(ctx, q, credentialID, usedAt, models.AuthMethodPasskey)
	return err
}

func (r *credentialRepo) Deactivate(ctx context.Context, userID string, id uuid.UUID) error {
	q := `
        UPDATE auth_methods
        SET active = FALSE
        WHERE id = $1 AND user_id = $2 AND kind = $3 AND active = TRUE
    `
	tag, err := r.db.Exec(ctx, q, id, userID, models.AuthMethodPasskey)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return utils.ErrNoRowsUpdated
	}
	return nil
}

func scanPasskey(row pgx.Row) (*models.AuthMethod, error) {
	var m models.AuthMethod
	var pk models.PasskeyCredential
	err := row.Scan(
		&m.ID, &m.UserID, &m.Kind, &m.CreatedAt, &m.LastUsedAt, &m.Active,
		&pk.CredentialID, &pk.PublicKey, &pk.SignatureCounter,
		&pk.AAGUID, &pk.AuthenticatorName, &pk.BackupEligible, &pk.BackupState,
	)
	if err != nil {
		return nil, err
	}
	m.Passkey = &pk
	return &m, nil
}
