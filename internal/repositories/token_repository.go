package repositories

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/strategiz-io/passkey-service/internal/models"
)

// TokenRepository manages refresh tokens in the DB. Only the SHA-256 of
// the raw token is ever stored; lookups hash internally, so callers pass
// the raw token the client presented.
type TokenRepository interface {
	// CreateRefreshToken stores a newly issued refresh token (hashed).
	CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error

	// GetRefreshToken fetches a refresh token by its raw value.
	// Returns nil, nil if not found.
	GetRefreshToken(ctx context.Context, rawToken string) (*models.RefreshToken, error)

	// RemoveRefreshToken DELETEs a single token row (logout, rotation).
	RemoveRefreshToken(ctx context.Context, id uuid.UUID) error

	// RemoveAllRefreshTokensByUserID DELETEs every token for a user.
	RemoveAllRefreshTokensByUserID(ctx context.Context, userID string) error

	// CleanupExpired removes tokens past their expiry.
	CleanupExpired(ctx context.Context) (int64, error)
}

type tokenRepo struct {
	db DB
}

func NewTokenRepository(db DB) TokenRepository {
	return &tokenRepo{db: db}
}

func hashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

func (r *tokenRepo) CreateRefreshToken(ctx context.Context, t *models.RefreshToken) error {
	q := `
        INSERT INTO refresh_tokens (id, user_id, token_hash, expires_at, created_at, revoked, ip_address, device_id)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
    `
	_, err := r.db.Exec(ctx, q,
		t.ID, t.UserID, hashToken(t.Token), t.ExpiresAt, t.CreatedAt, t.Revoked, t.IPAddress, t.DeviceID,
	)
	return err
}

func (r *tokenRepo) GetRefreshToken(ctx context.Context, rawToken string) (*models.RefreshToken, error) {
	q := `
        SELECT id, user_id, expires_at, created_at, revoked, ip_address, device_id
        FROM refresh_tokens
        WHERE token_hash = $1
    `
	row := r.db.QueryRow(ctx, q, hashToken(rawToken))
	var t models.RefreshToken
	err := row.Scan(&t.ID, &t.UserID, &t.ExpiresAt, &t.CreatedAt, &t.Revoked, &t.IPAddress, &t.DeviceID)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	t.Token = rawToken
	return &t, nil
}

func (r *tokenRepo) RemoveRefreshToken(ctx context.Context, id uuid.UUID) error {
	q := `DELETE FROM refresh_tokens WHERE id = $1`
	_, err := r.db.Exec(ctx, q, id)
	return err
}

func (r *tokenRepo) RemoveAllRefreshTokensByUserID(ctx context.Context, userID string) error {
	q := `DELETE FROM refresh_tokens WHERE user_id = $1`
	_, err := r.db.Exec(ctx, q, userID)
	return err
}

func (r *tokenRepo) CleanupExpired(ctx context.Context) (int64, error) {
	q := `DELETE FROM refresh_tokens WHERE expires_at < NOW()`
	tag, err := r.db.Exec(ctx, q)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
