// internal/repositories/challenge_repository.go
package repositories

import (
	"context"

	"github.com/jackc/pgx/v4"
	"github.com/strategiz-io/passkey-service/internal/models"
)

// ChallengeRepository manages the lifecycle of single-use passkey challenges.
type ChallengeRepository interface {
	// Create stores a new challenge with its expiry.
	Create(ctx context.Context, challenge *models.PasskeyChallenge) error
	// Consume retrieves a challenge by its value and immediately deletes it,
	// expired or not, so a challenge can never be presented twice.
	// Returns nil, nil if no row existed.
	Consume(ctx context.Context, value string) (*models.PasskeyChallenge, error)
	// CleanupExpired removes all challenges past their expires_at timestamp.
	CleanupExpired(ctx context.Context) (int64, error)
}

type challengeRepo struct {
	db DB
}

// NewChallengeRepository creates a new repository for passkey challenges.
func NewChallengeRepository(db DB) ChallengeRepository {
	return &challengeRepo{db: db}
}

func (r *challengeRepo) Create(ctx context.Context, c *models.PasskeyChallenge) error {
	q := `
        INSERT INTO passkey_challenges (value, user_id, purpose, issued_at, expires_at)
        VALUES ($1, $2, $3, $4, $5)
    `
	_, err := r.db.Exec(ctx, q, c.Value, c.UserID, c.Purpose, c.IssuedAt, c.ExpiresAt)
	return err
}

func (r *challengeRepo) Consume(ctx context.Context, value string) (*models.PasskeyChallenge, error) {
	q := `
        DELETE FROM passkey_challenges
        WHERE value = $1
        RETURNING value, user_id, purpose, issued_at, expires_at
    `
	row := r.db.QueryRow(ctx, q, value)
	var c models.PasskeyChallenge
	err := row.Scan(&c.Value, &c.UserID, &c.Purpose, &c.IssuedAt, &c.ExpiresAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *challengeRepo) CleanupExpired(ctx context.Context) (int64, error) {
	q := `DELETE FROM passkey_challenges WHERE expires_at < NOW()`
	tag, err := r.db.Exec(ctx, q)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
