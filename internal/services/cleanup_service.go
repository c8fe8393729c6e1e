package services

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/jackc/pgconn"
	"github.com/strategiz-io/passkey-service/internal/repositories"
	"github.com/strategiz-io/passkey-service/internal/utils"
)

// One retry on transient network errors (EOF, closed connection) with a
// small back-off.
const cleanupRetryDelay = 3 * time.Second

// CleanupService removes expired challenges and refresh tokens on a
// schedule. Abandoned ceremonies leave challenges behind; expiry is the
// only thing that ever clears them.
type CleanupService interface {
	CleanupChallenges(ctx context.Context) error
	CleanupTokens(ctx context.Context) error
}

type cleanupService struct {
	challengeRepo repositories.ChallengeRepository
	tokenRepo     repositories.TokenRepository
}

func NewCleanupService(
	challengeRepo repositories.ChallengeRepository,
	tokenRepo repositories.TokenRepository,
) CleanupService {
	return &cleanupService{
		challengeRepo: challengeRepo,
		tokenRepo:     tokenRepo,
	}
}

// runWithRetry executes op(ctx) and, if it returns a transient network
// error (EOF, pgconn safe-to-retry, or the common closed-connection
// message), waits a moment then retries once.
func runWithRetry(ctx context.Context, op func(context.Context) (int64, error)) (int64, error) {
	n, err := op(ctx)
	if err != nil {
		if errors.Is(err, io.EOF) || pgconn.SafeToRetry(err) ||
			strings.Contains(err.Error(), "connection was closed") {
			utils.Logger.WithError(err).Warn("cleanup hit transient DB error; retrying once")
			time.Sleep(cleanupRetryDelay)
			return op(ctx)
		}
		return 0, err
	}
	return n, nil
}

func (s *cleanupService) CleanupChallenges(ctx context.Context) error {
	n, err := runWithRetry(ctx, s.challengeRepo.CleanupExpired)
	if err != nil {
		utils.Logger.WithError(err).Error("Failed to cleanup expired passkey_challenges")
		return err
	}
	if n > 0 {
		utils.Logger.Infof("Removed %d expired passkey challenges.", n)
	}
	return nil
}

func (s *cleanupService) CleanupTokens(ctx context.Context) error {
	n, err := runWithRetry(ctx, s.tokenRepo.CleanupExpired)
	if err != nil {
		utils.Logger.WithError(err).Error("Failed to cleanup expired refresh_tokens")
		return err
	}
	utils.Logger.Infof("Daily token cleanup completed; %d tokens removed.", n)
	return nil
}
