package services

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/strategiz-io/passkey-service/internal/models"
	"github.com/strategiz-io/passkey-service/internal/repositories"
	"github.com/strategiz-io/passkey-service/internal/utils"
	"github.com/strategiz-io/passkey-service/internal/webauthn"
)

const challengeEntropyBytes = 32

// ChallengeService issues and verifies single-use passkey challenges.
type ChallengeService interface {
	// CreateChallenge generates a random base64url challenge, stores it
	// with an expiry, and returns its value.
	CreateChallenge(ctx context.Context, userID string, purpose models.ChallengePurpose) (string, error)

	// VerifyChallenge consumes the challenge and reports whether it was
	// valid for this user and purpose. The challenge is destroyed no
	// matter what; a second call with the same value always returns
	// false. Never returns an error to the caller's control flow; any
	// storage failure fails closed as false.
	VerifyChallenge(ctx context.Context, value, userID string, purpose models.ChallengePurpose) bool

	// ConsumeChallenge is VerifyChallenge for flows that identify the
	// user after the challenge check (discoverable authentication). It
	// destroys the challenge and returns the user it was issued to,
	// which is empty for usernameless ceremonies.
	ConsumeChallenge(ctx context.Context, value string, purpose models.ChallengePurpose) (userID string, ok bool)

	// ExtractChallengeFromClientData pulls the challenge field out of a
	// base64url client data JSON payload.
	ExtractChallengeFromClientData(clientDataJSON string) (string, error)
}

type challengeService struct {
	challengeRepo repositories.ChallengeRepository
	timeout       time.Duration
	now           func() time.Time
}

func NewChallengeService(challengeRepo repositories.ChallengeRepository, timeout time.Duration) ChallengeService {
	return &challengeService{
		challengeRepo: challengeRepo,
		timeout:       timeout,
		now:           time.Now,
	}
}

func (s *challengeService) CreateChallenge(ctx context.Context, userID string, purpose models.ChallengePurpose) (string, error) {
	now := s.now()
	c := &models.PasskeyChallenge{
		Value:     utils.RandomURLSafeToken(challengeEntropyBytes),
		UserID:    userID,
		Purpose:   purpose,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.timeout),
	}
	if err := s.challengeRepo.Create(ctx, c); err != nil {
		utils.Logger.WithError(err).Error("failed to store passkey challenge")
		return "", utils.ErrPersistenceFailure
	}
	return c.Value, nil
}

func (s *challengeService) VerifyChallenge(ctx context.Context, value, userID string, purpose models.ChallengePurpose) bool {
	owner, ok := s.ConsumeChallenge(ctx, value, purpose)
	if !ok {
		return false
	}
	// Ownership is only enforced when the challenge was issued to
	// someone.
	return owner == "" || owner == userID
}

func (s *challengeService) ConsumeChallenge(ctx context.Context, value string, purpose models.ChallengePurpose) (string, bool) {
	if value == "" {
		return "", false
	}

	c, err := s.challengeRepo.Consume(ctx, value)
	if err != nil {
		utils.Logger.WithError(err).Error("failed to consume passkey challenge")
		return "", false
	}
	if c == nil {
		return "", false
	}
	if c.IsExpired(s.now()) {
		return "", false
	}
	if c.Purpose != purpose {
		return "", false
	}
	return c.UserID, true
}

// clientData is the subset of the WebAuthn client data we care about.
type clientData struct {
	Type      string `json:"type"`
	Challenge string `json:"challenge"`
	Origin    string `json:"origin"`
}

func (s *challengeService) ExtractChallengeFromClientData(clientDataJSON string) (string, error) {
	raw, err := webauthn.DecodeFlexB64(clientDataJSON)
	if err != nil {
		return "", err
	}
	var cd clientData
	if err := json.Unmarshal(raw, &cd); err != nil {
		return "", err
	}
	if cd.Challenge == "" {
		return "", errors.New("client data has no challenge field")
	}
	return cd.Challenge, nil
}
