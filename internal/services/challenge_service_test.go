package services

import (
	"context"
	"encoding/base64"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/strategiz-io/passkey-service/internal/models"
)

func TestVerifyChallengeSingleUse(t *testing.T) {
	ctx := context.Background()
	repo := newFakeChallengeRepo()
	svc := NewChallengeService(repo, time.Minute)

	value, err := svc.CreateChallenge(ctx, "u1", models.ChallengePurposeRegistration)
	require.NoError(t, err)
	require.NotEmpty(t, value)

	require.True(t, svc.VerifyChallenge(ctx, value, "u1", models.ChallengePurposeRegistration))

	// Consumed; every subsequent attempt fails.
	require.False(t, svc.VerifyChallenge(ctx, value, "u1", models.ChallengePurposeRegistration))
	require.False(t, svc.VerifyChallenge(ctx, value, "u1", models.ChallengePurposeRegistration))
}

func TestVerifyChallengeRejectsMismatch(t *testing.T) {
	ctx := context.Background()
	repo := newFakeChallengeRepo()
	svc := NewChallengeService(repo, time.Minute)

	// Wrong purpose; the challenge is destroyed by the attempt.
	value, err := svc.CreateChallenge(ctx, "u1", models.ChallengePurposeRegistration)
	require.NoError(t, err)
	require.False(t, svc.VerifyChallenge(ctx, value, "u1", models.ChallengePurposeAuthentication))
	require.False(t, svc.VerifyChallenge(ctx, value, "u1", models.ChallengePurposeRegistration))

	// Wrong owner.
	value, err = svc.CreateChallenge(ctx, "u1", models.ChallengePurposeRegistration)
	require.NoError(t, err)
	require.False(t, svc.VerifyChallenge(ctx, value, "u2", models.ChallengePurposeRegistration))

	// Unknown value.
	require.False(t, svc.VerifyChallenge(ctx, "never-issued", "u1", models.ChallengePurposeRegistration))
	require.False(t, svc.VerifyChallenge(ctx, "", "u1", models.ChallengePurposeRegistration))
}

func TestVerifyChallengeRejectsExpired(t *testing.T) {
	ctx := context.Background()
	repo := newFakeChallengeRepo()
	svc := NewChallengeService(repo, time.Minute)

	expired := &models.PasskeyChallenge{
		Value:     "expired-challenge",
		UserID:    "u1",
		Purpose:   models.ChallengePurposeRegistration,
		IssuedAt:  time.Now().Add(-2 * time.Minute),
		ExpiresAt: time.Now().Add(-time.Minute),
	}
	require.NoError(t, repo.Create(ctx, expired))

	require.False(t, svc.VerifyChallenge(ctx, expired.Value, "u1", models.ChallengePurposeRegistration))
	// Expired challenges are consumed too.
	require.Equal(t, 0, repo.count())
}

func TestConsumeChallengeReturnsOwner(t *testing.T) {
	ctx := context.Background()
	repo := newFakeChallengeRepo()
	svc := NewChallengeService(repo, time.Minute)

	value, err := svc.CreateChallenge(ctx, "u1", models.ChallengePurposeAuthentication)
	require.NoError(t, err)

	owner, ok := svc.ConsumeChallenge(ctx, value, models.ChallengePurposeAuthentication)
	require.True(t, ok)
	require.Equal(t, "u1", owner)

	// Usernameless ceremony has no owner.
	value, err = svc.CreateChallenge(ctx, "", models.ChallengePurposeAuthentication)
	require.NoError(t, err)
	owner, ok = svc.ConsumeChallenge(ctx, value, models.ChallengePurposeAuthentication)
	require.True(t, ok)
	require.Empty(t, owner)
}

func TestExtractChallengeFromClientData(t *testing.T) {
	repo := newFakeChallengeRepo()
	svc := NewChallengeService(repo, time.Minute)

	got, err := svc.ExtractChallengeFromClientData(clientDataB64(t, "webauthn.create", "the-challenge"))
	require.NoError(t, err)
	require.Equal(t, "the-challenge", got)

	// Not base64url.
	_, err = svc.ExtractChallengeFromClientData("!!!")
	require.Error(t, err)

	// Valid base64url but not JSON.
	_, err = svc.ExtractChallengeFromClientData(base64.RawURLEncoding.EncodeToString([]byte("not json")))
	require.Error(t, err)

	// JSON without a challenge field.
	_, err = svc.ExtractChallengeFromClientData(base64.RawURLEncoding.EncodeToString([]byte(`{"type":"webauthn.create"}`)))
	require.Error(t, err)
}
