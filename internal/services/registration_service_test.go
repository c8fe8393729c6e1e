package services

import (
	"context"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/strategiz-io/passkey-service/internal/dtos"
	"github.com/strategiz-io/passkey-service/internal/utils"
)

func TestBeginRegistrationFeatureDisabled(t *testing.T) {
	f := newPasskeyFixture(t)
	f.cfg.LDFlag_PasskeySignupEnabled = false

	_, err := f.registration.BeginRegistration(context.Background(), "u1", "alice")
	require.ErrorIs(t, err, utils.ErrFeatureDisabled)

	// The gate fires before any challenge is created.
	require.Equal(t, 0, f.challengeRepo.count())
}

func TestBeginRegistrationChallengePayload(t *testing.T) {
	f := newPasskeyFixture(t)

	resp, err := f.registration.BeginRegistration(context.Background(), "u1", "alice")
	require.NoError(t, err)

	require.Equal(t, "localhost", resp.RPID)
	require.Equal(t, "Strategiz", resp.RPName)
	require.Equal(t, "alice", resp.Username)
	require.Equal(t, "u1", resp.UserID)
	require.NotEmpty(t, resp.Challenge)
	require.Equal(t, int64(60000), resp.TimeoutMs)
	require.Equal(t, "none", resp.Attestation)
	require.False(t, resp.ExcludeCredentials)
	require.Nil(t, resp.AuthenticatorSelection.Attachment)
	require.Equal(t, "preferred", resp.AuthenticatorSelection.ResidentKey)
	require.False(t, resp.AuthenticatorSelection.RequireResidentKey)
	require.Equal(t, "preferred", resp.AuthenticatorSelection.UserVerification)
	require.Equal(t, 1, f.challengeRepo.count())
}

func TestCompleteRegistrationStoresBackupFlags(t *testing.T) {
	f := newPasskeyFixture(t)
	ctx := context.Background()

	begin, err := f.registration.BeginRegistration(ctx, "u1", "alice")
	require.NoError(t, err)

	_, coseKey := es256TestKey(t)
	credID := []byte{1, 2, 3, 4}
	credIDB64 := base64.RawURLEncoding.EncodeToString(credID)
	authData := testAuthData(t, testFlagUP|testFlagAT|testFlagBE|testFlagBS, 9, credID, coseKey)

	result := f.registration.CompleteRegistration(ctx, &dtos.CompleteRegistrationRequest{
		UserID:            "u1",
		CredentialID:      credIDB64,
		AttestationObject: attestationObjectB64(t, authData),
		ClientDataJSON:    clientDataB64(t, "webauthn.create", begin.Challenge),
		DeviceID:          "device-1",
	})

	require.True(t, result.Success, "message: %s", result.Message)
	require.Equal(t, credIDB64, result.CredentialID)
	require.NotNil(t, result.Tokens)
	require.NotEmpty(t, result.Tokens.AccessToken)
	require.NotEmpty(t, result.Tokens.RefreshToken)

	stored, err := f.credentialRepo.FindByCredentialID(ctx, credIDB64)
	require.NoError(t, err)
	require.NotNil(t, stored)
	require.True(t, stored.Active)
	require.True(t, stored.Passkey.BackupEligible)
	require.True(t, stored.Passkey.BackupState)
	// New credentials always start at zero regardless of the attested counter.
	require.Equal(t, uint32(0), stored.Passkey.SignatureCounter)
	// Zero AAGUID resolves to the generic name.
	require.Equal(t, "Passkey", stored.Passkey.AuthenticatorName)
	require.Equal(t, "00000000-0000-0000-0000-000000000000", stored.Passkey.AAGUID)
}

func TestCompleteRegistrationRejectsDuplicate(t *testing.T) {
	f := newPasskeyFixture(t)
	ctx := context.Background()

	_, coseKey := es256TestKey(t)
	credID := []byte{9, 9, 9, 9}
	credIDB64 := base64.RawURLEncoding.EncodeToString(credID)
	authData := testAuthData(t, testFlagUP|testFlagAT, 0, credID, coseKey)

	register := func() *dtos.RegistrationResultResponse {
		begin, err := f.registration.BeginRegistration(ctx, "u1", "alice")
		require.NoError(t, err)
		return f.registration.CompleteRegistration(ctx, &dtos.CompleteRegistrationRequest{
			UserID:            "u1",
			CredentialID:      credIDB64,
			AttestationObject: attestationObjectB64(t, authData),
			ClientDataJSON:    clientDataB64(t, "webauthn.create", begin.Challenge),
			DeviceID:          "device-1",
		})
	}

	require.True(t, register().Success)

	second := register()
	require.False(t, second.Success)
	require.Equal(t, "Credential already exists", second.Message)
	require.Equal(t, 1, f.credentialRepo.count())
}

func TestCompleteRegistrationRejectsBadAttestation(t *testing.T) {
	f := newPasskeyFixture(t)
	ctx := context.Background()

	begin, err := f.registration.BeginRegistration(ctx, "u1", "alice")
	require.NoError(t, err)

	// Truncated authData: flags claim attested data that is not there.
	truncated := testAuthData(t, testFlagUP|testFlagAT, 0, []byte{1, 2, 3, 4}, nil)
	truncated = truncated[:40]

	result := f.registration.CompleteRegistration(ctx, &dtos.CompleteRegistrationRequest{
		UserID:            "u1",
		CredentialID:      "AQIDBA",
		AttestationObject: attestationObjectB64(t, truncated),
		ClientDataJSON:    clientDataB64(t, "webauthn.create", begin.Challenge),
		DeviceID:          "device-1",
	})

	require.False(t, result.Success)
	require.Equal(t, "Could not parse attestation", result.Message)
	require.Equal(t, 0, f.credentialRepo.count())
}

func TestCompleteRegistrationRejectsStaleChallenge(t *testing.T) {
	f := newPasskeyFixture(t)
	ctx := context.Background()

	begin, err := f.registration.BeginRegistration(ctx, "u1", "alice")
	require.NoError(t, err)

	_, coseKey := es256TestKey(t)
	credID := []byte{5, 6, 7, 8}
	req := &dtos.CompleteRegistrationRequest{
		UserID:            "u1",
		CredentialID:      base64.RawURLEncoding.EncodeToString(credID),
		AttestationObject: attestationObjectB64(t, testAuthData(t, testFlagUP|testFlagAT, 0, credID, coseKey)),
		ClientDataJSON:    clientDataB64(t, "webauthn.create", begin.Challenge),
		DeviceID:          "device-1",
	}

	require.True(t, f.registration.CompleteRegistration(ctx, req).Success)

	// Replaying the same ceremony fails on the consumed challenge.
	replay := f.registration.CompleteRegistration(ctx, req)
	require.False(t, replay.Success)
	require.Equal(t, "Invalid challenge", replay.Message)
}

func TestCompleteRegistrationRejectsForeignChallenge(t *testing.T) {
	f := newPasskeyFixture(t)
	ctx := context.Background()

	begin, err := f.registration.BeginRegistration(ctx, "u1", "alice")
	require.NoError(t, err)

	_, coseKey := es256TestKey(t)
	credID := []byte{1, 1, 2, 2}
	result := f.registration.CompleteRegistration(ctx, &dtos.CompleteRegistrationRequest{
		UserID:            "u2",
		CredentialID:      base64.RawURLEncoding.EncodeToString(credID),
		AttestationObject: attestationObjectB64(t, testAuthData(t, testFlagUP|testFlagAT, 0, credID, coseKey)),
		ClientDataJSON:    clientDataB64(t, "webauthn.create", begin.Challenge),
		DeviceID:          "device-1",
	})

	require.False(t, result.Success)
	require.Equal(t, "Invalid challenge", result.Message)
	require.Equal(t, 0, f.credentialRepo.count())
}
