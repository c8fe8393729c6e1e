package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/strategiz-io/passkey-service/internal/config"
	"github.com/strategiz-io/passkey-service/internal/dtos"
	"github.com/strategiz-io/passkey-service/internal/models"
	"github.com/strategiz-io/passkey-service/internal/repositories"
	"github.com/strategiz-io/passkey-service/internal/utils"
	"github.com/strategiz-io/passkey-service/internal/webauthn"
)

// Messages surfaced to clients on expected protocol failures. Kept
// deliberately generic; the detailed cause only goes to the server log.
const (
	msgInvalidChallenge   = "Invalid challenge"
	msgDuplicateCred      = "Credential already exists"
	msgAttestationFailure = "Could not parse attestation"
	msgRegistrationFailed = "Registration failed"
)

// AssuranceMethodPasskey is the authentication method recorded in
// sessions minted by a passkey ceremony.
const AssuranceMethodPasskey = "passkeys"

// RegistrationService drives the passkey enrollment ceremony:
// challenge issued, attestation verified, credential stored, session
// minted.
type RegistrationService interface {
	// BeginRegistration issues a registration challenge. Fails with
	// utils.ErrFeatureDisabled before creating any challenge when
	// passkey signup is administratively off.
	BeginRegistration(ctx context.Context, userID, username string) (*dtos.RegistrationChallengeResponse, error)

	// CompleteRegistration verifies the attestation response and stores
	// the credential. Expected protocol failures come back as
	// success=false results, never as errors.
	CompleteRegistration(ctx context.Context, req *dtos.CompleteRegistrationRequest) *dtos.RegistrationResultResponse
}

type registrationService struct {
	cfg            *config.Config
	challengeSvc   ChallengeService
	credentialRepo repositories.CredentialRepository
	sessionSvc     SessionService
}

func NewRegistrationService(
	cfg *config.Config,
	challengeSvc ChallengeService,
	credentialRepo repositories.CredentialRepository,
	sessionSvc SessionService,
) RegistrationService {
	return &registrationService{
		cfg:            cfg,
		challengeSvc:   challengeSvc,
		credentialRepo: credentialRepo,
		sessionSvc:     sessionSvc,
	}
}

func (s *registrationService) BeginRegistration(ctx context.Context, userID, username string) (*dtos.RegistrationChallengeResponse, error) {
	if !s.cfg.LDFlag_PasskeySignupEnabled {
		return nil, utils.ErrFeatureDisabled
	}

	challenge, err := s.challengeSvc.CreateChallenge(ctx, userID, models.ChallengePurposeRegistration)
	if err != nil {
		return nil, err
	}

	return &dtos.RegistrationChallengeResponse{
		RPID:      s.cfg.RPID,
		RPName:    s.cfg.RPName,
		Username:  username,
		UserID:    userID,
		Challenge: challenge,
		TimeoutMs: s.cfg.ChallengeTimeout.Milliseconds(),
		AuthenticatorSelection: dtos.AuthenticatorSelection{
			Attachment:         nil,
			ResidentKey:        "preferred",
			RequireResidentKey: false,
			UserVerification:   "preferred",
		},
		Attestation:        "none",
		ExcludeCredentials: false,
	}, nil
}

func (s *registrationService) CompleteRegistration(ctx context.Context, req *dtos.CompleteRegistrationRequest) (result *dtos.RegistrationResultResponse) {
	// Unexpected panics from decoding hostile input must not cross the
	// service boundary; they become a generic failure result.
	defer func() {
		if r := recover(); r != nil {
			utils.Logger.Errorf("panic in CompleteRegistration: %v", r)
			result = registrationFailure(req.CredentialID, msgRegistrationFailed)
		}
	}()

	challenge, err := s.challengeSvc.ExtractChallengeFromClientData(req.ClientDataJSON)
	if err != nil {
		utils.Logger.WithError(err).Warn("registration client data rejected")
		return registrationFailure(req.CredentialID, msgInvalidChallenge)
	}
	if !s.challengeSvc.VerifyChallenge(ctx, challenge, req.UserID, models.ChallengePurposeRegistration) {
		utils.Logger.Warnf("registration challenge rejected for user %s", req.UserID)
		return registrationFailure(req.CredentialID, msgInvalidChallenge)
	}

	existing, err := s.credentialRepo.ListByUserID(ctx, req.UserID)
	if err != nil {
		utils.Logger.WithError(err).Error("failed to list credentials during registration")
		return registrationFailure(req.CredentialID, msgRegistrationFailed)
	}
	for _, m := range existing {
		if m.Passkey != nil && m.Passkey.CredentialID == req.CredentialID {
			return registrationFailure(req.CredentialID, msgDuplicateCred)
		}
	}

	parsed, err := webauthn.ParseAttestationObject(req.AttestationObject)
	if err != nil {
		utils.Logger.WithError(err).Warnf("attestation parse failure for user %s", req.UserID)
		return registrationFailure(req.CredentialID, msgAttestationFailure)
	}

	method := &models.AuthMethod{
		ID:        uuid.New(),
		UserID:    req.UserID,
		Kind:      models.AuthMethodPasskey,
		CreatedAt: time.Now(),
		Active:    true,
		Passkey: &models.PasskeyCredential{
			CredentialID:      req.CredentialID,
			PublicKey:         parsed.PublicKey,
			SignatureCounter:  0,
			AAGUID:            parsed.AAGUID,
			AuthenticatorName: webauthn.AuthenticatorName(parsed.AAGUID),
			BackupEligible:    parsed.BackupEligible,
			BackupState:       parsed.BackupState,
		},
	}

	if err := s.credentialRepo.Save(ctx, method); err != nil {
		if err == utils.ErrDuplicateCredential {
			return registrationFailure(req.CredentialID, msgDuplicateCred)
		}
		utils.Logger.WithError(err).Error("failed to persist passkey credential")
		return registrationFailure(req.CredentialID, msgRegistrationFailed)
	}

	tokens, err := s.sessionSvc.CreateAuthenticationTokenPair(ctx, SessionRequest{
		UserID:      req.UserID,
		Methods:     []string{AssuranceMethodPasskey},
		ACR:         AssuranceMethodPasskey,
		DeviceID:    req.DeviceID,
		Fingerprint: req.DeviceID,
	})
	if err != nil {
		// The credential is already committed; the client can retry
		// login without re-enrolling.
		utils.Logger.WithError(err).Error("credential stored but session issuance failed")
		return registrationFailure(req.CredentialID, msgRegistrationFailed)
	}

	return &dtos.RegistrationResultResponse{
		Success:      true,
		CredentialID: req.CredentialID,
		Tokens:       tokens,
	}
}

func registrationFailure(credentialID, message string) *dtos.RegistrationResultResponse {
	return &dtos.RegistrationResultResponse{
		Success:      false,
		CredentialID: credentialID,
		Message:      message,
	}
}
