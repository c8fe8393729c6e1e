package services

import (
	"context"
	"time"

	"github.com/strategiz-io/passkey-service/internal/config"
	"github.com/strategiz-io/passkey-service/internal/dtos"
	"github.com/strategiz-io/passkey-service/internal/models"
	"github.com/strategiz-io/passkey-service/internal/repositories"
	"github.com/strategiz-io/passkey-service/internal/utils"
	"github.com/strategiz-io/passkey-service/internal/webauthn"
)

const (
	msgCredentialNotFound    = "Credential not found"
	msgInvalidSignature      = "Invalid signature"
	msgReplayDetected        = "Replay detected"
	msgAssertionParseFailure = "Could not parse authenticator data"
	msgAuthenticationFailed  = "Authentication failed"
)

// AuthenticationService drives the assertion ceremony: challenge
// consumed, credential looked up, replay check, signature verified,
// counter advanced, session minted.
type AuthenticationService interface {
	// BeginAuthentication issues an authentication challenge. With a
	// userID it returns that user's credential IDs as allowCredentials;
	// without one it starts a discoverable ceremony.
	BeginAuthentication(ctx context.Context, userID string) (*dtos.AuthenticationChallengeResponse, error)

	// CompleteAuthentication verifies the assertion. Expected protocol
	// failures come back as success=false results, never as errors.
	CompleteAuthentication(ctx context.Context, req *dtos.CompleteAuthenticationRequest) *dtos.AuthenticationResultResponse
}

type authenticationService struct {
	cfg            *config.Config
	challengeSvc   ChallengeService
	credentialRepo repositories.CredentialRepository
	sessionSvc     SessionService
}

func NewAuthenticationService(
	cfg *config.Config,
	challengeSvc ChallengeService,
	credentialRepo repositories.CredentialRepository,
	sessionSvc SessionService,
) AuthenticationService {
	return &authenticationService{
		cfg:            cfg,
		challengeSvc:   challengeSvc,
		credentialRepo: credentialRepo,
		sessionSvc:     sessionSvc,
	}
}

func (s *authenticationService) BeginAuthentication(ctx context.Context, userID string) (*dtos.AuthenticationChallengeResponse, error) {
	allow := []dtos.AllowedCredential{}
	if userID != "" {
		methods, err := s.credentialRepo.ListByUserID(ctx, userID)
		if err != nil {
			utils.Logger.WithError(err).Error("failed to list credentials for authentication")
			return nil, utils.ErrPersistenceFailure
		}
		for _, m := range methods {
			if !m.Active || m.Passkey == nil {
				continue
			}
			allow = append(allow, dtos.AllowedCredential{
				Type: "public-key",
				ID:   m.Passkey.CredentialID,
			})
		}
	}

	challenge, err := s.challengeSvc.CreateChallenge(ctx, userID, models.ChallengePurposeAuthentication)
	if err != nil {
		return nil, err
	}

	return &dtos.AuthenticationChallengeResponse{
		Challenge:        challenge,
		TimeoutMs:        s.cfg.ChallengeTimeout.Milliseconds(),
		AllowCredentials: allow,
		UserVerification: "preferred",
	}, nil
}

func (s *authenticationService) CompleteAuthentication(ctx context.Context, req *dtos.CompleteAuthenticationRequest) (result *dtos.AuthenticationResultResponse) {
	defer func() {
		if r := recover(); r != nil {
			utils.Logger.Errorf("panic in CompleteAuthentication: %v", r)
			result = authenticationFailure(msgAuthenticationFailed)
		}
	}()

	challenge, err := s.challengeSvc.ExtractChallengeFromClientData(req.ClientDataJSON)
	if err != nil {
		utils.Logger.WithError(err).Warn("authentication client data rejected")
		return authenticationFailure(msgInvalidChallenge)
	}
	challengeUserID, ok := s.challengeSvc.ConsumeChallenge(ctx, challenge, models.ChallengePurposeAuthentication)
	if !ok {
		utils.Logger.Warn("authentication challenge rejected")
		return authenticationFailure(msgInvalidChallenge)
	}

	method, err := s.credentialRepo.FindByCredentialID(ctx, req.CredentialID)
	if err != nil {
		utils.Logger.WithError(err).Error("failed to look up credential during authentication")
		return authenticationFailure(msgAuthenticationFailed)
	}
	if method == nil || !method.Active || method.Passkey == nil {
		return authenticationFailure(msgCredentialNotFound)
	}
	// A challenge issued to one user cannot complete with another
	// user's credential.
	if challengeUserID != "" && challengeUserID != method.UserID {
		return authenticationFailure(msgInvalidChallenge)
	}

	authDataRaw, err := webauthn.DecodeFlexB64(req.AuthenticatorData)
	if err != nil {
		utils.Logger.WithError(err).Warn("assertion authenticator data not base64url")
		return authenticationFailure(msgAssertionParseFailure)
	}
	authData, err := webauthn.ParseAuthenticatorData(authDataRaw, false)
	if err != nil {
		utils.Logger.WithError(err).Warn("assertion authenticator data rejected")
		return authenticationFailure(msgAssertionParseFailure)
	}

	pk := method.Passkey
	newCounter := authData.SignCount
	// Authenticators that report counters must be strictly monotonic; a
	// stale or equal counter means a clone or a replay. A pair of zeros
	// means the authenticator never counts.
	if (newCounter != 0 || pk.SignatureCounter != 0) && newCounter <= pk.SignatureCounter {
		utils.Logger.Warnf("replay detected for credential %s: counter %d <= %d",
			req.CredentialID, newCounter, pk.SignatureCounter)
		return authenticationFailure(msgReplayDetected)
	}

	clientDataRaw, err := webauthn.DecodeFlexB64(req.ClientDataJSON)
	if err != nil {
		utils.Logger.WithError(err).Warn("assertion client data not base64url")
		return authenticationFailure(msgInvalidChallenge)
	}
	signature, err := webauthn.DecodeFlexB64(req.Signature)
	if err != nil {
		utils.Logger.WithError(err).Warn("assertion signature not base64url")
		return authenticationFailure(msgInvalidSignature)
	}
	if err := webauthn.VerifyAssertionSignature(pk.PublicKey, authDataRaw, clientDataRaw, signature); err != nil {
		utils.Logger.WithError(err).Warnf("signature verification failed for credential %s", req.CredentialID)
		return authenticationFailure(msgInvalidSignature)
	}

	now := time.Now()
	if newCounter > pk.SignatureCounter {
		err = s.credentialRepo.UpdateCounter(ctx, req.CredentialID, newCounter, now)
		if err == utils.ErrNoRowsUpdated {
			// A concurrent assertion advanced the counter first; this
			// one loses the race and is treated as the replay it is.
			utils.Logger.Warnf("counter race lost for credential %s at %d", req.CredentialID, newCounter)
			return authenticationFailure(msgReplayDetected)
		}
		if err != nil {
			utils.Logger.WithError(err).Error("failed to advance signature counter")
			return authenticationFailure(msgAuthenticationFailed)
		}
	} else {
		if err := s.credentialRepo.TouchLastUsed(ctx, req.CredentialID, now); err != nil {
			utils.Logger.WithError(err).Error("failed to record credential use")
			return authenticationFailure(msgAuthenticationFailed)
		}
	}

	tokens, err := s.sessionSvc.CreateAuthenticationTokenPair(ctx, SessionRequest{
		UserID:      method.UserID,
		Methods:     []string{AssuranceMethodPasskey},
		ACR:         AssuranceMethodPasskey,
		DeviceID:    req.DeviceID,
		Fingerprint: req.DeviceID,
	})
	if err != nil {
		utils.Logger.WithError(err).Error("assertion verified but session issuance failed")
		return authenticationFailure(msgAuthenticationFailed)
	}

	return &dtos.AuthenticationResultResponse{
		Success: true,
		UserID:  method.UserID,
		Tokens:  tokens,
	}
}

func authenticationFailure(message string) *dtos.AuthenticationResultResponse {
	return &dtos.AuthenticationResultResponse{
		Success: false,
		Message: message,
	}
}
