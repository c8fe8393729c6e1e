package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/strategiz-io/passkey-service/internal/dtos"
	"github.com/strategiz-io/passkey-service/internal/repositories"
	"github.com/strategiz-io/passkey-service/internal/utils"
)

// CredentialService exposes a user's enrolled passkeys for management.
type CredentialService interface {
	// ListCredentials returns the user's passkeys, newest first.
	ListCredentials(ctx context.Context, userID string) (*dtos.ListCredentialsResponse, error)

	// RevokeCredential deactivates one of the user's passkeys. The row
	// stays for audit; the credential can never authenticate again.
	// Fails with utils.ErrCredentialNotFound when no active row matches.
	RevokeCredential(ctx context.Context, userID string, id uuid.UUID) error
}

type credentialService struct {
	credentialRepo repositories.CredentialRepository
}

func NewCredentialService(credentialRepo repositories.CredentialRepository) CredentialService {
	return &credentialService{credentialRepo: credentialRepo}
}

func (s *credentialService) ListCredentials(ctx context.Context, userID string) (*dtos.ListCredentialsResponse, error) {
	methods, err := s.credentialRepo.ListByUserID(ctx, userID)
	if err != nil {
		utils.Logger.WithError(err).Error("failed to list passkey credentials")
		return nil, utils.ErrPersistenceFailure
	}

	out := &dtos.ListCredentialsResponse{Credentials: []dtos.CredentialSummary{}}
	for _, m := range methods {
		if m.Passkey == nil {
			continue
		}
		summary := dtos.CredentialSummary{
			ID:                m.ID.String(),
			CredentialID:      m.Passkey.CredentialID,
			AuthenticatorName: m.Passkey.AuthenticatorName,
			AAGUID:            m.Passkey.AAGUID,
			CreatedAt:         m.CreatedAt.Format(time.RFC3339),
			BackupEligible:    m.Passkey.BackupEligible,
			BackupState:       m.Passkey.BackupState,
			Active:            m.Active,
		}
		if m.LastUsedAt != nil {
			summary.LastUsedAt = m.LastUsedAt.Format(time.RFC3339)
		}
		out.Credentials = append(out.Credentials, summary)
	}
	return out, nil
}

func (s *credentialService) RevokeCredential(ctx context.Context, userID string, id uuid.UUID) error {
	err := s.credentialRepo.Deactivate(ctx, userID, id)
	if err == utils.ErrNoRowsUpdated {
		return utils.ErrCredentialNotFound
	}
	if err != nil {
		utils.Logger.WithError(err).Error("failed to revoke passkey credential")
		return utils.ErrPersistenceFailure
	}
	return nil
}
