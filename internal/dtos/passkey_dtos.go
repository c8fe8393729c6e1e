package dtos

// ----------------------
// Registration
// ----------------------

type BeginRegistrationRequest struct {
	UserID   string `json:"user_id" validate:"required"`
	Username string `json:"username" validate:"required"`
}

// AuthenticatorSelection is passed straight through to
// navigator.credentials.create(); the zero attachment means no
// restriction.
type AuthenticatorSelection struct {
	Attachment         *string `json:"authenticatorAttachment"`
	ResidentKey        string  `json:"residentKey"`
	RequireResidentKey bool    `json:"requireResidentKey"`
	UserVerification   string  `json:"userVerification"`
}

type RegistrationChallengeResponse struct {
	RPID                   string                 `json:"rpId"`
	RPName                 string                 `json:"rpName"`
	Username               string                 `json:"username"`
	UserID                 string                 `json:"userId"`
	Challenge              string                 `json:"challenge"`
	TimeoutMs              int64                  `json:"timeoutMs"`
	AuthenticatorSelection AuthenticatorSelection `json:"authenticatorSelection"`
	Attestation            string                 `json:"attestation"`
	ExcludeCredentials     bool                   `json:"excludeCredentials"`
}

type CompleteRegistrationRequest struct {
	UserID            string `json:"user_id" validate:"required"`
	CredentialID      string `json:"credential_id" validate:"required"`
	AttestationObject string `json:"attestation_object" validate:"required"`
	ClientDataJSON    string `json:"client_data_json" validate:"required"`
	DeviceID          string `json:"device_id" validate:"required"`
}

type RegistrationResultResponse struct {
	Success      bool       `json:"success"`
	CredentialID string     `json:"credential_id"`
	Tokens       *TokenPair `json:"tokens,omitempty"`
	Message      string     `json:"message,omitempty"`
}

// ----------------------
// Authentication
// ----------------------

type BeginAuthenticationRequest struct {
	// Empty for the discoverable (usernameless) flow.
	UserID string `json:"user_id"`
}

type AllowedCredential struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

type AuthenticationChallengeResponse struct {
	Challenge        string              `json:"challenge"`
	TimeoutMs        int64               `json:"timeoutMs"`
	AllowCredentials []AllowedCredential `json:"allowCredentials"`
	UserVerification string              `json:"userVerification"`
}

type CompleteAuthenticationRequest struct {
	CredentialID      string `json:"credential_id" validate:"required"`
	AuthenticatorData string `json:"authenticator_data" validate:"required"`
	ClientDataJSON    string `json:"client_data_json" validate:"required"`
	Signature         string `json:"signature" validate:"required"`
	UserHandle        string `json:"user_handle"`
	DeviceID          string `json:"device_id" validate:"required"`
}

type AuthenticationResultResponse struct {
	Success bool       `json:"success"`
	UserID  string     `json:"user_id,omitempty"`
	Tokens  *TokenPair `json:"tokens,omitempty"`
	Message string     `json:"message,omitempty"`
}

// ----------------------
// Shared
// ----------------------

type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// ----------------------
// Credential management
// ----------------------

type CredentialSummary struct {
	ID                string `json:"id"`
	CredentialID      string `json:"credential_id"`
	AuthenticatorName string `json:"authenticator_name"`
	AAGUID            string `json:"aaguid"`
	CreatedAt         string `json:"created_at"`
	LastUsedAt        string `json:"last_used_at,omitempty"`
	BackupEligible    bool   `json:"backup_eligible"`
	BackupState       bool   `json:"backup_state"`
	Active            bool   `json:"active"`
}

type ListCredentialsResponse struct {
	Credentials []CredentialSummary `json:"credentials"`
}

type RevokeCredentialResponse struct {
	Message string `json:"message"`
}
