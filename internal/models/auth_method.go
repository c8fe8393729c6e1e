// internal/models/auth_method.go
package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// AuthMethodKind discriminates the AuthMethod union.
type AuthMethodKind string

const (
	AuthMethodPasskey AuthMethodKind = "passkey"
	AuthMethodTotp    AuthMethodKind = "totp"
	AuthMethodSmsOtp  AuthMethodKind = "sms_otp"
	AuthMethodOAuth   AuthMethodKind = "oauth"
)

// AuthMethod is a tagged union over the supported authentication methods.
// The envelope fields are shared; exactly one variant pointer matching Kind
// is non-nil. Apart from the passkey signature counter, LastUsedAt and
// Active, a stored method is immutable.
type AuthMethod struct {
	ID         uuid.UUID      `json:"id"`
	UserID     string         `json:"user_id"`
	Kind       AuthMethodKind `json:"kind"`
	CreatedAt  time.Time      `json:"created_at"`
	LastUsedAt *time.Time     `json:"last_used_at,omitempty"`
	Active     bool           `json:"active"`

	Passkey *PasskeyCredential `json:"passkey,omitempty"`
	Totp    *TotpEnrollment    `json:"totp,omitempty"`
	SmsOtp  *SmsOtpEnrollment  `json:"sms_otp,omitempty"`
	OAuth   *OAuthLink         `json:"oauth,omitempty"`
}

// Validate checks that exactly the variant named by Kind is set.
func (m *AuthMethod) Validate() error {
	var want, got int
	want = 1
	if m.Passkey != nil {
		got++
		if m.Kind != AuthMethodPasskey {
			return fmt.Errorf("auth method %s carries a passkey variant but kind is %q", m.ID, m.Kind)
		}
	}
	if m.Totp != nil {
		got++
		if m.Kind != AuthMethodTotp {
			return fmt.Errorf("auth method %s carries a totp variant but kind is %q", m.ID, m.Kind)
		}
	}
	if m.SmsOtp != nil {
		got++
		if m.Kind != AuthMethodSmsOtp {
			return fmt.Errorf("auth method %s carries an sms_otp variant but kind is %q", m.ID, m.Kind)
		}
	}
	if m.OAuth != nil {
		got++
		if m.Kind != AuthMethodOAuth {
			return fmt.Errorf("auth method %s carries an oauth variant but kind is %q", m.ID, m.Kind)
		}
	}
	if got != want {
		return fmt.Errorf("auth method %s must carry exactly one variant, has %d", m.ID, got)
	}
	return nil
}

// MarkUsed records a successful use of this method.
func (m *AuthMethod) MarkUsed(at time.Time) {
	m.LastUsedAt = &at
}

// PasskeyCredential is the WebAuthn variant of AuthMethod.
type PasskeyCredential struct {
	// CredentialID is the client-generated credential identifier,
	// base64url-encoded. Unique across the whole system.
	CredentialID string `json:"credential_id"`
	// PublicKey is the COSE-encoded key material exactly as it appeared
	// in the attested credential data.
	PublicKey []byte `json:"public_key"`
	// SignatureCounter never decreases across successful authentications.
	SignatureCounter  uint32 `json:"signature_counter"`
	AAGUID            string `json:"aaguid"`
	AuthenticatorName string `json:"authenticator_name"`
	BackupEligible    bool   `json:"backup_eligible"`
	BackupState       bool   `json:"backup_state"`
}

// TotpEnrollment is the TOTP variant of AuthMethod. Enrollment and code
// verification are handled by a separate service; only the stored shape
// lives here.
type TotpEnrollment struct {
	SecretEncrypted []byte `json:"secret_encrypted"`
	Digits          int    `json:"digits"`
	PeriodSeconds   int    `json:"period_seconds"`
}

// SmsOtpEnrollment is the SMS one-time-code variant of AuthMethod.
type SmsOtpEnrollment struct {
	PhoneNumber string `json:"phone_number"`
	Verified    bool   `json:"verified"`
}

// OAuthLink is the federated-login variant of AuthMethod.
type OAuthLink struct {
	Provider string `json:"provider"`
	Subject  string `json:"subject"`
}
