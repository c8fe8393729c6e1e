// internal/webauthn/authenticator_data.go

package webauthn

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
)

// Parse failures, one sentinel per failure class. Callers match with
// errors.Is; the wrapped detail stays server-side.
var (
	ErrEncoding            = errors.New("attestation_encoding")
	ErrCBOR                = errors.New("attestation_cbor")
	ErrMissingAttestedData = errors.New("attestation_missing_attested_data")
	ErrTruncated           = errors.New("attestation_truncated")
)

// Flags is the authenticator data flags byte.
//
// https://www.w3.org/TR/webauthn-3/#authdata-flags
type Flags byte

const (
	flagUserPresent            Flags = 1 << 0
	flagUserVerified           Flags = 1 << 2
	flagBackupEligible         Flags = 1 << 3
	flagBackupState            Flags = 1 << 4
	flagAttestedCredentialData Flags = 1 << 6
	flagExtensions             Flags = 1 << 7
)

func (f Flags) UserPresent() bool            { return f&flagUserPresent != 0 }
func (f Flags) UserVerified() bool           { return f&flagUserVerified != 0 }
func (f Flags) BackupEligible() bool         { return f&flagBackupEligible != 0 }
func (f Flags) BackupState() bool            { return f&flagBackupState != 0 }
func (f Flags) AttestedCredentialData() bool { return f&flagAttestedCredentialData != 0 }
func (f Flags) Extensions() bool             { return f&flagExtensions != 0 }

// AuthenticatorData is the decoded fixed+variable authData layout:
// 32-byte RP-ID hash, 1-byte flags, 4-byte big-endian signature counter,
// then attested credential data when the AT flag is set.
type AuthenticatorData struct {
	RPIDHash  []byte
	Flags     Flags
	SignCount uint32

	// Attested credential data; only populated when Flags.AttestedCredentialData().
	AAGUID       [16]byte
	CredentialID []byte
	PublicKey    []byte // raw COSE bytes, exactly as attested
}

// AAGUIDString formats the AAGUID as a canonical UUID string.
func (a *AuthenticatorData) AAGUIDString() string {
	return uuid.UUID(a.AAGUID).String()
}

// DecodeFlexB64 handles URL-safe base64 with or without padding.
func DecodeFlexB64(s string) ([]byte, error) {
	s = strings.NewReplacer("-", "+", "_", "/").Replace(s)
	if m := len(s) % 4; m != 0 {
		s += strings.Repeat("=", 4-m)
	}
	return base64.StdEncoding.DecodeString(s)
}

// ParseAuthenticatorData decodes raw authData bytes. When requireAttested
// is true (registration), a missing AT flag is ErrMissingAttestedData.
// Any length mismatch while slicing fixed-size fields is ErrTruncated,
// never a silent default.
func ParseAuthenticatorData(raw []byte, requireAttested bool) (*AuthenticatorData, error) {
	var ad AuthenticatorData

	if len(raw) < 32 {
		return nil, fmt.Errorf("%w: %d bytes, need 32 for rpIdHash", ErrTruncated, len(raw))
	}
	ad.RPIDHash = raw[:32]
	raw = raw[32:]

	if len(raw) < 1 {
		return nil, fmt.Errorf("%w: missing flags byte", ErrTruncated)
	}
	ad.Flags = Flags(raw[0])
	raw = raw[1:]

	if len(raw) < 4 {
		return nil, fmt.Errorf("%w: %d bytes, need 4 for signature counter", ErrTruncated, len(raw))
	}
	ad.SignCount = binary.BigEndian.Uint32(raw[:4])
	raw = raw[4:]

	if !ad.Flags.AttestedCredentialData() {
		if requireAttested {
			return nil, ErrMissingAttestedData
		}
		return &ad, nil
	}

	if len(raw) < 16 {
		return nil, fmt.Errorf("%w: %d bytes, need 16 for aaguid", ErrTruncated, len(raw))
	}
	copy(ad.AAGUID[:], raw[:16])
	raw = raw[16:]

	if len(raw) < 2 {
		return nil, fmt.Errorf("%w: missing credential ID length", ErrTruncated)
	}
	credIDLen := int(binary.BigEndian.Uint16(raw[:2]))
	raw = raw[2:]

	if len(raw) < credIDLen {
		return nil, fmt.Errorf("%w: %d bytes, need %d for credential ID", ErrTruncated, len(raw), credIDLen)
	}
	ad.CredentialID = raw[:credIDLen]
	raw = raw[credIDLen:]

	dec := cbor.NewDecoder(bytes.NewReader(raw))
	var key cbor.RawMessage
	if err := dec.Decode(&key); err != nil {
		return nil, fmt.Errorf("%w: credential public key: %v", ErrCBOR, err)
	}
	ad.PublicKey = raw[:dec.NumBytesRead()]

	return &ad, nil
}
