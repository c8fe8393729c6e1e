// internal/webauthn/attestation.go

package webauthn

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// attestationObject is the CBOR map produced by
// navigator.credentials.create(). The attestation statement is carried
// opaquely; we request attestation "none" and never evaluate it.
type attestationObject struct {
	Format   string          `cbor:"fmt"`
	AttStmt  cbor.RawMessage `cbor:"attStmt"`
	AuthData []byte          `cbor:"authData"`
}

// ParsedAttestation is everything registration needs out of an
// attestation object.
type ParsedAttestation struct {
	Format         string
	CredentialID   []byte
	PublicKey      []byte // raw COSE bytes
	AAGUID         string // canonical UUID form
	SignCount      uint32
	Flags          Flags
	RPIDHash       []byte
	BackupEligible bool
	BackupState    bool
}

// ParseAttestationObject decodes a base64url attestation object down to
// the attested credential. Fails with ErrEncoding, ErrCBOR,
// ErrMissingAttestedData or ErrTruncated depending on which layer broke.
func ParseAttestationObject(attestationObjectB64 string) (*ParsedAttestation, error) {
	raw, err := DecodeFlexB64(attestationObjectB64)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncoding, err)
	}

	var obj attestationObject
	if err := cbor.Unmarshal(raw, &obj); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCBOR, err)
	}
	if len(obj.AuthData) == 0 {
		return nil, fmt.Errorf("%w: no authData entry", ErrCBOR)
	}

	ad, err := ParseAuthenticatorData(obj.AuthData, true)
	if err != nil {
		return nil, err
	}

	return &ParsedAttestation{
		Format:         obj.Format,
		CredentialID:   ad.CredentialID,
		PublicKey:      ad.PublicKey,
		AAGUID:         ad.AAGUIDString(),
		SignCount:      ad.SignCount,
		Flags:          ad.Flags,
		RPIDHash:       ad.RPIDHash,
		BackupEligible: ad.Flags.BackupEligible(),
		BackupState:    ad.Flags.BackupState(),
	}, nil
}
