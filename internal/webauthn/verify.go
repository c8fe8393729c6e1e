// internal/webauthn/verify.go

package webauthn

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/sha512"
	"errors"
	"fmt"
)

var ErrBadSignature = errors.New("bad_signature")

// VerifyAssertionSignature checks an assertion signature against a
// stored COSE public key. The signed message is the raw authenticator
// data with the SHA-256 of the client data JSON appended; the client
// data itself is never part of the message.
func VerifyAssertionSignature(coseKey, authData, clientDataJSON, signature []byte) error {
	pub, alg, err := DecodePublicKey(coseKey)
	if err != nil {
		return err
	}

	clientDataHash := sha256.Sum256(clientDataJSON)
	signed := make([]byte, 0, len(authData)+len(clientDataHash))
	signed = append(signed, authData...)
	signed = append(signed, clientDataHash[:]...)

	return verify(pub, alg, signed, signature)
}

func verify(pub crypto.PublicKey, alg Algorithm, message, signature []byte) error {
	switch alg {
	case ES256, ES384, ES512:
		key, ok := pub.(*ecdsa.PublicKey)
		if !ok {
			return fmt.Errorf("%w: %s needs an ecdsa key", ErrUnsupportedKey, alg)
		}
		var digest []byte
		switch alg {
		case ES256:
			h := sha256.Sum256(message)
			digest = h[:]
		case ES384:
			h := sha512.Sum384(message)
			digest = h[:]
		default:
			h := sha512.Sum512(message)
			digest = h[:]
		}
		if !ecdsa.VerifyASN1(key, digest, signature) {
			return ErrBadSignature
		}
		return nil

	case EdDSA:
		key, ok := pub.(ed25519.PublicKey)
		if !ok {
			return fmt.Errorf("%w: EdDSA needs an ed25519 key", ErrUnsupportedKey)
		}
		if !ed25519.Verify(key, message, signature) {
			return ErrBadSignature
		}
		return nil

	case RS256:
		key, ok := pub.(*rsa.PublicKey)
		if !ok {
			return fmt.Errorf("%w: RS256 needs an rsa key", ErrUnsupportedKey)
		}
		digest := sha256.Sum256(message)
		if err := rsa.VerifyPKCS1v15(key, crypto.SHA256, digest[:], signature); err != nil {
			return ErrBadSignature
		}
		return nil

	default:
		return fmt.Errorf("%w: algorithm %s", ErrUnsupportedKey, alg)
	}
}
