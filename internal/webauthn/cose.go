// internal/webauthn/cose.go

package webauthn

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rsa"
	"errors"
	"fmt"
	"math/big"

	"github.com/fxamacker/cbor/v2"
)

var ErrUnsupportedKey = errors.New("unsupported_cose_key")

// Algorithm is a COSE signature algorithm identifier (RFC 9053).
type Algorithm int

const (
	ES256 Algorithm = -7
	EdDSA Algorithm = -8
	ES384 Algorithm = -35
	ES512 Algorithm = -36
	RS256 Algorithm = -257
)

func (a Algorithm) String() string {
	switch a {
	case ES256:
		return "ES256"
	case EdDSA:
		return "EdDSA"
	case ES384:
		return "ES384"
	case ES512:
		return "ES512"
	case RS256:
		return "RS256"
	default:
		return fmt.Sprintf("COSE(%d)", int(a))
	}
}

// COSE key common labels. The negative labels are key-type specific:
// for EC2/OKP -1 is the curve and -2/-3 are coordinates, for RSA -1/-2
// are modulus and exponent, so decoding has to branch on kty first.
const (
	coseKeyTypeOKP = 1
	coseKeyTypeEC2 = 2
	coseKeyTypeRSA = 3

	coseCurveP256    = 1
	coseCurveP384    = 2
	coseCurveP521    = 3
	coseCurveEd25519 = 6
)

// DecodePublicKey turns raw COSE_Key bytes into a crypto.PublicKey and
// the algorithm to verify with. When the key omits the alg label the
// algorithm is derived from the key type and curve.
func DecodePublicKey(raw []byte) (crypto.PublicKey, Algorithm, error) {
	var m map[int64]interface{}
	if err := cbor.Unmarshal(raw, &m); err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrCBOR, err)
	}

	kty, ok := coseInt(m[1])
	if !ok {
		return nil, 0, fmt.Errorf("%w: missing kty", ErrUnsupportedKey)
	}
	alg, hasAlg := coseInt(m[3])

	switch kty {
	case coseKeyTypeEC2:
		crv, _ := coseInt(m[-1])
		x, _ := m[-2].([]byte)
		y, _ := m[-3].([]byte)
		if len(x) == 0 || len(y) == 0 {
			return nil, 0, fmt.Errorf("%w: ec2 key missing coordinates", ErrUnsupportedKey)
		}
		var curve elliptic.Curve
		var defaultAlg Algorithm
		switch crv {
		case coseCurveP256:
			curve, defaultAlg = elliptic.P256(), ES256
		case coseCurveP384:
			curve, defaultAlg = elliptic.P384(), ES384
		case coseCurveP521:
			curve, defaultAlg = elliptic.P521(), ES512
		default:
			return nil, 0, fmt.Errorf("%w: ec2 curve %d", ErrUnsupportedKey, crv)
		}
		pub := &ecdsa.PublicKey{
			Curve: curve,
			X:     new(big.Int).SetBytes(x),
			Y:     new(big.Int).SetBytes(y),
		}
		if !hasAlg {
			return pub, defaultAlg, nil
		}
		return pub, Algorithm(alg), nil

	case coseKeyTypeOKP:
		crv, _ := coseInt(m[-1])
		if crv != coseCurveEd25519 {
			return nil, 0, fmt.Errorf("%w: okp curve %d", ErrUnsupportedKey, crv)
		}
		x, _ := m[-2].([]byte)
		if len(x) != ed25519.PublicKeySize {
			return nil, 0, fmt.Errorf("%w: ed25519 key is %d bytes", ErrUnsupportedKey, len(x))
		}
		return ed25519.PublicKey(x), EdDSA, nil

	case coseKeyTypeRSA:
		n, _ := m[-1].([]byte)
		e, _ := m[-2].([]byte)
		if len(n) == 0 || len(e) == 0 {
			return nil, 0, fmt.Errorf("%w: rsa key missing modulus or exponent", ErrUnsupportedKey)
		}
		pub := &rsa.PublicKey{
			N: new(big.Int).SetBytes(n),
			E: int(new(big.Int).SetBytes(e).Int64()),
		}
		if !hasAlg {
			return pub, RS256, nil
		}
		return pub, Algorithm(alg), nil

	default:
		return nil, 0, fmt.Errorf("%w: kty %d", ErrUnsupportedKey, kty)
	}
}

// coseInt normalizes the integer types fxamacker produces for
// interface{} values (uint64 for positives, int64 for negatives).
func coseInt(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case uint64:
		return int64(n), true
	}
	return 0, false
}
