package services

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"testing"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/require"

	"github.com/strategiz-io/passkey-service/internal/config"
)

// Authenticator data flag bits used to synthesize ceremonies.
const (
	testFlagUP byte = 0x01
	testFlagBE byte = 0x08
	testFlagBS byte = 0x10
	testFlagAT byte = 0x40
)

type passkeyFixture struct {
	cfg            *config.Config
	challengeRepo  *fakeChallengeRepo
	credentialRepo *fakeCredentialRepo
	tokenRepo      *fakeTokenRepo
	challengeSvc   ChallengeService
	sessionSvc     SessionService
	registration   RegistrationService
	authentication AuthenticationService
}

func newPasskeyFixture(t *testing.T) *passkeyFixture {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	cfg := &config.Config{
		AppName:                     "passkey-service-test",
		RPID:                        "localhost",
		RPName:                      "Strategiz",
		ChallengeTimeout:            time.Minute,
		TokenExpiry:                 10 * time.Minute,
		RefreshTokenExpiry:          time.Hour,
		RSAPrivateKey:               key,
		RSAPublicKey:                &key.PublicKey,
		LDFlag_PasskeySignupEnabled: true,
	}

	f := &passkeyFixture{
		cfg:            cfg,
		challengeRepo:  newFakeChallengeRepo(),
		credentialRepo: newFakeCredentialRepo(),
		tokenRepo:      newFakeTokenRepo(),
	}
	f.challengeSvc = NewChallengeService(f.challengeRepo, cfg.ChallengeTimeout)
	f.sessionSvc = NewSessionService(cfg, f.tokenRepo)
	f.registration = NewRegistrationService(cfg, f.challengeSvc, f.credentialRepo, f.sessionSvc)
	f.authentication = NewAuthenticationService(cfg, f.challengeSvc, f.credentialRepo, f.sessionSvc)
	return f
}

func testAuthData(t *testing.T, flags byte, counter uint32, credID, coseKey []byte) []byte {
	t.Helper()
	rpIDHash := sha256.Sum256([]byte("localhost"))

	var buf bytes.Buffer
	buf.Write(rpIDHash[:])
	buf.WriteByte(flags)

	var counterBytes [4]byte
	binary.BigEndian.PutUint32(counterBytes[:], counter)
	buf.Write(counterBytes[:])

	if flags&testFlagAT != 0 {
		var aaguid [16]byte
		buf.Write(aaguid[:])
		var lenBytes [2]byte
		binary.BigEndian.PutUint16(lenBytes[:], uint16(len(credID)))
		buf.Write(lenBytes[:])
		buf.Write(credID)
		buf.Write(coseKey)
	}
	return buf.Bytes()
}

func attestationObjectB64(t *testing.T, authData []byte) string {
	t.Helper()
	raw, err := cbor.Marshal(map[string]interface{}{
		"fmt":      "none",
		"attStmt":  map[string]interface{}{},
		"authData": authData,
	})
	require.NoError(t, err)
	return base64.RawURLEncoding.EncodeToString(raw)
}

func clientDataB64(t *testing.T, ceremonyType, challenge string) string {
	t.Helper()
	raw, err := json.Marshal(map[string]string{
		"type":      ceremonyType,
		"challenge": challenge,
		"origin":    "http://localhost:3000",
	})
	require.NoError(t, err)
	return base64.RawURLEncoding.EncodeToString(raw)
}

func es256TestKey(t *testing.T) (*ecdsa.PrivateKey, []byte) {
	t.Helper()
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	coseKey, err := cbor.Marshal(map[int]interface{}{
		1:  2,
		3:  -7,
		-1: 1,
		-2: priv.PublicKey.X.FillBytes(make([]byte, 32)),
		-3: priv.PublicKey.Y.FillBytes(make([]byte, 32)),
	})
	require.NoError(t, err)
	return priv, coseKey
}

// signAssertion produces a base64url ES256 signature over
// authData || SHA-256(clientData), the way an authenticator would.
func signAssertion(t *testing.T, priv *ecdsa.PrivateKey, authData []byte, clientDataJSONB64 string) string {
	t.Helper()
	clientDataRaw, err := base64.RawURLEncoding.DecodeString(clientDataJSONB64)
	require.NoError(t, err)

	clientDataHash := sha256.Sum256(clientDataRaw)
	message := append(append([]byte{}, authData...), clientDataHash[:]...)
	digest := sha256.Sum256(message)

	sig, err := ecdsa.SignASN1(rand.Reader, priv, digest[:])
	require.NoError(t, err)
	return base64.RawURLEncoding.EncodeToString(sig)
}
