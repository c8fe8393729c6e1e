package config

import (
	"crypto/rsa"
	"encoding/base64"
	"encoding/pem"
	"os"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/launchdarkly/go-sdk-common/v3/ldcontext"
	ld "github.com/launchdarkly/go-server-sdk/v7"
	"github.com/strategiz-io/passkey-service/internal/utils"
)

// Config holds all application configuration, including secrets, flags, etc.
type Config struct {
	AppName string
	Env     string
	AppPort string
	AppUrl  string
	DBUrl   string

	// Relying party identity presented to authenticators.
	RPID   string
	RPName string

	ChallengeTimeout   time.Duration
	TokenExpiry        time.Duration
	RefreshTokenExpiry time.Duration

	RSAPrivateKey *rsa.PrivateKey
	RSAPublicKey  *rsa.PublicKey

	// Static flags fetched once from LaunchDarkly.
	LDFlag_PasskeySignupEnabled bool
	LDFlag_ShortTokenTTL        bool
	LDFlag_CORSHighSecurity     bool
}

const (
	DefaultRPID             = "localhost"
	DefaultRPName           = "Strategiz"
	DefaultChallengeTimeout = 60 * time.Second

	DefaultTokenExpiry        = 10 * time.Minute
	DefaultRefreshTokenExpiry = 7 * 24 * time.Hour

	TestShortTokenExpiry        = 2 * time.Second
	TestShortRefreshTokenExpiry = 8 * time.Second

	LDConnectionTimeout = 5 * time.Second
)

// Set via ldflags at build time.
var (
	AppName             string
	LDServerContextKey  string
	LDServerContextKind string
)

// LoadConfig reads environment variables, fetches the static
// LaunchDarkly flags, and returns a *Config. Missing required
// configuration is fatal; passkey flows must never start half-configured.
func LoadConfig() *Config {
	if AppName == "" {
		utils.Logger.Fatal("AppName was not overridden with ldflags at build time (or is empty)")
	}
	if LDServerContextKey == "" {
		utils.Logger.Fatal("LDServerContextKey was not overridden with ldflags at build time (or is empty)")
	}
	if LDServerContextKind == "" {
		utils.Logger.Fatal("LDServerContextKind was not overridden with ldflags at build time (or is empty)")
	}

	utils.Logger.Info("Loading config for app: ", AppName)

	env := os.Getenv("ENV")
	if env == "" {
		utils.Logger.Fatal("ENV env var is missing")
	}
	appUrl := os.Getenv("APP_URL")
	if appUrl == "" {
		utils.Logger.Fatal("APP_URL env var is missing")
	}
	appPort := os.Getenv("APP_PORT")
	if appPort == "" {
		utils.Logger.Fatal("APP_PORT env var is missing")
	}
	dbUrl := os.Getenv("DB_URL")
	if dbUrl == "" {
		utils.Logger.Fatal("DB_URL env var is missing")
	}
	ldSDKKey := os.Getenv("LD_SDK_KEY")
	if ldSDKKey == "" {
		utils.Logger.Fatal("LD_SDK_KEY env var is missing")
	}

	rpID := os.Getenv("RP_ID")
	if rpID == "" {
		rpID = DefaultRPID
	}
	rpName := os.Getenv("RP_NAME")
	if rpName == "" {
		rpName = DefaultRPName
	}

	challengeTimeout := DefaultChallengeTimeout
	if raw := os.Getenv("CHALLENGE_TIMEOUT_MS"); raw != "" {
		ms, err := strconv.Atoi(raw)
		if err != nil || ms <= 0 {
			utils.Logger.Fatalf("CHALLENGE_TIMEOUT_MS is not a positive integer: %q", raw)
		}
		challengeTimeout = time.Duration(ms) * time.Millisecond
	}

	privateKey := loadRSAPrivateKey("RSA_PRIVATE_KEY_BASE64")
	publicKey := loadRSAPublicKey("RSA_PUBLIC_KEY_BASE64")

	//----------------------------------------------------------------------
	// Initialize the LaunchDarkly client and fetch the static flags.
	//----------------------------------------------------------------------
	ldClient, err := ld.MakeClient(ldSDKKey, LDConnectionTimeout)
	if err != nil {
		utils.Logger.WithError(err).Fatal("Failed to create LaunchDarkly client")
	}
	if !ldClient.Initialized() {
		ldClient.Close()
		utils.Logger.Fatal("LaunchDarkly client failed to initialize")
	}
	defer ldClient.Close()

	context := ldcontext.NewWithKind(ldcontext.Kind(LDServerContextKind), LDServerContextKey)

	passkeySignupEnabled, err := ldClient.BoolVariation("passkey_signup_enabled", context, false)
	if err != nil {
		ldClient.Close()
		utils.Logger.WithError(err).Fatal("Error retrieving passkey_signup_enabled flag")
	}
	utils.Logger.Debugf("passkey_signup_enabled flag: %t", passkeySignupEnabled)

	shortTokenTTL, err := ldClient.BoolVariation("short_token_ttl", context, false)
	if err != nil {
		ldClient.Close()
		utils.Logger.WithError(err).Fatal("Error retrieving short_token_ttl flag")
	}
	utils.Logger.Debugf("short_token_ttl flag: %t", shortTokenTTL)

	corsHighSecurity, err := ldClient.BoolVariation("cors_high_security", context, false)
	if err != nil {
		ldClient.Close()
		utils.Logger.WithError(err).Fatal("Error retrieving cors_high_security flag")
	}
	utils.Logger.Debugf("cors_high_security flag: %t", corsHighSecurity)

	tokenExpiry := DefaultTokenExpiry
	refreshTokenExpiry := DefaultRefreshTokenExpiry
	if shortTokenTTL {
		tokenExpiry = TestShortTokenExpiry
		refreshTokenExpiry = TestShortRefreshTokenExpiry
	}

	return &Config{
		AppName:                     AppName,
		Env:                         env,
		AppPort:                     appPort,
		AppUrl:                      appUrl,
		DBUrl:                       dbUrl,
		RPID:                        rpID,
		RPName:                      rpName,
		ChallengeTimeout:            challengeTimeout,
		TokenExpiry:                 tokenExpiry,
		RefreshTokenExpiry:          refreshTokenExpiry,
		RSAPrivateKey:               privateKey,
		RSAPublicKey:                publicKey,
		LDFlag_PasskeySignupEnabled: passkeySignupEnabled,
		LDFlag_ShortTokenTTL:        shortTokenTTL,
		LDFlag_CORSHighSecurity:     corsHighSecurity,
	}
}

func loadRSAPrivateKey(envVar string) *rsa.PrivateKey {
	keyBase64 := os.Getenv(envVar)
	if keyBase64 == "" {
		utils.Logger.Fatalf("%s env var is missing", envVar)
	}
	keyPEM, err := base64.StdEncoding.DecodeString(keyBase64)
	if err != nil {
		utils.Logger.WithError(err).Fatalf("Failed to decode %s from base64", envVar)
	}
	if block, _ := pem.Decode(keyPEM); block == nil {
		utils.Logger.Fatalf("Failed to decode PEM block from %s", envVar)
	}
	key, err := jwt.ParseRSAPrivateKeyFromPEM(keyPEM)
	if err != nil {
		utils.Logger.WithError(err).Fatalf("Failed to parse RSA private key from %s", envVar)
	}
	return key
}

func loadRSAPublicKey(envVar string) *rsa.PublicKey {
	keyBase64 := os.Getenv(envVar)
	if keyBase64 == "" {
		utils.Logger.Fatalf("%s env var is missing", envVar)
	}
	keyPEM, err := base64.StdEncoding.DecodeString(keyBase64)
	if err != nil {
		utils.Logger.WithError(err).Fatalf("Failed to decode %s from base64", envVar)
	}
	if block, _ := pem.Decode(keyPEM); block == nil {
		utils.Logger.Fatalf("Failed to decode PEM block from %s", envVar)
	}
	key, err := jwt.ParseRSAPublicKeyFromPEM(keyPEM)
	if err != nil {
		utils.Logger.WithError(err).Fatalf("Failed to parse RSA public key from %s", envVar)
	}
	return key
}
