package services

import (
	"context"
	"crypto/rsa"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/strategiz-io/passkey-service/internal/config"
	"github.com/strategiz-io/passkey-service/internal/dtos"
	"github.com/strategiz-io/passkey-service/internal/models"
	"github.com/strategiz-io/passkey-service/internal/repositories"
	"github.com/strategiz-io/passkey-service/internal/utils"
)

const (
	TokenIssuer = "Strategiz"

	refreshTokenLength = 64
)

// SessionRequest carries everything the issuer embeds in a new session.
// Methods and ACR describe how the user authenticated; DeviceID doubles
// as the attestation fingerprint for passkey logins.
type SessionRequest struct {
	UserID      string
	Methods     []string
	ACR         string
	DeviceID    string
	Fingerprint string
	IPAddress   string
	Context     string
	DemoMode    bool
}

// SessionService mints and rotates RS256 access/refresh token pairs.
type SessionService interface {
	// CreateAuthenticationTokenPair issues a fresh pair after a
	// successful authentication ceremony.
	CreateAuthenticationTokenPair(ctx context.Context, req SessionRequest) (*dtos.TokenPair, error)

	// RefreshTokenPair rotates a refresh token: the old one is removed
	// and a new pair issued, provided the token exists, is unexpired,
	// and is bound to the same device.
	RefreshTokenPair(ctx context.Context, refreshTokenString, deviceID string) (*dtos.TokenPair, error)

	// Logout removes the refresh token. Unknown tokens are a no-op.
	Logout(ctx context.Context, refreshTokenString string) error
}

type sessionService struct {
	privateKey    *rsa.PrivateKey
	publicKey     *rsa.PublicKey
	tokenExpiry   time.Duration
	refreshExpiry time.Duration
	tokenRepo     repositories.TokenRepository
}

func NewSessionService(cfg *config.Config, tokenRepo repositories.TokenRepository) SessionService {
	return &sessionService{
		privateKey:    cfg.RSAPrivateKey,
		publicKey:     cfg.RSAPublicKey,
		tokenExpiry:   cfg.TokenExpiry,
		refreshExpiry: cfg.RefreshTokenExpiry,
		tokenRepo:     tokenRepo,
	}
}

func (s *sessionService) CreateAuthenticationTokenPair(ctx context.Context, req SessionRequest) (*dtos.TokenPair, error) {
	access, err := s.generateAccessToken(req)
	if err != nil {
		return nil, err
	}

	rt, err := s.generateRefreshToken(ctx, req)
	if err != nil {
		return nil, err
	}

	return &dtos.TokenPair{
		AccessToken:  access,
		RefreshToken: rt.Token,
	}, nil
}

func (s *sessionService) generateAccessToken(req SessionRequest) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"iss":     TokenIssuer,
		"sub":     req.UserID,
		"exp":     now.Add(s.tokenExpiry).Unix(),
		"iat":     now.Unix(),
		"jti":     uuid.NewString(),
		"methods": req.Methods,
		"acr":     req.ACR,
	}

	if req.DeviceID != "" {
		claims["device_id"] = req.DeviceID
	}
	if req.Fingerprint != "" {
		claims["att"] = req.Fingerprint
	}
	if req.IPAddress != "" {
		claims["ip"] = req.IPAddress
	}
	if req.Context != "" {
		claims["ctx"] = req.Context
	}
	if req.DemoMode {
		claims["demo"] = true
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	return token.SignedString(s.privateKey)
}

func (s *sessionService) generateRefreshToken(ctx context.Context, req SessionRequest) (*models.RefreshToken, error) {
	if s.tokenRepo == nil {
		return nil, errors.New("sessionService has nil tokenRepo")
	}

	now := time.Now()
	rt := &models.RefreshToken{
		ID:        uuid.New(),
		UserID:    req.UserID,
		Token:     utils.RandomAlphanumericString(refreshTokenLength),
		ExpiresAt: now.Add(s.refreshExpiry),
		CreatedAt: now,
		Revoked:   false,
		IPAddress: req.IPAddress,
		DeviceID:  req.DeviceID,
	}

	if err := s.tokenRepo.CreateRefreshToken(ctx, rt); err != nil {
		return nil, err
	}
	return rt, nil
}

func (s *sessionService) RefreshTokenPair(ctx context.Context, refreshTokenString, deviceID string) (*dtos.TokenPair, error) {
	if s.tokenRepo == nil {
		return nil, errors.New("sessionService has nil tokenRepo")
	}

	oldToken, err := s.tokenRepo.GetRefreshToken(ctx, refreshTokenString)
	if err != nil || oldToken == nil || oldToken.Revoked {
		utils.Logger.WithError(err).Error("invalid or missing refresh token in sessionService.RefreshTokenPair")
		return nil, errors.New("invalid refresh token")
	}

	if oldToken.IsExpired() {
		utils.Logger.Error("refresh token expired in sessionService.RefreshTokenPair")
		return nil, errors.New("refresh token expired")
	}

	if oldToken.DeviceID != "" && oldToken.DeviceID != deviceID {
		utils.Logger.Error("device_id mismatch in sessionService.RefreshTokenPair")
		return nil, errors.New("device_id mismatch")
	}

	if err := s.tokenRepo.RemoveRefreshToken(ctx, oldToken.ID); err != nil {
		utils.Logger.WithError(err).Error("failed to remove old refresh token in sessionService.RefreshTokenPair")
		return nil, errors.New("failed to remove old token")
	}

	return s.CreateAuthenticationTokenPair(ctx, SessionRequest{
		UserID:    oldToken.UserID,
		Methods:   []string{"refresh"},
		ACR:       "refresh",
		DeviceID:  deviceID,
		IPAddress: oldToken.IPAddress,
	})
}

func (s *sessionService) Logout(ctx context.Context, refreshTokenString string) error {
	if s.tokenRepo == nil {
		return errors.New("sessionService has nil tokenRepo")
	}

	oldToken, err := s.tokenRepo.GetRefreshToken(ctx, refreshTokenString)
	if err != nil {
		utils.Logger.WithError(err).Error("logout fetch refresh token error in sessionService")
		return errors.New("logout server error")
	}
	if oldToken == nil {
		// already not found => no-op
		return nil
	}

	if err := s.tokenRepo.RemoveRefreshToken(ctx, oldToken.ID); err != nil {
		utils.Logger.WithError(err).Error("failed to remove token in sessionService.Logout")
		return errors.New("logout server error")
	}
	return nil
}
