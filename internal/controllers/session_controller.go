package controllers

import (
	"net/http"

	"github.com/strategiz-io/passkey-service/internal/dtos"
	"github.com/strategiz-io/passkey-service/internal/services"
	"github.com/strategiz-io/passkey-service/internal/utils"
)

// SessionController handles refresh token rotation and logout.
type SessionController struct {
	sessionService services.SessionService
}

func NewSessionController(sessionService services.SessionService) *SessionController {
	return &SessionController{sessionService: sessionService}
}

func (c *SessionController) Refresh(w http.ResponseWriter, r *http.Request) {
	var req dtos.RefreshTokenRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	pair, err := c.sessionService.RefreshTokenPair(r.Context(), req.RefreshToken, req.DeviceID)
	if err != nil {
		utils.RespondErrorWithCode(
			w, http.StatusUnauthorized, utils.ErrCodeUnauthorized, "Could not refresh session", nil, err,
		)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, dtos.RefreshTokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	})
}

func (c *SessionController) Logout(w http.ResponseWriter, r *http.Request) {
	var req dtos.LogoutRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	if err := c.sessionService.Logout(r.Context(), req.RefreshToken); err != nil {
		utils.RespondErrorWithCode(
			w, http.StatusInternalServerError, utils.ErrCodeInternal, "Logout failed", nil, err,
		)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, dtos.LogoutResponse{Message: "Logged out"})
}
