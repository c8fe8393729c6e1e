package controllers

import (
	"errors"
	"net/http"

	"github.com/strategiz-io/passkey-service/internal/dtos"
	"github.com/strategiz-io/passkey-service/internal/services"
	"github.com/strategiz-io/passkey-service/internal/utils"
)

// PasskeyController exposes the registration and authentication
// ceremonies over HTTP.
type PasskeyController struct {
	registrationService   services.RegistrationService
	authenticationService services.AuthenticationService
}

func NewPasskeyController(
	registrationService services.RegistrationService,
	authenticationService services.AuthenticationService,
) *PasskeyController {
	return &PasskeyController{
		registrationService:   registrationService,
		authenticationService: authenticationService,
	}
}

// BeginRegistration issues a registration challenge payload for
// navigator.credentials.create().
func (c *PasskeyController) BeginRegistration(w http.ResponseWriter, r *http.Request) {
	var req dtos.BeginRegistrationRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	utils.Logger.Debugf("Beginning passkey registration for user %s", req.UserID)

	resp, err := c.registrationService.BeginRegistration(r.Context(), req.UserID, req.Username)
	if err != nil {
		if errors.Is(err, utils.ErrFeatureDisabled) {
			utils.RespondErrorWithCode(
				w, http.StatusForbidden, utils.ErrCodeFeatureDisabled, "Passkey signup is disabled", nil,
			)
			return
		}
		utils.RespondErrorWithCode(
			w, http.StatusInternalServerError, utils.ErrCodeInternal, "Failed to begin registration", nil, err,
		)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, resp)
}

// CompleteRegistration verifies the attestation response. Protocol
// failures are a 200 with success=false; the ceremony outcome is the
// body, not the status code.
func (c *PasskeyController) CompleteRegistration(w http.ResponseWriter, r *http.Request) {
	var req dtos.CompleteRegistrationRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	result := c.registrationService.CompleteRegistration(r.Context(), &req)
	utils.RespondWithJSON(w, http.StatusOK, result)
}

// BeginAuthentication issues an authentication challenge payload for
// navigator.credentials.get(). An empty user_id starts a discoverable
// ceremony.
func (c *PasskeyController) BeginAuthentication(w http.ResponseWriter, r *http.Request) {
	var req dtos.BeginAuthenticationRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	resp, err := c.authenticationService.BeginAuthentication(r.Context(), req.UserID)
	if err != nil {
		utils.RespondErrorWithCode(
			w, http.StatusInternalServerError, utils.ErrCodeInternal, "Failed to begin authentication", nil, err,
		)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, resp)
}

// CompleteAuthentication verifies the assertion response.
func (c *PasskeyController) CompleteAuthentication(w http.ResponseWriter, r *http.Request) {
	var req dtos.CompleteAuthenticationRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	result := c.authenticationService.CompleteAuthentication(r.Context(), &req)
	utils.RespondWithJSON(w, http.StatusOK, result)
}
