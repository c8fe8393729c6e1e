package controllers

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/strategiz-io/passkey-service/internal/dtos"
	"github.com/strategiz-io/passkey-service/internal/services"
	"github.com/strategiz-io/passkey-service/internal/utils"
)

// CredentialController lets users inspect and revoke their passkeys.
type CredentialController struct {
	credentialService services.CredentialService
}

func NewCredentialController(credentialService services.CredentialService) *CredentialController {
	return &CredentialController{credentialService: credentialService}
}

// ListCredentials returns all passkeys enrolled for a user.
func (c *CredentialController) ListCredentials(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["user_id"]
	if userID == "" {
		utils.RespondErrorWithCode(
			w, http.StatusBadRequest, utils.ErrCodeValidation, "user_id is required", nil,
		)
		return
	}

	resp, err := c.credentialService.ListCredentials(r.Context(), userID)
	if err != nil {
		utils.RespondErrorWithCode(
			w, http.StatusInternalServerError, utils.ErrCodeInternal, "Failed to list credentials", nil, err,
		)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, resp)
}

// RevokeCredential deactivates one passkey, addressed by its row ID.
func (c *CredentialController) RevokeCredential(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	userID := vars["user_id"]
	credID, err := uuid.Parse(vars["id"])
	if userID == "" || err != nil {
		utils.RespondErrorWithCode(
			w, http.StatusBadRequest, utils.ErrCodeValidation, "user_id and a valid credential id are required", nil, err,
		)
		return
	}

	if err := c.credentialService.RevokeCredential(r.Context(), userID, credID); err != nil {
		if errors.Is(err, utils.ErrCredentialNotFound) {
			utils.RespondErrorWithCode(
				w, http.StatusNotFound, utils.ErrCodeNotFound, "Credential not found", nil,
			)
			return
		}
		utils.RespondErrorWithCode(
			w, http.StatusInternalServerError, utils.ErrCodeInternal, "Failed to revoke credential", nil, err,
		)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, dtos.RevokeCredentialResponse{Message: "Credential revoked"})
}
