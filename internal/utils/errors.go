// internal/utils/errors.go
package utils

import (
	"errors"
	"net/http"
)

// Domain-level errors used by the service layer to provide
// fine-grained failure reasons.
var (
	ErrFeatureDisabled             = errors.New("feature_disabled")
	ErrInvalidChallenge            = errors.New("invalid_challenge")
	ErrDuplicateCredential         = errors.New("duplicate_credential")
	ErrCredentialNotFound          = errors.New("credential_not_found")
	ErrReplayDetected              = errors.New("replay_detected")
	ErrSignatureVerificationFailed = errors.New("signature_verification_failed")
	ErrPersistenceFailure          = errors.New("persistence_failure")

	// For conditional writes that matched no rows
	ErrNoRowsUpdated = errors.New("no_rows_updated")
)

// AppError for structured error handling from services to controllers.
type AppError struct {
	StatusCode int
	Code       string
	Message    string
	Err        error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

// HandleAppError centralizes responding to AppErrors.
func HandleAppError(w http.ResponseWriter, err error) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		RespondErrorWithCode(w, appErr.StatusCode, appErr.Code, appErr.Message, nil, appErr.Err)
	} else {
		// Fallback for unexpected error types
		RespondErrorWithCode(w, http.StatusInternalServerError, ErrCodeInternal, "An unexpected error occurred", nil, err)
	}
}
