// internal/models/passkey_challenge.go
package models

import (
	"time"
)

// ChallengePurpose binds a challenge to the ceremony it was issued for.
type ChallengePurpose string

const (
	ChallengePurposeRegistration   ChallengePurpose = "registration"
	ChallengePurposeAuthentication ChallengePurpose = "authentication"
)

// PasskeyChallenge is a single-use challenge stored in the database.
// A successful or failed verification consumes it; it never survives
// a second lookup.
type PasskeyChallenge struct {
	Value     string           `json:"value"`
	UserID    string           `json:"user_id"`
	Purpose   ChallengePurpose `json:"purpose"`
	IssuedAt  time.Time        `json:"issued_at"`
	ExpiresAt time.Time        `json:"expires_at"`
}

func (c *PasskeyChallenge) IsExpired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}
