package dtos

// ----------------------
// Refresh Token
// ----------------------

type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required,len=64"`
	DeviceID     string `json:"device_id" validate:"required"`
}

type RefreshTokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// ----------------------
// Logout
// ----------------------

type LogoutRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required,len=64"`
}

type LogoutResponse struct {
	Message string `json:"message"`
}

// ----------------------
// Health
// ----------------------

type HealthCheckResponse struct {
	Status string `json:"status"`
}
