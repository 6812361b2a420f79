package dto

// GoogleAuthURLResponse carries the consent screen URL.
type GoogleAuthURLResponse struct {
	URL   string `json:"url"`
	State string `json:"state"`
}

// UserInfo describes the authenticated user in responses.
type UserInfo struct {
	ID                string `json:"id"`
	Email             string `json:"email"`
	FullName          string `json:"full_name"`
	Timezone          string `json:"timezone"`
	CalendarConnected bool   `json:"calendar_connected"`
}

// AuthResponse returns the issued access token.
type AuthResponse struct {
	AccessToken string   `json:"access_token"`
	TokenType   string   `json:"token_type"`
	ExpiresIn   int64    `json:"expires_in"`
	User        UserInfo `json:"user"`
}

// UpdateTimezoneRequest changes the IANA zone used for calendar events.
type UpdateTimezoneRequest struct {
	Timezone string `json:"timezone" validate:"required,max=64"`
}
