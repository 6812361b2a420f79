package models

import "time"

// User represents an application user stored in the users table.
type User struct {
	ID                 string     `db:"id" json:"id"`
	Email              string     `db:"email" json:"email"`
	FullName           string     `db:"full_name" json:"full_name"`
	AvatarURL          *string    `db:"avatar_url" json:"avatar_url,omitempty"`
	Timezone           string     `db:"timezone" json:"timezone"`
	GoogleAccessToken  *string    `db:"google_access_token" json:"-"`
	GoogleRefreshToken *string    `db:"google_refresh_token" json:"-"`
	GoogleTokenExpiry  *time.Time `db:"google_token_expiry" json:"-"`
	CreatedAt          time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time  `db:"updated_at" json:"updated_at"`
}

// Credential projects the calendar-relevant part of the user.
func (u *User) Credential() *UserCredential {
	if u == nil {
		return nil
	}
	return &UserCredential{
		UserID:       u.ID,
		AccessToken:  u.GoogleAccessToken,
		RefreshToken: u.GoogleRefreshToken,
		TokenExpiry:  u.GoogleTokenExpiry,
		Timezone:     u.Timezone,
	}
}

// UserCredential is the caller identity for remote calendar calls.
type UserCredential struct {
	UserID       string     `db:"id"`
	AccessToken  *string    `db:"google_access_token"`
	RefreshToken *string    `db:"google_refresh_token"`
	TokenExpiry  *time.Time `db:"google_token_expiry"`
	Timezone     string     `db:"timezone"`
}

// Connected reports whether the user has granted calendar access.
func (c *UserCredential) Connected() bool {
	return c != nil && c.AccessToken != nil && *c.AccessToken != ""
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
