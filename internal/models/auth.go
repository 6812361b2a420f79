package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// GoogleIdentity is the profile returned by Google after the OAuth exchange.
type GoogleIdentity struct {
	Subject   string
	Email     string
	Name      string
	AvatarURL string
}

// GoogleToken holds the tokens granted by the OAuth exchange.
type GoogleToken struct {
	AccessToken  string
	RefreshToken string
	Expiry       time.Time
}

// JWTClaims represents the JWT payload for access tokens.
type JWTClaims struct {
	UserID   string `json:"user_id"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	jwt.RegisteredClaims
}

// OAuthStateClaims protects the Google redirect against CSRF.
type OAuthStateClaims struct {
	Nonce    string `json:"nonce"`
	Redirect string `json:"redirect,omitempty"`
	jwt.RegisteredClaims
}
