package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-homework-api/internal/dto"
	"github.com/noah-isme/sma-homework-api/internal/models"
	appErrors "github.com/noah-isme/sma-homework-api/pkg/errors"
)

const oauthStateAudience = "google-oauth-state"

type authUserRepository interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	UpsertGoogleUser(ctx context.Context, user *models.User) (*models.User, error)
	ClearGoogleTokens(ctx context.Context, id string, updatedAt time.Time) error
	UpdateTimezone(ctx context.Context, id, timezone string, updatedAt time.Time) error
}

type googleOAuthProvider interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*models.GoogleToken, *models.GoogleIdentity, error)
}

// AuthConfig defines configuration for authentication flows.
type AuthConfig struct {
	AccessTokenSecret string
	AccessTokenExpiry time.Duration
	StateTTL          time.Duration
	Issuer            string
}

// AuthService signs users in with Google and stores the calendar grant that
// synchronisation runs on.
type AuthService struct {
	repo      authUserRepository
	provider  googleOAuthProvider
	timezones *TimezoneResolver
	validator *validator.Validate
	logger    *zap.Logger
	config    AuthConfig
	now       func() time.Time
}

// NewAuthService constructs an AuthService instance. provider may be nil when
// Google sign-in is not configured.
func NewAuthService(repo authUserRepository, provider googleOAuthProvider, timezones *TimezoneResolver, validate *validator.Validate, logger *zap.Logger, config AuthConfig) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timezones == nil {
		timezones = NewTimezoneResolver(logger)
	}
	if validate == nil {
		validate = validator.New()
	}
	if config.StateTTL <= 0 {
		config.StateTTL = 10 * time.Minute
	}
	return &AuthService{repo: repo, provider: provider, timezones: timezones, validator: validate, logger: logger, config: config, now: time.Now}
}

// GoogleAuthURL returns the consent URL together with a signed state value.
func (s *AuthService) GoogleAuthURL(redirect string) (*dto.GoogleAuthURLResponse, error) {
	if s.provider == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "google sign-in is not configured")
	}
	issuedAt := s.now().UTC()
	claims := &models.OAuthStateClaims{
		Nonce:    uuid.NewString(),
		Redirect: redirect,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.config.Issuer,
			Audience:  jwt.ClaimStrings{oauthStateAudience},
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(s.config.StateTTL)),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
		},
	}
	state, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.config.AccessTokenSecret))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign oauth state")
	}
	return &dto.GoogleAuthURLResponse{URL: s.provider.AuthCodeURL(state), State: state}, nil
}

// HandleGoogleCallback validates the state, exchanges the code and signs the
// user in, storing the fresh Google tokens.
func (s *AuthService) HandleGoogleCallback(ctx context.Context, code, state string) (*dto.AuthResponse, error) {
	if s.provider == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "google sign-in is not configured")
	}
	if strings.TrimSpace(code) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "missing authorization code")
	}
	if err := s.validateState(state); err != nil {
		return nil, err
	}

	token, identity, err := s.provider.Exchange(ctx, code)
	if err != nil {
		return nil, appErrors.FromError(err)
	}
	if identity.Email == "" {
		return nil, appErrors.Clone(appErrors.ErrOAuthExchange, "google account has no email address")
	}

	now := s.now().UTC()
	user := &models.User{
		ID:                uuid.NewString(),
		Email:             strings.ToLower(identity.Email),
		FullName:          identity.Name,
		Timezone:          "UTC",
		GoogleAccessToken: &token.AccessToken,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if user.FullName == "" {
		user.FullName = user.Email
	}
	if identity.AvatarURL != "" {
		user.AvatarURL = &identity.AvatarURL
	}
	if token.RefreshToken != "" {
		user.GoogleRefreshToken = &token.RefreshToken
	}
	if !token.Expiry.IsZero() {
		expiry := token.Expiry.UTC()
		user.GoogleTokenExpiry = &expiry
	}

	stored, err := s.repo.UpsertGoogleUser(ctx, user)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store user")
	}

	accessToken, err := s.generateAccessToken(stored)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate access token")
	}

	s.logger.Info("user signed in with google", zap.String("user_id", stored.ID))
	return &dto.AuthResponse{
		AccessToken: accessToken,
		TokenType:   "Bearer",
		ExpiresIn:   int64(s.config.AccessTokenExpiry.Seconds()),
		User:        userInfo(stored),
	}, nil
}

// Me returns the authenticated user's profile.
func (s *AuthService) Me(ctx context.Context, userID string) (*dto.UserInfo, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, userLookupError(err)
	}
	info := userInfo(user)
	return &info, nil
}

// Disconnect drops the stored Google grant. Existing events stay in the
// user's calendar and their links are kept for a later reconnect.
func (s *AuthService) Disconnect(ctx context.Context, userID string) error {
	if err := s.repo.ClearGoogleTokens(ctx, userID, s.now().UTC()); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to disconnect google calendar")
	}
	return nil
}

// UpdateTimezone sets the IANA zone used to place events.
func (s *AuthService) UpdateTimezone(ctx context.Context, userID string, req dto.UpdateTimezoneRequest) (*dto.UserInfo, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInvalidTimezone.Code, appErrors.ErrInvalidTimezone.Status, appErrors.ErrInvalidTimezone.Message)
	}
	if !s.timezones.Valid(req.Timezone) {
		return nil, appErrors.ErrInvalidTimezone
	}
	if err := s.repo.UpdateTimezone(ctx, userID, req.Timezone, s.now().UTC()); err != nil {
		return nil, userLookupError(err)
	}
	return s.Me(ctx, userID)
}

// ValidateToken parses and validates an access token returning the claims.
func (s *AuthService) ValidateToken(tokenString string) (*models.JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.JWTClaims{}, s.keyFunc)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")
	}

	claims, ok := token.Claims.(*models.JWTClaims)
	if !ok || !token.Valid || claims.UserID == "" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token claims")
	}

	return claims, nil
}

func (s *AuthService) validateState(state string) error {
	token, err := jwt.ParseWithClaims(state, &models.OAuthStateClaims{}, s.keyFunc, jwt.WithAudience(oauthStateAudience))
	if err != nil {
		return appErrors.WrapAs(appErrors.ErrInvalidOAuthState, err, "")
	}
	if claims, ok := token.Claims.(*models.OAuthStateClaims); !ok || !token.Valid || claims.Nonce == "" {
		return appErrors.ErrInvalidOAuthState
	}
	return nil
}

func (s *AuthService) keyFunc(token *jwt.Token) (interface{}, error) {
	if token.Method != jwt.SigningMethodHS256 {
		return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
	}
	return []byte(s.config.AccessTokenSecret), nil
}

func (s *AuthService) generateAccessToken(user *models.User) (string, error) {
	if user == nil {
		return "", errors.New("user is nil")
	}
	issuedAt := s.now().UTC()
	claims := &models.JWTClaims{
		UserID:   user.ID,
		Email:    user.Email,
		FullName: user.FullName,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.config.Issuer,
			Subject:   user.ID,
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(s.config.AccessTokenExpiry)),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.config.AccessTokenSecret))
}

func userInfo(user *models.User) dto.UserInfo {
	return dto.UserInfo{
		ID:                user.ID,
		Email:             user.Email,
		FullName:          user.FullName,
		Timezone:          user.Timezone,
		CalendarConnected: user.Credential().Connected(),
	}
}
