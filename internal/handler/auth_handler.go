package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-homework-api/internal/dto"
	appErrors "github.com/noah-isme/sma-homework-api/pkg/errors"
	"github.com/noah-isme/sma-homework-api/pkg/response"
)

type authService interface {
	GoogleAuthURL(redirect string) (*dto.GoogleAuthURLResponse, error)
	HandleGoogleCallback(ctx context.Context, code, state string) (*dto.AuthResponse, error)
	Me(ctx context.Context, userID string) (*dto.UserInfo, error)
	Disconnect(ctx context.Context, userID string) error
	UpdateTimezone(ctx context.Context, userID string, req dto.UpdateTimezoneRequest) (*dto.UserInfo, error)
}

// AuthHandler handles Google sign-in and profile endpoints.
type AuthHandler struct {
	auth authService
}

// NewAuthHandler constructs a new AuthHandler.
func NewAuthHandler(auth authService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

// GoogleURL godoc
// @Summary Google consent URL
// @Description Returns the Google OAuth consent URL together with the signed state.
// @Tags Auth
// @Produce json
// @Param redirect query string false "Frontend path to return to"
// @Success 200 {object} response.Envelope
// @Router /auth/google/url [get]
func (h *AuthHandler) GoogleURL(c *gin.Context) {
	res, err := h.auth.GoogleAuthURL(c.Query("redirect"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}

// GoogleCallback godoc
// @Summary Complete Google sign-in
// @Tags Auth
// @Produce json
// @Param code query string true "Authorization code"
// @Param state query string true "State returned by /auth/google/url"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /auth/google/callback [get]
func (h *AuthHandler) GoogleCallback(c *gin.Context) {
	code := c.Query("code")
	state := c.Query("state")
	if code == "" || state == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "code and state are required"))
		return
	}
	res, err := h.auth.HandleGoogleCallback(c.Request.Context(), code, state)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}

// Disconnect godoc
// @Summary Revoke stored Google tokens
// @Tags Auth
// @Security BearerAuth
// @Success 204
// @Router /auth/google [delete]
func (h *AuthHandler) Disconnect(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	if err := h.auth.Disconnect(c.Request.Context(), userID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Me godoc
// @Summary Current user profile
// @Tags Users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /users/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	info, err := h.auth.Me(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, info, nil)
}

// UpdateTimezone godoc
// @Summary Change the timezone used for calendar events
// @Tags Users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.UpdateTimezoneRequest true "Timezone payload"
// @Success 200 {object} response.Envelope
// @Router /users/me/timezone [put]
func (h *AuthHandler) UpdateTimezone(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	var req dto.UpdateTimezoneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid timezone payload"))
		return
	}
	info, err := h.auth.UpdateTimezone(c.Request.Context(), userID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, info, nil)
}
