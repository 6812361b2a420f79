package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-homework-api/internal/dto"
	"github.com/noah-isme/sma-homework-api/pkg/response"
)

type calendarService interface {
	SyncAll(ctx context.Context, userID string) (*dto.CalendarBulkSyncResponse, error)
	SyncOne(ctx context.Context, userID, homeworkID string) (*dto.CalendarSyncResponse, error)
	Status(ctx context.Context, userID string) (*dto.CalendarStatusResponse, error)
}

// CalendarHandler exposes manual synchronisation endpoints.
type CalendarHandler struct {
	service calendarService
}

// NewCalendarHandler constructs a calendar handler.
func NewCalendarHandler(svc calendarService) *CalendarHandler {
	return &CalendarHandler{service: svc}
}

// SyncAll godoc
// @Summary Sync all unlinked homework to Google Calendar
// @Tags Calendar
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /calendar/sync [post]
func (h *CalendarHandler) SyncAll(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	res, err := h.service.SyncAll(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}

// SyncOne godoc
// @Summary Sync a single homework to Google Calendar
// @Tags Calendar
// @Produce json
// @Security BearerAuth
// @Param id path string true "Homework ID"
// @Success 200 {object} response.Envelope
// @Router /calendar/sync/{id} [post]
func (h *CalendarHandler) SyncOne(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	res, err := h.service.SyncOne(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}

// Status godoc
// @Summary Calendar connection status
// @Tags Calendar
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /calendar/status [get]
func (h *CalendarHandler) Status(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	res, err := h.service.Status(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}
