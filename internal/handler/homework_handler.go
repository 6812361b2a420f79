package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-homework-api/internal/dto"
	"github.com/noah-isme/sma-homework-api/internal/models"
	"github.com/noah-isme/sma-homework-api/internal/service"
	appErrors "github.com/noah-isme/sma-homework-api/pkg/errors"
	"github.com/noah-isme/sma-homework-api/pkg/response"
)

type homeworkService interface {
	List(ctx context.Context, userID string, req dto.HomeworkListRequest) ([]models.HomeworkDetail, *models.Pagination, error)
	Get(ctx context.Context, userID, id string) (*models.HomeworkDetail, error)
	Create(ctx context.Context, userID string, req dto.CreateHomeworkRequest) (*dto.HomeworkResponse, error)
	Update(ctx context.Context, userID, id string, req dto.UpdateHomeworkRequest) (*dto.HomeworkResponse, error)
	SetStatus(ctx context.Context, userID, id string, status models.HomeworkStatus) (*dto.HomeworkResponse, error)
	Delete(ctx context.Context, userID, id string) (*dto.HomeworkDeleteResponse, error)
}

type homeworkExporter interface {
	ExportHomework(ctx context.Context, userID, rawFormat string, req dto.HomeworkListRequest) (*service.ExportFile, error)
}

// HomeworkHandler exposes homework CRUD and export endpoints.
type HomeworkHandler struct {
	service  homeworkService
	exporter homeworkExporter
}

// NewHomeworkHandler constructs a homework handler.
func NewHomeworkHandler(svc homeworkService, exporter homeworkExporter) *HomeworkHandler {
	return &HomeworkHandler{service: svc, exporter: exporter}
}

// List godoc
// @Summary List homework
// @Tags Homework
// @Produce json
// @Security BearerAuth
// @Param class_id query string false "Filter by class"
// @Param status query string false "pending, in_progress or completed"
// @Param due_date query string false "Exact due date (YYYY-MM-DD)"
// @Param view query string false "due_today, overdue or upcoming"
// @Param days query int false "Upcoming window in days"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /homework [get]
func (h *HomeworkHandler) List(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	var req dto.HomeworkListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query parameters"))
		return
	}
	items, pagination, err := h.service.List(c.Request.Context(), userID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// Get godoc
// @Summary Get homework detail
// @Tags Homework
// @Produce json
// @Security BearerAuth
// @Param id path string true "Homework ID"
// @Success 200 {object} response.Envelope
// @Router /homework/{id} [get]
func (h *HomeworkHandler) Get(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	item, err := h.service.Get(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// Create godoc
// @Summary Create homework
// @Description Stores the homework and mirrors it to the user's Google Calendar when connected.
// @Tags Homework
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.CreateHomeworkRequest true "Homework payload"
// @Success 201 {object} response.Envelope
// @Router /homework [post]
func (h *HomeworkHandler) Create(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	var req dto.CreateHomeworkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid homework payload"))
		return
	}
	res, err := h.service.Create(c.Request.Context(), userID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, res)
}

// Update godoc
// @Summary Update homework
// @Tags Homework
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Homework ID"
// @Param payload body dto.UpdateHomeworkRequest true "Homework payload"
// @Success 200 {object} response.Envelope
// @Router /homework/{id} [put]
func (h *HomeworkHandler) Update(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	var req dto.UpdateHomeworkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid homework payload"))
		return
	}
	res, err := h.service.Update(c.Request.Context(), userID, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}

// Complete godoc
// @Summary Mark homework as completed
// @Tags Homework
// @Produce json
// @Security BearerAuth
// @Param id path string true "Homework ID"
// @Success 200 {object} response.Envelope
// @Router /homework/{id}/complete [post]
func (h *HomeworkHandler) Complete(c *gin.Context) {
	h.setStatus(c, models.HomeworkCompleted)
}

// Reopen godoc
// @Summary Reopen completed homework
// @Tags Homework
// @Produce json
// @Security BearerAuth
// @Param id path string true "Homework ID"
// @Success 200 {object} response.Envelope
// @Router /homework/{id}/reopen [post]
func (h *HomeworkHandler) Reopen(c *gin.Context) {
	h.setStatus(c, models.HomeworkPending)
}

func (h *HomeworkHandler) setStatus(c *gin.Context, status models.HomeworkStatus) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	res, err := h.service.SetStatus(c.Request.Context(), userID, c.Param("id"), status)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}

// Delete godoc
// @Summary Delete homework
// @Description Deletes the homework and its linked calendar event.
// @Tags Homework
// @Produce json
// @Security BearerAuth
// @Param id path string true "Homework ID"
// @Success 200 {object} response.Envelope
// @Router /homework/{id} [delete]
func (h *HomeworkHandler) Delete(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	res, err := h.service.Delete(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}

// Export godoc
// @Summary Export homework
// @Tags Homework
// @Produce text/csv
// @Produce application/pdf
// @Security BearerAuth
// @Param format query string false "csv or pdf"
// @Param status query string false "Filter by status"
// @Param class_id query string false "Filter by class"
// @Success 200 {file} file
// @Router /homework/export [get]
func (h *HomeworkHandler) Export(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	var req dto.HomeworkListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query parameters"))
		return
	}
	file, err := h.exporter.ExportHomework(c.Request.Context(), userID, c.DefaultQuery("format", "csv"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.File(c, file.ContentType, file.Filename, file.Body)
}
