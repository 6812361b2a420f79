package dto

import "github.com/noah-isme/sma-homework-api/internal/models"

// Homework list views mirroring the dashboard shortcuts.
const (
	HomeworkViewDueToday = "due_today"
	HomeworkViewOverdue  = "overdue"
	HomeworkViewUpcoming = "upcoming"
)

// CreateHomeworkRequest describes create payload.
type CreateHomeworkRequest struct {
	ClassID     *string `json:"class_id" validate:"omitempty,uuid"`
	Title       string  `json:"title" validate:"required,max=200"`
	Description *string `json:"description" validate:"omitempty,max=5000"`
	DueDate     string  `json:"due_date" validate:"required,datetime=2006-01-02"`
	DueTime     string  `json:"due_time" validate:"omitempty,datetime=15:04"`
	Priority    string  `json:"priority" validate:"omitempty,oneof=low medium high"`
}

// UpdateHomeworkRequest is a partial update; nil fields are left untouched.
// ClearClass detaches the class since a nil ClassID means "unchanged".
type UpdateHomeworkRequest struct {
	ClassID     *string `json:"class_id" validate:"omitempty,uuid"`
	ClearClass  bool    `json:"clear_class"`
	Title       *string `json:"title" validate:"omitempty,min=1,max=200"`
	Description *string `json:"description" validate:"omitempty,max=5000"`
	DueDate     *string `json:"due_date" validate:"omitempty,datetime=2006-01-02"`
	DueTime     *string `json:"due_time" validate:"omitempty,datetime=15:04"`
	Priority    *string `json:"priority" validate:"omitempty,oneof=low medium high"`
	Status      *string `json:"status" validate:"omitempty,oneof=pending in_progress completed"`
}

// HomeworkListRequest describes filters for listing homework.
type HomeworkListRequest struct {
	ClassID  string `form:"class_id"`
	Status   string `form:"status" validate:"omitempty,oneof=pending in_progress completed"`
	DueDate  string `form:"due_date" validate:"omitempty,datetime=2006-01-02"`
	View     string `form:"view" validate:"omitempty,oneof=due_today overdue upcoming"`
	Days     int    `form:"days" validate:"omitempty,min=1,max=365"`
	Page     int    `form:"page" validate:"omitempty,min=1"`
	PageSize int    `form:"page_size" validate:"omitempty,min=1,max=100"`
}

// HomeworkResponse pairs a homework record with the outcome of its calendar sync.
type HomeworkResponse struct {
	Homework     models.HomeworkDetail `json:"homework"`
	CalendarSync *models.SyncResult    `json:"calendar_sync,omitempty"`
}

// HomeworkDeleteResponse reports the calendar outcome of a deletion.
type HomeworkDeleteResponse struct {
	ID           string             `json:"id"`
	CalendarSync *models.SyncResult `json:"calendar_sync,omitempty"`
}
