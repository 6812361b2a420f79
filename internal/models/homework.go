package models

import "time"

// HomeworkPriority ranks homework urgency.
type HomeworkPriority string

const (
	PriorityLow    HomeworkPriority = "low"
	PriorityMedium HomeworkPriority = "medium"
	PriorityHigh   HomeworkPriority = "high"
)

// HomeworkStatus tracks completion.
type HomeworkStatus string

const (
	HomeworkPending    HomeworkStatus = "pending"
	HomeworkInProgress HomeworkStatus = "in_progress"
	HomeworkCompleted  HomeworkStatus = "completed"
)

// DefaultDueTime is used when a homework item has no explicit due time.
const DefaultDueTime = "23:59"

// Homework field names reported as changed by the CRUD layer.
const (
	FieldTitle       = "title"
	FieldDescription = "description"
	FieldDueDate     = "due_date"
	FieldDueTime     = "due_time"
	FieldPriority    = "priority"
	FieldStatus      = "status"
	FieldClassID     = "class_id"
)

// Homework is an assignment owned by a user. CalendarEventID is the remote
// link and is only written through the calendar link store.
type Homework struct {
	ID              string           `db:"id" json:"id"`
	UserID          string           `db:"user_id" json:"user_id"`
	ClassID         *string          `db:"class_id" json:"class_id,omitempty"`
	Title           string           `db:"title" json:"title"`
	Description     *string          `db:"description" json:"description,omitempty"`
	DueDate         time.Time        `db:"due_date" json:"due_date"`
	DueTime         string           `db:"due_time" json:"due_time"`
	Priority        HomeworkPriority `db:"priority" json:"priority"`
	Status          HomeworkStatus   `db:"status" json:"status"`
	CalendarEventID *string          `db:"google_calendar_event_id" json:"google_calendar_event_id,omitempty"`
	CompletedAt     *time.Time       `db:"completed_at" json:"completed_at,omitempty"`
	CreatedAt       time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time        `db:"updated_at" json:"updated_at"`
}

// IsCompleted reports whether the homework has been marked done.
func (h *Homework) IsCompleted() bool {
	return h != nil && h.Status == HomeworkCompleted
}

// HomeworkDetail joins the class name for listings.
type HomeworkDetail struct {
	Homework
	ClassName *string `db:"class_name" json:"class_name,omitempty"`
}

// HomeworkFilter narrows homework listings. UserID is always required.
type HomeworkFilter struct {
	UserID           string
	ClassID          string
	Status           *HomeworkStatus
	DueFrom          *time.Time
	DueTo            *time.Time
	ExcludeCompleted bool
	OnlyUnlinked     bool
	// Unpaged drops LIMIT/OFFSET; it is set only by internal callers.
	Unpaged  bool
	Page     int
	PageSize int
}
