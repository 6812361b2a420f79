package dto

import (
	"time"

	"github.com/noah-isme/sma-homework-api/internal/models"
)

// CalendarSyncFailure describes one homework that could not be synchronised.
type CalendarSyncFailure struct {
	HomeworkID string               `json:"homework_id"`
	ErrorKind  models.SyncErrorKind `json:"error_kind"`
	Message    string               `json:"message,omitempty"`
}

// CalendarBulkSyncResponse summarises a bulk sync run.
type CalendarBulkSyncResponse struct {
	Message       string                `json:"message"`
	SyncedCount   int                   `json:"synced_count"`
	TotalHomework int                   `json:"total_homework"`
	Failures      []CalendarSyncFailure `json:"failures,omitempty"`
}

// CalendarSyncResponse reports the outcome of syncing one homework.
type CalendarSyncResponse struct {
	Message    string            `json:"message"`
	HomeworkID string            `json:"homework_id"`
	EventID    string            `json:"event_id,omitempty"`
	Result     models.SyncResult `json:"result"`
}

// CalendarStatusResponse describes the user's calendar connection.
type CalendarStatusResponse struct {
	Connected        bool       `json:"connected"`
	Timezone         string     `json:"timezone"`
	TokenExpiry      *time.Time `json:"token_expiry,omitempty"`
	LinkedHomework   int        `json:"linked_homework"`
	UnlinkedHomework int        `json:"unlinked_homework"`
	SyncEnabled      bool       `json:"sync_enabled"`
	CompletionPolicy string     `json:"completion_policy"`
}
