package models

import "time"

// EventReminder is a single reminder override on a remote event.
type EventReminder struct {
	Method  string `json:"method"`
	Minutes int64  `json:"minutes"`
}

// EventPayload is the remote-event representation derived from a homework record.
type EventPayload struct {
	Summary             string          `json:"summary"`
	Description         string          `json:"description"`
	Start               time.Time       `json:"start"`
	End                 time.Time       `json:"end"`
	TimeZone            string          `json:"time_zone"`
	UseDefaultReminders bool            `json:"use_default_reminders"`
	Reminders           []EventReminder `json:"reminders"`
}

// EventSnapshot is the state of a remote event as last fetched.
type EventSnapshot struct {
	ID          string    `json:"id"`
	Summary     string    `json:"summary"`
	Description string    `json:"description"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	TimeZone    string    `json:"time_zone"`
	Status      string    `json:"status"`
}

// RemoteEventCancelled is the status Google reports for deleted events that
// are still retrievable by id.
const RemoteEventCancelled = "cancelled"

// Cancelled reports whether the remote event no longer exists for the user.
func (s *EventSnapshot) Cancelled() bool {
	return s != nil && s.Status == RemoteEventCancelled
}

// Matches reports whether the snapshot already reflects the payload's
// scheduling-relevant fields.
func (s *EventSnapshot) Matches(p EventPayload) bool {
	if s == nil {
		return false
	}
	return s.Summary == p.Summary &&
		s.Description == p.Description &&
		s.Start.Equal(p.Start) &&
		s.End.Equal(p.End) &&
		(s.TimeZone == "" || s.TimeZone == p.TimeZone)
}

// SyncStatus is the outcome of a single coordinator invocation.
type SyncStatus string

const (
	SyncCreated SyncStatus = "created"
	SyncUpdated SyncStatus = "updated"
	SyncDeleted SyncStatus = "deleted"
	SyncSkipped SyncStatus = "skipped"
	SyncFailed  SyncStatus = "failed"
)

// SkipReason explains a deliberate no-op.
type SkipReason string

const (
	SkipNoExistingLink    SkipReason = "no_existing_link"
	SkipNoRelevantChange  SkipReason = "no_relevant_change"
	SkipAlreadyLinked     SkipReason = "already_linked"
	SkipHomeworkCompleted SkipReason = "homework_completed"
	SkipSyncDisabled      SkipReason = "sync_disabled"
)

// SyncErrorKind classifies failed outcomes.
type SyncErrorKind string

const (
	SyncErrNotConnected  SyncErrorKind = "not_connected"
	SyncErrInvalidRecord SyncErrorKind = "invalid_record"
	SyncErrRemote        SyncErrorKind = "remote_error"
	SyncErrLinkConflict  SyncErrorKind = "link_conflict"
	SyncErrStore         SyncErrorKind = "store_error"
	SyncErrRecordLocked  SyncErrorKind = "record_locked"
)

// SyncResult is returned by every coordinator operation instead of an error.
type SyncResult struct {
	Status    SyncStatus    `json:"status"`
	EventID   string        `json:"event_id,omitempty"`
	Reason    SkipReason    `json:"reason,omitempty"`
	ErrorKind SyncErrorKind `json:"error_kind,omitempty"`
	Err       error         `json:"-"`
}

func CreatedResult(eventID string) SyncResult {
	return SyncResult{Status: SyncCreated, EventID: eventID}
}

func UpdatedResult(eventID string) SyncResult {
	return SyncResult{Status: SyncUpdated, EventID: eventID}
}

func DeletedResult(eventID string) SyncResult {
	return SyncResult{Status: SyncDeleted, EventID: eventID}
}

func SkippedResult(reason SkipReason) SyncResult {
	return SyncResult{Status: SyncSkipped, Reason: reason}
}

func FailedResult(kind SyncErrorKind, err error) SyncResult {
	return SyncResult{Status: SyncFailed, ErrorKind: kind, Err: err}
}

// Failed reports whether the invocation failed.
func (r SyncResult) Failed() bool {
	return r.Status == SyncFailed
}

// Succeeded reports whether the remote side was changed as requested.
func (r SyncResult) Succeeded() bool {
	switch r.Status {
	case SyncCreated, SyncUpdated, SyncDeleted:
		return true
	default:
		return false
	}
}

// Retryable reports whether a caller may reasonably retry the same call.
func (r SyncResult) Retryable() bool {
	return r.Failed() && (r.ErrorKind != SyncErrNotConnected && r.ErrorKind != SyncErrInvalidRecord)
}
