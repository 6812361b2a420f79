package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	appErrors "github.com/noah-isme/sma-homework-api/pkg/errors"
)

const uniqueViolation = "23505"

// CalendarLinkRepository is the only writer of homework.google_calendar_event_id.
// Writes are compare-and-set against the value the caller last observed so
// concurrent synchronisations of the same record cannot overwrite each other.
type CalendarLinkRepository struct {
	db  *sqlx.DB
	now func() time.Time
}

// NewCalendarLinkRepository constructs the link store.
func NewCalendarLinkRepository(db *sqlx.DB) *CalendarLinkRepository {
	return &CalendarLinkRepository{db: db, now: time.Now}
}

// GetLink returns the current event id, nil when the record is unlinked.
func (r *CalendarLinkRepository) GetLink(ctx context.Context, homeworkID string) (*string, error) {
	var link sql.NullString
	if err := r.db.GetContext(ctx, &link, `SELECT google_calendar_event_id FROM homework WHERE id = $1`, homeworkID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("get calendar link: %w", err)
	}
	if !link.Valid {
		return nil, nil
	}
	return &link.String, nil
}

// SetLink stores eventID if the current link still equals expected.
func (r *CalendarLinkRepository) SetLink(ctx context.Context, homeworkID string, expected *string, eventID string) error {
	const query = `UPDATE homework SET google_calendar_event_id = $1, updated_at = $2 WHERE id = $3 AND google_calendar_event_id IS NOT DISTINCT FROM $4`
	res, err := r.db.ExecContext(ctx, query, eventID, r.now().UTC(), homeworkID, expected)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return appErrors.WrapAs(appErrors.ErrLinkConflict, err, "event already linked to another homework")
		}
		return fmt.Errorf("set calendar link: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set calendar link rows affected: %w", err)
	}
	if rows == 0 {
		return appErrors.ErrLinkConflict
	}
	return nil
}

// ClearLink removes the link only while it still points at eventID. A record
// that was deleted or relinked meanwhile is left alone without error.
func (r *CalendarLinkRepository) ClearLink(ctx context.Context, homeworkID, eventID string) error {
	const query = `UPDATE homework SET google_calendar_event_id = NULL, updated_at = $1 WHERE id = $2 AND google_calendar_event_id = $3`
	if _, err := r.db.ExecContext(ctx, query, r.now().UTC(), homeworkID, eventID); err != nil {
		return fmt.Errorf("clear calendar link: %w", err)
	}
	return nil
}
