package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-homework-api/internal/models"
)

// due_time is a TIME column; lib/pq would decode it into a time.Time on the
// zero date, so it is rendered as HH:MM in SQL.
const homeworkSelect = `SELECT h.id, h.user_id, h.class_id, h.title, h.description, h.due_date, to_char(h.due_time, 'HH24:MI') AS due_time, h.priority, h.status, h.google_calendar_event_id, h.completed_at, h.created_at, h.updated_at, c.name AS class_name FROM homework h LEFT JOIN classes c ON c.id = h.class_id`

// Page size bounds for homework listings.
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// HomeworkRepository manages persistence for homework. It never writes the
// calendar link column; see CalendarLinkRepository.
type HomeworkRepository struct {
	db *sqlx.DB
}

// NewHomeworkRepository constructs a homework repository.
func NewHomeworkRepository(db *sqlx.DB) *HomeworkRepository {
	return &HomeworkRepository{db: db}
}

// List returns homework for a user ordered by due date with total count.
func (r *HomeworkRepository) List(ctx context.Context, filter models.HomeworkFilter) ([]models.HomeworkDetail, int, error) {
	conditions := []string{"h.user_id = $1"}
	args := []interface{}{filter.UserID}

	if filter.ClassID != "" {
		conditions = append(conditions, fmt.Sprintf("h.class_id = $%d", len(args)+1))
		args = append(args, filter.ClassID)
	}
	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("h.status = $%d", len(args)+1))
		args = append(args, *filter.Status)
	}
	if filter.DueFrom != nil {
		conditions = append(conditions, fmt.Sprintf("h.due_date >= $%d", len(args)+1))
		args = append(args, *filter.DueFrom)
	}
	if filter.DueTo != nil {
		conditions = append(conditions, fmt.Sprintf("h.due_date <= $%d", len(args)+1))
		args = append(args, *filter.DueTo)
	}
	if filter.ExcludeCompleted {
		conditions = append(conditions, "h.status <> 'completed'")
	}
	if filter.OnlyUnlinked {
		conditions = append(conditions, "h.google_calendar_event_id IS NULL")
	}

	where := " WHERE " + strings.Join(conditions, " AND ")
	query := homeworkSelect + where + " ORDER BY h.due_date ASC, h.due_time ASC"

	if !filter.Unpaged {
		page := filter.Page
		if page < 1 {
			page = 1
		}
		size := filter.PageSize
		if size < 1 || size > MaxPageSize {
			size = DefaultPageSize
		}
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", size, (page-1)*size)
	}

	var items []models.HomeworkDetail
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list homework: %w", err)
	}

	var total int
	countQuery := "SELECT COUNT(*) FROM homework h" + where
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count homework: %w", err)
	}

	return items, total, nil
}

// FindByID returns a homework item owned by userID.
func (r *HomeworkRepository) FindByID(ctx context.Context, userID, id string) (*models.HomeworkDetail, error) {
	query := homeworkSelect + " WHERE h.id = $1 AND h.user_id = $2"
	var item models.HomeworkDetail
	if err := r.db.GetContext(ctx, &item, query, id, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find homework: %w", err)
	}
	return &item, nil
}

// Create inserts a homework record without a calendar link.
func (r *HomeworkRepository) Create(ctx context.Context, hw *models.Homework) error {
	const query = `INSERT INTO homework (id, user_id, class_id, title, description, due_date, due_time, priority, status, completed_at, created_at, updated_at)
VALUES (:id, :user_id, :class_id, :title, :description, :due_date, :due_time, :priority, :status, :completed_at, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, hw); err != nil {
		return fmt.Errorf("create homework: %w", err)
	}
	return nil
}

// Update persists editable homework fields.
func (r *HomeworkRepository) Update(ctx context.Context, hw *models.Homework) error {
	const query = `UPDATE homework SET class_id = :class_id, title = :title, description = :description, due_date = :due_date, due_time = :due_time, priority = :priority, status = :status, completed_at = :completed_at, updated_at = :updated_at WHERE id = :id AND user_id = :user_id`
	res, err := r.db.NamedExecContext(ctx, query, hw)
	if err != nil {
		return fmt.Errorf("update homework: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update homework rows affected: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a homework record.
func (r *HomeworkRepository) Delete(ctx context.Context, userID, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM homework WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("delete homework: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete homework rows affected: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// SyncCounts summarises how much of a user's homework is linked.
type SyncCounts struct {
	Total    int `db:"total"`
	Linked   int `db:"linked"`
	Unlinked int `db:"unlinked"`
}

// CountSyncState returns linked and unlinked counts for open homework.
func (r *HomeworkRepository) CountSyncState(ctx context.Context, userID string) (*SyncCounts, error) {
	const query = `SELECT COUNT(*) AS total,
COUNT(google_calendar_event_id) AS linked,
COUNT(*) FILTER (WHERE google_calendar_event_id IS NULL AND status <> 'completed') AS unlinked
FROM homework WHERE user_id = $1`
	var counts SyncCounts
	if err := r.db.GetContext(ctx, &counts, query, userID); err != nil {
		return nil, fmt.Errorf("count homework sync state: %w", err)
	}
	return &counts, nil
}
