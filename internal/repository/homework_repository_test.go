package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-homework-api/internal/models"
)

var homeworkRowColumns = []string{"id", "user_id", "class_id", "title", "description", "due_date", "due_time", "priority", "status", "google_calendar_event_id", "completed_at", "created_at", "updated_at", "class_name"}

func TestHomeworkListAppliesFilters(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewHomeworkRepository(db)

	now := time.Now()
	due := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows(homeworkRowColumns).
		AddRow("hw-1", "user-1", "class-1", "Essay", nil, due, "14:30", "high", "pending", nil, nil, now, now, "History")

	where := " WHERE h.user_id = $1 AND h.class_id = $2 AND h.due_date >= $3 AND h.status <> 'completed' AND h.google_calendar_event_id IS NULL"
	mock.ExpectQuery(regexp.QuoteMeta(homeworkSelect+where+" ORDER BY h.due_date ASC, h.due_time ASC LIMIT 20 OFFSET 0")).
		WithArgs("user-1", "class-1", due).
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM homework h"+where)).
		WithArgs("user-1", "class-1", due).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	items, total, err := repo.List(context.Background(), models.HomeworkFilter{
		UserID:           "user-1",
		ClassID:          "class-1",
		DueFrom:          &due,
		ExcludeCompleted: true,
		OnlyUnlinked:     true,
	})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 1, total)
	assert.Equal(t, "14:30", items[0].DueTime)
	require.NotNil(t, items[0].ClassName)
	assert.Equal(t, "History", *items[0].ClassName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHomeworkListUnpaged(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewHomeworkRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(homeworkSelect + " WHERE h.user_id = $1 ORDER BY h.due_date ASC, h.due_time ASC")).
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows(homeworkRowColumns))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM homework h WHERE h.user_id = $1")).
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	items, total, err := repo.List(context.Background(), models.HomeworkFilter{UserID: "user-1", Unpaged: true})
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.Zero(t, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHomeworkListClampsOutOfRangePageSize(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewHomeworkRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(homeworkSelect + " WHERE h.user_id = $1 ORDER BY h.due_date ASC, h.due_time ASC LIMIT 20 OFFSET 0")).
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows(homeworkRowColumns))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM homework h WHERE h.user_id = $1")).
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	_, _, err := repo.List(context.Background(), models.HomeworkFilter{UserID: "user-1", PageSize: -1})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHomeworkFindByIDNotFound(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewHomeworkRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(homeworkSelect+" WHERE h.id = $1 AND h.user_id = $2")).
		WithArgs("hw-1", "user-1").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByID(context.Background(), "user-1", "hw-1")
	assert.True(t, errors.Is(err, sql.ErrNoRows))
}

func TestHomeworkCreateDoesNotWriteLink(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewHomeworkRepository(db)

	mock.ExpectExec(`INSERT INTO homework \(id, user_id, class_id, title, description, due_date, due_time, priority, status, completed_at, created_at, updated_at\)`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Create(context.Background(), &models.Homework{ID: "hw-1", UserID: "user-1", Title: "Essay", DueTime: "23:59"})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHomeworkUpdateMissingRow(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewHomeworkRepository(db)

	mock.ExpectExec("UPDATE homework SET class_id").WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Update(context.Background(), &models.Homework{ID: "hw-1", UserID: "user-1"})
	assert.True(t, errors.Is(err, sql.ErrNoRows))
}

func TestHomeworkDelete(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewHomeworkRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM homework WHERE id = $1 AND user_id = $2")).
		WithArgs("hw-1", "user-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Delete(context.Background(), "user-1", "hw-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHomeworkCountSyncState(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewHomeworkRepository(db)

	mock.ExpectQuery(`SELECT COUNT\(\*\) AS total`).
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"total", "linked", "unlinked"}).AddRow(5, 3, 1))

	counts, err := repo.CountSyncState(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, SyncCounts{Total: 5, Linked: 3, Unlinked: 1}, *counts)
}
