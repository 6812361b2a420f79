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

func TestClassListScopedToUser(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewClassRepository(db)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT " + classColumns + " FROM classes WHERE user_id = $1 ORDER BY name ASC")).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "name", "teacher", "room", "color", "created_at", "updated_at"}).
			AddRow("c1", "u1", "Biology", nil, "B2", nil, now, now))

	classes, err := repo.List(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, classes, 1)
	assert.Equal(t, "Biology", classes[0].Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClassUpdateMissingRow(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewClassRepository(db)

	mock.ExpectExec("UPDATE classes SET name").WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Update(context.Background(), &models.Class{ID: "c1", UserID: "u1", Name: "Math"})
	assert.True(t, errors.Is(err, sql.ErrNoRows))
}

func TestClassCreate(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewClassRepository(db)

	mock.ExpectExec("INSERT INTO classes").WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Create(context.Background(), &models.Class{ID: "c1", UserID: "u1", Name: "Math"}))
	assert.NoError(t, mock.ExpectationsWereMet())
}
