package service

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-homework-api/internal/models"
	appErrors "github.com/noah-isme/sma-homework-api/pkg/errors"
)

func algebraHomework() *models.Homework {
	return &models.Homework{
		ID:       "hw-1",
		UserID:   "user-1",
		Title:    "Algebra Practice",
		DueDate:  time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
		DueTime:  "14:30",
		Priority: models.PriorityHigh,
		Status:   models.HomeworkPending,
	}
}

func TestEventPayloadBuilderWindowAndTemplate(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	hw := algebraHomework()
	due := time.Date(2024, 3, 15, 14, 30, 0, 0, loc)
	builder := NewEventPayloadBuilder()

	payload, err := builder.Build(hw, nil, due, false)
	require.NoError(t, err)

	assert.Equal(t, "Homework: Algebra Practice", payload.Summary)
	assert.Equal(t, "Class: Unknown\nDescription: No description\nPriority: high", payload.Description)
	assert.Equal(t, "2024-03-15T13:30:00-04:00", payload.Start.Format(time.RFC3339))
	assert.Equal(t, "2024-03-15T14:30:00-04:00", payload.End.Format(time.RFC3339))
	assert.Equal(t, "America/New_York", payload.TimeZone)
	assert.False(t, payload.UseDefaultReminders)
	assert.Equal(t, []models.EventReminder{{Method: "email", Minutes: 1440}, {Method: "popup", Minutes: 60}}, payload.Reminders)

	again, err := builder.Build(hw, nil, due, false)
	require.NoError(t, err)
	assert.Equal(t, payload, again)
}

func TestEventPayloadBuilderUsesClassAndDescription(t *testing.T) {
	hw := algebraHomework()
	notes := "Exercises 1-20"
	hw.Description = &notes
	due := time.Date(2024, 3, 15, 14, 30, 0, 0, time.UTC)

	payload, err := NewEventPayloadBuilder().Build(hw, &models.Class{Name: "Mathematics"}, due, true)
	require.NoError(t, err)
	assert.Equal(t, "Completed: Homework: Algebra Practice", payload.Summary)
	assert.Equal(t, "Class: Mathematics\nDescription: Exercises 1-20\nPriority: high", payload.Description)
	assert.Equal(t, "UTC", payload.TimeZone)
}

func TestEventPayloadBuilderRejectsMissingDueDate(t *testing.T) {
	hw := algebraHomework()
	hw.DueDate = time.Time{}

	_, err := NewEventPayloadBuilder().Build(hw, nil, time.Time{}, false)
	assert.True(t, errors.Is(err, appErrors.ErrInvalidRecord))
}
