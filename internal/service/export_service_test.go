package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-homework-api/internal/dto"
	"github.com/noah-isme/sma-homework-api/internal/models"
	appErrors "github.com/noah-isme/sma-homework-api/pkg/errors"
)

type homeworkListerStub struct {
	items  []models.HomeworkDetail
	filter models.HomeworkFilter
}

func (s *homeworkListerStub) List(_ context.Context, filter models.HomeworkFilter) ([]models.HomeworkDetail, int, error) {
	s.filter = filter
	return s.items, len(s.items), nil
}

func TestExportHomeworkCSV(t *testing.T) {
	className := "Mathematics"
	eventID := "evt1"
	hw := *algebraHomework()
	hw.CalendarEventID = &eventID
	lister := &homeworkListerStub{items: []models.HomeworkDetail{{Homework: hw, ClassName: &className}}}
	svc := NewExportService(lister, nil)
	svc.now = func() time.Time { return time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC) }

	file, err := svc.ExportHomework(context.Background(), "user-1", "csv", dto.HomeworkListRequest{Status: "pending"})
	require.NoError(t, err)
	assert.Equal(t, "homework-20240315-090000.csv", file.Filename)
	assert.True(t, strings.HasPrefix(file.ContentType, "text/csv"))

	body := string(file.Body)
	assert.Contains(t, body, "Title,Class,Due Date,Due Time,Priority,Status,Calendar")
	assert.Contains(t, body, "Algebra Practice,Mathematics,2024-03-15,14:30,high,pending,synced")
	assert.True(t, lister.filter.Unpaged)
	require.NotNil(t, lister.filter.Status)
}

func TestExportHomeworkPDF(t *testing.T) {
	svc := NewExportService(&homeworkListerStub{items: []models.HomeworkDetail{{Homework: *algebraHomework()}}}, nil)

	file, err := svc.ExportHomework(context.Background(), "user-1", "pdf", dto.HomeworkListRequest{})
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", file.ContentType)
	assert.True(t, strings.HasPrefix(string(file.Body), "%PDF"))
}

func TestExportHomeworkUnsupportedFormat(t *testing.T) {
	svc := NewExportService(&homeworkListerStub{}, nil)

	_, err := svc.ExportHomework(context.Background(), "user-1", "xlsx", dto.HomeworkListRequest{})
	assert.True(t, errors.Is(err, appErrors.ErrUnsupportedFormat))
}
