package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-homework-api/internal/dto"
	"github.com/noah-isme/sma-homework-api/internal/models"
	appErrors "github.com/noah-isme/sma-homework-api/pkg/errors"
	"github.com/noah-isme/sma-homework-api/pkg/export"
)

var homeworkExportHeaders = []string{"Title", "Class", "Due Date", "Due Time", "Priority", "Status", "Calendar"}

type homeworkLister interface {
	List(ctx context.Context, filter models.HomeworkFilter) ([]models.HomeworkDetail, int, error)
}

// ExportFile is a rendered export ready to be streamed.
type ExportFile struct {
	Filename    string
	ContentType string
	Body        []byte
}

// ExportService renders homework listings as CSV or PDF.
type ExportService struct {
	homework homeworkLister
	logger   *zap.Logger
	now      func() time.Time
}

// NewExportService constructs ExportService.
func NewExportService(homework homeworkLister, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{homework: homework, logger: logger, now: time.Now}
}

// ExportHomework renders all homework matching req in the requested format.
func (s *ExportService) ExportHomework(ctx context.Context, userID, rawFormat string, req dto.HomeworkListRequest) (*ExportFile, error) {
	format, ok := export.ParseFormat(rawFormat)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrUnsupportedFormat, fmt.Sprintf("unsupported export format %q", rawFormat))
	}
	exporter, err := export.New(format)
	if err != nil {
		return nil, appErrors.WrapAs(appErrors.ErrUnsupportedFormat, err, "")
	}

	filter := models.HomeworkFilter{UserID: userID, ClassID: req.ClassID, Unpaged: true}
	if req.Status != "" {
		status := models.HomeworkStatus(req.Status)
		filter.Status = &status
	}
	items, _, err := s.homework.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load homework for export")
	}

	generatedAt := s.now().UTC()
	dataset := export.Dataset{
		Title:       "Homework",
		Headers:     homeworkExportHeaders,
		GeneratedAt: generatedAt,
	}
	for _, item := range items {
		className := ""
		if item.ClassName != nil {
			className = *item.ClassName
		}
		calendar := "not synced"
		if item.CalendarEventID != nil {
			calendar = "synced"
		}
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Title":    item.Title,
			"Class":    className,
			"Due Date": item.DueDate.Format(dateLayout),
			"Due Time": item.DueTime,
			"Priority": string(item.Priority),
			"Status":   string(item.Status),
			"Calendar": calendar,
		})
	}

	body, err := exporter.Render(dataset)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}

	s.logger.Debug("homework exported", zap.String("user_id", userID), zap.String("format", string(format)), zap.Int("rows", len(items)))
	return &ExportFile{
		Filename:    fmt.Sprintf("homework-%s.%s", generatedAt.Format("20060102-150405"), exporter.Extension()),
		ContentType: exporter.ContentType(),
		Body:        body,
	}, nil
}
