package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-homework-api/internal/dto"
	"github.com/noah-isme/sma-homework-api/internal/models"
	"github.com/noah-isme/sma-homework-api/internal/repository"
	appErrors "github.com/noah-isme/sma-homework-api/pkg/errors"
	"github.com/noah-isme/sma-homework-api/pkg/logger"
)

const (
	dateLayout           = "2006-01-02"
	defaultUpcomingDays  = 7
	defaultRecordLockTTL = 30 * time.Second
)

type homeworkRepository interface {
	List(ctx context.Context, filter models.HomeworkFilter) ([]models.HomeworkDetail, int, error)
	FindByID(ctx context.Context, userID, id string) (*models.HomeworkDetail, error)
	Create(ctx context.Context, hw *models.Homework) error
	Update(ctx context.Context, hw *models.Homework) error
	Delete(ctx context.Context, userID, id string) error
}

type credentialLookup interface {
	FindCredential(ctx context.Context, userID string) (*models.UserCredential, error)
}

type recordLocker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (string, error)
	Release(ctx context.Context, key, token string) error
}

type homeworkCalendarSync interface {
	SyncCreate(ctx context.Context, hw *models.Homework, cred *models.UserCredential) models.SyncResult
	SyncDelete(ctx context.Context, homeworkID, eventID string, cred *models.UserCredential) models.SyncResult
	Reconcile(ctx context.Context, hw *models.Homework, cred *models.UserCredential, changed []string) models.SyncResult
}

// HomeworkService owns homework CRUD and triggers calendar synchronisation
// after each committed mutation. Sync outcomes are attached to responses and
// never fail the mutation itself.
type HomeworkService struct {
	repo      homeworkRepository
	classes   classLookup
	users     credentialLookup
	sync      homeworkCalendarSync
	locker    recordLocker
	timezones *TimezoneResolver
	metrics   *MetricsService
	validator *validator.Validate
	lockTTL   time.Duration
	now       func() time.Time
	logger    *zap.Logger
}

// HomeworkServiceConfig carries optional collaborators.
type HomeworkServiceConfig struct {
	LockTTL   time.Duration
	Timezones *TimezoneResolver
	Metrics   *MetricsService
}

// NewHomeworkService constructs HomeworkService.
func NewHomeworkService(repo homeworkRepository, classes classLookup, users credentialLookup, sync homeworkCalendarSync, locker recordLocker, validate *validator.Validate, cfg HomeworkServiceConfig, logger *zap.Logger) *HomeworkService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = defaultRecordLockTTL
	}
	if cfg.Timezones == nil {
		cfg.Timezones = NewTimezoneResolver(logger)
	}
	return &HomeworkService{
		repo:      repo,
		classes:   classes,
		users:     users,
		sync:      sync,
		locker:    locker,
		timezones: cfg.Timezones,
		metrics:   cfg.Metrics,
		validator: validate,
		lockTTL:   cfg.LockTTL,
		now:       time.Now,
		logger:    logger,
	}
}

// List returns the user's homework with pagination metadata.
func (s *HomeworkService) List(ctx context.Context, userID string, req dto.HomeworkListRequest) ([]models.HomeworkDetail, *models.Pagination, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid homework filter")
	}

	page := req.Page
	if page < 1 {
		page = 1
	}
	size := req.PageSize
	if size < 1 || size > repository.MaxPageSize {
		size = repository.DefaultPageSize
	}
	filter := models.HomeworkFilter{
		UserID:   userID,
		ClassID:  req.ClassID,
		Page:     page,
		PageSize: size,
	}
	if req.Status != "" {
		status := models.HomeworkStatus(req.Status)
		filter.Status = &status
	}
	if req.DueDate != "" {
		due, _ := time.Parse(dateLayout, req.DueDate)
		filter.DueFrom, filter.DueTo = &due, &due
	}
	if req.View != "" {
		s.applyView(ctx, userID, req, &filter)
	}

	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list homework")
	}

	return items, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// applyView narrows the filter to a dashboard view relative to today in the
// user's timezone.
func (s *HomeworkService) applyView(ctx context.Context, userID string, req dto.HomeworkListRequest, filter *models.HomeworkFilter) {
	timezone := ""
	if cred, err := s.users.FindCredential(ctx, userID); err == nil {
		timezone = cred.Timezone
	}
	y, m, d := s.now().In(s.timezones.Resolve(timezone)).Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)

	switch req.View {
	case dto.HomeworkViewDueToday:
		filter.DueFrom, filter.DueTo = &today, &today
		filter.ExcludeCompleted = true
	case dto.HomeworkViewOverdue:
		yesterday := today.AddDate(0, 0, -1)
		filter.DueFrom, filter.DueTo = nil, &yesterday
		filter.ExcludeCompleted = true
	case dto.HomeworkViewUpcoming:
		days := req.Days
		if days <= 0 {
			days = defaultUpcomingDays
		}
		until := today.AddDate(0, 0, days)
		filter.DueFrom, filter.DueTo = &today, &until
		filter.ExcludeCompleted = true
	}
}

// Get returns a single homework item.
func (s *HomeworkService) Get(ctx context.Context, userID, id string) (*models.HomeworkDetail, error) {
	detail, err := s.repo.FindByID(ctx, userID, id)
	if err != nil {
		return nil, homeworkLookupError(err)
	}
	return detail, nil
}

// Create stores the homework and mirrors it into the user's calendar.
func (s *HomeworkService) Create(ctx context.Context, userID string, req dto.CreateHomeworkRequest) (*dto.HomeworkResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid homework payload")
	}
	if err := s.ensureClass(ctx, userID, req.ClassID); err != nil {
		return nil, err
	}

	dueDate, _ := time.Parse(dateLayout, req.DueDate)
	priority := models.HomeworkPriority(req.Priority)
	if priority == "" {
		priority = models.PriorityMedium
	}
	now := s.now().UTC()
	hw := &models.Homework{
		ID:          uuid.NewString(),
		UserID:      userID,
		ClassID:     req.ClassID,
		Title:       strings.TrimSpace(req.Title),
		Description: normalizeOptional(req.Description),
		DueDate:     dueDate,
		DueTime:     normalizeDueTime(req.DueTime),
		Priority:    priority,
		Status:      models.HomeworkPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Create(ctx, hw); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create homework")
	}

	result := s.withCredential(ctx, userID, func(cred *models.UserCredential) models.SyncResult {
		return s.sync.SyncCreate(ctx, hw, cred)
	})
	return s.respond(ctx, hw, result)
}

// Update applies a partial update and reconciles the calendar event.
func (s *HomeworkService) Update(ctx context.Context, userID, id string, req dto.UpdateHomeworkRequest) (*dto.HomeworkResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid homework payload")
	}

	unlock, err := s.lock(ctx, id)
	if err != nil {
		return nil, err
	}
	defer unlock()

	current, err := s.repo.FindByID(ctx, userID, id)
	if err != nil {
		return nil, homeworkLookupError(err)
	}
	if req.ClassID != nil && !req.ClearClass {
		if err := s.ensureClass(ctx, userID, req.ClassID); err != nil {
			return nil, err
		}
	}

	hw := current.Homework
	changed := s.applyUpdate(&hw, req)
	if len(changed) == 0 {
		return &dto.HomeworkResponse{Homework: *current}, nil
	}
	hw.UpdatedAt = s.now().UTC()
	if err := s.repo.Update(ctx, &hw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "homework not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update homework")
	}

	result := s.withCredential(ctx, userID, func(cred *models.UserCredential) models.SyncResult {
		return s.sync.Reconcile(ctx, &hw, cred, changed)
	})
	return s.respond(ctx, &hw, result)
}

// SetStatus is a shortcut for status-only updates such as completing homework.
func (s *HomeworkService) SetStatus(ctx context.Context, userID, id string, status models.HomeworkStatus) (*dto.HomeworkResponse, error) {
	raw := string(status)
	return s.Update(ctx, userID, id, dto.UpdateHomeworkRequest{Status: &raw})
}

// Delete removes the homework, then its calendar event.
func (s *HomeworkService) Delete(ctx context.Context, userID, id string) (*dto.HomeworkDeleteResponse, error) {
	unlock, err := s.lock(ctx, id)
	if err != nil {
		return nil, err
	}
	defer unlock()

	current, err := s.repo.FindByID(ctx, userID, id)
	if err != nil {
		return nil, homeworkLookupError(err)
	}

	// The remote delete runs first; the row is removed whatever its outcome.
	resp := &dto.HomeworkDeleteResponse{ID: id}
	if current.CalendarEventID != nil {
		eventID := *current.CalendarEventID
		result := s.withCredential(ctx, userID, func(cred *models.UserCredential) models.SyncResult {
			return s.sync.SyncDelete(ctx, id, eventID, cred)
		})
		resp.CalendarSync = &result
	}

	if err := s.repo.Delete(ctx, userID, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "homework not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete homework")
	}
	return resp, nil
}

func (s *HomeworkService) applyUpdate(hw *models.Homework, req dto.UpdateHomeworkRequest) []string {
	var changed []string

	if req.Title != nil {
		if title := strings.TrimSpace(*req.Title); title != hw.Title {
			hw.Title = title
			changed = append(changed, models.FieldTitle)
		}
	}
	if req.Description != nil {
		description := normalizeOptional(req.Description)
		if !equalOptional(description, hw.Description) {
			hw.Description = description
			changed = append(changed, models.FieldDescription)
		}
	}
	if req.ClearClass {
		if hw.ClassID != nil {
			hw.ClassID = nil
			changed = append(changed, models.FieldClassID)
		}
	} else if req.ClassID != nil && !equalOptional(req.ClassID, hw.ClassID) {
		classID := *req.ClassID
		hw.ClassID = &classID
		changed = append(changed, models.FieldClassID)
	}
	if req.DueDate != nil {
		due, _ := time.Parse(dateLayout, *req.DueDate)
		if !due.Equal(hw.DueDate) {
			hw.DueDate = due
			changed = append(changed, models.FieldDueDate)
		}
	}
	if req.DueTime != nil {
		if dueTime := normalizeDueTime(*req.DueTime); dueTime != hw.DueTime {
			hw.DueTime = dueTime
			changed = append(changed, models.FieldDueTime)
		}
	}
	if req.Priority != nil && models.HomeworkPriority(*req.Priority) != hw.Priority {
		hw.Priority = models.HomeworkPriority(*req.Priority)
		changed = append(changed, models.FieldPriority)
	}
	if req.Status != nil && models.HomeworkStatus(*req.Status) != hw.Status {
		hw.Status = models.HomeworkStatus(*req.Status)
		if hw.Status == models.HomeworkCompleted {
			completedAt := s.now().UTC()
			hw.CompletedAt = &completedAt
		} else {
			hw.CompletedAt = nil
		}
		changed = append(changed, models.FieldStatus)
	}
	return changed
}

// lock serialises mutations of one homework record across requests.
func (s *HomeworkService) lock(ctx context.Context, id string) (func(), error) {
	if s.locker == nil {
		return func() {}, nil
	}
	token, err := s.locker.Acquire(ctx, id, s.lockTTL)
	if err != nil {
		if errors.Is(err, appErrors.ErrRecordLocked) {
			s.metrics.RecordLockContention()
			return nil, appErrors.Clone(appErrors.ErrRecordLocked, "homework is being modified, retry shortly")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to lock homework")
	}
	return func() {
		if err := s.locker.Release(context.WithoutCancel(ctx), id, token); err != nil {
			logger.WithContext(ctx, s.logger).Warn("failed to release homework lock", zap.String("homework_id", id), zap.Error(err))
		}
	}, nil
}

func (s *HomeworkService) withCredential(ctx context.Context, userID string, fn func(cred *models.UserCredential) models.SyncResult) models.SyncResult {
	cred, err := s.users.FindCredential(ctx, userID)
	if err != nil {
		logger.WithContext(ctx, s.logger).Warn("failed to load calendar credential", zap.String("user_id", userID), zap.Error(err))
		return models.FailedResult(models.SyncErrStore, err)
	}
	return fn(cred)
}

// respond reloads the record so the returned link reflects the sync outcome.
func (s *HomeworkService) respond(ctx context.Context, hw *models.Homework, result models.SyncResult) (*dto.HomeworkResponse, error) {
	detail, err := s.repo.FindByID(ctx, hw.UserID, hw.ID)
	if err != nil {
		return nil, homeworkLookupError(err)
	}
	return &dto.HomeworkResponse{Homework: *detail, CalendarSync: &result}, nil
}

func (s *HomeworkService) ensureClass(ctx context.Context, userID string, classID *string) error {
	if classID == nil || *classID == "" {
		return nil
	}
	if _, err := s.classes.FindByID(ctx, userID, *classID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrValidation, "class not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	return nil
}

func homeworkLookupError(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, "homework not found")
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load homework")
}

func normalizeDueTime(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return models.DefaultDueTime
	}
	return raw
}

func normalizeOptional(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func equalOptional(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
