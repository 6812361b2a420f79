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
	appErrors "github.com/noah-isme/sma-homework-api/pkg/errors"
)

type classRepository interface {
	List(ctx context.Context, userID string) ([]models.Class, error)
	FindByID(ctx context.Context, userID, id string) (*models.Class, error)
	Create(ctx context.Context, class *models.Class) error
	Update(ctx context.Context, class *models.Class) error
	Delete(ctx context.Context, userID, id string) error
}

// ClassService coordinates class operations. Renaming a class does not
// rewrite existing calendar events; they pick up the new name on their next
// synchronisation.
type ClassService struct {
	repo      classRepository
	validator *validator.Validate
	now       func() time.Time
	logger    *zap.Logger
}

// NewClassService constructs ClassService.
func NewClassService(repo classRepository, validate *validator.Validate, logger *zap.Logger) *ClassService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClassService{repo: repo, validator: validate, now: time.Now, logger: logger}
}

// List returns the user's classes.
func (s *ClassService) List(ctx context.Context, userID string) ([]models.Class, error) {
	classes, err := s.repo.List(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list classes")
	}
	return classes, nil
}

// Get returns a single class.
func (s *ClassService) Get(ctx context.Context, userID, id string) (*models.Class, error) {
	class, err := s.repo.FindByID(ctx, userID, id)
	if err != nil {
		return nil, classLookupError(err)
	}
	return class, nil
}

// Create adds a new class.
func (s *ClassService) Create(ctx context.Context, userID string, req dto.CreateClassRequest) (*models.Class, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid class payload")
	}
	now := s.now().UTC()
	class := &models.Class{
		ID:        uuid.NewString(),
		UserID:    userID,
		Name:      strings.TrimSpace(req.Name),
		Teacher:   normalizeOptional(req.Teacher),
		Room:      normalizeOptional(req.Room),
		Color:     normalizeOptional(req.Color),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Create(ctx, class); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create class")
	}
	return class, nil
}

// Update modifies class fields.
func (s *ClassService) Update(ctx context.Context, userID, id string, req dto.UpdateClassRequest) (*models.Class, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid class payload")
	}
	class, err := s.repo.FindByID(ctx, userID, id)
	if err != nil {
		return nil, classLookupError(err)
	}
	if req.Name != nil {
		class.Name = strings.TrimSpace(*req.Name)
	}
	if req.Teacher != nil {
		class.Teacher = normalizeOptional(req.Teacher)
	}
	if req.Room != nil {
		class.Room = normalizeOptional(req.Room)
	}
	if req.Color != nil {
		class.Color = normalizeOptional(req.Color)
	}
	class.UpdatedAt = s.now().UTC()
	if err := s.repo.Update(ctx, class); err != nil {
		return nil, classLookupError(err)
	}
	return class, nil
}

// Delete removes a class; its homework is kept without a class.
func (s *ClassService) Delete(ctx context.Context, userID, id string) error {
	if err := s.repo.Delete(ctx, userID, id); err != nil {
		return classLookupError(err)
	}
	return nil
}

func classLookupError(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, "class not found")
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
}
