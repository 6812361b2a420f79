package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-homework-api/internal/dto"
	"github.com/noah-isme/sma-homework-api/internal/models"
	"github.com/noah-isme/sma-homework-api/internal/repository"
	"github.com/noah-isme/sma-homework-api/pkg/config"
	appErrors "github.com/noah-isme/sma-homework-api/pkg/errors"
	"github.com/noah-isme/sma-homework-api/pkg/logger"
)

// allSyncFields forces a full reconcile of a record.
var allSyncFields = []string{
	models.FieldTitle,
	models.FieldDescription,
	models.FieldDueDate,
	models.FieldDueTime,
	models.FieldPriority,
	models.FieldClassID,
}

type calendarHomeworkReader interface {
	List(ctx context.Context, filter models.HomeworkFilter) ([]models.HomeworkDetail, int, error)
	FindByID(ctx context.Context, userID, id string) (*models.HomeworkDetail, error)
	CountSyncState(ctx context.Context, userID string) (*repository.SyncCounts, error)
}

type calendarReconciler interface {
	SyncCreate(ctx context.Context, hw *models.Homework, cred *models.UserCredential) models.SyncResult
	Reconcile(ctx context.Context, hw *models.Homework, cred *models.UserCredential, changed []string) models.SyncResult
	CompletionPolicy() config.CompletionPolicy
}

// CalendarService exposes explicit synchronisation endpoints on top of the
// coordinator: bulk backfill, single-record resync and connection status.
type CalendarService struct {
	homework calendarHomeworkReader
	users    credentialLookup
	sync     calendarReconciler
	locker   recordLocker
	enabled  bool
	lockTTL  time.Duration
	logger   *zap.Logger
}

// CalendarServiceConfig tunes CalendarService.
type CalendarServiceConfig struct {
	Enabled bool
	LockTTL time.Duration
}

// NewCalendarService constructs CalendarService.
func NewCalendarService(homework calendarHomeworkReader, users credentialLookup, sync calendarReconciler, locker recordLocker, cfg CalendarServiceConfig, logger *zap.Logger) *CalendarService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = defaultRecordLockTTL
	}
	return &CalendarService{
		homework: homework,
		users:    users,
		sync:     sync,
		locker:   locker,
		enabled:  cfg.Enabled,
		lockTTL:  cfg.LockTTL,
		logger:   logger,
	}
}

// SyncAll creates events for every open homework of the user that has no
// link yet. Records locked by a concurrent writer are reported as failures.
func (s *CalendarService) SyncAll(ctx context.Context, userID string) (*dto.CalendarBulkSyncResponse, error) {
	cred, err := s.connectedCredential(ctx, userID)
	if err != nil {
		return nil, err
	}

	filter := models.HomeworkFilter{UserID: userID, OnlyUnlinked: true, Unpaged: true}
	if s.sync.CompletionPolicy() == config.CompletionDelete {
		filter.ExcludeCompleted = true
	}
	items, _, err := s.homework.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list homework")
	}

	resp := &dto.CalendarBulkSyncResponse{TotalHomework: len(items)}
	for i := range items {
		hw := items[i].Homework
		result, err := s.withLock(ctx, hw.ID, func() models.SyncResult {
			return s.sync.SyncCreate(ctx, &hw, cred)
		})
		switch {
		case err != nil:
			kind := models.SyncErrStore
			if errors.Is(err, appErrors.ErrRecordLocked) {
				kind = models.SyncErrRecordLocked
			}
			resp.Failures = append(resp.Failures, dto.CalendarSyncFailure{HomeworkID: hw.ID, ErrorKind: kind, Message: err.Error()})
		case result.Status == models.SyncCreated:
			resp.SyncedCount++
		case result.Failed():
			resp.Failures = append(resp.Failures, dto.CalendarSyncFailure{HomeworkID: hw.ID, ErrorKind: result.ErrorKind, Message: errorMessage(result.Err)})
		}
	}
	resp.Message = fmt.Sprintf("Synced %d of %d homework to Google Calendar", resp.SyncedCount, resp.TotalHomework)

	logger.WithContext(ctx, s.logger).Info("bulk calendar sync finished",
		zap.String("user_id", userID),
		zap.Int("synced", resp.SyncedCount),
		zap.Int("total", resp.TotalHomework),
		zap.Int("failed", len(resp.Failures)),
	)
	return resp, nil
}

// SyncOne forces a reconcile of a single homework and reports failures as errors.
func (s *CalendarService) SyncOne(ctx context.Context, userID, homeworkID string) (*dto.CalendarSyncResponse, error) {
	cred, err := s.connectedCredential(ctx, userID)
	if err != nil {
		return nil, err
	}

	var lookupErr error
	result, err := s.withLock(ctx, homeworkID, func() models.SyncResult {
		detail, err := s.homework.FindByID(ctx, userID, homeworkID)
		if err != nil {
			lookupErr = homeworkLookupError(err)
			return models.SyncResult{}
		}
		return s.sync.Reconcile(ctx, &detail.Homework, cred, allSyncFields)
	})
	if err != nil {
		return nil, err
	}
	if lookupErr != nil {
		return nil, lookupErr
	}
	if result.Failed() {
		return nil, syncFailureError(result)
	}

	return &dto.CalendarSyncResponse{
		Message:    syncMessage(result),
		HomeworkID: homeworkID,
		EventID:    result.EventID,
		Result:     result,
	}, nil
}

// Status reports the user's calendar connection and link counts.
func (s *CalendarService) Status(ctx context.Context, userID string) (*dto.CalendarStatusResponse, error) {
	cred, err := s.users.FindCredential(ctx, userID)
	if err != nil {
		return nil, userLookupError(err)
	}
	counts, err := s.homework.CountSyncState(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count homework")
	}
	return &dto.CalendarStatusResponse{
		Connected:        cred.Connected(),
		Timezone:         cred.Timezone,
		TokenExpiry:      cred.TokenExpiry,
		LinkedHomework:   counts.Linked,
		UnlinkedHomework: counts.Unlinked,
		SyncEnabled:      s.enabled,
		CompletionPolicy: string(s.sync.CompletionPolicy()),
	}, nil
}

func (s *CalendarService) connectedCredential(ctx context.Context, userID string) (*models.UserCredential, error) {
	if !s.enabled {
		return nil, appErrors.Clone(appErrors.ErrValidation, "calendar sync is disabled")
	}
	cred, err := s.users.FindCredential(ctx, userID)
	if err != nil {
		return nil, userLookupError(err)
	}
	if !cred.Connected() {
		return nil, appErrors.ErrCalendarNotConnected
	}
	return cred, nil
}

func (s *CalendarService) withLock(ctx context.Context, id string, fn func() models.SyncResult) (models.SyncResult, error) {
	if s.locker == nil {
		return fn(), nil
	}
	token, err := s.locker.Acquire(ctx, id, s.lockTTL)
	if err != nil {
		if errors.Is(err, appErrors.ErrRecordLocked) {
			return models.SyncResult{}, appErrors.Clone(appErrors.ErrRecordLocked, "homework is being modified, retry shortly")
		}
		return models.SyncResult{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to lock homework")
	}
	defer func() {
		if err := s.locker.Release(context.WithoutCancel(ctx), id, token); err != nil {
			logger.WithContext(ctx, s.logger).Warn("failed to release homework lock", zap.String("homework_id", id), zap.Error(err))
		}
	}()
	return fn(), nil
}

func syncFailureError(result models.SyncResult) error {
	switch result.ErrorKind {
	case models.SyncErrNotConnected:
		return appErrors.ErrCalendarNotConnected
	case models.SyncErrInvalidRecord:
		return appErrors.WrapAs(appErrors.ErrInvalidRecord, result.Err, "")
	case models.SyncErrLinkConflict:
		return appErrors.WrapAs(appErrors.ErrLinkConflict, result.Err, "")
	case models.SyncErrRemote:
		return appErrors.WrapAs(appErrors.ErrRemoteCalendar, result.Err, "failed to sync homework to Google Calendar")
	default:
		return appErrors.Wrap(result.Err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store calendar link")
	}
}

func syncMessage(result models.SyncResult) string {
	switch result.Status {
	case models.SyncCreated:
		return "Homework synced to Google Calendar"
	case models.SyncUpdated:
		return "Google Calendar event updated"
	case models.SyncDeleted:
		return "Google Calendar event removed"
	default:
		return fmt.Sprintf("Nothing to sync (%s)", result.Reason)
	}
}

func errorMessage(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

func userLookupError(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, "user not found")
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
}
