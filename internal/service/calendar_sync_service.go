package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-homework-api/internal/models"
	"github.com/noah-isme/sma-homework-api/pkg/config"
	appErrors "github.com/noah-isme/sma-homework-api/pkg/errors"
	"github.com/noah-isme/sma-homework-api/pkg/logger"
)

const defaultCalendarRequestTimeout = 5 * time.Second

// Operation labels for logs and metrics.
const (
	syncOpCreate    = "create"
	syncOpUpdate    = "update"
	syncOpDelete    = "delete"
	syncOpReconcile = "reconcile"
)

// RemoteCalendarClient is the per-user remote calendar. Get, Update and
// Delete report a missing event with an error matching ErrRemoteNotFound.
type RemoteCalendarClient interface {
	Insert(ctx context.Context, cred *models.UserCredential, payload models.EventPayload) (string, error)
	Get(ctx context.Context, cred *models.UserCredential, eventID string) (*models.EventSnapshot, error)
	Update(ctx context.Context, cred *models.UserCredential, eventID string, payload models.EventPayload) error
	Delete(ctx context.Context, cred *models.UserCredential, eventID string) error
}

type calendarLinkStore interface {
	GetLink(ctx context.Context, homeworkID string) (*string, error)
	SetLink(ctx context.Context, homeworkID string, expected *string, eventID string) error
	ClearLink(ctx context.Context, homeworkID, eventID string) error
}

type classLookup interface {
	FindByID(ctx context.Context, userID, id string) (*models.Class, error)
}

// CalendarSyncConfig tunes the coordinator.
type CalendarSyncConfig struct {
	Disabled         bool
	RequestTimeout   time.Duration
	CompletionPolicy config.CompletionPolicy
}

// CalendarSyncService mirrors homework into the owner's remote calendar.
// Every operation reports its outcome as a SyncResult and never returns an
// error, so calendar outages cannot fail homework CRUD.
//
// Callers must serialise operations per homework record; the link is only
// written after the remote call succeeds, using compare-and-set against the
// value read before the call.
type CalendarSyncService struct {
	client    RemoteCalendarClient
	links     calendarLinkStore
	classes   classLookup
	timezones *TimezoneResolver
	payloads  *EventPayloadBuilder
	metrics   *MetricsService
	cfg       CalendarSyncConfig
	logger    *zap.Logger
}

// NewCalendarSyncService constructs the coordinator.
func NewCalendarSyncService(client RemoteCalendarClient, links calendarLinkStore, classes classLookup, timezones *TimezoneResolver, metrics *MetricsService, cfg CalendarSyncConfig, logger *zap.Logger) *CalendarSyncService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timezones == nil {
		timezones = NewTimezoneResolver(logger)
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaultCalendarRequestTimeout
	}
	if cfg.CompletionPolicy == "" {
		cfg.CompletionPolicy = config.CompletionDelete
	}
	return &CalendarSyncService{
		client:    client,
		links:     links,
		classes:   classes,
		timezones: timezones,
		payloads:  NewEventPayloadBuilder(),
		metrics:   metrics,
		cfg:       cfg,
		logger:    logger,
	}
}

// CompletionPolicy returns the configured completion policy.
func (s *CalendarSyncService) CompletionPolicy() config.CompletionPolicy {
	return s.cfg.CompletionPolicy
}

// SyncCreate inserts an event for an unlinked record and stores the link.
func (s *CalendarSyncService) SyncCreate(ctx context.Context, hw *models.Homework, cred *models.UserCredential) models.SyncResult {
	return s.finish(ctx, syncOpCreate, hw.ID, s.syncCreate(ctx, hw, cred))
}

// SyncUpdate patches the linked event. A record without a link is skipped;
// a linked event that no longer exists remotely is re-created.
func (s *CalendarSyncService) SyncUpdate(ctx context.Context, hw *models.Homework, cred *models.UserCredential) models.SyncResult {
	return s.finish(ctx, syncOpUpdate, hw.ID, s.syncUpdate(ctx, hw, cred))
}

// SyncDelete removes eventID remotely and clears it from homeworkID. An event
// that is already gone counts as deleted.
func (s *CalendarSyncService) SyncDelete(ctx context.Context, homeworkID, eventID string, cred *models.UserCredential) models.SyncResult {
	return s.finish(ctx, syncOpDelete, homeworkID, s.syncDelete(ctx, homeworkID, eventID, cred))
}

// Reconcile decides which operation a homework change requires. changed lists
// the modified fields using the models.Field* names.
func (s *CalendarSyncService) Reconcile(ctx context.Context, hw *models.Homework, cred *models.UserCredential, changed []string) models.SyncResult {
	return s.finish(ctx, syncOpReconcile, hw.ID, s.reconcile(ctx, hw, cred, changed))
}

func (s *CalendarSyncService) syncCreate(ctx context.Context, hw *models.Homework, cred *models.UserCredential) models.SyncResult {
	if s.cfg.Disabled {
		return models.SkippedResult(models.SkipSyncDisabled)
	}
	if !cred.Connected() {
		return models.FailedResult(models.SyncErrNotConnected, appErrors.ErrCalendarNotConnected)
	}
	link, err := s.links.GetLink(ctx, hw.ID)
	if err != nil {
		return models.FailedResult(models.SyncErrStore, err)
	}
	if link != nil {
		return models.SkippedResult(models.SkipAlreadyLinked)
	}
	payload, err := s.buildPayload(ctx, hw, cred)
	if err != nil {
		return models.FailedResult(models.SyncErrInvalidRecord, err)
	}
	return s.insertAndLink(ctx, hw.ID, cred, payload, nil)
}

func (s *CalendarSyncService) syncUpdate(ctx context.Context, hw *models.Homework, cred *models.UserCredential) models.SyncResult {
	if s.cfg.Disabled {
		return models.SkippedResult(models.SkipSyncDisabled)
	}
	if !cred.Connected() {
		return models.FailedResult(models.SyncErrNotConnected, appErrors.ErrCalendarNotConnected)
	}
	link, err := s.links.GetLink(ctx, hw.ID)
	if err != nil {
		return models.FailedResult(models.SyncErrStore, err)
	}
	if link == nil {
		return models.SkippedResult(models.SkipNoExistingLink)
	}
	return s.updateLinked(ctx, hw, cred, *link)
}

func (s *CalendarSyncService) updateLinked(ctx context.Context, hw *models.Homework, cred *models.UserCredential, eventID string) models.SyncResult {
	payload, err := s.buildPayload(ctx, hw, cred)
	if err != nil {
		return models.FailedResult(models.SyncErrInvalidRecord, err)
	}

	var snapshot *models.EventSnapshot
	err = s.remote(ctx, "get", func(callCtx context.Context) error {
		var getErr error
		snapshot, getErr = s.client.Get(callCtx, cred, eventID)
		return getErr
	})
	if err != nil {
		if errors.Is(err, appErrors.ErrRemoteNotFound) {
			return s.recreate(ctx, hw.ID, cred, payload, eventID)
		}
		return models.FailedResult(remoteErrorKind(err), err)
	}
	if snapshot.Cancelled() {
		return s.recreate(ctx, hw.ID, cred, payload, eventID)
	}
	if snapshot.Matches(payload) {
		return models.UpdatedResult(eventID)
	}

	err = s.remote(ctx, "update", func(callCtx context.Context) error {
		return s.client.Update(callCtx, cred, eventID, payload)
	})
	if err != nil {
		if errors.Is(err, appErrors.ErrRemoteNotFound) {
			return s.recreate(ctx, hw.ID, cred, payload, eventID)
		}
		return models.FailedResult(remoteErrorKind(err), err)
	}
	return models.UpdatedResult(eventID)
}

func (s *CalendarSyncService) recreate(ctx context.Context, homeworkID string, cred *models.UserCredential, payload models.EventPayload, staleID string) models.SyncResult {
	logger.WithContext(ctx, s.logger).Info("linked calendar event missing remotely, re-creating",
		zap.String("homework_id", homeworkID),
		zap.String("event_id", staleID),
	)
	return s.insertAndLink(ctx, homeworkID, cred, payload, &staleID)
}

func (s *CalendarSyncService) syncDelete(ctx context.Context, homeworkID, eventID string, cred *models.UserCredential) models.SyncResult {
	if s.cfg.Disabled {
		return models.SkippedResult(models.SkipSyncDisabled)
	}
	if eventID == "" {
		return models.SkippedResult(models.SkipNoExistingLink)
	}
	if !cred.Connected() {
		return models.FailedResult(models.SyncErrNotConnected, appErrors.ErrCalendarNotConnected)
	}

	err := s.remote(ctx, "delete", func(callCtx context.Context) error {
		return s.client.Delete(callCtx, cred, eventID)
	})
	if err != nil && !errors.Is(err, appErrors.ErrRemoteNotFound) {
		return models.FailedResult(remoteErrorKind(err), err)
	}

	if homeworkID != "" {
		if err := s.links.ClearLink(ctx, homeworkID, eventID); err != nil {
			return models.FailedResult(models.SyncErrStore, err)
		}
	}
	return models.DeletedResult(eventID)
}

func (s *CalendarSyncService) reconcile(ctx context.Context, hw *models.Homework, cred *models.UserCredential, changed []string) models.SyncResult {
	if s.cfg.Disabled {
		return models.SkippedResult(models.SkipSyncDisabled)
	}

	relevant := hasRelevantChange(changed)
	statusChanged := containsField(changed, models.FieldStatus)
	policy := s.cfg.CompletionPolicy

	switch policy {
	case config.CompletionKeep:
		statusChanged = false
	case config.CompletionResync:
		relevant = relevant || statusChanged
	}
	if !relevant && !statusChanged {
		return models.SkippedResult(models.SkipNoRelevantChange)
	}

	link, err := s.links.GetLink(ctx, hw.ID)
	if err != nil {
		return models.FailedResult(models.SyncErrStore, err)
	}

	if policy == config.CompletionDelete && hw.IsCompleted() {
		if link == nil {
			return models.SkippedResult(models.SkipHomeworkCompleted)
		}
		return s.syncDelete(ctx, hw.ID, *link, cred)
	}

	if !cred.Connected() {
		return models.FailedResult(models.SyncErrNotConnected, appErrors.ErrCalendarNotConnected)
	}
	if link == nil {
		payload, err := s.buildPayload(ctx, hw, cred)
		if err != nil {
			return models.FailedResult(models.SyncErrInvalidRecord, err)
		}
		return s.insertAndLink(ctx, hw.ID, cred, payload, nil)
	}
	if !relevant {
		// Moved between open states while linked; the event is unaffected.
		return models.SkippedResult(models.SkipNoRelevantChange)
	}
	return s.updateLinked(ctx, hw, cred, *link)
}

func (s *CalendarSyncService) insertAndLink(ctx context.Context, homeworkID string, cred *models.UserCredential, payload models.EventPayload, expected *string) models.SyncResult {
	var eventID string
	err := s.remote(ctx, "insert", func(callCtx context.Context) error {
		var insertErr error
		eventID, insertErr = s.client.Insert(callCtx, cred, payload)
		return insertErr
	})
	if err != nil {
		return models.FailedResult(remoteErrorKind(err), err)
	}

	if err := s.links.SetLink(ctx, homeworkID, expected, eventID); err != nil {
		s.compensate(ctx, homeworkID, cred, eventID)
		if errors.Is(err, appErrors.ErrLinkConflict) {
			return models.FailedResult(models.SyncErrLinkConflict, err)
		}
		return models.FailedResult(models.SyncErrStore, err)
	}
	return models.CreatedResult(eventID)
}

// compensate deletes an event whose link could not be stored. It runs on a
// context detached from the caller's cancellation.
func (s *CalendarSyncService) compensate(ctx context.Context, homeworkID string, cred *models.UserCredential, eventID string) {
	detached, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.RequestTimeout)
	defer cancel()

	start := time.Now()
	err := s.client.Delete(detached, cred, eventID)
	s.metrics.ObserveCalendarCall("compensate", err, time.Since(start))
	if err != nil && !errors.Is(err, appErrors.ErrRemoteNotFound) {
		logger.WithContext(ctx, s.logger).Error("failed to remove unlinked calendar event",
			zap.String("homework_id", homeworkID),
			zap.String("event_id", eventID),
			zap.Error(err),
		)
	}
}

func (s *CalendarSyncService) remote(ctx context.Context, call string, fn func(context.Context) error) error {
	callCtx, cancel := context.WithTimeout(ctx, s.cfg.RequestTimeout)
	defer cancel()
	start := time.Now()
	err := fn(callCtx)
	s.metrics.ObserveCalendarCall(call, err, time.Since(start))
	return err
}

func (s *CalendarSyncService) buildPayload(ctx context.Context, hw *models.Homework, cred *models.UserCredential) (models.EventPayload, error) {
	loc := s.timezones.Resolve(cred.Timezone)
	due, err := s.timezones.Localize(hw.DueDate, hw.DueTime, loc)
	if err != nil {
		return models.EventPayload{}, appErrors.WrapAs(appErrors.ErrInvalidRecord, err, "")
	}
	completed := s.cfg.CompletionPolicy == config.CompletionResync && hw.IsCompleted()
	return s.payloads.Build(hw, s.lookupClass(ctx, hw), due, completed)
}

func (s *CalendarSyncService) lookupClass(ctx context.Context, hw *models.Homework) *models.Class {
	if hw.ClassID == nil || s.classes == nil {
		return nil
	}
	class, err := s.classes.FindByID(ctx, hw.UserID, *hw.ClassID)
	if err != nil {
		logger.WithContext(ctx, s.logger).Warn("class lookup failed, describing event without class",
			zap.String("homework_id", hw.ID),
			zap.Error(err),
		)
		return nil
	}
	return class
}

func (s *CalendarSyncService) finish(ctx context.Context, operation, homeworkID string, result models.SyncResult) models.SyncResult {
	s.metrics.RecordCalendarSync(operation, result)

	log := logger.WithContext(ctx, s.logger)
	fields := []zap.Field{
		zap.String("operation", operation),
		zap.String("homework_id", homeworkID),
		zap.String("status", string(result.Status)),
	}
	if result.EventID != "" {
		fields = append(fields, zap.String("event_id", result.EventID))
	}

	switch {
	case result.Succeeded():
		log.Info("calendar sync", fields...)
	case !result.Failed():
		if result.Reason != "" {
			fields = append(fields, zap.String("reason", string(result.Reason)))
		}
		log.Debug("calendar sync", fields...)
	case result.ErrorKind == models.SyncErrInvalidRecord:
		log.Error("calendar sync failed", append(fields, zap.String("error_kind", string(result.ErrorKind)), zap.Error(result.Err))...)
	case result.ErrorKind == models.SyncErrNotConnected:
		log.Debug("calendar sync skipped for disconnected user", fields...)
	default:
		log.Warn("calendar sync failed", append(fields, zap.String("error_kind", string(result.ErrorKind)), zap.Error(result.Err))...)
	}
	return result
}

func remoteErrorKind(err error) models.SyncErrorKind {
	if errors.Is(err, appErrors.ErrCalendarNotConnected) {
		return models.SyncErrNotConnected
	}
	return models.SyncErrRemote
}

var relevantFields = map[string]struct{}{
	models.FieldTitle:       {},
	models.FieldDescription: {},
	models.FieldDueDate:     {},
	models.FieldDueTime:     {},
	models.FieldPriority:    {},
	models.FieldClassID:     {},
}

func hasRelevantChange(changed []string) bool {
	for _, field := range changed {
		if _, ok := relevantFields[field]; ok {
			return true
		}
	}
	return false
}

func containsField(changed []string, field string) bool {
	for _, f := range changed {
		if f == field {
			return true
		}
	}
	return false
}
