package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-homework-api/internal/dto"
	"github.com/noah-isme/sma-homework-api/internal/models"
	appErrors "github.com/noah-isme/sma-homework-api/pkg/errors"
	"github.com/noah-isme/sma-homework-api/pkg/logger"
)

type dashboardRepository interface {
	Summary(ctx context.Context, userID string, window models.DashboardWindow) (*models.DashboardSummary, error)
}

type summaryCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// DashboardServiceConfig tunes dashboard behaviour.
type DashboardServiceConfig struct {
	CacheTTL time.Duration
}

// DashboardServiceParams groups constructor dependencies. Cache is optional.
type DashboardServiceParams struct {
	Repo      dashboardRepository
	Users     credentialLookup
	Timezones *TimezoneResolver
	Cache     summaryCache
	Metrics   *MetricsService
	Logger    *zap.Logger
	Config    DashboardServiceConfig
}

// DashboardService composes the home screen summary.
type DashboardService struct {
	repo      dashboardRepository
	users     credentialLookup
	timezones *TimezoneResolver
	cache     summaryCache
	metrics   *MetricsService
	logger    *zap.Logger
	now       func() time.Time
	cfg       DashboardServiceConfig
}

// NewDashboardService constructs a DashboardService with sane defaults.
func NewDashboardService(params DashboardServiceParams) *DashboardService {
	cfg := params.Config
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = time.Minute
	}
	log := params.Logger
	if log == nil {
		log = zap.NewNop()
	}
	timezones := params.Timezones
	if timezones == nil {
		timezones = NewTimezoneResolver(log)
	}
	return &DashboardService{
		repo:      params.Repo,
		users:     params.Users,
		timezones: timezones,
		cache:     params.Cache,
		metrics:   params.Metrics,
		logger:    log,
		now:       time.Now,
		cfg:       cfg,
	}
}

// Summary returns the user's counters for today in their timezone and
// reports whether it was served from cache.
func (s *DashboardService) Summary(ctx context.Context, userID string) (*dto.DashboardSummaryResponse, bool, error) {
	cred, err := s.users.FindCredential(ctx, userID)
	if err != nil {
		return nil, false, userLookupError(err)
	}
	loc := s.timezones.Resolve(cred.Timezone)
	window := dashboardWindow(s.now(), loc)
	date := window.Today.Format(dateLayout)

	cacheKey := fmt.Sprintf("dashboard:%s:%s:%s", userID, loc.String(), date)
	if cached, hit := s.tryCache(ctx, cacheKey); hit {
		return cached, true, nil
	}

	summary, err := s.repo.Summary(ctx, userID, window)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load dashboard summary")
	}
	resp := &dto.DashboardSummaryResponse{DashboardSummary: *summary, Date: date, Timezone: loc.String()}
	s.persistCache(ctx, cacheKey, resp)
	return resp, false, nil
}

// dashboardWindow anchors today and the Monday-based week to now in loc.
func dashboardWindow(now time.Time, loc *time.Location) models.DashboardWindow {
	local := now.In(loc)
	y, m, d := local.Date()
	offset := (int(local.Weekday()) + 6) % 7
	weekStart := time.Date(y, m, d-offset, 0, 0, 0, 0, loc)
	return models.DashboardWindow{
		Today:     time.Date(y, m, d, 0, 0, 0, 0, time.UTC),
		WeekStart: weekStart,
		WeekEnd:   weekStart.AddDate(0, 0, 7),
	}
}

func (s *DashboardService) tryCache(ctx context.Context, key string) (*dto.DashboardSummaryResponse, bool) {
	if s.cache == nil {
		return nil, false
	}
	var cached dto.DashboardSummaryResponse
	err := s.cache.Get(ctx, key, &cached)
	if err == nil {
		s.metrics.RecordCacheLookup(true)
		return &cached, true
	}
	s.metrics.RecordCacheLookup(false)
	if !errors.Is(err, appErrors.ErrCacheMiss) {
		logger.WithContext(ctx, s.logger).Warn("dashboard cache read failed", zap.String("key", key), zap.Error(err))
	}
	return nil, false
}

func (s *DashboardService) persistCache(ctx context.Context, key string, value *dto.DashboardSummaryResponse) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, value, s.cfg.CacheTTL); err != nil {
		logger.WithContext(ctx, s.logger).Warn("dashboard cache write failed", zap.String("key", key), zap.Error(err))
	}
}
