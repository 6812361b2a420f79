package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-homework-api/internal/models"
	appErrors "github.com/noah-isme/sma-homework-api/pkg/errors"
)

type dashboardRepoStub struct {
	summary    models.DashboardSummary
	err        error
	calls      int
	lastWindow models.DashboardWindow
}

func (s *dashboardRepoStub) Summary(_ context.Context, _ string, window models.DashboardWindow) (*models.DashboardSummary, error) {
	s.calls++
	s.lastWindow = window
	if s.err != nil {
		return nil, s.err
	}
	summary := s.summary
	return &summary, nil
}

type summaryCacheStub struct {
	entries map[string][]byte
	getErr  error
	ttl     time.Duration
}

func newSummaryCacheStub() *summaryCacheStub {
	return &summaryCacheStub{entries: make(map[string][]byte)}
}

func (c *summaryCacheStub) Get(_ context.Context, key string, dest interface{}) error {
	if c.getErr != nil {
		return c.getErr
	}
	raw, ok := c.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (c *summaryCacheStub) Set(_ context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.entries[key] = raw
	c.ttl = ttl
	return nil
}

type dashboardHarness struct {
	svc     *DashboardService
	repo    *dashboardRepoStub
	cache   *summaryCacheStub
	metrics *MetricsService
}

func newDashboardHarness(timezone string) *dashboardHarness {
	repo := &dashboardRepoStub{summary: models.DashboardSummary{TotalClasses: 3, PendingHomework: 5, DueToday: 1, Overdue: 2, CompletedThisWeek: 4}}
	cache := newSummaryCacheStub()
	metrics := NewMetricsService()
	svc := NewDashboardService(DashboardServiceParams{
		Repo:    repo,
		Users:   &credentialStub{creds: map[string]*models.UserCredential{"user-1": connectedCredential(timezone)}},
		Cache:   cache,
		Metrics: metrics,
		Config:  DashboardServiceConfig{CacheTTL: 30 * time.Second},
	})
	// Friday 02:00 UTC is still Thursday evening in New York.
	svc.now = func() time.Time { return time.Date(2024, 3, 15, 2, 0, 0, 0, time.UTC) }
	return &dashboardHarness{svc: svc, repo: repo, cache: cache, metrics: metrics}
}

func TestDashboardSummaryUsesUserTimezone(t *testing.T) {
	h := newDashboardHarness("America/New_York")

	resp, hit, err := h.svc.Summary(context.Background(), "user-1")
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, "2024-03-14", resp.Date)
	assert.Equal(t, "America/New_York", resp.Timezone)
	assert.Equal(t, 5, resp.PendingHomework)
	assert.Equal(t, 4, resp.CompletedThisWeek)

	window := h.repo.lastWindow
	assert.Equal(t, time.Date(2024, 3, 14, 0, 0, 0, 0, time.UTC), window.Today)
	assert.Equal(t, "2024-03-11T00:00:00-04:00", window.WeekStart.Format(time.RFC3339))
	assert.Equal(t, "2024-03-18T00:00:00-04:00", window.WeekEnd.Format(time.RFC3339))
}

func TestDashboardSummaryWeekStartsMonday(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Jakarta")
	require.NoError(t, err)

	// Sunday evening belongs to the week that started six days earlier.
	window := dashboardWindow(time.Date(2024, 3, 17, 13, 0, 0, 0, time.UTC), loc)
	assert.Equal(t, time.Date(2024, 3, 17, 0, 0, 0, 0, time.UTC), window.Today)
	assert.Equal(t, "2024-03-11T00:00:00+07:00", window.WeekStart.Format(time.RFC3339))

	// Monday morning starts a new week.
	window = dashboardWindow(time.Date(2024, 3, 17, 18, 0, 0, 0, time.UTC), loc)
	assert.Equal(t, "2024-03-18T00:00:00+07:00", window.WeekStart.Format(time.RFC3339))
}

func TestDashboardSummaryServedFromCache(t *testing.T) {
	h := newDashboardHarness("UTC")

	first, hit, err := h.svc.Summary(context.Background(), "user-1")
	require.NoError(t, err)
	assert.False(t, hit)

	second, hit, err := h.svc.Summary(context.Background(), "user-1")
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, h.repo.calls)
	assert.Equal(t, 30*time.Second, h.cache.ttl)
	assert.Equal(t, float64(1), testutil.ToFloat64(h.metrics.cacheLookups.WithLabelValues("hit")))
	assert.Equal(t, float64(1), testutil.ToFloat64(h.metrics.cacheLookups.WithLabelValues("miss")))
}

func TestDashboardSummaryCacheFailureFallsThrough(t *testing.T) {
	h := newDashboardHarness("UTC")
	h.cache.getErr = errors.New("redis down")

	resp, hit, err := h.svc.Summary(context.Background(), "user-1")
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 3, resp.TotalClasses)
	assert.Equal(t, 1, h.repo.calls)
}

func TestDashboardSummaryErrors(t *testing.T) {
	h := newDashboardHarness("UTC")

	_, _, err := h.svc.Summary(context.Background(), "missing")
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))

	h.repo.err = errors.New("connection reset")
	_, _, err = h.svc.Summary(context.Background(), "user-1")
	assert.True(t, errors.Is(err, appErrors.ErrInternal))
}
