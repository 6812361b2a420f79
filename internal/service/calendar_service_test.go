package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-homework-api/internal/models"
	"github.com/noah-isme/sma-homework-api/internal/repository"
	"github.com/noah-isme/sma-homework-api/pkg/config"
	appErrors "github.com/noah-isme/sma-homework-api/pkg/errors"
	"github.com/noah-isme/sma-homework-api/pkg/gcalendar"
)

type calendarHomeworkStub struct {
	*homeworkRepoStub
}

func (s calendarHomeworkStub) CountSyncState(_ context.Context, userID string) (*repository.SyncCounts, error) {
	counts := &repository.SyncCounts{}
	for _, hw := range s.items {
		if hw.UserID != userID {
			continue
		}
		counts.Total++
		if s.links.link(hw.ID) != nil {
			counts.Linked++
		} else if !hw.IsCompleted() {
			counts.Unlinked++
		}
	}
	return counts, nil
}

type calendarHarness struct {
	svc    *CalendarService
	repo   *homeworkRepoStub
	links  *linkStoreStub
	client *gcalendar.MemoryClient
	users  *credentialStub
	locker *repository.MemoryRecordLocker
}

func newCalendarHarness(enabled bool) *calendarHarness {
	links := newLinkStoreStub()
	client := gcalendar.NewMemoryClient()
	syncSvc := NewCalendarSyncService(client, links, nil, nil, nil, CalendarSyncConfig{CompletionPolicy: config.CompletionDelete}, nil)
	repo := newHomeworkRepoStub(links)
	users := &credentialStub{creds: map[string]*models.UserCredential{"user-1": connectedCredential("UTC")}}
	locker := repository.NewMemoryRecordLocker()
	svc := NewCalendarService(calendarHomeworkStub{repo}, users, syncSvc, locker, CalendarServiceConfig{Enabled: enabled}, nil)
	return &calendarHarness{svc: svc, repo: repo, links: links, client: client, users: users, locker: locker}
}

func seedHomework(repo *homeworkRepoStub, id string, status models.HomeworkStatus) {
	hw := *algebraHomework()
	hw.ID = id
	hw.Status = status
	repo.items[id] = hw
}

func TestCalendarSyncAllLinksOpenHomework(t *testing.T) {
	h := newCalendarHarness(true)
	seedHomework(h.repo, "hw-1", models.HomeworkPending)
	seedHomework(h.repo, "hw-2", models.HomeworkInProgress)
	seedHomework(h.repo, "hw-3", models.HomeworkCompleted)
	h.links.seed("hw-2", "existing")

	resp, err := h.svc.SyncAll(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, 1, resp.TotalHomework)
	assert.Equal(t, 1, resp.SyncedCount)
	assert.Empty(t, resp.Failures)
	assert.Equal(t, "evt1", *h.links.link("hw-1"))
	assert.Nil(t, h.links.link("hw-3"))
}

func TestCalendarSyncAllReportsFailures(t *testing.T) {
	h := newCalendarHarness(true)
	seedHomework(h.repo, "hw-1", models.HomeworkPending)
	seedHomework(h.repo, "hw-2", models.HomeworkPending)
	h.client.FailNext(gcalendar.OpInsert, appErrors.Clone(appErrors.ErrRemoteCalendar, "rate limited"))
	_, err := h.locker.Acquire(context.Background(), "hw-2", time.Minute)
	require.NoError(t, err)

	resp, err := h.svc.SyncAll(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, 2, resp.TotalHomework)
	assert.Zero(t, resp.SyncedCount)
	require.Len(t, resp.Failures, 2)

	kinds := map[string]models.SyncErrorKind{}
	for _, f := range resp.Failures {
		kinds[f.HomeworkID] = f.ErrorKind
	}
	assert.Equal(t, models.SyncErrRemote, kinds["hw-1"])
	assert.Equal(t, models.SyncErrRecordLocked, kinds["hw-2"])
}

func TestCalendarSyncAllRequiresConnection(t *testing.T) {
	h := newCalendarHarness(true)
	h.users.creds["user-1"] = &models.UserCredential{UserID: "user-1"}

	_, err := h.svc.SyncAll(context.Background(), "user-1")
	assert.True(t, errors.Is(err, appErrors.ErrCalendarNotConnected))

	disabled := newCalendarHarness(false)
	_, err = disabled.svc.SyncAll(context.Background(), "user-1")
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestCalendarSyncOne(t *testing.T) {
	h := newCalendarHarness(true)
	seedHomework(h.repo, "hw-1", models.HomeworkPending)

	resp, err := h.svc.SyncOne(context.Background(), "user-1", "hw-1")
	require.NoError(t, err)
	assert.Equal(t, "evt1", resp.EventID)
	assert.Equal(t, models.SyncCreated, resp.Result.Status)

	resp, err = h.svc.SyncOne(context.Background(), "user-1", "hw-1")
	require.NoError(t, err)
	assert.Equal(t, models.SyncUpdated, resp.Result.Status)

	_, err = h.svc.SyncOne(context.Background(), "user-1", "missing")
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestCalendarSyncOneMapsRemoteFailure(t *testing.T) {
	h := newCalendarHarness(true)
	seedHomework(h.repo, "hw-1", models.HomeworkPending)
	h.client.FailNext(gcalendar.OpInsert, appErrors.Clone(appErrors.ErrRemoteCalendar, "unavailable"))

	_, err := h.svc.SyncOne(context.Background(), "user-1", "hw-1")
	assert.True(t, errors.Is(err, appErrors.ErrRemoteCalendar))
	assert.Nil(t, h.links.link("hw-1"))
}

func TestCalendarStatus(t *testing.T) {
	h := newCalendarHarness(true)
	seedHomework(h.repo, "hw-1", models.HomeworkPending)
	seedHomework(h.repo, "hw-2", models.HomeworkPending)
	h.links.seed("hw-2", "evt9")

	status, err := h.svc.Status(context.Background(), "user-1")
	require.NoError(t, err)
	assert.True(t, status.Connected)
	assert.Equal(t, 1, status.LinkedHomework)
	assert.Equal(t, 1, status.UnlinkedHomework)
	assert.Equal(t, "delete", status.CompletionPolicy)
}
