package gcalendar

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/noah-isme/sma-homework-api/internal/models"
	appErrors "github.com/noah-isme/sma-homework-api/pkg/errors"
)

// Operation names accepted by MemoryClient.FailNext and Calls.
const (
	OpInsert = "insert"
	OpGet    = "get"
	OpUpdate = "update"
	OpDelete = "delete"
)

// MemoryClient keeps events in process. It backs local development without
// Google credentials and the synchronisation tests.
type MemoryClient struct {
	mu       sync.Mutex
	seq      int
	latency  time.Duration
	events   map[string]models.EventSnapshot
	failures map[string][]error
	calls    map[string]int
}

// NewMemoryClient returns an empty in-memory calendar.
func NewMemoryClient() *MemoryClient {
	return &MemoryClient{
		events:   make(map[string]models.EventSnapshot),
		failures: make(map[string][]error),
		calls:    make(map[string]int),
	}
}

// FailNext queues err to be returned by the next call of op.
func (m *MemoryClient) FailNext(op string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[op] = append(m.failures[op], err)
}

// SetLatency delays every call, honouring context cancellation.
func (m *MemoryClient) SetLatency(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.latency = d
}

// Calls returns how many times op was invoked.
func (m *MemoryClient) Calls(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[op]
}

// Event returns a stored event.
func (m *MemoryClient) Event(id string) (models.EventSnapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ev, ok := m.events[id]
	return ev, ok
}

// Len returns the number of live events.
func (m *MemoryClient) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.events)
}

// Remove deletes an event out of band, as a user would in the Google UI.
func (m *MemoryClient) Remove(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.events, id)
}

// Cancel marks an event cancelled without removing it, matching how Google
// still serves deleted events by id.
func (m *MemoryClient) Cancel(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ev, ok := m.events[id]; ok {
		ev.Status = models.RemoteEventCancelled
		m.events[id] = ev
	}
}

func (m *MemoryClient) Insert(ctx context.Context, cred *models.UserCredential, payload models.EventPayload) (string, error) {
	if err := m.begin(ctx, OpInsert, cred); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	id := fmt.Sprintf("evt%d", m.seq)
	m.events[id] = snapshotFrom(id, payload)
	return id, nil
}

func (m *MemoryClient) Get(ctx context.Context, cred *models.UserCredential, eventID string) (*models.EventSnapshot, error) {
	if err := m.begin(ctx, OpGet, cred); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	ev, ok := m.events[eventID]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrRemoteNotFound, "event "+eventID+" not found")
	}
	return &ev, nil
}

func (m *MemoryClient) Update(ctx context.Context, cred *models.UserCredential, eventID string, payload models.EventPayload) error {
	if err := m.begin(ctx, OpUpdate, cred); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	ev, ok := m.events[eventID]
	if !ok || ev.Cancelled() {
		return appErrors.Clone(appErrors.ErrRemoteNotFound, "event "+eventID+" not found")
	}
	m.events[eventID] = snapshotFrom(eventID, payload)
	return nil
}

func (m *MemoryClient) Delete(ctx context.Context, cred *models.UserCredential, eventID string) error {
	if err := m.begin(ctx, OpDelete, cred); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	ev, ok := m.events[eventID]
	if !ok || ev.Cancelled() {
		return appErrors.Clone(appErrors.ErrRemoteNotFound, "event "+eventID+" not found")
	}
	delete(m.events, eventID)
	return nil
}

func (m *MemoryClient) begin(ctx context.Context, op string, cred *models.UserCredential) error {
	m.mu.Lock()
	m.calls[op]++
	latency := m.latency
	var injected error
	if queue := m.failures[op]; len(queue) > 0 {
		injected = queue[0]
		m.failures[op] = queue[1:]
	}
	m.mu.Unlock()

	if latency > 0 {
		timer := time.NewTimer(latency)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return appErrors.WrapAs(appErrors.ErrRemoteCalendar, ctx.Err(), "calendar "+op+" timed out")
		case <-timer.C:
		}
	}
	if err := ctx.Err(); err != nil {
		return appErrors.WrapAs(appErrors.ErrRemoteCalendar, err, "calendar "+op+" aborted")
	}
	if !cred.Connected() {
		return appErrors.ErrCalendarNotConnected
	}
	return injected
}

func snapshotFrom(id string, p models.EventPayload) models.EventSnapshot {
	return models.EventSnapshot{
		ID:          id,
		Summary:     p.Summary,
		Description: p.Description,
		Start:       p.Start,
		End:         p.End,
		TimeZone:    p.TimeZone,
		Status:      "confirmed",
	}
}
