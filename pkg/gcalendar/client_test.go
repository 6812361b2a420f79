package gcalendar

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-homework-api/internal/models"
	appErrors "github.com/noah-isme/sma-homework-api/pkg/errors"
)

type fakeGoogle struct {
	mu       sync.Mutex
	requests []*recordedRequest
	status   int
	event    map[string]interface{}
}

type recordedRequest struct {
	Method string
	Path   string
	Auth   string
	Body   map[string]interface{}
}

func (f *fakeGoogle) handler(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		rec := &recordedRequest{Method: r.Method, Path: r.URL.Path, Auth: r.Header.Get("Authorization")}
		if len(body) > 0 && strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
			require.NoError(t, json.Unmarshal(body, &rec.Body))
		}
		f.mu.Lock()
		f.requests = append(f.requests, rec)
		status, event := f.status, f.event
		f.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.URL.Path == "/token":
			_, _ = io.WriteString(w, `{"access_token":"fresh-token","token_type":"Bearer","refresh_token":"refresh-2","expires_in":3600}`)
			return
		case r.URL.Path == "/oauth2/v2/userinfo":
			_, _ = io.WriteString(w, `{"id":"google-sub","email":"student@example.com","name":"Student","picture":"https://example.com/a.png"}`)
			return
		}
		if status != 0 {
			w.WriteHeader(status)
			_, _ = io.WriteString(w, `{"error":{"code":`+strconv.Itoa(status)+`,"message":"fake"}}`)
			return
		}
		if r.Method == http.MethodDelete {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		if event == nil {
			event = map[string]interface{}{"id": "evt-123", "status": "confirmed"}
		}
		_ = json.NewEncoder(w).Encode(event)
	})
}

func (f *fakeGoogle) last() *recordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.requests) == 0 {
		return nil
	}
	return f.requests[len(f.requests)-1]
}

func newTestClient(t *testing.T, fake *fakeGoogle) *GoogleClient {
	t.Helper()
	srv := httptest.NewServer(fake.handler(t))
	t.Cleanup(srv.Close)
	return NewGoogleClient(Config{
		ClientID:        "client",
		ClientSecret:    "secret",
		Endpoint:        srv.URL + "/",
		TokenURL:        srv.URL + "/token",
		HTTPClient:      srv.Client(),
		RateLimitPerMin: 6000,
	})
}

func liveCredential() *models.UserCredential {
	access := "access-1"
	refresh := "refresh-1"
	expiry := time.Now().Add(time.Hour)
	return &models.UserCredential{UserID: "user-1", AccessToken: &access, RefreshToken: &refresh, TokenExpiry: &expiry}
}

func samplePayload() models.EventPayload {
	loc, _ := time.LoadLocation("Asia/Jakarta")
	due := time.Date(2026, 3, 10, 23, 59, 0, 0, loc)
	return models.EventPayload{
		Summary:     "Homework: Algebra",
		Description: "Class: Math\nDescription: Exercises\nPriority: high",
		Start:       due.Add(-time.Hour),
		End:         due,
		TimeZone:    "Asia/Jakarta",
		Reminders:   []models.EventReminder{{Method: "email", Minutes: 1440}, {Method: "popup", Minutes: 60}},
	}
}

func TestGoogleClientInsertSendsPayload(t *testing.T) {
	fake := &fakeGoogle{}
	client := newTestClient(t, fake)

	id, err := client.Insert(context.Background(), liveCredential(), samplePayload())
	require.NoError(t, err)
	assert.Equal(t, "evt-123", id)

	req := fake.last()
	require.NotNil(t, req)
	assert.Equal(t, http.MethodPost, req.Method)
	assert.True(t, strings.HasSuffix(req.Path, "/calendars/primary/events"), req.Path)
	assert.Equal(t, "Bearer access-1", req.Auth)
	assert.Equal(t, "Homework: Algebra", req.Body["summary"])

	start := req.Body["start"].(map[string]interface{})
	assert.Equal(t, "2026-03-10T22:59:00+07:00", start["dateTime"])
	assert.Equal(t, "Asia/Jakarta", start["timeZone"])

	reminders := req.Body["reminders"].(map[string]interface{})
	assert.Equal(t, false, reminders["useDefault"])
	assert.Len(t, reminders["overrides"], 2)
}

func TestGoogleClientUpdateUsesPatch(t *testing.T) {
	fake := &fakeGoogle{}
	client := newTestClient(t, fake)

	require.NoError(t, client.Update(context.Background(), liveCredential(), "evt-123", samplePayload()))

	req := fake.last()
	assert.Equal(t, http.MethodPatch, req.Method)
	assert.True(t, strings.HasSuffix(req.Path, "/calendars/primary/events/evt-123"), req.Path)
}

func TestGoogleClientGetParsesSnapshot(t *testing.T) {
	fake := &fakeGoogle{event: map[string]interface{}{
		"id":      "evt-123",
		"status":  "cancelled",
		"summary": "Homework: Algebra",
		"start":   map[string]string{"dateTime": "2026-03-10T22:59:00+07:00", "timeZone": "Asia/Jakarta"},
		"end":     map[string]string{"dateTime": "2026-03-10T23:59:00+07:00", "timeZone": "Asia/Jakarta"},
	}}
	client := newTestClient(t, fake)

	snap, err := client.Get(context.Background(), liveCredential(), "evt-123")
	require.NoError(t, err)
	assert.True(t, snap.Cancelled())
	assert.Equal(t, "Asia/Jakarta", snap.TimeZone)
	assert.True(t, snap.End.Equal(samplePayload().End))
}

func TestGoogleClientMapsNotFoundAndGone(t *testing.T) {
	for _, status := range []int{http.StatusNotFound, http.StatusGone} {
		fake := &fakeGoogle{status: status}
		client := newTestClient(t, fake)

		err := client.Delete(context.Background(), liveCredential(), "evt-404")
		require.Error(t, err)
		assert.True(t, errors.Is(err, appErrors.ErrRemoteNotFound), "status %d", status)
	}
}

func TestGoogleClientMapsServerErrors(t *testing.T) {
	fake := &fakeGoogle{status: http.StatusForbidden}
	client := newTestClient(t, fake)

	_, err := client.Insert(context.Background(), liveCredential(), samplePayload())
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrRemoteCalendar))
	assert.False(t, errors.Is(err, appErrors.ErrRemoteNotFound))
}

func TestGoogleClientRequiresConnection(t *testing.T) {
	fake := &fakeGoogle{}
	client := newTestClient(t, fake)

	_, err := client.Insert(context.Background(), &models.UserCredential{UserID: "user-1"}, samplePayload())
	assert.True(t, errors.Is(err, appErrors.ErrCalendarNotConnected))
	assert.Nil(t, fake.last())
}

func TestGoogleClientRefreshesExpiredToken(t *testing.T) {
	fake := &fakeGoogle{}
	client := newTestClient(t, fake)

	cred := liveCredential()
	expired := time.Now().Add(-time.Hour)
	cred.TokenExpiry = &expired

	_, err := client.Insert(context.Background(), cred, samplePayload())
	require.NoError(t, err)

	fake.mu.Lock()
	defer fake.mu.Unlock()
	require.Len(t, fake.requests, 2)
	assert.Equal(t, "/token", fake.requests[0].Path)
	assert.Equal(t, "Bearer fresh-token", fake.requests[1].Auth)
}

func TestOAuthProviderExchange(t *testing.T) {
	fake := &fakeGoogle{}
	srv := httptest.NewServer(fake.handler(t))
	defer srv.Close()

	provider := NewOAuthProvider(Config{
		ClientID:         "client",
		ClientSecret:     "secret",
		RedirectURL:      "http://localhost:3000/auth/callback",
		TokenURL:         srv.URL + "/token",
		UserInfoEndpoint: srv.URL + "/",
		HTTPClient:       srv.Client(),
	})

	url := provider.AuthCodeURL("state-1")
	assert.Contains(t, url, "access_type=offline")
	assert.Contains(t, url, "prompt=consent")
	assert.Contains(t, url, "state=state-1")

	tok, identity, err := provider.Exchange(context.Background(), "code-1")
	require.NoError(t, err)
	assert.Equal(t, "fresh-token", tok.AccessToken)
	assert.Equal(t, "refresh-2", tok.RefreshToken)
	assert.Equal(t, "student@example.com", identity.Email)
	assert.Equal(t, "google-sub", identity.Subject)
}
