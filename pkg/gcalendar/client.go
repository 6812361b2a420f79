// Package gcalendar adapts Google Calendar v3 to the per-user event
// operations used by homework synchronisation.
package gcalendar

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"golang.org/x/time/rate"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/noah-isme/sma-homework-api/internal/models"
	appErrors "github.com/noah-isme/sma-homework-api/pkg/errors"
)

const (
	// DefaultCalendarID targets the user's primary calendar.
	DefaultCalendarID = "primary"

	defaultRatePerMinute = 120
	limiterBurst         = 10
)

// Config configures the Google adapters.
type Config struct {
	ClientID        string
	ClientSecret    string
	RedirectURL     string
	CalendarID      string
	Endpoint        string
	RateLimitPerMin int

	// HTTPClient is the base client used for API and token refresh calls.
	HTTPClient *http.Client
	// TokenURL and UserInfoEndpoint override Google endpoints in tests.
	TokenURL         string
	UserInfoEndpoint string
}

func (c Config) oauthConfig(scopes ...string) *oauth2.Config {
	endpoint := google.Endpoint
	if c.TokenURL != "" {
		endpoint.TokenURL = c.TokenURL
	}
	return &oauth2.Config{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		RedirectURL:  c.RedirectURL,
		Scopes:       scopes,
		Endpoint:     endpoint,
	}
}

// GoogleClient performs event calls on behalf of individual users, building
// an authorised calendar service from each user's stored tokens.
type GoogleClient struct {
	oauth      *oauth2.Config
	calendarID string
	endpoint   string
	httpClient *http.Client
	perMinute  int

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewGoogleClient constructs the adapter.
func NewGoogleClient(cfg Config) *GoogleClient {
	calendarID := cfg.CalendarID
	if calendarID == "" {
		calendarID = DefaultCalendarID
	}
	perMinute := cfg.RateLimitPerMin
	if perMinute <= 0 {
		perMinute = defaultRatePerMinute
	}
	return &GoogleClient{
		oauth:      cfg.oauthConfig(calendar.CalendarEventsScope),
		calendarID: calendarID,
		endpoint:   cfg.Endpoint,
		httpClient: cfg.HTTPClient,
		perMinute:  perMinute,
		limiters:   make(map[string]*rate.Limiter),
	}
}

// Insert creates the event and returns its remote id.
func (c *GoogleClient) Insert(ctx context.Context, cred *models.UserCredential, payload models.EventPayload) (string, error) {
	svc, err := c.service(ctx, cred)
	if err != nil {
		return "", err
	}
	created, err := svc.Events.Insert(c.calendarID, toEvent(payload)).Context(ctx).Do()
	if err != nil {
		return "", mapError("insert", err)
	}
	return created.Id, nil
}

// Get fetches the current state of an event.
func (c *GoogleClient) Get(ctx context.Context, cred *models.UserCredential, eventID string) (*models.EventSnapshot, error) {
	svc, err := c.service(ctx, cred)
	if err != nil {
		return nil, err
	}
	ev, err := svc.Events.Get(c.calendarID, eventID).Context(ctx).Do()
	if err != nil {
		return nil, mapError("get", err)
	}
	return toSnapshot(ev), nil
}

// Update patches title, description, window and reminders, leaving any
// fields the user edited in Google (location, attendees, colour) intact.
func (c *GoogleClient) Update(ctx context.Context, cred *models.UserCredential, eventID string, payload models.EventPayload) error {
	svc, err := c.service(ctx, cred)
	if err != nil {
		return err
	}
	if _, err := svc.Events.Patch(c.calendarID, eventID, toEvent(payload)).Context(ctx).Do(); err != nil {
		return mapError("update", err)
	}
	return nil
}

// Delete removes the event. A missing event surfaces as ErrRemoteNotFound.
func (c *GoogleClient) Delete(ctx context.Context, cred *models.UserCredential, eventID string) error {
	svc, err := c.service(ctx, cred)
	if err != nil {
		return err
	}
	if err := svc.Events.Delete(c.calendarID, eventID).Context(ctx).Do(); err != nil {
		return mapError("delete", err)
	}
	return nil
}

func (c *GoogleClient) service(ctx context.Context, cred *models.UserCredential) (*calendar.Service, error) {
	if !cred.Connected() {
		return nil, appErrors.ErrCalendarNotConnected
	}
	if err := c.limiter(cred.UserID).Wait(ctx); err != nil {
		return nil, appErrors.WrapAs(appErrors.ErrRemoteCalendar, err, "calendar rate limit wait aborted")
	}

	tok := &oauth2.Token{AccessToken: *cred.AccessToken, TokenType: "Bearer"}
	if cred.RefreshToken != nil {
		tok.RefreshToken = *cred.RefreshToken
	}
	if cred.TokenExpiry != nil {
		tok.Expiry = *cred.TokenExpiry
	}

	if c.httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	}
	opts := []option.ClientOption{option.WithHTTPClient(c.oauth.Client(ctx, tok))}
	if c.endpoint != "" {
		opts = append(opts, option.WithEndpoint(c.endpoint))
	}
	svc, err := calendar.NewService(ctx, opts...)
	if err != nil {
		return nil, appErrors.WrapAs(appErrors.ErrRemoteCalendar, err, "failed to create calendar service")
	}
	return svc, nil
}

func (c *GoogleClient) limiter(userID string) *rate.Limiter {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.limiters[userID]
	if !ok {
		l = rate.NewLimiter(rate.Limit(float64(c.perMinute)/60.0), limiterBurst)
		c.limiters[userID] = l
	}
	return l
}

func toEvent(p models.EventPayload) *calendar.Event {
	reminders := &calendar.EventReminders{
		UseDefault:      p.UseDefaultReminders,
		ForceSendFields: []string{"UseDefault"},
	}
	for _, r := range p.Reminders {
		reminders.Overrides = append(reminders.Overrides, &calendar.EventReminder{Method: r.Method, Minutes: r.Minutes})
	}
	return &calendar.Event{
		Summary:     p.Summary,
		Description: p.Description,
		Start: &calendar.EventDateTime{
			DateTime: p.Start.Format(time.RFC3339),
			TimeZone: p.TimeZone,
		},
		End: &calendar.EventDateTime{
			DateTime: p.End.Format(time.RFC3339),
			TimeZone: p.TimeZone,
		},
		Reminders: reminders,
	}
}

func toSnapshot(ev *calendar.Event) *models.EventSnapshot {
	snap := &models.EventSnapshot{
		ID:          ev.Id,
		Summary:     ev.Summary,
		Description: ev.Description,
		Status:      ev.Status,
	}
	if ev.Start != nil {
		snap.Start = parseDateTime(ev.Start.DateTime)
		snap.TimeZone = ev.Start.TimeZone
	}
	if ev.End != nil {
		snap.End = parseDateTime(ev.End.DateTime)
	}
	return snap
}

func parseDateTime(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}
	}
	return t
}

func mapError(op string, err error) error {
	var gErr *googleapi.Error
	if errors.As(err, &gErr) && (gErr.Code == http.StatusNotFound || gErr.Code == http.StatusGone) {
		return appErrors.WrapAs(appErrors.ErrRemoteNotFound, err, "")
	}
	return appErrors.WrapAs(appErrors.ErrRemoteCalendar, err, fmt.Sprintf("calendar %s failed", op))
}
