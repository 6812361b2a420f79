package gcalendar

import (
	"context"
	"net/http"

	"golang.org/x/oauth2"
	"google.golang.org/api/calendar/v3"
	oauth2api "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"

	"github.com/noah-isme/sma-homework-api/internal/models"
	appErrors "github.com/noah-isme/sma-homework-api/pkg/errors"
)

// OAuthProvider runs the Google consent flow that grants calendar access.
type OAuthProvider struct {
	config           *oauth2.Config
	httpClient       *http.Client
	userInfoEndpoint string
}

// NewOAuthProvider constructs the provider requesting calendar and profile scopes.
func NewOAuthProvider(cfg Config) *OAuthProvider {
	return &OAuthProvider{
		config: cfg.oauthConfig(
			calendar.CalendarEventsScope,
			oauth2api.UserinfoEmailScope,
			oauth2api.UserinfoProfileScope,
		),
		httpClient:       cfg.HTTPClient,
		userInfoEndpoint: cfg.UserInfoEndpoint,
	}
}

// AuthCodeURL returns the consent URL. Offline access with forced approval
// makes Google return a refresh token on every connect.
func (p *OAuthProvider) AuthCodeURL(state string) string {
	return p.config.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

// Exchange trades the authorization code for tokens and loads the profile.
func (p *OAuthProvider) Exchange(ctx context.Context, code string) (*models.GoogleToken, *models.GoogleIdentity, error) {
	if p.httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)
	}
	tok, err := p.config.Exchange(ctx, code)
	if err != nil {
		return nil, nil, appErrors.WrapAs(appErrors.ErrOAuthExchange, err, "")
	}

	opts := []option.ClientOption{option.WithHTTPClient(p.config.Client(ctx, tok))}
	if p.userInfoEndpoint != "" {
		opts = append(opts, option.WithEndpoint(p.userInfoEndpoint))
	}
	svc, err := oauth2api.NewService(ctx, opts...)
	if err != nil {
		return nil, nil, appErrors.WrapAs(appErrors.ErrOAuthExchange, err, "failed to create userinfo service")
	}
	info, err := svc.Userinfo.Get().Context(ctx).Do()
	if err != nil {
		return nil, nil, appErrors.WrapAs(appErrors.ErrOAuthExchange, err, "failed to load google profile")
	}

	return &models.GoogleToken{
			AccessToken:  tok.AccessToken,
			RefreshToken: tok.RefreshToken,
			Expiry:       tok.Expiry,
		}, &models.GoogleIdentity{
			Subject:   info.Id,
			Email:     info.Email,
			Name:      info.Name,
			AvatarURL: info.Picture,
		}, nil
}
