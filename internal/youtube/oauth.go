package youtube

import (
	"context"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	oauth2api "google.golang.org/api/oauth2/v2"
	analyticsapi "google.golang.org/api/youtubeanalytics/v2"
	youtubeapi "google.golang.org/api/youtube/v3"
)

// Scopes requested when linking an account.
var Scopes = []string{
	youtubeapi.YoutubeReadonlyScope,
	youtubeapi.YoutubeUploadScope,
	youtubeapi.YoutubeForceSslScope,
	analyticsapi.YtAnalyticsReadonlyScope,
	analyticsapi.YtAnalyticsMonetaryReadonlyScope,
	oauth2api.UserinfoEmailScope,
}

type Credentials struct {
	ClientID     string
	ClientSecret string
}

func (c Credentials) Valid() bool {
	return c.ClientID != "" && c.ClientSecret != ""
}

// OAuth talks to the Google token endpoint. Client credentials are passed
// per call because administrators can change them at runtime.
type OAuth struct {
	Endpoint   oauth2.Endpoint
	HTTPClient *http.Client
}

func NewOAuth() *OAuth {
	return &OAuth{Endpoint: google.Endpoint}
}

func (o *OAuth) config(creds Credentials, redirectURI string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		Endpoint:     o.Endpoint,
		RedirectURL:  redirectURI,
		Scopes:       Scopes,
	}
}

func (o *OAuth) context(ctx context.Context) context.Context {
	if o.HTTPClient == nil {
		return ctx
	}
	return context.WithValue(ctx, oauth2.HTTPClient, o.HTTPClient)
}

// AuthCodeURL requests offline access and forces the consent screen so a
// refresh token is always returned.
func (o *OAuth) AuthCodeURL(creds Credentials, redirectURI, state string) string {
	return o.config(creds, redirectURI).AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

func (o *OAuth) Exchange(ctx context.Context, creds Credentials, redirectURI, code string) (*oauth2.Token, error) {
	return o.config(creds, redirectURI).Exchange(o.context(ctx), code)
}

func (o *OAuth) Refresh(ctx context.Context, creds Credentials, refreshToken string) (*oauth2.Token, error) {
	source := o.config(creds, "").TokenSource(o.context(ctx), &oauth2.Token{RefreshToken: refreshToken})
	return source.Token()
}
