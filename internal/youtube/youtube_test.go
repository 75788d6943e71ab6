package youtube

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
	analyticsapi "google.golang.org/api/youtubeanalytics/v2"

	"ytmanager-backend-go/internal/models"
)

func TestAuthCodeURLCarriesRedirectStateAndOfflineConsent(t *testing.T) {
	o := NewOAuth()
	raw := o.AuthCodeURL(Credentials{ClientID: "client-1", ClientSecret: "s"}, "https://dash.example.com/oauth2callback", "flow-1")

	parsed, err := url.Parse(raw)
	require.NoError(t, err)
	q := parsed.Query()
	assert.Equal(t, "client-1", q.Get("client_id"))
	assert.Equal(t, "https://dash.example.com/oauth2callback", q.Get("redirect_uri"))
	assert.Equal(t, "flow-1", q.Get("state"))
	assert.Equal(t, "offline", q.Get("access_type"))
	assert.Equal(t, "consent", q.Get("prompt"))
	assert.Contains(t, q.Get("scope"), "yt-analytics-monetary.readonly")
	assert.Contains(t, q.Get("scope"), "userinfo.email")
}

func tokenServer(t *testing.T, seen *url.Values) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		*seen = r.PostForm
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"at-new","refresh_token":"rt-new","token_type":"Bearer","expires_in":3600}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestExchangeSendsTheGivenRedirectURI(t *testing.T) {
	var form url.Values
	srv := tokenServer(t, &form)
	o := &OAuth{Endpoint: oauth2.Endpoint{TokenURL: srv.URL, AuthStyle: oauth2.AuthStyleInParams}}

	tok, err := o.Exchange(context.Background(), Credentials{ClientID: "c", ClientSecret: "s"}, "https://x.example.com/cb", "code-1")
	require.NoError(t, err)
	assert.Equal(t, "at-new", tok.AccessToken)
	assert.Equal(t, "rt-new", tok.RefreshToken)
	assert.Equal(t, "authorization_code", form.Get("grant_type"))
	assert.Equal(t, "https://x.example.com/cb", form.Get("redirect_uri"))
	assert.Equal(t, "code-1", form.Get("code"))
}

func TestRefreshUsesRefreshTokenGrant(t *testing.T) {
	var form url.Values
	srv := tokenServer(t, &form)
	o := &OAuth{Endpoint: oauth2.Endpoint{TokenURL: srv.URL, AuthStyle: oauth2.AuthStyleInParams}}

	tok, err := o.Refresh(context.Background(), Credentials{ClientID: "c", ClientSecret: "s"}, "rt-old")
	require.NoError(t, err)
	assert.Equal(t, "at-new", tok.AccessToken)
	assert.Equal(t, "refresh_token", form.Get("grant_type"))
	assert.Equal(t, "rt-old", form.Get("refresh_token"))
	assert.True(t, tok.Expiry.After(time.Now()))
}

func TestReportQueryMetricsAndKey(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC)
	monetized := ReportQuery{ChannelID: "UC1", Start: start, End: end, Monetized: true}
	plain := ReportQuery{ChannelID: "UC1", Start: start, End: end}

	assert.Equal(t, "estimatedRevenue,views", monetized.Metrics())
	assert.Equal(t, "views", plain.Metrics())
	assert.NotEqual(t, monetized.Key(), plain.Key())
	assert.Equal(t, "yt:analytics:UC1::views:2025-01-01:2025-01-31", plain.Key())
}

func TestParseReportMapsColumnsByName(t *testing.T) {
	resp := &analyticsapi.QueryResponse{
		ColumnHeaders: []*analyticsapi.ResultTableColumnHeader{
			{Name: "day"}, {Name: "estimatedRevenue"}, {Name: "views"},
		},
		Rows: [][]interface{}{
			{"2025-01-01", 12.5, float64(300)},
			{"2025-01-02", 0.25, float64(10)},
		},
	}

	rows, err := parseReport("UC1", resp)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "UC1", rows[0].ChannelID)
	assert.True(t, rows[0].Revenue.Equal(decimal.RequireFromString("12.5")))
	assert.Equal(t, int64(300), rows[0].Views)
	assert.Equal(t, time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC), rows[1].Day)
}

func TestParseReportViewsOnly(t *testing.T) {
	resp := &analyticsapi.QueryResponse{
		ColumnHeaders: []*analyticsapi.ResultTableColumnHeader{{Name: "day"}, {Name: "views"}},
		Rows:          [][]interface{}{{"2025-02-01", float64(42)}},
	}
	rows, err := parseReport("UC2", resp)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.True(t, rows[0].Revenue.IsZero())
	assert.Equal(t, int64(42), rows[0].Views)
}

type memoryCache struct {
	mu      sync.Mutex
	items   map[string][]byte
	failGet bool
}

func (m *memoryCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failGet {
		return nil, false, errors.New("redis down")
	}
	data, ok := m.items[key]
	return data, ok, nil
}

func (m *memoryCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[key] = value
	return nil
}

type countingReporter struct {
	calls int
	rows  []models.AnalyticsDailyRow
}

func (c *countingReporter) Report(context.Context, string, ReportQuery) ([]models.AnalyticsDailyRow, error) {
	c.calls++
	return c.rows, nil
}

func TestCachedAnalyticsServesRepeatsFromCache(t *testing.T) {
	day := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	next := &countingReporter{rows: []models.AnalyticsDailyRow{{ChannelID: "UC1", Day: day, Revenue: decimal.NewFromInt(5), Views: 7}}}
	cached := &CachedAnalytics{Next: next, Cache: &memoryCache{items: map[string][]byte{}}, TTL: time.Minute, Logger: zerolog.Nop()}
	q := ReportQuery{ChannelID: "UC1", Start: day, End: day, Monetized: true}

	first, err := cached.Report(context.Background(), "tok", q)
	require.NoError(t, err)
	second, err := cached.Report(context.Background(), "tok", q)
	require.NoError(t, err)

	assert.Equal(t, 1, next.calls)
	require.Len(t, second, 1)
	assert.True(t, first[0].Revenue.Equal(second[0].Revenue))
	assert.Equal(t, int64(7), second[0].Views)
	assert.True(t, second[0].Day.Equal(day))
}

func TestCachedAnalyticsFallsThroughOnCacheError(t *testing.T) {
	next := &countingReporter{}
	cached := &CachedAnalytics{Next: next, Cache: &memoryCache{items: map[string][]byte{}, failGet: true}, TTL: time.Minute, Logger: zerolog.Nop()}

	_, err := cached.Report(context.Background(), "tok", ReportQuery{ChannelID: "UC1"})
	require.NoError(t, err)
	_, err = cached.Report(context.Background(), "tok", ReportQuery{ChannelID: "UC1"})
	require.NoError(t, err)
	assert.Equal(t, 2, next.calls)
}
