package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"ytmanager-backend-go/internal/logging"
	"ytmanager-backend-go/internal/metrics"
	"ytmanager-backend-go/internal/models"
	"ytmanager-backend-go/internal/youtube"
)

// AnalyticsService reports raw platform figures for the viewer's channels.
// No share rate is applied here.
type AnalyticsService struct {
	Staff       StaffStore
	Channels    ChannelStore
	Accounts    AccountStore
	System      SystemStore
	Tokens      *TokenGuard
	Source      AnalyticsSource
	Concurrency int
}

type DailyPoint struct {
	Day     time.Time       `json:"day"`
	Revenue decimal.Decimal `json:"revenue"`
	Views   int64           `json:"views"`
}

type ChannelStat struct {
	ChannelID string          `json:"channelId"`
	Name      string          `json:"name"`
	Monetized bool            `json:"monetized"`
	Revenue   decimal.Decimal `json:"revenue"`
	Views     int64           `json:"views"`
}

type OverviewSummary struct {
	TotalRevenue      decimal.Decimal `json:"totalRevenue"`
	TotalViews        int64           `json:"totalViews"`
	MonetizedChannels int             `json:"monetizedChannels"`
	TotalAccounts     int             `json:"totalAccounts"`
}

type AnalyticsOverview struct {
	Start          time.Time       `json:"start"`
	End            time.Time       `json:"end"`
	Daily          []DailyPoint    `json:"daily"`
	Channels       []ChannelStat   `json:"channels"`
	Summary        OverviewSummary `json:"summary"`
	FailedChannels []string        `json:"failedChannels"`
}

// scope is the linked, visible channel set of a viewer.
type scope struct {
	channels []models.Channel
	owner    map[string]models.GoogleAccount
	accounts []models.GoogleAccount
	creds    youtube.Credentials
}

func (a *AnalyticsService) scope(ctx context.Context, viewer models.StaffMember) (scope, error) {
	staff, err := a.Staff.ListStaff(ctx)
	if err != nil {
		return scope{}, WrapError(err, "list staff")
	}
	all, err := a.Channels.ListChannels(ctx)
	if err != nil {
		return scope{}, WrapError(err, "list channels")
	}
	accounts, err := a.Accounts.ListLinkedAccounts(ctx)
	if err != nil {
		return scope{}, WrapError(err, "list linked accounts")
	}
	cfg, err := a.System.SystemConfig(ctx)
	if err != nil {
		logging.Logger.Warn().Err(err).Msg("system config unavailable, token refresh disabled")
	}
	sc := scope{owner: map[string]models.GoogleAccount{}, accounts: accounts, creds: credentialsOf(cfg)}
	for _, account := range accounts {
		for _, id := range account.OwnedChannelIDs {
			sc.owner[id] = account
		}
	}
	sc.channels = VisibleChannels(viewer, staff, all)
	return sc, nil
}

func (a *AnalyticsService) token(ctx context.Context, account models.GoogleAccount, creds youtube.Credentials) string {
	if a.Tokens == nil {
		return account.AccessToken
	}
	return a.Tokens.EnsureFresh(ctx, account, creds)
}

// Overview fetches daily rows for every visible linked channel over the
// window's date range and merges them. Failing channels are skipped.
func (a *AnalyticsService) Overview(ctx context.Context, viewer models.StaffMember, window Window) (AnalyticsOverview, error) {
	if err := window.Validate(); err != nil {
		return AnalyticsOverview{}, err
	}
	sc, err := a.scope(ctx, viewer)
	if err != nil {
		return AnalyticsOverview{}, err
	}
	start, end := window.DateRange()
	overview := AnalyticsOverview{
		Start:          start,
		End:            end,
		Daily:          []DailyPoint{},
		Channels:       []ChannelStat{},
		FailedChannels: []string{},
		Summary:        OverviewSummary{TotalRevenue: decimal.Zero, TotalAccounts: len(sc.accounts)},
	}

	ids := make([]string, 0, len(sc.channels))
	for _, ch := range sc.channels {
		ids = append(ids, ch.ID)
	}
	tokens := a.Tokens.ChannelTokens(ctx, sc.accounts, ids, sc.creds)

	var mu sync.Mutex
	daily := map[time.Time]*DailyPoint{}
	g, gctx := errgroup.WithContext(ctx)
	limit := a.Concurrency
	if limit <= 0 {
		limit = defaultConcurrency
	}
	g.SetLimit(limit)
	for _, ch := range sc.channels {
		ch := ch
		if ch.IsMonetized {
			overview.Summary.MonetizedChannels++
		}
		token, ok := tokens[ch.ID]
		if !ok {
			continue
		}
		g.Go(func() error {
			q := youtube.ReportQuery{ChannelID: ch.ID, Start: start, End: end, Monetized: ch.IsMonetized}
			rows, err := a.Source.Report(gctx, token, q)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				metrics.AnalyticsFailures.Inc()
				logging.Logger.Warn().Err(&AnalyticsFetchError{ChannelID: ch.ID, Err: err}).Msg("analytics overview skipped channel")
				overview.FailedChannels = append(overview.FailedChannels, ch.ID)
				return nil
			}
			stat := ChannelStat{ChannelID: ch.ID, Name: ch.Name, Monetized: ch.IsMonetized, Revenue: decimal.Zero}
			for _, row := range rows {
				stat.Revenue = stat.Revenue.Add(row.Revenue)
				stat.Views += row.Views
				point, ok := daily[row.Day]
				if !ok {
					point = &DailyPoint{Day: row.Day, Revenue: decimal.Zero}
					daily[row.Day] = point
				}
				point.Revenue = point.Revenue.Add(row.Revenue)
				point.Views += row.Views
			}
			overview.Channels = append(overview.Channels, stat)
			return nil
		})
	}
	_ = g.Wait()

	for _, point := range daily {
		overview.Daily = append(overview.Daily, *point)
	}
	sort.Slice(overview.Daily, func(i, j int) bool { return overview.Daily[i].Day.Before(overview.Daily[j].Day) })
	sort.SliceStable(overview.Channels, func(i, j int) bool {
		if cmp := overview.Channels[i].Revenue.Cmp(overview.Channels[j].Revenue); cmp != 0 {
			return cmp > 0
		}
		if overview.Channels[i].Views != overview.Channels[j].Views {
			return overview.Channels[i].Views > overview.Channels[j].Views
		}
		return overview.Channels[i].ChannelID < overview.Channels[j].ChannelID
	})
	sort.Strings(overview.FailedChannels)
	for _, stat := range overview.Channels {
		overview.Summary.TotalRevenue = overview.Summary.TotalRevenue.Add(stat.Revenue)
		overview.Summary.TotalViews += stat.Views
	}
	return overview, nil
}

type ChannelDailyRequest struct {
	ChannelID string
	VideoID   string
	Start     time.Time
	End       time.Time
}

// ChannelDaily is the daily report of one channel, or one of its videos,
// for the channel detail view.
func (a *AnalyticsService) ChannelDaily(ctx context.Context, viewer models.StaffMember, req ChannelDailyRequest) ([]models.AnalyticsDailyRow, error) {
	if req.Start.IsZero() || req.End.IsZero() || req.Start.After(req.End) {
		return nil, ErrBadRequest("Invalid date range")
	}
	sc, err := a.scope(ctx, viewer)
	if err != nil {
		return nil, err
	}
	var channel *models.Channel
	for i := range sc.channels {
		if sc.channels[i].ID == req.ChannelID {
			channel = &sc.channels[i]
			break
		}
	}
	if channel == nil {
		return nil, ErrNotFound("Channel not found")
	}
	account, ok := sc.owner[channel.ID]
	if !ok {
		return nil, ErrBadRequest("Channel is not linked to a Google account")
	}
	q := youtube.ReportQuery{
		ChannelID: channel.ID,
		VideoID:   req.VideoID,
		Start:     dateOnly(req.Start),
		End:       dateOnly(req.End),
		Monetized: channel.IsMonetized,
	}
	rows, err := a.Source.Report(ctx, a.token(ctx, account, sc.creds), q)
	if err != nil {
		metrics.AnalyticsFailures.Inc()
		return nil, &AnalyticsFetchError{ChannelID: channel.ID, Err: err}
	}
	return rows, nil
}
