package services

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"ytmanager-backend-go/internal/logging"
	"ytmanager-backend-go/internal/metrics"
	"ytmanager-backend-go/internal/models"
	"ytmanager-backend-go/internal/youtube"
)

const defaultConcurrency = 8

// Engine computes revenue reports from manual entries, live analytics and
// per-channel share rates.
type Engine struct {
	Staff       StaffStore
	Channels    ChannelStore
	Revenue     RevenueStore
	Accounts    AccountStore
	System      SystemStore
	Tokens      *TokenGuard
	Analytics   AnalyticsSource
	Concurrency int
}

type RevenueRequest struct {
	Viewer models.StaffMember
	Filter string
	Window Window
}

// EntityTotal is one ranked row. Monthly is aligned with Report.Months and
// already scaled by each channel's share rate.
type EntityTotal struct {
	Staff        models.StaffMember
	MemberIDs    []string
	Monthly      []decimal.Decimal
	Total        decimal.Decimal
	Views        int64
	ChannelCount int
}

type RevenueReport struct {
	Grouping      Grouping
	TeamID        string
	Window        Window
	Months        []YearMonth
	Entities      []EntityTotal
	MonthlyTotals []decimal.Decimal
	Total         decimal.Decimal

	// FailedChannels lists channels whose analytics could not be fetched;
	// they contributed manual entries only.
	FailedChannels []string
}

// channelYear is the raw, unshared 12-slot vector of one channel in one year.
type channelYear struct {
	Channel models.Channel
	Year    int
	Revenue [12]decimal.Decimal
	Views   [12]int64
	Failed  bool
}

func (e *Engine) concurrency() int {
	if e.Concurrency > 0 {
		return e.Concurrency
	}
	return defaultConcurrency
}

// Aggregate resolves the entity set for the viewer, builds every in-scope
// channel's vectors concurrently and sums them per entity. A channel whose
// analytics fail contributes its manual entries only.
func (e *Engine) Aggregate(ctx context.Context, req RevenueRequest) (RevenueReport, error) {
	if err := req.Window.Validate(); err != nil {
		return RevenueReport{}, err
	}
	staff, err := e.Staff.ListStaff(ctx)
	if err != nil {
		return RevenueReport{}, WrapError(err, "list staff")
	}
	resolution, err := Resolve(req.Viewer, staff, req.Filter)
	if err != nil {
		return RevenueReport{}, err
	}
	start := time.Now()
	defer func() {
		metrics.AggregationDuration.WithLabelValues(string(resolution.Grouping)).Observe(time.Since(start).Seconds())
	}()

	channels, err := e.Channels.ListChannels(ctx)
	if err != nil {
		return RevenueReport{}, WrapError(err, "list channels")
	}
	entityOf := map[string]int{}
	for i, entity := range resolution.Entities {
		for _, id := range entity.MemberIDs {
			entityOf[id] = i
		}
	}
	inScope := []models.Channel{}
	for _, ch := range channels {
		if _, ok := entityOf[ch.Assignee()]; ok {
			inScope = append(inScope, ch)
		}
	}

	vectors := e.buildVectors(ctx, inScope, req.Window)
	return summarize(req.Window, resolution, inScope, vectors, entityOf), nil
}

// buildVectors never fails: without config or accounts every channel falls
// back to manual entries.
func (e *Engine) buildVectors(ctx context.Context, channels []models.Channel, window Window) []channelYear {
	months := window.Months()
	if len(months) == 0 {
		return nil
	}
	cfg, err := e.System.SystemConfig(ctx)
	if err != nil {
		logging.Logger.Warn().Err(err).Msg("system config unavailable, token refresh disabled")
	}
	accounts, err := e.Accounts.ListLinkedAccounts(ctx)
	if err != nil {
		logging.Logger.Warn().Err(err).Msg("linked accounts unavailable, using manual entries only")
	}
	monetized := []string{}
	for _, ch := range channels {
		if ch.IsMonetized {
			monetized = append(monetized, ch.ID)
		}
	}
	tokens := e.Tokens.ChannelTokens(ctx, accounts, monetized, credentialsOf(cfg))

	// Analytics are fetched for whole calendar months so a month's value
	// never depends on where the window starts or ends inside it.
	rangeStart := months[0].First()
	rangeEnd := months[len(months)-1].First().AddDate(0, 1, -1)
	years := window.Years()
	results := make([]channelYear, len(channels)*len(years))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency())
	for ci, ch := range channels {
		ch := ch
		for yi, year := range years {
			year := year
			slot := ci*len(years) + yi
			g.Go(func() error {
				results[slot] = e.channelYear(gctx, ch, year, rangeStart, rangeEnd, tokens)
				return nil
			})
		}
	}
	_ = g.Wait()
	return results
}

func (e *Engine) channelYear(ctx context.Context, ch models.Channel, year int, rangeStart, rangeEnd time.Time, tokens map[string]string) channelYear {
	vec := channelYear{Channel: ch, Year: year}
	for i := range vec.Revenue {
		vec.Revenue[i] = decimal.Zero
	}
	log := logging.Logger.With().Str("channel", ch.ID).Int("year", year).Logger()

	entries, err := e.Revenue.ManualRevenue(ctx, year, ch.ID)
	if err != nil {
		log.Warn().Err(err).Msg("manual revenue read failed, channel contributes zero")
		return vec
	}
	for _, entry := range entries {
		if entry.ChannelID == ch.ID && entry.Year == year && entry.Month >= 1 && entry.Month <= 12 {
			vec.Revenue[entry.Month-1] = entry.Amount
		}
	}

	token, linked := tokens[ch.ID]
	if !ch.IsMonetized || !linked || e.Analytics == nil {
		return vec
	}
	from, to := clampToYear(year, rangeStart, rangeEnd)
	rows, err := e.Analytics.Report(ctx, token, youtube.ReportQuery{ChannelID: ch.ID, Start: from, End: to, Monetized: true})
	if err != nil {
		metrics.AnalyticsFailures.Inc()
		log.Warn().Err(&AnalyticsFetchError{ChannelID: ch.ID, Err: err}).Msg("analytics unavailable, using manual entries only")
		vec.Failed = true
		return vec
	}
	for _, row := range rows {
		if row.Day.Year() != year {
			continue
		}
		m := int(row.Day.Month()) - 1
		vec.Revenue[m] = vec.Revenue[m].Add(row.Revenue)
		vec.Views[m] += row.Views
	}
	return vec
}

func clampToYear(year int, start, end time.Time) (time.Time, time.Time) {
	first := time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC)
	last := time.Date(year, 12, 31, 0, 0, 0, 0, time.UTC)
	if start.After(first) {
		first = start
	}
	if end.Before(last) {
		last = end
	}
	return first, last
}

// summarize applies each channel's share rate once, as its month value is
// added to an entity month, then ranks the entities.
func summarize(window Window, resolution Resolution, channels []models.Channel, vectors []channelYear, entityOf map[string]int) RevenueReport {
	months := window.Months()
	monthIdx := map[YearMonth]int{}
	for i, ym := range months {
		monthIdx[ym] = i
	}

	entities := make([]EntityTotal, len(resolution.Entities))
	for i, entity := range resolution.Entities {
		entities[i] = EntityTotal{
			Staff:     entity.Staff,
			MemberIDs: entity.MemberIDs,
			Monthly:   zeros(len(months)),
			Total:     decimal.Zero,
		}
	}
	for _, ch := range channels {
		entities[entityOf[ch.Assignee()]].ChannelCount++
	}

	failed := map[string]bool{}
	for _, vec := range vectors {
		if vec.Channel.ID == "" {
			continue
		}
		if vec.Failed {
			failed[vec.Channel.ID] = true
		}
		target := &entities[entityOf[vec.Channel.Assignee()]]
		rate := vec.Channel.ShareRate()
		for m := 0; m < 12; m++ {
			idx, ok := monthIdx[YearMonth{Year: vec.Year, Month: m + 1}]
			if !ok {
				continue
			}
			target.Monthly[idx] = target.Monthly[idx].Add(vec.Revenue[m].Mul(rate))
			target.Views += vec.Views[m]
		}
	}

	report := RevenueReport{
		Grouping:       resolution.Grouping,
		TeamID:         resolution.TeamID,
		Window:         window,
		Months:         months,
		MonthlyTotals:  zeros(len(months)),
		Total:          decimal.Zero,
		FailedChannels: []string{},
	}
	for i := range entities {
		for m, amount := range entities[i].Monthly {
			entities[i].Total = entities[i].Total.Add(amount)
			report.MonthlyTotals[m] = report.MonthlyTotals[m].Add(amount)
		}
		report.Total = report.Total.Add(entities[i].Total)
	}
	sort.SliceStable(entities, func(i, j int) bool {
		if cmp := entities[i].Total.Cmp(entities[j].Total); cmp != 0 {
			return cmp > 0
		}
		return entities[i].Views > entities[j].Views
	})
	report.Entities = entities
	for _, ch := range channels {
		if failed[ch.ID] {
			report.FailedChannels = append(report.FailedChannels, ch.ID)
		}
	}
	return report
}

func zeros(n int) []decimal.Decimal {
	values := make([]decimal.Decimal, n)
	for i := range values {
		values[i] = decimal.Zero
	}
	return values
}
