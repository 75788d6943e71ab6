package youtube

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"google.golang.org/api/option"
	analyticsapi "google.golang.org/api/youtubeanalytics/v2"

	"ytmanager-backend-go/internal/models"
)

const dateLayout = "2006-01-02"

// ReportQuery selects a daily report for one channel, optionally narrowed to
// one video. Non-monetized queries request views only.
type ReportQuery struct {
	ChannelID string
	VideoID   string
	Start     time.Time
	End       time.Time
	Monetized bool
}

func (q ReportQuery) Metrics() string {
	if q.Monetized {
		return "estimatedRevenue,views"
	}
	return "views"
}

// Key identifies the query for caching.
func (q ReportQuery) Key() string {
	return fmt.Sprintf("yt:analytics:%s:%s:%s:%s:%s", q.ChannelID, q.VideoID, q.Metrics(),
		q.Start.Format(dateLayout), q.End.Format(dateLayout))
}

type Analytics struct {
	Options []option.ClientOption
}

func (a *Analytics) Report(ctx context.Context, accessToken string, q ReportQuery) ([]models.AnalyticsDailyRow, error) {
	svc, err := analyticsapi.NewService(ctx, clientOptions(accessToken, a.Options)...)
	if err != nil {
		return nil, fmt.Errorf("analytics service: %w", err)
	}
	call := svc.Reports.Query().
		Ids("channel==" + q.ChannelID).
		StartDate(q.Start.Format(dateLayout)).
		EndDate(q.End.Format(dateLayout)).
		Metrics(q.Metrics()).
		Dimensions("day").
		Sort("day")
	if q.VideoID != "" {
		call = call.Filters("video==" + q.VideoID)
	}
	resp, err := call.Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("analytics query: %w", err)
	}
	return parseReport(q.ChannelID, resp)
}

func (a *Analytics) DailyRevenue(ctx context.Context, accessToken, channelID string, start, end time.Time) ([]models.AnalyticsDailyRow, error) {
	return a.Report(ctx, accessToken, ReportQuery{ChannelID: channelID, Start: start, End: end, Monetized: true})
}

func (a *Analytics) DailyViews(ctx context.Context, accessToken, channelID string, start, end time.Time) ([]models.AnalyticsDailyRow, error) {
	return a.Report(ctx, accessToken, ReportQuery{ChannelID: channelID, Start: start, End: end})
}

func (a *Analytics) VideoDailyRevenue(ctx context.Context, accessToken, channelID, videoID string, start, end time.Time) ([]models.AnalyticsDailyRow, error) {
	return a.Report(ctx, accessToken, ReportQuery{ChannelID: channelID, VideoID: videoID, Start: start, End: end, Monetized: true})
}

func parseReport(channelID string, resp *analyticsapi.QueryResponse) ([]models.AnalyticsDailyRow, error) {
	if resp == nil {
		return nil, nil
	}
	dayIdx, revenueIdx, viewsIdx := -1, -1, -1
	for i, header := range resp.ColumnHeaders {
		switch header.Name {
		case "day":
			dayIdx = i
		case "estimatedRevenue":
			revenueIdx = i
		case "views":
			viewsIdx = i
		}
	}
	if dayIdx < 0 {
		return nil, fmt.Errorf("analytics report without day column")
	}
	rows := make([]models.AnalyticsDailyRow, 0, len(resp.Rows))
	for _, raw := range resp.Rows {
		if dayIdx >= len(raw) {
			continue
		}
		dayStr, ok := raw[dayIdx].(string)
		if !ok {
			continue
		}
		day, err := time.Parse(dateLayout, dayStr)
		if err != nil {
			return nil, fmt.Errorf("analytics day %q: %w", dayStr, err)
		}
		row := models.AnalyticsDailyRow{ChannelID: channelID, Day: day, Revenue: decimal.Zero}
		if revenueIdx >= 0 && revenueIdx < len(raw) {
			row.Revenue = decimal.NewFromFloat(number(raw[revenueIdx]))
		}
		if viewsIdx >= 0 && viewsIdx < len(raw) {
			row.Views = int64(number(raw[viewsIdx]))
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func number(value interface{}) float64 {
	switch v := value.(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	case int:
		return float64(v)
	default:
		return 0
	}
}
