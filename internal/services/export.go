package services

import (
	"fmt"
	"strings"

	"ytmanager-backend-go/internal/models"
)

const csvBOM = "\uFEFF"

// EncodeCSV renders rows with every field quoted, embedded quotes doubled
// and rows joined by "\n", prefixed with a UTF-8 byte order mark.
func EncodeCSV(rows [][]string) []byte {
	var b strings.Builder
	b.WriteString(csvBOM)
	for i, row := range rows {
		if i > 0 {
			b.WriteByte('\n')
		}
		for j, field := range row {
			if j > 0 {
				b.WriteByte(',')
			}
			b.WriteByte('"')
			b.WriteString(strings.ReplaceAll(field, `"`, `""`))
			b.WriteByte('"')
		}
	}
	return []byte(b.String())
}

func ChannelRosterCSV(channels []models.Channel, staff []models.StaffMember) []byte {
	names := map[string]string{}
	for _, s := range staff {
		names[s.ID] = s.Name
	}
	rows := [][]string{{"Channel ID", "Name", "Category", "Assigned To", "Network", "Origin", "Revenue Share %", "Monetized"}}
	for _, ch := range channels {
		assignee := "Unassigned"
		if name, ok := names[ch.Assignee()]; ok {
			assignee = name
		}
		share := ch.RevenueSharePercent
		if share.IsZero() {
			share = hundredPercent
		}
		monetized := "No"
		if ch.IsMonetized {
			monetized = "Yes"
		}
		rows = append(rows, []string{
			ch.ID,
			ch.Name,
			stringOr(ch.ChannelCategory, "N/A"),
			assignee,
			stringOr(ch.NetworkName, "None"),
			ch.ChannelOrigin,
			share.String(),
			monetized,
		})
	}
	return EncodeCSV(rows)
}

func RevenueReportCSV(report RevenueReport) []byte {
	rows := [][]string{{"Rank", "Staff", "Channels", "Total Revenue"}}
	for i, entity := range report.Entities {
		rows = append(rows, []string{
			fmt.Sprint(i + 1),
			entity.Staff.Name,
			fmt.Sprint(entity.ChannelCount),
			entity.Total.StringFixed(2),
		})
	}
	return EncodeCSV(rows)
}

func OverviewCSV(overview AnalyticsOverview) []byte {
	rows := [][]string{{"Channel ID", "Name", "Monetized", "Revenue", "Views"}}
	for _, stat := range overview.Channels {
		monetized := "No"
		if stat.Monetized {
			monetized = "Yes"
		}
		rows = append(rows, []string{stat.ChannelID, stat.Name, monetized, stat.Revenue.StringFixed(2), fmt.Sprint(stat.Views)})
	}
	return EncodeCSV(rows)
}

func stringOr(value *string, fallback string) string {
	if value == nil || strings.TrimSpace(*value) == "" {
		return fallback
	}
	return *value
}
