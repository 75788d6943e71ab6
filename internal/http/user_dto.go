package httpapi

import (
	"time"

	"github.com/shopspring/decimal"

	"ytmanager-backend-go/internal/models"
	"ytmanager-backend-go/internal/services"
)

type StaffDTO struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	LeaderID  *string   `json:"leaderId"`
	Status    string    `json:"status"`
	AvatarURL *string   `json:"avatarUrl,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

func staffDTO(member models.StaffMember) StaffDTO {
	return StaffDTO{
		ID:        member.ID,
		Name:      member.Name,
		Email:     member.Email,
		Role:      member.Role,
		LeaderID:  member.LeaderID,
		Status:    member.Status,
		AvatarURL: member.AvatarURL,
		CreatedAt: member.CreatedAt,
	}
}

func staffDTOs(staff []models.StaffMember) []StaffDTO {
	items := make([]StaffDTO, 0, len(staff))
	for _, member := range staff {
		items = append(items, staffDTO(member))
	}
	return items
}

type TeamDTO struct {
	Head    StaffDTO   `json:"head"`
	Members []StaffDTO `json:"members"`
}

type ChannelDTO struct {
	ID                  string          `json:"id"`
	Name                string          `json:"name"`
	Niche               string          `json:"niche"`
	SubscriberCount     int64           `json:"subscriberCount"`
	ViewCount           int64           `json:"viewCount"`
	Status              string          `json:"status"`
	Gmail               string          `json:"gmail"`
	ThumbnailURL        *string         `json:"thumbnailUrl"`
	UploadsPlaylistID   *string         `json:"uploadsPlaylistId,omitempty"`
	IsMonetized         bool            `json:"isMonetized"`
	AssignedStaffID     *string         `json:"assignedStaffId"`
	NetworkName         *string         `json:"networkName"`
	RevenueSharePercent decimal.Decimal `json:"revenueSharePercent"`
	ChannelCategory     *string         `json:"channelCategory"`
	ChannelOrigin       string          `json:"channelOrigin"`
	LastCheckedAt       *time.Time      `json:"lastCheckedAt"`
}

func channelDTO(ch models.Channel) ChannelDTO {
	return ChannelDTO{
		ID:                  ch.ID,
		Name:                ch.Name,
		Niche:               ch.Niche,
		SubscriberCount:     ch.SubscriberCount,
		ViewCount:           ch.ViewCount,
		Status:              ch.Status,
		Gmail:               ch.Gmail,
		ThumbnailURL:        ch.ThumbnailURL,
		UploadsPlaylistID:   ch.UploadsPlaylistID,
		IsMonetized:         ch.IsMonetized,
		AssignedStaffID:     ch.AssignedStaffID,
		NetworkName:         ch.NetworkName,
		RevenueSharePercent: ch.RevenueSharePercent,
		ChannelCategory:     ch.ChannelCategory,
		ChannelOrigin:       ch.ChannelOrigin,
		LastCheckedAt:       ch.LastCheckedAt,
	}
}

type ManualRevenueDTO struct {
	ChannelID string          `json:"channelId"`
	Year      int             `json:"year"`
	Month     int             `json:"month"`
	Amount    decimal.Decimal `json:"amount"`
}

// EntityDTO is one ranked report row with amounts rounded for display.
type EntityDTO struct {
	Rank         int      `json:"rank"`
	Staff        StaffDTO `json:"staff"`
	MemberIDs    []string `json:"memberIds"`
	Monthly      []string `json:"monthly"`
	Total        string   `json:"total"`
	Views        int64    `json:"views"`
	ChannelCount int      `json:"channelCount"`
}

type RevenueReportDTO struct {
	Grouping       services.Grouping    `json:"grouping"`
	TeamID         string               `json:"teamId,omitempty"`
	Months         []services.YearMonth `json:"months"`
	Entities       []EntityDTO          `json:"entities"`
	MonthlyTotals  []string             `json:"monthlyTotals"`
	Total          string               `json:"total"`
	FailedChannels []string             `json:"failedChannels"`
}

func revenueReportDTO(report services.RevenueReport) RevenueReportDTO {
	dto := RevenueReportDTO{
		Grouping:       report.Grouping,
		TeamID:         report.TeamID,
		Months:         report.Months,
		Entities:       make([]EntityDTO, 0, len(report.Entities)),
		MonthlyTotals:  fixed(report.MonthlyTotals),
		Total:          report.Total.StringFixed(2),
		FailedChannels: report.FailedChannels,
	}
	for i, entity := range report.Entities {
		dto.Entities = append(dto.Entities, EntityDTO{
			Rank:         i + 1,
			Staff:        staffDTO(entity.Staff),
			MemberIDs:    entity.MemberIDs,
			Monthly:      fixed(entity.Monthly),
			Total:        entity.Total.StringFixed(2),
			Views:        entity.Views,
			ChannelCount: entity.ChannelCount,
		})
	}
	return dto
}

func fixed(values []decimal.Decimal) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = v.StringFixed(2)
	}
	return out
}
