package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"ytmanager-backend-go/internal/logging"
	"ytmanager-backend-go/internal/models"
)

type ChannelInput struct {
	ID                  string           `json:"id"`
	Name                string           `json:"name"`
	Niche               string           `json:"niche"`
	SubscriberCount     int64            `json:"subscriberCount"`
	ViewCount           int64            `json:"viewCount"`
	Status              string           `json:"status"`
	Gmail               string           `json:"gmail"`
	ThumbnailURL        *string          `json:"thumbnailUrl"`
	IsMonetized         bool             `json:"isMonetized"`
	AssignedStaffID     *string          `json:"assignedStaffId"`
	NetworkName         *string          `json:"networkName"`
	RevenueSharePercent *decimal.Decimal `json:"revenueSharePercent"`
	ChannelCategory     *string          `json:"channelCategory"`
	ChannelOrigin       string           `json:"channelOrigin"`
}

type ChannelService struct {
	Channels ChannelStore
	Staff    StaffStore
	Revenue  RevenueStore
	System   SystemStore
	Notifier Notifier
}

// VisibleChannels is every channel for administrators, otherwise the
// channels assigned to staff the viewer can see.
func VisibleChannels(viewer models.StaffMember, staff []models.StaffMember, channels []models.Channel) []models.Channel {
	if viewer.IsAdmin() {
		return channels
	}
	visible := VisibleStaffIDs(viewer, staff)
	out := []models.Channel{}
	for _, ch := range channels {
		if assignee := ch.Assignee(); assignee != "" && visible[assignee] {
			out = append(out, ch)
		}
	}
	return out
}

func (s *ChannelService) List(ctx context.Context, viewer models.StaffMember) ([]models.Channel, []models.StaffMember, error) {
	staff, err := s.Staff.ListStaff(ctx)
	if err != nil {
		return nil, nil, err
	}
	channels, err := s.Channels.ListChannels(ctx)
	if err != nil {
		return nil, nil, err
	}
	return VisibleChannels(viewer, staff, channels), staff, nil
}

// Save creates or overwrites a channel by id.
func (s *ChannelService) Save(ctx context.Context, viewer models.StaffMember, in ChannelInput) (models.Channel, error) {
	if !viewer.IsAdmin() {
		return models.Channel{}, ErrForbidden("Not allowed")
	}
	channel, err := s.buildChannel(ctx, in)
	if err != nil {
		return models.Channel{}, err
	}
	if err := s.Channels.UpsertChannel(ctx, channel); err != nil {
		return models.Channel{}, persistErr("save channel", err)
	}
	notifierOr(s.Notifier).Notify("channel", channel.ID)
	return channel, nil
}

func (s *ChannelService) buildChannel(ctx context.Context, in ChannelInput) (models.Channel, error) {
	id := strings.TrimSpace(in.ID)
	name := strings.TrimSpace(in.Name)
	if id == "" || name == "" {
		return models.Channel{}, ErrBadRequest("Channel id and name are required")
	}
	share := hundredPercent
	if in.RevenueSharePercent != nil && !in.RevenueSharePercent.IsZero() {
		share = *in.RevenueSharePercent
	}
	if !validPercent(share) {
		return models.Channel{}, ErrBadRequest("Revenue share must be between 0 and 100")
	}
	origin := strings.ToUpper(strings.TrimSpace(in.ChannelOrigin))
	if origin == "" {
		origin = models.OriginCold
	}
	if origin != models.OriginCold && origin != models.OriginNet {
		return models.Channel{}, ErrBadRequest("Invalid channel origin")
	}
	status := strings.ToUpper(strings.TrimSpace(in.Status))
	if status == "" {
		status = models.ChannelLive
	}
	if status != models.ChannelLive && status != models.ChannelSuspended && status != models.ChannelWarning {
		return models.Channel{}, ErrBadRequest("Invalid channel status")
	}
	assignee := blankToNil(in.AssignedStaffID)
	if assignee != nil {
		if _, err := s.Staff.GetStaff(ctx, *assignee); err != nil {
			if isNotFound(err) {
				return models.Channel{}, ErrBadRequest("Assigned staff member not found")
			}
			return models.Channel{}, err
		}
	}
	niche := strings.TrimSpace(in.Niche)
	if niche == "" {
		niche = "General"
	}
	gmail := strings.TrimSpace(in.Gmail)
	if gmail == "" {
		gmail = "OAuth"
	}
	now := time.Now().UTC()
	return models.Channel{
		ID:                  id,
		Name:                name,
		Niche:               niche,
		SubscriberCount:     in.SubscriberCount,
		ViewCount:           in.ViewCount,
		Status:              status,
		Gmail:               gmail,
		ThumbnailURL:        blankToNil(in.ThumbnailURL),
		IsMonetized:         in.IsMonetized,
		AssignedStaffID:     assignee,
		NetworkName:         blankToNil(in.NetworkName),
		RevenueSharePercent: share,
		ChannelCategory:     blankToNil(in.ChannelCategory),
		ChannelOrigin:       origin,
		LastCheckedAt:       &now,
	}, nil
}

func (s *ChannelService) Delete(ctx context.Context, viewer models.StaffMember, id string) error {
	if !viewer.IsAdmin() {
		return ErrForbidden("Not allowed")
	}
	if _, err := s.Channels.GetChannel(ctx, id); err != nil {
		if isNotFound(err) {
			return ErrNotFound("Channel not found")
		}
		return err
	}
	if err := s.Channels.DeleteChannel(ctx, id); err != nil {
		return persistErr("delete channel", err)
	}
	notifierOr(s.Notifier).Notify("channel", id)
	return nil
}

// Assign moves channels to staffID in one write; an empty staffID unassigns.
func (s *ChannelService) Assign(ctx context.Context, viewer models.StaffMember, staffID string, ids []string) error {
	if !viewer.IsAdmin() {
		return ErrForbidden("Not allowed")
	}
	if len(ids) == 0 {
		return ErrBadRequest("No channels selected")
	}
	target := blankToNil(&staffID)
	if target != nil {
		if _, err := s.Staff.GetStaff(ctx, *target); err != nil {
			if isNotFound(err) {
				return ErrBadRequest("Assigned staff member not found")
			}
			return err
		}
	}
	if err := s.Channels.AssignChannels(ctx, target, ids); err != nil {
		return persistErr("assign channels", err)
	}
	for _, id := range ids {
		notifierOr(s.Notifier).Notify("channel", id)
	}
	return nil
}

// ManualRevenue lists entries of year for channels the viewer can see.
func (s *ChannelService) ManualRevenue(ctx context.Context, viewer models.StaffMember, year int, channelID string) ([]models.ManualRevenueEntry, error) {
	visible, _, err := s.List(ctx, viewer)
	if err != nil {
		return nil, err
	}
	allowed := map[string]bool{}
	for _, ch := range visible {
		allowed[ch.ID] = true
	}
	if channelID != "" && !allowed[channelID] {
		return nil, ErrNotFound("Channel not found")
	}
	entries, err := s.Revenue.ManualRevenue(ctx, year, channelID)
	if err != nil {
		return nil, err
	}
	out := []models.ManualRevenueEntry{}
	for _, entry := range entries {
		if allowed[entry.ChannelID] {
			out = append(out, entry)
		}
	}
	return out, nil
}

// SetManualRevenue overwrites all twelve months of a channel-year.
func (s *ChannelService) SetManualRevenue(ctx context.Context, viewer models.StaffMember, channelID string, year int, monthly []decimal.Decimal) error {
	if len(monthly) != 12 {
		return ErrBadRequest("Monthly data must have 12 values")
	}
	var values [12]decimal.Decimal
	for i, amount := range monthly {
		if amount.IsNegative() {
			return ErrBadRequest("Revenue cannot be negative")
		}
		values[i] = amount
	}
	if err := s.checkWritable(ctx, viewer, channelID, year); err != nil {
		return err
	}
	if err := s.Revenue.SetManualRevenue(ctx, channelID, year, values); err != nil {
		return persistErr("save manual revenue", err)
	}
	s.afterRevenueWrite(ctx, viewer, channelID, year)
	return nil
}

// SetManualRevenueMonth overwrites a single month.
func (s *ChannelService) SetManualRevenueMonth(ctx context.Context, viewer models.StaffMember, channelID string, year, month int, amount decimal.Decimal) error {
	if month < 1 || month > 12 {
		return ErrBadRequest("Invalid month")
	}
	if amount.IsNegative() {
		return ErrBadRequest("Revenue cannot be negative")
	}
	if err := s.checkWritable(ctx, viewer, channelID, year); err != nil {
		return err
	}
	if err := s.Revenue.SetManualRevenueMonth(ctx, channelID, year, month, amount); err != nil {
		return persistErr("save manual revenue", err)
	}
	s.afterRevenueWrite(ctx, viewer, channelID, year)
	return nil
}

func (s *ChannelService) checkWritable(ctx context.Context, viewer models.StaffMember, channelID string, year int) error {
	if year < 2000 || year > 9999 {
		return ErrBadRequest("Invalid year")
	}
	visible, _, err := s.List(ctx, viewer)
	if err != nil {
		return err
	}
	for _, ch := range visible {
		if ch.ID == channelID {
			return nil
		}
	}
	return ErrNotFound("Channel not found")
}

func (s *ChannelService) afterRevenueWrite(ctx context.Context, viewer models.StaffMember, channelID string, year int) {
	notifierOr(s.Notifier).Notify("revenue", channelID)
	if s.System != nil {
		msg := fmt.Sprintf("Manual revenue for %s (%d) saved by %s", channelID, year, viewer.Name)
		if err := s.System.AppendLog(ctx, "INFO", msg); err != nil {
			logging.Logger.Warn().Err(err).Msg("system log append failed")
		}
	}
}

var hundredPercent = decimal.NewFromInt(100)

func validPercent(p decimal.Decimal) bool {
	return !p.IsNegative() && p.LessThanOrEqual(hundredPercent)
}

func blankToNil(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
