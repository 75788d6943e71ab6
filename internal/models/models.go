package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	RoleAdmin  = "ADMIN"
	RoleLeader = "LEADER"
	RoleUser   = "USER"
)

const (
	StatusActive   = "ACTIVE"
	StatusInactive = "INACTIVE"
)

const (
	OriginCold = "COLD"
	OriginNet  = "NET"
)

const (
	ChannelLive      = "LIVE"
	ChannelSuspended = "SUSPENDED"
	ChannelWarning   = "WARNING"
)

var hundred = decimal.NewFromInt(100)

type StaffMember struct {
	ID           string    `db:"id"`
	Name         string    `db:"name"`
	Email        string    `db:"email"`
	PasswordHash string    `db:"password_hash"`
	Role         string    `db:"role"`
	LeaderID     *string   `db:"leader_id"`
	Status       string    `db:"status"`
	AvatarURL    *string   `db:"avatar_url"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

func (s StaffMember) IsAdmin() bool {
	return s.Role == RoleAdmin
}

// Leader returns the id of the staff member's leader, or "" when unset.
func (s StaffMember) Leader() string {
	if s.LeaderID == nil {
		return ""
	}
	return *s.LeaderID
}

type Channel struct {
	ID                  string          `db:"id"`
	Name                string          `db:"name"`
	Niche               string          `db:"niche"`
	SubscriberCount     int64           `db:"subscriber_count"`
	ViewCount           int64           `db:"view_count"`
	Status              string          `db:"status"`
	Gmail               string          `db:"gmail"`
	ThumbnailURL        *string         `db:"thumbnail_url"`
	UploadsPlaylistID   *string         `db:"uploads_playlist_id"`
	IsMonetized         bool            `db:"is_monetized"`
	AssignedStaffID     *string         `db:"assigned_staff_id"`
	NetworkName         *string         `db:"network_name"`
	RevenueSharePercent decimal.Decimal `db:"revenue_share_percent"`
	ChannelCategory     *string         `db:"channel_category"`
	ChannelOrigin       string          `db:"channel_origin"`
	LastCheckedAt       *time.Time      `db:"last_checked_at"`
	CreatedAt           time.Time       `db:"created_at"`
	UpdatedAt           time.Time       `db:"updated_at"`
}

// Assignee returns the assigned staff id, or "" for unassigned channels.
func (c Channel) Assignee() string {
	if c.AssignedStaffID == nil {
		return ""
	}
	return *c.AssignedStaffID
}

// ShareRate is the fraction of gross revenue attributed to the agency.
// An unset (zero) percentage counts as 100.
func (c Channel) ShareRate() decimal.Decimal {
	if c.RevenueSharePercent.IsZero() {
		return decimal.NewFromInt(1)
	}
	return c.RevenueSharePercent.Div(hundred)
}

type ManualRevenueEntry struct {
	ChannelID string          `db:"channel_id"`
	Year      int             `db:"year"`
	Month     int             `db:"month"`
	Amount    decimal.Decimal `db:"amount"`
	UpdatedAt time.Time       `db:"updated_at"`
}

// AnalyticsDailyRow is one day of platform analytics for a channel. It is
// fetched live and never persisted.
type AnalyticsDailyRow struct {
	ChannelID string
	Day       time.Time
	Revenue   decimal.Decimal
	Views     int64
}

type GoogleAccount struct {
	Email           string    `db:"email"`
	AccessToken     string    `db:"access_token"`
	RefreshToken    string    `db:"refresh_token"`
	ExpiryDate      time.Time `db:"expiry_date"`
	CreatedAt       time.Time `db:"created_at"`
	UpdatedAt       time.Time `db:"updated_at"`
	OwnedChannelIDs []string  `db:"-"`
}

// Owns reports whether the account was granted access to channelID.
func (a GoogleAccount) Owns(channelID string) bool {
	for _, id := range a.OwnedChannelIDs {
		if id == channelID {
			return true
		}
	}
	return false
}

type SystemConfig struct {
	ClientID            string   `db:"client_id"`
	ClientSecret        string   `db:"client_secret"`
	RedirectURIOverride string   `db:"redirect_uri_override"`
	APIKeys             []string `db:"-"`
	Language            string   `db:"language"`
}

type SystemLog struct {
	ID        int64     `db:"id"`
	Timestamp time.Time `db:"created_at"`
	Level     string    `db:"level"`
	Message   string    `db:"message"`
}
