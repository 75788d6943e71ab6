package services

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/oauth2"

	"ytmanager-backend-go/internal/models"
	"ytmanager-backend-go/internal/youtube"
)

// Lookups return an error wrapping sql.ErrNoRows when nothing matches.

type ChannelStore interface {
	ListChannels(ctx context.Context) ([]models.Channel, error)
	GetChannel(ctx context.Context, id string) (models.Channel, error)
	UpsertChannel(ctx context.Context, channel models.Channel) error
	DeleteChannel(ctx context.Context, id string) error
	AssignChannels(ctx context.Context, staffID *string, ids []string) error
}

type StaffStore interface {
	ListStaff(ctx context.Context) ([]models.StaffMember, error)
	GetStaff(ctx context.Context, id string) (models.StaffMember, error)
	GetStaffByEmail(ctx context.Context, email string) (models.StaffMember, error)
	CreateStaff(ctx context.Context, member models.StaffMember) error
	UpdateStaff(ctx context.Context, member models.StaffMember) error
	DeleteStaff(ctx context.Context, id string) error
	SetStaffPassword(ctx context.Context, id, hash string) error
}

type RevenueStore interface {
	// ManualRevenue lists entries for year; channelID "" means every channel.
	ManualRevenue(ctx context.Context, year int, channelID string) ([]models.ManualRevenueEntry, error)
	SetManualRevenue(ctx context.Context, channelID string, year int, monthly [12]decimal.Decimal) error
	SetManualRevenueMonth(ctx context.Context, channelID string, year, month int, amount decimal.Decimal) error
}

type AccountStore interface {
	ListLinkedAccounts(ctx context.Context) ([]models.GoogleAccount, error)
	UpsertLinkedAccount(ctx context.Context, account models.GoogleAccount, ownedIDs []string) error
	// UpdateAccountToken writes token and expiry in one statement.
	UpdateAccountToken(ctx context.Context, email, accessToken string, expiry time.Time) error
}

type SystemStore interface {
	SystemConfig(ctx context.Context) (models.SystemConfig, error)
	SaveSystemConfig(ctx context.Context, cfg models.SystemConfig) error
	AppendLog(ctx context.Context, level, message string) error
	ListLogs(ctx context.Context, limit int) ([]models.SystemLog, error)
	ClearLogs(ctx context.Context) error
}

// Store is everything the HTTP layer needs from persistence.
type Store interface {
	ChannelStore
	StaffStore
	RevenueStore
	AccountStore
	SystemStore
}

type OAuthProvider interface {
	AuthCodeURL(creds youtube.Credentials, redirectURI, state string) string
	Exchange(ctx context.Context, creds youtube.Credentials, redirectURI, code string) (*oauth2.Token, error)
	Refresh(ctx context.Context, creds youtube.Credentials, refreshToken string) (*oauth2.Token, error)
}

type ChannelDirectory interface {
	MineChannels(ctx context.Context, accessToken string) ([]youtube.ChannelInfo, error)
	AccountEmail(ctx context.Context, accessToken string) (string, error)
}

type AnalyticsSource interface {
	Report(ctx context.Context, accessToken string, q youtube.ReportQuery) ([]models.AnalyticsDailyRow, error)
}

// Notifier is told about every successful mutation.
type Notifier interface {
	Notify(kind, id string)
}

type nopNotifier struct{}

func (nopNotifier) Notify(string, string) {}

func notifierOr(n Notifier) Notifier {
	if n == nil {
		return nopNotifier{}
	}
	return n
}

func credentialsOf(cfg models.SystemConfig) youtube.Credentials {
	return youtube.Credentials{ClientID: cfg.ClientID, ClientSecret: cfg.ClientSecret}
}
