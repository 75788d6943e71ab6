package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/oauth2"

	"ytmanager-backend-go/internal/models"
	"ytmanager-backend-go/internal/youtube"
)

type revenueKey struct {
	channel string
	year    int
	month   int
}

// memStore is an in-memory Store.
type memStore struct {
	mu        sync.Mutex
	staff     []models.StaffMember
	channels  map[string]models.Channel
	manual    map[revenueKey]decimal.Decimal
	accounts  map[string]models.GoogleAccount
	owner     map[string]string
	config    models.SystemConfig
	logs      []models.SystemLog
	tokenSets int

	manualErr map[string]error
	upsertErr map[string]error
}

func newMemStore() *memStore {
	return &memStore{
		channels:  map[string]models.Channel{},
		manual:    map[revenueKey]decimal.Decimal{},
		accounts:  map[string]models.GoogleAccount{},
		owner:     map[string]string{},
		manualErr: map[string]error{},
		upsertErr: map[string]error{},
		config:    models.SystemConfig{ClientID: "client", ClientSecret: "secret", Language: "vi"},
	}
}

func notFound(what, id string) error {
	return fmt.Errorf("%s %s: %w", what, id, sql.ErrNoRows)
}

func (m *memStore) ListChannels(context.Context) ([]models.Channel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Channel, 0, len(m.channels))
	for _, ch := range m.channels {
		out = append(out, ch)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) GetChannel(_ context.Context, id string) (models.Channel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ch, ok := m.channels[id]
	if !ok {
		return models.Channel{}, notFound("channel", id)
	}
	return ch, nil
}

func (m *memStore) UpsertChannel(_ context.Context, channel models.Channel) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.upsertErr[channel.ID]; err != nil {
		return err
	}
	m.channels[channel.ID] = channel
	return nil
}

func (m *memStore) DeleteChannel(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.channels, id)
	return nil
}

func (m *memStore) AssignChannels(_ context.Context, staffID *string, ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range ids {
		ch, ok := m.channels[id]
		if !ok {
			continue
		}
		ch.AssignedStaffID = staffID
		m.channels[id] = ch
	}
	return nil
}

func (m *memStore) ListStaff(context.Context) ([]models.StaffMember, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.StaffMember(nil), m.staff...), nil
}

func (m *memStore) GetStaff(_ context.Context, id string) (models.StaffMember, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.staff {
		if s.ID == id {
			return s, nil
		}
	}
	return models.StaffMember{}, notFound("staff", id)
}

func (m *memStore) GetStaffByEmail(_ context.Context, email string) (models.StaffMember, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.staff {
		if s.Email == email {
			return s, nil
		}
	}
	return models.StaffMember{}, notFound("staff", email)
}

func (m *memStore) CreateStaff(_ context.Context, member models.StaffMember) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.staff = append(m.staff, member)
	return nil
}

func (m *memStore) UpdateStaff(_ context.Context, member models.StaffMember) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, s := range m.staff {
		if s.ID == member.ID {
			m.staff[i] = member
			return nil
		}
	}
	return notFound("staff", member.ID)
}

func (m *memStore) DeleteStaff(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, s := range m.staff {
		if s.ID == id {
			m.staff = append(m.staff[:i], m.staff[i+1:]...)
			return nil
		}
	}
	return notFound("staff", id)
}

func (m *memStore) SetStaffPassword(_ context.Context, id, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, s := range m.staff {
		if s.ID == id {
			m.staff[i].PasswordHash = hash
			return nil
		}
	}
	return notFound("staff", id)
}

func (m *memStore) ManualRevenue(_ context.Context, year int, channelID string) ([]models.ManualRevenueEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.manualErr[channelID]; err != nil {
		return nil, err
	}
	out := []models.ManualRevenueEntry{}
	for key, amount := range m.manual {
		if key.year == year && (channelID == "" || key.channel == channelID) {
			out = append(out, models.ManualRevenueEntry{ChannelID: key.channel, Year: key.year, Month: key.month, Amount: amount})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ChannelID != out[j].ChannelID {
			return out[i].ChannelID < out[j].ChannelID
		}
		return out[i].Month < out[j].Month
	})
	return out, nil
}

func (m *memStore) SetManualRevenue(_ context.Context, channelID string, year int, monthly [12]decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, amount := range monthly {
		m.manual[revenueKey{channelID, year, i + 1}] = amount
	}
	return nil
}

func (m *memStore) SetManualRevenueMonth(_ context.Context, channelID string, year, month int, amount decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.manual[revenueKey{channelID, year, month}] = amount
	return nil
}

func (m *memStore) ListLinkedAccounts(context.Context) ([]models.GoogleAccount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.GoogleAccount{}
	for _, account := range m.accounts {
		account.OwnedChannelIDs = []string{}
		for ch, email := range m.owner {
			if email == account.Email {
				account.OwnedChannelIDs = append(account.OwnedChannelIDs, ch)
			}
		}
		sort.Strings(account.OwnedChannelIDs)
		out = append(out, account)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out, nil
}

func (m *memStore) UpsertLinkedAccount(_ context.Context, account models.GoogleAccount, ownedIDs []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.accounts[account.Email]; ok && account.RefreshToken == "" {
		account.RefreshToken = existing.RefreshToken
	}
	m.accounts[account.Email] = account
	for ch, email := range m.owner {
		if email == account.Email {
			delete(m.owner, ch)
		}
	}
	for _, id := range ownedIDs {
		m.owner[id] = account.Email
	}
	return nil
}

func (m *memStore) UpdateAccountToken(_ context.Context, email, accessToken string, expiry time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	account, ok := m.accounts[email]
	if !ok {
		return notFound("account", email)
	}
	account.AccessToken = accessToken
	account.ExpiryDate = expiry
	m.accounts[email] = account
	m.tokenSets++
	return nil
}

func (m *memStore) SystemConfig(context.Context) (models.SystemConfig, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.config, nil
}

func (m *memStore) SaveSystemConfig(_ context.Context, cfg models.SystemConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.config = cfg
	return nil
}

func (m *memStore) AppendLog(_ context.Context, level, message string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logs = append(m.logs, models.SystemLog{ID: int64(len(m.logs) + 1), Timestamp: time.Now(), Level: level, Message: message})
	return nil
}

func (m *memStore) ListLogs(_ context.Context, limit int) ([]models.SystemLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.SystemLog{}
	for i := len(m.logs) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.logs[i])
	}
	return out, nil
}

func (m *memStore) ClearLogs(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logs = nil
	return nil
}

func (m *memStore) logLevels() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	levels := []string{}
	for _, l := range m.logs {
		levels = append(levels, l.Level)
	}
	return levels
}

func (m *memStore) addStaff(members ...models.StaffMember) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.staff = append(m.staff, members...)
}

func (m *memStore) addChannel(ch models.Channel) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.channels[ch.ID] = ch
}

func (m *memStore) link(account models.GoogleAccount, channelIDs ...string) {
	_ = m.UpsertLinkedAccount(context.Background(), account, channelIDs)
}

// fakeOAuth counts exchanges and refreshes. gate, when set, blocks every
// call until it is closed.
type fakeOAuth struct {
	exchanges   atomic.Int32
	refreshes   atomic.Int32
	exchangeErr error
	refreshErr  error
	gate        chan struct{}
	lastURI     atomic.Value
	token       oauth2.Token
}

func (f *fakeOAuth) AuthCodeURL(creds youtube.Credentials, redirectURI, state string) string {
	return "https://accounts.example/auth?client_id=" + creds.ClientID + "&redirect_uri=" + redirectURI + "&state=" + state
}

func (f *fakeOAuth) wait() {
	if f.gate != nil {
		<-f.gate
	}
}

func (f *fakeOAuth) Exchange(_ context.Context, _ youtube.Credentials, redirectURI, _ string) (*oauth2.Token, error) {
	f.exchanges.Add(1)
	f.lastURI.Store(redirectURI)
	f.wait()
	if f.exchangeErr != nil {
		return nil, f.exchangeErr
	}
	tok := f.token
	if tok.AccessToken == "" {
		tok = oauth2.Token{AccessToken: "access-1", RefreshToken: "refresh-1", Expiry: time.Now().Add(time.Hour)}
	}
	return &tok, nil
}

func (f *fakeOAuth) Refresh(context.Context, youtube.Credentials, string) (*oauth2.Token, error) {
	f.refreshes.Add(1)
	f.wait()
	if f.refreshErr != nil {
		return nil, f.refreshErr
	}
	return &oauth2.Token{AccessToken: "refreshed", Expiry: time.Now().Add(time.Hour)}, nil
}

type fakeDirectory struct {
	channels []youtube.ChannelInfo
	listErr  error
	email    string
	emailErr error
}

func (f *fakeDirectory) MineChannels(context.Context, string) ([]youtube.ChannelInfo, error) {
	return f.channels, f.listErr
}

func (f *fakeDirectory) AccountEmail(context.Context, string) (string, error) {
	return f.email, f.emailErr
}

// fakeAnalytics serves fixed rows per channel, filtered to the query range.
type fakeAnalytics struct {
	mu     sync.Mutex
	rows   map[string][]models.AnalyticsDailyRow
	errs   map[string]error
	tokens []string
}

func newFakeAnalytics() *fakeAnalytics {
	return &fakeAnalytics{rows: map[string][]models.AnalyticsDailyRow{}, errs: map[string]error{}}
}

func (f *fakeAnalytics) add(channelID, day string, revenue string, views int64) {
	d, _ := time.Parse(dateLayout, day)
	f.rows[channelID] = append(f.rows[channelID], models.AnalyticsDailyRow{
		ChannelID: channelID,
		Day:       d,
		Revenue:   decimal.RequireFromString(revenue),
		Views:     views,
	})
}

func (f *fakeAnalytics) Report(_ context.Context, token string, q youtube.ReportQuery) ([]models.AnalyticsDailyRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokens = append(f.tokens, token)
	if err := f.errs[q.ChannelID]; err != nil {
		return nil, err
	}
	out := []models.AnalyticsDailyRow{}
	for _, row := range f.rows[q.ChannelID] {
		if row.Day.Before(q.Start) || row.Day.After(q.End) {
			continue
		}
		if !q.Monetized {
			row.Revenue = decimal.Zero
		}
		out = append(out, row)
	}
	return out, nil
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []string
}

func (r *recordingNotifier) Notify(kind, id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, kind+":"+id)
}

var errUpstream = errors.New("upstream unavailable")

func strPtr(s string) *string { return &s }

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func member(id, name, role string, leader string) models.StaffMember {
	m := models.StaffMember{ID: id, Name: name, Email: id + "@example.com", Role: role, Status: models.StatusActive}
	if leader != "" {
		m.LeaderID = strPtr(leader)
	}
	return m
}

func channel(id, assignee, share string, monetized bool) models.Channel {
	ch := models.Channel{
		ID:                  id,
		Name:                "Channel " + id,
		Status:              models.ChannelLive,
		ChannelOrigin:       models.OriginCold,
		IsMonetized:         monetized,
		RevenueSharePercent: dec(share),
	}
	if assignee != "" {
		ch.AssignedStaffID = strPtr(assignee)
	}
	return ch
}
