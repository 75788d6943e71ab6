package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"ytmanager-backend-go/internal/logging"
	"ytmanager-backend-go/internal/metrics"
	"ytmanager-backend-go/internal/models"
	"ytmanager-backend-go/internal/youtube"
)

type LinkState string

const (
	StateIdle        LinkState = "IDLE"
	StateAwaiting    LinkState = "AWAITING_AUTHORIZATION"
	StateExchanging  LinkState = "EXCHANGING_CODE"
	StateRegistering LinkState = "REGISTERING_CHANNELS"
	StateComplete    LinkState = "COMPLETE"
)

const (
	defaultLinkFlowTTL = 15 * time.Minute
	linkWorkTimeout    = 90 * time.Second
	callbackPath       = "/oauth2callback"
)

// LinkPrefill is the assignment metadata an operator chooses before opening
// the consent screen. It is merged into every channel the flow registers.
type LinkPrefill struct {
	AssignedStaffID     string           `json:"assignedStaffId"`
	NetworkName         string           `json:"networkName"`
	RevenueSharePercent *decimal.Decimal `json:"revenueSharePercent"`
	ChannelCategory     string           `json:"channelCategory"`
	ChannelOrigin       string           `json:"channelOrigin"`
}

func (p LinkPrefill) Validate() error {
	if p.RevenueSharePercent != nil && !validPercent(*p.RevenueSharePercent) {
		return ErrBadRequest("Revenue share must be between 0 and 100")
	}
	switch strings.ToUpper(p.ChannelOrigin) {
	case "", models.OriginCold, models.OriginNet:
	default:
		return ErrBadRequest("Invalid channel origin")
	}
	return nil
}

type LinkResult struct {
	AccountEmail string   `json:"accountEmail"`
	Registered   []string `json:"registered"`
	Failed       []string `json:"failed"`
}

// LinkFlow is one linking attempt. Its id doubles as the OAuth state.
type LinkFlow struct {
	ID          string      `json:"id"`
	OperatorID  string      `json:"operatorId"`
	State       LinkState   `json:"state"`
	AuthURL     string      `json:"authUrl"`
	RedirectURI string      `json:"redirectUri"`
	Prefill     LinkPrefill `json:"prefill"`
	Error       string      `json:"error,omitempty"`
	Result      *LinkResult `json:"result,omitempty"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`

	creds         youtube.Credentials
	processedCode string
}

// Linker runs linking flows. Code receipt is serialized per flow under mu;
// the exchange itself runs outside the lock.
type Linker struct {
	System       SystemStore
	Channels     ChannelStore
	Accounts     AccountStore
	OAuth        OAuthProvider
	Directory    ChannelDirectory
	Notifier     Notifier
	PublicOrigin string
	TTL          time.Duration
	Now          func() time.Time

	mu         sync.Mutex
	flows      map[string]*LinkFlow
	byOperator map[string]string
}

// RedirectURI is the override without trailing slashes, or the callback
// under origin when no override is set.
func RedirectURI(cfg models.SystemConfig, origin string) string {
	if override := strings.TrimRight(strings.TrimSpace(cfg.RedirectURIOverride), "/"); override != "" {
		return override
	}
	return strings.TrimRight(origin, "/") + callbackPath
}

var codePattern = regexp.MustCompile(`code=([^&"\s]+)`)

// ExtractCode accepts a bare authorization code or a pasted callback URL.
func ExtractCode(input string) string {
	input = strings.TrimSpace(input)
	if match := codePattern.FindStringSubmatch(input); match != nil {
		if decoded, err := url.QueryUnescape(match[1]); err == nil {
			return decoded
		}
		return match[1]
	}
	return input
}

func (l *Linker) now() time.Time {
	if l.Now != nil {
		return l.Now()
	}
	return time.Now()
}

func (l *Linker) ttl() time.Duration {
	if l.TTL > 0 {
		return l.TTL
	}
	return defaultLinkFlowTTL
}

// pruneLocked drops expired flows. Caller holds mu.
func (l *Linker) pruneLocked() {
	if l.flows == nil {
		l.flows = map[string]*LinkFlow{}
		l.byOperator = map[string]string{}
	}
	cutoff := l.now().Add(-l.ttl())
	for id, flow := range l.flows {
		if flow.UpdatedAt.Before(cutoff) {
			delete(l.flows, id)
			if l.byOperator[flow.OperatorID] == id {
				delete(l.byOperator, flow.OperatorID)
			}
		}
	}
}

// Begin starts a flow for viewer, replacing any earlier flow of theirs. The
// system configuration is read once here and the redirect URI derived from
// it is reused by the exchange.
func (l *Linker) Begin(ctx context.Context, viewer models.StaffMember, prefill LinkPrefill) (LinkFlow, error) {
	if err := prefill.Validate(); err != nil {
		return LinkFlow{}, err
	}
	cfg, err := l.System.SystemConfig(ctx)
	if err != nil {
		return LinkFlow{}, WrapError(err, "read system config")
	}
	creds := credentialsOf(cfg)
	if strings.TrimSpace(creds.ClientID) == "" {
		return LinkFlow{}, &ConfigurationError{Message: "OAuth client id is not configured"}
	}
	if strings.TrimSpace(creds.ClientSecret) == "" {
		return LinkFlow{}, &ConfigurationError{Message: "OAuth client secret is not configured"}
	}
	if prefill.AssignedStaffID == "" {
		prefill.AssignedStaffID = viewer.ID
	}
	prefill.ChannelOrigin = strings.ToUpper(prefill.ChannelOrigin)

	now := l.now()
	flow := &LinkFlow{
		ID:          uuid.NewString(),
		OperatorID:  viewer.ID,
		State:       StateAwaiting,
		RedirectURI: RedirectURI(cfg, l.PublicOrigin),
		Prefill:     prefill,
		CreatedAt:   now,
		UpdatedAt:   now,
		creds:       creds,
	}
	flow.AuthURL = l.OAuth.AuthCodeURL(creds, flow.RedirectURI, flow.ID)

	l.mu.Lock()
	l.pruneLocked()
	if previous, ok := l.byOperator[viewer.ID]; ok {
		delete(l.flows, previous)
	}
	l.flows[flow.ID] = flow
	l.byOperator[viewer.ID] = flow.ID
	snapshot := *flow
	l.mu.Unlock()

	logging.Logger.Info().Str("flow", flow.ID).Str("operator", viewer.ID).Str("redirect_uri", flow.RedirectURI).Msg("link flow started")
	return snapshot, nil
}

// Status returns a flow owned by viewer.
func (l *Linker) Status(flowID string, viewer models.StaffMember) (LinkFlow, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.pruneLocked()
	flow, ok := l.flows[flowID]
	if !ok || (flow.OperatorID != viewer.ID && !viewer.IsAdmin()) {
		return LinkFlow{}, ErrNotFound("Linking flow not found or expired")
	}
	return *flow, nil
}

// Receive is the single entry for authorization codes from both the popup
// message and the redirect. A code already seen for the flow, or any code
// for a flow that is no longer awaiting authorization, is discarded before
// any network call; only the first delivery exchanges.
func (l *Linker) Receive(ctx context.Context, flowID, code string) (LinkFlow, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return LinkFlow{}, ErrBadRequest("Authorization code is required")
	}

	l.mu.Lock()
	l.pruneLocked()
	flow, ok := l.flows[flowID]
	if !ok {
		l.mu.Unlock()
		return LinkFlow{}, ErrNotFound("Linking flow not found or expired")
	}
	if code == flow.processedCode || flow.State != StateAwaiting {
		snapshot := *flow
		l.mu.Unlock()
		metrics.DuplicateCodes.Inc()
		logging.Logger.Info().Str("flow", flowID).Str("state", string(snapshot.State)).Msg("duplicate authorization code discarded")
		return snapshot, nil
	}
	flow.processedCode = code
	flow.State = StateExchanging
	flow.Error = ""
	flow.UpdatedAt = l.now()
	snapshot := *flow
	l.mu.Unlock()

	workCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), linkWorkTimeout)
	defer cancel()
	result, err := l.exchangeAndRegister(workCtx, snapshot, code)
	if err != nil {
		logging.Logger.Error().Err(err).Str("flow", flowID).Msg("link flow failed")
		l.appendLog(workCtx, "ERROR", "Channel linking failed: "+err.Error())
		return l.update(flowID, func(f *LinkFlow) {
			f.State = StateIdle
			f.Error = err.Error()
		}), err
	}

	l.appendLog(workCtx, "SUCCESS", fmt.Sprintf("Linked %s with %d channel(s)", result.AccountEmail, len(result.Registered)))
	l.notifier().Notify("account", result.AccountEmail)
	logging.Logger.Info().Str("flow", flowID).Str("account", result.AccountEmail).Int("channels", len(result.Registered)).Msg("link flow complete")
	return l.update(flowID, func(f *LinkFlow) {
		f.State = StateComplete
		f.Result = result
		f.processedCode = ""
	}), nil
}

func (l *Linker) update(flowID string, fn func(*LinkFlow)) LinkFlow {
	l.mu.Lock()
	defer l.mu.Unlock()
	flow, ok := l.flows[flowID]
	if !ok {
		return LinkFlow{ID: flowID, State: StateIdle}
	}
	fn(flow)
	flow.UpdatedAt = l.now()
	return *flow
}

func (l *Linker) exchangeAndRegister(ctx context.Context, flow LinkFlow, code string) (*LinkResult, error) {
	tok, err := l.OAuth.Exchange(ctx, flow.creds, flow.RedirectURI, code)
	if err != nil {
		metrics.OAuthExchanges.WithLabelValues("failed").Inc()
		return nil, &TokenExchangeError{RedirectURI: flow.RedirectURI, Err: err}
	}
	metrics.OAuthExchanges.WithLabelValues("ok").Inc()
	l.update(flow.ID, func(f *LinkFlow) { f.State = StateRegistering })

	infos, err := l.Directory.MineChannels(ctx, tok.AccessToken)
	if err != nil {
		return nil, &ChannelDiscoveryError{Err: err}
	}
	if len(infos) == 0 {
		return nil, &ChannelDiscoveryError{Err: errors.New("no channels found for this account")}
	}

	result := &LinkResult{Registered: []string{}, Failed: []string{}}
	for _, info := range infos {
		channel := l.mergeChannel(ctx, info, flow)
		if err := l.Channels.UpsertChannel(ctx, channel); err != nil {
			logging.Logger.Warn().Err(err).Str("channel", info.ID).Msg("channel registration failed")
			result.Failed = append(result.Failed, info.ID)
			continue
		}
		result.Registered = append(result.Registered, info.ID)
		l.notifier().Notify("channel", info.ID)
	}
	if len(result.Registered) == 0 {
		return nil, persistErr("register channels", errors.New("no channel could be saved"))
	}

	email, err := l.Directory.AccountEmail(ctx, tok.AccessToken)
	if err != nil {
		logging.Logger.Warn().Err(err).Msg("account email lookup failed, using placeholder")
		email = fmt.Sprintf("OAuth-User-%d@gmail.com", l.now().UnixMilli())
	}
	result.AccountEmail = email
	account := models.GoogleAccount{
		Email:        email,
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiryDate:   tok.Expiry,
	}
	if account.ExpiryDate.IsZero() {
		account.ExpiryDate = l.now().Add(time.Hour)
	}
	if err := l.Accounts.UpsertLinkedAccount(ctx, account, result.Registered); err != nil {
		return nil, persistErr("save linked account", err)
	}
	return result, nil
}

// mergeChannel builds the channel record from discovery data and the
// prefill. Re-linking keeps an existing channel's monetization flag.
func (l *Linker) mergeChannel(ctx context.Context, info youtube.ChannelInfo, flow LinkFlow) models.Channel {
	now := l.now().UTC()
	channel := models.Channel{
		ID:                  info.ID,
		Name:                info.Title,
		Niche:               "Authorized",
		SubscriberCount:     info.Subscribers,
		ViewCount:           info.Views,
		Status:              models.ChannelLive,
		Gmail:               "OAuth Managed",
		RevenueSharePercent: decimal.NewFromInt(100),
		ChannelOrigin:       models.OriginCold,
		LastCheckedAt:       &now,
	}
	if info.ThumbnailURL != "" {
		channel.ThumbnailURL = &info.ThumbnailURL
	}
	if info.UploadsPlaylistID != "" {
		channel.UploadsPlaylistID = &info.UploadsPlaylistID
	}
	if existing, err := l.Channels.GetChannel(ctx, info.ID); err == nil {
		channel.IsMonetized = existing.IsMonetized
	}

	p := flow.Prefill
	assignee := p.AssignedStaffID
	if assignee == "" {
		assignee = flow.OperatorID
	}
	channel.AssignedStaffID = &assignee
	if p.NetworkName != "" {
		channel.NetworkName = &p.NetworkName
	}
	if p.RevenueSharePercent != nil && !p.RevenueSharePercent.IsZero() {
		channel.RevenueSharePercent = *p.RevenueSharePercent
	}
	if p.ChannelCategory != "" {
		channel.ChannelCategory = &p.ChannelCategory
	}
	if p.ChannelOrigin != "" {
		channel.ChannelOrigin = p.ChannelOrigin
	}
	return channel
}

func (l *Linker) appendLog(ctx context.Context, level, message string) {
	if err := l.System.AppendLog(ctx, level, message); err != nil {
		logging.Logger.Warn().Err(err).Msg("system log append failed")
	}
}

func (l *Linker) notifier() Notifier {
	return notifierOr(l.Notifier)
}
