package services

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"ytmanager-backend-go/internal/logging"
	"ytmanager-backend-go/internal/metrics"
	"ytmanager-backend-go/internal/models"
	"ytmanager-backend-go/internal/youtube"
)

// RefreshMargin is how far ahead of expiry a token is refreshed.
const RefreshMargin = 5 * time.Minute

// TokenGuard hands out access tokens that are valid for at least
// RefreshMargin. It never fails: when a refresh is impossible or fails the
// stored token is returned and the downstream call fails on its own.
type TokenGuard struct {
	OAuth    OAuthProvider
	Accounts AccountStore
	Now      func() time.Time

	group singleflight.Group
}

type refreshedToken struct {
	AccessToken string
	Expiry      time.Time
}

func (g *TokenGuard) now() time.Time {
	if g.Now != nil {
		return g.Now()
	}
	return time.Now()
}

// EnsureFresh returns an access token for account, refreshing it first when
// it expires within RefreshMargin. Concurrent refreshes of one account share
// a single upstream call.
func (g *TokenGuard) EnsureFresh(ctx context.Context, account models.GoogleAccount, creds youtube.Credentials) string {
	return g.ensure(ctx, account, creds).AccessToken
}

func (g *TokenGuard) ensure(ctx context.Context, account models.GoogleAccount, creds youtube.Credentials) models.GoogleAccount {
	if account.ExpiryDate.After(g.now().Add(RefreshMargin)) {
		return account
	}
	log := logging.Logger.With().Str("account", account.Email).Logger()
	if account.RefreshToken == "" || !creds.Valid() {
		log.Warn().Msg("token near expiry but cannot be refreshed")
		metrics.TokenRefreshes.WithLabelValues("skipped").Inc()
		return account
	}

	value, err, _ := g.group.Do(account.Email, func() (interface{}, error) {
		tok, err := g.OAuth.Refresh(ctx, creds, account.RefreshToken)
		if err != nil {
			return nil, err
		}
		fresh := refreshedToken{AccessToken: tok.AccessToken, Expiry: tok.Expiry}
		if fresh.Expiry.IsZero() {
			fresh.Expiry = g.now().Add(time.Hour)
		}
		if err := g.Accounts.UpdateAccountToken(ctx, account.Email, fresh.AccessToken, fresh.Expiry); err != nil {
			log.Error().Err(persistErr("update account token", err)).Msg("refreshed token not persisted")
		}
		return fresh, nil
	})
	if err != nil {
		log.Warn().Err(err).Msg("token refresh failed, using stored token")
		metrics.TokenRefreshes.WithLabelValues("failed").Inc()
		return account
	}
	metrics.TokenRefreshes.WithLabelValues("ok").Inc()
	fresh := value.(refreshedToken)
	account.AccessToken = fresh.AccessToken
	account.ExpiryDate = fresh.Expiry
	return account
}

// FreshAccounts lists linked accounts with their tokens refreshed.
func (g *TokenGuard) FreshAccounts(ctx context.Context, creds youtube.Credentials) ([]models.GoogleAccount, error) {
	accounts, err := g.Accounts.ListLinkedAccounts(ctx)
	if err != nil {
		return nil, err
	}
	for i := range accounts {
		accounts[i] = g.ensure(ctx, accounts[i], creds)
	}
	return accounts, nil
}

// ChannelTokens maps each of channelIDs that has an owning account to that
// account's access token. Every owning account is refreshed at most once,
// however many channels it owns. A nil guard returns stored tokens.
func (g *TokenGuard) ChannelTokens(ctx context.Context, accounts []models.GoogleAccount, channelIDs []string, creds youtube.Credentials) map[string]string {
	owner := map[string]int{}
	for i, account := range accounts {
		for _, id := range account.OwnedChannelIDs {
			owner[id] = i
		}
	}
	needed := map[int]bool{}
	for _, id := range channelIDs {
		if i, ok := owner[id]; ok {
			needed[i] = true
		}
	}

	byAccount := make([]string, len(accounts))
	var wg sync.WaitGroup
	for i := range needed {
		i := i
		byAccount[i] = accounts[i].AccessToken
		if g == nil {
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			byAccount[i] = g.EnsureFresh(ctx, accounts[i], creds)
		}()
	}
	wg.Wait()

	tokens := map[string]string{}
	for _, id := range channelIDs {
		if i, ok := owner[id]; ok {
			tokens[id] = byAccount[i]
		}
	}
	return tokens
}
