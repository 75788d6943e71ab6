package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ytmanager-backend-go/internal/models"
	"ytmanager-backend-go/internal/youtube"
)

var testCreds = youtube.Credentials{ClientID: "client", ClientSecret: "secret"}

func guardFixture(expiresIn time.Duration, refreshToken string) (*TokenGuard, *memStore, *fakeOAuth, models.GoogleAccount) {
	st := newMemStore()
	now := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	account := models.GoogleAccount{
		Email:        "owner@example.com",
		AccessToken:  "stored",
		RefreshToken: refreshToken,
		ExpiryDate:   now.Add(expiresIn),
	}
	st.link(account, "UC1")
	oauth := &fakeOAuth{}
	guard := &TokenGuard{OAuth: oauth, Accounts: st, Now: func() time.Time { return now }}
	return guard, st, oauth, account
}

func TestEnsureFreshKeepsValidToken(t *testing.T) {
	guard, st, oauth, account := guardFixture(time.Hour, "refresh")
	assert.Equal(t, "stored", guard.EnsureFresh(context.Background(), account, testCreds))
	assert.Zero(t, oauth.refreshes.Load())
	assert.Zero(t, st.tokenSets)
}

func TestEnsureFreshRefreshesNearExpiry(t *testing.T) {
	guard, st, oauth, account := guardFixture(2*time.Minute, "refresh")
	assert.Equal(t, "refreshed", guard.EnsureFresh(context.Background(), account, testCreds))
	assert.Equal(t, int32(1), oauth.refreshes.Load())
	assert.Equal(t, 1, st.tokenSets)

	accounts, err := st.ListLinkedAccounts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "refreshed", accounts[0].AccessToken)
	assert.Equal(t, "refresh", accounts[0].RefreshToken)
}

func TestEnsureFreshFallsBackOnFailure(t *testing.T) {
	guard, st, oauth, account := guardFixture(-time.Minute, "refresh")
	oauth.refreshErr = errUpstream
	assert.Equal(t, "stored", guard.EnsureFresh(context.Background(), account, testCreds))
	assert.Zero(t, st.tokenSets)
}

func TestEnsureFreshSkipsWithoutRefreshToken(t *testing.T) {
	guard, _, oauth, account := guardFixture(time.Minute, "")
	assert.Equal(t, "stored", guard.EnsureFresh(context.Background(), account, testCreds))
	assert.Equal(t, "stored", guard.EnsureFresh(context.Background(), account, youtube.Credentials{}))
	assert.Zero(t, oauth.refreshes.Load())
}

func TestConcurrentRefreshSharesOneCall(t *testing.T) {
	guard, st, oauth, account := guardFixture(time.Minute, "refresh")
	oauth.gate = make(chan struct{})

	var wg sync.WaitGroup
	tokens := make(chan string, 5)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tokens <- guard.EnsureFresh(context.Background(), account, testCreds)
		}()
	}
	require.Eventually(t, func() bool { return oauth.refreshes.Load() == 1 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(oauth.gate)
	wg.Wait()
	close(tokens)

	for tok := range tokens {
		assert.Equal(t, "refreshed", tok)
	}
	assert.Equal(t, int32(1), oauth.refreshes.Load())
	assert.Equal(t, 1, st.tokenSets)
}

func TestFreshAccounts(t *testing.T) {
	guard, _, _, _ := guardFixture(time.Minute, "refresh")
	accounts, err := guard.FreshAccounts(context.Background(), testCreds)
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, "refreshed", accounts[0].AccessToken)
	assert.Equal(t, []string{"UC1"}, accounts[0].OwnedChannelIDs)
}

func TestChannelTokensRefreshEachAccountOnce(t *testing.T) {
	guard, st, oauth, account := guardFixture(time.Minute, "refresh")
	account.OwnedChannelIDs = []string{"UC1", "UC2", "UC3"}
	other := models.GoogleAccount{Email: "other@example.com", AccessToken: "other", ExpiryDate: time.Now().Add(time.Hour), OwnedChannelIDs: []string{"UC9"}}
	accounts := []models.GoogleAccount{account, other}

	tokens := guard.ChannelTokens(context.Background(), accounts, []string{"UC1", "UC2", "UC3", "UC4"}, testCreds)
	assert.Equal(t, map[string]string{"UC1": "refreshed", "UC2": "refreshed", "UC3": "refreshed"}, tokens)
	assert.Equal(t, int32(1), oauth.refreshes.Load())
	assert.Equal(t, 1, st.tokenSets)

	var nilGuard *TokenGuard
	stored := nilGuard.ChannelTokens(context.Background(), accounts, []string{"UC1", "UC9"}, testCreds)
	assert.Equal(t, map[string]string{"UC1": "stored", "UC9": "other"}, stored)
}
