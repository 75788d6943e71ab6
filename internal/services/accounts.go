package services

import (
	"context"
	"time"

	"ytmanager-backend-go/internal/logging"
	"ytmanager-backend-go/internal/models"
)

type LinkedAccountView struct {
	Email        string    `json:"email"`
	AccessToken  string    `json:"accessToken,omitempty"`
	RefreshToken string    `json:"refreshToken,omitempty"`
	ExpiryDate   time.Time `json:"expiryDate"`
	ChannelIDs   []string  `json:"channelIds"`
}

type AccountService struct {
	System SystemStore
	Tokens *TokenGuard
}

// List returns linked accounts with tokens refreshed through the guard.
// Token values are only exposed to administrators.
func (s *AccountService) List(ctx context.Context, viewer models.StaffMember) ([]LinkedAccountView, error) {
	cfg, err := s.System.SystemConfig(ctx)
	if err != nil {
		logging.Logger.Warn().Err(err).Msg("system config unavailable, token refresh disabled")
	}
	accounts, err := s.Tokens.FreshAccounts(ctx, credentialsOf(cfg))
	if err != nil {
		return nil, err
	}
	views := make([]LinkedAccountView, 0, len(accounts))
	for _, account := range accounts {
		ids := account.OwnedChannelIDs
		if ids == nil {
			ids = []string{}
		}
		view := LinkedAccountView{Email: account.Email, ExpiryDate: account.ExpiryDate, ChannelIDs: ids}
		if viewer.IsAdmin() {
			view.AccessToken = account.AccessToken
			view.RefreshToken = account.RefreshToken
		}
		views = append(views, view)
	}
	return views, nil
}
