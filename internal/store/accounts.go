package store

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"ytmanager-backend-go/internal/models"
)

func (s *Store) ListLinkedAccounts(ctx context.Context) ([]models.GoogleAccount, error) {
	accounts := []models.GoogleAccount{}
	if err := s.DB.SelectContext(ctx, &accounts, `
SELECT email, access_token, refresh_token, expiry_date, created_at, updated_at
FROM google_accounts
ORDER BY email
`); err != nil {
		return nil, err
	}
	type owned struct {
		ChannelID string `db:"channel_id"`
		Email     string `db:"account_email"`
	}
	rows := []owned{}
	if err := s.DB.SelectContext(ctx, &rows, `SELECT channel_id, account_email FROM account_channels ORDER BY channel_id`); err != nil {
		return nil, err
	}
	byEmail := map[string][]string{}
	for _, row := range rows {
		byEmail[row.Email] = append(byEmail[row.Email], row.ChannelID)
	}
	for i := range accounts {
		accounts[i].OwnedChannelIDs = byEmail[accounts[i].Email]
		if accounts[i].OwnedChannelIDs == nil {
			accounts[i].OwnedChannelIDs = []string{}
		}
	}
	return accounts, nil
}

// UpsertLinkedAccount saves the account and makes it the owner of ownedIDs.
// An empty refresh token keeps the stored one.
func (s *Store) UpsertLinkedAccount(ctx context.Context, account models.GoogleAccount, ownedIDs []string) error {
	now := time.Now().UTC()
	return s.tx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO google_accounts (email, access_token, refresh_token, expiry_date, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $5)
ON CONFLICT (email) DO UPDATE SET
  access_token = EXCLUDED.access_token,
  refresh_token = COALESCE(NULLIF(EXCLUDED.refresh_token, ''), google_accounts.refresh_token),
  expiry_date = EXCLUDED.expiry_date,
  updated_at = EXCLUDED.updated_at
`, account.Email, account.AccessToken, account.RefreshToken, account.ExpiryDate, now); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM account_channels WHERE account_email = $1`, account.Email); err != nil {
			return err
		}
		for _, id := range ownedIDs {
			if _, err := tx.ExecContext(ctx, `
INSERT INTO account_channels (channel_id, account_email) VALUES ($1, $2)
ON CONFLICT (channel_id) DO UPDATE SET account_email = EXCLUDED.account_email
`, id, account.Email); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) UpdateAccountToken(ctx context.Context, email, accessToken string, expiry time.Time) error {
	res, err := s.DB.ExecContext(ctx, `
UPDATE google_accounts SET access_token = $2, expiry_date = $3, updated_at = $4 WHERE email = $1
`, email, accessToken, expiry, time.Now().UTC())
	if err != nil {
		return err
	}
	return affected(res, "google account", email)
}
