package store

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"ytmanager-backend-go/internal/models"
)

const upsertManualRevenue = `
INSERT INTO manual_revenue (channel_id, year, month, amount, updated_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (channel_id, year, month) DO UPDATE SET amount = EXCLUDED.amount, updated_at = EXCLUDED.updated_at
`

func (s *Store) ManualRevenue(ctx context.Context, year int, channelID string) ([]models.ManualRevenueEntry, error) {
	entries := []models.ManualRevenueEntry{}
	if channelID == "" {
		err := s.DB.SelectContext(ctx, &entries, `
SELECT channel_id, year, month, amount, updated_at
FROM manual_revenue
WHERE year = $1
ORDER BY channel_id, month
`, year)
		return entries, err
	}
	err := s.DB.SelectContext(ctx, &entries, `
SELECT channel_id, year, month, amount, updated_at
FROM manual_revenue
WHERE year = $1 AND channel_id = $2
ORDER BY month
`, year, channelID)
	return entries, err
}

// SetManualRevenue overwrites all twelve months in one transaction.
func (s *Store) SetManualRevenue(ctx context.Context, channelID string, year int, monthly [12]decimal.Decimal) error {
	now := time.Now().UTC()
	return s.tx(ctx, func(tx *sqlx.Tx) error {
		for i, amount := range monthly {
			if _, err := tx.ExecContext(ctx, upsertManualRevenue, channelID, year, i+1, amount, now); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) SetManualRevenueMonth(ctx context.Context, channelID string, year, month int, amount decimal.Decimal) error {
	_, err := s.DB.ExecContext(ctx, upsertManualRevenue, channelID, year, month, amount, time.Now().UTC())
	return err
}
