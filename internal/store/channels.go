package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"ytmanager-backend-go/internal/models"
)

const channelColumns = `id, name, niche, subscriber_count, view_count, status, gmail, thumbnail_url,
uploads_playlist_id, is_monetized, assigned_staff_id, network_name, revenue_share_percent,
channel_category, channel_origin, last_checked_at, created_at, updated_at`

func (s *Store) ListChannels(ctx context.Context) ([]models.Channel, error) {
	channels := []models.Channel{}
	err := s.DB.SelectContext(ctx, &channels, `SELECT `+channelColumns+` FROM channels ORDER BY name, id`)
	return channels, err
}

func (s *Store) GetChannel(ctx context.Context, id string) (models.Channel, error) {
	var channel models.Channel
	err := s.DB.GetContext(ctx, &channel, `SELECT `+channelColumns+` FROM channels WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return channel, fmt.Errorf("channel %s: %w", id, err)
	}
	return channel, err
}

// UpsertChannel inserts the channel or overwrites every mutable column of
// the existing row with the same id.
func (s *Store) UpsertChannel(ctx context.Context, channel models.Channel) error {
	now := time.Now().UTC()
	if channel.CreatedAt.IsZero() {
		channel.CreatedAt = now
	}
	channel.UpdatedAt = now
	_, err := s.DB.NamedExecContext(ctx, `
INSERT INTO channels (`+channelColumns+`)
VALUES (:id, :name, :niche, :subscriber_count, :view_count, :status, :gmail, :thumbnail_url,
        :uploads_playlist_id, :is_monetized, :assigned_staff_id, :network_name, :revenue_share_percent,
        :channel_category, :channel_origin, :last_checked_at, :created_at, :updated_at)
ON CONFLICT (id) DO UPDATE SET
  name = EXCLUDED.name,
  niche = EXCLUDED.niche,
  subscriber_count = EXCLUDED.subscriber_count,
  view_count = EXCLUDED.view_count,
  status = EXCLUDED.status,
  gmail = EXCLUDED.gmail,
  thumbnail_url = EXCLUDED.thumbnail_url,
  uploads_playlist_id = COALESCE(EXCLUDED.uploads_playlist_id, channels.uploads_playlist_id),
  is_monetized = EXCLUDED.is_monetized,
  assigned_staff_id = EXCLUDED.assigned_staff_id,
  network_name = EXCLUDED.network_name,
  revenue_share_percent = EXCLUDED.revenue_share_percent,
  channel_category = EXCLUDED.channel_category,
  channel_origin = EXCLUDED.channel_origin,
  last_checked_at = EXCLUDED.last_checked_at,
  updated_at = EXCLUDED.updated_at
`, channel)
	return err
}

func (s *Store) DeleteChannel(ctx context.Context, id string) error {
	res, err := s.DB.ExecContext(ctx, `DELETE FROM channels WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return affected(res, "channel", id)
}

// AssignChannels sets the assignee of every listed channel; nil unassigns.
func (s *Store) AssignChannels(ctx context.Context, staffID *string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	query, args, err := sqlx.In(`UPDATE channels SET assigned_staff_id = ?, updated_at = ? WHERE id IN (?)`, staffID, time.Now().UTC(), ids)
	if err != nil {
		return err
	}
	_, err = s.DB.ExecContext(ctx, s.DB.Rebind(query), args...)
	return err
}
