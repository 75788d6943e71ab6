package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"ytmanager-backend-go/internal/models"
)

func (s *Store) SystemConfig(ctx context.Context) (models.SystemConfig, error) {
	var row struct {
		models.SystemConfig
		APIKeys string `db:"api_keys"`
	}
	err := s.DB.GetContext(ctx, &row, `
SELECT client_id, client_secret, redirect_uri_override, api_keys, language
FROM system_config WHERE id = 1
`)
	if errors.Is(err, sql.ErrNoRows) {
		return models.SystemConfig{Language: "vi", APIKeys: []string{}}, nil
	}
	if err != nil {
		return models.SystemConfig{}, fmt.Errorf("system config: %w", err)
	}
	cfg := row.SystemConfig
	cfg.APIKeys = splitKeys(row.APIKeys)
	return cfg, nil
}

func (s *Store) SaveSystemConfig(ctx context.Context, cfg models.SystemConfig) error {
	_, err := s.DB.ExecContext(ctx, `
INSERT INTO system_config (id, client_id, client_secret, redirect_uri_override, api_keys, language, updated_at)
VALUES (1, $1, $2, $3, $4, $5, $6)
ON CONFLICT (id) DO UPDATE SET
  client_id = EXCLUDED.client_id,
  client_secret = EXCLUDED.client_secret,
  redirect_uri_override = EXCLUDED.redirect_uri_override,
  api_keys = EXCLUDED.api_keys,
  language = EXCLUDED.language,
  updated_at = EXCLUDED.updated_at
`, cfg.ClientID, cfg.ClientSecret, cfg.RedirectURIOverride, strings.Join(cfg.APIKeys, ","), cfg.Language, time.Now().UTC())
	return err
}

func (s *Store) AppendLog(ctx context.Context, level, message string) error {
	_, err := s.DB.ExecContext(ctx, `INSERT INTO system_logs (created_at, level, message) VALUES ($1, $2, $3)`, time.Now().UTC(), level, message)
	return err
}

// ListLogs returns the newest limit entries, newest first.
func (s *Store) ListLogs(ctx context.Context, limit int) ([]models.SystemLog, error) {
	logs := []models.SystemLog{}
	err := s.DB.SelectContext(ctx, &logs, `
SELECT id, created_at, level, message
FROM system_logs
ORDER BY created_at DESC, id DESC
LIMIT $1
`, limit)
	return logs, err
}

func (s *Store) ClearLogs(ctx context.Context) error {
	_, err := s.DB.ExecContext(ctx, `DELETE FROM system_logs`)
	return err
}

func splitKeys(raw string) []string {
	keys := []string{}
	for _, key := range strings.Split(raw, ",") {
		if key = strings.TrimSpace(key); key != "" {
			keys = append(keys, key)
		}
	}
	return keys
}
