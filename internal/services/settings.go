package services

import (
	"context"
	"strings"

	"ytmanager-backend-go/internal/logging"
	"ytmanager-backend-go/internal/models"
)

const maxLogEntries = 300

var logLevels = map[string]bool{"INFO": true, "SUCCESS": true, "WARNING": true, "ERROR": true}

// ConfigView is the system configuration as shown to a viewer. The client
// secret is only included for administrators.
type ConfigView struct {
	ClientID            string   `json:"clientId"`
	ClientSecret        string   `json:"clientSecret,omitempty"`
	HasClientSecret     bool     `json:"hasClientSecret"`
	RedirectURIOverride string   `json:"redirectUriOverride"`
	RedirectURI         string   `json:"redirectUri"`
	APIKeys             []string `json:"apiKeys"`
	Language            string   `json:"language"`
}

type ConfigInput struct {
	ClientID            string   `json:"clientId"`
	ClientSecret        *string  `json:"clientSecret"`
	RedirectURIOverride string   `json:"redirectUriOverride"`
	APIKeys             []string `json:"apiKeys"`
	Language            string   `json:"language"`
}

type SettingsService struct {
	System       SystemStore
	PublicOrigin string
	Notifier     Notifier
}

func (s *SettingsService) Config(ctx context.Context, viewer models.StaffMember) (ConfigView, error) {
	cfg, err := s.System.SystemConfig(ctx)
	if err != nil {
		return ConfigView{}, err
	}
	return s.view(cfg, viewer), nil
}

func (s *SettingsService) view(cfg models.SystemConfig, viewer models.StaffMember) ConfigView {
	keys := cfg.APIKeys
	if keys == nil {
		keys = []string{}
	}
	view := ConfigView{
		ClientID:            cfg.ClientID,
		HasClientSecret:     cfg.ClientSecret != "",
		RedirectURIOverride: cfg.RedirectURIOverride,
		RedirectURI:         RedirectURI(cfg, s.PublicOrigin),
		APIKeys:             keys,
		Language:            cfg.Language,
	}
	if viewer.IsAdmin() {
		view.ClientSecret = cfg.ClientSecret
	}
	return view
}

// Save replaces the configuration. A nil secret keeps the stored one.
func (s *SettingsService) Save(ctx context.Context, viewer models.StaffMember, in ConfigInput) (ConfigView, error) {
	if !viewer.IsAdmin() {
		return ConfigView{}, ErrForbidden("Not allowed")
	}
	current, err := s.System.SystemConfig(ctx)
	if err != nil {
		return ConfigView{}, err
	}
	cfg := models.SystemConfig{
		ClientID:            strings.TrimSpace(in.ClientID),
		ClientSecret:        current.ClientSecret,
		RedirectURIOverride: strings.TrimSpace(in.RedirectURIOverride),
		Language:            strings.TrimSpace(in.Language),
	}
	if in.ClientSecret != nil {
		cfg.ClientSecret = strings.TrimSpace(*in.ClientSecret)
	}
	if cfg.Language == "" {
		cfg.Language = current.Language
	}
	for _, key := range in.APIKeys {
		if key = strings.TrimSpace(key); key != "" && !strings.Contains(key, ",") {
			cfg.APIKeys = append(cfg.APIKeys, key)
		}
	}
	if err := s.System.SaveSystemConfig(ctx, cfg); err != nil {
		return ConfigView{}, persistErr("save system config", err)
	}
	if err := s.System.AppendLog(ctx, "INFO", "System configuration updated by "+viewer.Name); err != nil {
		logging.Logger.Warn().Err(err).Msg("system log append failed")
	}
	notifierOr(s.Notifier).Notify("config", "system")
	return s.view(cfg, viewer), nil
}

func (s *SettingsService) Logs(ctx context.Context, viewer models.StaffMember) ([]models.SystemLog, error) {
	if !viewer.IsAdmin() {
		return nil, ErrForbidden("Not allowed")
	}
	return s.System.ListLogs(ctx, maxLogEntries)
}

func (s *SettingsService) AppendLog(ctx context.Context, level, message string) error {
	level = strings.ToUpper(strings.TrimSpace(level))
	if level == "" {
		level = "INFO"
	}
	if !logLevels[level] {
		return ErrBadRequest("Invalid log level")
	}
	message = strings.TrimSpace(message)
	if message == "" {
		return ErrBadRequest("Message is required")
	}
	return persistErr("append log", s.System.AppendLog(ctx, level, message))
}

func (s *SettingsService) ClearLogs(ctx context.Context, viewer models.StaffMember) error {
	if !viewer.IsAdmin() {
		return ErrForbidden("Not allowed")
	}
	return persistErr("clear logs", s.System.ClearLogs(ctx))
}
