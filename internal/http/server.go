package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"ytmanager-backend-go/internal/config"
	"ytmanager-backend-go/internal/metrics"
	"ytmanager-backend-go/internal/models"
	"ytmanager-backend-go/internal/services"
)

// Deps are the collaborators the server is built from.
type Deps struct {
	Store     services.Store
	Pinger    services.Pinger
	OAuth     services.OAuthProvider
	Directory services.ChannelDirectory
	Analytics services.AnalyticsSource
	Hub       *services.ChangeHub
}

type Server struct {
	Config    config.Config
	Tokens    services.TokenService
	Staff     *services.StaffService
	Channels  *services.ChannelService
	Engine    *services.Engine
	Analytics *services.AnalyticsService
	Linker    *services.Linker
	Accounts  *services.AccountService
	Settings  *services.SettingsService
	Hub       *services.ChangeHub
	Pinger    services.Pinger
	Now       func() time.Time
}

func NewServer(cfg config.Config, deps Deps) *Server {
	tokens := services.TokenService{
		Secret:     []byte(cfg.JWTSecret),
		Issuer:     cfg.JWTIssuer,
		AccessTTL:  time.Duration(cfg.AccessTTLSeconds) * time.Second,
		RefreshTTL: time.Duration(cfg.RefreshTTLSeconds) * time.Second,
	}
	var notifier services.Notifier
	if deps.Hub != nil {
		notifier = deps.Hub
	}
	st := deps.Store
	guard := &services.TokenGuard{OAuth: deps.OAuth, Accounts: st}
	return &Server{
		Config:   cfg,
		Tokens:   tokens,
		Staff:    &services.StaffService{Store: st, Tokens: tokens, Notifier: notifier},
		Channels: &services.ChannelService{Channels: st, Staff: st, Revenue: st, System: st, Notifier: notifier},
		Engine: &services.Engine{
			Staff:       st,
			Channels:    st,
			Revenue:     st,
			Accounts:    st,
			System:      st,
			Tokens:      guard,
			Analytics:   deps.Analytics,
			Concurrency: cfg.AnalyticsConcurrency,
		},
		Analytics: &services.AnalyticsService{
			Staff:       st,
			Channels:    st,
			Accounts:    st,
			System:      st,
			Tokens:      guard,
			Source:      deps.Analytics,
			Concurrency: cfg.AnalyticsConcurrency,
		},
		Linker: &services.Linker{
			System:       st,
			Channels:     st,
			Accounts:     st,
			OAuth:        deps.OAuth,
			Directory:    deps.Directory,
			Notifier:     notifier,
			PublicOrigin: cfg.PublicOrigin,
			TTL:          time.Duration(cfg.LinkFlowTTLSeconds) * time.Second,
		},
		Accounts: &services.AccountService{System: st, Tokens: guard},
		Settings: &services.SettingsService{System: st, PublicOrigin: cfg.PublicOrigin, Notifier: notifier},
		Hub:      deps.Hub,
		Pinger:   deps.Pinger,
		Now:      time.Now,
	}
}

func (s *Server) Router(ctx context.Context) http.Handler {
	r := chi.NewRouter()
	r.Use(RequestLogger)
	if len(s.Config.CorsOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   s.Config.CorsOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			AllowCredentials: false,
			MaxAge:           300,
		}))
	}
	auth := WithAuth(s.Tokens, s.Staff)

	r.Route("/api", func(api chi.Router) {
		api.Post("/auth/login", s.Login)
		api.Post("/auth/refresh", s.Refresh)

		api.Group(func(authed chi.Router) {
			authed.Use(auth)

			authed.Get("/me", s.Me)
			authed.Put("/me/password", s.ChangePassword)

			authed.Route("/users", func(users chi.Router) {
				users.Get("/", s.ListStaff)
				users.With(RequireAnyRole(models.RoleAdmin, models.RoleLeader)).Post("/", s.CreateStaff)
				users.Put("/{staffId}", s.UpdateStaff)
				users.With(RequireAnyRole(models.RoleAdmin, models.RoleLeader)).Delete("/{staffId}", s.DeleteStaff)
			})
			authed.Get("/teams", s.ListTeams)

			authed.Route("/channels", func(channels chi.Router) {
				channels.Get("/", s.ListChannels)
				channels.Get("/export", s.ExportChannels)
				channels.Get("/{channelId}/analytics", s.ChannelAnalytics)
				channels.Group(func(admin chi.Router) {
					admin.Use(RequireRole(models.RoleAdmin))
					admin.Post("/", s.SaveChannel)
					admin.Post("/assign", s.AssignChannels)
					admin.Delete("/{channelId}", s.DeleteChannel)
				})
			})

			authed.Route("/manual-revenue", func(revenue chi.Router) {
				revenue.Get("/", s.ListManualRevenue)
				revenue.Post("/", s.SaveManualRevenue)
				revenue.Put("/{channelId}/{year}/{month}", s.SaveManualRevenueMonth)
			})

			authed.Route("/reports", func(reports chi.Router) {
				reports.Get("/revenue", s.RevenueReport)
				reports.Get("/revenue/export", s.ExportRevenueReport)
				reports.Get("/analytics", s.AnalyticsOverview)
				reports.Get("/analytics/export", s.ExportAnalyticsOverview)
			})

			authed.Route("/oauth", func(oauth chi.Router) {
				oauth.Post("/flows", s.BeginLink)
				oauth.Get("/flows/{flowId}", s.LinkStatus)
				oauth.Post("/code", s.ReceiveCode)
			})

			authed.Get("/google-accounts", s.ListGoogleAccounts)

			authed.Route("/system", func(system chi.Router) {
				system.Get("/config", s.SystemConfig)
				system.With(RequireRole(models.RoleAdmin)).Post("/config", s.SaveSystemConfig)
				system.With(RequireRole(models.RoleAdmin)).Get("/logs", s.ListLogs)
				system.Post("/logs", s.AppendLog)
				system.With(RequireRole(models.RoleAdmin)).Delete("/logs", s.ClearLogs)
				system.With(RequireRole(models.RoleAdmin)).Get("/health", s.Health)
			})
		})
	})

	r.Get("/oauth2callback", s.OAuthCallback)
	r.Handle("/metrics", metrics.Handler())
	r.Get("/ws/changes", s.ChangesSocket)
	return r
}
