package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"ytmanager-backend-go/internal/config"
	"ytmanager-backend-go/internal/db"
	httpapi "ytmanager-backend-go/internal/http"
	"ytmanager-backend-go/internal/logging"
	"ytmanager-backend-go/internal/metrics"
	"ytmanager-backend-go/internal/migrations"
	"ytmanager-backend-go/internal/models"
	"ytmanager-backend-go/internal/services"
	"ytmanager-backend-go/internal/store"
	"ytmanager-backend-go/internal/youtube"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	closeLogs, err := logging.Init(cfg.LogLevel, cfg.LogDir, cfg.LogRetentionDays)
	if err != nil {
		logging.Logger.Warn().Err(err).Msg("file logging disabled")
	}
	defer closeLogs()
	log := logging.Logger

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	database, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("db")
	}
	defer database.Close()
	if err := migrations.Apply(ctx, database); err != nil {
		log.Fatal().Err(err).Msg("migrations")
	}
	st := store.New(database)
	if err := seedAdmin(ctx, st, cfg); err != nil {
		log.Fatal().Err(err).Msg("seed admin")
	}
	metrics.Register()

	var analytics services.AnalyticsSource = &youtube.Analytics{}
	if cfg.RedisURL != "" {
		cache, err := youtube.NewRedisCache(ctx, cfg.RedisURL)
		if err != nil {
			log.Warn().Err(err).Msg("analytics cache disabled")
		} else {
			defer cache.Close()
			analytics = &youtube.CachedAnalytics{
				Next:   analytics,
				Cache:  cache,
				TTL:    time.Duration(cfg.AnalyticsCacheSeconds) * time.Second,
				Logger: log,
			}
		}
	}

	hub := services.NewChangeHub()
	go hub.Run(ctx)

	server := httpapi.NewServer(cfg, httpapi.Deps{
		Store:     st,
		Pinger:    st,
		OAuth:     youtube.NewOAuth(),
		Directory: &youtube.Directory{},
		Analytics: analytics,
		Hub:       hub,
	})

	addr := ":" + cfg.Port
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           server.Router(ctx),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGTERM, syscall.SIGINT)
	<-stop
	cancel()
	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	_ = httpServer.Shutdown(ctxShutdown)
	log.Info().Msg("shutdown complete")
}

// seedAdmin creates the first administrator on an empty database from
// ADMIN_EMAIL and ADMIN_PASSWORD.
func seedAdmin(ctx context.Context, st *store.Store, cfg config.Config) error {
	count, err := st.CountStaff(ctx)
	if err != nil || count > 0 {
		return err
	}
	email := os.Getenv("ADMIN_EMAIL")
	if email == "" {
		logging.Logger.Warn().Msg("no staff and ADMIN_EMAIL unset, skipping admin seed")
		return nil
	}
	password := os.Getenv("ADMIN_PASSWORD")
	if password == "" {
		password = services.DefaultPassword
	}
	staff := &services.StaffService{Store: st, Tokens: services.TokenService{Secret: []byte(cfg.JWTSecret), Issuer: cfg.JWTIssuer}}
	bootstrap := models.StaffMember{ID: "bootstrap", Role: models.RoleAdmin}
	member, err := staff.Create(ctx, bootstrap, services.StaffInput{
		Name:     "Administrator",
		Email:    email,
		Password: password,
		Role:     models.RoleAdmin,
	})
	if err != nil {
		return err
	}
	logging.Logger.Info().Str("email", member.Email).Msg("seeded administrator")
	return nil
}
