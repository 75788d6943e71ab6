package config

import (
	"os"
	"strconv"
	"strings"
)

// Config holds runtime configuration loaded from environment variables.
// OAuth client credentials are not here: administrators edit them at
// runtime in the system_config row.
type Config struct {
	DatabaseURL           string
	JWTSecret             string
	JWTIssuer             string
	AccessTTLSeconds      int64
	RefreshTTLSeconds     int64
	CorsOrigins           []string
	PublicOrigin          string
	RedisURL              string
	AnalyticsCacheSeconds int
	AnalyticsConcurrency  int
	LinkFlowTTLSeconds    int
	HealthDiskPath        string
	LogLevel              string
	LogDir                string
	LogRetentionDays      int
	Port                  string
}

func Load() Config {
	return Config{
		DatabaseURL:           mustEnv("DATABASE_URL"),
		JWTSecret:             mustEnv("JWT_SECRET"),
		JWTIssuer:             envOr("JWT_ISSUER", "ytmanager"),
		AccessTTLSeconds:      int64(envOrInt("ACCESS_TTL_SECONDS", 14400)),
		RefreshTTLSeconds:     int64(envOrInt("REFRESH_TTL_SECONDS", 1209600)),
		CorsOrigins:           parseCSV(envOr("CORS_ORIGINS", "")),
		PublicOrigin:          strings.TrimRight(envOr("PUBLIC_ORIGIN", "http://localhost:5173"), "/"),
		RedisURL:              envOr("REDIS_URL", ""),
		AnalyticsCacheSeconds: envOrInt("ANALYTICS_CACHE_SECONDS", 600),
		AnalyticsConcurrency:  envOrInt("ANALYTICS_CONCURRENCY", 8),
		LinkFlowTTLSeconds:    envOrInt("LINK_FLOW_TTL_SECONDS", 900),
		HealthDiskPath:        envOr("HEALTH_DISK_PATH", "/"),
		LogLevel:              envOr("LOG_LEVEL", "info"),
		LogDir:                envOr("LOG_DIR", "storage/logs"),
		LogRetentionDays:      envOrInt("LOG_RETENTION_DAYS", 7),
		Port:                  envOr("PORT", "8080"),
	}
}

func mustEnv(key string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		panic("missing env var: " + key)
	}
	return value
}

func envOr(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func envOrInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func parseCSV(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	items := make([]string, 0, len(parts))
	for _, part := range parts {
		value := strings.TrimSpace(part)
		if value != "" {
			items = append(items, value)
		}
	}
	return items
}
