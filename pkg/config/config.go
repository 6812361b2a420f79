package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// CompletionPolicy decides what happens to a calendar event when its homework is completed.
type CompletionPolicy string

const (
	// CompletionDelete removes the event on completion and re-creates it on reopen.
	CompletionDelete CompletionPolicy = "delete"
	// CompletionKeep leaves the event untouched by status changes.
	CompletionKeep CompletionPolicy = "keep"
	// CompletionResync rewrites the event title to mark the homework as completed.
	CompletionResync CompletionPolicy = "resync"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database     DatabaseConfig
	Redis        RedisConfig
	JWT          JWTConfig
	CORS         CORSConfig
	Log          LogConfig
	Google       GoogleConfig
	CalendarSync CalendarSyncConfig
	Dashboard    DashboardConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	AutoMigrate  bool
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret     string
	Issuer     string
	Expiration time.Duration
	StateTTL   time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// GoogleConfig carries the OAuth client and Calendar API settings.
type GoogleConfig struct {
	ClientID         string
	ClientSecret     string
	RedirectURL      string
	CalendarID       string
	CalendarEndpoint string
	RateLimitPerMin  int
}

// Configured reports whether OAuth client credentials are present.
func (g GoogleConfig) Configured() bool {
	return g.ClientID != "" && g.ClientSecret != ""
}

// CalendarSyncConfig controls the homework ↔ calendar synchronisation.
type CalendarSyncConfig struct {
	Enabled          bool
	RequestTimeout   time.Duration
	CompletionPolicy CompletionPolicy
	RecordLockTTL    time.Duration
}

// DashboardConfig controls the dashboard summary, cached in Redis when enabled.
type DashboardConfig struct {
	CacheTTL time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !isMissingFile(err) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
		AutoMigrate:  v.GetBool("DB_AUTO_MIGRATE"),
	}

	cfg.Redis = RedisConfig{
		Enabled:  v.GetBool("ENABLE_REDIS_LOCKS"),
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:     v.GetString("JWT_SECRET"),
		Issuer:     v.GetString("JWT_ISSUER"),
		Expiration: parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
		StateTTL:   parseDuration(v.GetString("OAUTH_STATE_TTL"), 10*time.Minute),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Google = GoogleConfig{
		ClientID:         v.GetString("GOOGLE_CLIENT_ID"),
		ClientSecret:     v.GetString("GOOGLE_CLIENT_SECRET"),
		RedirectURL:      v.GetString("GOOGLE_REDIRECT_URL"),
		CalendarID:       v.GetString("GOOGLE_CALENDAR_ID"),
		CalendarEndpoint: v.GetString("GOOGLE_CALENDAR_ENDPOINT"),
		RateLimitPerMin:  v.GetInt("CALENDAR_RATE_LIMIT_PER_MIN"),
	}

	cfg.CalendarSync = CalendarSyncConfig{
		Enabled:          v.GetBool("ENABLE_CALENDAR_SYNC"),
		RequestTimeout:   parseDuration(v.GetString("CALENDAR_REQUEST_TIMEOUT"), 5*time.Second),
		CompletionPolicy: ParseCompletionPolicy(v.GetString("CALENDAR_COMPLETION_POLICY")),
		RecordLockTTL:    parseDuration(v.GetString("RECORD_LOCK_TTL"), 30*time.Second),
	}

	cfg.Dashboard = DashboardConfig{
		CacheTTL: parseDuration(v.GetString("DASHBOARD_CACHE_TTL"), time.Minute),
	}

	return cfg, nil
}

// ParseCompletionPolicy maps a raw value onto a known policy, defaulting to delete.
func ParseCompletionPolicy(raw string) CompletionPolicy {
	switch CompletionPolicy(strings.ToLower(strings.TrimSpace(raw))) {
	case CompletionKeep:
		return CompletionKeep
	case CompletionResync:
		return CompletionResync
	default:
		return CompletionDelete
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "homework_app")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_AUTO_MIGRATE", true)

	v.SetDefault("ENABLE_REDIS_LOCKS", false)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_ISSUER", "sma-homework-api")
	v.SetDefault("JWT_EXPIRATION", "168h")
	v.SetDefault("OAUTH_STATE_TTL", "10m")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("GOOGLE_CLIENT_ID", "")
	v.SetDefault("GOOGLE_CLIENT_SECRET", "")
	v.SetDefault("GOOGLE_REDIRECT_URL", "http://localhost:3000/auth/callback")
	v.SetDefault("GOOGLE_CALENDAR_ID", "primary")
	v.SetDefault("GOOGLE_CALENDAR_ENDPOINT", "")
	v.SetDefault("CALENDAR_RATE_LIMIT_PER_MIN", 120)

	v.SetDefault("ENABLE_CALENDAR_SYNC", true)
	v.SetDefault("CALENDAR_REQUEST_TIMEOUT", "5s")
	v.SetDefault("CALENDAR_COMPLETION_POLICY", string(CompletionDelete))
	v.SetDefault("RECORD_LOCK_TTL", "30s")

	v.SetDefault("DASHBOARD_CACHE_TTL", "1m")
}

func isMissingFile(err error) bool {
	return strings.Contains(err.Error(), "no such file or directory")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
