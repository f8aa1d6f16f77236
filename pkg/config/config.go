package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database      DatabaseConfig
	Redis         RedisConfig
	JWT           JWTConfig
	CORS          CORSConfig
	Log           LogConfig
	Cache         CacheConfig
	Booking       BookingConfig
	EditTokens    EditTokenConfig
	Mail          MailConfig
	Notifications NotificationsConfig
	NATS          NATSConfig
	RateLimit     RateLimitConfig
	Feed          FeedConfig
	Export        ExportConfig
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
	Expiration time.Duration
	Issuer     string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// CacheConfig governs the weekly availability cache.
type CacheConfig struct {
	Enabled bool
	TTL     time.Duration
}

// BookingConfig holds the calendar and lead-time policy for reservations.
type BookingConfig struct {
	Timezone           string
	LeadTime           time.Duration
	PrivilegedLeadTime time.Duration
}

// EditTokenConfig configures reservation edit capability tokens.
type EditTokenConfig struct {
	Secret string
	TTL    time.Duration
}

// MailConfig selects the outbound mail provider.
type MailConfig struct {
	Provider        string
	SendGridAPIKey  string
	FromName        string
	FromAddress     string
	OperatorAddress string
}

// NotificationsConfig sizes the notification worker pool.
type NotificationsConfig struct {
	Enabled    bool
	Workers    int
	MaxRetries int
	RetryDelay time.Duration
}

// NATSConfig enables domain event publishing.
type NATSConfig struct {
	URL           string
	SubjectPrefix string
}

// RateLimitConfig throttles reservation creation per client IP.
type RateLimitConfig struct {
	RequestsPerMinute int
	Burst             int
}

// FeedConfig controls live reservation feed behaviour.
type FeedConfig struct {
	Channel        string
	Heartbeat      time.Duration
	ReconnectDelay time.Duration
}

// ExportConfig points the PDF exporter at a TrueType font with Hangul glyphs.
type ExportConfig struct {
	PDFFontPath string
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
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	return fromViper(v), nil
}

func fromViper(v *viper.Viper) *Config {
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
	}

	cfg.Redis = RedisConfig{
		Enabled:  v.GetBool("REDIS_ENABLED"),
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:     v.GetString("JWT_SECRET"),
		Expiration: parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
		Issuer:     v.GetString("JWT_ISSUER"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Cache = CacheConfig{
		Enabled: v.GetBool("ENABLE_AVAILABILITY_CACHE"),
		TTL:     parseDuration(v.GetString("AVAILABILITY_CACHE_TTL"), 10*time.Minute),
	}

	cfg.Booking = BookingConfig{
		Timezone:           v.GetString("BOOKING_TIMEZONE"),
		LeadTime:           parseDuration(v.GetString("BOOKING_LEAD_TIME"), 30*time.Minute),
		PrivilegedLeadTime: parseDuration(v.GetString("BOOKING_PRIVILEGED_LEAD_TIME"), 0),
	}

	cfg.EditTokens = EditTokenConfig{
		Secret: v.GetString("EDIT_TOKEN_SECRET"),
		TTL:    parseDuration(v.GetString("EDIT_TOKEN_TTL"), 30*24*time.Hour),
	}

	cfg.Mail = MailConfig{
		Provider:        strings.ToLower(v.GetString("MAIL_PROVIDER")),
		SendGridAPIKey:  v.GetString("SENDGRID_API_KEY"),
		FromName:        v.GetString("MAIL_FROM_NAME"),
		FromAddress:     v.GetString("MAIL_FROM_ADDRESS"),
		OperatorAddress: v.GetString("MAIL_OPERATOR_ADDRESS"),
	}

	cfg.Notifications = NotificationsConfig{
		Enabled:    v.GetBool("ENABLE_NOTIFICATIONS"),
		Workers:    v.GetInt("NOTIFICATION_WORKERS"),
		MaxRetries: v.GetInt("NOTIFICATION_MAX_RETRIES"),
		RetryDelay: parseDuration(v.GetString("NOTIFICATION_RETRY_DELAY"), 5*time.Second),
	}

	cfg.NATS = NATSConfig{
		URL:           v.GetString("NATS_URL"),
		SubjectPrefix: v.GetString("NATS_SUBJECT_PREFIX"),
	}

	cfg.RateLimit = RateLimitConfig{
		RequestsPerMinute: v.GetInt("RESERVATION_RATE_PER_MINUTE"),
		Burst:             v.GetInt("RESERVATION_RATE_BURST"),
	}

	cfg.Feed = FeedConfig{
		Channel:        v.GetString("FEED_CHANNEL"),
		Heartbeat:      parseDuration(v.GetString("FEED_HEARTBEAT"), 25*time.Second),
		ReconnectDelay: parseDuration(v.GetString("FEED_RECONNECT_DELAY"), 2*time.Second),
	}

	cfg.Export = ExportConfig{PDFFontPath: v.GetString("EXPORT_PDF_FONT")}

	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "tutor_booking")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_ENABLED", true)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "24h")
	v.SetDefault("JWT_ISSUER", "tutor-booking-api")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("ENABLE_AVAILABILITY_CACHE", true)
	v.SetDefault("AVAILABILITY_CACHE_TTL", "10m")

	v.SetDefault("BOOKING_TIMEZONE", "Asia/Seoul")
	v.SetDefault("BOOKING_LEAD_TIME", "30m")
	v.SetDefault("BOOKING_PRIVILEGED_LEAD_TIME", "0s")

	v.SetDefault("EDIT_TOKEN_SECRET", "dev_edit_token_secret")
	v.SetDefault("EDIT_TOKEN_TTL", "720h")

	v.SetDefault("MAIL_PROVIDER", "log")
	v.SetDefault("SENDGRID_API_KEY", "")
	v.SetDefault("MAIL_FROM_NAME", "Tutor Booking")
	v.SetDefault("MAIL_FROM_ADDRESS", "no-reply@localhost")
	v.SetDefault("MAIL_OPERATOR_ADDRESS", "")

	v.SetDefault("ENABLE_NOTIFICATIONS", true)
	v.SetDefault("NOTIFICATION_WORKERS", 2)
	v.SetDefault("NOTIFICATION_MAX_RETRIES", 3)
	v.SetDefault("NOTIFICATION_RETRY_DELAY", "5s")

	v.SetDefault("NATS_URL", "")
	v.SetDefault("NATS_SUBJECT_PREFIX", "booking")

	v.SetDefault("RESERVATION_RATE_PER_MINUTE", 30)
	v.SetDefault("RESERVATION_RATE_BURST", 10)

	v.SetDefault("FEED_CHANNEL", "reservations:changed")
	v.SetDefault("FEED_HEARTBEAT", "25s")
	v.SetDefault("FEED_RECONNECT_DELAY", "2s")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
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
