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

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database      DatabaseConfig
	Redis         RedisConfig
	JWT           JWTConfig
	CORS          CORSConfig
	Log           LogConfig
	Admission     AdmissionConfig
	Retry         RetryConfig
	Bounce        BounceConfig
	Notifications NotificationsConfig
	Delivery      DeliveryConfig
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
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// AdmissionConfig tunes the admission path.
type AdmissionConfig struct {
	OfferingCacheTTL time.Duration
}

// RetryConfig governs the redelivery scheduler and its background sweep.
type RetryConfig struct {
	MaxRetries    int
	BaseBackoff   time.Duration
	BatchSize     int
	SweepInterval time.Duration
}

// BounceConfig governs bounce-rate monitoring thresholds. Rates are
// percentages (0-100).
type BounceConfig struct {
	WindowHours         int
	RateThreshold       float64
	CriticalThreshold   float64
	MinVolume           int
	CheckInterval       time.Duration
	DailyReportInterval time.Duration
}

// NotificationsConfig sizes the in-process dispatch queue.
type NotificationsConfig struct {
	Workers    int
	BufferSize int
}

// DeliveryConfig points at the hosted messaging backend.
type DeliveryConfig struct {
	BaseURL string
	Timeout time.Duration
}

// ExportConfig governs report export archival and download tokens.
type ExportConfig struct {
	Dir       string
	TokenTTL  time.Duration
	Retention time.Duration
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
		if !errors.As(err, &notFound) {
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
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{Secret: v.GetString("JWT_SECRET")}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Admission = AdmissionConfig{
		OfferingCacheTTL: parseDuration(v.GetString("OFFERING_CACHE_TTL"), 10*time.Minute),
	}

	cfg.Retry = RetryConfig{
		MaxRetries:    v.GetInt("RETRY_MAX_RETRIES"),
		BaseBackoff:   parseDuration(v.GetString("RETRY_BASE_BACKOFF"), 30*time.Minute),
		BatchSize:     v.GetInt("RETRY_BATCH_SIZE"),
		SweepInterval: parseDuration(v.GetString("RETRY_SWEEP_INTERVAL"), time.Minute),
	}

	cfg.Bounce = BounceConfig{
		WindowHours:         v.GetInt("BOUNCE_WINDOW_HOURS"),
		RateThreshold:       v.GetFloat64("BOUNCE_RATE_THRESHOLD"),
		CriticalThreshold:   v.GetFloat64("BOUNCE_CRITICAL_THRESHOLD"),
		MinVolume:           v.GetInt("BOUNCE_MIN_VOLUME"),
		CheckInterval:       parseDuration(v.GetString("BOUNCE_CHECK_INTERVAL"), time.Hour),
		DailyReportInterval: parseDuration(v.GetString("DAILY_REPORT_INTERVAL"), 24*time.Hour),
	}

	cfg.Notifications = NotificationsConfig{
		Workers:    v.GetInt("NOTIFY_WORKERS"),
		BufferSize: v.GetInt("NOTIFY_BUFFER"),
	}

	cfg.Delivery = DeliveryConfig{
		BaseURL: v.GetString("DELIVERY_BASE_URL"),
		Timeout: parseDuration(v.GetString("DELIVERY_TIMEOUT"), 10*time.Second),
	}

	cfg.Export = ExportConfig{
		Dir:       v.GetString("EXPORT_DIR"),
		TokenTTL:  parseDuration(v.GetString("EXPORT_TOKEN_TTL"), 24*time.Hour),
		Retention: parseDuration(v.GetString("EXPORT_RETENTION"), 7*24*time.Hour),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "training_admin")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("OFFERING_CACHE_TTL", "10m")

	v.SetDefault("RETRY_MAX_RETRIES", 3)
	v.SetDefault("RETRY_BASE_BACKOFF", "30m")
	v.SetDefault("RETRY_BATCH_SIZE", 50)
	v.SetDefault("RETRY_SWEEP_INTERVAL", "1m")

	v.SetDefault("BOUNCE_WINDOW_HOURS", 24)
	v.SetDefault("BOUNCE_RATE_THRESHOLD", 10)
	v.SetDefault("BOUNCE_CRITICAL_THRESHOLD", 20)
	v.SetDefault("BOUNCE_MIN_VOLUME", 10)
	v.SetDefault("BOUNCE_CHECK_INTERVAL", "1h")
	v.SetDefault("DAILY_REPORT_INTERVAL", "24h")

	v.SetDefault("NOTIFY_WORKERS", 2)
	v.SetDefault("NOTIFY_BUFFER", 64)

	v.SetDefault("DELIVERY_BASE_URL", "http://localhost:3100")
	v.SetDefault("DELIVERY_TIMEOUT", "10s")

	v.SetDefault("EXPORT_DIR", "./exports")
	v.SetDefault("EXPORT_TOKEN_TTL", "24h")
	v.SetDefault("EXPORT_RETENTION", "168h")
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
