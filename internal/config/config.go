package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App       AppConfig
	Server    ServerConfig
	Database  DatabaseConfig
	JWT       JWTConfig
	Log       LogConfig
	Tracing   TracingConfig
	CORS      CORSConfig
	RateLimit RateLimitConfig
	Redis     RedisConfig
	Holidays  HolidayConfig
	Events    EventsConfig
	Sweep     SweepConfig
}

type AppConfig struct {
	Name        string
	Environment string
	Version     string
	// Timezone is the clinic location every wall-clock date and time is read in.
	Timezone string
}

// Location resolves Timezone. It is checked by validate, so Load callers can
// rely on it.
func (a AppConfig) Location() *time.Location {
	loc, err := time.LoadLocation(a.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

func (s ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type DatabaseConfig struct {
	Host               string
	Port               int
	Name               string
	User               string
	Password           string
	SSLMode            string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetime    time.Duration
	ConnMaxIdleTime    time.Duration
	SlowQueryThreshold time.Duration
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=%s TimeZone=UTC",
		d.Host, d.User, d.Password, d.Name, d.Port, d.SSLMode,
	)
}

type JWTConfig struct {
	Secret         string
	AccessTokenTTL time.Duration
	Issuer         string
}

type LogConfig struct {
	Level  string
	Format string
	// OutputPath is stdout, stderr or a file path rotated by size.
	OutputPath string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

type TracingConfig struct {
	Enabled     bool
	ServiceName string
	Endpoint    string
	SampleRate  float64
}

type CORSConfig struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
	MaxAge         time.Duration
}

type RateLimitConfig struct {
	// Per client IP.
	RequestsPerSecond float64
	BurstSize         int
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type HolidayConfig struct {
	// Source is "static" or "http".
	Source string
	// Dates are MM-DD values repeated every year for the static source.
	Dates []string
	// URL is a template with a single %d for the year.
	URL      string
	Timeout  time.Duration
	CacheTTL time.Duration
}

type EventsConfig struct {
	Enabled bool
	Brokers []string
	Topic   string
}

type SweepConfig struct {
	Enabled bool
	// Interval is an asynq cron spec such as "@every 5m".
	Interval  string
	BatchSize int
	Queue     string
}

var defaults = map[string]any{
	"APP_NAME":     "clinicflow",
	"APP_ENV":      "development",
	"APP_VERSION":  "0.0.0",
	"APP_TIMEZONE": "UTC",

	"SERVER_HOST":             "0.0.0.0",
	"SERVER_PORT":             8080,
	"SERVER_READ_TIMEOUT":     "15s",
	"SERVER_WRITE_TIMEOUT":    "15s",
	"SERVER_IDLE_TIMEOUT":     "60s",
	"SERVER_SHUTDOWN_TIMEOUT": "30s",

	"DB_HOST":                 "localhost",
	"DB_PORT":                 5432,
	"DB_NAME":                 "clinicflow",
	"DB_USER":                 "clinicflow",
	"DB_PASSWORD":             "",
	"DB_SSLMODE":              "require",
	"DB_MAX_OPEN_CONNS":       25,
	"DB_MAX_IDLE_CONNS":       10,
	"DB_CONN_MAX_LIFETIME":    "30m",
	"DB_CONN_MAX_IDLE_TIME":   "5m",
	"DB_SLOW_QUERY_THRESHOLD": "200ms",

	"JWT_SECRET":     "",
	"JWT_ACCESS_TTL": "15m",
	"JWT_ISSUER":     "clinicflow-api",

	"LOG_LEVEL":        "info",
	"LOG_FORMAT":       "json",
	"LOG_OUTPUT":       "stdout",
	"LOG_MAX_SIZE_MB":  100,
	"LOG_MAX_BACKUPS":  5,
	"LOG_MAX_AGE_DAYS": 28,
	"LOG_COMPRESS":     true,

	"TRACING_ENABLED":      false,
	"TRACING_SERVICE_NAME": "clinicflow-api",
	"OTLP_ENDPOINT":        "otel-collector:4318",
	"TRACING_SAMPLE_RATE":  0.1,

	"CORS_ALLOWED_ORIGINS": "http://localhost:3000",
	"CORS_ALLOWED_METHODS": "GET,POST,PUT,PATCH,DELETE,OPTIONS",
	"CORS_ALLOWED_HEADERS": "Authorization,Content-Type,X-Request-ID",
	"CORS_MAX_AGE":         "12h",

	"RATE_LIMIT_RPS":   100,
	"RATE_LIMIT_BURST": 200,

	"REDIS_ADDR":     "localhost:6379",
	"REDIS_PASSWORD": "",
	"REDIS_DB":       0,

	"HOLIDAYS_SOURCE":    "static",
	"HOLIDAYS_DATES":     "01-01,01-11,05-01,07-30,08-14,08-20,08-21,11-06,11-18",
	"HOLIDAYS_URL":       "",
	"HOLIDAYS_TIMEOUT":   "5s",
	"HOLIDAYS_CACHE_TTL": "24h",

	"EVENTS_ENABLED": false,
	"KAFKA_BROKERS":  "localhost:9092",
	"EVENTS_TOPIC":   "clinicflow.bookings",

	"SWEEP_ENABLED":    true,
	"SWEEP_INTERVAL":   "@every 5m",
	"SWEEP_BATCH_SIZE": 500,
	"SWEEP_QUEUE":      "maintenance",
}

// Load reads the environment, then an optional .env file in the working
// directory, falling back to defaults.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	for key, val := range defaults {
		v.SetDefault(key, val)
	}
	// Missing .env is fine.
	_ = v.ReadInConfig()

	cfg := fromViper(v)
	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func fromViper(v *viper.Viper) *Config {
	return &Config{
		App: AppConfig{
			Name:        v.GetString("APP_NAME"),
			Environment: v.GetString("APP_ENV"),
			Version:     v.GetString("APP_VERSION"),
			Timezone:    v.GetString("APP_TIMEZONE"),
		},
		Server: ServerConfig{
			Host:            v.GetString("SERVER_HOST"),
			Port:            v.GetInt("SERVER_PORT"),
			ReadTimeout:     v.GetDuration("SERVER_READ_TIMEOUT"),
			WriteTimeout:    v.GetDuration("SERVER_WRITE_TIMEOUT"),
			IdleTimeout:     v.GetDuration("SERVER_IDLE_TIMEOUT"),
			ShutdownTimeout: v.GetDuration("SERVER_SHUTDOWN_TIMEOUT"),
		},
		Database: DatabaseConfig{
			Host:               v.GetString("DB_HOST"),
			Port:               v.GetInt("DB_PORT"),
			Name:               v.GetString("DB_NAME"),
			User:               v.GetString("DB_USER"),
			Password:           v.GetString("DB_PASSWORD"),
			SSLMode:            v.GetString("DB_SSLMODE"),
			MaxOpenConns:       v.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns:       v.GetInt("DB_MAX_IDLE_CONNS"),
			ConnMaxLifetime:    v.GetDuration("DB_CONN_MAX_LIFETIME"),
			ConnMaxIdleTime:    v.GetDuration("DB_CONN_MAX_IDLE_TIME"),
			SlowQueryThreshold: v.GetDuration("DB_SLOW_QUERY_THRESHOLD"),
		},
		JWT: JWTConfig{
			Secret:         v.GetString("JWT_SECRET"),
			AccessTokenTTL: v.GetDuration("JWT_ACCESS_TTL"),
			Issuer:         v.GetString("JWT_ISSUER"),
		},
		Log: LogConfig{
			Level:      v.GetString("LOG_LEVEL"),
			Format:     v.GetString("LOG_FORMAT"),
			OutputPath: v.GetString("LOG_OUTPUT"),
			MaxSizeMB:  v.GetInt("LOG_MAX_SIZE_MB"),
			MaxBackups: v.GetInt("LOG_MAX_BACKUPS"),
			MaxAgeDays: v.GetInt("LOG_MAX_AGE_DAYS"),
			Compress:   v.GetBool("LOG_COMPRESS"),
		},
		Tracing: TracingConfig{
			Enabled:     v.GetBool("TRACING_ENABLED"),
			ServiceName: v.GetString("TRACING_SERVICE_NAME"),
			Endpoint:    v.GetString("OTLP_ENDPOINT"),
			SampleRate:  v.GetFloat64("TRACING_SAMPLE_RATE"),
		},
		CORS: CORSConfig{
			AllowedOrigins: splitList(v.GetString("CORS_ALLOWED_ORIGINS")),
			AllowedMethods: splitList(v.GetString("CORS_ALLOWED_METHODS")),
			AllowedHeaders: splitList(v.GetString("CORS_ALLOWED_HEADERS")),
			MaxAge:         v.GetDuration("CORS_MAX_AGE"),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: v.GetFloat64("RATE_LIMIT_RPS"),
			BurstSize:         v.GetInt("RATE_LIMIT_BURST"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("REDIS_ADDR"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		Holidays: HolidayConfig{
			Source:   v.GetString("HOLIDAYS_SOURCE"),
			Dates:    splitList(v.GetString("HOLIDAYS_DATES")),
			URL:      v.GetString("HOLIDAYS_URL"),
			Timeout:  v.GetDuration("HOLIDAYS_TIMEOUT"),
			CacheTTL: v.GetDuration("HOLIDAYS_CACHE_TTL"),
		},
		Events: EventsConfig{
			Enabled: v.GetBool("EVENTS_ENABLED"),
			Brokers: splitList(v.GetString("KAFKA_BROKERS")),
			Topic:   v.GetString("EVENTS_TOPIC"),
		},
		Sweep: SweepConfig{
			Enabled:   v.GetBool("SWEEP_ENABLED"),
			Interval:  v.GetString("SWEEP_INTERVAL"),
			BatchSize: v.GetInt("SWEEP_BATCH_SIZE"),
			Queue:     v.GetString("SWEEP_QUEUE"),
		},
	}
}

func validate(cfg *Config) error {
	var errs []string

	if cfg.JWT.Secret == "" {
		errs = append(errs, "JWT_SECRET is required")
	} else if len(cfg.JWT.Secret) < 32 && cfg.App.Environment == "production" {
		errs = append(errs, "JWT_SECRET must be at least 32 characters in production")
	}

	if cfg.Database.Password == "" && cfg.App.Environment != "development" {
		errs = append(errs, "DB_PASSWORD is required in non-development environments")
	}

	if cfg.Database.SSLMode == "disable" && cfg.App.Environment == "production" {
		errs = append(errs, "DB_SSLMODE=disable is not allowed in production")
	}

	if _, err := time.LoadLocation(cfg.App.Timezone); err != nil {
		errs = append(errs, fmt.Sprintf("APP_TIMEZONE %q is not a known location", cfg.App.Timezone))
	}

	switch cfg.Holidays.Source {
	case "static":
	case "http":
		if !strings.Contains(cfg.Holidays.URL, "%d") {
			errs = append(errs, "HOLIDAYS_URL must contain %d for the year when HOLIDAYS_SOURCE=http")
		}
	default:
		errs = append(errs, fmt.Sprintf("HOLIDAYS_SOURCE must be static or http, got %q", cfg.Holidays.Source))
	}

	if cfg.Events.Enabled && len(cfg.Events.Brokers) == 0 {
		errs = append(errs, "KAFKA_BROKERS is required when EVENTS_ENABLED=true")
	}

	if cfg.Sweep.BatchSize <= 0 {
		errs = append(errs, "SWEEP_BATCH_SIZE must be positive")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			result = append(result, t)
		}
	}
	return result
}
