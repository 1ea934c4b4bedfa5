package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App      AppConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Logger   LoggerConfig
	Auth     AuthConfig
	SLA      SLAConfig
	Autotune AutotuneConfig
	Store    StoreConfig
	Notify   NotificationConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN                string
	ApplicationName    string
	MaxConns           int32
	MinConns           int32
	RunMigrations      bool
	MigrationsDir      string
	ConnMaxIdleSec     int32
	ConnMaxLifeSec     int32
	StatementTimeoutMS int
}

// RedisConfig holds Redis connection values. An empty Addr keeps the
// in-process implementations for dedup, queues and events.
type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level       string
	Development bool
}

// AuthConfig defines authentication parameters.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
	BcryptCost            int

	// DetectorAPIKeyHash is a bcrypt hash of the key automated detectors
	// present in X-API-Key. Empty disables API key access.
	DetectorAPIKeyHash string

	// BootstrapAdminEmail and BootstrapAdminPassword seed the first ADMIN
	// account when no account with that email exists.
	BootstrapAdminEmail    string
	BootstrapAdminPassword string
}

// SLAConfig maps severities and ticket priorities to their deadlines.
type SLAConfig struct {
	CriticalMinutes int
	HighMinutes     int
	MediumMinutes   int
	LowMinutes      int

	TicketCriticalHours int
	TicketHighHours     int
	TicketMediumHours   int
	TicketLowHours      int
}

// AutotuneConfig holds the static safety bounds for balance adjustments.
type AutotuneConfig struct {
	MaxDelta           float64
	RetryDelaySeconds  int
	BoundsFile         string
	MaxRollbackSeconds int64
}

// StoreConfig tunes optimistic concurrency.
type StoreConfig struct {
	MaxAttempts int
}

// NotificationConfig names the channels operator notifications go to.
// An empty channel silences that audience.
type NotificationConfig struct {
	OnCallChannel     string
	ModerationChannel string
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}
	maxDelta, err := strconv.ParseFloat(getEnv("AUTOTUNE_MAX_DELTA", "0.25"), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid AUTOTUNE_MAX_DELTA: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "admin-ops-service"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:                os.Getenv("POSTGRES_DSN"),
			ApplicationName:    getEnv("POSTGRES_APPLICATION_NAME", "admin-ops-service"),
			MaxConns:           int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:           int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:      getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			MigrationsDir:      getEnv("POSTGRES_MIGRATIONS_DIR", "migrations"),
			ConnMaxIdleSec:     int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec:     int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
			StatementTimeoutMS: getEnvAsInt("POSTGRES_STATEMENT_TIMEOUT_MS", 5000),
		},
		Redis: RedisConfig{
			Addr:      os.Getenv("REDIS_ADDR"),
			Password:  os.Getenv("REDIS_PASSWORD"),
			DB:        redisDB,
			KeyPrefix: getEnv("REDIS_KEY_PREFIX", "adminops:"),
		},
		Logger: LoggerConfig{
			Level:       getEnv("LOG_LEVEL", "info"),
			Development: getEnvAsBool("LOG_DEVELOPMENT", false),
		},
		Auth: AuthConfig{
			JWTSecret:              getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes:  getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
			DetectorAPIKeyHash:     os.Getenv("AUTH_DETECTOR_API_KEY_HASH"),
			BcryptCost:             getEnvAsInt("AUTH_BCRYPT_COST", 12),
			BootstrapAdminEmail:    os.Getenv("AUTH_BOOTSTRAP_ADMIN_EMAIL"),
			BootstrapAdminPassword: os.Getenv("AUTH_BOOTSTRAP_ADMIN_PASSWORD"),
		},
		SLA: SLAConfig{
			CriticalMinutes:     getEnvAsInt("SLA_CRITICAL_MINUTES", 15),
			HighMinutes:         getEnvAsInt("SLA_HIGH_MINUTES", 60),
			MediumMinutes:       getEnvAsInt("SLA_MEDIUM_MINUTES", 240),
			LowMinutes:          getEnvAsInt("SLA_LOW_MINUTES", 1440),
			TicketCriticalHours: getEnvAsInt("SLA_TICKET_CRITICAL_HOURS", 1),
			TicketHighHours:     getEnvAsInt("SLA_TICKET_HIGH_HOURS", 4),
			TicketMediumHours:   getEnvAsInt("SLA_TICKET_MEDIUM_HOURS", 24),
			TicketLowHours:      getEnvAsInt("SLA_TICKET_LOW_HOURS", 72),
		},
		Autotune: AutotuneConfig{
			MaxDelta:           maxDelta,
			RetryDelaySeconds:  getEnvAsInt("AUTOTUNE_ROLLBACK_RETRY_DELAY_SECONDS", 60),
			BoundsFile:         getEnv("AUTOTUNE_BOUNDS_FILE", "config/autotune_bounds.yaml"),
			MaxRollbackSeconds: int64(getEnvAsInt("AUTOTUNE_MAX_ROLLBACK_SECONDS", 7*24*3600)),
		},
		Store: StoreConfig{
			MaxAttempts: getEnvAsInt("STORE_MAX_ATTEMPTS", 3),
		},
		Notify: NotificationConfig{
			OnCallChannel:     getEnv("NOTIFY_ONCALL_CHANNEL", "ops-oncall"),
			ModerationChannel: os.Getenv("NOTIFY_MODERATION_CHANNEL"),
		},
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// RetryDelay returns the wait before a failed rollback is retried.
func (a AutotuneConfig) RetryDelay() time.Duration {
	if a.RetryDelaySeconds <= 0 {
		return time.Minute
	}
	return time.Duration(a.RetryDelaySeconds) * time.Second
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
