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
	App        AppConfig
	Postgres   PostgresConfig
	Redis      RedisConfig
	Logger     LoggerConfig
	Auth       AuthConfig
	SLA        SLAConfig
	Repository RepositoryConfig
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

// PostgresConfig holds DB connection values. An empty DSN selects the in-memory store.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values. An empty Addr disables Redis.
type RedisConfig struct {
	Addr              string
	Password          string
	DB                int
	EscalationChannel string
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines the actor token parameters shared with the chat gateway.
type AuthConfig struct {
	JWTSecret       string
	TokenTTLMinutes int
}

// SLAConfig holds service-wide SLA defaults and driver intervals.
type SLAConfig struct {
	TickInterval         time.Duration
	FollowupInterval     time.Duration
	ReconcileInterval    time.Duration
	TickLeaseTTL         time.Duration
	PauseOnPending       bool
	AutoReassignOnBreach bool

	// ReopenWindow is nil when SLA_REOPEN_WINDOW is unset: only a staff override reopens then.
	ReopenWindow *time.Duration
}

// RepositoryConfig bounds each storage call.
type RepositoryConfig struct {
	Timeout time.Duration
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	sla, err := loadSLA()
	if err != nil {
		return nil, err
	}

	repoTimeout, err := getEnvAsDuration("REPOSITORY_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "nexon-tickets"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:              os.Getenv("REDIS_ADDR"),
			Password:          os.Getenv("REDIS_PASSWORD"),
			DB:                redisDB,
			EscalationChannel: getEnv("REDIS_ESCALATION_CHANNEL", "tickets:escalations"),
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret:       getEnv("AUTH_JWT_SECRET", "dev-secret"),
			TokenTTLMinutes: getEnvAsInt("AUTH_TOKEN_TTL_MINUTES", 60),
		},
		SLA: sla,
		Repository: RepositoryConfig{
			Timeout: repoTimeout,
		},
	}

	return cfg, nil
}

func loadSLA() (SLAConfig, error) {
	var (
		cfg SLAConfig
		err error
	)
	if cfg.TickInterval, err = getEnvAsDuration("SLA_TICK_INTERVAL", time.Minute); err != nil {
		return cfg, err
	}
	if cfg.FollowupInterval, err = getEnvAsDuration("SLA_FOLLOWUP_INTERVAL", time.Minute); err != nil {
		return cfg, err
	}
	if cfg.ReconcileInterval, err = getEnvAsDuration("SLA_RECONCILE_INTERVAL", 10*time.Minute); err != nil {
		return cfg, err
	}
	if cfg.TickLeaseTTL, err = getEnvAsDuration("TICK_LEASE_TTL", 50*time.Second); err != nil {
		return cfg, err
	}
	cfg.PauseOnPending = getEnvAsBool("SLA_PAUSE_ON_PENDING", false)
	cfg.AutoReassignOnBreach = getEnvAsBool("SLA_AUTO_REASSIGN_ON_BREACH", false)

	if raw := os.Getenv("SLA_REOPEN_WINDOW"); raw != "" {
		window, err := time.ParseDuration(raw)
		if err != nil {
			return cfg, fmt.Errorf("invalid SLA_REOPEN_WINDOW: %w", err)
		}
		if window < 0 {
			return cfg, fmt.Errorf("invalid SLA_REOPEN_WINDOW: negative duration %s", raw)
		}
		cfg.ReopenWindow = &window
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

func getEnvAsDuration(key string, fallback time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return fallback, nil
	}
	parsed, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if parsed <= 0 {
		return 0, fmt.Errorf("invalid %s: must be positive", key)
	}
	return parsed, nil
}
