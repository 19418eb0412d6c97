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
	App           AppConfig
	Postgres      PostgresConfig
	Redis         RedisConfig
	Logger        LoggerConfig
	Transport     TransportConfig
	KnowledgeBase KnowledgeBaseConfig
	Bot           BotConfig
	Reconcile     ReconcileConfig
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
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level       string
	Development bool
}

// TransportConfig holds the messaging connector credentials.
type TransportConfig struct {
	AppID           string
	AppSecret       string
	TokenTTLMinutes int
	TimeoutSeconds  int
}

// KnowledgeBaseConfig points at the question answering endpoint.
type KnowledgeBaseConfig struct {
	Endpoint       string
	KnowledgeBase  string
	EndpointKey    string
	ScoreThreshold float64
	TimeoutSeconds int
}

// BotConfig holds bot behavior settings.
type BotConfig struct {
	ExpertTeamID          string
	ConfigCacheTTLSeconds int
}

// ReconcileConfig drives the linkage reconciler. An interval of zero disables it.
type ReconcileConfig struct {
	IntervalSeconds int
	GraceSeconds    int
	BatchSize       int
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}
	scoreThreshold, err := strconv.ParseFloat(getEnv("KB_SCORE_THRESHOLD", "50"), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid KB_SCORE_THRESHOLD: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "expert-desk"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "3978"),
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
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level:       getEnv("LOG_LEVEL", "info"),
			Development: getEnvAsBool("LOG_DEVELOPMENT", false),
		},
		Transport: TransportConfig{
			AppID:           os.Getenv("TRANSPORT_APP_ID"),
			AppSecret:       getEnv("TRANSPORT_APP_SECRET", "dev-secret"),
			TokenTTLMinutes: getEnvAsInt("TRANSPORT_TOKEN_TTL_MINUTES", 60),
			TimeoutSeconds:  getEnvAsInt("TRANSPORT_TIMEOUT_SECONDS", 15),
		},
		KnowledgeBase: KnowledgeBaseConfig{
			Endpoint:       os.Getenv("KB_ENDPOINT"),
			KnowledgeBase:  os.Getenv("KB_ID"),
			EndpointKey:    os.Getenv("KB_ENDPOINT_KEY"),
			ScoreThreshold: scoreThreshold,
			TimeoutSeconds: getEnvAsInt("KB_TIMEOUT_SECONDS", 10),
		},
		Bot: BotConfig{
			ExpertTeamID:          os.Getenv("BOT_EXPERT_TEAM_ID"),
			ConfigCacheTTLSeconds: getEnvAsInt("CONFIG_CACHE_TTL_SECONDS", 300),
		},
		Reconcile: ReconcileConfig{
			IntervalSeconds: getEnvAsInt("RECONCILE_INTERVAL_SECONDS", 60),
			GraceSeconds:    getEnvAsInt("RECONCILE_GRACE_SECONDS", 120),
			BatchSize:       getEnvAsInt("RECONCILE_BATCH_SIZE", 20),
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
	return seconds(a.RequestTimeoutSeconds)
}

// Timeout bounds a single connector call.
func (t TransportConfig) Timeout() time.Duration {
	return seconds(t.TimeoutSeconds)
}

// TokenTTL is the lifetime of minted connector tokens.
func (t TransportConfig) TokenTTL() time.Duration {
	if t.TokenTTLMinutes <= 0 {
		return time.Hour
	}
	return time.Duration(t.TokenTTLMinutes) * time.Minute
}

// Timeout bounds a single knowledge base query.
func (k KnowledgeBaseConfig) Timeout() time.Duration {
	return seconds(k.TimeoutSeconds)
}

// ConfigCacheTTL is how long configuration values stay cached in Redis.
func (b BotConfig) ConfigCacheTTL() time.Duration {
	return seconds(b.ConfigCacheTTLSeconds)
}

// Interval returns the reconcile tick, zero when disabled.
func (r ReconcileConfig) Interval() time.Duration {
	return seconds(r.IntervalSeconds)
}

// Grace is how old an unlinked ticket must be before it is reconciled.
func (r ReconcileConfig) Grace() time.Duration {
	return seconds(r.GraceSeconds)
}

func seconds(n int) time.Duration {
	if n <= 0 {
		return 0
	}
	return time.Duration(n) * time.Second
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
