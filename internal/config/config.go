package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
)

const (
	IdempotencyBackendDatabase = "database"
	IdempotencyBackendRedis    = "redis"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	HTTPAddr    string
	Debug       bool

	// DefaultTenantID is the fallback tenant when neither claims nor the
	// X-Tenant-ID header carry one.
	DefaultTenantID string
	AuthJWTSecret   string

	OTLPEndpoint string

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
	DBConnMaxIdleTime int

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// WebhookSecrets maps a billing provider name to its HMAC signing secret.
	WebhookSecrets     map[string]string
	IdempotencyBackend string
	IdempotencyTTL     time.Duration

	WebhookRateLimitPerSecond float64
	WebhookRateLimitBurst     int

	// PricingConfigFile points at an optional hot-reloaded pricing table.
	PricingConfigFile string
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	environment := getenv("ENVIRONMENT", "development")

	return Config{
		AppName:            getenv("APP_SERVICE", "campus"),
		AppVersion:         getenv("APP_VERSION", "0.1.0"),
		Environment:        environment,
		HTTPAddr:           getenv("HTTP_ADDR", ":8080"),
		Debug:              getenvBool("DEBUG", environment != "production"),
		DefaultTenantID:    getenv("DEFAULT_TENANT_ID", "default-org"),
		AuthJWTSecret:      strings.TrimSpace(getenv("AUTH_JWT_SECRET", "")),
		OTLPEndpoint:       getenv("OTLP_ENDPOINT", "localhost:4317"),
		DBType:             getenv("DATABASE_TYPE", "postgres"),
		DBHost:             getenv("DATABASE_HOST", "localhost"),
		DBPort:             getenv("DATABASE_PORT", "5432"),
		DBName:             getenv("DATABASE_NAME", "campus"),
		DBUser:             getenv("DATABASE_USER", "postgres"),
		DBPassword:         getenv("DATABASE_PASSWORD", "postgres"),
		DBSSLMode:          getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:      getenvInt("DATABASE_MAX_IDLE_CONN", 5),
		DBMaxOpenConn:      getenvInt("DATABASE_MAX_OPEN_CONN", 25),
		DBConnMaxLifetime:  getenvInt("DATABASE_CONN_MAX_LIFETIME", 3600),
		DBConnMaxIdleTime:  getenvInt("DATABASE_CONN_MAX_IDLE_TIME", 600),
		RedisAddr:          strings.TrimSpace(getenv("REDIS_ADDR", "")),
		RedisPassword:      getenv("REDIS_PASSWORD", ""),
		RedisDB:            getenvInt("REDIS_DB", 0),
		WebhookSecrets:     parseSecretPairs(getenv("WEBHOOK_SECRETS", "")),
		IdempotencyBackend: normalizeIdempotencyBackend(getenv("IDEMPOTENCY_BACKEND", IdempotencyBackendDatabase)),
		IdempotencyTTL:     getenvDuration("IDEMPOTENCY_TTL", 72*time.Hour),

		WebhookRateLimitPerSecond: getenvFloat("WEBHOOK_RATE_LIMIT_PER_SECOND", 20),
		WebhookRateLimitBurst:     getenvInt("WEBHOOK_RATE_LIMIT_BURST", 40),

		PricingConfigFile: strings.TrimSpace(getenv("PRICING_CONFIG_FILE", "")),
	}
}

// parseSecretPairs parses "stripe=whsec_xxx,paddle=yyy" style values.
func parseSecretPairs(raw string) map[string]string {
	secrets := make(map[string]string)
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		name, secret, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		name = strings.ToLower(strings.TrimSpace(name))
		secret = strings.TrimSpace(secret)
		if name == "" || secret == "" {
			continue
		}
		secrets[name] = secret
	}
	return secrets
}

func normalizeIdempotencyBackend(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case IdempotencyBackendRedis:
		return IdempotencyBackendRedis
	default:
		return IdempotencyBackendDatabase
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if value == "" {
		return def
	}
	switch value {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

func getenvFloat(key string, def float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return def
	}
	return parsed
}

func getenvDuration(key string, def time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return def
	}
	return parsed
}

// Module wires application configuration.
var Module = fx.Module("config",
	fx.Provide(Load),
)
