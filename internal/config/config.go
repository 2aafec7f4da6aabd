package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	HTTPPort int

	DBConfig struct {
		Host     string `env:"LIBRARY_DB_HOST"`
		Port     int    `env:"LIBRARY_DB_PORT"`
		User     string `env:"LIBRARY_DB_USER"`
		Password string `env:"LIBRARY_DB_PASSWORD"`
		Name     string `env:"LIBRARY_DB_NAME"`
		SSLMode  string `env:"LIBRARY_DB_SSLMODE"`
	}
	MigrationsPath string `env:"MIGRATIONS_PATH"`

	KafkaBrokerURL          string `env:"KAFKA_BROKER_URL"`
	KafkaFineEventsTopic    string `env:"KAFKA_FINE_EVENTS_TOPIC"`
	KafkaPaymentStatusTopic string `env:"KAFKA_PAYMENT_STATUS_TOPIC"`
	KafkaConsumerGroup      string `env:"KAFKA_CONSUMER_GROUP"`

	OutboxPollInterval time.Duration `env:"OUTBOX_POLL_INTERVAL"`
	OutboxPollTimeout  time.Duration `env:"OUTBOX_POLL_TIMEOUT"`

	RedisAddr          string        `env:"REDIS_ADDR"`
	BookSearchCacheTTL time.Duration `env:"BOOK_SEARCH_CACHE_TTL"`

	AuthHeader         string `env:"AUTH_HEADER"`
	CORSAllowedOrigins []string

	Gateway GatewayConfig

	// AppBaseURL is where the gateway sends the user (and its callback) after payment.
	AppBaseURL string `env:"APP_BASE_URL"`
}

type GatewayConfig struct {
	MerchantID string        `env:"MERCHANT_ID"`
	SaltKey    string        `env:"MERCHANT_KEY"`
	SaltIndex  int           `env:"MERCHANT_KEY_INDEX"`
	BaseURL    string        `env:"MERCHANT_BASE_URL"`
	Timeout    time.Duration `env:"GATEWAY_TIMEOUT"`
}

var ErrMissingRequired = errors.New("required configuration missing")

// LoadConfig reads the environment and fails if anything the payment flow
// needs to produce a valid signature is absent.
func LoadConfig() (*Config, error) {
	cfg := ReadEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ReadEnv fills a Config from the environment without validating it. Tools
// that only touch the database use it directly.
func ReadEnv() *Config {
	cfg := &Config{}

	cfg.HTTPPort = getEnvAsInt("HTTP_PORT", 8082)

	cfg.DBConfig.Host = getEnvOrDefault("LIBRARY_DB_HOST", "localhost")
	cfg.DBConfig.Port = getEnvAsInt("LIBRARY_DB_PORT", 5432)
	cfg.DBConfig.User = getEnvOrDefault("LIBRARY_DB_USER", "user")
	cfg.DBConfig.Password = getEnvOrDefault("LIBRARY_DB_PASSWORD", "password")
	cfg.DBConfig.Name = getEnvOrDefault("LIBRARY_DB_NAME", "library_db")
	cfg.DBConfig.SSLMode = getEnvOrDefault("LIBRARY_DB_SSLMODE", "disable")
	cfg.MigrationsPath = getEnvOrDefault("MIGRATIONS_PATH", "file://migrations")

	cfg.KafkaBrokerURL = getEnvOrDefault("KAFKA_BROKER_URL", "localhost:9092")
	cfg.KafkaFineEventsTopic = getEnvOrDefault("KAFKA_FINE_EVENTS_TOPIC", "library_fine_events")
	cfg.KafkaPaymentStatusTopic = getEnvOrDefault("KAFKA_PAYMENT_STATUS_TOPIC", "fine_payment_status")
	cfg.KafkaConsumerGroup = getEnvOrDefault("KAFKA_CONSUMER_GROUP", "library-fines-group")

	cfg.OutboxPollInterval = getEnvAsDuration("OUTBOX_POLL_INTERVAL", 1*time.Second)
	cfg.OutboxPollTimeout = getEnvAsDuration("OUTBOX_POLL_TIMEOUT", 500*time.Millisecond)

	cfg.RedisAddr = getEnvOrDefault("REDIS_ADDR", "")
	cfg.BookSearchCacheTTL = getEnvAsDuration("BOOK_SEARCH_CACHE_TTL", 30*time.Second)

	cfg.AuthHeader = getEnvOrDefault("AUTH_HEADER", "X-User-ID")
	cfg.CORSAllowedOrigins = getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"})

	cfg.Gateway.MerchantID = getEnvOrDefault("MERCHANT_ID", "")
	cfg.Gateway.SaltKey = getEnvOrDefault("MERCHANT_KEY", "")
	cfg.Gateway.SaltIndex = getEnvAsInt("MERCHANT_KEY_INDEX", 1)
	cfg.Gateway.BaseURL = strings.TrimRight(getEnvOrDefault("MERCHANT_BASE_URL", ""), "/")
	cfg.Gateway.Timeout = getEnvAsDuration("GATEWAY_TIMEOUT", 15*time.Second)

	cfg.AppBaseURL = strings.TrimRight(getEnvOrDefault("APP_BASE_URL", ""), "/")

	return cfg
}

func (c *Config) Validate() error {
	var missing []string
	if c.Gateway.MerchantID == "" {
		missing = append(missing, "MERCHANT_ID")
	}
	if c.Gateway.SaltKey == "" {
		missing = append(missing, "MERCHANT_KEY")
	}
	if c.Gateway.BaseURL == "" {
		missing = append(missing, "MERCHANT_BASE_URL")
	}
	if c.AppBaseURL == "" {
		missing = append(missing, "APP_BASE_URL")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingRequired, strings.Join(missing, ", "))
	}

	for key, raw := range map[string]string{"MERCHANT_BASE_URL": c.Gateway.BaseURL, "APP_BASE_URL": c.AppBaseURL} {
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("invalid %s %q: must be an absolute URL", key, raw)
		}
	}
	if c.Gateway.SaltIndex < 1 {
		return fmt.Errorf("invalid MERCHANT_KEY_INDEX %d", c.Gateway.SaltIndex)
	}
	if c.Gateway.Timeout <= 0 {
		return fmt.Errorf("invalid GATEWAY_TIMEOUT %s", c.Gateway.Timeout)
	}
	return nil
}

func (c *Config) GetDBMigrationConnectionString() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		url.QueryEscape(c.DBConfig.User), url.QueryEscape(c.DBConfig.Password),
		c.DBConfig.Host, c.DBConfig.Port, c.DBConfig.Name, c.DBConfig.SSLMode)
}

func (c *Config) GetKafkaBrokers() []string {
	return strings.Split(c.KafkaBrokerURL, ",")
}

func getEnvOrDefault(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnvOrDefault(key, strconv.Itoa(defaultValue))
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnvOrDefault(key, defaultValue.String())
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	valueStr, exists := os.LookupEnv(key)
	if !exists || strings.TrimSpace(valueStr) == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
