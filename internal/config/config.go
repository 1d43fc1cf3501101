package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"telecom-relay/internal/util"
)

// Config is the full runtime configuration, loaded from the
// environment (optionally seeded from a .env file).
type Config struct {
	Environment string
	Logging     LoggingConfig
	Server      ServerConfig
	Telecom     TelecomConfig
	Web         WebConfig
	Redis       RedisConfig
	Kafka       KafkaConfig
	ClickHouse  ClickHouseConfig
	TLS         TLSConfig
	RateLimit   RateLimitConfig
	Notify      NotifyConfig
}

type LoggingConfig struct {
	Level  string
	Format string
}

type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// TelecomConfig holds the carrier accounts this relay may query.
// PhoneNumbers and Passwords are parallel lists; the first entry is
// the default account when a request names no phone number.
type TelecomConfig struct {
	PhoneNumbers []string
	Passwords    []string
	APIBase      string
	PublicKeyPEM string
	CacheMaxAge  time.Duration
	Whitelist    []string
}

type WebConfig struct {
	Password     string
	SessionTTL   time.Duration
	CookieName   string
	CookieSecure bool
}

type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type KafkaConfig struct {
	Enabled bool
	Brokers []string
	Topic   string
}

type ClickHouseConfig struct {
	Enabled  bool
	Addr     string
	Database string
	Username string
	Password string
}

type TLSConfig struct {
	Enabled      bool
	CertFile     string
	KeyFile      string
	AutocertHost string
	CacheDir     string
}

type RateLimitConfig struct {
	LoginMaxAttempts int
	LoginWindow      time.Duration
}

type NotifyConfig struct {
	DingTalkWebhook  string
	TelegramBotToken string
	TelegramChatID   string
}

// Load reads configuration from the environment. A .env file in the
// working directory is applied first when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "console"),
		},
		Server: ServerConfig{
			Host:         getEnv("SERVER_HOST", "0.0.0.0"),
			Port:         getEnvInt("SERVER_PORT", 8080),
			ReadTimeout:  getEnvDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout: getEnvDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:  getEnvDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
		},
		Telecom: TelecomConfig{
			PhoneNumbers: splitList(os.Getenv("TELECOM_PHONENUM")),
			Passwords:    splitList(os.Getenv("TELECOM_PASSWORD")),
			APIBase:      getEnv("TELECOM_API_BASE", ""),
			PublicKeyPEM: os.Getenv("TELECOM_PUBLIC_KEY"),
			CacheMaxAge:  time.Duration(getEnvInt("CACHE_MAX_AGE_MS", 120000)) * time.Millisecond,
			Whitelist:    splitList(os.Getenv("WHITELIST_NUM")),
		},
		Web: WebConfig{
			Password:     os.Getenv("WEB_PASSWORD"),
			SessionTTL:   getEnvDuration("WEB_SESSION_TTL", 24*time.Hour),
			CookieName:   getEnv("WEB_COOKIE_NAME", "relay_session"),
			CookieSecure: getEnvBool("WEB_COOKIE_SECURE", false),
		},
		Redis: RedisConfig{
			URL:          getEnv("REDIS_URL", "redis://localhost:6379/0"),
			PoolSize:     getEnvInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: getEnvInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  getEnvDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getEnvDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getEnvDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: KafkaConfig{
			Enabled: getEnvBool("KAFKA_ENABLED", false),
			Brokers: splitList(getEnv("KAFKA_BROKERS", "localhost:9092")),
			Topic:   getEnv("KAFKA_TOPIC", "telecom-relay-events"),
		},
		ClickHouse: ClickHouseConfig{
			Enabled:  getEnvBool("CLICKHOUSE_ENABLED", false),
			Addr:     getEnv("CLICKHOUSE_ADDR", "localhost:9000"),
			Database: getEnv("CLICKHOUSE_DATABASE", "telecom_relay"),
			Username: getEnv("CLICKHOUSE_USERNAME", "default"),
			Password: os.Getenv("CLICKHOUSE_PASSWORD"),
		},
		TLS: TLSConfig{
			Enabled:      getEnvBool("TLS_ENABLED", false),
			CertFile:     os.Getenv("TLS_CERT_FILE"),
			KeyFile:      os.Getenv("TLS_KEY_FILE"),
			AutocertHost: os.Getenv("TLS_AUTOCERT_HOST"),
			CacheDir:     getEnv("TLS_AUTOCERT_CACHE", "./certs"),
		},
		RateLimit: RateLimitConfig{
			LoginMaxAttempts: getEnvInt("LOGIN_MAX_ATTEMPTS", 5),
			LoginWindow:      getEnvDuration("LOGIN_WINDOW", 5*time.Minute),
		},
		Notify: NotifyConfig{
			DingTalkWebhook:  os.Getenv("DINGTALK_WEBHOOK"),
			TelegramBotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
			TelegramChatID:   os.Getenv("TELEGRAM_CHAT_ID"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if len(c.Telecom.PhoneNumbers) == 0 {
		return fmt.Errorf("TELECOM_PHONENUM is required")
	}
	if len(c.Telecom.PhoneNumbers) != len(c.Telecom.Passwords) {
		return fmt.Errorf("TELECOM_PHONENUM and TELECOM_PASSWORD must have the same number of entries")
	}
	for _, num := range c.Telecom.PhoneNumbers {
		if !util.ValidPhoneNumber(num) {
			return fmt.Errorf("invalid phone number in TELECOM_PHONENUM: %s", util.MaskPhoneNumber(num))
		}
	}
	for i, pw := range c.Telecom.Passwords {
		if !util.ValidServicePassword(pw) {
			return fmt.Errorf("invalid service password for %s", util.MaskPhoneNumber(c.Telecom.PhoneNumbers[i]))
		}
	}
	if c.Telecom.APIBase == "" {
		return fmt.Errorf("TELECOM_API_BASE is required")
	}
	if c.TLS.Enabled && c.TLS.AutocertHost == "" && (c.TLS.CertFile == "" || c.TLS.KeyFile == "") {
		return fmt.Errorf("TLS enabled but no cert/key or autocert host configured")
	}
	return nil
}

// DefaultPhoneNumber returns the account used when a request names no
// phone number.
func (c *Config) DefaultPhoneNumber() string {
	return c.Telecom.PhoneNumbers[0]
}

// PasswordFor returns the service password for phone, or false when
// the phone is not a configured account.
func (c *Config) PasswordFor(phone string) (string, bool) {
	for i, num := range c.Telecom.PhoneNumbers {
		if num == phone {
			return c.Telecom.Passwords[i], true
		}
	}
	return "", false
}

// Whitelisted reports whether phone may log in. An empty whitelist
// allows every configured account.
func (c *Config) Whitelisted(phone string) bool {
	if len(c.Telecom.Whitelist) == 0 {
		return true
	}
	for _, num := range c.Telecom.Whitelist {
		if num == phone {
			return true
		}
	}
	return false
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
