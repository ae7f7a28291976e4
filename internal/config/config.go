package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	AppHost  string
	HTTPPort string
	AppEnv   string
	LogLevel string

	// KafkaBrokers / KafkaTopicEvents — если заданы, сервис отправляет
	// события (user.*, message.created, channel.cleaned) в Kafka.
	KafkaBrokers     []string
	KafkaTopicEvents string

	// BotToken авторизует запросы к внешнему identity-провайдеру
	// (/lookup). Пустой токен не валит процесс: каждый lookup отвечает 500.
	BotToken      string
	LookupBaseURL string

	SuperAdminUser     string
	SuperAdminPassword string
	SessionTTL         time.Duration

	MessageMaxBytes   int
	MessageRatePerMin int
	AdminLimit        int

	DB struct {
		Host     string
		Port     string
		User     string
		Password string
		Database string
		SSLMode  string
	}
}

func Load() (*Config, error) {
	_ = godotenv.Load(".env")
	_ = godotenv.Load("../.env")

	cfg := &Config{
		AppHost:            getEnv("APP_HOST", "0.0.0.0"),
		HTTPPort:           firstEnv("APP_PORT", "HTTP_PORT", "8098"),
		AppEnv:             getEnv("APP_ENV", "development"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		KafkaBrokers:       splitList(getEnv("KAFKA_BROKERS", "")),
		KafkaTopicEvents:   getEnv("KAFKA_TOPIC_EVENTS", ""),
		BotToken:           getEnv("BOT_TOKEN", ""),
		LookupBaseURL:      getEnv("LOOKUP_BASE_URL", "https://discord.com/api/v10"),
		SuperAdminUser:     getEnv("SUPER_ADMIN_USER", ""),
		SuperAdminPassword: getEnv("SUPER_ADMIN_PASSWORD", ""),
		SessionTTL:         time.Duration(getEnvInt("SESSION_TTL_MINUTES", 720)) * time.Minute,
		MessageMaxBytes:    getEnvInt("MESSAGE_MAX_BYTES", 64*1024),
		MessageRatePerMin:  getEnvInt("MESSAGE_RATE_PER_MIN", 30),
		AdminLimit:         getEnvInt("ADMIN_LIMIT", 4),
	}
	cfg.DB.Host = getEnv("DB_HOST", "localhost")
	cfg.DB.Port = getEnv("DB_PORT", "5432")
	cfg.DB.User = getEnv("DB_USER", "postgres")
	cfg.DB.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.DB.Database = getEnv("DB_DATABASE", "support_chat")
	cfg.DB.SSLMode = getEnv("DB_SSLMODE", "disable")
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.DB.Host == "" || c.DB.Database == "" {
		return errors.New("config: DB_HOST and DB_DATABASE are required")
	}
	if c.AppEnv == "production" && c.DB.Password == "" {
		return errors.New("config: in production DB_PASSWORD is required")
	}
	if c.SuperAdminUser != "" && c.SuperAdminPassword == "" {
		return errors.New("config: SUPER_ADMIN_PASSWORD is required when SUPER_ADMIN_USER is set")
	}
	if c.MessageMaxBytes <= 0 {
		return errors.New("config: MESSAGE_MAX_BYTES must be positive")
	}
	if c.AdminLimit <= 0 {
		return errors.New("config: ADMIN_LIMIT must be positive")
	}
	return nil
}

func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DB.Host, c.DB.Port, c.DB.User, c.DB.Password, c.DB.Database, c.DB.SSLMode)
}

func (c *Config) DatabaseURL() string {
	pass := url.QueryEscape(c.DB.Password)
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.DB.User, pass, c.DB.Host, c.DB.Port, c.DB.Database, c.DB.SSLMode)
}

func (c *Config) Addr() string {
	return c.AppHost + ":" + c.HTTPPort
}

// splitList разбивает строку "host1:9092,host2:9092" на слайс.
func splitList(s string) []string {
	var out []string
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func firstEnv(keysAndDef ...string) string {
	if len(keysAndDef) == 0 {
		return ""
	}
	def := keysAndDef[len(keysAndDef)-1]
	for _, k := range keysAndDef[:len(keysAndDef)-1] {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return def
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
