// Package config loads runtime settings from the environment. It is the only
// place that reads environment variables.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	StoreMemory   = "memory"
	StoreDynamoDB = "dynamodb"
	StorePostgres = "postgres"
	StoreRedis    = "redis"

	DefaultSiteURL  = "https://www.perm-metalloobrabotka.ru"
	DefaultTimezone = "Asia/Yekaterinburg"
	DefaultPhone    = "+7 (902) 798-16-70"
)

type Config struct {
	Env      string
	LogLevel string

	SiteURL  string
	Timezone string

	Telegram    TelegramConfig
	ParamPrefix string

	ArticleStore string
	SessionStore string
	SessionTTL   time.Duration
	StateTable   string
	DatabaseURL  string
	Redis        RedisConfig

	CatalogPath string
	Company     CompanyConfig
	Analytics   AnalyticsConfig
	ContactRate RateConfig
	HTTPAddr    string

	// TrustedProxies lists the proxy addresses or CIDRs whose X-Forwarded-For
	// header sitectl serve honours. Empty trusts none.
	TrustedProxies []string
}

type TelegramConfig struct {
	BotToken       string
	ChatID         int64
	AdminUsernames []string
	WebhookURL     string
	WebhookSecret  string
	APIURL         string
}

type RedisConfig struct {
	Address  string
	Password string
	DB       int
}

// CompanyConfig holds the public contact details. Unset fields are hidden
// on the site.
type CompanyConfig struct {
	City     string
	Address  string
	Phone    string
	Email    string
	Schedule string
}

type AnalyticsConfig struct {
	GAMeasurementID string
	YandexMetrikaID string
}

// RateConfig is a token bucket: RPS tokens per second, Burst capacity.
type RateConfig struct {
	RPS   float64
	Burst int
}

// Load reads .env.local and .env when present (real environment variables
// win), applies defaults and validates the result.
func Load() (*Config, error) {
	for _, f := range []string{".env.local", ".env"} {
		_ = godotenv.Load(f)
	}
	cfg, err := fromViper(newViper())
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newViper() *viper.Viper {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("APP_ENV", "production")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("SITE_URL", DefaultSiteURL)
	v.SetDefault("SITE_TIMEZONE", DefaultTimezone)
	v.SetDefault("ARTICLE_STORE", StoreMemory)
	v.SetDefault("SESSION_STORE", StoreMemory)
	v.SetDefault("SESSION_TTL", "0s")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("CONTACT_RATE_RPS", 0.2)
	v.SetDefault("CONTACT_RATE_BURST", 3)
	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("COMPANY_PHONE", DefaultPhone)
	return v
}

func fromViper(v *viper.Viper) (*Config, error) {
	chatID, err := optionalInt64(v.GetString("TELEGRAM_CHAT_ID"))
	if err != nil {
		return nil, fmt.Errorf("config: TELEGRAM_CHAT_ID: %w", err)
	}
	ttl, err := time.ParseDuration(strings.TrimSpace(v.GetString("SESSION_TTL")))
	if err != nil {
		return nil, fmt.Errorf("config: SESSION_TTL: %w", err)
	}
	redisDB, err := strconv.Atoi(strings.TrimSpace(v.GetString("REDIS_DB")))
	if err != nil {
		return nil, fmt.Errorf("config: REDIS_DB: %w", err)
	}
	rps, err := strconv.ParseFloat(strings.TrimSpace(v.GetString("CONTACT_RATE_RPS")), 64)
	if err != nil {
		return nil, fmt.Errorf("config: CONTACT_RATE_RPS: %w", err)
	}
	burst, err := strconv.Atoi(strings.TrimSpace(v.GetString("CONTACT_RATE_BURST")))
	if err != nil {
		return nil, fmt.Errorf("config: CONTACT_RATE_BURST: %w", err)
	}

	return &Config{
		Env:      str(v, "APP_ENV"),
		LogLevel: str(v, "LOG_LEVEL"),
		SiteURL:  strings.TrimRight(str(v, "SITE_URL"), "/"),
		Timezone: str(v, "SITE_TIMEZONE"),
		Telegram: TelegramConfig{
			BotToken:       str(v, "TELEGRAM_BOT_TOKEN"),
			ChatID:         chatID,
			AdminUsernames: splitList(v.GetString("TELEGRAM_ADMIN_USERNAMES")),
			WebhookURL:     str(v, "TELEGRAM_WEBHOOK_URL"),
			WebhookSecret:  str(v, "TELEGRAM_WEBHOOK_SECRET"),
			APIURL:         str(v, "TELEGRAM_API_URL"),
		},
		ParamPrefix:  str(v, "PARAM_PREFIX"),
		ArticleStore: strings.ToLower(str(v, "ARTICLE_STORE")),
		SessionStore: strings.ToLower(str(v, "SESSION_STORE")),
		SessionTTL:   ttl,
		StateTable:   str(v, "STATE_TABLE"),
		DatabaseURL:  str(v, "DATABASE_URL"),
		Redis: RedisConfig{
			Address:  str(v, "REDIS_ADDRESS"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		CatalogPath: str(v, "CATALOG_PATH"),
		Company: CompanyConfig{
			City:     str(v, "COMPANY_CITY"),
			Address:  str(v, "COMPANY_ADDRESS"),
			Phone:    str(v, "COMPANY_PHONE"),
			Email:    str(v, "COMPANY_EMAIL"),
			Schedule: str(v, "COMPANY_SCHEDULE"),
		},
		Analytics: AnalyticsConfig{
			GAMeasurementID: str(v, "GA_MEASUREMENT_ID"),
			YandexMetrikaID: str(v, "YANDEX_METRIKA_ID"),
		},
		ContactRate:    RateConfig{RPS: rps, Burst: burst},
		HTTPAddr:       str(v, "HTTP_ADDR"),
		TrustedProxies: splitList(v.GetString("TRUSTED_PROXIES")),
	}, nil
}

// Validate checks store selections and the settings each one needs.
func (c *Config) Validate() error {
	var errs []error

	u, err := url.Parse(c.SiteURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, fmt.Errorf("SITE_URL must be an absolute http(s) URL, got %q", c.SiteURL))
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("SITE_TIMEZONE: %w", err))
	}

	switch c.ArticleStore {
	case StoreMemory:
	case StoreDynamoDB:
		if c.StateTable == "" {
			errs = append(errs, errors.New("ARTICLE_STORE=dynamodb requires STATE_TABLE"))
		}
	case StorePostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("ARTICLE_STORE=postgres requires DATABASE_URL"))
		}
	default:
		errs = append(errs, fmt.Errorf("ARTICLE_STORE must be memory, dynamodb or postgres, got %q", c.ArticleStore))
	}

	switch c.SessionStore {
	case StoreMemory:
	case StoreDynamoDB:
		if c.StateTable == "" {
			errs = append(errs, errors.New("SESSION_STORE=dynamodb requires STATE_TABLE"))
		}
	case StoreRedis:
		if c.Redis.Address == "" {
			errs = append(errs, errors.New("SESSION_STORE=redis requires REDIS_ADDRESS"))
		}
	default:
		errs = append(errs, fmt.Errorf("SESSION_STORE must be memory, dynamodb or redis, got %q", c.SessionStore))
	}

	if c.SessionTTL < 0 {
		errs = append(errs, errors.New("SESSION_TTL must not be negative"))
	}
	if c.ContactRate.RPS <= 0 || c.ContactRate.Burst < 1 {
		errs = append(errs, errors.New("CONTACT_RATE_RPS must be positive and CONTACT_RATE_BURST at least 1"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

// Location returns the time zone used for timestamps in notifications.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// IsDevelopment reports whether APP_ENV selects development behaviour.
func (c *Config) IsDevelopment() bool {
	switch strings.ToLower(c.Env) {
	case "development", "dev", "local":
		return true
	default:
		return false
	}
}

func str(v *viper.Viper, key string) string {
	return strings.TrimSpace(v.GetString(key))
}

func optionalInt64(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	return strconv.ParseInt(s, 10, 64)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
