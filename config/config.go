package config

import (
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds every setting the service reads from the environment.
// Stripe and auth secrets are not required at boot: handlers report a
// configuration error per request instead.
type Config struct {
	Port       string `mapstructure:"PORT"`
	AppEnv     string `mapstructure:"APP_ENV"`
	AppURL     string `mapstructure:"APP_URL"`
	CORSOrigin string `mapstructure:"CORS_ORIGIN"`

	StripeSecretKey     string `mapstructure:"STRIPE_SECRET_KEY"`
	StripePriceID       string `mapstructure:"STRIPE_PRICE_ID"`
	StripeWebhookSecret string `mapstructure:"STRIPE_WEBHOOK_SECRET"`

	AuthSecret           string        `mapstructure:"AUTH_SECRET"`
	SessionTTL           time.Duration `mapstructure:"SESSION_TTL"`
	InternalServiceToken string        `mapstructure:"INTERNAL_SERVICE_TOKEN"`

	JobsAPIURL string `mapstructure:"JOBS_API_URL"`

	DBURL       string `mapstructure:"DB_URL"`
	UsersDBPath string `mapstructure:"USERS_DB_PATH"`

	ProDuration      time.Duration `mapstructure:"PRO_DURATION"`
	EnforceProExpiry bool          `mapstructure:"ENFORCE_PRO_EXPIRY"`

	GoogleClientID         string `mapstructure:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret     string `mapstructure:"GOOGLE_CLIENT_SECRET"`
	GoogleRedirectURL      string `mapstructure:"GOOGLE_REDIRECT_URL"`
	GoogleFrontendRedirect string `mapstructure:"GOOGLE_FRONTEND_REDIRECT"`

	AMQPURL             string `mapstructure:"AMQP_URL"`
	EntitlementExchange string `mapstructure:"ENTITLEMENT_EXCHANGE"`

	RedisURL          string `mapstructure:"REDIS_URL"`
	CheckoutRateLimit int    `mapstructure:"CHECKOUT_RATE_LIMIT"`

	LogLevel string `mapstructure:"LOG_LEVEL"`
	LogDev   bool   `mapstructure:"LOG_DEV"`
}

var defaults = map[string]any{
	"PORT":                 "8080",
	"APP_ENV":              "development",
	"APP_URL":              "http://localhost:3000",
	"CORS_ORIGIN":          "http://localhost:3000",
	"SESSION_TTL":          "24h",
	"JOBS_API_URL":         "http://localhost:8000",
	"USERS_DB_PATH":        "data/users.db",
	"PRO_DURATION":         "720h",
	"ENTITLEMENT_EXCHANGE": "entitlements",
	"CHECKOUT_RATE_LIMIT":  5,
	"LOG_LEVEL":            "info",
}

// keys without a default still need binding so Unmarshal sees them.
var unbound = []string{
	"STRIPE_SECRET_KEY", "STRIPE_PRICE_ID", "STRIPE_WEBHOOK_SECRET",
	"AUTH_SECRET", "INTERNAL_SERVICE_TOKEN", "DB_URL", "ENFORCE_PRO_EXPIRY",
	"GOOGLE_CLIENT_ID", "GOOGLE_CLIENT_SECRET", "GOOGLE_REDIRECT_URL",
	"GOOGLE_FRONTEND_REDIRECT", "AMQP_URL", "REDIS_URL", "LOG_DEV",
}

// Load reads .env (when present) and the process environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found. Using system environment variables.")
	}

	v := viper.New()
	for k, d := range defaults {
		v.SetDefault(k, d)
		_ = v.BindEnv(k)
	}
	for _, k := range unbound {
		_ = v.BindEnv(k)
	}
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	cfg.trim()
	return cfg, nil
}

func (c *Config) trim() {
	c.StripeSecretKey = strings.TrimSpace(c.StripeSecretKey)
	c.StripePriceID = strings.TrimSpace(c.StripePriceID)
	c.StripeWebhookSecret = strings.TrimSpace(c.StripeWebhookSecret)
	c.AppURL = strings.TrimRight(strings.TrimSpace(c.AppURL), "/")
	c.JobsAPIURL = strings.TrimRight(strings.TrimSpace(c.JobsAPIURL), "/")
}

// IsProduction reports whether debug surfaces must stay off.
func (c Config) IsProduction() bool {
	return strings.EqualFold(c.AppEnv, "production")
}

// GoogleEnabled reports whether Google sign-in is fully configured.
func (c Config) GoogleEnabled() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != "" && c.GoogleRedirectURL != ""
}
