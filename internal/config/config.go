package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type HTTPConfig struct {
	Port            int           `yaml:"port"`
	PublicBaseURL   string        `yaml:"public_base_url"` // used to build return/notify urls
	RequestTimeout  time.Duration `yaml:"request_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	CreateRateLimit int           `yaml:"create_rate_limit"` // create-order calls per minute per client ip
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type AdminConfig struct {
	Password  string        `yaml:"password"`
	JWTSecret string        `yaml:"jwt_secret"`
	TokenTTL  time.Duration `yaml:"token_ttl"`
	Secure    bool          `yaml:"secure_cookie"`
}

type DatabaseConfig struct {
	URL      string `yaml:"url"`
	MaxConns int32  `yaml:"max_conns"`
}

type RedisConfig struct {
	URL      string        `yaml:"url"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

const (
	EnvSandbox    = "sandbox"
	EnvProduction = "production"
)

type CashfreeConfig struct {
	AppID         string        `yaml:"app_id"`
	SecretKey     string        `yaml:"secret_key"`
	Environment   string        `yaml:"environment"` // sandbox | production
	APIVersion    string        `yaml:"api_version"`
	BaseURL       string        `yaml:"base_url"` // override; derived from environment when empty
	Timeout       time.Duration `yaml:"timeout"`
	WebhookVerify bool          `yaml:"webhook_verify"`
}

type PaymentConfig struct {
	Cashfree CashfreeConfig `yaml:"cashfree"`
	// ReturnPath is appended to http.public_base_url; {order_id} is substituted by the provider.
	ReturnPath string `yaml:"return_path"`
}

// DefaultTimezone decides which calendar month an order counts against.
const DefaultTimezone = "Asia/Kolkata"

type CapacityConfig struct {
	MaxSlots int    `yaml:"max_slots"`
	Timezone string `yaml:"timezone"`
}

type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
}

type WhatsAppConfig struct {
	BaseURL       string `yaml:"base_url"`
	PhoneNumberID string `yaml:"phone_number_id"`
	Token         string `yaml:"token"`
	DefaultPrefix string `yaml:"default_country_code"` // prepended to 10-digit local numbers
}

type TelegramConfig struct {
	Token    string  `yaml:"token"`
	AdminIDs []int64 `yaml:"admin_ids"`
}

type NotifyConfig struct {
	Language   string         `yaml:"language"`
	Workers    int            `yaml:"workers"`
	Timeout    time.Duration  `yaml:"timeout"`
	CoachName  string         `yaml:"coach_name"`
	SMTP       SMTPConfig     `yaml:"smtp"`
	WhatsApp   WhatsAppConfig `yaml:"whatsapp"`
	Telegram   TelegramConfig `yaml:"telegram"`
	SupportURL string         `yaml:"support_url"`
}

type SchedulerConfig struct {
	ReconcileInterval time.Duration `yaml:"reconcile_interval"`
	StaleAfter        time.Duration `yaml:"stale_after"`
}

type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Log       LogConfig       `yaml:"log"`
	Admin     AdminConfig     `yaml:"admin"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Payment   PaymentConfig   `yaml:"payment"`
	Capacity  CapacityConfig  `yaml:"capacity"`
	Notify    NotifyConfig    `yaml:"notify"`
	Scheduler SchedulerConfig `yaml:"scheduler"`

	Runtime RuntimeConfig `yaml:"-"`
}

// LoadConfig reads the YAML file at path (optional when missing), loads a .env file if
// present, applies environment overrides and defaults, then validates.
func LoadConfig(path string, dev bool) (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	b, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	case errors.Is(err, os.ErrNotExist):
		// env-only deployments
	default:
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	cfg.Runtime.Dev = dev

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() {
	setStr(&c.Payment.Cashfree.AppID, "CASHFREE_APP_ID")
	setStr(&c.Payment.Cashfree.SecretKey, "CASHFREE_SECRET_KEY")
	setStr(&c.Payment.Cashfree.Environment, "CASHFREE_ENV")
	setStr(&c.Database.URL, "DATABASE_URL")
	setStr(&c.Redis.URL, "REDIS_URL")
	setStr(&c.Redis.Password, "REDIS_PASSWORD")
	setStr(&c.Notify.SMTP.Password, "SMTP_PASSWORD")
	setStr(&c.Notify.WhatsApp.Token, "WHATSAPP_TOKEN")
	setStr(&c.Notify.Telegram.Token, "TELEGRAM_BOT_TOKEN")
	setStr(&c.Admin.Password, "ADMIN_PASSWORD")
	setStr(&c.Admin.JWTSecret, "ADMIN_JWT_SECRET")
	setStr(&c.HTTP.PublicBaseURL, "PUBLIC_BASE_URL")
	if v := os.Getenv("PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			c.HTTP.Port = p
		}
	}
}

func setStr(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func (c *Config) applyDefaults() {
	if c.HTTP.Port == 0 {
		c.HTTP.Port = 8080
	}
	if c.HTTP.RequestTimeout <= 0 {
		c.HTTP.RequestTimeout = 20 * time.Second
	}
	if c.HTTP.ShutdownTimeout <= 0 {
		c.HTTP.ShutdownTimeout = 10 * time.Second
	}
	if c.HTTP.CreateRateLimit <= 0 {
		c.HTTP.CreateRateLimit = 10
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
	if c.Admin.TokenTTL <= 0 {
		c.Admin.TokenTTL = 30 * time.Minute
	}
	if c.Database.MaxConns <= 0 {
		c.Database.MaxConns = 10
	}
	c.Redis.TTL = normalizeTTL(c.Redis.TTL)

	cf := &c.Payment.Cashfree
	cf.Environment = strings.ToLower(strings.TrimSpace(cf.Environment))
	if cf.Environment == "" {
		cf.Environment = EnvSandbox
	}
	if cf.APIVersion == "" {
		cf.APIVersion = "2023-08-01"
	}
	if cf.Timeout <= 0 {
		cf.Timeout = 15 * time.Second
	}
	if c.Payment.ReturnPath == "" {
		c.Payment.ReturnPath = "/checkout/return?order_id={order_id}"
	}

	if c.Capacity.MaxSlots <= 0 {
		c.Capacity.MaxSlots = 20
	}
	if c.Capacity.Timezone == "" {
		c.Capacity.Timezone = DefaultTimezone
	}

	if c.Notify.Language == "" {
		c.Notify.Language = "en"
	}
	if c.Notify.Workers <= 0 {
		c.Notify.Workers = 4
	}
	if c.Notify.Timeout <= 0 {
		c.Notify.Timeout = 20 * time.Second
	}
	if c.Notify.SMTP.Port == 0 {
		c.Notify.SMTP.Port = 587
	}
	if c.Notify.WhatsApp.BaseURL == "" {
		c.Notify.WhatsApp.BaseURL = "https://graph.facebook.com/v19.0"
	}
	if c.Notify.WhatsApp.DefaultPrefix == "" {
		c.Notify.WhatsApp.DefaultPrefix = "91"
	}

	if c.Scheduler.ReconcileInterval <= 0 {
		c.Scheduler.ReconcileInterval = time.Minute
	}
	if c.Scheduler.StaleAfter <= 0 {
		c.Scheduler.StaleAfter = 10 * time.Minute
	}
}

func normalizeTTL(d time.Duration) time.Duration {
	if d <= 0 {
		return time.Hour
	}
	return d
}

// Validate performs minimal validation plus the gateway credential-tier check.
func (c *Config) Validate() error {
	if _, err := time.LoadLocation(c.Capacity.Timezone); err != nil {
		return fmt.Errorf("capacity.timezone: %w", err)
	}
	if c.Runtime.Dev {
		return nil
	}
	if c.Database.URL == "" {
		return errors.New("database.url is required")
	}
	if c.Redis.URL == "" {
		return errors.New("redis.url is required")
	}
	if c.Admin.JWTSecret == "" {
		return errors.New("admin.jwt_secret is required")
	}
	return c.Payment.Cashfree.Validate()
}

// ErrCredentialTierMismatch is returned when the keys do not belong to the configured environment.
var ErrCredentialTierMismatch = errors.New("payment credentials do not match payment environment")

// Validate checks presence of the credential pair and refuses test-tier keys against the
// production endpoint and production keys against the sandbox.
func (c CashfreeConfig) Validate() error {
	if c.AppID == "" || c.SecretKey == "" {
		return errors.New("payment.cashfree.app_id and secret_key are required")
	}
	testTier := strings.HasPrefix(strings.ToUpper(c.AppID), "TEST") || strings.Contains(c.SecretKey, "_test_")
	prodTier := strings.Contains(c.SecretKey, "_prod_")
	switch c.Environment {
	case EnvProduction:
		if testTier {
			return fmt.Errorf("%w: environment=production but test credentials supplied", ErrCredentialTierMismatch)
		}
	case EnvSandbox:
		if prodTier {
			return fmt.Errorf("%w: environment=sandbox but production credentials supplied", ErrCredentialTierMismatch)
		}
	default:
		return fmt.Errorf("payment.cashfree.environment must be %q or %q, got %q", EnvSandbox, EnvProduction, c.Environment)
	}
	return nil
}

// Location returns the capacity timezone; Validate guarantees it loads.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Capacity.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
