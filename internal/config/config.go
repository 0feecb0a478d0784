package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

var ErrRelayMisconfigured = errors.New("relay misconfigured")

type Config struct {
	ServerPort  string `mapstructure:"SERVER_PORT"`
	RelayPort   string `mapstructure:"RELAY_PORT"`
	Environment string `mapstructure:"ENVIRONMENT"`
	LogLevel    string `mapstructure:"LOG_LEVEL"`
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	Timezone    string `mapstructure:"TIMEZONE"`

	RelayURL     string        `mapstructure:"RELAY_URL"`
	RelayTimeout time.Duration `mapstructure:"RELAY_TIMEOUT"`

	ShopifyStore      string `mapstructure:"SHOPIFY_STORE"`
	ShopifyAdminToken string `mapstructure:"SHOPIFY_ADMIN_TOKEN"`
	ShopifyAPIVersion string `mapstructure:"SHOPIFY_API_VERSION"`

	CORSAllowedOrigins string `mapstructure:"CORS_ALLOWED_ORIGINS"`

	RabbitMQURL string `mapstructure:"RABBITMQ_URL"`

	SMTPHost     string `mapstructure:"SMTP_HOST"`
	SMTPPort     int    `mapstructure:"SMTP_PORT"`
	SMTPUser     string `mapstructure:"SMTP_USER"`
	SMTPPassword string `mapstructure:"SMTP_PASSWORD"`
	SMTPFrom     string `mapstructure:"SMTP_FROM"`

	RetryBaseDelay   time.Duration `mapstructure:"SYNC_RETRY_BASE_DELAY"`
	RetryMaxDelay    time.Duration `mapstructure:"SYNC_RETRY_MAX_DELAY"`
	RetryMaxAttempts int           `mapstructure:"SYNC_RETRY_MAX_ATTEMPTS"`
	SweepInterval    time.Duration `mapstructure:"SYNC_SWEEP_INTERVAL"`
}

var defaults = map[string]any{
	"SERVER_PORT":             "8080",
	"RELAY_PORT":              "8081",
	"ENVIRONMENT":             "development",
	"LOG_LEVEL":               "INFO",
	"DATABASE_URL":            "",
	"TIMEZONE":                "America/Santiago",
	"RELAY_URL":               "http://localhost:8081",
	"RELAY_TIMEOUT":           "15s",
	"SHOPIFY_STORE":           "",
	"SHOPIFY_ADMIN_TOKEN":     "",
	"SHOPIFY_API_VERSION":     "2024-01",
	"CORS_ALLOWED_ORIGINS":    "http://localhost:5173",
	"RABBITMQ_URL":            "",
	"SMTP_HOST":               "",
	"SMTP_PORT":               587,
	"SMTP_USER":               "",
	"SMTP_PASSWORD":           "",
	"SMTP_FROM":               "no-responder@programbi.com",
	"SYNC_RETRY_BASE_DELAY":   "30s",
	"SYNC_RETRY_MAX_DELAY":    "30m",
	"SYNC_RETRY_MAX_ATTEMPTS": 8,
	"SYNC_SWEEP_INTERVAL":     "1m",
}

// Load lê o .env (se existir) e depois as variáveis de ambiente.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return load(viper.New())
}

func load(v *viper.Viper) (*Config, error) {
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("erro ao ler configuração: %w", err)
	}
	if cfg.RetryMaxAttempts < 1 {
		return nil, fmt.Errorf("SYNC_RETRY_MAX_ATTEMPTS deve ser >= 1, veio %d", cfg.RetryMaxAttempts)
	}
	if cfg.SweepInterval <= 0 {
		return nil, fmt.Errorf("SYNC_SWEEP_INTERVAL deve ser positivo")
	}
	return &cfg, nil
}

// ValidateRelay exige as credenciais do e-commerce. Sem elas o relay responde 500.
func (c *Config) ValidateRelay() error {
	var missing []string
	if strings.TrimSpace(c.ShopifyStore) == "" {
		missing = append(missing, "SHOPIFY_STORE")
	}
	if strings.TrimSpace(c.ShopifyAdminToken) == "" {
		missing = append(missing, "SHOPIFY_ADMIN_TOKEN")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: faltando %s", ErrRelayMisconfigured, strings.Join(missing, ", "))
	}
	return nil
}

func (c *Config) AllowedOrigins() []string {
	var out []string
	for _, o := range strings.Split(c.CORSAllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (c *Config) MailEnabled() bool {
	return c.SMTPHost != ""
}
