// Package config loads service settings from defaults, an optional YAML file
// and the environment, in that order.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	yaml "gopkg.in/yaml.v3"
)

type Config struct {
	Port        string `yaml:"port"`
	DatabaseURL string `yaml:"databaseUrl"`
	DBMigrate   bool   `yaml:"dbMigrate"`
	RedisURL    string `yaml:"redisUrl"`

	// Outbound processor API.
	GatewayURL     string        `yaml:"gatewayUrl"`
	MerchantAPIKey string        `yaml:"merchantApiKey"`
	MerchantBotURL string        `yaml:"merchantBotUrl"`
	CurrencyCode   string        `yaml:"currencyCode"`
	OrderTimeout   time.Duration `yaml:"orderTimeout"`

	// Inbound webhook verification.
	WebhookSecret      string        `yaml:"webhookSecret"`
	SignatureHeader    string        `yaml:"signatureHeader"`
	TimestampHeader    string        `yaml:"timestampHeader"`
	TimestampTolerance time.Duration `yaml:"timestampTolerance"`

	LedgerCapacity int           `yaml:"ledgerCapacity"`
	LedgerTTL      time.Duration `yaml:"ledgerTtl"`
	OrderCapacity  int           `yaml:"orderCapacity"`
	CatalogFile    string        `yaml:"catalogFile"`

	RateRPS   float64 `yaml:"rateRps"`
	RateBurst int     `yaml:"rateBurst"`

	LogLevel  string `yaml:"logLevel"`
	LogFormat string `yaml:"logFormat"`
}

func Defaults() Config {
	return Config{
		Port:            "3001",
		DBMigrate:       true,
		CurrencyCode:    "TON",
		OrderTimeout:    time.Hour,
		SignatureHeader: "X-Defihub-Signature",
		TimestampHeader: "X-Defihub-Timestamp",
		LedgerCapacity:  10000,
		OrderCapacity:   1000,
		RateBurst:       20,
		LogLevel:        "info",
		LogFormat:       "json",
	}
}

// Load reads CONFIG_FILE (if set) over the defaults, then applies environment
// overrides and validates the result.
func Load() (Config, error) {
	cfg := Defaults()
	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return Config{}, err
		}
	}
	if err := cfg.applyEnv(os.Getenv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	str := func(key string, dst *string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}
	str("PORT", &c.Port)
	str("DATABASE_URL", &c.DatabaseURL)
	str("REDIS_URL", &c.RedisURL)
	str("DEFIHUB_SERVER_URL", &c.GatewayURL)
	str("MERCHANT_API_KEY", &c.MerchantAPIKey)
	str("MERCHANT_BOT_URL", &c.MerchantBotURL)
	str("CURRENCY_CODE", &c.CurrencyCode)
	str("WEBHOOK_SECRET", &c.WebhookSecret)
	str("WEBHOOK_SIGNATURE_HEADER", &c.SignatureHeader)
	str("WEBHOOK_TIMESTAMP_HEADER", &c.TimestampHeader)
	str("CATALOG_FILE", &c.CatalogFile)
	str("LOG_LEVEL", &c.LogLevel)
	str("LOG_FORMAT", &c.LogFormat)

	if v := getenv("DB_MIGRATE"); v != "" {
		c.DBMigrate = v != "false"
	}
	for key, dst := range map[string]*time.Duration{
		"ORDER_TIMEOUT":     &c.OrderTimeout,
		"WEBHOOK_TOLERANCE": &c.TimestampTolerance,
		"LEDGER_TTL":        &c.LedgerTTL,
	} {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("config: %s: %w", key, err)
			}
			*dst = d
		}
	}
	for key, dst := range map[string]*int{
		"LEDGER_CAPACITY": &c.LedgerCapacity,
		"ORDER_CAPACITY":  &c.OrderCapacity,
		"RATE_BURST":      &c.RateBurst,
	} {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("config: %s: %w", key, err)
			}
			*dst = n
		}
	}
	if v := strings.TrimSpace(getenv("RATE_RPS")); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("config: RATE_RPS: %w", err)
		}
		c.RateRPS = f
	}
	return nil
}

// Validate reports missing settings the service cannot start without.
func (c Config) Validate() error {
	var missing []string
	if c.GatewayURL == "" {
		missing = append(missing, "DEFIHUB_SERVER_URL")
	}
	if c.MerchantAPIKey == "" {
		missing = append(missing, "MERCHANT_API_KEY")
	}
	if c.WebhookSecret == "" {
		missing = append(missing, "WEBHOOK_SECRET")
	}
	if len(missing) > 0 {
		return fmt.Errorf("config: missing environment variables: %s", strings.Join(missing, ", "))
	}
	if c.OrderTimeout <= 0 {
		return fmt.Errorf("config: order timeout must be positive")
	}
	if c.TimestampTolerance < 0 {
		return fmt.Errorf("config: webhook tolerance must not be negative")
	}
	return nil
}

// Addr is the listen address derived from Port.
func (c Config) Addr() string { return ":" + strings.TrimPrefix(c.Port, ":") }

// Public returns the settings that are safe to expose on the debug endpoint.
func (c Config) Public() map[string]any {
	return map[string]any{
		"PORT":               c.Port,
		"DEFIHUB_SERVER_URL": c.GatewayURL,
		"MERCHANT_BOT_URL":   c.MerchantBotURL,
		"CURRENCY_CODE":      c.CurrencyCode,
		"ORDER_TIMEOUT":      c.OrderTimeout.String(),
		"WEBHOOK_TOLERANCE":  c.TimestampTolerance.String(),
		"RATE_RPS":           c.RateRPS,
		"RATE_BURST":         c.RateBurst,
		"LEDGER_CAPACITY":    c.LedgerCapacity,
		"HAS_DATABASE_URL":   c.DatabaseURL != "",
		"HAS_REDIS_URL":      c.RedisURL != "",
	}
}
