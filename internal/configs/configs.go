package configs

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/songzhibin97/brokerlink/internal/models"
	"github.com/songzhibin97/brokerlink/internal/sandbox"
	"github.com/songzhibin97/brokerlink/internal/utils/logger"
	"github.com/songzhibin97/brokerlink/internal/utils/request"
)

const (
	BrokerTinkoff = "tinkoff"
	BrokerBinance = "binance"
)

type Config struct {
	// 券商配置
	Broker Broker `json:"broker" yaml:"broker"`

	// 日志配置
	Logging Logging `json:"logging" yaml:"logging"`

	// 审计存储, driver 为空时只写日志
	Audit Audit `json:"audit" yaml:"audit"`
}

type Broker struct {
	Kind          string  `json:"kind" yaml:"kind"`                       // tinkoff 或 binance
	APIToken      string  `json:"api_token" yaml:"api_token"`             // Tinkoff token 或 Binance API key
	SecretKey     string  `json:"secret_key" yaml:"secret_key"`           // 仅 Binance
	UseIISAccount bool    `json:"use_iis_account" yaml:"use_iis_account"` // 使用个人投资账户
	BaseURL       string  `json:"base_url" yaml:"base_url"`               // 为空时使用默认地址
	Timeout       string  `json:"timeout" yaml:"timeout"`                 // 请求超时, 例如 10s
	RetryCount    int     `json:"retry_count" yaml:"retry_count"`         // 传输层重试次数, 仅重试 GET
	Sandbox       Sandbox `json:"sandbox" yaml:"sandbox"`
}

type Sandbox struct {
	Enabled        bool   `json:"enabled" yaml:"enabled"`
	InitBalance    string `json:"init_balance" yaml:"init_balance"`   // 初始余额, 为空时不设置
	InitCurrency   string `json:"init_currency" yaml:"init_currency"` // 默认 RUB
	ClearOnStartup bool   `json:"clear_on_startup" yaml:"clear_on_startup"`
}

type Logging struct {
	Level      string `json:"level" yaml:"level"`
	Format     string `json:"format" yaml:"format"`
	File       string `json:"file" yaml:"file"`
	MaxSizeMB  int    `json:"max_size_mb" yaml:"max_size_mb"`
	MaxBackups int    `json:"max_backups" yaml:"max_backups"`
	MaxAgeDays int    `json:"max_age_days" yaml:"max_age_days"`
}

type Audit struct {
	Driver string `json:"driver" yaml:"driver"` // postgres 或 sqlite
	DSN    string `json:"dsn" yaml:"dsn"`
}

// Load reads a YAML (or JSON) config file, applies environment overrides and
// defaults, then validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyEnvOverrides(cfg)
	cfg.setDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides lets secrets stay out of the config file.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("BROKER_KIND"); v != "" {
		cfg.Broker.Kind = v
	}
	if v := os.Getenv("TINKOFF_API_TOKEN"); v != "" && cfg.Broker.Kind != BrokerBinance {
		cfg.Broker.APIToken = v
	}
	if v := os.Getenv("BINANCE_API_KEY"); v != "" && cfg.Broker.Kind == BrokerBinance {
		cfg.Broker.APIToken = v
	}
	if v := os.Getenv("BINANCE_SECRET_KEY"); v != "" && cfg.Broker.Kind == BrokerBinance {
		cfg.Broker.SecretKey = v
	}
	if v := os.Getenv("BROKER_SANDBOX"); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			cfg.Broker.Sandbox.Enabled = enabled
		}
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("AUDIT_DSN"); v != "" {
		cfg.Audit.DSN = v
	}
}

func (c *Config) setDefaults() {
	if c.Broker.Kind == "" {
		c.Broker.Kind = BrokerTinkoff
	}
	if c.Broker.Timeout == "" {
		c.Broker.Timeout = "10s"
	}
	if c.Broker.Sandbox.InitCurrency == "" {
		c.Broker.Sandbox.InitCurrency = string(models.CurrencyRUB)
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.MaxSizeMB == 0 {
		c.Logging.MaxSizeMB = 100
	}
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error

	switch c.Broker.Kind {
	case BrokerTinkoff:
		if c.Broker.APIToken == "" {
			errs = append(errs, errors.New("broker.api_token is required"))
		}
	case BrokerBinance:
		if c.Broker.APIToken == "" || c.Broker.SecretKey == "" {
			errs = append(errs, errors.New("broker.api_token and broker.secret_key are required for binance"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown broker.kind: %q", c.Broker.Kind))
	}

	if c.Broker.Timeout != "" {
		if d, err := time.ParseDuration(c.Broker.Timeout); err != nil || d < 0 {
			errs = append(errs, fmt.Errorf("invalid broker.timeout: %q", c.Broker.Timeout))
		}
	}
	if c.Broker.RetryCount < 0 {
		errs = append(errs, errors.New("broker.retry_count must not be negative"))
	}
	if c.Broker.Sandbox.InitBalance != "" {
		if b, err := decimal.NewFromString(c.Broker.Sandbox.InitBalance); err != nil || b.IsNegative() {
			errs = append(errs, fmt.Errorf("invalid broker.sandbox.init_balance: %q", c.Broker.Sandbox.InitBalance))
		}
	}

	switch c.Logging.Format {
	case "", "json", "text":
	default:
		errs = append(errs, fmt.Errorf("unknown logging.format: %q", c.Logging.Format))
	}

	switch c.Audit.Driver {
	case "":
	case "postgres", "sqlite":
		if c.Audit.DSN == "" {
			errs = append(errs, errors.New("audit.dsn is required when audit.driver is set"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown audit.driver: %q", c.Audit.Driver))
	}

	return errors.Join(errs...)
}

// RequestOptions returns transport settings for the REST client.
func (c *Config) RequestOptions() request.Options {
	timeout, _ := time.ParseDuration(c.Broker.Timeout)
	return request.Options{
		BaseURL:    c.Broker.BaseURL,
		Token:      c.Broker.APIToken,
		Timeout:    timeout,
		RetryCount: c.Broker.RetryCount,
	}
}

// SandboxOptions returns what the sandbox initializer should do on startup.
func (c *Config) SandboxOptions() sandbox.Options {
	opts := sandbox.Options{
		Enabled:        c.Broker.Sandbox.Enabled,
		ClearOnStartup: c.Broker.Sandbox.ClearOnStartup,
		InitCurrency:   models.Currency(c.Broker.Sandbox.InitCurrency),
	}
	if b, err := decimal.NewFromString(c.Broker.Sandbox.InitBalance); err == nil {
		opts.InitBalance = &b
	}
	return opts
}

// LoggerOptions returns the logger settings.
func (c *Config) LoggerOptions() logger.Options {
	return logger.Options{
		Level:      c.Logging.Level,
		Format:     c.Logging.Format,
		File:       c.Logging.File,
		MaxSizeMB:  c.Logging.MaxSizeMB,
		MaxBackups: c.Logging.MaxBackups,
		MaxAgeDays: c.Logging.MaxAgeDays,
	}
}
