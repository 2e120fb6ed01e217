package gateway

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/alovak/cardflow-gateway/internal/bank"
	"github.com/alovak/cardflow-gateway/internal/logging"
	"github.com/spf13/viper"
)

const (
	StoreMemory   = "mem"
	StorePostgres = "pg"
	StoreRedis    = "redis"
)

// Config is a configuration for the gateway application
type Config struct {
	HTTPAddr  string          `mapstructure:"http_addr" yaml:"http_addr"`
	Bank      BankConfig      `mapstructure:"bank" yaml:"bank"`
	Store     StoreConfig     `mapstructure:"store" yaml:"store"`
	Kafka     KafkaConfig     `mapstructure:"kafka" yaml:"kafka"`
	Telemetry TelemetryConfig `mapstructure:"telemetry" yaml:"telemetry"`
	Log       logging.Config  `mapstructure:"log" yaml:"log"`
}

type BankConfig struct {
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`
	// Timeout bounds a single authorization attempt, not the whole retry sequence.
	Timeout        time.Duration `mapstructure:"timeout" yaml:"timeout"`
	MaxRetries     int           `mapstructure:"max_retries" yaml:"max_retries"`
	InitialBackoff time.Duration `mapstructure:"initial_backoff" yaml:"initial_backoff"`
}

type StoreConfig struct {
	Backend   string `mapstructure:"backend" yaml:"backend"`
	DSN       string `mapstructure:"dsn" yaml:"dsn"`
	RedisAddr string `mapstructure:"redis_addr" yaml:"redis_addr"`
}

// KafkaConfig enables payment events when Brokers (comma separated) is set.
type KafkaConfig struct {
	Brokers string `mapstructure:"brokers" yaml:"brokers"`
	Topic   string `mapstructure:"topic" yaml:"topic"`
}

type TelemetryConfig struct {
	OTLPEndpoint   string `mapstructure:"otlp_endpoint" yaml:"otlp_endpoint"`
	MetricsEnabled bool   `mapstructure:"metrics_enabled" yaml:"metrics_enabled"`
}

func DefaultConfig() *Config {
	policy := bank.DefaultRetryPolicy()
	return &Config{
		HTTPAddr: "localhost:9090",
		Bank: BankConfig{
			Timeout:        10 * time.Second,
			MaxRetries:     policy.MaxRetries,
			InitialBackoff: policy.InitialInterval,
		},
		Store: StoreConfig{
			Backend: StoreMemory,
		},
		Kafka: KafkaConfig{
			Topic: "payments",
		},
		Telemetry: TelemetryConfig{
			MetricsEnabled: true,
		},
		Log: logging.Config{
			Level:  "info",
			Format: "text",
		},
	}
}

// RetryPolicy turns the bank settings into the authorization retry schedule.
func (c *Config) RetryPolicy() bank.RetryPolicy {
	policy := bank.DefaultRetryPolicy()
	policy.MaxRetries = c.Bank.MaxRetries
	policy.InitialInterval = c.Bank.InitialBackoff
	return policy
}

// LoadConfig reads defaults, then the optional YAML file at path, then GATEWAY_* environment
// variables (GATEWAY_BANK_BASE_URL overrides bank.base_url).
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v, DefaultConfig())

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	v.SetEnvPrefix("GATEWAY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	return cfg, nil
}

// every key needs a default so that AutomaticEnv can see it during Unmarshal
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("http_addr", d.HTTPAddr)
	v.SetDefault("bank.base_url", d.Bank.BaseURL)
	v.SetDefault("bank.timeout", d.Bank.Timeout)
	v.SetDefault("bank.max_retries", d.Bank.MaxRetries)
	v.SetDefault("bank.initial_backoff", d.Bank.InitialBackoff)
	v.SetDefault("store.backend", d.Store.Backend)
	v.SetDefault("store.dsn", d.Store.DSN)
	v.SetDefault("store.redis_addr", d.Store.RedisAddr)
	v.SetDefault("kafka.brokers", d.Kafka.Brokers)
	v.SetDefault("kafka.topic", d.Kafka.Topic)
	v.SetDefault("telemetry.otlp_endpoint", d.Telemetry.OTLPEndpoint)
	v.SetDefault("telemetry.metrics_enabled", d.Telemetry.MetricsEnabled)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("log.include_caller", d.Log.IncludeCaller)
}

// Validate reports every configuration problem that would prevent the gateway from starting.
func (c *Config) Validate() error {
	var errs []error

	base := strings.TrimSpace(c.Bank.BaseURL)
	if base == "" {
		errs = append(errs, errors.New("The configuration value for 'bank.base_url' is missing or empty."))
	} else if u, err := url.Parse(base); err != nil || !u.IsAbs() || u.Host == "" {
		errs = append(errs, errors.New("The configuration value for 'bank.base_url' is not a valid absolute URI."))
	}

	if c.Bank.Timeout <= 0 {
		errs = append(errs, errors.New("bank.timeout must be positive"))
	}
	if c.Bank.MaxRetries < 0 {
		errs = append(errs, errors.New("bank.max_retries must not be negative"))
	}
	if c.Bank.MaxRetries > 0 && c.Bank.InitialBackoff <= 0 {
		errs = append(errs, errors.New("bank.initial_backoff must be positive"))
	}

	switch c.Store.Backend {
	case StoreMemory:
	case StorePostgres:
		if c.Store.DSN == "" {
			errs = append(errs, errors.New("store.dsn is required for the pg backend"))
		}
	case StoreRedis:
		if c.Store.RedisAddr == "" {
			errs = append(errs, errors.New("store.redis_addr is required for the redis backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported store.backend %q", c.Store.Backend))
	}

	if c.Kafka.Brokers != "" && c.Kafka.Topic == "" {
		errs = append(errs, errors.New("kafka.topic is required when kafka.brokers is set"))
	}

	return errors.Join(errs...)
}
