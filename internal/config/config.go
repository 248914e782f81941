package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"credit-decision-engine/internal/logging"
)

// Decision modes supported by the hybrid combinator.
const (
	ModeRules  = "rules"
	ModeLLM    = "llm"
	ModeHybrid = "hybrid"
)

// Config materialises application configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Logging   logging.Config  `mapstructure:"logging"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Server    ServerConfig    `mapstructure:"server"`
	Bureaus   []BureauConfig  `mapstructure:"bureaus"`
	Decision  DecisionConfig  `mapstructure:"decision"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Inference InferenceConfig `mapstructure:"inference"`
	Audit     AuditConfig     `mapstructure:"audit"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// DatabaseConfig encapsulates PostgreSQL connectivity.
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	MigrationsPath  string        `mapstructure:"migrations_path"`
}

// ServerConfig governs the HTTP API listener.
type ServerConfig struct {
	Listen          string        `mapstructure:"listen"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// BureauConfig describes one external credit bureau connector.
type BureauConfig struct {
	Name           string        `mapstructure:"name"`
	BaseURL        string        `mapstructure:"base_url"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	APIKey         string        `mapstructure:"api_key"`
}

// DecisionConfig selects the decision process.
type DecisionConfig struct {
	Mode string `mapstructure:"mode"`
}

// LLMConfig covers the model provider used for decisions and inference.
type LLMConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	Provider       string        `mapstructure:"provider"`
	BaseURL        string        `mapstructure:"base_url"`
	APIKey         string        `mapstructure:"api_key"`
	Model          string        `mapstructure:"model"`
	Temperature    float64       `mapstructure:"temperature"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// InferenceConfig governs offline rule inference from decision history.
// Interval > 0 additionally runs inference on a background schedule.
type InferenceConfig struct {
	Enabled    bool          `mapstructure:"enabled"`
	SampleSize int           `mapstructure:"sample_size"`
	Interval   time.Duration `mapstructure:"interval"`
}

// AuditConfig points at the fire-and-forget audit sink.
type AuditConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	BaseURL        string        `mapstructure:"base_url"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// Load builds configuration from file, environment, and defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("CREDITD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "creditd")
	v.SetDefault("app.environment", "development")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("server.listen", ":8082")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.shutdown_timeout", "10s")

	v.SetDefault("decision.mode", ModeRules)

	v.SetDefault("llm.enabled", false)
	v.SetDefault("llm.provider", "ollama")
	v.SetDefault("llm.base_url", "http://localhost:11434")
	v.SetDefault("llm.model", "llama3")
	v.SetDefault("llm.temperature", 0.1)
	v.SetDefault("llm.request_timeout", "60s")

	v.SetDefault("inference.enabled", false)
	v.SetDefault("inference.sample_size", 50)
	v.SetDefault("inference.interval", "0s")

	v.SetDefault("audit.enabled", false)
	v.SetDefault("audit.request_timeout", "5s")

	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("database.migrations_path", "migrations")
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}

// Validate performs basic sanity checks on the configuration values.
func (c *Config) Validate() error {
	switch c.Decision.Mode {
	case ModeRules, ModeLLM, ModeHybrid:
	default:
		return fmt.Errorf("decision.mode must be one of rules, llm, hybrid; got %q", c.Decision.Mode)
	}
	if c.Inference.SampleSize <= 0 {
		return fmt.Errorf("inference.sample_size must be greater than zero")
	}
	for i, b := range c.Bureaus {
		if b.Name == "" {
			return fmt.Errorf("bureaus[%d].name is required", i)
		}
		if b.BaseURL == "" {
			return fmt.Errorf("bureaus[%d].base_url is required", i)
		}
	}
	if c.LLM.Enabled {
		switch strings.ToLower(c.LLM.Provider) {
		case "ollama":
		case "openai":
			if c.LLM.APIKey == "" {
				return fmt.Errorf("llm.api_key is required for the openai provider")
			}
		default:
			return fmt.Errorf("unknown llm.provider: %q", c.LLM.Provider)
		}
	}
	if c.Audit.Enabled && c.Audit.BaseURL == "" {
		return fmt.Errorf("audit.base_url is required when audit.enabled")
	}
	return nil
}
