package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Provider selects the completion backend.
type Provider string

const (
	ProviderOpenAI Provider = "openai"
	ProviderGemini Provider = "gemini"
)

const (
	DefaultModel           = "gpt-4"
	DefaultTemperature     = 0.3
	DefaultEndpoint        = "https://api.openai.com/v1"
	DefaultAPIKeyEnv       = "OPENAI_API_KEY"
	DefaultGeminiModel     = "gemini-2.5-flash"
	DefaultGeminiAPIKeyEnv = "GEMINI_API_KEY"
	DefaultSystemPrompt    = "You are a DevSecOps expert. Summarize this vulnerability report for a CTO in HTML."
)

// Config is the full runtime configuration.
type Config struct {
	LLM    LLMConfig    `mapstructure:"llm"`
	Logger LoggerConfig `mapstructure:"logger"`
}

// LLMConfig configures the completion client. APIKey is never read from the
// config file; the CLI resolves it from the variable named by APIKeyEnv.
type LLMConfig struct {
	Provider     Provider      `mapstructure:"provider"`
	Model        string        `mapstructure:"model"`
	Temperature  float64       `mapstructure:"temperature"`
	Endpoint     string        `mapstructure:"endpoint"`
	APIKeyEnv    string        `mapstructure:"api_key_env"`
	Timeout      time.Duration `mapstructure:"timeout"`
	SystemPrompt string        `mapstructure:"system_prompt"`
	APIKey       string        `mapstructure:"-"`
}

// LoggerConfig holds the logger settings.
type LoggerConfig struct {
	Level       string `mapstructure:"level"`
	Format      string `mapstructure:"format"`
	ServiceName string `mapstructure:"service_name"`
	LogFile     string `mapstructure:"log_file"`
	MaxSize     int    `mapstructure:"max_size"`
	MaxBackups  int    `mapstructure:"max_backups"`
	MaxAge      int    `mapstructure:"max_age"`
	Compress    bool   `mapstructure:"compress"`
}

// SetDefaults registers every key with its default value.
func SetDefaults(v *viper.Viper) {
	// -- LLM --
	v.SetDefault("llm.provider", string(ProviderOpenAI))
	v.SetDefault("llm.model", DefaultModel)
	v.SetDefault("llm.temperature", DefaultTemperature)
	v.SetDefault("llm.endpoint", DefaultEndpoint)
	v.SetDefault("llm.api_key_env", DefaultAPIKeyEnv)
	v.SetDefault("llm.timeout", "0s")
	v.SetDefault("llm.system_prompt", DefaultSystemPrompt)

	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.service_name", "vulnbrief")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 10)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 28)
	v.SetDefault("logger.compress", false)
}

// Default returns the configuration with only defaults applied.
func Default() *Config {
	v := viper.New()
	SetDefaults(v)
	cfg, err := FromViper(v)
	if err != nil {
		panic(fmt.Sprintf("default config is invalid: %v", err))
	}
	return cfg
}

// FromViper decodes and validates the configuration held by v.
func FromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.applyProviderDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// applyProviderDefaults swaps the OpenAI model and key variable for the
// Gemini ones when the gemini provider is chosen and neither was changed.
func (c *Config) applyProviderDefaults() {
	if c.LLM.Provider != ProviderGemini {
		return
	}
	if c.LLM.Model == DefaultModel {
		c.LLM.Model = DefaultGeminiModel
	}
	if c.LLM.APIKeyEnv == DefaultAPIKeyEnv {
		c.LLM.APIKeyEnv = DefaultGeminiAPIKeyEnv
	}
}

// Validate checks required fields and value ranges.
func (c *Config) Validate() error {
	switch c.LLM.Provider {
	case ProviderOpenAI, ProviderGemini:
	default:
		return fmt.Errorf("llm.provider %q is not supported (use %q or %q)", c.LLM.Provider, ProviderOpenAI, ProviderGemini)
	}
	if c.LLM.Model == "" {
		return fmt.Errorf("llm.model is required")
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		return fmt.Errorf("llm.temperature must be between 0 and 2, got %v", c.LLM.Temperature)
	}
	if c.LLM.Timeout < 0 {
		return fmt.Errorf("llm.timeout must not be negative")
	}
	if c.LLM.APIKeyEnv == "" {
		return fmt.Errorf("llm.api_key_env is required")
	}
	return nil
}
