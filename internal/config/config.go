// Package config loads guildwatch configuration from a YAML file and
// GUILDWATCH_* environment variables, applies defaults and validates it.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the root configuration.
type Config struct {
	Logger    LoggerConfig    `mapstructure:"logger"`
	Discord   DiscordConfig   `mapstructure:"discord"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Cache     CacheConfig     `mapstructure:"cache"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Activity  ActivityConfig  `mapstructure:"activity"`
	Gemini    GeminiConfig    `mapstructure:"gemini"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	API       APIConfig       `mapstructure:"api"`
	Messages  MessagesConfig  `mapstructure:"messages"`
}

type LoggerConfig struct {
	Level string `mapstructure:"level" validate:"required,oneof=debug info warn error"`
	JSON  bool   `mapstructure:"json"`
}

type DiscordConfig struct {
	Token string `mapstructure:"token" validate:"required"`
}

type DatabaseConfig struct {
	Path string `mapstructure:"path" validate:"required"`
	// Snapshots not updated for this long are pruned by the retention task.
	SnapshotRetention time.Duration `mapstructure:"snapshot_retention" validate:"min=1h"`
}

// CacheConfig selects the counter/KV backend. An empty URL selects the no-op store.
type CacheConfig struct {
	URL string `mapstructure:"url" validate:"omitempty,cache_url"`
}

type RateLimitConfig struct {
	WindowSeconds int `mapstructure:"window_seconds" validate:"gt=0"`
	MaxHits       int `mapstructure:"max_hits"       validate:"gt=0"`
}

// Window returns the rate limit window as a duration.
func (c RateLimitConfig) Window() time.Duration {
	return time.Duration(c.WindowSeconds) * time.Second
}

type ActivityConfig struct {
	AuditLogLimit     int           `mapstructure:"audit_log_limit"    validate:"min=1,max=100"`
	AttributionWindow time.Duration `mapstructure:"attribution_window" validate:"gt=0"`
	IgnoreTTL         time.Duration `mapstructure:"ignore_ttl"         validate:"gt=0"`
}

// GeminiConfig configures mention replies. Replies are disabled when APIKey is empty.
type GeminiConfig struct {
	APIKey            string  `mapstructure:"api_key"`
	ModelName         string  `mapstructure:"model_name"          validate:"required_with=APIKey"`
	Temperature       float32 `mapstructure:"temperature"         validate:"min=0,max=2"`
	MaxRetries        int     `mapstructure:"max_retries"         validate:"min=0,max=10"`
	RetryDelaySeconds int     `mapstructure:"retry_delay_seconds" validate:"min=0"`
	SystemInstruction string  `mapstructure:"system_instruction"`
	TimeoutSeconds    int     `mapstructure:"timeout_seconds"     validate:"gt=0"`
}

// Enabled reports whether mention replies are configured.
func (c GeminiConfig) Enabled() bool {
	return c.APIKey != ""
}

type SchedulerConfig struct {
	Tasks map[string]TaskConfig `mapstructure:"tasks" validate:"dive"`
}

type TaskConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Schedule string `mapstructure:"schedule" validate:"required_if=Enabled true"`
}

// APIConfig configures the HTTP API. An empty ListenAddr disables it.
type APIConfig struct {
	ListenAddr      string        `mapstructure:"listen_addr"      validate:"omitempty,hostname_port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
}

type MessagesConfig struct {
	EmptyPrompt string `mapstructure:"empty_prompt" validate:"required"`
	LLMError    string `mapstructure:"llm_error"    validate:"required"`
	LLMEmpty    string `mapstructure:"llm_empty"    validate:"required"`
}

// LoadConfig reads the YAML file at path, overlays GUILDWATCH_* environment
// variables on top of the defaults and validates the result. A missing file
// is not an error.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("GUILDWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config file %q: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
