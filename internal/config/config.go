package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"     validate:"required"`
	Database   DatabaseConfig   `mapstructure:"database"   validate:"required"`
	Auth       AuthConfig       `mapstructure:"auth"       validate:"required"`
	Providers  ProvidersConfig  `mapstructure:"providers"`
	Generation GenerationConfig `mapstructure:"generation" validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port            int           `mapstructure:"port"             validate:"required,gt=0,lt=65536"`
	LogLevel        string        `mapstructure:"log_level"        validate:"required,oneof=debug info warn error"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"     validate:"gt=0"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL             string        `mapstructure:"url"               validate:"required,url"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"    validate:"gte=1"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"    validate:"gte=0"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" validate:"gte=0"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

// AuthConfig contains all authentication and authorization settings.
type AuthConfig struct {
	JWTSecret            string `mapstructure:"jwt_secret"             validate:"required,min=32"`
	TokenLifetimeMinutes int    `mapstructure:"token_lifetime_minutes" validate:"required,gt=0"`
}

// ProvidersConfig holds per-provider credentials and endpoints. Missing API
// keys are not a startup error: generations routed to an unconfigured
// provider fail with a configuration error instead.
type ProvidersConfig struct {
	OpenAI    OpenAIConfig    `mapstructure:"openai"`
	Anthropic AnthropicConfig `mapstructure:"anthropic"`
	Gemini    GeminiConfig    `mapstructure:"gemini"`
	Stability StabilityConfig `mapstructure:"stability"`
	Replicate ReplicateConfig `mapstructure:"replicate"`
}

// OpenAIConfig configures the OpenAI adapter and the remote classifier.
type OpenAIConfig struct {
	APIKey          string `mapstructure:"api_key"`
	BaseURL         string `mapstructure:"base_url"         validate:"omitempty,url"`
	Organization    string `mapstructure:"organization"`
	ClassifierModel string `mapstructure:"classifier_model" validate:"required"`
}

// AnthropicConfig configures the Anthropic adapter.
type AnthropicConfig struct {
	APIKey    string `mapstructure:"api_key"`
	BaseURL   string `mapstructure:"base_url"   validate:"required,url"`
	Version   string `mapstructure:"version"    validate:"required"`
	MaxTokens int    `mapstructure:"max_tokens" validate:"gt=0"`
}

// GeminiConfig configures the Gemini adapter.
type GeminiConfig struct {
	APIKey string `mapstructure:"api_key"`
}

// StabilityConfig configures the Stability AI adapter.
type StabilityConfig struct {
	APIKey      string  `mapstructure:"api_key"`
	BaseURL     string  `mapstructure:"base_url"     validate:"required,url"`
	CFGScale    float64 `mapstructure:"cfg_scale"    validate:"gte=0,lte=35"`
	Steps       int     `mapstructure:"steps"        validate:"gte=10,lte=150"`
	StylePreset string  `mapstructure:"style_preset"`
}

// ReplicateConfig configures the Replicate adapter.
type ReplicateConfig struct {
	APIToken     string        `mapstructure:"api_token"`
	BaseURL      string        `mapstructure:"base_url"      validate:"required,url"`
	PollInterval time.Duration `mapstructure:"poll_interval" validate:"gt=0"`
}

// GenerationConfig contains orchestration settings.
type GenerationConfig struct {
	// DefaultModel is used when a request names no model. "auto" routes by
	// classification.
	DefaultModel         string        `mapstructure:"default_model"          validate:"required"`
	DefaultSystemPrompt  string        `mapstructure:"default_system_prompt"`
	ProviderTimeout      time.Duration `mapstructure:"provider_timeout"       validate:"gt=0"`
	RemoteClassification bool          `mapstructure:"remote_classification"`
	ClassifierTimeout    time.Duration `mapstructure:"classifier_timeout"     validate:"gt=0"`
	CapabilityTablePath  string        `mapstructure:"capability_table_path"`
	StalePendingAfter    time.Duration `mapstructure:"stale_pending_after"    validate:"gt=0"`
	ReconcileInterval    time.Duration `mapstructure:"reconcile_interval"     validate:"gt=0"`
	ReconcileBatchSize   int           `mapstructure:"reconcile_batch_size"   validate:"gt=0"`
	Pricing              []ModelPrice  `mapstructure:"pricing"                validate:"dive"`
}

// ModelPrice is the cost of one thousand tokens for a model, as a decimal string.
type ModelPrice struct {
	Model             string `mapstructure:"model"               validate:"required"`
	PerThousandTokens string `mapstructure:"per_thousand_tokens" validate:"required,numeric"`
}
