package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable the service reads,
// e.g. GENFORGE_SERVER_PORT for server.port.
const EnvPrefix = "GENFORGE"

// Load configuration from environment variables and optionally config files.
// Environment variables take precedence over values from config files.
// Returns a populated Config struct or an error if loading/validation fails.
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile behaves like Load but reads the given YAML file instead of
// searching for config.yaml. An empty path searches the default locations.
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := bindProviderKeys(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate runs struct validation over cfg.
func Validate(cfg *Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	// A request can legitimately stay PENDING for the classifier call plus
	// the provider call; the sweep must not close it before then.
	gen := cfg.Generation
	if budget := gen.ProviderTimeout + gen.ClassifierTimeout; gen.StalePendingAfter <= budget {
		return fmt.Errorf(
			"invalid configuration: generation.stale_pending_after (%s) must exceed provider_timeout plus classifier_timeout (%s)",
			gen.StalePendingAfter, budget)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.shutdown_timeout", "30s")

	v.SetDefault("database.url", "")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("database.auto_migrate", true)

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.token_lifetime_minutes", 60)

	v.SetDefault("providers.openai.api_key", "")
	v.SetDefault("providers.openai.base_url", "")
	v.SetDefault("providers.openai.organization", "")
	v.SetDefault("providers.openai.classifier_model", "gpt-4o-mini")
	v.SetDefault("providers.anthropic.api_key", "")
	v.SetDefault("providers.anthropic.base_url", "https://api.anthropic.com")
	v.SetDefault("providers.anthropic.version", "2023-06-01")
	v.SetDefault("providers.anthropic.max_tokens", 1000)
	v.SetDefault("providers.gemini.api_key", "")
	v.SetDefault("providers.stability.api_key", "")
	v.SetDefault("providers.stability.base_url", "https://api.stability.ai")
	v.SetDefault("providers.stability.cfg_scale", 7)
	v.SetDefault("providers.stability.steps", 30)
	v.SetDefault("providers.stability.style_preset", "photographic")
	v.SetDefault("providers.replicate.api_token", "")
	v.SetDefault("providers.replicate.base_url", "https://api.replicate.com")
	v.SetDefault("providers.replicate.poll_interval", "1s")

	v.SetDefault("generation.default_model", "auto")
	v.SetDefault("generation.default_system_prompt", "You are a helpful AI assistant.")
	v.SetDefault("generation.provider_timeout", "120s")
	v.SetDefault("generation.remote_classification", true)
	v.SetDefault("generation.classifier_timeout", "5s")
	v.SetDefault("generation.capability_table_path", "")
	v.SetDefault("generation.stale_pending_after", "15m")
	v.SetDefault("generation.reconcile_interval", "1m")
	v.SetDefault("generation.reconcile_batch_size", 100)
}

// bindProviderKeys also accepts the providers' conventional variable names
// so existing deployments keep working without the GENFORGE_ prefix.
func bindProviderKeys(v *viper.Viper) error {
	bindings := map[string][]string{
		"providers.openai.api_key":      {"GENFORGE_PROVIDERS_OPENAI_API_KEY", "OPENAI_API_KEY"},
		"providers.anthropic.api_key":   {"GENFORGE_PROVIDERS_ANTHROPIC_API_KEY", "ANTHROPIC_API_KEY"},
		"providers.gemini.api_key":      {"GENFORGE_PROVIDERS_GEMINI_API_KEY", "GEMINI_API_KEY"},
		"providers.stability.api_key":   {"GENFORGE_PROVIDERS_STABILITY_API_KEY", "STABILITY_API_KEY"},
		"providers.replicate.api_token": {"GENFORGE_PROVIDERS_REPLICATE_API_TOKEN", "REPLICATE_API_TOKEN"},
	}
	for key, envs := range bindings {
		args := append([]string{key}, envs...)
		if err := v.BindEnv(args...); err != nil {
			return fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}
	return nil
}
