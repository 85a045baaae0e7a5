package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DevSessionSecret is the fallback signing secret for local development.
// Validate refuses it when APP_ENV is production.
const DevSessionSecret = "dev-secret-change-in-production"

type Config struct {
	AppPort     string
	Environment string
	LogLevel    string

	// BaseURL is the public origin of this service; the OIDC redirect URI is
	// BaseURL + "/auth/callback".
	BaseURL string

	OIDCIssuer       string
	OIDCClientID     string
	OIDCClientSecret string

	SessionSecret string

	DatabaseURL string
	RedisURL    string

	CacheTTL time.Duration
}

// Load reads configuration from the environment and an optional config.yaml.
// Environment variables win over the file.
func Load() (Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("app_port", "3000")
	v.SetDefault("app_env", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("base_url", "http://localhost:5173")
	v.SetDefault("session_secret", DevSessionSecret)
	v.SetDefault("cache_ttl", "5m")

	for _, key := range []string{
		"oidc_issuer",
		"oidc_client_id",
		"oidc_client_secret",
		"database_url",
		"redis_url",
	} {
		_ = v.BindEnv(key, strings.ToUpper(key))
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("config: failed to read config file: %w", err)
		}
	}

	cfg := Config{
		AppPort:     v.GetString("app_port"),
		Environment: v.GetString("app_env"),
		LogLevel:    v.GetString("log_level"),

		BaseURL: strings.TrimRight(v.GetString("base_url"), "/"),

		OIDCIssuer:       v.GetString("oidc_issuer"),
		OIDCClientID:     v.GetString("oidc_client_id"),
		OIDCClientSecret: v.GetString("oidc_client_secret"),

		SessionSecret: v.GetString("session_secret"),

		DatabaseURL: v.GetString("database_url"),
		RedisURL:    v.GetString("redis_url"),

		CacheTTL: v.GetDuration("cache_ttl"),
	}

	return cfg, nil
}

// IsProduction reports whether cookies must be marked Secure and the
// development session secret refused.
func (c Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

// RedirectURL is the OIDC callback registered with the provider.
func (c Config) RedirectURL() string {
	return c.BaseURL + "/auth/callback"
}

func (c Config) Validate() error {
	var missing []string
	if c.OIDCIssuer == "" {
		missing = append(missing, "OIDC_ISSUER")
	}
	if c.OIDCClientID == "" {
		missing = append(missing, "OIDC_CLIENT_ID")
	}
	if c.OIDCClientSecret == "" {
		missing = append(missing, "OIDC_CLIENT_SECRET")
	}
	if c.BaseURL == "" {
		missing = append(missing, "BASE_URL")
	}
	if len(missing) > 0 {
		return fmt.Errorf("config: missing required settings: %s", strings.Join(missing, ", "))
	}

	if c.SessionSecret == "" {
		return errors.New("config: SESSION_SECRET must not be empty")
	}
	if c.IsProduction() && c.SessionSecret == DevSessionSecret {
		return errors.New("config: SESSION_SECRET must be set in production")
	}

	return nil
}
