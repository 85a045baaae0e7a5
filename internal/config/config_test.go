package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("APP_PORT", "8080")
	t.Setenv("BASE_URL", "https://changelogs.example/")
	t.Setenv("OIDC_ISSUER", "https://idp.example")
	t.Setenv("OIDC_CLIENT_ID", "client")
	t.Setenv("OIDC_CLIENT_SECRET", "secret")
	t.Setenv("CACHE_TTL", "90s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.AppPort)
	assert.Equal(t, "https://changelogs.example", cfg.BaseURL)
	assert.Equal(t, "https://changelogs.example/auth/callback", cfg.RedirectURL())
	assert.Equal(t, "https://idp.example", cfg.OIDCIssuer)
	assert.Equal(t, 90*time.Second, cfg.CacheTTL)
	assert.Equal(t, DevSessionSecret, cfg.SessionSecret)
	assert.NoError(t, cfg.Validate())
}

func TestValidateRequiresOIDCSettings(t *testing.T) {
	cfg := Config{BaseURL: "http://localhost", SessionSecret: "s"}

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "OIDC_ISSUER")
	assert.Contains(t, err.Error(), "OIDC_CLIENT_SECRET")
}

func TestValidateRefusesDevSecretInProduction(t *testing.T) {
	cfg := Config{
		Environment:      "production",
		BaseURL:          "https://changelogs.example",
		OIDCIssuer:       "https://idp.example",
		OIDCClientID:     "client",
		OIDCClientSecret: "secret",
		SessionSecret:    DevSessionSecret,
	}
	assert.Error(t, cfg.Validate())

	cfg.SessionSecret = "a-real-secret"
	assert.NoError(t, cfg.Validate())
}
