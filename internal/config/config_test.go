package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port: 3000,
			Host: "0.0.0.0",
			Env:  "development",
		},
		Session: SessionConfig{
			ReconnectGracePeriod: 30 * time.Second,
			IDLength:             8,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Session.ReconnectGracePeriod)
	assert.Equal(t, 8, cfg.Session.IDLength)
	assert.False(t, cfg.Session.StrictVoteValues)
	assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
	assert.True(t, cfg.Metrics.Enabled)
	assert.True(t, cfg.IsDevelopment())
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("PORT", "8081")
	t.Setenv("RECONNECT_GRACE_PERIOD", "5s")
	t.Setenv("STRICT_VOTE_VALUES", "true")
	t.Setenv("ENV", "production")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example,https://b.example")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8081, cfg.Server.Port)
	assert.Equal(t, 5*time.Second, cfg.Session.ReconnectGracePeriod)
	assert.True(t, cfg.Session.StrictVoteValues)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.AllowedOrigins)
}

func TestLoad_BadDuration(t *testing.T) {
	t.Setenv("RECONNECT_GRACE_PERIOD", "soon")
	_, err := Load()
	assert.Error(t, err)
}

func TestValidate_Valid(t *testing.T) {
	assert.NoError(t, validConfig().Validate())
}

func TestValidate_InvalidLogLevel(t *testing.T) {
	c := validConfig()
	c.Logging.Level = "verbose"
	assert.Error(t, c.Validate())
}

func TestValidate_InvalidFormat(t *testing.T) {
	c := validConfig()
	c.Logging.Format = "xml"
	assert.Error(t, c.Validate())
}

func TestValidate_ZeroPort(t *testing.T) {
	c := validConfig()
	c.Server.Port = 0
	assert.Error(t, c.Validate())
}

func TestValidate_NonPositiveGracePeriod(t *testing.T) {
	c := validConfig()
	c.Session.ReconnectGracePeriod = 0
	assert.Error(t, c.Validate())
}

func TestGetAddr(t *testing.T) {
	assert.Equal(t, "0.0.0.0:3000", validConfig().GetAddr())
}
