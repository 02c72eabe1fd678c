package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	// Test loading default config
	cfg, err := Load()
	require.NoError(t, err)
	require.NotNil(t, cfg)

	// Verify defaults
	assert.Equal(t, EnvDevelopment, cfg.Environment)
	assert.Equal(t, ":8080", cfg.Server.Address)
	assert.Equal(t, "memory", cfg.Storage.Adapter)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, 200, cfg.Progression.DefaultMoney)
	assert.Equal(t, 3, cfg.Generator.Retries)
}

func TestLoadFromFile(t *testing.T) {
	// Create a temporary config file
	configContent := `{
		"environment": "testing",
		"server": {
			"address": ":9090"
		},
		"storage": {
			"adapter": "file"
		},
		"progression": {
			"default_money": 500
		}
	}`

	tmpFile, err := os.CreateTemp("", "config_test_*.json")
	require.NoError(t, err)
	defer os.Remove(tmpFile.Name())

	_, err = tmpFile.WriteString(configContent)
	require.NoError(t, err)
	tmpFile.Close()

	// Load config from file
	cfg, err := LoadFromFile(tmpFile.Name())
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, Environment("testing"), cfg.Environment)
	assert.Equal(t, ":9090", cfg.Server.Address)
	assert.Equal(t, "file", cfg.Storage.Adapter)
	assert.Equal(t, 500, cfg.Progression.DefaultMoney)
	// untouched sections keep their defaults
	assert.Equal(t, "./data/gimmefy.json", cfg.Storage.File.Path)
}

func TestLoadFromFileRejectsBadPath(t *testing.T) {
	_, err := LoadFromFile("")
	require.Error(t, err)

	_, err = LoadFromFile("config.yaml")
	require.Error(t, err)

	_, err = LoadFromFile("/nonexistent/config.json")
	require.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("GIMMEFY_SERVER_ADDR", ":7070")
	t.Setenv("GIMMEFY_STORAGE_ADAPTER", "redis")
	t.Setenv("GIMMEFY_DEFAULT_MONEY", "50")
	t.Setenv("GIMMEFY_GENERATOR_TIMEOUT", "30s")
	t.Setenv("GIMMEFY_SCORE_BASE_PER_CPU", "75.5")
	t.Setenv("GIMMEFY_SECURITY_API_KEYS", "k1, k2")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":7070", cfg.Server.Address)
	assert.Equal(t, "redis", cfg.Storage.Adapter)
	assert.Equal(t, 50, cfg.Progression.DefaultMoney)
	assert.Equal(t, 30*time.Second, cfg.Generator.Timeout)
	assert.Equal(t, 75.5, cfg.Progression.Score.BasePerCPU)
	assert.Equal(t, []string{"k1", "k2"}, cfg.Security.APIKeys)
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	cfg.Storage.Adapter = "mongo"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "adapter must be one of")

	cfg = DefaultConfig()
	cfg.Logging.Level = "verbose"
	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "level must be one of")

	cfg = DefaultConfig()
	cfg.Progression.DefaultMoney = -1
	require.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Security.EnableRateLimit = true
	cfg.Security.RateLimit.RequestsPerMinute = 0
	require.Error(t, cfg.Validate())
}

func TestStringRedactsSecrets(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Storage.Redis.Password = "hunter2"
	cfg.Security.APIKeys = []string{"topsecret"}

	out := cfg.String()
	assert.NotContains(t, out, "hunter2")
	assert.NotContains(t, out, "topsecret")
	assert.Contains(t, out, "[REDACTED]")
}
