package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codemap-dev/codemapd/internal/errdefs"
)

func TestLoadDefaultsWithoutFile(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":8742", cfg.Server.Address)
	assert.Equal(t, 50, cfg.Generation.DefaultMaxNodes)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Empty(t, cfg.LLM.APIKey)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "codemapd.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  address: ":9000"
generation:
  default_max_nodes: 75
logging:
  level: debug
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.Server.Address)
	assert.Equal(t, 75, cfg.Generation.DefaultMaxNodes)
	assert.Equal(t, "debug", cfg.Logging.Level)
	// untouched sections keep defaults
	assert.NotEmpty(t, cfg.Storage.Path)
}

func TestLoadExplicitMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestEnvOverride(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("CODEMAPD_LLM_API_KEY", "sk-test")
	t.Setenv("CODEMAPD_LLM_MODEL", "test-model")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "sk-test", cfg.LLM.APIKey)
	assert.Equal(t, "test-model", cfg.LLM.Model)
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty address", func(c *Config) { c.Server.Address = "" }},
		{"empty storage path", func(c *Config) { c.Storage.Path = "" }},
		{"zero share ttl", func(c *Config) { c.Storage.ShareTokenTTL = 0 }},
		{"max nodes too small", func(c *Config) { c.Generation.DefaultMaxNodes = 5 }},
		{"max nodes too large", func(c *Config) { c.Generation.DefaultMaxNodes = 500 }},
		{"unknown log level", func(c *Config) { c.Logging.Level = "loud" }},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			cfg := Default()
			c.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, errdefs.Is(err, errdefs.ErrValidation))
		})
	}
}
