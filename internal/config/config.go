// Package config loads codemapd configuration from file and environment.
//
// Lookup order: explicit path flag, then codemapd.yaml in the working
// directory, then $HOME/.config/codemapd/. Environment variables prefixed
// CODEMAPD_ override file values (CODEMAPD_SERVER_ADDRESS, CODEMAPD_LLM_API_KEY
// and so on). The LLM API key is accepted from environment or file but is
// never written back and never appears in logs.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/codemap-dev/codemapd/internal/errdefs"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Storage    StorageConfig    `mapstructure:"storage"`
	LLM        LLMConfig        `mapstructure:"llm"`
	Generation GenerationConfig `mapstructure:"generation"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

type ServerConfig struct {
	Address         string        `mapstructure:"address"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type StorageConfig struct {
	Path          string        `mapstructure:"path"`
	ShareTokenTTL time.Duration `mapstructure:"share_token_ttl"`
}

type LLMConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Model   string        `mapstructure:"model"`
	APIKey  string        `mapstructure:"api_key"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type GenerationConfig struct {
	DefaultMaxNodes int                `mapstructure:"default_max_nodes"`
	DefaultDepth    int                `mapstructure:"default_depth"`
	Timeout         time.Duration      `mapstructure:"timeout"`
	PruneWeights    PruneWeightsConfig `mapstructure:"prune_weights"`
}

// PruneWeightsConfig tunes graph pruning scores.
type PruneWeightsConfig struct {
	Critical  float64 `mapstructure:"critical"`
	High      float64 `mapstructure:"high"`
	Medium    float64 `mapstructure:"medium"`
	Low       float64 `mapstructure:"low"`
	InDegree  float64 `mapstructure:"in_degree"`
	OutDegree float64 `mapstructure:"out_degree"`
	Relevance float64 `mapstructure:"relevance"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Address:         ":8742",
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    10 * time.Minute,
			ShutdownTimeout: 15 * time.Second,
		},
		Storage: StorageConfig{
			Path:          defaultStoragePath(),
			ShareTokenTTL: 30 * 24 * time.Hour,
		},
		LLM: LLMConfig{
			BaseURL: "https://openrouter.ai/api/v1",
			Model:   "anthropic/claude-sonnet-4",
			Timeout: 2 * time.Minute,
		},
		Generation: GenerationConfig{
			DefaultMaxNodes: 50,
			DefaultDepth:    3,
			Timeout:         10 * time.Minute,
			PruneWeights: PruneWeightsConfig{
				Critical:  100,
				High:      50,
				Medium:    20,
				Low:       5,
				InDegree:  3,
				OutDegree: 2,
				Relevance: 50,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load reads configuration, layering file values and environment overrides
// over the defaults. path may be empty, in which case the standard lookup
// locations are searched; a missing config file is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix("CODEMAPD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("codemapd")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "codemapd"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errdefs.As(err, &notFound) {
			return nil, errdefs.Wrap(err, "read config")
		}
	}

	cfg := Default()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errdefs.Wrap(err, "parse config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Server.Address == "" {
		return errdefs.Wrap(errdefs.ErrValidation, "server.address must be non-empty")
	}
	if c.Storage.Path == "" {
		return errdefs.Wrap(errdefs.ErrValidation, "storage.path must be non-empty")
	}
	if c.Storage.ShareTokenTTL <= 0 {
		return errdefs.Wrap(errdefs.ErrValidation, "storage.share_token_ttl must be positive")
	}
	if c.Generation.DefaultMaxNodes < 10 || c.Generation.DefaultMaxNodes > 200 {
		return errdefs.Wrap(errdefs.ErrValidation, "generation.default_max_nodes must be in [10, 200]")
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return errdefs.Wrapf(errdefs.ErrValidation, "logging.level %q", c.Logging.Level)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("server.address", d.Server.Address)
	v.SetDefault("server.read_timeout", d.Server.ReadTimeout)
	v.SetDefault("server.write_timeout", d.Server.WriteTimeout)
	v.SetDefault("server.shutdown_timeout", d.Server.ShutdownTimeout)
	v.SetDefault("storage.path", d.Storage.Path)
	v.SetDefault("storage.share_token_ttl", d.Storage.ShareTokenTTL)
	v.SetDefault("llm.base_url", d.LLM.BaseURL)
	v.SetDefault("llm.model", d.LLM.Model)
	// registered so AutomaticEnv picks it up during Unmarshal
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.timeout", d.LLM.Timeout)
	v.SetDefault("generation.default_max_nodes", d.Generation.DefaultMaxNodes)
	v.SetDefault("generation.default_depth", d.Generation.DefaultDepth)
	v.SetDefault("generation.timeout", d.Generation.Timeout)
	v.SetDefault("generation.prune_weights.critical", d.Generation.PruneWeights.Critical)
	v.SetDefault("generation.prune_weights.high", d.Generation.PruneWeights.High)
	v.SetDefault("generation.prune_weights.medium", d.Generation.PruneWeights.Medium)
	v.SetDefault("generation.prune_weights.low", d.Generation.PruneWeights.Low)
	v.SetDefault("generation.prune_weights.in_degree", d.Generation.PruneWeights.InDegree)
	v.SetDefault("generation.prune_weights.out_degree", d.Generation.PruneWeights.OutDegree)
	v.SetDefault("generation.prune_weights.relevance", d.Generation.PruneWeights.Relevance)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
}

func defaultStoragePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "codemapd.db"
	}
	return filepath.Join(home, ".local", "share", "codemapd", "codemapd.db")
}
