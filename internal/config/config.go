package config

import (
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"cdnbench/internal/runner"
	"cdnbench/internal/source"
)

type Config struct {
	Attempts     int           `mapstructure:"attempts"`
	Samples      int           `mapstructure:"samples"`
	ShortCircuit bool          `mapstructure:"short_circuit"`
	StepInterval time.Duration `mapstructure:"step_interval"`

	Summary bool   `mapstructure:"summary"`
	Out     string `mapstructure:"out"`
	TUI     bool   `mapstructure:"tui"`

	// BaseURL points every delivery path and the registry at a local dummy
	// CDN. Empty means the real hosts.
	BaseURL string `mapstructure:"base_url"`

	Log      LogConfig      `mapstructure:"log"`
	History  HistoryConfig  `mapstructure:"history"`
	Registry RegistryConfig `mapstructure:"registry"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

type HistoryConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

type RegistryConfig struct {
	URL     string `mapstructure:"url"`
	Retries int    `mapstructure:"retries"`
}

// SetDefaults registers every key so that environment variables can
// override them.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("attempts", 20)
	v.SetDefault("samples", 5)
	v.SetDefault("short_circuit", false)
	v.SetDefault("step_interval", time.Duration(0))

	v.SetDefault("summary", false)
	v.SetDefault("out", "")
	v.SetDefault("tui", false)
	v.SetDefault("base_url", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.file", "")

	v.SetDefault("history.enabled", true)
	v.SetDefault("history.path", "")

	v.SetDefault("registry.url", source.DefaultRegistryURL)
	v.SetDefault("registry.retries", 3)
}

// New returns a viper instance with defaults and CDNBENCH_ environment
// overrides, e.g. CDNBENCH_LOG_LEVEL=debug.
func New() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix("cdnbench")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

// ReadFile reads path, or $HOME/.cdnbench.yaml when path is empty. A missing
// default file is not an error.
func ReadFile(v *viper.Viper, path string, home string) error {
	if path != "" {
		v.SetConfigFile(path)
	} else {
		if home == "" {
			return nil
		}
		v.AddConfigPath(home)
		v.SetConfigType("yaml")
		v.SetConfigName(".cdnbench")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path == "" && errors.As(err, &notFound) {
			return nil
		}
		return errors.Wrap(err, "cannot read config file")
	}

	return nil
}

func Load(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, errors.Wrap(err, "cannot decode config")
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c Config) Validate() error {
	if c.Attempts < 0 {
		return errors.Errorf("attempts must not be negative, got %d", c.Attempts)
	}
	if c.Samples < 0 {
		return errors.Errorf("samples must not be negative, got %d", c.Samples)
	}
	if c.StepInterval < 0 {
		return errors.Errorf("step interval must not be negative, got %s", c.StepInterval)
	}
	if c.Registry.Retries < 0 {
		return errors.Errorf("registry retries must not be negative, got %d", c.Registry.Retries)
	}
	return nil
}

func (c Config) RunnerConfig() runner.Config {
	return runner.Config{
		MaxAttempts:  c.Attempts,
		MaxSamples:   c.Samples,
		ShortCircuit: c.ShortCircuit,
		StepInterval: c.StepInterval,
	}
}

// RegistryURL is the registry to list versions from.
func (c Config) RegistryURL() string {
	if c.BaseURL != "" {
		return c.BaseURL
	}
	return c.Registry.URL
}

// Family applies BaseURL to f.
func (c Config) Family(f source.Family) source.Family {
	if c.BaseURL != "" {
		return f.Rebase(c.BaseURL)
	}
	return f
}
