// Package config loads the lczmap configuration from config.yaml and the
// LCZMAP_* environment, and owns global logger initialization.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Source    SourceConfig    `yaml:"source" mapstructure:"source"`
	Geocode   GeocodeConfig   `yaml:"geocode" mapstructure:"geocode"`
	Aggregate AggregateConfig `yaml:"aggregate" mapstructure:"aggregate"`
	Output    OutputConfig    `yaml:"output" mapstructure:"output"`
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// SourceConfig locates the global classified raster.
type SourceConfig struct {
	URL         string `yaml:"url" mapstructure:"url"`
	MaxAttempts int    `yaml:"max_attempts" mapstructure:"max_attempts"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// GeocodeConfig configures place-name resolution.
type GeocodeConfig struct {
	BaseURL     string  `yaml:"base_url" mapstructure:"base_url"`
	UserAgent   string  `yaml:"user_agent" mapstructure:"user_agent"`
	RateRPS     float64 `yaml:"rate_rps" mapstructure:"rate_rps"`
	MaxAttempts int     `yaml:"max_attempts" mapstructure:"max_attempts"`
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// AggregateConfig configures the majority-vote downsampling stage.
type AggregateConfig struct {
	Factor  int `yaml:"factor" mapstructure:"factor"`
	Workers int `yaml:"workers" mapstructure:"workers"`
}

// OutputConfig configures artifact locations.
type OutputConfig struct {
	Dir string `yaml:"dir" mapstructure:"dir"`
}

// StoreConfig configures the run-history database.
type StoreConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Validate checks the fields required for the given mode ("analyze" or
// "serve"). It collects all problems rather than stopping at the first.
func (c *Config) Validate(mode string) error {
	var problems []string

	switch mode {
	case "analyze":
		if c.Source.URL == "" {
			problems = append(problems, "source.url is required")
		}
		if c.Geocode.BaseURL == "" {
			problems = append(problems, "geocode.base_url is required")
		}
	case "serve":
		if c.Server.Port <= 0 {
			problems = append(problems, "server.port must be > 0")
		}
		if c.Store.Path == "" {
			problems = append(problems, "store.path is required")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if c.Aggregate.Factor < 1 {
		problems = append(problems, "aggregate.factor must be >= 1")
	}
	if c.Aggregate.Workers < 0 {
		problems = append(problems, "aggregate.workers must be >= 0")
	}
	if c.Geocode.RateRPS <= 0 {
		problems = append(problems, "geocode.rate_rps must be > 0")
	}

	if len(problems) > 0 {
		return eris.Errorf("config: invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("LCZMAP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("source.url", "https://zenodo.org/records/8419340/files/lcz_filter_v3.tif")
	v.SetDefault("source.max_attempts", 5)
	v.SetDefault("source.timeout_secs", 60)
	v.SetDefault("geocode.base_url", "https://nominatim.openstreetmap.org")
	v.SetDefault("geocode.user_agent", "lczmap/1.0 (urban climate analysis)")
	v.SetDefault("geocode.rate_rps", 1.0)
	v.SetDefault("geocode.max_attempts", 3)
	v.SetDefault("geocode.timeout_secs", 30)
	v.SetDefault("aggregate.factor", 10)
	v.SetDefault("aggregate.workers", 0) // 0 = GOMAXPROCS
	v.SetDefault("output.dir", "lczmap_output")
	v.SetDefault("store.path", "lczmap.db")
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}
	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
