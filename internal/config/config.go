// Package config loads application configuration and wires the global logger.
package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Link    LinkConfig    `yaml:"link" mapstructure:"link"`
	Ingest  IngestConfig  `yaml:"ingest" mapstructure:"ingest"`
	Extract ExtractConfig `yaml:"extract" mapstructure:"extract"`
	Store   StoreConfig   `yaml:"store" mapstructure:"store"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// LinkConfig bounds the temporal matching passes.
type LinkConfig struct {
	ToleranceHours          int `yaml:"tolerance_hours" mapstructure:"tolerance_hours"`
	RecoveredToleranceHours int `yaml:"recovered_tolerance_hours" mapstructure:"recovered_tolerance_hours"`
}

// Window returns the primary tolerance window.
func (c LinkConfig) Window() time.Duration {
	return time.Duration(c.ToleranceHours) * time.Hour
}

// RecoveredWindow returns the tolerance window for the recovered pass.
func (c LinkConfig) RecoveredWindow() time.Duration {
	return time.Duration(c.RecoveredToleranceHours) * time.Hour
}

// IngestConfig configures the export readers. Column names default to the
// survey tool's header names and rarely need changing.
type IngestConfig struct {
	Encoding         string `yaml:"encoding" mapstructure:"encoding"`
	ResponseIDColumn string `yaml:"response_id_column" mapstructure:"response_id_column"`
	StartTimeColumn  string `yaml:"start_time_column" mapstructure:"start_time_column"`
	DeclaredIDColumn string `yaml:"declared_id_column" mapstructure:"declared_id_column"`
}

// ExtractConfig configures the identifier extractor.
type ExtractConfig struct {
	// LayoutsFile optionally names a YAML file with extra accepted identifier
	// layouts, tried after the builtins.
	LayoutsFile string `yaml:"layouts_file" mapstructure:"layouts_file"`
}

// StoreConfig configures the run/audit database.
type StoreConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("LINKAGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("link.tolerance_hours", 24)
	v.SetDefault("link.recovered_tolerance_hours", 24)
	v.SetDefault("ingest.encoding", "utf-8")
	v.SetDefault("ingest.response_id_column", "ResponseId")
	v.SetDefault("ingest.start_time_column", "StartDate")
	v.SetDefault("ingest.declared_id_column", "UserID")
	v.SetDefault("store.path", "linkage.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
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
