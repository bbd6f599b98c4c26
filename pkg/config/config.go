// Package config loads schemaevo configuration from a YAML file and
// SCHEMAEVO_* environment variables.
package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/viper"

	"github.com/Sumatoshi-tech/schemaevo/pkg/containment"
	"github.com/Sumatoshi-tech/schemaevo/pkg/lineage"
)

// Sentinel validation errors.
var (
	ErrInvalidWorkers = errors.New("workers must not be negative")
	ErrInvalidFormat  = errors.New("unknown output format")
	ErrInvalidLevel   = errors.New("unknown log level")
	ErrReservedPath   = errors.New("path contains the snapshot separator")
)

const (
	configName = ".schemaevo"
	envPrefix  = "SCHEMAEVO"
)

// Formats lists the supported output formats.
var Formats = []string{"table", "json", "yaml"}

var levels = []string{"debug", "info", "warn", "error"}

// Config holds all schemaevo configuration.
type Config struct {
	Workers       int                 `mapstructure:"workers"`
	Lineage       LineageConfig       `mapstructure:"lineage"`
	Containment   ContainmentConfig   `mapstructure:"containment"`
	Output        OutputConfig        `mapstructure:"output"`
	Logging       LoggingConfig       `mapstructure:"logging"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

// LineageConfig configures snapshot discovery and lineage reconstruction.
type LineageConfig struct {
	CommitsDir     string   `mapstructure:"commits_dir"`
	TrackPaths     []string `mapstructure:"track_paths"`
	Languages      []string `mapstructure:"languages"`
	ValidateMaster bool     `mapstructure:"validate_master"`
}

// ToolConfig overrides how one containment back-end is started.
type ToolConfig struct {
	Command []string `mapstructure:"command"`
	Dir     string   `mapstructure:"dir"`
}

// ContainmentConfig selects and configures the containment back-end.
type ContainmentConfig struct {
	Backend   string                `mapstructure:"backend"`
	SelfCheck bool                  `mapstructure:"self_check"`
	ToolsDir  string                `mapstructure:"tools_dir"`
	Tools     map[string]ToolConfig `mapstructure:"tools"`
}

// Checker builds the checker of the configured back-end.
func (c ContainmentConfig) Checker() (*containment.ExecChecker, error) {
	tool := c.Tools[c.Backend]

	return containment.NewChecker(c.Backend, c.ToolsDir, containment.BackendConfig{
		Command: tool.Command,
		Dir:     tool.Dir,
	})
}

// OutputConfig controls where and how results are written.
type OutputConfig struct {
	Dir      string `mapstructure:"dir"`
	Format   string `mapstructure:"format"`
	Compress bool   `mapstructure:"compress"`
}

// Extension returns the result file extension: ".json", or ".gob.lz4" when
// compression is enabled.
func (o OutputConfig) Extension() string {
	if o.Compress {
		return ".gob.lz4"
	}

	return ".json"
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"`
}

// ObservabilityConfig holds tracing and metrics export configuration.
type ObservabilityConfig struct {
	Environment  string `mapstructure:"environment"`
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
	OTLPInsecure bool   `mapstructure:"otlp_insecure"`
	OTLPHeaders  string `mapstructure:"otlp_headers"`
	MetricsAddr  string `mapstructure:"metrics_addr"`
}

// LoadConfig loads configuration from configPath, or from .schemaevo.yaml in
// the working directory or $HOME when configPath is empty. A missing default
// file is not an error.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName(configName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME")
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	readErr := v.ReadInConfig()
	if readErr != nil {
		var notFoundErr viper.ConfigFileNotFoundError
		if !errors.As(readErr, &notFoundErr) {
			return nil, fmt.Errorf("failed to read config file: %w", readErr)
		}
	}

	var cfg Config

	unmarshalErr := v.Unmarshal(&cfg)
	if unmarshalErr != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", unmarshalErr)
	}

	validateErr := cfg.Validate()
	if validateErr != nil {
		return nil, fmt.Errorf("invalid configuration: %w", validateErr)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("workers", DefaultWorkers)

	v.SetDefault("lineage.commits_dir", DefaultCommitsDir)
	v.SetDefault("lineage.track_paths", []string{})
	v.SetDefault("lineage.languages", DefaultLanguages)
	v.SetDefault("lineage.validate_master", DefaultValidateMaster)

	v.SetDefault("containment.backend", DefaultBackend)
	v.SetDefault("containment.self_check", DefaultSelfCheck)
	v.SetDefault("containment.tools_dir", DefaultToolsDir)

	v.SetDefault("output.dir", DefaultOutputDir)
	v.SetDefault("output.format", DefaultOutputFormat)
	v.SetDefault("output.compress", DefaultCompress)

	v.SetDefault("logging.level", DefaultLogLevel)
	v.SetDefault("logging.json", DefaultLogJSON)

	v.SetDefault("observability.environment", DefaultEnvironment)
	v.SetDefault("observability.otlp_endpoint", "")
	v.SetDefault("observability.otlp_insecure", DefaultOTLPInsecure)
	v.SetDefault("observability.otlp_headers", "")
	v.SetDefault("observability.metrics_addr", "")
}

// Validate checks value ranges and names.
func (c *Config) Validate() error {
	if c.Workers < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidWorkers, c.Workers)
	}

	if !containment.IsBackend(c.Containment.Backend) {
		return fmt.Errorf("%w: %q", containment.ErrUnknownBackend, c.Containment.Backend)
	}

	for name := range c.Containment.Tools {
		if !containment.IsBackend(name) {
			return fmt.Errorf("containment.tools: %w: %q", containment.ErrUnknownBackend, name)
		}
	}

	if !slices.Contains(Formats, c.Output.Format) {
		return fmt.Errorf("%w: %q (known: %s)", ErrInvalidFormat, c.Output.Format, strings.Join(Formats, ", "))
	}

	if !slices.Contains(levels, strings.ToLower(c.Logging.Level)) {
		return fmt.Errorf("%w: %q", ErrInvalidLevel, c.Logging.Level)
	}

	if strings.Contains(c.Lineage.CommitsDir, lineage.Separator) {
		return fmt.Errorf("%w: lineage.commits_dir %q", ErrReservedPath, c.Lineage.CommitsDir)
	}

	return nil
}
