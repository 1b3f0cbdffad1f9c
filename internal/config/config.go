package config

import (
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Extractor  ExtractorConfig  `yaml:"extractor"`
	Transcoder TranscoderConfig `yaml:"transcoder"`
	Scratch    ScratchConfig    `yaml:"scratch"`
	History    HistoryConfig    `yaml:"history"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host        string        `yaml:"host" envconfig:"SERVER_HOST" default:"0.0.0.0"`
	Port        int           `yaml:"port" envconfig:"SERVER_PORT" default:"8591"`
	ReadTimeout time.Duration `yaml:"read_timeout" envconfig:"SERVER_READ_TIMEOUT" default:"30s"`
	// WriteTimeout defaults to 0 (disabled): download responses stream for
	// as long as the transcode runs.
	WriteTimeout time.Duration `yaml:"write_timeout" envconfig:"SERVER_WRITE_TIMEOUT" default:"0s"`
	// DevMode echoes failure diagnostics to clients in error responses.
	DevMode bool `yaml:"dev_mode" envconfig:"DEV_MODE"`
}

// ExtractorConfig holds extractor tool configuration.
type ExtractorConfig struct {
	Binary string `yaml:"binary" envconfig:"EXTRACTOR_BINARY" default:"yt-dlp"`
	// Timeout bounds metadata and URL-resolution calls. Fallback-pipeline
	// downloads are bounded by the request context instead.
	Timeout time.Duration `yaml:"timeout" envconfig:"EXTRACTOR_TIMEOUT" default:"60s"`
}

// TranscoderConfig holds transcoder tool configuration.
type TranscoderConfig struct {
	Binary string `yaml:"binary" envconfig:"TRANSCODER_BINARY" default:"ffmpeg"`
}

// ScratchConfig holds scratch directory configuration for the on-disk
// fallback pipeline.
type ScratchConfig struct {
	Dir           string        `yaml:"dir" envconfig:"SCRATCH_DIR" default:"/tmp/tubegrab"`
	SweepInterval time.Duration `yaml:"sweep_interval" envconfig:"SCRATCH_SWEEP_INTERVAL" default:"10m"`
	MaxAge        time.Duration `yaml:"max_age" envconfig:"SCRATCH_MAX_AGE" default:"1h"`
	MinFreeBytes  int64         `yaml:"min_free_bytes" envconfig:"SCRATCH_MIN_FREE_BYTES" default:"1073741824"` // 1GB
}

// HistoryConfig holds download-history persistence configuration.
// History is disabled when DBPath is empty.
type HistoryConfig struct {
	DBPath        string `yaml:"db_path" envconfig:"HISTORY_DB_PATH"`
	RetentionDays int    `yaml:"retention_days" envconfig:"HISTORY_RETENTION_DAYS" default:"30"`
}

// Load reads configuration from file and environment variables.
// Environment variables override file values.
func Load(configPath string) (*Config, error) {
	cfg := &Config{}

	// Load from YAML file if provided
	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	// Override with environment variables
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("process environment: %w", err)
	}

	// Validate
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// Validate checks that required configuration values are set.
func (c *Config) Validate() error {
	if c.Extractor.Binary == "" {
		return fmt.Errorf("EXTRACTOR_BINARY is required")
	}
	if c.Transcoder.Binary == "" {
		return fmt.Errorf("TRANSCODER_BINARY is required")
	}
	if c.Scratch.Dir == "" {
		return fmt.Errorf("SCRATCH_DIR is required")
	}
	return nil
}

// Address returns the server address in host:port format.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
