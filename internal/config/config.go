package config

import (
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// Config represents the complete application configuration
type Config struct {
	Server   ServerConfig   `yaml:"server" envconfig:"SERVER"`
	Logging  LoggingConfig  `yaml:"logging" envconfig:"LOGGING"`
	Analysis AnalysisConfig `yaml:"analysis" envconfig:"ANALYSIS"`
	Import   ImportConfig   `yaml:"import" envconfig:"IMPORT"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port" envconfig:"PORT" default:"8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT" default:"15s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT" default:"30s"`
	// ImportRPS rate-limits the import endpoint; folder imports are
	// heavyweight and must not be requeued faster than they finish.
	ImportRPS   float64 `yaml:"import_rps" envconfig:"IMPORT_RPS" default:"1"`
	ImportBurst int     `yaml:"import_burst" envconfig:"IMPORT_BURST" default:"2"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" default:"info"`
	Format   string `yaml:"format" envconfig:"FORMAT" default:"json"`
	Output   string `yaml:"output" envconfig:"OUTPUT" default:"console"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH" default:"logs/app.log"`
}

// AnalysisConfig tunes the statistics engine and tolerance solver.
type AnalysisConfig struct {
	// MinSamples is the sample count under which capability figures and
	// tolerance suggestions are annotated as low confidence.
	MinSamples int `yaml:"min_samples" envconfig:"MIN_SAMPLES" default:"30"`
	// DefaultTargetYield is used when the caller does not select a yield.
	DefaultTargetYield float64 `yaml:"default_target_yield" envconfig:"DEFAULT_TARGET_YIELD" default:"0.90"`
	// MinTargetYield/MaxTargetYield bound the solver domain. Requests
	// outside fail instead of extrapolating.
	MinTargetYield float64 `yaml:"min_target_yield" envconfig:"MIN_TARGET_YIELD" default:"0.80"`
	MaxTargetYield float64 `yaml:"max_target_yield" envconfig:"MAX_TARGET_YIELD" default:"0.9973"`
}

// ImportConfig tunes the batch importer and report parser.
type ImportConfig struct {
	// Workers bounds the parse/normalize worker pool.
	Workers int `yaml:"workers" envconfig:"WORKERS" default:"4"`
	// HeaderScanWindow is how many leading rows are searched for the
	// header row before a file is declared malformed.
	HeaderScanWindow int `yaml:"header_scan_window" envconfig:"HEADER_SCAN_WINDOW" default:"60"`
	// MaxFailureDetails caps the per-file and per-row failure lists kept
	// in an ImportResult; counts are always exact.
	MaxFailureDetails int `yaml:"max_failure_details" envconfig:"MAX_FAILURE_DETAILS" default:"50"`
}

// Load loads configuration from environment variables and config file
func Load(configFile string) (*Config, error) {
	var cfg Config

	// Load from environment variables first
	if err := envconfig.Process("MDA", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	// Load from config file if exists
	if configFile != "" {
		if _, err := os.Stat(configFile); err == nil {
			fileConfig, err := loadFromFile(configFile)
			if err != nil {
				return nil, fmt.Errorf("failed to load config from file: %w", err)
			}
			cfg = mergeConfigs(*fileConfig, cfg)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// Default returns the built-in configuration without touching the
// environment or filesystem. Used by the CLI and tests.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			ImportRPS:       1,
			ImportBurst:     2,
		},
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "json",
			Output:   "console",
			FilePath: "logs/app.log",
		},
		Analysis: AnalysisConfig{
			MinSamples:         30,
			DefaultTargetYield: 0.90,
			MinTargetYield:     0.80,
			MaxTargetYield:     0.9973,
		},
		Import: ImportConfig{
			Workers:           4,
			HeaderScanWindow:  60,
			MaxFailureDetails: 50,
		},
	}
}

// loadFromFile loads configuration from YAML file
func loadFromFile(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// mergeConfigs merges file config with env config (env takes precedence)
func mergeConfigs(fileConfig, envConfig Config) Config {
	if envConfig.Server.Port == 0 {
		envConfig.Server.Port = fileConfig.Server.Port
	}
	if envConfig.Server.ReadTimeout == 0 {
		envConfig.Server.ReadTimeout = fileConfig.Server.ReadTimeout
	}
	if envConfig.Server.WriteTimeout == 0 {
		envConfig.Server.WriteTimeout = fileConfig.Server.WriteTimeout
	}
	if envConfig.Server.IdleTimeout == 0 {
		envConfig.Server.IdleTimeout = fileConfig.Server.IdleTimeout
	}
	if envConfig.Server.ShutdownTimeout == 0 {
		envConfig.Server.ShutdownTimeout = fileConfig.Server.ShutdownTimeout
	}
	if envConfig.Logging.Level == "" {
		envConfig.Logging.Level = fileConfig.Logging.Level
	}
	if envConfig.Logging.Output == "" {
		envConfig.Logging.Output = fileConfig.Logging.Output
	}
	if envConfig.Logging.FilePath == "" {
		envConfig.Logging.FilePath = fileConfig.Logging.FilePath
	}
	if envConfig.Analysis.MinSamples == 0 {
		envConfig.Analysis.MinSamples = fileConfig.Analysis.MinSamples
	}
	if envConfig.Analysis.DefaultTargetYield == 0 {
		envConfig.Analysis.DefaultTargetYield = fileConfig.Analysis.DefaultTargetYield
	}
	if envConfig.Analysis.MinTargetYield == 0 {
		envConfig.Analysis.MinTargetYield = fileConfig.Analysis.MinTargetYield
	}
	if envConfig.Analysis.MaxTargetYield == 0 {
		envConfig.Analysis.MaxTargetYield = fileConfig.Analysis.MaxTargetYield
	}
	if envConfig.Import.Workers == 0 {
		envConfig.Import.Workers = fileConfig.Import.Workers
	}
	if envConfig.Import.HeaderScanWindow == 0 {
		envConfig.Import.HeaderScanWindow = fileConfig.Import.HeaderScanWindow
	}
	if envConfig.Import.MaxFailureDetails == 0 {
		envConfig.Import.MaxFailureDetails = fileConfig.Import.MaxFailureDetails
	}

	return envConfig
}

// validate performs sanity checks on the loaded configuration
func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Import.Workers < 1 {
		return fmt.Errorf("import workers must be at least 1, got %d", c.Import.Workers)
	}
	if c.Import.HeaderScanWindow < 1 {
		return fmt.Errorf("header scan window must be at least 1, got %d", c.Import.HeaderScanWindow)
	}
	if c.Analysis.MinTargetYield <= 0 || c.Analysis.MaxTargetYield >= 1 {
		return fmt.Errorf("target yield domain must stay inside (0,1), got [%v, %v]",
			c.Analysis.MinTargetYield, c.Analysis.MaxTargetYield)
	}
	if c.Analysis.MinTargetYield >= c.Analysis.MaxTargetYield {
		return fmt.Errorf("min target yield %v must be below max %v",
			c.Analysis.MinTargetYield, c.Analysis.MaxTargetYield)
	}
	if c.Analysis.DefaultTargetYield < c.Analysis.MinTargetYield ||
		c.Analysis.DefaultTargetYield > c.Analysis.MaxTargetYield {
		return fmt.Errorf("default target yield %v outside domain [%v, %v]",
			c.Analysis.DefaultTargetYield, c.Analysis.MinTargetYield, c.Analysis.MaxTargetYield)
	}
	return nil
}
