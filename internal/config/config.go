package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Input      string     `yaml:"input"`
	Output     string     `yaml:"output"`
	Processing Processing `yaml:"processing"`
	Dedup      Dedup      `yaml:"dedup"`
	LogLevel   string     `yaml:"log_level"`
}

// Processing represents run-specific configuration
type Processing struct {
	Concurrency        int    `yaml:"concurrency"`
	Checkpoint         string `yaml:"checkpoint"`
	CheckpointInterval int64  `yaml:"checkpoint_interval"`
	ShowProgress       bool   `yaml:"show_progress"`
	MetricsAddr        string `yaml:"metrics_addr"`
}

// Dedup represents the optional cross-run output deduplication
type Dedup struct {
	Enabled bool   `yaml:"enabled"`
	Index   string `yaml:"index"`
}

// Load loads configuration from file and command line flags
func Load(configFile string, flags *pflag.FlagSet) (*Config, error) {
	cfg := &Config{
		Input:    "input/mnemonics.txt",
		Output:   "output/valid_mnemonics.txt",
		LogLevel: "info",
		Processing: Processing{
			Concurrency:        runtime.NumCPU(),
			CheckpointInterval: 10000,
			ShowProgress:       true, // Default to true
		},
	}

	// Load from YAML file if provided
	if configFile != "" {
		if err := loadFromFile(cfg, configFile); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	// Override with command line flags
	if err := loadFromFlags(cfg, flags); err != nil {
		return nil, fmt.Errorf("failed to load flags: %w", err)
	}

	cfg.applyDefaults()

	// Validate configuration
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func loadFromFile(cfg *Config, filename string) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return err
	}

	return yaml.Unmarshal(data, cfg)
}

func loadFromFlags(cfg *Config, flags *pflag.FlagSet) error {
	if flags.Changed("input") {
		cfg.Input, _ = flags.GetString("input")
	}
	if flags.Changed("output") {
		cfg.Output, _ = flags.GetString("output")
	}
	if flags.Changed("concurrency") {
		cfg.Processing.Concurrency, _ = flags.GetInt("concurrency")
	}
	if flags.Changed("checkpoint") {
		cfg.Processing.Checkpoint, _ = flags.GetString("checkpoint")
	}
	if flags.Changed("checkpoint-interval") {
		cfg.Processing.CheckpointInterval, _ = flags.GetInt64("checkpoint-interval")
	}
	if flags.Changed("show-progress") {
		cfg.Processing.ShowProgress, _ = flags.GetBool("show-progress")
	}
	if flags.Changed("metrics-addr") {
		cfg.Processing.MetricsAddr, _ = flags.GetString("metrics-addr")
	}
	if flags.Changed("dedup") {
		cfg.Dedup.Enabled, _ = flags.GetBool("dedup")
	}
	if flags.Changed("dedup-index") {
		cfg.Dedup.Index, _ = flags.GetString("dedup-index")
	}
	if flags.Changed("log-level") {
		cfg.LogLevel, _ = flags.GetString("log-level")
	}

	return nil
}

// applyDefaults fills in values that depend on the environment. The
// checkpoint lives as a hidden file in the user's home directory so a
// resumed run finds it regardless of the working directory.
func (c *Config) applyDefaults() {
	if c.Processing.Checkpoint == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			home = "."
		}
		c.Processing.Checkpoint = filepath.Join(home, ".mnemoscan_checkpoint")
	}

	if c.Dedup.Index == "" {
		c.Dedup.Index = filepath.Join(filepath.Dir(c.Output), ".mnemoscan_seen.db")
	}
}

func (c *Config) validate() error {
	if c.Input == "" {
		return fmt.Errorf("input path is required")
	}
	if c.Output == "" {
		return fmt.Errorf("output path is required")
	}

	if c.Processing.Concurrency <= 0 {
		return fmt.Errorf("concurrency must be positive")
	}

	if c.Processing.CheckpointInterval <= 0 {
		return fmt.Errorf("checkpoint interval must be positive")
	}

	return nil
}
