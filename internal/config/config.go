package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/Mizogg/GUI-keyhunt/internal/keyspace"
)

// DefaultPath is where the CLI looks for its configuration file.
const DefaultPath = "keyhunter.yaml"

// Config holds all keyhunter configuration.
type Config struct {
	// Search parameters shared by every instance.
	Search Search `yaml:"search"`

	// Range is the full keyspace in "start:end" hexadecimal form.
	Range string `yaml:"range"`

	// Instances is the number of search processes to run.
	Instances int `yaml:"instances"`

	// KeysPerSecond is the rate used by range estimates.
	KeysPerSecond int64 `yaml:"keys_per_second"`

	// Binary locates the search executable and its input files.
	Binary BinaryConfig `yaml:"binary"`

	// Console bounds per-instance output retention.
	Console ConsoleConfig `yaml:"console"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`

	// History of past runs.
	History HistoryConfig `yaml:"history"`

	// Findings locates the files the binary writes.
	Findings FindingsConfig `yaml:"findings"`
}

// HistoryConfig configures the run history database.
type HistoryConfig struct {
	Enabled bool   `yaml:"enabled"`
	DataDir string `yaml:"data_dir"`
}

// FindingsConfig configures found/progress file inspection.
type FindingsConfig struct {
	Dir   string `yaml:"dir"`
	Watch bool   `yaml:"watch"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Search:        DefaultSearch(),
		Range:         "2000000000000000:3FFFFFFFFFFFFFFFF",
		Instances:     1,
		KeysPerSecond: keyspace.DefaultKeysPerSecond,

		Binary: BinaryConfig{
			Dir:      "keyhunt",
			InputDir: "input",
		},

		Console: ConsoleConfig{
			Threshold: DefaultThreshold,
		},

		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},

		History: HistoryConfig{
			Enabled: true,
			DataDir: ".keyhunter",
		},

		Findings: FindingsConfig{
			Dir:   ".",
			Watch: true,
		},
	}
}

// Load loads configuration from a YAML file.
// A missing file is not an error; defaults are returned.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// Override with environment variables
	cfg.applyEnvOverrides()

	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if dir := os.Getenv("KEYHUNTER_BINARY_DIR"); dir != "" {
		c.Binary.Dir = dir
	}
	if dir := os.Getenv("KEYHUNTER_INPUT_DIR"); dir != "" {
		c.Binary.InputDir = dir
	}
	if level := os.Getenv("KEYHUNTER_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
	if dir := os.Getenv("KEYHUNTER_DATA_DIR"); dir != "" {
		c.History.DataDir = dir
	}
}

// KeyRange parses the configured range.
func (c *Config) KeyRange() (keyspace.Range, error) {
	return keyspace.ParseRange(c.Range)
}

// Validate checks the whole configuration.
func (c *Config) Validate() error {
	if err := c.Search.Validate(); err != nil {
		return err
	}
	if _, err := c.KeyRange(); err != nil {
		return fmt.Errorf("range: %w", err)
	}
	if !ValidInstanceCount(c.Instances) {
		return fmt.Errorf("instances must be one of %v, got %d", InstanceCounts, c.Instances)
	}
	// keyhunt lets -b replace -r, so every instance would scan the whole puzzle.
	if c.Search.Bits > 0 && c.Instances > 1 {
		return configErr("bits", fmt.Sprint(c.Search.Bits), "only usable with a single instance, set range instead")
	}
	if !ValidThreshold(c.Console.Threshold) {
		return fmt.Errorf("console threshold must be one of %v, got %d", Thresholds, c.Console.Threshold)
	}
	if err := c.Logging.Validate(); err != nil {
		return err
	}
	if c.KeysPerSecond < 0 {
		return fmt.Errorf("keys_per_second must not be negative")
	}
	return nil
}
