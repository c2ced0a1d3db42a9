package config

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"symbollist-observer/src/helpers"
	"symbollist-observer/src/models"

	"gopkg.in/yaml.v3"
)

// Defaults applied to fields left empty in the YAML file.
const (
	DefaultQueueSize      = 1024
	DefaultConnectRetries = 5
	DefaultHistorySize    = 1000
	DefaultSchedulerMIC   = "xnys"
	DefaultSchedulerCheck = 60
)

// -----------------------------------------------------------------------------

// Config wraps models.MConfig and provides business logic methods
type Config struct {
	*models.MConfig
	mu sync.Mutex
}

// -----------------------------------------------------------------------------

// NewConfig creates a new Config instance from YAML file
func NewConfig(configPath string) (*Config, error) {
	// 1. Read the YAML file content
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, helpers.NewConfigurationError(fmt.Sprintf("failed to read config file '%s'", configPath), err)
	}
	return Parse(data)
}

// Parse builds a Config from YAML bytes, applying defaults and validating.
func Parse(data []byte) (*Config, error) {
	var modelConfig models.MConfig
	if err := yaml.Unmarshal(data, &modelConfig); err != nil {
		return nil, helpers.NewConfigurationError("failed to parse config from YAML", err)
	}

	config := &Config{MConfig: &modelConfig}
	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, helpers.NewConfigurationError("config validation failed", err)
	}

	return config, nil
}

// -----------------------------------------------------------------------------

func (c *Config) applyDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = "INFO"
	}
	if c.Session.QueueSize <= 0 {
		c.Session.QueueSize = DefaultQueueSize
	}
	if c.Session.ConnectRetries <= 0 {
		c.Session.ConnectRetries = DefaultConnectRetries
	}
	if c.HistorySize <= 0 {
		c.HistorySize = DefaultHistorySize
	}
	if c.Storage.DBType == "" {
		c.Storage.DBType = "sqlite"
	}
	if c.Scheduler.MIC == "" {
		c.Scheduler.MIC = DefaultSchedulerMIC
	}
	if c.Scheduler.IntervalSeconds <= 0 {
		c.Scheduler.IntervalSeconds = DefaultSchedulerCheck
	}
}

// -----------------------------------------------------------------------------

// Validate performs basic configuration validation
func (c *Config) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("application name cannot be empty")
	}
	switch strings.ToUpper(c.LogLevel) {
	case "DEBUG", "INFO", "NOTICE", "WARNING", "ERROR", "CRITICAL":
	default:
		return fmt.Errorf("invalid log level '%s'", c.LogLevel)
	}

	if c.ServiceName == "" {
		return fmt.Errorf("service name cannot be empty")
	}
	for i, item := range c.Items {
		if strings.TrimSpace(item) == "" {
			return fmt.Errorf("item %d cannot be empty", i)
		}
	}

	// Servers
	if c.Host == "" {
		return fmt.Errorf("server host cannot be empty")
	}
	if c.Port <= 1024 || c.Port > 65535 {
		return fmt.Errorf("invalid server port number: %d (must be between 1025 and 65535)", c.Port)
	}
	if c.GrpcPort != 0 && (c.GrpcPort <= 1024 || c.GrpcPort > 65535 || c.GrpcPort == c.Port) {
		return fmt.Errorf("invalid grpc port number: %d", c.GrpcPort)
	}

	// Storage
	switch c.Storage.DBType {
	case "sqlite":
		if c.Storage.DBPath == "" && c.Sinks.Storage {
			return fmt.Errorf("database path cannot be empty for sqlite")
		}
	case "postgres":
		if c.Storage.DBConnectionString == "" && c.Sinks.Storage {
			return fmt.Errorf("database connection string cannot be empty for postgres")
		}
	default:
		return fmt.Errorf("unsupported database type '%s'", c.Storage.DBType)
	}
	if c.Storage.RetentionDays < 0 {
		return fmt.Errorf("retention days cannot be negative")
	}

	// Dictionary files come in pairs
	if (c.Dictionary.FieldPath == "") != (c.Dictionary.EnumPath == "") {
		return fmt.Errorf("dictionary needs both field_path and enum_path")
	}

	return nil
}

// -----------------------------------------------------------------------------

// AddItem records itemName in the startup item list. It reports whether the
// list changed.
func (c *Config) AddItem(itemName string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, item := range c.Items {
		if item == itemName {
			return false
		}
	}
	c.Items = append(c.Items, itemName)
	return true
}

// RemoveItem drops itemName from the startup item list.
func (c *Config) RemoveItem(itemName string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	kept := make([]string, 0, len(c.Items))
	for _, item := range c.Items {
		if item != itemName {
			kept = append(kept, item)
		}
	}
	changed := len(kept) != len(c.Items)
	c.Items = kept
	return changed
}

// -----------------------------------------------------------------------------

// Save persists the current configuration to the specified YAML file path
func (c *Config) Save(configPath string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	// 1. Marshal the struct to YAML
	data, err := yaml.Marshal(c.MConfig)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	// 2. Write to file (0644 permissions)
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config to file '%s': %w", configPath, err)
	}

	return nil
}
