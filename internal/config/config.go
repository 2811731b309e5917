package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultSources are the configuration files and directories archived
// when no explicit source list is configured or passed per call.
var DefaultSources = []string{
	"configuration.yaml",
	"automations.yaml",
	"scripts.yaml",
	"blueprints",
	"automations",
	"scripts",
}

// Config represents the application configuration
type Config struct {
	Server   ServerConfig   `yaml:"server" json:"server"`
	Storage  StorageConfig  `yaml:"storage" json:"storage"`
	Backup   BackupConfig   `yaml:"backup" json:"backup"`
	Database DatabaseConfig `yaml:"database" json:"database"`
	Logging  LoggingConfig  `yaml:"logging" json:"logging"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Host     string `yaml:"host" json:"host"`
	Port     int    `yaml:"port" json:"port"`
	APIToken string `yaml:"api_token" json:"api_token"`
}

// StorageConfig contains storage paths
type StorageConfig struct {
	ConfigDir string `yaml:"config_dir" json:"config_dir"`
	BackupDir string `yaml:"backup_dir" json:"backup_dir"`
	DataDir   string `yaml:"data_dir" json:"data_dir"`
}

// BackupConfig contains backup engine settings
type BackupConfig struct {
	Sources    []string       `yaml:"sources" json:"sources"`
	MaxBackups RetentionCount `yaml:"max_backups" json:"max_backups"`
	Schedule   string         `yaml:"schedule" json:"schedule"`
}

// DatabaseConfig contains database settings
type DatabaseConfig struct {
	Path string `yaml:"path" json:"path"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level      string `yaml:"level" json:"level"`
	Format     string `yaml:"format" json:"format"`
	File       string `yaml:"file" json:"file"`
	MaxSize    int    `yaml:"max_size" json:"max_size"`
	MaxBackups int    `yaml:"max_backups" json:"max_backups"`
	MaxAge     int    `yaml:"max_age" json:"max_age"`
}

// RetentionCount is a non-negative retention cap tolerating malformed
// configuration values. Invalid or negative scalars are logged and fall
// back to 0, which keeps all backups.
type RetentionCount int

// UnmarshalYAML implements yaml.Unmarshaler.
func (rc *RetentionCount) UnmarshalYAML(value *yaml.Node) error {
	n, err := strconv.Atoi(strings.TrimSpace(value.Value))
	if err != nil || n < 0 {
		log.Printf("[Config] Invalid max_backups value %q; keeping all backups", value.Value)
		*rc = 0
		return nil
	}
	*rc = RetentionCount(n)
	return nil
}

// Load loads configuration from file and environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host: "127.0.0.1",
			Port: 8090,
		},
		Storage: StorageConfig{
			ConfigDir: "./config",
			DataDir:   "./data",
		},
		Backup: BackupConfig{
			Sources: append([]string(nil), DefaultSources...),
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "json",
			MaxSize:    100,
			MaxBackups: 5,
			MaxAge:     30,
		},
	}

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./configs/config.yaml"
	}

	if _, err := os.Stat(configPath); err == nil {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	// Override with environment variables
	if configDir := os.Getenv("CONFIG_DIR"); configDir != "" {
		cfg.Storage.ConfigDir = configDir
	}
	if backupDir := os.Getenv("BACKUP_DIR"); backupDir != "" {
		cfg.Storage.BackupDir = backupDir
	}
	if dataDir := os.Getenv("DATA_DIR"); dataDir != "" {
		cfg.Storage.DataDir = dataDir
	}
	if apiToken := os.Getenv("API_TOKEN"); apiToken != "" {
		cfg.Server.APIToken = apiToken
	}
	if logLevel := os.Getenv("LOG_LEVEL"); logLevel != "" {
		cfg.Logging.Level = logLevel
	}

	cfg.normalizeStoragePaths()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Storage.ConfigDir) == "" {
		return fmt.Errorf("storage.config_dir must be set")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}
	return nil
}

// normalizeStoragePaths makes storage paths absolute and fills in
// defaults derived from other paths: the backup directory defaults to
// <config_dir>/backups, the database to <data_dir>/backupper.db.
func (c *Config) normalizeStoragePaths() {
	abs := func(value string) string {
		trimmed := strings.TrimSpace(value)
		if trimmed == "" {
			return ""
		}
		if filepath.IsAbs(trimmed) {
			return filepath.Clean(trimmed)
		}
		if resolved, err := filepath.Abs(trimmed); err == nil {
			return resolved
		}
		return filepath.Clean(trimmed)
	}

	c.Storage.ConfigDir = abs(c.Storage.ConfigDir)
	c.Storage.DataDir = abs(c.Storage.DataDir)

	if strings.TrimSpace(c.Storage.BackupDir) == "" {
		c.Storage.BackupDir = filepath.Join(c.Storage.ConfigDir, "backups")
	} else if !filepath.IsAbs(c.Storage.BackupDir) {
		// Relative backup directories live under the configuration root,
		// matching host path-resolution conventions.
		c.Storage.BackupDir = filepath.Join(c.Storage.ConfigDir, c.Storage.BackupDir)
	}
	c.Storage.BackupDir = filepath.Clean(c.Storage.BackupDir)

	if strings.TrimSpace(c.Database.Path) == "" {
		c.Database.Path = filepath.Join(c.Storage.DataDir, "backupper.db")
	} else {
		c.Database.Path = abs(c.Database.Path)
	}
}
