// Package config loads the console configuration from YAML files and
// environment variables.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Default configuration values exported for documentation and validation
const (
	DefaultBindAddress = "127.0.0.1:9977"
	DefaultEngineTag   = "lanxiang-federated:1.0.0"
	DefaultUsername    = "admin007"
	DefaultExportDir   = "exports"
	DefaultLogDir      = "logs"
	DefaultStorePath   = "janus-console.db"
)

// Config represents the complete console configuration
type Config struct {
	Remote  RemoteConfig  `yaml:"remote"`
	Server  ServerConfig  `yaml:"server"`
	Export  ExportConfig  `yaml:"export"`
	Logging LoggingConfig `yaml:"logging"`
	Storage StorageConfig `yaml:"storage"`
}

// RemoteConfig identifies the Janus gateway endpoint and credentials
type RemoteConfig struct {
	Token       string `yaml:"token"`
	URL         string `yaml:"url"` // e.g. http://10.99.92.39:8865/janus/invoke/v1
	NamespaceID string `yaml:"namespace_id"`
	Username    string `yaml:"username"`
	EngineTag   string `yaml:"engine_tag"`
	NetworkLogs bool   `yaml:"network_logs"`
}

// ServerConfig controls the HTTP server
type ServerConfig struct {
	BindAddress    string   `yaml:"bind_address"`
	StaticDir      string   `yaml:"static_dir"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// ExportConfig controls bulk export output
type ExportConfig struct {
	Dir    string `yaml:"dir"`
	Format string `yaml:"format"` // "csv" or "xlsx"
}

// LoggingConfig controls structured logging
type LoggingConfig struct {
	Dir   string `yaml:"dir"`
	Level string `yaml:"level"`
}

// StorageConfig locates the local SQLite store
type StorageConfig struct {
	Path string `yaml:"path"`
}

// DefaultConfig returns a config populated with defaults.
func DefaultConfig() *Config {
	return &Config{
		Remote: RemoteConfig{
			Username:  DefaultUsername,
			EngineTag: DefaultEngineTag,
		},
		Server: ServerConfig{
			BindAddress:    DefaultBindAddress,
			AllowedOrigins: []string{"http://localhost", "http://127.0.0.1"},
		},
		Export: ExportConfig{
			Dir:    DefaultExportDir,
			Format: "csv",
		},
		Logging: LoggingConfig{
			Dir:   DefaultLogDir,
			Level: "info",
		},
		Storage: StorageConfig{
			Path: DefaultStorePath,
		},
	}
}

// Load loads configuration from the default location (./janus-console.yaml
// when present), applying env overrides on top.
func Load() (*Config, error) {
	cfg := DefaultConfig()

	path := filepath.Join(".", "janus-console.yaml")
	if err := loadAndMerge(cfg, path); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

// LoadFromPath loads configuration from a specific file path.
func LoadFromPath(path string) (*Config, error) {
	cfg := DefaultConfig()

	if err := loadAndMerge(cfg, path); err != nil {
		return nil, fmt.Errorf("loading config from %s: %w", path, err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

// loadAndMerge loads a YAML file and merges non-zero fields into cfg.
func loadAndMerge(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var override Config
	if err := yaml.Unmarshal(data, &override); err != nil {
		return fmt.Errorf("parsing YAML: %w", err)
	}

	mergeConfigs(cfg, &override)
	return nil
}

func mergeConfigs(base, override *Config) {
	if override == nil {
		return
	}

	if override.Remote.Token != "" {
		base.Remote.Token = override.Remote.Token
	}
	if override.Remote.URL != "" {
		base.Remote.URL = override.Remote.URL
	}
	if override.Remote.NamespaceID != "" {
		base.Remote.NamespaceID = override.Remote.NamespaceID
	}
	if override.Remote.Username != "" {
		base.Remote.Username = override.Remote.Username
	}
	if override.Remote.EngineTag != "" {
		base.Remote.EngineTag = override.Remote.EngineTag
	}
	if override.Remote.NetworkLogs {
		base.Remote.NetworkLogs = true
	}
	if override.Server.BindAddress != "" {
		base.Server.BindAddress = override.Server.BindAddress
	}
	if override.Server.StaticDir != "" {
		base.Server.StaticDir = override.Server.StaticDir
	}
	if len(override.Server.AllowedOrigins) > 0 {
		base.Server.AllowedOrigins = override.Server.AllowedOrigins
	}
	if override.Export.Dir != "" {
		base.Export.Dir = override.Export.Dir
	}
	if override.Export.Format != "" {
		base.Export.Format = override.Export.Format
	}
	if override.Logging.Dir != "" {
		base.Logging.Dir = override.Logging.Dir
	}
	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}
	if override.Storage.Path != "" {
		base.Storage.Path = override.Storage.Path
	}
}

// applyEnvOverrides applies environment variable overrides
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("JANUS_TOKEN"); v != "" {
		cfg.Remote.Token = v
	}
	if v := os.Getenv("JANUS_URL"); v != "" {
		cfg.Remote.URL = v
	}
	if v := os.Getenv("JANUS_NAMESPACE_ID"); v != "" {
		cfg.Remote.NamespaceID = v
	}
	if v := os.Getenv("JANUS_USERNAME"); v != "" {
		cfg.Remote.Username = v
	}
	if v := os.Getenv("JANUS_ENGINE_TAG"); v != "" {
		cfg.Remote.EngineTag = v
	}
	if v := os.Getenv("JANUS_CONSOLE_BIND"); v != "" {
		cfg.Server.BindAddress = v
	}
	if v := os.Getenv("JANUS_CONSOLE_STATIC_DIR"); v != "" {
		cfg.Server.StaticDir = v
	}
	if v := os.Getenv("JANUS_CONSOLE_EXPORT_DIR"); v != "" {
		cfg.Export.Dir = v
	}
	if v := os.Getenv("JANUS_CONSOLE_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("JANUS_CONSOLE_DB"); v != "" {
		cfg.Storage.Path = v
	}
}

// Validate checks the configuration for obvious mistakes.
func (c *Config) Validate() error {
	if c.Remote.URL != "" {
		u, err := url.Parse(c.Remote.URL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("remote.url %q is not a valid URL", c.Remote.URL)
		}
	}
	switch strings.ToLower(c.Export.Format) {
	case "csv", "xlsx":
	default:
		return fmt.Errorf("export.format %q must be csv or xlsx", c.Export.Format)
	}
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level %q must be one of debug, info, warn, error", c.Logging.Level)
	}
	if c.Server.BindAddress == "" {
		return fmt.Errorf("server.bind_address cannot be empty")
	}
	return nil
}
