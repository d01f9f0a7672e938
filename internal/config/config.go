package config

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
)

// Config is the full BEAVER-server configuration.
type Config struct {
	// Server holds the HTTP/WebSocket listener settings
	Server ServerConfig `json:"server" mapstructure:"server"`

	// Data holds storage locations
	Data DataConfig `json:"data" mapstructure:"data"`

	// Stamps holds sticker catalog settings
	Stamps StampsConfig `json:"stamps" mapstructure:"stamps"`

	// Logging
	Logging LoggingConfig `json:"logging" mapstructure:"logging"`
}

// ServerConfig holds listener configuration.
type ServerConfig struct {
	Host string `json:"host" mapstructure:"host"`
	Port int    `json:"port" mapstructure:"port"`
}

// DataConfig holds storage locations.
type DataConfig struct {
	Dir          string `json:"dir" mapstructure:"dir"`
	DatabaseFile string `json:"database_file" mapstructure:"database_file"`
}

// StampsConfig holds sticker catalog settings.
type StampsConfig struct {
	Dir       string `json:"dir" mapstructure:"dir"`
	URLPrefix string `json:"url_prefix" mapstructure:"url_prefix"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level   string `json:"level" mapstructure:"level"`
	File    string `json:"file" mapstructure:"file"`
	Console bool   `json:"console" mapstructure:"console"`
	Pretty  bool   `json:"pretty" mapstructure:"pretty"`
}

// DefaultConfig returns a config with default values.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "127.0.0.1",
			Port: 5000,
		},
		Data: DataConfig{
			DatabaseFile: "comments.db",
		},
		Stamps: StampsConfig{
			URLPrefix: "/stamps/",
		},
		Logging: LoggingConfig{
			Level:   "info",
			Console: true,
			Pretty:  true,
		},
	}
}

// DatabasePath returns the full path of the comments database.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Data.Dir, c.Data.DatabaseFile)
}

// Addr returns the listen address in host:port form.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// String returns a JSON representation of the config.
func (c *Config) String() string {
	data, _ := json.MarshalIndent(c, "", "  ")
	return string(data)
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Data.DatabaseFile == "" {
		return fmt.Errorf("data database_file is required")
	}
	if !strings.HasPrefix(c.Stamps.URLPrefix, "/") {
		return fmt.Errorf("stamps url_prefix must start with /: %q", c.Stamps.URLPrefix)
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	return nil
}
