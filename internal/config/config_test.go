package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 5000, cfg.Server.Port)
	assert.Equal(t, "comments.db", cfg.Data.DatabaseFile)
	assert.Equal(t, "/stamps/", cfg.Stamps.URLPrefix)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.True(t, cfg.Logging.Console)
}

func TestAddr(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "127.0.0.1:5000", cfg.Addr())

	cfg.Server.Host = "0.0.0.0"
	cfg.Server.Port = 8080
	assert.Equal(t, "0.0.0.0:8080", cfg.Addr())
}

func TestDatabasePath(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Data.Dir = "/var/lib/beaver"
	assert.Equal(t, filepath.Join("/var/lib/beaver", "comments.db"), cfg.DatabasePath())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "defaults are valid",
			mutate: func(c *Config) {},
		},
		{
			name:    "port zero",
			mutate:  func(c *Config) { c.Server.Port = 0 },
			wantErr: "invalid server port",
		},
		{
			name:    "port out of range",
			mutate:  func(c *Config) { c.Server.Port = 70000 },
			wantErr: "invalid server port",
		},
		{
			name:    "missing database file",
			mutate:  func(c *Config) { c.Data.DatabaseFile = "" },
			wantErr: "database_file is required",
		},
		{
			name:    "relative url prefix",
			mutate:  func(c *Config) { c.Stamps.URLPrefix = "stamps/" },
			wantErr: "url_prefix must start with /",
		},
		{
			name:    "unknown log level",
			mutate:  func(c *Config) { c.Logging.Level = "verbose" },
			wantErr: "invalid log level",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	require.NoError(t, err)

	assert.Equal(t, 5000, cfg.Server.Port)
	assert.NotEmpty(t, cfg.Data.Dir)
	assert.Equal(t, filepath.Join(cfg.Data.Dir, "stamps"), cfg.Stamps.Dir)
	assert.Equal(t, filepath.Join(cfg.Data.Dir, "boot.log"), cfg.Logging.File)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "beaver.json")
	content := `{
		"server": {"host": "0.0.0.0", "port": 8080},
		"data": {"dir": "` + dir + `", "database_file": "relay.db"},
		"stamps": {"url_prefix": "/img/"},
		"logging": {"level": "debug", "console": false}
	}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8080", cfg.Addr())
	assert.Equal(t, filepath.Join(dir, "relay.db"), cfg.DatabasePath())
	assert.Equal(t, "/img/", cfg.Stamps.URLPrefix)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.False(t, cfg.Logging.Console)

	// Unspecified paths still default relative to the data directory.
	assert.Equal(t, filepath.Join(dir, "stamps"), cfg.Stamps.Dir)
	assert.Equal(t, filepath.Join(dir, "boot.log"), cfg.Logging.File)
}

func TestLoadInvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "beaver.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
}

func TestGetConfigPath(t *testing.T) {
	loader := NewLoader("/etc/beaver/beaver.json")
	assert.Equal(t, "/etc/beaver/beaver.json", loader.GetConfigPath())

	home, err := os.UserHomeDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".beaver", "beaver.json"), NewLoader("").GetConfigPath())
}
