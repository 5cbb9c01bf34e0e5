package model

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// envPrefix namespaces environment overrides, e.g. TIMETRACK_SERVER_JWT_SECRET.
const envPrefix = "TIMETRACK"

// ServerConfig holds the settings for the HTTP API server.
type ServerConfig struct {
	// Addr is the listen address, e.g. ":8080".
	Addr string `mapstructure:"addr" yaml:"addr"`

	// DBPath is the SQLite database file.
	DBPath string `mapstructure:"db_path" yaml:"db_path"`

	// JWTSecret signs session tokens.
	JWTSecret string `mapstructure:"jwt_secret" yaml:"jwt_secret"`

	// TokenTTLHours is how long an issued session token stays valid.
	TokenTTLHours int `mapstructure:"token_ttl_hours" yaml:"token_ttl_hours"`

	// Timezone is the IANA location whose calendar days bound the daily
	// summary. Empty or "Local" means the server's local zone.
	Timezone string `mapstructure:"timezone" yaml:"timezone"`

	// AllowClientTimezone lets a summary request pick its own day
	// boundaries with a tz query parameter.
	AllowClientTimezone bool `mapstructure:"allow_client_timezone" yaml:"allow_client_timezone"`
}

// Location resolves Timezone to a *time.Location.
func (c ServerConfig) Location() (*time.Location, error) {
	if c.Timezone == "" || strings.EqualFold(c.Timezone, "local") {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("loading timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// TokenTTL returns TokenTTLHours as a duration.
func (c ServerConfig) TokenTTL() time.Duration {
	return time.Duration(c.TokenTTLHours) * time.Hour
}

// ClientConfig holds the settings for the terminal client.
type ClientConfig struct {
	// ServerURL is the base URL of the API server.
	ServerURL string `mapstructure:"server_url" yaml:"server_url"`

	// PollIntervalSec is how often the summary is refreshed.
	PollIntervalSec int `mapstructure:"poll_interval_sec" yaml:"poll_interval_sec"`
}

// DisplayConfig holds UI/rendering preferences.
type DisplayConfig struct {
	Theme string `mapstructure:"theme" yaml:"theme"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	Server  ServerConfig  `mapstructure:"server" yaml:"server"`
	Client  ClientConfig  `mapstructure:"client" yaml:"client"`
	Display DisplayConfig `mapstructure:"display" yaml:"display"`
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/timetrack/config.yaml.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "config.yaml")
	}
	return filepath.Join(home, ".config", "timetrack", "config.yaml")
}

// DefaultDBPath returns the default SQLite database location.
func DefaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "timetrack.db")
	}
	return filepath.Join(home, ".local", "share", "timetrack", "timetrack.db")
}

// defaultAppConfig returns a sensible default configuration.
func defaultAppConfig() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			Addr:          ":8080",
			DBPath:        DefaultDBPath(),
			TokenTTLHours: 24 * 7,
			Timezone:      "Local",
		},
		Client: ClientConfig{
			ServerURL:       "http://localhost:8080",
			PollIntervalSec: 30,
		},
		Display: DisplayConfig{
			Theme: "default",
		},
	}
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// Environment variables prefixed with TIMETRACK_ override file values.
// If the file does not exist, defaults (plus environment) are used.
func LoadConfig(path string) (*AppConfig, error) {
	def := defaultAppConfig()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Every key needs a default so AutomaticEnv can see it on Unmarshal.
	v.SetDefault("server.addr", def.Server.Addr)
	v.SetDefault("server.db_path", def.Server.DBPath)
	v.SetDefault("server.jwt_secret", "")
	v.SetDefault("server.token_ttl_hours", def.Server.TokenTTLHours)
	v.SetDefault("server.timezone", def.Server.Timezone)
	v.SetDefault("server.allow_client_timezone", false)
	v.SetDefault("client.server_url", def.Client.ServerURL)
	v.SetDefault("client.poll_interval_sec", def.Client.PollIntervalSec)
	v.SetDefault("display.theme", def.Display.Theme)

	if err := v.ReadInConfig(); err != nil {
		_, isPathErr := err.(*os.PathError)
		_, isNotFound := err.(viper.ConfigFileNotFoundError)
		if !isPathErr && !isNotFound {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	cfg := def
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if cfg.Server.TokenTTLHours <= 0 {
		cfg.Server.TokenTTLHours = def.Server.TokenTTLHours
	}
	if cfg.Client.PollIntervalSec <= 0 {
		cfg.Client.PollIntervalSec = def.Client.PollIntervalSec
	}

	return cfg, nil
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("server", cfg.Server)
	v.Set("client", cfg.Client)
	v.Set("display", cfg.Display)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
