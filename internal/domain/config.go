package domain

import (
	"time"

	"github.com/wesavefood/wesavefood/pkg/errors"
)

// ServerConfig holds server-related settings
type ServerConfig struct {
	Host    string `mapstructure:"host"`
	Port    int    `mapstructure:"port"`
	BaseURL string `mapstructure:"base_url"`
}

// GitHubConfig identifies the content repository backing the document
// store. Owner, Repo, Branch and Token are required; startup fails without
// them.
type GitHubConfig struct {
	Owner    string `mapstructure:"owner"`
	Repo     string `mapstructure:"repo"`
	Branch   string `mapstructure:"branch"`
	Token    string `mapstructure:"token"`
	DataPath string `mapstructure:"data_path"`
	// Layout selects the blob backing strategy: "collection" stores one
	// blob per collection, "record" one blob per record id.
	Layout string `mapstructure:"layout"`
}

// CacheConfig holds read-cache settings for the document store.
type CacheConfig struct {
	TTLMilliseconds int `mapstructure:"ttl_ms"`
}

// TTL returns the cache time-to-live as a duration.
func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLMilliseconds) * time.Millisecond
}

// AuthConfig holds session and verification-code settings.
type AuthConfig struct {
	SessionSecret  string `mapstructure:"session_secret"`
	CodeTTLSeconds int    `mapstructure:"code_ttl_seconds"`
	MaxAttempts    int    `mapstructure:"max_attempts"`
	// AcceptAnyCode disables code comparison entirely. Development aid
	// only; must be set explicitly and defaults to false.
	AcceptAnyCode bool `mapstructure:"accept_any_code"`
}

// CodeTTL returns the verification code time-to-live as a duration.
func (c AuthConfig) CodeTTL() time.Duration {
	return time.Duration(c.CodeTTLSeconds) * time.Second
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Path           string `mapstructure:"path"`
	Level          string `mapstructure:"level"`
	MaxFileSize    int    `mapstructure:"max_file_size"`
	MaxBackupCount int    `mapstructure:"max_backup_count"`
}

// Config holds the application's configuration, mapped from config.toml
type Config struct {
	Version         string // No tag needed, not from config file
	ConfigPath      string // No tag needed, internal use
	CheckForUpdates bool   `mapstructure:"check_for_updates"`

	Server  ServerConfig  `mapstructure:"server"`
	GitHub  GitHubConfig  `mapstructure:"github"`
	Cache   CacheConfig   `mapstructure:"cache"`
	Auth    AuthConfig    `mapstructure:"auth"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// Validate checks the settings the server cannot run without.
func (c *Config) Validate() error {
	switch {
	case c.GitHub.Owner == "":
		return errors.New("missing required setting: github.owner")
	case c.GitHub.Repo == "":
		return errors.New("missing required setting: github.repo")
	case c.GitHub.Branch == "":
		return errors.New("missing required setting: github.branch")
	case c.GitHub.Token == "":
		return errors.New("missing required setting: github.token")
	}

	if c.GitHub.Layout != "collection" && c.GitHub.Layout != "record" {
		return errors.New("invalid github.layout: %q (must be \"collection\" or \"record\")", c.GitHub.Layout)
	}

	return nil
}
