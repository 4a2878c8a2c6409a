package config

import (
	"bytes"
	"crypto/rand"
	"encoding/hex"
	"log"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"text/template"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"github.com/wesavefood/wesavefood/internal/domain"
	"github.com/wesavefood/wesavefood/internal/logger"
	"github.com/wesavefood/wesavefood/pkg/errors"
)

var configTemplate = `# config.toml

# Check for updates
# Default is: true
check_for_updates = true

[server]
  # Hostname or IP address for the server to listen on.
  # Default: "{{ .host }}" (e.g., "127.0.0.1" for local access, "0.0.0.0" for all interfaces, especially in Docker)
  host = "{{ .host }}"

  # Port for the server to listen on.
  # Default: 8282
  port = 8282

  # Base URL for serving the application under a subdirectory.
  # Optional.
  # Default: ""
  #base_url = ""

[github]
  # Content repository backing the document store. All four identifiers
  # below are required; the server refuses to start without them.
  owner = ""
  repo = ""
  branch = "main"

  # Personal access token with contents read/write on the repository.
  token = ""

  # Directory inside the repository holding the collection blobs.
  # Default: "data"
  data_path = "data"

  # Blob layout.
  # "collection": one blob per collection (data/<collection>.json)
  # "record":     one blob per record (data/<collection>/<id>.json)
  # Default: "collection"
  layout = "collection"

[cache]
  # Read-cache time-to-live in milliseconds.
  # Default: 300000 (5 minutes)
  ttl_ms = 300000

[auth]
  # Session secret
  # This is a randomly generated secret key for session management.
  # It will be generated automatically on the first run if not set.
  # Default: "{{ .sessionSecret }}" (dynamically generated)
  session_secret = "{{ .sessionSecret }}"

  # Verification code time-to-live in seconds.
  # Default: 300 (5 minutes)
  code_ttl_seconds = 300

  # Failed verification attempts allowed before the code is invalidated.
  # Default: 3
  max_attempts = 3

  # Accept any submitted verification code. Development aid only; never
  # enable in production.
  # Default: false
  accept_any_code = false

[logging]
  # Log file path.
  # If empty or not set, logs will be written to standard output (stdout).
  # Use forward slashes for paths (e.g., "log/").
  # Optional.
  # Default: ""
  path = "log/"

  # Log level.
  # Determines the verbosity of logs.
  # Options: "ERROR", "WARN", "INFO", "DEBUG", "TRACE"
  # Default: "DEBUG"
  level = "DEBUG"

  # Maximum size of a log file in megabytes (MB) before it is rotated.
  # Default: 50
  max_file_size = 50

  # Maximum number of old log files to keep.
  # Default: 3
  max_backup_count = 3
`

var generateRandomString = func(length int) (string, error) {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}

func writeConfig(configPath string, configFile string) error {
	cfgPath := filepath.Join(configPath, configFile)

	// check if configPath exists, if not create it
	if _, err := os.Stat(configPath); errors.Is(err, os.ErrNotExist) {
		err := os.MkdirAll(configPath, os.ModePerm)
		if err != nil {
			log.Println(err)
			return err
		}
	}

	// check if config exists, if not create it
	if _, err := os.Stat(cfgPath); errors.Is(err, os.ErrNotExist) {
		// set default host
		host := "127.0.0.1"

		if _, dockerErr := os.Stat("/.dockerenv"); dockerErr == nil {
			host = "0.0.0.0"
		} else if pd, cgroupErr := os.Open("/proc/1/cgroup"); cgroupErr == nil {
			defer func(pd *os.File) {
				if errClose := pd.Close(); errClose != nil {
					log.Printf("error closing proc/cgroup: %q", errClose)
				}
			}(pd)
			b := make([]byte, 4096)
			if _, readErr := pd.Read(b); readErr != nil {
				log.Printf("error reading /proc/1/cgroup: %v", readErr)
			} else {
				if strings.Contains(string(b), "/docker") || strings.Contains(string(b), "/lxc") {
					host = "0.0.0.0"
				}
			}
		}

		f, createErr := os.Create(cfgPath)
		if createErr != nil {
			log.Printf("error creating file: %q", createErr)
			return createErr
		}
		defer func(f *os.File) {
			if errClose := f.Close(); errClose != nil {
				log.Printf("error closing file: %q", errClose)
			}
		}(f)

		sessionSecretVal, secretErr := generateRandomString(16)
		if secretErr != nil {
			log.Printf("Failed to generate session secret: %v. Using a default placeholder.", secretErr)
			sessionSecretVal = "fallback-please-replace-this-secret-immediately"
		}

		tmpl, tmplErr := template.New("config").Parse(configTemplate)
		if tmplErr != nil {
			return errors.Wrap(tmplErr, "could not create config template")
		}

		tmplVars := map[string]string{
			"host":          host,
			"sessionSecret": sessionSecretVal,
		}

		var buffer bytes.Buffer
		if execErr := tmpl.Execute(&buffer, &tmplVars); execErr != nil {
			return errors.Wrap(execErr, "could not write config template output")
		}

		if _, writeErr := f.WriteString(buffer.String()); writeErr != nil {
			log.Printf("error writing contents to file: %v %q", configPath, writeErr)
			return writeErr
		}

		return f.Sync()
	}

	return nil
}

type Config interface {
	DynamicReload(log logger.Logger)
}

type AppConfig struct {
	Config *domain.Config
	m      sync.Mutex
}

func New(configPath string, version string) *AppConfig {
	c := &AppConfig{}
	c.defaults()
	c.Config.Version = version
	c.Config.ConfigPath = configPath

	c.load(configPath)

	return c
}

func (c *AppConfig) defaults() {
	c.Config = &domain.Config{
		Version:         "dev",
		ConfigPath:      "",
		CheckForUpdates: true,
		Server: domain.ServerConfig{
			Host:    "127.0.0.1",
			Port:    8282,
			BaseURL: "",
		},
		GitHub: domain.GitHubConfig{
			Owner:    "",
			Repo:     "",
			Branch:   "main",
			Token:    "",
			DataPath: "data",
			Layout:   "collection",
		},
		Cache: domain.CacheConfig{
			TTLMilliseconds: 300000,
		},
		Auth: domain.AuthConfig{
			SessionSecret:  "secret-session-key", // Overwritten by generated value on first run
			CodeTTLSeconds: 300,
			MaxAttempts:    3,
			AcceptAnyCode:  false,
		},
		Logging: domain.LoggingConfig{
			Path:           "",
			Level:          "DEBUG",
			MaxFileSize:    50,
			MaxBackupCount: 3,
		},
	}
}

func (c *AppConfig) load(configPath string) {
	viper.SetConfigType("toml")
	configPath = path.Clean(configPath)

	if configPath != "" {
		if err := writeConfig(configPath, "config.toml"); err != nil {
			log.Printf("writeConfig error during load: %q", err)
			// Continue to attempt reading, defaults might be used or file might exist partially
		}
		viper.SetConfigFile(path.Join(configPath, "config.toml"))
	} else {
		viper.SetConfigName("config")
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME/.config/wesavefood")
		viper.AddConfigPath("$HOME/.wesavefood")
	}

	// GitHub credentials may come from the environment instead of the file.
	viper.SetEnvPrefix("WESAVEFOOD")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Printf("Config file not found, using defaults: %s", viper.ConfigFileUsed())
		} else {
			log.Printf("Config read error: %q. Using defaults.", err)
		}
	}

	if err := viper.Unmarshal(&c.Config); err != nil {
		log.Fatalf("Could not unmarshal config file into struct: %v. Config file used: %s", err, viper.ConfigFileUsed())
	}
}

func (c *AppConfig) DynamicReload(log logger.Logger) {
	viper.OnConfigChange(func(e fsnotify.Event) {
		c.m.Lock()
		defer c.m.Unlock()

		log.Info().Msgf("Config file changed: %s. Reloading configuration.", e.Name)

		if err := viper.ReadInConfig(); err != nil {
			log.Error().Err(err).Msg("Error reading config file during dynamic reload")
			return
		}

		var newConfig domain.Config
		// Preserve version and configPath as they are not from the file
		newConfig.Version = c.Config.Version
		newConfig.ConfigPath = c.Config.ConfigPath

		if err := viper.Unmarshal(&newConfig); err != nil {
			log.Error().Err(err).Msg("Error unmarshalling config during dynamic reload")
			return
		}

		if err := newConfig.Validate(); err != nil {
			log.Error().Err(err).Msg("Reloaded config is invalid, keeping previous configuration")
			return
		}

		c.Config = &newConfig

		log.SetLogLevel(c.Config.Logging.Level)

		log.Debug().Msg("Configuration reloaded successfully!")
	})
	viper.WatchConfig()
}
