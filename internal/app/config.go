package app

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/user"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/florianilch/shelf/internal/observability"
	"github.com/florianilch/shelf/internal/session"
	"github.com/florianilch/shelf/internal/theme"
	"github.com/florianilch/shelf/internal/tokenstore"
)

// LogFormat represents the logging output format.
type LogFormat string

const (
	LogFormatText LogFormat = "text"
	LogFormatJSON LogFormat = "json"
)

// TokenStorageType represents the different storage types supported for credentials.
type TokenStorageType string

const (
	TokenStorageTypeFile    TokenStorageType = "file"
	TokenStorageTypeEnv     TokenStorageType = "env"
	TokenStorageTypeKeyring TokenStorageType = "keyring"
	TokenStorageTypeMemory  TokenStorageType = "memory"
)

// KeyringService is the keyring service name credentials are stored under.
const KeyringService = "shelf"

// Default configuration values
const (
	DefaultConfigLogFormat        = LogFormatText
	DefaultConfigLogExporter      = observability.ExporterConsole
	DefaultConfigAPIBaseURL       = "http://localhost:8000/api/v1"
	DefaultConfigAPITimeout       = 30 * time.Second
	DefaultConfigRefreshTimeout   = session.DefaultRefreshTimeout
	DefaultConfigAuthStorage      = TokenStorageTypeFile
	DefaultConfigPrefsFile        = theme.DefaultPrefsPath
	DefaultConfigDevServerHost    = "127.0.0.1"
	DefaultConfigDevServerPort    = 8000
	DefaultConfigDevServerSecret  = "shelf-dev-secret"
	DefaultConfigDevServerAccess  = 30 * time.Minute
	DefaultConfigShutdownTimeout  = 5 * time.Second
	DefaultConfigNotificationPoll = 30 * time.Second
)

// APIConfig holds backend connection settings.
type APIConfig struct {
	BaseURL string        `json:"base_url" validate:"required,url"`
	Timeout time.Duration `json:"timeout" validate:"gte=0"`
	// RefreshTimeout bounds one token refresh, including everyone waiting on it.
	RefreshTimeout time.Duration `json:"refresh_timeout" validate:"gte=0"`
}

// AuthConfig describes where the access token and refresh cookie are persisted.
type AuthConfig struct {
	Storage TokenStorageType `json:"storage" validate:"required,oneof=file env keyring memory"`

	// Storage-specific settings (mutually exclusive based on Storage type)
	Dir         string `json:"dir,omitempty"`          // For file storage: credentials directory
	EnvKey      string `json:"env_key,omitempty"`      // For env storage: environment variable name
	KeyringUser string `json:"keyring_user,omitempty"` // For keyring storage: user identifier
}

// NewTokenStore creates a Store from the authentication configuration.
func (a *AuthConfig) NewTokenStore() (tokenstore.Store, error) {
	switch a.Storage {
	case TokenStorageTypeFile:
		return tokenstore.NewFileStore(a.Dir)
	case TokenStorageTypeEnv:
		return tokenstore.NewEnvStore(a.EnvKey)
	case TokenStorageTypeKeyring:
		return tokenstore.NewKeyringStore(KeyringService, a.KeyringUser)
	case TokenStorageTypeMemory:
		return tokenstore.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", a.Storage)
	}
}

// PrefsConfig points at the UI preferences file.
type PrefsConfig struct {
	File string `json:"file"`
}

// NotificationsConfig controls the unread badge poller.
type NotificationsConfig struct {
	PollInterval time.Duration `json:"poll_interval" validate:"gte=0"`
}

// DevServerConfig holds settings for the local development backend.
type DevServerConfig struct {
	Host      string        `json:"host" validate:"hostname_rfc1123|ip"`
	Port      uint16        `json:"port"` // Port range 0-65535 handled by uint16 type
	Secret    string        `json:"secret" validate:"required,min=8"`
	RedisURL  string        `json:"redis_url,omitempty" validate:"omitempty,url"`
	AccessTTL time.Duration `json:"access_ttl" validate:"gte=0"`

	// SeedLogin and SeedPassword create an account on startup when both are set.
	SeedLogin    string `json:"seed_login,omitempty"`
	SeedPassword string `json:"seed_password,omitempty"`
}

// ShutdownConfig holds shutdown behavior configuration.
type ShutdownConfig struct {
	// Timeout for graceful shutdown.
	Timeout time.Duration `json:"timeout"`
}

// Config holds the application's configuration.
type Config struct {
	// LogLevel for logging output (defaults to Info if unset).
	LogLevel      slog.Level             `json:"log_level"`
	LogFormat     LogFormat              `json:"log_format" validate:"oneof=text json"`
	LogExporter   observability.Exporter `json:"log_exporter" validate:"oneof=console stdout otlp-http otlp-grpc"`
	API           APIConfig              `json:"api"`
	Auth          AuthConfig             `json:"auth"`
	Prefs         PrefsConfig            `json:"prefs"`
	Notifications NotificationsConfig    `json:"notifications"`
	DevServer     DevServerConfig        `json:"devserver"`
	Shutdown      ShutdownConfig         `json:"shutdown"`
}

// Default creates a new Config with default values applied.
func Default() (*Config, error) {
	cfg := &Config{}
	if err := cfg.ApplyDefaults(); err != nil {
		return nil, fmt.Errorf("failed to apply defaults: %w", err)
	}
	return cfg, nil
}

// ApplyDefaults fills unset config fields with sensible defaults.
func (c *Config) ApplyDefaults() error {
	if c.LogFormat == "" {
		c.LogFormat = DefaultConfigLogFormat
	}
	if c.LogExporter == "" {
		c.LogExporter = DefaultConfigLogExporter
	}
	if c.API.BaseURL == "" {
		c.API.BaseURL = DefaultConfigAPIBaseURL
	}
	c.API.BaseURL = strings.TrimRight(c.API.BaseURL, "/")
	if c.API.Timeout == 0 {
		c.API.Timeout = DefaultConfigAPITimeout
	}
	if c.API.RefreshTimeout == 0 {
		c.API.RefreshTimeout = DefaultConfigRefreshTimeout
	}
	if c.Auth.Storage == "" {
		c.Auth.Storage = DefaultConfigAuthStorage
	}
	if c.Prefs.File == "" {
		c.Prefs.File = DefaultConfigPrefsFile
	}
	if c.Notifications.PollInterval == 0 {
		c.Notifications.PollInterval = DefaultConfigNotificationPoll
	}
	if c.DevServer.Host == "" {
		c.DevServer.Host = DefaultConfigDevServerHost
	}
	if c.DevServer.Port == 0 {
		c.DevServer.Port = DefaultConfigDevServerPort
	}
	if c.DevServer.Secret == "" {
		c.DevServer.Secret = DefaultConfigDevServerSecret
	}
	if c.DevServer.AccessTTL == 0 {
		c.DevServer.AccessTTL = DefaultConfigDevServerAccess
	}
	if c.Shutdown.Timeout == 0 {
		c.Shutdown.Timeout = DefaultConfigShutdownTimeout
	}

	// Dynamic defaults based on storage type
	switch c.Auth.Storage {
	case TokenStorageTypeFile:
		if c.Auth.Dir == "" {
			configDir, err := os.UserConfigDir()
			if err != nil {
				return fmt.Errorf("auth.dir required (auto-detect failed: %w)", err)
			}
			c.Auth.Dir = filepath.Join(configDir, "shelf", "auth")
		}
	case TokenStorageTypeKeyring:
		if c.Auth.KeyringUser == "" {
			currentUser, err := user.Current()
			if err != nil {
				return fmt.Errorf("auth.keyring_user required (auto-detect failed: %w)", err)
			}
			c.Auth.KeyringUser = currentUser.Username
		}
	case TokenStorageTypeEnv, TokenStorageTypeMemory:
		// env_key must be explicitly configured (no sensible default)
	}

	return nil
}

// Validate validates the configuration using struct tags and enum values.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}

	switch c.Auth.Storage {
	case TokenStorageTypeFile:
		if c.Auth.Dir == "" {
			return errors.New("auth.dir required for file storage")
		}
	case TokenStorageTypeEnv:
		if c.Auth.EnvKey == "" {
			return errors.New("env_key required for env storage")
		}
	case TokenStorageTypeKeyring:
		if c.Auth.KeyringUser == "" {
			return errors.New("keyring_user required for keyring storage")
		}
	}

	return nil
}
