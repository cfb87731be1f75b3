// Package config provides configuration loading and management for the asset sync service.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/stacklok/toolhive-assetsync/internal/git"
	"github.com/stacklok/toolhive-assetsync/internal/naming"
	"github.com/stacklok/toolhive-assetsync/internal/telemetry"
)

const (
	// EnvPrefix is the prefix of every environment variable read by the service
	EnvPrefix = "THV_ASSETSYNC"

	// PasswordEnvVar holds the remote password when no password file is configured
	PasswordEnvVar = EnvPrefix + "_PASSWORD"

	// DefaultRemote is the public bundle repository
	DefaultRemote = "https://github.com/Greatdori/Greatdori-OfflineResBundle.git"

	// DefaultWatchInterval is the interval between two watch rounds
	DefaultWatchInterval = 30 * time.Minute

	// DefaultWatchConcurrency is how many resources a watch round syncs at once
	DefaultWatchConcurrency = 2

	// DefaultRetryAttempts is how many times a network failure is attempted before giving up
	DefaultRetryAttempts uint = 3

	// DefaultRetryInitialInterval is the first backoff delay after a network failure
	DefaultRetryInitialInterval = 5 * time.Second

	// DefaultRetryMaxInterval caps the backoff delay
	DefaultRetryMaxInterval = time.Minute

	// DefaultServerAddress is where the HTTP API listens
	DefaultServerAddress = ":8080"

	appDirName = "thv-assetsync"
)

// Keys read from viper; the environment variable is EnvPrefix_<KEY> with dashes and dots as underscores
const (
	KeyRemote       = "remote"
	KeyDataDir      = "data-dir"
	KeyExportDir    = "export-dir"
	KeyUsername     = "auth.username"
	KeyPasswordFile = "auth.password-file"
	KeyAddress      = "server.address"
)

// Option defines the interface for configuration options
type Option func(*loaderConfig) error

// loaderConfig defines the configuration for loading a configuration
type loaderConfig struct {
	path  string
	viper *viper.Viper
}

// WithConfigPath loads configuration from a YAML file
func WithConfigPath(path string) Option {
	return func(cfg *loaderConfig) error {
		if path == "" {
			return fmt.Errorf("path is required")
		}

		// Resolve symlinks to prevent symlink attacks.
		// Note that this calls filepath.Clean internally.
		realPath, err := filepath.EvalSymlinks(path)
		if err != nil {
			return fmt.Errorf("failed to evaluate symlinks: %w", err)
		}

		if !filepath.IsAbs(realPath) && !filepath.IsLocal(realPath) {
			return fmt.Errorf("path is not local or contains invalid traversal: %s", path)
		}

		cfg.path = realPath
		return nil
	}
}

// WithViper takes overrides from v, typically bound to command line flags.
// Environment variables with EnvPrefix are always honoured.
func WithViper(v *viper.Viper) Option {
	return func(cfg *loaderConfig) error {
		if v == nil {
			return fmt.Errorf("viper instance is required")
		}
		cfg.viper = v
		return nil
	}
}

// Config represents the root configuration structure
type Config struct {
	// Remote is the URL of the bundle repository
	Remote string `yaml:"remote,omitempty"`

	// DataDir holds working copies and revision records; defaults to $XDG_DATA_HOME/thv-assetsync
	DataDir string `yaml:"dataDir,omitempty"`

	// ExportDir receives exported files; defaults to $XDG_CACHE_HOME/thv-assetsync/checkouts
	ExportDir string `yaml:"exportDir,omitempty"`

	Auth      *AuthConfig       `yaml:"auth,omitempty"`
	Watch     *WatchConfig      `yaml:"watch,omitempty"`
	Server    *ServerConfig     `yaml:"server,omitempty"`
	Telemetry *telemetry.Config `yaml:"telemetry,omitempty"`
}

// AuthConfig defines HTTP basic authentication for the remote
type AuthConfig struct {
	// Username for HTTP basic authentication
	Username string `yaml:"username"`

	// PasswordFile is the path to a file containing the password or token.
	// The file should contain only the password with optional trailing whitespace.
	PasswordFile string `yaml:"passwordFile,omitempty"`
}

// WatchConfig defines which resources the watcher keeps current and how often
type WatchConfig struct {
	// Interval between two watch rounds (e.g., "30m", "1h")
	Interval string `yaml:"interval,omitempty"`

	// Concurrency is how many resources are synced at once
	Concurrency int `yaml:"concurrency,omitempty"`

	// Resources to keep current
	Resources []ResourceConfig `yaml:"resources"`

	// Retry applies to network failures only
	Retry *RetryConfig `yaml:"retry,omitempty"`
}

// ResourceConfig identifies one resource bundle
type ResourceConfig struct {
	Locale string `yaml:"locale"`
	Type   string `yaml:"type"`
}

// RetryConfig defines the backoff applied to network failures
type RetryConfig struct {
	// MaxAttempts includes the first attempt
	MaxAttempts uint `yaml:"maxAttempts,omitempty"`

	// InitialInterval is the first backoff delay (e.g., "5s")
	InitialInterval string `yaml:"initialInterval,omitempty"`

	// MaxInterval caps the backoff delay (e.g., "1m")
	MaxInterval string `yaml:"maxInterval,omitempty"`
}

// ServerConfig defines the HTTP API settings
type ServerConfig struct {
	// Address to listen on
	Address string `yaml:"address,omitempty"`
}

// LoadConfig builds the configuration from an optional YAML file, environment variables and viper overrides
func LoadConfig(opts ...Option) (*Config, error) {
	loaderCfg := &loaderConfig{}
	for _, opt := range opts {
		if err := opt(loaderCfg); err != nil {
			return nil, err
		}
	}

	config := &Config{}
	if loaderCfg.path != "" {
		data, err := os.ReadFile(loaderCfg.path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config: %w", err)
		}
	}

	v := loaderCfg.viper
	if v == nil {
		v = viper.New()
	}
	BindEnv(v)
	config.applyOverrides(v)
	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// BindEnv makes v read EnvPrefix environment variables for every key
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()
}

func (c *Config) applyOverrides(v *viper.Viper) {
	if s := v.GetString(KeyRemote); s != "" {
		c.Remote = s
	}
	if s := v.GetString(KeyDataDir); s != "" {
		c.DataDir = s
	}
	if s := v.GetString(KeyExportDir); s != "" {
		c.ExportDir = s
	}
	if s := v.GetString(KeyUsername); s != "" {
		if c.Auth == nil {
			c.Auth = &AuthConfig{}
		}
		c.Auth.Username = s
	}
	if s := v.GetString(KeyPasswordFile); s != "" {
		if c.Auth == nil {
			c.Auth = &AuthConfig{}
		}
		c.Auth.PasswordFile = s
	}
	if s := v.GetString(KeyAddress); s != "" {
		if c.Server == nil {
			c.Server = &ServerConfig{}
		}
		c.Server.Address = s
	}
}

func (c *Config) applyDefaults() {
	if c.Remote == "" {
		c.Remote = DefaultRemote
	}
	if c.DataDir == "" {
		c.DataDir = filepath.Join(xdg.DataHome, appDirName)
	}
	if c.ExportDir == "" {
		c.ExportDir = filepath.Join(xdg.CacheHome, appDirName, "checkouts")
	}
}

// Validate performs validation on the configuration
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("config cannot be nil")
	}

	if c.Remote == "" {
		return fmt.Errorf("remote is required")
	}
	if err := validateRemote(c.Remote); err != nil {
		return err
	}
	if c.DataDir == "" {
		return fmt.Errorf("dataDir is required")
	}

	if c.Auth != nil && c.Auth.Username == "" {
		return fmt.Errorf("auth.username is required when auth is configured")
	}

	if c.Watch != nil {
		if err := c.Watch.validate(); err != nil {
			return err
		}
	}

	if c.Telemetry != nil {
		if err := c.Telemetry.Validate(); err != nil {
			return fmt.Errorf("telemetry: %w", err)
		}
	}

	return nil
}

// validateRemote accepts URLs with a scheme and local paths
func validateRemote(remote string) error {
	if !strings.Contains(remote, "://") {
		return nil
	}
	u, err := url.Parse(remote)
	if err != nil {
		return fmt.Errorf("remote must be a valid URL: %w", err)
	}
	switch u.Scheme {
	case "http", "https", "file":
		return nil
	default:
		return fmt.Errorf("remote scheme %q is not supported", u.Scheme)
	}
}

func (w *WatchConfig) validate() error {
	if w.Interval != "" {
		interval, err := time.ParseDuration(w.Interval)
		if err != nil {
			return fmt.Errorf("watch.interval must be a valid duration (e.g., '30m', '1h'): %w", err)
		}
		if interval <= 0 {
			return fmt.Errorf("watch.interval must be positive")
		}
	}
	if w.Concurrency < 0 {
		return fmt.Errorf("watch.concurrency cannot be negative")
	}
	if len(w.Resources) == 0 {
		return fmt.Errorf("watch.resources: at least one resource must be configured")
	}

	seen := make(map[naming.ResourceKey]bool)
	for i, res := range w.Resources {
		key, err := naming.NewResourceKey(res.Locale, res.Type)
		if err != nil {
			return fmt.Errorf("watch.resources[%d]: %w", i, err)
		}
		if seen[key] {
			return fmt.Errorf("watch.resources[%d]: duplicate resource '%s'", i, key)
		}
		seen[key] = true
	}

	if w.Retry != nil {
		for name, value := range map[string]string{
			"initialInterval": w.Retry.InitialInterval,
			"maxInterval":     w.Retry.MaxInterval,
		} {
			if value == "" {
				continue
			}
			if _, err := time.ParseDuration(value); err != nil {
				return fmt.Errorf("watch.retry.%s must be a valid duration: %w", name, err)
			}
		}
	}
	return nil
}

// GitAuth returns the transport authentication, or nil when none is configured
func (c *Config) GitAuth() (*git.AuthConfig, error) {
	if c.Auth == nil {
		return nil, nil
	}
	password, err := c.Auth.GetPassword()
	if err != nil {
		return nil, err
	}
	return &git.AuthConfig{Username: c.Auth.Username, Password: password}, nil
}

// GetAddress returns the HTTP API address, using the default if not specified
func (c *Config) GetAddress() string {
	if c.Server == nil || c.Server.Address == "" {
		return DefaultServerAddress
	}
	return c.Server.Address
}

// GetPassword returns the remote password using the following priority:
// 1. Read from PasswordFile if specified
// 2. Read from the THV_ASSETSYNC_PASSWORD environment variable
//
// The password from file will have leading/trailing whitespace trimmed.
func (a *AuthConfig) GetPassword() (string, error) {
	if a.PasswordFile != "" {
		cleanPath := filepath.Clean(a.PasswordFile)

		data, err := os.ReadFile(cleanPath)
		if err != nil {
			return "", fmt.Errorf("failed to read password from file %s: %w", a.PasswordFile, err)
		}
		return strings.TrimSpace(string(data)), nil
	}

	if envPassword := os.Getenv(PasswordEnvVar); envPassword != "" {
		return envPassword, nil
	}

	return "", fmt.Errorf("no password configured: set auth.passwordFile or %s", PasswordEnvVar)
}

// GetInterval returns the watch interval, falling back to the default when unset or invalid
func (w *WatchConfig) GetInterval() time.Duration {
	return parseDurationOr(w.Interval, DefaultWatchInterval)
}

// GetConcurrency returns how many resources a watch round syncs at once
func (w *WatchConfig) GetConcurrency() int {
	if w.Concurrency <= 0 {
		return DefaultWatchConcurrency
	}
	return w.Concurrency
}

// Keys returns the configured resources as resource keys, skipping invalid entries
func (w *WatchConfig) Keys() []naming.ResourceKey {
	keys := make([]naming.ResourceKey, 0, len(w.Resources))
	for _, res := range w.Resources {
		key, err := naming.NewResourceKey(res.Locale, res.Type)
		if err != nil {
			continue
		}
		keys = append(keys, key)
	}
	return keys
}

// GetMaxAttempts returns how many attempts a network failure gets
func (r *RetryConfig) GetMaxAttempts() uint {
	if r == nil || r.MaxAttempts == 0 {
		return DefaultRetryAttempts
	}
	return r.MaxAttempts
}

// GetInitialInterval returns the first backoff delay
func (r *RetryConfig) GetInitialInterval() time.Duration {
	if r == nil {
		return DefaultRetryInitialInterval
	}
	return parseDurationOr(r.InitialInterval, DefaultRetryInitialInterval)
}

// GetMaxInterval returns the backoff cap
func (r *RetryConfig) GetMaxInterval() time.Duration {
	if r == nil {
		return DefaultRetryMaxInterval
	}
	return parseDurationOr(r.MaxInterval, DefaultRetryMaxInterval)
}

func parseDurationOr(value string, fallback time.Duration) time.Duration {
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
