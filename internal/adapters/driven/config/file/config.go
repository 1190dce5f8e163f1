package file

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/pelletier/go-toml/v2"
)

const (
	// DefaultListenAddr is where the callback server listens.
	DefaultListenAddr = "localhost:8765"
	// DefaultRedirectURI is the callback URI registered with providers.
	DefaultRedirectURI = "http://localhost:8765/callback"
	// DefaultOwner is used when neither the file nor DELEGATE_OWNER names one.
	DefaultOwner = "default"

	// LeaseMemory serialises refreshes within one process.
	LeaseMemory = "memory"
	// LeaseRedis serialises refreshes across processes.
	LeaseRedis = "redis"

	envPrefix = "DELEGATE_"
)

// Config is the delegate configuration.
type Config struct {
	// Owner is the user tokens are stored for by the CLI and callback server.
	Owner string `toml:"owner"`
	// ExpirySkew is a duration string. Tokens expiring within it are refreshed.
	ExpirySkew string `toml:"expiry_skew"`
	// DataDir holds the SQLite database. Defaults to ~/.delegate/data.
	DataDir string `toml:"data_dir"`

	Callback  CallbackConfig             `toml:"callback"`
	Lease     LeaseConfig                `toml:"lease"`
	Providers map[string]ProviderSection `toml:"providers"`
	Services  map[string]ServiceSection  `toml:"services"`

	// Secrets are read from the environment only.
	Secrets Secrets `toml:"-"`

	path string
}

// CallbackConfig configures the local callback server.
type CallbackConfig struct {
	Listen      string `toml:"listen"`
	RedirectURI string `toml:"redirect_uri"`
}

// LeaseConfig selects the refresh lease backend.
type LeaseConfig struct {
	Backend   string `toml:"backend"`
	TTL       string `toml:"ttl"`
	KeyPrefix string `toml:"key_prefix"`
}

// ProviderSection overrides one provider. Empty fields keep the defaults.
type ProviderSection struct {
	ClientID        string            `toml:"client_id"`
	AuthURL         string            `toml:"auth_url"`
	TokenURL        string            `toml:"token_url"`
	AuthStyle       string            `toml:"auth_style"`
	AuthParams      map[string]string `toml:"auth_params"`
	DefaultLifetime string            `toml:"default_lifetime"`
	// RateLimit is token requests per second; Burst the limiter burst.
	RateLimit float64 `toml:"rate_limit"`
	Burst     int     `toml:"burst"`
}

// ServiceSection overrides one service. Empty fields keep the defaults.
type ServiceSection struct {
	Provider       string   `toml:"provider"`
	Scopes         []string `toml:"scopes"`
	ScopeSeparator string   `toml:"scope_separator"`
}

// Secrets are populated from DELEGATE_* environment variables.
type Secrets struct {
	EncryptionKey       string `env:"ENCRYPTION_KEY"`
	GoogleClientSecret  string `env:"GOOGLE_CLIENT_SECRET"`
	SpotifyClientSecret string `env:"SPOTIFY_CLIENT_SECRET"`
	RedisAddr           string `env:"REDIS_ADDR"`
	Owner               string `env:"OWNER"`
}

// DefaultPath returns ~/.delegate/config.toml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".delegate", "config.toml"), nil
}

// Load reads the TOML file at path and the process environment.
// A missing file yields the defaults. An empty path means DefaultPath.
func Load(path string) (*Config, error) {
	return load(path, env.Options{Prefix: envPrefix})
}

func load(path string, opts env.Options) (*Config, error) {
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	cfg := &Config{path: path}
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		// No config file yet - defaults apply
	case err != nil:
		return nil, fmt.Errorf("reading config: %w", err)
	default:
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}

	if err := env.ParseWithOptions(&cfg.Secrets, opts); err != nil {
		return nil, fmt.Errorf("reading environment: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Secrets.Owner != "" {
		c.Owner = c.Secrets.Owner
	}
	if c.Owner == "" {
		c.Owner = DefaultOwner
	}
	if c.Callback.Listen == "" {
		c.Callback.Listen = DefaultListenAddr
	}
	if c.Callback.RedirectURI == "" {
		c.Callback.RedirectURI = DefaultRedirectURI
	}
	if c.Lease.Backend == "" {
		c.Lease.Backend = LeaseMemory
		if c.Secrets.RedisAddr != "" {
			c.Lease.Backend = LeaseRedis
		}
	}
}

func (c *Config) validate() error {
	if _, err := c.Skew(); err != nil {
		return err
	}
	if _, err := c.LeaseTTL(); err != nil {
		return err
	}
	switch c.Lease.Backend {
	case LeaseMemory:
	case LeaseRedis:
		if c.Secrets.RedisAddr == "" {
			return errors.New("lease backend redis requires DELEGATE_REDIS_ADDR")
		}
	default:
		return fmt.Errorf("unknown lease backend %q", c.Lease.Backend)
	}
	return nil
}

// Path returns the configuration file path.
func (c *Config) Path() string {
	return c.path
}

// Skew returns the parsed expiry skew.
func (c *Config) Skew() (time.Duration, error) {
	return parseDuration("expiry_skew", c.ExpirySkew)
}

// LeaseTTL returns the parsed lease TTL, zero when unset.
func (c *Config) LeaseTTL() (time.Duration, error) {
	return parseDuration("lease.ttl", c.Lease.TTL)
}

// EncryptionKey returns the master key material for token encryption.
func (c *Config) EncryptionKey() []byte {
	return []byte(c.Secrets.EncryptionKey)
}

func parseDuration(name, value string) (time.Duration, error) {
	if value == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", name, value, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid %s %q: must not be negative", name, value)
	}
	return d, nil
}
