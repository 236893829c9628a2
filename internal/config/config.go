// Package config provides configuration management for the Supabase auth
// plugin. It loads and persists the YAML configuration file, applies
// defaults, and resolves environment-sourced API keys for the registered
// Supabase client configurations.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultCallbackBasePath is the conventional prefix for the OAuth/OTP
// callback routes this plugin registers on the host router.
const DefaultCallbackBasePath = "/api/auth/supabase/callback"

// Config represents the plugin's configuration, loaded from a YAML file.
type Config struct {
	// Port is the network port the demo host listens on.
	Port int `yaml:"port"`

	// Debug enables debug-level logging.
	Debug bool `yaml:"debug"`

	// LoggingToFile switches log output from stdout to rotating files.
	LoggingToFile bool `yaml:"logging-to-file"`

	// ProxyURL is an optional proxy (socks5/http/https) for outbound
	// Supabase calls.
	ProxyURL string `yaml:"proxy-url"`

	// CallbackBasePath overrides the conventional callback route prefix.
	CallbackBasePath string `yaml:"callback-base-path"`

	// FlowStatePath is the bbolt file holding pending OAuth/OTP flow state.
	FlowStatePath string `yaml:"flow-state-path"`

	// RemoteManagement guards the management REST API.
	RemoteManagement RemoteManagement `yaml:"remote-management"`

	// Clients lists the registered Supabase client configurations.
	Clients []SupabaseClient `yaml:"supabase-clients"`
}

// RemoteManagement holds access control settings for the management API.
type RemoteManagement struct {
	// AllowRemote permits management requests from non-loopback addresses.
	AllowRemote bool `yaml:"allow-remote"`

	// SecretKey is the management key, either plaintext or a bcrypt hash.
	SecretKey string `yaml:"secret-key"`
}

// SupabaseClient is one named client configuration an operator registered.
// Steps reference it by Name; the key material is resolved once at registry
// build time and the entry is immutable afterwards.
type SupabaseClient struct {
	// Name is the opaque key steps use to select this configuration.
	Name string `yaml:"name"`

	// Label is the human-readable caption shown in the flow designer.
	Label string `yaml:"label"`

	// ProjectURL is the Supabase project base URL.
	ProjectURL string `yaml:"project-url"`

	// APIKey is the anon/service key, or the name of the environment
	// variable holding it when APIKeyFromEnv is set. When empty the key is
	// read from the ECOFLOW_USER_SUPABASE_API_KEY environment variable.
	APIKey string `yaml:"api-key"`

	// APIKeyFromEnv marks APIKey as an environment variable name.
	APIKeyFromEnv bool `yaml:"api-key-from-env"`
}

// LoadConfig reads the YAML configuration file, loads a local .env file if
// one is present so environment-sourced API keys resolve, and applies
// defaults.
func LoadConfig(configFile string) (*Config, error) {
	// Missing .env is fine; only explicit read failures matter.
	_ = godotenv.Load()

	data, err := os.ReadFile(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err = yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Port == 0 {
		c.Port = 8317
	}
	if c.CallbackBasePath == "" {
		c.CallbackBasePath = DefaultCallbackBasePath
	}
	if c.FlowStatePath == "" {
		c.FlowStatePath = "flow-state.db"
	}
}

// Client returns the client configuration registered under name, or nil.
func (c *Config) Client(name string) *SupabaseClient {
	for i := range c.Clients {
		if c.Clients[i].Name == name {
			return &c.Clients[i]
		}
	}
	return nil
}

// SaveConfig persists the configuration back to its YAML file. The write is
// atomic: a temp file in the same directory is renamed over the target so
// the fsnotify watcher never observes a half-written file.
func SaveConfig(cfg *Config, configFile string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	dir := filepath.Dir(configFile)
	tmp, err := os.CreateTemp(dir, ".config-*.yaml")
	if err != nil {
		return fmt.Errorf("failed to create temp config file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to write temp config file: %w", err)
	}
	if err = tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to close temp config file: %w", err)
	}
	if err = os.Rename(tmpName, configFile); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to replace config file: %w", err)
	}
	return nil
}
