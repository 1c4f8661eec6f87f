package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/abdul-hamid-achik/hitnet/packages/network"
	"gopkg.in/yaml.v3"
)

// EnvironmentConfig describes one named target
type EnvironmentConfig struct {
	Scheme string `json:"scheme" yaml:"scheme"`
	Host   string `json:"host" yaml:"host"`
	Path   string `json:"path,omitempty" yaml:"path,omitempty"`
}

// Config represents the hitnet configuration
type Config struct {
	DefaultEnvironment string                       `json:"defaultEnvironment,omitempty" yaml:"defaultEnvironment,omitempty"`
	Environments       map[string]EnvironmentConfig `json:"environments,omitempty" yaml:"environments,omitempty"`
	SessionCookieName  string                       `json:"sessionCookieName,omitempty" yaml:"sessionCookieName,omitempty"`
	Timeout            int                          `json:"timeout,omitempty" yaml:"timeout,omitempty"` // milliseconds
	FollowRedirects    *bool                        `json:"followRedirects,omitempty" yaml:"followRedirects,omitempty"`
	MaxRedirects       int                          `json:"maxRedirects,omitempty" yaml:"maxRedirects,omitempty"`
	ValidateSSL        *bool                        `json:"validateSSL,omitempty" yaml:"validateSSL,omitempty"`
	Proxy              string                       `json:"proxy,omitempty" yaml:"proxy,omitempty"`
	Headers            map[string]string            `json:"headers,omitempty" yaml:"headers,omitempty"`         // Default headers for all requests
	CookieStore        string                       `json:"cookieStore,omitempty" yaml:"cookieStore,omitempty"` // sqlite://path, empty keeps cookies in memory
	LogLevel           string                       `json:"logLevel,omitempty" yaml:"logLevel,omitempty"`
	LogDevelopment     *bool                        `json:"logDevelopment,omitempty" yaml:"logDevelopment,omitempty"`
	NoColor            *bool                        `json:"noColor,omitempty" yaml:"noColor,omitempty"`
}

// BoolPtr returns a pointer to a bool value
func BoolPtr(b bool) *bool {
	return &b
}

// getBool returns the value of a bool pointer, or the default if nil
func getBool(b *bool, defaultVal bool) bool {
	if b == nil {
		return defaultVal
	}
	return *b
}

// GetFollowRedirects returns the follow redirects setting, defaulting to true
func (c *Config) GetFollowRedirects() bool {
	return getBool(c.FollowRedirects, true)
}

// GetValidateSSL returns the validate SSL setting, defaulting to true
func (c *Config) GetValidateSSL() bool {
	return getBool(c.ValidateSSL, true)
}

// GetLogDevelopment returns the development logging setting, defaulting to false
func (c *Config) GetLogDevelopment() bool {
	return getBool(c.LogDevelopment, false)
}

// GetNoColor returns the no color setting, defaulting to false
func (c *Config) GetNoColor() bool {
	return getBool(c.NoColor, false)
}

// TimeoutDuration returns Timeout as a time.Duration
func (c *Config) TimeoutDuration() time.Duration {
	return time.Duration(c.Timeout) * time.Millisecond
}

// EnvironmentNames returns the configured environment names, sorted
func (c *Config) EnvironmentNames() []string {
	names := make([]string, 0, len(c.Environments))
	for name := range c.Environments {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Environment returns the named environment. An empty name selects the
// default environment.
func (c *Config) Environment(name string) (network.StaticEnvironment, error) {
	if name == "" {
		name = c.DefaultEnvironment
	}
	env, ok := c.Environments[name]
	if !ok {
		return network.StaticEnvironment{}, fmt.Errorf("unknown environment %q (available: %s)", name, strings.Join(c.EnvironmentNames(), ", "))
	}
	if env.Scheme == "" || env.Host == "" {
		return network.StaticEnvironment{}, fmt.Errorf("environment %q needs both scheme and host", name)
	}
	return network.StaticEnvironment{
		Name:       name,
		SchemeName: env.Scheme,
		HostName:   env.Host,
		BasePath:   env.Path,
	}, nil
}

// ConfigFilenames contains the possible config file names
var ConfigFilenames = []string{
	".hitnet.json",
	"hitnet.config.json",
	".hitnet.yaml",
	".hitnet.yml",
	"hitnet.yaml",
}

// LoadConfig loads configuration from the specified path or searches for config files
func LoadConfig(path string) (*Config, error) {
	if path != "" {
		return loadConfigFromFile(path)
	}

	// Search for config file in current directory
	return FindAndLoadConfig(".")
}

// FindAndLoadConfig searches for a config file in the given directory
func FindAndLoadConfig(dir string) (*Config, error) {
	if path := FindConfigFile(dir); path != "" {
		return loadConfigFromFile(path)
	}

	// Return defaults if no config file found
	return DefaultConfig(), nil
}

// FindConfigFile returns the first config file present in dir, or ""
func FindConfigFile(dir string) string {
	for _, filename := range ConfigFilenames {
		configPath := filepath.Join(dir, filename)
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
	}
	return ""
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

// loadConfigFromFile loads configuration from a specific file
func loadConfigFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	config := DefaultConfig()
	if isYAML(path) {
		err = yaml.Unmarshal(data, config)
	} else {
		err = json.Unmarshal(data, config)
	}
	if err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	return config, nil
}

// Merge merges another config into this one, with other taking precedence
func (c *Config) Merge(other *Config) *Config {
	if other == nil {
		return c
	}

	result := *c // Copy

	if other.DefaultEnvironment != "" {
		result.DefaultEnvironment = other.DefaultEnvironment
	}
	if other.SessionCookieName != "" {
		result.SessionCookieName = other.SessionCookieName
	}
	if other.Timeout > 0 {
		result.Timeout = other.Timeout
	}
	if other.MaxRedirects > 0 {
		result.MaxRedirects = other.MaxRedirects
	}
	if other.Proxy != "" {
		result.Proxy = other.Proxy
	}
	if other.CookieStore != "" {
		result.CookieStore = other.CookieStore
	}
	if other.LogLevel != "" {
		result.LogLevel = other.LogLevel
	}

	// Boolean flags - only override if explicitly set in other config
	if other.FollowRedirects != nil {
		result.FollowRedirects = other.FollowRedirects
	}
	if other.ValidateSSL != nil {
		result.ValidateSSL = other.ValidateSSL
	}
	if other.LogDevelopment != nil {
		result.LogDevelopment = other.LogDevelopment
	}
	if other.NoColor != nil {
		result.NoColor = other.NoColor
	}

	// Merge headers
	if len(other.Headers) > 0 {
		headers := make(map[string]string, len(c.Headers)+len(other.Headers))
		for k, v := range c.Headers {
			headers[k] = v
		}
		for k, v := range other.Headers {
			headers[k] = v
		}
		result.Headers = headers
	}

	// Merge environments
	if len(other.Environments) > 0 {
		envs := make(map[string]EnvironmentConfig, len(c.Environments)+len(other.Environments))
		for k, v := range c.Environments {
			envs[k] = v
		}
		for k, v := range other.Environments {
			envs[k] = v
		}
		result.Environments = envs
	}

	return &result
}

// SaveConfig saves the configuration to a file, as YAML when the path ends
// in .yaml or .yml
func (c *Config) SaveConfig(path string) error {
	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}
