// Package config loads the ovpnkeys settings file.
//
// The file is YAML with a single top-level section:
//
//	ovpnkeys:
//	  dir: ./ca
//	  root_name: Example VPN CA
//	  certification_days: 825
//
// Every value is read as its literal scalar text, so `825` and `"825"` are
// equivalent.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultPath is the settings file looked up in the working directory.
	DefaultPath = "ovpnkeys.yaml"

	// Section is the top-level key holding all settings.
	Section = "ovpnkeys"

	// EnvCA and EnvCRL are read by openssl.cnf through $ENV::NAME.
	EnvCA  = "OVPNKEYS_CA"
	EnvCRL = "OVPNKEYS_CRL"
)

var (
	// ErrNotFound is returned when the settings file does not exist.
	ErrNotFound = errors.New("config file not found")

	// ErrMissingKey is returned by Get for keys absent from the section.
	ErrMissingKey = errors.New("missing config key")
)

// Config is an immutable view of the settings section.
type Config struct {
	path   string
	values map[string]string
}

// Load reads the settings file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s not found. Copy the template %s.example", ErrNotFound, path, path)
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	cfg.path = path
	return cfg, nil
}

// Parse decodes settings from YAML bytes.
func Parse(data []byte) (*Config, error) {
	var doc map[string]map[string]string
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	section, ok := doc[Section]
	if !ok {
		return nil, fmt.Errorf("no %q section", Section)
	}
	if section == nil {
		section = map[string]string{}
	}

	cfg := &Config{values: section}
	if _, err := cfg.Get("dir"); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromMap builds a Config from already-parsed values.
func FromMap(values map[string]string) *Config {
	copied := make(map[string]string, len(values))
	for k, v := range values {
		copied[k] = v
	}
	return &Config{values: copied}
}

// Path returns the file the configuration was loaded from.
func (c *Config) Path() string {
	return c.path
}

// Get returns a required value.
func (c *Config) Get(key string) (string, error) {
	v, ok := c.values[key]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrMissingKey, key)
	}
	return v, nil
}

// Lookup returns the value and whether the key is present.
func (c *Config) Lookup(key string) (string, bool) {
	v, ok := c.values[key]
	return v, ok
}

// GetDefault returns the value for key, or def when the key is absent.
func (c *Config) GetDefault(key, def string) string {
	if v, ok := c.values[key]; ok {
		return v
	}
	return def
}

// Bool coerces a value the way INI-style tools do.
func (c *Config) Bool(key string, def bool) (bool, error) {
	v, ok := c.values[key]
	if !ok {
		return def, nil
	}
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "yes", "true", "on":
		return true, nil
	case "0", "no", "false", "off":
		return false, nil
	}
	return false, fmt.Errorf("config key %s: not a boolean: %q", key, v)
}

// Duration parses a Go duration value, falling back to def.
func (c *Config) Duration(key string, def time.Duration) (time.Duration, error) {
	v, ok := c.values[key]
	if !ok || strings.TrimSpace(v) == "" {
		return def, nil
	}
	d, err := time.ParseDuration(strings.TrimSpace(v))
	if err != nil {
		return 0, fmt.Errorf("config key %s: %w", key, err)
	}
	return d, nil
}

// Dir is the CA root directory.
func (c *Config) Dir() string {
	return c.values["dir"]
}

// CRLURL is the CRL distribution point, empty when unset.
func (c *Config) CRLURL() string {
	return c.values["crl_url"]
}

// Env returns the variables consumed by openssl.cnf. They are meant to be
// appended to a single child process environment, never exported globally.
func (c *Config) Env() []string {
	crl := ""
	if url := c.CRLURL(); url != "" {
		crl = "URI:" + url
	}
	return []string{
		EnvCA + "=" + c.Dir(),
		EnvCRL + "=" + crl,
	}
}
