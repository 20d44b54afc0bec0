package config

import (
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/port-experimental/membership-cli/internal/api"
	"github.com/port-experimental/membership-cli/internal/logutil"
)

// ProfileConfig represents the settings for one membership API account.
type ProfileConfig struct {
	Name            string `yaml:"-"`
	APIKey          string `yaml:"api_key"`
	APIURL          string `yaml:"api_url"`
	TokenEndpoint   string `yaml:"token_endpoint,omitempty"`
	TokenMethod     string `yaml:"token_method,omitempty"`
	SiteURL         string `yaml:"site_url,omitempty"`
	SuccessPageID   int    `yaml:"success_page_id,omitempty"`
	ErrorPageID     int    `yaml:"error_page_id,omitempty"`
	MembershipTypes string `yaml:"membership_types,omitempty"`
}

// ServerConfig configures the `serve` command.
type ServerConfig struct {
	Addr                 string  `yaml:"addr"`
	SubmissionsPerMinute float64 `yaml:"submissions_per_minute"`
	Burst                int     `yaml:"burst"`
}

// Config represents the main configuration structure.
type Config struct {
	DefaultProfile string                   `yaml:"default_profile"`
	Profiles       map[string]ProfileConfig `yaml:"profiles"`
	StateDir       string                   `yaml:"state_dir,omitempty"`
	Logging        logutil.LoggerConfig     `yaml:"logging"`
	Server         ServerConfig             `yaml:"server"`
}

// DefaultConfigPath returns the default path to the configuration file.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".membership/config.yaml"
	}
	return filepath.Join(home, ".membership", "config.yaml")
}

// DefaultStateDir returns the default directory for persisted token state.
func DefaultStateDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".membership/state"
	}
	return filepath.Join(home, ".membership", "state")
}

// TokenStorePath returns the token state file for a profile.
func (c *Config) TokenStorePath(profile string) string {
	dir := c.StateDir
	if dir == "" {
		dir = DefaultStateDir()
	}
	return filepath.Join(dir, profile+"-token.yaml")
}

// GetProfile returns the configuration for a specific profile.
func (c *Config) GetProfile(name string) (*ProfileConfig, error) {
	// Use default profile if no name specified
	if name == "" {
		name = c.DefaultProfile
	}

	// If still no name, use the only (or first sorted) profile
	if name == "" {
		if len(c.Profiles) == 0 {
			return nil, fmt.Errorf(`missing api credentials

To authenticate, use one of the following methods:

1. CLI flags:
   membership apply --api-key YOUR_API_KEY --api-url https://api.example.org/

2. Environment variables:
   export MEMBERSHIP_API_KEY="your-api-key"
   export MEMBERSHIP_API_URL="https://api.example.org/"

3. Configuration file:
   Run: membership config --init
   Then edit: %s`, DefaultConfigPath())
		}
		name = c.ProfileNames()[0]
	}

	profile, exists := c.Profiles[name]
	if !exists {
		return nil, fmt.Errorf("profile '%s' not found in configuration. Available profiles: %v", name, c.ProfileNames())
	}

	if profile.APIKey == "" {
		return nil, fmt.Errorf(`missing api_key for profile '%s'

Provide it with --api-key, MEMBERSHIP_API_KEY, or in %s`, name, DefaultConfigPath())
	}

	profile.Name = name
	return &profile, nil
}

// ProfileNames returns the configured profile names in sorted order.
func (c *Config) ProfileNames() []string {
	names := make([]string, 0, len(c.Profiles))
	for name := range c.Profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Validate ensures the configuration is valid.
func (c *Config) Validate() error {
	if len(c.Profiles) == 0 {
		return fmt.Errorf("no profiles configured")
	}

	for _, name := range c.ProfileNames() {
		profile := c.Profiles[name]
		if err := profile.Validate(); err != nil {
			return fmt.Errorf("profile '%s': %w", name, err)
		}
	}

	if _, err := logutil.ParseLevel(c.Logging.Level); err != nil {
		return err
	}
	return nil
}

// Validate checks a single profile.
func (p *ProfileConfig) Validate() error {
	if p.APIKey == "" {
		return fmt.Errorf("missing api_key")
	}
	if p.APIURL == "" {
		return fmt.Errorf("missing api_url")
	}
	u, err := url.Parse(p.APIURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid api_url %q", p.APIURL)
	}
	switch strings.ToUpper(p.TokenMethod) {
	case "", http.MethodGet, http.MethodPost:
	default:
		return fmt.Errorf("token_method must be GET or POST, got %q", p.TokenMethod)
	}
	if p.SuccessPageID < 0 || p.ErrorPageID < 0 {
		return fmt.Errorf("page ids must not be negative")
	}
	if _, err := ParseMembershipTypes(p.MembershipTypes); err != nil {
		return err
	}
	return nil
}

// TokenURL returns the absolute token endpoint URL.
func (p *ProfileConfig) TokenURL() string {
	endpoint := p.TokenEndpoint
	if endpoint == "" {
		endpoint = api.DefaultTokenEndpoint
	}
	if strings.HasPrefix(endpoint, "http://") || strings.HasPrefix(endpoint, "https://") {
		return endpoint
	}
	return strings.TrimRight(p.APIURL, "/") + "/" + strings.TrimLeft(endpoint, "/")
}

// Method returns the token endpoint HTTP method.
func (p *ProfileConfig) Method() string {
	if p.TokenMethod == "" {
		return api.DefaultTokenMethod
	}
	return strings.ToUpper(p.TokenMethod)
}

// Types parses the profile's membership types.
func (p *ProfileConfig) Types() (MembershipTypes, error) {
	return ParseMembershipTypes(p.MembershipTypes)
}

// MaskSecret hides all but the last four characters of a secret.
func MaskSecret(s string) string {
	if s == "" {
		return "(not set)"
	}
	if len(s) <= 4 {
		return strings.Repeat("*", len(s))
	}
	return strings.Repeat("*", 8) + s[len(s)-4:]
}
