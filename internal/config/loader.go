package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const defaultProfileName = "default"

// Overrides holds CLI flag values. Empty fields do not override anything.
type Overrides struct {
	Profile     string
	APIKey      string
	APIURL      string
	TokenMethod string
	SiteURL     string
	StateDir    string
	LogLevel    string
	LogFormat   string
}

// ConfigManager manages configuration loading with precedence: CLI flags > env vars > config file.
type ConfigManager struct {
	configPath string
}

// ConfigPath returns the configuration file path.
func (cm *ConfigManager) ConfigPath() string {
	return cm.configPath
}

// NewConfigManager creates a new ConfigManager.
func NewConfigManager(configPath string) *ConfigManager {
	if configPath == "" {
		configPath = DefaultConfigPath()
	}

	// Load .env files (doesn't override existing env vars)
	loadEnvFiles()

	return &ConfigManager{
		configPath: configPath,
	}
}

// loadEnvFiles loads .env files from current directory and ~/.membership/.env.
func loadEnvFiles() {
	// Skip .env loading during tests
	if os.Getenv("TESTING") != "" {
		return
	}

	if _, err := os.Stat(".env"); err == nil {
		godotenv.Load(".env")
	}

	home, err := os.UserHomeDir()
	if err == nil {
		envPath := filepath.Join(home, ".membership", ".env")
		if _, err := os.Stat(envPath); err == nil {
			godotenv.Load(envPath)
		}
	}
}

// Load loads configuration with precedence: env vars > config file > defaults.
func (cm *ConfigManager) Load() (*Config, error) {
	cfg := defaultConfig()

	if _, err := os.Stat(cm.configPath); err == nil {
		if err := cm.loadFromFile(cfg); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	cm.loadFromEnv(cfg)

	return cfg, nil
}

// LoadWithOverrides loads configuration with CLI flag overrides.
// Precedence: CLI flags > env vars > config file > defaults.
func (cm *ConfigManager) LoadWithOverrides(o Overrides) (*Config, error) {
	cfg, err := cm.Load()
	if err != nil {
		return nil, err
	}

	if o.StateDir != "" {
		cfg.StateDir = o.StateDir
	}
	if o.LogLevel != "" {
		cfg.Logging.Level = o.LogLevel
	}
	if o.LogFormat != "" {
		cfg.Logging.Format = o.LogFormat
	}

	if o.APIKey == "" && o.APIURL == "" && o.TokenMethod == "" && o.SiteURL == "" {
		if o.Profile != "" {
			cfg.DefaultProfile = o.Profile
		}
		return cfg, nil
	}

	name := o.Profile
	if name == "" {
		name = cfg.DefaultProfile
	}
	if name == "" {
		name = defaultProfileName
	}

	profile := cfg.Profiles[name]
	profile.APIKey = firstNonEmpty(o.APIKey, profile.APIKey)
	profile.APIURL = firstNonEmpty(o.APIURL, profile.APIURL)
	profile.TokenMethod = firstNonEmpty(o.TokenMethod, profile.TokenMethod)
	profile.SiteURL = firstNonEmpty(o.SiteURL, profile.SiteURL)

	if profile.APIKey == "" {
		return nil, fmt.Errorf(`missing --api-key flag

To authenticate, provide the API key using one of these methods:

1. CLI flags:
   membership apply --api-key YOUR_API_KEY

2. Environment variables:
   export MEMBERSHIP_API_KEY="your-api-key"

3. Configuration file:
   Run: membership config --init
   Then edit: %s`, cm.configPath)
	}

	cfg.Profiles[name] = profile
	cfg.DefaultProfile = name
	return cfg, nil
}

func defaultConfig() *Config {
	return &Config{
		Profiles: make(map[string]ProfileConfig),
		Server: ServerConfig{
			Addr:                 ":8080",
			SubmissionsPerMinute: 2,
			Burst:                3,
		},
	}
}

// loadFromFile loads configuration from YAML file.
func (cm *ConfigManager) loadFromFile(cfg *Config) error {
	data, err := os.ReadFile(cm.configPath)
	if err != nil {
		return err
	}

	fileConfig := &Config{}
	if err := yaml.Unmarshal(data, fileConfig); err != nil {
		return err
	}

	// Merge file config into defaults
	if fileConfig.DefaultProfile != "" {
		cfg.DefaultProfile = fileConfig.DefaultProfile
	}
	if fileConfig.Profiles != nil {
		cfg.Profiles = fileConfig.Profiles
	}
	if fileConfig.StateDir != "" {
		cfg.StateDir = fileConfig.StateDir
	}
	if fileConfig.Logging.Level != "" {
		cfg.Logging.Level = fileConfig.Logging.Level
	}
	if fileConfig.Logging.Format != "" {
		cfg.Logging.Format = fileConfig.Logging.Format
	}
	cfg.Logging.AddSource = fileConfig.Logging.AddSource
	if fileConfig.Server.Addr != "" {
		cfg.Server.Addr = fileConfig.Server.Addr
	}
	if fileConfig.Server.SubmissionsPerMinute != 0 {
		cfg.Server.SubmissionsPerMinute = fileConfig.Server.SubmissionsPerMinute
	}
	if fileConfig.Server.Burst != 0 {
		cfg.Server.Burst = fileConfig.Server.Burst
	}

	return nil
}

// loadFromEnv loads configuration from environment variables.
func (cm *ConfigManager) loadFromEnv(cfg *Config) {
	if profile := os.Getenv("MEMBERSHIP_PROFILE"); profile != "" {
		cfg.DefaultProfile = profile
	}
	if stateDir := os.Getenv("MEMBERSHIP_STATE_DIR"); stateDir != "" {
		cfg.StateDir = stateDir
	}
	if level := os.Getenv("MEMBERSHIP_LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}
	if format := os.Getenv("MEMBERSHIP_LOG_FORMAT"); format != "" {
		cfg.Logging.Format = format
	}

	apiKey := os.Getenv("MEMBERSHIP_API_KEY")
	apiURL := os.Getenv("MEMBERSHIP_API_URL")
	tokenMethod := os.Getenv("MEMBERSHIP_TOKEN_METHOD")
	siteURL := os.Getenv("MEMBERSHIP_SITE_URL")
	if apiKey == "" && apiURL == "" && tokenMethod == "" && siteURL == "" {
		return
	}

	// Environment values apply on top of the default profile
	name := cfg.DefaultProfile
	if name == "" {
		name = defaultProfileName
	}

	profile := cfg.Profiles[name]
	profile.APIKey = firstNonEmpty(apiKey, profile.APIKey)
	profile.APIURL = firstNonEmpty(apiURL, profile.APIURL)
	profile.TokenMethod = firstNonEmpty(tokenMethod, profile.TokenMethod)
	profile.SiteURL = firstNonEmpty(siteURL, profile.SiteURL)

	cfg.Profiles[name] = profile
	if cfg.DefaultProfile == "" {
		cfg.DefaultProfile = name
	}
}

// CreateDefaultConfig creates a default configuration file.
func (cm *ConfigManager) CreateDefaultConfig() error {
	dir := filepath.Dir(cm.configPath)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	cfg := &Config{
		DefaultProfile: "production",
		Profiles: map[string]ProfileConfig{
			"production": {
				APIKey:        "your-api-key",
				APIURL:        "https://api.example.org/api/",
				TokenEndpoint: "refresh-token/",
				TokenMethod:   "POST",
				SiteURL:       "https://www.example.org",
				SuccessPageID: 12,
				ErrorPageID:   13,
				MembershipTypes: "Regular=1\n" +
					"Student=2\n" +
					"Supporter=3\n",
			},
		},
		Logging: defaultConfig().Logging,
		Server:  defaultConfig().Server,
	}
	cfg.Logging.Level = "info"
	cfg.Logging.Format = "text"

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(cm.configPath, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
