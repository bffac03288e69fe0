package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

const envPrefix = "READER_"

type Config struct {
	App   AppConfig   `yaml:"app"`
	API   APIConfig   `yaml:"api"`
	Cache CacheConfig `yaml:"cache"`
	Auth  AuthConfig  `yaml:"auth"`
}

type AppConfig struct {
	Port          int           `yaml:"port"`
	LogLevel      string        `yaml:"log_level"`
	LogFile       string        `yaml:"log_file"`
	LookupTimeout time.Duration `yaml:"lookup_timeout"`
	RetryInterval time.Duration `yaml:"retry_interval"`
	MaxSessions   int           `yaml:"max_sessions"`
	IdleTimeout   time.Duration `yaml:"session_idle_timeout"`
}

// APIConfig points at the inference service that serves dictionary and
// seen-content lookups. AccessToken is normally supplied through the
// environment rather than the file.
type APIConfig struct {
	Endpoint    string `yaml:"endpoint"`
	AccessToken string `yaml:"access_token"`
}

type CacheConfig struct {
	Size           int           `yaml:"size"`
	SeenContentTTL time.Duration `yaml:"seen_content_ttl"`
}

// AuthConfig controls who may drive a session. Requests that change state
// must come from the serving host or one of AllowedOrigins.
type AuthConfig struct {
	SessionCookie  string   `yaml:"session_cookie"`
	LoginURL       string   `yaml:"login_url"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	Disabled       bool     `yaml:"disabled"`
}

// LoadConfig reads the YAML file at path, then applies READER_* variables
// from the environment and from a .env file if present. An empty path skips
// the file.
func LoadConfig(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.App.Port == 0 {
		c.App.Port = 8080
	}
	if c.App.LogLevel == "" {
		c.App.LogLevel = "info"
	}
	if c.App.LookupTimeout == 0 {
		c.App.LookupTimeout = 10 * time.Second
	}
	if c.App.RetryInterval == 0 {
		c.App.RetryInterval = 5 * time.Second
	}
	if c.App.MaxSessions == 0 {
		c.App.MaxSessions = 1024
	}
	if c.App.IdleTimeout == 0 {
		c.App.IdleTimeout = 30 * time.Minute
	}
	if c.Cache.Size == 0 {
		c.Cache.Size = 4096
	}
	if c.Cache.SeenContentTTL == 0 {
		c.Cache.SeenContentTTL = time.Minute
	}
	if c.Auth.SessionCookie == "" {
		c.Auth.SessionCookie = "session"
	}
	if c.Auth.LoginURL == "" {
		c.Auth.LoginURL = "/login"
	}
}

func (c *Config) applyEnv() error {
	strs := map[string]*string{
		"LOG_LEVEL":      &c.App.LogLevel,
		"LOG_FILE":       &c.App.LogFile,
		"API_ENDPOINT":   &c.API.Endpoint,
		"API_TOKEN":      &c.API.AccessToken,
		"SESSION_COOKIE": &c.Auth.SessionCookie,
		"LOGIN_URL":      &c.Auth.LoginURL,
	}
	for key, dst := range strs {
		if v, ok := lookupEnv(key); ok {
			*dst = v
		}
	}

	ints := map[string]*int{
		"PORT":         &c.App.Port,
		"MAX_SESSIONS": &c.App.MaxSessions,
		"CACHE_SIZE":   &c.Cache.Size,
	}
	for key, dst := range ints {
		v, ok := lookupEnv(key)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s%s %q: %w", envPrefix, key, v, err)
		}
		*dst = n
	}

	durations := map[string]*time.Duration{
		"LOOKUP_TIMEOUT":       &c.App.LookupTimeout,
		"RETRY_INTERVAL":       &c.App.RetryInterval,
		"SESSION_IDLE_TIMEOUT": &c.App.IdleTimeout,
		"SEEN_CONTENT_TTL":     &c.Cache.SeenContentTTL,
	}
	for key, dst := range durations {
		v, ok := lookupEnv(key)
		if !ok {
			continue
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %s%s %q: %w", envPrefix, key, v, err)
		}
		*dst = d
	}

	if v, ok := lookupEnv("ALLOWED_ORIGINS"); ok {
		c.Auth.AllowedOrigins = nil
		for _, origin := range strings.Split(v, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				c.Auth.AllowedOrigins = append(c.Auth.AllowedOrigins, origin)
			}
		}
	}

	if v, ok := lookupEnv("AUTH_DISABLED"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %sAUTH_DISABLED %q: %w", envPrefix, v, err)
		}
		c.Auth.Disabled = b
	}
	return nil
}

func (c *Config) Validate() error {
	if c.API.Endpoint == "" {
		return fmt.Errorf("api.endpoint is required")
	}
	if c.App.Port < 0 || c.App.Port > 65535 {
		return fmt.Errorf("app.port %d out of range", c.App.Port)
	}
	if c.App.LookupTimeout < 0 || c.App.RetryInterval < 0 || c.App.IdleTimeout < 0 || c.Cache.SeenContentTTL < 0 {
		return fmt.Errorf("durations must not be negative")
	}
	for _, origin := range c.Auth.AllowedOrigins {
		u, err := url.Parse(origin)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("auth.allowed_origins: %q is not a scheme://host origin", origin)
		}
	}
	if c.App.MaxSessions < 0 || c.Cache.Size < 0 {
		return fmt.Errorf("app.max_sessions and cache.size must not be negative")
	}
	return nil
}

func lookupEnv(key string) (string, bool) {
	v, ok := os.LookupEnv(envPrefix + key)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}
