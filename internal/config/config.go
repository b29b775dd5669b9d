// Package config loads the console server configuration from procstudio.yaml
// and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/apex/log"
	"gopkg.in/yaml.v3"
)

// FileName is the config file looked up in the standard locations.
const FileName = "procstudio.yaml"

// TLSConfig points at the certificate pair used to serve HTTPS.
type TLSConfig struct {
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// Enabled reports whether both halves of the pair are configured.
func (t TLSConfig) Enabled() bool { return t.CertFile != "" && t.KeyFile != "" }

// CacheConfig holds the response cache timings.
type CacheConfig struct {
	DefaultTTL    time.Duration `yaml:"default_ttl"`
	SweepInterval time.Duration `yaml:"sweep_interval"`
	TeamsTTL      time.Duration `yaml:"teams_ttl"`
	DashboardTTL  time.Duration `yaml:"dashboard_ttl"`
}

// Config contains server configuration values.
type Config struct {
	Source      string        `yaml:"-"`
	Port        string        `yaml:"port"`
	APIURL      string        `yaml:"api_url"`
	DebugToken  string        `yaml:"debug_token"`
	LogLevel    string        `yaml:"log_level"`
	HTTPTimeout time.Duration `yaml:"http_timeout"`
	TLS         TLSConfig     `yaml:"tls"`
	Cache       CacheConfig   `yaml:"cache"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Port:        "3000",
		APIURL:      "http://localhost:3001/api/v1",
		LogLevel:    "INFO",
		HTTPTimeout: 15 * time.Second,
		Cache: CacheConfig{
			DefaultTTL:    5 * time.Minute,
			SweepInterval: 10 * time.Minute,
			TeamsTTL:      5 * time.Minute,
			DashboardTTL:  time.Minute,
		},
	}
}

// Load reads the file at path over the defaults. An empty path searches the
// standard locations and falls back to defaults when nothing is found.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		found, ok := findConfigPath()
		if !ok {
			return cfg, nil
		}
		path = found
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.Source = path
	return cfg, nil
}

// ApplyEnv overrides fields from environment variables. getenv is usually os.Getenv.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	set := func(dst *string, key string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	set(&c.Port, "PORT")
	set(&c.APIURL, "PROCSTUDIO_API_URL")
	set(&c.DebugToken, "PROCSTUDIO_DEBUG_TOKEN")
	set(&c.LogLevel, "PROCSTUDIO_LOG")
	set(&c.TLS.CertFile, "TLS_CERT_FILE")
	set(&c.TLS.KeyFile, "TLS_KEY_FILE")

	durations := []struct {
		dst *time.Duration
		key string
	}{
		{&c.HTTPTimeout, "PROCSTUDIO_HTTP_TIMEOUT"},
		{&c.Cache.DefaultTTL, "PROCSTUDIO_CACHE_TTL"},
		{&c.Cache.SweepInterval, "PROCSTUDIO_CACHE_SWEEP"},
	}
	for _, d := range durations {
		v := getenv(d.key)
		if v == "" {
			continue
		}
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", d.key, err)
		}
		*d.dst = parsed
	}
	return nil
}

// Validate checks the values that would otherwise fail at runtime.
func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.APIURL) == "" {
		errs = append(errs, errors.New("api_url is required"))
	}
	if c.Port == "" {
		errs = append(errs, errors.New("port is required"))
	}
	if (c.TLS.CertFile == "") != (c.TLS.KeyFile == "") {
		errs = append(errs, errors.New("tls.cert_file and tls.key_file must be set together"))
	}
	for name, d := range map[string]time.Duration{
		"http_timeout":         c.HTTPTimeout,
		"cache.default_ttl":    c.Cache.DefaultTTL,
		"cache.sweep_interval": c.Cache.SweepInterval,
		"cache.teams_ttl":      c.Cache.TeamsTTL,
		"cache.dashboard_ttl":  c.Cache.DashboardTTL,
	} {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %s", name, d))
		}
	}
	return errors.Join(errs...)
}

func findConfigPath() (string, bool) {
	candidates := []string{
		os.Getenv("PROCSTUDIO_CONFIG_DIR"),
		os.Getenv("XDG_CONFIG_HOME"),
		os.Getenv("HOME"),
	}
	for _, c := range candidates {
		if c == "" {
			continue
		}
		file := filepath.Join(c, FileName)
		if fi, err := os.Stat(file); err == nil && !fi.IsDir() {
			log.Debugf("using config file: %s", file)
			return file, true
		}
	}
	return "", false
}
