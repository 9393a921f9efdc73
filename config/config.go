// Package config loads client settings from defaults, an optional TOML file,
// an optional .env file and the process environment, in that order.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

type Config struct {
	ServiceURL        string
	ServiceWSURL      string
	RequestTimeout    time.Duration
	ReconnectMinDelay time.Duration
	ReconnectMaxDelay time.Duration
	// GroupingWindow of zero groups consecutive same-sender messages regardless of time gap.
	GroupingWindow time.Duration
	MetricsAddr    string
	// TraceEndpoint is an OTLP/gRPC collector (host:port). Empty disables tracing.
	TraceEndpoint   string
	CurrentUserID   string
	CurrentUsername string
}

func Defaults() Config {
	return Config{
		ServiceURL:        "http://localhost:8080",
		RequestTimeout:    10 * time.Second,
		ReconnectMinDelay: 500 * time.Millisecond,
		ReconnectMaxDelay: 30 * time.Second,
	}
}

// Load builds the configuration. A missing .env or TOML file is not an error.
func Load() (Config, error) {
	cfg := Defaults()

	// .env first so it can also point at the config file.
	_ = godotenv.Load()

	path := getEnv("IVAR_CONFIG", defaultFilePath())
	if path != "" {
		if err := mergeFile(&cfg, path); err != nil {
			return Config{}, err
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if cfg.ServiceWSURL == "" {
		ws, err := DeriveWSURL(cfg.ServiceURL)
		if err != nil {
			return Config{}, err
		}
		cfg.ServiceWSURL = ws
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func mergeFile(cfg *Config, path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	var file struct {
		ServiceURL        string `toml:"service_url"`
		ServiceWSURL      string `toml:"service_ws_url"`
		RequestTimeout    string `toml:"request_timeout"`
		ReconnectMinDelay string `toml:"reconnect_min_delay"`
		ReconnectMaxDelay string `toml:"reconnect_max_delay"`
		GroupingWindow    string `toml:"grouping_window"`
		MetricsAddr       string `toml:"metrics_addr"`
		TraceEndpoint     string `toml:"otlp_endpoint"`
		CurrentUserID     string `toml:"current_user_id"`
		CurrentUsername   string `toml:"current_username"`
	}
	if _, err := toml.DecodeFile(path, &file); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	setString(&cfg.ServiceURL, file.ServiceURL)
	setString(&cfg.ServiceWSURL, file.ServiceWSURL)
	setString(&cfg.MetricsAddr, file.MetricsAddr)
	setString(&cfg.TraceEndpoint, file.TraceEndpoint)
	setString(&cfg.CurrentUserID, file.CurrentUserID)
	setString(&cfg.CurrentUsername, file.CurrentUsername)

	durations := []struct {
		key string
		raw string
		dst *time.Duration
	}{
		{"request_timeout", file.RequestTimeout, &cfg.RequestTimeout},
		{"reconnect_min_delay", file.ReconnectMinDelay, &cfg.ReconnectMinDelay},
		{"reconnect_max_delay", file.ReconnectMaxDelay, &cfg.ReconnectMaxDelay},
		{"grouping_window", file.GroupingWindow, &cfg.GroupingWindow},
	}
	for _, d := range durations {
		if err := setDuration(d.dst, d.key, d.raw); err != nil {
			return err
		}
	}
	return nil
}

func applyEnv(cfg *Config) error {
	setString(&cfg.ServiceURL, os.Getenv("SERVICE_URL"))
	setString(&cfg.ServiceWSURL, os.Getenv("SERVICE_WS_URL"))
	setString(&cfg.MetricsAddr, os.Getenv("METRICS_ADDR"))
	setString(&cfg.TraceEndpoint, os.Getenv("OTLP_ENDPOINT"))
	setString(&cfg.CurrentUserID, os.Getenv("CURRENT_USER_ID"))
	setString(&cfg.CurrentUsername, os.Getenv("CURRENT_USERNAME"))

	if err := setDuration(&cfg.RequestTimeout, "REQUEST_TIMEOUT", os.Getenv("REQUEST_TIMEOUT")); err != nil {
		return err
	}
	if err := setDuration(&cfg.ReconnectMinDelay, "RECONNECT_MIN_DELAY", os.Getenv("RECONNECT_MIN_DELAY")); err != nil {
		return err
	}
	if err := setDuration(&cfg.ReconnectMaxDelay, "RECONNECT_MAX_DELAY", os.Getenv("RECONNECT_MAX_DELAY")); err != nil {
		return err
	}
	return setDuration(&cfg.GroupingWindow, "GROUPING_WINDOW", os.Getenv("GROUPING_WINDOW"))
}

// Validate rejects settings the gateway or the channel cannot work with.
func (c Config) Validate() error {
	if err := checkURL(c.ServiceURL, "http", "https"); err != nil {
		return fmt.Errorf("service url: %w", err)
	}
	if err := checkURL(c.ServiceWSURL, "ws", "wss"); err != nil {
		return fmt.Errorf("service ws url: %w", err)
	}
	if c.RequestTimeout < 0 || c.ReconnectMinDelay < 0 || c.ReconnectMaxDelay < 0 || c.GroupingWindow < 0 {
		return errors.New("durations must not be negative")
	}
	if c.ReconnectMaxDelay > 0 && c.ReconnectMinDelay > c.ReconnectMaxDelay {
		return errors.New("reconnect min delay exceeds max delay")
	}
	return nil
}

// DeriveWSURL maps an http(s) base url onto the matching ws(s) url.
func DeriveWSURL(serviceURL string) (string, error) {
	u, err := url.Parse(serviceURL)
	if err != nil {
		return "", fmt.Errorf("parse service url: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http":
		u.Scheme = "ws"
	default:
		return "", fmt.Errorf("unsupported service url scheme %q", u.Scheme)
	}
	return strings.TrimRight(u.String(), "/"), nil
}

func checkURL(raw string, schemes ...string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Host == "" {
		return fmt.Errorf("missing host in %q", raw)
	}
	for _, s := range schemes {
		if u.Scheme == s {
			return nil
		}
	}
	return fmt.Errorf("scheme %q not one of %v", u.Scheme, schemes)
}

func setString(dst *string, v string) {
	if v = strings.TrimSpace(v); v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, key, raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	*dst = d
	return nil
}

func defaultFilePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".ivar", "config.toml")
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}
