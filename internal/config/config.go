// Package config loads packfeed settings from the environment, an optional
// .env file and an optional TOML sources file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	DefaultYouTubeAPIURL = "https://www.googleapis.com"
	DefaultTwitterAPIURL = "https://api.twitter.com"
	DefaultCacheTTL      = 5 * time.Minute
	DefaultHTTPTimeout   = 15 * time.Second
	DefaultMaxPerSource  = 5
	DefaultAddr          = ":3000"
)

// Config holds every runtime setting.
type Config struct {
	YouTubeAPIKey      string
	TwitterBearerToken string
	TwitterAPIKey      string
	TwitterAPISecret   string

	SourcesPath   string
	ConfigDir     string
	YouTubeAPIURL string
	TwitterAPIURL string

	CacheTTL     time.Duration
	HTTPTimeout  time.Duration
	MaxPerSource int

	LogLevel  string
	LogFormat string
	Addr      string
}

// LookupFunc has the signature of os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// Load reads .env from the working directory when present and then builds a
// Config from the process environment. Variables already set win over .env.
func Load() (*Config, error) {
	if err := LoadDotEnv(".env"); err != nil {
		return nil, err
	}
	return FromEnv(os.LookupEnv)
}

// LoadDotEnv loads path into the environment without overriding existing
// variables. A missing file is not an error.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

// FromEnv builds a Config using lookup for every variable.
func FromEnv(lookup LookupFunc) (*Config, error) {
	get := func(key, fallback string) string {
		if v, ok := lookup(key); ok && v != "" {
			return v
		}
		return fallback
	}

	cfg := &Config{
		YouTubeAPIKey:      get("YOUTUBE_API_KEY", ""),
		TwitterBearerToken: get("TWITTER_BEARER_TOKEN", ""),
		TwitterAPIKey:      get("TWITTER_API_KEY", ""),
		TwitterAPISecret:   get("TWITTER_API_SECRET", ""),
		SourcesPath:        get("PACKFEED_SOURCES", ""),
		ConfigDir:          get("PACKFEED_CONFIG_DIR", defaultConfigDir()),
		YouTubeAPIURL:      get("PACKFEED_YOUTUBE_API_URL", DefaultYouTubeAPIURL),
		TwitterAPIURL:      get("PACKFEED_TWITTER_API_URL", DefaultTwitterAPIURL),
		LogLevel:           get("PACKFEED_LOG_LEVEL", "info"),
		LogFormat:          get("PACKFEED_LOG_FORMAT", "text"),
		Addr:               get("PACKFEED_ADDR", DefaultAddr),
	}

	var err error
	if cfg.CacheTTL, err = parseDuration("PACKFEED_CACHE_TTL", get("PACKFEED_CACHE_TTL", ""), DefaultCacheTTL); err != nil {
		return nil, err
	}
	if cfg.HTTPTimeout, err = parseDuration("PACKFEED_HTTP_TIMEOUT", get("PACKFEED_HTTP_TIMEOUT", ""), DefaultHTTPTimeout); err != nil {
		return nil, err
	}

	cfg.MaxPerSource = DefaultMaxPerSource
	if v := get("PACKFEED_MAX_PER_SOURCE", ""); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("PACKFEED_MAX_PER_SOURCE must be a positive integer, got %q", v)
		}
		cfg.MaxPerSource = n
	}

	return cfg, nil
}

func parseDuration(key, value string, fallback time.Duration) (time.Duration, error) {
	if value == "" {
		return fallback, nil
	}
	if value == "0" {
		return 0, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s must not be negative, got %s", key, value)
	}
	return d, nil
}

func defaultConfigDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "packfeed")
}
