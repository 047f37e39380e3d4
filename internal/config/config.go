package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
)

// Source describes one configured news origin. The display name and
// category are assigned here, never taken from the feed itself.
type Source struct {
	URL      string `json:"url"`
	Name     string `json:"name"`
	Category string `json:"category,omitempty"`
}

// Config holds the aggregation service settings.
type Config struct {
	ListenAddr        string   `json:"listen_addr"`
	Sources           []Source `json:"sources"`
	TrialsURL         string   `json:"trials_url"`
	AnalyticsUpstream string   `json:"analytics_upstream"`
	PollInterval      int      `json:"poll_interval"` // minutes, 0 disables the archive poller

	// DatabaseURL comes from the environment, not the config file.
	DatabaseURL string `json:"-"`
}

// Validate checks that at least one source is configured and every
// external URL is a valid https URL. The https requirement is also
// enforced at fetch time; failing early here catches config typos.
func (cfg *Config) Validate() error {
	if len(cfg.Sources) == 0 {
		return errors.New("at least one news source is required")
	}
	for _, s := range cfg.Sources {
		if s.Name == "" {
			return fmt.Errorf("source %s has no display name", s.URL)
		}
		if err := checkHTTPS(s.URL); err != nil {
			return fmt.Errorf("source %q: %w", s.Name, err)
		}
	}
	if cfg.TrialsURL != "" {
		if err := checkHTTPS(cfg.TrialsURL); err != nil {
			return fmt.Errorf("trials_url: %w", err)
		}
	}
	if cfg.AnalyticsUpstream != "" {
		if err := checkHTTPS(cfg.AnalyticsUpstream); err != nil {
			return fmt.Errorf("analytics_upstream: %w", err)
		}
	}
	if cfg.PollInterval < 0 {
		return errors.New("poll_interval must not be negative")
	}
	return nil
}

func checkHTTPS(raw string) error {
	u, err := url.ParseRequestURI(raw)
	if err != nil {
		return fmt.Errorf("invalid URL: %s", raw)
	}
	if u.Scheme != "https" {
		return fmt.Errorf("URL must use https: %s", raw)
	}
	return nil
}

// LoadConfig reads the JSON file at path and applies environment
// overrides (DATABASE_URL).
func LoadConfig(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var cfg Config
	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, err
	}

	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8080"
	}
	cfg.DatabaseURL = os.Getenv("DATABASE_URL")

	return &cfg, nil
}
