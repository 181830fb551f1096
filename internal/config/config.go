package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultApifyBaseURL is the Apify REST API v2 root.
const DefaultApifyBaseURL = "https://api.apify.com/v2"

// ServerConfig holds configuration for the ActorRun server.
type ServerConfig struct {
	Addr      string `yaml:"addr"`       // Listen address (default ":8080")
	LogLevel  string `yaml:"log_level"`  // Log level: debug, info, warn, error
	LogFormat string `yaml:"log_format"` // Log format: text, json
	DBPath    string `yaml:"db_path"`    // SQLite database path (default ~/.actorrun/actorrun.db, ":memory:" for testing)

	ApifyBaseURL string        `yaml:"apify_base_url"`
	ApifyTimeout time.Duration `yaml:"apify_timeout"` // Per-request HTTP timeout
	RunWait      time.Duration `yaml:"run_wait"`      // Upper bound on waiting for a run to finish

	SessionTTL    time.Duration `yaml:"session_ttl"`
	ActorCacheTTL time.Duration `yaml:"actor_cache_ttl"`
	SecureCookies bool          `yaml:"secure_cookies"`

	// SanitizeDescriptions strips unsafe markup from schema field
	// descriptions before rendering. Off by default: descriptions come from
	// the actor author and are shown as-is.
	SanitizeDescriptions bool `yaml:"sanitize_descriptions"`
}

// DefaultServerConfig returns sensible defaults.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Addr:          ":8080",
		LogLevel:      "info",
		LogFormat:     "text",
		ApifyBaseURL:  DefaultApifyBaseURL,
		ApifyTimeout:  90 * time.Second,
		RunWait:       10 * time.Minute,
		SessionTTL:    24 * time.Hour,
		ActorCacheTTL: 5 * time.Minute,
	}
}

// LoadFile overlays the YAML file at path onto cfg. Keys absent from the
// file keep their current values. An empty path is a no-op.
func LoadFile(path string, cfg *ServerConfig) error {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg.Validate()
}

// Validate reports settings that cannot work.
func (c ServerConfig) Validate() error {
	if c.ApifyBaseURL == "" {
		return fmt.Errorf("apify_base_url must not be empty")
	}
	if c.ApifyTimeout < 0 || c.RunWait < 0 || c.SessionTTL < 0 || c.ActorCacheTTL < 0 {
		return fmt.Errorf("durations must not be negative")
	}
	return nil
}
