// Package config loads the collector and analyzer settings.
//
// Precedence, lowest first: built-in defaults, the YAML file, .env and the
// process environment, then command-line flags (applied by cmd).
package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"meta-analyzer/internal/ratelimit"
	"meta-analyzer/internal/riot"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ErrMissingAPIKey is returned by ValidateForCollect when no key is set
var ErrMissingAPIKey = errors.New("RIOT_API_KEY not set")

// Candidate .env locations, first hit wins
var envFiles = []string{".env", "../.env", "../../.env"}

type Config struct {
	// Riot API
	APIKey         string        `yaml:"api_key"`
	RoutingRegion  string        `yaml:"routing_region"`  // americas, europe, asia, sea
	PlatformRegion string        `yaml:"platform_region"` // na1, euw1, kr...
	HTTPTimeout    time.Duration `yaml:"http_timeout"`
	ValidateKey    bool          `yaml:"validate_key"`

	// Walk
	Tiers             []string `yaml:"tiers"`
	Divisions         []string `yaml:"divisions"`
	PlayersPerBracket int      `yaml:"players_per_bracket"`
	MatchesPerPlayer  int      `yaml:"matches_per_player"`
	QueueID           int      `yaml:"queue_id"`
	DedupeMatches     bool     `yaml:"dedupe_matches"`

	// Pacing
	RateLimiter     string        `yaml:"rate_limiter"` // bucket, window, none
	RequestInterval time.Duration `yaml:"request_interval"`
	ErrorBackoff    time.Duration `yaml:"error_backoff"`

	// Output
	DataDir    string `yaml:"data_dir"`
	WebhookURL string `yaml:"webhook_url"`
}

// Default returns the settings used when nothing else is configured
func Default() *Config {
	return &Config{
		RoutingRegion:     "americas",
		PlatformRegion:    "na1",
		HTTPTimeout:       30 * time.Second,
		ValidateKey:       true,
		Tiers:             append([]string(nil), riot.DivisionedTiers...),
		Divisions:         append([]string(nil), riot.Divisions...),
		PlayersPerBracket: 50,
		MatchesPerPlayer:  15,
		QueueID:           riot.RankedSoloQueueID,
		RateLimiter:       ratelimit.StrategyBucket,
		RequestInterval:   ratelimit.DefaultRequestInterval,
		ErrorBackoff:      ratelimit.DefaultErrorBackoff,
		DataDir:           ".",
	}
}

// Load builds a Config from defaults, the optional YAML file at path, .env
// and the environment
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	loadDotEnv()
	cfg.applyEnv()
	return cfg, nil
}

func loadDotEnv() {
	for _, path := range envFiles {
		if err := godotenv.Load(path); err == nil {
			log.Printf("[Config] Loaded .env from: %s", path)
			return
		}
	}
}

func (c *Config) applyEnv() {
	c.APIKey = envOr("RIOT_API_KEY", envOr("RIOT-DEV-KEY", c.APIKey))
	c.RoutingRegion = envOr("RIOT_ROUTING_REGION", c.RoutingRegion)
	c.PlatformRegion = envOr("RIOT_PLATFORM_REGION", c.PlatformRegion)

	c.Tiers = envList("META_TIERS", c.Tiers)
	c.Divisions = envList("META_DIVISIONS", c.Divisions)
	c.PlayersPerBracket = envInt("META_PLAYERS_PER_BRACKET", c.PlayersPerBracket)
	c.MatchesPerPlayer = envInt("META_MATCHES_PER_PLAYER", c.MatchesPerPlayer)
	c.DedupeMatches = envBool("META_DEDUPE", c.DedupeMatches)

	c.RateLimiter = envOr("META_RATE_LIMITER", c.RateLimiter)
	c.RequestInterval = envDuration("META_REQUEST_INTERVAL", c.RequestInterval)
	c.ErrorBackoff = envDuration("META_ERROR_BACKOFF", c.ErrorBackoff)

	c.DataDir = envOr("META_DATA_DIR", c.DataDir)
	c.WebhookURL = envOr("DISCORD_WEBHOOK_URL", c.WebhookURL)
}

// Validate checks everything the analyzer and collector share
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("data directory must be set")
	}
	if err := riot.ValidateBracketLists(c.Tiers, c.Divisions); err != nil {
		return err
	}
	if c.PlayersPerBracket <= 0 {
		return fmt.Errorf("players per bracket must be positive, got %d", c.PlayersPerBracket)
	}
	if c.MatchesPerPlayer <= 0 || c.MatchesPerPlayer > 100 {
		return fmt.Errorf("matches per player must be in 1..100, got %d", c.MatchesPerPlayer)
	}
	switch c.RateLimiter {
	case ratelimit.StrategyBucket, ratelimit.StrategyWindow, ratelimit.StrategyNone:
	default:
		return fmt.Errorf("unknown rate limiter %q", c.RateLimiter)
	}
	if c.RequestInterval < 0 || c.ErrorBackoff < 0 {
		return fmt.Errorf("request interval and error backoff must not be negative")
	}
	return nil
}

// ValidateForCollect also requires the credentials a collection needs
func (c *Config) ValidateForCollect() error {
	if c.APIKey == "" {
		return ErrMissingAPIKey
	}
	if c.RoutingRegion == "" || c.PlatformRegion == "" {
		return fmt.Errorf("routing and platform regions must be set")
	}
	return c.Validate()
}

// LimiterSettings maps the pacing options onto ratelimit.Settings
func (c *Config) LimiterSettings() ratelimit.Settings {
	s := ratelimit.DefaultSettings()
	s.RequestInterval = c.RequestInterval
	s.ErrorBackoff = c.ErrorBackoff
	return s
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
		log.Printf("[Config] Ignoring %s=%q: not an integer", key, v)
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
		log.Printf("[Config] Ignoring %s=%q: not a boolean", key, v)
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
		log.Printf("[Config] Ignoring %s=%q: not a duration", key, v)
	}
	return fallback
}

// envList splits a comma separated value, upper-casing tier and division names
func envList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, strings.ToUpper(part))
		}
	}
	return out
}
