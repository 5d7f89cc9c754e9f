package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration.
type Config struct {
	Database   DatabaseConfig   `yaml:"database"`
	Log        LogConfig        `yaml:"log"`
	Catalog    CatalogConfig    `yaml:"catalog"`
	Letterboxd LetterboxdConfig `yaml:"letterboxd"`
	Schedule   ScheduleConfig   `yaml:"schedule"`
	Publish    PublishConfig    `yaml:"publish"`
	Server     ServerConfig     `yaml:"server"`
}

// DatabaseConfig configures SQLite storage.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "json" or "console"
}

// CatalogConfig holds the external media catalogs.
type CatalogConfig struct {
	TMDB TMDBConfig `yaml:"tmdb"`
	IGDB IGDBConfig `yaml:"igdb"`
}

// TMDBConfig for the movie/TV catalog.
type TMDBConfig struct {
	BaseURL   string `yaml:"base_url"`
	ReadToken string `yaml:"read_token"`
	Language  string `yaml:"language"`
}

// IGDBConfig for the game catalog. When ClientID and ClientSecret are set the
// catalog is queried directly and the proxy is served; otherwise requests go
// through ProxyURL.
type IGDBConfig struct {
	ProxyURL     string `yaml:"proxy_url"`
	BaseURL      string `yaml:"base_url"`
	TokenURL     string `yaml:"token_url"`
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	Limit        int    `yaml:"limit"`
}

// HasCredentials reports whether Twitch client credentials are configured.
func (c IGDBConfig) HasCredentials() bool {
	return c.ClientID != "" && c.ClientSecret != ""
}

// LetterboxdConfig lists diary feeds imported by the scheduler.
type LetterboxdConfig struct {
	Feeds           []string `yaml:"feeds"`
	ReviewerAddress string   `yaml:"reviewer_address"`
}

// ScheduleConfig configures background intervals.
type ScheduleConfig struct {
	PublishInterval string `yaml:"publish_interval"`
	ImportInterval  string `yaml:"import_interval"`
}

// ParsePublishInterval returns the publish interval as time.Duration.
func (s ScheduleConfig) ParsePublishInterval() time.Duration {
	d, err := time.ParseDuration(s.PublishInterval)
	if err != nil {
		return 5 * time.Minute
	}
	return d
}

// ParseImportInterval returns the import interval as time.Duration.
func (s ScheduleConfig) ParseImportInterval() time.Duration {
	d, err := time.ParseDuration(s.ImportInterval)
	if err != nil {
		return time.Hour
	}
	return d
}

// PublishConfig configures where built reviews are submitted.
type PublishConfig struct {
	Webhook WebhookConfig `yaml:"webhook"`
	Slack   SlackConfig   `yaml:"slack"`
	Discord DiscordConfig `yaml:"discord"`
}

// WebhookConfig for the compact-record webhook.
type WebhookConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url"`
	Secret  string `yaml:"secret"`
}

// SlackConfig for Slack announcements.
type SlackConfig struct {
	Enabled    bool   `yaml:"enabled"`
	WebhookURL string `yaml:"webhook_url"`
}

// DiscordConfig for Discord announcements.
type DiscordConfig struct {
	Enabled    bool   `yaml:"enabled"`
	WebhookURL string `yaml:"webhook_url"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port           int     `yaml:"port"`
	RateLimit      float64 `yaml:"rate_limit"` // requests per second
	RateBurst      int     `yaml:"rate_burst"`
	AllowedOrigins string  `yaml:"allowed_origins"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{Path: "./fabricpop.db"},
		Log:      LogConfig{Level: "info", Format: "console"},
		Catalog: CatalogConfig{
			TMDB: TMDBConfig{
				BaseURL:  "https://api.themoviedb.org/3",
				Language: "en-US",
			},
			IGDB: IGDBConfig{
				ProxyURL: "http://localhost:3000/api/igdb",
				BaseURL:  "https://api.igdb.com/v4",
				TokenURL: "https://id.twitch.tv/oauth2/token",
				Limit:    10,
			},
		},
		Schedule: ScheduleConfig{
			PublishInterval: "5m",
			ImportInterval:  "1h",
		},
		Server: ServerConfig{
			Port:           8080,
			RateLimit:      50,
			RateBurst:      100,
			AllowedOrigins: "*",
		},
	}
}

// Load reads configuration from a YAML file and applies env var overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

// applyEnvOverrides overrides config values with environment variables.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("FABRICPOP_DB_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("FABRICPOP_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("TMDB_READ_TOKEN"); v != "" {
		cfg.Catalog.TMDB.ReadToken = v
	}
	if v := os.Getenv("TWITCH_CLIENT_ID"); v != "" {
		cfg.Catalog.IGDB.ClientID = v
	}
	if v := os.Getenv("TWITCH_CLIENT_SECRET"); v != "" {
		cfg.Catalog.IGDB.ClientSecret = v
	}
	if v := os.Getenv("IGDB_PROXY_URL"); v != "" {
		cfg.Catalog.IGDB.ProxyURL = v
	}
	if v := os.Getenv("FABRICPOP_WEBHOOK_URL"); v != "" {
		cfg.Publish.Webhook.URL = v
		cfg.Publish.Webhook.Enabled = true
	}
	if v := os.Getenv("FABRICPOP_WEBHOOK_SECRET"); v != "" {
		cfg.Publish.Webhook.Secret = v
	}
	if v := os.Getenv("SLACK_WEBHOOK_URL"); v != "" {
		cfg.Publish.Slack.WebhookURL = v
		cfg.Publish.Slack.Enabled = true
	}
	if v := os.Getenv("DISCORD_WEBHOOK_URL"); v != "" {
		cfg.Publish.Discord.WebhookURL = v
		cfg.Publish.Discord.Enabled = true
	}
	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
}
