package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Cache backends
const (
	CacheMemory = "memory"
	CacheRedis  = "redis"
	CacheNone   = "none"
)

// Config holds all application configuration
type Config struct {
	// TVDB
	TVDBAPIKey       string
	TVDBPin          string
	TVDBBaseURL      string
	TVDBTimeout      time.Duration // per attempt
	TVDBRetryBackoff time.Duration // wait before the single transient retry
	TVDBTokenTTL     time.Duration

	// Token renewal
	TokenRefreshSchedule string // cron spec
	TokenRefreshLead     time.Duration

	// Resolution
	DefaultLanguage  string
	MatchMaxDistance  int // Levenshtein tolerance for title matches (0 = exact)
	FanartSearchDepth int // search results tried for fanart by name
	TorrentHosts      []string
	SubsPleaseBaseURL string // poster fallback, empty disables it

	// Cache
	CacheBackend string
	CacheTTL     time.Duration
	RedisURL     string

	// Server
	ServerPort     string
	RedirectStatus int

	// Logging
	LogLevel  string
	LogFormat string
}

// Load loads configuration from environment variables and .env file
func Load() (*Config, error) {
	// Setup viper FIRST to load .env file
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AutomaticEnv()

	// Load .env file if it exists (ignore if not found)
	_ = viper.ReadInConfig()

	setDefaults()

	config := &Config{
		// TVDB
		TVDBAPIKey:       strings.TrimSpace(viper.GetString("TVDB_API_KEY")),
		TVDBPin:          viper.GetString("TVDB_PIN"),
		TVDBBaseURL:      strings.TrimRight(viper.GetString("TVDB_BASE_URL"), "/"),
		TVDBTimeout:      viper.GetDuration("TVDB_TIMEOUT"),
		TVDBRetryBackoff: viper.GetDuration("TVDB_RETRY_BACKOFF"),
		TVDBTokenTTL:     viper.GetDuration("TVDB_TOKEN_TTL"),

		// Token renewal
		TokenRefreshSchedule: viper.GetString("TOKEN_REFRESH_SCHEDULE"),
		TokenRefreshLead:     viper.GetDuration("TOKEN_REFRESH_LEAD"),

		// Resolution
		DefaultLanguage:   viper.GetString("DEFAULT_LANGUAGE"),
		MatchMaxDistance:  viper.GetInt("MATCH_MAX_DISTANCE"),
		FanartSearchDepth: viper.GetInt("FANART_SEARCH_DEPTH"),
		TorrentHosts:      splitList(viper.GetString("TORRENT_HOSTS")),
		SubsPleaseBaseURL: strings.TrimRight(strings.TrimSpace(viper.GetString("SUBSPLEASE_BASE_URL")), "/"),

		// Cache
		CacheBackend: strings.ToLower(viper.GetString("CACHE_BACKEND")),
		CacheTTL:     viper.GetDuration("CACHE_TTL"),
		RedisURL:     viper.GetString("REDIS_URL"),

		// Server
		ServerPort:     viper.GetString("SERVER_PORT"),
		RedirectStatus: viper.GetInt("REDIRECT_STATUS"),

		// Logging
		LogLevel:  viper.GetString("LOG_LEVEL"),
		LogFormat: viper.GetString("LOG_FORMAT"),
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func setDefaults() {
	viper.SetDefault("TVDB_BASE_URL", "https://api4.thetvdb.com/v4")
	viper.SetDefault("TVDB_TIMEOUT", 10*time.Second)
	viper.SetDefault("TVDB_RETRY_BACKOFF", 500*time.Millisecond)
	viper.SetDefault("TVDB_TOKEN_TTL", time.Hour)
	viper.SetDefault("TOKEN_REFRESH_SCHEDULE", "*/15 * * * *")
	viper.SetDefault("TOKEN_REFRESH_LEAD", 20*time.Minute)
	viper.SetDefault("DEFAULT_LANGUAGE", "eng")
	viper.SetDefault("MATCH_MAX_DISTANCE", 0)
	viper.SetDefault("FANART_SEARCH_DEPTH", 5)
	viper.SetDefault("TORRENT_HOSTS", "nyaa.si,sukebei.nyaa.si")
	viper.SetDefault("SUBSPLEASE_BASE_URL", "https://subsplease.org")
	viper.SetDefault("CACHE_BACKEND", CacheMemory)
	viper.SetDefault("CACHE_TTL", 72*time.Hour)
	viper.SetDefault("SERVER_PORT", "3000")
	viper.SetDefault("REDIRECT_STATUS", 307)
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("LOG_FORMAT", "text")
}

// Validate checks required fields and value ranges
func (c *Config) Validate() error {
	if c.TVDBAPIKey == "" {
		return fmt.Errorf("TVDB_API_KEY is required")
	}
	if _, err := url.ParseRequestURI(c.TVDBBaseURL); err != nil {
		return fmt.Errorf("TVDB_BASE_URL is invalid: %w", err)
	}
	if c.TVDBTimeout <= 0 {
		return fmt.Errorf("TVDB_TIMEOUT must be positive")
	}
	if c.TVDBTokenTTL <= 0 {
		return fmt.Errorf("TVDB_TOKEN_TTL must be positive")
	}
	if c.MatchMaxDistance < 0 {
		return fmt.Errorf("MATCH_MAX_DISTANCE must not be negative")
	}
	if c.FanartSearchDepth < 1 {
		return fmt.Errorf("FANART_SEARCH_DEPTH must be at least 1")
	}
	if c.SubsPleaseBaseURL != "" {
		if u, err := url.ParseRequestURI(c.SubsPleaseBaseURL); err != nil || u.Host == "" {
			return fmt.Errorf("SUBSPLEASE_BASE_URL is invalid: %q", c.SubsPleaseBaseURL)
		}
	}

	switch c.CacheBackend {
	case CacheMemory, CacheNone:
	case CacheRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("REDIS_URL is required when CACHE_BACKEND=redis")
		}
	default:
		return fmt.Errorf("CACHE_BACKEND must be one of memory, redis, none (got %q)", c.CacheBackend)
	}

	if c.RedirectStatus != 302 && c.RedirectStatus != 307 {
		return fmt.Errorf("REDIRECT_STATUS must be 302 or 307 (got %d)", c.RedirectStatus)
	}

	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, strings.ToLower(part))
		}
	}
	return out
}
