// Package config provides configuration loading for newsd.
//
// Configuration is read from an optional YAML file and overridden by environment
// variables. Every section has defaults, so an empty environment yields a
// server that runs against the in-memory store.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Config holds the complete newsd configuration.
type Config struct {
	Server        ServerConfig        `koanf:"server"`
	Observability ObservabilityConfig `koanf:"observability"`
	NewsAPI       NewsAPIConfig       `koanf:"newsapi"`
	Auth          AuthConfig          `koanf:"auth"`
	Store         StoreConfig         `koanf:"store"`
	Cache         CacheConfig         `koanf:"cache"`
	Events        EventsConfig        `koanf:"events"`
	Social        SocialConfig        `koanf:"social"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string   `koanf:"http_host"`
	Port            int      `koanf:"http_port"`
	ShutdownTimeout Duration `koanf:"shutdown_timeout"`
	// AuthRateLimit is the per-client request rate (req/s) for /api/auth routes.
	AuthRateLimit float64 `koanf:"auth_rate_limit"`
}

// ObservabilityConfig holds OpenTelemetry configuration.
type ObservabilityConfig struct {
	EnableTelemetry bool   `koanf:"enable_telemetry"`
	ServiceName     string `koanf:"service_name"`
	Endpoint        string `koanf:"endpoint"`
	LogLevel        string `koanf:"log_level"`
	LogFormat       string `koanf:"log_format"`
}

// NewsAPIConfig configures the third-party news provider client.
type NewsAPIConfig struct {
	APIKey    Secret   `koanf:"api_key"`
	BaseURL   string   `koanf:"base_url"`
	Timeout   Duration `koanf:"timeout"`
	RateLimit float64  `koanf:"rate_limit"` // requests per second
	Burst     int      `koanf:"burst"`
}

// AuthConfig configures token issuance.
type AuthConfig struct {
	JWTSecret  Secret   `koanf:"jwt_secret"`
	TokenTTL   Duration `koanf:"token_ttl"`
	BcryptCost int      `koanf:"bcrypt_cost"`
}

// StoreConfig selects and configures the persistence backend.
type StoreConfig struct {
	Driver   string `koanf:"driver"` // "mongo" or "memory"
	MongoURI Secret `koanf:"mongo_uri"`
	Database string `koanf:"database"`
}

// CacheConfig configures the provider response cache. An empty RedisURL
// disables caching.
type CacheConfig struct {
	RedisURL Secret   `koanf:"redis_url"`
	TTL      Duration `koanf:"ttl"`
}

// EventsConfig configures the domain event bus. An empty NATSURL disables
// event publishing.
type EventsConfig struct {
	NATSURL       string `koanf:"nats_url"`
	SubjectPrefix string `koanf:"subject_prefix"`
}

// SocialConfig configures social login token verification.
type SocialConfig struct {
	VerifyTokens        bool   `koanf:"verify_tokens"`
	GoogleUserInfoURL   string `koanf:"google_userinfo_url"`
	FacebookUserInfoURL string `koanf:"facebook_userinfo_url"`
}

const (
	defaultPort        = 3000
	defaultServiceName = "newsd"
	defaultNewsAPIURL  = "https://newsapi.org/v2"
	defaultTokenTTL    = 7 * 24 * time.Hour
	defaultBcryptCost  = 12
	defaultDatabase    = "newsapp"
)

// Validate validates the configuration.
//
// Returns an error if:
//   - Server port is not between 1 and 65535
//   - Shutdown timeout is not positive
//   - Service name is empty (when telemetry is enabled)
//   - The store driver is unknown, or mongo is selected without a URI
//   - The JWT secret is missing
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be 1-65535)", c.Server.Port)
	}

	if c.Server.ShutdownTimeout.Duration() <= 0 {
		return errors.New("shutdown timeout must be positive")
	}

	if c.Observability.EnableTelemetry && c.Observability.ServiceName == "" {
		return errors.New("service name required when telemetry is enabled")
	}

	switch c.Store.Driver {
	case "memory":
	case "mongo":
		if !c.Store.MongoURI.IsSet() {
			return errors.New("store.mongo_uri required when store.driver is mongo")
		}
	default:
		return fmt.Errorf("unknown store driver %q (must be mongo or memory)", c.Store.Driver)
	}

	if !c.Auth.JWTSecret.IsSet() {
		return errors.New("auth.jwt_secret is required")
	}
	if c.Auth.TokenTTL.Duration() <= 0 {
		return errors.New("auth.token_ttl must be positive")
	}

	if c.NewsAPI.Timeout.Duration() <= 0 {
		return errors.New("newsapi.timeout must be positive")
	}
	if c.NewsAPI.RateLimit <= 0 {
		return errors.New("newsapi.rate_limit must be positive")
	}

	if !strings.HasPrefix(c.NewsAPI.BaseURL, "http://") && !strings.HasPrefix(c.NewsAPI.BaseURL, "https://") {
		return fmt.Errorf("newsapi.base_url must be an http(s) URL, got %q", c.NewsAPI.BaseURL)
	}

	return nil
}

// applyDefaults sets default values for missing configuration fields.
func applyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = defaultPort
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = Duration(10 * time.Second)
	}
	if cfg.Server.AuthRateLimit == 0 {
		cfg.Server.AuthRateLimit = 5
	}

	if cfg.Observability.ServiceName == "" {
		cfg.Observability.ServiceName = defaultServiceName
	}
	if cfg.Observability.Endpoint == "" {
		cfg.Observability.Endpoint = "localhost:4317"
	}
	if cfg.Observability.LogLevel == "" {
		cfg.Observability.LogLevel = "info"
	}
	if cfg.Observability.LogFormat == "" {
		cfg.Observability.LogFormat = "json"
	}

	if cfg.NewsAPI.BaseURL == "" {
		cfg.NewsAPI.BaseURL = defaultNewsAPIURL
	}
	if cfg.NewsAPI.Timeout == 0 {
		cfg.NewsAPI.Timeout = Duration(10 * time.Second)
	}
	if cfg.NewsAPI.RateLimit == 0 {
		cfg.NewsAPI.RateLimit = 2
	}
	if cfg.NewsAPI.Burst == 0 {
		cfg.NewsAPI.Burst = 5
	}

	if cfg.Auth.TokenTTL == 0 {
		cfg.Auth.TokenTTL = Duration(defaultTokenTTL)
	}
	if cfg.Auth.BcryptCost == 0 {
		cfg.Auth.BcryptCost = defaultBcryptCost
	}

	if cfg.Store.Driver == "" {
		if cfg.Store.MongoURI.IsSet() {
			cfg.Store.Driver = "mongo"
		} else {
			cfg.Store.Driver = "memory"
		}
	}
	if cfg.Store.Database == "" {
		cfg.Store.Database = defaultDatabase
	}

	if cfg.Cache.TTL == 0 {
		cfg.Cache.TTL = Duration(5 * time.Minute)
	}

	if cfg.Events.SubjectPrefix == "" {
		cfg.Events.SubjectPrefix = "newsd"
	}

	if cfg.Social.GoogleUserInfoURL == "" {
		cfg.Social.GoogleUserInfoURL = "https://openidconnect.googleapis.com/v1/userinfo"
	}
	if cfg.Social.FacebookUserInfoURL == "" {
		cfg.Social.FacebookUserInfoURL = "https://graph.facebook.com/me?fields=id,name,email"
	}
}
