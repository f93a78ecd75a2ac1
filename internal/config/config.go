// Package config provides application configuration management using Viper.
// It supports loading from environment variables, config files, and defaults.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server       ServerConfig
	Database     DatabaseConfig
	Redis        RedisConfig
	OpenAI       OpenAIConfig
	GooglePlaces GooglePlacesConfig
	FUB          FUBConfig
	Retell       RetellConfig
	SendGrid     SendGridConfig
	Contact      ContactConfig
	Demo         DemoConfig
	Log          LogConfig
	RateLimit    RateLimitConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string
	Port            int
	Environment     string
	ShutdownTimeout time.Duration
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DatabaseConfig holds the Supabase (PostgreSQL) connection settings.
// Either URL or the individual parts may be set; when neither carries a
// password the database is treated as unconfigured.
type DatabaseConfig struct {
	URL                   string
	Host                  string
	Port                  int
	User                  string
	Password              string
	Name                  string
	SSLMode               string
	MaxConnections        int
	ConnectionMaxLifetime time.Duration
}

// Enabled reports whether enough settings exist to open a pool.
func (d *DatabaseConfig) Enabled() bool {
	return d.URL != "" || d.Password != ""
}

// ConnectionString returns a PostgreSQL connection string.
func (d *DatabaseConfig) ConnectionString() string {
	if d.URL != "" {
		return d.URL
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// RedisConfig holds the session store settings. An empty Addr selects the
// in-memory store.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// OpenAIConfig holds LLM completion settings for the SMS lead chat.
type OpenAIConfig struct {
	APIKey  string
	Model   string
	BaseURL string

	// Completion budget; calls over it get the canned reply.
	MaxPerMinute  int
	MaxPerHour    int
	MaxPerDay     int
	MaxConcurrent int
}

// GooglePlacesConfig holds business-profile lookup settings.
type GooglePlacesConfig struct {
	APIKey string
}

// FUBConfig holds Follow Up Boss CRM settings.
type FUBConfig struct {
	APIBaseURL string
	APIKey     string
	Timeout    time.Duration
}

// RetellConfig holds Retell voice AI settings.
type RetellConfig struct {
	APIKey             string
	MasterAgentID      string
	MasterAgentVersion int
	WebhookSecret      string
	APIURL             string
}

// SendGridConfig holds contact notification email settings.
type SendGridConfig struct {
	APIKey    string
	FromEmail string
	FromName  string
}

// ContactConfig holds contact-form delivery settings.
type ContactConfig struct {
	RecipientEmail string
	CSVPath        string
}

// DemoConfig holds conversation demo settings.
type DemoConfig struct {
	TypingDelay time.Duration
	SessionTTL  time.Duration
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string
	Format string
}

// RateLimitConfig holds rate limiting settings.
type RateLimitConfig struct {
	Requests int
	Window   time.Duration
}

// Load reads configuration from .env files, environment variables and
// config files. Environment variables take precedence over config file values.
func Load() (*Config, error) {
	// .env.local wins over .env; neither overrides the real environment.
	_ = godotenv.Load(".env.local")
	_ = godotenv.Load()

	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/posentia")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var configNotFoundErr viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFoundErr) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	cfg := fromViper(v)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func fromViper(v *viper.Viper) *Config {
	return &Config{
		Server: ServerConfig{
			Host:            v.GetString("server.host"),
			Port:            v.GetInt("server.port"),
			Environment:     v.GetString("server.env"),
			ShutdownTimeout: v.GetDuration("server.shutdown_timeout"),
		},
		Database: DatabaseConfig{
			URL:                   v.GetString("database.url"),
			Host:                  v.GetString("database.host"),
			Port:                  v.GetInt("database.port"),
			User:                  v.GetString("database.user"),
			Password:              v.GetString("database.password"),
			Name:                  v.GetString("database.name"),
			SSLMode:               v.GetString("database.sslmode"),
			MaxConnections:        v.GetInt("database.max_connections"),
			ConnectionMaxLifetime: v.GetDuration("database.connection_max_lifetime"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("redis.addr"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		OpenAI: OpenAIConfig{
			APIKey:  v.GetString("openai.api_key"),
			Model:   v.GetString("openai.model"),
			BaseURL: v.GetString("openai.base_url"),

			MaxPerMinute:  v.GetInt("openai.max_per_minute"),
			MaxPerHour:    v.GetInt("openai.max_per_hour"),
			MaxPerDay:     v.GetInt("openai.max_per_day"),
			MaxConcurrent: v.GetInt("openai.max_concurrent"),
		},
		GooglePlaces: GooglePlacesConfig{
			APIKey: v.GetString("google_places.api_key"),
		},
		FUB: FUBConfig{
			APIBaseURL: v.GetString("fub.api_base_url"),
			APIKey:     v.GetString("fub.api_key"),
			Timeout:    v.GetDuration("fub.timeout"),
		},
		Retell: RetellConfig{
			APIKey:             v.GetString("retell.api_key"),
			MasterAgentID:      v.GetString("retell.master_agent_id"),
			MasterAgentVersion: v.GetInt("retell.master_agent_version"),
			WebhookSecret:      v.GetString("retell.webhook_secret"),
			APIURL:             v.GetString("retell.api_url"),
		},
		SendGrid: SendGridConfig{
			APIKey:    v.GetString("sendgrid.api_key"),
			FromEmail: v.GetString("sendgrid.from_email"),
			FromName:  v.GetString("sendgrid.from_name"),
		},
		Contact: ContactConfig{
			RecipientEmail: v.GetString("contact.recipient_email"),
			CSVPath:        v.GetString("contact.csv_path"),
		},
		Demo: DemoConfig{
			TypingDelay: v.GetDuration("demo.typing_delay"),
			SessionTTL:  v.GetDuration("demo.session_ttl"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
		},
		RateLimit: RateLimitConfig{
			Requests: v.GetInt("rate_limit.requests"),
			Window:   v.GetDuration("rate_limit.window"),
		},
	}
}

// setDefaults configures default values for all settings.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.env", "development")
	v.SetDefault("server.shutdown_timeout", "30s")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.name", "postgres")
	v.SetDefault("database.sslmode", "require")
	v.SetDefault("database.max_connections", 10)
	v.SetDefault("database.connection_max_lifetime", "5m")

	v.SetDefault("redis.db", 0)

	v.SetDefault("openai.model", "gpt-4o-mini")
	v.SetDefault("openai.max_per_minute", 20)
	v.SetDefault("openai.max_per_hour", 300)
	v.SetDefault("openai.max_per_day", 2000)
	v.SetDefault("openai.max_concurrent", 5)

	v.SetDefault("fub.api_base_url", "https://api.followupboss.com/v1/")
	v.SetDefault("fub.timeout", "10s")

	v.SetDefault("retell.api_url", "https://api.retellai.com")
	v.SetDefault("retell.master_agent_version", 0)

	v.SetDefault("sendgrid.from_email", "noreply@posentia.com")
	v.SetDefault("sendgrid.from_name", "Posentia")

	v.SetDefault("contact.csv_path", "data/QUESTIONS.CSV")

	v.SetDefault("demo.typing_delay", "1s")
	v.SetDefault("demo.session_ttl", "24h")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("rate_limit.requests", 100)
	v.SetDefault("rate_limit.window", "1m")
}

// Validate checks configuration values for obvious mistakes. Upstream
// credentials are all optional: a missing key puts that collaborator in
// sandbox mode instead of failing startup.
func (c *Config) Validate() error {
	var invalid []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		invalid = append(invalid, fmt.Sprintf("SERVER_PORT (%d)", c.Server.Port))
	}

	if c.Database.URL != "" {
		u, err := url.Parse(c.Database.URL)
		if err != nil || (u.Scheme != "postgres" && u.Scheme != "postgresql") {
			invalid = append(invalid, "DATABASE_URL (expected postgres:// URL)")
		}
	}

	if c.FUB.APIBaseURL != "" && !isHTTPURL(c.FUB.APIBaseURL) {
		invalid = append(invalid, "FUB_API_BASE_URL")
	}
	if c.Retell.APIURL != "" && !isHTTPURL(c.Retell.APIURL) {
		invalid = append(invalid, "RETELL_API_URL")
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error", "fatal", "":
	default:
		invalid = append(invalid, fmt.Sprintf("LOG_LEVEL (%q)", c.Log.Level))
	}

	if c.Demo.TypingDelay < 0 {
		invalid = append(invalid, "DEMO_TYPING_DELAY (negative)")
	}

	if len(invalid) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(invalid, ", "))
	}

	return nil
}

func isHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Server.Environment == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

// Enabled reports whether real web calls can be created.
func (c *RetellConfig) Enabled() bool {
	return c.APIKey != "" && c.MasterAgentID != ""
}
