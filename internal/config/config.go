// Package config reads server settings from the environment. A .env file in
// the working directory is loaded first when present.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/dkhatri/portfolio/internal/theme"
)

type SMTP struct {
	Host string
	Port string
	User string
	Pass string
	To   string
}

// Configured reports whether credentials are present.
func (s SMTP) Configured() bool {
	return s.User != "" && s.Pass != ""
}

type Config struct {
	Port              string
	GinMode           string
	DBPath            string
	LogLevel          string
	ContentFile       string
	Variant           theme.Variant
	VisitorRetention  time.Duration
	AdminUsername     string
	AdminPassword     string
	AdminDefaultCreds bool
	SMTP              SMTP
}

// Load reads .env (if any) and then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	return FromLookup(os.LookupEnv)
}

// FromLookup builds a Config from an arbitrary lookup function.
func FromLookup(lookup func(string) (string, bool)) (*Config, error) {
	get := func(key, def string) string {
		if v, ok := lookup(key); ok && v != "" {
			return v
		}
		return def
	}

	cfg := &Config{
		Port:          get("PORT", "8080"),
		GinMode:       get("GIN_MODE", "debug"),
		DBPath:        get("DB_PATH", "portfolio.db"),
		LogLevel:      get("LOG_LEVEL", "info"),
		ContentFile:   get("CONTENT_FILE", ""),
		AdminUsername: get("ADMIN_USERNAME", ""),
		AdminPassword: get("ADMIN_PASSWORD", ""),
		SMTP: SMTP{
			Host: get("SMTP_HOST", "smtp.gmail.com"),
			Port: get("SMTP_PORT", "587"),
			User: get("SMTP_USER", ""),
			Pass: get("SMTP_PASS", ""),
			To:   get("TO_EMAIL", ""),
		},
	}

	// development defaults; the server warns about them at startup
	if cfg.AdminUsername == "" || cfg.AdminPassword == "" {
		cfg.AdminDefaultCreds = true
		if cfg.AdminUsername == "" {
			cfg.AdminUsername = "admin"
		}
		if cfg.AdminPassword == "" {
			cfg.AdminPassword = "admin123"
		}
	}
	if cfg.SMTP.To == "" {
		cfg.SMTP.To = cfg.SMTP.User
	}

	variant, err := theme.ParseVariant(get("THEME_VARIANT", ""))
	if err != nil {
		return nil, err
	}
	cfg.Variant = variant

	retention, err := time.ParseDuration(get("VISITOR_RETENTION", "8760h"))
	if err != nil {
		return nil, fmt.Errorf("parse VISITOR_RETENTION: %w", err)
	}
	cfg.VisitorRetention = retention

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	port, err := strconv.Atoi(c.Port)
	if err != nil || port <= 0 || port > 65535 {
		return fmt.Errorf("invalid PORT %q", c.Port)
	}
	if _, err := strconv.Atoi(c.SMTP.Port); err != nil {
		return fmt.Errorf("invalid SMTP_PORT %q", c.SMTP.Port)
	}
	switch c.GinMode {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("invalid GIN_MODE %q", c.GinMode)
	}
	if c.VisitorRetention <= 0 {
		return fmt.Errorf("VISITOR_RETENTION must be positive, got %s", c.VisitorRetention)
	}
	return nil
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return ":" + c.Port
}
