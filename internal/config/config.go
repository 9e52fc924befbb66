package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	DefaultPath     = "eventcal.yaml"
	EnvPrefix       = "EVENTCAL"
	defaultListen   = "127.0.0.1:8080"
	defaultTimezone = "UTC"
	defaultLifetime = "24h"
	defaultCron     = "*/15 * * * *"
)

type DatabaseConfig struct {
	// Driver is "sqlite" or "postgres".
	Driver string `yaml:"driver" mapstructure:"driver"`
	DSN    string `yaml:"dsn" mapstructure:"dsn"`
}

type AuthConfig struct {
	Secret        string `yaml:"secret" mapstructure:"secret"`
	NonceLifetime string `yaml:"nonce_lifetime" mapstructure:"nonce_lifetime"`
	AdminUser     string `yaml:"admin_user" mapstructure:"admin_user"`
	AdminPassword string `yaml:"admin_password" mapstructure:"admin_password"`
	// FeedToken guards /calendar.ics. The feed is disabled while it is empty.
	FeedToken string `yaml:"feed_token" mapstructure:"feed_token"`
}

type CalendarConfig struct {
	// DefaultBound is "start" or "now": the anchor of the one-year horizon of
	// recurring events without an end date.
	DefaultBound   string `yaml:"default_bound" mapstructure:"default_bound"`
	FilterToWindow bool   `yaml:"filter_to_window" mapstructure:"filter_to_window"`
}

type ExportConfig struct {
	Cron string `yaml:"cron" mapstructure:"cron"`
	// Path of the ICS snapshot. Export is disabled while it is empty.
	Path string `yaml:"path" mapstructure:"path"`
}

type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

type SiteConfig struct {
	Name    string `yaml:"name" mapstructure:"name"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

type Config struct {
	Listen   string         `yaml:"listen" mapstructure:"listen"`
	Timezone string         `yaml:"timezone" mapstructure:"timezone"`
	Database DatabaseConfig `yaml:"database" mapstructure:"database"`
	Auth     AuthConfig     `yaml:"auth" mapstructure:"auth"`
	Calendar CalendarConfig `yaml:"calendar" mapstructure:"calendar"`
	Export   ExportConfig   `yaml:"export" mapstructure:"export"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
	Site     SiteConfig     `yaml:"site" mapstructure:"site"`
}

func Default() *Config {
	return &Config{
		Listen:   defaultListen,
		Timezone: defaultTimezone,
		Database: DatabaseConfig{Driver: "sqlite", DSN: "eventcal.db"},
		Auth: AuthConfig{
			NonceLifetime: defaultLifetime,
			AdminUser:     "admin",
		},
		Calendar: CalendarConfig{DefaultBound: "start"},
		Export:   ExportConfig{Cron: defaultCron},
		Log:      LogConfig{Level: "info", Format: "text"},
		Site:     SiteConfig{Name: "Events"},
	}
}

// Normalize fills in missing values and coerces unknown enum values so that
// partially filled files still behave.
func (c *Config) Normalize() {
	if strings.TrimSpace(c.Listen) == "" {
		c.Listen = defaultListen
	}
	if strings.TrimSpace(c.Timezone) == "" {
		c.Timezone = defaultTimezone
	}

	c.Database.Driver = strings.ToLower(strings.TrimSpace(c.Database.Driver))
	switch c.Database.Driver {
	case "postgres", "sqlite":
	case "postgresql", "pgx":
		c.Database.Driver = "postgres"
	default:
		c.Database.Driver = "sqlite"
	}

	if d, err := time.ParseDuration(c.Auth.NonceLifetime); err != nil || d < time.Minute {
		c.Auth.NonceLifetime = defaultLifetime
	}

	switch strings.ToLower(strings.TrimSpace(c.Calendar.DefaultBound)) {
	case "now":
		c.Calendar.DefaultBound = "now"
	default:
		c.Calendar.DefaultBound = "start"
	}

	if strings.TrimSpace(c.Export.Cron) == "" {
		c.Export.Cron = defaultCron
	}

	c.Log.Level = strings.ToLower(strings.TrimSpace(c.Log.Level))
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		c.Log.Level = "info"
	}
	c.Log.Format = strings.ToLower(strings.TrimSpace(c.Log.Format))
	if c.Log.Format != "json" {
		c.Log.Format = "text"
	}

	if strings.TrimSpace(c.Site.Name) == "" {
		c.Site.Name = "Events"
	}
	c.Site.BaseURL = strings.TrimRight(strings.TrimSpace(c.Site.BaseURL), "/")
}

// NonceLifetime returns the parsed nonce lifetime. Call after Normalize.
func (c *Config) NonceLifetime() time.Duration {
	d, err := time.ParseDuration(c.Auth.NonceLifetime)
	if err != nil {
		return 24 * time.Hour
	}
	return d
}

// Location resolves Timezone, falling back to UTC.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		slog.Warn("failed to load timezone; falling back to UTC", "timezone", c.Timezone, "error", err)
		return time.UTC
	}
	return loc
}

// Load reads the YAML file at path, creating it with defaults and a fresh
// auth secret on first run. Values from .env and the environment
// (EVENTCAL_LISTEN, EVENTCAL_DATABASE_DSN, DATABASE_URI, ...) override the file.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	if err := godotenv.Load(); err != nil {
		// .env file is optional in production
	}

	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		cfg := Default()
		cfg.Auth.Secret = randomSecret()
		if err := Save(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to write default config: %w", err)
		}
		slog.Info("wrote default config", "path", path)
	} else if err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	setDefaults(v, Default())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("database.dsn", EnvPrefix+"_DATABASE_DSN", "DATABASE_URI")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config %s: %w", path, err)
	}
	cfg.Normalize()
	return &cfg, nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("listen", d.Listen)
	v.SetDefault("timezone", d.Timezone)
	v.SetDefault("database.driver", d.Database.Driver)
	v.SetDefault("database.dsn", d.Database.DSN)
	v.SetDefault("auth.secret", d.Auth.Secret)
	v.SetDefault("auth.nonce_lifetime", d.Auth.NonceLifetime)
	v.SetDefault("auth.admin_user", d.Auth.AdminUser)
	v.SetDefault("auth.admin_password", d.Auth.AdminPassword)
	v.SetDefault("auth.feed_token", d.Auth.FeedToken)
	v.SetDefault("calendar.default_bound", d.Calendar.DefaultBound)
	v.SetDefault("calendar.filter_to_window", d.Calendar.FilterToWindow)
	v.SetDefault("export.cron", d.Export.Cron)
	v.SetDefault("export.path", d.Export.Path)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("site.name", d.Site.Name)
	v.SetDefault("site.base_url", d.Site.BaseURL)
}

// Save writes cfg as YAML with 0600 permissions via a temp file and rename.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}
	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".eventcal-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

func randomSecret() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return ""
	}
	return hex.EncodeToString(b)
}
