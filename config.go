package ogimage

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/labstack/gommon/log"
	"go.yaml.in/yaml/v3"

	"github.com/eringen/ogimage/thumbnail"
)

// SiteConfig holds all configuration for an ogimage site.
type SiteConfig struct {
	Name        string `yaml:"name"`        // Site name (default "Blog")
	URL         string `yaml:"url"`         // Canonical URL (default "http://localhost:3000")
	Description string `yaml:"description"` // Site description for RSS and meta tags
	Author      string `yaml:"author"`      // Author name for JSON-LD

	Addr         string `yaml:"addr"`          // Listen address (default ":3000")
	DatabasePath string `yaml:"database_path"` // SQLite path (default "data/blog.db")
	StaticDir    string `yaml:"static_dir"`    // User static assets and uploads (default "public")

	// DefaultImage seeds the default_image setting on first start. After that
	// the settings table is authoritative.
	DefaultImage string `yaml:"default_image"`

	AdminPassword string `yaml:"admin_password"` // Required: admin login password
	SessionSecret string `yaml:"session_secret"` // Required: session encryption secret
	CookieSecure  bool   `yaml:"cookie_secure"`  // Set true for HTTPS

	PostCacheTTL time.Duration `yaml:"post_cache_ttl"` // Post cache TTL (default 5min)
	LogLevel     string        `yaml:"log_level"`      // debug, info, warn, error (default "info")
	Version      string        `yaml:"-"`              // Shown in the og:image comment
}

func (c *SiteConfig) setDefaults() {
	if c.Name == "" {
		c.Name = "Blog"
	}
	if c.URL == "" {
		c.URL = "http://localhost:3000"
	}
	if c.Addr == "" {
		c.Addr = ":3000"
	}
	if c.DatabasePath == "" {
		c.DatabasePath = "data/blog.db"
	}
	if c.StaticDir == "" {
		c.StaticDir = "public"
	}
	if c.PostCacheTTL == 0 {
		c.PostCacheTTL = 5 * time.Minute
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Version == "" {
		c.Version = "dev"
	}
}

// LoadConfig reads a YAML config file. Environment variables OGIMAGE_*
// override file values.
func LoadConfig(path string) (SiteConfig, error) {
	var cfg SiteConfig
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("ogimage: read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("ogimage: parse config %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *SiteConfig) applyEnv() {
	c.Name = EnvOr("OGIMAGE_SITE_NAME", c.Name)
	c.URL = EnvOr("OGIMAGE_SITE_URL", c.URL)
	c.Description = EnvOr("OGIMAGE_SITE_DESCRIPTION", c.Description)
	c.Author = EnvOr("OGIMAGE_SITE_AUTHOR", c.Author)
	c.Addr = EnvOr("OGIMAGE_ADDR", c.Addr)
	c.DatabasePath = EnvOr("OGIMAGE_DATABASE_PATH", c.DatabasePath)
	c.StaticDir = EnvOr("OGIMAGE_STATIC_DIR", c.StaticDir)
	c.DefaultImage = EnvOr("OGIMAGE_DEFAULT_IMAGE", c.DefaultImage)
	c.AdminPassword = EnvOr("OGIMAGE_ADMIN_PASSWORD", c.AdminPassword)
	c.SessionSecret = EnvOr("OGIMAGE_SESSION_SECRET", c.SessionSecret)
	c.LogLevel = EnvOr("OGIMAGE_LOG_LEVEL", c.LogLevel)
	if v := os.Getenv("OGIMAGE_COOKIE_SECURE"); v != "" {
		c.CookieSecure = v == "1" || strings.EqualFold(v, "true")
	}
}

func parseLogLevel(s string) log.Lvl {
	switch strings.ToLower(s) {
	case "debug":
		return log.DEBUG
	case "warn", "warning":
		return log.WARN
	case "error":
		return log.ERROR
	case "off":
		return log.OFF
	default:
		return log.INFO
	}
}

// Option configures additional App behavior.
type Option func(*App)

// WithCustomRoutes registers additional routes on the Echo instance.
// The callback receives the Echo instance before the server starts.
func WithCustomRoutes(fn func(*App)) Option {
	return func(a *App) {
		a.customRoutes = append(a.customRoutes, fn)
	}
}

// WithOverride installs a function that may pick the og:image before the
// built-in rules run.
func WithOverride(fn thumbnail.OverrideFunc) Option {
	return func(a *App) {
		a.override = fn
	}
}

// WithExclude replaces the policy deciding which pages skip image resolution.
func WithExclude(fn thumbnail.ExcludeFunc) Option {
	return func(a *App) {
		a.exclude = fn
	}
}
