package ogimage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/labstack/gommon/log"
)

func TestLoadConfigYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ogimage.yaml")
	data := `name: My Site
url: https://blog.example.com
default_image: /public/og-default.jpg
admin_password: hunter2
session_secret: abc
post_cache_ttl: 30s
log_level: debug
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("OGIMAGE_ADMIN_PASSWORD", "from-env")
	t.Setenv("OGIMAGE_COOKIE_SECURE", "true")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Name != "My Site" {
		t.Errorf("Name = %q, want %q", cfg.Name, "My Site")
	}
	if cfg.DefaultImage != "/public/og-default.jpg" {
		t.Errorf("DefaultImage = %q", cfg.DefaultImage)
	}
	if cfg.AdminPassword != "from-env" {
		t.Errorf("AdminPassword = %q, env should override file", cfg.AdminPassword)
	}
	if !cfg.CookieSecure {
		t.Error("CookieSecure should be set from env")
	}
	if cfg.PostCacheTTL != 30*time.Second {
		t.Errorf("PostCacheTTL = %v, want 30s", cfg.PostCacheTTL)
	}
}

func TestLoadConfigErrors(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("LoadConfig should fail for a missing file")
	}

	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("name: [unterminated"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Error("LoadConfig should fail for invalid YAML")
	}
}

func TestSetDefaults(t *testing.T) {
	var cfg SiteConfig
	cfg.setDefaults()
	if cfg.URL != "http://localhost:3000" || cfg.StaticDir != "public" || cfg.Version != "dev" {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if cfg.PostCacheTTL != 5*time.Minute {
		t.Errorf("PostCacheTTL = %v, want 5m", cfg.PostCacheTTL)
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := map[string]log.Lvl{
		"debug":   log.DEBUG,
		"WARN":    log.WARN,
		"warning": log.WARN,
		"error":   log.ERROR,
		"off":     log.OFF,
		"":        log.INFO,
		"verbose": log.INFO,
	}
	for in, want := range tests {
		if got := parseLogLevel(in); got != want {
			t.Errorf("parseLogLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestAbsoluteURL(t *testing.T) {
	tests := []struct {
		base, ref, want string
	}{
		{"https://example.com", "/public/a.jpg", "https://example.com/public/a.jpg"},
		{"https://example.com/blog/", "/public/a.jpg", "https://example.com/public/a.jpg"},
		{"https://example.com", "https://cdn.example.com/a.jpg", "https://cdn.example.com/a.jpg"},
	}
	for _, tt := range tests {
		if got := absoluteURL(tt.base, tt.ref); got != tt.want {
			t.Errorf("absoluteURL(%q, %q) = %q, want %q", tt.base, tt.ref, got, tt.want)
		}
	}
}

func TestUploadURL(t *testing.T) {
	tests := []struct {
		base, file, want string
	}{
		{"https://example.com", "a.jpg", "https://example.com/public/uploads/a.jpg"},
		{"https://example.com/", "a.jpg", "https://example.com/public/uploads/a.jpg"},
		{"https://example.com/sub", "a b.jpg", "https://example.com/sub/public/uploads/a%20b.jpg"},
	}
	for _, tt := range tests {
		if got := UploadURL(tt.base, tt.file); got != tt.want {
			t.Errorf("UploadURL(%q, %q) = %q, want %q", tt.base, tt.file, got, tt.want)
		}
	}
}

func TestFilterRelatedPosts(t *testing.T) {
	current := BlogPost{Slug: "a", Tags: []string{"go"}}
	posts := []BlogPost{
		current,
		{Slug: "b", Tags: []string{"Go", "web"}},
		{Slug: "c", Tags: []string{"rust"}},
	}
	related := FilterRelatedPosts(current, posts)
	if len(related) != 1 || related[0].Slug != "b" {
		t.Errorf("FilterRelatedPosts = %+v, want [b]", related)
	}
}
