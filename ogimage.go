// Package ogimage is a small publishing engine built with Go, Echo, and templ
// whose pages advertise a representative image to social networks.
//
// Every public page builds an explicit thumbnail.PageContext, resolves it once
// through the thumbnail chain (override, listing thumbnails, featured image,
// first attachment, attachment itself, configured default), and renders the
// result as an og:image tag. Users provide their own templ templates via the
// ViewFuncs struct; ogimage handles handlers, middleware, and storage.
package ogimage

import (
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"

	"github.com/eringen/ogimage/thumbnail"
)

// Head is the per-request metadata public templates render into <head>.
type Head struct {
	Meta   PageMeta
	Image  thumbnail.Result
	OGTag  templ.Component
	JSONLD string
}

// ViewFuncs holds user-provided templ components that the framework calls
// when rendering pages.
type ViewFuncs struct {
	Home             func(posts []BlogPost, activeTag string, tags []string, head Head) templ.Component
	Post             func(post BlogPost, related []BlogPost, attachments []Image, head Head) templ.Component
	Attachment       func(img Image, parent *BlogPost, head Head) templ.Component
	Page             func(slug string, head Head) templ.Component
	AdminLogin       func(showError bool, csrfToken string) templ.Component
	AdminDashboard   func(posts []BlogPost, message string, csrfToken string) templ.Component
	AdminFormPartial func(post BlogPost, attachments []Image, csrfToken string) templ.Component
	AdminImages      func(images []Image, posts []BlogPost, csrfToken string) templ.Component
	NotFound         func() templ.Component
	ServerError      func() templ.Component
}

// App wires together the store, cache, thumbnail resolver, handlers,
// middleware, and user-provided templates.
type App struct {
	Config   SiteConfig
	Echo     *echo.Echo
	Store    *Store
	Cache    *PostCache
	Resolver *thumbnail.Resolver
	Views    ViewFuncs

	loginLimiter *LoginLimiter
	metrics      *appMetrics
	override     thumbnail.OverrideFunc
	exclude      thumbnail.ExcludeFunc
	customRoutes []func(*App)
	initialized  bool
}

// New creates a new App with the given configuration and view functions.
func New(cfg SiteConfig, views ViewFuncs, opts ...Option) *App {
	cfg.setDefaults()

	a := &App{
		Config:  cfg,
		Echo:    echo.New(),
		Views:   views,
		metrics: newAppMetrics(),
	}
	a.Echo.HideBanner = true
	a.Echo.Logger.SetLevel(parseLogLevel(cfg.LogLevel))

	for _, opt := range opts {
		opt(a)
	}

	return a
}

// Init opens the database, loads the og:image configuration, and registers
// middleware and routes. Start calls it; tests and embedders may call it
// directly to serve a.Echo without listening.
func (a *App) Init() error {
	if a.initialized {
		return nil
	}
	if a.Config.AdminPassword == "" {
		return fmt.Errorf("ogimage: AdminPassword is required")
	}
	if a.Config.SessionSecret == "" {
		return fmt.Errorf("ogimage: SessionSecret is required")
	}

	store, err := NewStore(a.Config.DatabasePath)
	if err != nil {
		return fmt.Errorf("ogimage: init store: %w", err)
	}
	a.Store = store
	a.Cache = NewPostCache(a.Store, a.Config.PostCacheTTL)

	imageCfg, err := a.loadImageConfig()
	if err != nil {
		return err
	}
	a.Resolver = thumbnail.New(&contentRepository{
		store:   a.Store,
		cache:   a.Cache,
		siteURL: a.Config.URL,
		logger:  a.Echo.Logger,
	}, imageCfg, a.override)
	a.Echo.Logger.Infof("og:image default %s", imageCfg.DefaultImageURL)

	a.loginLimiter = NewLoginLimiter(5, time.Minute)

	a.setupMiddleware()
	a.setupRoutes()
	for _, fn := range a.customRoutes {
		fn(a)
	}
	a.initialized = true
	return nil
}

// Start initializes the app and starts the server.
func (a *App) Start() error {
	if err := a.Init(); err != nil {
		return err
	}
	if err := a.Echo.Start(a.Config.Addr); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// loadImageConfig reads the default image from the settings table once,
// seeding it from SiteConfig.DefaultImage on first run.
func (a *App) loadImageConfig() (thumbnail.Config, error) {
	def, err := a.Store.GetSetting(SettingDefaultImage)
	if err != nil {
		return thumbnail.Config{}, fmt.Errorf("ogimage: read default image: %w", err)
	}
	def = strings.TrimSpace(def)
	if seed := strings.TrimSpace(a.Config.DefaultImage); def == "" && seed != "" {
		def = seed
		if err := a.Store.SetSetting(SettingDefaultImage, def); err != nil {
			return thumbnail.Config{}, fmt.Errorf("ogimage: seed default image: %w", err)
		}
	}
	cfg := thumbnail.Config{DefaultImageURL: def, Exclude: a.exclude}
	if err := cfg.Validate(); err != nil {
		return thumbnail.Config{}, fmt.Errorf("ogimage: %w", err)
	}
	cfg.DefaultImageURL = absoluteURL(a.Config.URL, def)
	return cfg, nil
}

// absoluteURL resolves root-relative ref against the site URL. Social
// crawlers ignore relative og:image values.
func absoluteURL(base, ref string) string {
	if !strings.HasPrefix(ref, "/") {
		return ref
	}
	b, err := url.Parse(base)
	if err != nil {
		return ref
	}
	r, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return b.ResolveReference(r).String()
}

func (a *App) setupRoutes() {
	e := a.Echo
	staticDir := a.Config.StaticDir

	e.Static("/public", staticDir)
	e.GET("/favicon.svg", a.handleFavicon)
	e.GET("/robots.txt", a.handleRobots)
	e.GET(metricsPath, a.metrics.handler())

	// Public routes
	e.GET("/sitemap.xml", a.handleSitemap)
	e.GET("/feed.xml", a.handleFeed)
	e.GET("/blog", handleBlogRedirect)
	e.GET("/", a.handleHome)
	e.GET("/tag/:tag/", a.handleTag)
	e.GET("/blog/:slug/", a.handlePost)
	e.GET("/attachment/:filename/", a.handleAttachment)
	e.GET("/page/:slug/", a.handlePage)

	// Admin routes
	e.GET("/admin/", a.handleAdmin)
	e.POST("/admin/login/", a.handleAdminLogin)
	e.POST("/admin/logout/", handleAdminLogout)
	admin := e.Group("/admin", requireAdmin)
	admin.GET("/post/:slug/", a.handleAdminPost)
	admin.POST("/save/", a.handleAdminSave)
	admin.DELETE("/post/:slug/", a.handleAdminDelete)
	admin.POST("/post/:slug/featured/", a.handleAdminFeatured)
	admin.GET("/images/", a.handleImageList)
	admin.POST("/images/upload/", a.handleImageUpload)
	admin.DELETE("/images/:filename/", a.handleImageDelete)
}

// Close cleans up resources. Call this when the app is shutting down.
func (a *App) Close() error {
	if a.loginLimiter != nil {
		a.loginLimiter.Stop()
	}
	if a.Store != nil {
		return a.Store.Close()
	}
	return nil
}

// EnvOr returns the value of the environment variable key, or fallback if empty.
func EnvOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// MustEnv returns the value of the environment variable key, or fatally exits if empty.
func MustEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		log.Fatalf("ogimage: required environment variable %s is not set", key)
	}
	return v
}
