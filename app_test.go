package ogimage_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/eringen/ogimage"
	"github.com/eringen/ogimage/thumbnail"
	"github.com/eringen/ogimage/views"
)

const (
	siteURL      = "https://example.com"
	defaultImage = "https://example.com/public/default.jpg"
)

func testConfig(t *testing.T) ogimage.SiteConfig {
	t.Helper()
	dir := t.TempDir()
	return ogimage.SiteConfig{
		Name:          "Test Blog",
		URL:           siteURL,
		DatabasePath:  filepath.Join(dir, "blog.db"),
		StaticDir:     filepath.Join(dir, "public"),
		DefaultImage:  "/public/default.jpg",
		AdminPassword: "secret",
		SessionSecret: "0123456789abcdef0123456789abcdef",
		LogLevel:      "off",
		Version:       "1.0.0",
	}
}

func newTestApp(t *testing.T, cfg ogimage.SiteConfig, opts ...ogimage.Option) *ogimage.App {
	t.Helper()
	app := ogimage.New(cfg, views.Default(), opts...)
	t.Cleanup(func() { app.Close() })
	if err := app.Init(); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	return app
}

// seed stores three published posts and a few images:
//
//	older  featured older.jpg, attachments a1.jpg a2.jpg
//	newer  no featured image, attachment n1.jpg
//	bare   no images at all
func seed(t *testing.T, app *ogimage.App) {
	t.Helper()
	posts := []ogimage.BlogPost{
		{Slug: "older", Title: "Older", Date: "2024-01-01", Tags: []string{"go"}, Published: true, FeaturedImage: "older.jpg"},
		{Slug: "newer", Title: "Newer", Date: "2024-02-01", Tags: []string{"go"}, Published: true},
		{Slug: "bare", Title: "Bare", Date: "2023-12-01", Tags: []string{"misc"}, Published: true},
	}
	for _, p := range posts {
		if err := app.Store.SavePost(p); err != nil {
			t.Fatalf("SavePost(%s) failed: %v", p.Slug, err)
		}
	}
	images := []ogimage.Image{
		{Filename: "older.jpg", OriginalName: "older.png", UploadedAt: "2024-01-01T00:00:00Z"},
		{Filename: "a1.jpg", OriginalName: "a1.png", UploadedAt: "2024-01-01T00:00:01Z", PostSlug: "older"},
		{Filename: "a2.jpg", OriginalName: "a2.png", UploadedAt: "2024-01-01T00:00:02Z", PostSlug: "older"},
		{Filename: "n1.jpg", OriginalName: "n1.png", UploadedAt: "2024-02-01T00:00:00Z", PostSlug: "newer"},
	}
	for _, img := range images {
		if err := app.Store.SaveImage(img); err != nil {
			t.Fatalf("SaveImage(%s) failed: %v", img.Filename, err)
		}
	}
	app.Cache.Invalidate()
}

func get(t *testing.T, app *ogimage.App, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	app.Echo.ServeHTTP(rec, req)
	return rec
}

func ogTag(u string) string {
	return `<meta property="og:image" content="` + u + `" />`
}

func upload(name string) string {
	return siteURL + "/public/uploads/" + name
}

func TestPagesCarryResolvedImage(t *testing.T) {
	app := newTestApp(t, testConfig(t))
	seed(t, app)

	tests := []struct {
		name   string
		path   string
		image  string
		source string
	}{
		{"home listing", "/", upload("older.jpg"), "image from posts loop - listing page"},
		{"tag listing", "/tag/go/", upload("older.jpg"), "image from posts loop - listing page"},
		{"featured image", "/blog/older/", upload("older.jpg"), "featured thumbnail"},
		{"first attachment", "/blog/newer/", upload("n1.jpg"), "first attachment"},
		{"post without images", "/blog/bare/", defaultImage, "default fallback"},
		{"attachment page", "/attachment/a2.jpg/", upload("a2.jpg"), "attachment"},
		{"other page", "/page/about/", defaultImage, "default fallback"},
		{"excluded page", "/page/cart/", defaultImage, "default fallback"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := get(t, app, tt.path)
			if rec.Code != http.StatusOK {
				t.Fatalf("GET %s status = %d, want 200", tt.path, rec.Code)
			}
			body := rec.Body.String()
			if !strings.Contains(body, ogTag(tt.image)) {
				t.Errorf("GET %s missing %s in:\n%s", tt.path, ogTag(tt.image), body)
			}
			if !strings.Contains(body, "<!-- using "+tt.source+" -->") {
				t.Errorf("GET %s missing source comment %q", tt.path, tt.source)
			}
			if !strings.Contains(body, "<!-- ogimage (v1.0.0) -->") {
				t.Errorf("GET %s missing version comment", tt.path)
			}
			if n := strings.Count(body, `property="og:image"`); n != 1 {
				t.Errorf("GET %s has %d og:image tags, want 1", tt.path, n)
			}
		})
	}
}

func TestListingWithoutImagesUsesDefault(t *testing.T) {
	app := newTestApp(t, testConfig(t))
	if err := app.Store.SavePost(ogimage.BlogPost{Slug: "plain", Title: "Plain", Date: "2024-01-01", Published: true}); err != nil {
		t.Fatalf("SavePost failed: %v", err)
	}
	app.Cache.Invalidate()

	body := get(t, app, "/").Body.String()
	if !strings.Contains(body, ogTag(defaultImage)) {
		t.Errorf("home page should fall back to the default image:\n%s", body)
	}
}

func TestJSONLDUsesResolvedImage(t *testing.T) {
	app := newTestApp(t, testConfig(t))
	seed(t, app)

	body := get(t, app, "/blog/older/").Body.String()
	if !strings.Contains(body, `"image":"`+upload("older.jpg")+`"`) {
		t.Errorf("JSON-LD should carry the featured image:\n%s", body)
	}
}

func TestMissingContentIs404(t *testing.T) {
	app := newTestApp(t, testConfig(t))
	for _, path := range []string{"/blog/nope/", "/attachment/nope.jpg/"} {
		if rec := get(t, app, path); rec.Code != http.StatusNotFound {
			t.Errorf("GET %s status = %d, want 404", path, rec.Code)
		}
	}
}

func TestOverrideShortCircuits(t *testing.T) {
	override := func(pc thumbnail.PageContext) string {
		if pc.Kind == thumbnail.PageSingle && pc.Item == "older" {
			return "https://cdn.example.com/promo.png"
		}
		return ""
	}
	app := newTestApp(t, testConfig(t), ogimage.WithOverride(override))
	seed(t, app)

	body := get(t, app, "/blog/older/").Body.String()
	if !strings.Contains(body, ogTag("https://cdn.example.com/promo.png")) {
		t.Errorf("override image missing:\n%s", body)
	}
	if !strings.Contains(body, "<!-- using shortcircuit -->") {
		t.Error("override should be reported as shortcircuit")
	}

	body = get(t, app, "/blog/newer/").Body.String()
	if !strings.Contains(body, ogTag(upload("n1.jpg"))) {
		t.Errorf("empty override should fall through to the built-in rules:\n%s", body)
	}
}

func TestCustomExclude(t *testing.T) {
	exclude := func(pc thumbnail.PageContext) bool {
		return pc.Kind == thumbnail.PageSingle
	}
	app := newTestApp(t, testConfig(t), ogimage.WithExclude(exclude))
	seed(t, app)

	body := get(t, app, "/blog/older/").Body.String()
	if !strings.Contains(body, ogTag(defaultImage)) || !strings.Contains(body, "<!-- using default fallback -->") {
		t.Errorf("excluded post should keep the default image:\n%s", body)
	}
	// The replacement policy no longer excludes cart.
	body = get(t, app, "/page/cart/").Body.String()
	if !strings.Contains(body, ogTag(defaultImage)) {
		t.Errorf("cart page should render the default image:\n%s", body)
	}
}

func TestImageForCustomRoute(t *testing.T) {
	app := newTestApp(t, testConfig(t), ogimage.WithCustomRoutes(func(a *ogimage.App) {
		a.Echo.GET("/share/", func(c echo.Context) error {
			return c.String(http.StatusOK, ogimage.ImageFor(c).ImageURL)
		})
	}))

	rec := get(t, app, "/share/")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /share/ status = %d, want 200", rec.Code)
	}
	if got := rec.Body.String(); got != defaultImage {
		t.Errorf("ImageFor on unresolved route = %q, want %q", got, defaultImage)
	}
}

func TestInitRequiresDefaultImage(t *testing.T) {
	cfg := testConfig(t)
	cfg.DefaultImage = ""
	app := ogimage.New(cfg, views.Default())
	defer app.Close()

	err := app.Init()
	if !errors.Is(err, thumbnail.ErrNoDefaultImage) {
		t.Fatalf("Init error = %v, want ErrNoDefaultImage", err)
	}
}

func TestInitRejectsInvalidDefaultImage(t *testing.T) {
	cfg := testConfig(t)
	cfg.DefaultImage = "ftp://example.com/x.jpg"
	app := ogimage.New(cfg, views.Default())
	defer app.Close()

	if err := app.Init(); !errors.Is(err, thumbnail.ErrInvalidDefaultImage) {
		t.Fatalf("Init error = %v, want ErrInvalidDefaultImage", err)
	}
}

func TestStoredDefaultImageWins(t *testing.T) {
	cfg := testConfig(t)
	store, err := ogimage.NewStore(cfg.DatabasePath)
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	if err := store.SetSetting(ogimage.SettingDefaultImage, "https://cdn.example.com/stored.jpg"); err != nil {
		t.Fatalf("SetSetting failed: %v", err)
	}
	store.Close()

	app := newTestApp(t, cfg)
	if got := app.Resolver.Default().ImageURL; got != "https://cdn.example.com/stored.jpg" {
		t.Errorf("Default() = %q, want stored setting", got)
	}
}

func TestInitSeedsDefaultImageSetting(t *testing.T) {
	app := newTestApp(t, testConfig(t))
	v, err := app.Store.GetSetting(ogimage.SettingDefaultImage)
	if err != nil {
		t.Fatalf("GetSetting failed: %v", err)
	}
	if v != "/public/default.jpg" {
		t.Errorf("seeded setting = %q, want %q", v, "/public/default.jpg")
	}
	if got := app.Resolver.Default().ImageURL; got != defaultImage {
		t.Errorf("Default() = %q, want %q", got, defaultImage)
	}
}

func TestInitTrimsDefaultImage(t *testing.T) {
	tests := []struct {
		name, configured, stored, want string
	}{
		{"absolute", "  https://example.com/d.jpg ", "https://example.com/d.jpg", "https://example.com/d.jpg"},
		{"root relative", " /public/d.jpg\n", "/public/d.jpg", "https://example.com/public/d.jpg"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t)
			cfg.DefaultImage = tt.configured
			app := newTestApp(t, cfg)

			if got := app.Resolver.Default().ImageURL; got != tt.want {
				t.Errorf("Default() = %q, want %q", got, tt.want)
			}
			v, err := app.Store.GetSetting(ogimage.SettingDefaultImage)
			if err != nil {
				t.Fatalf("GetSetting failed: %v", err)
			}
			if v != tt.stored {
				t.Errorf("seeded setting = %q, want %q", v, tt.stored)
			}
			body := get(t, app, "/page/about/").Body.String()
			if !strings.Contains(body, ogTag(tt.want)) {
				t.Errorf("page missing %s", ogTag(tt.want))
			}
		})
	}
}

func TestStoredDefaultImageIsTrimmed(t *testing.T) {
	cfg := testConfig(t)
	store, err := ogimage.NewStore(cfg.DatabasePath)
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	if err := store.SetSetting(ogimage.SettingDefaultImage, "\thttps://cdn.example.com/stored.jpg  "); err != nil {
		t.Fatalf("SetSetting failed: %v", err)
	}
	store.Close()

	app := newTestApp(t, cfg)
	if got := app.Resolver.Default().ImageURL; got != "https://cdn.example.com/stored.jpg" {
		t.Errorf("Default() = %q, want trimmed stored setting", got)
	}
}

func TestPostWithShopSlugKeepsItsImage(t *testing.T) {
	app := newTestApp(t, testConfig(t))
	if err := app.Store.SavePost(ogimage.BlogPost{Slug: "checkout", Title: "Checkout", Date: "2024-03-01", Published: true, FeaturedImage: "c.jpg"}); err != nil {
		t.Fatalf("SavePost failed: %v", err)
	}
	app.Cache.Invalidate()

	body := get(t, app, "/blog/checkout/").Body.String()
	if !strings.Contains(body, ogTag(upload("c.jpg"))) {
		t.Errorf("post missing featured image:\n%s", body)
	}
	if !strings.Contains(body, "<!-- using featured thumbnail -->") {
		t.Error("post should report the featured thumbnail source")
	}

	sitemap := get(t, app, "/sitemap.xml").Body.String()
	if !strings.Contains(sitemap, "<image:loc>"+upload("c.jpg")+"</image:loc>") {
		t.Errorf("sitemap missing featured image:\n%s", sitemap)
	}

	page := get(t, app, "/page/checkout/").Body.String()
	if !strings.Contains(page, ogTag(defaultImage)) {
		t.Error("static checkout page should still use the default image")
	}
}

func TestSitemapAndFeedImages(t *testing.T) {
	app := newTestApp(t, testConfig(t))
	seed(t, app)

	sitemap := get(t, app, "/sitemap.xml").Body.String()
	if !strings.Contains(sitemap, "<image:loc>"+upload("older.jpg")+"</image:loc>") {
		t.Errorf("sitemap missing featured image:\n%s", sitemap)
	}
	if strings.Contains(sitemap, defaultImage) {
		t.Error("sitemap should not list the default image for posts")
	}

	feed := get(t, app, "/feed.xml").Body.String()
	if !strings.Contains(feed, `<enclosure url="`+upload("n1.jpg")+`"`) {
		t.Errorf("feed missing attachment enclosure:\n%s", feed)
	}
	if !strings.Contains(feed, "<url>"+defaultImage+"</url>") {
		t.Errorf("feed channel image should be the default:\n%s", feed)
	}
}

func TestMetricsCountResolutions(t *testing.T) {
	app := newTestApp(t, testConfig(t))
	seed(t, app)
	get(t, app, "/blog/older/")
	get(t, app, "/page/cart/")

	body := get(t, app, "/metrics").Body.String()
	for _, want := range []string{
		`ogimage_resolutions_total{source="featured_image"} 1`,
		`ogimage_resolutions_excluded_total 1`,
		`ogimage_http_requests_total`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics missing %q", want)
		}
	}
}

func TestAdminRoutesRequireLogin(t *testing.T) {
	app := newTestApp(t, testConfig(t))
	seed(t, app)

	rec := get(t, app, "/admin/post/older/")
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("GET /admin/post/older/ status = %d, want 303", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/admin/" {
		t.Errorf("redirect = %q, want /admin/", loc)
	}
}

// browser keeps cookies between requests against an App.
type browser struct {
	t       *testing.T
	app     *ogimage.App
	cookies map[string]*http.Cookie
}

func (b *browser) do(method, target string, form url.Values) *httptest.ResponseRecorder {
	b.t.Helper()
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	for _, c := range b.cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	b.app.Echo.ServeHTTP(rec, req)
	for _, c := range rec.Result().Cookies() {
		b.cookies[c.Name] = c
	}
	return rec
}

func (b *browser) csrf() string {
	if c, ok := b.cookies["_csrf"]; ok {
		return c.Value
	}
	b.t.Fatal("no _csrf cookie")
	return ""
}

func TestAdminSetsFeaturedImage(t *testing.T) {
	app := newTestApp(t, testConfig(t))
	seed(t, app)
	b := &browser{t: t, app: app, cookies: map[string]*http.Cookie{}}

	b.do(http.MethodGet, "/admin/", nil)
	rec := b.do(http.MethodPost, "/admin/login/", url.Values{"password": {"secret"}, "_csrf": {b.csrf()}})
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("login status = %d, want 303", rec.Code)
	}

	rec = b.do(http.MethodPost, "/admin/post/newer/featured/", url.Values{"filename": {"missing.jpg"}, "_csrf": {b.csrf()}})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("unknown image status = %d, want 400", rec.Code)
	}

	rec = b.do(http.MethodPost, "/admin/post/newer/featured/", url.Values{"filename": {"a1.jpg"}, "_csrf": {b.csrf()}})
	if rec.Code != http.StatusOK {
		t.Fatalf("set featured status = %d, want 200", rec.Code)
	}

	body := get(t, app, "/blog/newer/").Body.String()
	if !strings.Contains(body, ogTag(upload("a1.jpg"))) || !strings.Contains(body, "<!-- using featured thumbnail -->") {
		t.Errorf("featured image should win after update:\n%s", body)
	}
}

func TestRouteHeaders(t *testing.T) {
	app := newTestApp(t, testConfig(t))
	seed(t, app)

	tests := []struct {
		path  string
		code  int
		cache string
	}{
		{"/blog/older/", http.StatusOK, "public, max-age=3600"},
		{"/sitemap.xml", http.StatusOK, "public, max-age=86400"},
		{"/admin/", http.StatusOK, "no-store"},
		{"/metrics", http.StatusOK, "no-store"},
	}
	for _, tt := range tests {
		rec := get(t, app, tt.path)
		if rec.Code != tt.code {
			t.Errorf("GET %s status = %d, want %d", tt.path, rec.Code, tt.code)
		}
		if got := rec.Header().Get("Cache-Control"); got != tt.cache {
			t.Errorf("GET %s Cache-Control = %q, want %q", tt.path, got, tt.cache)
		}
	}

	rec := get(t, app, "/blog/older")
	if rec.Code != http.StatusMovedPermanently || rec.Header().Get("Location") != "/blog/older/" {
		t.Errorf("GET /blog/older = %d %q, want 301 to /blog/older/", rec.Code, rec.Header().Get("Location"))
	}
}
