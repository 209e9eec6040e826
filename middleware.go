package ogimage

import (
	"net/http"
	"strings"

	"github.com/gorilla/sessions"
	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

const (
	sessionName      = "admin_session"
	sessionAuthKey   = "authenticated"
	sessionMaxAge    = 60 * 60 * 12
	csrfCookieName   = "_csrf"
	csrfTokenLookup  = "header:X-CSRF-Token,form:_csrf"
	metricsPath      = "/metrics"
	contentSecPolicy = "default-src 'self'; script-src 'self' 'unsafe-inline'; style-src 'self' 'unsafe-inline'; img-src 'self' https: data:; font-src 'self'; connect-src 'self'"
)

// routeClass groups request paths that share caching, compression and
// redirect rules.
type routeClass int

const (
	classPage routeClass = iota
	classStatic
	classFeed
	classAdmin
	classMetrics
)

var feedPaths = map[string]struct{}{
	"/sitemap.xml": {},
	"/feed.xml":    {},
	"/robots.txt":  {},
	"/favicon.svg": {},
}

var cacheControl = map[routeClass]string{
	classPage:    "public, max-age=3600",
	classStatic:  "public, max-age=31536000, immutable",
	classFeed:    "public, max-age=86400",
	classAdmin:   "no-store",
	classMetrics: "no-store",
}

func classify(path string) routeClass {
	switch {
	case strings.HasPrefix(path, "/public/"):
		return classStatic
	case path == metricsPath:
		return classMetrics
	case strings.HasPrefix(path, "/admin"):
		return classAdmin
	}
	if _, ok := feedPaths[path]; ok {
		return classFeed
	}
	return classPage
}

func requestClass(c echo.Context) routeClass {
	return classify(c.Request().URL.Path)
}

func (a *App) setupMiddleware() {
	e := a.Echo
	e.IPExtractor = echo.ExtractIPFromXFFHeader(
		echo.TrustLoopback(true),
		echo.TrustLinkLocal(false),
		echo.TrustPrivateNet(true),
	)
	e.HTTPErrorHandler = a.httpErrorHandler

	e.Pre(middleware.NonWWWRedirect())
	e.Use(
		requestLogger(),
		middleware.Recover(),
		a.metrics.middleware(),
		middleware.GzipWithConfig(middleware.GzipConfig{
			Level:   5,
			Skipper: func(c echo.Context) bool { return requestClass(c) == classStatic },
		}),
		middleware.SecureWithConfig(middleware.SecureConfig{
			XSSProtection:         "1; mode=block",
			ContentTypeNosniff:    "nosniff",
			XFrameOptions:         "DENY",
			ReferrerPolicy:        "strict-origin-when-cross-origin",
			ContentSecurityPolicy: contentSecPolicy,
			HSTSMaxAge:            31536000,
		}),
		session.Middleware(a.newSessionStore()),
		a.csrf(),
		middleware.AddTrailingSlashWithConfig(middleware.TrailingSlashConfig{
			RedirectCode: http.StatusMovedPermanently,
			Skipper: func(c echo.Context) bool {
				switch requestClass(c) {
				case classStatic, classFeed, classMetrics:
					return true
				}
				return false
			},
		}),
		cacheControlMiddleware,
		a.defaultImageMiddleware,
	)
}

// requestLogger logs one line per request. Pages also report which rule
// picked their og:image.
func requestLogger() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:  true,
		LogURI:     true,
		LogMethod:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			if res := ImageFor(c); res.ImageURL != "" && requestClass(c) == classPage {
				c.Logger().Infof("%s %s -> %d (%s) og:image=%s", v.Method, v.URI, v.Status, v.Latency, res.Source.Label())
				return nil
			}
			c.Logger().Infof("%s %s -> %d (%s)", v.Method, v.URI, v.Status, v.Latency)
			return nil
		},
	})
}

// csrf protects every form post. Prometheus scrapes skip it.
func (a *App) csrf() echo.MiddlewareFunc {
	return middleware.CSRFWithConfig(middleware.CSRFConfig{
		ContextKey:     middleware.DefaultCSRFConfig.ContextKey,
		TokenLookup:    csrfTokenLookup,
		CookieName:     csrfCookieName,
		CookiePath:     "/",
		CookieSameSite: http.SameSiteLaxMode,
		CookieSecure:   a.Config.CookieSecure,
		Skipper:        func(c echo.Context) bool { return requestClass(c) == classMetrics },
		ErrorHandler: func(err error, c echo.Context) error {
			return c.String(http.StatusForbidden, "Forbidden")
		},
	})
}

func cacheControlMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		c.Response().Header().Set("Cache-Control", cacheControl[requestClass(c)])
		return next(c)
	}
}

func (a *App) newSessionStore() *sessions.CookieStore {
	store := sessions.NewCookieStore([]byte(a.Config.SessionSecret))
	store.Options = &sessions.Options{
		Path:     "/",
		HttpOnly: true,
		MaxAge:   sessionMaxAge,
		SameSite: http.SameSiteLaxMode,
		Secure:   a.Config.CookieSecure,
	}
	return store
}

// IsAdmin checks if the current session is authenticated.
func IsAdmin(c echo.Context) bool {
	sess, err := session.Get(sessionName, c)
	if err != nil {
		return false
	}
	auth, ok := sess.Values[sessionAuthKey].(bool)
	return ok && auth
}

// saveAdminSession marks the session as logged in, or expires it when
// authenticated is false.
func saveAdminSession(c echo.Context, authenticated bool) error {
	sess, err := session.Get(sessionName, c)
	if err != nil {
		return err
	}
	if authenticated {
		sess.Values[sessionAuthKey] = true
	} else {
		delete(sess.Values, sessionAuthKey)
		sess.Options.MaxAge = -1
	}
	return sess.Save(c.Request(), c.Response())
}

// CsrfToken extracts the CSRF token from the Echo context.
func CsrfToken(c echo.Context) string {
	token, _ := c.Get(middleware.DefaultCSRFConfig.ContextKey).(string)
	return token
}
