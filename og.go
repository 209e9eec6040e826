package ogimage

import (
	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"

	"github.com/eringen/ogimage/metatag"
	"github.com/eringen/ogimage/thumbnail"
)

const ogImageKey = "ogimage.result"

// resolveImage runs the thumbnail chain for pc and stores the result on the
// request. Excluded pages keep whatever the request already carries.
func (a *App) resolveImage(c echo.Context, pc thumbnail.PageContext) thumbnail.Result {
	res, ok := a.Resolver.Resolve(pc)
	if !ok {
		a.metrics.excluded.Inc()
		c.Logger().Debugf("og:image skipped for excluded %s page %q", pc.Kind, pc.Slug)
		return ImageFor(c)
	}
	a.metrics.resolutions.WithLabelValues(res.Source.Label()).Inc()
	c.Logger().Debugf("og:image for %s page %q: %s (%s)", pc.Kind, pc.Slug, res.ImageURL, res.Source.Label())
	c.Set(ogImageKey, res)
	return res
}

// defaultImageMiddleware seeds every request with the default result so
// code running after an excluded page, or on a page that never resolves,
// still sees the configured default.
func (a *App) defaultImageMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		c.Set(ogImageKey, a.Resolver.Default())
		return next(c)
	}
}

// ImageFor returns the og:image chosen for the current request. Custom
// handlers can use it to build share links.
func ImageFor(c echo.Context) thumbnail.Result {
	res, _ := c.Get(ogImageKey).(thumbnail.Result)
	return res
}

// HeadTag returns the og:image markup for the current request.
func (a *App) HeadTag(c echo.Context) templ.Component {
	return metatag.Component(ImageFor(c), a.Config.Version)
}
