package thumbnail

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

var (
	// ErrNoDefaultImage is returned by Config.Validate when no default image is set.
	ErrNoDefaultImage = errors.New("default image url is not configured")
	// ErrInvalidDefaultImage is returned by Config.Validate when the default
	// image is neither an absolute http(s) URL nor a root-relative path.
	ErrInvalidDefaultImage = errors.New("default image url is invalid")
)

// OverrideFunc may pick an image before the built-in chain runs.
// Returning "" lets the chain continue.
type OverrideFunc func(PageContext) string

// ExcludeFunc reports whether resolution should be skipped for a page.
type ExcludeFunc func(PageContext) bool

// Config is loaded once at startup and never mutated afterwards.
type Config struct {
	DefaultImageURL string
	// Exclude defaults to DefaultExclude when nil.
	Exclude ExcludeFunc
}

// Validate checks the default image URL.
func (c Config) Validate() error {
	raw := strings.TrimSpace(c.DefaultImageURL)
	if raw == "" {
		return ErrNoDefaultImage
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDefaultImage, err)
	}
	switch {
	case u.Scheme == "http" || u.Scheme == "https":
		if u.Host == "" {
			return fmt.Errorf("%w: missing host in %q", ErrInvalidDefaultImage, raw)
		}
	case u.Scheme == "" && strings.HasPrefix(u.Path, "/"):
	default:
		return fmt.Errorf("%w: %q", ErrInvalidDefaultImage, raw)
	}
	return nil
}

// excludedSlugs are pages reserved for logged-in shop flows.
var excludedSlugs = map[string]struct{}{
	"cart":       {},
	"checkout":   {},
	"my-account": {},
}

// DefaultExclude skips the cart, checkout and account pages. Only PageOther
// (static pages) is matched; a post that happens to use one of those slugs
// still resolves normally.
func DefaultExclude(pc PageContext) bool {
	if pc.Kind != PageOther {
		return false
	}
	_, ok := excludedSlugs[strings.ToLower(strings.Trim(pc.Slug, "/"))]
	return ok
}

// NeverExclude is an ExcludeFunc that resolves every page.
func NeverExclude(PageContext) bool { return false }
