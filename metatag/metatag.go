// Package metatag writes the og:image element for a resolved thumbnail.
package metatag

import (
	"context"
	"fmt"
	"html"
	"io"
	"strings"

	"github.com/a-h/templ"

	"github.com/eringen/ogimage/thumbnail"
)

// Write emits the og:image block for res. The trailing comment names the rule
// that picked the image so it can be checked from the page source.
func Write(w io.Writer, res thumbnail.Result, version string) error {
	var b strings.Builder
	fmt.Fprintf(&b, "\n<!-- ogimage (v%s) -->\n", commentSafe(version))
	if res.ImageURL != "" {
		fmt.Fprintf(&b, "<meta property=\"og:image\" content=\"%s\" />\n", html.EscapeString(res.ImageURL))
	}
	fmt.Fprintf(&b, "<!-- using %s -->\n", res.Source)
	_, err := io.WriteString(w, b.String())
	return err
}

// Component returns res as a templ component for use inside <head>.
func Component(res thumbnail.Result, version string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		return Write(w, res, version)
	})
}

// commentSafe keeps caller supplied text from closing the HTML comment. Runs
// of dashes collapse to one, so no "--" survives.
func commentSafe(s string) string {
	for strings.Contains(s, "--") {
		s = strings.ReplaceAll(s, "--", "-")
	}
	return s
}
