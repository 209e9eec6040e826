// Package views provides plain default templates for an ogimage site. Real
// sites usually replace them with their own templ components; these keep the
// CLI server usable out of the box.
package views

//go:generate go run github.com/a-h/templ/cmd/templ@v0.3.960 generate

import (
	"net/url"

	"github.com/a-h/templ"

	"github.com/eringen/ogimage"
	"github.com/eringen/ogimage/markdown"
)

// Default returns ViewFuncs backed by the templates in this package.
func Default() ogimage.ViewFuncs {
	return ogimage.ViewFuncs{
		Home:             Home,
		Post:             Post,
		Attachment:       Attachment,
		Page:             Page,
		AdminLogin:       AdminLogin,
		AdminDashboard:   AdminDashboard,
		AdminFormPartial: AdminFormPartial,
		AdminImages:      AdminImages,
		NotFound:         NotFound,
		ServerError:      ServerError,
	}
}

// jsonLD wraps an encoding/json payload in a script element. json.Marshal
// escapes <, > and &, so the payload cannot end the element early.
func jsonLD(data string) templ.Component {
	return templ.Raw(`<script type="application/ld+json">` + data + `</script>`)
}

func uploadPath(filename string) string {
	return markdown.UploadsPath + url.PathEscape(filename)
}

func postState(p ogimage.BlogPost) string {
	if p.Published {
		return "published"
	}
	return "draft"
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
