package views

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/a-h/templ"

	"github.com/eringen/ogimage"
	"github.com/eringen/ogimage/metatag"
	"github.com/eringen/ogimage/thumbnail"
)

func renderString(t *testing.T, c templ.Component) string {
	t.Helper()
	var buf bytes.Buffer
	if err := c.Render(context.Background(), &buf); err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	return buf.String()
}

func testHead() ogimage.Head {
	res := thumbnail.Result{ImageURL: "https://example.com/public/uploads/c.jpg", Source: thumbnail.SourceFeaturedImage}
	return ogimage.Head{
		Meta: ogimage.PageMeta{
			Title:       "Tips & <Tricks>",
			Description: "About og:image",
			URL:         "https://example.com/blog/tips/",
			OGType:      "article",
		},
		Image:  res,
		OGTag:  metatag.Component(res, "1.0.0"),
		JSONLD: `{"image":"https://example.com/public/uploads/c.jpg"}`,
	}
}

// inHead reports whether want appears exactly once and before </head>.
func inHead(t *testing.T, body, want string) {
	t.Helper()
	i := strings.Index(body, want)
	end := strings.Index(body, "</head>")
	if i < 0 || end < 0 || i > end {
		t.Errorf("%q not inside <head>:\n%s", want, body)
		return
	}
	if n := strings.Count(body, want); n != 1 {
		t.Errorf("%q rendered %d times, want 1", want, n)
	}
}

func TestLayoutRendersHeadMetadata(t *testing.T) {
	post := ogimage.BlogPost{Slug: "tips", Title: "Tips & <Tricks>", Date: "2024-01-01", Content: "Hello **world**"}
	body := renderString(t, Post(post, nil, nil, testHead()))

	for _, want := range []string{
		`<meta property="og:image" content="https://example.com/public/uploads/c.jpg" />`,
		"<!-- using featured thumbnail -->",
		`<script type="application/ld+json">{"image":"https://example.com/public/uploads/c.jpg"}</script>`,
		"<title>Tips &amp; &lt;Tricks&gt;</title>",
		`<meta property="og:title" content="Tips &amp; &lt;Tricks&gt;">`,
		`<meta property="og:description" content="About og:image">`,
		`<meta property="og:type" content="article">`,
		`<link rel="canonical" href="https://example.com/blog/tips/">`,
	} {
		inHead(t, body, want)
	}
	if !strings.HasPrefix(body, "<!doctype html>") {
		t.Errorf("missing doctype: %.40q", body)
	}
}

func TestPostRendersMarkdownAndAttachments(t *testing.T) {
	post := ogimage.BlogPost{
		Slug:          "tips",
		Title:         "Tips",
		Content:       "Hello **world**\n\n![inline](a b.jpg)",
		FeaturedImage: "cover.jpg",
	}
	attachments := []ogimage.Image{{Filename: "a b.jpg", OriginalName: "a\"b.png", Width: 800, Height: 600}}
	related := []ogimage.BlogPost{{Slug: "other post", Title: "Other"}}
	body := renderString(t, Post(post, related, attachments, testHead()))

	for _, want := range []string{
		`<img class="featured" src="/public/uploads/cover.jpg" alt="">`,
		`<div class="content"><p>Hello <strong>world</strong>`,
		`src="/public/uploads/a%20b.jpg" decoding="async"/>`,
		`<a href="/attachment/a%20b.jpg/"><img src="/public/uploads/a%20b.jpg" width="800" height="600" alt="a&#34;b.png"></a>`,
		`<h2>Related</h2><ul class="posts"><li><a href="/blog/other%20post/">Other</a>`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("post missing %q in:\n%s", want, body)
		}
	}
}

func TestHomeMarksActiveTag(t *testing.T) {
	posts := []ogimage.BlogPost{{Slug: "a", Title: "A", Date: "2024-01-01", Summary: "<sum>"}}
	body := renderString(t, Home(posts, "Go", []string{"go", "web"}, testHead()))

	for _, want := range []string{
		`<a class="active" href="/tag/go/">go</a>`,
		`<a href="/tag/web/">web</a>`,
		`<li><a href="/blog/a/">A</a> <time>2024-01-01</time><p>&lt;sum&gt;</p></li>`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("home missing %q in:\n%s", want, body)
		}
	}
}

func TestPagesWithoutHeadHaveNoImage(t *testing.T) {
	tests := []struct {
		name  string
		c     templ.Component
		title string
	}{
		{"not found", NotFound(), "<title>Not found</title>"},
		{"server error", ServerError(), "<title>Server error</title>"},
		{"login", AdminLogin(true, "tok"), "<title>Admin</title>"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := renderString(t, tt.c)
			inHead(t, body, tt.title)
			if strings.Contains(body, "og:image") || strings.Contains(body, "ld+json") {
				t.Errorf("page without head metadata rendered image tags:\n%s", body)
			}
		})
	}
}

func TestAdminFormPartialState(t *testing.T) {
	post := ogimage.BlogPost{Slug: "tips", Title: `Say "hi"`, Tags: []string{"go", "web"}, Published: true, FeaturedImage: "b.jpg"}
	attachments := []ogimage.Image{{Filename: "a.jpg"}, {Filename: "b.jpg"}}
	body := renderString(t, AdminFormPartial(post, attachments, "tok"))

	for _, want := range []string{
		`<input type="hidden" name="_csrf" value="tok">`,
		`<input name="title" value="Say &#34;hi&#34;" placeholder="Title">`,
		`<input name="tags" value="go, web" placeholder="tags">`,
		`name="published" value="1" checked>`,
		`<form method="post" action="/admin/post/tips/featured/">`,
		`<option value="a.jpg">a.jpg</option>`,
		`<option value="b.jpg" selected>b.jpg</option>`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("form missing %q in:\n%s", want, body)
		}
	}

	body = renderString(t, AdminFormPartial(ogimage.BlogPost{}, nil, "tok"))
	if strings.Contains(body, " checked") || strings.Contains(body, "featured/") {
		t.Errorf("empty post form should be unchecked with no featured picker:\n%s", body)
	}
}
