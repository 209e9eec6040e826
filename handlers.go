package ogimage

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/eringen/ogimage/thumbnail"
)

// head builds the template metadata after the page's image has been resolved.
func (a *App) head(c echo.Context, meta PageMeta, jsonLD func(image string) string) Head {
	res := ImageFor(c)
	h := Head{
		Meta:  meta,
		Image: res,
		OGTag: a.HeadTag(c),
	}
	if jsonLD != nil {
		h.JSONLD = jsonLD(res.ImageURL)
	}
	return h
}

func postIDs(posts []BlogPost) []thumbnail.ContentID {
	ids := make([]thumbnail.ContentID, len(posts))
	for i, p := range posts {
		ids[i] = thumbnail.ContentID(p.Slug)
	}
	return ids
}

func (a *App) renderListing(c echo.Context, slug, tag string) error {
	posts, err := a.Cache.ListPosts(tag)
	if err != nil {
		return err
	}
	tags, err := a.Cache.ListTags()
	if err != nil {
		return err
	}
	a.resolveImage(c, thumbnail.Listing(slug, postIDs(posts)...))

	meta := PageMeta{
		Title:       a.Config.Name,
		Description: a.Config.Description,
		URL:         BuildURL(a.Config.URL),
		OGType:      "website",
	}
	if tag != "" {
		meta.Title = tag + " | " + a.Config.Name
		meta.URL = BuildURL(a.Config.URL, "tag", tag)
	}
	head := a.head(c, meta, func(image string) string {
		return WebsiteJsonLD(a.Config, image)
	})
	return Render(c, a.Views.Home(posts, tag, tags, head))
}

func (a *App) handleHome(c echo.Context) error {
	return a.renderListing(c, "", c.QueryParam("tag"))
}

func (a *App) handleTag(c echo.Context) error {
	tag := c.Param("tag")
	return a.renderListing(c, "tag/"+tag, tag)
}

func (a *App) handlePost(c echo.Context) error {
	slug := c.Param("slug")
	post, err := a.Cache.GetPost(slug)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return RenderStatus(c, http.StatusNotFound, a.Views.NotFound())
		}
		return err
	}
	posts, err := a.Cache.ListPosts("")
	if err != nil {
		return err
	}
	attachments, err := a.Store.ListAttachments(slug)
	if err != nil {
		return err
	}
	a.resolveImage(c, thumbnail.Single(thumbnail.ContentID(slug)))

	head := a.head(c, PageMeta{
		Title:       post.Title + " | " + a.Config.Name,
		Description: post.Summary,
		URL:         BuildURL(a.Config.URL, "blog", post.Slug),
		OGType:      "article",
	}, func(image string) string {
		return BlogPostingJsonLD(post, a.Config, image)
	})
	return Render(c, a.Views.Post(post, FilterRelatedPosts(post, posts), attachments, head))
}

func (a *App) handleAttachment(c echo.Context) error {
	filename := c.Param("filename")
	img, err := a.Store.GetImage(filename)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return RenderStatus(c, http.StatusNotFound, a.Views.NotFound())
		}
		return err
	}
	var parent *BlogPost
	if img.PostSlug != "" {
		if p, err := a.Cache.GetPost(img.PostSlug); err == nil {
			parent = &p
		}
	}
	a.resolveImage(c, thumbnail.Attachment(thumbnail.ContentID(filename)))

	title := img.OriginalName
	if parent != nil {
		title = img.OriginalName + " | " + parent.Title
	}
	head := a.head(c, PageMeta{
		Title:  title,
		URL:    BuildURL(a.Config.URL, "attachment", filename),
		OGType: "website",
	}, nil)
	return Render(c, a.Views.Attachment(img, parent, head))
}

func (a *App) handlePage(c echo.Context) error {
	slug := c.Param("slug")
	a.resolveImage(c, thumbnail.Other(slug))
	head := a.head(c, PageMeta{
		Title:  slug + " | " + a.Config.Name,
		URL:    BuildURL(a.Config.URL, "page", slug),
		OGType: "website",
	}, nil)
	return Render(c, a.Views.Page(slug, head))
}

func (a *App) handleSitemap(c echo.Context) error {
	posts, err := a.Cache.ListPosts("")
	if err != nil {
		return err
	}
	return a.renderSitemap(c, posts)
}

func (a *App) handleFeed(c echo.Context) error {
	posts, err := a.Cache.ListPosts("")
	if err != nil {
		return err
	}
	return a.renderRSS(c, posts)
}

func handleBlogRedirect(c echo.Context) error {
	return c.Redirect(http.StatusMovedPermanently, "/")
}

func (a *App) handleFavicon(c echo.Context) error {
	return c.File(a.Config.StaticDir + "/favicon.svg")
}

func (a *App) handleRobots(c echo.Context) error {
	return c.File(a.Config.StaticDir + "/robots.txt")
}

func (a *App) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	he, ok := err.(*echo.HTTPError)
	if ok && he.Code == http.StatusNotFound {
		_ = RenderStatus(c, http.StatusNotFound, a.Views.NotFound())
		return
	}
	code := http.StatusInternalServerError
	if ok {
		code = he.Code
	}
	if code >= 500 {
		c.Logger().Errorf("server error: %v", err)
		_ = RenderStatus(c, code, a.Views.ServerError())
		return
	}
	a.Echo.DefaultHTTPErrorHandler(err, c)
}

// FilterRelatedPosts finds posts that share at least one tag with current.
func FilterRelatedPosts(current BlogPost, posts []BlogPost) []BlogPost {
	tagSet := make(map[string]struct{})
	for _, t := range current.Tags {
		if tag := normalizeTag(t); tag != "" {
			tagSet[tag] = struct{}{}
		}
	}
	var related []BlogPost
	for _, p := range posts {
		if p.Slug == current.Slug {
			continue
		}
		for _, t := range p.Tags {
			if _, ok := tagSet[normalizeTag(t)]; ok {
				related = append(related, p)
				break
			}
		}
	}
	return related
}
