package ogimage

import (
	"errors"

	"github.com/labstack/echo/v4"

	"github.com/eringen/ogimage/thumbnail"
)

// contentRepository answers thumbnail lookups from the post cache and the
// image table. Store errors are logged and reported as "no image" so a
// failing lookup degrades to the next rule instead of failing the page.
type contentRepository struct {
	store   *Store
	cache   *PostCache
	siteURL string
	logger  echo.Logger
}

var _ thumbnail.ContentRepository = (*contentRepository)(nil)

func (r *contentRepository) FeaturedImageURL(id thumbnail.ContentID) string {
	post, err := r.cache.GetPost(string(id))
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			r.logger.Errorf("featured image lookup %q: %v", id, err)
		}
		return ""
	}
	if post.FeaturedImage == "" {
		return ""
	}
	return UploadURL(r.siteURL, post.FeaturedImage)
}

func (r *contentRepository) ImageAttachmentURLs(id thumbnail.ContentID) []string {
	images, err := r.store.ListAttachments(string(id))
	if err != nil {
		r.logger.Errorf("attachment lookup %q: %v", id, err)
		return nil
	}
	urls := make([]string, 0, len(images))
	for _, img := range images {
		urls = append(urls, UploadURL(r.siteURL, img.Filename))
	}
	return urls
}

func (r *contentRepository) AttachmentURL(id thumbnail.ContentID) string {
	img, err := r.store.GetImage(string(id))
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			r.logger.Errorf("attachment self lookup %q: %v", id, err)
		}
		return ""
	}
	return UploadURL(r.siteURL, img.Filename)
}
