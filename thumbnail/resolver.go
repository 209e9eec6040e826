// Package thumbnail picks the single image a page advertises to social
// networks (og:image).
//
// The Resolver walks a fixed fallback chain and reports which rule supplied
// the winning URL. It holds no per-request state: callers thread the Result
// to whatever needs it during the same request.
package thumbnail

// Source names the rule that produced a Result.
type Source int

const (
	SourceDefault Source = iota
	SourceShortCircuit
	SourceListingThumbnail
	SourceFeaturedImage
	SourceFirstAttachment
	SourceAttachmentSelf
)

// String returns the human readable trace used in emitted markup.
func (s Source) String() string {
	switch s {
	case SourceShortCircuit:
		return "shortcircuit"
	case SourceListingThumbnail:
		return "image from posts loop - listing page"
	case SourceFeaturedImage:
		return "featured thumbnail"
	case SourceFirstAttachment:
		return "first attachment"
	case SourceAttachmentSelf:
		return "attachment"
	default:
		return "default fallback"
	}
}

// Label returns a short identifier suitable for metric labels and logs.
func (s Source) Label() string {
	switch s {
	case SourceShortCircuit:
		return "short_circuit"
	case SourceListingThumbnail:
		return "listing_thumbnail"
	case SourceFeaturedImage:
		return "featured_image"
	case SourceFirstAttachment:
		return "first_attachment"
	case SourceAttachmentSelf:
		return "attachment_self"
	default:
		return "default"
	}
}

// Result is the outcome of one resolution.
type Result struct {
	ImageURL string
	Source   Source
}

// ContentRepository answers image lookups for content items. Absence is
// reported as "" or an empty slice; implementations must not panic on
// unknown ids.
type ContentRepository interface {
	// FeaturedImageURL returns the URL of the item's featured image.
	FeaturedImageURL(id ContentID) string
	// ImageAttachmentURLs returns URLs of image attachments of the item in
	// repository order.
	ImageAttachmentURLs(id ContentID) []string
	// AttachmentURL returns the URL of the attachment item itself.
	AttachmentURL(id ContentID) string
}

// Resolver runs the image selection chain.
type Resolver struct {
	repo     ContentRepository
	cfg      Config
	override OverrideFunc
}

// New returns a Resolver. override may be nil.
func New(repo ContentRepository, cfg Config, override OverrideFunc) *Resolver {
	if cfg.Exclude == nil {
		cfg.Exclude = DefaultExclude
	}
	return &Resolver{repo: repo, cfg: cfg, override: override}
}

// Default returns the result every request starts with.
func (r *Resolver) Default() Result {
	return Result{ImageURL: r.cfg.DefaultImageURL, Source: SourceDefault}
}

// Excluded reports whether pc is skipped by the exclusion policy.
func (r *Resolver) Excluded(pc PageContext) bool {
	return r.cfg.Exclude(pc)
}

// Resolve picks the image for pc. The second return is false when the page
// is excluded; the returned Result is then the default and no repository
// lookup was made.
func (r *Resolver) Resolve(pc PageContext) (Result, bool) {
	if r.Excluded(pc) {
		return r.Default(), false
	}
	return r.resolve(pc), true
}

func (r *Resolver) resolve(pc PageContext) Result {
	if r.override != nil {
		if u := r.override(pc); u != "" {
			return Result{ImageURL: u, Source: SourceShortCircuit}
		}
	}

	switch pc.Kind {
	case PageListing:
		for _, id := range pc.Items {
			if u := r.repo.FeaturedImageURL(id); u != "" {
				return Result{ImageURL: u, Source: SourceListingThumbnail}
			}
		}
	case PageSingle:
		if u := r.repo.FeaturedImageURL(pc.Item); u != "" {
			return Result{ImageURL: u, Source: SourceFeaturedImage}
		}
		if urls := r.repo.ImageAttachmentURLs(pc.Item); len(urls) > 0 && urls[0] != "" {
			return Result{ImageURL: urls[0], Source: SourceFirstAttachment}
		}
	case PageAttachment:
		if u := r.repo.AttachmentURL(pc.Item); u != "" {
			return Result{ImageURL: u, Source: SourceAttachmentSelf}
		}
	}

	return r.Default()
}
