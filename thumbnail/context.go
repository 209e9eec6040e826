package thumbnail

// ContentID identifies a content item: a post slug or an attachment filename.
type ContentID string

// PageKind tags which variant of PageContext is populated.
type PageKind int

const (
	PageOther PageKind = iota
	PageListing
	PageSingle
	PageAttachment
)

func (k PageKind) String() string {
	switch k {
	case PageListing:
		return "listing"
	case PageSingle:
		return "single"
	case PageAttachment:
		return "attachment"
	default:
		return "other"
	}
}

// PageContext describes the page being rendered. The host builds it per
// request; the resolver only reads it.
//
// Items is set for PageListing, in display order. Item is set for
// PageSingle and PageAttachment. Slug is the route slug of the page (or
// listing) and is what exclusion policies usually look at.
type PageContext struct {
	Kind  PageKind
	Slug  string
	Item  ContentID
	Items []ContentID
}

// Listing returns a context for a page showing several items.
func Listing(slug string, items ...ContentID) PageContext {
	return PageContext{Kind: PageListing, Slug: slug, Items: items}
}

// Single returns a context for a page showing one content item.
func Single(id ContentID) PageContext {
	return PageContext{Kind: PageSingle, Slug: string(id), Item: id}
}

// Attachment returns a context for an attachment page.
func Attachment(id ContentID) PageContext {
	return PageContext{Kind: PageAttachment, Slug: string(id), Item: id}
}

// Other returns a context for any page that is not a listing, single item,
// or attachment.
func Other(slug string) PageContext {
	return PageContext{Kind: PageOther, Slug: slug}
}
