package cache

import "strings"

// Key identifies a cached page response.
type Key struct {
	// SiteID is the published site identifier.
	SiteID string

	// PageSlug is the page slug within the site (e.g. "home", "about/team").
	PageSlug string

	// Variant distinguishes separately cached renderings of the same page
	// (e.g. a language or device variant). Empty for the default rendering.
	Variant string
}

// String generates a deterministic cache key string.
// Format: site:{siteID}:page:{slug}[:variant:{variant}]
//
// Example:
//
//	site:s1:page:home:variant:mobile
func (k Key) String() string {
	var b strings.Builder
	b.WriteString("site:")
	b.WriteString(k.SiteID)
	b.WriteString(":page:")
	b.WriteString(k.PageSlug)
	if k.Variant != "" {
		b.WriteString(":variant:")
		b.WriteString(k.Variant)
	}
	return b.String()
}

// SiteTag returns the invalidation tag covering every page of a site.
// Set calls register entries under this tag so InvalidateSite can remove
// all of a site's pages at once.
func SiteTag(siteID string) string {
	return "site:" + siteID
}
