package content

import (
	"fmt"
	"strings"
)

// Kind is the source kind of a record. It is fixed when the record is created.
type Kind string

const (
	KindStaticAsset         Kind = "static"
	KindSinglePage          Kind = "page"
	KindBlogPost            Kind = "blogpost"
	KindTagPageTemplate     Kind = "tag_page"
	KindArchivePageTemplate Kind = "archive_page"
	KindRssTemplate         Kind = "rss"
	KindSitemapTemplate     Kind = "sitemap"
	// KindTemplate marks catalog templates. They feed the template catalog and
	// never become records.
	KindTemplate Kind = "template"
)

// kindAliases maps accepted configuration spellings to kinds.
var kindAliases = map[string]Kind{
	"static":                            KindStaticAsset,
	"staticcontent":                     KindStaticAsset,
	"page":                              KindSinglePage,
	"dynamiccontentsinglepage":          KindSinglePage,
	"blogpost":                          KindBlogPost,
	"dynamiccontentblogpost":            KindBlogPost,
	"tag_page":                          KindTagPageTemplate,
	"dynamiccontentblogposttagpage":     KindTagPageTemplate,
	"archive_page":                      KindArchivePageTemplate,
	"dynamiccontentblogpostarchivepage": KindArchivePageTemplate,
	"rss":                               KindRssTemplate,
	"dynamiccontentblogpostrsspage":     KindRssTemplate,
	"sitemap":                           KindSitemapTemplate,
	"dynamiccontentsitemap":             KindSitemapTemplate,
	"template":                          KindTemplate,
}

// ParseKind accepts both the short snake-case names and the long CamelCase
// names (StaticContent, DynamicContentBlogPost, ...), case-insensitively.
func ParseKind(s string) (Kind, error) {
	if k, ok := kindAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return k, nil
	}
	return "", fmt.Errorf("unknown source kind %q", s)
}

// HasFrontmatter reports whether sources of this kind carry a metadata header.
func (k Kind) HasFrontmatter() bool {
	return k != KindStaticAsset && k != KindTemplate
}
