// Package linkcheck verifies that internal links of a generated site point
// at files that exist in the output tree.
package linkcheck

import (
	"io"
	"net/url"
	"strings"

	"golang.org/x/net/html"

	"git.home.luguber.info/inful/sitegen/internal/foundation/errors"
)

// Link is one reference extracted from an HTML document.
type Link struct {
	URL       string
	Tag       string // a, img, script, link, ...
	Attribute string // href or src
	Internal  bool
	Line      int // ordinal of the element in the document
}

// linkAttrs maps element names to the attribute holding their target.
var linkAttrs = map[string]string{
	"a":      "href",
	"link":   "href",
	"img":    "src",
	"script": "src",
	"video":  "src",
	"audio":  "src",
	"source": "src",
	"iframe": "src",
}

// Extract parses an HTML document and returns its link targets in document
// order. siteURL decides which absolute URLs count as internal.
func Extract(r io.Reader, siteURL string) ([]Link, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryValidation, "failed to parse HTML").Build()
	}
	base, err := url.Parse(siteURL)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryValidation, "invalid site URL").
			WithContext("site_url", siteURL).
			Build()
	}

	var links []Link
	var element int
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			element++
			if attr, ok := linkAttrs[n.Data]; ok {
				if target := getAttr(n, attr); target != "" {
					links = append(links, Link{
						URL:       target,
						Tag:       n.Data,
						Attribute: attr,
						Internal:  isInternal(target, base),
						Line:      element,
					})
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return links, nil
}

func getAttr(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return strings.TrimSpace(attr.Val)
		}
	}
	return ""
}

// isInternal reports whether target refers to a file of this site.
// Fragment-only links and non-navigational schemes are not checked.
func isInternal(target string, base *url.URL) bool {
	for _, prefix := range []string{"mailto:", "tel:", "javascript:", "data:", "#"} {
		if strings.HasPrefix(target, prefix) {
			return false
		}
	}
	u, err := url.Parse(target)
	if err != nil {
		return false
	}
	if u.Scheme == "" && u.Host == "" {
		return true
	}
	return base != nil && base.Host != "" && strings.EqualFold(u.Host, base.Host)
}
