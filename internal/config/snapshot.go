package config

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strconv"
	"strings"
)

// Snapshot computes a stable hash of the output-affecting configuration.
// Map fields are hashed in key order. Call it on a normalized config.
func (c *Config) Snapshot() string {
	if c == nil {
		return ""
	}
	h := sha256.New()
	w := func(parts ...string) { h.Write([]byte(strings.Join(parts, "="))); h.Write([]byte{0}) }

	w("sitename", c.SiteName)
	w("site_url", c.SiteURL)
	w("blogpost_template", c.BlogpostTemplate)
	for _, g := range c.sourceGlobs {
		w("source", g.Pattern, string(g.Kind))
	}
	names := make([]string, 0, len(c.Routes))
	for name := range c.Routes {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		w("route", name, c.Routes[name])
	}
	w("render.strict", strconv.FormatBool(c.Render.Strict))
	w("render.content_placeholder", c.Render.ContentPlaceholder)
	w("render.inline_markdown", c.Render.InlineMarkdown)
	w("render.markdown.gfm", strconv.FormatBool(c.Render.Markdown.GFM))
	w("render.markdown.unsafe_html", strconv.FormatBool(c.UnsafeHTML()))
	return hex.EncodeToString(h.Sum(nil))
}
