// Package expand synthesizes records from aggregate results, such as one
// page per blog tag.
package expand

import (
	"fmt"

	"git.home.luguber.info/inful/sitegen/internal/content"
	"git.home.luguber.info/inful/sitegen/internal/metadata"
)

// Resolver resolves a route against a metadata bag.
type Resolver interface {
	Resolve(route string, bag metadata.Bag) (content.URL, error)
}

// URLSink receives the URLs of synthesized pages.
type URLSink interface {
	Add(url string)
}

// TagPages creates one record per (template, tag) pair. Each record clones
// the template's metadata with "tag" set, keeps its body and gets its own URL.
// Records are returned in template order, then tag order; the caller adds
// them to the arena.
func TagPages(templates []*content.Record, tags []string, resolver Resolver, sitemap URLSink) ([]*content.Record, error) {
	out := make([]*content.Record, 0, len(templates)*len(tags))
	for _, tmpl := range templates {
		if tmpl.Meta == nil {
			return nil, fmt.Errorf("tag page template %s has no metadata", tmpl.SourcePath)
		}
		for _, tag := range tags {
			meta := tmpl.Meta.Clone()
			meta.Bag.Set(content.KeyTag, metadata.String(tag))

			url, err := resolver.Resolve(meta.Route, meta.Bag)
			if err != nil {
				return nil, fmt.Errorf("tag %q: %w", tag, err)
			}
			if !meta.ExcludeFromSitemap {
				sitemap.Add(url.Relative)
			}
			out = append(out, &content.Record{
				Kind:        tmpl.Kind,
				SourcePath:  tmpl.SourcePath,
				SourceAbs:   tmpl.SourceAbs,
				Expanded:    true,
				Meta:        &meta,
				Raw:         tmpl.Raw,
				Fingerprint: tmpl.Fingerprint,
				URL:         &url,
			})
		}
	}
	return out, nil
}
