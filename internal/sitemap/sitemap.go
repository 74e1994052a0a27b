// Package sitemap accumulates page URLs during a run and freezes them into
// the sorted, deduplicated list handed to templates.
package sitemap

import (
	"slices"
	"sync"

	"git.home.luguber.info/inful/sitegen/internal/util/sets"
)

// Builder is the growing phase of the sitemap. It is safe for concurrent use.
type Builder struct {
	mu     sync.Mutex
	urls   sets.Set[string]
	frozen bool
}

// NewBuilder returns an empty builder.
func NewBuilder() *Builder {
	return &Builder{urls: sets.New[string]()}
}

// Add records url. Adding after Freeze panics: it would mean a stage ran out of order.
func (b *Builder) Add(url string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.frozen {
		panic("sitemap: Add after Freeze")
	}
	b.urls.Add(url)
}

// Len returns the number of distinct URLs so far.
func (b *Builder) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.urls)
}

// Freeze ends the growing phase and returns the sorted sitemap.
func (b *Builder) Freeze() Sitemap {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.frozen = true
	return Sitemap{entries: sets.Sorted(b.urls)}
}

// Sitemap is the frozen, sorted URL list.
type Sitemap struct {
	entries []string
}

// Entries returns the URLs in ascending order.
func (s Sitemap) Entries() []string { return slices.Clone(s.entries) }

// Contains reports whether url is in the sitemap.
func (s Sitemap) Contains(url string) bool {
	_, found := slices.BinarySearch(s.entries, url)
	return found
}

// Len returns the number of URLs.
func (s Sitemap) Len() int { return len(s.entries) }
