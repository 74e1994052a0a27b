// Package postindex builds the chronological blog post index and the views
// derived from it: featured posts, tag counts and monthly archives.
package postindex

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"git.home.luguber.info/inful/sitegen/internal/content"
)

var (
	// ErrMissingExcerpt is returned for a post without a string excerpt.
	ErrMissingExcerpt = errors.New("blog post requires a string excerpt")
	// ErrInvalidMonth is returned for a month code outside 01-12.
	ErrInvalidMonth = errors.New("invalid month")
)

var monthNames = map[string]string{
	"01": "January",
	"02": "February",
	"03": "March",
	"04": "April",
	"05": "May",
	"06": "June",
	"07": "July",
	"08": "August",
	"09": "September",
	"10": "October",
	"11": "November",
	"12": "December",
}

// MonthName returns the calendar name for a two-digit month code.
func MonthName(code string) (string, bool) {
	name, ok := monthNames[code]
	return name, ok
}

// Entry is one post in the index.
type Entry struct {
	URL       string
	Slug      string
	Title     string
	Excerpt   string
	Date      string
	Year      string
	Month     string
	MonthName string
	Day       string
	Tags      []string
	Featured  bool
}

// HasTag reports whether the post carries tag.
func (e Entry) HasTag(tag string) bool {
	for _, t := range e.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// TagCount is one row of the tag count view.
type TagCount struct {
	Tag   string
	Count int
}

// Archive groups the posts of one month, newest first.
type Archive struct {
	Year      string
	Month     string
	MonthName string
	Posts     []Entry
}

// Index is the frozen, date-descending post index.
type Index struct {
	entries []Entry
}

// EntryFromRecord projects a BlogPost record into an index entry.
func EntryFromRecord(r *content.Record) (Entry, error) {
	if r.Meta == nil || r.URL == nil {
		return Entry{}, fmt.Errorf("post %s has no metadata or URL", r.SourcePath)
	}
	bag := r.Meta.Bag
	e := Entry{URL: r.URL.Relative, Title: r.Meta.Title}

	var err error
	if e.Excerpt, err = bag.RequireString(content.KeyExcerpt); err != nil {
		return Entry{}, fmt.Errorf("%w: %w", ErrMissingExcerpt, err)
	}
	for key, dst := range map[string]*string{
		content.KeySlug:  &e.Slug,
		content.KeyDate:  &e.Date,
		content.KeyYear:  &e.Year,
		content.KeyMonth: &e.Month,
		content.KeyDay:   &e.Day,
	} {
		if *dst, err = bag.RequireString(key); err != nil {
			return Entry{}, err
		}
	}
	name, ok := MonthName(e.Month)
	if !ok {
		return Entry{}, fmt.Errorf("%w %q", ErrInvalidMonth, e.Month)
	}
	e.MonthName = name

	// Malformed tags and featured values fall back to their defaults.
	if e.Tags, err = bag.StringList("tags"); err != nil {
		e.Tags = []string{}
	}
	if e.Featured, err = bag.OptionalBool("featured", false); err != nil {
		e.Featured = false
	}
	return e, nil
}

// Build sorts entries by date, newest first. Posts sharing a date are
// ordered by URL so the index is stable across runs.
func Build(entries []Entry) *Index {
	sorted := append([]Entry(nil), entries...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Date != sorted[j].Date {
			return sorted[i].Date > sorted[j].Date
		}
		return sorted[i].URL < sorted[j].URL
	})
	return &Index{entries: sorted}
}

// Len returns the number of posts.
func (ix *Index) Len() int { return len(ix.entries) }

// All returns every post, newest first.
func (ix *Index) All() []Entry { return append([]Entry(nil), ix.entries...) }

// Recent returns every post, newest first. Template helpers apply their own
// filtering on top.
func (ix *Index) Recent() []Entry { return ix.All() }

// Featured returns the featured posts, newest first.
func (ix *Index) Featured() []Entry {
	var out []Entry
	for _, e := range ix.entries {
		if e.Featured {
			out = append(out, e)
		}
	}
	return out
}

// Select returns up to count posts, newest first. A non-empty tag keeps only
// posts carrying it; skipFeatured drops featured posts; featuredOnly keeps
// only featured posts.
func (ix *Index) Select(count int, tag string, skipFeatured, featuredOnly bool) []Entry {
	if count <= 0 {
		return []Entry{}
	}
	out := make([]Entry, 0, min(count, len(ix.entries)))
	for _, e := range ix.entries {
		if len(out) >= count {
			break
		}
		if skipFeatured && e.Featured {
			continue
		}
		if featuredOnly && !e.Featured {
			continue
		}
		if tag != "" && !e.HasTag(tag) {
			continue
		}
		out = append(out, e)
	}
	return out
}

// TagCounts counts tag occurrences, ordered by count descending and then by
// tag name descending.
func (ix *Index) TagCounts() []TagCount {
	counts := make(map[string]int)
	for _, e := range ix.entries {
		for _, t := range e.Tags {
			counts[t]++
		}
	}
	out := make([]TagCount, 0, len(counts))
	for tag, n := range counts {
		out = append(out, TagCount{Tag: tag, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Tag > out[j].Tag
	})
	return out
}

// Tags returns the distinct tags in TagCounts order.
func (ix *Index) Tags() []string {
	counts := ix.TagCounts()
	out := make([]string, len(counts))
	for i, c := range counts {
		out[i] = c.Tag
	}
	return out
}

// Archives groups posts by (year, month), newest month first.
func (ix *Index) Archives() []Archive {
	byKey := make(map[string]*Archive)
	var keys []string
	for _, e := range ix.entries {
		key := e.Year + "/" + e.Month
		a, ok := byKey[key]
		if !ok {
			a = &Archive{Year: e.Year, Month: e.Month, MonthName: e.MonthName}
			byKey[key] = a
			keys = append(keys, key)
		}
		a.Posts = append(a.Posts, e)
	}
	sort.Slice(keys, func(i, j int) bool { return strings.Compare(keys[i], keys[j]) > 0 })
	out := make([]Archive, len(keys))
	for i, k := range keys {
		out[i] = *byKey[k]
	}
	return out
}
