package content

import (
	"sort"

	"github.com/inful/mdfp"
)

// ID identifies a record within one run. IDs are assigned in creation order
// and stay valid for the rest of the run.
type ID int

// URL is a resolved record location.
type URL struct {
	Relative string
	Absolute string
}

// Record is one unit of content moving through the pipeline. Fields are
// filled in stage by stage; see the field comments for when each is set.
type Record struct {
	ID         ID
	Kind       Kind
	SourcePath string // relative to the source root, slash separated
	SourceAbs  string

	// Expanded marks records synthesized from a tag page template.
	Expanded bool

	// Meta and Raw are set at load time for every kind but StaticAsset.
	Meta        *Meta
	Raw         string
	Fingerprint string

	URL *URL // set by URL resolution, or by expansion

	OutputRel string // set by output mapping
	OutputAbs string

	Rendered string // set by rendering
}

// IsStaticAsset reports whether the record is copied verbatim.
func (r *Record) IsStaticAsset() bool { return r.Kind == KindStaticAsset }

// ExcludedFromSitemap reports whether the record must stay out of the sitemap.
func (r *Record) ExcludedFromSitemap() bool {
	return r.Meta != nil && r.Meta.ExcludeFromSitemap
}

// Fingerprint returns the content fingerprint of a source split into header and body.
func Fingerprint(header, body string) string {
	return mdfp.CalculateFingerprintFromParts(header, body)
}

// Arena owns every record of a run. Records are only appended.
type Arena struct {
	records []*Record
}

// NewArena returns an empty arena.
func NewArena() *Arena {
	return &Arena{}
}

// Add stores r, assigns its ID and returns it.
func (a *Arena) Add(r *Record) ID {
	r.ID = ID(len(a.records))
	a.records = append(a.records, r)
	return r.ID
}

// Get returns the record with the given ID, or nil.
func (a *Arena) Get(id ID) *Record {
	if id < 0 || int(id) >= len(a.records) {
		return nil
	}
	return a.records[id]
}

// Len returns the number of records.
func (a *Arena) Len() int { return len(a.records) }

// All returns every record in ID order. The slice is a snapshot; records
// added later do not appear in it.
func (a *Arena) All() []*Record {
	return append([]*Record(nil), a.records...)
}

// Filter returns the records matching keep, in ID order.
func (a *Arena) Filter(keep func(*Record) bool) []*Record {
	var out []*Record
	for _, r := range a.records {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out
}

// OfKind returns the non-expanded records of kind k.
func (a *Arena) OfKind(k Kind) []*Record {
	return a.Filter(func(r *Record) bool { return r.Kind == k && !r.Expanded })
}

// CountByKind returns record counts per kind.
func (a *Arena) CountByKind() map[Kind]int {
	out := make(map[Kind]int)
	for _, r := range a.records {
		out[r.Kind]++
	}
	return out
}

// SortBySource orders records by source path, for deterministic arena insertion.
func SortBySource(records []*Record) {
	sort.SliceStable(records, func(i, j int) bool {
		if records[i].SourcePath != records[j].SourcePath {
			return records[i].SourcePath < records[j].SourcePath
		}
		return records[i].Kind < records[j].Kind
	})
}
