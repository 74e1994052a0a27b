// Package navigation builds the two-level navigation tree from records that
// declare a navbar placement.
package navigation

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrNoPrimary is returned for a group without an is_primary entry.
	ErrNoPrimary = errors.New("navbar group has no primary entry")
	// ErrMultiplePrimaries is returned for a group with more than one is_primary entry.
	ErrMultiplePrimaries = errors.New("navbar group has more than one primary entry")
)

// Candidate is one navigation-eligible record.
type Candidate struct {
	URL       string
	Title     string
	Index     int64
	Group     string
	IsPrimary bool
	Source    string // for error messages
}

// Entry is a node of the tree. Active is only meaningful on trees returned by For.
type Entry struct {
	URL      string
	Title    string
	Active   bool
	Children []Entry
}

// Tree is the ordered forest of top-level entries.
type Tree struct {
	Entries []Entry
}

type node struct {
	entry Entry
	order int64
}

// Build groups and orders candidates. Candidates should arrive in a
// deterministic order; entries with equal indices keep that order.
func Build(candidates []Candidate) (Tree, error) {
	var top []node
	groups := make(map[string][]Candidate)
	var groupNames []string

	for _, c := range candidates {
		if c.Group == "" {
			top = append(top, node{entry: Entry{URL: c.URL, Title: c.Title}, order: c.Index})
			continue
		}
		if _, seen := groups[c.Group]; !seen {
			groupNames = append(groupNames, c.Group)
		}
		groups[c.Group] = append(groups[c.Group], c)
	}

	for _, name := range groupNames {
		members := groups[name]
		var primaries []Candidate
		var children []Candidate
		for _, c := range members {
			if c.IsPrimary {
				primaries = append(primaries, c)
			} else {
				children = append(children, c)
			}
		}
		switch len(primaries) {
		case 0:
			return Tree{}, fmt.Errorf("%w: %q", ErrNoPrimary, name)
		case 1:
		default:
			sources := make([]string, len(primaries))
			for i, p := range primaries {
				sources[i] = p.Source
			}
			return Tree{}, fmt.Errorf("%w: %q (%s)", ErrMultiplePrimaries, name, strings.Join(sources, ", "))
		}

		sort.SliceStable(children, func(i, j int) bool { return children[i].Index < children[j].Index })
		parent := Entry{URL: primaries[0].URL, Title: primaries[0].Title}
		for _, c := range children {
			parent.Children = append(parent.Children, Entry{URL: c.URL, Title: c.Title})
		}
		top = append(top, node{entry: parent, order: primaries[0].Index})
	}

	sort.SliceStable(top, func(i, j int) bool { return top[i].order < top[j].order })
	tree := Tree{Entries: make([]Entry, len(top))}
	for i, n := range top {
		tree.Entries[i] = n.entry
	}
	return tree, nil
}

// For returns a copy of the tree with Active set relative to the current URL.
// An entry is active when its URL equals current, or when it is not the root
// and current starts with it.
func (t Tree) For(current string) Tree {
	return Tree{Entries: markActive(t.Entries, current)}
}

func markActive(entries []Entry, current string) []Entry {
	if entries == nil {
		return nil
	}
	out := make([]Entry, len(entries))
	for i, e := range entries {
		out[i] = Entry{
			URL:      e.URL,
			Title:    e.Title,
			Active:   IsActive(e.URL, current),
			Children: markActive(e.Children, current),
		}
	}
	return out
}

// IsActive applies the activity rule for a single entry URL.
func IsActive(entryURL, current string) bool {
	return entryURL == current || (entryURL != "/" && strings.HasPrefix(current, entryURL))
}
