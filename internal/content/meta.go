package content

import (
	"errors"
	"fmt"

	"git.home.luguber.info/inful/sitegen/internal/metadata"
)

// Header keys with a typed meaning. They are lifted out of the bag by DecodeMeta.
const (
	KeyRoute              = "route"
	KeyTitle              = "title"
	KeyTemplate           = "template"
	KeyNavbar             = "navbar"
	KeyMarkdown           = "markdown"
	KeyExcludeFromSitemap = "exclude_from_sitemap"
	KeyOGTitle            = "og_title"
	KeyOGType             = "og_type"
	KeyOGDescription      = "og_description"
)

// Navbar is a record's placement in the navigation tree.
type Navbar struct {
	Index     int64
	Group     string
	IsPrimary bool
}

// Meta is the typed view of a record's header plus its open key/value bag.
type Meta struct {
	Route              string
	Title              string
	Template           string
	Navbar             *Navbar
	Markdown           bool
	ExcludeFromSitemap bool
	OGTitle            string
	OGType             string
	OGDescription      string
	Bag                metadata.Bag
}

// Clone returns a deep copy of m.
func (m Meta) Clone() Meta {
	out := m
	if m.Navbar != nil {
		nav := *m.Navbar
		out.Navbar = &nav
	}
	out.Bag = m.Bag.Clone()
	return out
}

// OGTitleOrTitle returns the OpenGraph title, falling back to the page title.
func (m Meta) OGTitleOrTitle() string {
	if m.OGTitle != "" {
		return m.OGTitle
	}
	return m.Title
}

// ErrInvalidMeta wraps every header shape violation reported by DecodeMeta.
var ErrInvalidMeta = errors.New("invalid metadata")

// DecodeMeta validates the typed header fields of a parsed header and returns
// them with the remaining keys left in the bag.
func DecodeMeta(header metadata.Bag) (Meta, error) {
	bag := header.Clone()
	var m Meta
	var err error

	if m.Route, err = bag.RequireString(KeyRoute); err != nil {
		return Meta{}, invalid(err)
	}
	if m.Title, err = bag.RequireString(KeyTitle); err != nil {
		return Meta{}, invalid(err)
	}
	if m.Template, _, err = bag.OptionalString(KeyTemplate); err != nil {
		return Meta{}, invalid(err)
	}
	if m.Markdown, err = bag.OptionalBool(KeyMarkdown, false); err != nil {
		return Meta{}, invalid(err)
	}
	if m.ExcludeFromSitemap, err = bag.OptionalBool(KeyExcludeFromSitemap, false); err != nil {
		return Meta{}, invalid(err)
	}
	for key, dst := range map[string]*string{KeyOGTitle: &m.OGTitle, KeyOGType: &m.OGType, KeyOGDescription: &m.OGDescription} {
		if *dst, _, err = bag.OptionalString(key); err != nil {
			return Meta{}, invalid(err)
		}
	}
	if v, ok := bag.Get(KeyNavbar); ok {
		nav, err := decodeNavbar(v)
		if err != nil {
			return Meta{}, invalid(err)
		}
		m.Navbar = nav
	}

	for _, key := range []string{KeyRoute, KeyTitle, KeyTemplate, KeyNavbar, KeyMarkdown, KeyExcludeFromSitemap, KeyOGTitle, KeyOGType, KeyOGDescription} {
		delete(bag, key)
	}
	m.Bag = bag
	return m, nil
}

func decodeNavbar(v metadata.Value) (*Navbar, error) {
	obj, ok := v.AsMap()
	if !ok {
		return nil, fmt.Errorf("%q is %s, want object: %w", KeyNavbar, v.Type(), metadata.ErrWrongType)
	}
	idxVal, ok := obj.Get("index")
	if !ok {
		return nil, fmt.Errorf("%q.index: %w", KeyNavbar, metadata.ErrMissingKey)
	}
	idx, ok := idxVal.AsInt()
	if !ok {
		return nil, fmt.Errorf("%q.index is %s, want integer: %w", KeyNavbar, idxVal.Type(), metadata.ErrWrongType)
	}
	group, _, err := obj.OptionalString("group")
	if err != nil {
		return nil, fmt.Errorf("%q: %w", KeyNavbar, err)
	}
	primary, err := obj.OptionalBool("is_primary", false)
	if err != nil {
		return nil, fmt.Errorf("%q: %w", KeyNavbar, err)
	}
	return &Navbar{Index: idx, Group: group, IsPrimary: primary}, nil
}

func invalid(err error) error {
	return fmt.Errorf("%w: %w", ErrInvalidMeta, err)
}
