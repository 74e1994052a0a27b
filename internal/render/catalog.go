package render

import (
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"
	"text/template"

	"github.com/bmatcuk/doublestar/v4"
)

// ErrTemplateNotFound is returned when a record names a template the catalog
// does not hold.
var ErrTemplateNotFound = errors.New("template not found")

// Catalog is the named template set shared by every record of a run. It is
// filled during loading and read-only afterwards.
type Catalog struct {
	root    *template.Template
	sources map[string]string
	strict  bool
}

// NewCatalog creates an empty catalog. With strict set, a missing map key
// fails execution instead of rendering "<no value>".
func NewCatalog(strict bool) *Catalog {
	c := &Catalog{root: template.New("").Funcs(stubFuncs()), sources: make(map[string]string), strict: strict}
	c.applyOptions(c.root)
	return c
}

// Add parses src under name. Parse errors are returned as-is, prefixed with
// the template name.
func (c *Catalog) Add(name, src string) error {
	if _, err := c.root.New(name).Parse(src); err != nil {
		return fmt.Errorf("parse template %s: %w", name, err)
	}
	c.sources[name] = src
	return nil
}

// Has reports whether name was added.
func (c *Catalog) Has(name string) bool {
	_, ok := c.sources[name]
	return ok
}

// Source returns the raw text of a named template.
func (c *Catalog) Source(name string) (string, bool) {
	src, ok := c.sources[name]
	return src, ok
}

// Names returns the template names in sorted order.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.sources))
	for name := range c.sources {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of templates.
func (c *Catalog) Len() int { return len(c.sources) }

func (c *Catalog) clone() (*template.Template, error) {
	t, err := c.root.Clone()
	if err != nil {
		return nil, err
	}
	c.applyOptions(t)
	return t, nil
}

func (c *Catalog) applyOptions(t *template.Template) {
	if c.strict {
		t.Option("missingkey=error")
	}
}

// TemplateName derives the catalog name of a template file matched by
// pattern: its path relative to the pattern's static base directory. Both
// arguments are slash separated and relative to the source root.
func TemplateName(pattern, relPath string) string {
	base, _ := doublestar.SplitPattern(pattern)
	if base == "." || base == "" {
		return relPath
	}
	base = path.Clean(base)
	if rest, ok := strings.CutPrefix(relPath, base+"/"); ok {
		return rest
	}
	return relPath
}
