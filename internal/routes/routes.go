// Package routes resolves named URL templates such as "/blog/{year}/{slug}"
// against a record's metadata bag.
package routes

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"git.home.luguber.info/inful/sitegen/internal/content"
	"git.home.luguber.info/inful/sitegen/internal/metadata"
)

var (
	// ErrUnknownRoute is returned when a route name is not in the table.
	ErrUnknownRoute = errors.New("unknown route")
	// ErrUnresolvedPlaceholder is returned when `{...}` tokens survive substitution.
	ErrUnresolvedPlaceholder = errors.New("unresolved route placeholder")
)

var placeholder = regexp.MustCompile(`\{[^{}]*\}`)

// Table maps route names to URL templates. It is immutable after construction.
type Table struct {
	siteURL string
	routes  map[string]string
}

// NewTable builds a table. siteURL is prefixed to relative URLs to form
// absolute ones; a trailing slash on it is dropped.
func NewTable(siteURL string, routes map[string]string) *Table {
	copied := make(map[string]string, len(routes))
	for k, v := range routes {
		copied[k] = v
	}
	return &Table{siteURL: strings.TrimSuffix(siteURL, "/"), routes: copied}
}

// SiteURL returns the configured site base URL without a trailing slash.
func (t *Table) SiteURL() string { return t.siteURL }

// Names returns the route names in ascending order.
func (t *Table) Names() []string {
	names := make([]string, 0, len(t.routes))
	for k := range t.routes {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Template returns the URL template for route.
func (t *Table) Template(route string) (string, bool) {
	tmpl, ok := t.routes[route]
	return tmpl, ok
}

// Resolve substitutes bag values into the route's template. Substitution
// repeats while some remaining token names a bag key with a string or integer
// value, so a value may itself introduce further tokens.
func (t *Table) Resolve(route string, bag metadata.Bag) (content.URL, error) {
	tmpl, ok := t.routes[route]
	if !ok {
		return content.URL{}, fmt.Errorf("%w %q", ErrUnknownRoute, route)
	}

	url := tmpl
	// Each pass replaces at least one token; the bound stops values that
	// reintroduce their own token.
	for pass := 0; pass <= len(bag); pass++ {
		replaced := false
		url = placeholder.ReplaceAllStringFunc(url, func(tok string) string {
			v, ok := bag.Get(tok[1 : len(tok)-1])
			if !ok {
				return tok
			}
			text, ok := v.PlaceholderText()
			if !ok {
				return tok
			}
			replaced = true
			return text
		})
		if !replaced {
			break
		}
	}

	if left := placeholder.FindAllString(url, -1); len(left) > 0 {
		return content.URL{}, fmt.Errorf("%w %s in route %q (%s)", ErrUnresolvedPlaceholder, strings.Join(left, ", "), route, tmpl)
	}
	return content.URL{Relative: url, Absolute: t.Absolute(url)}, nil
}

// Absolute prefixes a site-relative URL with the site base URL.
func (t *Table) Absolute(relative string) string {
	if relative != "" && !strings.HasPrefix(relative, "/") {
		relative = "/" + relative
	}
	return t.siteURL + relative
}
