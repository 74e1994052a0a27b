package render

import (
	"errors"
	"fmt"
	"text/template"

	"git.home.luguber.info/inful/sitegen/internal/metadata"
	"git.home.luguber.info/inful/sitegen/internal/postindex"
)

var errUnboundFunc = errors.New("template function called outside a render")

// stubFuncs declares the function names so catalog templates parse before
// the run's aggregates exist. Each render binds the real implementations.
func stubFuncs() template.FuncMap {
	return template.FuncMap{
		"url_for":            func(string, ...any) (string, error) { return "", errUnboundFunc },
		"blogposts_featured": func(int, ...string) ([]postindex.Entry, error) { return nil, errUnboundFunc },
		"blogposts_recent":   func(int, ...string) ([]postindex.Entry, error) { return nil, errUnboundFunc },
		"blogposts_tagged":   func(int, string) ([]postindex.Entry, error) { return nil, errUnboundFunc },
		"blogposts_all":      func(int, ...string) ([]postindex.Entry, error) { return nil, errUnboundFunc },
		"query":              func(string) (any, error) { return nil, errUnboundFunc },
		"absurl":             func(string) string { return "" },
	}
}

// funcs binds the template functions to the run's aggregates and the
// current page's metadata.
func (r *Renderer) funcs(bag metadata.Bag) template.FuncMap {
	posts := r.in.Posts
	return template.FuncMap{
		"url_for": func(route string, pairs ...any) (string, error) {
			params, err := pairsToBag(pairs)
			if err != nil {
				return "", err
			}
			url, err := r.in.Routes.Resolve(route, params)
			if err != nil {
				return "", err
			}
			return url.Relative, nil
		},
		"blogposts_featured": func(count int, tag ...string) ([]postindex.Entry, error) {
			return posts.Select(count, optionalTag(tag), false, true), nil
		},
		"blogposts_recent": func(count int, tag ...string) ([]postindex.Entry, error) {
			return posts.Select(count, optionalTag(tag), true, false), nil
		},
		"blogposts_tagged": func(count int, tag string) ([]postindex.Entry, error) {
			return posts.Select(count, tag, false, false), nil
		},
		"blogposts_all": func(count int, tag ...string) ([]postindex.Entry, error) {
			return posts.Select(count, optionalTag(tag), false, false), nil
		},
		"query": func(path string) (any, error) {
			v, _, err := bag.Query(path)
			return v, err
		},
		"absurl": r.in.Routes.Absolute,
	}
}

func optionalTag(tag []string) string {
	if len(tag) == 0 {
		return ""
	}
	return tag[0]
}

// pairsToBag turns url_for's trailing KEY VALUE arguments into a bag.
func pairsToBag(pairs []any) (metadata.Bag, error) {
	if len(pairs)%2 != 0 {
		return nil, fmt.Errorf("url_for: odd number of key/value arguments")
	}
	bag := make(metadata.Bag, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		key, ok := pairs[i].(string)
		if !ok {
			return nil, fmt.Errorf("url_for: key %v is not a string", pairs[i])
		}
		v, err := metadata.FromAny(pairs[i+1])
		if err != nil {
			return nil, fmt.Errorf("url_for: %s: %w", key, err)
		}
		bag[key] = v
	}
	return bag, nil
}
