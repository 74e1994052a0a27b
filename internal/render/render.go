package render

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"text/template"

	"git.home.luguber.info/inful/sitegen/internal/content"
	"git.home.luguber.info/inful/sitegen/internal/markdown"
	"git.home.luguber.info/inful/sitegen/internal/navigation"
	"git.home.luguber.info/inful/sitegen/internal/postindex"
	"git.home.luguber.info/inful/sitegen/internal/routes"
	"git.home.luguber.info/inful/sitegen/internal/sitemap"
)

// DefaultContentPlaceholder is the token replaced by converted Markdown.
const DefaultContentPlaceholder = "{{ .content }}"

// ErrMissingBlogpostTemplate is returned when blog posts exist but the
// configured blog-post template is not in the catalog.
var ErrMissingBlogpostTemplate = errors.New("blogpost template not found")

// InlineMode selects which markdown records get placeholder substitution.
type InlineMode string

const (
	InlineBlogPosts InlineMode = "blogpost"
	InlineAll       InlineMode = "all"
)

// Options are the per-run rendering settings.
type Options struct {
	SiteName           string
	BlogpostTemplate   string
	ContentPlaceholder string
	Inline             InlineMode
	Revision           string
	// RequireBlogpostTemplate is set when the run holds blog posts.
	RequireBlogpostTemplate bool
}

// Inputs are the aggregates templates can reach.
type Inputs struct {
	Routes  *routes.Table
	Nav     navigation.Tree
	Posts   *postindex.Index
	Sitemap sitemap.Sitemap
}

// Renderer renders records for one run.
type Renderer struct {
	catalog *Catalog
	md      *markdown.Converter
	opts    Options
	in      Inputs

	tagCounts []postindex.TagCount
	archives  []postindex.Archive
	sitemap   []string
}

// New validates opts against the catalog and precomputes the shared views.
func New(catalog *Catalog, md *markdown.Converter, opts Options, in Inputs) (*Renderer, error) {
	if opts.ContentPlaceholder == "" {
		opts.ContentPlaceholder = DefaultContentPlaceholder
	}
	if opts.Inline == "" {
		opts.Inline = InlineBlogPosts
	}
	if opts.RequireBlogpostTemplate && !catalog.Has(opts.BlogpostTemplate) {
		return nil, fmt.Errorf("%w: %q", ErrMissingBlogpostTemplate, opts.BlogpostTemplate)
	}
	if in.Posts == nil {
		in.Posts = postindex.Build(nil)
	}
	return &Renderer{
		catalog:   catalog,
		md:        md,
		opts:      opts,
		in:        in,
		tagCounts: in.Posts.TagCounts(),
		archives:  in.Posts.Archives(),
		sitemap:   in.Sitemap.Entries(),
	}, nil
}

// Render produces the final text of a non-asset record with a URL.
func (r *Renderer) Render(rec *content.Record) (string, error) {
	if rec.Meta == nil || rec.URL == nil {
		return "", fmt.Errorf("record %s is not ready to render", rec.SourcePath)
	}
	meta := rec.Meta

	var html string
	if meta.Markdown {
		var err error
		if html, err = r.md.Convert(rec.Raw); err != nil {
			return "", fmt.Errorf("convert markdown: %w", err)
		}
	}

	tmpl, err := r.catalog.clone()
	if err != nil {
		return "", fmt.Errorf("clone catalog: %w", err)
	}
	tmpl.Funcs(r.funcs(meta.Bag))
	data := r.context(rec, html)

	switch {
	case meta.Template != "" && r.inlines(rec):
		src, ok := r.catalog.Source(meta.Template)
		if !ok {
			return "", fmt.Errorf("%w: %q", ErrTemplateNotFound, meta.Template)
		}
		merged := strings.ReplaceAll(src, r.opts.ContentPlaceholder, html)
		return executeString(tmpl, rec.SourcePath, merged, data)
	case meta.Template != "":
		named := tmpl.Lookup(meta.Template)
		if named == nil {
			return "", fmt.Errorf("%w: %q", ErrTemplateNotFound, meta.Template)
		}
		return execute(named, data)
	default:
		return executeString(tmpl, rec.SourcePath, rec.Raw, data)
	}
}

func (r *Renderer) inlines(rec *content.Record) bool {
	if rec.Kind == content.KindBlogPost {
		return true
	}
	return r.opts.Inline == InlineAll && rec.Meta.Markdown
}

// context assembles the template data of one record.
func (r *Renderer) context(rec *content.Record, html string) map[string]any {
	meta := rec.Meta
	data := make(map[string]any, len(meta.Bag)+16)
	for k, v := range meta.Bag {
		data[k] = v.Interface()
	}
	data["sitename"] = r.opts.SiteName
	data["title"] = meta.Title
	data["navbar"] = r.in.Nav.For(rec.URL.Relative).Entries
	if meta.Markdown {
		data["content"] = html
	}
	data["blog_tags_and_counts"] = r.tagCounts
	data["blog_archives"] = r.archives
	data["sitemap"] = r.sitemap
	data["url_for_this"] = rec.URL.Relative
	data["og_url"] = rec.URL.Absolute
	data["og_type"] = meta.OGType
	data["og_title"] = meta.OGTitleOrTitle()
	data["og_description"] = meta.OGDescription
	if r.opts.Revision != "" {
		data["site_revision"] = r.opts.Revision
	}
	return data
}

// executeString parses src as a page template inside the cloned set, so it
// can invoke catalog templates, and executes it.
func executeString(set *template.Template, name, src string, data map[string]any) (string, error) {
	page, err := set.New("page:" + name).Parse(src)
	if err != nil {
		return "", fmt.Errorf("parse %s: %w", name, err)
	}
	return execute(page, data)
}

func execute(t *template.Template, data map[string]any) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s: %w", t.Name(), err)
	}
	return buf.String(), nil
}
