package render

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/sitegen/internal/content"
	"git.home.luguber.info/inful/sitegen/internal/markdown"
	"git.home.luguber.info/inful/sitegen/internal/metadata"
	"git.home.luguber.info/inful/sitegen/internal/navigation"
	"git.home.luguber.info/inful/sitegen/internal/postindex"
	"git.home.luguber.info/inful/sitegen/internal/routes"
	"git.home.luguber.info/inful/sitegen/internal/sitemap"
)

type fixture struct {
	catalog *Catalog
	opts    Options
	in      Inputs
}

func newFixture(t *testing.T, templates map[string]string) *fixture {
	t.Helper()
	cat := NewCatalog(false)
	for name, src := range templates {
		require.NoError(t, cat.Add(name, src))
	}

	nav, err := navigation.Build([]navigation.Candidate{
		{URL: "/", Title: "Home", Index: 0},
		{URL: "/blog", Title: "Blog", Index: 1},
	})
	require.NoError(t, err)

	sm := sitemap.NewBuilder()
	sm.Add("/")
	sm.Add("/blog")

	return &fixture{
		catalog: cat,
		opts:    Options{SiteName: "Example", BlogpostTemplate: "blog.html"},
		in: Inputs{
			Routes: routes.NewTable("https://example.com", map[string]string{
				"index": "/",
				"post":  "/blog/{year}/{slug}",
				"tag":   "/blog/tags/{tag}",
			}),
			Nav: nav,
			Posts: postindex.Build([]postindex.Entry{
				{URL: "/blog/2024/b", Slug: "b", Title: "B", Date: "2024/02/01", Year: "2024", Month: "02", MonthName: "February", Tags: []string{"go"}, Featured: true},
				{URL: "/blog/2024/a", Slug: "a", Title: "A", Date: "2024/01/01", Year: "2024", Month: "01", MonthName: "January", Tags: []string{"go", "web"}},
				{URL: "/blog/2023/c", Slug: "c", Title: "C", Date: "2023/05/01", Year: "2023", Month: "05", MonthName: "May", Tags: []string{"web"}},
			}),
			Sitemap: sm.Freeze(),
		},
	}
}

func (f *fixture) renderer(t *testing.T) *Renderer {
	t.Helper()
	r, err := New(f.catalog, markdown.New(markdown.DefaultOptions()), f.opts, f.in)
	require.NoError(t, err)
	return r
}

func page(url, raw string, meta content.Meta) *content.Record {
	if meta.Bag == nil {
		meta.Bag = metadata.Bag{}
	}
	return &content.Record{
		Kind:       content.KindSinglePage,
		SourcePath: "pages" + url + ".html",
		Meta:       &meta,
		Raw:        raw,
		URL:        &content.URL{Relative: url, Absolute: "https://example.com" + url},
	}
}

func TestRender_RawBody(t *testing.T) {
	r := newFixture(t, nil).renderer(t)
	rec := page("/about", `{{ .sitename }}|{{ .title }}|{{ .url_for_this }}|{{ .og_url }}|{{ .color }}`, content.Meta{
		Route: "index",
		Title: "About",
		Bag:   metadata.Bag{"color": metadata.String("blue")},
	})

	out, err := r.Render(rec)
	require.NoError(t, err)
	assert.Equal(t, "Example|About|/about|https://example.com/about|blue", out)
}

func TestRender_BlogPostInlinesMarkdownOnce(t *testing.T) {
	f := newFixture(t, map[string]string{
		"blog.html": "<article><h1>{{ .title }}</h1>{{ .content }}</article>",
	})
	f.opts.RequireBlogpostTemplate = true
	r := f.renderer(t)

	rec := page("/blog/2024/a", "Hello from **{{ .sitename }}**\n", content.Meta{
		Title:    "A",
		Template: "blog.html",
		Markdown: true,
	})
	rec.Kind = content.KindBlogPost

	out, err := r.Render(rec)
	require.NoError(t, err)
	assert.Equal(t, "<article><h1>A</h1><p>Hello from <strong>Example</strong></p>\n</article>", out)
}

func TestRender_CustomPlaceholder(t *testing.T) {
	f := newFixture(t, map[string]string{
		"blog.html": "<main><!-- CONTENT --></main>",
	})
	f.opts.ContentPlaceholder = "<!-- CONTENT -->"
	r := f.renderer(t)

	rec := page("/blog/x", "text\n", content.Meta{Title: "X", Template: "blog.html", Markdown: true})
	rec.Kind = content.KindBlogPost

	out, err := r.Render(rec)
	require.NoError(t, err)
	assert.Equal(t, "<main><p>text</p>\n</main>", out)
}

func TestRender_NamedTemplateUsesCatalog(t *testing.T) {
	r := newFixture(t, map[string]string{
		"base.html": `{{ define "head" }}<title>{{ .og_title }}</title>{{ end }}`,
		"page.html": `{{ template "head" . }}<nav>{{ range .navbar }}{{ if .Active }}[{{ .Title }}]{{ else }}{{ .Title }}{{ end }}{{ end }}</nav>`,
	}).renderer(t)

	rec := page("/blog/2024/a", "ignored", content.Meta{Title: "Post", Template: "page.html"})
	out, err := r.Render(rec)
	require.NoError(t, err)
	assert.Equal(t, "<title>Post</title><nav>Home[Blog]</nav>", out)
}

func TestRender_MarkdownPageWithNamedTemplate(t *testing.T) {
	f := newFixture(t, map[string]string{
		"doc.html": "<div>{{ .content }}</div>",
	})
	rec := page("/doc", "Uses {{ .sitename }}\n", content.Meta{Title: "Doc", Template: "doc.html", Markdown: true})

	out, err := f.renderer(t).Render(rec)
	require.NoError(t, err)
	assert.Equal(t, "<div><p>Uses {{ .sitename }}</p>\n</div>", out, "only blog posts are inlined by default")

	f.opts.Inline = InlineAll
	out, err = f.renderer(t).Render(rec)
	require.NoError(t, err)
	assert.Equal(t, "<div><p>Uses Example</p>\n</div>", out)
}

func TestRender_OGFields(t *testing.T) {
	r := newFixture(t, nil).renderer(t)

	rec := page("/x", "{{ .og_title }}|{{ .og_type }}|{{ .og_description }}", content.Meta{
		Title:         "Title",
		OGType:        "article",
		OGDescription: "desc",
	})
	out, err := r.Render(rec)
	require.NoError(t, err)
	assert.Equal(t, "Title|article|desc", out)

	rec.Meta.OGTitle = "Override"
	out, err = r.Render(rec)
	require.NoError(t, err)
	assert.Equal(t, "Override|article|desc", out)
}

func TestRender_Aggregates(t *testing.T) {
	r := newFixture(t, nil).renderer(t)
	rec := page("/tags", `{{ range .blog_tags_and_counts }}{{ .Tag }}={{ .Count }};{{ end }}|{{ range .blog_archives }}{{ .Year }}-{{ .MonthName }};{{ end }}|{{ range .sitemap }}{{ . }};{{ end }}`, content.Meta{Title: "Tags"})

	out, err := r.Render(rec)
	require.NoError(t, err)
	assert.Equal(t, "web=2;go=2;|2024-February;2024-January;2023-May;|/;/blog;", out)
}

func TestRender_TemplateFuncs(t *testing.T) {
	r := newFixture(t, nil).renderer(t)

	tests := []struct {
		name string
		src  string
		want string
	}{
		{"url_for", `{{ url_for "post" "year" "2024" "slug" "a" }}`, "/blog/2024/a"},
		{"url_for int value", `{{ url_for "post" "year" 2024 "slug" "a" }}`, "/blog/2024/a"},
		{"recent skips featured", `{{ range blogposts_recent 5 }}{{ .Slug }}{{ end }}`, "ac"},
		{"recent with tag", `{{ range blogposts_recent 5 "go" }}{{ .Slug }}{{ end }}`, "a"},
		{"featured", `{{ range blogposts_featured 5 }}{{ .Slug }}{{ end }}`, "b"},
		{"tagged", `{{ range blogposts_tagged 1 "web" }}{{ .Slug }}{{ end }}`, "a"},
		{"all", `{{ range blogposts_all 10 }}{{ .Slug }}{{ end }}`, "bac"},
		{"query", `{{ query "$.author.name" }}`, "Ada"},
		{"absurl", `{{ absurl "/feed.xml" }}`, "https://example.com/feed.xml"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := page("/f", tt.src, content.Meta{
				Title: "F",
				Bag: metadata.Bag{
					"author": metadata.Map(metadata.Bag{"name": metadata.String("Ada")}),
				},
			})
			out, err := r.Render(rec)
			require.NoError(t, err)
			assert.Equal(t, tt.want, out)
		})
	}
}

func TestRender_Errors(t *testing.T) {
	t.Run("unknown named template", func(t *testing.T) {
		r := newFixture(t, nil).renderer(t)
		_, err := r.Render(page("/x", "", content.Meta{Title: "X", Template: "missing.html"}))
		require.ErrorIs(t, err, ErrTemplateNotFound)
	})

	t.Run("syntax error in body", func(t *testing.T) {
		r := newFixture(t, nil).renderer(t)
		_, err := r.Render(page("/x", "{{ .title ", content.Meta{Title: "X"}))
		require.Error(t, err)
	})

	t.Run("url_for unknown route", func(t *testing.T) {
		r := newFixture(t, nil).renderer(t)
		_, err := r.Render(page("/x", `{{ url_for "nope" }}`, content.Meta{Title: "X"}))
		require.ErrorIs(t, err, routes.ErrUnknownRoute)
	})

	t.Run("strict missing key", func(t *testing.T) {
		f := newFixture(t, nil)
		f.catalog = NewCatalog(true)
		_, err := f.renderer(t).Render(page("/x", "{{ .nothing }}", content.Meta{Title: "X"}))
		require.Error(t, err)
	})

	t.Run("record without url", func(t *testing.T) {
		r := newFixture(t, nil).renderer(t)
		rec := page("/x", "", content.Meta{Title: "X"})
		rec.URL = nil
		_, err := r.Render(rec)
		require.Error(t, err)
	})
}

func TestNew_BlogpostTemplateRequirement(t *testing.T) {
	f := newFixture(t, nil)
	_, err := New(f.catalog, markdown.New(markdown.DefaultOptions()), f.opts, f.in)
	require.NoError(t, err, "no blog posts, no requirement")

	f.opts.RequireBlogpostTemplate = true
	_, err = New(f.catalog, markdown.New(markdown.DefaultOptions()), f.opts, f.in)
	require.ErrorIs(t, err, ErrMissingBlogpostTemplate)
}

func TestCatalog(t *testing.T) {
	cat := NewCatalog(false)
	require.NoError(t, cat.Add("b.html", "B"))
	require.NoError(t, cat.Add("a.html", "A {{ url_for \"index\" }}"))
	assert.Equal(t, []string{"a.html", "b.html"}, cat.Names())
	assert.True(t, cat.Has("a.html"))
	assert.Equal(t, 2, cat.Len())

	src, ok := cat.Source("b.html")
	require.True(t, ok)
	assert.Equal(t, "B", src)

	err := cat.Add("broken.html", "{{ if }}")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken.html")
	assert.False(t, cat.Has("broken.html"))
}

func TestTemplateName(t *testing.T) {
	tests := []struct {
		pattern, path, want string
	}{
		{"templates/**/*.html", "templates/base.html", "base.html"},
		{"templates/**/*.html", "templates/blog/post.html", "blog/post.html"},
		{"*.html", "index.html", "index.html"},
		{"layout/{a,b}.html", "layout/a.html", "a.html"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, TemplateName(tt.pattern, tt.path), tt.pattern)
	}
}
