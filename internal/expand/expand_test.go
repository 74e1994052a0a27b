package expand

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/sitegen/internal/content"
	"git.home.luguber.info/inful/sitegen/internal/metadata"
	"git.home.luguber.info/inful/sitegen/internal/routes"
	"git.home.luguber.info/inful/sitegen/internal/sitemap"
)

func tagTemplate(route string, exclude bool) *content.Record {
	return &content.Record{
		Kind:       content.KindTagPageTemplate,
		SourcePath: "blog/tag.html",
		Raw:        "{{ .tag }}",
		Meta: &content.Meta{
			Route:              route,
			Title:              "Tag",
			ExcludeFromSitemap: exclude,
			Bag:                metadata.Bag{"section": metadata.String("blog")},
		},
	}
}

func TestTagPages_OneRecordPerTag(t *testing.T) {
	table := routes.NewTable("https://example.com", map[string]string{"tag": "/blog/tags/{tag}", "index": "/"})
	sm := sitemap.NewBuilder()
	sm.Add("/")
	tmpl := tagTemplate("tag", false)

	records, err := TagPages([]*content.Record{tmpl}, []string{"x", "y", "z"}, table, sm)
	require.NoError(t, err)
	require.Len(t, records, 3)

	frozen := sm.Freeze()
	for i, tag := range []string{"x", "y", "z"} {
		r := records[i]
		assert.True(t, r.Expanded)
		assert.Equal(t, content.KindTagPageTemplate, r.Kind)
		assert.Equal(t, metadata.String(tag), r.Meta.Bag["tag"])
		assert.Equal(t, "/blog/tags/"+tag, r.URL.Relative)
		assert.Equal(t, "https://example.com/blog/tags/"+tag, r.URL.Absolute)
		assert.Equal(t, tmpl.Raw, r.Raw)
		assert.True(t, frozen.Contains(r.URL.Relative))
	}
	assert.Equal(t, []string{"/", "/blog/tags/x", "/blog/tags/y", "/blog/tags/z"}, frozen.Entries())
	assert.False(t, tmpl.Meta.Bag.Has("tag"), "the template's own metadata is untouched")
}

func TestTagPages_ExcludedFromSitemap(t *testing.T) {
	table := routes.NewTable("", map[string]string{"tag": "/t/{tag}"})
	sm := sitemap.NewBuilder()

	records, err := TagPages([]*content.Record{tagTemplate("tag", true)}, []string{"a"}, table, sm)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Zero(t, sm.Len())
}

func TestTagPages_UnresolvableRoute(t *testing.T) {
	table := routes.NewTable("", map[string]string{"tag": "/t/{tag}/{page}"})
	_, err := TagPages([]*content.Record{tagTemplate("tag", false)}, []string{"a"}, table, sitemap.NewBuilder())
	require.ErrorIs(t, err, routes.ErrUnresolvedPlaceholder)
}

func TestTagPages_NoTags(t *testing.T) {
	table := routes.NewTable("", map[string]string{"tag": "/t/{tag}"})
	records, err := TagPages([]*content.Record{tagTemplate("tag", false)}, nil, table, sitemap.NewBuilder())
	require.NoError(t, err)
	assert.Empty(t, records)
}
