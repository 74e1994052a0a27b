package linkcheck

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	helpers "git.home.luguber.info/inful/sitegen/internal/testutil/testutils"
)

func TestExtract(t *testing.T) {
	doc := `<html><head><link rel="stylesheet" href="/css/site.css"><script src="https://cdn.example.net/x.js"></script></head>
<body><a href="/about">About</a><a href="#top">Top</a><a href="mailto:me@example.com">Mail</a>
<img src="img/logo.png"><a href="https://example.com/blog">Blog</a></body></html>`

	links, err := Extract(strings.NewReader(doc), "https://example.com")
	require.NoError(t, err)

	var got []string
	for _, l := range links {
		mark := "ext"
		if l.Internal {
			mark = "int"
		}
		got = append(got, l.Tag+":"+l.URL+":"+mark)
	}
	assert.Equal(t, []string{
		"link:/css/site.css:int",
		"script:https://cdn.example.net/x.js:ext",
		"a:/about:int",
		"a:#top:ext",
		"a:mailto:me@example.com:ext",
		"img:img/logo.png:int",
		"a:https://example.com/blog:int",
	}, got)
}

func TestResolve(t *testing.T) {
	tests := []struct{ page, target, want string }{
		{"index.html", "/about", "about"},
		{"blog/post/index.html", "../other/", "blog/other/"},
		{"blog/post/index.html", "img/a.png", "blog/post/img/a.png"},
		{"blog/post/index.html", "/feed.xml?x=1#frag", "feed.xml"},
		{"index.html", "https://example.com/", ""},
		{"a/index.html", "?page=2", "a/index.html"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, resolve(tt.page, tt.target), tt.target)
	}
}

func TestChecker_Run(t *testing.T) {
	root := t.TempDir()
	helpers.WriteTree(t, root, map[string]string{
		"index.html":       `<a href="/about">a</a><a href="/blog/">b</a><a href="/missing">m</a><img src="/img/logo.png"><a href="https://elsewhere.org/x">x</a>`,
		"about/index.html": `<a href="../">home</a><a href="https://example.com/gone.html">gone</a>`,
		"blog/index.html":  `<link href="/feed.xml">`,
		"img/logo.png":     "png",
		"feed.xml":         "<rss/>",
	})

	res, err := NewChecker(root, "https://example.com", 2).Run(t.Context())
	require.NoError(t, err)

	assert.Equal(t, 3, res.Pages)
	assert.Equal(t, 8, res.Links)
	assert.Equal(t, 7, res.Checked)
	require.Len(t, res.Broken, 2)
	assert.Equal(t, Broken{Page: "about/index.html", Target: "https://example.com/gone.html", Tag: "a", Line: 5}, res.Broken[0])
	assert.Equal(t, "index.html", res.Broken[1].Page)
	assert.Equal(t, "/missing", res.Broken[1].Target)
}
