// Package markdown converts Markdown bodies to HTML with goldmark.
package markdown

import (
	"bytes"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

// Options controls Markdown conversion.
type Options struct {
	// GFM enables the GitHub Flavored Markdown extensions (tables,
	// strikethrough, autolinks, task lists).
	GFM bool
	// UnsafeHTML passes raw HTML blocks and inline HTML through unchanged.
	UnsafeHTML bool
}

// DefaultOptions matches plain CommonMark with raw HTML allowed.
func DefaultOptions() Options {
	return Options{UnsafeHTML: true}
}

// Converter renders Markdown to HTML. It is safe for concurrent use.
type Converter struct {
	md goldmark.Markdown
}

// New builds a Converter for opts.
func New(opts Options) *Converter {
	var gmOpts []goldmark.Option
	if opts.GFM {
		gmOpts = append(gmOpts, goldmark.WithExtensions(extension.GFM))
	}
	if opts.UnsafeHTML {
		gmOpts = append(gmOpts, goldmark.WithRendererOptions(html.WithUnsafe()))
	}
	return &Converter{md: goldmark.New(gmOpts...)}
}

// Convert renders body to HTML.
func (c *Converter) Convert(body string) (string, error) {
	var buf bytes.Buffer
	buf.Grow(len(body) * 3 / 2)
	if err := c.md.Convert([]byte(body), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}
