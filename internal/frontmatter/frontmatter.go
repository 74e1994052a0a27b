// Package frontmatter splits content sources into a JSON metadata header and
// a body, and reassembles them.
//
// A source starts with "{\n". The header ends at the first line holding only
// "}" that is followed by a blank line; the body is everything after that
// blank line:
//
//	{
//	  "route": "post",
//	  "title": "Hello"
//	}
//
//	Body text starts here.
package frontmatter

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ohler55/ojg/oj"

	"git.home.luguber.info/inful/sitegen/internal/metadata"
)

var (
	opening    = []byte("{\n")
	terminator = []byte("\n}\n\n")
)

var (
	// ErrMissingOpening indicates the source does not start with "{\n".
	ErrMissingOpening = errors.New("frontmatter must start with '{' followed by a newline")
	// ErrMissingTerminator indicates no "}" line followed by a blank line was found.
	ErrMissingTerminator = errors.New("frontmatter closing '}' line followed by a blank line is missing")
	// ErrMalformedHeader indicates the header is not well-formed JSON.
	ErrMalformedHeader = errors.New("frontmatter header is not valid JSON")
	// ErrNotObject indicates the header parsed to something other than an object.
	ErrNotObject = errors.New("frontmatter header is not a JSON object")
)

// Split separates the metadata header (including both braces) from the body.
func Split(content []byte) (header []byte, body []byte, err error) {
	if !bytes.HasPrefix(content, opening) {
		return nil, nil, ErrMissingOpening
	}
	idx := bytes.Index(content, terminator)
	if idx < 0 {
		return nil, nil, ErrMissingTerminator
	}
	return content[:idx+2], content[idx+len(terminator):], nil
}

// Join reassembles a document from a header produced by Split or Serialize and a body.
func Join(header []byte, body []byte) []byte {
	out := make([]byte, 0, len(header)+2+len(body))
	out = append(out, header...)
	out = append(out, '\n', '\n')
	out = append(out, body...)
	return out
}

// Parse decodes a header into a metadata bag. Integer literals stay integers.
// The header must be strict JSON; oj.Parse silently drops a key without a value.
func Parse(header []byte) (metadata.Bag, error) {
	if !json.Valid(header) {
		return nil, ErrMalformedHeader
	}
	raw, err := oj.Parse(header)
	if err != nil {
		return nil, fmt.Errorf("parse frontmatter: %w", err)
	}
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, ErrNotObject
	}
	bag, err := metadata.BagFromMap(obj)
	if err != nil {
		return nil, fmt.Errorf("parse frontmatter: %w", err)
	}
	return bag, nil
}

// Document is a parsed content source.
type Document struct {
	Header []byte
	Body   []byte
	Meta   metadata.Bag
}

// Read splits content and parses its header in one step.
func Read(content []byte) (Document, error) {
	header, body, err := Split(content)
	if err != nil {
		return Document{}, err
	}
	bag, err := Parse(header)
	if err != nil {
		return Document{}, err
	}
	return Document{Header: header, Body: body, Meta: bag}, nil
}
