package frontmatter

import (
	"bytes"
	"encoding/json"

	"git.home.luguber.info/inful/sitegen/internal/metadata"
)

// Serialize renders a bag as a header accepted by Split: keys sorted,
// two-space indentation, no HTML escaping, no trailing newline.
func Serialize(bag metadata.Bag) ([]byte, error) {
	if len(bag) == 0 {
		return []byte("{\n}"), nil
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(bag.ToMap()); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}
