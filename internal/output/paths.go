// Package output maps record URLs to files under the output root and writes
// them.
package output

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
)

// IndexFile is appended to URLs without an extension.
const IndexFile = "index.html"

// ErrEscapesRoot is returned for output paths that would leave the output root.
var ErrEscapesRoot = errors.New("output path escapes output directory")

// RelativePath maps a URL to a slash-separated output path. The URL path is
// kept as is; when its last segment has no extension, index.html is appended.
// "/blog/post" becomes "/blog/post/index.html" and "/feed.xml" stays.
func RelativePath(url string) string {
	if path.Ext(url) != "" {
		return url
	}
	return path.Join(url, IndexFile)
}

// AbsolutePath joins rel, without its leading separator, onto root.
func AbsolutePath(root, rel string) (string, error) {
	cleaned := path.Clean("/" + strings.TrimPrefix(rel, "/"))
	full := filepath.Join(root, filepath.FromSlash(strings.TrimPrefix(cleaned, "/")))
	back, err := filepath.Rel(root, full)
	if err != nil || back == "." || strings.HasPrefix(back, "..") {
		return "", fmt.Errorf("%w: %s", ErrEscapesRoot, rel)
	}
	return full, nil
}

// PrepareDirs creates the distinct parent directories of paths and returns
// them in sorted order.
func PrepareDirs(paths []string) ([]string, error) {
	seen := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		seen[filepath.Dir(p)] = struct{}{}
	}
	dirs := make([]string, 0, len(seen))
	for d := range seen {
		dirs = append(dirs, d)
	}
	sort.Strings(dirs)

	for _, d := range dirs {
		if err := os.MkdirAll(d, 0o750); err != nil {
			return nil, fmt.Errorf("create output directory %s: %w", d, err)
		}
	}
	return dirs, nil
}
