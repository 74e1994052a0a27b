package helpers

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// FileAssertions checks the state of a generated output tree. Paths are
// slash separated and relative to the tree root.
type FileAssertions struct {
	t       *testing.T
	baseDir string
}

// NewFileAssertions creates a new file assertions helper.
func NewFileAssertions(t *testing.T, baseDir string) *FileAssertions {
	return &FileAssertions{
		t:       t,
		baseDir: baseDir,
	}
}

func (fa *FileAssertions) path(rel string) string {
	return filepath.Join(fa.baseDir, filepath.FromSlash(rel))
}

// AssertFileExists validates that a regular file exists.
func (fa *FileAssertions) AssertFileExists(relativePath string) *FileAssertions {
	fa.t.Helper()
	stat, err := os.Stat(fa.path(relativePath))
	if assert.NoError(fa.t, err, "expected file %s", relativePath) {
		assert.False(fa.t, stat.IsDir(), "expected %s to be a file", relativePath)
	}
	return fa
}

// AssertNotExists validates that nothing exists at the path.
func (fa *FileAssertions) AssertNotExists(relativePath string) *FileAssertions {
	fa.t.Helper()
	_, err := os.Stat(fa.path(relativePath))
	assert.ErrorIs(fa.t, err, fs.ErrNotExist, "expected %s to be absent", relativePath)
	return fa
}

// AssertDirExists validates that a directory exists.
func (fa *FileAssertions) AssertDirExists(relativePath string) *FileAssertions {
	fa.t.Helper()
	stat, err := os.Stat(fa.path(relativePath))
	if assert.NoError(fa.t, err, "expected directory %s", relativePath) {
		assert.True(fa.t, stat.IsDir(), "expected %s to be a directory", relativePath)
	}
	return fa
}

// AssertFileContains validates that a file contains expected content.
func (fa *FileAssertions) AssertFileContains(relativePath, expectedContent string) *FileAssertions {
	fa.t.Helper()
	assert.Contains(fa.t, fa.ReadFile(relativePath), expectedContent, relativePath)
	return fa
}

// AssertFileEquals validates the exact content of a file.
func (fa *FileAssertions) AssertFileEquals(relativePath, expected string) *FileAssertions {
	fa.t.Helper()
	assert.Equal(fa.t, expected, fa.ReadFile(relativePath), relativePath)
	return fa
}

// ReadFile returns the content of a file, failing the test when unreadable.
func (fa *FileAssertions) ReadFile(relativePath string) string {
	fa.t.Helper()
	data, err := os.ReadFile(fa.path(relativePath))
	require.NoError(fa.t, err)
	return string(data)
}

// Files lists every regular file below the root, sorted, slash separated.
func (fa *FileAssertions) Files() []string {
	fa.t.Helper()
	var files []string
	err := filepath.WalkDir(fa.baseDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(fa.baseDir, p)
		if err != nil {
			return err
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	require.NoError(fa.t, err)
	sort.Strings(files)
	return files
}
