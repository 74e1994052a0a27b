package content

import (
	"errors"
	"fmt"
	"path"
	"strconv"
	"strings"

	"git.home.luguber.info/inful/sitegen/internal/metadata"
)

// Bag keys injected by enrichment.
const (
	KeySlug    = "slug"
	KeyDate    = "date"
	KeyYear    = "year"
	KeyMonth   = "month"
	KeyDay     = "day"
	KeyExcerpt = "excerpt"
	KeyTag     = "tag"
)

var (
	// ErrMissingDate is returned for a blog post without a date.
	ErrMissingDate = errors.New("blog post requires a date")
	// ErrInvalidDate is returned for a date that is not YYYY/MM/DD.
	ErrInvalidDate = errors.New("blog post date must be a string in YYYY/MM/DD form")
)

// EnrichOptions carries the run-wide settings enrichment depends on.
type EnrichOptions struct {
	BlogpostTemplate string
}

// Enrich applies kind-specific metadata rules and returns the enriched copy.
// It has no side effects; meta is left untouched.
func Enrich(kind Kind, meta Meta, sourcePath string, opts EnrichOptions) (Meta, error) {
	switch kind {
	case KindBlogPost:
		return enrichBlogPost(meta, sourcePath, opts)
	default:
		return meta.Clone(), nil
	}
}

func enrichBlogPost(meta Meta, sourcePath string, opts EnrichOptions) (Meta, error) {
	out := meta.Clone()
	out.Markdown = true
	out.Template = opts.BlogpostTemplate
	out.OGType = "article"

	base := path.Base(strings.ReplaceAll(sourcePath, "\\", "/"))
	out.Bag.Set(KeySlug, metadata.String(strings.TrimSuffix(base, path.Ext(base))))

	raw, ok := out.Bag.Get(KeyDate)
	if !ok {
		return Meta{}, ErrMissingDate
	}
	date, ok := raw.AsString()
	if !ok {
		return Meta{}, fmt.Errorf("%w: got %s", ErrInvalidDate, raw.Type())
	}
	year, month, day, err := SplitDate(date)
	if err != nil {
		return Meta{}, err
	}
	out.Bag.Set(KeyDate, metadata.String(year+"/"+month+"/"+day))
	out.Bag.Set(KeyYear, metadata.String(year))
	out.Bag.Set(KeyMonth, metadata.String(month))
	out.Bag.Set(KeyDay, metadata.String(day))

	if v, ok := out.Bag.Get(KeyExcerpt); ok {
		if excerpt, ok := v.AsString(); ok {
			out.OGDescription = excerpt
		}
	}
	return out, nil
}

// SplitDate parses "YYYY/MM/DD" and returns the zero-padded components.
// Components must be non-negative integers; ranges are not checked here.
func SplitDate(date string) (year, month, day string, err error) {
	parts := strings.Split(date, "/")
	if len(parts) != 3 {
		return "", "", "", fmt.Errorf("%w: %q", ErrInvalidDate, date)
	}
	nums := make([]int, 3)
	for i, p := range parts {
		if !allDigits(p) {
			return "", "", "", fmt.Errorf("%w: %q", ErrInvalidDate, date)
		}
		n, convErr := strconv.Atoi(p)
		if convErr != nil {
			return "", "", "", fmt.Errorf("%w: %q", ErrInvalidDate, date)
		}
		nums[i] = n
	}
	return fmt.Sprintf("%04d", nums[0]), fmt.Sprintf("%02d", nums[1]), fmt.Sprintf("%02d", nums[2]), nil
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
