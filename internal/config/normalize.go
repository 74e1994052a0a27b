package config

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"git.home.luguber.info/inful/sitegen/internal/content"
)

// NormalizationResult captures adjustments made while normalizing.
type NormalizationResult struct{ Warnings []string }

// Normalize resolves relative directories against base, parses source kinds
// and canonicalizes enumerated fields. It mutates cfg in place.
func Normalize(cfg *Config, base string) (*NormalizationResult, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config nil")
	}
	res := &NormalizationResult{}

	cfg.SourceDir = absolute(base, cfg.SourceDir)
	cfg.OutputDir = absolute(base, cfg.OutputDir)
	if cfg.History.Path != "" {
		cfg.History.Path = absolute(base, cfg.History.Path)
	}

	globs := make([]SourceGlob, 0, len(cfg.Sources))
	for pattern, kindName := range cfg.Sources {
		kind, err := content.ParseKind(kindName)
		if err != nil {
			return nil, fmt.Errorf("sources[%q]: %w", pattern, err)
		}
		clean := filepath.ToSlash(strings.TrimPrefix(pattern, "./"))
		if clean != pattern {
			res.Warnings = append(res.Warnings, warnChanged("sources glob", pattern, clean))
		}
		globs = append(globs, SourceGlob{Pattern: clean, Kind: kind})
	}
	sort.Slice(globs, func(i, j int) bool { return globs[i].Pattern < globs[j].Pattern })
	cfg.sourceGlobs = globs

	mode := strings.ToLower(strings.TrimSpace(cfg.Render.InlineMarkdown))
	switch mode {
	case InlineBlogPosts, InlineAll:
	default:
		res.Warnings = append(res.Warnings, warnUnknown("render.inline_markdown", cfg.Render.InlineMarkdown, InlineBlogPosts))
		mode = InlineBlogPosts
	}
	cfg.Render.InlineMarkdown = mode

	cfg.SiteURL = strings.TrimSuffix(strings.TrimSpace(cfg.SiteURL), "/")
	return res, nil
}

func absolute(base, p string) string {
	if p == "" || p == "." {
		return filepath.Clean(base)
	}
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(base, p)
}

func warnChanged(field string, from, to any) string {
	return fmt.Sprintf("normalized %s from '%v' to '%v'", field, from, to)
}

func warnUnknown(field, value, def string) string {
	return fmt.Sprintf("unknown %s '%s', defaulting to %s", field, value, def)
}
