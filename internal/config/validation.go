package config

import (
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"git.home.luguber.info/inful/sitegen/internal/content"
)

// Validate checks a normalized configuration. All problems are reported
// together.
func Validate(cfg *Config) error {
	var errs []error

	if len(cfg.sourceGlobs) == 0 {
		errs = append(errs, errors.New("sources: at least one source glob is required"))
	}
	hasBlogPosts := false
	for _, g := range cfg.sourceGlobs {
		if !doublestar.ValidatePattern(g.Pattern) {
			errs = append(errs, fmt.Errorf("sources: invalid glob %q", g.Pattern))
		}
		if g.Kind == content.KindBlogPost {
			hasBlogPosts = true
		}
	}
	if hasBlogPosts && cfg.BlogpostTemplate == "" {
		errs = append(errs, errors.New("blogpost_template is required when a blogpost source is configured"))
	}

	for name, tmpl := range cfg.Routes {
		if strings.TrimSpace(tmpl) == "" {
			errs = append(errs, fmt.Errorf("routes[%q]: empty URL template", name))
		}
	}

	if cfg.SiteURL != "" {
		u, err := url.Parse(cfg.SiteURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("site_url %q must be an absolute URL", cfg.SiteURL))
		}
	}

	if cfg.SourceDir == cfg.OutputDir {
		errs = append(errs, errors.New("output_dir must differ from source_dir"))
	} else if rel, err := filepath.Rel(cfg.OutputDir, cfg.SourceDir); err == nil && !strings.HasPrefix(rel, "..") {
		errs = append(errs, errors.New("source_dir must not be inside output_dir"))
	}

	if cfg.Build.Workers < 0 {
		errs = append(errs, errors.New("build.workers must not be negative"))
	}
	if cfg.Serve.Port < 0 || cfg.Serve.Port > 65535 {
		errs = append(errs, fmt.Errorf("serve.port %d out of range", cfg.Serve.Port))
	}
	if cfg.Serve.RebuildInterval != "" {
		if d, err := time.ParseDuration(cfg.Serve.RebuildInterval); err != nil || d <= 0 {
			errs = append(errs, fmt.Errorf("serve.rebuild_interval %q is not a positive duration", cfg.Serve.RebuildInterval))
		}
	}
	if cfg.Render.ContentPlaceholder == "" {
		errs = append(errs, errors.New("render.content_placeholder must not be empty"))
	}

	return errors.Join(errs...)
}

// RebuildInterval returns the parsed scheduled rebuild interval, or zero.
func (c *Config) RebuildInterval() time.Duration {
	d, err := time.ParseDuration(c.Serve.RebuildInterval)
	if err != nil {
		return 0
	}
	return d
}
