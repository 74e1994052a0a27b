// Package config loads and validates the site configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/sitegen/internal/content"
)

// Config is the site configuration. JSON configuration files are valid YAML
// and load unchanged.
type Config struct {
	SourceDir        string            `yaml:"source_dir"`
	OutputDir        string            `yaml:"output_dir"`
	SiteName         string            `yaml:"sitename"`
	SiteURL          string            `yaml:"site_url"`
	Sources          map[string]string `yaml:"sources"` // glob -> kind
	Routes           map[string]string `yaml:"routes"`  // name -> URL template
	BlogpostTemplate string            `yaml:"blogpost_template"`

	Build   BuildConfig   `yaml:"build"`
	Render  RenderConfig  `yaml:"render"`
	History HistoryConfig `yaml:"history"`
	Notify  NotifyConfig  `yaml:"notify"`
	Serve   ServeConfig   `yaml:"serve"`

	// sources parsed and sorted by Normalize
	sourceGlobs []SourceGlob
}

// SourceGlob is one entry of the sources table with its kind resolved.
// Patterns are relative to SourceDir and slash separated.
type SourceGlob struct {
	Pattern string
	Kind    content.Kind
}

// BuildConfig controls pipeline execution.
type BuildConfig struct {
	// Workers bounds per-stage parallelism; 0 means one per CPU.
	Workers int `yaml:"workers"`
	// CleanOutput removes the output directory before writing.
	CleanOutput bool `yaml:"clean_output"`
	// CollectContentErrors reports every content error of a stage at once
	// instead of stopping at the first.
	CollectContentErrors bool `yaml:"collect_content_errors"`
}

// RenderConfig controls template and Markdown rendering.
type RenderConfig struct {
	Strict             bool           `yaml:"strict"`
	ContentPlaceholder string         `yaml:"content_placeholder"`
	InlineMarkdown     string         `yaml:"inline_markdown"` // blogpost | all
	Markdown           MarkdownConfig `yaml:"markdown"`
}

// MarkdownConfig selects goldmark features.
type MarkdownConfig struct {
	GFM        bool  `yaml:"gfm"`
	UnsafeHTML *bool `yaml:"unsafe_html,omitempty"`
}

// HistoryConfig enables the build history store when Path is set.
type HistoryConfig struct {
	Path string `yaml:"path"`
}

// NotifyConfig enables build notifications when NATSURL is set.
type NotifyConfig struct {
	NATSURL string `yaml:"nats_url"`
	Subject string `yaml:"subject"`
}

// ServeConfig controls the preview server.
type ServeConfig struct {
	Port       int  `yaml:"port"`
	LiveReload bool `yaml:"live_reload"`
	// RebuildInterval, when set, rebuilds on a schedule in addition to file
	// changes (Go duration syntax, e.g. "10m").
	RebuildInterval string `yaml:"rebuild_interval"`
}

// Load reads the configuration file, expands ${VAR} references, applies
// defaults, normalizes paths against the current directory and validates.
func Load(configPath string) (*Config, error) {
	if err := loadEnvFile(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(configPath) // #nosec G304 -- path supplied by the operator
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("configuration file not found: %s", configPath)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}

	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("get working directory: %w", err)
	}
	if _, err := Normalize(cfg, cwd); err != nil {
		return nil, err
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes raw configuration text after environment expansion and
// applies defaults. It does not normalize or validate.
func Parse(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	ApplyDefaults(&cfg)
	return &cfg, nil
}

// SourceGlobs returns the normalized source globs, sorted by pattern.
func (c *Config) SourceGlobs() []SourceGlob {
	return append([]SourceGlob(nil), c.sourceGlobs...)
}

// UnsafeHTML reports whether raw HTML passes through Markdown conversion.
func (c *Config) UnsafeHTML() bool {
	return c.Render.Markdown.UnsafeHTML == nil || *c.Render.Markdown.UnsafeHTML
}

// Init creates a starter configuration file.
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", configPath)
	}

	example := Config{
		SourceDir: ".",
		OutputDir: "public",
		SiteName:  "My Site",
		SiteURL:   "https://example.com",
		Sources: map[string]string{
			"static/**/*":         string(content.KindStaticAsset),
			"templates/**/*.html": string(content.KindTemplate),
			"pages/**/*.html":     string(content.KindSinglePage),
			"posts/**/*.md":       string(content.KindBlogPost),
			"blog/tag.html":       string(content.KindTagPageTemplate),
			"blog/archive.html":   string(content.KindArchivePageTemplate),
			"blog/feed.xml":       string(content.KindRssTemplate),
			"sitemap.xml":         string(content.KindSitemapTemplate),
		},
		Routes: map[string]string{
			"page":     "/{slug}",
			"index":    "/",
			"blogpost": "/blog/{year}/{month}/{slug}",
			"tag":      "/blog/tags/{tag}",
			"archive":  "/blog/archive",
			"rss":      "/feed.xml",
			"sitemap":  "/sitemap.xml",
		},
		BlogpostTemplate: "blogpost.html",
		Build:            BuildConfig{CleanOutput: true},
		Serve:            ServeConfig{Port: DefaultServePort, LiveReload: true},
	}

	data, err := yaml.Marshal(&example)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(configPath), 0o750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	// #nosec G306 -- configuration is not secret
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
