package config

import (
	"runtime"
)

const (
	// DefaultServePort is the preview server port.
	DefaultServePort = 8000
	// DefaultNotifySubject is the NATS subject for build notifications.
	DefaultNotifySubject = "sitegen.builds"
	// DefaultContentPlaceholder is replaced by converted Markdown in inlined templates.
	DefaultContentPlaceholder = "{{ .content }}"

	InlineBlogPosts = "blogpost"
	InlineAll       = "all"
)

// ApplyDefaults fills unset fields.
func ApplyDefaults(cfg *Config) {
	if cfg.SourceDir == "" {
		cfg.SourceDir = "."
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = "public"
	}
	if cfg.Build.Workers <= 0 {
		cfg.Build.Workers = runtime.NumCPU()
	}
	if cfg.Render.ContentPlaceholder == "" {
		cfg.Render.ContentPlaceholder = DefaultContentPlaceholder
	}
	if cfg.Render.InlineMarkdown == "" {
		cfg.Render.InlineMarkdown = InlineBlogPosts
	}
	if cfg.Notify.Subject == "" {
		cfg.Notify.Subject = DefaultNotifySubject
	}
	if cfg.Serve.Port == 0 {
		cfg.Serve.Port = DefaultServePort
	}
}
