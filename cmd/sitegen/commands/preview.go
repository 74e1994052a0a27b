package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/sitegen/internal/config"
	"git.home.luguber.info/inful/sitegen/internal/metrics"
	"git.home.luguber.info/inful/sitegen/internal/preview"
)

// WatchCmd implements the 'watch' command.
type WatchCmd struct {
	CollectErrors bool `name:"collect-errors" help:"Report every invalid source file before failing"`
}

func (w *WatchCmd) Run(g *Global, root *CLI) error {
	cfg, err := loadConfig(root.Config)
	if err != nil {
		return err
	}
	if w.CollectErrors {
		cfg.Build.CollectContentErrors = true
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	return preview.Watch(ctx, preview.Options{
		SourceDir: cfg.SourceDir,
		OutputDir: cfg.OutputDir,
		Build:     buildFunc(g, cfg, metrics.NoopRecorder{}),
		Logger:    g.logger(),
	})
}

// ServeCmd implements the 'serve' command.
type ServeCmd struct {
	Port            int           `short:"p" help:"Preview server port (default: serve.port)"`
	NoLiveReload    bool          `name:"no-live-reload" help:"Disable live reload and script injection"`
	RebuildInterval time.Duration `name:"rebuild-interval" help:"Rebuild on this interval in addition to file changes (default: serve.rebuild_interval)"`
}

func (s *ServeCmd) Run(g *Global, root *CLI) error {
	cfg, err := loadConfig(root.Config)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	return preview.Serve(ctx, s.options(g, cfg))
}

func (s *ServeCmd) options(g *Global, cfg *config.Config) preview.Options {
	port := cfg.Serve.Port
	if s.Port > 0 {
		port = s.Port
	}
	interval := cfg.RebuildInterval()
	if s.RebuildInterval > 0 {
		interval = s.RebuildInterval
	}

	reg := prom.NewRegistry()
	recorder := metrics.NewPrometheusRecorder(reg)
	return preview.Options{
		SourceDir:       cfg.SourceDir,
		OutputDir:       cfg.OutputDir,
		Build:           buildFunc(g, cfg, recorder),
		Logger:          g.logger(),
		Addr:            fmt.Sprintf("127.0.0.1:%d", port),
		LiveReload:      cfg.Serve.LiveReload && !s.NoLiveReload,
		RebuildInterval: interval,
		Metrics:         metrics.HTTPHandler(reg),
	}
}

// buildFunc adapts RunBuild to the preview runner.
func buildFunc(g *Global, cfg *config.Config, recorder metrics.Recorder) preview.BuildFunc {
	return func(ctx context.Context) error {
		_, err := RunBuild(ctx, g, cfg, recorder)
		return err
	}
}
