package preview

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"git.home.luguber.info/inful/sitegen/internal/logfields"
)

// Options configures Watch and Serve.
type Options struct {
	SourceDir string
	OutputDir string
	Build     BuildFunc
	Logger    *slog.Logger

	// Serve only.
	Addr            string
	LiveReload      bool
	RebuildInterval time.Duration
	Metrics         http.Handler
}

func (o *Options) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.Default()
	}
	return o.Logger
}

// Watch builds once, then rebuilds after every debounced source change until
// ctx is done.
func Watch(ctx context.Context, opts Options) error {
	w, err := NewWatcher(opts.SourceDir, opts.OutputDir, opts.logger())
	if err != nil {
		return err
	}
	defer func() { _ = w.Close() }()
	return watch(ctx, opts, NewRunner(opts.Build, opts.logger()), w, nil)
}

// Serve is Watch plus the preview server and, when configured, scheduled
// rebuilds. Browsers reload after every successful build.
func Serve(ctx context.Context, opts Options) error {
	log := opts.logger()
	w, err := NewWatcher(opts.SourceDir, opts.OutputDir, log)
	if err != nil {
		return err
	}
	defer func() { _ = w.Close() }()

	runner := NewRunner(opts.Build, log)
	srv := NewServer(ServerOptions{
		Addr:       opts.Addr,
		Root:       opts.OutputDir,
		LiveReload: opts.LiveReload,
		Metrics:    opts.Metrics,
		Status:     runner.Status,
		Logger:     log,
	})
	runner.OnSuccess(func() { srv.Hub().Broadcast(strconv.FormatInt(time.Now().UnixNano(), 10)) })

	var sched *Scheduler
	if opts.RebuildInterval > 0 {
		if sched, err = NewScheduler(opts.RebuildInterval, runner.Request, log); err != nil {
			return err
		}
	}

	if err := srv.Start(); err != nil {
		if sched != nil {
			_ = sched.Stop()
		}
		return err
	}
	if sched != nil {
		sched.Start()
	}

	return watch(ctx, opts, runner, w, func() {
		if sched != nil {
			if err := sched.Stop(); err != nil {
				log.Warn("scheduler shutdown error", logfields.Error(err))
			}
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn("preview server shutdown error", logfields.Error(err))
		}
	})
}

// watch runs the initial build and the watch loop until ctx is done or the
// watcher fails; stop runs before it returns.
func watch(ctx context.Context, opts Options, runner *Runner, w *Watcher, stop func()) error {
	log := opts.logger()
	debounce := NewDebouncer(DebounceDelay, runner.Request)
	defer debounce.Stop()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		runner.Run(runCtx)
	}()
	runner.Request()

	log.Info("watching for changes", logfields.Path(opts.SourceDir))
	err := w.Run(runCtx, func(string) { debounce.Trigger() })
	if err != nil {
		log.Error("watch loop ended", logfields.Error(err))
	}

	cancel()
	if stop != nil {
		stop()
	}
	<-done
	log.Info("watch stopped")
	return err
}
