package preview

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"git.home.luguber.info/inful/sitegen/internal/logfields"
)

// DebounceDelay is how long the watcher waits for a burst of changes to settle.
const DebounceDelay = 300 * time.Millisecond

// BuildFunc performs one full build.
type BuildFunc func(ctx context.Context) error

// Status describes the rebuild history of a Runner.
type Status struct {
	Builds      int       `json:"builds"`
	Failures    int       `json:"failures"`
	Running     bool      `json:"running"`
	LastError   string    `json:"last_error,omitempty"`
	LastSuccess time.Time `json:"last_success,omitzero"`
}

// Runner executes builds one at a time. A request arriving during a build
// marks one pending rebuild; further requests coalesce into it. A failing or
// panicking build is logged and does not stop the runner.
type Runner struct {
	build    BuildFunc
	logger   *slog.Logger
	requests chan struct{}

	mu        sync.RWMutex
	status    Status
	onSuccess []func()
}

// NewRunner returns a Runner for build.
func NewRunner(build BuildFunc, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{build: build, logger: logger, requests: make(chan struct{}, 1)}
}

// OnSuccess registers fn to run after every successful build.
func (r *Runner) OnSuccess(fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onSuccess = append(r.onSuccess, fn)
}

// Request asks for a rebuild without blocking.
func (r *Runner) Request() {
	select {
	case r.requests <- struct{}{}:
	default:
	}
}

// Run serves requests until ctx is done.
func (r *Runner) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-r.requests:
			_ = r.runOnce(ctx)
		}
	}
}

// Status returns a snapshot of the runner state.
func (r *Runner) Status() Status {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.status
}

func (r *Runner) runOnce(ctx context.Context) (err error) {
	r.mu.Lock()
	r.status.Running = true
	r.mu.Unlock()

	start := time.Now()
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("build panicked: %v", p)
		}
		r.finish(start, err)
	}()
	return r.build(ctx)
}

func (r *Runner) finish(start time.Time, err error) {
	r.mu.Lock()
	r.status.Running = false
	r.status.Builds++
	if err != nil {
		r.status.Failures++
		r.status.LastError = err.Error()
		r.mu.Unlock()
		r.logger.Warn("rebuild failed", logfields.Elapsed(start), logfields.Error(err))
		return
	}
	r.status.LastError = ""
	r.status.LastSuccess = time.Now()
	hooks := append([]func(){}, r.onSuccess...)
	r.mu.Unlock()

	r.logger.Debug("rebuild finished", logfields.Elapsed(start))
	for _, fn := range hooks {
		fn()
	}
}

// Debouncer calls fn once a burst of Trigger calls has been quiet for delay.
type Debouncer struct {
	delay time.Duration
	fn    func()

	mu    sync.Mutex
	timer *time.Timer
}

// NewDebouncer returns a Debouncer.
func NewDebouncer(delay time.Duration, fn func()) *Debouncer {
	return &Debouncer{delay: delay, fn: fn}
}

// Trigger restarts the quiet period.
func (d *Debouncer) Trigger() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, d.fn)
}

// Stop cancels a pending call.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
}
