package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"runtime"

	"git.home.luguber.info/inful/sitegen/internal/config"
	"git.home.luguber.info/inful/sitegen/internal/logfields"
	"git.home.luguber.info/inful/sitegen/internal/metrics"
	"git.home.luguber.info/inful/sitegen/internal/revision"
)

// Pipeline runs the stages of a site build against one configuration.
// A Pipeline may be run repeatedly; runs share no state.
type Pipeline struct {
	cfg      *config.Config
	logger   *slog.Logger
	recorder metrics.Recorder
	stages   []StageDef
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger used for stage and run logging.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r metrics.Recorder) Option {
	return func(p *Pipeline) {
		if r != nil {
			p.recorder = r
		}
	}
}

// New returns a pipeline for a normalized and validated configuration.
func New(cfg *config.Config, opts ...Option) *Pipeline {
	p := &Pipeline{
		cfg:      cfg,
		logger:   slog.Default(),
		recorder: metrics.NoopRecorder{},
		stages:   defaultStages(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run executes one full build. The report is always returned; err is the
// stage error that ended the run, if any.
func (p *Pipeline) Run(ctx context.Context) (*Report, error) {
	cfg := *p.cfg
	if cfg.Build.Workers < 1 {
		cfg.Build.Workers = runtime.NumCPU()
	}

	report := newReport(cfg.Snapshot())
	logger := p.logger.With(logfields.RunID(report.RunID))
	st := newState(&cfg, logger, p.recorder, report)

	if info, err := revision.Detect(cfg.SourceDir); err == nil {
		st.revision = info.String()
		report.Revision = st.revision
	} else if !errors.Is(err, revision.ErrNotRepository) {
		logger.Warn("source revision unavailable", logfields.Error(err))
	}

	logger.Debug("build started",
		slog.String("source_dir", cfg.SourceDir),
		slog.String("output_dir", cfg.OutputDir),
		slog.Int("workers", cfg.Build.Workers))

	err := runStages(ctx, st, p.stages)

	for kind, n := range st.Arena.CountByKind() {
		report.RecordsByKind[kind] = n
		p.recorder.SetRecords(string(kind), n)
	}
	report.finish()
	p.recorder.ObserveBuildDuration(report.Duration())
	p.recorder.IncBuildOutcome(report.metricsOutcome())

	if err != nil {
		logger.Error("build failed",
			logfields.Outcome(string(report.Outcome)),
			logfields.Elapsed(report.Start),
			logfields.Error(err))
		return report, err
	}
	logger.Info("build finished",
		logfields.Outcome(string(report.Outcome)),
		logfields.Count(report.Records()),
		slog.Int("pages", report.PagesRendered),
		slog.Int("assets", report.AssetsCopied),
		logfields.Elapsed(report.Start))
	return report, nil
}
