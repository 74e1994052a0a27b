package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"git.home.luguber.info/inful/sitegen/internal/config"
	ferrors "git.home.luguber.info/inful/sitegen/internal/foundation/errors"
	"git.home.luguber.info/inful/sitegen/internal/history"
	"git.home.luguber.info/inful/sitegen/internal/logfields"
	"git.home.luguber.info/inful/sitegen/internal/metrics"
	"git.home.luguber.info/inful/sitegen/internal/notify"
	"git.home.luguber.info/inful/sitegen/internal/pipeline"
)

// BuildCmd implements the 'build' command.
type BuildCmd struct {
	CollectErrors bool `name:"collect-errors" help:"Report every invalid source file before failing"`
	Workers       int  `short:"w" help:"Workers per stage (default: build.workers)"`
	Clean         bool `help:"Remove the output directory before writing"`
}

func (b *BuildCmd) Run(g *Global, root *CLI) error {
	cfg, err := loadConfig(root.Config)
	if err != nil {
		return err
	}
	b.apply(cfg)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	report, err := RunBuild(ctx, g, cfg, metrics.NoopRecorder{})
	_, _ = fmt.Fprintln(g.out(), report.Summary())
	if classified, ok := ferrors.AsClassified(err); ok {
		return classified.WithContext("run_id", report.RunID)
	}
	return err
}

// apply overrides configuration with explicitly set flags.
func (b *BuildCmd) apply(cfg *config.Config) {
	if b.CollectErrors {
		cfg.Build.CollectContentErrors = true
	}
	if b.Workers > 0 {
		cfg.Build.Workers = b.Workers
	}
	if b.Clean {
		cfg.Build.CleanOutput = true
	}
}

// RunBuild runs the pipeline once, then records the run in the history store
// and publishes a summary when those are configured. Recording failures are
// logged; only the pipeline error is returned.
func RunBuild(ctx context.Context, g *Global, cfg *config.Config, recorder metrics.Recorder) (*pipeline.Report, error) {
	log := g.logger()
	p := pipeline.New(cfg, pipeline.WithLogger(log), pipeline.WithRecorder(recorder))
	report, runErr := p.Run(ctx)

	// Recording outlives a canceled build context.
	recordCtx := context.WithoutCancel(ctx)
	if cfg.History.Path != "" {
		if err := appendHistory(recordCtx, cfg.History.Path, report, runErr); err != nil {
			log.Warn("failed to record run history", logfields.RunID(report.RunID), logfields.Error(err))
		}
	}
	if cfg.Notify.NATSURL != "" {
		if err := publishSummary(recordCtx, cfg, report, runErr); err != nil {
			log.Warn("failed to publish build summary", logfields.RunID(report.RunID), logfields.Error(err))
		}
	}
	return report, runErr
}

func appendHistory(ctx context.Context, path string, report *pipeline.Report, runErr error) error {
	store, err := history.Open(path)
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryHistory, "open history store").WithPath(path).Build()
	}
	defer func() { _ = store.Close() }()

	entry, err := historyEntry(report, runErr)
	if err != nil {
		return err
	}
	if _, err := store.Append(ctx, entry); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryHistory, "append run").WithPath(path).Build()
	}
	return nil
}

func historyEntry(report *pipeline.Report, runErr error) (history.Entry, error) {
	blob, err := report.JSON()
	if err != nil {
		return history.Entry{}, err
	}
	return history.Entry{
		RunID:      report.RunID,
		Start:      report.Start,
		End:        report.End,
		Outcome:    string(report.Outcome),
		Revision:   report.Revision,
		ConfigHash: report.ConfigHash,
		Records:    report.Records(),
		Pages:      report.PagesRendered,
		Assets:     report.AssetsCopied,
		Error:      errorText(runErr),
		Report:     blob,
	}, nil
}

func publishSummary(ctx context.Context, cfg *config.Config, report *pipeline.Report, runErr error) error {
	pub, err := notify.NewNATSPublisher(cfg.Notify.NATSURL, cfg.Notify.Subject)
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryNotify, "connect notification broker").
			WithContext("url", cfg.Notify.NATSURL).
			Build()
	}
	defer pub.Close()
	if err := pub.Publish(ctx, buildSummary(cfg, report, runErr)); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryNotify, "publish build summary").Build()
	}
	return nil
}

func buildSummary(cfg *config.Config, report *pipeline.Report, runErr error) notify.Summary {
	return notify.Summary{
		RunID:      report.RunID,
		Site:       cfg.SiteName,
		Outcome:    string(report.Outcome),
		Start:      report.Start,
		DurationMS: report.Duration().Milliseconds(),
		Revision:   report.Revision,
		Records:    report.Records(),
		Pages:      report.PagesRendered,
		Assets:     report.AssetsCopied,
		Error:      errorText(runErr),
	}
}

func errorText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
