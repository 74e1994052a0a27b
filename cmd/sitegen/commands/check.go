package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	ferrors "git.home.luguber.info/inful/sitegen/internal/foundation/errors"
	"git.home.luguber.info/inful/sitegen/internal/linkcheck"
)

// CheckCmd implements the 'check' command.
type CheckCmd struct {
	Workers int `short:"w" help:"Pages checked in parallel (default: build.workers)"`
}

func (c *CheckCmd) Run(g *Global, root *CLI) error {
	cfg, err := loadConfig(root.Config)
	if err != nil {
		return err
	}
	workers := cfg.Build.Workers
	if c.Workers > 0 {
		workers = c.Workers
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	res, err := linkcheck.NewChecker(cfg.OutputDir, cfg.SiteURL, workers).Run(ctx)
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryFileSystem, "link check failed").WithPath(cfg.OutputDir).Build()
	}

	out := g.out()
	for _, b := range res.Broken {
		_, _ = fmt.Fprintln(out, b.String())
	}
	_, _ = fmt.Fprintf(out, "%d pages, %d links, %d internal, %d broken\n", res.Pages, res.Links, res.Checked, len(res.Broken))

	if len(res.Broken) > 0 {
		return ferrors.ContentError("broken internal links").
			WithPath(cfg.OutputDir).
			WithContext("count", len(res.Broken)).
			Build()
	}
	return nil
}
