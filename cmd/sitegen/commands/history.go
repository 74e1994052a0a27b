package commands

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	ferrors "git.home.luguber.info/inful/sitegen/internal/foundation/errors"
	"git.home.luguber.info/inful/sitegen/internal/history"
)

// HistoryCmd implements the 'history' command.
type HistoryCmd struct {
	Limit int    `short:"n" default:"10" help:"Number of runs to list"`
	RunID string `arg:"" optional:"" name:"run-id" help:"Print the full report of this run"`
}

func (h *HistoryCmd) Run(g *Global, root *CLI) error {
	cfg, err := loadConfig(root.Config)
	if err != nil {
		return err
	}
	if cfg.History.Path == "" {
		return ferrors.ConfigError("history.path is not configured").WithPath(root.Config).Build()
	}

	store, err := history.Open(cfg.History.Path)
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryHistory, "open history store").WithPath(cfg.History.Path).Build()
	}
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	if h.RunID != "" {
		return h.show(ctx, g, store)
	}
	return h.list(ctx, g, store)
}

func (h *HistoryCmd) show(ctx context.Context, g *Global, store *history.Store) error {
	entry, err := store.Get(ctx, h.RunID)
	if errors.Is(err, sql.ErrNoRows) {
		return ferrors.NewError(ferrors.CategoryNotFound, "run not found").WithContext("run_id", h.RunID).Build()
	}
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryHistory, "read run").WithContext("run_id", h.RunID).Build()
	}
	_, _ = fmt.Fprintln(g.out(), string(entry.Report))
	return nil
}

func (h *HistoryCmd) list(ctx context.Context, g *Global, store *history.Store) error {
	entries, err := store.Latest(ctx, h.Limit)
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryHistory, "list runs").Build()
	}

	tw := tabwriter.NewWriter(g.out(), 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "RUN\tSTARTED\tDURATION\tOUTCOME\tRECORDS\tPAGES\tASSETS\tREVISION")
	for _, e := range entries {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%d\t%d\t%s\n",
			e.RunID, e.Start.Local().Format(time.DateTime), e.Duration().Truncate(time.Millisecond),
			e.Outcome, e.Records, e.Pages, e.Assets, e.Revision)
	}
	return tw.Flush()
}
