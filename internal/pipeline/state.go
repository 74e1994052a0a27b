package pipeline

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"git.home.luguber.info/inful/sitegen/internal/config"
	"git.home.luguber.info/inful/sitegen/internal/content"
	ferrors "git.home.luguber.info/inful/sitegen/internal/foundation/errors"
	"git.home.luguber.info/inful/sitegen/internal/metrics"
	"git.home.luguber.info/inful/sitegen/internal/navigation"
	"git.home.luguber.info/inful/sitegen/internal/postindex"
	"git.home.luguber.info/inful/sitegen/internal/render"
	"git.home.luguber.info/inful/sitegen/internal/routes"
	"git.home.luguber.info/inful/sitegen/internal/sitemap"
)

// State is the run state handed from stage to stage. Each aggregate is
// written by exactly one stage and only read afterwards.
type State struct {
	cfg       *config.Config
	logger    *slog.Logger
	recorder  metrics.Recorder
	collector *ferrors.Collector
	revision  string

	Report *Report

	Arena   *content.Arena
	Catalog *render.Catalog
	Routes  *routes.Table

	Nav      navigation.Tree       // index
	Posts    *postindex.Index      // index
	sitemaps *sitemap.Builder      // index, grown by expand
	Sitemap  sitemap.Sitemap       // frozen by expand
	outputs  map[string]content.ID // map_outputs: OutputRel -> owner
}

func newState(cfg *config.Config, logger *slog.Logger, recorder metrics.Recorder, report *Report) *State {
	return &State{
		cfg:       cfg,
		logger:    logger,
		recorder:  recorder,
		collector: ferrors.NewCollector(cfg.Build.CollectContentErrors),
		Report:    report,
		Arena:     content.NewArena(),
		Catalog:   render.NewCatalog(cfg.Render.Strict),
		Routes:    routes.NewTable(cfg.SiteURL, cfg.Routes),
	}
}

// forEach runs fn for every item on a pool of at most workers goroutines.
// The first error cancels the remaining items and is returned.
func forEach[T any](ctx context.Context, workers int, items []T, fn func(context.Context, T) error) error {
	g, gctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}
	for _, item := range items {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return fn(gctx, item)
		})
	}
	return g.Wait()
}
