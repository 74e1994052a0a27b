package pipeline

import (
	"context"
	"sync/atomic"

	"git.home.luguber.info/inful/sitegen/internal/content"
	ferrors "git.home.luguber.info/inful/sitegen/internal/foundation/errors"
	"git.home.luguber.info/inful/sitegen/internal/logfields"
	"git.home.luguber.info/inful/sitegen/internal/markdown"
	"git.home.luguber.info/inful/sitegen/internal/render"
)

// stageRender renders every non-asset record with a URL.
func stageRender(ctx context.Context, st *State) error {
	cfg := st.cfg
	md := markdown.New(markdown.Options{
		GFM:        cfg.Render.Markdown.GFM,
		UnsafeHTML: cfg.UnsafeHTML(),
	})
	renderer, err := render.New(st.Catalog, md, render.Options{
		SiteName:                cfg.SiteName,
		BlogpostTemplate:        cfg.BlogpostTemplate,
		ContentPlaceholder:      cfg.Render.ContentPlaceholder,
		Inline:                  render.InlineMode(cfg.Render.InlineMarkdown),
		Revision:                st.revision,
		RequireBlogpostTemplate: len(st.Arena.OfKind(content.KindBlogPost)) > 0,
	}, render.Inputs{
		Routes:  st.Routes,
		Nav:     st.Nav,
		Posts:   st.Posts,
		Sitemap: st.Sitemap,
	})
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryTemplate, "cannot set up rendering").
			WithContext("template", cfg.BlogpostTemplate).
			Build()
	}

	pages := st.Arena.Filter(func(r *content.Record) bool {
		return !r.IsStaticAsset() && r.URL != nil
	})
	var rendered atomic.Int64
	err = forEach(ctx, cfg.Build.Workers, pages, func(_ context.Context, rec *content.Record) error {
		out, err := renderer.Render(rec)
		if err != nil {
			b := ferrors.WrapError(err, ferrors.CategoryTemplate, "render failed").WithPath(rec.SourcePath)
			if rec.Meta != nil && rec.Meta.Template != "" {
				b = b.WithContext("template", rec.Meta.Template)
			}
			return b.Build()
		}
		rec.Rendered = out
		rendered.Add(1)
		return nil
	})
	st.Report.PagesRendered = int(rendered.Load())
	if err != nil {
		return err
	}
	logStage(st, StageRender).Debug("pages rendered", logfields.Count(st.Report.PagesRendered))
	return nil
}
