package pipeline

import (
	"context"
	"log/slog"

	"git.home.luguber.info/inful/sitegen/internal/content"
	"git.home.luguber.info/inful/sitegen/internal/expand"
	ferrors "git.home.luguber.info/inful/sitegen/internal/foundation/errors"
	"git.home.luguber.info/inful/sitegen/internal/logfields"
	"git.home.luguber.info/inful/sitegen/internal/navigation"
	"git.home.luguber.info/inful/sitegen/internal/postindex"
	"git.home.luguber.info/inful/sitegen/internal/sitemap"
)

// stageResolveURLs gives every record but tag page templates its URL.
// Static assets keep their source location.
func stageResolveURLs(ctx context.Context, st *State) error {
	for _, rec := range st.Arena.OfKind(content.KindStaticAsset) {
		rel := "/" + rec.SourcePath
		rec.URL = &content.URL{Relative: rel, Absolute: st.Routes.Absolute(rel)}
	}

	dynamic := st.Arena.Filter(func(r *content.Record) bool {
		return !r.IsStaticAsset() && r.Kind != content.KindTagPageTemplate
	})
	err := forEach(ctx, st.cfg.Build.Workers, dynamic, func(_ context.Context, rec *content.Record) error {
		url, err := st.Routes.Resolve(rec.Meta.Route, rec.Meta.Bag)
		if err != nil {
			return ferrors.WrapError(err, ferrors.CategoryConfig, "cannot resolve URL").
				WithPath(rec.SourcePath).
				WithContext("route", rec.Meta.Route).
				Build()
		}
		rec.URL = &url
		return nil
	})
	if err != nil {
		return err
	}
	logStage(st, StageResolveURLs).Debug("urls resolved", logfields.Count(len(dynamic)))
	return nil
}

// stageIndex builds the navigation tree, the post index and the growing sitemap.
func stageIndex(_ context.Context, st *State) error {
	log := logStage(st, StageIndex)
	withURL := st.Arena.Filter(func(r *content.Record) bool { return r.URL != nil })

	var candidates []navigation.Candidate
	for _, rec := range withURL {
		if rec.Meta == nil || rec.Meta.Navbar == nil {
			continue
		}
		candidates = append(candidates, navigation.Candidate{
			URL:       rec.URL.Relative,
			Title:     rec.Meta.Title,
			Index:     rec.Meta.Navbar.Index,
			Group:     rec.Meta.Navbar.Group,
			IsPrimary: rec.Meta.Navbar.IsPrimary,
			Source:    rec.SourcePath,
		})
	}
	nav, err := navigation.Build(candidates)
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryConfig, "invalid navigation").Build()
	}
	st.Nav = nav

	var entries []postindex.Entry
	for _, rec := range st.Arena.OfKind(content.KindBlogPost) {
		e, err := postindex.EntryFromRecord(rec)
		if err != nil {
			wrapped := ferrors.WrapError(err, ferrors.CategoryContent, "invalid blog post").WithPath(rec.SourcePath).Build()
			if err := st.collector.Record(wrapped); err != nil {
				return err
			}
			continue
		}
		entries = append(entries, e)
	}
	if err := st.collector.Err(); err != nil {
		return err
	}
	st.Posts = postindex.Build(entries)

	st.sitemaps = sitemap.NewBuilder()
	for _, rec := range withURL {
		if rec.IsStaticAsset() || rec.ExcludedFromSitemap() {
			continue
		}
		st.sitemaps.Add(rec.URL.Relative)
	}

	log.Debug("indices built",
		slog.Int("nav_entries", len(candidates)),
		slog.Int("posts", st.Posts.Len()),
		slog.Int("sitemap", st.sitemaps.Len()))
	return nil
}

// stageExpand creates one record per tag page template and tag, then freezes
// the sitemap.
func stageExpand(_ context.Context, st *State) error {
	templates := st.Arena.OfKind(content.KindTagPageTemplate)
	tags := st.Posts.Tags()
	pages, err := expand.TagPages(templates, tags, st.Routes, st.sitemaps)
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryConfig, "cannot expand tag pages").Build()
	}
	for _, rec := range pages {
		st.Arena.Add(rec)
	}
	st.Report.TagPages = len(pages)
	st.Sitemap = st.sitemaps.Freeze()

	logStage(st, StageExpand).Debug("tag pages expanded",
		logfields.Count(len(pages)),
		slog.Int("tags", len(tags)),
		slog.Int("sitemap", st.Sitemap.Len()))
	return nil
}
