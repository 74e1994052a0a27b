package pipeline

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"git.home.luguber.info/inful/sitegen/internal/config"
	"git.home.luguber.info/inful/sitegen/internal/content"
	ferrors "git.home.luguber.info/inful/sitegen/internal/foundation/errors"
	"git.home.luguber.info/inful/sitegen/internal/frontmatter"
	"git.home.luguber.info/inful/sitegen/internal/logfields"
	"git.home.luguber.info/inful/sitegen/internal/render"
)

// source is one discovered file with the glob that claimed it.
type source struct {
	glob config.SourceGlob
	rel  string // slash separated, relative to the source root
	abs  string
}

// stageLoadSources discovers sources, fills the template catalog and creates
// one record per non-template source.
func stageLoadSources(ctx context.Context, st *State) error {
	log := logStage(st, StageLoadSources)

	sources, err := discover(os.DirFS(st.cfg.SourceDir), st.cfg, func(rel, claimed, pattern string) {
		log.Warn("source matched by more than one glob",
			logfields.Path(rel), slog.String("claimed_by", claimed), slog.String("ignored", pattern))
	})
	if err != nil {
		return err
	}

	var templates, static, parsed []source
	for _, s := range sources {
		switch s.glob.Kind {
		case content.KindTemplate:
			templates = append(templates, s)
		case content.KindStaticAsset:
			static = append(static, s)
		default:
			parsed = append(parsed, s)
		}
	}

	for _, s := range templates {
		data, err := os.ReadFile(s.abs) // #nosec G304 -- path discovered under the source root
		if err != nil {
			return ferrors.WrapError(err, ferrors.CategoryFileSystem, "read template").WithPath(s.rel).Build()
		}
		name := render.TemplateName(s.glob.Pattern, s.rel)
		if err := st.Catalog.Add(name, string(data)); err != nil {
			return ferrors.WrapError(err, ferrors.CategoryTemplate, "invalid template").
				WithPath(s.rel).
				WithContext("template", name).
				Build()
		}
		log.Debug("template added", logfields.Template(name), logfields.Path(s.rel))
	}
	st.Report.Templates = st.Catalog.Len()

	records := make([]*content.Record, len(parsed), len(parsed)+len(static))
	opts := content.EnrichOptions{BlogpostTemplate: st.cfg.BlogpostTemplate}
	err = forEach(ctx, st.cfg.Build.Workers, indices(len(parsed)), func(_ context.Context, i int) error {
		rec, err := parseSource(parsed[i], opts)
		if err != nil {
			return st.collector.Record(err)
		}
		records[i] = rec
		return nil
	})
	if err != nil {
		return err
	}
	if err := st.collector.Err(); err != nil {
		return err
	}

	for _, s := range static {
		records = append(records, &content.Record{Kind: content.KindStaticAsset, SourcePath: s.rel, SourceAbs: s.abs})
	}
	content.SortBySource(records)
	for _, rec := range records {
		st.Arena.Add(rec)
		if rec.Fingerprint != "" {
			st.Report.Fingerprints[rec.SourcePath] = rec.Fingerprint
		}
	}

	log.Debug("sources loaded",
		logfields.Count(st.Arena.Len()),
		slog.Int("templates", st.Catalog.Len()),
		slog.Int("static", len(static)))
	return nil
}

// discover expands every source glob under fsys. Each file is claimed by the
// first glob in pattern order; files inside the output directory are skipped.
func discover(fsys fs.FS, cfg *config.Config, onDuplicate func(rel, claimed, pattern string)) ([]source, error) {
	skip := outputPrefix(cfg.SourceDir, cfg.OutputDir)
	claimed := make(map[string]string)

	var out []source
	for _, g := range cfg.SourceGlobs() {
		matches, err := doublestar.Glob(fsys, g.Pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, ferrors.WrapError(err, ferrors.CategoryConfig, "invalid source glob").
				WithContext("pattern", g.Pattern).
				Build()
		}
		sort.Strings(matches)
		for _, rel := range matches {
			if skip != "" && (rel == skip || strings.HasPrefix(rel, skip+"/")) {
				continue
			}
			if prev, ok := claimed[rel]; ok {
				onDuplicate(rel, prev, g.Pattern)
				continue
			}
			claimed[rel] = g.Pattern
			out = append(out, source{
				glob: g,
				rel:  rel,
				abs:  filepath.Join(cfg.SourceDir, filepath.FromSlash(rel)),
			})
		}
	}
	return out, nil
}

// outputPrefix returns the output directory relative to the source root when
// it lies inside it, otherwise "".
func outputPrefix(sourceDir, outputDir string) string {
	rel, err := filepath.Rel(sourceDir, outputDir)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return ""
	}
	return path.Clean(filepath.ToSlash(rel))
}

// parseSource reads a source with a metadata header and returns its record.
func parseSource(s source, opts content.EnrichOptions) (*content.Record, error) {
	data, err := os.ReadFile(s.abs) // #nosec G304 -- path discovered under the source root
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryFileSystem, "read source").WithPath(s.rel).Build()
	}
	doc, err := frontmatter.Read(data)
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryConfig, "malformed metadata header").WithPath(s.rel).Build()
	}
	meta, err := content.DecodeMeta(doc.Meta)
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryContent, "invalid metadata").WithPath(s.rel).Build()
	}
	meta, err = content.Enrich(s.glob.Kind, meta, s.rel, opts)
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryContent, fmt.Sprintf("invalid %s", s.glob.Kind)).
			WithPath(s.rel).
			Build()
	}
	return &content.Record{
		Kind:        s.glob.Kind,
		SourcePath:  s.rel,
		SourceAbs:   s.abs,
		Meta:        &meta,
		Raw:         string(doc.Body),
		Fingerprint: content.Fingerprint(string(doc.Header), string(doc.Body)),
	}, nil
}

func indices(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}
