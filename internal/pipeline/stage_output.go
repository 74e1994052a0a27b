package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"git.home.luguber.info/inful/sitegen/internal/content"
	ferrors "git.home.luguber.info/inful/sitegen/internal/foundation/errors"
	"git.home.luguber.info/inful/sitegen/internal/logfields"
	"git.home.luguber.info/inful/sitegen/internal/output"
)

// stageMapOutputs assigns output paths. Two records claiming the same output
// path abort the run.
func stageMapOutputs(_ context.Context, st *State) error {
	st.outputs = make(map[string]content.ID)
	for _, rec := range st.Arena.Filter(func(r *content.Record) bool { return r.URL != nil }) {
		rel := output.RelativePath(rec.URL.Relative)
		if rec.IsStaticAsset() {
			rel = "/" + rec.SourcePath
		}
		abs, err := output.AbsolutePath(st.cfg.OutputDir, rel)
		if err != nil {
			return ferrors.WrapError(err, ferrors.CategoryConfig, "invalid output path").
				WithPath(rec.SourcePath).
				WithContext("url", rec.URL.Relative).
				Build()
		}
		if owner, ok := st.outputs[rel]; ok {
			return ferrors.ConfigError(fmt.Sprintf("output %s written by more than one source", rel)).
				WithPath(rec.SourcePath).
				WithContext("other", st.Arena.Get(owner).SourcePath).
				Build()
		}
		st.outputs[rel] = rec.ID
		rec.OutputRel = rel
		rec.OutputAbs = abs
	}
	logStage(st, StageMapOutputs).Debug("outputs mapped", logfields.Count(len(st.outputs)))
	return nil
}

// stagePrepareOutputs creates every parent directory the persist stage needs.
// This is the first stage that touches the output tree.
func stagePrepareOutputs(_ context.Context, st *State) error {
	log := logStage(st, StagePrepareOutputs)
	if st.cfg.Build.CleanOutput {
		if err := os.RemoveAll(st.cfg.OutputDir); err != nil {
			return ferrors.WrapError(err, ferrors.CategoryFileSystem, "clean output directory").
				WithPath(st.cfg.OutputDir).
				Build()
		}
		log.Debug("output directory cleaned", logfields.Path(st.cfg.OutputDir))
	}

	var paths []string
	for _, rec := range st.Arena.All() {
		if rec.OutputAbs != "" {
			paths = append(paths, rec.OutputAbs)
		}
	}
	dirs, err := output.PrepareDirs(paths)
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryFileSystem, "create output directories").
			WithPath(st.cfg.OutputDir).
			Build()
	}
	log.Debug("output directories ready", logfields.Count(len(dirs)))
	return nil
}

// stagePersist copies static assets and writes rendered records.
func stagePersist(ctx context.Context, st *State) error {
	var jobs []output.Job
	for _, rec := range st.Arena.All() {
		if rec.OutputAbs == "" {
			continue
		}
		if rec.IsStaticAsset() {
			jobs = append(jobs, output.Job{Source: rec.SourceAbs, Dest: rec.OutputAbs})
			continue
		}
		jobs = append(jobs, output.Job{Dest: rec.OutputAbs, Data: rec.Rendered})
	}

	stats, err := output.NewWriter(st.cfg.Build.Workers).Persist(ctx, jobs)
	st.Report.AssetsCopied = stats.Copied
	st.Report.BytesWritten = stats.Bytes
	st.recorder.AddFilesWritten("copied", stats.Copied)
	st.recorder.AddFilesWritten("rendered", stats.Written)
	if err != nil {
		if ctx.Err() != nil {
			return err
		}
		return ferrors.WrapError(err, ferrors.CategoryFileSystem, "write output").
			WithPath(st.cfg.OutputDir).
			Build()
	}
	logStage(st, StagePersist).Debug("outputs written",
		slog.Int("copied", stats.Copied),
		slog.Int("written", stats.Written),
		slog.Int64("bytes", stats.Bytes))
	return nil
}
