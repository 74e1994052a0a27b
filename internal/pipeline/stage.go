package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"git.home.luguber.info/inful/sitegen/internal/logfields"
	"git.home.luguber.info/inful/sitegen/internal/metrics"
)

// StageName identifies a pipeline stage. The names double as log and metric labels.
type StageName string

// Canonical stage names, in execution order.
const (
	StageLoadSources    StageName = "load_sources"
	StageResolveURLs    StageName = "resolve_urls"
	StageIndex          StageName = "index"
	StageExpand         StageName = "expand"
	StageRender         StageName = "render"
	StageMapOutputs     StageName = "map_outputs"
	StagePrepareOutputs StageName = "prepare_outputs"
	StagePersist        StageName = "persist"
)

// Stage is one barrier-delimited step of a run.
type Stage func(ctx context.Context, st *State) error

// StageDef pairs a stage name with its function.
type StageDef struct {
	Name StageName
	Fn   Stage
}

// StageErrorKind enumerates structured stage error categories.
type StageErrorKind string

const (
	StageErrorFatal    StageErrorKind = "fatal"    // Run must abort.
	StageErrorWarning  StageErrorKind = "warning"  // Recorded, run continues.
	StageErrorCanceled StageErrorKind = "canceled" // Context cancellation.
)

// StageError ties an error to the stage that produced it.
type StageError struct {
	Kind  StageErrorKind
	Stage StageName
	Err   error
}

func (e *StageError) Error() string { return fmt.Sprintf("%s stage %s: %v", e.Kind, e.Stage, e.Err) }
func (e *StageError) Unwrap() error { return e.Err }

func newFatalStageError(stage StageName, err error) *StageError {
	return &StageError{Kind: StageErrorFatal, Stage: stage, Err: err}
}

func newCanceledStageError(stage StageName, err error) *StageError {
	return &StageError{Kind: StageErrorCanceled, Stage: stage, Err: err}
}

// StageCount tallies stage results.
type StageCount struct {
	Success  int `json:"success"`
	Warning  int `json:"warning"`
	Fatal    int `json:"fatal"`
	Canceled int `json:"canceled"`
}

// defaultStages is the fixed stage order of every run.
func defaultStages() []StageDef {
	return []StageDef{
		{StageLoadSources, stageLoadSources},
		{StageResolveURLs, stageResolveURLs},
		{StageIndex, stageIndex},
		{StageExpand, stageExpand},
		{StageRender, stageRender},
		{StageMapOutputs, stageMapOutputs},
		{StagePrepareOutputs, stagePrepareOutputs},
		{StagePersist, stagePersist},
	}
}

// runStages executes stages in order, recording timings and stopping on the
// first fatal or canceled stage.
func runStages(ctx context.Context, st *State, stages []StageDef) error {
	report := st.Report
	for _, def := range stages {
		if err := ctx.Err(); err != nil {
			se := newCanceledStageError(def.Name, err)
			report.recordStage(def.Name, se)
			st.recorder.IncStageResult(string(def.Name), metrics.ResultCanceled)
			return se
		}

		st.logger.Debug("stage started", logfields.Stage(string(def.Name)))
		t0 := time.Now()
		err := def.Fn(ctx, st)
		dur := time.Since(t0)
		report.StageDurations[def.Name] = dur
		st.recorder.ObserveStageDuration(string(def.Name), dur)

		if err == nil {
			report.recordStage(def.Name, nil)
			st.recorder.IncStageResult(string(def.Name), metrics.ResultSuccess)
			st.logger.Debug("stage finished",
				logfields.Stage(string(def.Name)),
				logfields.DurationMS(float64(dur.Microseconds())/1000))
			continue
		}

		var se *StageError
		if !errors.As(err, &se) {
			if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
				se = newCanceledStageError(def.Name, err)
			} else {
				se = newFatalStageError(def.Name, err)
			}
		}
		report.recordStage(def.Name, se)
		st.recorder.IncStageResult(string(def.Name), resultLabel(se.Kind))
		if se.Kind == StageErrorWarning {
			st.logger.Warn("stage warning", logfields.Stage(string(def.Name)), logfields.Error(se.Err))
			continue
		}
		return se
	}
	return nil
}

func resultLabel(k StageErrorKind) metrics.ResultLabel {
	switch k {
	case StageErrorWarning:
		return metrics.ResultWarning
	case StageErrorCanceled:
		return metrics.ResultCanceled
	default:
		return metrics.ResultFatal
	}
}

// logStage attaches the stage name to the run logger.
func logStage(st *State, name StageName) *slog.Logger {
	return st.logger.With(logfields.Stage(string(name)))
}
