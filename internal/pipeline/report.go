package pipeline

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/sitegen/internal/content"
	"git.home.luguber.info/inful/sitegen/internal/metrics"
)

// Outcome is the final status of a run.
type Outcome string

const (
	OutcomeSuccess  Outcome = "success"
	OutcomeFailed   Outcome = "failed"
	OutcomeCanceled Outcome = "canceled"
)

// Report describes one run. It is returned even when the run fails.
type Report struct {
	RunID   string
	Start   time.Time
	End     time.Time
	Outcome Outcome

	StageDurations  map[StageName]time.Duration
	StageErrorKinds map[StageName]StageErrorKind
	StageCounts     map[StageName]StageCount

	RecordsByKind map[content.Kind]int
	Templates     int
	TagPages      int
	PagesRendered int
	AssetsCopied  int
	BytesWritten  int64

	Revision   string
	ConfigHash string
	// Fingerprints maps source paths of parsed records to their content fingerprint.
	Fingerprints map[string]string

	Errors   []error
	Warnings []error
}

func newReport(configHash string) *Report {
	return &Report{
		RunID:           uuid.NewString(),
		Start:           time.Now(),
		StageDurations:  make(map[StageName]time.Duration),
		StageErrorKinds: make(map[StageName]StageErrorKind),
		StageCounts:     make(map[StageName]StageCount),
		RecordsByKind:   make(map[content.Kind]int),
		Fingerprints:    make(map[string]string),
		ConfigHash:      configHash,
	}
}

// recordStage tallies a stage result. A nil se records success.
func (r *Report) recordStage(name StageName, se *StageError) {
	sc := r.StageCounts[name]
	if se == nil {
		sc.Success++
		r.StageCounts[name] = sc
		return
	}
	r.StageErrorKinds[name] = se.Kind
	switch se.Kind {
	case StageErrorWarning:
		sc.Warning++
		r.Warnings = append(r.Warnings, se)
	case StageErrorCanceled:
		sc.Canceled++
		r.Errors = append(r.Errors, se)
	default:
		sc.Fatal++
		r.Errors = append(r.Errors, se)
	}
	r.StageCounts[name] = sc
}

func (r *Report) finish() {
	r.End = time.Now()
	r.deriveOutcome()
}

// deriveOutcome sets Outcome from the recorded errors.
func (r *Report) deriveOutcome() {
	if len(r.Errors) == 0 {
		r.Outcome = OutcomeSuccess
		return
	}
	for _, e := range r.Errors {
		var se *StageError
		if errors.As(e, &se) && se.Kind == StageErrorCanceled {
			r.Outcome = OutcomeCanceled
			return
		}
	}
	r.Outcome = OutcomeFailed
}

// Duration is the wall time of the run.
func (r *Report) Duration() time.Duration { return r.End.Sub(r.Start) }

// Records is the total number of records, expanded ones included.
func (r *Report) Records() int {
	n := 0
	for _, c := range r.RecordsByKind {
		n += c
	}
	return n
}

// Err returns the first recorded error, or nil.
func (r *Report) Err() error {
	if len(r.Errors) == 0 {
		return nil
	}
	return r.Errors[0]
}

// Summary returns a human-readable single-line summary.
func (r *Report) Summary() string {
	return fmt.Sprintf("run=%s records=%d pages=%d assets=%d tag_pages=%d duration=%s errors=%d warnings=%d outcome=%s",
		r.RunID, r.Records(), r.PagesRendered, r.AssetsCopied, r.TagPages,
		r.Duration().Truncate(time.Millisecond), len(r.Errors), len(r.Warnings), r.Outcome)
}

// metricsOutcome maps the outcome onto the metrics label set.
func (r *Report) metricsOutcome() metrics.BuildOutcomeLabel {
	switch r.Outcome {
	case OutcomeSuccess:
		return metrics.BuildOutcomeSuccess
	case OutcomeCanceled:
		return metrics.BuildOutcomeCanceled
	default:
		return metrics.BuildOutcomeFailed
	}
}

// ReportSerializable is the JSON form of a Report.
type ReportSerializable struct {
	RunID           string                `json:"run_id"`
	Start           time.Time             `json:"start"`
	End             time.Time             `json:"end"`
	Outcome         Outcome               `json:"outcome"`
	StageDurations  map[string]float64    `json:"stage_durations_ms"`
	StageErrorKinds map[string]string     `json:"stage_error_kinds"`
	StageCounts     map[string]StageCount `json:"stage_counts"`
	RecordsByKind   map[string]int        `json:"records_by_kind"`
	Templates       int                   `json:"templates"`
	TagPages        int                   `json:"tag_pages"`
	PagesRendered   int                   `json:"pages_rendered"`
	AssetsCopied    int                   `json:"assets_copied"`
	BytesWritten    int64                 `json:"bytes_written"`
	Revision        string                `json:"revision,omitempty"`
	ConfigHash      string                `json:"config_hash"`
	Fingerprints    map[string]string     `json:"fingerprints"`
	Errors          []string              `json:"errors"`
	Warnings        []string              `json:"warnings"`
}

// Serializable returns a JSON friendly copy with errors converted to strings.
func (r *Report) Serializable() *ReportSerializable {
	s := &ReportSerializable{
		RunID:           r.RunID,
		Start:           r.Start,
		End:             r.End,
		Outcome:         r.Outcome,
		StageDurations:  make(map[string]float64, len(r.StageDurations)),
		StageErrorKinds: make(map[string]string, len(r.StageErrorKinds)),
		StageCounts:     make(map[string]StageCount, len(r.StageCounts)),
		RecordsByKind:   make(map[string]int, len(r.RecordsByKind)),
		Templates:       r.Templates,
		TagPages:        r.TagPages,
		PagesRendered:   r.PagesRendered,
		AssetsCopied:    r.AssetsCopied,
		BytesWritten:    r.BytesWritten,
		Revision:        r.Revision,
		ConfigHash:      r.ConfigHash,
		Fingerprints:    r.Fingerprints,
		Errors:          make([]string, len(r.Errors)),
		Warnings:        make([]string, len(r.Warnings)),
	}
	for k, v := range r.StageDurations {
		s.StageDurations[string(k)] = float64(v.Microseconds()) / 1000
	}
	for k, v := range r.StageErrorKinds {
		s.StageErrorKinds[string(k)] = string(v)
	}
	for k, v := range r.StageCounts {
		s.StageCounts[string(k)] = v
	}
	for k, v := range r.RecordsByKind {
		s.RecordsByKind[string(k)] = v
	}
	for i, e := range r.Errors {
		s.Errors[i] = e.Error()
	}
	for i, w := range r.Warnings {
		s.Warnings[i] = w.Error()
	}
	return s
}

// JSON returns the indented JSON form of the report.
func (r *Report) JSON() ([]byte, error) {
	b, err := json.MarshalIndent(r.Serializable(), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal report json: %w", err)
	}
	return b, nil
}
