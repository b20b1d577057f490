// Package eval collects metrics and artefacts for evaluation runs: phase
// wall timings, per-stage token buckets, the recommendations and fixes a run
// produced, and the final classification outcome. Each run is written as one
// JSON file; a summary aggregates across runs.
package eval

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"
	"time"

	"impactify/internal/llm"
	t "impactify/internal/types"
)

// Metrics is the serialized shape of one run.
type Metrics struct {
	RunIndex         int                  `json:"run_index"`
	Timing           map[string]float64   `json:"timing"`
	IterationTimings []IterationTiming    `json:"iteration_timings"`
	Tokens           map[string]llm.Usage `json:"tokens"`
	Recommendations  []Recommendation     `json:"recommendations"`
	Fixes            []Fix                `json:"fixes"`
	FinalSure        []string             `json:"final_sure"`
	StillUnsure      []t.ClassificationEntry `json:"still_unsure"`
	TokensAggregate  llm.Usage            `json:"tokens_aggregate"`
	TokensInputTotal int                  `json:"tokens_input_total"`
}

type IterationTiming struct {
	Iteration int     `json:"iteration"`
	ElapsedS  float64 `json:"elapsed_s"`
}

type Recommendation struct {
	Path   string          `json:"path"`
	Raw    string          `json:"raw"`
	Parsed *t.ImpactReport `json:"parsed,omitempty"`
}

type Fix struct {
	Path    string `json:"path"`
	Content string `json:"content"`
	Mode    string `json:"mode"`
	Applied string `json:"applied_content,omitempty"`
}

// stageAliases folds the stage names different call sites use into one
// bucket, so "report" and "reporting" do not split the accounting.
var stageAliases = map[string]string{
	"report":     "reporting",
	"refine":     "refinement",
	"fix":        "fix_generation",
	"subfolders": "subfolder",
}

// Tracker accumulates one run's metrics. Safe for concurrent use; batch
// workers report tokens as they finish.
type Tracker struct {
	mu          sync.Mutex
	metrics     Metrics
	phaseStarts map[string]time.Time
	runStart    time.Time
}

// NewTracker starts tracking run runIndex (zero-based; serialized 1-based).
func NewTracker(runIndex int) *Tracker {
	return &Tracker{
		metrics: Metrics{
			RunIndex:         runIndex + 1,
			Timing:           make(map[string]float64),
			IterationTimings: []IterationTiming{},
			Tokens:           make(map[string]llm.Usage),
			Recommendations:  []Recommendation{},
			Fixes:            []Fix{},
			FinalSure:        []string{},
			StillUnsure:      []t.ClassificationEntry{},
		},
		phaseStarts: make(map[string]time.Time),
		runStart:    time.Now(),
	}
}

func (tr *Tracker) StartPhase(phase string) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	tr.phaseStarts[phase] = time.Now()
}

func (tr *Tracker) EndPhase(phase string) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	start, ok := tr.phaseStarts[phase]
	if !ok {
		return
	}
	delete(tr.phaseStarts, phase)
	tr.metrics.Timing[phase+"_elapsed_s"] = roundS(time.Since(start))
}

func (tr *Tracker) RecordIteration(iteration int, elapsed time.Duration) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	tr.metrics.IterationTimings = append(tr.metrics.IterationTimings,
		IterationTiming{Iteration: iteration, ElapsedS: roundS(elapsed)})
}

// AddTokens accumulates usage into the stage's bucket. Stage aliases fold
// into a canonical name.
func (tr *Tracker) AddTokens(stage string, usage llm.Usage) {
	if usage == (llm.Usage{}) {
		return
	}
	if canonical, ok := stageAliases[stage]; ok {
		stage = canonical
	}
	tr.mu.Lock()
	defer tr.mu.Unlock()
	bucket := tr.metrics.Tokens[stage]
	bucket.Add(usage)
	tr.metrics.Tokens[stage] = bucket
}

func (tr *Tracker) AddRecommendation(path, raw string, parsed *t.ImpactReport) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	tr.metrics.Recommendations = append(tr.metrics.Recommendations,
		Recommendation{Path: path, Raw: raw, Parsed: parsed})
}

func (tr *Tracker) AddFix(path, content, mode, applied string) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	tr.metrics.Fixes = append(tr.metrics.Fixes,
		Fix{Path: path, Content: content, Mode: mode, Applied: applied})
}

func (tr *Tracker) SetResults(finalSure []string, stillUnsure []t.ClassificationEntry) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	tr.metrics.FinalSure = append([]string{}, finalSure...)
	tr.metrics.StillUnsure = append([]t.ClassificationEntry{}, stillUnsure...)
}

// Finalize closes the run: total elapsed time and the aggregate token view.
func (tr *Tracker) Finalize() Metrics {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	tr.metrics.Timing["total_elapsed_s"] = roundS(time.Since(tr.runStart))

	var agg llm.Usage
	for _, bucket := range tr.metrics.Tokens {
		agg.Add(bucket)
	}
	if agg.TotalTokens == 0 {
		agg.TotalTokens = agg.InputTokens + agg.OutputTokens
	}
	tr.metrics.TokensAggregate = agg
	tr.metrics.TokensInputTotal = agg.InputTokens
	return tr.metrics
}

// WriteRun finalizes the run, writes it under dir and returns the finalized
// metrics alongside the file path.
func (tr *Tracker) WriteRun(dir string) (Metrics, string, error) {
	m := tr.Finalize()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return m, "", err
	}
	path := filepath.Join(dir, fmt.Sprintf("evaluation_run_%d.json", m.RunIndex))
	b, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return m, "", err
	}
	return m, path, os.WriteFile(path, b, 0o644)
}

// Summary aggregates finalized runs.
type Summary struct {
	Runs      []Metrics        `json:"runs"`
	Aggregate SummaryAggregate `json:"aggregate"`
}

type SummaryAggregate struct {
	RunCount           int     `json:"run_count"`
	AverageDurationS   float64 `json:"average_duration_s"`
	AverageInputTokens float64 `json:"average_input_tokens"`
	AverageTotalTokens float64 `json:"average_total_tokens"`
	TotalDurationS     float64 `json:"total_duration_s"`
	TotalInputTokens   int     `json:"total_input_tokens"`
	TotalTokens        int     `json:"total_tokens"`
}

// Summarize folds per-run metrics into the aggregate view.
func Summarize(runs []Metrics) Summary {
	s := Summary{Runs: runs}
	s.Aggregate.RunCount = len(runs)
	if len(runs) == 0 {
		return s
	}
	for _, m := range runs {
		s.Aggregate.TotalDurationS += m.Timing["total_elapsed_s"]
		s.Aggregate.TotalInputTokens += m.TokensInputTotal
		s.Aggregate.TotalTokens += m.TokensAggregate.TotalTokens
	}
	n := float64(len(runs))
	s.Aggregate.AverageDurationS = round2(s.Aggregate.TotalDurationS / n)
	s.Aggregate.AverageInputTokens = round2(float64(s.Aggregate.TotalInputTokens) / n)
	s.Aggregate.AverageTotalTokens = round2(float64(s.Aggregate.TotalTokens) / n)
	return s
}

// WriteSummary writes evaluation_summary.json under dir.
func WriteSummary(dir string, s Summary) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, "evaluation_summary.json")
	b, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return "", err
	}
	return path, os.WriteFile(path, b, 0o644)
}

func roundS(d time.Duration) float64 {
	return math.Round(d.Seconds()*1e6) / 1e6
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
