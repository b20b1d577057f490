// Package pipeline drives the impact classification run: one whole-tree
// classification pass, concurrent subfolder analyses, a bounded refinement
// loop with evidence escalation, deduplication, detailed per-file reporting
// and fix generation for files diagnosed as needing updates.
package pipeline

import (
	"context"
	"log"
	"path"
	"time"

	"impactify/internal/eval"
	"impactify/internal/llm"
	"impactify/internal/overview"
	"impactify/internal/resolve"
	"impactify/internal/safeio"
	"impactify/internal/scan"
	t "impactify/internal/types"
)

const (
	// DefaultMaxDepth bounds tree scans and subfolder fan-out.
	DefaultMaxDepth = 3
	// DefaultMaxIterations bounds the refinement loop.
	DefaultMaxIterations = 3
	// DefaultWorkers bounds concurrent model calls and file reads.
	DefaultWorkers = 5
)

// Pipeline wires the collaborators of one analysis run. Fields are set once
// before Run; the pipeline itself keeps no mutable state between runs.
type Pipeline struct {
	FS       *safeio.RepoFS
	Sessions *llm.Registry
	Resolver *resolve.Resolver
	Overview *overview.Registry
	Ignore   *scan.IgnoreMatcher
	Tracker  *eval.Tracker // optional

	MaxDepth      int
	MaxIterations int
	Workers       int
}

// New builds a pipeline with defaults applied.
func New(fs *safeio.RepoFS, sessions *llm.Registry, ignore *scan.IgnoreMatcher) *Pipeline {
	return &Pipeline{
		FS:            fs,
		Sessions:      sessions,
		Resolver:      resolve.New(fs),
		Overview:      overview.NewRegistry(),
		Ignore:        ignore,
		MaxDepth:      DefaultMaxDepth,
		MaxIterations: DefaultMaxIterations,
		Workers:       DefaultWorkers,
	}
}

// RunResult is the outcome of one full analysis.
type RunResult struct {
	Sure        []string                `json:"sure"`
	Reports     []t.ReportEntry         `json:"report_entries"`
	StillUnsure []t.ClassificationEntry `json:"still_unsure"`
	Audit       []t.AuditRecord         `json:"refinement_stats"`
	Usage       llm.Usage               `json:"token_usage"`
}

// Run executes the full classification workflow and detailed reporting.
// Partial failures degrade coverage, never availability: the result always
// holds whatever subset was confidently classified and reported.
func (p *Pipeline) Run(ctx context.Context) (*RunResult, error) {
	res := &RunResult{
		Sure:        []string{},
		Reports:     []t.ReportEntry{},
		StillUnsure: []t.ClassificationEntry{},
		Audit:       []t.AuditRecord{},
	}

	p.startPhase("initial_analysis")
	log.Println("=== Initial Analysis ===")
	initial, usage, err := p.classifyRepo(ctx)
	p.addTokens("initial", usage)
	res.Usage.Add(usage)
	p.endPhase("initial_analysis")
	if err != nil {
		return nil, err
	}
	log.Printf("Initial analysis - Sure: %d, Unsure: %d", len(initial.Sure), len(initial.Unsure))

	var finalSure []string
	var unsure []t.ClassificationEntry
	var sureFolders []string

	for _, item := range initial.Sure {
		resolved := p.Resolver.Resolve(item)
		if resolved != item {
			log.Printf("[PATH] Resolved initial sure %s -> %s", item, resolved)
		}
		if p.FS.IsDir(resolved) && scan.AtMaxDepth(p.FS, resolved, p.MaxDepth) {
			log.Printf("[INITIAL] Found sure folder at max depth: %s", resolved)
			sureFolders = append(sureFolders, resolved)
		} else {
			finalSure = append(finalSure, resolved)
		}
	}
	unsure = append(unsure, initial.Unsure...)

	if len(sureFolders) > 0 {
		log.Printf("=== Processing %d sure folders in parallel ===", len(sureFolders))
		s, u := p.analyzeFolders(ctx, sureFolders, res)
		finalSure = append(finalSure, s...)
		unsure = append(unsure, u...)
	}

	// Refinement loop.
	for iteration := 1; len(unsure) > 0 && iteration <= p.MaxIterations; iteration++ {
		log.Printf("=== Parallel Refinement Iteration %d (%d entries) ===", iteration, len(unsure))
		iterStart := time.Now()

		out := p.refineBatch(ctx, unsure, res)
		finalSure = append(finalSure, out.sure...)
		unsure = out.unsure

		if len(out.folders) > 0 {
			log.Printf("[PARALLEL] Analyzing %d discovered folders...", len(out.folders))
			s, u := p.analyzeFolders(ctx, out.folders, res)
			finalSure = append(finalSure, s...)
			unsure = append(unsure, u...)
		}

		unsure = p.escalate(unsure, iteration, res)
		p.recordIteration(iteration, time.Since(iterStart))
	}

	res.Sure = p.Resolver.Dedup(finalSure)

	p.startPhase("reporting")
	res.Reports = p.ReportFiles(ctx, res.Sure, res)
	p.endPhase("reporting")

	if len(res.StillUnsure) > 0 {
		log.Printf("Still uncertain (%d):", len(res.StillUnsure))
		for _, e := range res.StillUnsure {
			log.Printf("  - %s (%s)", e.Path, e.Reason)
		}
	}
	return res, nil
}

// classifyRepo runs the whole-tree classification pass on the main session.
func (p *Pipeline) classifyRepo(ctx context.Context) (t.ClassificationResult, llm.Usage, error) {
	prompt := "Given the commit repository tree structure and the latest commit delta in your context:\n\n" +
		"Identify files/folders directly or indirectly impacted (sure) and uncertain cases with reason, is_dir, and needed_info."

	resp, err := p.Sessions.Session("main").Send(ctx, prompt)
	if err != nil {
		return t.ClassificationResult{}, llm.Usage{}, err
	}
	var result t.ClassificationResult
	if err := decodeJSON(resp.Text, &result); err != nil {
		return t.ClassificationResult{}, resp.Usage, err
	}
	return result, resp.Usage, nil
}

// analyzeFolders fans subfolder analyses out over the worker pool. A failed
// folder contributes nothing; siblings are unaffected.
func (p *Pipeline) analyzeFolders(ctx context.Context, folders []string, res *RunResult) ([]string, []t.ClassificationEntry) {
	type folderOut struct {
		sure   []string
		unsure []t.ClassificationEntry
		usage  llm.Usage
	}
	results := runBatch(ctx, p.Workers, folders, func(ctx context.Context, folder string) (folderOut, error) {
		s, u, usage, err := p.AnalyzeSubfolder(ctx, folder)
		return folderOut{sure: s, unsure: u, usage: usage}, err
	})

	var sure []string
	var unsure []t.ClassificationEntry
	for i, r := range results {
		res.Usage.Add(r.Value.usage)
		p.addTokens("refinement", r.Value.usage)
		if r.Err != nil {
			log.Printf("[ERROR] Failed to analyze folder %s: %v", folders[i], r.Err)
			continue
		}
		sure = append(sure, r.Value.sure...)
		unsure = append(unsure, r.Value.unsure...)
	}
	return sure, unsure
}

// batchOutcome is the merged result of one refinement round.
type batchOutcome struct {
	sure    []string
	unsure  []t.ClassificationEntry
	folders []string
}

// refineBatch processes one round's unsure entries concurrently. Directory
// entries go straight to the subfolder analyzer; file entries get a
// refinement verdict. Failed refinements keep their entry unsure.
func (p *Pipeline) refineBatch(ctx context.Context, entries []t.ClassificationEntry, res *RunResult) batchOutcome {
	levels := map[string]int{}
	for _, e := range entries {
		key := e.EvidenceLevel
		if e.IsDir {
			key = "directory"
		}
		levels[key]++
	}
	log.Printf("[INFO_LEVELS] %v", levels)

	type taskOut struct {
		verdict t.RefinementVerdict
		usage   llm.Usage
		folder  bool
		sure    []string
		unsure  []t.ClassificationEntry
	}

	results := runBatch(ctx, p.Workers, entries, func(ctx context.Context, e t.ClassificationEntry) (taskOut, error) {
		if e.IsDir {
			s, u, usage, err := p.AnalyzeSubfolder(ctx, e.Path)
			return taskOut{folder: true, sure: s, unsure: u, usage: usage}, err
		}
		v, usage, err := p.RefineEntry(ctx, e)
		return taskOut{verdict: v, usage: usage}, err
	})

	var out batchOutcome
	for i, r := range results {
		entry := entries[i]
		if r.Err != nil {
			log.Printf("[ERROR] Task failed for %s: %v", entry.Path, r.Err)
			if !entry.IsDir {
				// Conservative fallback: keep for the next round.
				out.unsure = append(out.unsure, entry)
			}
			continue
		}
		res.Usage.Add(r.Value.usage)
		p.addTokens("refinement", r.Value.usage)

		if r.Value.folder {
			log.Printf("[FOLDER_RESULT] %s: %d sure, %d unsure", entry.Path, len(r.Value.sure), len(r.Value.unsure))
			out.sure = append(out.sure, r.Value.sure...)
			out.unsure = append(out.unsure, r.Value.unsure...)
			continue
		}

		verdict := r.Value.verdict
		log.Printf("[DECISION] %s: %v (%s) [was: %s]", entry.Path, verdict.Related, verdict.Confidence, entry.EvidenceLevel)

		decision := "not_related"
		if verdict.Related {
			decision = "related"
		}
		res.Audit = append(res.Audit, t.AuditRecord{
			Path:       entry.Path,
			Decision:   decision,
			Confidence: verdict.Confidence,
			Reasoning:  verdict.Reasoning,
		})

		if isDirectoryRedirect(verdict) {
			log.Printf("[REDIRECT] %s -> discovered to be directory", entry.Path)
			out.folders = append(out.folders, verdict.Path)
			continue
		}

		switch {
		case verdict.Related:
			log.Printf("[SURE] %s -> added to final results", entry.Path)
			out.sure = append(out.sure, verdict.Path)
		case verdict.Confidence == t.ConfidenceLow:
			// Residual uncertainty: the escalation policy decides whether
			// this becomes a raw-content round or a prune.
			log.Printf("[LOW_CONF] %s -> low confidence, will be escalated or pruned", entry.Path)
			out.unsure = append(out.unsure, entryWithPath(entry, verdict.Path))
		default:
			log.Printf("[NOT_RELATED] %s -> excluded from results", entry.Path)
		}
	}
	return out
}

// escalate applies the per-entry policy after round `iteration` completed.
// Below the cap: overview entries get one raw-content round, raw-content
// entries are pruned, directories below max depth queue for subfolder
// analysis. At the cap every remaining entry is pruned; pruned-at-cap
// entries are surfaced as still-unsure rather than dropped.
func (p *Pipeline) escalate(unsure []t.ClassificationEntry, iteration int, res *RunResult) []t.ClassificationEntry {
	var next []t.ClassificationEntry
	pruned := 0

	for _, e := range unsure {
		if iteration >= p.MaxIterations {
			log.Printf("[PRUNE] %s -> max iterations reached", e.Path)
			res.StillUnsure = append(res.StillUnsure, e)
			pruned++
			continue
		}
		switch {
		case e.IsDir:
			if !scan.AtMaxDepth(p.FS, e.Path, p.MaxDepth) && p.FS.IsDir(e.Path) {
				log.Printf("[FOLDER] %s -> scheduling for subfolder analysis", e.Path)
				next = append(next, e)
			} else {
				log.Printf("[PRUNE] %s -> folder at max depth, pruning", e.Path)
				pruned++
			}
		case e.Level() == t.EvidenceOverview:
			log.Printf("[ESCALATE] %s -> %s to raw_content (final chance)", e.Path, e.EvidenceLevel)
			next = append(next, e.Escalated("Escalated from overview: "+e.Reason))
		default:
			log.Printf("[PRUNE] %s -> low confidence on raw_content, pruning as not impacted", e.Path)
			pruned++
		}
	}
	if pruned > 0 {
		log.Printf("[PRUNED] %d low-confidence entries pruned (assumed not impacted)", pruned)
	}
	return next
}

func isDirectoryRedirect(v t.RefinementVerdict) bool {
	return v.Related && v.Reasoning == directoryRedirectReason
}

func entryWithPath(e t.ClassificationEntry, p string) t.ClassificationEntry {
	if p != "" {
		e.Path = p
	}
	return e
}

// rerootPath rewrites a subfolder-relative path back to a root-relative one.
func rerootPath(folder, rel string) string {
	if folder == "." || folder == "" {
		return resolve.Normalize(rel)
	}
	return resolve.Normalize(path.Join(folder, rel))
}

func (p *Pipeline) addTokens(stage string, usage llm.Usage) {
	if p.Tracker != nil {
		p.Tracker.AddTokens(stage, usage)
	}
}

func (p *Pipeline) startPhase(phase string) {
	if p.Tracker != nil {
		p.Tracker.StartPhase(phase)
	}
}

func (p *Pipeline) endPhase(phase string) {
	if p.Tracker != nil {
		p.Tracker.EndPhase(phase)
	}
}

func (p *Pipeline) recordIteration(iteration int, elapsed time.Duration) {
	if p.Tracker != nil {
		p.Tracker.RecordIteration(iteration, elapsed)
	}
}
