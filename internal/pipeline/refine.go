package pipeline

import (
	"context"
	"fmt"
	"log"
	"strings"

	"impactify/internal/llm"
	"impactify/internal/scan"
	t "impactify/internal/types"
)

const (
	directoryRedirectReason = "Directory detected - should be analyzed as subfolder"

	// overviewFallbackChars caps raw content when a file has no overview
	// extractor; rawContentChars caps the final raw-content round.
	overviewFallbackChars = 6000
	rawContentChars       = 10000
)

// evidence is what the refinement prompt gets to see about one file.
type evidence struct {
	directory bool
	err       error

	overview  string // non-empty for header-overview evidence
	text      string
	truncated bool
	original  int
}

// RefineEntry re-evaluates one uncertain entry with the evidence its level
// calls for and asks the refinement session for a verdict. A path that turns
// out to be a directory returns a redirect verdict; an unreadable path
// returns a not-related/low verdict. Neither is an error.
func (p *Pipeline) RefineEntry(ctx context.Context, entry t.ClassificationEntry) (t.RefinementVerdict, llm.Usage, error) {
	resolved := p.Resolver.Resolve(entry.Path)
	if resolved != entry.Path {
		log.Printf("[PATH] Resolved refine target %s -> %s", entry.Path, resolved)
		entry.Path = resolved
	}

	ev := p.gatherEvidence(entry)

	if ev.directory {
		log.Printf("[DIRECTORY] %s is a directory - scheduling for subfolder analysis", entry.Path)
		return t.RefinementVerdict{
			Path:       entry.Path,
			Related:    true,
			Confidence: t.ConfidenceHigh,
			Reasoning:  directoryRedirectReason,
		}, llm.Usage{}, nil
	}
	if ev.err != nil {
		log.Printf("[ERROR] Could not process %s: %v", entry.Path, ev.err)
		return t.RefinementVerdict{
			Path:       entry.Path,
			Related:    false,
			Confidence: t.ConfidenceLow,
			Reasoning:  fmt.Sprintf("Error accessing file: %v - assuming not impacted", ev.err),
		}, llm.Usage{}, nil
	}

	prompt := refinePrompt(entry, ev)
	resp, err := p.Sessions.Session("refinement").Send(ctx, prompt)
	if err != nil {
		log.Printf("Error refining %s: %v", entry.Path, err)
		return t.RefinementVerdict{
			Path:       entry.Path,
			Related:    false,
			Confidence: t.ConfidenceLow,
			Reasoning:  fmt.Sprintf("Error during refinement: %v - pruning as not impacted", err),
		}, llm.Usage{}, nil
	}

	var verdict t.RefinementVerdict
	if err := decodeJSON(resp.Text, &verdict); err != nil {
		log.Printf("Error refining %s: %v", entry.Path, err)
		return t.RefinementVerdict{
			Path:       entry.Path,
			Related:    false,
			Confidence: t.ConfidenceLow,
			Reasoning:  fmt.Sprintf("Error during refinement: %v - pruning as not impacted", err),
		}, resp.Usage, nil
	}
	if verdict.Path == "" {
		verdict.Path = entry.Path
	}
	return verdict, resp.Usage, nil
}

// gatherEvidence reads what the entry's evidence level calls for: structural
// headers at the overview level (raw fallback for unsupported extensions),
// truncated raw content at the raw-content level.
func (p *Pipeline) gatherEvidence(entry t.ClassificationEntry) evidence {
	if p.FS.IsDir(entry.Path) {
		return evidence{directory: true}
	}
	if !p.FS.Exists(entry.Path) {
		return evidence{err: fmt.Errorf("path %s does not exist", entry.Path)}
	}

	if entry.Level() == t.EvidenceOverview {
		if p.Overview.Supported(entry.Path) {
			content, err := p.FS.ReadFile(entry.Path)
			if err != nil {
				return evidence{err: err}
			}
			headers, err := p.Overview.Extract(entry.Path, content)
			if err == nil && headers != "" {
				return evidence{overview: headers}
			}
			// Parser yielded nothing useful; fall back to raw.
		}
		return p.rawEvidence(entry.Path, overviewFallbackChars)
	}
	return p.rawEvidence(entry.Path, rawContentChars)
}

func (p *Pipeline) rawEvidence(path string, maxChars int) evidence {
	tc, err := scan.ReadTruncated(p.FS, path, maxChars)
	if err != nil {
		return evidence{err: err}
	}
	return evidence{text: tc.Text, truncated: tc.Truncated, original: tc.OriginalSize}
}

func refinePrompt(entry t.ClassificationEntry, ev evidence) string {
	var info, level string
	if ev.overview != "" {
		var b strings.Builder
		b.WriteString("Function/class headers:\n")
		for _, h := range strings.Split(ev.overview, "\n") {
			fmt.Fprintf(&b, "- %s\n", h)
		}
		info = b.String()
		level = "function/class overview"
	} else {
		info = fmt.Sprintf("Raw content:\n```text\n%s\n```", ev.text)
		level = "full raw content"
		if ev.truncated {
			info += fmt.Sprintf("\n... (truncated at %d chars, full file is %d chars)", len(ev.text), ev.original)
		}
	}

	guidance := "OVERVIEW ANALYSIS\n" +
		"This is function/class overview analysis. If you need more detail, you can use \"low\" confidence\n" +
		"to request raw content analysis in the next iteration."
	if entry.Level() == t.EvidenceRawContent {
		guidance = "FINAL DECISION REQUIRED\n" +
			"This is raw content analysis, you MUST make a final decision.\n" +
			"No further escalation is possible. Choose \"related: true\" or \"related: false\" decisively."
	}

	return fmt.Sprintf(`File: %s
Analysis Level: %s
Original Reason: %s

%s

%s

Make your decision on whether this file is related/impacted by the changes:

Respond with JSON including:
- path: the file path
- related: true if the file is impacted, false if not
- confidence: "high", "medium", or "low"
- reasoning: brief explanation of your decision

Key decision criteria:
- If you have enough information to make a confident decision (either way), set confidence to "high"
- For overview analysis: use "low" confidence only if you genuinely need to see raw content
- It's okay to confidently determine a file is NOT related
- It's better to be decisive than uncertain`,
		entry.Path, level, entry.Reason, info, guidance)
}
