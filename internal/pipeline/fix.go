package pipeline

import (
	"context"
	"fmt"
	"log"
	"strings"

	"impactify/internal/llm"
	"impactify/internal/patch"
	t "impactify/internal/types"
)

// Fix output styles.
const (
	FixStyleFullFile = "full_file"
	FixStyleDiff     = "diff"
)

// minFixSize rejects near-empty full-file output as a failed generation.
const minFixSize = 10

// FixResult is one generated fix: the content after applying the fix and,
// in diff mode, the diff itself.
type FixResult struct {
	Path    string    `json:"file_path"`
	Content string    `json:"fixed_content"`
	Diff    string    `json:"diff,omitempty"`
	Style   string    `json:"style"`
	Usage   llm.Usage `json:"usage"`
}

// GenerateFix asks the fix session for a correction to one file and, in
// diff mode, applies the returned patch. The report must diagnose the file
// as needing an update. Failures are scoped to this file; the caller logs
// and moves on.
func (p *Pipeline) GenerateFix(ctx context.Context, report *t.ImpactReport, change t.ChangeContext) (*FixResult, error) {
	if report == nil || !report.Diagnosis.NeedsUpdate {
		return nil, fmt.Errorf("pipeline: %s does not need updates according to impact analysis", reportPath(report))
	}

	requested := report.Path
	resolved := p.Resolver.Resolve(requested)
	if resolved != requested {
		log.Printf("[FIX] Resolved path %s -> %s", requested, resolved)
	}

	original, err := p.FS.ReadFile(resolved)
	if err != nil {
		return nil, fmt.Errorf("pipeline: could not read file %s: %w", resolved, err)
	}

	style := p.Sessions.FixStyle
	if style == "" {
		style = FixStyleFullFile
	}

	prompt := fixPrompt(resolved, requested, string(original), report, change, style)
	log.Printf("[FIX] Generating fix for %s", resolved)

	resp, err := p.Sessions.Session("fix").Send(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("pipeline: failed to generate fix for %s: %w", resolved, err)
	}
	raw := strings.TrimSpace(resp.Text)

	result := &FixResult{Path: resolved, Style: style, Usage: resp.Usage}

	if style == FixStyleDiff {
		diff, err := patch.ExtractDiff(raw)
		if err != nil {
			return nil, fmt.Errorf("pipeline: fix for %s: %w", resolved, err)
		}
		fixed := string(original)
		if diff != "" {
			fixed, err = patch.Apply(string(original), diff)
			if err != nil {
				return nil, fmt.Errorf("pipeline: fix for %s: %w", resolved, err)
			}
		}
		result.Diff = diff
		result.Content = fixed
		return result, nil
	}

	content := stripFence(raw)
	if len(content) < minFixSize {
		return nil, fmt.Errorf("pipeline: generated fix appears to be empty or too short for %s", resolved)
	}
	result.Content = content
	return result, nil
}

// ApplyFix writes a generated fix back into the repository.
func (p *Pipeline) ApplyFix(fix *FixResult) error {
	return p.FS.WriteFile(fix.Path, []byte(fix.Content))
}

func fixPrompt(path, requested, original string, report *t.ImpactReport, change t.ChangeContext, style string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "File to fix: %s\n\n", path)
	fmt.Fprintf(&b, "Impact Analysis:\n")
	fmt.Fprintf(&b, "- Type: %s\n", report.Analysis.Impact)
	fmt.Fprintf(&b, "- Description: %s\n", report.Analysis.ImpactDescription)
	fmt.Fprintf(&b, "- Needs Update: %v\n", report.Diagnosis.NeedsUpdate)
	fmt.Fprintf(&b, "- Rationale: %s\n", report.Diagnosis.UpdateRationale)
	fmt.Fprintf(&b, "- Recommended Actions: %s\n\n", strings.Join(report.Recommendations.RecommendedActions, ", "))

	commitPatch := change.PatchFor(path)
	if commitPatch == "" && requested != path {
		commitPatch = change.PatchFor(requested)
	}
	if commitPatch != "" {
		fmt.Fprintf(&b, "Relevant Commit Diff:\n```diff\n%s\n```\n\n", commitPatch)
	}

	fmt.Fprintf(&b, "Original File Content:\n```\n%s\n```\n\n", original)

	if style == FixStyleDiff {
		fmt.Fprintf(&b, `Requirements:
1. Return a unified diff patch for this exact file only (%[1]s)
2. Use standard headers (--- %[1]s / +++ %[1]s) and include @@ hunks with context
3. Modify only the lines needed to implement the recommendations
4. Do not include explanations, commentary, or surrounding prose
5. If no change is required, return an empty diff showing no hunks
`, path)
	} else {
		b.WriteString(`Requirements:
1. Address all issues identified in the recommended actions
2. Ensure the code is syntactically correct and functional
3. Maintain the existing code structure and style
4. Include all necessary imports and dependencies
5. Preserve existing functionality while fixing the identified issues
6. Return ONLY the complete corrected file content (no explanations)
`)
	}
	b.WriteString("\nProduce your answer now:")
	return b.String()
}

func stripFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	nl := strings.IndexByte(s, '\n')
	if nl < 0 {
		return s
	}
	body := s[nl+1:]
	if end := strings.LastIndex(body, "```"); end >= 0 {
		body = body[:end]
	}
	return strings.TrimRight(body, "\n") + "\n"
}

func reportPath(r *t.ImpactReport) string {
	if r == nil {
		return "<nil report>"
	}
	return r.Path
}
