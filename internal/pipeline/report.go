package pipeline

import (
	"context"
	"fmt"
	"log"
	"sort"

	"impactify/internal/llm"
	t "impactify/internal/types"
)

// reportTruncateChars caps the file content shown to the reporting session.
const reportTruncateChars = 10000

// ReportFiles produces a detailed impact report for every confirmed file.
// Reads and model calls run concurrently; a failure for one file logs and
// drops that file without touching its siblings.
func (p *Pipeline) ReportFiles(ctx context.Context, paths []string, res *RunResult) []t.ReportEntry {
	log.Println("=== Detailed Impact Analysis ===")

	ordered := append([]string(nil), paths...)
	sort.Strings(ordered)

	type reportOut struct {
		entry t.ReportEntry
		usage llm.Usage
	}
	results := runBatch(ctx, p.Workers, ordered, func(ctx context.Context, path string) (reportOut, error) {
		entry, usage, err := p.reportOne(ctx, path)
		return reportOut{entry: entry, usage: usage}, err
	})

	reports := make([]t.ReportEntry, 0, len(ordered))
	for i, r := range results {
		res.Usage.Add(r.Value.usage)
		p.addTokens("reporting", r.Value.usage)
		if r.Err != nil {
			log.Printf("— Error analyzing file %s: %v —", ordered[i], r.Err)
			continue
		}
		log.Printf("=== %s ===\n%s", r.Value.entry.Path, r.Value.entry.Content)
		reports = append(reports, r.Value.entry)
	}
	return reports
}

func (p *Pipeline) reportOne(ctx context.Context, path string) (t.ReportEntry, llm.Usage, error) {
	content := "<could not read file>"
	if tc, err := p.readForReport(path); err == nil {
		content = tc
	}

	prompt := fmt.Sprintf(`You are a change-impact expert analyzing a repository. Given the repository tree + commit diffs (in context), provide a comprehensive analysis for **%s**.

File content:
%s%s%s

Provide your analysis in the following JSON structure:

1. **Analysis** - How is this file impacted?
- Is it directly or indirectly impacted by the commit?
- Explain in detail how the file is impacted

2. **Diagnosis** - Does this file need updates?
- Sometimes files are impacted but don't need changes
- Explanation of why updates are or aren't needed

3. **Recommendations** - What should be done to fix it?
- Provide at most three concise, file-specific actions (no repository-wide guidance)
- Each action should be unique, concrete, and focused on changes to this file only
- Avoid repeating information already covered for other files or general security advice

The idea is to analyze what's wrong, determine if fixes are needed, and provide a blueprint for the fixes.

Focus on being practical and actionable. If no updates are needed, explain why. If updates are needed, be specific about what should be done while keeping the response tight and non-redundant.`,
		path, "```text\n", content, "\n```")

	resp, err := p.Sessions.Session("reporting").Send(ctx, prompt)
	if err != nil {
		return t.ReportEntry{}, llm.Usage{}, err
	}

	entry := t.ReportEntry{Path: path, Content: resp.Text}

	var report t.ImpactReport
	if err := decodeJSON(resp.Text, &report); err == nil && report.Path != "" {
		entry.Parsed = &report
	} else {
		// Loose output: coerce before recording a null parse.
		entry.Parsed = CoerceImpactReport(resp.Text, path)
	}
	if p.Tracker != nil {
		p.Tracker.AddRecommendation(path, resp.Text, entry.Parsed)
	}
	return entry, resp.Usage, nil
}

func (p *Pipeline) readForReport(path string) (string, error) {
	b, err := p.FS.ReadFile(path)
	if err != nil {
		return "", err
	}
	text := string(b)
	if len(text) > reportTruncateChars {
		text = text[:reportTruncateChars] + "\n... [truncated]"
	}
	return text, nil
}
