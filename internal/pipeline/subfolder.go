package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"impactify/internal/llm"
	"impactify/internal/scan"
	t "impactify/internal/types"
)

// AnalyzeSubfolder classifies one directory's contents against the global
// change context. A missing path, a non-directory path or an empty directory
// yields empty results; these are expected outcomes, not errors.
func (p *Pipeline) AnalyzeSubfolder(ctx context.Context, folder string) ([]string, []t.ClassificationEntry, llm.Usage, error) {
	log.Printf("[SUBFOLDER] Analyzing contents of %s", folder)

	if !p.FS.Exists(folder) {
		log.Printf("[ERROR] Subfolder %s does not exist", folder)
		return nil, nil, llm.Usage{}, nil
	}
	if !p.FS.IsDir(folder) {
		log.Printf("[ERROR] Path %s is not a directory", folder)
		return nil, nil, llm.Usage{}, nil
	}

	builder := &scan.TreeBuilder{FS: p.FS, Ignore: p.Ignore, MaxDepth: p.MaxDepth}
	subtree := builder.Build(folder)
	if subtree.Empty() {
		log.Printf("[SUBFOLDER] %s is empty - skipping analysis", folder)
		return nil, nil, llm.Usage{}, nil
	}

	treeJSON, err := json.MarshalIndent(subtree, "", "  ")
	if err != nil {
		return nil, nil, llm.Usage{}, err
	}

	prompt := fmt.Sprintf(`Analyzing subfolder: %s

Subfolder structure:
%s%s%s

Based on the global repository changes (which you have in context), identify files/folders within this specific subfolder that are impacted or related considering the commit delta.

Return paths relative to this subfolder (not absolute paths).

Focus on finding ALL potential impacts, not just direct ones.`,
		folder, "```json\n", treeJSON, "\n```")

	resp, err := p.Sessions.Session("subfolder:"+folder).Send(ctx, prompt)
	if err != nil {
		return nil, nil, llm.Usage{}, err
	}

	var result t.ClassificationResult
	if err := decodeJSON(resp.Text, &result); err != nil {
		return nil, nil, resp.Usage, err
	}

	// Rewrite subfolder-relative paths back to root-relative and resolve.
	var sure []string
	for _, rel := range result.Sure {
		combined := rerootPath(folder, rel)
		resolved := p.Resolver.Resolve(combined)
		if resolved != combined {
			log.Printf("[PATH] Resolved subfolder sure %s -> %s", combined, resolved)
		}
		sure = append(sure, resolved)
	}

	var unsure []t.ClassificationEntry
	for _, e := range result.Unsure {
		combined := rerootPath(folder, e.Path)
		resolved := p.Resolver.Resolve(combined)
		if resolved != combined {
			log.Printf("[PATH] Resolved subfolder unsure %s -> %s", combined, resolved)
		}
		unsure = append(unsure, t.ClassificationEntry{
			Path:          resolved,
			IsDir:         e.IsDir,
			Reason:        e.Reason,
			EvidenceLevel: e.EvidenceLevel,
		})
	}

	log.Printf("[SUBFOLDER] %s: Found %d sure, %d unsure", folder, len(sure), len(unsure))
	return sure, unsure, resp.Usage, nil
}
