package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"path/filepath"

	"impactify/internal/gitctx"
	"impactify/internal/llm"
	"impactify/internal/pipeline"
	"impactify/internal/safeio"
	"impactify/internal/scan"
	t "impactify/internal/types"
)

// readmeChars bounds the readme excerpt shared with every session.
const readmeChars = 4000

// runEnv holds everything one analysis run needs: the sandboxed repo view,
// the wrapped model client and the pipeline wired on top of both.
type runEnv struct {
	cfg    settings
	fs     *safeio.RepoFS
	client llm.Client
	pipe   *pipeline.Pipeline
	change t.ChangeContext
}

func newRunEnv(ctx context.Context, cfg settings) (*runEnv, error) {
	fs, err := safeio.NewRepoFS(cfg.Repo)
	if err != nil {
		return nil, err
	}
	ignore := scan.LoadIgnoreMatcher(fs.Root())

	builder := &scan.TreeBuilder{FS: fs, Ignore: ignore, MaxDepth: cfg.MaxDepth}
	tree := builder.Build(".")
	treeJSON, err := json.MarshalIndent(tree, "", "  ")
	if err != nil {
		return nil, err
	}

	change := gitctx.Collect(fs.Root(), cfg.Rev)
	log.Printf("[CONTEXT] Commit %s: %d files changed", change.CommitInfo.SHA, change.Summary.TotalFilesChanged)

	gemini, err := llm.NewGeminiClient(ctx, cfg.APIKey, cfg.Model)
	if err != nil {
		return nil, err
	}
	client := llm.Wrap(gemini,
		llm.WithLogging(nil),
		llm.Retry(cfg.Retries, 0),
		llm.RateLimit(cfg.RPS, cfg.Workers),
	)

	registry := llm.NewRegistry(client, llm.ContextBundle{
		TreeJSON:    string(treeJSON),
		DiffContext: gitctx.Render(change),
		Readme:      readReadme(fs),
	})
	registry.FixStyle = cfg.FixStyle

	pipe := pipeline.New(fs, registry, ignore)
	pipe.MaxDepth = cfg.MaxDepth
	pipe.MaxIterations = cfg.MaxIterations
	pipe.Workers = cfg.Workers

	return &runEnv{cfg: cfg, fs: fs, client: client, pipe: pipe, change: change}, nil
}

func (e *runEnv) Close() {
	if err := e.client.Close(); err != nil {
		log.Printf("[WARN] closing client: %v", err)
	}
}

func readReadme(fs *safeio.RepoFS) string {
	for _, name := range []string{"README.md", "README", "readme.md", "docs/README.md"} {
		if !fs.Exists(name) || fs.IsDir(name) {
			continue
		}
		tc, err := scan.ReadTruncated(fs, name, readmeChars)
		if err != nil {
			continue
		}
		return tc.Text
	}
	return ""
}

func writeJSON(dir, name string, v any) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return err
	}
	log.Printf("[OUT] wrote %s", path)
	return nil
}
