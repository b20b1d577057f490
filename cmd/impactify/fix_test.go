package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"impactify/internal/llm"
	"impactify/internal/pipeline"
	"impactify/internal/safeio"
	"impactify/internal/scan"
)

func TestResolveTargetMapsNearMissPaths(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "pkg", "util")
	require.NoError(t, os.MkdirAll(sub, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(sub, "config.go"), []byte("package util\n"), 0o644))

	fs, err := safeio.NewRepoFS(dir)
	require.NoError(t, err)
	pipe := pipeline.New(fs,
		llm.NewRegistry(llm.NewFakeClient(nil), llm.ContextBundle{}),
		scan.NewIgnoreMatcher(nil))

	require.Equal(t, "pkg/util/config.go", resolveTarget(pipe, "pkg/util/config.go"))
	require.Equal(t, "pkg/util/config.go", resolveTarget(pipe, "./pkg/util/config.go"))
	require.Equal(t, "pkg/util/config.go", resolveTarget(pipe, "util/config.go"))
}
