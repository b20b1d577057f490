package resolve

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"impactify/internal/safeio"
)

func newResolver(t *testing.T, files ...string) *Resolver {
	t.Helper()
	dir := t.TempDir()
	for _, rel := range files {
		p := filepath.Join(dir, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte("x"), 0o644))
	}
	repo, err := safeio.NewRepoFS(dir)
	require.NoError(t, err)
	return New(repo)
}

func TestResolveVerbatimExisting(t *testing.T) {
	r := newResolver(t, "server/app.go")
	require.Equal(t, "server/app.go", r.Resolve("server/app.go"))
}

func TestResolveStripsDotSlash(t *testing.T) {
	r := newResolver(t, "server/app.go")
	require.Equal(t, "server/app.go", r.Resolve("./server/app.go"))
}

func TestResolveCollapsesRepeatedSegments(t *testing.T) {
	r := newResolver(t, "server/app.go")
	require.Equal(t, "server/app.go", r.Resolve("server/server/app.go"))
}

func TestResolveBasenameSearchPrefersSimilarPath(t *testing.T) {
	r := newResolver(t, "internal/server/handler.go", "x/y/z/handler.go")
	require.Equal(t, "internal/server/handler.go", r.Resolve("internal/handler.go"))
}

func TestResolveFailsClosedBelowSimilarityFloor(t *testing.T) {
	r := newResolver(t, "deeply/nested/tree/of/dirs/main.go")
	// Nothing resembling this path exists; the lone basename match scores
	// under the floor, so the candidate comes back unchanged.
	require.Equal(t, "z/main.go", r.Resolve("z/main.go"))
}

func TestResolveUnknownBasenameUnchanged(t *testing.T) {
	r := newResolver(t, "a/b.go")
	require.Equal(t, "missing/nothere.go", r.Resolve("missing/nothere.go"))
}

func TestDedupIdempotent(t *testing.T) {
	r := newResolver(t, "server/app.go", "lib/util.go")
	in := []string{"server/app.go", "./server/app.go", "server/server/app.go", "lib/util.go"}
	got := r.Dedup(in)
	require.Equal(t, []string{"server/app.go", "lib/util.go"}, got)
	require.Equal(t, got, r.Dedup(got))
}

func TestNormalize(t *testing.T) {
	require.Equal(t, "a/b", Normalize("./a//b"))
	require.Equal(t, "a/b", Normalize("a/c/../b"))
	require.Equal(t, ".", Normalize("."))
}
