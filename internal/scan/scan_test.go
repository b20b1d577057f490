package scan

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"impactify/internal/safeio"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
}

func TestBuildBoundedDepth(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, map[string]string{
		"a.go":           "package a",
		"pkg/b.go":       "package b",
		"pkg/sub/c.go":   "package c",
		"pkg/sub/d/e.go": "package e",
	})
	fs, err := safeio.NewRepoFS(dir)
	if err != nil {
		t.Fatalf("NewRepoFS: %v", err)
	}
	b := &TreeBuilder{FS: fs, Ignore: NewIgnoreMatcher(nil), MaxDepth: 2}
	tree := b.Build(".")

	if len(tree.Files) != 1 || tree.Files[0].Name != "a.go" {
		t.Fatalf("root files = %+v", tree.Files)
	}
	pkg := tree.Dirs["pkg"]
	if pkg == nil {
		t.Fatal("missing pkg dir")
	}
	sub := pkg.Dirs["sub"]
	if sub == nil {
		t.Fatal("missing pkg/sub dir")
	}
	d := sub.Dirs["d"]
	if d == nil {
		t.Fatal("missing pkg/sub/d dir")
	}
	if !d.Truncated {
		t.Fatal("depth-3 directory should be truncated")
	}
	if len(d.Files) != 0 {
		t.Fatalf("truncated node should list no files, got %+v", d.Files)
	}
}

func TestBuildRespectsGitignore(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, map[string]string{
		".gitignore":  "*.log\nsecret/\n",
		"app.go":      "package app",
		"debug.log":   "noise",
		"secret/k.md": "hidden",
	})
	fs, err := safeio.NewRepoFS(dir)
	if err != nil {
		t.Fatalf("NewRepoFS: %v", err)
	}
	b := &TreeBuilder{FS: fs, Ignore: LoadIgnoreMatcher(dir), MaxDepth: 3}
	tree := b.Build(".")

	for _, f := range tree.Files {
		if f.Name == "debug.log" {
			t.Fatal("*.log should be ignored")
		}
	}
	if _, ok := tree.Dirs["secret"]; ok {
		t.Fatal("secret/ should be ignored")
	}
	if _, ok := tree.Dirs["node_modules"]; ok {
		t.Fatal("default excludes should apply")
	}
}

func TestIgnoreMatcherLastRuleWins(t *testing.T) {
	m := NewIgnoreMatcher([]string{"*.md", "!README.md"})
	if !m.Ignored("notes.md", false) {
		t.Fatal("notes.md should be ignored")
	}
	if m.Ignored("README.md", false) {
		t.Fatal("README.md should be re-included by negation")
	}
	if !m.Ignored("node_modules/x/y.js", false) {
		t.Fatal("files under default-excluded dirs should be ignored")
	}
}

func TestPathDepth(t *testing.T) {
	cases := map[string]int{
		".":       0,
		"a":       1,
		"a/b":     2,
		"a/b/c":   3,
		"./a/b":   2,
		"a/b/c/d": 4,
	}
	for in, want := range cases {
		if got := PathDepth(in); got != want {
			t.Errorf("PathDepth(%q) = %d, want %d", in, got, want)
		}
	}
}

func TestReadTruncated(t *testing.T) {
	dir := t.TempDir()
	long := strings.Repeat("x", 500)
	writeTree(t, dir, map[string]string{"big.txt": long, "small.txt": "tiny"})
	fs, err := safeio.NewRepoFS(dir)
	if err != nil {
		t.Fatalf("NewRepoFS: %v", err)
	}

	got, err := ReadTruncated(fs, "big.txt", 100)
	if err != nil {
		t.Fatalf("ReadTruncated: %v", err)
	}
	if !got.Truncated || len(got.Text) != 100 || got.OriginalSize != 500 {
		t.Fatalf("unexpected truncation: %+v", got)
	}

	got, err = ReadTruncated(fs, "small.txt", 100)
	if err != nil {
		t.Fatalf("ReadTruncated: %v", err)
	}
	if got.Truncated || got.Text != "tiny" {
		t.Fatalf("small file should pass through: %+v", got)
	}
}
