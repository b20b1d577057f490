package safeio

import (
	"os"
	"path/filepath"
	"testing"
)

func newFixture(t *testing.T) (*RepoFS, string) {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.txt"), []byte("hello"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	fs, err := NewRepoFS(dir)
	if err != nil {
		t.Fatalf("NewRepoFS: %v", err)
	}
	return fs, dir
}

func TestReadFileRelative(t *testing.T) {
	fs, _ := newFixture(t)
	b, err := fs.ReadFile("a.txt")
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(b) != "hello" {
		t.Fatalf("got %q", b)
	}
}

func TestReadFileAbsoluteUnderRoot(t *testing.T) {
	fs, _ := newFixture(t)
	b, err := fs.ReadFile(filepath.Join(fs.Root(), "a.txt"))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(b) != "hello" {
		t.Fatalf("got %q", b)
	}
}

func TestTraversalRejected(t *testing.T) {
	fs, _ := newFixture(t)
	if _, err := fs.ReadFile("../outside.txt"); err == nil {
		t.Fatal("expected traversal error")
	}
}

func TestAbsoluteOutsideRootRejected(t *testing.T) {
	fs, _ := newFixture(t)
	other := t.TempDir()
	p := filepath.Join(other, "x.txt")
	if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := fs.ReadFile(p); err == nil {
		t.Fatal("expected outside-root error")
	}
}

func TestIsDirAndExists(t *testing.T) {
	fs, dir := newFixture(t)
	if err := os.Mkdir(filepath.Join(dir, "sub"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if !fs.IsDir("sub") {
		t.Fatal("sub should be a directory")
	}
	if fs.IsDir("a.txt") {
		t.Fatal("a.txt is not a directory")
	}
	if !fs.Exists("a.txt") || fs.Exists("missing.txt") {
		t.Fatal("Exists misreported")
	}
}

func TestWriteFileOverwrites(t *testing.T) {
	fs, _ := newFixture(t)
	if err := fs.WriteFile("a.txt", []byte("patched")); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	b, err := fs.ReadFile("a.txt")
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(b) != "patched" {
		t.Fatalf("got %q", b)
	}
}
