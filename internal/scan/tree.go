package scan

import (
	"log"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"impactify/internal/safeio"
	t "impactify/internal/types"
)

// TreeBuilder produces bounded-depth directory snapshots for the prompts.
// All reads go through the root-locked filesystem.
type TreeBuilder struct {
	FS       *safeio.RepoFS
	Ignore   *IgnoreMatcher
	MaxDepth int
}

// Build walks the directory at rel (repo-relative, "." for the root) down to
// MaxDepth levels. Unreadable directories are recorded on the node instead of
// failing the walk.
func (b *TreeBuilder) Build(rel string) *t.Tree {
	rel = path.Clean(strings.Trim(rel, "/"))
	if rel == "" {
		rel = "."
	}
	return b.walk(rel, 0)
}

func (b *TreeBuilder) walk(rel string, level int) *t.Tree {
	name := path.Base(rel)
	if rel == "." {
		name = path.Base(b.FS.Root())
	}
	node := &t.Tree{
		Name:  name,
		Dirs:  map[string]*t.Tree{},
		Files: []t.TreeFile{},
		Depth: level,
	}
	if level > b.MaxDepth {
		node.Truncated = true
		return node
	}

	entries, err := b.FS.ReadDir(rel)
	if err != nil {
		log.Printf("[TREE] error reading %s: %v", rel, err)
		node.Truncated = true
		node.Error = err.Error()
		return node
	}
	sort.Slice(entries, func(i, j int) bool {
		return strings.ToLower(entries[i].Name()) < strings.ToLower(entries[j].Name())
	})

	for _, e := range entries {
		childRel := path.Join(rel, e.Name())
		if b.Ignore.Ignored(childRel, e.IsDir()) {
			continue
		}
		if e.IsDir() {
			node.Dirs[e.Name()] = b.walk(childRel, level+1)
			continue
		}
		node.Files = append(node.Files, t.TreeFile{Name: e.Name(), Depth: level})
	}
	return node
}

// PathDepth returns the depth of a repo-relative path: 0 for the root, 1 for
// a top-level entry, and so on.
func PathDepth(rel string) int {
	rel = path.Clean(strings.Trim(filepath.ToSlash(rel), "/"))
	if rel == "." || rel == "" {
		return 0
	}
	return strings.Count(rel, "/") + 1
}

// AtMaxDepth reports whether rel is a directory sitting exactly at the
// configured maximum scan depth.
func AtMaxDepth(fs *safeio.RepoFS, rel string, maxDepth int) bool {
	return fs.IsDir(rel) && PathDepth(rel) == maxDepth
}
