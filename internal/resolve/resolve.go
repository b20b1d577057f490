// Package resolve repairs model-emitted repository paths against the real
// filesystem. Models routinely emit paths with a leading "./", a doubled
// segment ("server/server/app.go") or a wrong directory; the resolver maps
// each candidate to the closest path that actually exists.
package resolve

import (
	"io/fs"
	"path"
	"path/filepath"
	"strings"

	"github.com/agext/levenshtein"
	lru "github.com/hashicorp/golang-lru/v2"

	"impactify/internal/safeio"
)

// MinSimilarity is the floor for basename-search resolution. A best match
// scoring below it is discarded and the candidate is returned unchanged, so
// a repository full of same-named files cannot hijack an unrelated path.
const MinSimilarity = 0.5

const cacheSize = 1024

// Resolver resolves and normalizes candidate paths against one repository.
// Results are memoized; the repository is assumed stable for the run.
type Resolver struct {
	fs    *safeio.RepoFS
	cache *lru.Cache[string, string]
}

// New builds a resolver over the given root-locked filesystem.
func New(repo *safeio.RepoFS) *Resolver {
	c, _ := lru.New[string, string](cacheSize)
	return &Resolver{fs: repo, cache: c}
}

// Normalize cleans a repository-relative path to slash-separated form.
func Normalize(p string) string {
	p = path.Clean(filepath.ToSlash(p))
	if p == "/" {
		return "."
	}
	return strings.TrimPrefix(p, "./")
}

// Resolve returns a repository-relative path that exists on disk, or the
// normalized candidate unchanged when no plausible match is found.
func (r *Resolver) Resolve(candidate string) string {
	normalized := Normalize(candidate)
	if v, ok := r.cache.Get(normalized); ok {
		return v
	}
	resolved := r.resolve(normalized)
	r.cache.Add(normalized, resolved)
	return resolved
}

func (r *Resolver) resolve(normalized string) string {
	if r.fs.Exists(normalized) {
		return normalized
	}

	trimmed := strings.TrimLeft(normalized, "./")
	if trimmed != "" && r.fs.Exists(trimmed) {
		return trimmed
	}

	// Collapse immediately-repeated segments: "server/server/app.go".
	if dedup := collapseRepeats(normalized); dedup != normalized {
		if r.fs.Exists(dedup) {
			return dedup
		}
		if t := strings.TrimLeft(dedup, "./"); t != "" && r.fs.Exists(t) {
			return t
		}
	}

	base := path.Base(normalized)
	if base == "" || base == "." || base == "/" {
		return normalized
	}
	if match, ok := r.searchBasename(normalized, base); ok {
		return match
	}
	return normalized
}

// Dedup resolves and normalizes every path and drops duplicates, keeping
// first-seen order. The returned set is keyed by resolved path, so two
// aliases of one file collapse into a single entry.
func (r *Resolver) Dedup(paths []string) []string {
	seen := make(map[string]struct{}, len(paths))
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		n := Normalize(r.Resolve(p))
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}

// searchBasename walks the repository for files named base and returns the
// candidate whose full relative path is most similar to the wanted path.
// Ties keep the first match found.
func (r *Resolver) searchBasename(wanted, base string) (string, bool) {
	best := ""
	bestScore := -1.0
	root := r.fs.Root()

	_ = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Name() != base {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		score := levenshtein.Similarity(wanted, rel, nil)
		if score > bestScore {
			best, bestScore = rel, score
		}
		return nil
	})

	if best == "" || bestScore < MinSimilarity {
		return "", false
	}
	return best, true
}

func collapseRepeats(p string) string {
	segs := strings.Split(p, "/")
	out := segs[:0]
	for _, s := range segs {
		if s == "" || s == "." {
			continue
		}
		if len(out) > 0 && out[len(out)-1] == s {
			continue
		}
		out = append(out, s)
	}
	return strings.Join(out, "/")
}
