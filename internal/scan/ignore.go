package scan

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
)

type ignoreRule struct {
	pattern  string
	negated  bool
	dirOnly  bool
	anchored bool
}

// IgnoreMatcher applies gitignore-style rules with last-rule-wins semantics.
// A small set of VCS/dependency directories is always excluded first so a
// repository without a .gitignore still produces a sane tree.
type IgnoreMatcher struct {
	rules []ignoreRule
}

var defaultIgnoreRules = []string{
	".git/",
	".hg/",
	".svn/",
	"node_modules/",
	"vendor/",
	"dist/",
	"build/",
	"target/",
	"__pycache__/",
	".next/",
	".cache/",
}

// NewIgnoreMatcher builds a matcher from raw .gitignore lines. Default
// excludes are prepended and can be re-included by user negation rules.
func NewIgnoreMatcher(lines []string) *IgnoreMatcher {
	all := make([]string, 0, len(defaultIgnoreRules)+len(lines))
	all = append(all, defaultIgnoreRules...)
	all = append(all, lines...)

	rules := make([]ignoreRule, 0, len(all))
	for _, line := range all {
		if r, ok := parseIgnoreRule(line); ok {
			rules = append(rules, r)
		}
	}
	return &IgnoreMatcher{rules: rules}
}

// LoadIgnoreMatcher reads the root .gitignore (when present) and returns a
// matcher over its rules. A missing file yields a matcher with defaults only.
func LoadIgnoreMatcher(root string) *IgnoreMatcher {
	f, err := os.Open(filepath.Join(root, ".gitignore"))
	if err != nil {
		return NewIgnoreMatcher(nil)
	}
	defer f.Close()

	var lines []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	return NewIgnoreMatcher(lines)
}

// Ignored returns true when the slash-separated relative path should be
// excluded from scanning.
func (m *IgnoreMatcher) Ignored(relPath string, isDir bool) bool {
	if m == nil {
		return false
	}
	relPath = strings.Trim(filepath.ToSlash(relPath), "/")
	if relPath == "" || relPath == "." {
		return false
	}
	ignored := false
	for _, r := range m.rules {
		if ruleMatches(r, relPath, isDir) {
			ignored = !r.negated
		}
	}
	return ignored
}

func parseIgnoreRule(line string) (ignoreRule, bool) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return ignoreRule{}, false
	}
	var r ignoreRule
	if strings.HasPrefix(line, "!") {
		r.negated = true
		line = strings.TrimPrefix(line, "!")
	}
	if strings.HasPrefix(line, "/") {
		r.anchored = true
		line = strings.TrimPrefix(line, "/")
	}
	if strings.HasSuffix(line, "/") {
		r.dirOnly = true
		line = strings.TrimSuffix(line, "/")
	}
	line = strings.Trim(filepath.ToSlash(line), "/")
	if line == "" {
		return ignoreRule{}, false
	}
	// A pattern with an interior slash only matches from the root.
	if strings.Contains(line, "/") {
		r.anchored = true
	}
	r.pattern = line
	return r, true
}

func ruleMatches(r ignoreRule, relPath string, isDir bool) bool {
	if r.dirOnly && !isDir {
		// A directory rule still hides everything beneath that directory.
		if !pathHasDirComponent(relPath, r.pattern, r.anchored) {
			return false
		}
		return true
	}
	if r.anchored {
		if ok, _ := filepath.Match(r.pattern, relPath); ok {
			return true
		}
		return strings.HasPrefix(relPath, r.pattern+"/")
	}
	// Unanchored: match the basename or any path component.
	if ok, _ := filepath.Match(r.pattern, filepath.Base(relPath)); ok {
		return true
	}
	return pathHasDirComponent(relPath, r.pattern, false)
}

func pathHasDirComponent(relPath, pattern string, anchored bool) bool {
	parts := strings.Split(relPath, "/")
	for i, part := range parts {
		if anchored && i > 0 {
			return false
		}
		if ok, _ := filepath.Match(pattern, part); ok {
			return true
		}
	}
	return false
}
