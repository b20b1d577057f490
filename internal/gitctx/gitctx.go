// Package gitctx collects the change context for a run: commit metadata,
// a per-type summary of changed files and the raw per-file patches. It shells
// out to the git binary; a directory that is not a git repository yields an
// empty context and a warning, never an error.
package gitctx

import (
	"fmt"
	"log"
	"os/exec"
	"strconv"
	"strings"

	t "impactify/internal/types"
)

// Collect gathers the change context for rev (default "HEAD") in root.
func Collect(root, rev string) t.ChangeContext {
	if rev == "" {
		rev = "HEAD"
	}
	if _, err := git(root, "rev-parse", "--git-dir"); err != nil {
		log.Printf("[DIFF] %s is not a git repository; using empty change context", root)
		return emptyContext()
	}

	info, err := commitInfo(root, rev)
	if err != nil {
		log.Printf("[DIFF] cannot resolve %s in %s: %v; using empty change context", rev, root, err)
		return emptyContext()
	}

	ctx := t.ChangeContext{
		CommitInfo: info,
		Summary: t.ChangeSummary{
			FilesByType: map[string][]string{"added": {}, "deleted": {}, "modified": {}, "renamed": {}},
		},
	}

	status, err := git(root, "show", "--format=", "--name-status", "-M", rev)
	if err == nil {
		ctx.StructuredDiffs = parseNameStatus(status)
	}
	for _, d := range ctx.StructuredDiffs {
		ctx.Summary.FilesByType[d.ChangeType] = append(ctx.Summary.FilesByType[d.ChangeType], d.Path)
	}
	ctx.Summary.TotalFilesChanged = len(ctx.StructuredDiffs)

	patch, err := git(root, "show", "--format=", "--patch", "-M", rev)
	if err == nil {
		ctx.RawPatches = splitPatches(patch)
	}
	return ctx
}

// Render formats a change context into the prompt block shared by every
// session: commit line, per-type summary, then the detailed patches.
func Render(c t.ChangeContext) string {
	var b strings.Builder
	sha := c.CommitInfo.SHA
	if len(sha) > 8 {
		sha = sha[:8]
	}
	fmt.Fprintf(&b, "Git Commit Analysis:\nCommit: %s\nMessage: %s\n\n", sha, c.CommitInfo.Message)
	fmt.Fprintf(&b, "Summary: %d files changed\n", c.Summary.TotalFilesChanged)
	for _, kind := range []string{"added", "modified", "deleted", "renamed"} {
		if paths := c.Summary.FilesByType[kind]; len(paths) > 0 {
			fmt.Fprintf(&b, "%s%s: %s\n", strings.ToUpper(kind[:1]), kind[1:], strings.Join(paths, ", "))
		}
	}
	b.WriteString("\nDetailed Changes:\n")
	for _, p := range c.RawPatches {
		fmt.Fprintf(&b, "=== %s ===\n%s\n", p.Path, p.Patch)
	}
	return b.String()
}

func emptyContext() t.ChangeContext {
	return t.ChangeContext{
		Summary: t.ChangeSummary{
			FilesByType: map[string][]string{"added": {}, "deleted": {}, "modified": {}, "renamed": {}},
		},
	}
}

func commitInfo(root, rev string) (t.CommitInfo, error) {
	out, err := git(root, "log", "-1", "--format=%H%x00%s%x00%an <%ae>%x00%ct", rev)
	if err != nil {
		return t.CommitInfo{}, err
	}
	parts := strings.SplitN(strings.TrimSpace(out), "\x00", 4)
	if len(parts) != 4 {
		return t.CommitInfo{}, fmt.Errorf("gitctx: unexpected log output %q", out)
	}
	date, _ := strconv.ParseInt(parts[3], 10, 64)
	return t.CommitInfo{SHA: parts[0], Message: parts[1], Author: parts[2], Date: date}, nil
}

func parseNameStatus(out string) []t.StructuredDiff {
	var diffs []t.StructuredDiff
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimRight(line, "\r")
		if line == "" {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) < 2 {
			continue
		}
		code := fields[0]
		switch {
		case strings.HasPrefix(code, "A"):
			diffs = append(diffs, t.StructuredDiff{Path: fields[1], ChangeType: "added"})
		case strings.HasPrefix(code, "D"):
			diffs = append(diffs, t.StructuredDiff{Path: fields[1], ChangeType: "deleted"})
		case strings.HasPrefix(code, "R") && len(fields) >= 3:
			diffs = append(diffs, t.StructuredDiff{
				Path:       fields[2],
				ChangeType: "renamed",
				OldPath:    fields[1],
				NewPath:    fields[2],
			})
		default:
			diffs = append(diffs, t.StructuredDiff{Path: fields[1], ChangeType: "modified"})
		}
	}
	return diffs
}

// splitPatches cuts a combined `git show --patch` output into per-file
// patches keyed by the post-image path. The `diff --git` and `index` lines
// are dropped; downstream consumers want minimal unified diffs.
func splitPatches(out string) []t.RawPatch {
	var patches []t.RawPatch
	var cur *t.RawPatch
	var body []string

	flush := func() {
		if cur != nil {
			cur.Patch = strings.Join(body, "\n")
			patches = append(patches, *cur)
		}
		cur = nil
		body = nil
	}

	for _, line := range strings.Split(out, "\n") {
		if strings.HasPrefix(line, "diff --git ") {
			flush()
			cur = &t.RawPatch{Path: pathFromDiffHeader(line)}
			continue
		}
		if cur == nil {
			continue
		}
		if strings.HasPrefix(line, "index ") {
			continue
		}
		body = append(body, line)
	}
	flush()
	return patches
}

func pathFromDiffHeader(line string) string {
	// `diff --git a/old b/new` — take the b/ side.
	fields := strings.Fields(line)
	if len(fields) < 4 {
		return ""
	}
	return strings.TrimPrefix(fields[len(fields)-1], "b/")
}

func git(root string, args ...string) (string, error) {
	cmd := exec.Command("git", args...)
	cmd.Dir = root
	out, err := cmd.Output()
	if err != nil {
		return "", err
	}
	return string(out), nil
}
