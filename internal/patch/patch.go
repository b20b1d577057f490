// Package patch extracts unified diffs from model output and applies them to
// file content. The applier is deterministic: a single pass over the original
// lines and the hunk lines, no fuzzy matching, no rollback.
package patch

import (
	"fmt"
	"regexp"
	"strings"
)

var hunkHeader = regexp.MustCompile(`^@@ -(\d+)(?:,\d+)? \+\d+(?:,\d+)? @@`)

// ExtractDiff normalizes a model response down to a minimal unified diff.
// A single surrounding code fence is stripped, `diff --git` and `index `
// lines are dropped and runs of blank lines are collapsed. A whitespace-only
// line is kept verbatim: `" "` is a blank context line and must survive for
// the applier's cursor to stay in sync. The result must carry both a `---`
// and a `+++` header whenever it contains hunk markers.
func ExtractDiff(raw string) (string, error) {
	text := stripFence(strings.TrimSpace(raw))

	var out []string
	blank := false
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimRight(line, "\r")
		if strings.HasPrefix(trimmed, "diff --git ") || strings.HasPrefix(trimmed, "index ") {
			continue
		}
		if strings.TrimSpace(trimmed) == "" {
			if blank {
				continue
			}
			blank = true
			out = append(out, trimmed)
			continue
		}
		blank = false
		out = append(out, trimmed)
	}
	diff := strings.TrimSpace(strings.Join(out, "\n"))

	if strings.Contains(diff, "@@") {
		hasOld := false
		hasNew := false
		for _, line := range strings.Split(diff, "\n") {
			if strings.HasPrefix(line, "--- ") {
				hasOld = true
			}
			if strings.HasPrefix(line, "+++ ") {
				hasNew = true
			}
		}
		if !hasOld || !hasNew {
			return "", fmt.Errorf("patch: diff has hunks but no ---/+++ headers")
		}
	}
	return diff, nil
}

// Apply applies a unified diff to original and returns the patched content.
// Hunks must be monotonically increasing and non-overlapping. A diff with
// headers but no hunks yields the original unchanged.
func Apply(original, diff string) (string, error) {
	lines := splitLines(original)
	var out []string
	cursor := 0
	inHunk := false

	for _, line := range strings.Split(diff, "\n") {
		if m := hunkHeader.FindStringSubmatch(line); m != nil {
			start := atoi(m[1])
			// Hunk starts are 1-based; a start of 0 means "insert at top".
			upto := start - 1
			if upto < 0 {
				upto = 0
			}
			if upto < cursor {
				return "", fmt.Errorf("patch: hunk at line %d overlaps previously applied hunk", start)
			}
			if upto > len(lines) {
				return "", fmt.Errorf("patch: hunk at line %d starts past end of file (%d lines)", start, len(lines))
			}
			out = append(out, lines[cursor:upto]...)
			cursor = upto
			inHunk = true
			continue
		}
		if !inHunk {
			// Headers and any leftover pre-hunk prose carry no edits.
			continue
		}

		switch {
		case strings.HasPrefix(line, " "):
			if cursor >= len(lines) {
				return "", fmt.Errorf("patch: context line %q past end of file", line[1:])
			}
			out = append(out, lines[cursor])
			cursor++
		case strings.HasPrefix(line, "-"):
			if cursor >= len(lines) {
				return "", fmt.Errorf("patch: removal line %q past end of file", line[1:])
			}
			cursor++
		case strings.HasPrefix(line, "+"):
			out = append(out, line[1:]+"\n")
		case strings.HasPrefix(line, `\`):
			// "\ No newline at end of file": the previous emitted line has none.
			if n := len(out); n > 0 {
				out[n-1] = strings.TrimSuffix(out[n-1], "\n")
			}
		case strings.HasPrefix(line, "--- "), strings.HasPrefix(line, "+++ "):
			// Stray headers between hunks are ignored.
		case strings.TrimSpace(line) == "":
			// Some models drop the leading space from empty context lines.
			out = append(out, "\n")
		default:
			return "", fmt.Errorf("patch: unrecognized diff line: %q", line)
		}
	}

	out = append(out, lines[cursor:]...)
	return strings.Join(out, ""), nil
}

// splitLines splits content into lines that keep their trailing newline, so
// the final join reproduces the original byte-for-byte.
func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	var lines []string
	for {
		i := strings.IndexByte(s, '\n')
		if i < 0 {
			lines = append(lines, s)
			return lines
		}
		lines = append(lines, s[:i+1])
		s = s[i+1:]
		if s == "" {
			return lines
		}
	}
}

func stripFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	nl := strings.IndexByte(s, '\n')
	if nl < 0 {
		return s
	}
	body := s[nl+1:]
	if end := strings.LastIndex(body, "```"); end >= 0 {
		body = body[:end]
	}
	return strings.TrimRight(body, "\n")
}

func atoi(s string) int {
	n := 0
	for _, c := range s {
		n = n*10 + int(c-'0')
	}
	return n
}
