package patch

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExtractDiffStripsFenceAndNoise(t *testing.T) {
	raw := "```diff\n" +
		"diff --git a/app.go b/app.go\n" +
		"index abc..def 100644\n" +
		"--- a/app.go\n" +
		"+++ b/app.go\n" +
		"\n\n\n" +
		"@@ -1,2 +1,2 @@\n" +
		" a\n" +
		"-b\n" +
		"+B\n" +
		"```"

	got, err := ExtractDiff(raw)
	require.NoError(t, err)
	require.NotContains(t, got, "diff --git")
	require.NotContains(t, got, "index ")
	require.NotContains(t, got, "```")
	require.NotContains(t, got, "\n\n\n")
	require.Contains(t, got, "--- a/app.go")
	require.Contains(t, got, "+++ b/app.go")
	require.Contains(t, got, "@@ -1,2 +1,2 @@")
}

func TestExtractDiffKeepsBlankContextLines(t *testing.T) {
	raw := "```diff\n" +
		"--- a/f.txt\n" +
		"+++ b/f.txt\n" +
		"@@ -1,4 +1,4 @@\n" +
		" a\n" +
		" \n" +
		"-b\n" +
		"+B\n" +
		" c\n" +
		"```"

	diff, err := ExtractDiff(raw)
	require.NoError(t, err)
	require.Contains(t, diff, "\n \n")

	got, err := Apply("a\n\nb\nc\n", diff)
	require.NoError(t, err)
	require.Equal(t, "a\n\nB\nc\n", got)
}

func TestExtractDiffRejectsHunksWithoutHeaders(t *testing.T) {
	_, err := ExtractDiff("@@ -1,1 +1,1 @@\n-a\n+b\n")
	require.Error(t, err)
}

func TestApplyReplacesMiddleLine(t *testing.T) {
	diff := strings.Join([]string{
		"--- a/f.txt",
		"+++ b/f.txt",
		"@@ -1,3 +1,3 @@",
		" a",
		"-b",
		"+B",
		" c",
	}, "\n")

	got, err := Apply("a\nb\nc\n", diff)
	require.NoError(t, err)
	require.Equal(t, "a\nB\nc\n", got)
}

func TestApplyHeadersOnlyReturnsOriginal(t *testing.T) {
	got, err := Apply("a\nb\n", "--- a/f.txt\n+++ b/f.txt\n")
	require.NoError(t, err)
	require.Equal(t, "a\nb\n", got)
}

func TestApplyOverlappingHunksFail(t *testing.T) {
	diff := strings.Join([]string{
		"--- a/f.txt",
		"+++ b/f.txt",
		"@@ -3,1 +3,1 @@",
		"-c",
		"+C",
		"@@ -2,1 +2,1 @@",
		"-b",
		"+B",
	}, "\n")

	_, err := Apply("a\nb\nc\nd\n", diff)
	require.Error(t, err)
	require.Contains(t, err.Error(), "overlap")
}

func TestApplyContextPastEndFails(t *testing.T) {
	diff := strings.Join([]string{
		"--- a/f.txt",
		"+++ b/f.txt",
		"@@ -1,3 +1,3 @@",
		" a",
		" b",
		" c",
	}, "\n")

	_, err := Apply("a\n", diff)
	require.Error(t, err)
}

func TestApplyUnrecognizedLineFails(t *testing.T) {
	diff := strings.Join([]string{
		"--- a/f.txt",
		"+++ b/f.txt",
		"@@ -1,1 +1,1 @@",
		"*what",
	}, "\n")

	_, err := Apply("a\n", diff)
	require.Error(t, err)
	require.Contains(t, err.Error(), "unrecognized")
}

func TestApplySkipsPreHunkProse(t *testing.T) {
	diff := strings.Join([]string{
		"Here is the corrected patch:",
		"--- a/f.txt",
		"+++ b/f.txt",
		"@@ -1,1 +1,1 @@",
		"-a",
		"+A",
	}, "\n")

	got, err := Apply("a\nb\n", diff)
	require.NoError(t, err)
	require.Equal(t, "A\nb\n", got)
}

func TestApplyNoNewlineMarker(t *testing.T) {
	diff := strings.Join([]string{
		"--- a/f.txt",
		"+++ b/f.txt",
		"@@ -1,1 +1,1 @@",
		"-old",
		"+new",
		`\ No newline at end of file`,
	}, "\n")

	got, err := Apply("old\n", diff)
	require.NoError(t, err)
	require.Equal(t, "new", got)
}

func TestApplyAppendAtEnd(t *testing.T) {
	diff := strings.Join([]string{
		"--- a/f.txt",
		"+++ b/f.txt",
		"@@ -2,1 +2,2 @@",
		" b",
		"+c",
	}, "\n")

	got, err := Apply("a\nb\n", diff)
	require.NoError(t, err)
	require.Equal(t, "a\nb\nc\n", got)
}

func TestApplyMultipleHunksInOrder(t *testing.T) {
	diff := strings.Join([]string{
		"--- a/f.txt",
		"+++ b/f.txt",
		"@@ -1,1 +1,1 @@",
		"-a",
		"+A",
		"@@ -3,1 +3,1 @@",
		"-c",
		"+C",
	}, "\n")

	got, err := Apply("a\nb\nc\nd\n", diff)
	require.NoError(t, err)
	require.Equal(t, "A\nb\nC\nd\n", got)
}
