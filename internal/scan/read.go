package scan

import (
	"strings"
	"unicode/utf8"

	"impactify/internal/safeio"
)

// TruncatedContent is a file read bounded to a character budget.
type TruncatedContent struct {
	Text         string
	Truncated    bool
	OriginalSize int
}

// ReadTruncated reads a file and cuts it to at most maxChars bytes, recording
// the original size so prompts can mention what was dropped. Invalid UTF-8
// sequences are stripped rather than failing the read.
func ReadTruncated(fs *safeio.RepoFS, rel string, maxChars int) (TruncatedContent, error) {
	b, err := fs.ReadFile(rel)
	if err != nil {
		return TruncatedContent{}, err
	}
	text := strings.ToValidUTF8(string(b), "")
	out := TruncatedContent{Text: text, OriginalSize: len(text)}
	if maxChars > 0 && len(text) > maxChars {
		out.Text = truncateAtRune(text, maxChars)
		out.Truncated = true
	}
	return out, nil
}

// truncateAtRune cuts s to at most n bytes without splitting a rune.
func truncateAtRune(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
