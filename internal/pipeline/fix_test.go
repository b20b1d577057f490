package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	t "impactify/internal/types"
)

func needsUpdateReport(path string) *t.ImpactReport {
	return &t.ImpactReport{
		Path:    path,
		Related: true,
		Analysis: t.ImpactAnalysis{
			Impact:            t.ImpactDirect,
			ImpactDescription: "renamed helper is called here",
		},
		Diagnosis: t.UpdateDiagnosis{
			NeedsUpdate:     true,
			UpdateRationale: "call site uses the old name",
		},
		Recommendations: t.FixRecommendation{
			RecommendedActions: []string{"rename the call"},
		},
	}
}

func TestGenerateFixDiffStyleAppliesPatch(te *testing.T) {
	fake := newRuleFake(rule{key: "fix", when: "File to fix: main.txt", text: "```diff\n" +
		"--- main.txt\n" +
		"+++ main.txt\n" +
		"@@ -1,3 +1,3 @@\n" +
		" a\n" +
		"-b\n" +
		"+B\n" +
		" c\n" +
		"```"})
	p := newTestPipeline(te, map[string]string{"main.txt": "a\nb\nc\n"}, fake)
	p.Sessions.FixStyle = FixStyleDiff

	fix, err := p.GenerateFix(context.Background(), needsUpdateReport("main.txt"), t.ChangeContext{})
	require.NoError(te, err)
	require.Equal(te, "main.txt", fix.Path)
	require.Equal(te, FixStyleDiff, fix.Style)
	require.Contains(te, fix.Diff, "@@ -1,3 +1,3 @@")
	require.Equal(te, "a\nB\nc\n", fix.Content)

	require.NoError(te, p.ApplyFix(fix))
	written, err := p.FS.ReadFile("main.txt")
	require.NoError(te, err)
	require.Equal(te, "a\nB\nc\n", string(written))
}

func TestGenerateFixFullFileStyle(te *testing.T) {
	fixed := "package demo\n\nfunc Renamed() {}\n"
	fake := newRuleFake(rule{key: "fix", when: "File to fix: demo.go", text: "```go\n" + fixed + "```"})
	p := newTestPipeline(te, map[string]string{"demo.go": "package demo\n\nfunc Old() {}\n"}, fake)

	fix, err := p.GenerateFix(context.Background(), needsUpdateReport("demo.go"), t.ChangeContext{})
	require.NoError(te, err)
	require.Equal(te, FixStyleFullFile, fix.Style)
	require.Empty(te, fix.Diff)
	require.Equal(te, fixed, fix.Content)
}

func TestGenerateFixRejectsNearEmptyOutput(te *testing.T) {
	fake := newRuleFake(rule{key: "fix", when: "File to fix:", text: "ok"})
	p := newTestPipeline(te, map[string]string{"demo.go": "package demo\n"}, fake)

	_, err := p.GenerateFix(context.Background(), needsUpdateReport("demo.go"), t.ChangeContext{})
	require.Error(te, err)
	require.Contains(te, err.Error(), "too short")
}

func TestGenerateFixRequiresNeedsUpdate(te *testing.T) {
	p := newTestPipeline(te, map[string]string{"demo.go": "package demo\n"}, newRuleFake())

	report := needsUpdateReport("demo.go")
	report.Diagnosis.NeedsUpdate = false
	_, err := p.GenerateFix(context.Background(), report, t.ChangeContext{})
	require.Error(te, err)

	_, err = p.GenerateFix(context.Background(), nil, t.ChangeContext{})
	require.Error(te, err)
}
