package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	t "impactify/internal/types"
)

func TestCoerceImpactReportAliasKeys(te *testing.T) {
	raw := `{
		"Path": "pkg/service.go",
		"Analysis": {"Impact": "inderect", "Details": "callers changed"},
		"Diagnosis": {"Needs-Update": "yes", "reason": "signature drift"},
		"Recommendations": {"actions": ["update the call", "  "], "implementation_approach": "rename the parameter"}
	}`

	report := CoerceImpactReport(raw, "fallback.go")
	require.NotNil(te, report)
	assert.Equal(te, "pkg/service.go", report.Path)
	assert.Equal(te, t.ImpactIndirect, report.Analysis.Impact)
	assert.Equal(te, "callers changed", report.Analysis.ImpactDescription)
	assert.True(te, report.Diagnosis.NeedsUpdate)
	assert.Equal(te, "signature drift", report.Diagnosis.UpdateRationale)
	assert.Equal(te, []string{"update the call", "rename the parameter"}, report.Recommendations.RecommendedActions)
	assert.True(te, report.Related)
	assert.Equal(te, t.ConfidenceMedium, report.Confidence)
}

func TestCoerceImpactReportBoolAndFlagImpact(te *testing.T) {
	report := CoerceImpactReport(`{"analysis": {"impact": false}}`, "a.go")
	require.NotNil(te, report)
	assert.Equal(te, t.ImpactIndirect, report.Analysis.Impact)

	report = CoerceImpactReport(`{"analysis": {"directly_impacted": "no"}, "needs_update": false}`, "a.go")
	require.NotNil(te, report)
	assert.Equal(te, t.ImpactIndirect, report.Analysis.Impact)
	assert.False(te, report.Diagnosis.NeedsUpdate)
	assert.False(te, report.Related)
}

func TestCoerceImpactReportListRecommendations(te *testing.T) {
	report := CoerceImpactReport(`{"recommendations": ["step one", "step two"]}`, "a.go")
	require.NotNil(te, report)
	assert.Equal(te, []string{"step one", "step two"}, report.Recommendations.RecommendedActions)
	assert.Equal(te, "a.go", report.Path)
}

func TestCoerceImpactReportExplicitRelatedWins(te *testing.T) {
	report := CoerceImpactReport(`{"related": "no", "diagnosis": {"needs_update": true}}`, "a.go")
	require.NotNil(te, report)
	assert.True(te, report.Diagnosis.NeedsUpdate)
	assert.False(te, report.Related)
}

func TestCoerceImpactReportConfidence(te *testing.T) {
	report := CoerceImpactReport(`{"confidence": "HIGH"}`, "a.go")
	require.NotNil(te, report)
	assert.Equal(te, t.ConfidenceHigh, report.Confidence)

	report = CoerceImpactReport(`{"confidence": "certain"}`, "a.go")
	require.NotNil(te, report)
	assert.Equal(te, t.ConfidenceMedium, report.Confidence)
}

func TestCoerceImpactReportNonJSON(te *testing.T) {
	assert.Nil(te, CoerceImpactReport("this file looks fine to me", "a.go"))
}
