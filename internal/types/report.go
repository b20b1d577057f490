package types

// ImpactAnalysis explains how a file is touched by the change set.
type ImpactAnalysis struct {
	Impact            string `json:"impact"` // "direct" or "indirect"
	ImpactDescription string `json:"impact_description"`
}

const (
	ImpactDirect   = "direct"
	ImpactIndirect = "indirect"
)

// UpdateDiagnosis records whether the file actually needs an edit.
// Impacted files frequently need none.
type UpdateDiagnosis struct {
	NeedsUpdate     bool   `json:"needs_update"`
	UpdateRationale string `json:"update_rationale"`
}

// FixRecommendation lists at most three concrete, file-local actions.
type FixRecommendation struct {
	RecommendedActions []string `json:"recommended_actions"`
}

// ImpactReport is the structured per-file verdict: analysis, diagnosis and
// recommendations in one record.
type ImpactReport struct {
	Path            string            `json:"path"`
	Related         bool              `json:"related"`
	Confidence      string            `json:"confidence"`
	Analysis        ImpactAnalysis    `json:"analysis"`
	Diagnosis       UpdateDiagnosis   `json:"diagnosis"`
	Recommendations FixRecommendation `json:"recommendations"`
}

// ReportEntry pairs a confirmed path with the model's raw answer and, when
// parsing (or coercion) succeeded, the validated report.
type ReportEntry struct {
	Path    string        `json:"path"`
	Content string        `json:"content"`
	Parsed  *ImpactReport `json:"parsed,omitempty"`
}
