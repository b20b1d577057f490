package types

// EvidenceLevel describes how much of a file the classifier has seen before
// a verdict is required. Levels only ever advance; Overview never follows
// RawContent for the same entry.
type EvidenceLevel int

const (
	EvidenceOverview EvidenceLevel = iota
	EvidenceRawContent
)

func (l EvidenceLevel) String() string {
	switch l {
	case EvidenceOverview:
		return "overview"
	case EvidenceRawContent:
		return "raw_content"
	default:
		return "unknown"
	}
}

// ParseEvidenceLevel maps the wire strings the model emits onto a level.
// Unknown strings map to Overview, the weakest level.
func ParseEvidenceLevel(s string) EvidenceLevel {
	switch s {
	case "raw_content":
		return EvidenceRawContent
	default:
		return EvidenceOverview
	}
}

// ClassificationEntry is one uncertain file or folder emitted by a
// classification pass. Path is repository-relative.
type ClassificationEntry struct {
	Path          string `json:"path"`
	IsDir         bool   `json:"is_dir"`
	Reason        string `json:"reason"`
	EvidenceLevel string `json:"needed_info"`
}

// Level returns the typed evidence level for the entry.
func (e ClassificationEntry) Level() EvidenceLevel { return ParseEvidenceLevel(e.EvidenceLevel) }

// Escalated returns a copy of the entry advanced to raw-content evidence.
func (e ClassificationEntry) Escalated(reason string) ClassificationEntry {
	return ClassificationEntry{
		Path:          e.Path,
		IsDir:         e.IsDir,
		Reason:        reason,
		EvidenceLevel: EvidenceRawContent.String(),
	}
}

// ClassificationResult is the sure/unsure split produced by one pass over a
// scope (the whole repository or a single subfolder).
type ClassificationResult struct {
	Sure   []string              `json:"sure"`
	Unsure []ClassificationEntry `json:"unsure"`
}

// RefinementVerdict is the model's decision for a single uncertain entry.
type RefinementVerdict struct {
	Path       string `json:"path"`
	Related    bool   `json:"related"`
	Confidence string `json:"confidence"`
	Reasoning  string `json:"reasoning"`
}

const (
	ConfidenceHigh   = "high"
	ConfidenceMedium = "medium"
	ConfidenceLow    = "low"
)

// AuditRecord is an immutable trace of one refinement decision, kept for
// diagnostics only; it never feeds back into classification.
type AuditRecord struct {
	Path       string `json:"path"`
	Decision   string `json:"decision"`
	Confidence string `json:"confidence"`
	Reasoning  string `json:"reasoning"`
}
