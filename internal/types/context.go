package types

// CommitInfo identifies the commit whose delta is being analyzed.
type CommitInfo struct {
	SHA     string `json:"sha"`
	Message string `json:"message"`
	Author  string `json:"author"`
	Date    int64  `json:"date"`
}

// ChangeSummary buckets changed paths by change type.
type ChangeSummary struct {
	TotalFilesChanged int                 `json:"total_files_changed"`
	FilesByType       map[string][]string `json:"files_by_type"`
}

// StructuredDiff is per-file change metadata without patch text.
type StructuredDiff struct {
	Path       string `json:"path"`
	ChangeType string `json:"change_type"`
	OldPath    string `json:"old_path,omitempty"`
	NewPath    string `json:"new_path,omitempty"`
}

// RawPatch carries the unified-diff text for one changed file.
type RawPatch struct {
	Path  string `json:"path"`
	Patch string `json:"patch"`
}

// ChangeContext is the full change payload handed to the pipeline: commit
// metadata, a summary, structured per-file entries and raw patches.
type ChangeContext struct {
	CommitInfo      CommitInfo       `json:"commit_info"`
	Summary         ChangeSummary    `json:"summary"`
	StructuredDiffs []StructuredDiff `json:"structured_diffs"`
	RawPatches      []RawPatch       `json:"raw_patches"`
}

// PatchFor returns the raw patch recorded for path, or "" when the file was
// not part of the change set.
func (c ChangeContext) PatchFor(path string) string {
	for _, p := range c.RawPatches {
		if p.Path == path {
			return p.Patch
		}
	}
	return ""
}
