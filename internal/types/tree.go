package types

// TreeFile is a file entry inside a Tree node.
type TreeFile struct {
	Name  string `json:"name"`
	Depth int    `json:"depth"`
}

// Tree is a bounded-depth directory snapshot. A node with Truncated set
// means the walk stopped there; files or folders may exist below it.
type Tree struct {
	Name      string           `json:"name"`
	Dirs      map[string]*Tree `json:"dirs"`
	Files     []TreeFile       `json:"files"`
	Depth     int              `json:"depth"`
	Truncated bool             `json:"truncated,omitempty"`
	Error     string           `json:"error,omitempty"`
}

// Empty reports whether the node has neither subdirectories nor files.
func (t *Tree) Empty() bool {
	return t == nil || (len(t.Dirs) == 0 && len(t.Files) == 0)
}
