package safeio

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// RepoFS confines all filesystem access to a fixed repository root. Every
// path handed to it, absolute or relative, must resolve to a location under
// that root after symlink expansion.
type RepoFS struct {
	absRoot string
}

// NewRepoFS binds a filesystem to root. The root must exist and be a
// directory; it is resolved to an absolute, symlink-free path once.
func NewRepoFS(root string) (*RepoFS, error) {
	if root == "" {
		return nil, errors.New("safeio: empty root")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	abs, err = filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, errors.New("safeio: root is not a directory")
	}
	return &RepoFS{absRoot: abs}, nil
}

// Root returns the absolute repository root.
func (r *RepoFS) Root() string {
	if r == nil {
		return ""
	}
	return r.absRoot
}

// ReadFile reads a file under the root.
func (r *RepoFS) ReadFile(rel string) ([]byte, error) {
	p, err := r.resolve(rel)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(p)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("safeio: %s is a directory", rel)
	}
	return os.ReadFile(p)
}

// WriteFile overwrites a file under the root. The parent directory must
// already exist; the pipeline never creates new directories in the repo.
func (r *RepoFS) WriteFile(rel string, data []byte) error {
	p, err := r.resolveLenient(rel)
	if err != nil {
		return err
	}
	return os.WriteFile(p, data, 0o644)
}

// Stat returns metadata for a path under the root.
func (r *RepoFS) Stat(rel string) (fs.FileInfo, error) {
	p, err := r.resolve(rel)
	if err != nil {
		return nil, err
	}
	return os.Stat(p)
}

// ReadDir lists a directory under the root.
func (r *RepoFS) ReadDir(rel string) ([]fs.DirEntry, error) {
	p, err := r.resolve(rel)
	if err != nil {
		return nil, err
	}
	return os.ReadDir(p)
}

// Exists reports whether a path exists under the root.
func (r *RepoFS) Exists(rel string) bool {
	p, err := r.resolve(rel)
	if err != nil {
		return false
	}
	_, err = os.Stat(p)
	return err == nil
}

// IsDir reports whether a path under the root is a directory.
func (r *RepoFS) IsDir(rel string) bool {
	p, err := r.resolve(rel)
	if err != nil {
		return false
	}
	info, err := os.Stat(p)
	return err == nil && info.IsDir()
}

// Abs returns the absolute on-disk path for rel without requiring that the
// target exists. Traversal outside the root is still rejected.
func (r *RepoFS) Abs(rel string) (string, error) {
	return r.resolveLenient(rel)
}

// resolve expands symlinks and verifies the result stays under the root.
func (r *RepoFS) resolve(rel string) (string, error) {
	joined, err := r.join(rel)
	if err != nil {
		return "", err
	}
	resolved, err := filepath.EvalSymlinks(joined)
	if err != nil {
		return "", err
	}
	if !underRoot(resolved, r.absRoot) {
		return "", fmt.Errorf("safeio: %s resolves outside root", rel)
	}
	return resolved, nil
}

// resolveLenient is resolve for paths that may not exist yet (write targets):
// only the lexical join is checked, not symlink expansion of the leaf.
func (r *RepoFS) resolveLenient(rel string) (string, error) {
	joined, err := r.join(rel)
	if err != nil {
		return "", err
	}
	if !underRoot(joined, r.absRoot) {
		return "", fmt.Errorf("safeio: %s escapes root", rel)
	}
	return joined, nil
}

func (r *RepoFS) join(rel string) (string, error) {
	if r == nil {
		return "", errors.New("safeio: filesystem not configured")
	}
	if rel == "" {
		return "", errors.New("safeio: empty path")
	}
	clean := filepath.Clean(rel)
	if filepath.IsAbs(clean) {
		return clean, nil
	}
	if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("safeio: %s traverses above root", rel)
	}
	return filepath.Join(r.absRoot, clean), nil
}

func underRoot(path, root string) bool {
	path = filepath.Clean(path)
	root = filepath.Clean(root)
	if path == root {
		return true
	}
	sep := string(os.PathSeparator)
	return strings.HasPrefix(path+sep, root+sep)
}
