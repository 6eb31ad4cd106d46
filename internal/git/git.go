// Package git lists the paths tracked by a git repository by running the git
// command line tool.
package git

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path"
	"slices"
	"strings"

	"git-metafile/internal/metafile"
)

// PathSource implements metafile.PathSource for the repository containing Dir.
type PathSource struct {
	// Dir is the directory git runs in; empty means the process working directory.
	Dir string

	// GitPath is the git binary; empty means "git" looked up in PATH.
	GitPath string
}

// NewPathSource creates a PathSource for the repository containing dir.
func NewPathSource(dir string) *PathSource {
	return &PathSource{Dir: dir}
}

// RepoRoot returns the top-level directory of the work tree.
func (s *PathSource) RepoRoot() (string, error) {
	out, err := s.run(s.Dir, "rev-parse", "--show-toplevel")
	if err != nil {
		return "", err
	}
	root := strings.TrimSpace(string(out))
	if root == "" {
		return "", fmt.Errorf("git rev-parse returned no repository root")
	}

	info, err := os.Stat(root)
	if err != nil {
		return "", fmt.Errorf("repository root: %w", err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("repository root %q is not a directory", root)
	}
	return root, nil
}

// TrackedPaths returns every path in the index that still exists in the work
// tree, plus each directory leading to one, relative to the repository root.
func (s *PathSource) TrackedPaths() ([]string, error) {
	root, err := s.RepoRoot()
	if err != nil {
		return nil, err
	}

	files, err := s.lsFiles(root)
	if err != nil {
		return nil, err
	}
	deleted, err := s.lsFiles(root, "--deleted")
	if err != nil {
		return nil, err
	}
	return expandPaths(files, deleted), nil
}

func (s *PathSource) lsFiles(root string, extra ...string) ([]string, error) {
	args := append([]string{"ls-files", "--full-name", "-z"}, extra...)
	out, err := s.run(root, args...)
	if err != nil {
		return nil, err
	}
	return splitNUL(out), nil
}

// run executes git in dir and returns its standard output.
func (s *PathSource) run(dir string, args ...string) ([]byte, error) {
	gitPath := s.GitPath
	if gitPath == "" {
		gitPath = "git"
	}

	cmd := exec.Command(gitPath, args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), "LC_ALL=C")
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			if msg := strings.TrimSpace(stderr.String()); msg != "" {
				return nil, fmt.Errorf("git %s: %s", args[0], msg)
			}
		}
		return nil, fmt.Errorf("git %s: %w", args[0], err)
	}
	return stdout.Bytes(), nil
}

func splitNUL(b []byte) []string {
	var out []string
	for _, field := range bytes.Split(b, []byte{0}) {
		if len(field) > 0 {
			out = append(out, string(field))
		}
	}
	return out
}

// expandPaths drops deleted files, adds every ancestor directory of the
// remaining files, and returns the set in path component order, so a
// directory always precedes its contents.
func expandPaths(files, deleted []string) []string {
	gone := make(map[string]bool, len(deleted))
	for _, d := range deleted {
		gone[d] = true
	}

	set := make(map[string]struct{}, len(files))
	for _, f := range files {
		if gone[f] {
			continue
		}
		for p := f; p != "." && p != "/" && p != ""; p = path.Dir(p) {
			if _, seen := set[p]; seen {
				break // ancestors already added
			}
			set[p] = struct{}{}
		}
	}

	paths := make([]string, 0, len(set))
	for p := range set {
		paths = append(paths, p)
	}
	slices.SortFunc(paths, comparePaths)
	return paths
}

// comparePaths orders paths component by component: "a" < "a/b" < "a.txt".
func comparePaths(a, b string) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		ca, cb := a[i], b[i]
		if ca == cb {
			continue
		}
		if ca == '/' {
			return -1
		}
		if cb == '/' {
			return 1
		}
		if ca < cb {
			return -1
		}
		return 1
	}
	return len(a) - len(b)
}

var _ metafile.PathSource = (*PathSource)(nil)
