package git

import (
	"os"
	"os/exec"
	"path/filepath"
	"reflect"
	"testing"
)

func TestExpandPaths(t *testing.T) {
	tests := []struct {
		name    string
		files   []string
		deleted []string
		want    []string
	}{
		{
			name:  "adds ancestor directories",
			files: []string{"a/b/c.txt"},
			want:  []string{"a", "a/b", "a/b/c.txt"},
		},
		{
			name:  "deduplicates shared ancestors",
			files: []string{"a/x", "a/y", "b"},
			want:  []string{"a", "a/x", "a/y", "b"},
		},
		{
			name:  "directory sorts before sibling with longer name",
			files: []string{"a.txt", "a/b"},
			want:  []string{"a", "a/b", "a.txt"},
		},
		{
			name:    "deleted files are dropped",
			files:   []string{"keep", "gone"},
			deleted: []string{"gone"},
			want:    []string{"keep"},
		},
		{
			name:    "directory of only deleted files is dropped",
			files:   []string{"d/gone", "e"},
			deleted: []string{"d/gone"},
			want:    []string{"e"},
		},
		{
			name:  "no files",
			files: nil,
			want:  []string{},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := expandPaths(tt.files, tt.deleted)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("expandPaths() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSplitNUL(t *testing.T) {
	t.Parallel()
	got := splitNUL([]byte("a\x00b c\x00d\te\x00"))
	want := []string{"a", "b c", "d\te"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("splitNUL() = %q, want %q", got, want)
	}
	if got := splitNUL(nil); got != nil {
		t.Errorf("splitNUL(nil) = %q, want nil", got)
	}
}

// initRepo creates a repository with the given files staged.
func initRepo(t *testing.T, files ...string) string {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}

	dir := t.TempDir()
	gitRun(t, dir, "init", "-q")
	for _, f := range files {
		p := filepath.Join(dir, f)
		if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(f), 0644); err != nil {
			t.Fatal(err)
		}
	}
	gitRun(t, dir, append([]string{"add", "--"}, files...)...)
	return dir
}

func gitRun(t *testing.T, dir string, args ...string) {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("git %v: %v\n%s", args, err, out)
	}
}

func TestPathSource_RepoRoot(t *testing.T) {
	dir := initRepo(t, "README")
	sub := filepath.Join(dir, "sub")
	if err := os.Mkdir(sub, 0755); err != nil {
		t.Fatal(err)
	}

	root, err := NewPathSource(sub).RepoRoot()
	if err != nil {
		t.Fatalf("RepoRoot() error = %v", err)
	}

	want, _ := filepath.EvalSymlinks(dir)
	got, _ := filepath.EvalSymlinks(root)
	if got != want {
		t.Errorf("RepoRoot() = %q, want %q", got, want)
	}
}

func TestPathSource_RepoRoot_NotARepo(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	t.Setenv("GIT_CEILING_DIRECTORIES", os.TempDir())

	if _, err := NewPathSource(t.TempDir()).RepoRoot(); err == nil {
		t.Error("RepoRoot() expected error outside a repository")
	}
}

func TestPathSource_TrackedPaths(t *testing.T) {
	dir := initRepo(t, "README", "src/main.go", "src/pkg/util.go", "docs/old.txt", "with space.txt")
	if err := os.Remove(filepath.Join(dir, "docs", "old.txt")); err != nil {
		t.Fatal(err)
	}
	// Untracked files are not listed.
	if err := os.WriteFile(filepath.Join(dir, "untracked"), nil, 0644); err != nil {
		t.Fatal(err)
	}

	got, err := NewPathSource(filepath.Join(dir, "src")).TrackedPaths()
	if err != nil {
		t.Fatalf("TrackedPaths() error = %v", err)
	}

	want := []string{"README", "src", "src/main.go", "src/pkg", "src/pkg/util.go", "with space.txt"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("TrackedPaths() = %q, want %q", got, want)
	}
}

func TestPathSource_MissingBinary(t *testing.T) {
	t.Parallel()
	s := &PathSource{Dir: t.TempDir(), GitPath: filepath.Join(t.TempDir(), "no-git")}
	if _, err := s.TrackedPaths(); err == nil {
		t.Error("TrackedPaths() expected error for missing git binary")
	}
}
