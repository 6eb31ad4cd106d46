//go:build unix

package fs

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
)

func TestOSMetadataManager_Lstat(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	m := NewOSMetadataManager()

	file := filepath.Join(dir, "file.txt")
	if err := os.WriteFile(file, []byte("x"), 0600); err != nil {
		t.Fatal(err)
	}
	if err := os.Chmod(file, 0640); err != nil {
		t.Fatal(err)
	}
	link := filepath.Join(dir, "link")
	if err := os.Symlink("file.txt", link); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name        string
		path        string
		wantMode    uint32
		typeOnly    bool // permission bits depend on the umask or platform
		wantSymlink bool
	}{
		{"regular file", file, 0100640, false, false},
		{"directory", dir, 040000, true, false},
		{"symlink is not followed", link, 0120000, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			md, err := m.Lstat(tt.path)
			if err != nil {
				t.Fatalf("Lstat() error = %v", err)
			}
			if tt.typeOnly {
				if md.Mode&0170000 != tt.wantMode {
					t.Errorf("type bits = %o, want %o", md.Mode&0170000, tt.wantMode)
				}
			} else if md.Mode != tt.wantMode {
				t.Errorf("Mode = %o, want %o", md.Mode, tt.wantMode)
			}
			if md.IsSymlink != tt.wantSymlink {
				t.Errorf("IsSymlink = %v, want %v", md.IsSymlink, tt.wantSymlink)
			}
			if md.UID != uint32(os.Getuid()) {
				t.Errorf("UID = %d, want %d", md.UID, os.Getuid())
			}
		})
	}
}

func TestOSMetadataManager_Lstat_Missing(t *testing.T) {
	t.Parallel()
	m := NewOSMetadataManager()

	_, err := m.Lstat(filepath.Join(t.TempDir(), "missing"))
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("Lstat() error = %v, want fs.ErrNotExist", err)
	}
}

func TestOSMetadataManager_Chmod(t *testing.T) {
	t.Parallel()
	m := NewOSMetadataManager()
	file := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(file, nil, 0600); err != nil {
		t.Fatal(err)
	}

	// File type bits in the argument are ignored.
	if err := m.Chmod(file, 0100755); err != nil {
		t.Fatalf("Chmod() error = %v", err)
	}
	md, err := m.Lstat(file)
	if err != nil {
		t.Fatal(err)
	}
	if md.Mode != 0100755 {
		t.Errorf("Mode = %o, want %o", md.Mode, 0100755)
	}

	if err := m.Chmod(file+".missing", 0644); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("Chmod(missing) error = %v, want fs.ErrNotExist", err)
	}
}

func TestOSMetadataManager_Lchown(t *testing.T) {
	t.Parallel()
	m := NewOSMetadataManager()
	dir := t.TempDir()
	file := filepath.Join(dir, "file.txt")
	if err := os.WriteFile(file, nil, 0644); err != nil {
		t.Fatal(err)
	}
	link := filepath.Join(dir, "link")
	if err := os.Symlink("file.txt", link); err != nil {
		t.Fatal(err)
	}

	// Changing to the current ids is always permitted.
	uid, gid := os.Getuid(), os.Getgid()
	for _, p := range []string{file, link} {
		if err := m.Lchown(p, uid, -1); err != nil {
			t.Errorf("Lchown(%s, uid, -1) error = %v", p, err)
		}
		if err := m.Lchown(p, -1, gid); err != nil {
			t.Errorf("Lchown(%s, -1, gid) error = %v", p, err)
		}
	}

	if err := m.Lchown(filepath.Join(dir, "missing"), uid, -1); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("Lchown(missing) error = %v, want fs.ErrNotExist", err)
	}
}
