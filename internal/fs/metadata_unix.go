//go:build unix

package fs

import (
	"os"

	"golang.org/x/sys/unix"

	"git-metafile/internal/metafile"
)

// OSMetadataManager reads and changes metadata on the real filesystem.
// It never follows symlinks except for Chmod, which the service does not
// call on symlinks.
type OSMetadataManager struct{}

// NewOSMetadataManager creates a MetadataManager backed by lstat(2), chmod(2)
// and lchown(2).
func NewOSMetadataManager() *OSMetadataManager {
	return &OSMetadataManager{}
}

// Lstat returns the raw st_mode, uid and gid of path itself.
func (m *OSMetadataManager) Lstat(path string) (*metafile.Metadata, error) {
	var st unix.Stat_t
	if err := unix.Lstat(path, &st); err != nil {
		return nil, &os.PathError{Op: "lstat", Path: path, Err: err}
	}
	mode := uint32(st.Mode)
	return &metafile.Metadata{
		Mode:      mode,
		UID:       st.Uid,
		GID:       st.Gid,
		IsSymlink: mode&unix.S_IFMT == unix.S_IFLNK,
	}, nil
}

// Chmod applies the permission, setuid, setgid and sticky bits of mode.
func (m *OSMetadataManager) Chmod(path string, mode uint32) error {
	if err := unix.Chmod(path, mode&07777); err != nil {
		return &os.PathError{Op: "chmod", Path: path, Err: err}
	}
	return nil
}

// Lchown changes the owner and group of path without following symlinks.
func (m *OSMetadataManager) Lchown(path string, uid, gid int) error {
	if err := unix.Lchown(path, uid, gid); err != nil {
		return &os.PathError{Op: "lchown", Path: path, Err: err}
	}
	return nil
}

var _ metafile.MetadataManager = (*OSMetadataManager)(nil)
