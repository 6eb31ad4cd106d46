package metafile

// Metadata is the subset of lstat(2) results the tool tracks.
type Metadata struct {
	Mode      uint32 // raw st_mode
	UID       uint32
	GID       uint32
	IsSymlink bool
}

// MetadataManager reads and changes ownership and permission bits.
// All paths are absolute. Implementations must not follow symlinks when
// reading or changing ownership.
type MetadataManager interface {
	// Lstat returns the metadata of path itself.
	Lstat(path string) (*Metadata, error)

	// Chmod sets the permission bits of path. Only the low 12 bits of mode
	// are applied; file type bits are ignored.
	Chmod(path string, mode uint32) error

	// Lchown changes the owner and group of path. A value of -1 leaves the
	// corresponding id unchanged.
	Lchown(path string, uid, gid int) error
}

// PathSource enumerates the paths whose metadata is tracked.
type PathSource interface {
	// RepoRoot returns the absolute path of the repository's top-level directory.
	RepoRoot() (string, error)

	// TrackedPaths returns a sorted, deduplicated list of paths relative to
	// the repository root. It includes every tracked file that still exists
	// in the working tree and every directory on the way to one.
	TrackedPaths() ([]string, error)
}
