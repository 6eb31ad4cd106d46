package testutil

import (
	"fmt"
	"io/fs"
	"os"
	"sort"
	"sync"

	"git-metafile/internal/metafile"
)

// File type bits of st_mode used by the mock.
const (
	ModeRegular   uint32 = 0100000
	ModeDirectory uint32 = 0040000
	ModeSymlink   uint32 = 0120000
)

// Call records one mutating call made on a MockMetadataManager.
type Call struct {
	Op   string // "chmod" or "lchown"
	Path string
	Mode uint32 // chmod only
	UID  int    // lchown only
	GID  int    // lchown only
}

// MockMetadataManager is an in-memory metadata store for testing.
// It is safe for concurrent use.
type MockMetadataManager struct {
	mu       sync.Mutex
	entries  map[string]*metafile.Metadata
	failures map[string]error // key is op + " " + path
	calls    []Call
}

// NewMockMetadataManager creates an empty mock.
func NewMockMetadataManager() *MockMetadataManager {
	return &MockMetadataManager{
		entries:  make(map[string]*metafile.Metadata),
		failures: make(map[string]error),
	}
}

// AddFile adds a regular file with the given permission bits and owner.
func (m *MockMetadataManager) AddFile(path string, perm, uid, gid uint32) {
	m.set(path, &metafile.Metadata{Mode: ModeRegular | perm, UID: uid, GID: gid})
}

// AddDirectory adds a directory with the given permission bits and owner.
func (m *MockMetadataManager) AddDirectory(path string, perm, uid, gid uint32) {
	m.set(path, &metafile.Metadata{Mode: ModeDirectory | perm, UID: uid, GID: gid})
}

// AddSymlink adds a symbolic link owned by uid:gid with mode 0777.
func (m *MockMetadataManager) AddSymlink(path string, uid, gid uint32) {
	m.set(path, &metafile.Metadata{Mode: ModeSymlink | 0777, UID: uid, GID: gid, IsSymlink: true})
}

func (m *MockMetadataManager) set(path string, md *metafile.Metadata) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[path] = md
}

// Remove deletes path from the mock.
func (m *MockMetadataManager) Remove(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, path)
}

// FailOn makes every later call of op ("lstat", "chmod" or "lchown") on
// path return err.
func (m *MockMetadataManager) FailOn(op, path string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[op+" "+path] = err
}

// Get returns a copy of the current metadata of path.
func (m *MockMetadataManager) Get(path string) (metafile.Metadata, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	md, ok := m.entries[path]
	if !ok {
		return metafile.Metadata{}, false
	}
	return *md, true
}

// Paths returns every path in the mock, sorted.
func (m *MockMetadataManager) Paths() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	paths := make([]string, 0, len(m.entries))
	for p := range m.entries {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Calls returns the mutating calls made so far, in call order.
func (m *MockMetadataManager) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Call(nil), m.calls...)
}

func (m *MockMetadataManager) Lstat(path string) (*metafile.Metadata, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.failures["lstat "+path]; err != nil {
		return nil, err
	}
	md, ok := m.entries[path]
	if !ok {
		return nil, &os.PathError{Op: "lstat", Path: path, Err: fs.ErrNotExist}
	}
	cp := *md
	return &cp, nil
}

func (m *MockMetadataManager) Chmod(path string, mode uint32) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, Call{Op: "chmod", Path: path, Mode: mode})
	if err := m.failures["chmod "+path]; err != nil {
		return err
	}
	md, ok := m.entries[path]
	if !ok {
		return &os.PathError{Op: "chmod", Path: path, Err: fs.ErrNotExist}
	}
	if md.IsSymlink {
		return fmt.Errorf("mock: chmod follows symlink %s", path)
	}
	md.Mode = md.Mode&^07777 | mode&07777
	return nil
}

func (m *MockMetadataManager) Lchown(path string, uid, gid int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, Call{Op: "lchown", Path: path, UID: uid, GID: gid})
	if err := m.failures["lchown "+path]; err != nil {
		return err
	}
	md, ok := m.entries[path]
	if !ok {
		return &os.PathError{Op: "lchown", Path: path, Err: fs.ErrNotExist}
	}
	if uid >= 0 {
		md.UID = uint32(uid)
	}
	if gid >= 0 {
		md.GID = uint32(gid)
	}
	return nil
}

var _ metafile.MetadataManager = (*MockMetadataManager)(nil)
