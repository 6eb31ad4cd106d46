package snapshot

import "fmt"

// Snapshot is an ordered collection of entries with unique paths.
// Order is preserved but carries no meaning for restoration.
type Snapshot struct {
	Version uint32
	Entries []Entry

	index map[string]int
}

// New creates an empty snapshot at the current format version.
func New() *Snapshot {
	return &Snapshot{Version: Version, index: make(map[string]int)}
}

// FromEntries builds a snapshot from entries, rejecting duplicate paths.
func FromEntries(entries []Entry) (*Snapshot, error) {
	s := New()
	s.Entries = make([]Entry, 0, len(entries))
	for _, e := range entries {
		if err := s.Add(e); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Add appends e. It returns the Validate error for an entry that would not
// survive encoding, or an error wrapping ErrDuplicatePath if an entry with the
// same path is already present; the snapshot is left unchanged.
func (s *Snapshot) Add(e Entry) error {
	if err := e.Validate(); err != nil {
		return err
	}
	if s.index == nil {
		s.reindex()
	}
	if _, ok := s.index[e.Path]; ok {
		return fmt.Errorf("%w %q", ErrDuplicatePath, e.Path)
	}
	s.index[e.Path] = len(s.Entries)
	s.Entries = append(s.Entries, e)
	return nil
}

// Lookup returns the entry for path, if present.
func (s *Snapshot) Lookup(path string) (Entry, bool) {
	if s.index == nil {
		s.reindex()
	}
	i, ok := s.index[path]
	if !ok {
		return Entry{}, false
	}
	return s.Entries[i], true
}

// Len returns the number of entries.
func (s *Snapshot) Len() int {
	return len(s.Entries)
}

// reindex rebuilds the path index for snapshots assembled as struct literals.
// The first occurrence of a path wins.
func (s *Snapshot) reindex() {
	s.index = make(map[string]int, len(s.Entries))
	for i, e := range s.Entries {
		if _, ok := s.index[e.Path]; !ok {
			s.index[e.Path] = i
		}
	}
}
