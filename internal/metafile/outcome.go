package metafile

import (
	"fmt"

	"git-metafile/internal/snapshot"
)

// Attribute names the piece of metadata an Outcome concerns.
type Attribute string

const (
	AttrStat  Attribute = "stat" // reading the current metadata failed
	AttrMode  Attribute = "mode"
	AttrOwner Attribute = "owner"
	AttrGroup Attribute = "group"
)

// Outcome is the result of reconciling one attribute of one path.
// For AttrStat only Path and Err are set.
type Outcome struct {
	Path string
	Attr Attribute
	Old  uint32
	New  uint32
	Err  error
}

// Failed reports whether the change could not be made.
func (o Outcome) Failed() bool { return o.Err != nil }

// String describes the change, e.g. `"foo.txt": change mode 100600 -> 100644`.
func (o Outcome) String() string {
	switch o.Attr {
	case AttrMode:
		return fmt.Sprintf("%q: change mode %o -> %o", o.Path, o.Old, o.New)
	case AttrOwner:
		return fmt.Sprintf("%q: change owner %d -> %d", o.Path, o.Old, o.New)
	case AttrGroup:
		return fmt.Sprintf("%q: change group %d -> %d", o.Path, o.Old, o.New)
	default:
		return fmt.Sprintf("%q: %v", o.Path, o.Err)
	}
}

// ApplyReport summarizes an apply (or dry-run) pass.
type ApplyReport struct {
	RunID    string
	DryRun   bool
	Entries  int
	Outcomes []Outcome

	// ParseErrors holds the malformed lines skipped in lenient mode.
	ParseErrors []error
}

// Changed returns the number of attribute changes made (or, for a dry run, pending).
func (r *ApplyReport) Changed() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Attr != AttrStat && o.Err == nil {
			n++
		}
	}
	return n
}

// Failed returns the number of outcomes that carry an error.
func (r *ApplyReport) Failed() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Err != nil {
			n++
		}
	}
	return n
}

// SaveReport summarizes a save.
type SaveReport struct {
	RunID    string
	Metafile string
	Snapshot *snapshot.Snapshot
}
