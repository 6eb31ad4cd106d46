package metafile

import (
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"git-metafile/internal/snapshot"
)

// ErrSymlinkMode is reported when a snapshot asks for a different mode on a
// symbolic link; Linux has no lchmod.
var ErrSymlinkMode = errors.New("cannot change mode of a symbolic link")

const fileTypeMask = 0170000

// ApplyOptions controls a single Apply call.
type ApplyOptions struct {
	// Strict aborts on the first malformed metafile line.
	Strict bool

	// DryRun computes the pending changes without making them.
	DryRun bool
}

// Reconcile brings every path listed in snap to the recorded mode, owner and
// group, changing only what differs. Failures are isolated: a path that
// cannot be inspected, or an attribute that cannot be changed, is reported in
// its Outcome and processing continues. Outcomes are returned in snapshot
// order regardless of how many workers ran.
//
// A path that already matches produces no outcome.
func (s *MetafileService) Reconcile(snap *snapshot.Snapshot, dryRun bool) []Outcome {
	perEntry := make([][]Outcome, len(snap.Entries))

	var g errgroup.Group
	g.SetLimit(s.opts.Workers)
	for i, expected := range snap.Entries {
		i, expected := i, expected
		g.Go(func() error {
			perEntry[i] = s.reconcileEntry(expected, dryRun)
			return nil
		})
	}
	g.Wait()

	var outcomes []Outcome
	for _, out := range perEntry {
		outcomes = append(outcomes, out...)
	}
	return outcomes
}

// reconcileEntry compares and fixes one path. The three attributes are
// handled independently; a failure on one does not skip the others.
func (s *MetafileService) reconcileEntry(expected snapshot.Entry, dryRun bool) []Outcome {
	path := s.resolve(expected.Path)

	current, err := s.mm.Lstat(path)
	if err != nil {
		s.logger.Warn("cannot inspect path", "path", expected.Path, "error", err)
		return []Outcome{{Path: expected.Path, Attr: AttrStat, Err: err}}
	}

	var outcomes []Outcome

	if modeDiffers(current.Mode, expected.Mode) {
		o := Outcome{Path: expected.Path, Attr: AttrMode, Old: current.Mode, New: expected.Mode}
		switch {
		case current.IsSymlink:
			o.Err = ErrSymlinkMode
		case !dryRun:
			o.Err = s.mm.Chmod(path, expected.Mode)
		}
		outcomes = append(outcomes, s.logOutcome(o, dryRun))
	}

	if current.UID != expected.UID {
		o := Outcome{Path: expected.Path, Attr: AttrOwner, Old: current.UID, New: expected.UID}
		if !dryRun {
			o.Err = s.mm.Lchown(path, int(expected.UID), -1)
		}
		outcomes = append(outcomes, s.logOutcome(o, dryRun))
	}

	if current.GID != expected.GID {
		o := Outcome{Path: expected.Path, Attr: AttrGroup, Old: current.GID, New: expected.GID}
		if !dryRun {
			o.Err = s.mm.Lchown(path, -1, int(expected.GID))
		}
		outcomes = append(outcomes, s.logOutcome(o, dryRun))
	}

	return outcomes
}

// modeDiffers compares the full st_mode when the recorded mode carries file
// type bits. A mode without them, such as a hand-written 644, is compared on
// the permission, setuid, setgid and sticky bits only.
func modeDiffers(current, expected uint32) bool {
	if expected&fileTypeMask == 0 {
		return current&07777 != expected&07777
	}
	return current != expected
}

func (s *MetafileService) logOutcome(o Outcome, dryRun bool) Outcome {
	args := []any{"path", o.Path, "attribute", string(o.Attr), "old", o.Old, "new", o.New}
	switch {
	case o.Err != nil:
		s.logger.Error("change failed", append(args, "error", o.Err)...)
	case dryRun:
		s.logger.Debug("change pending", args...)
	default:
		s.logger.Info("changed", args...)
	}
	return o
}

// Apply reads the metafile at metafilePath and reconciles the working tree
// against it. Errors opening or parsing the metafile (including malformed
// lines in strict mode) are returned; per-path failures are not, they are
// part of the report.
func (s *MetafileService) Apply(metafilePath string, opts ApplyOptions) (*ApplyReport, error) {
	operation := "apply"
	if opts.DryRun {
		operation = "diff"
	}
	run := s.startRun(operation, metafilePath)

	report := &ApplyReport{RunID: run.ID, DryRun: opts.DryRun}
	snap, err := snapshot.Read(metafilePath, snapshot.DecodeOptions{
		Strict: opts.Strict,
		OnError: func(err error) {
			s.logger.Warn("skipping malformed line", "run", run.ID, "error", err)
			report.ParseErrors = append(report.ParseErrors, err)
		},
	})
	if err != nil {
		s.logger.Error("reading metafile failed", "run", run.ID, "error", err)
		s.finishRun(run, StatusError)
		return nil, fmt.Errorf("reading metafile %s: %w", metafilePath, err)
	}

	report.Entries = snap.Len()
	report.Outcomes = s.Reconcile(snap, opts.DryRun)

	run.Entries = report.Entries
	run.Changes = report.Changed()
	run.Failures = report.Failed()
	if err := s.journal.RecordChanges(run.ID, toChanges(run.ID, report.Outcomes)); err != nil {
		s.logger.Warn("journal: recording changes failed", "run", run.ID, "error", err)
	}

	status := StatusSuccess
	if run.Failures > 0 || len(report.ParseErrors) > 0 {
		status = StatusPartial
	}
	s.finishRun(run, status)

	return report, nil
}

func toChanges(runID string, outcomes []Outcome) []*Change {
	changes := make([]*Change, len(outcomes))
	for i, o := range outcomes {
		c := &Change{
			RunID:     runID,
			Path:      o.Path,
			Attribute: o.Attr,
			OldValue:  o.Old,
			NewValue:  o.New,
		}
		if o.Err != nil {
			c.Error = o.Err.Error()
		}
		changes[i] = c
	}
	return changes
}
