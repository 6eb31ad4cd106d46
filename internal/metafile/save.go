package metafile

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"git-metafile/internal/snapshot"
)

// Capture reads the current metadata of the path rel (relative to the
// repository root). The path itself is inspected, not a symlink's target.
func (s *MetafileService) Capture(rel string) (snapshot.Entry, error) {
	md, err := s.mm.Lstat(s.resolve(rel))
	if err != nil {
		return snapshot.Entry{}, err
	}
	return snapshot.Entry{Path: rel, Mode: md.Mode, UID: md.UID, GID: md.GID}, nil
}

// CaptureAll captures every path into a new snapshot, keeping the order of
// paths. Any capture failure aborts the whole operation: a snapshot silently
// missing entries is worse than no snapshot. Duplicate paths are rejected.
func (s *MetafileService) CaptureAll(paths []string) (*snapshot.Snapshot, error) {
	entries := make([]snapshot.Entry, len(paths))

	g, ctx := errgroup.WithContext(context.Background())
	g.SetLimit(s.opts.Workers)
	for i, p := range paths {
		i, p := i, p
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil // another capture already failed
			}
			e, err := s.Capture(p)
			if err != nil {
				return fmt.Errorf("%s: %w", p, err)
			}
			entries[i] = e
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return snapshot.FromEntries(entries)
}

// Save captures the given paths and writes the resulting snapshot to
// metafilePath. Nothing is written if any capture fails.
func (s *MetafileService) Save(paths []string, metafilePath string) (*SaveReport, error) {
	run := s.startRun("save", metafilePath)

	snap, err := s.CaptureAll(paths)
	if err != nil {
		s.logger.Error("capture failed", "run", run.ID, "error", err)
		s.finishRun(run, StatusError)
		return nil, fmt.Errorf("capturing metadata: %w", err)
	}
	run.Entries = snap.Len()

	if err := snapshot.Write(metafilePath, snap); err != nil {
		s.logger.Error("writing metafile failed", "run", run.ID, "error", err)
		s.finishRun(run, StatusError)
		return nil, fmt.Errorf("writing metafile %s: %w", metafilePath, err)
	}

	s.finishRun(run, StatusSuccess)
	return &SaveReport{RunID: run.ID, Metafile: metafilePath, Snapshot: snap}, nil
}
