package metafile

import "fmt"

// GetHistory returns the most recent runs, newest first.
func (s *MetafileService) GetHistory(limit int) ([]*Run, error) {
	runs, err := s.journal.ListRuns(limit)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	return runs, nil
}

// GetRun returns a run and the changes it attempted.
func (s *MetafileService) GetRun(id string) (*Run, []*Change, error) {
	run, err := s.journal.FindRun(id)
	if err != nil {
		return nil, nil, fmt.Errorf("finding run: %w", err)
	}
	if run == nil {
		return nil, nil, fmt.Errorf("no such run: %s", id)
	}

	changes, err := s.journal.ListChanges(id)
	if err != nil {
		return nil, nil, fmt.Errorf("listing changes: %w", err)
	}
	return run, changes, nil
}
