package metafile

import (
	"database/sql"
	"time"
)

// Run statuses recorded in the journal.
const (
	StatusRunning = "running"
	StatusSuccess = "success"
	StatusPartial = "partial" // apply finished but some changes failed
	StatusError   = "error"
)

// Run is one save, apply or diff invocation.
type Run struct {
	ID         string
	Operation  string
	RepoRoot   string
	Metafile   string
	StartedAt  time.Time
	FinishedAt sql.NullTime
	Status     string
	Entries    int
	Changes    int
	Failures   int
}

// Change is a journaled attribute change attempted during a run.
type Change struct {
	RunID     string
	Path      string
	Attribute Attribute
	OldValue  uint32
	NewValue  uint32
	Error     string // empty on success
}

// Journal records runs and the changes they attempted.
// Journal failures never abort a run; the service only logs them.
type Journal interface {
	// StartRun inserts a new run record.
	StartRun(run *Run) error

	// RecordChanges stores the outcomes of a run in order.
	RecordChanges(runID string, changes []*Change) error

	// FinishRun updates the final status, counters and finish time of a run.
	FinishRun(run *Run) error

	// ListRuns returns the most recent runs, newest first.
	ListRuns(limit int) ([]*Run, error)

	// FindRun returns the run with the given ID, or nil if it does not exist.
	FindRun(id string) (*Run, error)

	// ListChanges returns the changes recorded for a run in the order they were attempted.
	ListChanges(runID string) ([]*Change, error)

	// Close releases the journal's resources.
	Close() error
}

// NopJournal is used when journaling is disabled.
type NopJournal struct{}

func NewNopJournal() *NopJournal { return &NopJournal{} }

func (*NopJournal) StartRun(*Run) error                   { return nil }
func (*NopJournal) RecordChanges(string, []*Change) error { return nil }
func (*NopJournal) FinishRun(*Run) error                  { return nil }
func (*NopJournal) ListRuns(int) ([]*Run, error)          { return nil, nil }
func (*NopJournal) FindRun(string) (*Run, error)          { return nil, nil }
func (*NopJournal) ListChanges(string) ([]*Change, error) { return nil, nil }
func (*NopJournal) Close() error                          { return nil }
