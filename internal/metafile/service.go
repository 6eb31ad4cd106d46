package metafile

import (
	"path/filepath"
)

// Options is the run-scoped configuration of a MetafileService.
// It is read-only once the service is created and shared by all workers.
type Options struct {
	// Root is the repository root; entry paths are resolved against it.
	Root string

	// Workers bounds the number of paths captured or reconciled concurrently.
	// Values below 1 mean sequential processing.
	Workers int
}

// MetafileService captures metadata into snapshots and reconciles the
// working tree against them.
type MetafileService struct {
	mm      MetadataManager
	journal Journal
	logger  Logger
	clock   Clock
	idgen   IDGenerator
	opts    Options
}

// NewMetafileService creates a new MetafileService with the provided dependencies.
func NewMetafileService(mm MetadataManager, journal Journal, logger Logger, clock Clock, idgen IDGenerator, opts Options) *MetafileService {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	return &MetafileService{
		mm:      mm,
		journal: journal,
		logger:  logger,
		clock:   clock,
		idgen:   idgen,
		opts:    opts,
	}
}

// resolve maps a snapshot path to the path handed to the MetadataManager.
func (s *MetafileService) resolve(rel string) string {
	if filepath.IsAbs(rel) {
		return rel
	}
	return filepath.Join(s.opts.Root, rel)
}

// startRun creates and journals a run record.
func (s *MetafileService) startRun(operation, metafilePath string) *Run {
	run := &Run{
		ID:        s.idgen.New(),
		Operation: operation,
		RepoRoot:  s.opts.Root,
		Metafile:  metafilePath,
		StartedAt: s.clock.Now(),
		Status:    StatusRunning,
	}
	if err := s.journal.StartRun(run); err != nil {
		s.logger.Warn("journal: recording run start failed", "run", run.ID, "error", err)
	}
	s.logger.Info(operation+" started", "run", run.ID, "metafile", metafilePath)
	return run
}

// finishRun stamps the run with its final status and journals it.
func (s *MetafileService) finishRun(run *Run, status string) {
	run.Status = status
	run.FinishedAt.Time = s.clock.Now()
	run.FinishedAt.Valid = true
	if err := s.journal.FinishRun(run); err != nil {
		s.logger.Warn("journal: recording run finish failed", "run", run.ID, "error", err)
	}
	s.logger.Info(run.Operation+" finished",
		"run", run.ID,
		"status", status,
		"entries", run.Entries,
		"changes", run.Changes,
		"failures", run.Failures,
	)
}
