package app

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"git-metafile/internal/config"
	"git-metafile/internal/database"
	"git-metafile/internal/fs"
	"git-metafile/internal/git"
	"git-metafile/internal/metafile"
)

// Params carries the per-invocation settings that do not live in the config file.
type Params struct {
	// WorkDir is where the repository is looked up; empty means the current directory.
	WorkDir string

	// Verbose mirrors the log to Stderr.
	Verbose bool

	// NoRepo skips repository discovery, for commands that only read the journal.
	NoRepo bool

	Stdout io.Writer
	Stderr io.Writer
}

// deps are the collaborators NewMetafileApp builds for the real system.
type deps struct {
	paths metafile.PathSource
	mm    metafile.MetadataManager
	clock metafile.Clock
}

// MetafileApp is the application layer between the CLI and MetafileService.
// It constructs all dependencies from config, resolves the repository and
// metafile locations, and manages the journal and log lifecycle on Close.
type MetafileApp struct {
	cfg      *config.Config
	paths    metafile.PathSource
	journal  metafile.Journal
	service  *metafile.MetafileService
	printer  *Printer
	ignore   *fs.IgnoreMatcher
	root     string
	metafile string
	runID    string
	logFile  *os.File
}

// NewMetafileApp creates a fully wired MetafileApp from the given config.
// The caller must call Close when done.
func NewMetafileApp(cfg *config.Config, p Params) (*MetafileApp, error) {
	return newMetafileApp(cfg, p, deps{
		paths: git.NewPathSource(p.WorkDir),
		mm:    fs.NewOSMetadataManager(),
		clock: metafile.RealClock{},
	})
}

func newMetafileApp(cfg *config.Config, p Params, d deps) (*MetafileApp, error) {
	if p.Stdout == nil {
		p.Stdout = os.Stdout
	}
	if p.Stderr == nil {
		p.Stderr = os.Stderr
	}

	a := &MetafileApp{
		cfg:     cfg,
		paths:   d.paths,
		printer: NewPrinter(p.Stdout, p.Stderr, cfg.Quiet),
		runID:   uuid.New().String(),
	}

	if !p.NoRepo {
		root, err := d.paths.RepoRoot()
		if err != nil {
			return nil, fmt.Errorf("could not find git's top-level directory: %w", err)
		}
		a.root = root
		a.metafile = cfg.File
		if !filepath.IsAbs(a.metafile) {
			a.metafile = filepath.Join(root, a.metafile)
		}

		raw, err := fs.ParseIgnoreFile(filepath.Join(root, fs.IgnoreFileName))
		if err != nil {
			return nil, err
		}
		a.ignore = fs.NewIgnoreMatcher(append(append([]string{}, cfg.Ignore...), raw...))
	}

	journal, err := database.NewJournalFromConfig(cfg.Journal)
	if err != nil {
		return nil, fmt.Errorf("opening journal: %w", err)
	}

	var mirror io.Writer
	if p.Verbose {
		mirror = p.Stderr
	}
	logger, logFile, err := newLogger(cfg.LogDir, a.runID, mirror)
	if err != nil {
		journal.Close()
		return nil, fmt.Errorf("creating logger: %w", err)
	}

	a.journal = journal
	a.logFile = logFile
	a.service = metafile.NewMetafileService(d.mm, journal, &slogAdapter{l: logger}, d.clock,
		&runIDGenerator{id: a.runID}, metafile.Options{Root: a.root, Workers: cfg.Workers})
	return a, nil
}

// RepoRoot returns the repository top-level directory.
func (a *MetafileApp) RepoRoot() string { return a.root }

// MetafilePath returns the absolute path of the metafile in use.
func (a *MetafileApp) MetafilePath() string { return a.metafile }

// Printer returns the printer used for user-facing output.
func (a *MetafileApp) Printer() *Printer { return a.printer }

// Save captures every tracked, non-ignored path and writes the metafile.
func (a *MetafileApp) Save() (*metafile.SaveReport, error) {
	if a.root == "" {
		return nil, errors.New("save requires a repository")
	}
	tracked, err := a.paths.TrackedPaths()
	if err != nil {
		return nil, fmt.Errorf("failed to get list of tracked files: %w", err)
	}

	report, err := a.service.Save(a.selectPaths(tracked), a.metafile)
	if err != nil {
		return nil, err
	}
	a.printer.SaveReport(report)
	return report, nil
}

// selectPaths drops ignored paths and the metafile itself.
func (a *MetafileApp) selectPaths(tracked []string) []string {
	self := ""
	if rel, err := filepath.Rel(a.root, a.metafile); err == nil && rel != ".." && !strings.HasPrefix(rel, "../") {
		self = filepath.ToSlash(rel)
	}

	kept := make([]string, 0, len(tracked))
	for _, p := range a.ignore.Filter(tracked) {
		if p != self {
			kept = append(kept, p)
		}
	}
	return kept
}

// Apply reconciles the work tree against the metafile. With dryRun set the
// pending changes are printed and nothing is modified.
func (a *MetafileApp) Apply(dryRun bool) (*metafile.ApplyReport, error) {
	if a.root == "" {
		return nil, errors.New("apply requires a repository")
	}
	report, err := a.service.Apply(a.metafile, metafile.ApplyOptions{Strict: a.cfg.Strict, DryRun: dryRun})
	if err != nil {
		return nil, err
	}
	a.printer.ApplyReport(report)
	return report, nil
}

// GetHistory returns the most recent runs, newest first.
func (a *MetafileApp) GetHistory(limit int) ([]*metafile.Run, error) {
	return a.service.GetHistory(limit)
}

// GetRun returns a run and the changes it attempted.
func (a *MetafileApp) GetRun(id string) (*metafile.Run, []*metafile.Change, error) {
	return a.service.GetRun(id)
}

// Close closes the journal and the log file.
func (a *MetafileApp) Close() error {
	var firstErr error
	if err := a.journal.Close(); err != nil {
		firstErr = fmt.Errorf("closing journal: %w", err)
	}
	if a.logFile != nil {
		if err := a.logFile.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("closing log file: %w", err)
		}
	}
	return firstErr
}

// runIDGenerator ties the service's run record to the invocation's log lines.
// A process performs one run; any further run gets a fresh UUID.
type runIDGenerator struct {
	id   string
	used bool
}

func (g *runIDGenerator) New() string {
	if g.used {
		return uuid.New().String()
	}
	g.used = true
	return g.id
}
