package database

import (
	"fmt"
	"os"
	"path/filepath"

	"git-metafile/internal/config"
	"git-metafile/internal/metafile"
)

// JournalFileName is the name of the journal database inside data_dir.
const JournalFileName = "journal.db"

// NewJournalFromConfig creates a Journal implementation based on the journal config.
func NewJournalFromConfig(cfg config.JournalConfig) (metafile.Journal, error) {
	if !cfg.Enabled {
		return metafile.NewNopJournal(), nil
	}

	switch cfg.Type {
	case "sqlite":
		if cfg.DataDir == "" {
			return nil, fmt.Errorf("data_dir required for sqlite journal")
		}
		if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
			return nil, fmt.Errorf("creating journal directory: %w", err)
		}
		return openJournal(filepath.Join(cfg.DataDir, JournalFileName))
	case "memory":
		return openJournal(":memory:")
	default:
		return nil, fmt.Errorf("unknown journal type: %s", cfg.Type)
	}
}

// openJournal keeps a failed open from producing a non-nil interface
// wrapping a nil *SQLiteJournal.
func openJournal(path string) (metafile.Journal, error) {
	j, err := NewSQLiteJournal(path)
	if err != nil {
		return nil, err
	}
	return j, nil
}
