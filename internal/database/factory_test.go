package database

import (
	"os"
	"path/filepath"
	"testing"

	"git-metafile/internal/config"
	"git-metafile/internal/metafile"
)

func TestNewJournalFromConfig(t *testing.T) {
	t.Run("disabled journal", func(t *testing.T) {
		got, err := NewJournalFromConfig(config.JournalConfig{Enabled: false, Type: "sqlite"})
		if err != nil {
			t.Fatalf("NewJournalFromConfig() unexpected error: %v", err)
		}
		if _, ok := got.(*metafile.NopJournal); !ok {
			t.Errorf("NewJournalFromConfig() = %T, want *metafile.NopJournal", got)
		}
	})

	t.Run("memory journal", func(t *testing.T) {
		got, err := NewJournalFromConfig(config.JournalConfig{Enabled: true, Type: "memory"})
		if err != nil {
			t.Fatalf("NewJournalFromConfig() unexpected error: %v", err)
		}
		defer got.Close()

		if _, ok := got.(*SQLiteJournal); !ok {
			t.Errorf("NewJournalFromConfig() = %T, want *SQLiteJournal", got)
		}
	})

	t.Run("sqlite journal creates data_dir", func(t *testing.T) {
		dataDir := filepath.Join(t.TempDir(), "nested", "db")
		got, err := NewJournalFromConfig(config.JournalConfig{Enabled: true, Type: "sqlite", DataDir: dataDir})
		if err != nil {
			t.Fatalf("NewJournalFromConfig() unexpected error: %v", err)
		}
		defer got.Close()

		if _, err := os.Stat(filepath.Join(dataDir, JournalFileName)); err != nil {
			t.Errorf("journal file not created: %v", err)
		}
	})

	t.Run("sqlite journal without data_dir", func(t *testing.T) {
		got, err := NewJournalFromConfig(config.JournalConfig{Enabled: true, Type: "sqlite"})
		if err == nil {
			t.Error("NewJournalFromConfig() expected error for missing data_dir, got nil")
		}
		if got != nil {
			t.Error("NewJournalFromConfig() should return nil on error")
		}
	})

	t.Run("unknown journal type", func(t *testing.T) {
		got, err := NewJournalFromConfig(config.JournalConfig{Enabled: true, Type: "postgres"})
		if err == nil {
			t.Error("NewJournalFromConfig() expected error for unknown type, got nil")
		}
		if got != nil {
			t.Error("NewJournalFromConfig() should return nil on error")
		}
	})
}
