package testutil

import (
	"testing"

	"git-metafile/internal/database"
	"git-metafile/internal/metafile"
)

// NewTestJournal creates a new in-memory SQLite journal with the schema applied.
// The journal is automatically closed when the test completes.
func NewTestJournal(t *testing.T) metafile.Journal {
	t.Helper()

	j, err := database.NewSQLiteJournal(":memory:")
	if err != nil {
		t.Fatalf("failed to open journal: %v", err)
	}

	t.Cleanup(func() {
		j.Close()
	})

	return j
}
