package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"git-metafile/internal/database/migrations"
	"git-metafile/internal/metafile"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteJournal implements metafile.Journal on SQLite.
type SQLiteJournal struct {
	db   *sql.DB
	path string
}

// NewSQLiteJournal opens (creating if needed) the journal at path and brings
// its schema up to date. path can be a file path or ":memory:".
func NewSQLiteJournal(path string) (*SQLiteJournal, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}

	if err := migrations.MigrateUp(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating journal: %w", err)
	}
	if err := migrations.CheckDBMigrationStatus(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("journal schema out of date: %w", err)
	}

	return &SQLiteJournal{db: db, path: path}, nil
}

// OpenConnection opens and configures a SQLite connection.
// The pool is limited to one connection: the journal is written by a single
// process, and ":memory:" databases exist per connection.
func OpenConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	return db, nil
}

// Path returns the location the journal was opened from.
func (j *SQLiteJournal) Path() string {
	return j.path
}

func (j *SQLiteJournal) StartRun(run *metafile.Run) error {
	_, err := j.db.ExecContext(context.Background(), `
		INSERT INTO runs (id, operation, repo_root, metafile, started_at, status)
		VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID, run.Operation, run.RepoRoot, run.Metafile, run.StartedAt.UTC(), run.Status,
	)
	if err != nil {
		return fmt.Errorf("inserting run: %w", err)
	}
	return nil
}

func (j *SQLiteJournal) RecordChanges(runID string, changes []*metafile.Change) error {
	if len(changes) == 0 {
		return nil
	}
	ctx := context.Background()

	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO changes (run_id, seq, path, attribute, old_value, new_value, error)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for i, c := range changes {
		if _, err := stmt.ExecContext(ctx, runID, i, c.Path, string(c.Attribute), c.OldValue, c.NewValue, c.Error); err != nil {
			return fmt.Errorf("inserting change for %s: %w", c.Path, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing changes: %w", err)
	}
	return nil
}

func (j *SQLiteJournal) FinishRun(run *metafile.Run) error {
	var finishedAt any
	if run.FinishedAt.Valid {
		finishedAt = run.FinishedAt.Time.UTC()
	}

	res, err := j.db.ExecContext(context.Background(), `
		UPDATE runs
		SET finished_at = ?, status = ?, entries = ?, changes = ?, failures = ?
		WHERE id = ?`,
		finishedAt, run.Status, run.Entries, run.Changes, run.Failures, run.ID,
	)
	if err != nil {
		return fmt.Errorf("updating run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("run not found: %s", run.ID)
	}
	return nil
}

const runColumns = `id, operation, repo_root, metafile, started_at, finished_at, status, entries, changes, failures`

func (j *SQLiteJournal) ListRuns(limit int) ([]*metafile.Run, error) {
	rows, err := j.db.QueryContext(context.Background(),
		`SELECT `+runColumns+` FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var runs []*metafile.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	return runs, nil
}

func (j *SQLiteJournal) FindRun(id string) (*metafile.Run, error) {
	row := j.db.QueryRowContext(context.Background(), `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return run, nil
}

func (j *SQLiteJournal) ListChanges(runID string) ([]*metafile.Change, error) {
	rows, err := j.db.QueryContext(context.Background(), `
		SELECT run_id, path, attribute, old_value, new_value, error
		FROM changes WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("listing changes: %w", err)
	}
	defer rows.Close()

	var changes []*metafile.Change
	for rows.Next() {
		var c metafile.Change
		var attr string
		if err := rows.Scan(&c.RunID, &c.Path, &attr, &c.OldValue, &c.NewValue, &c.Error); err != nil {
			return nil, fmt.Errorf("scanning change: %w", err)
		}
		c.Attribute = metafile.Attribute(attr)
		changes = append(changes, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing changes: %w", err)
	}
	return changes, nil
}

func (j *SQLiteJournal) Close() error {
	return j.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*metafile.Run, error) {
	var r metafile.Run
	err := row.Scan(&r.ID, &r.Operation, &r.RepoRoot, &r.Metafile, &r.StartedAt, &r.FinishedAt,
		&r.Status, &r.Entries, &r.Changes, &r.Failures)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning run: %w", err)
	}
	return &r, nil
}

// Compile-time check that SQLiteJournal implements metafile.Journal
var _ metafile.Journal = (*SQLiteJournal)(nil)
