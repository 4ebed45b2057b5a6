// Package store persists translation results in SQLite so repeated
// conversions of the same workbook can be inspected and diffed.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/cellforge/gridlate"
)

const resultSchema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id TEXT PRIMARY KEY,
	default_sheet TEXT NOT NULL,
	script TEXT NOT NULL,
	failed INTEGER NOT NULL,
	cycles INTEGER NOT NULL,
	created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS cells (
	run_id TEXT NOT NULL REFERENCES runs(run_id) ON DELETE CASCADE,
	cell TEXT NOT NULL,
	source TEXT NOT NULL,
	js TEXT NOT NULL,
	translatable INTEGER NOT NULL,
	score INTEGER NOT NULL,
	complex INTEGER NOT NULL,
	eval_index INTEGER NOT NULL,
	error TEXT NOT NULL,
	PRIMARY KEY (run_id, cell)
);`

// ErrRunNotFound is returned when no stored run matches the id.
var ErrRunNotFound = errors.New("store: run not found")

// CellRecord is one formula cell as persisted for a run.
type CellRecord struct {
	Cell         string
	Source       string
	JS           string
	Translatable bool
	Score        int
	Complex      bool
	// EvalIndex is the cell's position in the evaluation order,
	// or -1 when the run had no valid order.
	EvalIndex int
	Error     string
}

// RunRecord is a stored translation run.
type RunRecord struct {
	RunID        string
	DefaultSheet string
	Script       string
	Failed       int
	Cycles       int
	CreatedAt    time.Time
	Cells        []CellRecord
}

// ResultStore persists translation runs in a SQLite database.
type ResultStore struct {
	db *sql.DB
}

// Open opens (or creates) a result store at the given path.
func Open(path string) (*ResultStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("store: sqlite path is required")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: set WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: enable foreign keys: %w", err)
	}
	if _, err := db.Exec(resultSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: create schema: %w", err)
	}

	return &ResultStore{db: db}, nil
}

// Close releases the underlying database handle.
func (s *ResultStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// SaveRun persists a translation result and its rendered script.
func (s *ResultStore) SaveRun(ctx context.Context, result *gridlate.TranslationResult) error {
	if s == nil || s.db == nil {
		return errors.New("store: result store is nil")
	}
	if result == nil {
		return errors.New("store: result is nil")
	}

	evalIndex := make(map[string]int, len(result.Order))
	for i, coord := range result.Order {
		evalIndex[coord.String()] = i
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin save: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (run_id, default_sheet, script, failed, cycles, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		result.RunID,
		result.DefaultSheet,
		result.CalculationScript(),
		len(result.Failures),
		len(result.Cycles),
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("store: save run %s: %w", result.RunID, err)
	}

	for _, entry := range result.Entries {
		cell := entry.Coord.String()
		errText := ""
		if entry.Err != nil {
			errText = entry.Err.Error()
		}
		idx := -1
		if i, found := evalIndex[cell]; found {
			idx = i
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO cells (run_id, cell, source, js, translatable, score, complex, eval_index, error)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			result.RunID,
			cell,
			entry.Source,
			entry.Emission.JS,
			boolInt(entry.Emission.Translatable),
			entry.Complexity.Score,
			boolInt(entry.Complexity.Complex),
			idx,
			errText,
		)
		if err != nil {
			return fmt.Errorf("store: save cell %s: %w", cell, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: commit save: %w", err)
	}
	return nil
}

// LoadRun fetches a stored run and its cells, cells sorted by
// evaluation index then cell reference.
func (s *ResultStore) LoadRun(ctx context.Context, runID string) (*RunRecord, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("store: result store is nil")
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT run_id, default_sheet, script, failed, cycles, created_at
		FROM runs WHERE run_id = ?`, runID)

	var rec RunRecord
	var createdAt string
	err := row.Scan(&rec.RunID, &rec.DefaultSheet, &rec.Script, &rec.Failed, &rec.Cycles, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if err != nil {
		return nil, fmt.Errorf("store: load run %s: %w", runID, err)
	}
	if t, perr := time.Parse(time.RFC3339Nano, createdAt); perr == nil {
		rec.CreatedAt = t
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT cell, source, js, translatable, score, complex, eval_index, error
		FROM cells WHERE run_id = ?
		ORDER BY CASE WHEN eval_index < 0 THEN 1 ELSE 0 END, eval_index, cell`, runID)
	if err != nil {
		return nil, fmt.Errorf("store: load cells for %s: %w", runID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var c CellRecord
		var translatable, complex int
		if err := rows.Scan(&c.Cell, &c.Source, &c.JS, &translatable, &c.Score, &complex, &c.EvalIndex, &c.Error); err != nil {
			return nil, fmt.Errorf("store: scan cell row: %w", err)
		}
		c.Translatable = translatable != 0
		c.Complex = complex != 0
		rec.Cells = append(rec.Cells, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterate cells: %w", err)
	}

	return &rec, nil
}

// ListRuns returns stored run ids, newest first.
func (s *ResultStore) ListRuns(ctx context.Context) ([]string, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("store: result store is nil")
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id FROM runs ORDER BY created_at DESC, run_id`)
	if err != nil {
		return nil, fmt.Errorf("store: list runs: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("store: scan run id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
