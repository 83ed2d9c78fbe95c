package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"
)

// SQLiteStore is a SQLite-backed Store implementation.
//
// A single-file database with zero setup, suited to local runs that
// should leave an inspectable trail. WAL mode is enabled so readers can
// inspect a run while it is still executing.
//
// Example:
//
//	st, err := store.NewSQLiteStore[agent.OverallState]("./runs.db")
//	if err != nil { ... }
//	defer st.Close()
type SQLiteStore[S any] struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if needed) the database at path and
// ensures the schema exists. Use ":memory:" for an ephemeral database.
func NewSQLiteStore[S any](path string) (*SQLiteStore[S], error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite connection: %w", err)
	}

	// SQLite supports a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	ctx := context.Background()
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to apply %s: %w", pragma, err)
		}
	}

	s := &SQLiteStore[S]{db: db}
	if err := s.createTables(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore[S]) createTables(ctx context.Context) error {
	schema := `
		CREATE TABLE IF NOT EXISTS research_steps (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL,
			step INTEGER NOT NULL,
			node_id TEXT NOT NULL,
			state TEXT NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			UNIQUE(run_id, step)
		)`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return err
	}
	index := `CREATE INDEX IF NOT EXISTS idx_research_steps_run ON research_steps(run_id, step)`
	_, err := s.db.ExecContext(ctx, index)
	return err
}

// SaveStep implements Store.
func (s *SQLiteStore[S]) SaveStep(ctx context.Context, runID string, step int, nodeID string, state S) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("sqlite store: failed to marshal state: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO research_steps (run_id, step, node_id, state) VALUES (?, ?, ?, ?)`,
		runID, step, nodeID, string(data))
	if err != nil {
		return fmt.Errorf("sqlite store: failed to save step: %w", err)
	}
	return nil
}

// LoadLatest implements Store.
func (s *SQLiteStore[S]) LoadLatest(ctx context.Context, runID string) (S, int, error) {
	var zero S

	var (
		step int
		data string
	)
	row := s.db.QueryRowContext(ctx,
		`SELECT step, state FROM research_steps WHERE run_id = ? ORDER BY step DESC LIMIT 1`,
		runID)
	if err := row.Scan(&step, &data); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return zero, 0, fmt.Errorf("run %q: %w", runID, ErrNotFound)
		}
		return zero, 0, fmt.Errorf("sqlite store: failed to load latest: %w", err)
	}

	var state S
	if err := json.Unmarshal([]byte(data), &state); err != nil {
		return zero, 0, fmt.Errorf("sqlite store: failed to unmarshal state: %w", err)
	}
	return state, step, nil
}

// Close releases the database connection.
func (s *SQLiteStore[S]) Close() error {
	return s.db.Close()
}
