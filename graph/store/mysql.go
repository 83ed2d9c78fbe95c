package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

// MySQLStore is a MySQL-backed Store implementation for deployments
// where run history should live on a shared database server.
//
// The DSN follows go-sql-driver conventions, e.g.
// "user:pass@tcp(localhost:3306)/prosearch?parseTime=true".
type MySQLStore[S any] struct {
	db *sql.DB
}

// NewMySQLStore connects to MySQL with the given DSN and ensures the
// schema exists.
func NewMySQLStore[S any](dsn string) (*MySQLStore[S], error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL connection: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping MySQL: %w", err)
	}

	s := &MySQLStore[S]{db: db}
	if err := s.createTables(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return s, nil
}

func (s *MySQLStore[S]) createTables(ctx context.Context) error {
	schema := `
		CREATE TABLE IF NOT EXISTS research_steps (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			run_id VARCHAR(191) NOT NULL,
			step INT NOT NULL,
			node_id VARCHAR(191) NOT NULL,
			state JSON NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			UNIQUE KEY uniq_run_step (run_id, step),
			KEY idx_run (run_id, step)
		)`
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// SaveStep implements Store.
func (s *MySQLStore[S]) SaveStep(ctx context.Context, runID string, step int, nodeID string, state S) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("mysql store: failed to marshal state: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO research_steps (run_id, step, node_id, state) VALUES (?, ?, ?, ?)`,
		runID, step, nodeID, string(data))
	if err != nil {
		return fmt.Errorf("mysql store: failed to save step: %w", err)
	}
	return nil
}

// LoadLatest implements Store.
func (s *MySQLStore[S]) LoadLatest(ctx context.Context, runID string) (S, int, error) {
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
		return zero, 0, fmt.Errorf("mysql store: failed to load latest: %w", err)
	}

	var state S
	if err := json.Unmarshal([]byte(data), &state); err != nil {
		return zero, 0, fmt.Errorf("mysql store: failed to unmarshal state: %w", err)
	}
	return state, step, nil
}

// Close releases the database connections.
func (s *MySQLStore[S]) Close() error {
	return s.db.Close()
}
