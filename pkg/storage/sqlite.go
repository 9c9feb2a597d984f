package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/benchguard/benchguard/pkg/results"
)

// SQLiteStore is a SQLite-based implementation of the result store.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite result database.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	// WAL plus a generous busy timeout keeps concurrent batch runners from
	// tripping over SQLITE_BUSY; a single writer connection serializes
	// writes at the pool level.
	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=10000&_synchronous=NORMAL", dbPath)

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(30 * time.Minute)

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS results (
		run_id TEXT PRIMARY KEY,
		bench_name TEXT NOT NULL,
		inputs TEXT NOT NULL,
		inputs_hash TEXT NOT NULL,
		outputs TEXT NOT NULL,
		meta TEXT NOT NULL,
		archived BOOLEAN NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_results_bench ON results(bench_name, archived);
	CREATE INDEX IF NOT EXISTS idx_results_inputs ON results(bench_name, inputs_hash, archived);
	`

	_, err := s.db.Exec(schema)
	return err
}

// SaveResult persists one result record.
func (s *SQLiteStore) SaveResult(res *results.Result) error {
	inputs, err := json.Marshal(res.Inputs)
	if err != nil {
		return fmt.Errorf("failed to marshal inputs: %w", err)
	}
	outputs, err := json.Marshal(res.Outputs)
	if err != nil {
		return fmt.Errorf("failed to marshal outputs: %w", err)
	}
	meta, err := json.Marshal(res.Meta)
	if err != nil {
		return fmt.Errorf("failed to marshal meta: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT INTO results (run_id, bench_name, inputs, inputs_hash, outputs, meta, archived, created_at)
		VALUES (?, ?, ?, ?, ?, ?, 0, ?)
	`, res.RunID, res.BenchName, string(inputs), results.InputsHash(res.Inputs),
		string(outputs), string(meta), res.CreatedAt)

	return err
}

// LoadResults returns all non-archived results for a benchmark, oldest first.
func (s *SQLiteStore) LoadResults(benchName string) ([]*results.Result, error) {
	rows, err := s.db.Query(`
		SELECT run_id, bench_name, inputs, outputs, meta, created_at
		FROM results WHERE bench_name = ? AND archived = 0
		ORDER BY created_at ASC
	`, benchName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*results.Result
	for rows.Next() {
		res, err := scanResult(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, ErrBenchmarkNotFound
	}
	return out, nil
}

// ListBenchmarks returns benchmarks that have non-archived results.
func (s *SQLiteStore) ListBenchmarks() ([]string, error) {
	rows, err := s.db.Query(`
		SELECT DISTINCT bench_name FROM results WHERE archived = 0 ORDER BY bench_name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// CountResultsWithInputs counts non-archived results for one input set.
func (s *SQLiteStore) CountResultsWithInputs(benchName string, inputs map[string]interface{}) (int, error) {
	var count int
	err := s.db.QueryRow(`
		SELECT COUNT(*) FROM results
		WHERE bench_name = ? AND inputs_hash = ? AND archived = 0
	`, benchName, results.InputsHash(inputs)).Scan(&count)
	return count, err
}

// Archive hides all results for a benchmark without deleting them.
func (s *SQLiteStore) Archive(benchName string) error {
	res, err := s.db.Exec(`
		UPDATE results SET archived = 1 WHERE bench_name = ? AND archived = 0
	`, benchName)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrBenchmarkNotFound
	}
	return nil
}

// ListArchived returns archived result counts per benchmark.
func (s *SQLiteStore) ListArchived() (map[string]int, error) {
	rows, err := s.db.Query(`
		SELECT bench_name, COUNT(*) FROM results WHERE archived = 1 GROUP BY bench_name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	archived := make(map[string]int)
	for rows.Next() {
		var name string
		var count int
		if err := rows.Scan(&name, &count); err != nil {
			return nil, err
		}
		archived[name] = count
	}
	return archived, rows.Err()
}

// Optimize reclaims space from archived-and-deleted rows.
func (s *SQLiteStore) Optimize() error {
	_, err := s.db.Exec("VACUUM")
	return err
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// HealthCheck verifies the database is reachable.
func (s *SQLiteStore) HealthCheck() error {
	return s.db.Ping()
}

// rowScanner covers *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanResult(row rowScanner) (*results.Result, error) {
	var res results.Result
	var inputsJSON, outputsJSON, metaJSON string

	if err := row.Scan(&res.RunID, &res.BenchName, &inputsJSON, &outputsJSON, &metaJSON, &res.CreatedAt); err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(inputsJSON), &res.Inputs); err != nil {
		return nil, fmt.Errorf("failed to unmarshal inputs: %w", err)
	}
	if err := json.Unmarshal([]byte(outputsJSON), &res.Outputs); err != nil {
		return nil, fmt.Errorf("failed to unmarshal outputs: %w", err)
	}
	if err := json.Unmarshal([]byte(metaJSON), &res.Meta); err != nil {
		return nil, fmt.Errorf("failed to unmarshal meta: %w", err)
	}

	return &res, nil
}
