package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/benchguard/benchguard/pkg/results"
)

// PostgresStore implements Store using PostgreSQL, for teams sharing one
// result database across machines.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore connects to PostgreSQL with the given DSN.
func NewPostgresStore(dsn string) (*PostgresStore, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres DSN is required")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &PostgresStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

func (s *PostgresStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS results (
		run_id TEXT PRIMARY KEY,
		bench_name TEXT NOT NULL,
		inputs JSONB NOT NULL,
		inputs_hash TEXT NOT NULL,
		outputs JSONB NOT NULL,
		meta JSONB NOT NULL,
		archived BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_results_bench ON results(bench_name, archived);
	CREATE INDEX IF NOT EXISTS idx_results_inputs ON results(bench_name, inputs_hash, archived);
	`

	_, err := s.db.Exec(schema)
	return err
}

// SaveResult persists one result record.
func (s *PostgresStore) SaveResult(res *results.Result) error {
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
		VALUES ($1, $2, $3, $4, $5, $6, FALSE, $7)
	`, res.RunID, res.BenchName, string(inputs), results.InputsHash(res.Inputs),
		string(outputs), string(meta), res.CreatedAt)

	return err
}

// LoadResults returns all non-archived results for a benchmark, oldest first.
func (s *PostgresStore) LoadResults(benchName string) ([]*results.Result, error) {
	rows, err := s.db.Query(`
		SELECT run_id, bench_name, inputs, outputs, meta, created_at
		FROM results WHERE bench_name = $1 AND archived = FALSE
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
func (s *PostgresStore) ListBenchmarks() ([]string, error) {
	rows, err := s.db.Query(`
		SELECT DISTINCT bench_name FROM results WHERE archived = FALSE ORDER BY bench_name
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
func (s *PostgresStore) CountResultsWithInputs(benchName string, inputs map[string]interface{}) (int, error) {
	var count int
	err := s.db.QueryRow(`
		SELECT COUNT(*) FROM results
		WHERE bench_name = $1 AND inputs_hash = $2 AND archived = FALSE
	`, benchName, results.InputsHash(inputs)).Scan(&count)
	return count, err
}

// Archive hides all results for a benchmark without deleting them.
func (s *PostgresStore) Archive(benchName string) error {
	res, err := s.db.Exec(`
		UPDATE results SET archived = TRUE WHERE bench_name = $1 AND archived = FALSE
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
func (s *PostgresStore) ListArchived() (map[string]int, error) {
	rows, err := s.db.Query(`
		SELECT bench_name, COUNT(*) FROM results WHERE archived = TRUE GROUP BY bench_name
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

// Optimize runs VACUUM ANALYZE on the results table.
func (s *PostgresStore) Optimize() error {
	_, err := s.db.Exec("VACUUM ANALYZE results")
	return err
}

// Close closes the database.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// HealthCheck verifies the database is reachable.
func (s *PostgresStore) HealthCheck() error {
	return s.db.Ping()
}
