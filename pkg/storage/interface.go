// Package storage persists benchmark results. SQLite is the default
// backend; PostgreSQL is available for shared result databases and an
// in-memory store backs tests.
package storage

import (
	"errors"
	"fmt"

	"github.com/benchguard/benchguard/pkg/results"
)

// ErrBenchmarkNotFound is returned when a benchmark has no stored results.
var ErrBenchmarkNotFound = errors.New("storage: benchmark not found")

// Store defines the interface for result persistence.
// SQLite, PostgreSQL and the in-memory store all implement it.
type Store interface {
	// SaveResult persists one result record.
	SaveResult(res *results.Result) error
	// LoadResults returns all non-archived results for a benchmark,
	// oldest first. Returns ErrBenchmarkNotFound when there are none.
	LoadResults(benchName string) ([]*results.Result, error)
	// ListBenchmarks returns the names of benchmarks with non-archived
	// results.
	ListBenchmarks() ([]string, error)
	// CountResultsWithInputs returns how many non-archived results exist
	// for the given flattened input set. The batch runner uses this to
	// skip already-covered configurations.
	CountResultsWithInputs(benchName string, inputs map[string]interface{}) (int, error)
	// Archive marks all results for a benchmark as archived, hiding them
	// from LoadResults and ListBenchmarks without deleting them.
	Archive(benchName string) error
	// ListArchived returns archived result counts per benchmark.
	ListArchived() (map[string]int, error)
	// Optimize compacts the underlying storage.
	Optimize() error

	Close() error
	HealthCheck() error
}

// Open creates a store for the named backend. Supported backends are
// "sqlite" (dsn is a file path) and "postgres" (dsn is a connection
// string).
func Open(backend, dsn string) (Store, error) {
	switch backend {
	case "", "sqlite":
		return NewSQLiteStore(dsn)
	case "postgres":
		return NewPostgresStore(dsn)
	default:
		return nil, fmt.Errorf("storage: unknown backend %q", backend)
	}
}
