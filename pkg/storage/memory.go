package storage

import (
	"sync"

	"github.com/benchguard/benchguard/pkg/results"
)

// MemoryStore is an in-memory implementation of the result store, used in
// tests and throwaway runs.
type MemoryStore struct {
	mu       sync.RWMutex
	records  map[string][]*results.Result
	archived map[string][]*results.Result
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records:  make(map[string][]*results.Result),
		archived: make(map[string][]*results.Result),
	}
}

// SaveResult persists one result record.
func (s *MemoryStore) SaveResult(res *results.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records[res.BenchName] = append(s.records[res.BenchName], res)
	return nil
}

// LoadResults returns all non-archived results for a benchmark.
func (s *MemoryStore) LoadResults(benchName string) ([]*results.Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	recs, ok := s.records[benchName]
	if !ok || len(recs) == 0 {
		return nil, ErrBenchmarkNotFound
	}
	out := make([]*results.Result, len(recs))
	copy(out, recs)
	return out, nil
}

// ListBenchmarks returns benchmarks that have non-archived results.
func (s *MemoryStore) ListBenchmarks() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.records))
	for name, recs := range s.records {
		if len(recs) > 0 {
			names = append(names, name)
		}
	}
	return names, nil
}

// CountResultsWithInputs counts non-archived results for one input set.
func (s *MemoryStore) CountResultsWithInputs(benchName string, inputs map[string]interface{}) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	want := results.InputsHash(inputs)
	count := 0
	for _, rec := range s.records[benchName] {
		if results.InputsHash(rec.Inputs) == want {
			count++
		}
	}
	return count, nil
}

// Archive hides all results for a benchmark without deleting them.
func (s *MemoryStore) Archive(benchName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	recs, ok := s.records[benchName]
	if !ok || len(recs) == 0 {
		return ErrBenchmarkNotFound
	}
	s.archived[benchName] = append(s.archived[benchName], recs...)
	delete(s.records, benchName)
	return nil
}

// ListArchived returns archived result counts per benchmark.
func (s *MemoryStore) ListArchived() (map[string]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	archived := make(map[string]int, len(s.archived))
	for name, recs := range s.archived {
		archived[name] = len(recs)
	}
	return archived, nil
}

// Optimize is a no-op for the in-memory store.
func (s *MemoryStore) Optimize() error { return nil }

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error { return nil }

// HealthCheck always succeeds for the in-memory store.
func (s *MemoryStore) HealthCheck() error { return nil }
