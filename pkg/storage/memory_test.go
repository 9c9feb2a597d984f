package storage

import (
	"errors"
	"testing"

	"github.com/benchguard/benchguard/pkg/results"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	store := NewMemoryStore()

	res := results.New("mem_bench",
		map[string]interface{}{"n": 10},
		map[string]interface{}{"result": 55},
		results.Metadata{GitCommit: "abc1234"})
	if err := store.SaveResult(res); err != nil {
		t.Fatalf("SaveResult failed: %v", err)
	}

	recs, err := store.LoadResults("mem_bench")
	if err != nil {
		t.Fatalf("LoadResults failed: %v", err)
	}
	if len(recs) != 1 || recs[0].RunID != res.RunID {
		t.Errorf("Unexpected results: %v", recs)
	}

	count, err := store.CountResultsWithInputs("mem_bench", map[string]interface{}{"n": 10})
	if err != nil {
		t.Fatalf("CountResultsWithInputs failed: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected 1, got %d", count)
	}
}

func TestMemoryStoreArchive(t *testing.T) {
	store := NewMemoryStore()

	res := results.New("mem_bench", map[string]interface{}{"n": 1}, map[string]interface{}{"r": 1}, results.Metadata{})
	if err := store.SaveResult(res); err != nil {
		t.Fatalf("SaveResult failed: %v", err)
	}

	if err := store.Archive("mem_bench"); err != nil {
		t.Fatalf("Archive failed: %v", err)
	}
	if _, err := store.LoadResults("mem_bench"); !errors.Is(err, ErrBenchmarkNotFound) {
		t.Errorf("Expected ErrBenchmarkNotFound after archive, got %v", err)
	}

	archived, err := store.ListArchived()
	if err != nil {
		t.Fatalf("ListArchived failed: %v", err)
	}
	if archived["mem_bench"] != 1 {
		t.Errorf("Expected archived count 1, got %v", archived)
	}

	if err := store.Archive("missing"); !errors.Is(err, ErrBenchmarkNotFound) {
		t.Errorf("Expected ErrBenchmarkNotFound, got %v", err)
	}
}

func TestOpenUnknownBackend(t *testing.T) {
	if _, err := Open("cassandra", ""); err == nil {
		t.Error("Expected an error for an unknown backend")
	}
}
