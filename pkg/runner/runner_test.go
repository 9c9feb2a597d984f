package runner

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/benchguard/benchguard/pkg/guard"
	"github.com/benchguard/benchguard/pkg/storage"
)

func TestMain(m *testing.M) {
	guard.WorkerMain()
	os.Exit(m.Run())
}

func init() {
	guard.Register("square", func(args map[string]interface{}) (interface{}, error) {
		n := args["n"].(float64)
		return map[string]interface{}{"square": n * n}, nil
	})

	guard.Register("bare_value", func(args map[string]interface{}) (interface{}, error) {
		return 7, nil
	})

	guard.Register("always_fails", func(args map[string]interface{}) (interface{}, error) {
		return nil, errors.New("broken fixture")
	})
}

func TestRunBatchRecordsRepeats(t *testing.T) {
	g, err := guard.New("square", 5*time.Second)
	if err != nil {
		t.Fatalf("guard.New failed: %v", err)
	}
	defer g.Close()

	store := storage.NewMemoryStore()
	inputs := []map[string]interface{}{
		{"n": 2.0},
		{"n": 3.0},
	}

	err = RunBatch(context.Background(), g, inputs, Options{
		Repeats: 2,
		Store:   store,
	})
	if err != nil {
		t.Fatalf("RunBatch failed: %v", err)
	}

	recs, err := store.LoadResults("square")
	if err != nil {
		t.Fatalf("LoadResults failed: %v", err)
	}
	if len(recs) != 4 {
		t.Fatalf("Expected 4 results (2 inputs x 2 repeats), got %d", len(recs))
	}

	for _, rec := range recs {
		n := rec.Inputs["n"].(float64)
		if rec.Outputs["square"] != n*n {
			t.Errorf("Input n=%v recorded square=%v", n, rec.Outputs["square"])
		}
		if rec.Meta.ConfigHash == "" {
			t.Error("Expected a config hash in metadata")
		}
	}
}

func TestRunBatchSkipsCoveredInputs(t *testing.T) {
	g, err := guard.New("square", 5*time.Second)
	if err != nil {
		t.Fatalf("guard.New failed: %v", err)
	}
	defer g.Close()

	store := storage.NewMemoryStore()
	inputs := []map[string]interface{}{{"n": 4.0}}
	opts := Options{Repeats: 2, Store: store}

	if err := RunBatch(context.Background(), g, inputs, opts); err != nil {
		t.Fatalf("First RunBatch failed: %v", err)
	}
	if err := RunBatch(context.Background(), g, inputs, opts); err != nil {
		t.Fatalf("Second RunBatch failed: %v", err)
	}

	recs, err := store.LoadResults("square")
	if err != nil {
		t.Fatalf("LoadResults failed: %v", err)
	}
	if len(recs) != 2 {
		t.Errorf("Re-run should add nothing: expected 2 results, got %d", len(recs))
	}
}

func TestRunBatchWrapsBareValues(t *testing.T) {
	g, err := guard.New("bare_value", 5*time.Second)
	if err != nil {
		t.Fatalf("guard.New failed: %v", err)
	}
	defer g.Close()

	store := storage.NewMemoryStore()
	if err := RunBatch(context.Background(), g, []map[string]interface{}{{"x": 1}}, Options{Store: store}); err != nil {
		t.Fatalf("RunBatch failed: %v", err)
	}

	recs, err := store.LoadResults("bare_value")
	if err != nil {
		t.Fatalf("LoadResults failed: %v", err)
	}
	if recs[0].Outputs["result"] != float64(7) {
		t.Errorf("Expected bare value under \"result\", got %v", recs[0].Outputs)
	}
}

func TestRunBatchSurfacesFailures(t *testing.T) {
	g, err := guard.New("always_fails", 5*time.Second)
	if err != nil {
		t.Fatalf("guard.New failed: %v", err)
	}
	defer g.Close()

	store := storage.NewMemoryStore()
	err = RunBatch(context.Background(), g, []map[string]interface{}{{"x": 1}}, Options{Store: store})
	if err == nil {
		t.Fatal("Expected the batch to report the failing input")
	}

	if _, loadErr := store.LoadResults("always_fails"); !errors.Is(loadErr, storage.ErrBenchmarkNotFound) {
		t.Errorf("Failed executions must record nothing, got %v", loadErr)
	}
}

func TestRunBatchRequiresStore(t *testing.T) {
	g, err := guard.New("square", time.Second)
	if err != nil {
		t.Fatalf("guard.New failed: %v", err)
	}
	defer g.Close()

	if err := RunBatch(context.Background(), g, nil, Options{}); err == nil {
		t.Error("Expected an error without a store")
	}
}

func TestLoadInputsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "inputs.yaml")
	content := `inputs:
  - size: 1024
    algo: quick
  - size: 4096
    algo: merge
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write inputs file: %v", err)
	}

	inputs, err := LoadInputsFile(path)
	if err != nil {
		t.Fatalf("LoadInputsFile failed: %v", err)
	}
	if len(inputs) != 2 {
		t.Fatalf("Expected 2 input sets, got %d", len(inputs))
	}
	if inputs[0]["size"] != 1024 || inputs[0]["algo"] != "quick" {
		t.Errorf("Unexpected first input set: %v", inputs[0])
	}
}

func TestLoadInputsFileErrors(t *testing.T) {
	if _, err := LoadInputsFile("/nonexistent/inputs.yaml"); err == nil {
		t.Error("Expected an error for a missing file")
	}

	empty := filepath.Join(t.TempDir(), "empty.yaml")
	if err := os.WriteFile(empty, []byte("inputs: []\n"), 0o644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}
	if _, err := LoadInputsFile(empty); err == nil {
		t.Error("Expected an error for an empty grid")
	}
}
