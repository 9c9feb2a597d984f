package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/benchguard/benchguard/pkg/storage"
)

var infoCmd = &cobra.Command{
	Use:   "info <benchmark>",
	Short: "Summarize a benchmark's recorded results",
	Args:  cobra.ExactArgs(1),
	RunE:  runInfo,
}

func init() {
	rootCmd.AddCommand(infoCmd)
}

func runInfo(cmd *cobra.Command, args []string) error {
	benchName := args[0]

	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	recs, err := store.LoadResults(benchName)
	if err != nil {
		if errors.Is(err, storage.ErrBenchmarkNotFound) {
			return fmt.Errorf("benchmark %q not found", benchName)
		}
		return err
	}

	hashes := make(map[string]struct{})
	earliest, latest := recs[0].CreatedAt, recs[0].CreatedAt
	for _, rec := range recs {
		hashes[rec.Meta.ConfigHash] = struct{}{}
		if rec.CreatedAt.Before(earliest) {
			earliest = rec.CreatedAt
		}
		if rec.CreatedAt.After(latest) {
			latest = rec.CreatedAt
		}
	}

	if IsJSONOutput() {
		return json.NewEncoder(os.Stdout).Encode(map[string]interface{}{
			"benchmark":     benchName,
			"total_results": len(recs),
			"unique_inputs": len(hashes),
			"earliest_run":  earliest.Format(time.RFC3339),
			"latest_run":    latest.Format(time.RFC3339),
		})
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Property", "Value")
	table.Append([]string{"Benchmark", benchName})
	table.Append([]string{"Total Results", fmt.Sprintf("%d", len(recs))})
	table.Append([]string{"Unique Inputs", fmt.Sprintf("%d", len(hashes))})
	table.Append([]string{"Earliest Run", earliest.Format(time.RFC3339)})
	table.Append([]string{"Latest Run", latest.Format(time.RFC3339)})
	table.Render()

	return nil
}
