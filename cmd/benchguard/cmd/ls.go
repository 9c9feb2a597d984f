package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

var lsArchived bool

var lsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List available benchmarks",
	Long:  `List benchmarks with recorded results, optionally including archived ones.`,
	RunE:  runLs,
}

func init() {
	rootCmd.AddCommand(lsCmd)
	lsCmd.Flags().BoolVar(&lsArchived, "archived", false, "also list archived benchmarks")
}

func runLs(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	benchmarks, err := store.ListBenchmarks()
	if err != nil {
		return err
	}

	var archived map[string]int
	if lsArchived {
		if archived, err = store.ListArchived(); err != nil {
			return err
		}
	}

	if IsJSONOutput() {
		out := map[string]interface{}{"benchmarks": benchmarks}
		if lsArchived {
			out["archived"] = archived
		}
		return json.NewEncoder(os.Stdout).Encode(out)
	}

	if len(benchmarks) == 0 {
		fmt.Println("No benchmarks available.")
	} else {
		fmt.Println("Available benchmarks:")
		for _, b := range benchmarks {
			fmt.Printf("  - %s\n", b)
		}
	}

	if lsArchived {
		if len(archived) == 0 {
			fmt.Println("No archived benchmarks.")
			return nil
		}
		table := tablewriter.NewWriter(os.Stdout)
		table.Header("Archived Benchmark", "Results")
		for name, count := range archived {
			table.Append([]string{name, fmt.Sprintf("%d", count)})
		}
		table.Render()
	}

	return nil
}
