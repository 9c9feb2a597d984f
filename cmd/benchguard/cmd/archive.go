package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/benchguard/benchguard/pkg/storage"
)

var archiveCmd = &cobra.Command{
	Use:   "archive <benchmark>",
	Short: "Archive all results for a benchmark",
	Long:  `Archive hides a benchmark's results from ls and info without deleting them.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runArchive,
}

var optimizeCmd = &cobra.Command{
	Use:   "optimize",
	Short: "Compact the result database",
	RunE:  runOptimize,
}

func init() {
	rootCmd.AddCommand(archiveCmd)
	rootCmd.AddCommand(optimizeCmd)
}

func runArchive(cmd *cobra.Command, args []string) error {
	benchName := args[0]

	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Archive(benchName); err != nil {
		if errors.Is(err, storage.ErrBenchmarkNotFound) {
			return fmt.Errorf("no results found for %q", benchName)
		}
		return err
	}

	fmt.Printf("Archived results for %q.\n", benchName)
	return nil
}

func runOptimize(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Optimize(); err != nil {
		return err
	}

	fmt.Println("Result database compacted.")
	return nil
}
