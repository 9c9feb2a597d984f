package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/benchguard/benchguard/pkg/config"
	"github.com/benchguard/benchguard/pkg/storage"
)

var (
	cfgFile      string
	outputFormat string
	cfg          *config.Config
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "benchguard",
	Short: "Inspect and manage recorded benchmark results",
	Long: `benchguard is the command line surface of the benchguard library:
it lists, summarizes, archives and compacts benchmark results recorded by
guarded batch runs.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $BENCHGUARD_PATH/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&outputFormat, "output", "table", "output format: table or json")
}

// initConfig loads settings; flags take precedence over config and env.
func initConfig() {
	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
}

// openStore opens the configured result store.
func openStore() (storage.Store, error) {
	dsn, err := cfg.DatabaseDSN()
	if err != nil {
		return nil, err
	}
	return storage.Open(cfg.Storage, dsn)
}

// IsJSONOutput returns true if JSON output is requested
func IsJSONOutput() bool {
	return outputFormat == "json"
}
