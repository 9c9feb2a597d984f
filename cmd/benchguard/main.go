package main

import (
	"os"

	"github.com/benchguard/benchguard/cmd/benchguard/cmd"
	"github.com/benchguard/benchguard/pkg/guard"
)

func main() {
	// Re-exec hook for guard workers; a no-op in normal CLI use.
	guard.WorkerMain()

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
