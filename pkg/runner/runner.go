// Package runner executes a guarded benchmark over a grid of input sets
// and records one result per repetition, skipping configurations that
// already have enough stored results.
package runner

import (
	"context"
	"fmt"
	"reflect"
	"time"

	"github.com/benchguard/benchguard/pkg/guard"
	"github.com/benchguard/benchguard/pkg/logging"
	"github.com/benchguard/benchguard/pkg/results"
	"github.com/benchguard/benchguard/pkg/retry"
	"github.com/benchguard/benchguard/pkg/shutdown"
	"github.com/benchguard/benchguard/pkg/storage"
)

// Options configures a batch run.
type Options struct {
	// BenchName labels stored results; defaults to the guard's task name.
	BenchName string
	// Repeats is how many results each input set should end up with.
	// Defaults to 1.
	Repeats int
	// Retries is how many times a failed execution is retried before the
	// input set is given up on.
	Retries int
	// Store receives the results. Required.
	Store storage.Store
	// Serializers convert custom input/output types into scalars.
	Serializers map[reflect.Type]results.Serializer
	// MetricsAddr, when set, serves /metrics and /healthz for the
	// duration of the run.
	MetricsAddr string
	// HandleSignals installs a SIGTERM/SIGINT handler that stops the
	// batch between executions and tears the worker down.
	HandleSignals bool
	// Logger defaults to an INFO logger.
	Logger *logging.Logger
}

// RunBatch runs the guarded task once per repetition for every input set.
// Input sets that already have at least Repeats stored results are skipped,
// so an interrupted batch can be re-run and picks up where it left off.
// Failed executions count as attempted but produce no result row; the error
// of the last failing input is returned after the whole grid was visited.
func RunBatch(ctx context.Context, g *guard.Guard, inputs []map[string]interface{}, opts Options) error {
	if opts.Store == nil {
		return fmt.Errorf("runner: a result store is required")
	}
	if opts.BenchName == "" {
		opts.BenchName = g.Task()
	}
	if opts.Repeats <= 0 {
		opts.Repeats = 1
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewLogger(logging.INFO, false)
	}
	logger = logger.WithField("bench", opts.BenchName)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if opts.HandleSignals {
		mgr := shutdown.New(5*time.Second, logger)
		mgr.Register(func(context.Context) error { return g.Close() })
		mgr.Notify()
		go func() {
			<-mgr.Done()
			cancel()
			mgr.Shutdown()
		}()
	}

	if opts.MetricsAddr != "" {
		srv, err := serveMetrics(opts.MetricsAddr, opts.Store, logger)
		if err != nil {
			return err
		}
		defer srv.Close()
	}

	retryCfg := retry.DefaultConfig()
	retryCfg.MaxRetries = opts.Retries

	var lastErr error
	for _, input := range inputs {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("runner: batch interrupted: %w", err)
		}

		flatInputs, err := results.Flatten(input, opts.Serializers)
		if err != nil {
			return err
		}

		existing, err := opts.Store.CountResultsWithInputs(opts.BenchName, flatInputs)
		if err != nil {
			return fmt.Errorf("runner: failed to count existing results: %w", err)
		}
		if existing >= opts.Repeats {
			logger.WithField("inputs", string(results.CanonicalJSON(flatInputs))).
				Info("skipping input set, enough results recorded")
			continue
		}

		for rep := existing; rep < opts.Repeats; rep++ {
			if err := runOne(ctx, g, input, flatInputs, rep, retryCfg, opts); err != nil {
				logger.WithField("error", err.Error()).Warn("input set failed, moving on")
				lastErr = err
				break
			}
		}
	}

	return lastErr
}

func runOne(ctx context.Context, g *guard.Guard, input, flatInputs map[string]interface{},
	rep int, retryCfg retry.Config, opts Options) error {

	var value interface{}
	err := retry.Do(ctx, retryCfg, func() error {
		v, callErr := g.Call(input)
		if callErr != nil {
			return callErr
		}
		value = v
		return nil
	})
	if err != nil {
		return err
	}

	outputs, ok := value.(map[string]interface{})
	if !ok {
		outputs = map[string]interface{}{"result": value}
	}
	flatOutputs, err := results.Flatten(outputs, opts.Serializers)
	if err != nil {
		return err
	}

	meta := results.Collect()
	meta.ConfigHash = results.ConfigHash(flatInputs, meta.GitCommit)
	meta.Repetition = rep

	return opts.Store.SaveResult(results.New(opts.BenchName, flatInputs, flatOutputs, meta))
}
