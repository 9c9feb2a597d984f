package guard

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// workerEnv marks a process as a guard worker. The value is the task name,
// set for diagnostics only; the authoritative task identity arrives in the
// workload message.
const workerEnv = "BENCHGUARD_WORKER"

// WorkerMain turns the current process into a guard worker when it was
// spawned as one, and returns immediately otherwise. Call it at the top of
// main (or TestMain), after all Register calls have run. It never returns
// in worker mode.
func WorkerMain() {
	if os.Getenv(workerEnv) == "" {
		return
	}
	runWorkerLoop(os.Stdin, os.Stdout)
	os.Exit(0)
}

// runWorkerLoop is the worker's receive-loop. It reads envelopes off r,
// executes requests against the registered task, and writes responses to w.
// It returns on a stop message or when the read side reports the supervisor
// is gone (the silent teardown path).
func runWorkerLoop(r io.Reader, w io.Writer) {
	dec := json.NewDecoder(r)
	enc := json.NewEncoder(w)

	var taskName string
	var task TaskFunc // resolved on first request, cached for the worker's lifetime

	for {
		var env envelope
		if err := dec.Decode(&env); err != nil {
			return
		}

		switch env.Type {
		case msgWorkload:
			if env.Workload != nil {
				taskName = env.Workload.Task
				task = nil
			}
		case msgStop:
			return
		case msgRequest:
			if task == nil {
				fn, ok := lookupTask(taskName)
				if !ok {
					enc.Encode(&envelope{Type: msgResponse, Response: &response{
						OK:    false,
						Error: fmt.Sprintf("task %q not registered in worker", taskName),
					}})
					continue
				}
				task = fn
			}

			var args map[string]interface{}
			if env.Request != nil {
				args = env.Request.Args
			}

			resp := invokeTask(task, args)
			if err := enc.Encode(&envelope{Type: msgResponse, Response: resp}); err != nil {
				return
			}
		}
	}
}

// invokeTask executes one request. Panics inside the task are converted to
// an error response so the worker survives and stays in its receive-loop.
func invokeTask(task TaskFunc, args map[string]interface{}) (resp *response) {
	defer func() {
		if r := recover(); r != nil {
			resp = &response{OK: false, Error: fmt.Sprintf("panic: %v", r)}
		}
	}()

	value, err := task(args)
	if err != nil {
		return &response{OK: false, Error: err.Error()}
	}

	raw, err := json.Marshal(value)
	if err != nil {
		return &response{OK: false, Error: fmt.Sprintf("result not serializable: %v", err)}
	}
	return &response{OK: true, Value: raw}
}
