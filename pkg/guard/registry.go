package guard

import (
	"fmt"
	"sync"
)

// TaskFunc is a guarded unit of work. Arguments arrive as a JSON-decoded
// map (numbers are float64). The returned value must be JSON-serializable.
type TaskFunc func(args map[string]interface{}) (interface{}, error)

var (
	registryMu sync.RWMutex
	registry   = make(map[string]TaskFunc)
)

// Register makes a task available to guards and worker processes under the
// given name. It must run identically in the parent and the worker (package
// init or early in main, before WorkerMain). It panics on an empty name or
// a duplicate registration, both of which are programming errors.
func Register(name string, fn TaskFunc) {
	if name == "" {
		panic("guard: Register called with empty task name")
	}
	if fn == nil {
		panic(fmt.Sprintf("guard: Register called with nil task %q", name))
	}

	registryMu.Lock()
	defer registryMu.Unlock()

	if _, exists := registry[name]; exists {
		panic(fmt.Sprintf("guard: task %q registered twice", name))
	}
	registry[name] = fn
}

// lookupTask returns the registered task, if any.
func lookupTask(name string) (TaskFunc, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	fn, ok := registry[name]
	return fn, ok
}
