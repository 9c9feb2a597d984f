// Package guard runs registered tasks in a separate worker process under a
// wall-clock deadline. The caller always regains control within the deadline:
// a task that busy-loops, blocks in a syscall, or never yields is killed at
// the OS level and its worker process is replaced with a fresh one.
//
// Tasks are identified by name. Because Go cannot serialize closures across
// a process boundary, the guarded function must be registered under a name
// with Register, and the same registration must exist in the worker process.
// Workers are re-executions of the current binary, so any binary using this
// package must call WorkerMain early in main (or TestMain):
//
//	func main() {
//		guard.WorkerMain() // no-op unless running as a worker
//		...
//	}
//
// Argument and result values cross the process boundary as JSON, so tasks
// see numbers as float64 and should stick to JSON-representable values.
//
// A worker is reused across calls and keeps its in-process state between
// them; replacing the worker (after a timeout or crash) is the only thing
// that resets that state.
package guard
