package guard

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidDeadline is returned by New when the deadline is not positive.
	ErrInvalidDeadline = errors.New("guard: deadline must be > 0")

	// ErrTaskNotRegistered is returned by New when the task name has no
	// registration in this process.
	ErrTaskNotRegistered = errors.New("guard: task not registered")

	// ErrTimeout is the sentinel matched by errors.Is for timed-out calls.
	ErrTimeout = errors.New("guard: deadline exceeded")

	// ErrWorkerCrashed is the sentinel matched by errors.Is when the worker
	// process died without producing a response.
	ErrWorkerCrashed = errors.New("guard: worker crashed")
)

// TimeoutError reports that a call produced no response within the deadline.
// The worker has been killed and replaced.
type TimeoutError struct {
	Task     string
	Deadline time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("guard: task %q timed out after %s", e.Task, e.Deadline)
}

func (e *TimeoutError) Unwrap() error { return ErrTimeout }

// CrashError reports that the worker process died mid-call. Unlike a
// timeout, a crash is never substituted with the guard's default value.
type CrashError struct {
	Task string
}

func (e *CrashError) Error() string {
	return fmt.Sprintf("guard: worker for task %q crashed", e.Task)
}

func (e *CrashError) Unwrap() error { return ErrWorkerCrashed }

// CalleeError carries an error raised by the task itself. The worker
// survives a callee error and is reused for the next call.
type CalleeError struct {
	Task    string
	Message string
}

func (e *CalleeError) Error() string {
	return fmt.Sprintf("guard: task %q failed: %s", e.Task, e.Message)
}
