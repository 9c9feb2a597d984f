package guard

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/benchguard/benchguard/pkg/logging"
	"github.com/benchguard/benchguard/pkg/metrics"
)

// TimeoutPolicy selects what a timed-out call surfaces to the caller.
type TimeoutPolicy int

const (
	// ReturnDefault substitutes the guard's default value on timeout.
	// This is the default policy.
	ReturnDefault TimeoutPolicy = iota
	// ReturnError surfaces a *TimeoutError instead of the default value.
	ReturnError
)

// Guard wraps a registered task with a deadline and a restart-on-failure
// worker. One Guard owns one worker slot; calls through it are serialized.
type Guard struct {
	task      string
	deadline  time.Duration
	def       interface{}
	onTimeout TimeoutPolicy
	eager     bool
	sup       *supervisor
	logger    *logging.Logger
}

// Option configures a Guard at construction time.
type Option func(*Guard)

// WithDefault sets the value substituted on timeout under the
// ReturnDefault policy. The zero default is nil.
func WithDefault(v interface{}) Option {
	return func(g *Guard) { g.def = v }
}

// WithTimeoutPolicy selects the timeout behavior. The two observed designs
// are incompatible, so the choice is part of the guard's contract rather
// than implicit.
func WithTimeoutPolicy(p TimeoutPolicy) Option {
	return func(g *Guard) { g.onTimeout = p }
}

// WithEagerStart spawns the worker at construction instead of on first
// call, trading startup latency on New for a warm first Call.
func WithEagerStart() Option {
	return func(g *Guard) { g.eager = true }
}

// WithLogger overrides the guard's logger.
func WithLogger(l *logging.Logger) Option {
	return func(g *Guard) { g.logger = l }
}

// New builds a guard around the named registered task. Configuration
// problems (non-positive deadline, unknown task) fail here, never at call
// time.
func New(task string, deadline time.Duration, opts ...Option) (*Guard, error) {
	if deadline <= 0 {
		return nil, ErrInvalidDeadline
	}
	if _, ok := lookupTask(task); !ok {
		return nil, fmt.Errorf("%w: %q", ErrTaskNotRegistered, task)
	}

	g := &Guard{
		task:     task,
		deadline: deadline,
		logger:   logging.NewLogger(logging.INFO, false).WithField("component", "guard"),
	}
	for _, opt := range opts {
		opt(g)
	}

	g.sup = newSupervisor(task, g.logger)

	if g.eager {
		if err := g.sup.start(); err != nil {
			return nil, err
		}
	}

	return g, nil
}

// Call runs the task in the worker with the given arguments. It returns
// within the deadline plus a small bounded overhead regardless of what the
// task does.
//
// Outcomes:
//   - the task returned a value: that value (JSON round-tripped), nil error
//   - the task returned an error or panicked: a *CalleeError; the worker
//     survives and keeps its state
//   - no response within the deadline: the worker is killed and replaced,
//     then either the default value (ReturnDefault) or a *TimeoutError
//     (ReturnError) is surfaced
//   - the worker died mid-call: a *CrashError, never the default value;
//     the worker is replaced and the next Call starts clean
func (g *Guard) Call(args map[string]interface{}) (interface{}, error) {
	start := time.Now()
	resp, err := g.sup.call(args, g.deadline)
	elapsed := time.Since(start)

	if err != nil {
		switch err.(type) {
		case *TimeoutError:
			metrics.Default().RecordCall(g.task, "timeout", elapsed)
			if g.onTimeout == ReturnDefault {
				return g.def, nil
			}
			return nil, err
		case *CrashError:
			metrics.Default().RecordCall(g.task, "crash", elapsed)
			return nil, err
		default:
			metrics.Default().RecordCall(g.task, "error", elapsed)
			return nil, err
		}
	}

	if !resp.OK {
		metrics.Default().RecordCall(g.task, "callee_error", elapsed)
		return nil, &CalleeError{Task: g.task, Message: resp.Error}
	}

	metrics.Default().RecordCall(g.task, "ok", elapsed)

	var value interface{}
	if len(resp.Value) > 0 {
		if err := json.Unmarshal(resp.Value, &value); err != nil {
			return nil, fmt.Errorf("guard: undecodable result for task %q: %w", g.task, err)
		}
	}
	return value, nil
}

// Deadline returns the guard's configured deadline.
func (g *Guard) Deadline() time.Duration { return g.deadline }

// Task returns the guarded task's registered name.
func (g *Guard) Task() string { return g.task }

// Close tears down the worker process. The guard must not be used after
// Close. Safe to call more than once.
func (g *Guard) Close() error {
	g.sup.close()
	return nil
}
