package guard

import (
	"fmt"
	"sync"
	"time"

	"github.com/benchguard/benchguard/pkg/logging"
	"github.com/benchguard/benchguard/pkg/metrics"
)

// defaultStopGrace bounds how long a clean teardown waits for the worker to
// exit on its own before escalating to SIGKILL.
const defaultStopGrace = 2 * time.Second

// supervisor owns the single worker slot for one guard. The slot holds at
// most one live worker at any instant: on restart the old process is killed
// and reaped before the replacement takes the slot.
//
// All calls are serialized by an internal mutex, so concurrent callers of
// one guard never race on the worker's channel. Callers that want
// parallelism use distinct guards.
type supervisor struct {
	mu        sync.Mutex
	task      string
	workload  *workload
	worker    *worker
	logger    *logging.Logger
	stopGrace time.Duration
	closed    bool
}

func newSupervisor(task string, logger *logging.Logger) *supervisor {
	return &supervisor{
		task:      task,
		workload:  &workload{Task: task},
		logger:    logger.WithField("task", task),
		stopGrace: defaultStopGrace,
	}
}

// start spawns the worker ahead of the first call.
func (s *supervisor) start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ensureStarted()
}

// ensureStarted spawns a worker if the slot is empty or holds a dead one,
// and replays the workload so the new process knows its task. Idempotent.
func (s *supervisor) ensureStarted() error {
	if s.worker != nil && s.worker.alive() {
		return nil
	}
	if s.worker != nil {
		// Dead worker still in the slot; make sure it is reaped.
		s.worker.kill()
		s.worker = nil
	}

	w, err := startWorker(s.task, s.logger)
	if err != nil {
		return err
	}
	if err := w.ch.send(&envelope{Type: msgWorkload, Workload: s.workload}); err != nil {
		w.kill()
		return fmt.Errorf("failed to hand workload to worker: %w", err)
	}

	s.worker = w
	return nil
}

// call sends one request and waits up to deadline for its response.
// Responses (Ok or Err) leave the worker alive and listening; a timeout or
// a vanished peer replaces the worker before the outcome is surfaced, so
// the slot is clean for the next call.
func (s *supervisor) call(args map[string]interface{}, deadline time.Duration) (*response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, fmt.Errorf("guard: task %q called after Close", s.task)
	}

	if err := s.ensureStarted(); err != nil {
		return nil, err
	}

	if err := s.worker.ch.send(&envelope{Type: msgRequest, Request: &request{Args: args}}); err != nil {
		// Write failed: the worker died between calls.
		s.restart("crash")
		return nil, &CrashError{Task: s.task}
	}

	env, outcome := s.worker.ch.poll(deadline)
	switch outcome {
	case pollMessage:
		if env.Type != msgResponse || env.Response == nil {
			s.restart("protocol")
			return nil, &CrashError{Task: s.task}
		}
		return env.Response, nil

	case pollTimedOut:
		s.logger.WithField("deadline", deadline.String()).Warn("call timed out, replacing worker")
		s.restart("timeout")
		return nil, &TimeoutError{Task: s.task, Deadline: deadline}

	default: // pollClosed
		s.logger.Warn("worker died mid-call, replacing it")
		s.restart("crash")
		return nil, &CrashError{Task: s.task}
	}
}

// restart kills the current worker and immediately starts a replacement
// with the same workload. A failed respawn is not fatal here; the next
// call's ensureStarted retries it.
func (s *supervisor) restart(reason string) {
	if s.worker != nil {
		s.worker.kill()
		s.worker = nil
	}
	metrics.Default().RecordRestart(s.task, reason)

	if err := s.ensureStarted(); err != nil {
		s.logger.WithField("error", err.Error()).Warn("worker respawn failed, will retry on next call")
	}
}

// close tears the worker down cleanly. Safe to call more than once.
func (s *supervisor) close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true

	if s.worker != nil {
		s.worker.stop(s.stopGrace)
		s.worker = nil
	}
}
