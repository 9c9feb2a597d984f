package guard

import (
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/benchguard/benchguard/pkg/logging"
)

// workerState tracks the worker handle's lifecycle.
type workerState int

const (
	workerNotStarted workerState = iota
	workerRunning
	workerStopped
	workerDead
)

// worker is the supervisor-side handle for one isolated worker process:
// the exec.Cmd, its channel endpoint, and the wait bookkeeping that keeps
// the process from becoming a zombie.
type worker struct {
	cmd      *exec.Cmd
	ch       *channel
	waitDone chan struct{} // closed after cmd.Wait returns
	waitErr  error
	state    workerState
}

// startWorker re-executes the current binary in worker mode and wires its
// stdin/stdout pipes up as the channel. Stderr passes through so worker-side
// logs stay visible.
func startWorker(taskName string, logger *logging.Logger) (*worker, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("failed to locate executable: %w", err)
	}

	cmd := exec.Command(exe)
	cmd.Env = append(os.Environ(), workerEnv+"="+taskName)
	cmd.Stderr = os.Stderr

	// Explicit pipes instead of StdinPipe/StdoutPipe: cmd.Wait then has no
	// managed copiers, so waiting for the process never races the channel's
	// reader goroutine.
	stdinR, stdinW, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create stdin pipe: %w", err)
	}
	stdoutR, stdoutW, err := os.Pipe()
	if err != nil {
		stdinR.Close()
		stdinW.Close()
		return nil, fmt.Errorf("failed to create stdout pipe: %w", err)
	}
	cmd.Stdin = stdinR
	cmd.Stdout = stdoutW

	if err := cmd.Start(); err != nil {
		stdinR.Close()
		stdinW.Close()
		stdoutR.Close()
		stdoutW.Close()
		return nil, fmt.Errorf("failed to start worker: %w", err)
	}

	// The child owns its ends now; keeping them open in the parent would
	// stop EOF from ever arriving.
	stdinR.Close()
	stdoutW.Close()

	w := &worker{
		cmd:      cmd,
		ch:       newChannel(stdinW, stdoutR),
		waitDone: make(chan struct{}),
		state:    workerRunning,
	}

	go func() {
		w.waitErr = cmd.Wait()
		close(w.waitDone)
	}()

	logger.WithField("task", taskName).WithField("pid", cmd.Process.Pid).
		Debug("worker started")

	return w, nil
}

// alive reports whether the worker process is still running.
func (w *worker) alive() bool {
	if w.state != workerRunning {
		return false
	}
	select {
	case <-w.waitDone:
		w.state = workerDead
		return false
	default:
		return true
	}
}

// stop asks the worker to exit cleanly and escalates to SIGKILL after the
// grace period. It always waits for the process so nothing is left behind
// as a zombie.
func (w *worker) stop(grace time.Duration) {
	if w.state != workerRunning {
		w.reap()
		return
	}

	// Best effort: the worker may already be gone or wedged.
	w.ch.send(&envelope{Type: msgStop})
	w.ch.close()

	select {
	case <-w.waitDone:
	case <-time.After(grace):
		w.cmd.Process.Kill()
		<-w.waitDone
	}
	w.state = workerStopped
}

// kill terminates the worker immediately. Used when the worker is presumed
// wedged and a clean stop would block past the caller's deadline.
func (w *worker) kill() {
	if w.state == workerRunning {
		w.cmd.Process.Kill()
	}
	w.ch.close()
	w.reap()
	w.state = workerDead
}

// reap waits for process exit so the OS entry is released.
func (w *worker) reap() {
	if w.waitDone != nil {
		<-w.waitDone
	}
}
