package guard

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"
)

// pollOutcome is the tri-state result of a deadline-bounded receive.
type pollOutcome int

const (
	pollMessage pollOutcome = iota
	pollTimedOut
	pollClosed
)

// channel is the supervisor's end of the message transport to one worker.
// A single long-lived reader goroutine owns the read side of the pipe and
// feeds decoded envelopes into inbox, so a response abandoned by a timed-out
// poll can never desynchronize framing: strict single-flight means at most
// one response is ever in flight, and inbox has room for it.
type channel struct {
	w     io.WriteCloser
	enc   *json.Encoder
	inbox chan *envelope
	done  chan struct{} // closed when the reader goroutine exits

	closeOnce sync.Once
}

func newChannel(w io.WriteCloser, r io.Reader) *channel {
	c := &channel{
		w:     w,
		enc:   json.NewEncoder(w),
		inbox: make(chan *envelope, 1),
		done:  make(chan struct{}),
	}
	go c.readLoop(r)
	return c
}

func (c *channel) readLoop(r io.Reader) {
	defer close(c.done)

	dec := json.NewDecoder(r)
	for {
		var env envelope
		if err := dec.Decode(&env); err != nil {
			// EOF, pipe error and malformed frame all mean the same
			// thing to the supervisor: the peer is gone.
			return
		}
		c.inbox <- &env
	}
}

// send enqueues a message for the worker. A write error means the peer end
// is gone; the caller maps it onto its own state machine.
func (c *channel) send(env *envelope) error {
	if err := c.enc.Encode(env); err != nil {
		return fmt.Errorf("channel send: %w", err)
	}
	return nil
}

// poll blocks until a message arrives, the deadline elapses, or the peer
// closes. A message already decoded before the peer closed is still
// delivered.
func (c *channel) poll(deadline time.Duration) (*envelope, pollOutcome) {
	timer := time.NewTimer(deadline)
	defer timer.Stop()

	select {
	case env := <-c.inbox:
		return env, pollMessage
	case <-timer.C:
		return nil, pollTimedOut
	case <-c.done:
		select {
		case env := <-c.inbox:
			return env, pollMessage
		default:
			return nil, pollClosed
		}
	}
}

// receive blocks until a message arrives or the peer closes.
func (c *channel) receive() (*envelope, pollOutcome) {
	select {
	case env := <-c.inbox:
		return env, pollMessage
	case <-c.done:
		select {
		case env := <-c.inbox:
			return env, pollMessage
		default:
			return nil, pollClosed
		}
	}
}

// close shuts the write side. The worker observes EOF on stdin and exits
// silently; the reader goroutine exits once the process side is torn down.
func (c *channel) close() {
	c.closeOnce.Do(func() {
		c.w.Close()
	})
}
