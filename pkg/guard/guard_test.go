package guard

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"
)

// Worker processes are re-executions of this test binary, so every task
// used below is registered at init time and TestMain routes worker mode
// into the receive-loop before any test runs.
func TestMain(m *testing.M) {
	WorkerMain()
	os.Exit(m.Run())
}

// counterState lives in whichever process executes the task. In a worker it
// survives across calls until the worker is replaced.
var counterState int

func init() {
	Register("echo", func(args map[string]interface{}) (interface{}, error) {
		return args["x"], nil
	})

	Register("add", func(args map[string]interface{}) (interface{}, error) {
		return args["a"].(float64) + args["b"].(float64), nil
	})

	Register("boom", func(args map[string]interface{}) (interface{}, error) {
		return nil, errors.New("boom")
	})

	Register("panics", func(args map[string]interface{}) (interface{}, error) {
		panic("kaboom")
	})

	Register("sleepy", func(args map[string]interface{}) (interface{}, error) {
		time.Sleep(time.Duration(args["ms"].(float64)) * time.Millisecond)
		return 42, nil
	})

	Register("counter", func(args map[string]interface{}) (interface{}, error) {
		if ms, ok := args["sleep_ms"].(float64); ok {
			time.Sleep(time.Duration(ms) * time.Millisecond)
		}
		counterState++
		return counterState, nil
	})

	Register("maybe_exit", func(args map[string]interface{}) (interface{}, error) {
		if crash, _ := args["crash"].(bool); crash {
			os.Exit(3)
		}
		return "alive", nil
	})
}

func TestGuardFastCall(t *testing.T) {
	g, err := New("echo", time.Second)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer g.Close()

	v, err := g.Call(map[string]interface{}{"x": 7})
	if err != nil {
		t.Fatalf("Call failed: %v", err)
	}
	if v != float64(7) {
		t.Errorf("Expected 7, got %v (%T)", v, v)
	}
}

func TestGuardCalleeError(t *testing.T) {
	g, err := New("boom", time.Second)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer g.Close()

	_, err = g.Call(nil)
	var calleeErr *CalleeError
	if !errors.As(err, &calleeErr) {
		t.Fatalf("Expected *CalleeError, got %v", err)
	}
	if calleeErr.Message != "boom" {
		t.Errorf("Expected message %q, got %q", "boom", calleeErr.Message)
	}

	// The worker survives its own errors and stays usable.
	if _, err := g.Call(nil); err == nil {
		t.Error("Expected a callee error on the reused worker")
	}
}

func TestGuardPanicIsCalleeError(t *testing.T) {
	g, err := New("panics", time.Second)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer g.Close()

	_, err = g.Call(nil)
	var calleeErr *CalleeError
	if !errors.As(err, &calleeErr) {
		t.Fatalf("Expected *CalleeError, got %v", err)
	}
	if calleeErr.Message != "panic: kaboom" {
		t.Errorf("Unexpected message: %q", calleeErr.Message)
	}
}

func TestGuardTimeoutReturnsDefault(t *testing.T) {
	g, err := New("sleepy", 500*time.Millisecond, WithDefault(-1))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer g.Close()

	start := time.Now()
	v, err := g.Call(map[string]interface{}{"ms": 2000})
	elapsed := time.Since(start)

	if err != nil {
		t.Fatalf("Expected default substitution, got error: %v", err)
	}
	if v != -1 {
		t.Errorf("Expected default -1, got %v", v)
	}
	if elapsed < 500*time.Millisecond {
		t.Errorf("Returned before the deadline: %v", elapsed)
	}
	if elapsed > 1500*time.Millisecond {
		t.Errorf("Blocked too long past the deadline: %v", elapsed)
	}
}

func TestGuardTimeoutErrorPolicy(t *testing.T) {
	g, err := New("sleepy", 300*time.Millisecond, WithTimeoutPolicy(ReturnError))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer g.Close()

	_, err = g.Call(map[string]interface{}{"ms": 2000})
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("Expected ErrTimeout, got %v", err)
	}
	var timeoutErr *TimeoutError
	if !errors.As(err, &timeoutErr) {
		t.Fatalf("Expected *TimeoutError, got %v", err)
	}
	if timeoutErr.Task != "sleepy" {
		t.Errorf("Unexpected task in error: %q", timeoutErr.Task)
	}
}

func TestWorkerReuseAndResetAfterTimeout(t *testing.T) {
	g, err := New("counter", 500*time.Millisecond, WithDefault(-1))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer g.Close()

	// Successive fast calls hit the same worker process, so its state
	// accumulates.
	for want := 1; want <= 3; want++ {
		v, err := g.Call(nil)
		if err != nil {
			t.Fatalf("Call %d failed: %v", want, err)
		}
		if v != float64(want) {
			t.Fatalf("Expected counter %d, got %v", want, v)
		}
	}

	// A timeout kills the worker; the replacement starts with fresh state.
	v, err := g.Call(map[string]interface{}{"sleep_ms": 2000})
	if err != nil || v != -1 {
		t.Fatalf("Expected default after timeout, got %v, %v", v, err)
	}

	v, err = g.Call(nil)
	if err != nil {
		t.Fatalf("Call after restart failed: %v", err)
	}
	if v != float64(1) {
		t.Errorf("Expected counter reset to 1 after restart, got %v", v)
	}
}

func TestGuardCrashRecovery(t *testing.T) {
	g, err := New("maybe_exit", time.Second, WithDefault("fallback"))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer g.Close()

	v, err := g.Call(map[string]interface{}{"crash": true})
	if !errors.Is(err, ErrWorkerCrashed) {
		t.Fatalf("Expected ErrWorkerCrashed, got value=%v err=%v", v, err)
	}
	if v == "fallback" {
		t.Error("A crash must never be masked by the default value")
	}

	// The slot was replaced, so the next call runs clean.
	v, err = g.Call(map[string]interface{}{"crash": false})
	if err != nil {
		t.Fatalf("Call after crash failed: %v", err)
	}
	if v != "alive" {
		t.Errorf("Expected %q, got %v", "alive", v)
	}
}

func TestInvalidDeadline(t *testing.T) {
	for _, d := range []time.Duration{0, -time.Second} {
		if _, err := New("echo", d); !errors.Is(err, ErrInvalidDeadline) {
			t.Errorf("deadline %v: expected ErrInvalidDeadline, got %v", d, err)
		}
	}
}

func TestUnregisteredTask(t *testing.T) {
	if _, err := New("no_such_task", time.Second); !errors.Is(err, ErrTaskNotRegistered) {
		t.Errorf("Expected ErrTaskNotRegistered, got %v", err)
	}
}

func TestEagerStart(t *testing.T) {
	g, err := New("echo", time.Second, WithEagerStart())
	if err != nil {
		t.Fatalf("New with eager start failed: %v", err)
	}
	defer g.Close()

	v, err := g.Call(map[string]interface{}{"x": "warm"})
	if err != nil {
		t.Fatalf("Call failed: %v", err)
	}
	if v != "warm" {
		t.Errorf("Expected %q, got %v", "warm", v)
	}
}

func TestConcurrentCallersAreSerialized(t *testing.T) {
	g, err := New("add", 2*time.Second)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer g.Close()

	var wg sync.WaitGroup
	errs := make(chan error, 40)

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(base int) {
			defer wg.Done()
			for j := 0; j < 5; j++ {
				a, b := float64(base), float64(j)
				v, err := g.Call(map[string]interface{}{"a": a, "b": b})
				if err != nil {
					errs <- fmt.Errorf("call (%v,%v) failed: %w", a, b, err)
					return
				}
				if v != a+b {
					errs <- fmt.Errorf("call (%v,%v): expected %v, got %v", a, b, a+b, v)
					return
				}
			}
		}(i)
	}

	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}

func TestCallAfterClose(t *testing.T) {
	g, err := New("echo", time.Second)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if _, err := g.Call(map[string]interface{}{"x": 1}); err != nil {
		t.Fatalf("Call failed: %v", err)
	}

	if err := g.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := g.Close(); err != nil {
		t.Fatalf("Second Close failed: %v", err)
	}

	if _, err := g.Call(map[string]interface{}{"x": 2}); err == nil {
		t.Error("Expected an error calling a closed guard")
	}
}
