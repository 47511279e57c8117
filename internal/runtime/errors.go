package runtime

import "errors"

// Sentinel errors reported at the public boundary.
var (
	// ErrNoSuchProcess is reported when a send targets an unknown or
	// already-exited PID. Sends to dead processes are never silently
	// dropped.
	ErrNoSuchProcess = errors.New("no such process")

	// ErrHeapExhausted is reported when a heap cannot grow within its
	// configured ceiling. It is fatal to the affected process.
	ErrHeapExhausted = errors.New("heap exhausted")

	// ErrNotRunning is reported for operations on a stopped swarm.
	ErrNotRunning = errors.New("swarm is not running")

	// ErrAlreadyRunning is reported by Start on a running swarm.
	ErrAlreadyRunning = errors.New("swarm is already running")

	// ErrBadScheduler is reported when a spawn names a scheduler index
	// outside the configured pool.
	ErrBadScheduler = errors.New("scheduler index out of range")

	// ErrBadPriority is reported for priorities outside 0..3.
	ErrBadPriority = errors.New("priority out of range")

	// ErrWaitTimeout is reported by Wait when the process has not exited
	// within the bound.
	ErrWaitTimeout = errors.New("timed out waiting for process exit")
)
