package runtime

import (
	"fmt"
	stdrt "runtime"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// State is the process lifecycle state.
type State int32

const (
	StateRunnable State = iota // In a run queue, ready to execute
	StateRunning               // Currently executing on some scheduler
	StateWaiting               // Blocked on an empty mailbox
	StateGarbing               // Collection in progress
	StateExiting               // Tearing down
	StateExited                // Terminal
)

var stateNames = map[State]string{
	StateRunnable: "runnable",
	StateRunning:  "running",
	StateWaiting:  "waiting",
	StateGarbing:  "garbing",
	StateExiting:  "exiting",
	StateExited:   "exited",
}

// String returns a string representation of the state.
func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("UNKNOWN(%d)", int(s))
}

// Body is a process entry callable. It runs on the process's own goroutine
// and yields control only through the PC's suspension points (Yield, a
// blocking Receive, budget exhaustion inside a runtime operation, or
// returning, which exits the process).
type Body func(pc *PC)

// suspendReason is what a process reports when handing control back.
type suspendReason int8

const (
	suspendYield   suspendReason = iota // Explicit yield, still runnable
	suspendPreempt                      // Reduction budget exhausted
	suspendWait                         // Blocked on an empty mailbox
	suspendExit                         // Body returned or failed
)

// Proc is a process control block: a PID, a state, a heap, a mailbox, a
// reduction budget, and an entry callable. A process is owned by exactly one
// scheduler at a time; ownership moves on steal while the process sits in a
// run queue, never while it runs.
type Proc struct {
	pid    PID
	prio   Priority
	parent PID

	mu          sync.Mutex
	state       State      // Guarded by mu
	sched       *Scheduler // Owning scheduler, guarded by mu
	wakePending bool       // Send arrived while parking, guarded by mu
	killed      bool       // Swarm teardown, aborts the goroutine

	heap    *Heap
	mailbox *Mailbox

	body Body
	arg  any

	budget  int // Remaining reductions, owner thread only
	started bool

	resume  chan struct{}
	suspend chan suspendReason
	done    chan struct{} // Closed when the process is reaped

	// Run-queue linkage, guarded by the owning queue's lock.
	prev, next *Proc
	queued     bool

	exitErr   error
	spawnedAt time.Time
}

// PID returns the process identifier.
func (p *Proc) PID() PID { return p.pid }

// procFatal aborts a process body; the goroutine recovers it and exits the
// process with the carried error.
type procFatal struct{ err error }

// run is the process goroutine. It parks until the scheduler grants it the
// first slice, executes the body to completion, and reports the exit.
func (p *Proc) run(s *Swarm) {
	<-p.resume
	pc := &PC{p: p, s: s}
	func() {
		defer func() {
			if r := recover(); r != nil {
				if f, ok := r.(procFatal); ok {
					p.exitErr = f.err
				} else {
					p.exitErr = fmt.Errorf("process %d panicked: %v", p.pid, r)
				}
			}
		}()
		p.body(pc)
	}()
	p.suspend <- suspendExit
}

// switchOut hands control back to the owning scheduler and blocks until the
// next slice. Called only from the process's own goroutine.
func (p *Proc) switchOut(reason suspendReason) {
	p.suspend <- reason
	<-p.resume
	if p.killed {
		stdrt.Goexit()
	}
}

// PC is the operation surface a body sees: term construction on the
// process's own heap, message passing, yielding, and reduction accounting.
// Bodies that hold refs across allocations must register them in a root
// scope (Heap().PushScope) so collection can rewrite them.
type PC struct {
	p *Proc
	s *Swarm
}

// Self returns the executing process's PID.
func (pc *PC) Self() PID { return pc.p.pid }

// Parent returns the PID of the spawning process, or 0 for top-level spawns.
func (pc *PC) Parent() PID { return pc.p.parent }

// Arg returns the opaque spawn argument.
func (pc *PC) Arg() any { return pc.p.arg }

// Heap returns the process heap.
func (pc *PC) Heap() *Heap { return pc.p.heap }

// Swarm returns the owning swarm.
func (pc *PC) Swarm() *Swarm { return pc.s }

// Reduce consumes n reduction units and yields to the scheduler when the
// slice budget is spent. Every PC operation passes through here, which is
// what makes preemption cooperative but automatic.
func (pc *PC) Reduce(n int) {
	pc.p.budget -= n
	if pc.p.budget <= 0 {
		pc.p.switchOut(suspendPreempt)
	}
}

// Yield voluntarily gives up the rest of the slice; the process is requeued
// at its current priority.
func (pc *PC) Yield() {
	pc.p.switchOut(suspendYield)
}

// Fail terminates the process with err.
func (pc *PC) Fail(err error) {
	panic(procFatal{err: err})
}

// Send deep-copies the term at root (on this process's heap) to the target
// process. After Send returns, the receiver's copy is independent of the
// sender's heap. Sends to unknown or exited PIDs report ErrNoSuchProcess.
func (pc *PC) Send(to PID, root Ref) error {
	frag := NewHeap(MinHeapSlots)
	copied, err := CopyTerm(frag, pc.p.heap, root)
	if err != nil {
		return err
	}
	pc.Reduce(1 + frag.Used())
	return pc.s.deliver(to, pc.p.pid, frag, copied)
}

// SendValue encodes a Go-side value (see Encode) and sends it.
func (pc *PC) SendValue(to PID, v any) error {
	frag := NewHeap(MinHeapSlots)
	root, err := Encode(frag, pc.s.atoms, v)
	if err != nil {
		return err
	}
	pc.Reduce(1 + frag.Used())
	return pc.s.deliver(to, pc.p.pid, frag, root)
}

// Receive dequeues the oldest mailbox entry, copying its payload onto this
// process's heap. A zero timeout waits indefinitely; a positive timeout
// bounds the wait with the swarm clock, measured from call entry. Reports
// ok=false when the timeout elapses with no message.
func (pc *PC) Receive(timeout time.Duration) (Ref, PID, bool) {
	pc.Reduce(1)
	p, s := pc.p, pc.s
	var deadline time.Time
	if timeout > 0 {
		deadline = s.clk.Now().Add(timeout)
	}
	for {
		if env, ok := p.mailbox.pop(); ok {
			root, err := adopt(p.heap, env)
			if err != nil {
				pc.Fail(err)
			}
			pc.Reduce(1)
			return root, env.Sender, true
		}
		var remaining time.Duration
		if timeout > 0 {
			remaining = deadline.Sub(s.clk.Now())
			if remaining <= 0 {
				return NilRef, 0, false
			}
		}
		// Park. A send that lands between the mailbox check and the park
		// marks wakePending, and the scheduler requeues instead of parking.
		var timer *clock.Timer
		if timeout > 0 {
			proc := p
			timer = s.clk.AfterFunc(remaining, func() { s.wake(proc) })
		}
		p.switchOut(suspendWait)
		if timer != nil {
			timer.Stop()
		}
	}
}

// ReceiveValue is Receive with the payload decoded to a Go-side value.
func (pc *PC) ReceiveValue(timeout time.Duration) (any, PID, bool) {
	root, sender, ok := pc.Receive(timeout)
	if !ok {
		return nil, 0, false
	}
	v, err := Decode(pc.p.heap, pc.s.atoms, root)
	if err != nil {
		pc.Fail(err)
	}
	return v, sender, true
}

// Term constructors on the process heap. Heap exhaustion is fatal to the
// process, per the allocation contract.

// Nil allocates the empty list.
func (pc *PC) Nil() Ref { return pc.must(pc.p.heap.MakeNil()) }

// Int allocates an integer term.
func (pc *PC) Int(v int64) Ref { return pc.must(pc.p.heap.MakeInt(v)) }

// Float allocates a float term.
func (pc *PC) Float(v float64) Ref { return pc.must(pc.p.heap.MakeFloat(v)) }

// Atom interns name and allocates an atom term.
func (pc *PC) Atom(name string) Ref {
	return pc.must(pc.p.heap.MakeAtom(pc.s.atoms.Intern(name)))
}

// Pid allocates a pid term.
func (pc *PC) Pid(p PID) Ref { return pc.must(pc.p.heap.MakePid(p)) }

// Binary allocates a binary term holding a copy of b.
func (pc *PC) Binary(b []byte) Ref { return pc.must(pc.p.heap.MakeBinary(b)) }

// Tuple allocates a tuple from refs on the process heap.
func (pc *PC) Tuple(elems ...Ref) Ref { return pc.must(pc.p.heap.MakeTuple(elems)) }

// Cons allocates a list cell from refs on the process heap.
func (pc *PC) Cons(head, tail Ref) Ref { return pc.must(pc.p.heap.MakeCons(head, tail)) }

// Value decodes the term at r to a Go-side value.
func (pc *PC) Value(r Ref) any {
	v, err := Decode(pc.p.heap, pc.s.atoms, r)
	if err != nil {
		pc.Fail(err)
	}
	return v
}

func (pc *PC) must(r Ref, err error) Ref {
	if err != nil {
		pc.Fail(err)
	}
	pc.Reduce(1)
	return r
}
