package runtime

import (
	"sync"
	"time"
)

// Envelope is one inbound message: the payload lives in a standalone
// fragment heap owned by the envelope, so a sender never writes into the
// receiver's heap from its own thread. The receiver adopts the fragment by
// copying it onto its heap at dequeue time.
type Envelope struct {
	frag       *Heap
	root       Ref
	Sender     PID
	EnqueuedAt time.Time
}

// Mailbox is a lock-guarded FIFO of envelopes. Any thread may enqueue; only
// the owning process dequeues.
type Mailbox struct {
	mu      sync.Mutex
	entries []Envelope
	head    int

	enqueued uint64
	dequeued uint64
}

func newMailbox() *Mailbox {
	return &Mailbox{}
}

func (m *Mailbox) push(env Envelope) {
	m.mu.Lock()
	m.entries = append(m.entries, env)
	m.enqueued++
	m.mu.Unlock()
}

func (m *Mailbox) pop() (Envelope, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.head >= len(m.entries) {
		return Envelope{}, false
	}
	env := m.entries[m.head]
	m.entries[m.head] = Envelope{}
	m.head++
	m.dequeued++
	// Reclaim the drained prefix once it dominates the backing array.
	if m.head > 32 && m.head*2 >= len(m.entries) {
		m.entries = append(m.entries[:0], m.entries[m.head:]...)
		m.head = 0
	}
	return env, true
}

// Len returns the number of pending envelopes.
func (m *Mailbox) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries) - m.head
}

// drain discards all pending envelopes at process teardown.
func (m *Mailbox) drain() {
	m.mu.Lock()
	m.entries = nil
	m.head = 0
	m.mu.Unlock()
}

// adopt copies an envelope's payload onto the owner heap. Called only by the
// thread currently executing the owning process.
func adopt(owner *Heap, env Envelope) (Ref, error) {
	return CopyTerm(owner, env.frag, env.root)
}
