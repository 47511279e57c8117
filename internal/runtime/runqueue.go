package runtime

import (
	"sync"
	"sync/atomic"
)

// Priority levels. 0 is the most urgent.
type Priority int

const (
	PriorityMax    Priority = 0
	PriorityHigh   Priority = 1
	PriorityNormal Priority = 2
	PriorityLow    Priority = 3

	numPriorities = 4
)

var priorityNames = map[Priority]string{
	PriorityMax:    "max",
	PriorityHigh:   "high",
	PriorityNormal: "normal",
	PriorityLow:    "low",
}

// String returns a string representation of the priority.
func (p Priority) String() string {
	if name, ok := priorityNames[p]; ok {
		return name
	}
	return "unknown"
}

// procList is an intrusive doubly-linked list of processes with O(1)
// operations at both ends. Linkage fields live on the Proc and are guarded
// by the owning run queue's lock.
type procList struct {
	head *Proc
	tail *Proc
	n    int
}

func (l *procList) pushTail(p *Proc) {
	p.prev = l.tail
	p.next = nil
	if l.tail != nil {
		l.tail.next = p
	} else {
		l.head = p
	}
	l.tail = p
	l.n++
}

func (l *procList) remove(p *Proc) {
	if p.prev != nil {
		p.prev.next = p.next
	} else {
		l.head = p.next
	}
	if p.next != nil {
		p.next.prev = p.prev
	} else {
		l.tail = p.prev
	}
	p.prev, p.next = nil, nil
	l.n--
}

// runQueue holds four priority-ordered FIFOs of runnable processes. One per
// scheduler. A process present here is Runnable; removal and the transition
// to Running happen together under the queue lock plus the process lock.
type runQueue struct {
	mu    sync.Mutex
	tiers [numPriorities]procList
	size  int32 // atomic, read for stats without the lock
}

// push enqueues p at the tail of its priority tier. The caller must hold
// p.mu and have already marked p Runnable.
func (q *runQueue) push(p *Proc) {
	q.mu.Lock()
	q.tiers[p.prio].pushTail(p)
	p.queued = true
	atomic.AddInt32(&q.size, 1)
	q.mu.Unlock()
}

// popRunnable removes the head of the highest non-empty tier and marks it
// Running, owned by sched. Strict priority: tier 0 always drains first.
func (q *runQueue) popRunnable(sched *Scheduler) *Proc {
	q.mu.Lock()
	for tier := 0; tier < numPriorities; tier++ {
		p := q.tiers[tier].head
		if p == nil {
			continue
		}
		q.tiers[tier].remove(p)
		p.queued = false
		atomic.AddInt32(&q.size, -1)
		p.mu.Lock()
		p.state = StateRunning
		p.sched = sched
		p.mu.Unlock()
		q.mu.Unlock()
		return p
	}
	q.mu.Unlock()
	return nil
}

// stealInto removes one process for a thief scheduler: the tail (oldest
// enqueued end is the head; the tail preserves rough FIFO order for the
// victim) of the lowest-priority tier holding more than one entry, so the
// victim always keeps at least one runnable process. Ownership moves to the
// thief under the process lock before the queue lock is released.
func (q *runQueue) stealInto(thief *Scheduler) *Proc {
	q.mu.Lock()
	for tier := numPriorities - 1; tier >= 0; tier-- {
		if q.tiers[tier].n < 2 {
			continue
		}
		p := q.tiers[tier].tail
		q.tiers[tier].remove(p)
		p.queued = false
		atomic.AddInt32(&q.size, -1)
		p.mu.Lock()
		p.state = StateRunning
		p.sched = thief
		p.mu.Unlock()
		q.mu.Unlock()
		return p
	}
	q.mu.Unlock()
	return nil
}

// depth reports the total number of queued processes.
func (q *runQueue) depth() int {
	return int(atomic.LoadInt32(&q.size))
}

// depths reports per-tier queue lengths.
func (q *runQueue) depths() [numPriorities]int {
	q.mu.Lock()
	defer q.mu.Unlock()
	var out [numPriorities]int
	for i := range q.tiers {
		out[i] = q.tiers[i].n
	}
	return out
}
