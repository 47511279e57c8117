package runtime

import "testing"

func newQueuedProc(pid PID, prio Priority) *Proc {
	return &Proc{pid: pid, prio: prio, state: StateRunnable}
}

func TestRunQueueStrictPriority(t *testing.T) {
	q := &runQueue{}
	sched := &Scheduler{id: 0}

	q.push(newQueuedProc(1, PriorityNormal))
	q.push(newQueuedProc(2, PriorityLow))
	q.push(newQueuedProc(3, PriorityMax))
	q.push(newQueuedProc(4, PriorityNormal))
	q.push(newQueuedProc(5, PriorityHigh))

	// Highest tier first, FIFO within a tier.
	want := []PID{3, 5, 1, 4, 2}
	for i, w := range want {
		p := q.popRunnable(sched)
		if p == nil {
			t.Fatalf("pop %d: queue empty", i)
		}
		if p.pid != w {
			t.Fatalf("pop %d: got pid %d, want %d", i, p.pid, w)
		}
		if p.state != StateRunning || p.sched != sched {
			t.Fatalf("pop %d: state %s, sched %v", i, p.state, p.sched)
		}
	}
	if q.popRunnable(sched) != nil {
		t.Fatal("queue should be empty")
	}
	if q.depth() != 0 {
		t.Fatalf("depth = %d", q.depth())
	}
}

func TestStealTakesLowestTierTail(t *testing.T) {
	q := &runQueue{}
	thief := &Scheduler{id: 1}

	q.push(newQueuedProc(1, PriorityMax))
	q.push(newQueuedProc(2, PriorityMax))
	q.push(newQueuedProc(3, PriorityLow))
	q.push(newQueuedProc(4, PriorityLow))
	q.push(newQueuedProc(5, PriorityLow))

	// Lowest-priority tier with more than one entry, taken from the tail.
	p := q.stealInto(thief)
	if p == nil || p.pid != 5 {
		t.Fatalf("stole %v, want pid 5", p)
	}
	if p.state != StateRunning || p.sched != thief {
		t.Fatalf("ownership not transferred: state %s, sched %v", p.state, p.sched)
	}
	if q.depth() != 4 {
		t.Fatalf("depth = %d", q.depth())
	}
}

func TestStealLeavesVictimOne(t *testing.T) {
	q := &runQueue{}
	thief := &Scheduler{id: 1}

	q.push(newQueuedProc(1, PriorityNormal))
	if p := q.stealInto(thief); p != nil {
		t.Fatalf("stole pid %d from a single-entry tier", p.pid)
	}

	q.push(newQueuedProc(2, PriorityNormal))
	if p := q.stealInto(thief); p == nil || p.pid != 2 {
		t.Fatalf("expected to steal pid 2, got %v", p)
	}
	// One entry left; stealing again must fail.
	if p := q.stealInto(thief); p != nil {
		t.Fatalf("stole the victim's last process: pid %d", p.pid)
	}
}

func TestRunQueueDepths(t *testing.T) {
	q := &runQueue{}
	q.push(newQueuedProc(1, PriorityMax))
	q.push(newQueuedProc(2, PriorityLow))
	q.push(newQueuedProc(3, PriorityLow))

	d := q.depths()
	if d[PriorityMax] != 1 || d[PriorityHigh] != 0 || d[PriorityNormal] != 0 || d[PriorityLow] != 2 {
		t.Fatalf("depths = %v", d)
	}
}

func TestStatsRunnableByPriority(t *testing.T) {
	sw, err := New(Config{Schedulers: 2})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	// Not started; queues can be populated directly.
	sw.scheds[0].rq.push(newQueuedProc(1, PriorityMax))
	sw.scheds[0].rq.push(newQueuedProc(2, PriorityLow))
	sw.scheds[1].rq.push(newQueuedProc(3, PriorityLow))

	st := sw.Stats()
	if st.RunnableByPriority[PriorityMax] != 1 || st.RunnableByPriority[PriorityLow] != 2 {
		t.Fatalf("runnable by priority = %v", st.RunnableByPriority)
	}
	if st.SchedulerQueueDepths[0] != 2 || st.SchedulerQueueDepths[1] != 1 {
		t.Fatalf("queue depths = %v", st.SchedulerQueueDepths)
	}
}
