package runtime

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"
)

// processTable maps PIDs to live processes for lookup by senders. Exited
// processes are removed when the scheduler reaps them; PIDs are never
// reused, so a missing entry means the process exited (or never existed).
type processTable struct {
	mu    sync.RWMutex
	procs map[PID]*Proc
}

func newProcessTable() *processTable {
	return &processTable{procs: make(map[PID]*Proc)}
}

func (t *processTable) insert(p *Proc) {
	t.mu.Lock()
	t.procs[p.pid] = p
	t.mu.Unlock()
}

func (t *processTable) lookup(pid PID) (*Proc, bool) {
	t.mu.RLock()
	p, ok := t.procs[pid]
	t.mu.RUnlock()
	return p, ok
}

func (t *processTable) remove(pid PID) {
	t.mu.Lock()
	delete(t.procs, pid)
	t.mu.Unlock()
}

func (t *processTable) snapshot() []*Proc {
	t.mu.RLock()
	out := make([]*Proc, 0, len(t.procs))
	for _, p := range t.procs {
		out = append(out, p)
	}
	t.mu.RUnlock()
	return out
}

// Swarm is the top-level runtime handle: the scheduler pool, the process
// table, the atom table, and the global counters.
type Swarm struct {
	cfg    Config
	logger *zap.Logger
	clk    clock.Clock
	atoms  *AtomTable

	table  *processTable
	scheds []*Scheduler

	nextPID  uint64 // atomic; monotonically increasing, never reused
	spawnSeq uint64 // atomic; round-robin scheduler assignment

	mu      sync.Mutex
	running bool
	closed  bool
	stop    chan struct{}
	wg      sync.WaitGroup

	maxHeapSlots int

	// Cross-thread counters; atomic increments, approximate reads.
	ctxSwitches uint64
	reductions  uint64
	sends       uint64
	spawns      uint64
	steals      uint64
	collections uint64
	liveProcs   int64
}

// Stats is a point-in-time snapshot of swarm counters. Values are
// approximate: counters are read without stopping the schedulers.
type Stats struct {
	SchedulerQueueDepths []int
	RunnableByPriority   [numPriorities]int
	ContextSwitches      uint64
	Reductions           uint64
	Sends                uint64
	Spawns               uint64
	Steals               uint64
	Collections          uint64
	LiveProcesses        int64
}

// New creates a swarm from cfg. Configuration errors are rejected here,
// before any state is created.
func New(cfg Config) (*Swarm, error) {
	cfg, err := cfg.normalize()
	if err != nil {
		return nil, err
	}

	s := &Swarm{
		cfg:    cfg,
		logger: cfg.Logger,
		clk:    cfg.Clock,
		atoms:  NewAtomTable(),
		table:  newProcessTable(),
	}

	s.maxHeapSlots = cfg.MaxHeapSlots
	if s.maxHeapSlots == 0 {
		if sysMem := systemMemoryBytes(); sysMem > 0 {
			// Cap any single heap at a quarter of physical memory.
			s.maxHeapSlots = int(sysMem / 4 / slotSizeEstimate)
		}
	}

	s.scheds = make([]*Scheduler, cfg.Schedulers)
	for i := range s.scheds {
		s.scheds[i] = newScheduler(i, s)
	}
	return s, nil
}

// Start launches the scheduler pool.
func (s *Swarm) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrNotRunning
	}
	if s.running {
		return ErrAlreadyRunning
	}
	s.stop = make(chan struct{})
	for _, sched := range s.scheds {
		s.wg.Add(1)
		go sched.loop()
	}
	s.running = true
	workersGauge.Set(float64(len(s.scheds)))
	s.logger.Info("swarm started", zap.Int("schedulers", len(s.scheds)))
	return nil
}

// Close stops all schedulers, joins them, aborts parked process goroutines,
// and releases swarm-owned memory. It is idempotent.
func (s *Swarm) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		s.closed = true
		return nil
	}
	close(s.stop)
	for _, sched := range s.scheds {
		sched.signal()
	}
	s.wg.Wait()

	// Every started, non-exited process goroutine is now parked in its
	// switch-out; release each so it can unwind.
	for _, p := range s.table.snapshot() {
		p.mu.Lock()
		started, state := p.started, p.state
		p.killed = true
		p.mu.Unlock()
		if started && state != StateExited {
			p.resume <- struct{}{}
		}
		s.table.remove(p.pid)
	}

	s.running = false
	s.closed = true
	workersGauge.Set(0)
	s.logger.Info("swarm stopped")
	return nil
}

// SpawnOption tunes one spawn.
type SpawnOption func(*spawnOpts)

type spawnOpts struct {
	prio   Priority
	sched  int
	parent PID
}

// WithPriority spawns the process at prio (0=max .. 3=low).
func WithPriority(prio Priority) SpawnOption {
	return func(o *spawnOpts) { o.prio = prio }
}

// WithScheduler pins the initial scheduler assignment. Work stealing may
// move the process later.
func WithScheduler(idx int) SpawnOption {
	return func(o *spawnOpts) { o.sched = idx }
}

// Spawn creates a process running body with the given opaque argument and
// enqueues it immediately.
func (s *Swarm) Spawn(body Body, arg any, opts ...SpawnOption) (PID, error) {
	return s.spawn(body, arg, 0, opts)
}

// Spawn creates a child process of the executing process.
func (pc *PC) Spawn(body Body, arg any, opts ...SpawnOption) (PID, error) {
	pc.Reduce(10)
	return pc.s.spawn(body, arg, pc.p.pid, opts)
}

func (s *Swarm) spawn(body Body, arg any, parent PID, opts []SpawnOption) (PID, error) {
	o := spawnOpts{prio: PriorityNormal, sched: -1, parent: parent}
	for _, opt := range opts {
		opt(&o)
	}
	if o.prio < PriorityMax || o.prio > PriorityLow {
		return 0, fmt.Errorf("%w: %d", ErrBadPriority, o.prio)
	}
	if o.sched != -1 && (o.sched < 0 || o.sched >= len(s.scheds)) {
		return 0, fmt.Errorf("%w: %d of %d", ErrBadScheduler, o.sched, len(s.scheds))
	}
	s.mu.Lock()
	running := s.running
	s.mu.Unlock()
	if !running {
		return 0, ErrNotRunning
	}

	pid := PID(atomic.AddUint64(&s.nextPID, 1))
	heap := NewHeap(s.cfg.MinHeapSlots)
	heap.maxSlots = s.maxHeapSlots

	p := &Proc{
		pid:       pid,
		prio:      o.prio,
		parent:    o.parent,
		state:     StateRunnable,
		heap:      heap,
		mailbox:   newMailbox(),
		body:      body,
		arg:       arg,
		resume:    make(chan struct{}),
		suspend:   make(chan suspendReason),
		done:      make(chan struct{}),
		spawnedAt: s.clk.Now(),
	}
	heap.collect = s.collectHook(p, heap)

	var target *Scheduler
	if o.sched >= 0 {
		target = s.scheds[o.sched]
	} else {
		target = s.scheds[int(atomic.AddUint64(&s.spawnSeq, 1))%len(s.scheds)]
	}

	s.table.insert(p)
	p.mu.Lock()
	p.sched = target
	target.rq.push(p)
	p.mu.Unlock()
	target.signal()

	atomic.AddUint64(&s.spawns, 1)
	atomic.AddInt64(&s.liveProcs, 1)
	spawnsTotal.Inc()
	liveProcessesGauge.Inc()
	s.logger.Debug("spawned process",
		zap.Uint64("pid", uint64(pid)),
		zap.Stringer("priority", o.prio),
		zap.Int("scheduler", target.id))
	return pid, nil
}

// collectHook wires a process heap to the collector, flipping the process
// through Garbing for the duration of the cycle.
func (s *Swarm) collectHook(p *Proc, h *Heap) func() {
	return func() {
		p.mu.Lock()
		p.state = StateGarbing
		p.mu.Unlock()

		before := h.Used()
		start := time.Now()
		h.Collect()

		atomic.AddUint64(&s.collections, 1)
		collectionsTotal.Inc()
		s.logger.Debug("collected heap",
			zap.Uint64("pid", uint64(p.pid)),
			zap.Int("live", h.Used()),
			zap.Int("before", before),
			zap.Duration("took", time.Since(start)))

		p.mu.Lock()
		p.state = StateRunning
		p.mu.Unlock()
	}
}

// Send encodes a Go-side value (see Encode) and delivers it to pid. Used by
// callers outside any process; processes send through their PC.
func (s *Swarm) Send(to PID, v any) error {
	s.mu.Lock()
	running := s.running
	s.mu.Unlock()
	if !running {
		return ErrNotRunning
	}
	frag := NewHeap(MinHeapSlots)
	root, err := Encode(frag, s.atoms, v)
	if err != nil {
		return err
	}
	return s.deliver(to, 0, frag, root)
}

// deliver appends an envelope to the target's mailbox and wakes the target
// if it is parked waiting. The payload fragment becomes mailbox-owned.
func (s *Swarm) deliver(to PID, from PID, frag *Heap, root Ref) error {
	p, ok := s.table.lookup(to)
	if !ok {
		return fmt.Errorf("%w: %d", ErrNoSuchProcess, to)
	}
	env := Envelope{frag: frag, root: root, Sender: from, EnqueuedAt: s.clk.Now()}

	p.mu.Lock()
	switch p.state {
	case StateExiting, StateExited:
		p.mu.Unlock()
		return fmt.Errorf("%w: %d", ErrNoSuchProcess, to)
	case StateWaiting:
		p.mailbox.push(env)
		p.state = StateRunnable
		target := p.sched
		target.rq.push(p)
		p.mu.Unlock()
		target.signal()
	case StateRunning, StateGarbing:
		p.mailbox.push(env)
		// The target may be about to park on an empty mailbox; make sure
		// the scheduler requeues it instead.
		p.wakePending = true
		p.mu.Unlock()
	default:
		p.mailbox.push(env)
		p.mu.Unlock()
	}

	atomic.AddUint64(&s.sends, 1)
	sendsTotal.Inc()
	return nil
}

// wake moves a Waiting process back to Runnable (receive timeout expiry).
func (s *Swarm) wake(p *Proc) {
	p.mu.Lock()
	switch p.state {
	case StateWaiting:
		p.state = StateRunnable
		target := p.sched
		target.rq.push(p)
		p.mu.Unlock()
		target.signal()
	case StateRunning, StateGarbing:
		p.wakePending = true
		p.mu.Unlock()
	default:
		p.mu.Unlock()
	}
}

// reap removes an exited process from the table and publishes its exit.
func (s *Swarm) reap(p *Proc) {
	s.table.remove(p.pid)
	atomic.AddInt64(&s.liveProcs, -1)
	liveProcessesGauge.Dec()
	close(p.done)
}

// Wait blocks until pid has exited, bounded by timeout (0 = no bound).
// A PID that is no longer in the table has already exited.
func (s *Swarm) Wait(pid PID, timeout time.Duration) error {
	p, ok := s.table.lookup(pid)
	if !ok {
		return nil
	}
	if timeout == 0 {
		<-p.done
		return nil
	}
	select {
	case <-p.done:
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("%w: pid %d", ErrWaitTimeout, pid)
	}
}

// ProcessState reports the current state of pid. Reaped processes report
// Exited with ok=false.
func (s *Swarm) ProcessState(pid PID) (State, bool) {
	p, ok := s.table.lookup(pid)
	if !ok {
		return StateExited, false
	}
	p.mu.Lock()
	st := p.state
	p.mu.Unlock()
	return st, true
}

// MailboxLen reports the number of pending messages for pid.
func (s *Swarm) MailboxLen(pid PID) int {
	p, ok := s.table.lookup(pid)
	if !ok {
		return 0
	}
	return p.mailbox.Len()
}

// Schedulers returns the size of the scheduler pool.
func (s *Swarm) Schedulers() int { return len(s.scheds) }

// Atoms returns the swarm's atom table.
func (s *Swarm) Atoms() *AtomTable { return s.atoms }

// Clock returns the swarm clock.
func (s *Swarm) Clock() clock.Clock { return s.clk }

// Stats returns a snapshot of swarm counters and queue depths.
func (s *Swarm) Stats() Stats {
	depths := make([]int, len(s.scheds))
	var byPrio [numPriorities]int
	for i, sched := range s.scheds {
		depths[i] = sched.QueueDepth()
		tiers := sched.rq.depths()
		for tier, n := range tiers {
			byPrio[tier] += n
		}
	}
	return Stats{
		SchedulerQueueDepths: depths,
		RunnableByPriority:   byPrio,
		ContextSwitches:      atomic.LoadUint64(&s.ctxSwitches),
		Reductions:           atomic.LoadUint64(&s.reductions),
		Sends:                atomic.LoadUint64(&s.sends),
		Spawns:               atomic.LoadUint64(&s.spawns),
		Steals:               atomic.LoadUint64(&s.steals),
		Collections:          atomic.LoadUint64(&s.collections),
		LiveProcesses:        atomic.LoadInt64(&s.liveProcs),
	}
}
