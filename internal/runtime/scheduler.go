package runtime

import (
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Scheduler is one worker bound to its own goroutine, owning one run queue.
// It repeatedly dequeues a process, grants it a fresh reduction budget, runs
// it to its next suspension point, and requeues, parks, or tears it down.
// Idle schedulers steal from peers, then sleep briefly and retry.
type Scheduler struct {
	id     int
	sw     *Swarm
	rq     *runQueue
	notify chan struct{}
	logger *zap.Logger
}

func newScheduler(id int, sw *Swarm) *Scheduler {
	return &Scheduler{
		id:     id,
		sw:     sw,
		rq:     &runQueue{},
		notify: make(chan struct{}, 1),
		logger: sw.logger.With(zap.Int("scheduler", id)),
	}
}

// signal nudges an idle scheduler without blocking the caller.
func (s *Scheduler) signal() {
	select {
	case s.notify <- struct{}{}:
	default:
	}
}

func (s *Scheduler) loop() {
	defer s.sw.wg.Done()
	s.logger.Debug("scheduler started")
	for {
		select {
		case <-s.sw.stop:
			s.logger.Debug("scheduler stopped")
			return
		default:
		}

		p := s.rq.popRunnable(s)
		if p == nil {
			p = s.steal()
		}
		if p == nil {
			select {
			case <-s.sw.stop:
				s.logger.Debug("scheduler stopped")
				return
			case <-s.notify:
			case <-time.After(s.sw.cfg.IdleSleep):
			}
			continue
		}
		s.execute(p)
	}
}

// execute runs one slice of p, which is already marked Running and owned by
// this scheduler, then applies the resulting state transition. Counters are
// atomic increments, never taken under the run-queue lock.
func (s *Scheduler) execute(p *Proc) {
	p.budget = s.sw.cfg.ReductionBudget
	if !p.started {
		p.started = true
		go p.run(s.sw)
	}

	atomic.AddUint64(&s.sw.ctxSwitches, 1)
	contextSwitchesTotal.Inc()

	p.resume <- struct{}{}
	reason := <-p.suspend

	consumed := s.sw.cfg.ReductionBudget - p.budget
	if consumed > 0 {
		atomic.AddUint64(&s.sw.reductions, uint64(consumed))
		reductionsTotal.Add(float64(consumed))
	}

	switch reason {
	case suspendExit:
		s.retire(p)
	case suspendYield, suspendPreempt:
		p.mu.Lock()
		p.state = StateRunnable
		p.wakePending = false
		s.rq.push(p)
		p.mu.Unlock()
	case suspendWait:
		p.mu.Lock()
		if p.wakePending {
			// A send landed while the process was parking; requeue instead.
			p.wakePending = false
			p.state = StateRunnable
			s.rq.push(p)
		} else {
			p.state = StateWaiting
		}
		p.mu.Unlock()
	}
}

// retire tears down an exited process: heap and mailbox are released, the
// process is unlinked from its scheduler and removed from the table.
func (s *Scheduler) retire(p *Proc) {
	p.mu.Lock()
	p.state = StateExiting
	p.sched = nil
	p.mu.Unlock()

	if p.exitErr != nil {
		s.logger.Error("process exited with error",
			zap.Uint64("pid", uint64(p.pid)), zap.Error(p.exitErr))
	}
	s.logger.Debug("retired process",
		zap.Uint64("pid", uint64(p.pid)),
		zap.Duration("lifetime", s.sw.clk.Now().Sub(p.spawnedAt)))

	p.mailbox.drain()
	p.heap = nil

	p.mu.Lock()
	p.state = StateExited
	p.mu.Unlock()

	s.sw.reap(p)
}

// steal scans peer schedulers for work. Best-effort: it stops on the first
// success and may miss work that technically exists.
func (s *Scheduler) steal() *Proc {
	peers := s.sw.scheds
	n := len(peers)
	for i := 1; i < n; i++ {
		victim := peers[(s.id+i)%n]
		if victim == s {
			continue
		}
		if p := victim.rq.stealInto(s); p != nil {
			atomic.AddUint64(&s.sw.steals, 1)
			stealsTotal.Inc()
			s.logger.Debug("stole process",
				zap.Uint64("pid", uint64(p.pid)), zap.Int("victim", victim.id))
			return p
		}
	}
	return nil
}

// QueueDepth reports the number of runnable processes queued here.
func (s *Scheduler) QueueDepth() int { return s.rq.depth() }
