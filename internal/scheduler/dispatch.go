package scheduler

import (
	"github.com/sisoputnfrba/go-procsched/internal/procmodel"
)

// DispatchToCPU is called by a CPU worker once per tick, after the first
// barrier. It returns the process already assigned to this core (sticky —
// short-term dispatch assigned it during the previous tick's dispatch phase),
// or nil if the core has nothing to run.
func (s *Scheduler) DispatchToCPU(core int) *procmodel.Process {
	s.shortTermMu.Lock()
	defer s.shortTermMu.Unlock()
	return s.running[core]
}

// ReleaseCPUInterrupt is the single choke point every CPU worker reports a
// non-Running outcome through. It decides what happens next to the
// process based on the outcome's kind, exactly the dispatch table spec.md
// §4.6 describes.
func (s *Scheduler) ReleaseCPUInterrupt(core int, p *procmodel.Process, outcome procmodel.Outcome) {
	tick := s.CurrentTick()

	s.shortTermMu.Lock()
	if s.running[core] == p {
		s.running[core] = nil
		s.quantumRemaining[core] = 0
	}
	s.shortTermMu.Unlock()

	switch outcome.Kind {
	case procmodel.OutcomeFinished:
		s.finishProcess(p, tick)

	case procmodel.OutcomeBlockedPageFault:
		p.MarkBlockedOnPage(outcome.Page)
		s.blockedQueue.Send(p)

	case procmodel.OutcomeWaiting:
		s.sleepQueue.Push(p, tick+uint64(outcome.Remaining))

	case procmodel.OutcomeReady:
		s.enqueueReady(p)

	case procmodel.OutcomeRunning:
		// unreachable: Worker only calls this for outcomes that yielded.
	}
}

// enqueueReady marks p ready and pushes it onto the ready set, guarding
// against double-enqueue of a process that's already queued or running.
func (s *Scheduler) enqueueReady(p *procmodel.Process) {
	s.shortTermMu.Lock()
	running := s.isRunningLocked(p.ID())
	s.shortTermMu.Unlock()
	if running || s.ready.Contains(p.ID()) {
		return
	}
	p.MarkReady()
	s.ready.Send(p)
}

// dispatchCoreLocked fills an empty running slot from the ready set,
// skipping any candidate that (defensively) is already assigned to another
// core. Callers must hold shortTermMu.
func (s *Scheduler) dispatchCoreLocked(core int, tick uint64) {
	if s.running[core] != nil {
		return
	}
	for {
		candidate := s.ready.ReceiveNext()
		if candidate == nil {
			return
		}
		if s.isRunningLocked(candidate.ID()) {
			continue
		}
		s.running[core] = candidate
		s.quantumRemaining[core] = s.cfg.QuantumCycles
		candidate.MarkRunning(core, tick)
		return
	}
}

func (s *Scheduler) isRunningLocked(pid uint32) bool {
	for _, p := range s.running {
		if p != nil && p.ID() == pid {
			return true
		}
	}
	return false
}

func (s *Scheduler) finishProcess(p *procmodel.Process, tick uint64) {
	p.MarkFinished(tick)
	s.mm.FreeProcessMemory(p.ID())

	if p.MarkFinishedLogged() {
		s.finished.Insert(p)
	}

	s.processesMu.Lock()
	delete(s.processes, p.ID())
	s.processesMu.Unlock()
	s.logger.Info("process finished", "pid", p.ID(), "name", p.Name(), "tick", tick)
}
