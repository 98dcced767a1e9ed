package scheduler

import (
	"context"
	"time"

	"github.com/sisoputnfrba/go-procsched/internal/policy"
	"github.com/sisoputnfrba/go-procsched/internal/procmodel"
)

func (s *Scheduler) tickLoop(ctx context.Context) {
	for {
		for s.IsPaused() {
			select {
			case <-ctx.Done():
				s.dropOutOfBarriers()
				return
			case <-time.After(time.Millisecond):
			}
		}
		if ctx.Err() != nil {
			s.dropOutOfBarriers()
			return
		}

		s.advanceTick()

		s.b1.Wait()
		s.b2.Wait()

		tick := s.CurrentTick()
		s.timerCheck(tick)
		s.pageFaultService(tick)
		s.preemptionCheck(tick)
		s.longTermAdmission(tick)
		s.shortTermDispatch(tick)

		s.b3.Wait()

		s.housekeeping(tick)

		if d := s.TickDelay(); d > 0 {
			time.Sleep(d)
		}
	}
}

func (s *Scheduler) advanceTick() {
	s.tickMu.Lock()
	s.tick++
	s.tickMu.Unlock()
}

func (s *Scheduler) dropOutOfBarriers() {
	s.b1.ArriveAndDrop()
	s.b2.ArriveAndDrop()
	s.b3.ArriveAndDrop()
}

// timerCheck moves every process whose sleep has expired from the sleep
// queue back onto the ready set.
func (s *Scheduler) timerCheck(tick uint64) {
	for _, p := range s.sleepQueue.DrainDue(tick) {
		s.enqueueReady(p)
	}
}

// pageFaultService drains the blocked queue, resolving each process's
// faulting page through the memory manager and returning it to the ready
// set once resolved. A resolution that evicts another process's page
// invalidates that process's page-table entry in turn.
func (s *Scheduler) pageFaultService(tick uint64) {
	for {
		p, ok := s.blockedQueue.TryReceive()
		if !ok {
			return
		}
		page := p.GetFaultingPage()
		onDisk := p.IsPageOnDisk(page)
		frameIdx, evicted, err := s.mm.RequestPage(p.ID(), page, onDisk)
		if err != nil {
			s.logger.Error("page fault resolution failed", "pid", p.ID(), "page", page, "tick", tick, "err", err)
			s.finishProcess(p, tick)
			continue
		}
		p.UpdatePageTable(page, uint64(frameIdx))
		if evicted != nil {
			if victim, ok := s.GetProcess(evicted.PID); ok {
				victim.InvalidatePage(evicted.Page)
			}
		}
		s.enqueueReady(p)
	}
}

// preemptionCheck implements round-robin quantum expiry: a core whose
// running process is still assigned after the work phase (meaning it
// neither yielded nor faulted on its own) loses its quantum tick; once
// exhausted the process is preempted back to the ready set.
func (s *Scheduler) preemptionCheck(tick uint64) {
	if s.ready.Policy() != policy.RR {
		return
	}

	s.shortTermMu.Lock()
	var preempted []*procmodel.Process
	for core, p := range s.running {
		if p == nil {
			continue
		}
		if s.quantumRemaining[core] > 0 {
			s.quantumRemaining[core]--
		}
		if s.quantumRemaining[core] == 0 {
			preempted = append(preempted, p)
			s.running[core] = nil
		}
	}
	s.shortTermMu.Unlock()

	for _, p := range preempted {
		s.enqueueReady(p)
	}
}

// longTermAdmission drains the job queue, sizing each process's page table
// against its own requested budget or the scheduler's configured default,
// then releases it to the ready set — or, under eager paging, refuses
// admission outright if its demand can never fit the frame pool.
func (s *Scheduler) longTermAdmission(tick uint64) {
	for {
		p, ok := s.jobQueue.TryReceive()
		if !ok {
			return
		}

		budget := p.MemoryBudget()
		if budget == 0 {
			budget = s.cfg.MinMemPerProc
		}
		p.InitializeMemory(budget, s.cfg.MemPerFrame)

		if s.cfg.EagerPaging {
			if int(p.NumPages()) > s.mm.TotalFrames() {
				s.logger.Error("admission refused: memory demand exceeds pool", "pid", p.ID(), "tick", tick, "pages", p.NumPages())
				s.finishProcess(p, tick)
				continue
			}
			for page := uint64(0); page < p.NumPages(); page++ {
				frameIdx, evicted, err := s.mm.RequestPage(p.ID(), page, false)
				if err != nil {
					s.logger.Error("eager allocation failed", "pid", p.ID(), "page", page, "err", err)
					s.finishProcess(p, tick)
					break
				}
				p.UpdatePageTable(page, uint64(frameIdx))
				if evicted != nil {
					if victim, ok := s.GetProcess(evicted.PID); ok {
						victim.InvalidatePage(evicted.Page)
					}
				}
			}
		}

		s.logger.Info("process admitted", "pid", p.ID(), "name", p.Name(), "tick", tick, "mem_budget", budget)
		s.enqueueReady(p)
	}
}

// shortTermDispatch fills every empty running slot from the ready set.
func (s *Scheduler) shortTermDispatch(tick uint64) {
	s.shortTermMu.Lock()
	defer s.shortTermMu.Unlock()
	for core := range s.running {
		s.dispatchCoreLocked(core, tick)
	}
}
