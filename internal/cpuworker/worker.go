// Package cpuworker implements the per-core goroutine that drives
// Process.ExecuteTick through the scheduler's three-barrier tick protocol.
package cpuworker

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/sisoputnfrba/go-procsched/internal/barrier"
	"github.com/sisoputnfrba/go-procsched/internal/memory"
	"github.com/sisoputnfrba/go-procsched/internal/procmodel"
)

// Host is everything a CPU worker needs from the scheduler: it never
// touches scheduler-owned queues or locks directly, only this interface.
type Host interface {
	CurrentTick() uint64
	DelayPerExec() uint32
	TickDelay() time.Duration
	IsPaused() bool
	DispatchToCPU(core int) *procmodel.Process
	ReleaseCPUInterrupt(core int, p *procmodel.Process, outcome procmodel.Outcome)
}

// Worker is one CPU core: it rendezvouses with every other core (and the
// scheduler) three times per tick, executing at most one instruction of
// its assigned process in between the first two barriers.
type Worker struct {
	core   int
	host   Host
	mm     *memory.Manager
	b1, b2, b3 *barrier.Barrier
	logger *slog.Logger

	stopped    atomic.Bool
	busyTicks  atomic.Uint64
	idleTicks  atomic.Uint64
}

// New builds a Worker bound to a core index and the three tick barriers it
// shares with its siblings and the scheduler.
func New(core int, host Host, mm *memory.Manager, b1, b2, b3 *barrier.Barrier, logger *slog.Logger) *Worker {
	return &Worker{core: core, host: host, mm: mm, b1: b1, b2: b2, b3: b3, logger: logger}
}

// Run drives the worker's loop until ctx is cancelled or Stop is called.
// Call it in its own goroutine.
func (w *Worker) Run(ctx context.Context) {
	for {
		for w.host.IsPaused() && !w.stopped.Load() {
			select {
			case <-ctx.Done():
				w.dropOut()
				return
			case <-time.After(time.Millisecond):
			}
		}

		if w.stopped.Load() || ctx.Err() != nil {
			w.dropOut()
			return
		}

		w.b1.Wait()

		p := w.host.DispatchToCPU(w.core)
		if p == nil {
			w.idleTicks.Add(1)
		} else {
			tick := w.host.CurrentTick()
			outcome := p.ExecuteTick(tick, w.host.DelayPerExec(), w.mm)
			w.busyTicks.Add(1)
			if outcome.Yielded() {
				w.host.ReleaseCPUInterrupt(w.core, p, outcome)
			}
		}

		w.b2.Wait()
		w.b3.Wait()

		if d := w.host.TickDelay(); d > 0 {
			time.Sleep(d)
		}
	}
}

func (w *Worker) dropOut() {
	w.b1.ArriveAndDrop()
	w.b2.ArriveAndDrop()
	w.b3.ArriveAndDrop()
}

// Stop requests the worker's loop to exit at its next opportunity, dropping
// it out of the shared barriers so the remaining workers and the scheduler
// don't stall on it.
func (w *Worker) Stop() {
	w.stopped.Store(true)
}

// BusyTicks returns how many ticks this core executed a process.
func (w *Worker) BusyTicks() uint64 { return w.busyTicks.Load() }

// IdleTicks returns how many ticks this core had nothing dispatched to it.
func (w *Worker) IdleTicks() uint64 { return w.idleTicks.Load() }

// Utilization returns busy / (busy + idle), or 0 before the first tick.
func (w *Worker) Utilization() float64 {
	busy := w.busyTicks.Load()
	idle := w.idleTicks.Load()
	total := busy + idle
	if total == 0 {
		return 0
	}
	return float64(busy) / float64(total)
}
