// Package scheduler implements the tick-driven multi-core scheduler: the
// barrier-synchronized CPU worker pool, the job/ready/blocked/sleep/finished
// queue pipeline, and the long-term/short-term/medium-term dispatch phases
// that move processes between them.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sisoputnfrba/go-procsched/internal/barrier"
	"github.com/sisoputnfrba/go-procsched/internal/config"
	"github.com/sisoputnfrba/go-procsched/internal/cpuworker"
	"github.com/sisoputnfrba/go-procsched/internal/memory"
	"github.com/sisoputnfrba/go-procsched/internal/policy"
	"github.com/sisoputnfrba/go-procsched/internal/procmodel"
	"github.com/sisoputnfrba/go-procsched/internal/queue"
)

// Scheduler owns every queue, the running-process vector, the CPU worker
// pool, the three tick barriers, and the global tick counter. Processes
// are referenced, never copied; the memory manager owns frames
// independently.
type Scheduler struct {
	cfg    config.Config
	logger *slog.Logger
	mm     *memory.Manager

	tickMu sync.Mutex // guards tick and pause/resume coordination
	tick   uint64
	paused bool

	// shortTermMu guards running, quantumRemaining and the
	// dispatch/release interaction with the ready set — never acquired
	// while holding a queue's or the MM's own internal lock.
	shortTermMu      sync.Mutex
	running          []*procmodel.Process
	quantumRemaining []uint32

	jobQueue     *queue.Channel[*procmodel.Process]
	ready        *queue.DynamicVictimChannel
	blockedQueue *queue.Channel[*procmodel.Process]
	swappedQueue *queue.Channel[*procmodel.Process]
	sleepQueue   *queue.SleepQueue
	finished     *queue.FinishedMap
	logRing      *queue.BufferedChannel[string]

	processesMu sync.Mutex
	processes   map[uint32]*procmodel.Process

	b1, b2, b3 *barrier.Barrier
	workers    []*cpuworker.Worker

	ticksSinceSnapshot uint64
	ticksSinceSaveFile uint64

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New builds a Scheduler and its CPU worker pool from cfg. It does not
// start ticking until Start is called.
func New(cfg config.Config, logger *slog.Logger) (*Scheduler, error) {
	if cfg.NumCPU <= 0 {
		return nil, fmt.Errorf("scheduler: num_cpu must be positive, got %d", cfg.NumCPU)
	}
	if logger == nil {
		logger = slog.Default()
	}

	mm, err := memory.New(cfg.MaxOverallMem, cfg.MemPerFrame, cfg.BackingStoreDir, logger.With("subsystem", "memory"))
	if err != nil {
		return nil, fmt.Errorf("scheduler: building memory manager: %w", err)
	}

	pol, err := policy.Parse(cfg.SchedulerPolicy)
	if err != nil {
		return nil, fmt.Errorf("scheduler: %w", err)
	}

	s := &Scheduler{
		cfg:              cfg,
		logger:           logger,
		mm:               mm,
		running:          make([]*procmodel.Process, cfg.NumCPU),
		quantumRemaining: make([]uint32, cfg.NumCPU),
		jobQueue:         queue.NewChannel[*procmodel.Process]("job"),
		ready:            queue.NewDynamicVictimChannel(pol),
		blockedQueue:     queue.NewChannel[*procmodel.Process]("blocked"),
		swappedQueue:     queue.NewChannel[*procmodel.Process]("swapped"),
		sleepQueue:       queue.NewSleepQueue(),
		finished:         queue.NewFinishedMap(cfg.RemoveFinishedCapacity),
		logRing:          queue.NewBufferedChannel[string]("log_ring", cfg.SnapshotLogCapacity, queue.Overwrite),
		processes:        make(map[uint32]*procmodel.Process),
	}

	s.b1 = barrier.New(cfg.NumCPU + 1)
	s.b2 = barrier.New(cfg.NumCPU + 1)
	s.b3 = barrier.New(cfg.NumCPU + 1)

	for core := 0; core < cfg.NumCPU; core++ {
		w := cpuworker.New(core, s, mm, s.b1, s.b2, s.b3, logger.With("subsystem", "cpu", "core", core))
		s.workers = append(s.workers, w)
	}

	return s, nil
}

// Start launches the CPU worker goroutines and the scheduler's own tick
// loop goroutine.
func (s *Scheduler) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	for _, w := range s.workers {
		s.wg.Add(1)
		go func(w *cpuworker.Worker) {
			defer s.wg.Done()
			w.Run(ctx)
		}(w)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.tickLoop(ctx)
	}()
}

// Stop halts the worker pool and the tick loop, waiting for both to exit.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	for _, w := range s.workers {
		w.Stop()
	}
	s.wg.Wait()
}

// CurrentTick returns the global tick counter's current value.
func (s *Scheduler) CurrentTick() uint64 {
	s.tickMu.Lock()
	defer s.tickMu.Unlock()
	return s.tick
}

// DelayPerExec implements cpuworker.Host.
func (s *Scheduler) DelayPerExec() uint32 { return s.cfg.DelayPerExec }

// TickDelay implements cpuworker.Host.
func (s *Scheduler) TickDelay() time.Duration {
	return time.Duration(s.cfg.SchedulerTickDelay) * time.Millisecond
}

// IsPaused reports whether the scheduler is currently paused.
func (s *Scheduler) IsPaused() bool {
	s.tickMu.Lock()
	defer s.tickMu.Unlock()
	return s.paused
}

// Pause halts tick advancement after the in-flight tick completes.
func (s *Scheduler) Pause() {
	s.tickMu.Lock()
	s.paused = true
	s.tickMu.Unlock()
}

// Resume lets tick advancement continue.
func (s *Scheduler) Resume() {
	s.tickMu.Lock()
	s.paused = false
	s.tickMu.Unlock()
}

// SetSchedulingPolicy switches the ready set's ordering policy, re-sorting
// its current contents.
func (s *Scheduler) SetSchedulingPolicy(p policy.Policy) {
	s.ready.SetPolicy(p)
}

// TotalActiveProcesses returns how many processes have not yet finished.
func (s *Scheduler) TotalActiveProcesses() int {
	s.processesMu.Lock()
	defer s.processesMu.Unlock()
	n := 0
	for _, p := range s.processes {
		if !p.IsFinished() {
			n++
		}
	}
	return n
}

// AllProcesses returns every process the scheduler has ever admitted and
// not yet finished (finished processes live in the FinishedMap instead).
func (s *Scheduler) AllProcesses() []*procmodel.Process {
	s.processesMu.Lock()
	defer s.processesMu.Unlock()
	out := make([]*procmodel.Process, 0, len(s.processes))
	for _, p := range s.processes {
		out = append(out, p)
	}
	return out
}

// GetProcess looks up an admitted, not-yet-finished process by PID.
func (s *Scheduler) GetProcess(pid uint32) (*procmodel.Process, bool) {
	s.processesMu.Lock()
	defer s.processesMu.Unlock()
	p, ok := s.processes[pid]
	return p, ok
}

// CPUUtilization returns, per core, busy / (busy + idle) ticks.
func (s *Scheduler) CPUUtilization() []float64 {
	out := make([]float64, len(s.workers))
	for i, w := range s.workers {
		out[i] = w.Utilization()
	}
	return out
}

// SubmitProcess admits p to the job queue. Long-term admission picks it up
// on a future tick and moves it to the ready set once memory is sized.
func (s *Scheduler) SubmitProcess(p *procmodel.Process) {
	s.processesMu.Lock()
	s.processes[p.ID()] = p
	s.processesMu.Unlock()
	s.jobQueue.Send(p)
}
