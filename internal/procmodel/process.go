// Package procmodel implements the Process execution automaton: a fixed
// instruction stream, a paged variable store, and the execute_tick step
// contract the scheduler and CPU workers drive it through.
package procmodel

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sisoputnfrba/go-procsched/internal/instr"
)

// State is a process's position in the NEW -> READY -> RUNNING ->
// {WAITING, BLOCKED_PAGE_FAULT, READY} -> FINISHED automaton.
type State int

const (
	New State = iota
	Ready
	Running
	Waiting
	BlockedPageFault
	SwappedOut
	Finished
)

func (s State) String() string {
	switch s {
	case New:
		return "NEW"
	case Ready:
		return "READY"
	case Running:
		return "RUNNING"
	case Waiting:
		return "WAITING"
	case BlockedPageFault:
		return "BLOCKED_PAGE_FAULT"
	case SwappedOut:
		return "SWAPPED_OUT"
	case Finished:
		return "FINISHED"
	default:
		return "UNKNOWN"
	}
}

// Metrics records execution bookkeeping that survives the process, useful
// for reporting even after it has finished.
type Metrics struct {
	CreatedTick         uint64
	FinishedTick        uint64
	ExecutedInstructions uint32
	TotalInstructions    uint32
	CoreID               int32 // -1 when never scheduled
	StartTime            time.Time
	FinishTime           time.Time
}

type pageEntry struct {
	frameIdx uint64
	valid    bool
	onDisk   bool
	dirty    bool
}

// Process is a single schedulable unit of execution: a flattened, already
// unrolled instruction stream plus the paged virtual memory backing its
// DECLARE'd variables.
type Process struct {
	mu sync.Mutex // guards everything below except atomics

	id   uint32
	name string

	instructions []instr.Instruction
	pc           int
	state        State
	logs         []string

	priority       uint32
	lastActiveTick uint64
	coreID         int32

	delayRemaining uint32
	sleepRemaining uint32

	symbolTable  map[string]uint64 // variable name -> virtual address
	pageTable    []pageEntry
	pageSize     uint64
	memoryLimit  uint64
	memoryBudget uint64 // 0 means "use the scheduler's configured default"
	brk          uint64
	lastFault    uint64

	metrics Metrics

	finishedLogged atomic.Bool
}

// NewProcess builds a Process with an already-unrolled instruction stream.
// Memory is uninitialized until InitializeMemory is called by long-term
// admission.
func NewProcess(id uint32, name string, program []instr.Instruction, createdTick uint64) *Process {
	return &Process{
		id:           id,
		name:         name,
		instructions: program,
		state:        New,
		symbolTable:  make(map[string]uint64),
		coreID:       -1,
		pageSize:     16,
		metrics: Metrics{
			CreatedTick:      createdTick,
			TotalInstructions: uint32(len(program)),
			CoreID:            -1,
		},
	}
}

func (p *Process) ID() uint32   { return p.id }
func (p *Process) Name() string { return p.name }

func (p *Process) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *Process) setState(s State) {
	p.state = s
}

func (p *Process) Priority() uint32 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.priority
}

// SetPriority is used by an external generator/collaborator at admission
// time; the core never mutates priority itself.
func (p *Process) SetPriority(v uint32) {
	p.mu.Lock()
	p.priority = v
	p.mu.Unlock()
}

func (p *Process) LastActiveTick() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastActiveTick
}

func (p *Process) touchLastActiveTick(tick uint64) {
	p.lastActiveTick = tick
}

// Brk exposes the current heap pointer read-only, for callers that need to
// page-align a pending allocation before it is committed by a DECLARE.
func (p *Process) Brk() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.brk
}

// Logs returns a copy of the append-only log slice taken under the process
// mutex. Callers never see the live slice.
func (p *Process) Logs() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.logs))
	copy(out, p.logs)
	return out
}

func (p *Process) appendLog(line string) {
	p.logs = append(p.logs, line)
}

// SummaryLine produces the single-line PID/name/state string used by
// Scheduler.Snapshot's per-queue sections.
func (p *Process) SummaryLine() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return fmt.Sprintf("PID=%d name=%s state=%s pc=%d/%d", p.id, p.name, p.state, p.pc, len(p.instructions))
}

// Metrics returns a copy of this process's runtime metrics.
func (p *Process) Metrics() Metrics {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.metrics
}

// --- state query helpers ---

func (p *Process) IsNew() bool      { return p.State() == New }
func (p *Process) IsReady() bool    { return p.State() == Ready }
func (p *Process) IsRunning() bool  { return p.State() == Running }
func (p *Process) IsWaiting() bool  { return p.State() == Waiting }
func (p *Process) IsBlocked() bool  { return p.State() == BlockedPageFault }
func (p *Process) IsSwapped() bool  { return p.State() == SwappedOut }
func (p *Process) IsFinished() bool { return p.State() == Finished }

// --- state transition helpers ---

// MarkReady moves a process onto the ready set. It also clears
// sleepRemaining: the sleep queue is the sole timer for SLEEP (it parks a
// process for exactly the requested duration and wakes it here), so a
// process that just woke up must never re-enter ExecuteTick's own
// countdown branch and sleep a second time.
func (p *Process) MarkReady() {
	p.mu.Lock()
	p.setState(Ready)
	p.coreID = -1
	p.sleepRemaining = 0
	p.mu.Unlock()
}

func (p *Process) MarkRunning(core int, tick uint64) {
	p.mu.Lock()
	p.setState(Running)
	p.coreID = int32(core)
	p.metrics.CoreID = int32(core)
	p.touchLastActiveTick(tick)
	if p.metrics.StartTime.IsZero() {
		p.metrics.StartTime = time.Now()
	}
	p.mu.Unlock()
}

func (p *Process) MarkWaiting(ticks uint32) {
	p.mu.Lock()
	p.setState(Waiting)
	p.sleepRemaining = ticks
	p.mu.Unlock()
}

func (p *Process) MarkBlockedOnPage(page uint64) {
	p.mu.Lock()
	p.setState(BlockedPageFault)
	p.lastFault = page
	p.mu.Unlock()
}

func (p *Process) MarkSwapped() {
	p.mu.Lock()
	p.setState(SwappedOut)
	p.mu.Unlock()
}

func (p *Process) MarkFinished(tick uint64) {
	p.mu.Lock()
	p.setState(Finished)
	p.metrics.FinishedTick = tick
	p.metrics.FinishTime = time.Now()
	p.mu.Unlock()
}

// MarkFinishedLogged latches the finished-record dedup flag and reports
// whether this call was the one to set it, so the FinishedMap is only
// populated once per process even under the Finished-wins race.
func (p *Process) MarkFinishedLogged() bool {
	return p.finishedLogged.CompareAndSwap(false, true)
}

func (p *Process) GetFaultingPage() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastFault
}

// InvalidatePage marks a page as evicted: no longer resident, but present
// on disk for a future re-fault.
func (p *Process) InvalidatePage(page uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if int(page) < len(p.pageTable) {
		p.pageTable[page].valid = false
		p.pageTable[page].onDisk = true
	}
}

// UpdatePageTable marks a page resident in the given frame after the
// scheduler resolves a fault.
func (p *Process) UpdatePageTable(page, frameIdx uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if int(page) < len(p.pageTable) {
		p.pageTable[page].frameIdx = frameIdx
		p.pageTable[page].valid = true
		p.pageTable[page].onDisk = false
	}
}

// IsPageOnDisk reports whether a page was previously swapped out, so the
// scheduler knows whether fault resolution should load from the backing
// store or just zero-fill.
func (p *Process) IsPageOnDisk(page uint64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if int(page) < len(p.pageTable) {
		return p.pageTable[page].onDisk
	}
	return false
}

// MemoryBudget returns the memory size in bytes an external collaborator
// requested for this process at construction time, or 0 if it left the
// decision to the scheduler's configured default.
func (p *Process) MemoryBudget() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.memoryBudget
}

// SetMemoryBudget records a per-process memory requirement for long-term
// admission to honor instead of the scheduler's configured default.
func (p *Process) SetMemoryBudget(bytes uint64) {
	p.mu.Lock()
	p.memoryBudget = bytes
	p.mu.Unlock()
}

// InitializeMemory sizes the page table for a memory budget in bytes,
// called once by long-term admission before the process ever runs.
func (p *Process) InitializeMemory(memSize, pageSize uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if pageSize == 0 {
		pageSize = 16
	}
	p.pageSize = pageSize
	p.memoryLimit = memSize
	numPages := (memSize + pageSize - 1) / pageSize
	p.pageTable = make([]pageEntry, numPages)
}

// NumPages returns how many pages InitializeMemory sized the page table to.
func (p *Process) NumPages() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return uint64(len(p.pageTable))
}

// MemoryStats mirrors get_memory_stats: how many of this process's pages
// are resident versus swapped out.
type MemoryStats struct {
	ActivePages uint64
	SwapPages   uint64
	TotalPages  uint64
}

func (p *Process) GetMemoryStats() MemoryStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	var active, swap uint64
	for _, e := range p.pageTable {
		if e.valid {
			active++
		} else if e.onDisk {
			swap++
		}
	}
	return MemoryStats{ActivePages: active, SwapPages: swap, TotalPages: uint64(len(p.pageTable))}
}

// translate resolves a virtual address into a (frame, offset) pair if the
// owning page is resident. ok is false on a page fault; the caller must
// then surface OutcomeBlockedPageFault and retry this instruction later.
func (p *Process) translate(vaddr uint64) (frameIdx uint64, offset uint64, page uint64, ok bool) {
	page = vaddr / p.pageSize
	offset = vaddr % p.pageSize
	if int(page) >= len(p.pageTable) || !p.pageTable[page].valid {
		return 0, 0, page, false
	}
	return p.pageTable[page].frameIdx, offset, page, true
}

// allocateVar assigns a newly-declared variable the next 2-byte slot at the
// heap pointer and bumps the pointer past it, refusing once the slot would
// cross the memory limit. Variables are never reassigned an address once
// declared.
func (p *Process) allocateVar(name string) (uint64, bool) {
	if addr, ok := p.symbolTable[name]; ok {
		return addr, true
	}
	addr := p.brk
	if addr+2 > p.memoryLimit {
		return 0, false
	}
	p.symbolTable[name] = addr
	p.brk += 2
	return addr, true
}
