package procmodel

// OutcomeKind tags the result of a single Process.ExecuteTick call.
type OutcomeKind int

const (
	// OutcomeRunning means the process consumed this tick (a per-instruction
	// delay, typically) and is still executing; the CPU worker need not
	// notify the scheduler.
	OutcomeRunning OutcomeKind = iota
	// OutcomeReady means the process yielded the CPU voluntarily and
	// belongs back on the ready set immediately.
	OutcomeReady
	// OutcomeWaiting means the process is asleep for Remaining more ticks.
	OutcomeWaiting
	// OutcomeBlockedPageFault means execution stalled on an unmapped page
	// and must be retried once the scheduler resolves the fault.
	OutcomeBlockedPageFault
	// OutcomeFinished means the process ran off the end of its program, or
	// was terminated by a memory access violation.
	OutcomeFinished
)

// Outcome is the tagged result execute_tick hands back to its caller, the
// CPU worker, which dispatches on Kind to decide what the scheduler does
// with the process next.
type Outcome struct {
	Kind      OutcomeKind
	Remaining uint32 // valid when Kind == OutcomeWaiting
	Page      uint64 // valid when Kind == OutcomeBlockedPageFault
}

// Yielded reports whether the CPU worker must hand this outcome back to the
// scheduler's release_cpu_interrupt choke point. Only OutcomeRunning keeps
// the process on the CPU without scheduler involvement.
func (o Outcome) Yielded() bool {
	return o.Kind != OutcomeRunning
}
