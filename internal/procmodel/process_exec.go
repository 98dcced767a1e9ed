package procmodel

import (
	"fmt"
	"time"

	"github.com/sisoputnfrba/go-procsched/internal/instr"
	"github.com/sisoputnfrba/go-procsched/internal/memory"
)

// maxVirtualAddress is the hard ceiling every READ/WRITE address is checked
// against before translation is even attempted; crossing it is always a
// memory access violation, never a page fault.
const maxVirtualAddress uint32 = 65536

// ExecuteTick advances this process by exactly one tick: a per-instruction
// delay countdown, a sleep countdown, or the execution of the instruction
// at the program counter. It never returns an error — a memory violation
// terminates the process and appends a log line instead, and running off
// the end of the program finishes it.
func (p *Process) ExecuteTick(tick uint64, delayPerExec uint32, mm *memory.Manager) Outcome {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state == Finished {
		return Outcome{Kind: OutcomeFinished}
	}

	if p.delayRemaining > 0 {
		p.delayRemaining--
		return Outcome{Kind: OutcomeRunning}
	}

	// A scheduler-driven process never reaches this branch while asleep: it
	// is parked off the running slot for the full duration and MarkReady
	// clears sleepRemaining on the way back. This only fires for a caller
	// that drives ExecuteTick directly, tick by tick, without going through
	// the sleep queue.
	if p.sleepRemaining > 0 {
		p.sleepRemaining--
		if p.sleepRemaining > 0 {
			return Outcome{Kind: OutcomeWaiting, Remaining: p.sleepRemaining}
		}
		if p.pc >= len(p.instructions) {
			return p.finishLocked(tick)
		}
		p.setState(Ready)
		return Outcome{Kind: OutcomeReady}
	}

	if p.pc >= len(p.instructions) {
		return p.finishLocked(tick)
	}

	in := p.instructions[p.pc]
	switch in.Kind {
	case instr.Print:
		return p.execPrint(in, mm, tick, delayPerExec)
	case instr.Declare:
		return p.execDeclare(in, mm, tick, delayPerExec)
	case instr.Add:
		return p.execArith(in, mm, tick, delayPerExec, false)
	case instr.Subtract:
		return p.execArith(in, mm, tick, delayPerExec, true)
	case instr.Sleep:
		return p.execSleep(in, tick)
	case instr.For:
		// Programs are unrolled before construction; a stray FOR is a no-op.
		return p.advanceLocked(tick, delayPerExec)
	case instr.Read:
		return p.execRead(in, mm, tick, delayPerExec)
	case instr.Write:
		return p.execWrite(in, mm, tick, delayPerExec)
	default:
		return p.violationLocked(tick, fmt.Sprintf("unknown instruction kind %v", in.Kind))
	}
}

func (p *Process) execPrint(in instr.Instruction, mm *memory.Manager, tick uint64, delayPerExec uint32) Outcome {
	if in.PrintIsLit {
		p.appendLog(in.PrintLit)
		return p.advanceLocked(tick, delayPerExec)
	}
	val, faultPage, faulted, violated := p.resolveToken(in.PrintTok, mm)
	if violated {
		return p.violationLocked(tick, fmt.Sprintf("0x%x invalid", val))
	}
	if faulted {
		return p.blockOnFault(faultPage)
	}
	p.appendLog(fmt.Sprintf("%d", val))
	return p.advanceLocked(tick, delayPerExec)
}

func (p *Process) execDeclare(in instr.Instruction, mm *memory.Manager, tick uint64, delayPerExec uint32) Outcome {
	val, faultPage, faulted, violated := p.resolveToken(in.LHS, mm)
	if violated {
		return p.violationLocked(tick, "declare value")
	}
	if faulted {
		return p.blockOnFault(faultPage)
	}
	return p.writeAndAdvance(in.Dest, val, mm, tick, delayPerExec)
}

func (p *Process) execArith(in instr.Instruction, mm *memory.Manager, tick uint64, delayPerExec uint32, subtract bool) Outcome {
	lhs, faultPage, faulted, violated := p.resolveToken(in.LHS, mm)
	if violated {
		return p.violationLocked(tick, "lhs operand")
	}
	if faulted {
		return p.blockOnFault(faultPage)
	}
	rhs, faultPage, faulted, violated := p.resolveToken(in.RHS, mm)
	if violated {
		return p.violationLocked(tick, "rhs operand")
	}
	if faulted {
		return p.blockOnFault(faultPage)
	}

	var result uint16
	if subtract {
		result = instr.Clamp16(int64(lhs) - int64(rhs))
	} else {
		result = instr.Clamp16(int64(lhs) + int64(rhs))
	}
	return p.writeAndAdvance(in.Dest, result, mm, tick, delayPerExec)
}

func (p *Process) execSleep(in instr.Instruction, tick uint64) Outcome {
	p.pc++
	p.metrics.ExecutedInstructions++
	if in.SleepTicks == 0 {
		if p.pc >= len(p.instructions) {
			return p.finishLocked(tick)
		}
		return Outcome{Kind: OutcomeRunning}
	}
	p.sleepRemaining = in.SleepTicks
	p.setState(Waiting)
	return Outcome{Kind: OutcomeWaiting, Remaining: p.sleepRemaining}
}

func (p *Process) execRead(in instr.Instruction, mm *memory.Manager, tick uint64, delayPerExec uint32) Outcome {
	addrVal, faultPage, faulted, violated := p.resolveAddr(in.Addr, mm)
	if violated {
		return p.violationLocked(tick, "address operand")
	}
	if faulted {
		return p.blockOnFault(faultPage)
	}
	if addrVal >= maxVirtualAddress {
		return p.violationLocked(tick, fmt.Sprintf("0x%x invalid", addrVal))
	}

	frameIdx, offset, page, ok := p.translate(uint64(addrVal))
	if !ok {
		return p.blockOnFault(page)
	}
	val, err := mm.ReadPhysical(int(frameIdx), offset)
	if err != nil {
		return p.violationLocked(tick, err.Error())
	}
	return p.writeAndAdvance(in.AddrVar, val, mm, tick, delayPerExec)
}

func (p *Process) execWrite(in instr.Instruction, mm *memory.Manager, tick uint64, delayPerExec uint32) Outcome {
	val, faultPage, faulted, violated := p.resolveToken(instr.VarTok(in.AddrVar), mm)
	if violated {
		return p.violationLocked(tick, "source variable")
	}
	if faulted {
		return p.blockOnFault(faultPage)
	}

	addrVal, faultPage, faulted, violated := p.resolveAddr(in.Addr, mm)
	if violated {
		return p.violationLocked(tick, "address operand")
	}
	if faulted {
		return p.blockOnFault(faultPage)
	}
	if addrVal >= maxVirtualAddress {
		return p.violationLocked(tick, fmt.Sprintf("0x%x invalid", addrVal))
	}

	frameIdx, offset, page, ok := p.translate(uint64(addrVal))
	if !ok {
		return p.blockOnFault(page)
	}
	if err := mm.WritePhysical(int(frameIdx), offset, val); err != nil {
		return p.violationLocked(tick, err.Error())
	}
	return p.advanceLocked(tick, delayPerExec)
}

// resolveToken reads a literal or variable token's value. A variable read
// that touches an unmapped page reports faulted=true with the page number;
// a variable that would grow the process past its memory budget reports
// violated=true.
func (p *Process) resolveToken(tok instr.Token, mm *memory.Manager) (val uint16, faultPage uint64, faulted, violated bool) {
	if !tok.IsVar {
		return tok.Lit, 0, false, false
	}
	addr, ok := p.allocateVar(tok.Var)
	if !ok {
		return 0, 0, false, true
	}
	frameIdx, offset, page, ok := p.translate(addr)
	if !ok {
		return 0, page, true, false
	}
	v, err := mm.ReadPhysical(int(frameIdx), offset)
	if err != nil {
		return 0, 0, false, true
	}
	return v, 0, false, false
}

// resolveAddr reads a READ/WRITE address token. A literal address is
// returned as-is, widened to 32 bits, so an out-of-range literal (>= 2^16)
// stays representable instead of wrapping; a variable-held address is read
// the same way resolveToken reads any other variable, which limits it to
// 16 bits since that's the width every process variable is stored at.
func (p *Process) resolveAddr(tok instr.AddrToken, mm *memory.Manager) (val uint32, faultPage uint64, faulted, violated bool) {
	if !tok.IsVar {
		return tok.Lit, 0, false, false
	}
	v, faultPage, faulted, violated := p.resolveToken(instr.VarTok(tok.Var), mm)
	return uint32(v), faultPage, faulted, violated
}

// writeAndAdvance stores val into variable name, faulting if its page isn't
// resident, then advances the program counter on success.
func (p *Process) writeAndAdvance(name string, val uint16, mm *memory.Manager, tick uint64, delayPerExec uint32) Outcome {
	addr, ok := p.allocateVar(name)
	if !ok {
		return p.violationLocked(tick, fmt.Sprintf("out of memory declaring %q", name))
	}
	frameIdx, offset, page, ok := p.translate(addr)
	if !ok {
		return p.blockOnFault(page)
	}
	if err := mm.WritePhysical(int(frameIdx), offset, val); err != nil {
		return p.violationLocked(tick, err.Error())
	}
	return p.advanceLocked(tick, delayPerExec)
}

func (p *Process) blockOnFault(page uint64) Outcome {
	p.lastFault = page
	p.setState(BlockedPageFault)
	return Outcome{Kind: OutcomeBlockedPageFault, Page: page}
}

func (p *Process) advanceLocked(tick uint64, delayPerExec uint32) Outcome {
	p.pc++
	p.metrics.ExecutedInstructions++
	if delayPerExec > 0 {
		p.delayRemaining = delayPerExec
	}
	if p.pc >= len(p.instructions) {
		return p.finishLocked(tick)
	}
	return Outcome{Kind: OutcomeRunning}
}

func (p *Process) finishLocked(tick uint64) Outcome {
	p.setState(Finished)
	p.metrics.FinishedTick = tick
	p.metrics.FinishTime = time.Now()
	return Outcome{Kind: OutcomeFinished}
}

func (p *Process) violationLocked(tick uint64, detail string) Outcome {
	p.appendLog(fmt.Sprintf("Process %s shut down due to memory access violation error that occurred at %d. %s.", p.name, tick, detail))
	return p.finishLocked(tick)
}
