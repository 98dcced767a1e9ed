package procmodel

import (
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sisoputnfrba/go-procsched/internal/instr"
	"github.com/sisoputnfrba/go-procsched/internal/memory"
)

func newTestMM(t *testing.T) *memory.Manager {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "backing_store")
	mm, err := memory.New(256, 16, dir, slog.Default())
	require.NoError(t, err)
	return mm
}

func newReadyProcess(t *testing.T, program []instr.Instruction) (*Process, *memory.Manager) {
	t.Helper()
	mm := newTestMM(t)
	p := NewProcess(1, "proc", program, 0)
	p.InitializeMemory(64, 16)
	for page := uint64(0); page < p.NumPages(); page++ {
		frameIdx, _, err := mm.RequestPage(1, page, false)
		require.NoError(t, err)
		p.UpdatePageTable(page, uint64(frameIdx))
	}
	p.MarkReady()
	return p, mm
}

func TestDeclareAddSubtractAndPrint(t *testing.T) {
	program := []instr.Instruction{
		{Kind: instr.Declare, Dest: "x", LHS: instr.Lit(10)},
		{Kind: instr.Add, Dest: "x", LHS: instr.VarTok("x"), RHS: instr.Lit(5)},
		{Kind: instr.Subtract, Dest: "x", LHS: instr.VarTok("x"), RHS: instr.Lit(3)},
		{Kind: instr.Print, PrintTok: instr.VarTok("x")},
	}
	p, mm := newReadyProcess(t, program)

	for i := 0; i < len(program)-1; i++ {
		outcome := p.ExecuteTick(uint64(i), 0, mm)
		require.Equal(t, OutcomeRunning, outcome.Kind)
	}
	outcome := p.ExecuteTick(uint64(len(program)-1), 0, mm)
	require.Equal(t, OutcomeFinished, outcome.Kind)
	logs := p.Logs()
	require.Equal(t, []string{"12"}, logs)
}

func TestSubtractClampsAtZero(t *testing.T) {
	program := []instr.Instruction{
		{Kind: instr.Declare, Dest: "x", LHS: instr.Lit(2)},
		{Kind: instr.Subtract, Dest: "x", LHS: instr.VarTok("x"), RHS: instr.Lit(10)},
		{Kind: instr.Print, PrintTok: instr.VarTok("x")},
	}
	p, mm := newReadyProcess(t, program)
	for i := 0; i < len(program); i++ {
		p.ExecuteTick(uint64(i), 0, mm)
	}
	require.Equal(t, []string{"0"}, p.Logs())
}

func TestProcessFinishesAfterLastInstruction(t *testing.T) {
	program := []instr.Instruction{
		{Kind: instr.Print, PrintIsLit: true, PrintLit: "hi"},
	}
	p, mm := newReadyProcess(t, program)
	outcome := p.ExecuteTick(0, 0, mm)
	require.Equal(t, OutcomeFinished, outcome.Kind)
	require.True(t, p.IsFinished())
}

func TestSleepYieldsWaitingThenReady(t *testing.T) {
	program := []instr.Instruction{
		{Kind: instr.Sleep, SleepTicks: 2},
		{Kind: instr.Print, PrintIsLit: true, PrintLit: "done"},
	}
	p, mm := newReadyProcess(t, program)

	out := p.ExecuteTick(0, 0, mm)
	require.Equal(t, OutcomeWaiting, out.Kind)
	require.EqualValues(t, 2, out.Remaining)

	out = p.ExecuteTick(1, 0, mm)
	require.Equal(t, OutcomeWaiting, out.Kind)
	require.EqualValues(t, 1, out.Remaining)

	out = p.ExecuteTick(2, 0, mm)
	require.Equal(t, OutcomeReady, out.Kind)
}

func TestDelayPerExecHoldsProcessRunningBetweenInstructions(t *testing.T) {
	program := []instr.Instruction{
		{Kind: instr.Declare, Dest: "x", LHS: instr.Lit(1)},
		{Kind: instr.Print, PrintTok: instr.VarTok("x")},
	}
	p, mm := newReadyProcess(t, program)

	out := p.ExecuteTick(0, 3, mm)
	require.Equal(t, OutcomeRunning, out.Kind)

	// Three more ticks are consumed purely by the per-instruction delay.
	for i := 0; i < 3; i++ {
		out = p.ExecuteTick(uint64(i+1), 3, mm)
		require.Equal(t, OutcomeRunning, out.Kind)
	}
	require.Empty(t, p.Logs())

	out = p.ExecuteTick(4, 3, mm)
	require.Equal(t, OutcomeFinished, out.Kind)
	require.Equal(t, []string{"1"}, p.Logs())
}

func TestReadWriteAddressOutOfRangeIsAViolation(t *testing.T) {
	program := []instr.Instruction{
		{Kind: instr.Read, AddrVar: "y", Addr: instr.AddrLit(0x10000)},
	}
	p, mm := newReadyProcess(t, program)
	out := p.ExecuteTick(0, 0, mm)
	require.Equal(t, OutcomeFinished, out.Kind)
	require.True(t, p.IsFinished())
	require.Len(t, p.Logs(), 1)
	require.Contains(t, p.Logs()[0], "memory access violation")
	require.Contains(t, p.Logs()[0], "0x10000 invalid")
}

func TestPageFaultOnUnmappedVariableBlocksWithoutAdvancingPC(t *testing.T) {
	mm := newTestMM(t)
	program := []instr.Instruction{
		{Kind: instr.Declare, Dest: "x", LHS: instr.Lit(7)},
	}
	p := NewProcess(9, "faulty", program, 0)
	p.InitializeMemory(64, 16) // page table sized, but no frames ever mapped
	p.MarkReady()

	out := p.ExecuteTick(0, 0, mm)
	require.Equal(t, OutcomeBlockedPageFault, out.Kind)
	require.True(t, p.IsBlocked())

	p.UpdatePageTable(out.Page, 0)
	mmBacked, _, err := mm.RequestPage(9, out.Page, false)
	require.NoError(t, err)
	p.UpdatePageTable(out.Page, uint64(mmBacked))
	p.MarkReady()

	out = p.ExecuteTick(1, 0, mm)
	require.Equal(t, OutcomeFinished, out.Kind)
}
