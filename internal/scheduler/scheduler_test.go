package scheduler

import (
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sisoputnfrba/go-procsched/internal/config"
	"github.com/sisoputnfrba/go-procsched/internal/instr"
	"github.com/sisoputnfrba/go-procsched/internal/policy"
	"github.com/sisoputnfrba/go-procsched/internal/procmodel"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig(t *testing.T, numCPU int, pol string, quantum uint32) config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.NumCPU = numCPU
	cfg.SchedulerPolicy = pol
	cfg.QuantumCycles = quantum
	cfg.DelayPerExec = 0
	cfg.SchedulerTickDelay = 0
	cfg.SnapshotCooldown = 2
	cfg.SaveSnapshotFileRate = 100
	cfg.BackingStoreDir = filepath.Join(t.TempDir(), "backing_store")
	cfg.LogDir = filepath.Join(t.TempDir(), "logs")
	cfg.MaxOverallMem = 256
	cfg.MemPerFrame = 16
	cfg.MinMemPerProc = 32
	return cfg
}

func simpleProgram() []instr.Instruction {
	return []instr.Instruction{
		{Kind: instr.Declare, Dest: "x", LHS: instr.Lit(1)},
		{Kind: instr.Add, Dest: "x", LHS: instr.VarTok("x"), RHS: instr.Lit(41)},
		{Kind: instr.Print, PrintTok: instr.VarTok("x")},
	}
}

func TestSchedulerRunsSimpleProcessToCompletion(t *testing.T) {
	cfg := testConfig(t, 1, "fcfs", 0)
	s, err := New(cfg, testLogger())
	require.NoError(t, err)

	s.Start()
	defer s.Stop()

	p := procmodel.NewProcess(1, "adder", simpleProgram(), 0)
	s.SubmitProcess(p)

	require.Eventually(t, func() bool {
		_, ok := s.GetProcess(1)
		return !ok
	}, 2*time.Second, time.Millisecond)

	all := s.finished.All()
	require.Len(t, all, 1)
	require.Equal(t, []string{"42"}, all[0].Logs())
}

func TestSchedulerAdmitsAndFinishesMultipleProcesses(t *testing.T) {
	cfg := testConfig(t, 2, "fcfs", 0)
	s, err := New(cfg, testLogger())
	require.NoError(t, err)

	s.Start()
	defer s.Stop()

	for i := uint32(1); i <= 3; i++ {
		s.SubmitProcess(procmodel.NewProcess(i, "p", simpleProgram(), 0))
	}

	require.Eventually(t, func() bool {
		return s.TotalActiveProcesses() == 0
	}, 3*time.Second, time.Millisecond)

	require.Equal(t, 3, s.finished.Len())
}

func TestRoundRobinPreemptsAcrossTwoProcesses(t *testing.T) {
	cfg := testConfig(t, 1, "rr", 1)
	s, err := New(cfg, testLogger())
	require.NoError(t, err)

	longProgram := func() []instr.Instruction {
		var prog []instr.Instruction
		prog = append(prog, instr.Instruction{Kind: instr.Declare, Dest: "x", LHS: instr.Lit(0)})
		for i := 0; i < 5; i++ {
			prog = append(prog, instr.Instruction{Kind: instr.Add, Dest: "x", LHS: instr.VarTok("x"), RHS: instr.Lit(1)})
		}
		return prog
	}

	s.Start()
	defer s.Stop()

	s.SubmitProcess(procmodel.NewProcess(1, "a", longProgram(), 0))
	s.SubmitProcess(procmodel.NewProcess(2, "b", longProgram(), 0))

	require.Eventually(t, func() bool {
		return s.TotalActiveProcesses() == 0
	}, 3*time.Second, time.Millisecond)

	require.Equal(t, 2, s.finished.Len())
	require.Equal(t, policy.RR, s.ready.Policy())
}

func TestPauseHaltsTickAdvancement(t *testing.T) {
	cfg := testConfig(t, 1, "fcfs", 0)
	s, err := New(cfg, testLogger())
	require.NoError(t, err)

	s.Start()
	defer s.Stop()

	require.Eventually(t, func() bool { return s.CurrentTick() > 0 }, time.Second, time.Millisecond)

	s.Pause()
	require.True(t, s.IsPaused())
	frozen := s.CurrentTick()
	time.Sleep(20 * time.Millisecond)
	require.Equal(t, frozen, s.CurrentTick())

	s.Resume()
	require.Eventually(t, func() bool { return s.CurrentTick() > frozen }, time.Second, time.Millisecond)
}

func TestMemoryAccessViolationFinishesProcessWithLog(t *testing.T) {
	cfg := testConfig(t, 1, "fcfs", 0)
	s, err := New(cfg, testLogger())
	require.NoError(t, err)

	s.Start()
	defer s.Stop()

	program := []instr.Instruction{
		{Kind: instr.Read, AddrVar: "y", Addr: instr.AddrLit(0x10000)},
	}
	p := procmodel.NewProcess(1, "bad", program, 0)
	s.SubmitProcess(p)

	require.Eventually(t, func() bool {
		_, ok := s.GetProcess(1)
		return !ok
	}, 2*time.Second, time.Millisecond)

	all := s.finished.All()
	require.Len(t, all, 1)
	require.Len(t, all[0].Logs(), 1)
	require.Contains(t, all[0].Logs()[0], "memory access violation")
	require.Contains(t, all[0].Logs()[0], "0x10000 invalid")
}

func TestSleepHoldsExactlyItsConfiguredDurationThroughTheQueue(t *testing.T) {
	cfg := testConfig(t, 1, "fcfs", 0)
	// Ticks must last much longer than the 1ms polling interval below, or
	// many ticks pass between two polls.
	cfg.SchedulerTickDelay = 20
	s, err := New(cfg, testLogger())
	require.NoError(t, err)

	s.Start()
	defer s.Stop()

	program := []instr.Instruction{
		{Kind: instr.Sleep, SleepTicks: 3},
		{Kind: instr.Print, PrintIsLit: true, PrintLit: "done"},
	}
	p := procmodel.NewProcess(1, "napper", program, 0)
	s.SubmitProcess(p)

	require.Eventually(t, func() bool { return p.IsWaiting() }, time.Second, time.Millisecond)
	sleepStart := s.CurrentTick()

	require.Eventually(t, func() bool { return !p.IsWaiting() }, time.Second, time.Millisecond)
	sleepEnd := s.CurrentTick()

	// Exactly 3 consecutive ticks, not 3 plus the old queue round-trip
	// overcounting; a little slack covers polling granularity only.
	require.LessOrEqual(t, sleepEnd-sleepStart, uint64(4))

	require.Eventually(t, func() bool {
		_, ok := s.GetProcess(1)
		return !ok
	}, 2*time.Second, time.Millisecond)
	require.Equal(t, []string{"done"}, p.Logs())
}

func TestSnapshotReportsEachQueueSection(t *testing.T) {
	cfg := testConfig(t, 1, "fcfs", 0)
	s, err := New(cfg, testLogger())
	require.NoError(t, err)

	snap := s.Snapshot()
	require.Contains(t, snap, "running")
	require.Contains(t, snap, "job")
	require.Contains(t, snap, "finished")
	require.Contains(t, snap, "memory")
}
