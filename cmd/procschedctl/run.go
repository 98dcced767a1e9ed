package main

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/sisoputnfrba/go-procsched/internal/config"
	"github.com/sisoputnfrba/go-procsched/internal/instr"
	"github.com/sisoputnfrba/go-procsched/internal/procmodel"
	"github.com/sisoputnfrba/go-procsched/internal/scheduler"
)

var (
	runConfigPath string
	runTicks      int
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Build a scheduler, submit a small workload, run it, and print a snapshot.",
	RunE:  runRun,
}

func init() {
	runCmd.Flags().StringVar(&runConfigPath, "config", "", "path to a JSON config file (defaults to built-in defaults)")
	runCmd.Flags().IntVar(&runTicks, "ticks", 40, "how long to let the scheduler run before printing, in tick delays (1ms each when the tick delay is 0); the number of ticks actually run is not capped")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg := config.Default()
	if runConfigPath != "" {
		loaded, err := config.Load[config.Config](runConfigPath)
		if err != nil {
			return fmt.Errorf("run: %w", err)
		}
		cfg = *loaded
	}

	runID := uuid.New()
	logger := config.NewLogger(cfg.LogLevel, "procschedctl").With("run_id", runID.String())

	s, err := scheduler.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("run: %w", err)
	}

	s.Start()
	defer s.Stop()

	for _, p := range demoWorkload() {
		s.SubmitProcess(p)
	}

	pace := time.Duration(cfg.SchedulerTickDelay) * time.Millisecond
	if pace <= 0 {
		pace = time.Millisecond
	}
	time.Sleep(time.Duration(runTicks) * pace)

	fmt.Println(s.SnapshotWithLog())
	return nil
}

// demoWorkload builds a handful of synthetic processes directly, with no
// generator policy involved — exercising the constructed object graph
// end to end is this command's job, not reimplementing the
// collaborator-owned interactive shell.
func demoWorkload() []*procmodel.Process {
	counter := []instr.Instruction{
		{Kind: instr.Declare, Dest: "i", LHS: instr.Lit(0)},
		{Kind: instr.Add, Dest: "i", LHS: instr.VarTok("i"), RHS: instr.Lit(1)},
		{Kind: instr.Print, PrintTok: instr.VarTok("i")},
	}
	sleepy := []instr.Instruction{
		{Kind: instr.Declare, Dest: "x", LHS: instr.Lit(7)},
		{Kind: instr.Sleep, SleepTicks: 3},
		{Kind: instr.Print, PrintTok: instr.VarTok("x")},
	}
	loopy := instr.Unroll([]instr.Instruction{
		{
			Kind:      instr.For,
			RepeatRaw: "4",
			Body: []instr.Instruction{
				{Kind: instr.Add, Dest: "y", LHS: instr.VarTok("y"), RHS: instr.Lit(2)},
			},
		},
	})
	loopy = append([]instr.Instruction{{Kind: instr.Declare, Dest: "y", LHS: instr.Lit(0)}}, loopy...)

	return []*procmodel.Process{
		procmodel.NewProcess(1, "counter", counter, 0),
		procmodel.NewProcess(2, "sleepy", sleepy, 0),
		procmodel.NewProcess(3, "loopy", loopy, 0),
	}
}
