// Package main provides the procschedctl command-line tool, a small demo
// harness around the scheduler package.
package main

import "github.com/spf13/cobra"

var rootCmd = &cobra.Command{
	Use:   "procschedctl",
	Short: "procschedctl drives a tick-based process scheduler emulator.",
	Long: `procschedctl boots a Scheduler, submits a small synthetic workload, ` +
		`lets it tick for a wall-clock period set by --ticks, and prints a snapshot ` +
		`of its queues, running processes and memory pool.`,
}
