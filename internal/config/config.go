// Package config provides the typed Config struct and the generic JSON
// loader the demo CLI uses to build one from a file on disk.
package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// Config mirrors every configuration key the core's collaborators are
// expected to supply. It performs no interpretation of the values — that
// remains the generator/collaborator's job — just JSON decode plus
// defaults.
type Config struct {
	NumCPU int `json:"num_cpu"`

	SchedulerPolicy string `json:"scheduler"` // "fcfs" | "rr" | "priority"
	QuantumCycles   uint32 `json:"quantum_cycles"`

	BatchProcessFreq uint32 `json:"batch_process_freq"`
	MinIns           uint32 `json:"min_ins"`
	MaxIns           uint32 `json:"max_ins"`

	DelayPerExec       uint32 `json:"delay_per_exec"`
	SchedulerTickDelay uint32 `json:"scheduler_tick_delay_ms"`

	MaxUnrolledInstructions int `json:"max_unrolled_instructions"`

	SnapshotCooldown   uint64 `json:"snapshot_cooldown"`
	SaveSnapshotFileRate uint64 `json:"save_snapshot_file_rate"`
	SnapshotLogCapacity int    `json:"snapshot_log_capacity"`

	RemoveFinished         bool `json:"remove_finished"`
	RemoveFinishedCapacity int  `json:"remove_finished_capacity"`

	MaxOverallMem uint64 `json:"max_overall_mem"`
	MemPerFrame   uint64 `json:"mem_per_frame"`
	MinMemPerProc uint64 `json:"min_mem_per_proc"`
	MaxMemPerProc uint64 `json:"max_mem_per_proc"`

	MaxGeneratedProcesses int `json:"max_generated_processes"`

	EagerPaging bool `json:"eager_paging"`

	LogLevel      string `json:"log_level"` // "debug" | "info" | "warn" | "error"
	BackingStoreDir string `json:"backing_store_dir"`
	LogDir          string `json:"log_dir"`
	LogFilePrefix   string `json:"log_file_prefix"`
}

// Default returns the values spec.md's end-to-end scenarios exercise:
// 2 CPUs, round robin with a quantum of 2, a small bounded memory pool.
func Default() Config {
	return Config{
		NumCPU:                  2,
		SchedulerPolicy:         "rr",
		QuantumCycles:           2,
		BatchProcessFreq:        1,
		MinIns:                  1,
		MaxIns:                  10,
		DelayPerExec:            0,
		SchedulerTickDelay:      0,
		MaxUnrolledInstructions: 1000,
		SnapshotCooldown:        5,
		SaveSnapshotFileRate:    20,
		SnapshotLogCapacity:     256,
		RemoveFinished:          true,
		RemoveFinishedCapacity:  100,
		MaxOverallMem:           4096,
		MemPerFrame:             16,
		MinMemPerProc:           64,
		MaxMemPerProc:           256,
		MaxGeneratedProcesses:   50,
		EagerPaging:             false,
		LogLevel:                "info",
		BackingStoreDir:         "backing_store",
		LogDir:                  "logs",
		LogFilePrefix:           "procsched",
	}
}

// Load decodes a JSON configuration file of type T, grounded on the
// teacher's generic CargarConfiguracion[T] loader: a thin decode, no field
// interpretation.
func Load[T any](path string) (*T, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: opening %s: %w", path, err)
	}
	defer f.Close()

	var cfg T
	dec := json.NewDecoder(f)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("config: decoding %s: %w", path, err)
	}
	return &cfg, nil
}
