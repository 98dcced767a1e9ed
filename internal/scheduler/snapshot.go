package scheduler

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// housekeeping runs the two independently-cadenced bookkeeping jobs off
// the same tick counter: pushing a snapshot line into the bounded log ring
// every SnapshotCooldown ticks, and writing the five per-queue log files
// every SaveSnapshotFileRate ticks. Neither cadence is driven by wall
// clock time.
func (s *Scheduler) housekeeping(tick uint64) {
	s.ticksSinceSnapshot++
	if s.ticksSinceSnapshot >= s.cfg.SnapshotCooldown && s.cfg.SnapshotCooldown > 0 {
		s.ticksSinceSnapshot = 0
		s.logRing.Send(fmt.Sprintf("tick=%d\n%s", tick, s.Snapshot()))
	}

	s.ticksSinceSaveFile++
	if s.ticksSinceSaveFile >= s.cfg.SaveSnapshotFileRate && s.cfg.SaveSnapshotFileRate > 0 {
		s.ticksSinceSaveFile = 0
		s.writeSnapshotFiles(tick)
	}
}

// Snapshot renders every queue's current contents plus the running vector
// and memory pool stats into a single human-readable report.
func (s *Scheduler) Snapshot() string {
	var b strings.Builder
	fmt.Fprintf(&b, "tick=%d policy=%s\n", s.CurrentTick(), s.ready.Policy())

	s.shortTermMu.Lock()
	fmt.Fprintf(&b, "running (%d cores):\n", len(s.running))
	for core, p := range s.running {
		if p == nil {
			fmt.Fprintf(&b, "  core=%d idle\n", core)
			continue
		}
		fmt.Fprintf(&b, "  core=%d quantum=%d %s\n", core, s.quantumRemaining[core], p.SummaryLine())
	}
	s.shortTermMu.Unlock()

	b.WriteString(s.jobQueue.Snapshot())
	b.WriteString(s.ready.Snapshot())
	b.WriteString(s.blockedQueue.Snapshot())
	b.WriteString(s.sleepQueue.Snapshot())
	b.WriteString(s.swappedQueue.Snapshot())
	b.WriteString(s.finished.Snapshot())

	stats := s.mm.Stats()
	fmt.Fprintf(&b, "memory frames_total=%d frames_free=%d paged_in=%d paged_out=%d\n",
		stats.FramesTotal, stats.FramesFree, stats.PagedIn, stats.PagedOut)

	return b.String()
}

// SnapshotWithLog appends the bounded log ring's currently buffered lines
// after the regular snapshot report, for a caller that wants recent
// history alongside current state.
func (s *Scheduler) SnapshotWithLog() string {
	var b strings.Builder
	b.WriteString(s.Snapshot())
	b.WriteString("log:\n")
	for {
		line, ok := s.logRing.TryReceive()
		if !ok {
			break
		}
		fmt.Fprintf(&b, "  %s\n", line)
	}
	return b.String()
}

// writeSnapshotFiles persists the five per-queue log files spec.md §6
// names, under cfg.LogDir/cfg.LogFilePrefix_{...}.log.
func (s *Scheduler) writeSnapshotFiles(tick uint64) {
	if err := os.MkdirAll(s.cfg.LogDir, 0o755); err != nil {
		s.logger.Error("housekeeping: creating log dir failed", "dir", s.cfg.LogDir, "err", err)
		return
	}

	files := map[string]string{
		"sleep":       s.sleepQueue.Snapshot(),
		"ready":       s.ready.Snapshot(),
		"job":         s.jobQueue.Snapshot(),
		"finished":    s.finished.Snapshot(),
		"running_cpu": s.runningSnapshot(),
	}

	for suffix, content := range files {
		path := filepath.Join(s.cfg.LogDir, fmt.Sprintf("%s_%s.log", s.cfg.LogFilePrefix, suffix))
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			s.logger.Error("housekeeping: writing snapshot file failed", "path", path, "tick", tick, "err", err)
		}
	}
}

func (s *Scheduler) runningSnapshot() string {
	var b strings.Builder
	s.shortTermMu.Lock()
	defer s.shortTermMu.Unlock()
	fmt.Fprintf(&b, "running_cpu (%d cores):\n", len(s.running))
	for core, p := range s.running {
		if p == nil {
			fmt.Fprintf(&b, "  core=%d idle\n", core)
			continue
		}
		fmt.Fprintf(&b, "  core=%d quantum=%d %s\n", core, s.quantumRemaining[core], p.SummaryLine())
	}
	return b.String()
}
