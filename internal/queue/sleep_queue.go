package queue

import (
	"container/heap"
	"fmt"
	"strings"
	"sync"

	"github.com/sisoputnfrba/go-procsched/internal/procmodel"
)

type sleepEntry struct {
	process  *procmodel.Process
	wakeTick uint64
}

type sleepHeap []sleepEntry

func (h sleepHeap) Len() int            { return len(h) }
func (h sleepHeap) Less(i, j int) bool  { return h[i].wakeTick < h[j].wakeTick }
func (h sleepHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *sleepHeap) Push(x interface{}) { *h = append(*h, x.(sleepEntry)) }
func (h *sleepHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// SleepQueue is the medium-term queue holding processes serving a SLEEP
// instruction, ordered by wake tick so timer_check only has to look at the
// earliest entries.
type SleepQueue struct {
	mu sync.Mutex
	h  sleepHeap
}

// NewSleepQueue builds an empty sleep queue.
func NewSleepQueue() *SleepQueue {
	return &SleepQueue{}
}

// Push schedules process p to wake at wakeTick.
func (s *SleepQueue) Push(p *procmodel.Process, wakeTick uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	heap.Push(&s.h, sleepEntry{process: p, wakeTick: wakeTick})
}

// DrainDue pops and returns every process whose wake tick is <= now, in
// wake-tick order. The scheduler's timer_check phase calls this once per
// tick rather than peeking one entry at a time.
func (s *SleepQueue) DrainDue(now uint64) []*procmodel.Process {
	s.mu.Lock()
	defer s.mu.Unlock()
	var due []*procmodel.Process
	for len(s.h) > 0 && s.h[0].wakeTick <= now {
		entry := heap.Pop(&s.h).(sleepEntry)
		due = append(due, entry.process)
	}
	return due
}

// Len returns how many processes are currently asleep.
func (s *SleepQueue) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.h)
}

// Snapshot renders each sleeping process alongside its wake tick.
func (s *SleepQueue) Snapshot() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var b strings.Builder
	fmt.Fprintf(&b, "sleeping (%d):\n", len(s.h))
	for _, entry := range s.h {
		fmt.Fprintf(&b, "  wake_tick=%d %s\n", entry.wakeTick, entry.process.SummaryLine())
	}
	return b.String()
}
