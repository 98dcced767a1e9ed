package queue

import (
	"fmt"
	"strings"
	"sync"

	"github.com/sisoputnfrba/go-procsched/internal/procmodel"
)

// FinishedMap is the terminal record of every process that has run to
// completion, kept ordered by finish time (newest first) and bounded to a
// configured capacity — once full, the oldest record is dropped to make
// room for a new one.
type FinishedMap struct {
	mu       sync.Mutex
	entries  []*procmodel.Process // index 0 is newest
	capacity int
}

// NewFinishedMap builds a FinishedMap bounded to capacity entries. A
// capacity of 0 means unbounded.
func NewFinishedMap(capacity int) *FinishedMap {
	return &FinishedMap{capacity: capacity}
}

// Insert records p as finished. The caller is responsible for having
// already won Process.MarkFinishedLogged's CompareAndSwap, so this never
// needs to dedup by pid itself.
func (f *FinishedMap) Insert(p *procmodel.Process) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append([]*procmodel.Process{p}, f.entries...)
	if f.capacity > 0 && len(f.entries) > f.capacity {
		f.entries = f.entries[:f.capacity]
	}
}

// Len returns the current record count.
func (f *FinishedMap) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.entries)
}

// All returns the finished records, newest first.
func (f *FinishedMap) All() []*procmodel.Process {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*procmodel.Process, len(f.entries))
	copy(out, f.entries)
	return out
}

// Snapshot renders every finished record, newest first.
func (f *FinishedMap) Snapshot() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var b strings.Builder
	fmt.Fprintf(&b, "finished (%d/%d):\n", len(f.entries), f.capacity)
	for _, p := range f.entries {
		fmt.Fprintf(&b, "  %s\n", p.SummaryLine())
	}
	return b.String()
}
