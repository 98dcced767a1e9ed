package queue

import (
	"fmt"
	"strings"
	"sync"

	"github.com/sisoputnfrba/go-procsched/internal/policy"
	"github.com/sisoputnfrba/go-procsched/internal/procmodel"
)

// DynamicVictimChannel is the short-term ready set: a policy-sorted
// multiset of processes that can be drained from either end — ReceiveNext
// for normal dispatch, ReceiveVictim when a scheduling decision needs the
// least-eligible process instead (e.g. an aging/starvation sweep).
// Re-sorting on SetPolicy keeps the invariant that switching policy and
// back yields the same order modulo tiebreak.
type DynamicVictimChannel struct {
	mu     sync.Mutex
	items  []*procmodel.Process
	policy policy.Policy
}

// NewDynamicVictimChannel builds an empty ready set ordered by p.
func NewDynamicVictimChannel(p policy.Policy) *DynamicVictimChannel {
	return &DynamicVictimChannel{policy: p}
}

// SetPolicy changes the ordering policy and re-sorts the current contents.
func (v *DynamicVictimChannel) SetPolicy(p policy.Policy) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.policy = p
	v.sortLocked()
}

// Policy returns the ordering policy currently in effect.
func (v *DynamicVictimChannel) Policy() policy.Policy {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.policy
}

// Send inserts a process into its sorted position under the current policy.
func (v *DynamicVictimChannel) Send(p *procmodel.Process) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.items = append(v.items, p)
	v.sortLocked()
}

func (v *DynamicVictimChannel) sortLocked() {
	pol := v.policy
	items := v.items
	for i := 1; i < len(items); i++ {
		for j := i; j > 0 && policy.Less(items[j], items[j-1], pol); j-- {
			items[j], items[j-1] = items[j-1], items[j]
		}
	}
}

// ReceiveNext pops the head of the ready set — the most eligible process
// under the current policy — or returns nil if it's empty.
func (v *DynamicVictimChannel) ReceiveNext() *procmodel.Process {
	v.mu.Lock()
	defer v.mu.Unlock()
	if len(v.items) == 0 {
		return nil
	}
	p := v.items[0]
	v.items = v.items[1:]
	return p
}

// ReceiveVictim pops the tail of the ready set — the least eligible
// process under the current policy — or returns nil if it's empty.
func (v *DynamicVictimChannel) ReceiveVictim() *procmodel.Process {
	v.mu.Lock()
	defer v.mu.Unlock()
	n := len(v.items)
	if n == 0 {
		return nil
	}
	p := v.items[n-1]
	v.items = v.items[:n-1]
	return p
}

// Contains reports whether pid is currently in the ready set, used by the
// scheduler's enqueue path to avoid queuing a process twice.
func (v *DynamicVictimChannel) Contains(pid uint32) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	for _, p := range v.items {
		if p.ID() == pid {
			return true
		}
	}
	return false
}

// Len returns how many processes are currently queued.
func (v *DynamicVictimChannel) Len() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.items)
}

// Snapshot renders the ready set's current order, one summary line per
// process.
func (v *DynamicVictimChannel) Snapshot() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	var b strings.Builder
	fmt.Fprintf(&b, "ready (%s, %d):\n", v.policy, len(v.items))
	for _, p := range v.items {
		fmt.Fprintf(&b, "  %s\n", p.SummaryLine())
	}
	return b.String()
}
