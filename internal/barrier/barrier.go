// Package barrier implements the cyclic rendezvous the scheduler's tick
// loop and its CPU workers use three times per tick. The standard library
// has no reusable barrier primitive, so this is the one piece of plumbing
// every component above it depends on.
package barrier

import "sync"

// Barrier is a cyclic barrier for a fixed number of parties: Wait blocks
// until every party has arrived, then releases all of them together and
// resets for the next cycle.
type Barrier struct {
	mu         sync.Mutex
	cond       *sync.Cond
	parties    int
	waiting    int
	generation int
}

// New builds a Barrier for n parties.
func New(n int) *Barrier {
	b := &Barrier{parties: n}
	b.cond = sync.NewCond(&b.mu)
	return b
}

// Wait blocks the calling goroutine until every party for this cycle has
// arrived, then returns for all of them simultaneously.
func (b *Barrier) Wait() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.parties <= 0 {
		return
	}

	gen := b.generation
	b.waiting++
	if b.waiting == b.parties {
		b.waiting = 0
		b.generation++
		b.cond.Broadcast()
		return
	}
	for gen == b.generation {
		b.cond.Wait()
	}
}

// ArriveAndDrop permanently removes one party from the barrier, used by a
// CPU worker shutting down mid-cycle so the remaining parties (and the
// scheduler) don't wait forever for it. If every remaining party was
// already waiting, dropping this one releases the cycle immediately.
func (b *Barrier) ArriveAndDrop() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.parties <= 0 {
		return
	}
	b.parties--
	if b.parties > 0 && b.waiting >= b.parties {
		b.waiting = 0
		b.generation++
		b.cond.Broadcast()
	} else if b.parties == 0 {
		b.waiting = 0
		b.generation++
		b.cond.Broadcast()
	}
}

// Parties returns the current party count.
func (b *Barrier) Parties() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.parties
}
