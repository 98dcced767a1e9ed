package queue

import (
	"fmt"
	"strings"
	"sync"
)

// BufferMode selects what a BufferedChannel does when Send would exceed
// its capacity.
type BufferMode int

const (
	// BlockOnFull makes Send wait for a receiver to make room.
	BlockOnFull BufferMode = iota
	// Overwrite makes Send drop the oldest queued item to make room,
	// never blocking the sender. Used by the scheduler's log ring, where a
	// slow consumer should never stall the tick loop.
	Overwrite
)

// BufferedChannel is a bounded FIFO. In BlockOnFull mode it is gated by a
// Semaphore sized to its capacity; in Overwrite mode it just evicts the
// oldest item under its own mutex.
type BufferedChannel[T any] struct {
	mu       sync.Mutex
	cond     *sync.Cond
	sem      *Semaphore // non-nil only in BlockOnFull mode
	items    []T
	capacity int
	mode     BufferMode
	label    string
}

// NewBufferedChannel builds a bounded channel of the given capacity and mode.
func NewBufferedChannel[T any](label string, capacity int, mode BufferMode) *BufferedChannel[T] {
	bc := &BufferedChannel[T]{
		capacity: capacity,
		mode:     mode,
		label:    label,
	}
	bc.cond = sync.NewCond(&bc.mu)
	if mode == BlockOnFull {
		bc.sem = NewSemaphore(capacity)
	}
	return bc
}

// Send enqueues an item, blocking in BlockOnFull mode until space frees up,
// or evicting the oldest item in Overwrite mode.
func (bc *BufferedChannel[T]) Send(item T) {
	if bc.mode == BlockOnFull {
		bc.sem.Acquire()
		bc.mu.Lock()
		bc.items = append(bc.items, item)
		bc.mu.Unlock()
		bc.cond.Signal()
		return
	}

	bc.mu.Lock()
	if bc.capacity > 0 && len(bc.items) >= bc.capacity {
		bc.items = bc.items[1:]
	}
	bc.items = append(bc.items, item)
	bc.mu.Unlock()
	bc.cond.Signal()
}

// Receive blocks until an item is available and returns it FIFO order,
// releasing a permit back to waiting senders in BlockOnFull mode.
func (bc *BufferedChannel[T]) Receive() T {
	bc.mu.Lock()
	for len(bc.items) == 0 {
		bc.cond.Wait()
	}
	item := bc.items[0]
	bc.items = bc.items[1:]
	bc.mu.Unlock()

	if bc.mode == BlockOnFull {
		bc.sem.Release()
	}
	return item
}

// TryReceive is the non-blocking counterpart used by the scheduler's tick
// loop when draining the log ring during housekeeping.
func (bc *BufferedChannel[T]) TryReceive() (T, bool) {
	bc.mu.Lock()
	if len(bc.items) == 0 {
		bc.mu.Unlock()
		var zero T
		return zero, false
	}
	item := bc.items[0]
	bc.items = bc.items[1:]
	bc.mu.Unlock()

	if bc.mode == BlockOnFull {
		bc.sem.Release()
	}
	return item, true
}

// SetCapacity resizes the channel, dropping the oldest items down to the
// new capacity in Overwrite mode and waking anyone blocked on space or on
// an empty channel either way.
func (bc *BufferedChannel[T]) SetCapacity(n int) {
	bc.mu.Lock()
	bc.capacity = n
	if bc.mode == Overwrite {
		for len(bc.items) > bc.capacity {
			bc.items = bc.items[1:]
		}
	} else {
		avail := n - len(bc.items)
		if avail < 0 {
			avail = 0
		}
		bc.sem = NewSemaphore(avail)
	}
	bc.mu.Unlock()
	bc.cond.Broadcast()
}

// Len returns the current item count.
func (bc *BufferedChannel[T]) Len() int {
	bc.mu.Lock()
	defer bc.mu.Unlock()
	return len(bc.items)
}

// Snapshot renders the channel's label and contents, one item per line.
func (bc *BufferedChannel[T]) Snapshot() string {
	bc.mu.Lock()
	defer bc.mu.Unlock()
	var b strings.Builder
	fmt.Fprintf(&b, "%s (%d/%d):\n", bc.label, len(bc.items), bc.capacity)
	for _, item := range bc.items {
		fmt.Fprintf(&b, "  %v\n", item)
	}
	return b.String()
}
