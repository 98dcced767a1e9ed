// Package queue implements the job/ready/blocked/sleep/finished queue
// pipeline sitting between the scheduler's admission, dispatch and
// housekeeping phases.
package queue

import (
	"fmt"
	"strings"
	"sync"
)

// Snapshotter is implemented by every queue type; Scheduler.Snapshot
// concatenates their Snapshot output, one section per queue.
type Snapshotter interface {
	Snapshot() string
}

// Channel is an unbounded FIFO: Send never blocks, Receive blocks until an
// item is available. It backs the job, blocked and swapped-out queues.
type Channel[T any] struct {
	mu    sync.Mutex
	cond  *sync.Cond
	items []T
	label string
}

// NewChannel builds an empty, unbounded Channel. label is used only by
// Snapshot's header line.
func NewChannel[T any](label string) *Channel[T] {
	c := &Channel[T]{label: label}
	c.cond = sync.NewCond(&c.mu)
	return c
}

// Send appends an item and wakes one blocked receiver.
func (c *Channel[T]) Send(item T) {
	c.mu.Lock()
	c.items = append(c.items, item)
	c.mu.Unlock()
	c.cond.Signal()
}

// Receive blocks until an item is available, then returns it FIFO order.
func (c *Channel[T]) Receive() T {
	c.mu.Lock()
	defer c.mu.Unlock()
	for len(c.items) == 0 {
		c.cond.Wait()
	}
	item := c.items[0]
	c.items = c.items[1:]
	return item
}

// TryReceive is the non-blocking counterpart Receive's callers in the
// scheduler's own tick loop use instead — the tick loop never blocks
// waiting on a queue, it drains whatever is available and moves on.
func (c *Channel[T]) TryReceive() (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.items) == 0 {
		var zero T
		return zero, false
	}
	item := c.items[0]
	c.items = c.items[1:]
	return item, true
}

// IsEmpty reports whether the channel currently holds no items.
func (c *Channel[T]) IsEmpty() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items) == 0
}

// Len returns the current item count.
func (c *Channel[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Snapshot renders the queue's label and current contents via fmt.Stringer
// (or fmt.Sprintf fallback) for each item, one per line.
func (c *Channel[T]) Snapshot() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var b strings.Builder
	fmt.Fprintf(&b, "%s (%d):\n", c.label, len(c.items))
	for _, item := range c.items {
		fmt.Fprintf(&b, "  %v\n", item)
	}
	return b.String()
}
