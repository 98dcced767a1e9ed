package queue

// Semaphore is a channel-based counting semaphore: Acquire blocks while no
// permit is available, Release returns one. BufferedChannel's block-on-full
// send mode is built directly on top of it instead of a condition variable,
// the same way the teacher's module-registration code gates concurrent
// access with a buffered struct{} channel rather than sync.Cond.
type Semaphore struct {
	permits chan struct{}
}

// NewSemaphore creates a Semaphore starting with n permits available.
func NewSemaphore(n int) *Semaphore {
	s := &Semaphore{permits: make(chan struct{}, n)}
	for i := 0; i < n; i++ {
		s.permits <- struct{}{}
	}
	return s
}

// Acquire blocks until a permit is available.
func (s *Semaphore) Acquire() {
	<-s.permits
}

// TryAcquire grabs a permit without blocking, reporting whether it got one.
func (s *Semaphore) TryAcquire() bool {
	select {
	case <-s.permits:
		return true
	default:
		return false
	}
}

// Release returns a permit. Releasing beyond capacity blocks until a permit
// is taken, same as sending on a full channel would.
func (s *Semaphore) Release() {
	s.permits <- struct{}{}
}
