package downloader

import "sync"

// Semaphore that allows dynamic resizing.
//
// It uses a sync.Cond, to allow dynamic resizing, so it will be slower than a pure channel version
// of a semaphore, with a fixed capacity. This shouldn't matter for coarse resource control like
// the number of parallel downloads.
type Semaphore struct {
	cond              sync.Cond
	capacity, current int // Tracks capacity and current usage.
}

// NewSemaphore returns a Semaphore that allows at most capacity simultaneous acquisitions.
// If capacity <= 0, there is no limit on acquisitions.
func NewSemaphore(capacity int) *Semaphore {
	return &Semaphore{
		cond:     sync.Cond{L: &sync.Mutex{}},
		capacity: capacity,
	}
}

// Acquire resource observing current semaphore capacity.
// It must be matched by exactly one call to Semaphore.Release after the reservation is no longer needed.
func (s *Semaphore) Acquire() {
	s.cond.L.Lock()
	defer s.cond.L.Unlock()
	for s.capacity > 0 && s.current >= s.capacity {
		s.cond.Wait()
	}
	s.current++
}

// Release resource previously allocated with Semaphore.Acquire.
func (s *Semaphore) Release() {
	s.cond.L.Lock()
	defer s.cond.L.Unlock()
	s.current--
	s.cond.Signal()
}

// Resize number of available resources in the Semaphore.
//
// Growing it may immediately allow pending Semaphore.Acquire to proceed, in which case the queue
// order may be lost. Shrinking it doesn't affect current acquisitions.
func (s *Semaphore) Resize(newCapacity int) {
	s.cond.L.Lock()
	defer s.cond.L.Unlock()
	grows := newCapacity <= 0 || (s.capacity > 0 && newCapacity > s.capacity)
	s.capacity = newCapacity
	if grows {
		s.cond.Broadcast()
	}
}

// InUse returns the number of current acquisitions.
func (s *Semaphore) InUse() int {
	s.cond.L.Lock()
	defer s.cond.L.Unlock()
	return s.current
}
