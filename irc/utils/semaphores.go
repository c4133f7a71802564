// Copyright (c) 2026 boardirc contributors
// released under the MIT license

package utils

import (
	"context"
	"time"
)

// Semaphore is a counting semaphore. Note that a capacity of n requires O(n) storage.
// The zero value (no capacity) is never acquirable; use Initialize.
type Semaphore (chan struct{})

// Initialize initializes a semaphore to a given capacity.
func (semaphore *Semaphore) Initialize(capacity int) {
	*semaphore = make(chan struct{}, capacity)
	for i := 0; i < capacity; i++ {
		(*semaphore) <- struct{}{}
	}
}

// Acquire acquires a semaphore, blocking if necessary.
func (semaphore *Semaphore) Acquire() {
	<-(*semaphore)
}

// TryAcquire tries to acquire a semaphore, returning whether the acquire was
// successful. It never blocks.
func (semaphore *Semaphore) TryAcquire() (acquired bool) {
	select {
	case <-(*semaphore):
		return true
	default:
		return false
	}
}

// AcquireWithTimeout tries to acquire a semaphore, blocking for a maximum
// of approximately `d` while waiting for it. It returns whether the acquire
// was successful.
func (semaphore *Semaphore) AcquireWithTimeout(timeout time.Duration) (acquired bool) {
	if timeout < 0 {
		return semaphore.TryAcquire()
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-(*semaphore):
		return true
	case <-timer.C:
		return false
	}
}

// AcquireWithContext tries to acquire a semaphore, giving up when ctx is done.
func (semaphore *Semaphore) AcquireWithContext(ctx context.Context) (acquired bool) {
	select {
	case <-(*semaphore):
		return true
	case <-ctx.Done():
		return false
	}
}

// Release releases a semaphore. It never blocks, and reports false on a
// spurious release (one with no matching acquire).
func (semaphore *Semaphore) Release() (ok bool) {
	select {
	case (*semaphore) <- struct{}{}:
		return true
	default:
		return false
	}
}
