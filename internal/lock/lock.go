// Package lock provides the two process-wide exclusive locks workers
// contend on: the installer lock and the download lock. Both are plain
// sync.Mutex wrappers; the download lock additionally supports a no-op
// mode so that parallel-download runs pay no contention cost while still
// going through the same Lock/Unlock call sites as serialized runs (see
// spec §9, "Runtime dispatch on lock behaviour").
package lock

import "sync"

// Lock is a mutual-exclusion lock that can be switched into a no-op mode.
// A zero Lock is a real, contending lock.
type Lock struct {
	mu     sync.Mutex
	noop   bool
	counts *Counter
}

// Counter tracks how many times a Lock's critical section was entered and
// whether any two entries overlapped in wall time. Tests substitute a
// Counter to assert the InstallerLock invariant (spec §8 property 6).
type Counter struct {
	mu      sync.Mutex
	held    bool
	Count   int
	Overlap bool
}

func (c *Counter) enter() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.held {
		c.Overlap = true
	}
	c.held = true
	c.Count++
}

func (c *Counter) leave() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.held = false
}

// NewNoOp returns a Lock whose Lock/Unlock are no-ops. Used for the
// download lock when parallel downloads are enabled: workers still call
// Lock/Unlock around every fetch, so the code path is identical in both
// modes, but no contention is introduced (spec §4.6 step 4).
func NewNoOp() *Lock {
	return &Lock{noop: true}
}

// Instrument attaches a Counter so tests can observe acquire/release pairs.
func (l *Lock) Instrument(c *Counter) {
	l.counts = c
}

// Lock acquires the lock, unless it is in no-op mode.
func (l *Lock) Lock() {
	if l.noop {
		return
	}
	l.mu.Lock()
	if l.counts != nil {
		l.counts.enter()
	}
}

// Unlock releases the lock, unless it is in no-op mode.
func (l *Lock) Unlock() {
	if l.noop {
		return
	}
	if l.counts != nil {
		l.counts.leave()
	}
	l.mu.Unlock()
}
