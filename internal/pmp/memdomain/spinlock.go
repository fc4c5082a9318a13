package memdomain

import (
	"runtime"
	"sync/atomic"
)

// spinLock is a minimal test-and-set lock. The protected sections are
// short and allocation-free, so spinning beats parking; Gosched keeps a
// contended spin from starving the holder on an oversubscribed host.
type spinLock struct {
	state atomic.Uint32
}

func (l *spinLock) lock() {
	for !l.state.CompareAndSwap(0, 1) {
		runtime.Gosched()
	}
}

func (l *spinLock) unlock() {
	l.state.Store(0)
}

// domainLock serializes partition mutation, resynchronization and buffer
// validation across all domains, mirroring the single kernel-wide domain
// lock of the surrounding kernel.
var domainLock spinLock

// Lock acquires the shared domain lock.
//
//go:nosplit
func Lock() {
	domainLock.lock()
}

// Unlock releases the shared domain lock.
//
//go:nosplit
func Unlock() {
	domainLock.unlock()
}
