// Package memdomain implements memory domains: the sets of partitions an
// unprivileged thread may access.
//
// A Domain is an ordered, fixed-capacity collection of partitions plus a
// generation counter. The counter is bumped on every partition add or
// remove; threads compare their last-synced value against it to decide
// whether their PMP entries are stale. The comparison is for inequality
// only, never ordering: the counter is a change signal, not a timestamp,
// and a wrapped counter must still read as dirty.
//
// All partition mutation and iteration is serialized by one package-wide
// spinlock, shared between the resync path and the buffer-validation path.
// The critical sections are O(partition count), allocation-free and never
// block.
package memdomain

import (
	"sync/atomic"

	"github.com/kolkov/riscvpmp/internal/pmp/entry"
)

const (
	// MaxPartitions is the build-time partition capacity of a domain.
	// Whether a domain's partitions actually fit the PMP is a separate,
	// per-platform question answered by the capacity estimate.
	MaxPartitions = 16

	// SentinelGeneration never collides with a live generation counter:
	// domains start at 1 and Bump skips 0 on wrap. Seeding a thread's
	// last-synced value with it guarantees the first staleness check
	// reads as dirty.
	SentinelGeneration = 0
)

// Partition is one contiguous range of memory with an access attribute.
// A partition of size 0 is a hole: it stays in its slot but is skipped
// during synchronization and counts against nothing.
type Partition struct {
	// Start is the first byte of the partition. Must be 4-byte aligned.
	Start uintptr

	// Size is the partition length in bytes. Must be 4-byte aligned.
	Size uintptr

	// Attr is the permission set granted to unprivileged accesses.
	Attr entry.Perm
}

// Empty reports whether the partition is a hole.
//
//go:nosplit
func (p Partition) Empty() bool {
	return p.Size == 0
}

// Domain is an ordered collection of partitions shared by the threads
// assigned to it. Create domains with New; the zero value has a dead
// generation counter.
type Domain struct {
	parts    [MaxPartitions]Partition
	numParts int

	// generation is read without the lock from the switch path, so it is
	// atomic. It is only written under the lock.
	generation atomic.Uint32
}

// New creates an empty domain with a live generation counter.
func New() *Domain {
	d := &Domain{}
	d.generation.Store(1)
	return d
}

// Generation returns the current generation counter. Callers compare it
// against a previously observed value for inequality only.
//
//go:nosplit
func (d *Domain) Generation() uint32 {
	return d.generation.Load()
}

// bump marks the domain dirty for every thread using it. Called with the
// domain lock held. Skips the sentinel on wraparound.
func (d *Domain) bump() {
	g := d.generation.Load() + 1
	if g == SentinelGeneration {
		g++
	}
	d.generation.Store(g)
}

// Add inserts a partition into the first free slot and returns its id.
// Returns ok=false when the domain is at capacity or the partition is
// empty. Forces resynchronization for every thread using this domain.
func (d *Domain) Add(p Partition) (id int, ok bool) {
	if p.Empty() {
		return 0, false
	}

	Lock()
	defer Unlock()

	for i := range d.parts {
		if d.parts[i].Empty() {
			d.parts[i] = p
			d.numParts++
			d.bump()
			return i, true
		}
	}
	return 0, false
}

// Remove turns the partition at id into a hole. Returns false when id is
// out of range or already a hole. Forces resynchronization for every
// thread using this domain.
func (d *Domain) Remove(id int) bool {
	if id < 0 || id >= MaxPartitions {
		return false
	}

	Lock()
	defer Unlock()

	if d.parts[id].Empty() {
		return false
	}
	d.parts[id] = Partition{}
	d.numParts--
	d.bump()
	return true
}

// Len returns the number of non-empty partitions. Call with the domain
// lock held when the result steers an iteration.
//
//go:nosplit
func (d *Domain) Len() int {
	return d.numParts
}

// At returns the partition at id, holes included. Call with the domain
// lock held when iterating.
//
//go:nosplit
func (d *Domain) At(id int) Partition {
	return d.parts[id]
}
