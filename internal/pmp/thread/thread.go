// Package thread holds the per-thread PMP state.
//
// The surrounding kernel owns thread lifetime; this package only defines
// the shape the PMP engine consumes. A thread embeds both shadow stores by
// value, so no allocation happens on the switch path and the stores die
// with the thread.
package thread

import (
	"github.com/kolkov/riscvpmp/internal/pmp/memdomain"
	"github.com/kolkov/riscvpmp/internal/pmp/shadow"
)

// Thread is the PMP view of one kernel thread.
//
// The shadow stores and their indices are mutated only by the switch path
// executing as this thread on its current core; no other thread touches
// them, so they carry no lock.
type Thread struct {
	// StackStart and StackSize bound the thread's usable stack. For a
	// user thread this is the unprivileged-mode stack.
	StackStart uintptr
	StackSize  uintptr

	// KernelStackBase is the lowest address of the thread's privileged
	// stack allocation; the guard region sits at its bottom.
	KernelStackBase uintptr

	// PrivStackStart is the base of a separate privileged-mode stack,
	// 0 when the thread has none.
	PrivStackStart uintptr

	// Domain is the memory domain of a user thread, nil otherwise.
	// Non-owning: domain lifetime is managed by the kernel.
	Domain *memdomain.Domain

	// MMode holds the privileged-mode entries: the global prefix, the
	// stack guard and the bypass fallback. Written to hardware on every
	// switch to this thread.
	MMode shadow.Store

	// UMode holds the unprivileged-mode entries: the global prefix, the
	// thread's own stack and the domain partitions.
	UMode shadow.Store

	// MModeEnd is the end index of the privileged entries, fixed after
	// StackGuardPrepare.
	MModeEnd int

	// UModeEnd is the end index of the unprivileged entries. 0 means the
	// u-mode store was never prepared and there is nothing to enforce.
	UModeEnd int

	// DomainOffset is the first u-mode index after the thread's own
	// stack entry, where partition entries begin on every resync.
	DomainOffset int

	// SyncedGen is the domain generation last synchronized into UMode.
	// The u-mode entries are stale iff it differs from the domain's
	// current generation. Seeded with the sentinel to force the first
	// resync.
	SyncedGen uint32
}

// GuardBase returns the bottom of the region the privileged stack guard
// must cover: the dedicated privileged stack when the thread has one,
// otherwise the base of its kernel stack allocation.
//
//go:nosplit
func (t *Thread) GuardBase() uintptr {
	if t.PrivStackStart != 0 {
		return t.PrivStackStart
	}
	return t.KernelStackBase
}
