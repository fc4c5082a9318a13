package unit

import (
	"github.com/kolkov/riscvpmp/internal/pmp/entry"
	"github.com/kolkov/riscvpmp/internal/pmp/memdomain"
	"github.com/kolkov/riscvpmp/internal/pmp/thread"
)

// isWithin reports whether [innerStart, innerStart+innerSize) lies entirely
// inside [outerStart, outerStart+outerSize). Written to be overflow-safe:
// the subtraction form never computes an end address.
//
//go:nosplit
func isWithin(innerStart, innerSize, outerStart, outerSize uintptr) bool {
	return innerStart >= outerStart && innerSize <= outerSize &&
		innerStart-outerStart <= outerSize-innerSize
}

// Validate reports whether the thread may access [addr, addr+size) with
// the given access kind (write=false means read).
//
// Allowed when the range lies entirely inside the thread's own stack, or
// (for reads) entirely inside the global read-only image, or entirely
// inside exactly one domain partition granting the requested permission.
// Anything else is denied, including ranges straddling a partition
// boundary or falling into an unmapped gap.
//
// This gates every privileged access to unprivileged-originated memory: it
// takes the same lock as the resync path so it never reads the partition
// list mid-mutation, and the locked section is allocation-free and
// O(partition count).
func (u *Unit) Validate(t *thread.Thread, addr, size uintptr, write bool) bool {
	// The thread's own stack is always accessible to it.
	if isWithin(addr, size, t.StackStart, t.StackSize) {
		return true
	}

	// The global read-only image satisfies read checks for every thread.
	if !write && isWithin(addr, size, u.cfg.ROMStart, u.cfg.ROMSize) {
		return true
	}

	d := t.Domain
	if d == nil {
		return false
	}

	need := entry.PermR
	if write {
		need = entry.PermW
	}

	allowed := false

	memdomain.Lock()
	remaining := d.Len()
	for id := 0; remaining > 0; id++ {
		p := d.At(id)
		if p.Empty() {
			continue
		}
		remaining--

		if !isWithin(addr, size, p.Start, p.Size) {
			continue
		}

		// Partition matched: the access result is its attribute's call.
		allowed = p.Attr&need != 0
		break
	}
	memdomain.Unlock()

	return allowed
}
