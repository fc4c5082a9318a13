package unit

import (
	"fmt"

	"github.com/kolkov/riscvpmp/internal/pmp/entry"
	"github.com/kolkov/riscvpmp/internal/pmp/memdomain"
	"github.com/kolkov/riscvpmp/internal/pmp/shadow"
	"github.com/kolkov/riscvpmp/internal/pmp/thread"
)

// UserModeInit marks a new thread's unprivileged PMP content as not yet
// prepared. Called at thread creation; threads that never enter
// unprivileged mode stay in this state and UserModeEnable is a no-op for
// them.
func (u *Unit) UserModeInit(t *thread.Thread) {
	t.UModeEnd = 0
}

// UserModePrepare builds the fixed part of a thread's unprivileged PMP
// content: the global prefix and the thread's own stack. Called once
// before the first transition to unprivileged mode.
//
// Partition entries are appended later, starting at DomainOffset, by the
// resync path; SyncedGen is seeded with the sentinel so the first enable
// always resynchronizes.
func (u *Unit) UserModePrepare(t *thread.Thread) {
	index := u.globalEnd

	t.UMode.SetConfigPrefix(u.globalCfg)

	// Map the unprivileged stack.
	if !t.UMode.Set(&index, entry.PermR|entry.PermW, false, t.StackStart, t.StackSize, shadow.SlotCount) {
		panic("pmp: out of PMP slots for user stack")
	}

	t.DomainOffset = index
	t.UModeEnd = index
	t.SyncedGen = memdomain.SentinelGeneration
}

// resyncDomain rebuilds the thread's partition entries from the domain's
// current partition list.
//
// Undersized (sub-granularity) partitions are a caller misconfiguration:
// logged and skipped, since guessing an encoding would be worse. Slot
// exhaustion is fatal: the capacity estimate promises it cannot happen, so
// hitting it signals an upstream configuration defect, not a runtime
// condition to degrade from.
func (u *Unit) resyncDomain(t *thread.Thread, d *memdomain.Domain) {
	index := t.DomainOffset

	memdomain.Lock()
	defer memdomain.Unlock()

	remaining := d.Len()
	for id := 0; remaining > 0; id++ {
		p := d.At(id)
		if p.Empty() {
			continue
		}
		remaining--

		if p.Size < entry.Granularity {
			logger.Error("non-empty partition too small",
				"start", fmt.Sprintf("0x%x", p.Start), "size", p.Size)
			u.skippedParts.Add(1)
			continue
		}

		if !t.UMode.Set(&index, p.Attr, false, p.Start, p.Size, shadow.SlotCount) {
			panic(fmt.Sprintf("pmp: no PMP slot left for %d remaining domain partitions",
				remaining+1))
		}
	}

	t.UModeEnd = index
	t.SyncedGen = d.Generation()

	u.resyncs.Add(1)
}

// UserModeEnable writes the thread's unprivileged entries to hardware.
// Called on every switch to unprivileged mode, with preemption excluded.
//
// A thread whose u-mode content was never prepared has nothing to enforce
// yet: no-op. Stale content (generation mismatch) is resynchronized first.
func (u *Unit) UserModeEnable(cpu *CPU, t *thread.Thread) {
	if t.UModeEnd == 0 {
		return
	}

	if t.SyncedGen != t.Domain.Generation() {
		u.resyncDomain(t, t.Domain)
	}

	if u.cfg.StackGuard {
		// Privileged PMP usage must be off before we reprogram the
		// entries it matches against.
		cpu.Status.ClearBypass()
	}

	// Always clear trailing entries: the domain may have shrunk since the
	// previous synchronization and stale tail entries must not stay live.
	t.UMode.Write(cpu.Regs, u.globalEnd, t.UModeEnd, true)

	u.userEnables.Add(1)
}

// DomainThreadAdd forces resynchronization for a thread that was just
// assigned to a domain.
func (u *Unit) DomainThreadAdd(t *thread.Thread) {
	t.SyncedGen = memdomain.SentinelGeneration
}

// DomainThreadRemove is the counterpart hook for thread removal. Nothing
// to do: the thread's entries die with it.
func (u *Unit) DomainThreadRemove(t *thread.Thread) {
}
