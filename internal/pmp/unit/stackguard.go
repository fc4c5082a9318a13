package unit

import (
	"github.com/kolkov/riscvpmp/internal/pmp/entry"
	"github.com/kolkov/riscvpmp/internal/pmp/shadow"
	"github.com/kolkov/riscvpmp/internal/pmp/thread"
)

// StackGuardPrepare builds the privileged-mode PMP content for a thread.
// Called once at thread creation; the store is written to hardware by
// StackGuardEnable on every switch to the thread.
//
// Slot exhaustion here is a fatal sizing defect: the global entries, one
// guard and the fallback are statically known to fit.
func (u *Unit) StackGuardPrepare(t *thread.Thread) {
	// Boot finished before any thread exists; the cache is stable and
	// read without the boot mutex from here on.
	index := u.globalEnd

	t.MMode.SetConfigPrefix(u.globalCfg)

	// Make the bottom of the thread's privileged stack inaccessible.
	if !t.MMode.Set(&index, entry.PermNone, false, t.GuardBase(), u.cfg.StackGuardSize, shadow.SlotCount) {
		panic("pmp: out of PMP slots for stack guard")
	}

	// With the bypass bit set, privileged accesses are matched against
	// these entries too. Add a catch-all so anything without a specific
	// match behaves as if PMP were absent, which is otherwise the
	// privileged-mode default.
	if !t.MMode.Set(&index, entry.PermR|entry.PermW|entry.PermX, false, 0, 0, shadow.SlotCount) {
		panic("pmp: out of PMP slots for stack guard fallback")
	}

	t.MModeEnd = index
}

// StackGuardEnable writes the thread's privileged entries to hardware.
// Called on every switch to the thread, with preemption excluded.
//
// The three-step ordering is a hard correctness requirement: the bypass
// bit changes which privilege level the non-locked entries apply to, so it
// must be clear while they are reprogrammed, and set again only once the
// new content is live.
func (u *Unit) StackGuardEnable(cpu *CPU, t *thread.Thread) {
	cpu.Status.ClearBypass()

	// The global prefix is immutable and stays untouched; no trailing
	// clear, the fallback entry ends the m-mode range on purpose.
	t.MMode.Write(cpu.Regs, u.globalEnd, t.MModeEnd, false)

	cpu.Status.SetBypass()

	u.guardEnables.Add(1)
}
