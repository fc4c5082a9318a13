// Package unit implements the PMP engine: global entry initialization,
// per-thread stack guards, memory-domain synchronization and buffer
// validation.
//
// One Unit models one PMP-equipped system. Each core runs InitCore once at
// boot to program the CPU-global entries; the resulting end index and
// config prefix are cached and seeded into every thread store, so lower
// slots are never modified again. Thread-specific privileged and
// unprivileged entries start at the cached global end.
//
// Every operation here is synchronous and bounded. The enable paths run
// with preemption already excluded by the caller (the context switch);
// the only cross-thread state they touch is the domain partition list,
// guarded by the shared memdomain lock.
package unit

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/kolkov/riscvpmp/internal/pmp/entry"
	"github.com/kolkov/riscvpmp/internal/pmp/shadow"
)

// logger emits resync diagnostics and debug dumps.
var logger = slog.Default().With("component", "pmp.unit")

// SetLogger replaces the package logger. A nil logger is ignored.
func SetLogger(l *slog.Logger) {
	if l != nil {
		logger = l.With("component", "pmp.unit")
	}
}

// StatusControl drives the bypass bit of the current core's status
// register. ClearBypass must also clear any paired privilege-marker bits
// the bypass depends on, as the hardware requires.
type StatusControl interface {
	ClearBypass()
	SetBypass()
}

// CPU is the per-core hardware access the engine needs: an identity for
// cross-core checks, the core's IRQ stack and the register primitives.
type CPU struct {
	// ID is the core number, used only for diagnostics.
	ID int

	// IRQStackBase is the lowest address of this core's interrupt stack;
	// its bottom gets a guard entry when stack guards are configured.
	IRQStackBase uintptr

	// Regs is the external write primitive for this core's PMP registers.
	Regs shadow.RegisterWriter

	// Status controls this core's bypass bit.
	Status StatusControl
}

// Config carries the build-time layout the engine protects.
type Config struct {
	// ROMStart and ROMSize bound the kernel's read-only code/data image,
	// covered by a locked read+execute entry on every core.
	ROMStart uintptr
	ROMSize  uintptr

	// StackGuard enables privileged stack guards: an IRQ-stack guard
	// entry per core and the bypass-bit choreography on every switch.
	StackGuard bool

	// StackGuardSize is the size of each guard region. Must be 4-byte
	// aligned and is typically a power of two so a guard costs one slot.
	StackGuardSize uintptr
}

// Stats counts engine activity. Counters are updated with atomics so the
// switch path never takes a lock for bookkeeping.
type Stats struct {
	// Resyncs counts domain resynchronizations.
	Resyncs uint64

	// GuardEnables counts privileged-mode register writes at switch time.
	GuardEnables uint64

	// UserEnables counts unprivileged-mode register writes at switch time.
	UserEnables uint64

	// SkippedPartitions counts undersized partitions dropped at resync.
	SkippedPartitions uint64
}

// Unit is the PMP engine for one system.
type Unit struct {
	cfg Config

	// mu guards the one-time global cache handoff between cores at boot.
	mu        sync.Mutex
	booted    bool
	globalEnd int
	globalCfg [shadow.CfgStride]uint8

	resyncs      atomic.Uint64
	guardEnables atomic.Uint64
	userEnables  atomic.Uint64
	skippedParts atomic.Uint64
}

// New creates an engine for the given layout.
func New(cfg Config) *Unit {
	return &Unit{cfg: cfg}
}

// InitCore builds and programs the CPU-global PMP entries on one core.
// Called once per core at boot, before any thread state exists.
//
// Every core must derive the same end index and config prefix from the
// shared build configuration; a mismatch means the cores disagree about
// layout, which cannot be corrected at runtime and aborts.
func (u *Unit) InitCore(cpu *CPU) {
	var s shadow.Store
	index := 0

	// The read-only image entry is always there, for every mode. Locked:
	// it must bind privileged code even with the bypass bit clear.
	if !s.Set(&index, entry.PermR|entry.PermX, true, u.cfg.ROMStart, u.cfg.ROMSize, shadow.SlotCount) {
		panic("pmp: out of PMP slots for global entries")
	}

	if u.cfg.StackGuard {
		// Guard this core's IRQ stack by making its bottom inaccessible.
		// The IRQ stack never moves, so this is a global entry.
		if !s.Set(&index, entry.PermNone, false, cpu.IRQStackBase, u.cfg.StackGuardSize, shadow.SlotCount) {
			panic("pmp: out of PMP slots for global entries")
		}
	}

	if index > shadow.CfgStride {
		// Thread stores seed only the first config register from the
		// cache; globals spilling past it would be clobbered.
		panic("pmp: global entries exceed the first config register")
	}

	s.Write(cpu.Regs, 0, index, true)

	u.mu.Lock()
	defer u.mu.Unlock()

	if u.booted {
		// Secondary core: must agree with what the first core derived.
		if u.globalEnd != index || u.globalCfg != s.ConfigPrefix() {
			panic("pmp: global PMP entries differ between cores")
		}
		return
	}

	u.globalEnd = index
	u.globalCfg = s.ConfigPrefix()
	u.booted = true

	if logger.Enabled(context.Background(), slog.LevelDebug) {
		s.DumpEntries(0, index, "global entries")
	}
}

// GlobalEnd returns the end index of the global entry range. Valid after
// the first InitCore.
func (u *Unit) GlobalEnd() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.globalEnd
}

// MaxDomainPartitions returns the maximum number of partitions a domain
// can support on this platform: the slots left after the global entries,
// minus one reserved for the thread's own stack entry.
//
// Deliberately optimistic: a partition may cost one or two slots depending
// on alignment, knowable only at resync time for a thread that actually
// reached unprivileged execution. Overcommitting against this estimate
// surfaces as the fatal slot exhaustion in the resync path, not as a
// graceful rejection.
func (u *Unit) MaxDomainPartitions() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return shadow.SlotCount - u.globalEnd - 1
}

// Stats returns a snapshot of the engine counters.
func (u *Unit) Stats() Stats {
	return Stats{
		Resyncs:           u.resyncs.Load(),
		GuardEnables:      u.guardEnables.Load(),
		UserEnables:       u.userEnables.Load(),
		SkippedPartitions: u.skippedParts.Load(),
	}
}
