// Package pmp provides the public API for the RISC-V PMP model.
//
// See doc.go for detailed documentation and examples.
package pmp

import (
	"log/slog"

	"github.com/kolkov/riscvpmp/internal/pmp/entry"
	"github.com/kolkov/riscvpmp/internal/pmp/hw"
	"github.com/kolkov/riscvpmp/internal/pmp/memdomain"
	"github.com/kolkov/riscvpmp/internal/pmp/shadow"
	"github.com/kolkov/riscvpmp/internal/pmp/thread"
	"github.com/kolkov/riscvpmp/internal/pmp/unit"
)

// Perm is a PMP permission set. Combine with bitwise OR.
type Perm = entry.Perm

// Permission bits, matching the R/W/X bits of a pmpcfg byte.
const (
	PermNone = entry.PermNone
	PermR    = entry.PermR
	PermW    = entry.PermW
	PermX    = entry.PermX
)

// SlotCount is the number of PMP entry slots the model exposes.
const SlotCount = shadow.SlotCount

// Granularity is the smallest protectable region size in bytes.
const Granularity = entry.Granularity

// Partition is one contiguous memory range with an access attribute,
// held inside a memory domain.
type Partition = memdomain.Partition

// Domain is an ordered collection of partitions shared by the threads
// assigned to it. Create domains with [NewDomain].
type Domain = memdomain.Domain

// NewDomain creates an empty memory domain.
func NewDomain() *Domain {
	return memdomain.New()
}

// Thread carries the per-thread PMP state: shadow register stores for
// privileged and unprivileged mode, the assigned domain and the
// synchronization bookkeeping. The caller embeds or allocates it
// alongside its own thread structure.
type Thread = thread.Thread

// RegisterWriter is the hardware back end: it receives a range of shadow
// entries to commit to the pmpaddr/pmpcfg registers.
type RegisterWriter = shadow.RegisterWriter

// StatusControl toggles the privileged PMP bypass bit for a core.
type StatusControl = unit.StatusControl

// CPU is one hart's view of the PMP hardware.
type CPU = unit.CPU

// Config is the platform configuration for a [Unit].
type Config = unit.Config

// Stats is a snapshot of the unit's operation counters.
type Stats = unit.Stats

// Unit is the PMP engine: it owns the global entries and drives the
// per-thread switch and synchronization paths. Create one with [New] and
// call [Unit.InitCore] on every core before anything else.
type Unit = unit.Unit

// New creates a PMP unit for the given platform configuration.
func New(cfg Config) *Unit {
	return unit.New(cfg)
}

// Sim is an in-memory PMP hardware model implementing [RegisterWriter]
// and [StatusControl]. It exists for tests and host-side tooling; on real
// hardware the back end writes CSRs instead.
type Sim = hw.Sim

// NewSim creates a simulated PMP register file with all entries disabled.
func NewSim() *Sim {
	return hw.NewSim()
}

// SetLogger routes the subsystem's diagnostics (encoder errors, debug
// register dumps, resync warnings) through the given logger. A nil logger
// is ignored. By default everything goes to slog.Default.
func SetLogger(l *slog.Logger) {
	shadow.SetLogger(l)
	unit.SetLogger(l)
}
