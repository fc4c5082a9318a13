// Package pmp models the RISC-V Physical Memory Protection unit and the
// kernel-side machinery that drives it: region encoding, per-thread shadow
// registers, stack guards, memory-domain synchronization and privileged
// buffer validation.
//
// # Quick Start
//
// Create a [Unit] for the platform, initialize each core, then prepare and
// enable per-thread protection around context switches:
//
//	package main
//
//	import "github.com/kolkov/riscvpmp/pmp"
//
//	func main() {
//		sim := pmp.NewSim()
//		u := pmp.New(pmp.Config{
//			ROMStart:       0x8000_0000,
//			ROMSize:        0x4_0000,
//			StackGuard:     true,
//			StackGuardSize: 0x400,
//		})
//		u.InitCore(&pmp.CPU{Regs: sim, Status: sim})
//		// ...
//	}
//
// # API Overview
//
// The package provides:
//   - Engine lifecycle: [New], [Unit.InitCore]
//   - Stack guards: [Unit.StackGuardPrepare], [Unit.StackGuardEnable]
//   - Unprivileged mode: [Unit.UserModeInit], [Unit.UserModePrepare],
//     [Unit.UserModeEnable]
//   - Memory domains: [NewDomain], [Domain.Add], [Domain.Remove],
//     [Unit.DomainThreadAdd], [Unit.DomainThreadRemove]
//   - Buffer validation: [Unit.Validate]
//   - Hardware simulation: [NewSim]
//
// # How It Works
//
// Each PMP entry pairs an address register with a configuration byte
// carrying permission bits and an address-matching mode. The encoder packs
// a (start, size, permission) triple into the cheapest encoding the range
// admits: one NAPOT or NA4 entry for aligned power-of-two ranges, a single
// TOR entry when the range chains onto its predecessor, and an OFF marker
// plus TOR pair otherwise.
//
// Entries are staged in per-thread shadow stores and committed to the
// register file in one batch on context switch. Unprivileged threads
// additionally carry the partitions of their memory domain; a generation
// counter on the domain tells the switch path whether a thread's entries
// are stale and need resynchronization before use.
//
// Privileged code checking a buffer handed over from unprivileged code
// does not consult the hardware at all: [Unit.Validate] answers from the
// domain's partition list under the same lock the resync path takes.
//
// # Hardware Back Ends
//
// The engine talks to hardware through two small interfaces,
// [RegisterWriter] and [StatusControl]. [Sim] implements both in memory
// and additionally enforces accesses the way a PMP-equipped hart would,
// which is what the package's own tests run against. A real port
// implements them with CSR writes.
//
// # Concurrency
//
// Switch-path operations are designed to be called with preemption
// excluded on the running core, as a kernel would. Domain mutation and
// validation may happen concurrently from any context; they serialize on
// one spinlock and their critical sections are allocation-free.
package pmp
