// Package hw provides a simulated PMP register file.
//
// The real register-write primitive lives outside this subsystem (on
// hardware it is a short assembly stub issuing csr writes). Sim stands in
// for it during tests and demos: it implements shadow.RegisterWriter plus
// the bypass-bit control, records the order of operations, and can evaluate
// accesses against the programmed slots with hardware matching rules.
package hw

import (
	"fmt"

	"github.com/kolkov/riscvpmp/internal/pmp/entry"
	"github.com/kolkov/riscvpmp/internal/pmp/shadow"
)

// Recorded operation names, for ordering assertions in tests.
const (
	OpClearBypass = "clear-bypass"
	OpSetBypass   = "set-bypass"
	OpWrite       = "write-entries"
)

// Sim models one core's PMP unit and the bypass bit of its status register.
//
// A Sim is core-local state; give every simulated CPU its own instance.
// It is not safe for concurrent use, which matches the contract of the real
// primitive: register writes happen only with preemption excluded.
type Sim struct {
	// Addr and Cfg mirror the programmed pmpaddr/pmpcfg state.
	Addr [shadow.SlotCount]uintptr
	Cfg  [shadow.SlotCount]uint8

	// Bypass models the mstatus bit that applies PMP checks to
	// privileged-mode accesses as well.
	Bypass bool

	// Log records every operation in order.
	Log []string

	// Writes counts WriteEntries invocations.
	Writes int
}

// NewSim returns a powered-on PMP unit with all slots off.
func NewSim() *Sim {
	return &Sim{}
}

// WriteEntries programs the slot range [start, end) from the given shadow
// arrays. When clearTrailing is set, every slot at index >= end is
// neutralized as well, as the hardware primitive guarantees for full-range
// rewrites.
func (m *Sim) WriteEntries(start, end int, clearTrailing bool, addr []uintptr, cfg []uint8) {
	copy(m.Addr[start:end], addr[start:end])
	copy(m.Cfg[start:end], cfg[start:end])

	if clearTrailing {
		for i := end; i < shadow.SlotCount; i++ {
			m.Cfg[i] = 0
		}
	}

	m.Writes++
	m.Log = append(m.Log, fmt.Sprintf("%s[%d,%d) clear=%v", OpWrite, start, end, clearTrailing))
}

// ClearBypass clears the bypass bit (and, on real hardware, the paired
// privilege-marker bits it depends on).
func (m *Sim) ClearBypass() {
	m.Bypass = false
	m.Log = append(m.Log, OpClearBypass)
}

// SetBypass sets the bypass bit, re-enabling PMP checks for privileged mode.
func (m *Sim) SetBypass() {
	m.Bypass = true
	m.Log = append(m.Log, OpSetBypass)
}

// Access evaluates whether an access of the given kind to [addr, addr+size)
// would be allowed by the currently programmed slots.
//
// Matching follows the hardware: the lowest-numbered slot whose region
// touches the access wins, and an access that is not fully contained in the
// matching region fails. Privileged accesses are only checked against
// locked entries unless the bypass bit is set; with no matching entry,
// privileged accesses are allowed and unprivileged ones denied.
//
// size must be at least 1.
func (m *Sim) Access(addr, size uintptr, perm entry.Perm, privileged bool) bool {
	last := addr + size - 1

	for i := 0; i < shadow.SlotCount; i++ {
		cfg := entry.FromByte(m.Cfg[i])

		var prev uintptr
		if i > 0 {
			prev = m.Addr[i-1]
		}
		lo, hi, ok := entry.DecodeRegion(cfg.Mode, m.Addr[i], prev)
		if !ok || last < lo || addr > hi {
			continue
		}

		if addr < lo || last > hi {
			// Partial match: the access straddles the region edge.
			return false
		}

		if privileged && !cfg.Locked && !m.Bypass {
			// PMP does not apply to privileged mode through this entry.
			return true
		}
		return cfg.Perm&perm == perm
	}

	return privileged
}
