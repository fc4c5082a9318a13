// Package shadow implements the in-memory mirror of the PMP register file.
//
// Slot configurations are built in memory to avoid read-modify-write cycles
// on the actual registers: a Store is populated entry by entry with Set and
// then pushed to hardware in batch with Write. Threads keep precomputed
// Stores for each privilege mode so a context switch only has to replay
// register writes with no additional processing.
//
// Store is a plain value type with no interior pointers. Per-thread stores
// are owned by value and mutated only from the switch path running as that
// thread, so they need no locking.
package shadow

import (
	"github.com/kolkov/riscvpmp/internal/pmp/entry"
)

const (
	// SlotCount is the number of PMP slots the hardware provides.
	// Fixed per build, like the CSR file it mirrors.
	SlotCount = 16

	// CfgStride is the number of config bytes packed into one pmpcfg
	// register (8 on RV64). SlotCount must be a multiple of CfgStride so
	// trailing-clear never runs past the shadow arrays.
	CfgStride = 8
)

// RegisterWriter is the external primitive that physically programs a
// contiguous slot range. When clearTrailing is set it must also neutralize
// every hardware slot at index >= end.
//
// Implementations are expected to be called only from a context that has
// already excluded preemption for the duration of the switch.
type RegisterWriter interface {
	WriteEntries(start, end int, clearTrailing bool, addr []uintptr, cfg []uint8)
}

// Store is a fixed-capacity shadow copy of the PMP slot array.
//
// Addr holds pmpaddr register values and Cfg the packed config bytes, both
// indexed by slot. A prefix [0, globalEnd) holds the CPU-global entries,
// byte-identical across every store on a core; the suffix is scope-private.
// Indices are assigned monotonically by Set.
type Store struct {
	// Addr holds the pmpaddr register value for each slot.
	Addr [SlotCount]uintptr

	// Cfg holds the packed config byte for each slot. Bytes are grouped
	// CfgStride at a time into pmpcfg registers when written out.
	Cfg [SlotCount]uint8
}

// Set encodes one (start, size, permission) range into the store at *index,
// choosing the cheapest valid encoding, and advances *index by the number of
// slots consumed (1 or 2).
//
// Encodings, in priority order:
//
//  1. TOR chaining: if this is slot 0 with start 0, or the previous slot's
//     address equals start, a single TOR entry encoding start+size suffices.
//  2. Natural alignment: a power-of-two size at a start aligned to it takes
//     one NA4 (size 4) or NAPOT (larger) entry. The special case start=0
//     size=0 is valid, resolves here and means the whole address range.
//  3. Otherwise an OFF range-start marker plus a TOR entry: two slots.
//
// Returns false without touching the store when the chosen encoding needs
// more slots than limit-*index provides; the caller decides whether that is
// fatal. Misaligned start or size is a caller defect and panics.
func (s *Store) Set(index *int, perm entry.Perm, locked bool, start, size uintptr, limit int) bool {
	if start&(entry.Granularity-1) != 0 {
		panic("pmp: misaligned start address")
	}
	if size&(entry.Granularity-1) != 0 {
		panic("pmp: misaligned size")
	}

	idx := *index
	ok := true

	switch {
	case idx >= limit:
		logger.Error("out of PMP slots", "index", idx, "limit", limit)
		ok = false

	case (idx == 0 && start == 0) || (idx != 0 && s.Addr[idx-1] == entry.Addr(start)):
		// The range is contiguous with the previous one: TOR needs only
		// one additional slot.
		s.Addr[idx] = entry.Addr(start + size)
		s.Cfg[idx] = entry.Config{Perm: perm, Mode: entry.ModeTOR, Locked: locked}.Byte()
		idx++

	case size&(size-1) == 0 && start&(size-1) == 0:
		// Power-of-two size, naturally aligned start.
		mode := entry.ModeNAPOT
		if size == entry.Granularity {
			mode = entry.ModeNA4
		}
		s.Addr[idx] = entry.NAPOTAddr(start, size)
		s.Cfg[idx] = entry.Config{Perm: perm, Mode: mode, Locked: locked}.Byte()
		idx++

	case idx+1 >= limit:
		logger.Error("out of PMP slots", "index", idx, "limit", limit)
		ok = false

	default:
		// General case: an OFF slot marks the range start, the next slot
		// closes it with TOR and carries the real permission.
		s.Addr[idx] = entry.Addr(start)
		s.Cfg[idx] = 0
		idx++
		s.Addr[idx] = entry.Addr(start + size)
		s.Cfg[idx] = entry.Config{Perm: perm, Mode: entry.ModeTOR, Locked: locked}.Byte()
		idx++
	}

	*index = idx
	return ok
}

// Write pushes the slot range [start, end) to hardware through w.
//
// Requirement: start < end && end <= SlotCount. A violation would corrupt
// protection state, so it aborts unconditionally rather than returning an
// error.
//
// When clearTrailing is set, config bytes between end and the next pmpcfg
// register boundary are zeroed in the shadow first, so no stale byte in a
// partially rewritten register stays decoded. Clearing the remaining
// registers up to SlotCount is the writer's responsibility.
func (s *Store) Write(w RegisterWriter, start, end int, clearTrailing bool) {
	if start >= end || end > SlotCount {
		panic("pmp: bad PMP write range")
	}

	if clearTrailing {
		for i := end; i%CfgStride != 0; i++ {
			s.Cfg[i] = 0
		}
	}

	s.DumpEntries(start, end, "register write")

	w.WriteEntries(start, end, clearTrailing, s.Addr[:], s.Cfg[:])
}

// ConfigPrefix returns the first pmpcfg register's worth of config bytes.
//
// The global entries live entirely within this prefix; it is cached once at
// boot and copied into every thread store so the scope-private entries that
// share the register do not clobber the global ones.
func (s *Store) ConfigPrefix() [CfgStride]uint8 {
	var p [CfgStride]uint8
	copy(p[:], s.Cfg[:CfgStride])
	return p
}

// SetConfigPrefix seeds the first pmpcfg register's bytes from a cached
// global prefix.
func (s *Store) SetConfigPrefix(p [CfgStride]uint8) {
	copy(s.Cfg[:CfgStride], p[:])
}
