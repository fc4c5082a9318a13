// Package entry implements the hardware encoding of a single PMP slot.
//
// A PMP slot is an (address, config) register pair. The config byte packs
// three fields:
//   - Bits 0-2: permission flags R/W/X
//   - Bits 3-4: address-matching mode (OFF, TOR, NA4, NAPOT)
//   - Bit 7:    lock flag (entry becomes immutable, also binds m-mode)
//
// The address register holds the target address shifted right by 2 (PMP has
// 4-byte granularity). For NAPOT mode the low bits additionally encode the
// region size as a trailing-ones mask.
//
// All packed-byte and address-field manipulation is confined to this package.
// The rest of the subsystem works with the unpacked Config value and plain
// (start, size) ranges.
package entry

// Perm is a set of PMP permission flags.
//
// The bit values match the hardware pmpcfg layout, so a Perm can be OR-ed
// directly into the config byte.
type Perm uint8

const (
	// PermNone grants no access. Used for guard regions and for the
	// range-start marker of a two-slot TOR pair.
	PermNone Perm = 0

	// PermR allows read access.
	PermR Perm = 1 << 0

	// PermW allows write access.
	PermW Perm = 1 << 1

	// PermX allows instruction fetch.
	PermX Perm = 1 << 2
)

// Mode is the address-matching mode of a PMP slot.
type Mode uint8

const (
	// ModeOff disables matching for this slot. An OFF slot still
	// contributes its address register as the base of a following TOR slot.
	ModeOff Mode = 0

	// ModeTOR matches addresses in [previous slot's address, this address).
	ModeTOR Mode = 1

	// ModeNA4 matches exactly the 4 bytes at the slot address.
	ModeNA4 Mode = 2

	// ModeNAPOT matches a naturally aligned power-of-two region of at
	// least 8 bytes, size encoded in the address register's low bits.
	ModeNAPOT Mode = 3
)

const (
	// Granularity is the minimum mappable unit: addresses and sizes
	// handed to the encoder must be multiples of this.
	Granularity = 4

	permMask  = 0x07
	modeShift = 3
	modeMask  = 0x3 << modeShift
	lockBit   = 0x80
)

// Config is the unpacked form of a PMP config byte.
//
// Internal logic manipulates Config values only; Byte and FromByte are the
// sole crossings of the packed-byte boundary.
type Config struct {
	// Perm is the permission set granted to matching accesses.
	Perm Perm

	// Mode is the address-matching mode.
	Mode Mode

	// Locked marks the entry immutable until reset. Locked entries also
	// apply to m-mode accesses regardless of the bypass bit.
	Locked bool
}

// Byte packs the config into its hardware byte representation.
//
//go:nosplit
func (c Config) Byte() uint8 {
	b := uint8(c.Perm)&permMask | uint8(c.Mode)<<modeShift&modeMask
	if c.Locked {
		b |= lockBit
	}
	return b
}

// FromByte unpacks a hardware config byte.
//
//go:nosplit
func FromByte(b uint8) Config {
	return Config{
		Perm:   Perm(b & permMask),
		Mode:   Mode(b&modeMask) >> modeShift,
		Locked: b&lockBit != 0,
	}
}

// Addr converts a byte address into a pmpaddr register value.
//
//go:nosplit
func Addr(a uintptr) uintptr {
	return a >> 2
}

// NAPOTAddr converts a naturally aligned power-of-two region into a pmpaddr
// register value with the size mask folded into the low bits.
//
// The special case start=0 size=0 encodes the whole address space: size-1
// wraps to all-ones and the resulting mask spans every address bit.
//
//go:nosplit
func NAPOTAddr(start, size uintptr) uintptr {
	return Addr(start | (size-1)>>1)
}

// DecodeRegion recovers the byte range matched by a slot.
//
// raw is the slot's pmpaddr value and prev the pmpaddr value of the
// preceding slot (0 for slot 0), which TOR mode needs as its base. The
// returned range is [start, last] inclusive so that a full-address-space
// NAPOT entry does not overflow. ok is false for OFF slots, which match
// nothing.
func DecodeRegion(mode Mode, raw, prev uintptr) (start, last uintptr, ok bool) {
	switch mode {
	case ModeTOR:
		return prev << 2, raw<<2 - 1, true
	case ModeNA4:
		start = raw << 2
		return start, start + 3, true
	case ModeNAPOT:
		tmp := raw<<2 | 0x3
		return tmp & (tmp + 1), tmp | (tmp + 1), true
	default:
		return 0, 0, false
	}
}

// String renders the permission set in the conventional "rwx" form,
// e.g. "rw-" or "---".
func (p Perm) String() string {
	buf := []byte{'-', '-', '-'}
	if p&PermR != 0 {
		buf[0] = 'r'
	}
	if p&PermW != 0 {
		buf[1] = 'w'
	}
	if p&PermX != 0 {
		buf[2] = 'x'
	}
	return string(buf)
}
