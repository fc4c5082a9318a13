// decode.go implements the 'pmpdump decode' command.
package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/kolkov/riscvpmp/internal/pmp/entry"
	"github.com/kolkov/riscvpmp/internal/pmp/shadow"
)

// dumpEntry is one parsed line of a register dump.
type dumpEntry struct {
	index int
	addr  uintptr
	cfg   uint8
}

// decodeCommand implements the 'pmpdump decode' command.
//
// It reads "<index> <pmpaddr> <pmpcfg-byte>" lines from a file (or stdin
// when the argument is "-") and prints the memory region each slot
// matches, exactly as the hardware would interpret it.
//
// Example:
//
//	pmpdump decode dump.txt
//	riscv64-gdb -batch -ex 'info registers pmpaddr0 ...' | pmpdump decode -
func decodeCommand(args []string) {
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "Error: decode expects exactly one argument (a file, or - for stdin)")
		os.Exit(1)
	}

	in := os.Stdin
	if args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer func() { _ = f.Close() }()
		in = f
	}

	entries, err := parseDump(in)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	printEntries(os.Stdout, entries)
}

// parseDump reads dump lines into slot order. Blank lines and lines
// starting with '#' are skipped. Slots the dump does not mention stay
// disabled.
func parseDump(r io.Reader) ([]dumpEntry, error) {
	var (
		addr [shadow.SlotCount]uintptr
		cfg  [shadow.SlotCount]uint8
	)

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		e, err := parseDumpLine(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		addr[e.index] = e.addr
		cfg[e.index] = e.cfg
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	// Preserve slot order and the predecessor addresses TOR decoding
	// needs, dump-omitted slots included.
	entries := make([]dumpEntry, shadow.SlotCount)
	for i := range entries {
		entries[i] = dumpEntry{index: i, addr: addr[i], cfg: cfg[i]}
	}
	return entries, nil
}

// parseDumpLine parses one "<index> <pmpaddr> <pmpcfg-byte>" line.
// Values accept the usual Go integer prefixes (0x..., 0o..., plain
// decimal).
func parseDumpLine(line string) (dumpEntry, error) {
	fields := strings.Fields(line)
	if len(fields) != 3 {
		return dumpEntry{}, fmt.Errorf("expected 3 fields (index addr cfg), got %d", len(fields))
	}

	index, err := strconv.Atoi(fields[0])
	if err != nil {
		return dumpEntry{}, fmt.Errorf("bad slot index %q: %w", fields[0], err)
	}
	if index < 0 || index >= shadow.SlotCount {
		return dumpEntry{}, fmt.Errorf("slot index %d out of range [0, %d)", index, shadow.SlotCount)
	}

	addr, err := strconv.ParseUint(fields[1], 0, 64)
	if err != nil {
		return dumpEntry{}, fmt.Errorf("bad pmpaddr %q: %w", fields[1], err)
	}

	cfg, err := strconv.ParseUint(fields[2], 0, 8)
	if err != nil {
		return dumpEntry{}, fmt.Errorf("bad pmpcfg byte %q: %w", fields[2], err)
	}

	return dumpEntry{index: index, addr: uintptr(addr), cfg: uint8(cfg)}, nil
}

// modeNames renders matching modes the way the privileged spec names them.
var modeNames = map[entry.Mode]string{
	entry.ModeOff:   "OFF",
	entry.ModeTOR:   "TOR",
	entry.ModeNA4:   "NA4",
	entry.ModeNAPOT: "NAPOT",
}

// printEntries writes one line per slot: raw values, matching mode, and
// for active slots the decoded byte range with permissions.
func printEntries(w io.Writer, entries []dumpEntry) {
	for _, e := range entries {
		cfg := entry.FromByte(e.cfg)

		var prev uintptr
		if e.index > 0 {
			prev = entries[e.index-1].addr
		}

		lo, hi, ok := entry.DecodeRegion(cfg.Mode, e.addr, prev)
		if !ok {
			fmt.Fprintf(w, "%3d: 0x%016x 0x%02x %-5s\n", e.index, e.addr, e.cfg, modeNames[cfg.Mode])
			continue
		}

		locked := ""
		if cfg.Locked {
			locked = " LOCKED"
		}
		fmt.Fprintf(w, "%3d: 0x%016x 0x%02x %-5s %s [0x%x, 0x%x]%s\n",
			e.index, e.addr, e.cfg, modeNames[cfg.Mode], cfg.Perm, lo, hi, locked)
	}
}
