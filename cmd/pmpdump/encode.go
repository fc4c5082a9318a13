// encode.go implements the 'pmpdump encode' command.
package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/kolkov/riscvpmp/internal/pmp/entry"
	"github.com/kolkov/riscvpmp/internal/pmp/shadow"
)

// encodeCommand implements the 'pmpdump encode' command.
//
// It runs the kernel model's region encoder on a single
// (start, size, perm) request and prints the resulting register values,
// so the cost and shape of a mapping can be checked without a target.
//
// Example:
//
//	pmpdump encode 0x80000000 0x40000 rx
//	pmpdump encode 0x80200000 0x400 none
func encodeCommand(args []string) {
	if len(args) != 3 {
		fmt.Fprintln(os.Stderr, "Error: encode expects <start> <size> <perm>")
		fmt.Fprintln(os.Stderr, "  perm is a subset of \"rwx\", or \"none\"")
		os.Exit(1)
	}

	start, err := strconv.ParseUint(args[0], 0, 64)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: bad start address %q: %v\n", args[0], err)
		os.Exit(1)
	}

	size, err := strconv.ParseUint(args[1], 0, 64)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: bad size %q: %v\n", args[1], err)
		os.Exit(1)
	}

	perm, err := parsePerm(args[2])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if start%entry.Granularity != 0 || size%entry.Granularity != 0 {
		fmt.Fprintf(os.Stderr, "Error: start and size must be multiples of %d\n", entry.Granularity)
		os.Exit(1)
	}

	var s shadow.Store
	index := 0
	if !s.Set(&index, perm, false, uintptr(start), uintptr(size), shadow.SlotCount) {
		fmt.Fprintln(os.Stderr, "Error: region does not fit in the PMP")
		os.Exit(1)
	}

	fmt.Printf("%d slot(s):\n", index)

	entries := make([]dumpEntry, index)
	for i := range entries {
		entries[i] = dumpEntry{index: i, addr: s.Addr[i], cfg: s.Cfg[i]}
	}
	printEntries(os.Stdout, entries)
}

// parsePerm parses a permission string: any subset of "rwx", or "none"
// for an inaccessible region.
func parsePerm(s string) (entry.Perm, error) {
	if s == "none" || s == "-" || s == "---" {
		return entry.PermNone, nil
	}

	perm := entry.PermNone
	for _, c := range strings.ToLower(s) {
		switch c {
		case 'r':
			perm |= entry.PermR
		case 'w':
			perm |= entry.PermW
		case 'x':
			perm |= entry.PermX
		case '-':
		default:
			return 0, fmt.Errorf("bad permission %q: want a subset of \"rwx\" or \"none\"", s)
		}
	}
	return perm, nil
}
