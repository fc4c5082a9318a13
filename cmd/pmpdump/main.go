// Package main implements the pmpdump CLI tool.
//
// pmpdump decodes raw PMP register dumps into human-readable regions and
// encodes (start, size, permission) region requests into register values,
// using the same encoder the kernel model uses. It exists for debugging
// PMP state captured from a target: paste the pmpaddr/pmpcfg values a
// debugger shows and see which memory they actually protect.
//
// Usage:
//
//	pmpdump decode dump.txt      # Decode a register dump to regions
//	pmpdump encode 0x80000000 0x40000 rx
//
// This is the CLI entry point for the standalone tool.
package main

import (
	"fmt"
	"os"

	"github.com/kolkov/riscvpmp/pmp"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]

	switch command {
	case "decode":
		decodeCommand(os.Args[2:])
	case "encode":
		encodeCommand(os.Args[2:])
	case "version", "--version", "-v":
		fmt.Printf("pmpdump version %s\n", pmp.Version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Print(`pmpdump - RISC-V PMP register dump tool

USAGE:
    pmpdump <command> [arguments]

COMMANDS:
    decode     Decode a PMP register dump into memory regions
    encode     Encode a (start, size, perm) region into PMP entries
    version    Show version information
    help       Show this help message

EXAMPLES:
    # Decode a dump captured from a debugger (or read from stdin with -)
    pmpdump decode dump.txt
    pmpdump decode -

    # Dump line format: <index> <pmpaddr> <pmpcfg-byte>, values in hex
    #   0 0x20010000 0x9d
    #   1 0x200400ff 0x1b

    # Encode a read+execute image region
    pmpdump encode 0x80000000 0x40000 rx

    # Encode an inaccessible stack guard
    pmpdump encode 0x80200000 0x400 none

ABOUT:
    pmpdump uses the same region encoder and decoder as the kernel-side
    PMP model, so what it prints is exactly what the hardware would
    enforce: NAPOT/NA4 entries for aligned power-of-two ranges, TOR pairs
    for everything else.
`)
}

// decodeCommand is implemented in decode.go
// encodeCommand is implemented in encode.go
