package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kolkov/riscvpmp/internal/pmp/entry"
	"github.com/kolkov/riscvpmp/internal/pmp/shadow"
)

func TestParseDumpLine(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		want    dumpEntry
		wantErr bool
	}{
		{"hex values", "0 0x20010000 0x9d", dumpEntry{0, 0x20010000, 0x9d}, false},
		{"decimal index", "15 0x1ff 0x0f", dumpEntry{15, 0x1ff, 0x0f}, false},
		{"extra whitespace", "  3   0x10   0x18  ", dumpEntry{3, 0x10, 0x18}, false},
		{"too few fields", "0 0x10", dumpEntry{}, true},
		{"too many fields", "0 0x10 0x18 0x00", dumpEntry{}, true},
		{"index out of range", "16 0x10 0x18", dumpEntry{}, true},
		{"negative index", "-1 0x10 0x18", dumpEntry{}, true},
		{"cfg exceeds a byte", "0 0x10 0x1ff", dumpEntry{}, true},
		{"garbage address", "0 lowmem 0x18", dumpEntry{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseDumpLine(tt.line)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseDump(t *testing.T) {
	in := `
# captured from gdb
0 0x20010000 0x9d

2 0x200400ff 0x1b
`
	entries, err := parseDump(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, entries, shadow.SlotCount)

	assert.Equal(t, uintptr(0x20010000), entries[0].addr)
	assert.Equal(t, uint8(0x9d), entries[0].cfg)
	assert.Equal(t, uint8(0), entries[1].cfg, "unmentioned slot stays disabled")
	assert.Equal(t, uint8(0x1b), entries[2].cfg)
}

func TestParseDumpBadLine(t *testing.T) {
	_, err := parseDump(strings.NewReader("0 0x10 0x18\nbogus line here\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
}

func TestPrintEntries(t *testing.T) {
	// A locked read+execute NAPOT image entry followed by a TOR pair.
	image := entry.Config{Perm: entry.PermR | entry.PermX, Mode: entry.ModeNAPOT, Locked: true}
	marker := entry.Config{Mode: entry.ModeOff}
	span := entry.Config{Perm: entry.PermR | entry.PermW, Mode: entry.ModeTOR}

	entries := []dumpEntry{
		{0, entry.NAPOTAddr(0x8000_0000, 0x4_0000), image.Byte()},
		{1, entry.Addr(0x1000), marker.Byte()},
		{2, entry.Addr(0x1600), span.Byte()},
	}

	var sb strings.Builder
	printEntries(&sb, entries)
	lines := strings.Split(strings.TrimRight(sb.String(), "\n"), "\n")
	require.Len(t, lines, 3)

	assert.Contains(t, lines[0], "NAPOT")
	assert.Contains(t, lines[0], "r-x [0x80000000, 0x8003ffff]")
	assert.Contains(t, lines[0], "LOCKED")

	assert.Contains(t, lines[1], "OFF")
	assert.NotContains(t, lines[1], "[", "disabled slot decodes no range")

	assert.Contains(t, lines[2], "TOR")
	assert.Contains(t, lines[2], "rw- [0x1000, 0x15ff]")
}

func TestParsePerm(t *testing.T) {
	tests := []struct {
		in      string
		want    entry.Perm
		wantErr bool
	}{
		{"rwx", entry.PermR | entry.PermW | entry.PermX, false},
		{"rx", entry.PermR | entry.PermX, false},
		{"RW", entry.PermR | entry.PermW, false},
		{"r--", entry.PermR, false},
		{"none", entry.PermNone, false},
		{"-", entry.PermNone, false},
		{"rv", 0, true},
		{"", entry.PermNone, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parsePerm(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
