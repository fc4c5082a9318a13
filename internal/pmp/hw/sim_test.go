package hw

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kolkov/riscvpmp/internal/pmp/entry"
	"github.com/kolkov/riscvpmp/internal/pmp/shadow"
)

// program encodes one range into a fresh store region and writes it out.
func program(t *testing.T, m *Sim, index *int, perm entry.Perm, locked bool, start, size uintptr, s *shadow.Store) {
	t.Helper()
	from := *index
	require.True(t, s.Set(index, perm, locked, start, size, shadow.SlotCount))
	s.Write(m, from, *index, false)
}

// TestWriteEntriesTrailingClear tests that a full-range rewrite disables
// every slot beyond the written range.
func TestWriteEntriesTrailingClear(t *testing.T) {
	m := NewSim()
	for i := range m.Cfg {
		m.Cfg[i] = 0xFF
	}

	var s shadow.Store
	index := 0
	require.True(t, s.Set(&index, entry.PermR, false, 0x8000, 0x1000, shadow.SlotCount))
	s.Write(m, 0, index, true)

	for i := index; i < shadow.SlotCount; i++ {
		assert.Equal(t, uint8(0), m.Cfg[i], "slot %d must be disabled", i)
	}
}

// TestAccessMatching tests the access checker against a programmed unit:
// an inaccessible guard NAPOT region, a read-write TOR window and the
// catch-all fallback entry.
func TestAccessMatching(t *testing.T) {
	m := NewSim()
	var s shadow.Store
	index := 0

	// Locked read+exec image entry, then a guard, then a catch-all.
	program(t, m, &index, entry.PermR|entry.PermX, true, 0x8000, 0x1000, &s)
	program(t, m, &index, entry.PermNone, false, 0x2_0000, 0x100, &s)
	program(t, m, &index, entry.PermR|entry.PermW|entry.PermX, false, 0, 0, &s)

	tests := []struct {
		name       string
		addr, size uintptr
		perm       entry.Perm
		privileged bool
		bypass     bool
		want       bool
	}{
		{
			name: "unprivileged read of image",
			addr: 0x8100, size: 8, perm: entry.PermR,
			want: true,
		},
		{
			name: "unprivileged write of image denied",
			addr: 0x8100, size: 8, perm: entry.PermW,
			want: false,
		},
		{
			name: "privileged write of image denied by lock",
			addr: 0x8100, size: 8, perm: entry.PermW, privileged: true,
			want: false,
		},
		{
			name: "guard blocks unprivileged access",
			addr: 0x2_0010, size: 4, perm: entry.PermR,
			want: false,
		},
		{
			name: "guard ignored by privileged mode without bypass",
			addr: 0x2_0010, size: 4, perm: entry.PermW, privileged: true,
			want: true,
		},
		{
			name: "guard blocks privileged mode under bypass",
			addr: 0x2_0010, size: 4, perm: entry.PermW, privileged: true, bypass: true,
			want: false,
		},
		{
			name: "fallback allows privileged access under bypass",
			addr: 0x5_0000, size: 8, perm: entry.PermW, privileged: true, bypass: true,
			want: true,
		},
		{
			name: "access straddling the image edge denied",
			addr: 0x8FFC, size: 8, perm: entry.PermR,
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m.Bypass = tt.bypass
			got := m.Access(tt.addr, tt.size, tt.perm, tt.privileged)
			assert.Equal(t, tt.want, got)
		})
	}
}

// TestAccessNoMatch tests the default behavior with all slots off.
func TestAccessNoMatch(t *testing.T) {
	m := NewSim()

	assert.True(t, m.Access(0x1000, 4, entry.PermW, true), "privileged default allow")
	assert.False(t, m.Access(0x1000, 4, entry.PermR, false), "unprivileged default deny")
}

// TestOpLog tests that operation ordering is observable.
func TestOpLog(t *testing.T) {
	m := NewSim()
	m.ClearBypass()
	var s shadow.Store
	s.Cfg[0] = 0x1F
	s.Write(m, 0, 1, false)
	m.SetBypass()

	require.Len(t, m.Log, 3)
	assert.Equal(t, OpClearBypass, m.Log[0])
	assert.Contains(t, m.Log[1], OpWrite)
	assert.Equal(t, OpSetBypass, m.Log[2])
}
