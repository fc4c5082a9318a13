package memdomain

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kolkov/riscvpmp/internal/pmp/entry"
)

// TestGenerationBump tests that every add and remove marks the domain dirty.
func TestGenerationBump(t *testing.T) {
	d := New()
	g0 := d.Generation()
	require.NotEqual(t, uint32(SentinelGeneration), g0, "live domains never sit on the sentinel")

	id, ok := d.Add(Partition{Start: 0x1000, Size: 0x1000, Attr: entry.PermR | entry.PermW})
	require.True(t, ok)
	g1 := d.Generation()
	assert.NotEqual(t, g0, g1, "add must bump the generation")

	require.True(t, d.Remove(id))
	assert.NotEqual(t, g1, d.Generation(), "remove must bump the generation")
}

// TestGenerationSkipsSentinel tests that wraparound never lands on the
// never-synced sentinel value.
func TestGenerationSkipsSentinel(t *testing.T) {
	d := New()
	// Force the counter to the value just below wraparound.
	d.generation.Store(^uint32(0))

	Lock()
	d.bump()
	Unlock()

	assert.NotEqual(t, uint32(SentinelGeneration), d.Generation())
}

// TestHoles tests that removed partitions stay in place as holes and that
// slots are reused by later adds.
func TestHoles(t *testing.T) {
	d := New()

	a, ok := d.Add(Partition{Start: 0x1000, Size: 0x100, Attr: entry.PermR})
	require.True(t, ok)
	b, ok := d.Add(Partition{Start: 0x2000, Size: 0x100, Attr: entry.PermR})
	require.True(t, ok)
	require.Equal(t, 2, d.Len())

	require.True(t, d.Remove(a))
	assert.Equal(t, 1, d.Len())
	assert.True(t, d.At(a).Empty(), "removed slot must be a hole")
	assert.False(t, d.At(b).Empty(), "other slot must survive")

	// The hole is the first free slot again.
	c, ok := d.Add(Partition{Start: 0x3000, Size: 0x100, Attr: entry.PermW})
	require.True(t, ok)
	assert.Equal(t, a, c)
}

// TestAddRejects tests capacity and empty-partition rejection.
func TestAddRejects(t *testing.T) {
	d := New()

	_, ok := d.Add(Partition{Start: 0x1000, Size: 0})
	assert.False(t, ok, "empty partition must be rejected")

	for i := 0; i < MaxPartitions; i++ {
		_, ok := d.Add(Partition{Start: uintptr(0x1000 * (i + 1)), Size: 0x100, Attr: entry.PermR})
		require.True(t, ok)
	}
	_, ok = d.Add(Partition{Start: 0x8000_0000, Size: 0x100, Attr: entry.PermR})
	assert.False(t, ok, "domain at capacity must reject")
}

// TestRemoveRejects tests out-of-range and double-remove handling.
func TestRemoveRejects(t *testing.T) {
	d := New()
	id, ok := d.Add(Partition{Start: 0x1000, Size: 0x100, Attr: entry.PermR})
	require.True(t, ok)

	assert.False(t, d.Remove(-1))
	assert.False(t, d.Remove(MaxPartitions))
	assert.True(t, d.Remove(id))
	assert.False(t, d.Remove(id), "removing a hole is a no-op")
}

// TestLockMutualExclusion hammers the shared lock from several goroutines
// and checks the protected counter saw no lost updates.
func TestLockMutualExclusion(t *testing.T) {
	const (
		workers    = 8
		iterations = 2000
	)

	var (
		wg      sync.WaitGroup
		counter int
	)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < iterations; i++ {
				Lock()
				counter++
				Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, workers*iterations, counter)
}
