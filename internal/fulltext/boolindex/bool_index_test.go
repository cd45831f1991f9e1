package boolindex

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// boolsFixture reproduces the S1 scenario's payload sequence at offsets
// 0..11: true, false, [true,false], [false,true], [true,true],
// [false,false], [true,false,true], null, 1, "test", [false], [true].
func boolsFixture() []any {
	return []any{
		true,
		false,
		[]any{true, false},
		[]any{false, true},
		[]any{true, true},
		[]any{false, false},
		[]any{true, false, true},
		nil,
		float64(1),
		"test",
		[]any{false},
		[]any{true},
	}
}

func indexFixtures(t *testing.T) []Index {
	t.Helper()
	return []Index{
		NewSimpleBoolIndex(),
		NewMmapBoolIndex(t.TempDir()),
	}
}

func TestBoolIndex_S1_FilterTrueAndFalse(t *testing.T) {
	for _, idx := range indexFixtures(t) {
		// Given: S1's payload fixture indexed at offsets 0..11
		for i, payload := range boolsFixture() {
			idx.AddPoint(PointID(i), ExtractBoolValues(payload))
		}

		// Then: filter(true) == {0,2,3,4,6,11}
		assert.ElementsMatch(t, []PointID{0, 2, 3, 4, 6, 11}, idx.Filter(true))

		// And: filter(false) == {1,2,3,5,6,10}
		assert.ElementsMatch(t, []PointID{1, 2, 3, 5, 6, 10}, idx.Filter(false))

		// And: indexed count == 9 (entries 7,8,9 contribute no bool value)
		assert.Equal(t, 9, idx.CountIndexedPoints())

		// And: payload_blocks(threshold=0) yields two blocks, cardinality 6 each
		blocks := idx.PayloadBlocks(0)
		require.Len(t, blocks, 2)
		for _, b := range blocks {
			assert.Equal(t, 6, b.Cardinality)
		}
	}
}

func TestBoolIndex_S2_ModifyReplacesMembershipAtomically(t *testing.T) {
	for _, idx := range indexFixtures(t) {
		// Given: point 1000 inserted with false
		idx.AddPoint(1000, ExtractBoolValues(false))
		assert.Equal(t, []PointID{1000}, idx.Filter(false))

		// When: overwritten with true
		idx.AddPoint(1000, ExtractBoolValues(true))

		// Then: filter(true) == {1000}, filter(false) == {}
		assert.Equal(t, []PointID{1000}, idx.Filter(true))
		assert.Empty(t, idx.Filter(false))
	}
}

func TestExtractBoolValues(t *testing.T) {
	assert.Equal(t, []bool{true}, ExtractBoolValues(true))
	assert.Equal(t, []bool{true, false}, ExtractBoolValues([]any{true, false}))
	assert.Nil(t, ExtractBoolValues(nil))
	assert.Nil(t, ExtractBoolValues("test"))
	assert.Nil(t, ExtractBoolValues(float64(1)))
}

func TestMmapBoolIndex_FlushAndLoadRoundTrip(t *testing.T) {
	// Given: an mmap index with some points, flushed to disk
	dir := t.TempDir()
	idx := NewMmapBoolIndex(dir)
	idx.AddPoint(1, []bool{true})
	idx.AddPoint(2, []bool{false})
	require.NoError(t, idx.Flush())

	// When: a fresh instance loads from the same directory
	reloaded := NewMmapBoolIndex(dir)
	found, err := reloaded.Load()
	require.NoError(t, err)
	require.True(t, found)

	// Then: memberships survive the round trip
	assert.Equal(t, []PointID{1}, reloaded.Filter(true))
	assert.Equal(t, []PointID{2}, reloaded.Filter(false))

	// And: files() lists both bitmap files under dir
	for _, f := range reloaded.Files() {
		assert.Equal(t, dir, filepath.Dir(f))
	}
}

func TestMmapBoolIndex_CleanupRemovesFiles(t *testing.T) {
	dir := t.TempDir()
	idx := NewMmapBoolIndex(dir)
	idx.AddPoint(1, []bool{true})
	require.NoError(t, idx.Flush())

	require.NoError(t, idx.Cleanup())

	fresh := NewMmapBoolIndex(dir)
	found, err := fresh.Load()
	require.NoError(t, err)
	assert.False(t, found)
}

func TestBoolIndexDispatch_VariantMatchesWrapped(t *testing.T) {
	simple := NewSimple(NewSimpleBoolIndex())
	assert.Equal(t, VariantSimple, simple.Variant())

	mmapIdx := NewMmap(NewMmapBoolIndex(t.TempDir()))
	assert.Equal(t, VariantMmap, mmapIdx.Variant())

	simple.AddPoint(0, []bool{true})
	assert.Equal(t, []PointID{0}, simple.Filter(true))
}
