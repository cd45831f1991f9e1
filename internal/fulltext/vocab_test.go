package fulltext

import (
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMmapVocab_LookupRoundTrips(t *testing.T) {
	// Given: a vocabulary serialized from a word list
	dir := t.TempDir()
	path := filepath.Join(dir, "vocab.dat")
	words := []string{"alpha", "beta", "gamma", "delta", "epsilon"}
	require.NoError(t, CreateVocab(path, words))

	vocab, err := OpenVocab(path, false)
	require.NoError(t, err)
	defer vocab.Close()

	// When/Then: every word resolves to its assigned TokenId
	for i, w := range words {
		id, ok := vocab.Lookup(w, DisposableHardwareCounter())
		require.True(t, ok, "word %q should be found", w)
		assert.Equal(t, TokenId(i), id)
	}

	// And: an unseen word is absent
	_, ok := vocab.Lookup("zzz-not-present", DisposableHardwareCounter())
	assert.False(t, ok)
}

func TestMmapVocab_HardwareCounter_ChargesOnlyOnHit(t *testing.T) {
	// Given: a vocabulary with one word
	dir := t.TempDir()
	path := filepath.Join(dir, "vocab.dat")
	require.NoError(t, CreateVocab(path, []string{"hello"}))

	vocab, err := OpenVocab(path, false)
	require.NoError(t, err)
	defer vocab.Close()

	// When: looking up a miss, the counter stays at zero
	var missCounter atomic.Int64
	missHW := NewHardwareCounter(&missCounter)
	_, ok := vocab.Lookup("missing", missHW)
	require.False(t, ok)
	assert.Equal(t, int64(0), missCounter.Load())

	// Then: a hit charges entry_overhead + sizeof(TokenId)
	var hitCounter atomic.Int64
	hitHW := NewHardwareCounter(&hitCounter)
	_, ok = vocab.Lookup("hello", hitHW)
	require.True(t, ok)
	assert.Equal(t, int64(readEntryOverhead+4), hitCounter.Load())
}

func TestMmapVocab_Each_VisitsEveryEntry(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vocab.dat")
	words := []string{"a", "b", "c"}
	require.NoError(t, CreateVocab(path, words))

	vocab, err := OpenVocab(path, false)
	require.NoError(t, err)
	defer vocab.Close()

	seen := make(map[string]TokenId)
	vocab.Each(func(key string, id TokenId) { seen[key] = id })

	assert.Len(t, seen, len(words))
	for i, w := range words {
		assert.Equal(t, TokenId(i), seen[w])
	}
}

func TestCreateVocab_Empty(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vocab.dat")
	require.NoError(t, CreateVocab(path, nil))

	vocab, err := OpenVocab(path, false)
	require.NoError(t, err)
	defer vocab.Close()

	assert.Equal(t, 0, vocab.Len())
	_, ok := vocab.Lookup("anything", DisposableHardwareCounter())
	assert.False(t, ok)
}
