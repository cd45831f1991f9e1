package fulltext

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeChunk_RoundTrips(t *testing.T) {
	// Given: a sorted, deduplicated id run
	ids := []uint32{10, 12, 13, 20, 100, 101, 4096}

	// When: encoded then decoded
	packed, bitWidth := encodeChunk(ids)
	decoded := decodeChunkInto(nil, packed, len(ids), bitWidth, ids[0])

	// Then: the original ids come back exactly
	require.Len(t, decoded, len(ids))
	assert.Equal(t, ids, decoded)
}

func TestEncodeChunk_AllEqual_UsesZeroBitWidth(t *testing.T) {
	// Given: a chunk whose ids are all the same value
	ids := []uint32{7, 7, 7}

	// When: encoded
	packed, bitWidth := encodeChunk(ids)

	// Then: zero bit width, no payload bytes, decode still reconstructs it
	assert.Equal(t, uint(0), bitWidth)
	assert.Nil(t, packed)

	decoded := decodeChunkInto(nil, packed, len(ids), bitWidth, ids[0])
	assert.Equal(t, ids, decoded)
}

func TestDecodeChunkInto_ReusesScratchCapacity(t *testing.T) {
	// Given: a previously-allocated scratch buffer with spare capacity
	ids := []uint32{1, 2, 3}
	packed, bitWidth := encodeChunk(ids)
	scratch := make([]uint32, 0, 16)

	// When: decoding into it
	decoded := decodeChunkInto(scratch, packed, len(ids), bitWidth, ids[0])

	// Then: no new backing array was allocated
	assert.Equal(t, ids, decoded)
	assert.Equal(t, cap(scratch), cap(decoded))
}

func TestEncodeChunk_Empty(t *testing.T) {
	packed, bitWidth := encodeChunk(nil)
	assert.Nil(t, packed)
	assert.Equal(t, uint(0), bitWidth)
}
