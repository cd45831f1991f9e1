package fulltext

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildS3Index reproduces spec scenario S3: vocabulary {a->0, b->1, c->2};
// postings 0:[1,2,5], 1:[2,5,7], 2:[2,3,5].
func buildS3Index(t *testing.T) (*Index, map[string]TokenId) {
	t.Helper()
	dir := t.TempDir()

	b := NewBuilder()
	docs := map[PointOffsetType][]string{
		1: {"a"},
		2: {"a", "b", "c"},
		3: {"c"},
		5: {"a", "b", "c"},
		7: {"b"},
	}
	for p := PointOffsetType(1); p <= 7; p++ {
		b.AddDocument(p, docs[p])
	}
	frozen := b.Freeze()
	require.NoError(t, Create(dir, frozen))

	idx, err := Open(dir, DefaultConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })

	tokens := make(map[string]TokenId, len(frozen.Words))
	for i, w := range frozen.Words {
		tokens[w] = TokenId(i)
	}
	return idx, tokens
}

func queryFor(ids ...TokenId) ParsedQuery {
	return ParsedQuery{Tokens: ids}
}

func TestIndex_S3_FilterIntersectsAllTerms(t *testing.T) {
	idx, tok := buildS3Index(t)
	hw := DisposableHardwareCounter()

	// When: filtering on a AND b AND c
	got := idx.Filter(queryFor(tok["a"], tok["b"], tok["c"]), hw).Collect()

	// Then: only points 2 and 5 have all three tokens
	assert.Equal(t, []uint32{2, 5}, got)
}

func TestIndex_S3_DeletionRemovesFromFilter(t *testing.T) {
	idx, tok := buildS3Index(t)
	hw := DisposableHardwareCounter()

	// When: point 2 is removed
	changed := idx.RemoveDocument(2)
	require.True(t, changed)

	// Then: filter no longer returns it
	got := idx.Filter(queryFor(tok["a"], tok["b"], tok["c"]), hw).Collect()
	assert.Equal(t, []uint32{5}, got)

	// And: check_match agrees with filter
	assert.True(t, idx.CheckMatch(queryFor(tok["a"], tok["b"], tok["c"]), 5, hw))
	assert.False(t, idx.CheckMatch(queryFor(tok["a"], tok["b"], tok["c"]), 2, hw))
}

func TestIndex_RemoveDocument_IsIdempotent(t *testing.T) {
	idx, _ := buildS3Index(t)

	// When: removed twice
	first := idx.RemoveDocument(1)
	second := idx.RemoveDocument(1)

	// Then: true then false
	assert.True(t, first)
	assert.False(t, second)
}

func TestIndex_RemoveDocument_NeverExistedIsFalse(t *testing.T) {
	idx, _ := buildS3Index(t)
	assert.False(t, idx.RemoveDocument(9999))
}

func TestIndex_MissingTokenShortCircuitsToEmpty(t *testing.T) {
	idx, tok := buildS3Index(t)
	hw := DisposableHardwareCounter()

	// Given: a query containing an unresolved token id (never assigned)
	unknownTok := TokenId(len(tok) + 50)

	// When/Then: filter yields nothing
	got := idx.Filter(queryFor(tok["a"], unknownTok), hw).Collect()
	assert.Empty(t, got)
}

func TestIndex_EmptyQueryYieldsEmpty(t *testing.T) {
	idx, _ := buildS3Index(t)
	hw := DisposableHardwareCounter()

	assert.Empty(t, idx.Filter(ParsedQuery{}, hw).Collect())
	assert.False(t, idx.CheckMatch(ParsedQuery{}, 1, hw))
}

func TestIndex_ValuesCountAndIsEmpty(t *testing.T) {
	idx, _ := buildS3Index(t)

	assert.Equal(t, 1, idx.ValuesCount(1))
	assert.Equal(t, 3, idx.ValuesCount(2))
	assert.False(t, idx.ValuesIsEmpty(2))

	require.True(t, idx.RemoveDocument(2))
	assert.True(t, idx.ValuesIsEmpty(2))
	assert.Equal(t, 0, idx.ValuesCount(2))
}

func TestIndex_ActivePointsCount_MonotoneNonIncreasing(t *testing.T) {
	idx, _ := buildS3Index(t)

	before := idx.ActivePointsCount()
	idx.RemoveDocument(1)
	after := idx.RemoveDocument(2)
	_ = after
	afterCount := idx.ActivePointsCount()

	assert.LessOrEqual(t, afterCount, before)
}

func TestIndex_RoundTrip_CreateThenOpen(t *testing.T) {
	// Round trip: create+open agrees with the in-memory reference for
	// filter, values_count, points_count, and check_match.
	dir := t.TempDir()
	b := NewBuilder()
	b.AddDocument(0, []string{"x", "y"})
	b.AddDocument(1, []string{"y"})
	frozen := b.Freeze()
	require.NoError(t, Create(dir, frozen))

	idx, err := Open(dir, DefaultConfig())
	require.NoError(t, err)
	defer idx.Close()

	xID, ok := idx.GetTokenId("x", DisposableHardwareCounter())
	require.True(t, ok)
	yID, ok := idx.GetTokenId("y", DisposableHardwareCounter())
	require.True(t, ok)

	assert.Equal(t, 2, idx.PointsCount())
	assert.Equal(t, 2, idx.ValuesCount(0))
	assert.Equal(t, []uint32{0}, idx.Filter(queryFor(xID), DisposableHardwareCounter()).Collect())
	assert.Equal(t, []uint32{0, 1}, idx.Filter(queryFor(yID), DisposableHardwareCounter()).Collect())
	assert.True(t, idx.CheckMatch(queryFor(yID), 1, DisposableHardwareCounter()))
}

func TestIndex_GetPostingLen_NoDecoding(t *testing.T) {
	idx, tok := buildS3Index(t)
	n, ok := idx.GetPostingLen(tok["a"])
	require.True(t, ok)
	assert.Equal(t, 3, n)
}

func TestIndex_MutationOnImmutableIsRejected(t *testing.T) {
	idx, _ := buildS3Index(t)
	assert.ErrorIs(t, idx.IndexDocument(0, Document{}, DisposableHardwareCounter()), errMutationOnImmutable)
	assert.ErrorIs(t, idx.GetVocabMut(), errMutationOnImmutable)
}

func TestIndex_Files_ListsAllFourFiles(t *testing.T) {
	idx, _ := buildS3Index(t)
	files := idx.Files()
	require.Len(t, files, 4)
	assert.Equal(t, filepath.Base(postingsFileName), filepath.Base(files[0]))
}
