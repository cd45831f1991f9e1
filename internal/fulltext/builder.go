package fulltext

import (
	"fmt"
	"sort"
)

// Builder accumulates tokenized documents in memory, assigning each
// distinct token string a dense TokenId in first-seen order. Freeze sorts
// every posting list (already deduplicated per-document by AddDocument)
// and hands back the structure Create serializes to disk. It is the only
// mutable representation in this package; everything downstream of Freeze
// is write-once.
type Builder struct {
	vocab    map[string]TokenId
	words    []string // words[id] is the string for TokenId(id)
	postings [][]uint32
	counts   []uint64 // counts[point] = token count, grown lazily
	present  []bool   // present[point]: false means the point was never indexed (None)
}

// NewBuilder returns an empty builder.
func NewBuilder() *Builder {
	return &Builder{vocab: make(map[string]TokenId)}
}

// tokenID resolves word to a TokenId, assigning a new one in first-seen
// order if this is the first time word has been seen.
func (b *Builder) tokenID(word string) TokenId {
	if id, ok := b.vocab[word]; ok {
		return id
	}
	id := TokenId(len(b.words))
	b.vocab[word] = id
	b.words = append(b.words, word)
	b.postings = append(b.postings, nil)
	return id
}

// AddDocument indexes the tokens for point, recording its token count
// (zero is valid: "indexed but empty"). Each point may be added at most
// once; AddDocument panics if point was already added, since a posting
// list has no way to retract ids a prior call already appended to it.
func (b *Builder) AddDocument(point PointOffsetType, tokens []string) {
	for len(b.counts) <= int(point) {
		b.counts = append(b.counts, 0)
		b.present = append(b.present, false)
	}
	if b.present[point] {
		panic(fmt.Sprintf("fulltext: point %d already added to builder", point))
	}
	b.counts[point] = uint64(len(tokens))
	b.present[point] = true

	seen := make(map[TokenId]bool, len(tokens))
	for _, tok := range tokens {
		id := b.tokenID(tok)
		if seen[id] {
			continue
		}
		seen[id] = true
		b.postings[id] = append(b.postings[id], uint32(point))
	}
}

// VocabSize returns the number of distinct tokens seen so far.
func (b *Builder) VocabSize() int {
	return len(b.words)
}

// Frozen is the in-memory handover structure: sorted/deduplicated
// postings, the dense vocabulary, and per-point counts, ready to be
// serialized by Create.
type Frozen struct {
	Words    []string
	Postings [][]uint32
	Counts   []uint64
	Present  []bool // Present[point] == false marks a None entry: count 0, pre-deleted
}

// Freeze sorts every posting list (ids were appended in AddDocument call
// order, which need not be sorted) and returns the structure Create
// writes to disk. The builder must not be reused afterward.
func (b *Builder) Freeze() *Frozen {
	for _, ids := range b.postings {
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	}
	return &Frozen{Words: b.words, Postings: b.postings, Counts: b.counts, Present: b.present}
}
