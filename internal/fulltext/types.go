package fulltext

// TokenId is a dense handle for a vocabulary string, assigned in
// first-seen order by the Builder. Valid ids lie in [0, vocab size).
type TokenId uint32

// PointOffsetType identifies a logical point (document) within a segment.
type PointOffsetType uint32

// Document is an already-tokenized document: the set of token ids present
// in it, in first-seen order. It appears only in Index.IndexDocument, which
// always fails; the Builder takes token strings through AddDocument.
// Tokenization itself is an external collaborator's job.
type Document struct {
	TokenIds []TokenId
}

// ParsedQuery is a multiset of token ids, already resolved against the
// vocabulary by the caller (via Index.GetTokenId) before Filter or
// CheckMatch is called. A caller whose resolution misses a token should
// skip calling Filter entirely — an unresolvable token can never match.
type ParsedQuery struct {
	Tokens []TokenId
}

// Stats summarizes an open index for diagnostics and telemetry.
type Stats struct {
	VocabSize         int
	PointsCount       int
	ActivePointsCount int
	IsOnDisk          bool
}
