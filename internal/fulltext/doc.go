// Package fulltext implements a memory-mapped inverted index for boolean
// full-text filtering over already-tokenized documents.
//
// The index is built once from an in-memory Builder, serialized to a fixed
// four-file directory layout, then opened (postings and vocabulary mapped
// read-only) and queried concurrently under a soft-deletion overlay that
// supports point removal without rebuilding the underlying postings,
// vocabulary, or counts; a removal only sets the point's deleted bit and
// zeroes its count in place. It performs no
// ranking: Filter implements pure boolean AND over token postings.
package fulltext
