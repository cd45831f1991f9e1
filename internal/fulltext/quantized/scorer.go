// Package quantized implements scalar quantized vector scoring: vectors are
// encoded once to byte codes against a shared scale, then scored via
// integer dot products. It is a peer of the full-text index, sharing only
// the soft-deletion/scoring-iteration contract, not any code.
package quantized

import "math"

// DeletedBitmap is the borrowed liveness view a RawScorer filters
// candidates through. IsDeleted must report true for any id outside the
// bitmap's own range — an out-of-range id is never a valid score target,
// the same way a deleted one isn't.
type DeletedBitmap interface {
	IsDeleted(id uint32) bool
}

// EncodedVectors holds one byte per (point, dimension), quantized against
// a single shared scale and bias computed at encode time.
type EncodedVectors struct {
	dim   int
	scale float32
	bias  float32
	codes []byte // codes[i*dim : (i+1)*dim] is point i's code
	count int
}

// EncodeVectors quantizes vectors (one []float32 per point, all the same
// length) to a shared [0,255] byte scale. An empty input yields an empty,
// zero-dimension EncodedVectors.
func EncodeVectors(vectors [][]float32) *EncodedVectors {
	if len(vectors) == 0 {
		return &EncodedVectors{}
	}
	dim := len(vectors[0])

	min, max := float32(math.MaxFloat32), -float32(math.MaxFloat32)
	for _, v := range vectors {
		for _, x := range v {
			if x < min {
				min = x
			}
			if x > max {
				max = x
			}
		}
	}
	spread := max - min
	if spread == 0 {
		spread = 1
	}
	scale := spread / 255
	bias := min

	codes := make([]byte, len(vectors)*dim)
	for i, v := range vectors {
		for d, x := range v {
			codes[i*dim+d] = quantizeOne(x, scale, bias)
		}
	}

	return &EncodedVectors{dim: dim, scale: scale, bias: bias, codes: codes, count: len(vectors)}
}

func quantizeOne(x, scale, bias float32) byte {
	q := (x - bias) / scale
	switch {
	case q <= 0:
		return 0
	case q >= 255:
		return 255
	default:
		return byte(q + 0.5)
	}
}

// EncodeQuery quantizes a single query vector against this corpus's scale,
// for later use with ScorePoint/ScorePoints.
func (e *EncodedVectors) EncodeQuery(query []float32) []byte {
	out := make([]byte, len(query))
	for i, x := range query {
		out[i] = quantizeOne(x, e.scale, e.bias)
	}
	return out
}

// Count returns the number of encoded points.
func (e *EncodedVectors) Count() int {
	return e.count
}

func dot(a, b []byte) float32 {
	var sum int64
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		sum += int64(a[i]) * int64(b[i])
	}
	return float32(sum)
}

func (e *EncodedVectors) codeFor(point uint32) []byte {
	off := int(point) * e.dim
	return e.codes[off : off+e.dim]
}

// ScorePoint scores query against point's code.
func (e *EncodedVectors) ScorePoint(query []byte, point uint32) float32 {
	return dot(query, e.codeFor(point))
}

// ScoreInternal scores two encoded points against each other symmetrically.
func (e *EncodedVectors) ScoreInternal(a, b uint32) float32 {
	return dot(e.codeFor(a), e.codeFor(b))
}

// ScoredPoint pairs a point id with its score.
type ScoredPoint struct {
	ID    uint32
	Score float32
}

// RawScorer scores candidate points against a precomputed encoded query,
// skipping points the borrowed deletion bitmap marks dead.
type RawScorer struct {
	query   []byte
	deleted DeletedBitmap
	data    *EncodedVectors
}

// NewRawScorer builds a scorer for query (already encoded via
// EncodedVectors.EncodeQuery) over data, filtering through deleted.
func NewRawScorer(query []byte, deleted DeletedBitmap, data *EncodedVectors) *RawScorer {
	return &RawScorer{query: query, deleted: deleted, data: data}
}

// ScorePoints scores points into out in order, skipping any point the
// deletion bitmap marks dead, and stops as soon as out fills. Returns the
// number of entries written.
func (r *RawScorer) ScorePoints(points []uint32, out []ScoredPoint) int {
	size := 0
	for _, id := range points {
		if r.deleted.IsDeleted(id) {
			continue
		}
		out[size] = ScoredPoint{ID: id, Score: r.data.ScorePoint(r.query, id)}
		size++
		if size == len(out) {
			return size
		}
	}
	return size
}

// CheckPoint reports whether point is a valid, live scoring target.
func (r *RawScorer) CheckPoint(point uint32) bool {
	return !r.deleted.IsDeleted(point)
}

// ScorePoint scores a single point against the scorer's query.
func (r *RawScorer) ScorePoint(point uint32) float32 {
	return r.data.ScorePoint(r.query, point)
}

// ScoreInternal scores two corpus points against each other, ignoring the
// query and the deletion bitmap (used for internal graph-building scoring
// where both ids are already known live).
func (r *RawScorer) ScoreInternal(a, b uint32) float32 {
	return r.data.ScoreInternal(a, b)
}
