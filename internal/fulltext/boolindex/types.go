// Package boolindex implements the boolean payload field index: a per-value
// posting of points whose field contains that boolean. It mirrors the
// soft-deletion and scoring-iteration contract of the full-text index but
// is independent of it — a peer, not a dependent.
package boolindex

// PointID identifies a point within a segment. Kept as its own type
// (rather than importing fulltext.PointOffsetType) so this package has no
// dependency on the full-text index.
type PointID = uint32

// CardinalityEstimation summarizes the expected result size of a filter,
// for query-plan cost estimation.
type CardinalityEstimation struct {
	Exact bool
	Min   int
	Max   int
	Count int
}

// PayloadBlockCondition is a contiguous cardinality group surfaced for
// query planning: "points matching Value number Cardinality".
type PayloadBlockCondition struct {
	Value       bool
	Cardinality int
}

// Index is the capability set both representations (map-backed and
// mmap-backed) expose. The façade type in bool_index.go dispatches to
// whichever variant backs a given field.
type Index interface {
	// AddPoint replaces id's boolean memberships atomically: any prior
	// membership is cleared before the new values are applied. values is
	// the already-extracted set of booleans for this point (a JSON array
	// of booleans yields one membership per distinct element).
	AddPoint(id PointID, values []bool)

	// RemovePoint clears all of id's memberships.
	RemovePoint(id PointID)

	// Filter returns every point id currently holding value.
	Filter(value bool) []PointID

	// EstimateCardinality reports the exact count of points holding value
	// (the cardinality is cheap to know exactly for a boolean field).
	EstimateCardinality(value bool) CardinalityEstimation

	// PayloadBlocks yields one block per boolean value whose cardinality
	// exceeds threshold.
	PayloadBlocks(threshold int) []PayloadBlockCondition

	// Files lists on-disk files backing this index; nil for a purely
	// in-memory variant.
	Files() []string

	// Flush persists any buffered state. A no-op for in-memory variants.
	Flush() error

	// Load reloads state from disk, reporting whether persisted state was
	// found. A no-op returning (false, nil) for in-memory variants.
	Load() (bool, error)

	// Cleanup removes any on-disk state backing this index.
	Cleanup() error

	// CountIndexedPoints returns the number of distinct points holding at
	// least one boolean membership.
	CountIndexedPoints() int

	// IterValuesMap yields (value, ids) for both true and false.
	IterValuesMap() map[bool][]PointID

	// ValuesCount returns how many distinct boolean values id holds (0, 1,
	// or 2).
	ValuesCount(id PointID) int

	// ValuesIsEmpty reports whether id holds no boolean membership.
	ValuesIsEmpty(id PointID) bool

	// CheckValuesAny reports whether id holds isTrue among its memberships.
	CheckValuesAny(id PointID, isTrue bool) bool
}

// ExtractBoolValues extracts the boolean memberships a JSON payload value
// contributes: a bare JSON bool contributes one; a JSON array contributes
// one per boolean element (duplicates collapse, since membership is a
// set); any other JSON type (number, string, null, object) contributes
// none.
func ExtractBoolValues(v any) []bool {
	switch val := v.(type) {
	case bool:
		return []bool{val}
	case []any:
		seen := map[bool]bool{}
		var out []bool
		for _, elem := range val {
			b, ok := elem.(bool)
			if !ok {
				continue
			}
			if !seen[b] {
				seen[b] = true
				out = append(out, b)
			}
		}
		return out
	default:
		return nil
	}
}
